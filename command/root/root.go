package root

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/rei-network/executive/command/decode"
	"github.com/rei-network/executive/command/genesis"
	"github.com/rei-network/executive/command/helper"
	"github.com/rei-network/executive/command/run"
	"github.com/rei-network/executive/command/version"
)

type RootCommand struct {
	baseCmd *cobra.Command
}

func NewRootCommand() *RootCommand {
	rootCommand := &RootCommand{
		baseCmd: &cobra.Command{
			Use:           "executive",
			Short:         "Executive runs REI transactions and messages against a world state",
			SilenceUsage:  true,
			SilenceErrors: true,
		},
	}

	helper.RegisterJSONOutputFlag(rootCommand.baseCmd)
	helper.RegisterLogFlags(rootCommand.baseCmd)

	rootCommand.registerSubCommands()

	return rootCommand
}

func (rc *RootCommand) registerSubCommands() {
	rc.baseCmd.AddCommand(
		version.GetCommand(),
		genesis.GetCommand(),
		run.GetCommand(),
		decode.GetCommand(),
	)
}

func (rc *RootCommand) Execute() {
	if err := rc.baseCmd.Execute(); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)

		os.Exit(1)
	}
}
