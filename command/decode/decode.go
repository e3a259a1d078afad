package decode

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/rei-network/executive/command"
	"github.com/rei-network/executive/crypto"
	"github.com/rei-network/executive/helper/hex"
)

const levelFlag = "verify"

var (
	params = &decodeParams{}
)

type decodeParams struct {
	levelRaw string
	raw      []byte
	level    crypto.VerificationLevel
}

func (p *decodeParams) init(args []string) error {
	level, err := crypto.ParseVerificationLevel(p.levelRaw)
	if err != nil {
		return err
	}

	raw, err := hex.DecodeHex(strings.TrimSpace(args[0]))
	if err != nil {
		return fmt.Errorf("failed to decode hex: %w", err)
	}

	p.level = level
	p.raw = raw

	return nil
}

// GetCommand returns the decode command
func GetCommand() *cobra.Command {
	decodeCmd := &cobra.Command{
		Use:     "decode <raw transaction>",
		Short:   "Decodes a raw signed transaction and verifies its signature",
		Args:    cobra.ExactArgs(1),
		PreRunE: runPreRun,
		Run:     runCommand,
	}

	decodeCmd.Flags().StringVar(
		&params.levelRaw,
		levelFlag,
		crypto.VerificationEverything.String(),
		fmt.Sprintf(
			"how much of the transaction is verified (%s, %s, %s)",
			crypto.VerificationNone, crypto.VerificationCheap, crypto.VerificationEverything,
		),
	)

	return decodeCmd
}

func runPreRun(_ *cobra.Command, args []string) error {
	return params.init(args)
}

func runCommand(cmd *cobra.Command, _ []string) {
	outputter := command.InitializeOutputter(cmd)
	defer outputter.WriteOutput()

	tx, err := crypto.DecodeTransaction(params.raw, params.level)
	if err != nil {
		outputter.SetError(fmt.Errorf("invalid transaction: %w", err))

		return
	}

	outputter.SetCommandResult(newDecodeResult(tx))
}
