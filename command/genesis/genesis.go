package genesis

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/rei-network/executive/command"
)

func GetCommand() *cobra.Command {
	genesisCmd := &cobra.Command{
		Use:     "genesis",
		Short:   "Generates the genesis configuration file from a built-in chain preset",
		PreRunE: runPreRun,
		Run:     runCommand,
	}

	setFlags(genesisCmd)

	return genesisCmd
}

func setFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(
		&params.genesisPath,
		dirFlag,
		fmt.Sprintf("./%s", command.DefaultGenesisFileName),
		"the directory for the genesis data, a .yaml or .yml name writes yaml",
	)

	cmd.Flags().StringVar(
		&params.name,
		nameFlag,
		"",
		"the name for the chain, the preset name if omitted",
	)

	cmd.Flags().StringVar(
		&params.preset,
		presetFlag,
		command.DefaultChainPreset,
		"the built-in chain the genesis starts from (mainnet, testnet, devnet)",
	)

	cmd.Flags().StringArrayVar(
		&params.premine,
		premineFlag,
		[]string{},
		fmt.Sprintf(
			"the premined accounts and balances (format: <address>[:<balance>]). Default premined balance: %s",
			command.DefaultPremineBalance,
		),
	)

	cmd.Flags().Uint64Var(
		&params.chainID,
		chainIDFlag,
		0,
		"the ID of the chain, the preset chain id if omitted",
	)

	cmd.Flags().Uint64Var(
		&params.blockGasLimit,
		blockGasLimitFlag,
		0,
		"the maximum amount of gas used by all transactions in a block",
	)
}

func runPreRun(cmd *cobra.Command, _ []string) error {
	// a directory argument gets the default file name
	if ext := filepath.Ext(params.genesisPath); ext == "" {
		params.genesisPath = filepath.Join(params.genesisPath, command.DefaultGenesisFileName)
	}

	return params.validateFlags()
}

func runCommand(cmd *cobra.Command, _ []string) {
	outputter := command.InitializeOutputter(cmd)
	defer outputter.WriteOutput()

	if err := params.initGenesisConfig(); err != nil {
		outputter.SetError(err)

		return
	}

	if err := params.writeGenesis(); err != nil {
		outputter.SetError(err)

		return
	}

	outputter.SetCommandResult(params.getResult())
}
