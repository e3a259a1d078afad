package run

import (
	"fmt"
	"os"
	"sync"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/rei-network/executive/command"
	"github.com/rei-network/executive/command/helper"
	"github.com/rei-network/executive/state/storage"
)

// GetCommand returns the run command
func GetCommand() *cobra.Command {
	runCmd := &cobra.Command{
		Use:     "run [scenario files]",
		Short:   "Executes the transactions and messages of scenario files on top of a genesis",
		PreRunE: runPreRun,
		Run:     runCommand,
	}

	setFlags(runCmd)

	return runCmd
}

func setFlags(cmd *cobra.Command) {
	defaultConfig := DefaultConfig()

	cmd.Flags().StringVar(
		&params.configPath,
		configFlag,
		"",
		"the path to the run config file (.hcl, .json, .yaml)",
	)

	cmd.Flags().StringVar(
		&params.genesis,
		genesisFlag,
		defaultConfig.Genesis,
		"the genesis file or built-in chain (mainnet, testnet, devnet)",
	)

	cmd.Flags().StringVar(
		&params.dataDir,
		dataDirFlag,
		"",
		"the directory the file based state storage is written to",
	)

	cmd.Flags().StringVar(
		&params.storage,
		storageFlag,
		defaultConfig.Storage,
		fmt.Sprintf("the state storage backend (%s, %s, %s)", storage.Memory, storage.LevelDB, storage.BoltDB),
	)

	cmd.Flags().BoolVar(
		&params.trace,
		traceFlag,
		false,
		"record a struct log of every executed instruction",
	)

	cmd.Flags().BoolVar(
		&params.traceMemory,
		traceMemFlag,
		false,
		"include the memory in the struct logs",
	)

	cmd.Flags().BoolVar(
		&params.metrics,
		metricsFlag,
		false,
		"collect the executive metrics and print them after the run",
	)
}

func runPreRun(cmd *cobra.Command, args []string) error {
	params.scenarios = args

	if err := params.initConfig(cmd); err != nil {
		return err
	}

	return params.validateFlags()
}

// runCommand exits non-zero when a scenario fails, fatal faults included
func runCommand(cmd *cobra.Command, _ []string) {
	outputter := command.InitializeOutputter(cmd)

	res, err := execute(cmd)
	if err != nil {
		outputter.SetError(err)
		outputter.WriteOutput()

		os.Exit(1)
	}

	outputter.SetCommandResult(res)
	outputter.WriteOutput()
}

func execute(cmd *cobra.Command) (*RunResult, error) {
	logger := helper.NewLogger(cmd)
	params.applyLogLevel(cmd, logger)

	if err := params.initChain(); err != nil {
		return nil, err
	}

	if params.rawConfig.Metrics {
		if err := setupTelemetry(); err != nil {
			return nil, fmt.Errorf("failed to set up metrics: %w", err)
		}
	}

	runID := uuid.New().String()
	r := newRunner(logger.With("run", runID), params.rawConfig, params.chain)

	var (
		lock    sync.Mutex
		g, ctx  = errgroup.WithContext(cmd.Context())
		results = make([]*ScenarioResult, len(params.scenarios))
	)

	for i, path := range params.scenarios {
		i, path := i, path

		g.Go(func() error {
			res, err := r.run(ctx, path, runID, i)
			if err != nil {
				return fmt.Errorf("%s: %w", path, err)
			}

			lock.Lock()
			results[i] = res
			lock.Unlock()

			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("run failed: %w", err)
	}

	res := &RunResult{
		RunID:     runID,
		Scenarios: results,
	}

	if params.rawConfig.Metrics {
		families, err := gatherMetrics()
		if err != nil {
			return nil, err
		}

		res.Metrics = families
	}

	return res, nil
}
