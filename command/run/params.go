package run

import (
	"errors"
	"fmt"

	"github.com/hashicorp/go-hclog"
	"github.com/spf13/cobra"

	"github.com/rei-network/executive/chain"
	"github.com/rei-network/executive/command"
	"github.com/rei-network/executive/state/storage"
)

const (
	configFlag   = "config"
	genesisFlag  = "genesis"
	dataDirFlag  = "data-dir"
	storageFlag  = "storage"
	traceFlag    = "trace"
	metricsFlag  = "metrics"
	traceMemFlag = "trace-memory"
)

var (
	params = &runParams{}
)

var (
	errNoScenario     = errors.New("at least one scenario file is required")
	errMissingDataDir = errors.New("a data directory is required for file based storage")
)

type runParams struct {
	configPath string
	rawConfig  *Config

	genesis     string
	dataDir     string
	storage     string
	trace       bool
	traceMemory bool
	metrics     bool

	scenarios []string

	chain *chain.Chain
}

// initConfig loads the config file and lets the explicitly set flags override it
func (p *runParams) initConfig(cmd *cobra.Command) error {
	p.rawConfig = DefaultConfig()

	if p.configPath != "" {
		cfg, err := ReadConfigFile(p.configPath)
		if err != nil {
			return err
		}

		p.rawConfig = cfg
	}

	flags := cmd.Flags()

	if flags.Changed(genesisFlag) {
		p.rawConfig.Genesis = p.genesis
	}

	if flags.Changed(dataDirFlag) {
		p.rawConfig.DataDir = p.dataDir
	}

	if flags.Changed(storageFlag) {
		p.rawConfig.Storage = p.storage
	}

	if flags.Changed(metricsFlag) {
		p.rawConfig.Metrics = p.metrics
	}

	if flags.Changed(traceFlag) || flags.Changed(traceMemFlag) {
		if p.trace || p.traceMemory {
			p.rawConfig.Trace = &Trace{Stack: true, Storage: true, Memory: p.traceMemory}
		} else {
			p.rawConfig.Trace = nil
		}
	}

	return nil
}

func (p *runParams) validateFlags() error {
	if len(p.scenarios) == 0 {
		return errNoScenario
	}

	switch storage.Backend(p.rawConfig.Storage) {
	case storage.Memory, "":
	case storage.LevelDB, storage.BoltDB:
		if p.rawConfig.DataDir == "" {
			return errMissingDataDir
		}
	default:
		return fmt.Errorf("%w: %s", storage.ErrUnknownBackend, p.rawConfig.Storage)
	}

	return nil
}

func (p *runParams) initChain() error {
	cfg, err := chain.ImportFromName(p.rawConfig.Genesis)
	if err != nil {
		return fmt.Errorf("failed to load genesis %s: %w", p.rawConfig.Genesis, err)
	}

	p.chain = cfg

	return nil
}

// applyLogLevel uses the configured level unless the flag was set
func (p *runParams) applyLogLevel(cmd *cobra.Command, logger hclog.Logger) {
	if p.rawConfig.LogLevel != "" && !cmd.Flags().Changed(command.LogLevelFlag) {
		logger.SetLevel(hclog.LevelFromString(p.rawConfig.LogLevel))
	}
}
