package run

import (
	"github.com/rei-network/executive/command/helper"
	"github.com/rei-network/executive/state/storage"
)

// Config is the configuration of a run, read from a .hcl, .json or .yaml file
type Config struct {
	Genesis  string `json:"genesis" yaml:"genesis" hcl:"genesis"`
	DataDir  string `json:"data_dir" yaml:"data_dir" hcl:"data_dir"`
	Storage  string `json:"storage" yaml:"storage" hcl:"storage"`
	LogLevel string `json:"log_level" yaml:"log_level" hcl:"log_level"`
	Trace    *Trace `json:"trace" yaml:"trace" hcl:"trace"`
	Metrics  bool   `json:"metrics" yaml:"metrics" hcl:"metrics"`
}

// Trace selects what the struct logger captures. A nil Trace disables it.
type Trace struct {
	Memory  bool `json:"memory" yaml:"memory" hcl:"memory"`
	Stack   bool `json:"stack" yaml:"stack" hcl:"stack"`
	Storage bool `json:"storage" yaml:"storage" hcl:"storage"`
}

// DefaultConfig returns the default run configuration
func DefaultConfig() *Config {
	return &Config{
		Genesis: "devnet",
		Storage: string(storage.Memory),
	}
}

// ReadConfigFile reads the config file from the specified path, builds a Config object
// and returns it.
//
// Supported file types: .json, .hcl, .yaml, .yml
func ReadConfigFile(path string) (*Config, error) {
	config := DefaultConfig()
	if err := helper.UnmarshalFile(path, config); err != nil {
		return nil, err
	}

	return config, nil
}
