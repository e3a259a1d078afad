package helper

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/hashicorp/go-hclog"
	"github.com/hashicorp/hcl"
	"github.com/ryanuber/columnize"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/rei-network/executive/command"
)

// RegisterJSONOutputFlag registers the --json output setting for all child commands
func RegisterJSONOutputFlag(cmd *cobra.Command) {
	cmd.PersistentFlags().Bool(
		command.JSONOutputFlag,
		false,
		"get all outputs in json format (default false)",
	)
}

// RegisterLogFlags registers the logger settings for all child commands
func RegisterLogFlags(cmd *cobra.Command) {
	cmd.PersistentFlags().String(
		command.LogLevelFlag,
		command.DefaultLogLevel,
		"the log level for console output",
	)

	cmd.PersistentFlags().Bool(
		command.JSONLogFlag,
		false,
		"write logs in json format",
	)
}

// NewLogger builds the root logger from the log flags of the command
func NewLogger(cmd *cobra.Command) hclog.Logger {
	level := command.DefaultLogLevel
	if flag := cmd.Flag(command.LogLevelFlag); flag != nil {
		level = flag.Value.String()
	}

	jsonFormat := false
	if flag := cmd.Flag(command.JSONLogFlag); flag != nil {
		jsonFormat = flag.Value.String() == "true"
	}

	return hclog.New(&hclog.LoggerOptions{
		Name:       "executive",
		Level:      hclog.LevelFromString(level),
		Output:     os.Stderr,
		JSONFormat: jsonFormat,
	})
}

// UnmarshalFile decodes a .json, .hcl, .yaml or .yml file into out
func UnmarshalFile(path string, out interface{}) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	var unmarshalFunc func([]byte, interface{}) error

	switch strings.ToLower(filepath.Ext(path)) {
	case ".hcl":
		unmarshalFunc = hcl.Unmarshal
	case ".json":
		unmarshalFunc = json.Unmarshal
	case ".yaml", ".yml":
		unmarshalFunc = yaml.Unmarshal
	default:
		return fmt.Errorf("suffix of %s is neither hcl, json, yaml nor yml", path)
	}

	if err := unmarshalFunc(data, out); err != nil {
		return fmt.Errorf("failed to decode %s: %w", path, err)
	}

	return nil
}

// OUTPUT FORMATTING //

// FormatList formats a list, using a specific blank value replacement
func FormatList(in []string) string {
	columnConf := columnize.DefaultConfig()
	columnConf.Empty = "<none>"

	return columnize.Format(in, columnConf)
}

// FormatKV formats key value pairs:
//
// Key = Value
//
// Key = <none>
func FormatKV(in []string) string {
	columnConf := columnize.DefaultConfig()
	columnConf.Empty = "<none>"
	columnConf.Glue = " = "

	return columnize.Format(in, columnConf)
}
