package helper

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/hashicorp/go-hclog"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fileConfig struct {
	Name  string `json:"name" yaml:"name" hcl:"name"`
	Count int    `json:"count" yaml:"count" hcl:"count"`
}

func TestUnmarshalFile(t *testing.T) {
	t.Parallel()

	cases := []struct {
		file    string
		content string
		err     bool
	}{
		{"config.hcl", "name = \"node\"\ncount = 3\n", false},
		{"config.json", `{"name": "node", "count": 3}`, false},
		{"config.yaml", "name: node\ncount: 3\n", false},
		{"config.YML", "name: node\ncount: 3\n", false},
		{"config.toml", "name = \"node\"\n", true},
		{"broken.json", `{"name": `, true},
	}

	for _, c := range cases {
		c := c

		t.Run(c.file, func(t *testing.T) {
			t.Parallel()

			path := filepath.Join(t.TempDir(), c.file)
			require.NoError(t, os.WriteFile(path, []byte(c.content), 0o600))

			out := &fileConfig{}

			err := UnmarshalFile(path, out)
			if c.err {
				require.Error(t, err)

				return
			}

			require.NoError(t, err)
			assert.Equal(t, &fileConfig{Name: "node", Count: 3}, out)
		})
	}
}

func TestUnmarshalFile_Missing(t *testing.T) {
	t.Parallel()

	err := UnmarshalFile(filepath.Join(t.TempDir(), "missing.json"), &fileConfig{})
	require.ErrorIs(t, err, os.ErrNotExist)
}

func TestNewLogger(t *testing.T) {
	t.Parallel()

	cmd := &cobra.Command{}
	RegisterLogFlags(cmd)

	assert.True(t, NewLogger(cmd).IsInfo())

	require.NoError(t, cmd.PersistentFlags().Set("log-level", "debug"))
	assert.Equal(t, hclog.Debug, NewLogger(cmd).GetLevel())
}

func TestFormatKV(t *testing.T) {
	t.Parallel()

	out := FormatKV([]string{
		"Root|0x01",
		"Gas used|21000",
		"Empty|",
	})

	assert.Contains(t, out, "Root     = 0x01")
	assert.Contains(t, out, "Gas used = 21000")
	assert.Contains(t, out, "Empty    = <none>")
}
