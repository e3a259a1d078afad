package genesis

import (
	"math/big"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rei-network/executive/chain"
	"github.com/rei-network/executive/types"
)

func TestParsePremine(t *testing.T) {
	t.Parallel()

	defaultBalance, ok := new(big.Int).SetString("3635C9ADC5DEA00000", 16)
	require.True(t, ok)

	cases := []struct {
		name    string
		entry   string
		addr    types.Address
		balance *big.Int
		err     bool
	}{
		{
			name:    "default balance",
			entry:   "0x0000000000000000000000000000000000000001",
			addr:    types.StringToAddress("0x1"),
			balance: defaultBalance,
		},
		{
			name:    "decimal balance",
			entry:   "0x0000000000000000000000000000000000000002:1000",
			addr:    types.StringToAddress("0x2"),
			balance: big.NewInt(1000),
		},
		{
			name:    "hex balance",
			entry:   "0x0000000000000000000000000000000000000003:0x10",
			addr:    types.StringToAddress("0x3"),
			balance: big.NewInt(16),
		},
		{
			name:  "short address",
			entry: "0x01:1000",
			err:   true,
		},
		{
			name:  "not a number",
			entry: "0x0000000000000000000000000000000000000002:abc",
			err:   true,
		},
	}

	for _, c := range cases {
		c := c

		t.Run(c.name, func(t *testing.T) {
			t.Parallel()

			addr, balance, err := parsePremine(c.entry)
			if c.err {
				require.ErrorIs(t, err, errInvalidPremine)

				return
			}

			require.NoError(t, err)
			assert.Equal(t, c.addr, addr)
			assert.Equal(t, 0, c.balance.Cmp(balance))
		})
	}
}

func TestWriteGenesis(t *testing.T) {
	t.Parallel()

	for _, file := range []string{"genesis.json", "genesis.yaml"} {
		file := file

		t.Run(file, func(t *testing.T) {
			t.Parallel()

			p := &genesisParams{
				genesisPath:   filepath.Join(t.TempDir(), "out", file),
				preset:        chain.Devnet,
				name:          "local",
				premine:       []string{"0x0000000000000000000000000000000000000001:500"},
				chainID:       100,
				blockGasLimit: 8_000_000,
			}

			require.NoError(t, p.validateFlags())
			require.NoError(t, p.initGenesisConfig())
			require.NoError(t, p.writeGenesis())

			// a second write is refused
			require.ErrorIs(t, p.validateFlags(), errGenesisFileExists)

			imported, err := chain.ImportFromFile(p.genesisPath)
			require.NoError(t, err)

			assert.Equal(t, "local", imported.Name)
			assert.Equal(t, uint64(100), imported.Params.ChainID)
			assert.Equal(t, uint64(8_000_000), imported.Genesis.GasLimit)
			assert.Equal(t, p.genesisConfig.Params.MaxGasLimit, imported.Params.MaxGasLimit)

			account, ok := imported.Genesis.Alloc[types.StringToAddress("0x1")]
			require.True(t, ok)
			assert.Equal(t, 0, big.NewInt(500).Cmp(account.Balance))
		})
	}
}

func TestValidateFlags_UnknownPreset(t *testing.T) {
	t.Parallel()

	p := &genesisParams{
		genesisPath: filepath.Join(t.TempDir(), "genesis.json"),
		preset:      "moonnet",
	}

	require.ErrorIs(t, p.validateFlags(), errUnknownPreset)
}
