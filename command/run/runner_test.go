package run

import (
	"context"
	"fmt"
	"math/big"
	"os"
	"path/filepath"
	"testing"

	"github.com/hashicorp/go-hclog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rei-network/executive/chain"
	"github.com/rei-network/executive/crypto"
	"github.com/rei-network/executive/helper/hex"
	"github.com/rei-network/executive/state/runtime"
	"github.com/rei-network/executive/state/storage"
	"github.com/rei-network/executive/types"
)

var (
	storeContract = types.StringToAddress("0xc0de")
	receiver      = types.StringToAddress("0xbeef")
)

type testAccount struct {
	key  string
	addr types.Address
}

func newTestAccount(t *testing.T) testAccount {
	t.Helper()

	key, err := crypto.GenerateECDSAKey()
	require.NoError(t, err)

	return testAccount{
		key:  hex.EncodeToHex(key.D.FillBytes(make([]byte, 32))),
		addr: crypto.PubKeyToAddress(&key.PublicKey),
	}
}

func testChain(sender types.Address) *chain.Chain {
	c := chain.DevnetChain()

	c.Genesis.Alloc[sender] = &chain.GenesisAccount{
		Balance: big.NewInt(1_000_000_000),
	}

	// PUSH1 1 PUSH1 0 SSTORE STOP
	c.Genesis.Alloc[storeContract] = &chain.GenesisAccount{
		Code: []byte{0x60, 0x01, 0x60, 0x00, 0x55, 0x00},
	}

	return c
}

func writeScenario(t *testing.T, name, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	return path
}

func transferScenario(acc testAccount) string {
	return fmt.Sprintf(`
block:
  number: 1
  timestamp: 1700000000
  miner: "0x00000000000000000000000000000000000000aa"
steps:
  - key: "%[1]s"
    to: "%[2]s"
    value: "100"
    gas: 21000
    gasPrice: "1"
  - key: "%[1]s"
    nonce: 7
    to: "%[2]s"
    value: "100"
    gas: 21000
    gasPrice: "1"
  - key: "%[1]s"
    to: "%[3]s"
    gas: 100000
    gasPrice: "1"
`, acc.key, receiver, storeContract)
}

func TestRunner_Scenario(t *testing.T) {
	t.Parallel()

	acc := newTestAccount(t)
	path := writeScenario(t, "scenario.yaml", transferScenario(acc))

	r := newRunner(hclog.NewNullLogger(), DefaultConfig(), testChain(acc.addr))

	res, err := r.run(context.Background(), path, "test", 0)
	require.NoError(t, err)

	require.Len(t, res.Steps, 3)
	assert.Equal(t, uint64(1), res.Number)

	transfer := res.Steps[0]
	assert.Equal(t, "transaction", transfer.Kind)
	assert.Equal(t, "success", transfer.Status)
	assert.Equal(t, uint64(21000), transfer.GasUsed)

	rejected := res.Steps[1]
	assert.Equal(t, "rejected", rejected.Status)
	assert.Equal(t, runtime.ExceptionInvalidNonce.String(), rejected.Exception)
	assert.NotEmpty(t, rejected.Error)

	store := res.Steps[2]
	assert.Equal(t, "success", store.Status)
	assert.Nil(t, store.Trace)

	assert.Equal(t, transfer.GasUsed+store.GasUsed, res.GasUsed)
	assert.NotEqual(t, res.GenesisRoot, res.StateRoot)
}

func TestRunner_Trace(t *testing.T) {
	t.Parallel()

	acc := newTestAccount(t)
	path := writeScenario(t, "scenario.yaml", transferScenario(acc))

	config := DefaultConfig()
	config.Trace = &Trace{Stack: true}

	r := newRunner(hclog.NewNullLogger(), config, testChain(acc.addr))

	res, err := r.run(context.Background(), path, "test", 0)
	require.NoError(t, err)

	// a plain transfer runs no code
	require.NotNil(t, res.Steps[0].Trace)
	assert.Empty(t, res.Steps[0].Trace.StructLogs)

	trace := res.Steps[2].Trace
	require.NotNil(t, trace)
	assert.False(t, trace.Failed)

	ops := []string{}
	for _, log := range trace.StructLogs {
		ops = append(ops, log.Op)
	}

	assert.Equal(t, []string{"PUSH1", "PUSH1", "SSTORE", "STOP"}, ops)
}

func TestRunner_FileStorage(t *testing.T) {
	t.Parallel()

	acc := newTestAccount(t)
	path := writeScenario(t, "scenario.json", fmt.Sprintf(`{
		"steps": [
			{"key": "%s", "to": "%s", "value": "0x10", "gas": 21000, "gasPrice": "1"}
		]
	}`, acc.key, receiver))

	c := testChain(acc.addr)

	memory, err := newRunner(hclog.NewNullLogger(), DefaultConfig(), c).
		run(context.Background(), path, "memory", 0)
	require.NoError(t, err)

	for _, backend := range []storage.Backend{storage.LevelDB, storage.BoltDB} {
		backend := backend

		t.Run(string(backend), func(t *testing.T) {
			t.Parallel()

			config := DefaultConfig()
			config.Storage = string(backend)
			config.DataDir = t.TempDir()

			res, err := newRunner(hclog.NewNullLogger(), config, c).
				run(context.Background(), path, "file", 0)
			require.NoError(t, err)

			assert.Equal(t, memory.StateRoot, res.StateRoot)
		})
	}
}

func TestRunner_Message(t *testing.T) {
	t.Parallel()

	acc := newTestAccount(t)
	path := writeScenario(t, "scenario.yaml", fmt.Sprintf(`
steps:
  - message: true
    from: "%s"
    to: "%s"
    value: "5"
    gas: 50000
    baseFee: 21000
`, acc.addr, receiver))

	r := newRunner(hclog.NewNullLogger(), DefaultConfig(), testChain(acc.addr))

	res, err := r.run(context.Background(), path, "test", 0)
	require.NoError(t, err)

	require.Len(t, res.Steps, 1)
	assert.Equal(t, "message", res.Steps[0].Kind)
	assert.Equal(t, "success", res.Steps[0].Status)

	// messages are not block gas
	assert.Equal(t, uint64(0), res.GasUsed)
}

func TestRunner_FatalAborts(t *testing.T) {
	t.Parallel()

	acc := newTestAccount(t)

	// a created message needs its originator to have moved the nonce
	path := writeScenario(t, "scenario.yaml", fmt.Sprintf(`
steps:
  - message: true
    create: true
    from: "%s"
    gas: 100000
    input: "0x00"
`, acc.addr))

	r := newRunner(hclog.NewNullLogger(), DefaultConfig(), testChain(acc.addr))

	_, err := r.run(context.Background(), path, "test", 0)
	require.Error(t, err)
	assert.True(t, runtime.IsFatal(err))
}

func TestRunner_InvalidScenario(t *testing.T) {
	t.Parallel()

	acc := newTestAccount(t)

	cases := []struct {
		name    string
		file    string
		content string
	}{
		{"no steps", "empty.yaml", "steps: []\n"},
		{"unknown suffix", "scenario.txt", "steps: []\n"},
		{"two payloads", "double.yaml", fmt.Sprintf("steps:\n  - key: \"%s\"\n    zeroSignature: true\n    gas: 21000\n", acc.key)},
	}

	for _, c := range cases {
		c := c

		t.Run(c.name, func(t *testing.T) {
			t.Parallel()

			path := writeScenario(t, c.file, c.content)
			r := newRunner(hclog.NewNullLogger(), DefaultConfig(), testChain(acc.addr))

			_, err := r.run(context.Background(), path, "test", 0)
			require.Error(t, err)
			assert.False(t, runtime.IsFatal(err))
		})
	}
}

func TestConfig_ReadConfigFile(t *testing.T) {
	t.Parallel()

	cases := []struct {
		file    string
		content string
	}{
		{
			"run.hcl",
			"genesis = \"mainnet\"\ndata_dir = \"/tmp/exec\"\nstorage = \"leveldb\"\nmetrics = true\n" +
				"trace {\n  stack = true\n}\n",
		},
		{
			"run.json",
			`{"genesis": "mainnet", "data_dir": "/tmp/exec", "storage": "leveldb", "metrics": true, "trace": {"stack": true}}`,
		},
		{
			"run.yaml",
			"genesis: mainnet\ndata_dir: /tmp/exec\nstorage: leveldb\nmetrics: true\ntrace:\n  stack: true\n",
		},
	}

	for _, c := range cases {
		c := c

		t.Run(c.file, func(t *testing.T) {
			t.Parallel()

			config, err := ReadConfigFile(writeScenario(t, c.file, c.content))
			require.NoError(t, err)

			assert.Equal(t, "mainnet", config.Genesis)
			assert.Equal(t, "/tmp/exec", config.DataDir)
			assert.Equal(t, "leveldb", config.Storage)
			assert.True(t, config.Metrics)
			require.NotNil(t, config.Trace)
			assert.True(t, config.Trace.Stack)
			assert.False(t, config.Trace.Memory)
		})
	}
}
