package state

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rei-network/executive/types"
)

var addr1 = types.StringToAddress("1")

var hash0 = types.StringToHash("0")
var hash1 = types.StringToHash("1")
var hash2 = types.StringToHash("2")

var defaultPreState = map[types.Address]*PreState{
	addr1: {
		State: map[types.Hash]types.Hash{
			hash1: hash1,
		},
	},
}

// PreState is the account prestate
type PreState struct {
	Nonce   uint64
	Balance uint64
	State   map[types.Hash]types.Hash
}

// PreStates is a set of pre states
type PreStates map[types.Address]*PreState

// PreStateObjects converts the pre states into objects a snapshot can commit
func PreStateObjects(p PreStates) []*Object {
	objs := make([]*Object, 0, len(p))

	for addr, pre := range p {
		obj := &Object{
			Address:  addr,
			Nonce:    pre.Nonce,
			Balance:  new(big.Int).SetUint64(pre.Balance),
			Root:     types.EmptyRootHash,
			CodeHash: types.EmptyCodeHash,
		}

		for k, v := range pre.State {
			obj.Storage = append(obj.Storage, &StorageObject{
				Key: k.Bytes(),
				Val: v.Bytes(),
			})
		}

		objs = append(objs, obj)
	}

	return objs
}

// BuildPreState returns a snapshot holding the pre states
type BuildPreState func(p PreStates) Snapshot

// TestWorldState runs the world state suite against a snapshot implementation
func TestWorldState(t *testing.T, buildPreState BuildPreState) {
	t.Helper()

	t.Run("write state", func(t *testing.T) {
		testWriteState(t, buildPreState)
	})
	t.Run("write empty state", func(t *testing.T) {
		testWriteEmptyState(t, buildPreState)
	})
	t.Run("update state in prestate", func(t *testing.T) {
		testUpdateStateInPreState(t, buildPreState)
	})
	t.Run("update state with empty", func(t *testing.T) {
		testUpdateStateWithEmpty(t, buildPreState)
	})
	t.Run("kill account in prestate", func(t *testing.T) {
		testKillAccountInPreState(t, buildPreState)
	})
	t.Run("kill account with data", func(t *testing.T) {
		testKillAccountWithData(t, buildPreState)
	})
	t.Run("kill and fund", func(t *testing.T) {
		testKillAndFund(t, buildPreState)
	})
	t.Run("clear storage", func(t *testing.T) {
		testClearStorage(t, buildPreState)
	})
	t.Run("code and version", func(t *testing.T) {
		testCodeAndVersion(t, buildPreState)
	})
	t.Run("stake info", func(t *testing.T) {
		testStakeInfo(t, buildPreState)
	})
	t.Run("change prestate balance to zero", func(t *testing.T) {
		testChangePrestateAccountBalanceToZero(t, buildPreState)
	})
	t.Run("unrevertable touch", func(t *testing.T) {
		testUnrevertableTouch(t, buildPreState)
	})
	t.Run("sub balance below zero", func(t *testing.T) {
		testSubBalanceBelowZero(t, buildPreState)
	})
}

func commit(t *testing.T, ws *WorldState, removeEmpty bool) *WorldState {
	t.Helper()

	snap, _, err := ws.Commit(removeEmpty)
	require.NoError(t, err)

	return NewWorldState(snap, 0)
}

func testWriteState(t *testing.T, buildPreState BuildPreState) {
	ws := NewWorldState(buildPreState(nil), 0)

	ws.SetStorage(addr1, hash1, hash1)
	ws.SetStorage(addr1, hash2, hash2)

	assert.Equal(t, hash1, ws.Storage(addr1, hash1))
	assert.Equal(t, hash2, ws.Storage(addr1, hash2))

	ws = commit(t, ws, false)

	assert.Equal(t, hash1, ws.Storage(addr1, hash1))
	assert.Equal(t, hash2, ws.Storage(addr1, hash2))
	assert.NotEqual(t, types.EmptyRootHash, ws.StorageRoot(addr1))
}

func testWriteEmptyState(t *testing.T, buildPreState BuildPreState) {
	// without empty account removal the account is kept
	ws := NewWorldState(buildPreState(nil), 0)
	ws.SetStorage(addr1, hash1, hash0)

	ws = commit(t, ws, false)
	assert.True(t, ws.AccountExists(addr1))

	// with it the account is dropped
	ws = NewWorldState(buildPreState(nil), 0)
	ws.SetStorage(addr1, hash1, hash0)

	ws = commit(t, ws, true)
	assert.False(t, ws.AccountExists(addr1))
}

func testUpdateStateInPreState(t *testing.T, buildPreState BuildPreState) {
	ws := NewWorldState(buildPreState(defaultPreState), 0)
	assert.Equal(t, hash1, ws.Storage(addr1, hash1))

	ws.SetStorage(addr1, hash1, hash2)

	ws = commit(t, ws, false)
	assert.Equal(t, hash2, ws.Storage(addr1, hash1))
}

func testUpdateStateWithEmpty(t *testing.T, buildPreState BuildPreState) {
	ws := NewWorldState(buildPreState(defaultPreState), 0)
	ws.SetStorage(addr1, hash1, hash0)

	ws = commit(t, ws, true)
	assert.False(t, ws.AccountExists(addr1))
}

func testKillAccountInPreState(t *testing.T, buildPreState BuildPreState) {
	ws := NewWorldState(buildPreState(defaultPreState), 0)
	ws.Kill(addr1)

	assert.False(t, ws.AccountExists(addr1))

	ws = commit(t, ws, true)
	assert.False(t, ws.AccountExists(addr1))
}

func testKillAccountWithData(t *testing.T, buildPreState BuildPreState) {
	ws := NewWorldState(buildPreState(nil), 0)

	ws.SetNonce(addr1, 10)
	ws.AddBalance(addr1, big.NewInt(100))
	ws.SetCode(addr1, []byte{0x1, 0x2, 0x3}, 0)
	ws.SetStorage(addr1, hash1, hash1)

	ws.Kill(addr1)

	ws = commit(t, ws, false)

	assert.Equal(t, 0, ws.Balance(addr1).Sign())
	assert.Equal(t, uint64(0), ws.Nonce(addr1))
	assert.Empty(t, ws.Code(addr1))
	assert.Equal(t, types.ZeroHash, ws.CodeHash(addr1))
	assert.Equal(t, types.ZeroHash, ws.Storage(addr1, hash1))
}

func testKillAndFund(t *testing.T, buildPreState BuildPreState) {
	// a killed account funded afterwards comes back without its storage
	ws := NewWorldState(buildPreState(defaultPreState), 0)

	ws.Kill(addr1)
	ws.AddBalance(addr1, big.NewInt(10))

	ws = commit(t, ws, true)

	assert.Equal(t, int64(10), ws.Balance(addr1).Int64())
	assert.Equal(t, types.ZeroHash, ws.Storage(addr1, hash1))
}

func testClearStorage(t *testing.T, buildPreState BuildPreState) {
	pre := PreStates{
		addr1: {
			Balance: 1,
			State:   map[types.Hash]types.Hash{hash1: hash1},
		},
	}

	ws := NewWorldState(buildPreState(pre), 0)
	assert.NotEqual(t, types.EmptyRootHash, ws.StorageRoot(addr1))

	ws.ClearStorage(addr1)
	assert.Equal(t, types.ZeroHash, ws.Storage(addr1, hash1))
	assert.Equal(t, types.EmptyRootHash, ws.StorageRoot(addr1))

	ws.SetStorage(addr1, hash2, hash2)

	ws = commit(t, ws, true)

	assert.Equal(t, types.ZeroHash, ws.Storage(addr1, hash1))
	assert.Equal(t, hash2, ws.Storage(addr1, hash2))
}

func testCodeAndVersion(t *testing.T, buildPreState BuildPreState) {
	code := []byte{0x60, 0x00}

	ws := NewWorldState(buildPreState(nil), 0)
	assert.False(t, ws.HasCode(addr1))

	ws.SetCode(addr1, code, 1)

	ws = commit(t, ws, true)

	assert.True(t, ws.HasCode(addr1))
	assert.Equal(t, code, ws.Code(addr1))
	assert.Equal(t, uint64(1), ws.CodeVersion(addr1))
}

func testStakeInfo(t *testing.T, buildPreState BuildPreState) {
	info := &StakeInfo{
		Total:     big.NewInt(100),
		Usage:     big.NewInt(5),
		Timestamp: 1000,
	}

	ws := NewWorldState(buildPreState(nil), 0)
	assert.Nil(t, ws.StakeInfo(addr1))

	ws.AddBalance(addr1, big.NewInt(1))
	ws.SetStakeInfo(addr1, info)

	ws = commit(t, ws, true)

	got := ws.StakeInfo(addr1)
	require.NotNil(t, got)
	assert.Equal(t, 0, info.Total.Cmp(got.Total))
	assert.Equal(t, 0, info.Usage.Cmp(got.Usage))
	assert.Equal(t, info.Timestamp, got.Timestamp)
}

func testChangePrestateAccountBalanceToZero(t *testing.T, buildPreState BuildPreState) {
	pre := PreStates{
		addr1: {
			Balance: 10,
		},
	}

	ws := NewWorldState(buildPreState(pre), 0)
	require.NoError(t, ws.SubBalance(addr1, big.NewInt(10)))

	ws = commit(t, ws, true)
	assert.False(t, ws.AccountExists(addr1))
}

func testSubBalanceBelowZero(t *testing.T, buildPreState BuildPreState) {
	ws := NewWorldState(buildPreState(nil), 0)
	ws.AddBalance(addr1, big.NewInt(3))

	require.ErrorIs(t, ws.SubBalance(addr1, big.NewInt(5)), ErrNotEnoughFunds)

	ws = commit(t, ws, false)
	assert.Equal(t, big.NewInt(3), ws.Balance(addr1))
}

func testUnrevertableTouch(t *testing.T, buildPreState BuildPreState) {
	pre := PreStates{
		addr1: {},
	}

	// a rolled back touch is forgotten
	ws := NewWorldState(buildPreState(pre), 0)
	require.True(t, ws.AccountExists(addr1))

	sp := ws.Savepoint()
	ws.Touch(addr1)
	ws.RollbackTo(sp)

	ws = commit(t, ws, true)
	assert.True(t, ws.AccountExists(addr1))

	// an unrevertable one still removes the empty account
	sp = ws.Savepoint()
	ws.UnrevertableTouch(addr1)
	ws.RollbackTo(sp)

	ws = commit(t, ws, true)
	assert.False(t, ws.AccountExists(addr1))
}
