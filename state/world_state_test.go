package state

import (
	"errors"
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/rei-network/executive/types"
)

type mockSnapshot struct {
	accounts map[types.Address]*Account
	storage  map[types.Address]map[types.Hash]types.Hash
	code     map[types.Hash][]byte
	err      error
}

func newMockSnapshot() *mockSnapshot {
	return &mockSnapshot{
		accounts: map[types.Address]*Account{},
		storage:  map[types.Address]map[types.Hash]types.Hash{},
		code:     map[types.Hash][]byte{},
	}
}

func (m *mockSnapshot) GetStorage(addr types.Address, _ types.Hash, key types.Hash) types.Hash {
	return m.storage[addr][key]
}

func (m *mockSnapshot) GetAccount(addr types.Address) (*Account, error) {
	if m.err != nil {
		return nil, m.err
	}

	return m.accounts[addr], nil
}

func (m *mockSnapshot) GetCode(hash types.Hash) ([]byte, bool) {
	code, ok := m.code[hash]

	return code, ok
}

func (m *mockSnapshot) Commit(objs []*Object) (Snapshot, []byte, error) {
	next := newMockSnapshot()

	for addr, account := range m.accounts {
		next.accounts[addr] = account
	}

	for addr, slots := range m.storage {
		next.storage[addr] = slots
	}

	for hash, code := range m.code {
		next.code[hash] = code
	}

	for _, obj := range objs {
		if obj.Deleted {
			delete(next.accounts, obj.Address)
			delete(next.storage, obj.Address)

			continue
		}

		slots := map[types.Hash]types.Hash{}
		if obj.Root != types.EmptyRootHash {
			for k, v := range next.storage[obj.Address] {
				slots[k] = v
			}
		}

		for _, entry := range obj.Storage {
			if entry.Deleted {
				delete(slots, types.BytesToHash(entry.Key))
			} else {
				slots[types.BytesToHash(entry.Key)] = types.BytesToHash(entry.Val)
			}
		}

		account := obj.Account()
		account.Root = types.EmptyRootHash

		if len(slots) != 0 {
			account.Root = types.StringToHash("0x1")
		}

		if obj.DirtyCode {
			next.code[obj.CodeHash] = obj.Code
		}

		next.accounts[obj.Address] = account
		next.storage[obj.Address] = slots
	}

	return next, nil, nil
}

func newTestWorldState(p PreStates) *WorldState {
	snap, _, _ := newMockSnapshot().Commit(PreStateObjects(p))

	return NewWorldState(snap, 0)
}

func TestWorldState_Mock(t *testing.T) {
	TestWorldState(t, func(p PreStates) Snapshot {
		snap, _, _ := newMockSnapshot().Commit(PreStateObjects(p))

		return snap
	})
}

func TestWorldState_SavepointUpdateData(t *testing.T) {
	t.Parallel()

	ws := newTestWorldState(defaultPreState)

	ws.SetStorage(addr1, hash1, hash1)
	assert.Equal(t, hash1, ws.Storage(addr1, hash1))

	sp := ws.Savepoint()
	ws.SetStorage(addr1, hash1, hash2)
	assert.Equal(t, hash2, ws.Storage(addr1, hash1))

	ws.RollbackTo(sp)
	assert.Equal(t, hash1, ws.Storage(addr1, hash1))
}

func TestWorldState_NestedSavepoints(t *testing.T) {
	t.Parallel()

	ws := newTestWorldState(nil)

	outer := ws.Savepoint()
	ws.AddBalance(addr1, big.NewInt(1))

	inner := ws.Savepoint()
	ws.AddBalance(addr1, big.NewInt(2))
	assert.Equal(t, int64(3), ws.Balance(addr1).Int64())

	ws.RollbackTo(inner)
	assert.Equal(t, int64(1), ws.Balance(addr1).Int64())

	ws.RollbackTo(outer)
	assert.False(t, ws.AccountExists(addr1))
}

func TestWorldState_RollbackTwice(t *testing.T) {
	t.Parallel()

	ws := newTestWorldState(nil)

	sp := ws.Savepoint()
	ws.AddBalance(addr1, big.NewInt(1))

	later := ws.Savepoint()
	ws.RollbackTo(sp)
	assert.False(t, ws.AccountExists(addr1))

	ws.AddBalance(addr1, big.NewInt(2))
	ws.RollbackTo(sp)
	assert.False(t, ws.AccountExists(addr1))

	// savepoints taken after the rollback target are gone
	assert.Panics(t, func() {
		ws.RollbackTo(later)
	})
}

func TestWorldState_WarmthIsReverted(t *testing.T) {
	t.Parallel()

	ws := newTestWorldState(nil)

	ws.MarkAddressWarm(addr1)

	sp := ws.Savepoint()
	ws.MarkStorageKeyWarm(addr1, hash1)
	assert.True(t, ws.IsStorageKeyWarm(addr1, hash1))
	assert.False(t, ws.IsStorageKeyWarm(addr1, hash2))

	ws.RollbackTo(sp)

	assert.True(t, ws.IsAddressWarm(addr1))
	assert.False(t, ws.IsStorageKeyWarm(addr1, hash1))
}

func TestWorldState_BeginTransaction(t *testing.T) {
	t.Parallel()

	ws := newTestWorldState(defaultPreState)

	ws.MarkAddressWarm(addr1)
	ws.MarkStorageKeyWarm(addr1, hash1)
	ws.SetStorage(addr1, hash1, hash2)

	// the original value is the one before the transaction
	assert.Equal(t, hash1, ws.OriginalStorage(addr1, hash1))

	ws.BeginTransaction()

	assert.False(t, ws.IsAddressWarm(addr1))
	assert.False(t, ws.IsStorageKeyWarm(addr1, hash1))
	assert.Equal(t, hash2, ws.OriginalStorage(addr1, hash1))
	assert.Equal(t, hash2, ws.Storage(addr1, hash1))

	// accounts survive the warmth cleanup
	ws.SetStorage(addr1, hash1, hash0)
	assert.Equal(t, hash2, ws.OriginalStorage(addr1, hash1))
	assert.Equal(t, hash0, ws.Storage(addr1, hash1))
}

func TestWorldState_TransferBalance(t *testing.T) {
	t.Parallel()

	addr2 := types.StringToAddress("2")

	ws := newTestWorldState(PreStates{
		addr1: {Balance: 10},
	})

	require.NoError(t, ws.TransferBalance(addr1, addr2, big.NewInt(0)))
	assert.True(t, ws.AccountExists(addr2))

	require.NoError(t, ws.TransferBalance(addr1, addr2, big.NewInt(4)))
	assert.Equal(t, int64(6), ws.Balance(addr1).Int64())
	assert.Equal(t, int64(4), ws.Balance(addr2).Int64())

	// nothing moves when the sender is short
	err := ws.TransferBalance(addr1, addr2, big.NewInt(7))
	require.ErrorIs(t, err, ErrNotEnoughFunds)
	assert.Equal(t, int64(6), ws.Balance(addr1).Int64())
	assert.Equal(t, int64(4), ws.Balance(addr2).Int64())
}

func TestWorldState_SubBalanceUnderflow(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name    string
		balance uint64
		amount  int64
		left    int64
		err     bool
	}{
		{"partial", 5, 3, 2, false},
		{"whole balance", 3, 3, 0, false},
		{"more than the balance", 3, 5, 3, true},
		{"missing account", 0, 1, 0, true},
	}

	for _, c := range cases {
		c := c

		t.Run(c.name, func(t *testing.T) {
			t.Parallel()

			pre := PreStates{}
			if c.balance > 0 {
				pre[addr1] = &PreState{Balance: c.balance}
			}

			ws := newTestWorldState(pre)

			err := ws.SubBalance(addr1, big.NewInt(c.amount))
			if c.err {
				var reqErr *RequirementError

				require.ErrorAs(t, err, &reqErr)
				assert.ErrorIs(t, err, ErrNotEnoughFunds)
				assert.Equal(t, c.amount, reqErr.Required.Int64())
				assert.Equal(t, int64(c.balance), reqErr.Got.Int64())
			} else {
				require.NoError(t, err)
			}

			// the committed balance is never negative
			ws = commit(t, ws, false)
			assert.Equal(t, c.left, ws.Balance(addr1).Int64())
		})
	}
}

func TestWorldState_AccountStartNonce(t *testing.T) {
	t.Parallel()

	ws := NewWorldState(newMockSnapshot(), 5)

	assert.Equal(t, uint64(5), ws.Nonce(addr1))

	ws.IncrementNonce(addr1)
	assert.Equal(t, uint64(6), ws.Nonce(addr1))
}

func TestWorldState_Emptiness(t *testing.T) {
	t.Parallel()

	ws := newTestWorldState(PreStates{
		addr1: {},
	})

	assert.True(t, ws.AccountExists(addr1))
	assert.True(t, ws.Empty(addr1))
	assert.False(t, ws.AccountNonemptyAndExisting(addr1))

	ws.SetNonce(addr1, 1)
	assert.True(t, ws.AccountNonemptyAndExisting(addr1))

	missing := types.StringToAddress("3")
	assert.True(t, ws.Empty(missing))
	assert.False(t, ws.AccountExists(missing))
}

func TestWorldState_CommitReadError(t *testing.T) {
	t.Parallel()

	snap := newMockSnapshot()
	snap.err = errors.New("disk failure")

	ws := NewWorldState(snap, 0)
	assert.False(t, ws.AccountExists(addr1))

	_, _, err := ws.Commit(true)
	assert.ErrorIs(t, err, snap.err)
}

// observe captures everything a rollback has to restore
func observe(ws *WorldState, addrs []types.Address, keys []types.Hash) map[string]interface{} {
	res := map[string]interface{}{}

	for _, addr := range addrs {
		a := addr.String()

		res[a+"/exists"] = ws.AccountExists(addr)
		res[a+"/balance"] = ws.Balance(addr).String()
		res[a+"/nonce"] = ws.Nonce(addr)
		res[a+"/code"] = ws.CodeHash(addr)
		res[a+"/warm"] = ws.IsAddressWarm(addr)

		for _, key := range keys {
			k := a + "/" + key.String()

			res[k] = ws.Storage(addr, key)
			res[k+"/warm"] = ws.IsStorageKeyWarm(addr, key)
		}
	}

	return res
}

func TestWorldState_RollbackRestoresState(t *testing.T) {
	t.Parallel()

	addrs := []types.Address{
		types.StringToAddress("1"),
		types.StringToAddress("2"),
		types.StringToAddress("3"),
	}
	keys := []types.Hash{hash1, hash2}

	rapid.Check(t, func(t *rapid.T) {
		ws := newTestWorldState(PreStates{
			addrs[0]: {Balance: 100, State: map[types.Hash]types.Hash{hash1: hash2}},
			addrs[1]: {Nonce: 3},
		})

		addrGen := rapid.SampledFrom(addrs)
		keyGen := rapid.SampledFrom(keys)

		mutate := func(t *rapid.T) {
			addr := addrGen.Draw(t, "addr")

			switch rapid.IntRange(0, 7).Draw(t, "op") {
			case 0:
				ws.AddBalance(addr, big.NewInt(rapid.Int64Range(0, 50).Draw(t, "amount")))
			case 1:
				ws.IncrementNonce(addr)
			case 2:
				ws.SetStorage(addr, keyGen.Draw(t, "key"), types.BytesToHash([]byte{rapid.Byte().Draw(t, "value")}))
			case 3:
				ws.SetCode(addr, []byte{rapid.Byte().Draw(t, "code")}, 0)
			case 4:
				ws.Kill(addr)
			case 5:
				ws.MarkAddressWarm(addr)
			case 6:
				ws.MarkStorageKeyWarm(addr, keyGen.Draw(t, "key"))
			case 7:
				ws.ClearStorage(addr)
			}
		}

		for i := rapid.IntRange(0, 5).Draw(t, "before"); i > 0; i-- {
			mutate(t)
		}

		expected := observe(ws, addrs, keys)
		sp := ws.Savepoint()

		for i := rapid.IntRange(1, 20).Draw(t, "after"); i > 0; i-- {
			mutate(t)
		}

		ws.RollbackTo(sp)

		require.Equal(t, expected, observe(ws, addrs, keys))
	})
}
