package state

import (
	"fmt"
	"math/big"

	iradix "github.com/hashicorp/go-immutable-radix"

	"github.com/rei-network/executive/crypto"
	"github.com/rei-network/executive/types"
)

// key prefixes of the entries kept in the radix tree. Warmth lives in the same
// tree as the accounts so a rollback reverts it too.
const (
	accountPrefix byte = iota
	warmAddressPrefix
	warmSlotPrefix
)

func accountKey(addr types.Address) []byte {
	return append([]byte{accountPrefix}, addr.Bytes()...)
}

func warmAddressKey(addr types.Address) []byte {
	return append([]byte{warmAddressPrefix}, addr.Bytes()...)
}

func warmSlotKey(addr types.Address, key types.Hash) []byte {
	k := make([]byte, 0, 1+types.AddressLength+types.HashLength)
	k = append(k, warmSlotPrefix)
	k = append(k, addr.Bytes()...)

	return append(k, key.Bytes()...)
}

// Savepoint identifies a point of the world state that can be rolled back to
type Savepoint int

// WorldState is the journaled view of the state a block is executed on. Every
// mutation goes to a radix transaction on top of a committed snapshot; a
// savepoint is the committed tree at that point. It is not safe for concurrent
// use.
type WorldState struct {
	snapshot  Snapshot
	snapshots []*iradix.Tree
	txn       *iradix.Txn

	// the tree at the start of the current transaction
	original *iradix.Tree

	// touches that survive a rollback
	unrevertableTouched map[types.Address]struct{}

	accountStartNonce uint64

	// first error met while reading the snapshot
	readErr error
}

// NewWorldState creates a world state on top of the snapshot
func NewWorldState(snapshot Snapshot, accountStartNonce uint64) *WorldState {
	return &WorldState{
		snapshot:            snapshot,
		snapshots:           []*iradix.Tree{},
		txn:                 iradix.New().Txn(),
		original:            iradix.New(),
		unrevertableTouched: map[types.Address]struct{}{},
		accountStartNonce:   accountStartNonce,
	}
}

// AccountStartNonce is the nonce new accounts start with
func (ws *WorldState) AccountStartNonce() uint64 {
	return ws.accountStartNonce
}

// BeginTransaction marks the start of a transaction: storage read by
// OriginalStorage is taken from here and all warmth is dropped
func (ws *WorldState) BeginTransaction() {
	ws.txn.DeletePrefix([]byte{warmAddressPrefix})
	ws.txn.DeletePrefix([]byte{warmSlotPrefix})

	ws.original = ws.txn.CommitOnly()
	ws.snapshots = ws.snapshots[:0]
}

// Savepoint records the current state
func (ws *WorldState) Savepoint() Savepoint {
	t := ws.txn.CommitOnly()

	id := len(ws.snapshots)
	ws.snapshots = append(ws.snapshots, t)

	return Savepoint(id)
}

// RollbackTo undoes every change made after the savepoint. Savepoints taken
// after it are discarded, the savepoint itself stays valid.
func (ws *WorldState) RollbackTo(id Savepoint) {
	if int(id) < 0 || int(id) >= len(ws.snapshots) {
		panic(fmt.Sprintf("invalid savepoint %d", id))
	}

	tree := ws.snapshots[id]
	ws.snapshots = ws.snapshots[:id+1]

	ws.txn = tree.Txn()
}

func (ws *WorldState) getStateObject(addr types.Address) (*StateObject, bool) {
	if val, ok := ws.txn.Get(accountKey(addr)); ok {
		obj, _ := val.(*StateObject)
		if obj.Deleted {
			return nil, false
		}

		return obj.Copy(), true
	}

	return ws.readStateObject(addr)
}

func (ws *WorldState) readStateObject(addr types.Address) (*StateObject, bool) {
	account, err := ws.snapshot.GetAccount(addr)
	if err != nil {
		if ws.readErr == nil {
			ws.readErr = fmt.Errorf("failed to read account %s: %w", addr, err)
		}

		return nil, false
	}

	if account == nil {
		return nil, false
	}

	return &StateObject{Account: account.Copy()}, true
}

func (ws *WorldState) newStateObject() *StateObject {
	return &StateObject{
		Account: &Account{
			Nonce:    ws.accountStartNonce,
			Balance:  big.NewInt(0),
			Root:     types.EmptyRootHash,
			CodeHash: types.EmptyCodeHash,
		},
	}
}

func (ws *WorldState) upsertAccount(addr types.Address, create bool, f func(object *StateObject)) {
	object, exists := ws.getStateObject(addr)
	if !exists {
		if !create {
			return
		}

		object = ws.newStateObject()
	}

	if f != nil {
		f(object)
	}

	ws.txn.Insert(accountKey(addr), object)
}

// AccountExists reports whether the account is in the state
func (ws *WorldState) AccountExists(addr types.Address) bool {
	_, exists := ws.getStateObject(addr)

	return exists
}

// AccountNonemptyAndExisting reports whether the account exists and is not empty
func (ws *WorldState) AccountNonemptyAndExisting(addr types.Address) bool {
	obj, exists := ws.getStateObject(addr)

	return exists && !obj.Empty()
}

// Empty reports whether the account is missing or empty
func (ws *WorldState) Empty(addr types.Address) bool {
	obj, exists := ws.getStateObject(addr)
	if !exists {
		return true
	}

	return obj.Empty()
}

// Touch creates the account when it is missing
func (ws *WorldState) Touch(addr types.Address) {
	ws.upsertAccount(addr, true, nil)
}

// UnrevertableTouch touches the account and remembers it even if the touch is
// rolled back, so it is considered when empty accounts are removed
func (ws *WorldState) UnrevertableTouch(addr types.Address) {
	ws.Touch(addr)
	ws.unrevertableTouched[addr] = struct{}{}
}

// Kill removes the account
func (ws *WorldState) Kill(addr types.Address) {
	ws.upsertAccount(addr, false, func(object *StateObject) {
		object.Deleted = true
	})
}

// Balance

func (ws *WorldState) Balance(addr types.Address) *big.Int {
	object, exists := ws.getStateObject(addr)
	if !exists {
		return big.NewInt(0)
	}

	return new(big.Int).Set(object.Account.Balance)
}

func (ws *WorldState) AddBalance(addr types.Address, amount *big.Int) {
	ws.upsertAccount(addr, true, func(object *StateObject) {
		object.Account.Balance.Add(object.Account.Balance, amount)
	})
}

// SetBalance overwrites the balance of the account
func (ws *WorldState) SetBalance(addr types.Address, balance *big.Int) {
	ws.upsertAccount(addr, true, func(object *StateObject) {
		object.Account.Balance = new(big.Int).Set(balance)
	})
}

// SubBalance debits the account. The balance is left untouched and
// ErrNotEnoughFunds is returned when it cannot cover the amount.
func (ws *WorldState) SubBalance(addr types.Address, amount *big.Int) error {
	if balance := ws.Balance(addr); balance.Cmp(amount) < 0 {
		return &RequirementError{
			Err:      ErrNotEnoughFunds,
			Required: new(big.Int).Set(amount),
			Got:      balance,
		}
	}

	ws.upsertAccount(addr, true, func(object *StateObject) {
		object.Account.Balance.Sub(object.Account.Balance, amount)
	})

	return nil
}

// TransferBalance moves amount between the accounts, creating the recipient.
// Nothing moves when the sender cannot cover the amount.
func (ws *WorldState) TransferBalance(from, to types.Address, amount *big.Int) error {
	if err := ws.SubBalance(from, amount); err != nil {
		return err
	}

	ws.AddBalance(to, amount)

	return nil
}

// Nonce

func (ws *WorldState) Nonce(addr types.Address) uint64 {
	object, exists := ws.getStateObject(addr)
	if !exists {
		return ws.accountStartNonce
	}

	return object.Account.Nonce
}

func (ws *WorldState) IncrementNonce(addr types.Address) {
	ws.upsertAccount(addr, true, func(object *StateObject) {
		object.Account.Nonce++
	})
}

func (ws *WorldState) SetNonce(addr types.Address, nonce uint64) {
	ws.upsertAccount(addr, true, func(object *StateObject) {
		object.Account.Nonce = nonce
	})
}

// Code

func (ws *WorldState) Code(addr types.Address) []byte {
	object, exists := ws.getStateObject(addr)
	if !exists {
		return nil
	}

	if object.DirtyCode {
		return object.Code
	}

	if object.Account.CodeHash == types.EmptyCodeHash {
		return nil
	}

	code, _ := ws.snapshot.GetCode(object.Account.CodeHash)

	return code
}

func (ws *WorldState) CodeHash(addr types.Address) types.Hash {
	object, exists := ws.getStateObject(addr)
	if !exists {
		return types.ZeroHash
	}

	return object.Account.CodeHash
}

func (ws *WorldState) CodeVersion(addr types.Address) uint64 {
	object, exists := ws.getStateObject(addr)
	if !exists {
		return 0
	}

	return object.Account.CodeVersion
}

func (ws *WorldState) HasCode(addr types.Address) bool {
	object, exists := ws.getStateObject(addr)

	return exists && object.Account.CodeHash != types.EmptyCodeHash
}

// SetCode replaces the code of the account and its version
func (ws *WorldState) SetCode(addr types.Address, code []byte, version uint64) {
	ws.upsertAccount(addr, true, func(object *StateObject) {
		object.Code = code
		object.DirtyCode = true
		object.Account.CodeHash = types.BytesToHash(crypto.Keccak256(code))
		object.Account.CodeVersion = version
	})
}

// Storage

func (ws *WorldState) Storage(addr types.Address, key types.Hash) types.Hash {
	object, exists := ws.getStateObject(addr)
	if !exists {
		return types.ZeroHash
	}

	return ws.storageOf(addr, object, key)
}

// OriginalStorage is the value the slot had when the transaction started
func (ws *WorldState) OriginalStorage(addr types.Address, key types.Hash) types.Hash {
	val, ok := ws.original.Get(accountKey(addr))
	if !ok {
		object, exists := ws.readStateObject(addr)
		if !exists {
			return types.ZeroHash
		}

		return ws.storageOf(addr, object, key)
	}

	object, _ := val.(*StateObject)
	if object.Deleted {
		return types.ZeroHash
	}

	return ws.storageOf(addr, object, key)
}

func (ws *WorldState) storageOf(addr types.Address, object *StateObject, key types.Hash) types.Hash {
	if object.Txn != nil {
		if val, ok := object.Txn.Get(key.Bytes()); ok {
			if val == nil {
				return types.ZeroHash
			}

			return types.BytesToHash(val.([]byte))
		}
	}

	if object.Account.Root == types.EmptyRootHash {
		return types.ZeroHash
	}

	return ws.snapshot.GetStorage(addr, object.Account.Root, key)
}

// SetStorage writes the slot, a zero value deletes it
func (ws *WorldState) SetStorage(addr types.Address, key, value types.Hash) {
	ws.upsertAccount(addr, true, func(object *StateObject) {
		if object.Txn == nil {
			object.Txn = iradix.New().Txn()
		}

		if value == types.ZeroHash {
			object.Txn.Insert(key.Bytes(), nil)
		} else {
			object.Txn.Insert(key.Bytes(), value.Bytes())
		}
	})
}

// ClearStorage drops every slot of the account
func (ws *WorldState) ClearStorage(addr types.Address) {
	ws.upsertAccount(addr, false, func(object *StateObject) {
		object.Account.Root = types.EmptyRootHash
		object.Txn = iradix.New().Txn()
	})
}

// StorageRoot is the committed storage root of the account
func (ws *WorldState) StorageRoot(addr types.Address) types.Hash {
	object, exists := ws.getStateObject(addr)
	if !exists {
		return types.EmptyRootHash
	}

	return object.Account.Root
}

// Warmth

func (ws *WorldState) MarkAddressWarm(addr types.Address) {
	ws.txn.Insert(warmAddressKey(addr), struct{}{})
}

func (ws *WorldState) IsAddressWarm(addr types.Address) bool {
	_, ok := ws.txn.Get(warmAddressKey(addr))

	return ok
}

func (ws *WorldState) MarkStorageKeyWarm(addr types.Address, key types.Hash) {
	ws.txn.Insert(warmSlotKey(addr, key), struct{}{})
}

func (ws *WorldState) IsStorageKeyWarm(addr types.Address, key types.Hash) bool {
	_, ok := ws.txn.Get(warmSlotKey(addr, key))

	return ok
}

// Stake info

// StakeInfo returns a copy of the stake info of the account, nil when unset
func (ws *WorldState) StakeInfo(addr types.Address) *StakeInfo {
	object, exists := ws.getStateObject(addr)
	if !exists || object.Account.StakeInfo == nil {
		return nil
	}

	return object.Account.StakeInfo.Copy()
}

func (ws *WorldState) SetStakeInfo(addr types.Address, info *StakeInfo) {
	ws.upsertAccount(addr, true, func(object *StateObject) {
		if info == nil {
			object.Account.StakeInfo = nil
		} else {
			object.Account.StakeInfo = info.Copy()
		}
	})
}

// Commit writes the changed accounts into the snapshot and returns the new
// snapshot and root. With removeEmpty set touched empty accounts are
// deleted. The world state keeps working on top of the new snapshot.
func (ws *WorldState) Commit(removeEmpty bool) (Snapshot, types.Hash, error) {
	if ws.readErr != nil {
		return nil, types.ZeroHash, ws.readErr
	}

	if removeEmpty {
		for addr := range ws.unrevertableTouched {
			if obj, exists := ws.getStateObject(addr); exists && obj.Empty() {
				ws.Kill(addr)
			}
		}
	}

	objs := []*Object{}

	ws.txn.Root().WalkPrefix([]byte{accountPrefix}, func(k []byte, v interface{}) bool {
		a, _ := v.(*StateObject)

		obj := &Object{
			Address:     types.BytesToAddress(k[1:]),
			Deleted:     a.Deleted || (removeEmpty && a.Empty()),
			Nonce:       a.Account.Nonce,
			Balance:     a.Account.Balance,
			Root:        a.Account.Root,
			CodeHash:    a.Account.CodeHash,
			CodeVersion: a.Account.CodeVersion,
			StakeInfo:   a.Account.StakeInfo,
			DirtyCode:   a.DirtyCode,
			Code:        a.Code,
		}

		if !obj.Deleted && a.Txn != nil {
			a.Txn.Root().Walk(func(k []byte, v interface{}) bool {
				store := &StorageObject{Key: k}
				if v == nil {
					store.Deleted = true
				} else {
					store.Val = v.([]byte)
				}

				obj.Storage = append(obj.Storage, store)

				return false
			})
		}

		objs = append(objs, obj)

		return false
	})

	snapshot, root, err := ws.snapshot.Commit(objs)
	if err != nil {
		return nil, types.ZeroHash, fmt.Errorf("failed to commit state: %w", err)
	}

	ws.snapshot = snapshot
	ws.txn = iradix.New().Txn()
	ws.original = iradix.New()
	ws.snapshots = ws.snapshots[:0]
	ws.unrevertableTouched = map[types.Address]struct{}{}

	return snapshot, types.BytesToHash(root), nil
}
