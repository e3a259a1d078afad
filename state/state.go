package state

import (
	"fmt"
	"math/big"

	iradix "github.com/hashicorp/go-immutable-radix"
	"github.com/umbracle/fastrlp"

	"github.com/rei-network/executive/types"
)

// State is the persistent world state a block is executed against
type State interface {
	NewSnapshotAt(types.Hash) (Snapshot, error)
	NewSnapshot() Snapshot
	GetCode(hash types.Hash) ([]byte, bool)
}

type readSnapshot interface {
	GetStorage(addr types.Address, root types.Hash, key types.Hash) types.Hash
	GetAccount(addr types.Address) (*Account, error)
	GetCode(hash types.Hash) ([]byte, bool)
}

// Snapshot is a read only view of the state at a root that can commit a
// set of changed objects into a new snapshot
type Snapshot interface {
	readSnapshot

	Commit(objs []*Object) (Snapshot, []byte, error)
}

// Account is the account reference in the state
type Account struct {
	Nonce       uint64
	Balance     *big.Int
	Root        types.Hash
	CodeHash    types.Hash
	CodeVersion uint64
	StakeInfo   *StakeInfo
}

var accountArenaPool fastrlp.ArenaPool

var accountParserPool fastrlp.ParserPool

// MarshalWith encodes the account. Accounts without a code version or stake
// info keep the four field layout.
func (a *Account) MarshalWith(ar *fastrlp.Arena) *fastrlp.Value {
	v := ar.NewArray()
	v.Set(ar.NewUint(a.Nonce))
	v.Set(ar.NewBigInt(a.Balance))
	v.Set(ar.NewCopyBytes(a.Root.Bytes()))
	v.Set(ar.NewCopyBytes(a.CodeHash.Bytes()))

	if a.CodeVersion == 0 && a.StakeInfo == nil {
		return v
	}

	v.Set(ar.NewUint(a.CodeVersion))

	if a.StakeInfo == nil {
		v.Set(ar.NewNullArray())
	} else {
		v.Set(a.StakeInfo.MarshalWith(ar))
	}

	return v
}

// MarshalRLP returns the encoded account
func (a *Account) MarshalRLP() []byte {
	ar := accountArenaPool.Get()
	defer accountArenaPool.Put(ar)

	return a.MarshalWith(ar).MarshalTo(nil)
}

// UnmarshalRlp decodes an account
func (a *Account) UnmarshalRlp(b []byte) error {
	p := accountParserPool.Get()
	defer accountParserPool.Put(p)

	v, err := p.Parse(b)
	if err != nil {
		return err
	}

	elems, err := v.GetElems()
	if err != nil {
		return err
	}

	if len(elems) != 4 && len(elems) != 6 {
		return fmt.Errorf("incorrect number of elements to decode account, expected 4 or 6 but found %d", len(elems))
	}

	// nonce
	if a.Nonce, err = elems[0].GetUint64(); err != nil {
		return err
	}

	// balance
	if a.Balance == nil {
		a.Balance = new(big.Int)
	}

	if err = elems[1].GetBigInt(a.Balance); err != nil {
		return err
	}

	// root
	if err = elems[2].GetHash(a.Root[:]); err != nil {
		return err
	}

	// codeHash
	if err = elems[3].GetHash(a.CodeHash[:]); err != nil {
		return err
	}

	a.CodeVersion = 0
	a.StakeInfo = nil

	if len(elems) == 4 {
		return nil
	}

	if a.CodeVersion, err = elems[4].GetUint64(); err != nil {
		return err
	}

	if t := elems[5].Type(); t == fastrlp.TypeArrayNull || (t == fastrlp.TypeArray && elems[5].Elems() == 0) {
		return nil
	}

	a.StakeInfo = new(StakeInfo)

	return a.StakeInfo.unmarshalRLPFrom(elems[5])
}

func (a *Account) String() string {
	return fmt.Sprintf("%d %s", a.Nonce, a.Balance.String())
}

func (a *Account) Copy() *Account {
	aa := new(Account)

	aa.Balance = new(big.Int).Set(a.Balance)
	aa.Nonce = a.Nonce
	aa.CodeHash = a.CodeHash
	aa.Root = a.Root
	aa.CodeVersion = a.CodeVersion

	if a.StakeInfo != nil {
		aa.StakeInfo = a.StakeInfo.Copy()
	}

	return aa
}

// StateObject is the internal representation of the account
type StateObject struct {
	Account   *Account
	Code      []byte
	Deleted   bool
	DirtyCode bool
	Txn       *iradix.Txn
}

func (s *StateObject) Empty() bool {
	return s.Account.Nonce == 0 && s.Account.Balance.Sign() == 0 && s.Account.CodeHash == types.EmptyCodeHash
}

// Copy makes a copy of the state object
func (s *StateObject) Copy() *StateObject {
	ss := new(StateObject)

	// copy account
	ss.Account = s.Account.Copy()

	ss.Deleted = s.Deleted
	ss.DirtyCode = s.DirtyCode
	ss.Code = s.Code

	if s.Txn != nil {
		ss.Txn = s.Txn.CommitOnly().Txn()
	}

	return ss
}

// Object is the serialization of the radix object (can be merged to StateObject?).
type Object struct {
	Address     types.Address
	CodeHash    types.Hash
	CodeVersion uint64
	Balance     *big.Int
	Root        types.Hash
	Nonce       uint64
	StakeInfo   *StakeInfo
	Deleted     bool

	DirtyCode bool
	Code      []byte

	Storage []*StorageObject
}

// Account returns the account the object is committed as
func (o *Object) Account() *Account {
	return &Account{
		Nonce:       o.Nonce,
		Balance:     o.Balance,
		Root:        o.Root,
		CodeHash:    o.CodeHash,
		CodeVersion: o.CodeVersion,
		StakeInfo:   o.StakeInfo,
	}
}

// StorageObject is an entry in the storage
type StorageObject struct {
	Deleted bool
	Key     []byte
	Val     []byte
}
