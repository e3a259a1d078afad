package types

import (
	"errors"
	"fmt"

	"github.com/umbracle/fastrlp"
)

var ErrInvalidAccessList = errors.New("invalid access list")

// AccessTuple is a single access list entry
type AccessTuple struct {
	Address     Address
	StorageKeys []Hash
}

// AccessList is the ordered list of addresses and storage keys a transaction
// declares it is going to touch. The total number of keys is tracked as the
// list is built so the gas surcharge is computed in constant time.
type AccessList struct {
	tuples []AccessTuple
	keys   int
}

// NewAccessList builds an access list from the given tuples, preserving order
func NewAccessList(tuples ...AccessTuple) *AccessList {
	al := &AccessList{}
	for _, tuple := range tuples {
		al.Add(tuple.Address, tuple.StorageKeys...)
	}

	return al
}

// Add appends an entry. Duplicates are kept and counted.
func (al *AccessList) Add(addr Address, keys ...Hash) {
	al.tuples = append(al.tuples, AccessTuple{
		Address:     addr,
		StorageKeys: append([]Hash{}, keys...),
	})
	al.keys += len(keys)
}

// Len returns the number of entries
func (al *AccessList) Len() int {
	if al == nil {
		return 0
	}

	return len(al.tuples)
}

// StorageKeys returns the total number of storage keys in the access list.
func (al *AccessList) StorageKeys() int {
	if al == nil {
		return 0
	}

	return al.keys
}

// Tuples returns a copy of the entries
func (al *AccessList) Tuples() []AccessTuple {
	if al == nil {
		return nil
	}

	return al.Copy().tuples
}

// BaseGas is the intrinsic surcharge of the access list
func (al *AccessList) BaseGas(addressCost, storageKeyCost uint64) uint64 {
	return addressCost*uint64(al.Len()) + storageKeyCost*uint64(al.StorageKeys())
}

// ForEach visits every entry in insertion order
func (al *AccessList) ForEach(visit func(addr Address, keys []Hash)) {
	if al == nil {
		return
	}

	for _, tuple := range al.tuples {
		visit(tuple.Address, tuple.StorageKeys)
	}
}

// Copy makes a deep copy of the access list.
func (al *AccessList) Copy() *AccessList {
	if al == nil {
		return nil
	}

	newAccessList := &AccessList{
		tuples: make([]AccessTuple, len(al.tuples)),
		keys:   al.keys,
	}

	for i, item := range al.tuples {
		newAccessList.tuples[i] = AccessTuple{
			Address:     item.Address,
			StorageKeys: append([]Hash{}, item.StorageKeys...),
		}
	}

	return newAccessList
}

func (al *AccessList) MarshalRLPWith(arena *fastrlp.Arena) *fastrlp.Value {
	accessListVV := arena.NewArray()

	al.ForEach(func(addr Address, keys []Hash) {
		accessTupleVV := arena.NewArray()
		accessTupleVV.Set(arena.NewCopyBytes(addr.Bytes()))

		storageKeysVV := arena.NewArray()
		for _, storageKey := range keys {
			storageKeysVV.Set(arena.NewCopyBytes(storageKey.Bytes()))
		}

		accessTupleVV.Set(storageKeysVV)
		accessListVV.Set(accessTupleVV)
	})

	return accessListVV
}

func (al *AccessList) UnmarshalRLP(input []byte) error {
	return UnmarshalRlp(al.UnmarshalRLPFrom, input)
}

func (al *AccessList) UnmarshalRLPFrom(_ *fastrlp.Parser, v *fastrlp.Value) error {
	if v.Type() != fastrlp.TypeArray && v.Type() != fastrlp.TypeArrayNull {
		return accessListError("access list RLP must be a list")
	}

	al.tuples, al.keys = nil, 0

	// an empty list parses as an array without elements
	accessListVV, _ := v.GetElems()

	for _, accessTupleVV := range accessListVV {
		accessTupleElems, err := accessTupleVV.GetElems()
		if err != nil || len(accessTupleElems) != 2 {
			return accessListError("access list element RLP must be a list")
		}

		addressBytes, err := accessTupleElems[0].Bytes()
		if err != nil || len(addressBytes) != AddressLength {
			return accessListError("address length must be 20")
		}

		storageKeysArrayVV := accessTupleElems[1]
		if storageKeysArrayVV.Type() != fastrlp.TypeArray {
			return accessListError("storage list RLP must be a list")
		}

		storageKeysElems, _ := storageKeysArrayVV.GetElems()
		keys := make([]Hash, len(storageKeysElems))

		for j, storageKeyVV := range storageKeysElems {
			storageKeyBytes, err := storageKeyVV.Bytes()
			if err != nil || len(storageKeyBytes) != HashLength {
				return accessListError("storage length must be 32")
			}

			keys[j] = BytesToHash(storageKeyBytes)
		}

		al.Add(BytesToAddress(addressBytes), keys...)
	}

	return nil
}

func accessListError(msg string) error {
	return fmt.Errorf("%w: %s", ErrInvalidAccessList, msg)
}
