package itrie

import (
	"bytes"
	"fmt"

	"github.com/umbracle/fastrlp"

	"github.com/rei-network/executive/state"
	"github.com/rei-network/executive/types"
)

var stateArenaPool fastrlp.ArenaPool

type Snapshot struct {
	state *State
	trie  *Trie
}

// GetStorage returns the value of key in the storage trie with the given root.
// Missing or unreadable entries read as zero.
func (s *Snapshot) GetStorage(addr types.Address, root types.Hash, rawkey types.Hash) types.Hash {
	trie, err := s.state.newTrieAt(root)
	if err != nil {
		return types.Hash{}
	}

	val, ok, err := trie.Get(hashit(rawkey.Bytes()), s.state.storage)
	if err != nil || !ok {
		return types.Hash{}
	}

	p := parserPool.Get()
	defer parserPool.Put(p)

	v, err := p.Parse(val)
	if err != nil {
		return types.Hash{}
	}

	res, err := v.GetBytes(nil)
	if err != nil {
		return types.Hash{}
	}

	return types.BytesToHash(res)
}

func (s *Snapshot) GetAccount(addr types.Address) (*state.Account, error) {
	data, ok, err := s.trie.Get(hashit(addr.Bytes()), s.state.storage)
	if err != nil {
		return nil, err
	}

	if !ok {
		return nil, nil
	}

	var account state.Account
	if err := account.UnmarshalRlp(data); err != nil {
		return nil, err
	}

	return &account, nil
}

func (s *Snapshot) GetCode(hash types.Hash) ([]byte, bool) {
	return s.state.GetCode(hash)
}

// Commit writes the objects into a new account trie and flushes the touched
// nodes and code to storage
func (s *Snapshot) Commit(objs []*state.Object) (state.Snapshot, []byte, error) {
	batch := s.state.storage.Batch()

	tt := s.trie.Txn(s.state.storage)
	tt.batch = batch

	arena := stateArenaPool.Get()
	defer stateArenaPool.Put(arena)

	for _, obj := range objs {
		if obj.Deleted {
			if err := tt.Delete(hashit(obj.Address.Bytes())); err != nil {
				return nil, nil, err
			}

			continue
		}

		account := obj.Account()

		if len(obj.Storage) != 0 {
			root, err := s.commitStorage(obj, batch, arena)
			if err != nil {
				return nil, nil, fmt.Errorf("failed to commit storage of %s: %w", obj.Address, err)
			}

			account.Root = root
		}

		if obj.DirtyCode {
			if err := s.state.SetCode(obj.CodeHash, obj.Code); err != nil {
				return nil, nil, err
			}
		}

		data := account.MarshalWith(arena).MarshalTo(nil)
		arena.Reset()

		if err := tt.Insert(hashit(obj.Address.Bytes()), data); err != nil {
			return nil, nil, err
		}
	}

	root, err := tt.Hash()
	if err != nil {
		return nil, nil, err
	}

	nTrie := tt.Commit()

	// Write all the entries to db
	if err := batch.Write(); err != nil {
		return nil, nil, err
	}

	s.state.AddState(types.BytesToHash(root), nTrie)

	return &Snapshot{trie: nTrie, state: s.state}, root, nil
}

func (s *Snapshot) commitStorage(obj *state.Object, batch Putter, arena *fastrlp.Arena) (types.Hash, error) {
	trie, err := s.state.newTrieAt(obj.Root)
	if err != nil {
		return types.Hash{}, err
	}

	localTxn := trie.Txn(s.state.storage)
	localTxn.batch = batch

	for _, entry := range obj.Storage {
		k := hashit(entry.Key)

		if entry.Deleted {
			err = localTxn.Delete(k)
		} else {
			vv := arena.NewBytes(bytes.TrimLeft(entry.Val, "\x00"))
			err = localTxn.Insert(k, vv.MarshalTo(nil))
		}

		if err != nil {
			return types.Hash{}, err
		}
	}

	root, err := localTxn.Hash()
	if err != nil {
		return types.Hash{}, err
	}

	accountStateRoot := types.BytesToHash(root)

	// Add this to the cache
	s.state.AddState(accountStateRoot, localTxn.Commit())

	return accountStateRoot, nil
}
