package itrie

import (
	"fmt"

	lru "github.com/hashicorp/golang-lru"

	"github.com/rei-network/executive/state"
	"github.com/rei-network/executive/state/storage"
	"github.com/rei-network/executive/types"
)

const (
	trieCacheSize = 128
	codeCacheSize = 256
)

// State keeps the committed tries on top of a key value storage
type State struct {
	storage storage.Storage
	cache   *lru.Cache
	code    *lru.Cache
}

func NewState(storage storage.Storage) *State {
	cache, _ := lru.New(trieCacheSize)
	code, _ := lru.New(codeCacheSize)

	return &State{
		storage: storage,
		cache:   cache,
		code:    code,
	}
}

func (s *State) NewSnapshot() state.Snapshot {
	return &Snapshot{state: s, trie: NewTrie()}
}

func (s *State) NewSnapshotAt(root types.Hash) (state.Snapshot, error) {
	t, err := s.newTrieAt(root)
	if err != nil {
		return nil, err
	}

	return &Snapshot{state: s, trie: t}, nil
}

func (s *State) SetCode(hash types.Hash, code []byte) error {
	if err := s.storage.SetCode(hash, code); err != nil {
		return err
	}

	s.code.Add(hash, code)

	return nil
}

func (s *State) GetCode(hash types.Hash) ([]byte, bool) {
	if hash == types.EmptyCodeHash {
		return []byte{}, true
	}

	if code, ok := s.code.Get(hash); ok {
		if res, ok := code.([]byte); ok {
			return res, true
		}
	}

	code, ok := s.storage.GetCode(hash)
	if ok {
		s.code.Add(hash, code)
	}

	return code, ok
}

// newTrieAt returns the trie with the given root
func (s *State) newTrieAt(root types.Hash) (*Trie, error) {
	if root == types.EmptyRootHash {
		// empty state
		return NewTrie(), nil
	}

	tt, ok := s.cache.Get(root)
	if ok {
		t, ok := tt.(*Trie)
		if !ok {
			return nil, fmt.Errorf("invalid type assertion on root: %s", root)
		}

		return t, nil
	}

	n, ok, err := GetNode(root.Bytes(), s.storage)
	if err != nil {
		return nil, fmt.Errorf("failed to get storage root %s: %w", root, err)
	}

	if !ok {
		return nil, fmt.Errorf("state not found at hash %s", root)
	}

	return &Trie{root: n}, nil
}

func (s *State) AddState(root types.Hash, t *Trie) {
	s.cache.Add(root, t)
}
