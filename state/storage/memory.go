package storage

import (
	"sync"

	"github.com/rei-network/executive/types"
)

type memStorage struct {
	l  *sync.Mutex
	db map[string][]byte
}

type memBatch struct {
	storage *memStorage
	keys    []string
	vals    [][]byte
}

// NewMemoryStorage creates an inmemory storage
func NewMemoryStorage() Storage {
	return &memStorage{db: map[string][]byte{}, l: new(sync.Mutex)}
}

func (m *memStorage) Put(p []byte, v []byte) error {
	m.l.Lock()
	defer m.l.Unlock()

	buf := make([]byte, len(v))
	copy(buf, v)
	m.db[string(p)] = buf

	return nil
}

func (m *memStorage) Get(p []byte) ([]byte, bool, error) {
	m.l.Lock()
	defer m.l.Unlock()

	v, ok := m.db[string(p)]
	if !ok {
		return nil, false, nil
	}

	return v, true, nil
}

func (m *memStorage) SetCode(hash types.Hash, code []byte) error {
	return m.Put(GetCodeKey(hash), code)
}

func (m *memStorage) GetCode(hash types.Hash) ([]byte, bool) {
	res, ok, _ := m.Get(GetCodeKey(hash))

	return res, ok
}

func (m *memStorage) Batch() Batch {
	return &memBatch{storage: m}
}

func (m *memStorage) Close() error {
	return nil
}

func (b *memBatch) Put(p, v []byte) {
	buf := make([]byte, len(v))
	copy(buf, v)

	b.keys = append(b.keys, string(p))
	b.vals = append(b.vals, buf)
}

func (b *memBatch) Write() error {
	b.storage.l.Lock()
	defer b.storage.l.Unlock()

	for i, k := range b.keys {
		b.storage.db[k] = b.vals[i]
	}

	b.keys, b.vals = nil, nil

	return nil
}
