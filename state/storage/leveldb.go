package storage

import (
	"errors"

	"github.com/hashicorp/go-hclog"
	"github.com/syndtr/goleveldb/leveldb"

	"github.com/rei-network/executive/types"
)

// KVStorage is a k/v storage on disk using leveldb
type KVStorage struct {
	db     *leveldb.DB
	logger hclog.Logger
}

// KVBatch is a batch write for leveldb
type KVBatch struct {
	db    *leveldb.DB
	batch *leveldb.Batch
}

func (b *KVBatch) Put(k, v []byte) {
	b.batch.Put(k, v)
}

func (b *KVBatch) Write() error {
	return b.db.Write(b.batch, nil)
}

func (kv *KVStorage) SetCode(hash types.Hash, code []byte) error {
	return kv.Put(GetCodeKey(hash), code)
}

func (kv *KVStorage) GetCode(hash types.Hash) ([]byte, bool) {
	res, ok, err := kv.Get(GetCodeKey(hash))
	if err != nil {
		kv.logger.Error("failed to read code", "hash", hash, "err", err)

		return nil, false
	}

	return res, ok
}

func (kv *KVStorage) Batch() Batch {
	return &KVBatch{db: kv.db, batch: &leveldb.Batch{}}
}

func (kv *KVStorage) Put(k, v []byte) error {
	return kv.db.Put(k, v, nil)
}

func (kv *KVStorage) Get(k []byte) ([]byte, bool, error) {
	data, err := kv.db.Get(k, nil)
	if err != nil {
		if errors.Is(err, leveldb.ErrNotFound) {
			return nil, false, nil
		}

		return nil, false, err
	}

	return data, true, nil
}

func (kv *KVStorage) Close() error {
	return kv.db.Close()
}

// NewLevelDBStorage opens a leveldb storage at path
func NewLevelDBStorage(path string, logger hclog.Logger) (Storage, error) {
	db, err := leveldb.OpenFile(path, nil)
	if err != nil {
		return nil, err
	}

	return &KVStorage{db: db, logger: logger.Named("leveldb")}, nil
}
