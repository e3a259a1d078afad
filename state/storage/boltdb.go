package storage

import (
	"time"

	"github.com/hashicorp/go-hclog"
	"github.com/hashicorp/go-multierror"
	bolt "go.etcd.io/bbolt"

	"github.com/rei-network/executive/types"
)

var bucket = []byte("state")

// BoltKVStorage is a k/v storage on disk using boltdb
type BoltKVStorage struct {
	db     *bolt.DB
	logger hclog.Logger
}

// BoltKVBatch buffers writes and applies them in a single bolt transaction
type BoltKVBatch struct {
	db   *bolt.DB
	keys [][]byte
	vals [][]byte
}

func (b *BoltKVBatch) Put(k, v []byte) {
	b.keys = append(b.keys, append([]byte{}, k...))
	b.vals = append(b.vals, append([]byte{}, v...))
}

func (b *BoltKVBatch) Write() error {
	if len(b.keys) == 0 {
		return nil
	}

	err := b.db.Update(func(tx *bolt.Tx) error {
		bkt, err := tx.CreateBucketIfNotExists(bucket)
		if err != nil {
			return err
		}

		var result error

		for i, k := range b.keys {
			if err := bkt.Put(k, b.vals[i]); err != nil {
				result = multierror.Append(result, err)
			}
		}

		return result
	})

	b.keys, b.vals = nil, nil

	return err
}

func (kv *BoltKVStorage) SetCode(hash types.Hash, code []byte) error {
	return kv.Put(GetCodeKey(hash), code)
}

func (kv *BoltKVStorage) GetCode(hash types.Hash) ([]byte, bool) {
	res, ok, err := kv.Get(GetCodeKey(hash))
	if err != nil {
		kv.logger.Error("failed to read code", "hash", hash, "err", err)

		return nil, false
	}

	return res, ok
}

func (kv *BoltKVStorage) Batch() Batch {
	return &BoltKVBatch{db: kv.db}
}

func (kv *BoltKVStorage) Put(k, v []byte) error {
	return kv.db.Update(func(tx *bolt.Tx) error {
		b, err := tx.CreateBucketIfNotExists(bucket)
		if err != nil {
			return err
		}

		return b.Put(k, v)
	})
}

func (kv *BoltKVStorage) Get(k []byte) ([]byte, bool, error) {
	var (
		data  []byte
		found bool
	)

	err := kv.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucket)
		if b == nil {
			return nil
		}

		if v := b.Get(k); v != nil {
			// v is only valid for the lifetime of the tx
			data = make([]byte, len(v))
			copy(data, v)
			found = true
		}

		return nil
	})

	return data, found, err
}

func (kv *BoltKVStorage) Close() error {
	return kv.db.Close()
}

// NewBoltDBStorage opens a bolt storage file at path
func NewBoltDBStorage(path string, logger hclog.Logger) (Storage, error) {
	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, err
	}

	return &BoltKVStorage{db: db, logger: logger.Named("boltdb")}, nil
}
