package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/hashicorp/go-hclog"
	"github.com/sethvargo/go-retry"

	"github.com/rei-network/executive/types"
)

var (
	// codePrefix is the key prefix of contract code
	codePrefix = []byte("code")

	ErrUnknownBackend = errors.New("unknown storage backend")
)

// Backend names a key value store implementation
type Backend string

const (
	Memory  Backend = "memory"
	LevelDB Backend = "leveldb"
	BoltDB  Backend = "boltdb"
)

const (
	openRetries       = 5
	openRetryInterval = 200 * time.Millisecond
)

// Batch is batch write interface
type Batch interface {
	// Put puts key and value into batch. It can not return error because actual writing is done with Write method
	Put(k, v []byte)
	// Write writes all the key values pair previously put with Put method to the database
	Write() error
}

// Storage is the key value store backing the state tries and contract code
type Storage interface {
	Put(k, v []byte) error
	Get(k []byte) ([]byte, bool, error)
	Batch() Batch
	SetCode(hash types.Hash, code []byte) error
	GetCode(hash types.Hash) ([]byte, bool)

	Close() error
}

// GetCodeKey returns the key contract code is stored under
func GetCodeKey(hash types.Hash) []byte {
	return append(append([]byte{}, codePrefix...), hash.Bytes()...)
}

// Open opens the storage of the given backend at path. The file based
// backends are retried for a while since another process may still hold
// the database lock.
func Open(ctx context.Context, backend Backend, path string, logger hclog.Logger) (Storage, error) {
	logger = logger.Named("storage")

	var opener func(string, hclog.Logger) (Storage, error)

	switch backend {
	case Memory, "":
		return NewMemoryStorage(), nil
	case LevelDB:
		opener = NewLevelDBStorage
	case BoltDB:
		opener = NewBoltDBStorage
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownBackend, backend)
	}

	var storage Storage

	b := retry.WithMaxRetries(openRetries, retry.NewConstant(openRetryInterval))

	err := retry.Do(ctx, b, func(ctx context.Context) error {
		s, err := opener(path, logger)
		if err != nil {
			logger.Debug("failed to open storage", "backend", backend, "path", path, "err", err)

			return retry.RetryableError(err)
		}

		storage = s

		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open %s storage at %s: %w", backend, path, err)
	}

	logger.Info("storage opened", "backend", backend, "path", path)

	return storage, nil
}
