package itrie

import (
	"errors"
	"fmt"
	"hash"
	"sync"

	"github.com/umbracle/fastrlp"
	"golang.org/x/crypto/sha3"
)

var arenaPool fastrlp.ArenaPool

var errInvalidHasher = errors.New("invalid hasher type assertion")

var hasherPool = sync.Pool{
	New: func() interface{} {
		impl, ok := sha3.NewLegacyKeccak256().(hashImpl)
		if !ok {
			return nil
		}

		return &hasher{
			hash: impl,
		}
	},
}

type hashImpl interface {
	hash.Hash
	Read([]byte) (int, error)
}

type hasher struct {
	arena []*fastrlp.Arena
	buf   []byte
	hash  hashImpl
	tmp   [32]byte
}

func (h *hasher) ReleaseArenas(idx int) {
	for i := idx; i < len(h.arena); i++ {
		arenaPool.Put(h.arena[i])
	}

	h.arena = h.arena[:idx]
}

func (h *hasher) AcquireArena() (*fastrlp.Arena, int) {
	v := arenaPool.Get()
	idx := len(h.arena)
	h.arena = append(h.arena, v)

	return v, idx
}

func (h *hasher) Hash(data []byte) ([]byte, error) {
	h.hash.Reset()
	h.hash.Write(data)

	n, err := h.hash.Read(h.tmp[:])
	if err != nil {
		return nil, err
	}

	if n != 32 {
		return nil, fmt.Errorf("incorrect hash length %d", n)
	}

	return h.tmp[:], nil
}

// Hash computes the root of the txn. Nodes of 32 bytes or more are written to
// the batch when one is set.
func (t *Txn) Hash() ([]byte, error) {
	if t.root == nil {
		return emptyRoot(), nil
	}

	h, ok := hasherPool.Get().(*hasher)
	if !ok {
		return nil, errInvalidHasher
	}

	defer func() {
		h.ReleaseArenas(0)
		hasherPool.Put(h)
	}()

	arena, _ := h.AcquireArena()

	val, err := t.hash(t.root, h, arena, 0)
	if err != nil {
		return nil, err
	}

	var root []byte

	if val.Type() == fastrlp.TypeBytes && val.Len() == 32 {
		root = make([]byte, 32)
		copy(root, val.Raw())

		return root, nil
	}

	// the root is always stored by its hash, even when it is small
	var raw []byte
	if val.Type() == fastrlp.TypeBytes {
		raw = val.Raw()
	} else {
		raw = val.MarshalTo(nil)
	}

	h.hash.Reset()
	h.hash.Write(raw)
	root = h.hash.Sum(nil)

	if t.batch != nil {
		t.batch.Put(root, raw)
	}

	return root, nil
}

func (t *Txn) hash(node Node, h *hasher, a *fastrlp.Arena, d int) (*fastrlp.Value, error) {
	var (
		val *fastrlp.Value
		aa  *fastrlp.Arena
		idx int
	)

	if h, ok := node.Hash(); ok {
		return a.NewCopyBytes(h), nil
	}

	switch n := node.(type) {
	case *ValueNode:
		return a.NewCopyBytes(n.buf), nil

	case *ShortNode:
		child, err := t.hash(n.child, h, a, d+1)
		if err != nil {
			return nil, err
		}

		val = a.NewArray()
		val.Set(a.NewBytes(encodeCompact(n.key)))
		val.Set(child)

	case *FullNode:
		val = a.NewArray()

		aa, idx = h.AcquireArena()

		for _, i := range n.children {
			if i == nil {
				val.Set(a.NewNull())

				continue
			}

			child, err := t.hash(i, h, aa, d+1)
			if err != nil {
				return nil, err
			}

			val.Set(child)
		}

		// Add the value
		if n.value == nil {
			val.Set(a.NewNull())
		} else {
			child, err := t.hash(n.value, h, a, d+1)
			if err != nil {
				return nil, err
			}

			val.Set(child)
		}

	default:
		return nil, fmt.Errorf("%w: %T", errUnknownNode, n)
	}

	if val.Len() < 32 {
		return val, nil
	}

	// marshal RLP value
	h.buf = val.MarshalTo(h.buf[:0])

	if aa != nil {
		h.ReleaseArenas(idx)
	}

	tmp, err := h.Hash(h.buf)
	if err != nil {
		return nil, err
	}

	hh := node.SetHash(tmp)

	if t.batch != nil {
		t.batch.Put(tmp, h.buf)
	}

	return a.NewCopyBytes(hh), nil
}
