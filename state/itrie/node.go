package itrie

import (
	"errors"
	"fmt"

	"github.com/umbracle/fastrlp"

	"github.com/rei-network/executive/state/storage"
)

var parserPool fastrlp.ParserPool

var (
	errNodeNotList       = errors.New("storage item should be an array")
	errShortKeyNotBytes  = errors.New("short key expected to be bytes")
	errShortValNotBytes  = errors.New("short leaf value expected to be bytes")
	errFullValNotBytes   = errors.New("full node value expected to be bytes")
	errIncorrectNodeSize = errors.New("node has incorrect number of leafs")
)

// GetNode retrieves a node from storage
func GetNode(root []byte, storage storage.Storage) (Node, bool, error) {
	data, ok, err := storage.Get(root)
	if err != nil || !ok || len(data) == 0 {
		return nil, false, err
	}

	p := parserPool.Get()
	defer parserPool.Put(p)

	v, err := p.Parse(data)
	if err != nil {
		return nil, false, err
	}

	if v.Type() != fastrlp.TypeArray {
		return nil, false, errNodeNotList
	}

	n, err := decodeNode(v)

	return n, err == nil, err
}

// decodeNode copies every buffer out of v since the parser is reused
func decodeNode(v *fastrlp.Value) (Node, error) {
	if v.Type() == fastrlp.TypeBytes {
		vv := &ValueNode{
			hash: true,
		}
		vv.buf = append(vv.buf[:0], v.Raw()...)

		return vv, nil
	}

	var err error

	switch ll := v.Elems(); ll {
	case 2:
		key := v.Get(0)
		if key.Type() != fastrlp.TypeBytes {
			return nil, errShortKeyNotBytes
		}

		// this can be either an array (extension node)
		// or bytes (leaf node)
		nc := &ShortNode{}
		nc.key = decodeCompact(key.Raw())

		if hasTerminator(nc.key) {
			if v.Get(1).Type() != fastrlp.TypeBytes {
				return nil, errShortValNotBytes
			}

			vv := &ValueNode{}
			vv.buf = append(vv.buf, v.Get(1).Raw()...)
			nc.child = vv
		} else {
			nc.child, err = decodeNode(v.Get(1))
			if err != nil {
				return nil, err
			}
		}

		return nc, nil

	case 17:
		nc := &FullNode{}

		for i := 0; i < 16; i++ {
			if v.Get(i).Type() == fastrlp.TypeBytes && len(v.Get(i).Raw()) == 0 {
				// empty
				continue
			}

			nc.children[i], err = decodeNode(v.Get(i))
			if err != nil {
				return nil, err
			}
		}

		if v.Get(16).Type() != fastrlp.TypeBytes {
			return nil, errFullValNotBytes
		}

		if len(v.Get(16).Raw()) != 0 {
			vv := &ValueNode{}
			vv.buf = append(vv.buf[:0], v.Get(16).Raw()...)
			nc.value = vv
		}

		return nc, nil

	default:
		return nil, fmt.Errorf("%w: %d", errIncorrectNodeSize, ll)
	}
}
