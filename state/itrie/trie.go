package itrie

import (
	"bytes"
	"errors"
	"fmt"

	commonHelpers "github.com/rei-network/executive/helper/common"
	"github.com/rei-network/executive/helper/keccak"
	"github.com/rei-network/executive/state/storage"
	"github.com/rei-network/executive/types"
)

var errUnknownNode = errors.New("unknown node type")

// Node represents a node reference
type Node interface {
	Hash() ([]byte, bool)
	SetHash(b []byte) []byte
}

// ValueNode is a leaf on the merkle-trie
type ValueNode struct {
	// hash marks if this value node represents a stored node
	hash bool
	buf  []byte
}

// Hash implements the node interface
func (v *ValueNode) Hash() ([]byte, bool) {
	return v.buf, v.hash
}

// SetHash implements the node interface
func (v *ValueNode) SetHash(b []byte) []byte {
	panic("We cannot set hash on value node") //nolint:gocritic
}

type common struct {
	hash []byte
}

// Hash implements the node interface
func (c *common) Hash() ([]byte, bool) {
	return c.hash, len(c.hash) != 0
}

// SetHash implements the node interface
func (c *common) SetHash(b []byte) []byte {
	c.hash = commonHelpers.ExtendByteSlice(c.hash, len(b))
	copy(c.hash, b)

	return c.hash
}

// ShortNode is an extension or short node
type ShortNode struct {
	common
	key   []byte
	child Node
}

// FullNode is a node with several children
type FullNode struct {
	common
	epoch    uint32
	value    Node
	children [16]Node
}

func (f *FullNode) copy() *FullNode {
	nc := &FullNode{}
	nc.value = f.value
	copy(nc.children[:], f.children[:])

	return nc
}

func (f *FullNode) setEdge(idx byte, e Node) {
	if idx == 16 {
		f.value = e
	} else {
		f.children[idx] = e
	}
}

func (f *FullNode) getEdge(idx byte) Node {
	if idx == 16 {
		return f.value
	}

	return f.children[idx]
}

// Trie is an immutable merkle patricia trie. Every change goes through a Txn
// that commits into a new Trie.
type Trie struct {
	root  Node
	epoch uint32
}

func NewTrie() *Trie {
	return &Trie{}
}

// Get returns the value stored under k
func (t *Trie) Get(k []byte, storage storage.Storage) ([]byte, bool, error) {
	res, err := t.Txn(storage).Lookup(k)
	if err != nil {
		return nil, false, err
	}

	return res, res != nil, nil
}

func hashit(k []byte) []byte {
	return keccak.Keccak256(nil, k)
}

// Hash returns the root hash of a committed trie
func (t *Trie) Hash() types.Hash {
	if t.root == nil {
		return types.EmptyRootHash
	}

	hash, _ := t.root.Hash()

	return types.BytesToHash(hash)
}

func (t *Trie) Txn(storage storage.Storage) *Txn {
	return &Txn{root: t.root, epoch: t.epoch + 1, storage: storage}
}

type Putter interface {
	Put(k, v []byte)
}

type Txn struct {
	root    Node
	epoch   uint32
	storage storage.Storage
	batch   Putter
}

func (t *Txn) Commit() *Trie {
	return &Trie{epoch: t.epoch, root: t.root}
}

func (t *Txn) Lookup(key []byte) ([]byte, error) {
	_, res, err := t.lookup(t.root, bytesToHexNibbles(key))

	return res, err
}

// resolve loads the node a hash reference points to
func (t *Txn) resolve(n *ValueNode) (Node, bool, error) {
	nc, ok, err := GetNode(n.buf, t.storage)
	if err != nil {
		return nil, false, fmt.Errorf("failed to resolve node %x: %w", n.buf, err)
	}

	return nc, ok, nil
}

func (t *Txn) lookup(node Node, key []byte) (Node, []byte, error) {
	switch n := node.(type) {
	case nil:
		return nil, nil, nil

	case *ValueNode:
		if n.hash {
			nc, ok, err := t.resolve(n)
			if err != nil || !ok {
				return nil, nil, err
			}

			_, res, err := t.lookup(nc, key)

			return nc, res, err
		}

		if len(key) == 0 {
			return nil, n.buf, nil
		}

		return nil, nil, nil

	case *ShortNode:
		plen := len(n.key)
		if plen > len(key) || !bytes.Equal(key[:plen], n.key) {
			return nil, nil, nil
		}

		child, res, err := t.lookup(n.child, key[plen:])
		if child != nil {
			n.child = child
		}

		return nil, res, err

	case *FullNode:
		if len(key) == 0 {
			return t.lookup(n.value, key)
		}

		child, res, err := t.lookup(n.getEdge(key[0]), key[1:])
		if child != nil {
			n.setEdge(key[0], child)
		}

		return nil, res, err

	default:
		return nil, nil, fmt.Errorf("%w: %T", errUnknownNode, n)
	}
}

func (t *Txn) writeNode(n *FullNode) *FullNode {
	if t.epoch == n.epoch {
		// owned by this txn, drop the cached hash
		n.hash = n.hash[:0]

		return n
	}

	nc := &FullNode{
		epoch: t.epoch,
		value: n.value,
	}
	copy(nc.children[:], n.children[:])

	return nc
}

func (t *Txn) Insert(key, value []byte) error {
	root, err := t.insert(t.root, bytesToHexNibbles(key), value)
	if err != nil {
		return err
	}

	if root != nil {
		t.root = root
	}

	return nil
}

func newValueNode(value []byte) *ValueNode {
	v := &ValueNode{}
	v.buf = make([]byte, len(value))
	copy(v.buf, value)

	return v
}

func (t *Txn) insert(node Node, search, value []byte) (Node, error) {
	switch n := node.(type) {
	case nil:
		// NOTE, this only happens with the full node
		if len(search) == 0 {
			return newValueNode(value), nil
		}

		return &ShortNode{
			key:   search,
			child: newValueNode(value),
		}, nil

	case *ValueNode:
		if n.hash {
			nc, ok, err := t.resolve(n)
			if err != nil || !ok {
				return nil, err
			}

			return t.insert(nc, search, value)
		}

		if len(search) == 0 {
			return newValueNode(value), nil
		}

		return t.insert(&FullNode{epoch: t.epoch, value: n}, search, value)

	case *ShortNode:
		plen := prefixLen(search, n.key)
		if plen == len(n.key) {
			// Keep this node as is and insert to child
			child, err := t.insert(n.child, search[plen:], value)
			if err != nil {
				return nil, err
			}

			return &ShortNode{key: n.key, child: child}, nil
		}

		// Introduce a new branch
		b := FullNode{epoch: t.epoch}
		if len(n.key) > plen+1 {
			b.setEdge(n.key[plen], &ShortNode{key: n.key[plen+1:], child: n.child})
		} else {
			b.setEdge(n.key[plen], n.child)
		}

		child, err := t.insert(&b, search[plen:], value)
		if err != nil {
			return nil, err
		}

		if plen == 0 {
			return child, nil
		}

		return &ShortNode{key: search[:plen], child: child}, nil

	case *FullNode:
		b := t.writeNode(n)

		if len(search) == 0 {
			value, err := t.insert(b.value, nil, value)
			if err != nil {
				return nil, err
			}

			b.value = value

			return b, nil
		}

		k := search[0]

		newChild, err := t.insert(n.getEdge(k), search[1:], value)
		if err != nil {
			return nil, err
		}

		b.setEdge(k, newChild)

		return b, nil

	default:
		return nil, fmt.Errorf("%w: %T", errUnknownNode, n)
	}
}

func (t *Txn) Delete(key []byte) error {
	root, ok, err := t.delete(t.root, bytesToHexNibbles(key))
	if err != nil {
		return err
	}

	if ok {
		t.root = root
	}

	return nil
}

func (t *Txn) delete(node Node, search []byte) (Node, bool, error) {
	switch n := node.(type) {
	case nil:
		return nil, false, nil

	case *ShortNode:
		plen := prefixLen(search, n.key)
		if plen == len(search) {
			return nil, true, nil
		}

		if plen < len(n.key) {
			// the key diverges inside this node
			return nil, false, nil
		}

		child, ok, err := t.delete(n.child, search[plen:])
		if err != nil || !ok {
			return nil, false, err
		}

		if child == nil {
			return nil, true, nil
		}

		if short, ok := child.(*ShortNode); ok {
			// merge nodes
			return &ShortNode{key: concat(n.key, short.key), child: short.child}, true, nil
		}

		return &ShortNode{key: n.key, child: child}, true, nil

	case *ValueNode:
		if n.hash {
			nc, ok, err := t.resolve(n)
			if err != nil || !ok {
				return nil, false, err
			}

			return t.delete(nc, search)
		}

		if len(search) != 0 {
			return nil, false, nil
		}

		return nil, true, nil

	case *FullNode:
		n = n.copy()

		key := search[0]

		newChild, ok, err := t.delete(n.getEdge(key), search[1:])
		if err != nil || !ok {
			return nil, false, err
		}

		n.setEdge(key, newChild)

		return t.collapse(n)

	default:
		return nil, false, fmt.Errorf("%w: %T", errUnknownNode, n)
	}
}

// collapse shrinks a full node that is left with a single entry
func (t *Txn) collapse(n *FullNode) (Node, bool, error) {
	indx := -1

	var notEmpty bool

	for edge, i := range n.children {
		if i == nil {
			continue
		}

		if indx != -1 {
			notEmpty = true

			break
		}

		indx = edge
	}

	if indx != -1 && n.value != nil {
		// one child and a value
		notEmpty = true
	}

	if notEmpty {
		return n, true, nil
	}

	if indx == -1 {
		if n.value == nil {
			return nil, true, nil
		}

		// only the value is left
		return &ShortNode{key: []byte{0x10}, child: n.value}, true, nil
	}

	nc := n.children[indx]

	if vv, ok := nc.(*ValueNode); ok && vv.hash {
		aux, ok, err := t.resolve(vv)
		if err != nil || !ok {
			return nil, false, err
		}

		nc = aux
	}

	obj, ok := nc.(*ShortNode)
	if !ok {
		return &ShortNode{key: []byte{byte(indx)}, child: nc}, true, nil
	}

	return &ShortNode{key: concat([]byte{byte(indx)}, obj.key), child: obj.child}, true, nil
}

func prefixLen(k1, k2 []byte) int {
	max := len(k1)
	if l := len(k2); l < max {
		max = l
	}

	var i int

	for i = 0; i < max; i++ {
		if k1[i] != k2[i] {
			break
		}
	}

	return i
}

func concat(a, b []byte) []byte {
	c := make([]byte, len(a)+len(b))
	copy(c, a)
	copy(c[len(a):], b)

	return c
}
