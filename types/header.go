package types

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/rei-network/executive/helper/hex"
	"github.com/rei-network/executive/helper/keccak"
	"github.com/umbracle/fastrlp"
)

var ErrExtraDataTooLarge = errors.New("extra data too large")

// Header represents a block header. Only the fields the execution engine
// reads are interpreted, the rest are carried for the hash.
type Header struct {
	ParentHash   Hash     `json:"parentHash"`
	Sha3Uncles   Hash     `json:"sha3Uncles"`
	Miner        Address  `json:"miner"`
	StateRoot    Hash     `json:"stateRoot"`
	TxRoot       Hash     `json:"transactionsRoot"`
	ReceiptsRoot Hash     `json:"receiptsRoot"`
	LogsBloom    Bloom    `json:"logsBloom"`
	Difficulty   uint64   `json:"difficulty"`
	Number       uint64   `json:"number"`
	GasLimit     uint64   `json:"gasLimit"`
	GasUsed      uint64   `json:"gasUsed"`
	Timestamp    uint64   `json:"timestamp"`
	ExtraData    HexBytes `json:"extraData"`
	MixHash      Hash     `json:"mixHash"`
	Nonce        Nonce    `json:"nonce"`
	Hash         Hash     `json:"hash"`
}

func (h *Header) SetNonce(i uint64) {
	binary.BigEndian.PutUint64(h.Nonce[:], i)
}

// ValidateExtraData rejects extra data above the given size
func (h *Header) ValidateExtraData(maxSize uint64) error {
	if size := uint64(len(h.ExtraData)); size > maxSize {
		return fmt.Errorf("%w: %d > %d", ErrExtraDataTooLarge, size, maxSize)
	}

	return nil
}

type Nonce [8]byte

func (n Nonce) String() string {
	return hex.EncodeToHex(n[:])
}

// MarshalText implements encoding.TextMarshaler
func (n Nonce) MarshalText() ([]byte, error) {
	return []byte(n.String()), nil
}

func (n *Nonce) UnmarshalText(input []byte) error {
	buf, err := hex.DecodeHex(string(input))
	if err != nil {
		return err
	}

	if len(buf) > len(n) {
		return fmt.Errorf("nonce too long: %d bytes", len(buf))
	}

	*n = Nonce{}
	copy(n[len(n)-len(buf):], buf)

	return nil
}

// ComputeHash computes the hash of the header
func (h *Header) ComputeHash() *Header {
	ar := fastrlp.DefaultArenaPool.Get()
	h.Hash = BytesToHash(keccak.Keccak256Rlp(nil, h.MarshalRLPWith(ar)))
	fastrlp.DefaultArenaPool.Put(ar)

	return h
}

func (h *Header) Copy() *Header {
	hh := new(Header)
	*hh = *h

	hh.ExtraData = append([]byte{}, h.ExtraData...)

	return hh
}

func (h *Header) MarshalRLP() []byte {
	return MarshalRLPTo(h.MarshalRLPWith, nil)
}

// MarshalRLPWith marshals the header to RLP with a specific fastrlp.Arena
func (h *Header) MarshalRLPWith(arena *fastrlp.Arena) *fastrlp.Value {
	vv := arena.NewArray()

	vv.Set(arena.NewCopyBytes(h.ParentHash.Bytes()))
	vv.Set(arena.NewCopyBytes(h.Sha3Uncles.Bytes()))
	vv.Set(arena.NewCopyBytes(h.Miner.Bytes()))
	vv.Set(arena.NewCopyBytes(h.StateRoot.Bytes()))
	vv.Set(arena.NewCopyBytes(h.TxRoot.Bytes()))
	vv.Set(arena.NewCopyBytes(h.ReceiptsRoot.Bytes()))
	vv.Set(arena.NewCopyBytes(h.LogsBloom[:]))

	vv.Set(arena.NewUint(h.Difficulty))
	vv.Set(arena.NewUint(h.Number))
	vv.Set(arena.NewUint(h.GasLimit))
	vv.Set(arena.NewUint(h.GasUsed))
	vv.Set(arena.NewUint(h.Timestamp))

	vv.Set(arena.NewCopyBytes(h.ExtraData))
	vv.Set(arena.NewCopyBytes(h.MixHash.Bytes()))
	vv.Set(arena.NewCopyBytes(h.Nonce[:]))

	return vv
}

// UnmarshalRLP decodes a header and sets its hash
func (h *Header) UnmarshalRLP(input []byte) error {
	return UnmarshalRlp(h.unmarshalRLPFrom, input)
}

func (h *Header) unmarshalRLPFrom(_ *fastrlp.Parser, v *fastrlp.Value) error {
	elems, err := v.GetElems()
	if err != nil {
		return err
	}

	if num := len(elems); num != 15 {
		return fmt.Errorf("incorrect number of elements to decode header, expected 15 but found %d", num)
	}

	h.Hash = BytesToHash(keccak.Keccak256Rlp(nil, v))

	values := rlpValues(elems)

	for _, dst := range []*Hash{&h.ParentHash, &h.Sha3Uncles} {
		if *dst, err = values.hash("header hash"); err != nil {
			return err
		}
	}

	if h.Miner, err = values.address("miner"); err != nil {
		return err
	}

	for _, dst := range []*Hash{&h.StateRoot, &h.TxRoot, &h.ReceiptsRoot} {
		if *dst, err = values.hash("header root"); err != nil {
			return err
		}
	}

	if _, err = values.dequeueValue().GetBytes(h.LogsBloom[:0], BloomByteLength); err != nil {
		return err
	}

	for _, dst := range []*uint64{&h.Difficulty, &h.Number, &h.GasLimit, &h.GasUsed, &h.Timestamp} {
		if *dst, err = values.uint64("header field"); err != nil {
			return err
		}
	}

	if h.ExtraData, err = values.bytes("extra data"); err != nil {
		return err
	}

	if h.MixHash, err = values.hash("mix hash"); err != nil {
		return err
	}

	nonce, err := values.uint64("nonce")
	if err != nil {
		return err
	}

	h.SetNonce(nonce)

	return nil
}
