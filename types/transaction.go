package types

import (
	"errors"
	"fmt"
	"math/big"
	"sync/atomic"

	"github.com/rei-network/executive/helper/keccak"
	"github.com/umbracle/fastrlp"
)

type TxType byte

const (
	LegacyTx     TxType = 0x0
	AccessListTx TxType = 0x01
)

// typedTxThreshold is the upper bound of the first byte of a typed
// transaction envelope. Legacy transactions always start with a list header.
const typedTxThreshold = 0x7f

func (t TxType) String() string {
	switch t {
	case LegacyTx:
		return "LegacyTx"
	case AccessListTx:
		return "AccessListTx"
	default:
		return fmt.Sprintf("TxType(%d)", byte(t))
	}
}

var (
	ErrInvalidTransactionFormat = errors.New("invalid transaction format")
	ErrInvalidTransactionType   = errors.New("invalid transaction type")
	ErrInvalidSignature         = errors.New("invalid signature")
	ErrTransactionIsUnsigned    = errors.New("transaction is unsigned")
	ErrEmptyRLP                 = errors.New("RLP data is empty")
)

func formatError(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrInvalidTransactionFormat, fmt.Sprintf(format, args...))
}

// Signature is an ECDSA signature split into its components.
// V is the recovery id and is always 0 or 1 for a valid signature.
type Signature struct {
	R *big.Int
	S *big.Int
	V byte
}

// IsZero reports whether both R and S are zero. Such transactions carry no
// cryptographic signature and are attributed to MaxAddress.
func (s *Signature) IsZero() bool {
	return s != nil && isZero(s.R) && isZero(s.S)
}

func (s *Signature) Copy() *Signature {
	if s == nil {
		return nil
	}

	return &Signature{R: copyBig(s.R), S: copyBig(s.S), V: s.V}
}

// TransactionSkeleton carries the fields needed to build an unsigned transaction
type TransactionSkeleton struct {
	Creation   bool
	To         Address
	Nonce      uint64
	Value      *big.Int
	GasPrice   *big.Int
	Gas        uint64
	Input      []byte
	ChainID    *uint64
	AccessList *AccessList
}

type Transaction struct {
	Type       TxType
	Nonce      uint64
	GasPrice   *big.Int
	Gas        uint64
	To         *Address
	Value      *big.Int
	Input      []byte
	ChainID    *uint64
	AccessList *AccessList
	Signature  *Signature

	hash atomic.Pointer[Hash]
	from atomic.Pointer[Address]
}

// NewTransaction builds an unsigned transaction. An access list and a chain id
// must be given together, in which case the transaction is typed.
func NewTransaction(skel TransactionSkeleton) (*Transaction, error) {
	if (skel.AccessList == nil) != (skel.ChainID == nil) {
		return nil, formatError("Both access list and chain id must be provided")
	}

	tx := &Transaction{
		Type:     LegacyTx,
		Nonce:    skel.Nonce,
		GasPrice: copyBig(skel.GasPrice),
		Gas:      skel.Gas,
		Value:    copyBig(skel.Value),
		Input:    append([]byte{}, skel.Input...),
	}

	if !skel.Creation {
		to := skel.To
		tx.To = &to
	}

	if skel.AccessList != nil {
		chainID := *skel.ChainID
		tx.Type = AccessListTx
		tx.ChainID = &chainID
		tx.AccessList = skel.AccessList.Copy()
	}

	return tx, nil
}

// IsContractCreation reports whether the transaction creates a contract
func (t *Transaction) IsContractCreation() bool {
	return t.To == nil
}

func (t *Transaction) IsTyped() bool {
	return t.Type != LegacyTx
}

// IsReplayProtected reports whether a chain id is bound to the transaction
func (t *Transaction) IsReplayProtected() bool {
	return t.ChainID != nil
}

func (t *Transaction) IsSigned() bool {
	return t.Signature != nil
}

// HasZeroSignature reports whether the transaction carries an all-zero signature
func (t *Transaction) HasZeroSignature() bool {
	return t.Signature.IsZero()
}

// SetSignature attaches a signature and drops the cached hash and sender
func (t *Transaction) SetSignature(sig *Signature) {
	t.Signature = sig
	t.hash.Store(nil)
	t.from.Store(nil)
}

// From returns the cached sender, if it has been recovered
func (t *Transaction) From() (Address, bool) {
	if from := t.from.Load(); from != nil {
		return *from, true
	}

	return ZeroAddress, false
}

func (t *Transaction) SetFrom(addr Address) {
	t.from.Store(&addr)
}

// RawV returns the v value as it appears in the signed encoding
func (t *Transaction) RawV() (*big.Int, error) {
	if t.Signature == nil {
		return nil, ErrTransactionIsUnsigned
	}

	v := new(big.Int).SetUint64(uint64(t.Signature.V))
	if t.IsTyped() {
		return v, nil
	}

	if t.ChainID != nil {
		offset := new(big.Int).SetUint64(*t.ChainID)
		offset.Lsh(offset, 1)
		offset.Add(offset, big.NewInt(35))

		return v.Add(v, offset), nil
	}

	return v.Add(v, big.NewInt(27)), nil
}

// Cost returns value + gasPrice * gas
func (t *Transaction) Cost() *big.Int {
	total := new(big.Int).Mul(orZero(t.GasPrice), new(big.Int).SetUint64(t.Gas))

	return total.Add(total, orZero(t.Value))
}

// Copy makes a deep copy of the transaction. Cached values are carried over.
func (t *Transaction) Copy() *Transaction {
	tt := &Transaction{
		Type:       t.Type,
		Nonce:      t.Nonce,
		GasPrice:   copyBig(t.GasPrice),
		Gas:        t.Gas,
		Value:      copyBig(t.Value),
		Input:      append([]byte{}, t.Input...),
		AccessList: t.AccessList.Copy(),
		Signature:  t.Signature.Copy(),
	}

	if t.To != nil {
		to := *t.To
		tt.To = &to
	}

	if t.ChainID != nil {
		chainID := *t.ChainID
		tt.ChainID = &chainID
	}

	tt.hash.Store(t.hash.Load())
	tt.from.Store(t.from.Load())

	return tt
}

// Hash returns the hash of the signed encoding. It is computed once and
// cached. Unsigned transactions return their signing hash, uncached.
func (t *Transaction) Hash() Hash {
	if h := t.hash.Load(); h != nil {
		return *h
	}

	if t.Signature == nil {
		return t.SigningHash()
	}

	h := t.computeHash(true)
	t.hash.Store(&h)

	return h
}

// SigningHash returns the hash the sender signs. Legacy replay protected
// transactions commit to the chain id as in EIP-155.
func (t *Transaction) SigningHash() Hash {
	return t.computeHash(false)
}

func (t *Transaction) computeHash(withSignature bool) Hash {
	ar := fastrlp.DefaultArenaPool.Get()
	defer fastrlp.DefaultArenaPool.Put(ar)

	v := t.marshalRLPWith(ar, withSignature)

	var dst []byte
	if t.IsTyped() {
		dst = keccak.PrefixedKeccak256Rlp([]byte{byte(t.Type)}, nil, v)
	} else {
		dst = keccak.Keccak256Rlp(nil, v)
	}

	return BytesToHash(dst)
}

// SigningPreimage returns the bytes the signing hash is computed over
func (t *Transaction) SigningPreimage() []byte {
	return t.encode(false)
}

// MarshalRLP returns the signed encoding of the transaction
func (t *Transaction) MarshalRLP() ([]byte, error) {
	return t.MarshalRLPTo(nil, true)
}

// MarshalRLPTo appends the encoding of the transaction to dst. Without the
// signature the EIP-155 placeholders are written for replay protected legacy
// transactions.
func (t *Transaction) MarshalRLPTo(dst []byte, includeSignature bool) ([]byte, error) {
	if includeSignature && t.Signature == nil {
		return nil, ErrTransactionIsUnsigned
	}

	return t.encodeTo(dst, includeSignature), nil
}

func (t *Transaction) encode(withSignature bool) []byte {
	return t.encodeTo(nil, withSignature)
}

func (t *Transaction) encodeTo(dst []byte, withSignature bool) []byte {
	if t.IsTyped() {
		dst = append(dst, byte(t.Type))
	}

	return MarshalRLPTo(func(ar *fastrlp.Arena) *fastrlp.Value {
		return t.marshalRLPWith(ar, withSignature)
	}, dst)
}

func (t *Transaction) marshalRLPWith(arena *fastrlp.Arena, withSignature bool) *fastrlp.Value {
	vv := arena.NewArray()

	var chainID uint64
	if t.ChainID != nil {
		chainID = *t.ChainID
	}

	if t.IsTyped() {
		vv.Set(arena.NewUint(chainID))
	}

	vv.Set(arena.NewUint(t.Nonce))
	vv.Set(arena.NewBigInt(t.GasPrice))
	vv.Set(arena.NewUint(t.Gas))

	if t.To == nil {
		vv.Set(arena.NewNull())
	} else {
		vv.Set(arena.NewCopyBytes(t.To.Bytes()))
	}

	vv.Set(arena.NewBigInt(t.Value))
	vv.Set(arena.NewCopyBytes(t.Input))

	if t.IsTyped() {
		vv.Set(t.AccessList.MarshalRLPWith(arena))
	}

	switch {
	case withSignature:
		// a zero signature carries the chain id in the v slot
		if t.Signature.IsZero() {
			vv.Set(arena.NewUint(chainID))
		} else {
			rawV, _ := t.RawV()
			vv.Set(arena.NewBigInt(rawV))
		}

		vv.Set(arena.NewBigInt(t.Signature.R))
		vv.Set(arena.NewBigInt(t.Signature.S))

	case !t.IsTyped() && t.IsReplayProtected():
		vv.Set(arena.NewUint(chainID))
		vv.Set(arena.NewUint(0))
		vv.Set(arena.NewUint(0))
	}

	return vv
}

// UnmarshalRLP decodes a signed transaction. Only the structure and the
// range of v are checked here, the signature itself is left to the caller.
func (t *Transaction) UnmarshalRLP(input []byte) error {
	if len(input) == 0 {
		return ErrEmptyRLP
	}

	t.Type = LegacyTx
	t.hash.Store(nil)
	t.from.Store(nil)

	if input[0] < typedTxThreshold {
		if TxType(input[0]) != AccessListTx {
			return fmt.Errorf("%w: %d", ErrInvalidTransactionType, input[0])
		}

		t.Type = AccessListTx
		input = input[1:]
	}

	return UnmarshalRlp(t.unmarshalRLPFrom, input)
}

func (t *Transaction) unmarshalRLPFrom(_ *fastrlp.Parser, v *fastrlp.Value) error {
	elems, err := v.GetElems()
	if err != nil {
		return formatError("transaction RLP must be a list")
	}

	if t.IsTyped() {
		return t.unmarshalTyped(elems)
	}

	return t.unmarshalLegacy(elems)
}

func (t *Transaction) unmarshalLegacy(elems []*fastrlp.Value) error {
	if num := len(elems); num > 9 {
		return formatError("too many fields in the transaction RLP")
	} else if num < 9 {
		return formatError("expected 9 fields but found %d", num)
	}

	values := rlpValues(elems)
	if err := t.unmarshalBody(&values); err != nil {
		return err
	}

	rawV, r, s, err := unmarshalSignatureValues(&values)
	if err != nil {
		return err
	}

	t.AccessList = nil
	t.Signature = &Signature{R: r, S: s}

	if t.Signature.IsZero() {
		if !rawV.IsUint64() {
			return fmt.Errorf("%w: chain id overflow", ErrInvalidSignature)
		}

		chainID := rawV.Uint64()
		t.ChainID = &chainID

		return nil
	}

	switch {
	case rawV.Cmp(big.NewInt(36)) > 0:
		chainID := new(big.Int).Sub(rawV, big.NewInt(35))
		chainID.Rsh(chainID, 1)

		if !chainID.IsUint64() {
			return fmt.Errorf("%w: chain id overflow", ErrInvalidSignature)
		}

		offset := new(big.Int).Lsh(chainID, 1)
		offset.Add(offset, big.NewInt(35))

		id := chainID.Uint64()
		t.ChainID = &id
		t.Signature.V = byte(new(big.Int).Sub(rawV, offset).Uint64())

	case rawV.Cmp(big.NewInt(27)) == 0 || rawV.Cmp(big.NewInt(28)) == 0:
		t.ChainID = nil
		t.Signature.V = byte(rawV.Uint64() - 27)

	default:
		return fmt.Errorf("%w: v %s out of range", ErrInvalidSignature, rawV)
	}

	return nil
}

func (t *Transaction) unmarshalTyped(elems []*fastrlp.Value) error {
	if num := len(elems); num > 11 {
		return formatError("too many fields in the transaction RLP")
	} else if num < 11 {
		return formatError("expected 11 fields but found %d", num)
	}

	values := rlpValues(elems)

	chainID, err := values.uint64("chain id")
	if err != nil {
		return formatError("%v", err)
	}

	if err := t.unmarshalBody(&values); err != nil {
		return err
	}

	t.AccessList = &AccessList{}
	if err := t.AccessList.UnmarshalRLPFrom(nil, values.dequeueValue()); err != nil {
		return err
	}

	rawV, r, s, err := unmarshalSignatureValues(&values)
	if err != nil {
		return err
	}

	t.Signature = &Signature{R: r, S: s}

	if t.Signature.IsZero() {
		if !rawV.IsUint64() {
			return fmt.Errorf("%w: chain id overflow", ErrInvalidSignature)
		}

		chainID = rawV.Uint64()
	} else {
		if !rawV.IsUint64() || rawV.Uint64() > 1 {
			return fmt.Errorf("%w: v %s out of range", ErrInvalidSignature, rawV)
		}

		t.Signature.V = byte(rawV.Uint64())
	}

	t.ChainID = &chainID

	return nil
}

// unmarshalBody decodes the fields shared by every transaction type
func (t *Transaction) unmarshalBody(values *rlpValues) (err error) {
	if t.Nonce, err = values.uint64("nonce"); err != nil {
		return formatError("%v", err)
	}

	if t.GasPrice, err = values.bigInt("gas price"); err != nil {
		return formatError("%v", err)
	}

	if t.Gas, err = values.uint64("gas"); err != nil {
		return formatError("%v", err)
	}

	to, err := values.bytes("recipient")
	if err != nil {
		return formatError("recipient RLP must be a byte array")
	}

	switch len(to) {
	case 0:
		t.To = nil
	case AddressLength:
		addr := BytesToAddress(to)
		t.To = &addr
	default:
		return formatError("recipient must be %d bytes but found %d", AddressLength, len(to))
	}

	if t.Value, err = values.bigInt("value"); err != nil {
		return formatError("%v", err)
	}

	if t.Input, err = values.bytes("data"); err != nil {
		return formatError("transaction data RLP must be a byte array")
	}

	return nil
}

func unmarshalSignatureValues(values *rlpValues) (v, r, s *big.Int, err error) {
	if v, err = values.bigInt("v"); err != nil {
		return nil, nil, nil, formatError("%v", err)
	}

	if r, err = values.bigInt("r"); err != nil {
		return nil, nil, nil, formatError("%v", err)
	}

	if s, err = values.bigInt("s"); err != nil {
		return nil, nil, nil, formatError("%v", err)
	}

	return v, r, s, nil
}

func isZero(b *big.Int) bool {
	return b == nil || b.Sign() == 0
}

func orZero(b *big.Int) *big.Int {
	if b == nil {
		return new(big.Int)
	}

	return b
}

func copyBig(b *big.Int) *big.Int {
	if b == nil {
		return nil
	}

	return new(big.Int).Set(b)
}
