package types

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/umbracle/fastrlp"
)

type RLPUnmarshaler interface {
	UnmarshalRLP(input []byte) error
}

type unmarshalRLPFunc func(p *fastrlp.Parser, v *fastrlp.Value) error

func UnmarshalRlp(obj unmarshalRLPFunc, input []byte) error {
	pr := fastrlp.DefaultParserPool.Get()
	defer fastrlp.DefaultParserPool.Put(pr)

	v, err := pr.Parse(input)
	if err != nil {
		return err
	}

	return obj(pr, v)
}

var errNotBytes = errors.New("value is not of type bytes")

// rlpValues is a cursor over the elements of a decoded RLP list
type rlpValues []*fastrlp.Value

func (r *rlpValues) dequeueValue() *fastrlp.Value {
	v := (*r)[0]
	*r = (*r)[1:]

	return v
}

func (r *rlpValues) uint64(field string) (uint64, error) {
	n, err := r.dequeueValue().GetUint64()
	if err != nil {
		return 0, fmt.Errorf("%s: %w", field, err)
	}

	return n, nil
}

func (r *rlpValues) bigInt(field string) (*big.Int, error) {
	b := new(big.Int)
	if err := r.dequeueValue().GetBigInt(b); err != nil {
		return nil, fmt.Errorf("%s: %w", field, err)
	}

	return b, nil
}

func (r *rlpValues) bytes(field string) ([]byte, error) {
	v := r.dequeueValue()
	if v.Type() != fastrlp.TypeBytes {
		return nil, fmt.Errorf("%s: %w", field, errNotBytes)
	}

	buf, err := v.GetBytes(nil)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", field, err)
	}

	return buf, nil
}

func (r *rlpValues) hash(field string) (Hash, error) {
	var h Hash
	if err := r.dequeueValue().GetHash(h[:]); err != nil {
		return h, fmt.Errorf("%s: %w", field, err)
	}

	return h, nil
}

func (r *rlpValues) address(field string) (Address, error) {
	var a Address
	if err := r.dequeueValue().GetAddr(a[:]); err != nil {
		return a, fmt.Errorf("%s: %w", field, err)
	}

	return a, nil
}
