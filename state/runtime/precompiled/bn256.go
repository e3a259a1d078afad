package precompiled

import (
	"errors"
	"math/big"

	bn256 "github.com/umbracle/go-eth-bn256"

	"github.com/rei-network/executive/chain"
)

var errBadPairingInput = errors.New("bad elliptic curve pairing size")

var (
	true32Byte  = append(make([]byte, 31), 1)
	false32Byte = make([]byte, 32)
)

func newCurvePoint(blob []byte) (*bn256.G1, error) {
	p := new(bn256.G1)
	if _, err := p.Unmarshal(blob); err != nil {
		return nil, err
	}

	return p, nil
}

func newTwistPoint(blob []byte) (*bn256.G2, error) {
	p := new(bn256.G2)
	if _, err := p.Unmarshal(blob); err != nil {
		return nil, err
	}

	return p, nil
}

type bn256Add struct {
	p *Precompiled
}

func (b *bn256Add) gas(_ []byte, schedule *chain.Schedule) uint64 {
	return schedule.Bn256AddGas
}

func (b *bn256Add) run(input []byte, _ *Env) ([]byte, error) {
	var val []byte

	val, input = b.p.get(input, 64)

	x, err := newCurvePoint(val)
	if err != nil {
		return nil, err
	}

	val, _ = b.p.get(input, 64)

	y, err := newCurvePoint(val)
	if err != nil {
		return nil, err
	}

	c := new(bn256.G1)
	c.Add(x, y)

	return c.Marshal(), nil
}

type bn256Mul struct {
	p *Precompiled
}

func (b *bn256Mul) gas(_ []byte, schedule *chain.Schedule) uint64 {
	return schedule.Bn256ScalarMulGas
}

func (b *bn256Mul) run(input []byte, _ *Env) ([]byte, error) {
	var val []byte

	val, input = b.p.get(input, 64)

	x, err := newCurvePoint(val)
	if err != nil {
		return nil, err
	}

	val, _ = b.p.get(input, 32)

	c := new(bn256.G1)
	c.ScalarMult(x, new(big.Int).SetBytes(val))

	return c.Marshal(), nil
}

type bn256Pairing struct {
}

func (b *bn256Pairing) gas(input []byte, schedule *chain.Schedule) uint64 {
	return schedule.Bn256PairingBaseGas + uint64(len(input)/192)*schedule.Bn256PairingPerPointGas
}

func (b *bn256Pairing) run(input []byte, _ *Env) ([]byte, error) {
	if len(input)%192 > 0 {
		return nil, errBadPairingInput
	}

	var (
		cs []*bn256.G1
		ts []*bn256.G2
	)

	for i := 0; i < len(input); i += 192 {
		c, err := newCurvePoint(input[i : i+64])
		if err != nil {
			return nil, err
		}

		t, err := newTwistPoint(input[i+64 : i+192])
		if err != nil {
			return nil, err
		}

		cs = append(cs, c)
		ts = append(ts, t)
	}

	if bn256.PairingCheck(cs, ts) {
		return true32Byte, nil
	}

	return false32Byte, nil
}
