package precompiled

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math/big"

	"github.com/rei-network/executive/chain"
	"github.com/rei-network/executive/helper/common"
	"github.com/rei-network/executive/types"
)

var (
	ErrUnknownPrecompile = errors.New("unknown precompiled contract")
	ErrNoFeeEstimator    = errors.New("no fee estimator")
)

type contract interface {
	gas(input []byte, schedule *chain.Schedule) uint64
	run(input []byte, env *Env) ([]byte, error)
}

// FeeEstimator returns the fee the staker at addr may still spend at the
// timestamp
type FeeEstimator func(addr types.Address, timestamp uint64) (*big.Int, error)

// Env is what a precompile may read besides its input
type Env struct {
	Number      uint64
	Schedule    *chain.Schedule
	EstimateFee FeeEstimator
}

// Precompiled dispatches to the native contracts. It is not safe for
// concurrent use.
type Precompiled struct {
	buf       []byte
	contracts map[types.Address]contract
}

// NewPrecompiled creates a new dispatcher for the precompiled contracts
func NewPrecompiled() *Precompiled {
	p := &Precompiled{}
	p.setupContracts()

	return p
}

func (p *Precompiled) setupContracts() {
	p.register("1", &ecrecover{p})
	p.register("2", &sha256h{})
	p.register("3", &ripemd160h{p})
	p.register("4", &identity{})

	// Byzantium fork
	p.register("5", &modExp{p})
	p.register("6", &bn256Add{p})
	p.register("7", &bn256Mul{p})
	p.register("8", &bn256Pairing{})

	// Istanbul fork
	p.register("9", &blake2f{})

	// free staking fork
	p.register("ff", &estimateFee{p})
}

func (p *Precompiled) register(addrStr string, b contract) {
	if len(p.contracts) == 0 {
		p.contracts = map[types.Address]contract{}
	}

	p.contracts[types.StringToAddress(addrStr)] = b
}

// Has reports whether a native contract is registered at addr. Whether it
// is active is up to the schedule.
func (p *Precompiled) Has(addr types.Address) bool {
	_, ok := p.contracts[addr]

	return ok
}

// Gas returns the cost of running the contract at addr over input
func (p *Precompiled) Gas(addr types.Address, input []byte, schedule *chain.Schedule) (uint64, error) {
	c, ok := p.contracts[addr]
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrUnknownPrecompile, addr)
	}

	return c.gas(input, schedule), nil
}

// Exec runs the contract at addr. A returned error means the contract
// failed; the output is then empty.
func (p *Precompiled) Exec(addr types.Address, input []byte, env *Env) ([]byte, error) {
	c, ok := p.contracts[addr]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownPrecompile, addr)
	}

	out, err := c.run(input, env)
	if err != nil {
		return nil, err
	}

	// callers may keep the output, do not hand out the shared buffer
	return append([]byte{}, out...), nil
}

// Name is the name of the runtime
func (p *Precompiled) Name() string {
	return "precompiled"
}

var zeroPadding = make([]byte, 64)

func (p *Precompiled) leftPad(buf []byte, n int) []byte {
	l := len(buf)
	if l > n {
		return buf
	}

	tmp := make([]byte, n)
	copy(tmp[n-l:], buf)

	return tmp
}

func (p *Precompiled) get(input []byte, size int) ([]byte, []byte) {
	p.buf = common.ExtendByteSlice(p.buf, size)
	n := size

	if len(input) < n {
		n = len(input)
	}

	// copy the part from the input
	copy(p.buf[0:], input[:n])

	// copy empty values
	if n < size {
		rest := size - n
		if rest < 64 {
			copy(p.buf[n:], zeroPadding[0:size-n])
		} else {
			copy(p.buf[n:], make([]byte, rest))
		}
	}

	return p.buf, input[n:]
}

func (p *Precompiled) getUint64(input []byte) (uint64, []byte) {
	p.buf, input = p.get(input, 32)
	num := binary.BigEndian.Uint64(p.buf[24:32])

	return num, input
}
