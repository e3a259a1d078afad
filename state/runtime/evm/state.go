package evm

import (
	"math/big"
	"sync"

	"github.com/rei-network/executive/chain"
	"github.com/rei-network/executive/state/runtime"
	"github.com/rei-network/executive/types"
)

var statePool = sync.Pool{
	New: func() interface{} {
		return new(state)
	},
}

func acquireState() *state {
	return statePool.Get().(*state)
}

func releaseState(s *state) {
	s.reset()
	statePool.Put(s)
}

const (
	stackSize    = 1024
	maxCallDepth = 1024
)

var (
	errOutOfGas       = runtime.ErrOutOfGas
	errStackUnderflow = runtime.ErrStackUnderflow
	errStackOverflow  = runtime.ErrStackOverflow
	errReadOnly       = runtime.ErrDisallowedStateChange
	errInvalidJump    = runtime.ErrBadJumpDestination
	errOpCodeNotFound = runtime.ErrBadInstruction
	errReturnBadSize  = runtime.ErrBufferOverrun
	errRevert         = runtime.ErrExecutionReverted
)

// Instructions is the code of instructions

type state struct {
	ip   int
	code []byte
	tmp  []byte

	host     runtime.Host
	msg      *runtime.Contract // change with msg
	schedule *chain.Schedule

	// memory
	memory      []byte
	lastGasCost uint64

	// stack
	stack []*big.Int
	sp    int

	err  error
	stop bool

	gas   uint64
	steps uint64

	// bitvec bitvec
	bitmap bitmap

	returnData []byte
	ret        []byte
}

func (c *state) reset() {
	c.sp = 0
	c.ip = 0
	c.gas = 0
	c.steps = 0
	c.lastGasCost = 0
	c.stop = false
	c.err = nil
	c.host = nil
	c.msg = nil
	c.schedule = nil

	// reset bitmap
	c.bitmap.reset()

	// reset memory
	for i := range c.memory {
		c.memory[i] = 0
	}

	c.tmp = c.tmp[:0]
	c.ret = c.ret[:0]
	c.code = c.code[:0]
	c.returnData = c.returnData[:0]
	c.memory = c.memory[:0]
}

func (c *state) validJumpdest(dest *big.Int) bool {
	udest := dest.Uint64()
	if dest.BitLen() >= 63 || udest >= uint64(len(c.code)) {
		return false
	}

	return c.bitmap.isSet(udest)
}

func (c *state) halt() {
	c.stop = true
}

func (c *state) exit(err error) {
	if err == nil {
		panic("cannot stop with none")
	}

	c.stop = true
	c.err = err
}

func (c *state) push(val *big.Int) {
	c.push1().Set(val)
}

func (c *state) push1() *big.Int {
	if len(c.stack) > c.sp {
		c.sp++

		return c.stack[c.sp-1]
	}

	v := big.NewInt(0)
	c.stack = append(c.stack, v)
	c.sp++

	return v
}

func (c *state) stackAtLeast(n int) bool {
	return c.sp >= n
}

func (c *state) popHash() types.Hash {
	return bigToHash(c.pop())
}

func (c *state) popAddr() (types.Address, bool) {
	b := c.pop()
	if b == nil {
		return types.Address{}, false
	}

	return bigToAddress(b), true
}

func (c *state) stackSize() int {
	return c.sp
}

func (c *state) top() *big.Int {
	if c.sp == 0 {
		return nil
	}

	return c.stack[c.sp-1]
}

func (c *state) pop() *big.Int {
	if c.sp == 0 {
		return nil
	}

	o := c.stack[c.sp-1]
	c.sp--

	return o
}

func (c *state) peekAt(n int) *big.Int {
	return c.stack[c.sp-n]
}

func (c *state) swap(n int) {
	c.stack[c.sp-1], c.stack[c.sp-n-1] = c.stack[c.sp-n-1], c.stack[c.sp-1]
}

func (c *state) consumeGas(gas uint64) bool {
	if c.gas < gas {
		c.exit(errOutOfGas)

		return false
	}

	c.gas -= gas

	return true
}

func (c *state) resetReturnData() {
	c.returnData = c.returnData[:0]
}

// Run executes the virtual machine
func (c *state) Run() ([]byte, error) {
	var vmerr error

	codeSize := len(c.code)

	for !c.stop {
		if c.ip >= codeSize {
			c.halt()

			break
		}

		op := OpCode(c.code[c.ip])

		inst := dispatchTable[op]
		if inst.inst == nil || (inst.enabled != nil && !inst.enabled(c.schedule)) {
			c.exit(errOpCodeNotFound)

			break
		}

		gasCost := inst.gas(c.schedule)

		if c.msg.Hook != nil {
			c.captureStep(op, gasCost)
		}

		// check if the depth of the stack is enough for the instruction
		if c.sp < inst.stack {
			c.exit(errStackUnderflow)

			break
		}

		// consume the gas of the instruction
		if !c.consumeGas(gasCost) {
			break
		}

		// execute the instruction
		inst.inst(c)

		// check if stack size exceeds the max size
		if c.sp > stackSize {
			c.exit(errStackOverflow)

			break
		}

		c.ip++
	}

	if err := c.err; err != nil {
		vmerr = err
	}

	return c.ret, vmerr
}

func (c *state) captureStep(op OpCode, gasCost uint64) {
	c.msg.Hook(&runtime.StepInfo{
		Steps:    c.steps,
		PC:       uint64(c.ip),
		Op:       byte(op),
		OpName:   op.String(),
		Gas:      c.gas,
		GasCost:  gasCost,
		Refund:   c.host.GetRefund(),
		Depth:    c.msg.Depth,
		Address:  c.msg.Address,
		Stack:    c.stack[:c.sp],
		Memory:   c.memory,
		Schedule: c.schedule,
	})

	c.steps++
}

func (c *state) inStaticCall() bool {
	return c.msg.Static
}

// exists follows the schedule on whether empty accounts count as existing
func (c *state) exists(addr types.Address) bool {
	if !c.host.AccountExists(addr) {
		return false
	}

	if c.schedule.EmptinessIsNonexistence() {
		return !c.host.Empty(addr)
	}

	return true
}

// accessAccount charges for touching addr: the warm or cold price under
// EIP-2929, the legacy price before it
func (c *state) accessAccount(addr types.Address, legacy uint64) bool {
	if !c.schedule.EIP2929Mode {
		return c.consumeGas(legacy)
	}

	if c.host.AccessAccount(addr) {
		return c.consumeGas(c.schedule.WarmStorageReadCost)
	}

	return c.consumeGas(c.schedule.ColdAccountAccessCost)
}

func bigToHash(b *big.Int) types.Hash {
	return types.BytesToHash(b.Bytes())
}

// bigToAddress keeps the low 20 bytes of the word
func bigToAddress(b *big.Int) types.Address {
	return types.BytesToAddress(b.Bytes())
}
