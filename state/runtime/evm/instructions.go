package evm

import (
	"math"
	"math/big"
	"sync"

	"github.com/rei-network/executive/helper/common"
	"github.com/rei-network/executive/helper/keccak"
	"github.com/rei-network/executive/state/runtime"
	"github.com/rei-network/executive/types"
)

type instruction func(c *state)

var (
	zero     = big.NewInt(0)
	one      = big.NewInt(1)
	big31    = big.NewInt(31)
	wordSize = big.NewInt(32)
)

func opAdd(c *state) {
	a := c.pop()
	b := c.top()

	b.Add(a, b)
	toU256(b)
}

func opMul(c *state) {
	a := c.pop()
	b := c.top()

	b.Mul(a, b)
	toU256(b)
}

func opSub(c *state) {
	a := c.pop()
	b := c.top()

	b.Sub(a, b)
	toU256(b)
}

func opDiv(c *state) {
	a := c.pop()
	b := c.top()

	if b.Sign() == 0 {
		// division by zero
		b.Set(zero)
	} else {
		b.Div(a, b)
		toU256(b)
	}
}

func opSDiv(c *state) {
	a := to256(c.pop())
	b := to256(c.top())

	if b.Sign() == 0 {
		// division by zero
		b.Set(zero)
	} else {
		neg := a.Sign() != b.Sign()
		b.Div(a.Abs(a), b.Abs(b))
		if neg {
			b.Neg(b)
		}
		toU256(b)
	}
}

func opMod(c *state) {
	a := c.pop()
	b := c.top()

	if b.Sign() == 0 {
		// division by zero
		b.Set(zero)
	} else {
		b.Mod(a, b)
		toU256(b)
	}
}

func opSMod(c *state) {
	a := to256(c.pop())
	b := to256(c.top())

	if b.Sign() == 0 {
		b.Set(zero)

		return
	}

	neg := a.Sign() < 0
	b.Mod(a.Abs(a), b.Abs(b))
	if neg {
		b.Neg(b)
	}
	toU256(b)
}

var bigPool = sync.Pool{
	New: func() interface{} {
		return new(big.Int)
	},
}

func acquireBig() *big.Int {
	return bigPool.Get().(*big.Int)
}

func releaseBig(b *big.Int) {
	bigPool.Put(b)
}

func opExp(c *state) {
	x := c.pop()
	y := c.top()

	gas := c.schedule.ExpGas + uint64((y.BitLen()+7)/8)*c.schedule.ExpByteGas
	if !c.consumeGas(gas) {
		return
	}

	y.Exp(x, y, tt256)
}

func opAddMod(c *state) {
	a := c.pop()
	b := c.pop()
	z := c.top()

	if z.Sign() == 0 {
		// divison by zero
		z.Set(zero)
	} else {
		a = a.Add(a, b)
		z = z.Mod(a, z)
		toU256(z)
	}
}

func opMulMod(c *state) {
	a := c.pop()
	b := c.pop()
	z := c.top()

	if z.Sign() == 0 {
		// divison by zero
		z.Set(zero)
	} else {
		a = a.Mul(a, b)
		z = z.Mod(a, z)
		toU256(z)
	}
}

func opAnd(c *state) {
	a := c.pop()
	b := c.top()

	b.And(a, b)
}

func opOr(c *state) {
	a := c.pop()
	b := c.top()

	b.Or(a, b)
}

func opXor(c *state) {
	a := c.pop()
	b := c.top()

	b.Xor(a, b)
}

var opByteMask = big.NewInt(255)

func opByte(c *state) {
	x := c.pop()
	y := c.top()

	if !x.IsUint64() || x.Uint64() > 31 {
		y.Set(zero)
	} else {
		sh := (31 - x.Uint64()) * 8
		y.Rsh(y, uint(sh))
		y.And(y, opByteMask)
	}
}

func opNot(c *state) {
	a := c.top()

	a.Not(a)
	toU256(a)
}

func opIsZero(c *state) {
	a := c.top()

	if a.Sign() == 0 {
		a.Set(one)
	} else {
		a.Set(zero)
	}
}

func opEq(c *state) {
	a := c.pop()
	b := c.top()

	if a.Cmp(b) == 0 {
		b.Set(one)
	} else {
		b.Set(zero)
	}
}

func opLt(c *state) {
	a := c.pop()
	b := c.top()

	if a.Cmp(b) < 0 {
		b.Set(one)
	} else {
		b.Set(zero)
	}
}

func opGt(c *state) {
	a := c.pop()
	b := c.top()

	if a.Cmp(b) > 0 {
		b.Set(one)
	} else {
		b.Set(zero)
	}
}

func opSlt(c *state) {
	a := to256(c.pop())
	b := to256(c.top())

	if a.Cmp(b) < 0 {
		b.Set(one)
	} else {
		b.Set(zero)
	}
}

func opSgt(c *state) {
	a := to256(c.pop())
	b := to256(c.top())

	if a.Cmp(b) > 0 {
		b.Set(one)
	} else {
		b.Set(zero)
	}
}

func opSignExtension(c *state) {
	ext := c.pop()
	x := c.top()

	if ext.Cmp(big31) >= 0 {
		return
	}

	bit := uint(ext.Uint64()*8 + 7)

	mask := acquireBig().Set(one)

	mask.Lsh(mask, bit)
	mask.Sub(mask, one)

	if x.Bit(int(bit)) > 0 {
		mask.Not(mask)
		x.Or(x, mask)
	} else {
		x.And(x, mask)
	}
	toU256(x)

	releaseBig(mask)
}

func equalOrOverflowsUint256(b *big.Int) bool {
	return b.BitLen() > 8
}

func opShl(c *state) {
	shift := c.pop()
	value := c.top()

	if equalOrOverflowsUint256(shift) {
		value.Set(zero)
	} else {
		value.Lsh(value, uint(shift.Uint64()))
		toU256(value)
	}
}

func opShr(c *state) {
	shift := c.pop()
	value := c.top()

	if equalOrOverflowsUint256(shift) {
		value.Set(zero)
	} else {
		value.Rsh(value, uint(shift.Uint64()))
		toU256(value)
	}
}

func opSar(c *state) {
	shift := c.pop()
	value := to256(c.top())

	if equalOrOverflowsUint256(shift) {
		if value.Sign() >= 0 {
			value.Set(zero)
		} else {
			value.Set(tt256m1)
		}
	} else {
		value.Rsh(value, uint(shift.Uint64()))
		toU256(value)
	}
}

// memory operations

var bufPool = sync.Pool{
	New: func() interface{} {
		return make([]byte, 128)
	},
}

func opMload(c *state) {
	offset := c.pop()

	buf := bufPool.Get().([]byte)

	var ok bool
	buf, ok = c.get2(buf[:0], offset, wordSize)
	if !ok {
		return
	}

	c.push1().SetBytes(buf)
	bufPool.Put(buf)
}

func opMStore(c *state) {
	offset := c.pop()
	val := c.pop()

	if !c.checkMemory(offset, wordSize) {
		return
	}

	o := offset.Uint64()
	val.FillBytes(c.memory[o : o+32])
}

func opMStore8(c *state) {
	offset := c.pop()
	val := c.pop()

	if !c.checkMemory(offset, one) {
		return
	}

	var b byte
	if words := val.Bits(); len(words) > 0 {
		b = byte(words[0])
	}

	c.memory[offset.Uint64()] = b
}

// --- storage ---

func opSload(c *state) {
	loc := c.top()
	key := bigToHash(loc)

	gas := c.schedule.SloadGas
	if c.schedule.EIP2929Mode {
		if c.host.AccessStorage(c.msg.Address, key) {
			gas = c.schedule.WarmStorageReadCost
		} else {
			gas = c.schedule.ColdSloadCost
		}
	}

	if !c.consumeGas(gas) {
		return
	}

	val := c.host.GetStorage(c.msg.Address, key)
	loc.SetBytes(val.Bytes())
}

func opSStore(c *state) {
	if c.inStaticCall() {
		c.exit(errReadOnly)

		return
	}

	s := c.schedule

	if s.SstoreThrowsIfGasBelowCallStipend() && c.gas <= s.CallStipend {
		c.exit(errOutOfGas)

		return
	}

	address := c.msg.Address
	key := c.popHash()
	value := c.popHash()

	var gas uint64

	if s.EIP2929Mode && !c.host.AccessStorage(address, key) {
		gas = s.ColdSloadCost
	}

	current := c.host.GetStorage(address, key)

	var (
		cost   uint64
		refund int64
	)

	if s.SstoreNetGasMetering() {
		cost, refund = netSstoreGas(s, current, value, func() types.Hash {
			return c.host.GetOriginalStorage(address, key)
		})
	} else {
		cost, refund = legacySstoreGas(s, current, value)
	}

	if !c.consumeGas(gas + cost) {
		return
	}

	if refund != 0 {
		c.host.AddRefund(refund)
	}

	c.host.SetStorage(address, key, value)
}

func opSha3(c *state) {
	offset := c.pop()
	length := c.pop()

	if !c.checkMemory(offset, length) {
		return
	}

	size := length.Uint64()
	if !c.consumeGas(c.schedule.Sha3Gas + ((size+31)/32)*c.schedule.Sha3WordGas) {
		return
	}

	var ok bool
	if c.tmp, ok = c.get2(c.tmp[:0], offset, length); !ok {
		return
	}

	c.push1().SetBytes(keccak.Keccak256(nil, c.tmp))
}

func opPop(c *state) {
	c.pop()
}

// context operations

func opAddress(c *state) {
	c.push1().SetBytes(c.msg.Address.Bytes())
}

func opBalance(c *state) {
	addr, _ := c.popAddr()

	if !c.accessAccount(addr, c.schedule.BalanceGas) {
		return
	}

	c.push1().Set(c.host.GetBalance(addr))
}

func opSelfBalance(c *state) {
	c.push1().Set(c.host.GetBalance(c.msg.Address))
}

func opOrigin(c *state) {
	c.push1().SetBytes(c.msg.Origin.Bytes())
}

func opCaller(c *state) {
	c.push1().SetBytes(c.msg.Caller.Bytes())
}

func opCallValue(c *state) {
	v := c.push1()
	if value := c.msg.Value; value != nil {
		v.Set(value)
	} else {
		v.Set(zero)
	}
}

func opCallDataLoad(c *state) {
	offset := c.top()

	buf := bufPool.Get().([]byte)
	buf = common.ExtendByteSlice(buf, 32)
	c.setBytes(buf[:32], c.msg.Input, 32, offset)
	offset.SetBytes(buf[:32])
	bufPool.Put(buf)
}

func opCallDataSize(c *state) {
	c.push1().SetUint64(uint64(len(c.msg.Input)))
}

func opCodeSize(c *state) {
	c.push1().SetUint64(uint64(len(c.code)))
}

func opExtCodeSize(c *state) {
	addr, _ := c.popAddr()

	if !c.accessAccount(addr, c.schedule.ExtcodesizeGas) {
		return
	}

	c.push1().SetUint64(uint64(c.host.GetCodeSize(addr)))
}

func opGasPrice(c *state) {
	v := c.push1()
	if price := c.host.GetTxContext().GasPrice; price != nil {
		v.Set(price)
	} else {
		v.Set(zero)
	}
}

func opReturnDataSize(c *state) {
	c.push1().SetUint64(uint64(len(c.returnData)))
}

func opExtCodeHash(c *state) {
	address, _ := c.popAddr()

	if !c.accessAccount(address, c.schedule.ExtcodehashGas) {
		return
	}

	v := c.push1()
	if !c.exists(address) {
		v.Set(zero)
	} else {
		v.SetBytes(c.host.GetCodeHash(address).Bytes())
	}
}

func opPC(c *state) {
	c.push1().SetUint64(uint64(c.ip))
}

func opMSize(c *state) {
	c.push1().SetUint64(uint64(len(c.memory)))
}

func opGas(c *state) {
	c.push1().SetUint64(c.gas)
}

func opExtCodeCopy(c *state) {
	address, _ := c.popAddr()
	memOffset := c.pop()
	codeOffset := c.pop()
	length := c.pop()

	if !c.accessAccount(address, c.schedule.ExtcodecopyGas) {
		return
	}

	if !c.checkMemory(memOffset, length) {
		return
	}

	size := length.Uint64()
	if !c.consumeCopyGas(size) {
		return
	}

	if size != 0 {
		code := c.host.GetCode(address)
		c.setBytes(c.memory[memOffset.Uint64():], code, size, codeOffset)
	}
}

func opCallDataCopy(c *state) {
	memOffset := c.pop()
	dataOffset := c.pop()
	length := c.pop()

	if !c.checkMemory(memOffset, length) {
		return
	}

	size := length.Uint64()
	if !c.consumeCopyGas(size) {
		return
	}

	if size != 0 {
		c.setBytes(c.memory[memOffset.Uint64():], c.msg.Input, size, dataOffset)
	}
}

func opReturnDataCopy(c *state) {
	memOffset := c.pop()
	dataOffset := c.pop()
	length := c.pop()

	if !c.checkMemory(memOffset, length) {
		return
	}

	size := length.Uint64()
	if !c.consumeCopyGas(size) {
		return
	}

	end := new(big.Int).Add(dataOffset, length)
	if !end.IsUint64() || uint64(len(c.returnData)) < end.Uint64() {
		c.exit(errReturnBadSize)

		return
	}

	if size != 0 {
		data := c.returnData[dataOffset.Uint64():end.Uint64()]
		copy(c.memory[memOffset.Uint64():], data)
	}
}

func opCodeCopy(c *state) {
	memOffset := c.pop()
	dataOffset := c.pop()
	length := c.pop()

	if !c.checkMemory(memOffset, length) {
		return
	}

	size := length.Uint64()
	if !c.consumeCopyGas(size) {
		return
	}

	if size != 0 {
		c.setBytes(c.memory[memOffset.Uint64():], c.code, size, dataOffset)
	}
}

// block information

func opBlockHash(c *state) {
	num := c.top()

	if !c.consumeGas(c.schedule.BlockhashGas) {
		return
	}

	if !num.IsUint64() {
		num.Set(zero)

		return
	}

	n := num.Uint64()
	lastBlock := c.host.GetTxContext().Number

	lower := uint64(0)
	if lastBlock > 256 {
		lower = lastBlock - 256
	}

	if n >= lower && n < lastBlock {
		num.SetBytes(c.host.GetBlockHash(n).Bytes())
	} else {
		num.Set(zero)
	}
}

func opCoinbase(c *state) {
	c.push1().SetBytes(c.host.GetTxContext().Coinbase.Bytes())
}

func opTimestamp(c *state) {
	c.push1().SetUint64(c.host.GetTxContext().Timestamp)
}

func opNumber(c *state) {
	c.push1().SetUint64(c.host.GetTxContext().Number)
}

func opDifficulty(c *state) {
	v := c.push1()
	if d := c.host.GetTxContext().Difficulty; d != nil {
		v.Set(d)
		toU256(v)
	} else {
		v.Set(zero)
	}
}

func opGasLimit(c *state) {
	c.push1().SetUint64(c.host.GetTxContext().GasLimit)
}

func opChainID(c *state) {
	c.push1().SetUint64(c.host.GetTxContext().ChainID)
}

func opSelfDestruct(c *state) {
	if c.inStaticCall() {
		c.exit(errReadOnly)

		return
	}

	address, _ := c.popAddr()

	s := c.schedule
	gas := s.SelfdestructGas

	// EIP150 homestead gas reprice fork:
	if s.EIP150Mode {
		if s.ZeroValueTransferChargesNewAccountGas() {
			if !c.exists(address) {
				gas += s.CallNewAccountGas
			}
		} else if c.host.GetBalance(c.msg.Address).Sign() > 0 && !c.exists(address) {
			gas += s.CallNewAccountGas
		}
	}

	if s.EIP2929Mode && !c.host.AccessAccount(address) {
		gas += s.ColdAccountAccessCost
	}

	if !c.consumeGas(gas) {
		return
	}

	c.host.Selfdestruct(c.msg.Address, address)
	c.halt()
}

func opJump(c *state) {
	dest := c.pop()

	if c.validJumpdest(dest) {
		c.ip = int(dest.Uint64() - 1)
	} else {
		c.exit(errInvalidJump)
	}
}

func opJumpi(c *state) {
	dest := c.pop()
	cond := c.pop()

	if cond.Sign() != 0 {
		if c.validJumpdest(dest) {
			c.ip = int(dest.Uint64() - 1)
		} else {
			c.exit(errInvalidJump)
		}
	}
}

func opJumpDest(c *state) {
}

func opPush(n int) instruction {
	return func(c *state) {
		ins := c.code
		ip := c.ip

		v := c.push1()
		if ip+1+n > len(ins) {
			v.SetBytes(common.RightPadBytes(ins[ip+1:], n))
		} else {
			v.SetBytes(ins[ip+1 : ip+1+n])
		}

		c.ip += n
	}
}

func opDup(n int) instruction {
	return func(c *state) {
		if !c.stackAtLeast(n) {
			c.exit(errStackUnderflow)
		} else {
			val := c.peekAt(n)
			c.push1().Set(val)
		}
	}
}

func opSwap(n int) instruction {
	return func(c *state) {
		if !c.stackAtLeast(n + 1) {
			c.exit(errStackUnderflow)
		} else {
			c.swap(n)
		}
	}
}

func opLog(size int) instruction {
	size = size - 1

	return func(c *state) {
		if c.inStaticCall() {
			c.exit(errReadOnly)

			return
		}

		if !c.stackAtLeast(2 + size) {
			c.exit(errStackUnderflow)

			return
		}

		mStart := c.pop()
		mSize := c.pop()

		topics := make([]types.Hash, size)
		for i := 0; i < size; i++ {
			topics[i] = c.popHash()
		}

		if !c.checkMemory(mStart, mSize) {
			return
		}

		s := c.schedule
		if !c.consumeGas(s.LogGas + uint64(size)*s.LogTopicGas + mSize.Uint64()*s.LogDataGas) {
			return
		}

		data, _ := c.get2(nil, mStart, mSize)
		c.host.EmitLog(c.msg.Address, topics, data)
	}
}

func opStop(c *state) {
	c.halt()
}

func opCreate(op OpCode) instruction {
	return func(c *state) {
		if c.inStaticCall() {
			c.exit(errReadOnly)

			return
		}

		c.resetReturnData()

		contract := c.buildCreateContract(op)
		if contract == nil {
			return
		}

		v := c.push1()

		if !c.canTransfer(contract.Value) || !c.canCreate() {
			v.Set(zero)
			c.gas += contract.Gas

			return
		}

		result := c.host.Callx(contract)
		if runtime.IsFatal(result.Err) {
			c.exit(result.Err)

			return
		}

		if result.Succeeded() {
			v.SetBytes(result.Address.Bytes())
		} else {
			v.Set(zero)
		}

		c.gas += result.GasLeft

		if result.Reverted() {
			c.returnData = append(c.returnData[:0], result.ReturnValue...)
		}
	}
}

// canTransfer checks the depth limit and that the contract holds value
func (c *state) canTransfer(value *big.Int) bool {
	if c.msg.Depth >= maxCallDepth {
		return false
	}

	if value == nil || value.Sign() == 0 {
		return true
	}

	return c.host.GetBalance(c.msg.Address).Cmp(value) >= 0
}

func (c *state) canCreate() bool {
	if !c.schedule.EIP2681Mode {
		return true
	}

	return c.host.GetNonce(c.msg.Address) < math.MaxUint64
}

func opCall(op OpCode) instruction {
	return func(c *state) {
		c.resetReturnData()

		if op == CALL && c.inStaticCall() {
			if val := c.peekAt(3); val != nil && val.BitLen() > 0 {
				c.exit(errReadOnly)

				return
			}
		}

		var callType runtime.CallType

		switch op {
		case CALL:
			callType = runtime.Call

		case CALLCODE:
			callType = runtime.CallCode

		case DELEGATECALL:
			callType = runtime.DelegateCall

		case STATICCALL:
			callType = runtime.StaticCall

		default:
			c.exit(runtime.NewFatalError(runtime.ErrInternal))

			return
		}

		contract, retOffset, retSize := c.buildCallContract(op)
		if contract == nil {
			return
		}

		contract.Type = callType

		v := c.push1()

		var transfer *big.Int
		if op == CALL || op == CALLCODE {
			transfer = contract.Value
		}

		if !c.canTransfer(transfer) {
			v.Set(zero)
			c.gas += contract.Gas

			return
		}

		result := c.host.Callx(contract)
		if runtime.IsFatal(result.Err) {
			c.exit(result.Err)

			return
		}

		if result.Succeeded() {
			v.Set(one)
		} else {
			v.Set(zero)
		}

		if retSize > 0 && len(result.ReturnValue) > 0 {
			copy(c.memory[retOffset:retOffset+retSize], result.ReturnValue)
		}

		c.gas += result.GasLeft
		c.returnData = append(c.returnData[:0], result.ReturnValue...)
	}
}

func (c *state) buildCallContract(op OpCode) (*runtime.Contract, uint64, uint64) {
	// Pop input arguments
	initialGas := new(big.Int).Set(c.pop())
	addr, _ := c.popAddr()

	var value *big.Int
	if op == CALL || op == CALLCODE {
		value = new(big.Int).Set(c.pop())
	}

	// input range
	inOffset := c.pop()
	inSize := c.pop()

	// output range
	retOffset := c.pop()
	retSize := c.pop()

	// Memory cost needs to consider both input and output resizes
	in := calcMemSize(inOffset, inSize)
	ret := calcMemSize(retOffset, retSize)

	max := in
	if in.Cmp(ret) < 0 {
		max = ret
	}

	if !c.checkMemory(zero, max) {
		return nil, 0, 0
	}

	args, _ := c.get2(nil, inOffset, inSize)

	s := c.schedule
	transfersValue := value != nil && value.Sign() != 0

	var gasCost uint64

	if s.EIP2929Mode {
		if c.host.AccessAccount(addr) {
			gasCost = s.WarmStorageReadCost
		} else {
			gasCost = s.ColdAccountAccessCost
		}
	} else {
		gasCost = s.CallGas
	}

	if op == CALL {
		if s.ZeroValueTransferChargesNewAccountGas() {
			if !c.exists(addr) {
				gasCost += s.CallNewAccountGas
			}
		} else if transfersValue && !c.exists(addr) {
			gasCost += s.CallNewAccountGas
		}
	}

	if transfersValue {
		gasCost += s.CallValueTransferGas
	}

	if !c.consumeGas(gasCost) {
		return nil, 0, 0
	}

	gas, ok := callGas(s.StaticCallDepthLimit(), c.gas, initialGas)
	if !ok {
		c.exit(errOutOfGas)

		return nil, 0, 0
	}

	if !c.consumeGas(gas) {
		return nil, 0, 0
	}

	if transfersValue {
		gas += s.CallStipend
	}

	parent := c.msg

	contract := runtime.NewContractCall(parent.Depth+1, parent.Origin, parent.Address, addr, value, gas, nil, args)
	contract.Hook = parent.Hook

	if op == STATICCALL || parent.Static {
		contract.Static = true
	}

	if op == CALLCODE || op == DELEGATECALL {
		contract.Address = parent.Address
		if op == DELEGATECALL {
			contract.Value = parent.Value
			contract.Caller = parent.Caller
		}
	}

	if retSize.Sign() == 0 {
		return contract, 0, 0
	}

	return contract, retOffset.Uint64(), retSize.Uint64()
}

// callGas is the gas handed to a child call. Under EIP150 all but one 64th
// of the available gas caps the request, before it the request must fit.
func callGas(staticDepthLimit bool, availableGas uint64, requested *big.Int) (uint64, bool) {
	if !staticDepthLimit {
		gas := availableGas - availableGas/64
		if !requested.IsUint64() || gas < requested.Uint64() {
			return gas, true
		}
	}

	if !requested.IsUint64() || requested.Uint64() > availableGas {
		return 0, false
	}

	return requested.Uint64(), true
}

func (c *state) buildCreateContract(op OpCode) *runtime.Contract {
	// Pop input arguments
	value := new(big.Int).Set(c.pop())
	offset := c.pop()
	length := c.pop()

	var salt types.Hash
	if op == CREATE2 {
		salt = c.popHash()
	}

	if !c.checkMemory(offset, length) {
		return nil
	}

	gasCost := c.schedule.CreateGas
	if op == CREATE2 {
		gasCost += ((length.Uint64() + 31) / 32) * c.schedule.Sha3WordGas
	}

	if !c.consumeGas(gasCost) {
		return nil
	}

	input, _ := c.get2(nil, offset, length)

	// Calculate and consume gas for the call
	gas := c.gas

	if !c.schedule.StaticCallDepthLimit() {
		gas -= gas / 64
	}

	if !c.consumeGas(gas) {
		return nil
	}

	contract := runtime.NewContractCreation(c.msg.Depth+1, c.msg.Origin, c.msg.Address, value, gas, input)
	contract.Hook = c.msg.Hook

	if op == CREATE2 {
		contract.Type = runtime.Create2
		contract.Salt = salt
	}

	return contract
}

func opHalt(op OpCode) instruction {
	return func(c *state) {
		offset := c.pop()
		size := c.pop()

		var ok bool
		c.ret, ok = c.get2(c.ret[:0], offset, size)

		if !ok {
			return
		}

		if op == REVERT {
			c.exit(errRevert)
		} else {
			c.halt()
		}
	}
}

var (
	tt256   = new(big.Int).Lsh(big.NewInt(1), 256)   // 2 ** 256
	tt256m1 = new(big.Int).Sub(tt256, big.NewInt(1)) // 2 ** 256 - 1
)

func toU256(x *big.Int) *big.Int {
	if x.Sign() < 0 || x.BitLen() > 256 {
		x.And(x, tt256m1)
	}

	return x
}

func to256(x *big.Int) *big.Int {
	if x.BitLen() > 255 {
		x.Sub(x, tt256)
	}

	return x
}
