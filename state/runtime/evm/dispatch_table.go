package evm

import (
	"github.com/rei-network/executive/chain"
)

type handler struct {
	inst  instruction
	stack int
	gas   func(s *chain.Schedule) uint64

	// enabled reports whether the schedule knows the opcode
	enabled func(s *chain.Schedule) bool
}

var dispatchTable [256]handler

func tierGas(t chain.Tier) func(s *chain.Schedule) uint64 {
	return func(s *chain.Schedule) uint64 {
		return s.TierStepGas[t]
	}
}

func register(op OpCode, h handler) {
	if dispatchTable[op].inst != nil {
		panic("instruction already registered")
	}

	if h.gas == nil {
		h.gas = tierGas(chain.TierZero)
	}

	dispatchTable[op] = h
}

func registerRange(from, to OpCode, factory func(n int) instruction, gas func(s *chain.Schedule) uint64, stack func(n int) int) {
	c := 1
	for i := from; i <= to; i++ {
		register(i, handler{inst: factory(c), stack: stack(c), gas: gas})
		c++
	}
}

func init() {
	veryLow := tierGas(chain.TierVeryLow)
	low := tierGas(chain.TierLow)
	base := tierGas(chain.TierBase)
	mid := tierGas(chain.TierMid)

	register(STOP, handler{inst: opStop})

	// arithmetic
	register(ADD, handler{inst: opAdd, stack: 2, gas: veryLow})
	register(MUL, handler{inst: opMul, stack: 2, gas: low})
	register(SUB, handler{inst: opSub, stack: 2, gas: veryLow})
	register(DIV, handler{inst: opDiv, stack: 2, gas: low})
	register(SDIV, handler{inst: opSDiv, stack: 2, gas: low})
	register(MOD, handler{inst: opMod, stack: 2, gas: low})
	register(SMOD, handler{inst: opSMod, stack: 2, gas: low})
	register(ADDMOD, handler{inst: opAddMod, stack: 3, gas: mid})
	register(MULMOD, handler{inst: opMulMod, stack: 3, gas: mid})
	register(EXP, handler{inst: opExp, stack: 2})
	register(SIGNEXTEND, handler{inst: opSignExtension, stack: 2, gas: low})

	// comparison and bitwise
	register(LT, handler{inst: opLt, stack: 2, gas: veryLow})
	register(GT, handler{inst: opGt, stack: 2, gas: veryLow})
	register(SLT, handler{inst: opSlt, stack: 2, gas: veryLow})
	register(SGT, handler{inst: opSgt, stack: 2, gas: veryLow})
	register(EQ, handler{inst: opEq, stack: 2, gas: veryLow})
	register(ISZERO, handler{inst: opIsZero, stack: 1, gas: veryLow})
	register(AND, handler{inst: opAnd, stack: 2, gas: veryLow})
	register(OR, handler{inst: opOr, stack: 2, gas: veryLow})
	register(XOR, handler{inst: opXor, stack: 2, gas: veryLow})
	register(NOT, handler{inst: opNot, stack: 1, gas: veryLow})
	register(BYTE, handler{inst: opByte, stack: 2, gas: veryLow})

	shifting := func(s *chain.Schedule) bool { return s.HaveBitwiseShifting }
	register(SHL, handler{inst: opShl, stack: 2, gas: veryLow, enabled: shifting})
	register(SHR, handler{inst: opShr, stack: 2, gas: veryLow, enabled: shifting})
	register(SAR, handler{inst: opSar, stack: 2, gas: veryLow, enabled: shifting})

	register(SHA3, handler{inst: opSha3, stack: 2})

	// context
	register(ADDRESS, handler{inst: opAddress, gas: base})
	register(BALANCE, handler{inst: opBalance, stack: 1})
	register(ORIGIN, handler{inst: opOrigin, gas: base})
	register(CALLER, handler{inst: opCaller, gas: base})
	register(CALLVALUE, handler{inst: opCallValue, gas: base})
	register(CALLDATALOAD, handler{inst: opCallDataLoad, stack: 1, gas: veryLow})
	register(CALLDATASIZE, handler{inst: opCallDataSize, gas: base})
	register(CALLDATACOPY, handler{inst: opCallDataCopy, stack: 3, gas: veryLow})
	register(CODESIZE, handler{inst: opCodeSize, gas: base})
	register(CODECOPY, handler{inst: opCodeCopy, stack: 3, gas: veryLow})
	register(GASPRICE, handler{inst: opGasPrice, gas: base})
	register(EXTCODESIZE, handler{inst: opExtCodeSize, stack: 1})
	register(EXTCODECOPY, handler{inst: opExtCodeCopy, stack: 4})

	returnData := func(s *chain.Schedule) bool { return s.HaveReturnData }
	register(RETURNDATASIZE, handler{inst: opReturnDataSize, gas: base, enabled: returnData})
	register(RETURNDATACOPY, handler{inst: opReturnDataCopy, stack: 3, gas: veryLow, enabled: returnData})
	register(EXTCODEHASH, handler{
		inst:    opExtCodeHash,
		stack:   1,
		enabled: func(s *chain.Schedule) bool { return s.HaveExtcodehash },
	})

	// block information
	register(BLOCKHASH, handler{inst: opBlockHash, stack: 1})
	register(COINBASE, handler{inst: opCoinbase, gas: base})
	register(TIMESTAMP, handler{inst: opTimestamp, gas: base})
	register(NUMBER, handler{inst: opNumber, gas: base})
	register(DIFFICULTY, handler{inst: opDifficulty, gas: base})
	register(GASLIMIT, handler{inst: opGasLimit, gas: base})
	register(CHAINID, handler{
		inst:    opChainID,
		gas:     base,
		enabled: func(s *chain.Schedule) bool { return s.HaveChainID },
	})
	register(SELFBALANCE, handler{
		inst:    opSelfBalance,
		gas:     low,
		enabled: func(s *chain.Schedule) bool { return s.HaveSelfbalance },
	})

	// stack, memory, storage and flow
	register(POP, handler{inst: opPop, stack: 1, gas: base})
	register(MLOAD, handler{inst: opMload, stack: 1, gas: veryLow})
	register(MSTORE, handler{inst: opMStore, stack: 2, gas: veryLow})
	register(MSTORE8, handler{inst: opMStore8, stack: 2, gas: veryLow})
	register(SLOAD, handler{inst: opSload, stack: 1})
	register(SSTORE, handler{inst: opSStore, stack: 2})
	register(JUMP, handler{inst: opJump, stack: 1, gas: mid})
	register(JUMPI, handler{inst: opJumpi, stack: 2, gas: tierGas(chain.TierHigh)})
	register(PC, handler{inst: opPC, gas: base})
	register(MSIZE, handler{inst: opMSize, gas: base})
	register(GAS, handler{inst: opGas, gas: base})
	register(JUMPDEST, handler{
		inst: opJumpDest,
		gas:  func(s *chain.Schedule) uint64 { return s.JumpdestGas },
	})

	registerRange(PUSH1, PUSH32, opPush, veryLow, func(int) int { return 0 })
	registerRange(DUP1, DUP16, opDup, veryLow, func(n int) int { return n })
	registerRange(SWAP1, SWAP16, opSwap, veryLow, func(n int) int { return n + 1 })
	registerRange(LOG0, LOG4, opLog, nil, func(n int) int { return n + 1 })

	// system
	register(CREATE, handler{inst: opCreate(CREATE), stack: 3})
	register(CALL, handler{inst: opCall(CALL), stack: 7})
	register(CALLCODE, handler{inst: opCall(CALLCODE), stack: 7})
	register(RETURN, handler{inst: opHalt(RETURN), stack: 2})
	register(DELEGATECALL, handler{
		inst:    opCall(DELEGATECALL),
		stack:   6,
		enabled: func(s *chain.Schedule) bool { return s.HaveDelegateCall },
	})
	register(CREATE2, handler{
		inst:    opCreate(CREATE2),
		stack:   4,
		enabled: func(s *chain.Schedule) bool { return s.HaveCreate2 },
	})
	register(STATICCALL, handler{
		inst:    opCall(STATICCALL),
		stack:   6,
		enabled: func(s *chain.Schedule) bool { return s.HaveStaticCall },
	})
	register(REVERT, handler{
		inst:    opHalt(REVERT),
		stack:   2,
		enabled: func(s *chain.Schedule) bool { return s.HaveRevert },
	})
	register(SELFDESTRUCT, handler{inst: opSelfDestruct, stack: 1})
}
