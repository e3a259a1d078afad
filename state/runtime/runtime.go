package runtime

import (
	"errors"
	"math/big"

	"github.com/rei-network/executive/chain"
	"github.com/rei-network/executive/types"
)

// TxContext is the context of the transaction
type TxContext struct {
	GasPrice   *big.Int
	Origin     types.Address
	Coinbase   types.Address
	Number     uint64
	Timestamp  uint64
	GasLimit   uint64
	ChainID    uint64
	Difficulty *big.Int
}

// Host is the execution host. Warmth accessors report whether the target was
// already warm before the access.
type Host interface {
	AccountExists(addr types.Address) bool
	Empty(addr types.Address) bool
	GetBalance(addr types.Address) *big.Int
	GetNonce(addr types.Address) uint64
	GetCodeSize(addr types.Address) int
	GetCodeHash(addr types.Address) types.Hash
	GetCode(addr types.Address) []byte
	GetStorage(addr types.Address, key types.Hash) types.Hash
	GetOriginalStorage(addr types.Address, key types.Hash) types.Hash
	SetStorage(addr types.Address, key types.Hash, value types.Hash)
	AccessAccount(addr types.Address) bool
	AccessStorage(addr types.Address, key types.Hash) bool
	Selfdestruct(addr types.Address, beneficiary types.Address)
	EmitLog(addr types.Address, topics []types.Hash, data []byte)
	AddRefund(delta int64)
	GetRefund() int64
	GetBlockHash(number uint64) types.Hash
	GetTxContext() TxContext
	Callx(c *Contract) *ExecutionResult
}

// ExecutionResult includes all output after executing given evm
// message no matter the execution itself is successful or not.
type ExecutionResult struct {
	ReturnValue []byte        // Returned data from the runtime (function result or data supplied with revert opcode)
	GasLeft     uint64        // Total gas left as result of execution
	Address     types.Address // Address of the created contract, if any
	Err         error         // Any error encountered during the execution, listed below
}

func (r *ExecutionResult) Succeeded() bool { return r.Err == nil }
func (r *ExecutionResult) Failed() bool    { return r.Err != nil }
func (r *ExecutionResult) Reverted() bool  { return errors.Is(r.Err, ErrExecutionReverted) }

var (
	ErrOutOfGas              = errors.New("out of gas")
	ErrStackOverflow         = errors.New("stack overflow")
	ErrStackUnderflow        = errors.New("stack underflow")
	ErrBadJumpDestination    = errors.New("invalid jump destination")
	ErrBadInstruction        = errors.New("invalid opcode")
	ErrDisallowedStateChange = errors.New("state change in static call")
	ErrBufferOverrun         = errors.New("return data out of bounds")
	ErrExecutionReverted     = errors.New("execution was reverted")
	ErrAddressAlreadyUsed    = errors.New("contract address collision")
	ErrInternal              = errors.New("internal interpreter error")
)

type CallType int

const (
	Call CallType = iota
	CallCode
	DelegateCall
	StaticCall
	Create
	Create2
)

func (t CallType) String() string {
	switch t {
	case Call:
		return "CALL"
	case CallCode:
		return "CALLCODE"
	case DelegateCall:
		return "DELEGATECALL"
	case StaticCall:
		return "STATICCALL"
	case Create:
		return "CREATE"
	case Create2:
		return "CREATE2"
	default:
		return "UNKNOWN"
	}
}

// IsCreate reports whether the call type deploys code
func (t CallType) IsCreate() bool {
	return t == Create || t == Create2
}

// StepInfo describes the instruction the interpreter is about to execute
type StepInfo struct {
	Steps    uint64
	PC       uint64
	Op       byte
	OpName   string
	Gas      uint64
	GasCost  uint64
	Refund   int64
	Depth    int
	Address  types.Address
	Stack    []*big.Int
	Memory   []byte
	Schedule *chain.Schedule
}

// StepHook is called before every instruction
type StepHook func(info *StepInfo)

// Runtime can process contracts
type Runtime interface {
	Run(c *Contract, host Host, schedule *chain.Schedule) *ExecutionResult
	Name() string
}

// Contract is the instance being called
type Contract struct {
	Code        []byte
	CodeHash    types.Hash
	Version     uint64
	Type        CallType
	CodeAddress types.Address
	Address     types.Address
	Origin      types.Address
	Caller      types.Address
	Depth       int
	Value       *big.Int
	Input       []byte
	Gas         uint64
	Static      bool
	Salt        types.Hash

	// Hook is called before every instruction when set
	Hook StepHook
}

func NewContract(
	depth int,
	origin types.Address,
	from types.Address,
	to types.Address,
	value *big.Int,
	gas uint64,
	code []byte,
) *Contract {
	f := &Contract{
		Caller:      from,
		Origin:      origin,
		CodeAddress: to,
		Address:     to,
		Gas:         gas,
		Value:       value,
		Code:        code,
		Depth:       depth,
	}

	return f
}

func NewContractCreation(
	depth int,
	origin types.Address,
	from types.Address,
	value *big.Int,
	gas uint64,
	code []byte,
) *Contract {
	c := NewContract(depth, origin, from, types.ZeroAddress, value, gas, code)
	c.Type = Create

	return c
}

func NewContractCall(
	depth int,
	origin types.Address,
	from types.Address,
	to types.Address,
	value *big.Int,
	gas uint64,
	code []byte,
	input []byte,
) *Contract {
	c := NewContract(depth, origin, from, to, value, gas, code)
	c.Input = input

	return c
}
