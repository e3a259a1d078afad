package runtime

import (
	"errors"
	"fmt"
)

// TransactionException is the stable verdict code of an execution
type TransactionException int

const (
	ExceptionNone TransactionException = iota
	ExceptionUnknown
	ExceptionBadRLP
	ExceptionInvalidFormat
	ExceptionOutOfGasIntrinsic
	ExceptionInvalidSignature
	ExceptionInvalidNonce
	ExceptionNotEnoughCash
	ExceptionOutOfGasBase
	ExceptionBlockGasLimitReached
	ExceptionBadInstruction
	ExceptionBadJumpDestination
	ExceptionOutOfGas
	ExceptionOutOfStack
	ExceptionStackUnderflow
	ExceptionRevertInstruction
	ExceptionInvalidZeroSignatureFormat
	ExceptionAddressAlreadyUsed
	ExceptionInvalidSender
	ExceptionExecutionFailed
	ExceptionDisallowedStateChange
	ExceptionBufferOverrun
)

var exceptionNames = map[TransactionException]string{
	ExceptionNone:                       "None",
	ExceptionUnknown:                    "Unknown",
	ExceptionBadRLP:                     "BadRLP",
	ExceptionInvalidFormat:              "InvalidFormat",
	ExceptionOutOfGasIntrinsic:          "OutOfGasIntrinsic",
	ExceptionInvalidSignature:           "InvalidSignature",
	ExceptionInvalidNonce:               "InvalidNonce",
	ExceptionNotEnoughCash:              "NotEnoughCash",
	ExceptionOutOfGasBase:               "OutOfGasBase",
	ExceptionBlockGasLimitReached:       "BlockGasLimitReached",
	ExceptionBadInstruction:             "BadInstruction",
	ExceptionBadJumpDestination:         "BadJumpDestination",
	ExceptionOutOfGas:                   "OutOfGas",
	ExceptionOutOfStack:                 "OutOfStack",
	ExceptionStackUnderflow:             "StackUnderflow",
	ExceptionRevertInstruction:          "RevertInstruction",
	ExceptionInvalidZeroSignatureFormat: "InvalidZeroSignatureFormat",
	ExceptionAddressAlreadyUsed:         "AddressAlreadyUsed",
	ExceptionInvalidSender:              "InvalidSender",
	ExceptionExecutionFailed:            "ExecutionFailed",
	ExceptionDisallowedStateChange:      "DisallowedStateChange",
	ExceptionBufferOverrun:              "BufferOverrun",
}

func (e TransactionException) String() string {
	if name, ok := exceptionNames[e]; ok {
		return name
	}

	return fmt.Sprintf("TransactionException(%d)", int(e))
}

// faultExceptions maps interpreter faults to their verdict code
var faultExceptions = []struct {
	err  error
	code TransactionException
}{
	{ErrExecutionReverted, ExceptionRevertInstruction},
	{ErrOutOfGas, ExceptionOutOfGas},
	{ErrStackOverflow, ExceptionOutOfStack},
	{ErrStackUnderflow, ExceptionStackUnderflow},
	{ErrBadJumpDestination, ExceptionBadJumpDestination},
	{ErrBadInstruction, ExceptionBadInstruction},
	{ErrDisallowedStateChange, ExceptionDisallowedStateChange},
	{ErrBufferOverrun, ExceptionBufferOverrun},
	{ErrAddressAlreadyUsed, ExceptionAddressAlreadyUsed},
}

// ExceptionFor maps an execution error to its verdict code. Errors outside the
// taxonomy map to ExceptionUnknown and ok is false; callers treat those as
// fatal.
func ExceptionFor(err error) (code TransactionException, ok bool) {
	if err == nil {
		return ExceptionNone, true
	}

	var execErr *ExecutionError
	if errors.As(err, &execErr) {
		return execErr.Code, true
	}

	for _, f := range faultExceptions {
		if errors.Is(err, f.err) {
			return f.code, true
		}
	}

	return ExceptionUnknown, false
}

// ExecutionError is a recoverable failure carrying its verdict code
type ExecutionError struct {
	Code TransactionException
	Err  error
}

// NewExecutionError wraps err with the given code
func NewExecutionError(code TransactionException, err error) *ExecutionError {
	return &ExecutionError{Code: code, Err: err}
}

func (e *ExecutionError) Error() string {
	if e.Err == nil {
		return e.Code.String()
	}

	return fmt.Sprintf("%s: %v", e.Code, e.Err)
}

func (e *ExecutionError) Unwrap() error {
	return e.Err
}

// FatalError is a failure past which execution results cannot be trusted
type FatalError struct {
	Err error
}

// NewFatalError wraps err as fatal
func NewFatalError(err error) *FatalError {
	return &FatalError{Err: err}
}

func (e *FatalError) Error() string {
	return fmt.Sprintf("fatal execution error: %v", e.Err)
}

func (e *FatalError) Unwrap() error {
	return e.Err
}

// IsFatal reports whether err, or an error it wraps, is a FatalError
func IsFatal(err error) bool {
	var fatal *FatalError

	return errors.As(err, &fatal)
}
