package runtime

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExceptionFor(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		err  error
		code TransactionException
		ok   bool
	}{
		{"nil", nil, ExceptionNone, true},
		{"out of gas", ErrOutOfGas, ExceptionOutOfGas, true},
		{"wrapped out of gas", fmt.Errorf("sstore: %w", ErrOutOfGas), ExceptionOutOfGas, true},
		{"revert", ErrExecutionReverted, ExceptionRevertInstruction, true},
		{"stack overflow", ErrStackOverflow, ExceptionOutOfStack, true},
		{"stack underflow", ErrStackUnderflow, ExceptionStackUnderflow, true},
		{"bad jump", ErrBadJumpDestination, ExceptionBadJumpDestination, true},
		{"bad instruction", ErrBadInstruction, ExceptionBadInstruction, true},
		{"static", ErrDisallowedStateChange, ExceptionDisallowedStateChange, true},
		{"overrun", ErrBufferOverrun, ExceptionBufferOverrun, true},
		{"collision", ErrAddressAlreadyUsed, ExceptionAddressAlreadyUsed, true},
		{
			"execution error",
			NewExecutionError(ExceptionInvalidNonce, errors.New("expected 1, got 2")),
			ExceptionInvalidNonce,
			true,
		},
		{"foreign", errors.New("boom"), ExceptionUnknown, false},
		{"internal", ErrInternal, ExceptionUnknown, false},
	}

	for _, c := range cases {
		c := c

		t.Run(c.name, func(t *testing.T) {
			t.Parallel()

			code, ok := ExceptionFor(c.err)
			assert.Equal(t, c.code, code)
			assert.Equal(t, c.ok, ok)
		})
	}
}

func TestTransactionException_String(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "None", ExceptionNone.String())
	assert.Equal(t, "AddressAlreadyUsed", ExceptionAddressAlreadyUsed.String())
	assert.Equal(t, "TransactionException(999)", TransactionException(999).String())

	// every declared code has a name
	for code := ExceptionNone; code <= ExceptionBufferOverrun; code++ {
		_, ok := exceptionNames[code]
		assert.True(t, ok, "code %d", int(code))
	}
}

func TestExecutionError(t *testing.T) {
	t.Parallel()

	inner := errors.New("required 10, available 5")
	err := fmt.Errorf("initialize: %w", NewExecutionError(ExceptionNotEnoughCash, inner))

	require.ErrorIs(t, err, inner)
	assert.Contains(t, err.Error(), "NotEnoughCash")

	var execErr *ExecutionError
	require.ErrorAs(t, err, &execErr)
	assert.Equal(t, ExceptionNotEnoughCash, execErr.Code)

	assert.Equal(t, "OutOfGasBase", NewExecutionError(ExceptionOutOfGasBase, nil).Error())
}

func TestFatalError(t *testing.T) {
	t.Parallel()

	err := fmt.Errorf("go: %w", NewFatalError(ErrInternal))

	assert.True(t, IsFatal(err))
	assert.ErrorIs(t, err, ErrInternal)
	assert.False(t, IsFatal(ErrOutOfGas))
}

func TestCallType(t *testing.T) {
	t.Parallel()

	assert.True(t, Create.IsCreate())
	assert.True(t, Create2.IsCreate())
	assert.False(t, DelegateCall.IsCreate())
	assert.Equal(t, "STATICCALL", StaticCall.String())
}
