package precompiled

import (
	"errors"
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rei-network/executive/chain"
	"github.com/rei-network/executive/types"
)

func TestEstimateFee(t *testing.T) {
	t.Parallel()

	staker := types.StringToAddress("0x3289621709F5B35D09B4335E129907aC367A0593")

	input := make([]byte, 64)
	copy(input[12:32], staker.Bytes())
	input[63] = 0x10

	var (
		gotAddr types.Address
		gotTS   uint64
	)

	env := &Env{
		Schedule: chain.FreeStakingSchedule,
		EstimateFee: func(addr types.Address, timestamp uint64) (*big.Int, error) {
			gotAddr, gotTS = addr, timestamp

			return big.NewInt(0x1234), nil
		},
	}

	p := NewPrecompiled()

	out, err := p.Exec(types.EstimateFeePrecompileAddress, input, env)
	require.NoError(t, err)

	assert.Equal(t, staker, gotAddr)
	assert.Equal(t, uint64(0x10), gotTS)

	require.Len(t, out, 32)
	assert.Equal(t, big.NewInt(0x1234), new(big.Int).SetBytes(out))

	gas, err := p.Gas(types.EstimateFeePrecompileAddress, input, chain.FreeStakingSchedule)
	require.NoError(t, err)
	assert.Equal(t, uint64(3000), gas)
}

func TestEstimateFee_Failures(t *testing.T) {
	t.Parallel()

	p := NewPrecompiled()

	_, err := p.Exec(types.EstimateFeePrecompileAddress, nil, &Env{})
	assert.ErrorIs(t, err, ErrNoFeeEstimator)

	errDisabled := errors.New("free staking is not enabled")

	_, err = p.Exec(types.EstimateFeePrecompileAddress, nil, &Env{
		EstimateFee: func(types.Address, uint64) (*big.Int, error) {
			return nil, errDisabled
		},
	})
	assert.ErrorIs(t, err, errDisabled)
}
