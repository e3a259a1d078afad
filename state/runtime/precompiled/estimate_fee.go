package precompiled

import (
	"github.com/rei-network/executive/chain"
	"github.com/rei-network/executive/types"
)

// estimateFee answers how much of the daily free fee a staker has left.
// Input is the staker address and a timestamp, each as a 32 byte word.
type estimateFee struct {
	p *Precompiled
}

func (e *estimateFee) gas(_ []byte, schedule *chain.Schedule) uint64 {
	return schedule.EstimateFeeGas
}

func (e *estimateFee) run(input []byte, env *Env) ([]byte, error) {
	if env == nil || env.EstimateFee == nil {
		return nil, ErrNoFeeEstimator
	}

	var word []byte

	word, input = e.p.get(input, 32)
	addr := types.BytesToAddress(word[12:32])

	timestamp, _ := e.p.getUint64(input)

	fee, err := env.EstimateFee(addr, timestamp)
	if err != nil {
		return nil, err
	}

	return e.p.leftPad(fee.Bytes(), 32), nil
}
