package state

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/umbracle/fastrlp"

	"github.com/rei-network/executive/types"
)

// RecoverInterval is the number of seconds a fully used stake takes to
// recover
const RecoverInterval = 86400

var errStakeInfoFormat = errors.New("stake info must be a list of 3 elements")

// StakeInfo tracks the free staking fee an account has consumed
type StakeInfo struct {
	Total     *big.Int
	Usage     *big.Int
	Timestamp uint64

	// rawTimestamp is the timestamp as it was decoded, it is encoded back
	// while Timestamp still holds the value read from it
	rawTimestamp     []byte
	rawTimestampFrom uint64
}

// NewStakeInfo returns an empty stake info
func NewStakeInfo() *StakeInfo {
	return &StakeInfo{
		Total: new(big.Int),
		Usage: new(big.Int),
	}
}

// EstimateFee returns the fee still available at the timestamp, given the
// total staked amount and the daily fee of the whole pool
func (s *StakeInfo) EstimateFee(timestamp uint64, totalAmount, dailyFee *big.Int) *big.Int {
	usage := s.EstimateUsage(timestamp)
	fee := s.EstimateTotalFee(totalAmount, dailyFee)

	if fee.Cmp(usage) > 0 {
		return fee.Sub(fee, usage)
	}

	return new(big.Int)
}

// EstimateTotalFee is the share of the daily fee backed by the stake
func (s *StakeInfo) EstimateTotalFee(totalAmount, dailyFee *big.Int) *big.Int {
	if totalAmount == nil || totalAmount.Sign() == 0 {
		return new(big.Int)
	}

	fee := new(big.Int).Mul(orZero(s.Total), dailyFee)

	return fee.Div(fee, totalAmount)
}

// EstimateUsage is the usage at the timestamp. It decays linearly to zero
// over RecoverInterval seconds.
func (s *StakeInfo) EstimateUsage(timestamp uint64) *big.Int {
	usage := orZero(s.Usage)

	if timestamp <= s.Timestamp {
		return new(big.Int).Set(usage)
	}

	interval := timestamp - s.Timestamp
	if usage.Sign() > 0 && interval < RecoverInterval {
		res := new(big.Int).Mul(usage, new(big.Int).SetUint64(RecoverInterval-interval))

		return res.Div(res, big.NewInt(RecoverInterval))
	}

	return new(big.Int)
}

// IsEmpty reports whether nothing was staked or used
func (s *StakeInfo) IsEmpty() bool {
	return orZero(s.Total).Sign() == 0 && orZero(s.Usage).Sign() == 0 && s.Timestamp == 0
}

func (s *StakeInfo) Copy() *StakeInfo {
	return &StakeInfo{
		Total:     new(big.Int).Set(orZero(s.Total)),
		Usage:     new(big.Int).Set(orZero(s.Usage)),
		Timestamp: s.Timestamp,

		rawTimestamp:     append([]byte(nil), s.rawTimestamp...),
		rawTimestampFrom: s.rawTimestampFrom,
	}
}

func (s *StakeInfo) MarshalWith(ar *fastrlp.Arena) *fastrlp.Value {
	v := ar.NewArray()
	v.Set(ar.NewBigInt(orZero(s.Total)))
	v.Set(ar.NewBigInt(orZero(s.Usage)))

	if s.rawTimestamp != nil && s.rawTimestampFrom == s.Timestamp {
		v.Set(ar.NewCopyBytes(s.rawTimestamp))
	} else {
		v.Set(ar.NewUint(s.Timestamp))
	}

	return v
}

func (s *StakeInfo) MarshalRLP() []byte {
	return types.MarshalRLPTo(s.MarshalWith, nil)
}

func (s *StakeInfo) UnmarshalRLP(input []byte) error {
	return types.UnmarshalRlp(func(_ *fastrlp.Parser, v *fastrlp.Value) error {
		return s.unmarshalRLPFrom(v)
	}, input)
}

func (s *StakeInfo) unmarshalRLPFrom(v *fastrlp.Value) error {
	elems, err := v.GetElems()
	if err != nil {
		return err
	}

	if len(elems) != 3 {
		return errStakeInfoFormat
	}

	s.Total, s.Usage = new(big.Int), new(big.Int)

	if err := elems[0].GetBigInt(s.Total); err != nil {
		return fmt.Errorf("total: %w", err)
	}

	if err := elems[1].GetBigInt(s.Usage); err != nil {
		return fmt.Errorf("usage: %w", err)
	}

	// the timestamp is kept as raw bytes, read it as a big endian number
	ts, err := elems[2].Bytes()
	if err != nil {
		return fmt.Errorf("timestamp: %w", err)
	}

	if len(ts) > 8 {
		return fmt.Errorf("timestamp: %d bytes overflow uint64", len(ts))
	}

	s.Timestamp = new(big.Int).SetBytes(ts).Uint64()
	s.rawTimestamp = append([]byte{}, ts...)
	s.rawTimestampFrom = s.Timestamp

	return nil
}

func orZero(b *big.Int) *big.Int {
	if b == nil {
		return new(big.Int)
	}

	return b
}
