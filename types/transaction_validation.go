package types

import (
	"errors"
	"fmt"
	"math/big"
)

var (
	ErrHighS           = errors.New("signature s value is in the upper half of the curve order")
	ErrInvalidChainID  = errors.New("invalid chain id")
	ErrIntrinsicGasOvf = errors.New("intrinsic gas overflow")
)

// secp256k1NHalf is half the order of the secp256k1 curve
var secp256k1NHalf, _ = new(big.Int).SetString(
	"7fffffffffffffffffffffffffffffff5d576e7357a4501ddfe92f46681b20a0", 16)

// CheckLowS rejects signatures whose s value is above n/2 (EIP-2)
func (t *Transaction) CheckLowS() error {
	if t.Signature == nil {
		return ErrTransactionIsUnsigned
	}

	if t.Signature.S != nil && t.Signature.S.Cmp(secp256k1NHalf) > 0 {
		return ErrHighS
	}

	return nil
}

// CheckChainID rejects transactions bound to a different chain. Transactions
// without replay protection are accepted on any chain.
func (t *Transaction) CheckChainID(chainID uint64) error {
	if t.ChainID == nil || *t.ChainID == chainID {
		return nil
	}

	return fmt.Errorf("%w: expected %d but found %d", ErrInvalidChainID, chainID, *t.ChainID)
}

// IntrinsicCosts are the gas prices that make up the base cost of a transaction
type IntrinsicCosts struct {
	TxGas                   uint64
	TxCreateGas             uint64
	TxDataZeroGas           uint64
	TxDataNonZeroGas        uint64
	AccessListAddressGas    uint64
	AccessListStorageKeyGas uint64
}

// BaseGasRequired returns the gas charged before any code runs
func (t *Transaction) BaseGasRequired(costs IntrinsicCosts) (uint64, error) {
	return IntrinsicGas(t.IsContractCreation(), t.Input, t.AccessList, costs)
}

// IntrinsicGas computes the base cost of a payload: the flat transaction or
// creation cost, the per byte data cost and the access list surcharge.
func IntrinsicGas(creation bool, input []byte, al *AccessList, costs IntrinsicCosts) (uint64, error) {
	cost := costs.TxGas
	if creation {
		cost = costs.TxCreateGas
	}

	var zeros uint64

	for _, b := range input {
		if b == 0 {
			zeros++
		}
	}

	nonZeros := uint64(len(input)) - zeros

	for _, part := range []struct{ n, price uint64 }{
		{zeros, costs.TxDataZeroGas},
		{nonZeros, costs.TxDataNonZeroGas},
	} {
		if part.price != 0 && part.n > (^uint64(0)-cost)/part.price {
			return 0, ErrIntrinsicGasOvf
		}

		cost += part.n * part.price
	}

	alGas := al.BaseGas(costs.AccessListAddressGas, costs.AccessListStorageKeyGas)
	if cost+alGas < cost {
		return 0, ErrIntrinsicGasOvf
	}

	return cost + alGas, nil
}
