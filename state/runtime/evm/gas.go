package evm

import (
	"github.com/rei-network/executive/chain"
	"github.com/rei-network/executive/types"
)

// netSstoreGas prices a storage write under net gas metering (EIP-1283 and
// EIP-2200). The original value is only loaded when the slot is dirty.
func netSstoreGas(s *chain.Schedule, current, value types.Hash, original func() types.Hash) (uint64, int64) {
	if current == value {
		return s.SstoreUnchangedGas, 0
	}

	orig := original()

	if orig == current {
		if orig == types.ZeroHash {
			return s.SstoreSetGas, 0
		}

		if value == types.ZeroHash {
			return s.SstoreResetGas, int64(s.SstoreRefundGas)
		}

		return s.SstoreResetGas, 0
	}

	// dirty slot
	var refund int64

	if orig != types.ZeroHash {
		if current == types.ZeroHash {
			refund -= int64(s.SstoreRefundGas)
		} else if value == types.ZeroHash {
			refund += int64(s.SstoreRefundGas)
		}
	}

	if orig == value {
		if orig == types.ZeroHash {
			refund += int64(s.SstoreSetGas - s.SstoreUnchangedGas)
		} else {
			refund += int64(s.SstoreResetGas - s.SstoreUnchangedGas)
		}
	}

	return s.SstoreUnchangedGas, refund
}

// legacySstoreGas prices a storage write before net gas metering
func legacySstoreGas(s *chain.Schedule, current, value types.Hash) (uint64, int64) {
	if current == types.ZeroHash && value != types.ZeroHash {
		return s.SstoreSetGas, 0
	}

	if current != types.ZeroHash && value == types.ZeroHash {
		return s.SstoreResetGas, int64(s.SstoreRefundGas)
	}

	return s.SstoreResetGas, 0
}
