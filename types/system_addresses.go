package types

var (
	// MaxAddress is the sender of transactions carrying an all-zero signature
	MaxAddress = StringToAddress("0xffffffffffffffffffffffffffffffffffffffff")
	// SystemAddress is the caller used for internally generated messages
	SystemAddress = StringToAddress("0xfffffffffffffffffffffffffffffffffffffffe")
	// ConfigAddress holds the on-chain configuration contract
	ConfigAddress = StringToAddress("0x0000000000000000000000000000000000001000")
	// FeeManagerAddress holds the pool that backs free staking fees
	FeeManagerAddress = StringToAddress("0x0000000000000000000000000000000000001005")
	// RipemdPrecompileAddress is the RIPEMD-160 precompile, touched even when its call fails
	RipemdPrecompileAddress = StringToAddress("0x3")
	// EstimateFeePrecompileAddress is the free staking fee estimation precompile
	EstimateFeePrecompileAddress = StringToAddress("0xff")
)

// DailyFeeSlot is the storage key of the daily fee inside the config contract
var DailyFeeSlot = StringToHash("0x15")
