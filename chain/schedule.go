package chain

import (
	"errors"
	"fmt"
	"math"
	"math/big"

	"github.com/rei-network/executive/types"
)

var ErrUnknownAccountVersion = errors.New("unknown account version")

// Tier indexes into Schedule.TierStepGas
type Tier int

const (
	TierZero Tier = iota
	TierBase
	TierVeryLow
	TierLow
	TierMid
	TierHigh
	TierExt
	TierSpecial
)

// Schedule is the gas and feature table the engine consults while executing.
// Schedules are values: derive a new one with Clone and override fields.
type Schedule struct {
	Name           string
	AccountVersion uint64

	ExceptionalFailedCodeDeposit bool
	HaveDelegateCall             bool
	EIP150Mode                   bool
	EIP158Mode                   bool
	EIP1283Mode                  bool
	EIP2200Mode                  bool
	EIP2565Mode                  bool
	EIP2681Mode                  bool
	EIP2929Mode                  bool
	EIP2930Mode                  bool
	EIP3607Mode                  bool
	HaveBitwiseShifting          bool
	HaveRevert                   bool
	HaveReturnData               bool
	HaveStaticCall               bool
	HaveCreate2                  bool
	HaveExtcodehash              bool
	HaveChainID                  bool
	HaveSelfbalance              bool

	TierStepGas [8]uint64

	ExpGas                   uint64
	ExpByteGas               uint64
	Sha3Gas                  uint64
	Sha3WordGas              uint64
	SloadGas                 uint64
	SstoreSetGas             uint64
	SstoreResetGas           uint64
	SstoreUnchangedGas       uint64
	SstoreRefundGas          uint64
	JumpdestGas              uint64
	LogGas                   uint64
	LogDataGas               uint64
	LogTopicGas              uint64
	CreateGas                uint64
	CallGas                  uint64
	PrecompileStaticCallGas  uint64
	CallSelfGas              uint64
	CallStipend              uint64
	CallValueTransferGas     uint64
	CallNewAccountGas        uint64
	SelfdestructRefundGas    uint64
	MemoryGas                uint64
	QuadCoeffDiv             uint64
	CreateDataGas            uint64
	TxGas                    uint64
	TxCreateGas              uint64
	TxDataZeroGas            uint64
	TxDataNonZeroGas         uint64
	CopyGas                  uint64
	AccessListStorageKeyCost uint64
	AccessListAddressCost    uint64

	// EIP-2929 access costs
	ColdSloadCost         uint64
	ColdAccountAccessCost uint64
	WarmStorageReadCost   uint64

	ExtcodesizeGas  uint64
	ExtcodecopyGas  uint64
	ExtcodehashGas  uint64
	BalanceGas      uint64
	SelfdestructGas uint64
	BlockhashGas    uint64
	MaxCodeSize     uint64

	Bn256AddGas             uint64
	Bn256ScalarMulGas       uint64
	Bn256PairingBaseGas     uint64
	Bn256PairingPerPointGas uint64

	EnableFreeStaking bool
	EstimateFeeGas    uint64
	DailyFee          *big.Int

	BlockRewardOverwrite *big.Int

	SupportedPrecompiled map[types.Address]bool
}

// StaticCallDepthLimit reports whether calls fail at the depth limit rather than
// being bounded by the all but one 64th gas rule
func (s *Schedule) StaticCallDepthLimit() bool {
	return !s.EIP150Mode
}

// EmptinessIsNonexistence reports whether empty accounts are treated as absent
func (s *Schedule) EmptinessIsNonexistence() bool {
	return s.EIP158Mode
}

func (s *Schedule) ZeroValueTransferChargesNewAccountGas() bool {
	return !s.EIP158Mode
}

func (s *Schedule) SstoreNetGasMetering() bool {
	return s.EIP1283Mode || s.EIP2200Mode
}

func (s *Schedule) SstoreThrowsIfGasBelowCallStipend() bool {
	return s.EIP2200Mode
}

// IsSupportedPrecompiled reports whether addr is an active precompile
func (s *Schedule) IsSupportedPrecompiled(addr types.Address) bool {
	return s.SupportedPrecompiled[addr]
}

// Precompiles returns the active precompile addresses
func (s *Schedule) Precompiles() []types.Address {
	addrs := make([]types.Address, 0, len(s.SupportedPrecompiled))

	for _, addr := range precompileAddresses {
		if s.SupportedPrecompiled[addr] {
			addrs = append(addrs, addr)
		}
	}

	return addrs
}

// IntrinsicCosts returns the prices that make up the base cost of a transaction
func (s *Schedule) IntrinsicCosts() types.IntrinsicCosts {
	return types.IntrinsicCosts{
		TxGas:                   s.TxGas,
		TxCreateGas:             s.TxCreateGas,
		TxDataZeroGas:           s.TxDataZeroGas,
		TxDataNonZeroGas:        s.TxDataNonZeroGas,
		AccessListAddressGas:    s.AccessListAddressCost,
		AccessListStorageKeyGas: s.AccessListStorageKeyCost,
	}
}

// AccessListGas is the surcharge of an access list under this schedule
func (s *Schedule) AccessListGas(al *types.AccessList) uint64 {
	return al.BaseGas(s.AccessListAddressCost, s.AccessListStorageKeyCost)
}

// BaseGasRequired is the intrinsic gas of a transaction under this schedule
func (s *Schedule) BaseGasRequired(tx *types.Transaction) (uint64, error) {
	return tx.BaseGasRequired(s.IntrinsicCosts())
}

// Clone returns a deep copy of the schedule
func (s *Schedule) Clone() *Schedule {
	ss := new(Schedule)
	*ss = *s

	ss.SupportedPrecompiled = make(map[types.Address]bool, len(s.SupportedPrecompiled))
	for addr, enabled := range s.SupportedPrecompiled {
		ss.SupportedPrecompiled[addr] = enabled
	}

	if s.DailyFee != nil {
		ss.DailyFee = new(big.Int).Set(s.DailyFee)
	}

	if s.BlockRewardOverwrite != nil {
		ss.BlockRewardOverwrite = new(big.Int).Set(s.BlockRewardOverwrite)
	}

	return ss
}

func (s *Schedule) String() string {
	return fmt.Sprintf("Schedule(%s)", s.Name)
}

var precompileAddresses = []types.Address{
	types.StringToAddress("0x1"), // ecrecover
	types.StringToAddress("0x2"), // sha256
	types.StringToAddress("0x3"), // ripemd160
	types.StringToAddress("0x4"), // identity
	types.StringToAddress("0x5"), // modexp
	types.StringToAddress("0x6"), // alt_bn128_G1_add
	types.StringToAddress("0x7"), // alt_bn128_G1_mul
	types.StringToAddress("0x8"), // alt_bn128_pairing_product
	types.StringToAddress("0x9"), // blake2_compression
	types.EstimateFeePrecompileAddress,
}

// defaultDailyFee is 1440000 units of the native token
var defaultDailyFee, _ = new(big.Int).SetString("4e1003b28d92800000", 16)

var ether = new(big.Int).Exp(big.NewInt(10), big.NewInt(18), nil)

func newDefaultSchedule() *Schedule {
	s := &Schedule{
		Name:                         "default",
		ExceptionalFailedCodeDeposit: true,
		HaveDelegateCall:             true,
		EIP2681Mode:                  true,
		EIP3607Mode:                  true,
		TierStepGas:                  [8]uint64{0, 2, 3, 5, 8, 10, 20, 0},
		ExpGas:                       10,
		ExpByteGas:                   10,
		Sha3Gas:                      30,
		Sha3WordGas:                  6,
		SloadGas:                     50,
		SstoreSetGas:                 20000,
		SstoreResetGas:               5000,
		SstoreUnchangedGas:           200,
		SstoreRefundGas:              15000,
		JumpdestGas:                  1,
		LogGas:                       375,
		LogDataGas:                   8,
		LogTopicGas:                  375,
		CreateGas:                    32000,
		CallGas:                      40,
		PrecompileStaticCallGas:      700,
		CallSelfGas:                  40,
		CallStipend:                  2300,
		CallValueTransferGas:         9000,
		CallNewAccountGas:            25000,
		SelfdestructRefundGas:        24000,
		MemoryGas:                    3,
		QuadCoeffDiv:                 512,
		CreateDataGas:                200,
		TxGas:                        21000,
		TxCreateGas:                  53000,
		TxDataZeroGas:                4,
		TxDataNonZeroGas:             68,
		CopyGas:                      3,
		AccessListStorageKeyCost:     1900,
		AccessListAddressCost:        2400,
		ColdSloadCost:                2100,
		ColdAccountAccessCost:        2600,
		WarmStorageReadCost:          100,
		ExtcodesizeGas:               20,
		ExtcodecopyGas:               20,
		ExtcodehashGas:               400,
		BalanceGas:                   20,
		SelfdestructGas:              0,
		BlockhashGas:                 20,
		MaxCodeSize:                  math.MaxUint64,
		Bn256AddGas:                  500,
		Bn256ScalarMulGas:            40000,
		Bn256PairingBaseGas:          100000,
		Bn256PairingPerPointGas:      80000,
		EstimateFeeGas:               3000,
		DailyFee:                     new(big.Int).Set(defaultDailyFee),
		SupportedPrecompiled:         map[types.Address]bool{},
	}

	for i, addr := range precompileAddresses {
		// ecrecover, sha256, ripemd160 and identity exist from the start
		s.SupportedPrecompiled[addr] = i < 4
	}

	return s
}

func derive(parent *Schedule, name string, override func(s *Schedule)) *Schedule {
	s := parent.Clone()
	s.Name = name
	override(s)

	return s
}

func enablePrecompiles(s *Schedule, addrs ...string) {
	for _, addr := range addrs {
		s.SupportedPrecompiled[types.StringToAddress(addr)] = true
	}
}

var (
	DefaultSchedule = newDefaultSchedule()

	FrontierSchedule = derive(DefaultSchedule, "frontier", func(s *Schedule) {
		s.ExceptionalFailedCodeDeposit = false
		s.HaveDelegateCall = false
		s.TxCreateGas = 21000
	})

	HomesteadSchedule = derive(DefaultSchedule, "homestead", func(s *Schedule) {
		s.TxCreateGas = 53000
	})

	EIP150Schedule = derive(HomesteadSchedule, "eip150", func(s *Schedule) {
		s.EIP150Mode = true
		s.ExtcodesizeGas = 700
		s.ExtcodecopyGas = 700
		s.BalanceGas = 400
		s.SloadGas = 200
		s.CallGas = 700
		s.CallSelfGas = 700
		s.SelfdestructGas = 5000
	})

	EIP158Schedule = derive(EIP150Schedule, "eip158", func(s *Schedule) {
		s.ExpByteGas = 50
		s.EIP158Mode = true
		s.MaxCodeSize = 0x6000
	})

	ByzantiumSchedule = derive(EIP158Schedule, "byzantium", func(s *Schedule) {
		s.HaveRevert = true
		s.HaveReturnData = true
		s.HaveStaticCall = true
		s.BlockRewardOverwrite = new(big.Int).Mul(big.NewInt(3), ether)
		enablePrecompiles(s, "0x5", "0x6", "0x7", "0x8")
	})

	ConstantinopleSchedule = derive(ByzantiumSchedule, "constantinople", func(s *Schedule) {
		s.HaveCreate2 = true
		s.HaveBitwiseShifting = true
		s.HaveExtcodehash = true
		s.EIP1283Mode = true
		s.BlockRewardOverwrite = new(big.Int).Mul(big.NewInt(2), ether)
	})

	ConstantinopleFixSchedule = derive(ConstantinopleSchedule, "constantinopleFix", func(s *Schedule) {
		s.EIP1283Mode = false
	})

	IstanbulSchedule = derive(ConstantinopleFixSchedule, "istanbul", func(s *Schedule) {
		s.TxDataNonZeroGas = 16
		s.SloadGas = 800
		s.BalanceGas = 700
		s.ExtcodehashGas = 700
		s.HaveChainID = true
		s.HaveSelfbalance = true
		s.EIP2200Mode = true
		s.SstoreUnchangedGas = 800
		s.Bn256AddGas = 150
		s.Bn256ScalarMulGas = 6000
		s.Bn256PairingBaseGas = 45000
		s.Bn256PairingPerPointGas = 34000
		enablePrecompiles(s, "0x9")
	})

	MuirGlacierSchedule = IstanbulSchedule

	BerlinSchedule = derive(MuirGlacierSchedule, "berlin", func(s *Schedule) {
		s.EIP2565Mode = true
		s.EIP2929Mode = true
		s.EIP2930Mode = true
		s.SloadGas = 100
		s.SstoreUnchangedGas = 100
		s.SstoreResetGas = 5000 - 2100
	})

	FreeStakingSchedule = derive(BerlinSchedule, "freeStaking", func(s *Schedule) {
		s.EnableFreeStaking = true
		s.SupportedPrecompiled[types.EstimateFeePrecompileAddress] = true
	})

	ExperimentalSchedule = derive(BerlinSchedule, "experimental", func(s *Schedule) {
		s.AccountVersion = 1
		s.BlockhashGas = 800
	})
)

// LatestScheduleForAccountVersion returns the newest schedule code of the
// given version can be executed with
func LatestScheduleForAccountVersion(version uint64) (*Schedule, error) {
	switch version {
	case 0:
		return IstanbulSchedule, nil
	case ExperimentalSchedule.AccountVersion:
		return ExperimentalSchedule, nil
	default:
		return nil, fmt.Errorf("%w: %d", ErrUnknownAccountVersion, version)
	}
}
