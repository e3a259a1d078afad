package chain

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/mitchellh/mapstructure"

	"github.com/rei-network/executive/types"
)

var (
	ErrUnknownDailyFeeSource = errors.New("unknown daily fee source")
	ErrMissingForks          = errors.New("forks are not defined")
)

// FreeStakingEngine is the key of the free staking section in Params.Engine
const FreeStakingEngine = "freeStaking"

// Params are all the set of params for the chain
type Params struct {
	Forks                *Forks                 `json:"forks"`
	ChainID              uint64                 `json:"chainID"`
	AccountStartNonce    uint64                 `json:"accountStartNonce"`
	MaximumExtraDataSize uint64                 `json:"maximumExtraDataSize"`
	MinGasLimit          uint64                 `json:"minGasLimit"`
	MaxGasLimit          uint64                 `json:"maxGasLimit"`
	GasLimitBoundDivisor uint64                 `json:"gasLimitBoundDivisor"`
	BlockReward          *big.Int               `json:"blockReward"`
	Engine               map[string]interface{} `json:"engine"`
}

// predefined forks
const (
	Homestead         = "homestead"
	EIP150            = "EIP150"
	EIP158            = "EIP158"
	Byzantium         = "byzantium"
	Constantinople    = "constantinople"
	ConstantinopleFix = "constantinopleFix"
	Istanbul          = "istanbul"
	MuirGlacier       = "muirGlacier"
	Berlin            = "berlin"
	FreeStaking       = "freeStaking"
	BetterPOS         = "betterPOS"
	ReiDAO            = "reiDAO"
	Experimental      = "experimental"
)

// forkSchedules lists the forks that change the schedule, newest first
var forkSchedules = []struct {
	name     string
	schedule *Schedule
}{
	{Experimental, ExperimentalSchedule},
	{FreeStaking, FreeStakingSchedule},
	{Berlin, BerlinSchedule},
	{MuirGlacier, MuirGlacierSchedule},
	{Istanbul, IstanbulSchedule},
	{ConstantinopleFix, ConstantinopleFixSchedule},
	{Constantinople, ConstantinopleSchedule},
	{Byzantium, ByzantiumSchedule},
	{EIP158, EIP158Schedule},
	{EIP150, EIP150Schedule},
	{Homestead, HomesteadSchedule},
}

// IsForkAvailable reports whether name is a known fork
func IsForkAvailable(name string) bool {
	if name == BetterPOS || name == ReiDAO {
		return true
	}

	for _, f := range forkSchedules {
		if f.name == name {
			return true
		}
	}

	return false
}

// Forks specifies when each fork is activated
type Forks map[string]*Fork

func (f *Forks) IsHomestead(block uint64) bool {
	return f.active(Homestead, block)
}

func (f *Forks) IsBerlin(block uint64) bool {
	return f.active(Berlin, block)
}

func (f *Forks) IsFreeStaking(block uint64) bool {
	return f.active(FreeStaking, block)
}

func (f *Forks) IsBetterPOS(block uint64) bool {
	return f.active(BetterPOS, block)
}

func (f *Forks) IsReiDAO(block uint64) bool {
	return f.active(ReiDAO, block)
}

func (f *Forks) IsExperimental(block uint64) bool {
	return f.active(Experimental, block)
}

func (f *Forks) Is(name string, block uint64) bool {
	return f.active(name, block)
}

// Block returns the activation block of a fork
func (f *Forks) Block(name string) (uint64, bool) {
	if f == nil {
		return 0, false
	}

	ff, ok := (*f)[name]
	if !ok || ff == nil {
		return 0, false
	}

	return uint64(*ff), true
}

func (f *Forks) active(name string, block uint64) bool {
	if f == nil {
		return false
	}

	return active((*f)[name], block)
}

type Fork uint64

func NewFork(n uint64) *Fork {
	f := Fork(n)

	return &f
}

func (f Fork) Active(block uint64) bool {
	return block >= uint64(f)
}

func active(ff *Fork, block uint64) bool {
	if ff == nil {
		return false
	}

	return ff.Active(block)
}

// ScheduleFor returns the schedule of the newest fork active at the block
func (p *Params) ScheduleFor(block uint64) *Schedule {
	for _, f := range forkSchedules {
		if p.Forks.Is(f.name, block) {
			return f.schedule
		}
	}

	return FrontierSchedule
}

// IsPrecompiled reports whether addr is an active precompile at the block
func (p *Params) IsPrecompiled(addr types.Address, block uint64) bool {
	return p.ScheduleFor(block).IsSupportedPrecompiled(addr)
}

// ExperimentalForkBlock returns the experimental fork block, if set
func (p *Params) ExperimentalForkBlock() (uint64, bool) {
	return p.Forks.Block(Experimental)
}

// DailyFeeSource says where the daily fee of free staking is read from
type DailyFeeSource string

const (
	// DailyFeeFromSchedule uses Schedule.DailyFee
	DailyFeeFromSchedule DailyFeeSource = "schedule"
	// DailyFeeFromConfigStorage reads the fee from the config contract storage
	DailyFeeFromConfigStorage DailyFeeSource = "config-storage"
)

// FreeStakingConfig is the free staking section of the engine params
type FreeStakingConfig struct {
	DailyFeeSource DailyFeeSource `mapstructure:"dailyFeeSource"`
	DAOForkBlock   *uint64        `mapstructure:"daoForkBlock"`
}

// FreeStakingConfig decodes the free staking engine section. A missing
// section yields the schedule source.
func (p *Params) FreeStakingConfig() (*FreeStakingConfig, error) {
	cfg := &FreeStakingConfig{DailyFeeSource: DailyFeeFromSchedule}

	raw, ok := p.Engine[FreeStakingEngine]
	if !ok || raw == nil {
		return cfg, nil
	}

	metadata := &mapstructure.Metadata{}
	dc := &mapstructure.DecoderConfig{
		Result:           cfg,
		WeaklyTypedInput: true,
		Metadata:         metadata,
	}

	ms, err := mapstructure.NewDecoder(dc)
	if err != nil {
		return nil, err
	}

	if err = ms.Decode(raw); err != nil {
		return nil, fmt.Errorf("failed to decode %s engine: %w", FreeStakingEngine, err)
	}

	if len(metadata.Unused) != 0 {
		return nil, fmt.Errorf("some keys not used: %v", metadata.Unused)
	}

	switch cfg.DailyFeeSource {
	case "":
		cfg.DailyFeeSource = DailyFeeFromSchedule
	case DailyFeeFromSchedule, DailyFeeFromConfigStorage:
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownDailyFeeSource, cfg.DailyFeeSource)
	}

	return cfg, nil
}

// DailyFeeSourceAt selects the daily fee source at the block. The config
// contract storage is used only when configured to, or after the DAO fork
// block of the free staking section.
func (c *FreeStakingConfig) DailyFeeSourceAt(block uint64) DailyFeeSource {
	if c.DailyFeeSource == DailyFeeFromConfigStorage {
		return DailyFeeFromConfigStorage
	}

	if c.DAOForkBlock != nil && block >= *c.DAOForkBlock {
		return DailyFeeFromConfigStorage
	}

	return DailyFeeFromSchedule
}

// DailyFeeSourceAt is a shorthand for FreeStakingConfig().DailyFeeSourceAt
func (p *Params) DailyFeeSourceAt(block uint64) (DailyFeeSource, error) {
	cfg, err := p.FreeStakingConfig()
	if err != nil {
		return "", err
	}

	return cfg.DailyFeeSourceAt(block), nil
}
