package chain

import (
	"math"
	"math/big"

	"github.com/rei-network/executive/types"
)

// Built-in chain names
const (
	Mainnet = "mainnet"
	Testnet = "testnet"
	Devnet  = "devnet"
)

// Presets maps the built-in chain names to their constructors
var Presets = map[string]func() *Chain{
	Mainnet: MainnetChain,
	Testnet: TestnetChain,
	Devnet:  DevnetChain,
}

// MainnetChain returns the rei mainnet configuration
func MainnetChain() *Chain {
	return presetChain(Mainnet, 0xbabd, map[string]uint64{
		FreeStaking: 0x558c9d,
		BetterPOS:   0x92ed85,
	}, nil)
}

// TestnetChain returns the rei testnet configuration
func TestnetChain() *Chain {
	return presetChain(Testnet, 0x3045, map[string]uint64{
		FreeStaking: 0x558c9d,
		BetterPOS:   0x6e1d59,
	}, nil)
}

// DevnetChain returns the rei devnet configuration. The daily fee is read
// from the config contract from the DAO fork on.
func DevnetChain() *Chain {
	return presetChain(Devnet, 0x5c1b, map[string]uint64{
		FreeStaking: 0,
		BetterPOS:   0,
		ReiDAO:      0x32,
	}, map[string]interface{}{
		"daoForkBlock": uint64(0x32),
	})
}

func presetChain(name string, chainID uint64, extra map[string]uint64, freeStaking map[string]interface{}) *Chain {
	forks := Forks{}

	for _, f := range []string{
		Homestead, EIP150, EIP158, Byzantium, Constantinople,
		ConstantinopleFix, Istanbul, MuirGlacier, Berlin,
	} {
		forks[f] = NewFork(0)
	}

	for f, block := range extra {
		forks[f] = NewFork(block)
	}

	engine := map[string]interface{}{}
	if freeStaking != nil {
		engine[FreeStakingEngine] = freeStaking
	}

	return &Chain{
		Name: name,
		Genesis: &Genesis{
			ExtraData: make([]byte, types.HashLength),
			Alloc:     map[types.Address]*GenesisAccount{},
		},
		Params: &Params{
			Forks:                &forks,
			ChainID:              chainID,
			AccountStartNonce:    0,
			MaximumExtraDataSize: 0x2000,
			MinGasLimit:          0x1388,
			MaxGasLimit:          math.MaxInt64,
			GasLimitBoundDivisor: 0x400,
			BlockReward:          big.NewInt(0),
			Engine:               engine,
		},
	}
}
