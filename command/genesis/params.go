package genesis

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/rei-network/executive/chain"
	"github.com/rei-network/executive/command"
	"github.com/rei-network/executive/helper/common"
	"github.com/rei-network/executive/types"
)

const (
	dirFlag           = "dir"
	nameFlag          = "name"
	presetFlag        = "preset"
	premineFlag       = "premine"
	chainIDFlag       = "chain-id"
	blockGasLimitFlag = "block-gas-limit"
)

var (
	params = &genesisParams{}
)

var (
	errUnknownPreset     = errors.New("unknown chain preset")
	errGenesisFileExists = errors.New("genesis file already exists")
	errInvalidPremine    = errors.New("invalid premine entry")
)

type genesisParams struct {
	genesisPath   string
	name          string
	preset        string
	premine       []string
	chainID       uint64
	blockGasLimit uint64

	genesisConfig *chain.Chain
}

func (p *genesisParams) validateFlags() error {
	if _, ok := chain.Presets[p.preset]; !ok {
		return fmt.Errorf("%w: %s", errUnknownPreset, p.preset)
	}

	if _, err := os.Stat(p.genesisPath); err == nil {
		return fmt.Errorf("%w: %s", errGenesisFileExists, p.genesisPath)
	} else if !errors.Is(err, os.ErrNotExist) {
		return err
	}

	return nil
}

// initGenesisConfig builds the chain from the preset and applies the flag overrides
func (p *genesisParams) initGenesisConfig() error {
	cfg := chain.Presets[p.preset]()

	if p.name != "" {
		cfg.Name = p.name
	}

	if p.chainID != 0 {
		cfg.Params.ChainID = p.chainID
	}

	if p.blockGasLimit != 0 {
		cfg.Genesis.GasLimit = p.blockGasLimit
	}

	for _, entry := range p.premine {
		addr, balance, err := parsePremine(entry)
		if err != nil {
			return err
		}

		cfg.Genesis.Alloc[addr] = &chain.GenesisAccount{
			Balance: balance,
		}
	}

	if err := cfg.Validate(); err != nil {
		return err
	}

	p.genesisConfig = cfg

	return nil
}

// parsePremine parses <address>[:<balance>]
func parsePremine(entry string) (types.Address, *big.Int, error) {
	addrRaw, balanceRaw, found := strings.Cut(entry, ":")
	if !found {
		balanceRaw = command.DefaultPremineBalance
	}

	if err := types.IsValidAddress(addrRaw); err != nil {
		return types.ZeroAddress, nil, fmt.Errorf("%w: %s: %v", errInvalidPremine, entry, err)
	}

	balance, err := common.ParseUint256orHex(&balanceRaw)
	if err != nil {
		return types.ZeroAddress, nil, fmt.Errorf("%w: %s: %v", errInvalidPremine, entry, err)
	}

	return types.StringToAddress(addrRaw), balance, nil
}

// writeGenesis writes the chain as json, or as yaml for a .yaml/.yml path
func (p *genesisParams) writeGenesis() error {
	data, err := json.MarshalIndent(p.genesisConfig, "", "    ")
	if err != nil {
		return fmt.Errorf("failed to generate genesis: %w", err)
	}

	switch strings.ToLower(filepath.Ext(p.genesisPath)) {
	case ".yaml", ".yml":
		// numbers stay exact through the conversion
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.UseNumber()

		var raw map[string]interface{}
		if err := dec.Decode(&raw); err != nil {
			return err
		}

		if data, err = yaml.Marshal(exactNumbers(raw)); err != nil {
			return err
		}
	}

	if dir := filepath.Dir(p.genesisPath); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}

	//nolint:gosec
	if err := os.WriteFile(p.genesisPath, data, 0o660); err != nil {
		return fmt.Errorf("failed to write genesis: %w", err)
	}

	return nil
}

// exactNumbers replaces the json numbers of a decoded document with integers
// where they fit, floats otherwise
func exactNumbers(v interface{}) interface{} {
	switch value := v.(type) {
	case map[string]interface{}:
		for k, item := range value {
			value[k] = exactNumbers(item)
		}
	case []interface{}:
		for i, item := range value {
			value[i] = exactNumbers(item)
		}
	case json.Number:
		if n, err := value.Int64(); err == nil {
			return n
		}

		if n, err := strconv.ParseUint(value.String(), 10, 64); err == nil {
			return n
		}

		if f, err := value.Float64(); err == nil {
			return f
		}
	}

	return v
}

func (p *genesisParams) getResult() command.CommandResult {
	return &GenesisResult{
		Message: fmt.Sprintf("Genesis written to %s\n", p.genesisPath),
		Name:    p.genesisConfig.Name,
		ChainID: p.genesisConfig.Params.ChainID,
		Premine: len(p.genesisConfig.Genesis.Alloc),
	}
}
