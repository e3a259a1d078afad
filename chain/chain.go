package chain

import (
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"os"
	"path/filepath"
	"strings"

	"github.com/hashicorp/go-multierror"
	"gopkg.in/yaml.v3"

	"github.com/rei-network/executive/helper/common"
	"github.com/rei-network/executive/helper/hex"
	"github.com/rei-network/executive/types"
)

var (
	ErrEmptyChainName   = errors.New("chain name is empty")
	ErrMissingGenesis   = errors.New("genesis is not defined")
	ErrMissingParams    = errors.New("params are not defined")
	ErrUnknownFork      = errors.New("unknown fork")
	ErrUnsupportedChain = errors.New("unsupported chain file format")
)

// Chain is the chain configuration
type Chain struct {
	Name    string   `json:"name"`
	Genesis *Genesis `json:"genesis"`
	Params  *Params  `json:"params"`
}

// Validate reports every inconsistency of the configuration at once
func (c *Chain) Validate() error {
	var result error

	if c.Name == "" {
		result = multierror.Append(result, ErrEmptyChainName)
	}

	if c.Genesis == nil {
		result = multierror.Append(result, ErrMissingGenesis)
	}

	if c.Params == nil {
		return multierror.Append(result, ErrMissingParams)
	}

	if c.Params.Forks == nil {
		result = multierror.Append(result, ErrMissingForks)
	} else {
		for name := range *c.Params.Forks {
			if !IsForkAvailable(name) {
				result = multierror.Append(result, fmt.Errorf("%w: %s", ErrUnknownFork, name))
			}
		}
	}

	if _, err := c.Params.FreeStakingConfig(); err != nil {
		result = multierror.Append(result, err)
	}

	if c.Genesis != nil && c.Params.MaximumExtraDataSize != 0 &&
		uint64(len(c.Genesis.ExtraData)) > c.Params.MaximumExtraDataSize {
		result = multierror.Append(result, fmt.Errorf("%w: genesis extra data", types.ErrExtraDataTooLarge))
	}

	return result
}

// Genesis specifies the header fields, state of a genesis block
type Genesis struct {
	Nonce      [8]byte                           `json:"nonce"`
	Timestamp  uint64                            `json:"timestamp"`
	ExtraData  []byte                            `json:"extraData,omitempty"`
	GasLimit   uint64                            `json:"gasLimit"`
	Difficulty uint64                            `json:"difficulty"`
	Mixhash    types.Hash                        `json:"mixHash"`
	Coinbase   types.Address                     `json:"coinbase"`
	Alloc      map[types.Address]*GenesisAccount `json:"alloc,omitempty"`

	// Only for testing
	Number     uint64     `json:"number"`
	GasUsed    uint64     `json:"gasUsed"`
	ParentHash types.Hash `json:"parentHash"`
}

// GenesisHeader returns the genesis header on top of the given state root
func (g *Genesis) GenesisHeader(stateRoot types.Hash) *types.Header {
	head := &types.Header{
		Number:       g.Number,
		Nonce:        g.Nonce,
		Timestamp:    g.Timestamp,
		ParentHash:   g.ParentHash,
		ExtraData:    append([]byte{}, g.ExtraData...),
		GasLimit:     g.GasLimit,
		GasUsed:      g.GasUsed,
		Difficulty:   g.Difficulty,
		MixHash:      g.Mixhash,
		Miner:        g.Coinbase,
		StateRoot:    stateRoot,
		Sha3Uncles:   types.EmptyUncleHash,
		ReceiptsRoot: types.EmptyRootHash,
		TxRoot:       types.EmptyRootHash,
	}

	return head.ComputeHash()
}

// Decoding

type genesisEncoder struct {
	Nonce      string                                    `json:"nonce"`
	Timestamp  *string                                   `json:"timestamp,omitempty"`
	ExtraData  *string                                   `json:"extraData,omitempty"`
	GasLimit   string                                    `json:"gasLimit"`
	Difficulty *string                                   `json:"difficulty,omitempty"`
	Mixhash    types.Hash                                `json:"mixHash"`
	Coinbase   types.Address                             `json:"coinbase"`
	Alloc      *map[types.Address]*genesisAccountEncoder `json:"alloc,omitempty"`
	Number     *string                                   `json:"number,omitempty"`
	GasUsed    *string                                   `json:"gasUsed,omitempty"`
	ParentHash types.Hash                                `json:"parentHash"`
}

// MarshalJSON implements the json interface
func (g *Genesis) MarshalJSON() ([]byte, error) {
	obj := &genesisEncoder{
		Nonce:      hex.EncodeToHex(g.Nonce[:]),
		Timestamp:  encodeUint64(g.Timestamp),
		ExtraData:  encodeBytes(g.ExtraData),
		GasLimit:   hex.EncodeUint64(g.GasLimit),
		Difficulty: encodeUint64(g.Difficulty),
		Mixhash:    g.Mixhash,
		Coinbase:   g.Coinbase,
		Number:     encodeUint64(g.Number),
		GasUsed:    encodeUint64(g.GasUsed),
		ParentHash: g.ParentHash,
	}

	if len(g.Alloc) > 0 {
		alloc := make(map[types.Address]*genesisAccountEncoder, len(g.Alloc))
		for k, v := range g.Alloc {
			alloc[k] = v.encoder()
		}

		obj.Alloc = &alloc
	}

	return json.Marshal(obj)
}

// UnmarshalJSON implements the json interface
func (g *Genesis) UnmarshalJSON(data []byte) error {
	type Genesis struct {
		Nonce      *string                            `json:"nonce"`
		Timestamp  *string                            `json:"timestamp"`
		ExtraData  *string                            `json:"extraData"`
		GasLimit   *string                            `json:"gasLimit"`
		Difficulty *string                            `json:"difficulty"`
		Mixhash    *types.Hash                        `json:"mixHash"`
		Coinbase   *types.Address                     `json:"coinbase"`
		Alloc      *map[types.Address]*GenesisAccount `json:"alloc,omitempty"`
		Number     *string                            `json:"number"`
		GasUsed    *string                            `json:"gasUsed"`
		ParentHash *types.Hash                        `json:"parentHash"`
	}

	var dec Genesis
	if err := json.Unmarshal(data, &dec); err != nil {
		return err
	}

	var err, subErr error

	parseError := func(field string, subErr error) {
		err = multierror.Append(err, fmt.Errorf("%s: %w", field, subErr))
	}

	nonce, subErr := common.ParseUint64orHex(dec.Nonce)
	if subErr != nil {
		parseError("nonce", subErr)
	}

	g.Nonce = [8]byte{}
	for i := 0; i < 8; i++ {
		g.Nonce[7-i] = byte(nonce >> (8 * i))
	}

	g.Timestamp, subErr = common.ParseUint64orHex(dec.Timestamp)
	if subErr != nil {
		parseError("timestamp", subErr)
	}

	if dec.ExtraData != nil {
		g.ExtraData, subErr = hex.DecodeHex(*dec.ExtraData)
		if subErr != nil {
			parseError("extradata", subErr)
		}
	}

	if dec.GasLimit == nil {
		return fmt.Errorf("field 'gaslimit' is required")
	}

	g.GasLimit, subErr = common.ParseUint64orHex(dec.GasLimit)
	if subErr != nil {
		parseError("gaslimit", subErr)
	}

	g.Difficulty, subErr = common.ParseUint64orHex(dec.Difficulty)
	if subErr != nil {
		parseError("difficulty", subErr)
	}

	if dec.Mixhash != nil {
		g.Mixhash = *dec.Mixhash
	}

	if dec.Coinbase != nil {
		g.Coinbase = *dec.Coinbase
	}

	if dec.Alloc != nil {
		g.Alloc = *dec.Alloc
	}

	g.Number, subErr = common.ParseUint64orHex(dec.Number)
	if subErr != nil {
		parseError("number", subErr)
	}

	g.GasUsed, subErr = common.ParseUint64orHex(dec.GasUsed)
	if subErr != nil {
		parseError("gasused", subErr)
	}

	if dec.ParentHash != nil {
		g.ParentHash = *dec.ParentHash
	}

	return err
}

// GenesisAccount is an account in the state of the genesis block.
type GenesisAccount struct {
	Code        []byte                    `json:"code,omitempty"`
	CodeVersion uint64                    `json:"codeVersion,omitempty"`
	Storage     map[types.Hash]types.Hash `json:"storage,omitempty"`
	Balance     *big.Int                  `json:"balance,omitempty"`
	Nonce       uint64                    `json:"nonce,omitempty"`
	PrivateKey  []byte                    `json:"secretKey,omitempty"` // for tests
}

type genesisAccountEncoder struct {
	Code        *string                   `json:"code,omitempty"`
	CodeVersion *string                   `json:"codeVersion,omitempty"`
	Storage     map[types.Hash]types.Hash `json:"storage,omitempty"`
	Balance     *string                   `json:"balance"`
	Nonce       *string                   `json:"nonce,omitempty"`
	Secret      *string                   `json:"secretKey,omitempty"`
}

func (g *GenesisAccount) encoder() *genesisAccountEncoder {
	obj := &genesisAccountEncoder{
		Code:    encodeBytes(g.Code),
		Storage: g.Storage,
		Secret:  encodeBytes(g.PrivateKey),
	}

	if g.Balance != nil {
		balance := hex.EncodeBig(g.Balance)
		obj.Balance = &balance
	}

	if g.Nonce != 0 {
		obj.Nonce = encodeUint64(g.Nonce)
	}

	if g.CodeVersion != 0 {
		obj.CodeVersion = encodeUint64(g.CodeVersion)
	}

	return obj
}

// MarshalJSON implements the json interface
func (g *GenesisAccount) MarshalJSON() ([]byte, error) {
	return json.Marshal(g.encoder())
}

// UnmarshalJSON implements the json interface
func (g *GenesisAccount) UnmarshalJSON(data []byte) error {
	var dec genesisAccountEncoder
	if err := json.Unmarshal(data, &dec); err != nil {
		return err
	}

	var err, subErr error

	parseError := func(field string, subErr error) {
		err = multierror.Append(err, fmt.Errorf("%s: %w", field, subErr))
	}

	if dec.Code != nil {
		g.Code, subErr = hex.DecodeHex(*dec.Code)
		if subErr != nil {
			parseError("code", subErr)
		}
	}

	if dec.Storage != nil {
		g.Storage = dec.Storage
	}

	g.Balance, subErr = common.ParseUint256orHex(dec.Balance)
	if subErr != nil {
		parseError("balance", subErr)
	}

	g.Nonce, subErr = common.ParseUint64orHex(dec.Nonce)
	if subErr != nil {
		parseError("nonce", subErr)
	}

	g.CodeVersion, subErr = common.ParseUint64orHex(dec.CodeVersion)
	if subErr != nil {
		parseError("codeVersion", subErr)
	}

	if dec.Secret != nil {
		g.PrivateKey, subErr = hex.DecodeHex(*dec.Secret)
		if subErr != nil {
			parseError("secret", subErr)
		}
	}

	return err
}

func encodeUint64(i uint64) *string {
	if i == 0 {
		return nil
	}

	res := hex.EncodeUint64(i)

	return &res
}

func encodeBytes(b []byte) *string {
	if len(b) == 0 {
		return nil
	}

	res := hex.EncodeToHex(b)

	return &res
}

// Import decodes a chain from json or yaml content
func Import(content []byte, format string) (*Chain, error) {
	switch format {
	case "json":
	case "yaml", "yml":
		// yaml documents are mapped onto the json codec
		var raw map[string]interface{}
		if err := yaml.Unmarshal(content, &raw); err != nil {
			return nil, err
		}

		var err error
		if content, err = json.Marshal(raw); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedChain, format)
	}

	var chain *Chain
	if err := json.Unmarshal(content, &chain); err != nil {
		return nil, err
	}

	if chain == nil {
		return nil, ErrMissingParams
	}

	if err := chain.Validate(); err != nil {
		return nil, err
	}

	return chain, nil
}

// ImportFromFile imports a chain from a filepath. The format is taken from the extension.
func ImportFromFile(filename string) (*Chain, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, err
	}

	return Import(data, strings.TrimPrefix(filepath.Ext(filename), "."))
}

// ImportFromName imports one of the built-in chains, or a file when name is a path
func ImportFromName(name string) (*Chain, error) {
	if preset, ok := Presets[name]; ok {
		return preset(), nil
	}

	return ImportFromFile(name)
}
