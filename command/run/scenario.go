package run

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/rei-network/executive/command/helper"
	"github.com/rei-network/executive/crypto"
	"github.com/rei-network/executive/helper/common"
	"github.com/rei-network/executive/helper/hex"
	"github.com/rei-network/executive/state"
	"github.com/rei-network/executive/types"
)

const defaultBlockGasLimit = 30_000_000

var (
	errEmptyScenario = errors.New("scenario has no steps")
	errStepPayload   = errors.New("a transaction step needs exactly one of raw, key or zeroSignature")
)

// Scenario is a block environment and the transactions and messages applied
// in it, in order
type Scenario struct {
	Block *BlockEnv `json:"block" yaml:"block"`
	Steps []*Step   `json:"steps" yaml:"steps"`
}

// BlockEnv overrides the header fields of the executed block
type BlockEnv struct {
	Number     uint64 `json:"number" yaml:"number"`
	Timestamp  uint64 `json:"timestamp" yaml:"timestamp"`
	GasLimit   uint64 `json:"gasLimit" yaml:"gasLimit"`
	Difficulty uint64 `json:"difficulty" yaml:"difficulty"`
	Miner      string `json:"miner" yaml:"miner"`
}

// Step is either a transaction or, with Message set, an internal message
type Step struct {
	Message bool `json:"message" yaml:"message"`

	// transaction payloads
	Raw           string  `json:"raw" yaml:"raw"`
	Key           string  `json:"key" yaml:"key"`
	ZeroSignature bool    `json:"zeroSignature" yaml:"zeroSignature"`
	Typed         bool    `json:"typed" yaml:"typed"`
	Nonce         *uint64 `json:"nonce" yaml:"nonce"`

	// message sender and base fee
	From    string `json:"from" yaml:"from"`
	BaseFee uint64 `json:"baseFee" yaml:"baseFee"`

	To           string         `json:"to" yaml:"to"`
	Create       bool           `json:"create" yaml:"create"`
	Upgrade      bool           `json:"upgrade" yaml:"upgrade"`
	ClearStorage bool           `json:"clearStorage" yaml:"clearStorage"`
	ClearEmpty   bool           `json:"clearEmptyAccount" yaml:"clearEmptyAccount"`
	Value        string         `json:"value" yaml:"value"`
	GasPrice     string         `json:"gasPrice" yaml:"gasPrice"`
	Gas          uint64         `json:"gas" yaml:"gas"`
	Input        string         `json:"input" yaml:"input"`
	AccessList   []*AccessTuple `json:"accessList" yaml:"accessList"`
}

type AccessTuple struct {
	Address     string   `json:"address" yaml:"address"`
	StorageKeys []string `json:"storageKeys" yaml:"storageKeys"`
}

// ReadScenario reads a scenario from a json or yaml file
func ReadScenario(path string) (*Scenario, error) {
	scenario := &Scenario{}
	if err := helper.UnmarshalFile(path, scenario); err != nil {
		return nil, err
	}

	if len(scenario.Steps) == 0 {
		return nil, fmt.Errorf("%w: %s", errEmptyScenario, path)
	}

	return scenario, nil
}

// header builds the block header on top of the parent
func (s *Scenario) header(parent *types.Header) *types.Header {
	header := &types.Header{
		ParentHash: parent.Hash,
		Number:     parent.Number + 1,
		Timestamp:  parent.Timestamp,
		GasLimit:   parent.GasLimit,
		Difficulty: parent.Difficulty,
		Miner:      parent.Miner,
	}

	if b := s.Block; b != nil {
		if b.Number != 0 {
			header.Number = b.Number
		}

		if b.Timestamp != 0 {
			header.Timestamp = b.Timestamp
		}

		if b.GasLimit != 0 {
			header.GasLimit = b.GasLimit
		}

		if b.Difficulty != 0 {
			header.Difficulty = b.Difficulty
		}

		if b.Miner != "" {
			header.Miner = types.StringToAddress(b.Miner)
		}
	}

	if header.GasLimit == 0 {
		header.GasLimit = defaultBlockGasLimit
	}

	return header
}

func (s *Step) kind() string {
	if s.Message {
		return "message"
	}

	return "transaction"
}

// transaction builds the transaction of the step. Unset nonces of signed
// transactions are read from the world state.
func (s *Step) transaction(ws *state.WorldState, chainID uint64) (*types.Transaction, error) {
	payloads := 0

	for _, set := range []bool{s.Raw != "", s.Key != "", s.ZeroSignature} {
		if set {
			payloads++
		}
	}

	if payloads != 1 {
		return nil, errStepPayload
	}

	if s.Raw != "" {
		raw, err := hex.DecodeHex(s.Raw)
		if err != nil {
			return nil, err
		}

		return crypto.DecodeTransaction(raw, crypto.VerificationCheap)
	}

	skel, err := s.skeleton()
	if err != nil {
		return nil, err
	}

	if s.Typed || skel.AccessList != nil {
		if skel.AccessList == nil {
			skel.AccessList = types.NewAccessList()
		}

		skel.ChainID = &chainID
	}

	if s.ZeroSignature {
		tx, err := types.NewTransaction(skel)
		if err != nil {
			return nil, err
		}

		tx.SetSignature(&types.Signature{R: big.NewInt(0), S: big.NewInt(0)})

		return tx, nil
	}

	key, err := crypto.BytesToECDSAPrivateKey([]byte(s.Key))
	if err != nil {
		return nil, err
	}

	if s.Nonce == nil {
		skel.Nonce = ws.Nonce(crypto.PubKeyToAddress(&key.PublicKey))
	}

	return crypto.NewSignedTransaction(skel, key)
}

func (s *Step) skeleton() (types.TransactionSkeleton, error) {
	skel := types.TransactionSkeleton{
		Creation: s.Create,
		Gas:      s.Gas,
	}

	if !s.Create {
		skel.To = types.StringToAddress(s.To)
	}

	if s.Nonce != nil {
		skel.Nonce = *s.Nonce
	}

	var err error

	if skel.Value, err = parseBig(s.Value); err != nil {
		return skel, err
	}

	if skel.GasPrice, err = parseBig(s.GasPrice); err != nil {
		return skel, err
	}

	if skel.Input, err = parseBytes(s.Input); err != nil {
		return skel, err
	}

	skel.AccessList = s.accessList()

	return skel, nil
}

// message builds the internal message of the step
func (s *Step) message() (*state.Message, error) {
	msg := &state.Message{
		From:              types.StringToAddress(s.From),
		To:                types.StringToAddress(s.To),
		Gas:               s.Gas,
		BaseFee:           s.BaseFee,
		IsCreation:        s.Create,
		IsUpgrade:         s.Upgrade,
		ClearStorage:      s.ClearStorage,
		ClearEmptyAccount: s.ClearEmpty,
		AccessList:        s.accessList(),
	}

	var err error

	if msg.Value, err = parseBig(s.Value); err != nil {
		return nil, err
	}

	if msg.GasPrice, err = parseBig(s.GasPrice); err != nil {
		return nil, err
	}

	if msg.Data, err = parseBytes(s.Input); err != nil {
		return nil, err
	}

	return msg, nil
}

func (s *Step) accessList() *types.AccessList {
	if len(s.AccessList) == 0 {
		return nil
	}

	tuples := make([]types.AccessTuple, 0, len(s.AccessList))

	for _, t := range s.AccessList {
		keys := make([]types.Hash, 0, len(t.StorageKeys))
		for _, k := range t.StorageKeys {
			keys = append(keys, types.StringToHash(k))
		}

		tuples = append(tuples, types.AccessTuple{
			Address:     types.StringToAddress(t.Address),
			StorageKeys: keys,
		})
	}

	return types.NewAccessList(tuples...)
}

func parseBig(s string) (*big.Int, error) {
	if s == "" {
		return big.NewInt(0), nil
	}

	return common.ParseUint256orHex(&s)
}

func parseBytes(s string) ([]byte, error) {
	if s == "" {
		return nil, nil
	}

	return hex.DecodeHex(s)
}
