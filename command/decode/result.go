package decode

import (
	"bytes"
	"fmt"

	"github.com/rei-network/executive/command/helper"
	"github.com/rei-network/executive/helper/hex"
	"github.com/rei-network/executive/types"
)

type DecodeResult struct {
	Hash       types.Hash     `json:"hash"`
	Type       string         `json:"type"`
	From       *types.Address `json:"from,omitempty"`
	To         *types.Address `json:"to,omitempty"`
	Nonce      uint64         `json:"nonce"`
	Value      string         `json:"value"`
	GasPrice   string         `json:"gasPrice"`
	Gas        uint64         `json:"gas"`
	Input      string         `json:"input"`
	ChainID    *uint64        `json:"chainID,omitempty"`
	AccessList int            `json:"accessList"`
	ZeroSig    bool           `json:"zeroSignature"`
}

func newDecodeResult(tx *types.Transaction) *DecodeResult {
	res := &DecodeResult{
		Hash:     tx.Hash(),
		Type:     tx.Type.String(),
		To:       tx.To,
		Nonce:    tx.Nonce,
		Value:    hex.EncodeBig(tx.Value),
		GasPrice: hex.EncodeBig(tx.GasPrice),
		Gas:      tx.Gas,
		Input:    hex.EncodeToHex(tx.Input),
		ChainID:  tx.ChainID,
		ZeroSig:  tx.HasZeroSignature(),
	}

	if tx.AccessList != nil {
		res.AccessList = tx.AccessList.Len()
	}

	// the sender is only known once the signature was recovered
	if from, ok := tx.From(); ok {
		res.From = &from
	}

	return res
}

func (r *DecodeResult) GetOutput() string {
	var buffer bytes.Buffer

	from, to, chainID := "<unknown>", "<create>", "<none>"

	if r.From != nil {
		from = r.From.String()
	}

	if r.To != nil {
		to = r.To.String()
	}

	if r.ChainID != nil {
		chainID = fmt.Sprintf("%d", *r.ChainID)
	}

	buffer.WriteString("\n[TRANSACTION]\n")
	buffer.WriteString(helper.FormatKV([]string{
		fmt.Sprintf("Hash|%s", r.Hash),
		fmt.Sprintf("Type|%s", r.Type),
		fmt.Sprintf("From|%s", from),
		fmt.Sprintf("To|%s", to),
		fmt.Sprintf("Nonce|%d", r.Nonce),
		fmt.Sprintf("Value|%s", r.Value),
		fmt.Sprintf("Gas price|%s", r.GasPrice),
		fmt.Sprintf("Gas|%d", r.Gas),
		fmt.Sprintf("Chain ID|%s", chainID),
		fmt.Sprintf("Access list entries|%d", r.AccessList),
		fmt.Sprintf("Zero signature|%t", r.ZeroSig),
		fmt.Sprintf("Input|%s", r.Input),
	}))
	buffer.WriteString("\n")

	return buffer.String()
}
