package genesis

import (
	"bytes"
	"fmt"

	"github.com/rei-network/executive/command/helper"
)

type GenesisResult struct {
	Message string `json:"message"`
	Name    string `json:"name"`
	ChainID uint64 `json:"chainID"`
	Premine int    `json:"premine"`
}

func (r *GenesisResult) GetOutput() string {
	var buffer bytes.Buffer

	buffer.WriteString("\n[GENESIS SUCCESS]\n")
	buffer.WriteString(r.Message)
	buffer.WriteString(helper.FormatKV([]string{
		fmt.Sprintf("Chain|%s", r.Name),
		fmt.Sprintf("Chain ID|%d", r.ChainID),
		fmt.Sprintf("Premined accounts|%d", r.Premine),
	}))
	buffer.WriteString("\n")

	return buffer.String()
}
