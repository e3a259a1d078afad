package run

import (
	"bytes"
	"fmt"

	"github.com/rei-network/executive/command/helper"
	"github.com/rei-network/executive/state/runtime"
	"github.com/rei-network/executive/state/runtime/tracer/structtracer"
	"github.com/rei-network/executive/types"
)

type RunResult struct {
	RunID     string            `json:"runID"`
	Scenarios []*ScenarioResult `json:"scenarios"`
	Metrics   []*MetricResult   `json:"metrics,omitempty"`
}

func (r *RunResult) GetOutput() string {
	var buffer bytes.Buffer

	buffer.WriteString("\n[RUN]\n")
	buffer.WriteString(helper.FormatKV([]string{
		fmt.Sprintf("Run ID|%s", r.RunID),
		fmt.Sprintf("Scenarios|%d", len(r.Scenarios)),
	}))
	buffer.WriteString("\n")

	for _, s := range r.Scenarios {
		buffer.WriteString(s.GetOutput())
	}

	if len(r.Metrics) != 0 {
		rows := make([]string, 0, len(r.Metrics)+1)
		rows = append(rows, "Name|Type|Value")

		for _, m := range r.Metrics {
			rows = append(rows, fmt.Sprintf("%s|%s|%g", m.Name, m.Type, m.Value))
		}

		buffer.WriteString("\n[METRICS]\n")
		buffer.WriteString(helper.FormatList(rows))
		buffer.WriteString("\n")
	}

	return buffer.String()
}

type ScenarioResult struct {
	File        string        `json:"file"`
	Number      uint64        `json:"number"`
	GenesisRoot types.Hash    `json:"genesisRoot"`
	StateRoot   types.Hash    `json:"stateRoot"`
	GasUsed     uint64        `json:"gasUsed"`
	Steps       []*StepResult `json:"steps"`
}

func (r *ScenarioResult) GetOutput() string {
	var buffer bytes.Buffer

	buffer.WriteString(fmt.Sprintf("\n[SCENARIO %s]\n", r.File))
	buffer.WriteString(helper.FormatKV([]string{
		fmt.Sprintf("Block|%d", r.Number),
		fmt.Sprintf("Genesis root|%s", r.GenesisRoot),
		fmt.Sprintf("State root|%s", r.StateRoot),
		fmt.Sprintf("Gas used|%d", r.GasUsed),
	}))
	buffer.WriteString("\n\n")

	rows := make([]string, 0, len(r.Steps)+1)
	rows = append(rows, "#|Kind|Status|Gas|Logs|Contract|Error")

	for _, s := range r.Steps {
		contract := ""
		if s.ContractAddress != nil {
			contract = s.ContractAddress.String()
		}

		rows = append(rows, fmt.Sprintf("%d|%s|%s|%d|%d|%s|%s",
			s.Index, s.Kind, s.Status, s.GasUsed, s.Logs, contract, s.Error))
	}

	buffer.WriteString(helper.FormatList(rows))
	buffer.WriteString("\n")

	return buffer.String()
}

type StepResult struct {
	Index           int            `json:"index"`
	Kind            string         `json:"kind"`
	Hash            types.Hash     `json:"hash,omitempty"`
	Status          string         `json:"status"`
	Exception       string         `json:"exception,omitempty"`
	GasUsed         uint64         `json:"gasUsed"`
	Logs            int            `json:"logs"`
	ContractAddress *types.Address `json:"contractAddress,omitempty"`
	Error           string         `json:"error,omitempty"`

	Trace *structtracer.StructTraceResult `json:"trace,omitempty"`
}

// reject records a transaction or message the executive refused. Fatal
// faults are returned instead.
func (r *StepResult) reject(err error) (*StepResult, error) {
	if runtime.IsFatal(err) {
		return nil, err
	}

	r.Status = "rejected"
	r.Error = err.Error()

	if code, ok := runtime.ExceptionFor(err); ok {
		r.Exception = code.String()
	}

	return r, nil
}

type MetricResult struct {
	Name  string  `json:"name"`
	Type  string  `json:"type"`
	Value float64 `json:"value"`
}
