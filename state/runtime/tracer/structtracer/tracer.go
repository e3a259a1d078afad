package structtracer

import (
	"errors"
	"fmt"
	"math/big"
	"sync/atomic"

	"github.com/rei-network/executive/helper/hex"
	"github.com/rei-network/executive/state/runtime"
	"github.com/rei-network/executive/state/runtime/evm"
	"github.com/rei-network/executive/types"
)

type Config struct {
	EnableMemory  bool // enable memory capture
	EnableStack   bool // enable stack capture
	EnableStorage bool // enable storage capture
}

// StorageReader resolves the slots read by SLOAD
type StorageReader interface {
	GetStorage(addr types.Address, key types.Hash) types.Hash
}

type StructLog struct {
	Pc            uint64                    `json:"pc"`
	Op            string                    `json:"op"`
	Gas           uint64                    `json:"gas"`
	GasCost       uint64                    `json:"gasCost"`
	Memory        []byte                    `json:"memory,omitempty"`
	MemorySize    int                       `json:"memSize"`
	Stack         []*big.Int                `json:"stack"`
	Storage       map[types.Hash]types.Hash `json:"storage"`
	Depth         int                       `json:"depth"`
	RefundCounter int64                     `json:"refund"`
}

// StructTracer records one StructLog per executed instruction. Its Hook is
// installed on the top level contract and inherited by every child frame.
type StructTracer struct {
	Config Config

	reader    StorageReader
	reason    error
	interrupt uint32

	logs        []StructLog
	gasLimit    uint64
	consumedGas uint64
	output      []byte
	err         error
	storage     map[types.Address]map[types.Hash]types.Hash
}

func NewStructTracer(config Config, reader StorageReader) *StructTracer {
	return &StructTracer{
		Config:  config,
		reader:  reader,
		storage: make(map[types.Address]map[types.Hash]types.Hash),
	}
}

// Cancel stops the recording, GetResult returns err afterwards
func (t *StructTracer) Cancel(err error) {
	t.reason = err
	atomic.StoreUint32(&t.interrupt, 1)
}

func (t *StructTracer) cancelled() bool {
	return atomic.LoadUint32(&t.interrupt) == 1
}

func (t *StructTracer) Clear() {
	t.reason = nil
	t.interrupt = 0
	t.logs = t.logs[:0]
	t.gasLimit = 0
	t.consumedGas = 0
	t.output = t.output[:0]
	t.err = nil
	t.storage = make(map[types.Address]map[types.Hash]types.Hash)
}

func (t *StructTracer) TxStart(gasLimit uint64) {
	t.gasLimit = gasLimit
}

// TxEnd records the outcome of the traced execution
func (t *StructTracer) TxEnd(gasUsed uint64, output []byte, err error) {
	t.consumedGas = gasUsed
	t.output = append(t.output[:0], output...)
	t.err = err
}

// Hook is the runtime.StepHook of the tracer
func (t *StructTracer) Hook(info *runtime.StepInfo) {
	if t.cancelled() {
		return
	}

	log := StructLog{
		Pc:            info.PC,
		Op:            info.OpName,
		Gas:           info.Gas,
		GasCost:       info.GasCost,
		Depth:         info.Depth,
		RefundCounter: info.Refund,
	}

	if t.Config.EnableMemory {
		log.MemorySize = len(info.Memory)
		log.Memory = make([]byte, len(info.Memory))
		copy(log.Memory, info.Memory)
	}

	if t.Config.EnableStack {
		log.Stack = make([]*big.Int, len(info.Stack))
		for i, v := range info.Stack {
			log.Stack[i] = new(big.Int).Set(v)
		}
	}

	if t.Config.EnableStorage {
		t.captureStorage(info)

		if contractStorage, ok := t.storage[info.Address]; ok {
			log.Storage = make(map[types.Hash]types.Hash, len(contractStorage))
			for k, v := range contractStorage {
				log.Storage[k] = v
			}
		}
	}

	t.logs = append(t.logs, log)
}

func (t *StructTracer) captureStorage(info *runtime.StepInfo) {
	sp := len(info.Stack)

	switch info.Op {
	case evm.SLOAD:
		if sp < 1 || t.reader == nil {
			return
		}

		slot := types.BytesToHash(info.Stack[sp-1].Bytes())
		t.contractStorage(info.Address)[slot] = t.reader.GetStorage(info.Address, slot)

	case evm.SSTORE:
		if sp < 2 {
			return
		}

		slot := types.BytesToHash(info.Stack[sp-1].Bytes())
		value := types.BytesToHash(info.Stack[sp-2].Bytes())

		t.contractStorage(info.Address)[slot] = value
	}
}

func (t *StructTracer) contractStorage(addr types.Address) map[types.Hash]types.Hash {
	s, ok := t.storage[addr]
	if !ok {
		s = make(map[types.Hash]types.Hash)
		t.storage[addr] = s
	}

	return s
}

type StructTraceResult struct {
	Failed      bool           `json:"failed"`
	Gas         uint64         `json:"gas"`
	ReturnValue string         `json:"returnValue"`
	StructLogs  []StructLogRes `json:"structLogs"`
}

type StructLogRes struct {
	Pc            uint64            `json:"pc"`
	Op            string            `json:"op"`
	Gas           uint64            `json:"gas"`
	GasCost       uint64            `json:"gasCost"`
	Depth         int               `json:"depth"`
	Stack         []string          `json:"stack,omitempty"`
	Memory        []string          `json:"memory,omitempty"`
	Storage       map[string]string `json:"storage,omitempty"`
	RefundCounter int64             `json:"refund,omitempty"`
}

func (t *StructTracer) GetResult() (*StructTraceResult, error) {
	if t.reason != nil {
		return nil, t.reason
	}

	var returnValue string

	if t.err != nil && !errors.Is(t.err, runtime.ErrExecutionReverted) {
		returnValue = ""
	} else {
		returnValue = fmt.Sprintf("%x", t.output)
	}

	return &StructTraceResult{
		Failed:      t.err != nil,
		Gas:         t.consumedGas,
		ReturnValue: returnValue,
		StructLogs:  formatStructLogs(t.logs),
	}, nil
}

func formatStructLogs(originalLogs []StructLog) []StructLogRes {
	res := make([]StructLogRes, len(originalLogs))

	for index, log := range originalLogs {
		res[index] = StructLogRes{
			Pc:            log.Pc,
			Op:            log.Op,
			Gas:           log.Gas,
			GasCost:       log.GasCost,
			Depth:         log.Depth,
			RefundCounter: log.RefundCounter,
		}

		if log.Stack != nil {
			stack := make([]string, len(log.Stack))
			for i, value := range log.Stack {
				stack[i] = hex.EncodeBig(value)
			}

			res[index].Stack = stack
		}

		if log.Memory != nil {
			memory := make([]string, 0, (len(log.Memory)+31)/32)
			for i := 0; i+32 <= len(log.Memory); i += 32 {
				memory = append(memory, hex.EncodeToString(log.Memory[i:i+32]))
			}

			res[index].Memory = memory
		}

		if log.Storage != nil {
			storage := make(map[string]string)
			for i, storageValue := range log.Storage {
				storage[hex.EncodeToString(i.Bytes())] = hex.EncodeToString(storageValue.Bytes())
			}

			res[index].Storage = storage
		}
	}

	return res
}
