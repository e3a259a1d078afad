package state

import (
	"math/big"

	"github.com/rei-network/executive/chain"
	"github.com/rei-network/executive/state/runtime"
	"github.com/rei-network/executive/types"
)

// SubState is what a frame accumulates besides state changes. A child frame
// hands it to its parent only when it succeeds.
type SubState struct {
	selfdestructs []types.Address
	destructed    map[types.Address]struct{}
	logs          []*types.Log
	refunds       int64
}

func (s *SubState) selfdestruct(addr types.Address) {
	if s.destructed == nil {
		s.destructed = map[types.Address]struct{}{}
	}

	if _, ok := s.destructed[addr]; ok {
		return
	}

	s.destructed[addr] = struct{}{}
	s.selfdestructs = append(s.selfdestructs, addr)
}

func (s *SubState) merge(child *SubState) {
	for _, addr := range child.selfdestructs {
		s.selfdestruct(addr)
	}

	s.logs = append(s.logs, child.logs...)
	s.refunds += child.refunds
}

func (s *SubState) clear() {
	s.selfdestructs = nil
	s.destructed = nil
	s.logs = nil
	s.refunds = 0
}

// extVM is the host of one interpreter frame scheduled by an executive
type extVM struct {
	e        *Executive
	contract *runtime.Contract
	schedule *chain.Schedule
	gasPrice *big.Int
	creation bool

	sub SubState
}

var _ runtime.Host = &extVM{}

func (h *extVM) AccountExists(addr types.Address) bool {
	return h.e.state.AccountExists(addr)
}

func (h *extVM) Empty(addr types.Address) bool {
	return h.e.state.Empty(addr)
}

func (h *extVM) GetBalance(addr types.Address) *big.Int {
	return h.e.state.Balance(addr)
}

func (h *extVM) GetNonce(addr types.Address) uint64 {
	return h.e.state.Nonce(addr)
}

func (h *extVM) GetCodeSize(addr types.Address) int {
	return len(h.e.state.Code(addr))
}

func (h *extVM) GetCodeHash(addr types.Address) types.Hash {
	return h.e.state.CodeHash(addr)
}

func (h *extVM) GetCode(addr types.Address) []byte {
	return h.e.state.Code(addr)
}

func (h *extVM) GetStorage(addr types.Address, key types.Hash) types.Hash {
	return h.e.state.Storage(addr, key)
}

func (h *extVM) GetOriginalStorage(addr types.Address, key types.Hash) types.Hash {
	return h.e.state.OriginalStorage(addr, key)
}

func (h *extVM) SetStorage(addr types.Address, key, value types.Hash) {
	h.e.state.SetStorage(addr, key, value)
}

func (h *extVM) AccessAccount(addr types.Address) bool {
	if h.e.state.IsAddressWarm(addr) {
		return true
	}

	h.e.state.MarkAddressWarm(addr)

	return false
}

func (h *extVM) AccessStorage(addr types.Address, key types.Hash) bool {
	if h.e.state.IsStorageKeyWarm(addr, key) {
		return true
	}

	h.e.state.MarkStorageKeyWarm(addr, key)

	return false
}

// Selfdestruct moves the whole balance to the beneficiary and queues the
// account for removal. A contract naming itself as beneficiary burns its
// balance.
func (h *extVM) Selfdestruct(addr, beneficiary types.Address) {
	h.e.state.AddBalance(beneficiary, h.e.state.Balance(addr))
	h.e.state.SetBalance(addr, big.NewInt(0))

	h.sub.selfdestruct(addr)
}

func (h *extVM) EmitLog(addr types.Address, topics []types.Hash, data []byte) {
	h.sub.logs = append(h.sub.logs, &types.Log{
		Address: addr,
		Topics:  topics,
		Data:    data,
	})
}

func (h *extVM) AddRefund(delta int64) {
	h.sub.refunds += delta
}

func (h *extVM) GetRefund() int64 {
	return h.sub.refunds
}

func (h *extVM) GetBlockHash(number uint64) types.Hash {
	if h.e.env.GetHash == nil {
		return types.ZeroHash
	}

	return h.e.env.GetHash(number)
}

func (h *extVM) GetTxContext() runtime.TxContext {
	header := h.e.env.Header

	return runtime.TxContext{
		GasPrice:   new(big.Int).Set(h.gasPrice),
		Origin:     h.contract.Origin,
		Coinbase:   header.Miner,
		Number:     header.Number,
		Timestamp:  header.Timestamp,
		GasLimit:   header.GasLimit,
		ChainID:    h.e.params.ChainID,
		Difficulty: new(big.Int).SetUint64(header.Difficulty),
	}
}

// Callx runs a nested call or creation on a child executive one level deeper
func (h *extVM) Callx(c *runtime.Contract) *runtime.ExecutionResult {
	child := h.e.child()

	var (
		done bool
		err  error
	)

	switch c.Type {
	case runtime.Create:
		done, err = child.CreateOpcode(c.Caller, c.Value, h.gasPrice, c.Gas, c.Code, c.Origin)
	case runtime.Create2:
		done, err = child.Create2Opcode(c.Caller, c.Value, h.gasPrice, c.Gas, c.Code, c.Origin, c.Salt)
	default:
		done, err = child.dispatch(&Operation{
			Kind:        OperationCall,
			Sender:      c.Caller,
			Receiver:    c.Address,
			CodeAddress: c.CodeAddress,
			Value:       c.Value,
			Transfer:    callTransfer(c),
			GasPrice:    h.gasPrice,
			Gas:         c.Gas,
			Data:        c.Input,
			Origin:      c.Origin,
			Static:      c.Static,
			CallType:    c.Type,
		})
	}

	if err != nil {
		return &runtime.ExecutionResult{Err: err}
	}

	if !done {
		if err := child.Go(c.Hook); err != nil {
			return &runtime.ExecutionResult{Err: err}
		}

		child.accrueSubState(&h.sub)
	}

	return &runtime.ExecutionResult{
		ReturnValue: child.output,
		GasLeft:     child.gas,
		Address:     child.newAddress,
		Err:         child.exceptionErr(),
	}
}

// callTransfer is the value moved by a call. Delegate and static calls move
// nothing.
func callTransfer(c *runtime.Contract) *big.Int {
	if c.Type == runtime.DelegateCall || c.Type == runtime.StaticCall || c.Value == nil {
		return big.NewInt(0)
	}

	return c.Value
}
