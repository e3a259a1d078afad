package state

import (
	"fmt"

	"github.com/hashicorp/go-hclog"

	"github.com/rei-network/executive/chain"
	"github.com/rei-network/executive/state/runtime"
	"github.com/rei-network/executive/types"
)

// GetHashByNumberHelper builds the ancestor hash lookup of a block
type GetHashByNumberHelper = func(*types.Header) GetHashByNumber

// Executor is the main entity
type Executor struct {
	logger  hclog.Logger
	config  *chain.Params
	state   State
	GetHash GetHashByNumberHelper
}

// NewExecutor creates a new executor
func NewExecutor(config *chain.Params, s State, logger hclog.Logger) *Executor {
	return &Executor{
		logger: logger.Named("executor"),
		config: config,
		state:  s,
	}
}

// WriteGenesis applies the genesis allocation on top of the initial state
// root and returns the resulting root
func (e *Executor) WriteGenesis(
	alloc map[types.Address]*chain.GenesisAccount,
	initialStateRoot types.Hash,
) (types.Hash, error) {
	var (
		snap Snapshot
		err  error
	)

	if initialStateRoot == types.ZeroHash {
		snap = e.state.NewSnapshot()
	} else {
		snap, err = e.state.NewSnapshotAt(initialStateRoot)
	}

	if err != nil {
		return types.ZeroHash, err
	}

	ws := NewWorldState(snap, e.config.AccountStartNonce)

	for addr, account := range alloc {
		// an allocation without balance still creates the account
		ws.AddBalance(addr, orZero(account.Balance))

		if account.Nonce != 0 {
			ws.SetNonce(addr, account.Nonce)
		}

		if len(account.Code) != 0 {
			ws.SetCode(addr, account.Code, account.CodeVersion)
		}

		for key, value := range account.Storage {
			ws.SetStorage(addr, key, value)
		}
	}

	_, root, err := ws.Commit(false)
	if err != nil {
		return types.ZeroHash, fmt.Errorf("failed to write genesis: %w", err)
	}

	e.logger.Debug("genesis written", "accounts", len(alloc), "root", root)

	return root, nil
}

// ProcessBlock applies the transactions of a block on top of the parent root
func (e *Executor) ProcessBlock(
	parentRoot types.Hash,
	header *types.Header,
	txs []*types.Transaction,
) (*Transition, error) {
	transition, err := e.BeginTxn(parentRoot, header, header.Miner)
	if err != nil {
		return nil, err
	}

	for _, tx := range txs {
		if err := transition.Write(tx); err != nil {
			return nil, err
		}
	}

	return transition, nil
}

// State returns the persistent state of the executor
func (e *Executor) State() State {
	return e.state
}

// StateAt returns snapshot at given root
func (e *Executor) StateAt(root types.Hash) (Snapshot, error) {
	return e.state.NewSnapshotAt(root)
}

// BeginTxn starts a block on top of the parent root. Fees go to the coinbase
// receiver.
func (e *Executor) BeginTxn(
	parentRoot types.Hash,
	header *types.Header,
	coinbaseReceiver types.Address,
) (*Transition, error) {
	snap, err := e.state.NewSnapshotAt(parentRoot)
	if err != nil {
		return nil, err
	}

	head := header.Copy()
	head.Miner = coinbaseReceiver
	head.GasUsed = 0

	env := &EnvInfo{Header: head}
	if e.GetHash != nil {
		env.GetHash = e.GetHash(header)
	}

	return &Transition{
		logger:   e.logger.Named("transition"),
		params:   e.config,
		state:    NewWorldState(snap, e.config.AccountStartNonce),
		env:      env,
		receipts: []*types.Receipt{},
	}, nil
}

// Transition applies transactions and messages of one block in order
type Transition struct {
	logger hclog.Logger
	params *chain.Params
	state  *WorldState
	env    *EnvInfo

	// result
	receipts []*types.Receipt
	totalGas uint64

	hook     runtime.StepHook
	PostHook func(t *Transition)
}

// NewTransition creates a transition directly on a world state
func NewTransition(logger hclog.Logger, params *chain.Params, ws *WorldState, env *EnvInfo) *Transition {
	return &Transition{
		logger:   logger.Named("transition"),
		params:   params,
		state:    ws,
		env:      env,
		receipts: []*types.Receipt{},
	}
}

// SetStepHook installs a hook called before every instruction
func (t *Transition) SetStepHook(hook runtime.StepHook) {
	t.hook = hook
}

func (t *Transition) TotalGas() uint64 {
	return t.totalGas
}

func (t *Transition) Receipts() []*types.Receipt {
	return t.receipts
}

// State returns the world state the transition writes to
func (t *Transition) State() *WorldState {
	return t.state
}

// GetStorage reads the current value of a slot
func (t *Transition) GetStorage(addr types.Address, key types.Hash) types.Hash {
	return t.state.Storage(addr, key)
}

// Write applies a transaction and appends its receipt. A transaction that
// fails with an error leaves the state untouched.
func (t *Transition) Write(tx *types.Transaction) error {
	t.state.BeginTransaction()
	begin := t.state.Savepoint()

	e := NewExecutive(t.logger, t.params, t.state, t.envInfo())
	if err := e.Initialize(tx); err != nil {
		t.logger.Debug("invalid transaction", "hash", tx.Hash(), "err", err)

		return err
	}

	if err := t.execute(e); err != nil {
		t.logger.Error("failed to apply tx", "hash", tx.Hash(), "err", err)
		t.state.RollbackTo(begin)

		return err
	}

	res := e.Result()
	t.totalGas += res.GasUsed

	number := t.env.Header.Number

	_, root, err := t.state.Commit(t.params.ScheduleFor(number).EIP158Mode)
	if err != nil {
		return err
	}

	receipt := &types.Receipt{
		CumulativeGasUsed: t.totalGas,
		TxType:            tx.Type,
		TxHash:            tx.Hash(),
		GasUsed:           res.GasUsed,
		Logs:              e.Logs(),
	}

	// receipts carry a status from byzantium on, the intermediate root before
	if t.params.Forks.Is(chain.Byzantium, number) {
		if res.Succeeded() {
			receipt.SetStatus(types.ReceiptSuccess)
		} else {
			receipt.SetStatus(types.ReceiptFailed)
		}
	} else {
		receipt.Root = root
	}

	if tx.IsContractCreation() && res.Succeeded() {
		receipt.SetContractAddress(res.NewAddress)
	}

	receipt.LogsBloom = types.CreateBloom([]*types.Receipt{receipt})
	t.receipts = append(t.receipts, receipt)

	t.logger.Debug("tx applied", "hash", tx.Hash(), "gas", res.GasUsed, "excepted", res.Excepted)

	if t.PostHook != nil {
		t.PostHook(t)
	}

	return nil
}

// ApplyMessage runs an internal message. Messages produce no receipt and do
// not count towards the block gas.
func (t *Transition) ApplyMessage(msg *Message) (*ExecutionResult, []*types.Log, error) {
	t.state.BeginTransaction()
	begin := t.state.Savepoint()

	e := NewExecutive(t.logger, t.params, t.state, t.envInfo())
	if err := e.InitializeMessage(msg); err != nil {
		return nil, nil, err
	}

	if err := t.execute(e); err != nil {
		t.logger.Error("failed to apply message", "from", msg.From, "to", msg.To, "err", err)
		t.state.RollbackTo(begin)

		return nil, nil, err
	}

	if _, _, err := t.state.Commit(msg.ClearEmptyAccount); err != nil {
		return nil, nil, err
	}

	return e.Result(), e.Logs(), nil
}

func (t *Transition) execute(e *Executive) error {
	done, err := e.Execute()
	if err != nil {
		return err
	}

	if !done {
		if err := e.Go(t.hook); err != nil {
			return err
		}
	}

	e.Finalize()

	return nil
}

// envInfo is the block environment with the gas used so far
func (t *Transition) envInfo() *EnvInfo {
	t.env.GasUsed = t.totalGas

	return t.env
}

// Commit commits the final result
func (t *Transition) Commit() (Snapshot, types.Hash, error) {
	return t.state.Commit(t.params.ScheduleFor(t.env.Header.Number).EIP158Mode)
}
