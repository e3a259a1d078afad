package state

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/armon/go-metrics"
	"github.com/hashicorp/go-hclog"

	"github.com/rei-network/executive/chain"
	"github.com/rei-network/executive/crypto"
	"github.com/rei-network/executive/state/runtime"
	"github.com/rei-network/executive/state/runtime/evm"
	"github.com/rei-network/executive/state/runtime/precompiled"
	"github.com/rei-network/executive/types"
)

var (
	ErrNonceIncorrect         = errors.New("incorrect nonce")
	ErrNotEnoughFunds         = errors.New("not enough funds to cover the cost")
	ErrIntrinsicGasTooLow     = errors.New("intrinsic gas too low")
	ErrBlockGasLimitReached   = errors.New("block gas limit reached")
	ErrSenderHasCode          = errors.New("sender is not an externally owned account")
	ErrZeroSignatureFormat    = errors.New("zero signature transaction must have a zero nonce")
	ErrTypedTxNotEnabled      = errors.New("typed transactions are not enabled")
	ErrReplayProtection       = errors.New("replay protected transactions are not enabled")
	ErrZeroSignatureDisabled  = errors.New("zero signature transactions are not enabled")
	ErrUpgradeFromTransaction = errors.New("a transaction cannot upgrade a contract")
	ErrFreeStakingDisabled    = errors.New("free staking hardfork is not enabled")
	ErrMissingPayload         = errors.New("missing transaction or message")
	ErrZeroMessageNonce       = errors.New("message creation from a sender with zero nonce")
	ErrExecutiveState         = errors.New("invalid executive state")
)

// RequirementError reports a value below what the execution requires
type RequirementError struct {
	Err      error
	Required *big.Int
	Got      *big.Int
}

func (e *RequirementError) Error() string {
	return fmt.Sprintf("%v: required %s, got %s", e.Err, e.Required, e.Got)
}

func (e *RequirementError) Unwrap() error {
	return e.Err
}

// OperationKind selects the dispatch path of an operation
type OperationKind int

const (
	OperationCall OperationKind = iota
	OperationCreate
	OperationCreate2
	OperationUpgrade
)

func (k OperationKind) String() string {
	switch k {
	case OperationCall:
		return "call"
	case OperationCreate:
		return "create"
	case OperationCreate2:
		return "create2"
	case OperationUpgrade:
		return "upgrade"
	default:
		return fmt.Sprintf("OperationKind(%d)", int(k))
	}
}

// ExecutiveState is the step an executive has reached
type ExecutiveState int

const (
	ExecutiveUninitialized ExecutiveState = iota
	ExecutiveValidated
	ExecutiveCall
	ExecutiveCreate
	ExecutiveUpgrade
	ExecutivePrecompiled
	ExecutiveAddressCollision
	ExecutiveExecuting
	ExecutiveFinalized
	ExecutiveReverted
)

var executiveStateNames = [...]string{
	"Uninitialized",
	"Validated",
	"Call",
	"Create",
	"Upgrade",
	"Precompiled",
	"AddressCollision",
	"Executing",
	"Finalized",
	"Reverted",
}

func (s ExecutiveState) String() string {
	if int(s) < len(executiveStateNames) {
		return executiveStateNames[s]
	}

	return fmt.Sprintf("ExecutiveState(%d)", int(s))
}

// Operation is a call, creation or upgrade request handed to the dispatcher
type Operation struct {
	Kind        OperationKind
	Sender      types.Address
	Receiver    types.Address
	CodeAddress types.Address
	// Value is the value the callee observes
	Value *big.Int
	// Transfer is the value moved from sender to receiver
	Transfer *big.Int
	GasPrice *big.Int
	Gas      uint64
	Data     []byte
	Origin   types.Address
	Static   bool
	CallType runtime.CallType

	Salt         types.Hash
	ClearStorage bool
}

// Message is an internally generated call, creation or upgrade. It owns no
// nonce: the originator increments the sender nonce.
type Message struct {
	From              types.Address
	To                types.Address
	Value             *big.Int
	Gas               uint64
	Data              []byte
	BaseFee           uint64
	GasPrice          *big.Int
	IsCreation        bool
	IsUpgrade         bool
	ClearStorage      bool
	ClearEmptyAccount bool
	AccessList        *types.AccessList
}

// CodeDeposit is the outcome of storing the code of a created contract
type CodeDeposit int

const (
	CodeDepositNone CodeDeposit = iota
	CodeDepositFailed
	CodeDepositSuccess
)

// ExecutionResult is the outcome of an execution
type ExecutionResult struct {
	GasUsed       uint64
	GasRefunded   uint64
	Excepted      runtime.TransactionException
	NewAddress    types.Address
	Output        []byte
	CodeDeposit   CodeDeposit
	GasForDeposit uint64
	DepositSize   uint64
}

// Succeeded reports whether the execution finished without an exception
func (r *ExecutionResult) Succeeded() bool {
	return r.Excepted == runtime.ExceptionNone
}

// GetHashByNumber returns the hash of an ancestor block
type GetHashByNumber func(number uint64) types.Hash

// EnvInfo is the block an executive runs in
type EnvInfo struct {
	Header *types.Header
	// GasUsed is the gas used by the earlier transactions of the block
	GasUsed uint64
	GetHash GetHashByNumber
}

// shared is what every executive of one execution tree uses
type shared struct {
	logger      hclog.Logger
	params      *chain.Params
	precompiled *precompiled.Precompiled
	runtime     runtime.Runtime
}

// Executive runs one transaction or message against the world state. Nested
// calls run on child executives one level deeper. An executive is used once.
type Executive struct {
	*shared

	state    *WorldState
	env      *EnvInfo
	schedule *chain.Schedule
	depth    int
	status   ExecutiveState

	tx              *types.Transaction
	txSender        types.Address
	msg             *Message
	baseGasRequired uint64
	gasCost         *big.Int

	gas          uint64
	savepoint    Savepoint
	hasSavepoint bool
	ext          *extVM
	isCreation   bool
	newAddress   types.Address
	output       []byte
	excepted     runtime.TransactionException
	fault        error
	logs         []*types.Log
	res          ExecutionResult
}

// NewExecutive creates the top level executive of an execution
func NewExecutive(logger hclog.Logger, params *chain.Params, ws *WorldState, env *EnvInfo) *Executive {
	s := &shared{
		logger:      logger.Named("executive"),
		params:      params,
		precompiled: precompiled.NewPrecompiled(),
		runtime:     evm.NewEVM(),
	}

	return newExecutive(s, ws, env, 0)
}

func newExecutive(s *shared, ws *WorldState, env *EnvInfo, depth int) *Executive {
	return &Executive{
		shared:   s,
		state:    ws,
		env:      env,
		schedule: s.params.ScheduleFor(env.Header.Number),
		depth:    depth,
		gasCost:  big.NewInt(0),
	}
}

func (e *Executive) child() *Executive {
	return newExecutive(e.shared, e.state, e.env, e.depth+1)
}

// State returns the step the executive has reached
func (e *Executive) State() ExecutiveState {
	return e.status
}

// Excepted returns the exception of the execution
func (e *Executive) Excepted() runtime.TransactionException {
	return e.excepted
}

// Gas returns the gas left
func (e *Executive) Gas() uint64 {
	return e.gas
}

// NewAddress returns the address of the created contract
func (e *Executive) NewAddress() types.Address {
	return e.newAddress
}

// Output returns the data returned by the call or the revert reason
func (e *Executive) Output() []byte {
	return e.output
}

// Logs returns the logs collected by Finalize
func (e *Executive) Logs() []*types.Log {
	return e.logs
}

// Result returns the result collected by Finalize
func (e *Executive) Result() *ExecutionResult {
	return &e.res
}

// GasUsed is the gas consumed by the transaction, or by the message without
// its base fee
func (e *Executive) GasUsed() (uint64, error) {
	switch {
	case e.tx != nil:
		return e.tx.Gas - e.gas, nil
	case e.msg != nil:
		return e.msg.Gas - e.gas - e.msg.BaseFee, nil
	default:
		return 0, ErrMissingPayload
	}
}

func (e *Executive) fail(code runtime.TransactionException, err error) error {
	e.excepted = code

	return runtime.NewExecutionError(code, err)
}

// Initialize validates a transaction before any state is changed
func (e *Executive) Initialize(tx *types.Transaction) error {
	if e.status != ExecutiveUninitialized {
		return fmt.Errorf("%w: initialize in %s", ErrExecutiveState, e.status)
	}

	e.tx = tx

	base, err := e.schedule.BaseGasRequired(tx)
	if err != nil {
		return e.fail(runtime.ExceptionOutOfGasIntrinsic, err)
	}

	e.baseGasRequired = base

	if err := e.verifyTransaction(tx); err != nil {
		return err
	}

	sender := e.txSender

	if e.schedule.EIP3607Mode && e.state.HasCode(sender) {
		return e.fail(runtime.ExceptionInvalidSender, ErrSenderHasCode)
	}

	if !tx.HasZeroSignature() {
		if nonce := e.state.Nonce(sender); tx.Nonce != nonce {
			e.logger.Debug("invalid nonce", "sender", sender, "required", nonce, "received", tx.Nonce)

			return e.fail(runtime.ExceptionInvalidNonce, &RequirementError{
				Err:      ErrNonceIncorrect,
				Required: new(big.Int).SetUint64(nonce),
				Got:      new(big.Int).SetUint64(tx.Nonce),
			})
		}
	}

	// the system sender of a zero signature transaction pays like anyone else
	gasCost := new(big.Int).Mul(orZero(tx.GasPrice), new(big.Int).SetUint64(tx.Gas))
	totalCost := new(big.Int).Add(gasCost, orZero(tx.Value))

	if balance := e.state.Balance(sender); balance.Cmp(totalCost) < 0 {
		e.logger.Debug("not enough cash", "sender", sender, "required", totalCost, "balance", balance)

		return e.fail(runtime.ExceptionNotEnoughCash, &RequirementError{
			Err:      ErrNotEnoughFunds,
			Required: totalCost,
			Got:      balance,
		})
	}

	e.gasCost = gasCost

	var to types.Address
	if tx.To != nil {
		to = *tx.To
	}

	e.initializeAccessList(tx.AccessList, sender, to, tx.IsContractCreation())
	e.status = ExecutiveValidated

	return nil
}

// verifyTransaction runs the checks a transaction has to pass to be included
// in the block
func (e *Executive) verifyTransaction(tx *types.Transaction) error {
	number := e.env.Header.Number
	forks := e.params.Forks

	if tx.Signature == nil {
		return e.fail(runtime.ExceptionInvalidSignature, types.ErrTransactionIsUnsigned)
	}

	if tx.IsReplayProtected() && !forks.Is(chain.EIP158, number) {
		return e.fail(runtime.ExceptionInvalidSignature, ErrReplayProtection)
	}

	if tx.HasZeroSignature() {
		if e.beforeExperimental() {
			return e.fail(runtime.ExceptionInvalidSignature, ErrZeroSignatureDisabled)
		}

		if tx.Nonce != 0 {
			return e.fail(runtime.ExceptionInvalidZeroSignatureFormat, ErrZeroSignatureFormat)
		}
	}

	if tx.IsTyped() && !e.schedule.EIP2930Mode {
		return e.fail(runtime.ExceptionInvalidFormat, ErrTypedTxNotEnabled)
	}

	if err := tx.CheckChainID(e.params.ChainID); err != nil {
		return e.fail(runtime.ExceptionInvalidSignature, err)
	}

	if forks.IsHomestead(number) && !tx.HasZeroSignature() {
		if err := tx.CheckLowS(); err != nil {
			return e.fail(runtime.ExceptionInvalidSignature, err)
		}
	}

	sender, err := crypto.TransactionSender(tx)
	if err != nil {
		return e.fail(runtime.ExceptionInvalidSignature, err)
	}

	e.txSender = sender

	if e.baseGasRequired > tx.Gas {
		return e.fail(runtime.ExceptionOutOfGasIntrinsic, &RequirementError{
			Err:      ErrIntrinsicGasTooLow,
			Required: new(big.Int).SetUint64(e.baseGasRequired),
			Got:      new(big.Int).SetUint64(tx.Gas),
		})
	}

	if limit := e.env.Header.GasLimit; e.env.GasUsed+tx.Gas < e.env.GasUsed || e.env.GasUsed+tx.Gas > limit {
		return e.fail(runtime.ExceptionBlockGasLimitReached, &RequirementError{
			Err:      ErrBlockGasLimitReached,
			Required: new(big.Int).Add(new(big.Int).SetUint64(e.env.GasUsed), new(big.Int).SetUint64(tx.Gas)),
			Got:      new(big.Int).SetUint64(limit),
		})
	}

	return nil
}

// InitializeMessage prepares an internal message. Messages carry no signature
// and pay their base fee outside of the executive.
func (e *Executive) InitializeMessage(msg *Message) error {
	if e.status != ExecutiveUninitialized {
		return fmt.Errorf("%w: initialize in %s", ErrExecutiveState, e.status)
	}

	e.msg = msg
	e.baseGasRequired = msg.BaseFee

	if msg.Gas < msg.BaseFee {
		return e.fail(runtime.ExceptionOutOfGasIntrinsic, &RequirementError{
			Err:      ErrIntrinsicGasTooLow,
			Required: new(big.Int).SetUint64(msg.BaseFee),
			Got:      new(big.Int).SetUint64(msg.Gas),
		})
	}

	// an upgrade only moves value when it deploys fresh code, the transfer refuses it then
	if !msg.IsUpgrade {
		value := orZero(msg.Value)

		if balance := e.state.Balance(msg.From); balance.Cmp(value) < 0 {
			e.logger.Debug("not enough cash", "sender", msg.From, "required", value, "balance", balance)

			return e.fail(runtime.ExceptionNotEnoughCash, &RequirementError{
				Err:      ErrNotEnoughFunds,
				Required: new(big.Int).Set(value),
				Got:      balance,
			})
		}
	}

	e.initializeAccessList(msg.AccessList, msg.From, msg.To, msg.IsCreation)
	e.status = ExecutiveValidated

	return nil
}

func (e *Executive) initializeAccessList(al *types.AccessList, from, to types.Address, creation bool) {
	if e.schedule.EIP2929Mode {
		for _, addr := range e.schedule.Precompiles() {
			e.state.MarkAddressWarm(addr)
		}

		e.state.MarkAddressWarm(from)

		if !creation {
			e.state.MarkAddressWarm(to)
		}
	}

	if al != nil {
		al.ForEach(func(addr types.Address, keys []types.Hash) {
			e.state.MarkAddressWarm(addr)

			for _, key := range keys {
				e.state.MarkStorageKeyWarm(addr, key)
			}
		})
	}
}

// Execute starts the execution. It returns true when there is nothing left
// for Go to run.
func (e *Executive) Execute() (bool, error) {
	if e.status != ExecutiveValidated {
		return false, fmt.Errorf("%w: execute in %s", ErrExecutiveState, e.status)
	}

	switch {
	case e.tx != nil:
		tx := e.tx

		// the gas is paid up front even if the execution fails
		if err := e.state.SubBalance(e.txSender, e.gasCost); err != nil {
			return false, e.fail(runtime.ExceptionNotEnoughCash, err)
		}

		gas := tx.Gas - e.baseGasRequired

		if tx.IsContractCreation() {
			return e.Create(e.txSender, orZero(tx.Value), orZero(tx.GasPrice), gas, tx.Input, e.txSender)
		}

		return e.Call(*tx.To, e.txSender, orZero(tx.Value), orZero(tx.GasPrice), tx.Input, gas)

	case e.msg != nil:
		msg := e.msg
		gas := msg.Gas - e.baseGasRequired

		switch {
		case msg.IsCreation:
			return e.Create(msg.From, orZero(msg.Value), orZero(msg.GasPrice), gas, msg.Data, msg.From)
		case msg.IsUpgrade:
			return e.Upgrade(msg.From, msg.To, orZero(msg.Value), orZero(msg.GasPrice), gas, msg.Data, msg.From, msg.ClearStorage)
		default:
			return e.Call(msg.To, msg.From, orZero(msg.Value), orZero(msg.GasPrice), msg.Data, gas)
		}
	}

	return false, ErrMissingPayload
}

// Call runs a plain value carrying call
func (e *Executive) Call(
	to, from types.Address,
	value, gasPrice *big.Int,
	data []byte,
	gas uint64,
) (bool, error) {
	return e.dispatch(&Operation{
		Kind:        OperationCall,
		Sender:      from,
		Receiver:    to,
		CodeAddress: to,
		Value:       value,
		Transfer:    value,
		GasPrice:    gasPrice,
		Gas:         gas,
		Data:        data,
		Origin:      from,
	})
}

// Create deploys a contract at the nonce derived address with the account
// version of the latest fork
func (e *Executive) Create(
	sender types.Address,
	endowment, gasPrice *big.Int,
	gas uint64,
	init []byte,
	origin types.Address,
) (bool, error) {
	return e.dispatch(&Operation{
		Kind:     OperationCreate,
		Sender:   sender,
		Value:    endowment,
		Transfer: endowment,
		GasPrice: gasPrice,
		Gas:      gas,
		Data:     init,
		Origin:   origin,
	})
}

// CreateOpcode deploys a contract for the CREATE instruction. The contract
// gets the code version of its creator.
func (e *Executive) CreateOpcode(
	sender types.Address,
	endowment, gasPrice *big.Int,
	gas uint64,
	init []byte,
	origin types.Address,
) (bool, error) {
	return e.createWithAddressFromNonceAndSender(&Operation{
		Kind:     OperationCreate,
		Sender:   sender,
		Value:    endowment,
		Transfer: endowment,
		GasPrice: gasPrice,
		Gas:      gas,
		Data:     init,
		Origin:   origin,
	}, e.state.CodeVersion(sender))
}

// Create2Opcode deploys a contract at the salted address
func (e *Executive) Create2Opcode(
	sender types.Address,
	endowment, gasPrice *big.Int,
	gas uint64,
	init []byte,
	origin types.Address,
	salt types.Hash,
) (bool, error) {
	return e.dispatch(&Operation{
		Kind:     OperationCreate2,
		Sender:   sender,
		Value:    endowment,
		Transfer: endowment,
		GasPrice: gasPrice,
		Gas:      gas,
		Data:     init,
		Origin:   origin,
		Salt:     salt,
	})
}

// Upgrade replaces the code at a fixed address. Only messages may upgrade.
func (e *Executive) Upgrade(
	sender, receiver types.Address,
	endowment, gasPrice *big.Int,
	gas uint64,
	code []byte,
	origin types.Address,
	clearStorage bool,
) (bool, error) {
	return e.dispatch(&Operation{
		Kind:         OperationUpgrade,
		Sender:       sender,
		Receiver:     receiver,
		Value:        endowment,
		Transfer:     endowment,
		GasPrice:     gasPrice,
		Gas:          gas,
		Data:         code,
		Origin:       origin,
		ClearStorage: clearStorage,
	})
}

func (e *Executive) dispatch(op *Operation) (bool, error) {
	e.logger.Debug("dispatch", "kind", op.Kind, "from", op.Sender, "to", op.Receiver, "gas", op.Gas, "depth", e.depth)

	switch op.Kind {
	case OperationCall:
		return e.call(op)

	case OperationCreate:
		return e.createWithAddressFromNonceAndSender(op, e.schedule.AccountVersion)

	case OperationCreate2:
		e.newAddress = crypto.CreateAddress2(op.Sender, op.Salt, op.Data)

		return e.executeCreate(op, e.state.CodeVersion(op.Sender))

	case OperationUpgrade:
		e.newAddress = op.Receiver

		return e.executeUpgrade(op, e.schedule.AccountVersion)
	}

	return false, runtime.NewFatalError(fmt.Errorf("unknown operation %s", op.Kind))
}

// beforeExperimental reports whether the block precedes the experimental fork
func (e *Executive) beforeExperimental() bool {
	block, ok := e.params.ExperimentalForkBlock()

	return !ok || e.env.Header.Number < block
}

// incrementsNonce reports whether the sender nonce moves. The system sender
// keeps its nonce from the experimental fork on.
func (e *Executive) incrementsNonce(sender types.Address) bool {
	return sender != types.MaxAddress || e.beforeExperimental()
}

func (e *Executive) takeSavepoint() {
	e.savepoint = e.state.Savepoint()
	e.hasSavepoint = true

	e.logger.Trace("savepoint", "id", e.savepoint, "depth", e.depth)
}

func (e *Executive) call(op *Operation) (bool, error) {
	if e.tx != nil && e.incrementsNonce(op.Sender) {
		e.state.IncrementNonce(op.Sender)
	}

	e.takeSavepoint()

	if e.schedule.IsSupportedPrecompiled(op.CodeAddress) {
		e.status = ExecutivePrecompiled

		metrics.IncrCounter([]string{"executive", "precompiled", "calls"}, 1)

		// the empty ripemd account is removed even when the call runs out of
		// gas, as the main networks did
		if op.Receiver == types.RipemdPrecompileAddress {
			e.state.UnrevertableTouch(op.CodeAddress)
		}

		cost, err := e.precompiled.Gas(op.CodeAddress, op.Data, e.schedule)
		if err != nil {
			return false, runtime.NewFatalError(err)
		}

		if op.Gas < cost {
			e.excepted = runtime.ExceptionOutOfGasBase

			return true, nil
		}

		e.gas = op.Gas - cost

		output, err := e.precompiled.Exec(op.CodeAddress, op.Data, &precompiled.Env{
			Number:      e.env.Header.Number,
			Schedule:    e.schedule,
			EstimateFee: e.estimateFee,
		})
		e.output = output

		if err != nil {
			e.logger.Debug("precompiled contract failed", "address", op.CodeAddress, "err", err)

			e.gas = 0
			e.excepted = runtime.ExceptionOutOfGas
			e.fault = err

			return true, nil
		}
	} else {
		e.status = ExecutiveCall
		e.gas = op.Gas

		if e.state.HasCode(op.CodeAddress) {
			version := e.state.CodeVersion(op.CodeAddress)

			ext, err := e.newFrame(op, op.Receiver, e.state.Code(op.CodeAddress), version, false)
			if err != nil {
				return false, err
			}

			ext.contract.CodeAddress = op.CodeAddress
			ext.contract.CodeHash = e.state.CodeHash(op.CodeAddress)
			ext.contract.Input = op.Data
			ext.contract.Static = op.Static
			ext.contract.Type = op.CallType

			e.ext = ext
		}
	}

	if err := e.state.TransferBalance(op.Sender, op.Receiver, op.Transfer); err != nil {
		return e.transferFailed(err)
	}

	return e.ext == nil, nil
}

// transferFailed drops the frame of an operation whose sender cannot cover
// the value and rolls back to the savepoint of the operation
func (e *Executive) transferFailed(err error) (bool, error) {
	e.logger.Debug("value transfer failed", "err", err)

	e.Revert()
	e.ext = nil
	e.gas = 0

	return false, e.fail(runtime.ExceptionNotEnoughCash, err)
}

// estimateFee answers the free staking fee precompile
func (e *Executive) estimateFee(addr types.Address, timestamp uint64) (*big.Int, error) {
	if !e.schedule.EnableFreeStaking {
		return nil, ErrFreeStakingDisabled
	}

	if !e.state.AccountNonemptyAndExisting(addr) {
		return big.NewInt(0), nil
	}

	info := e.state.StakeInfo(addr)
	if info == nil {
		return big.NewInt(0), nil
	}

	dailyFee, err := e.dailyFee()
	if err != nil {
		return nil, err
	}

	return info.EstimateFee(timestamp, e.state.Balance(types.FeeManagerAddress), dailyFee), nil
}

func (e *Executive) dailyFee() (*big.Int, error) {
	source, err := e.params.DailyFeeSourceAt(e.env.Header.Number)
	if err != nil {
		return nil, err
	}

	if source == chain.DailyFeeFromConfigStorage {
		fee := e.state.Storage(types.ConfigAddress, types.DailyFeeSlot)

		return new(big.Int).SetBytes(fee.Bytes()), nil
	}

	return orZero(e.schedule.DailyFee), nil
}

func (e *Executive) createWithAddressFromNonceAndSender(op *Operation, version uint64) (bool, error) {
	nonce := e.state.Nonce(op.Sender)

	// the originator of a message already moved the nonce
	if e.msg != nil {
		if nonce == 0 {
			return false, runtime.NewFatalError(fmt.Errorf("%w: %s", ErrZeroMessageNonce, op.Sender))
		}

		nonce--
	}

	e.newAddress = crypto.CreateAddress(op.Sender, nonce)

	return e.executeCreate(op, version)
}

func (e *Executive) executeCreate(op *Operation, version uint64) (bool, error) {
	if e.msg == nil && e.incrementsNonce(op.Sender) {
		e.state.IncrementNonce(op.Sender)
	}

	if e.schedule.EIP2929Mode {
		e.state.MarkAddressWarm(e.newAddress)
	}

	e.takeSavepoint()

	e.status = ExecutiveCreate
	e.isCreation = true
	e.gas = op.Gas

	if e.state.HasCode(e.newAddress) || e.state.Nonce(e.newAddress) > 0 {
		e.logger.Debug("address already used", "address", e.newAddress)

		e.collision()

		return true, nil
	}

	// creates the account when it does not exist yet
	if err := e.state.TransferBalance(op.Sender, e.newAddress, op.Transfer); err != nil {
		return e.transferFailed(err)
	}

	nonce := e.state.AccountStartNonce()
	if e.schedule.EIP158Mode {
		nonce++
	}

	e.state.SetNonce(e.newAddress, nonce)
	e.state.ClearStorage(e.newAddress)

	return e.scheduleInit(op, version)
}

func (e *Executive) executeUpgrade(op *Operation, version uint64) (bool, error) {
	if e.tx != nil || e.msg == nil {
		return false, e.fail(runtime.ExceptionExecutionFailed, ErrUpgradeFromTransaction)
	}

	if e.schedule.EIP2929Mode {
		e.state.MarkAddressWarm(e.newAddress)
	}

	e.takeSavepoint()

	e.status = ExecutiveUpgrade

	// an account that never held storage is treated as missing
	if e.state.StorageRoot(e.newAddress) == types.EmptyRootHash {
		e.isCreation = true
		e.gas = op.Gas

		if err := e.state.TransferBalance(op.Sender, e.newAddress, op.Transfer); err != nil {
			return e.transferFailed(err)
		}

		if e.schedule.EIP158Mode {
			e.state.SetNonce(e.newAddress, e.state.Nonce(e.newAddress)+1)
		}

		e.state.ClearStorage(e.newAddress)

		return e.scheduleInit(op, version)
	}

	if !e.state.HasCode(e.newAddress) {
		e.logger.Debug("invalid upgrade", "address", e.newAddress)

		e.collision()

		return true, nil
	}

	if op.ClearStorage {
		e.state.ClearStorage(e.newAddress)
	}

	// the payload is the final code, it is not run
	e.state.SetCode(e.newAddress, op.Data, version)

	return true, nil
}

func (e *Executive) collision() {
	e.gas = 0
	e.excepted = runtime.ExceptionAddressAlreadyUsed
	e.fault = runtime.ErrAddressAlreadyUsed
	e.Revert()

	e.status = ExecutiveAddressCollision
	e.ext = nil
}

// scheduleInit schedules the init code, an empty one only sets the version
func (e *Executive) scheduleInit(op *Operation, version uint64) (bool, error) {
	if len(op.Data) == 0 {
		e.state.SetCode(e.newAddress, nil, version)

		return true, nil
	}

	ext, err := e.newFrame(op, e.newAddress, op.Data, version, true)
	if err != nil {
		return false, err
	}

	ext.contract.CodeHash = crypto.Keccak256Hash(op.Data)

	e.ext = ext

	return false, nil
}

func (e *Executive) newFrame(
	op *Operation,
	address types.Address,
	code []byte,
	version uint64,
	creation bool,
) (*extVM, error) {
	schedule, err := e.frameSchedule(version)
	if err != nil {
		return nil, err
	}

	contract := runtime.NewContract(e.depth, op.Origin, op.Sender, address, orZero(op.Value), e.gas, code)
	contract.Version = version

	if creation {
		contract.Type = runtime.Create
	}

	return &extVM{
		e:        e,
		contract: contract,
		schedule: schedule,
		gasPrice: orZero(op.GasPrice),
		creation: creation,
	}, nil
}

// frameSchedule is the schedule code of the given version runs with: the
// schedule of the block when the versions match, otherwise the latest one
// of that version
func (e *Executive) frameSchedule(version uint64) (*chain.Schedule, error) {
	if e.schedule.AccountVersion == version {
		return e.schedule, nil
	}

	schedule, err := chain.LatestScheduleForAccountVersion(version)
	if err != nil {
		return nil, runtime.NewFatalError(err)
	}

	return schedule, nil
}

// Go runs the scheduled frame, if any. The returned error is always fatal.
func (e *Executive) Go(hook runtime.StepHook) error {
	if e.ext == nil {
		return nil
	}

	e.status = ExecutiveExecuting

	contract := e.ext.contract
	contract.Gas = e.gas
	contract.Hook = hook

	result := e.runtime.Run(contract, e.ext, e.ext.schedule)

	err := result.Err
	if err == nil {
		e.gas = result.GasLeft

		if e.isCreation {
			err = e.depositCode(result.ReturnValue)
		} else {
			e.output = result.ReturnValue
			e.res.Output = result.ReturnValue
		}
	}

	if err == nil {
		return nil
	}

	if errors.Is(err, runtime.ErrExecutionReverted) {
		e.Revert()

		e.gas = result.GasLeft
		e.output = result.ReturnValue
		e.res.Output = result.ReturnValue
		e.excepted = runtime.ExceptionRevertInstruction
		e.fault = err

		return nil
	}

	code, ok := runtime.ExceptionFor(err)
	if !ok || runtime.IsFatal(err) || errors.Is(err, runtime.ErrInternal) {
		e.logger.Warn("internal execution error", "address", contract.Address, "depth", e.depth, "err", err)

		e.Revert()

		if runtime.IsFatal(err) {
			return err
		}

		return runtime.NewFatalError(err)
	}

	e.logger.Debug("execution fault", "address", contract.Address, "depth", e.depth, "err", err)

	e.gas = 0
	e.excepted = code
	e.fault = err
	e.Revert()

	return nil
}

// depositCode stores the code returned by the init code and charges for it
func (e *Executive) depositCode(code []byte) error {
	s := e.ext.schedule
	size := uint64(len(code))

	e.res.GasForDeposit = e.gas
	e.res.DepositSize = size

	if size > s.MaxCodeSize {
		return runtime.ErrOutOfGas
	}

	// the product cannot overflow, size is bounded by MaxCodeSize
	if cost := size * s.CreateDataGas; cost <= e.gas {
		e.res.CodeDeposit = CodeDepositSuccess
		e.gas -= cost
	} else {
		if s.ExceptionalFailedCodeDeposit {
			return runtime.ErrOutOfGas
		}

		e.res.CodeDeposit = CodeDepositFailed
		code = nil
	}

	e.res.Output = code
	e.state.SetCode(e.ext.contract.Address, code, e.ext.contract.Version)

	return nil
}

// Finalize settles refunds and fees, removes self-destructed accounts and
// collects the logs. It reports whether the execution succeeded.
func (e *Executive) Finalize() bool {
	if e.ext != nil {
		sub := &e.ext.sub
		sub.refunds += int64(e.ext.schedule.SelfdestructRefundGas) * int64(len(sub.selfdestructs))

		// messages leave the refund to their originator
		if e.tx != nil && sub.refunds > 0 {
			maxRefund := (e.tx.Gas - e.gas) / 2
			e.gas += minUint64(maxRefund, uint64(sub.refunds))
		}
	}

	if e.tx != nil {
		price := orZero(e.tx.GasPrice)

		e.state.AddBalance(e.txSender, new(big.Int).Mul(new(big.Int).SetUint64(e.gas), price))

		fees := new(big.Int).Mul(new(big.Int).SetUint64(e.tx.Gas-e.gas), price)
		e.state.AddBalance(e.env.Header.Miner, fees)
	}

	if e.ext != nil {
		for _, addr := range e.ext.sub.selfdestructs {
			e.state.Kill(addr)
		}

		e.logs = e.ext.sub.logs
	}

	gasUsed, _ := e.GasUsed()

	e.res.GasUsed = gasUsed
	e.res.Excepted = e.excepted
	e.res.NewAddress = e.newAddress

	if e.ext != nil && e.ext.sub.refunds > 0 {
		e.res.GasRefunded = uint64(e.ext.sub.refunds)
	}

	e.status = ExecutiveFinalized

	if e.depth == 0 {
		metrics.IncrCounter([]string{"executive", "tx", "executed"}, 1)
		metrics.AddSample([]string{"executive", "gas", "used"}, float32(gasUsed))

		if e.excepted != runtime.ExceptionNone {
			metrics.IncrCounter([]string{"executive", "tx", "reverted"}, 1)
		}
	}

	return e.excepted == runtime.ExceptionNone
}

// Revert drops the pending sub state and the new address, and rolls the
// world state back to the savepoint of the execution
func (e *Executive) Revert() {
	if e.ext != nil {
		e.ext.sub.clear()
	}

	e.newAddress = types.ZeroAddress

	if e.hasSavepoint {
		e.logger.Trace("rollback", "id", e.savepoint, "depth", e.depth)
		e.state.RollbackTo(e.savepoint)
	}

	e.status = ExecutiveReverted
}

func (e *Executive) accrueSubState(parent *SubState) {
	if e.ext != nil {
		parent.merge(&e.ext.sub)
	}
}

// exceptionErr is the error a parent frame observes for the execution
func (e *Executive) exceptionErr() error {
	switch e.excepted {
	case runtime.ExceptionNone:
		return nil
	case runtime.ExceptionRevertInstruction:
		return runtime.ErrExecutionReverted
	default:
		return runtime.NewExecutionError(e.excepted, e.fault)
	}
}

func minUint64(a, b uint64) uint64 {
	if a < b {
		return a
	}

	return b
}
