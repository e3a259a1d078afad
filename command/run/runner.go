package run

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/hashicorp/go-hclog"
	"github.com/hashicorp/go-multierror"

	"github.com/rei-network/executive/chain"
	"github.com/rei-network/executive/helper/common"
	"github.com/rei-network/executive/state"
	"github.com/rei-network/executive/state/itrie"
	"github.com/rei-network/executive/state/runtime/tracer/structtracer"
	"github.com/rei-network/executive/state/storage"
	"github.com/rei-network/executive/types"
)

var errExecutionFailed = errors.New("execution failed")

// runner executes one scenario file on its own state
type runner struct {
	logger hclog.Logger
	config *Config
	chain  *chain.Chain
}

func newRunner(logger hclog.Logger, config *Config, c *chain.Chain) *runner {
	return &runner{
		logger: logger,
		config: config,
		chain:  c,
	}
}

// storagePath is the directory or file of the state of one run
func (r *runner) storagePath(runID string, index int) string {
	name := fmt.Sprintf("%s-%d", runID, index)
	if storage.Backend(r.config.Storage) == storage.BoltDB {
		name += ".db"
	}

	return filepath.Join(r.config.DataDir, name)
}

func (r *runner) run(ctx context.Context, path, runID string, index int) (res *ScenarioResult, err error) {
	logger := r.logger.With("file", path)

	scenario, err := ReadScenario(path)
	if err != nil {
		return nil, err
	}

	if r.config.DataDir != "" {
		if err := common.SetupDataDir(r.config.DataDir, nil); err != nil {
			return nil, err
		}
	}

	kv, err := storage.Open(ctx, storage.Backend(r.config.Storage), r.storagePath(runID, index), logger)
	if err != nil {
		return nil, err
	}

	defer func() {
		if closeErr := kv.Close(); closeErr != nil {
			err = multierror.Append(err, closeErr)
		}
	}()

	executor := state.NewExecutor(r.chain.Params, itrie.NewState(kv), logger)

	genesisRoot, err := executor.WriteGenesis(r.chain.Genesis.Alloc, types.ZeroHash)
	if err != nil {
		return nil, err
	}

	parent := r.chain.Genesis.GenesisHeader(genesisRoot)

	// only the genesis is known to the block hash lookup
	executor.GetHash = func(*types.Header) state.GetHashByNumber {
		return func(number uint64) types.Hash {
			if number == parent.Number {
				return parent.Hash
			}

			return types.ZeroHash
		}
	}

	header := scenario.header(parent)

	transition, err := executor.BeginTxn(genesisRoot, header, header.Miner)
	if err != nil {
		return nil, err
	}

	res = &ScenarioResult{
		File:        path,
		Number:      header.Number,
		GenesisRoot: genesisRoot,
	}

	for i, step := range scenario.Steps {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		stepRes, err := r.applyStep(transition, step)
		if err != nil {
			return nil, fmt.Errorf("step %d: %w", i, err)
		}

		stepRes.Index = i
		res.Steps = append(res.Steps, stepRes)
	}

	_, root, err := transition.Commit()
	if err != nil {
		return nil, err
	}

	res.StateRoot = root
	res.GasUsed = transition.TotalGas()

	logger.Info("scenario executed", "steps", len(res.Steps), "gas", res.GasUsed, "root", root)

	return res, nil
}

// applyStep runs a step. Rejected transactions are reported in the result,
// only fatal faults abort the scenario.
func (r *runner) applyStep(transition *state.Transition, step *Step) (*StepResult, error) {
	res := &StepResult{Kind: step.kind()}

	var tracer *structtracer.StructTracer

	if trace := r.config.Trace; trace != nil {
		tracer = structtracer.NewStructTracer(structtracer.Config{
			EnableMemory:  trace.Memory,
			EnableStack:   trace.Stack,
			EnableStorage: trace.Storage,
		}, transition)

		tracer.TxStart(step.Gas)
		transition.SetStepHook(tracer.Hook)

		defer transition.SetStepHook(nil)
	}

	var (
		gasUsed uint64
		output  []byte
		failed  bool
	)

	if step.Message {
		msg, err := step.message()
		if err != nil {
			return nil, err
		}

		result, logs, err := transition.ApplyMessage(msg)
		if err != nil {
			return res.reject(err)
		}

		gasUsed, output, failed = result.GasUsed, result.Output, !result.Succeeded()

		res.GasUsed = result.GasUsed
		res.Status = statusOf(result.Succeeded())
		res.Logs = len(logs)

		if !result.Succeeded() {
			res.Exception = result.Excepted.String()
		}

		if msg.IsCreation && result.Succeeded() {
			addr := result.NewAddress
			res.ContractAddress = &addr
		}
	} else {
		tx, err := step.transaction(transition.State(), r.chain.Params.ChainID)
		if err != nil {
			return nil, err
		}

		res.Hash = tx.Hash()

		if err := transition.Write(tx); err != nil {
			return res.reject(err)
		}

		receipts := transition.Receipts()
		receipt := receipts[len(receipts)-1]

		gasUsed = receipt.GasUsed
		failed = receipt.Status != nil && *receipt.Status == types.ReceiptFailed

		res.GasUsed = receipt.GasUsed
		res.Logs = len(receipt.Logs)
		res.ContractAddress = receipt.ContractAddress

		if receipt.Status != nil {
			res.Status = statusOf(*receipt.Status == types.ReceiptSuccess)
		}
	}

	if tracer != nil {
		var traceErr error
		if failed {
			traceErr = errExecutionFailed
		}

		tracer.TxEnd(gasUsed, output, traceErr)

		trace, err := tracer.GetResult()
		if err != nil {
			return nil, err
		}

		res.Trace = trace
	}

	return res, nil
}

func statusOf(success bool) string {
	if success {
		return "success"
	}

	return "failed"
}
