package state

import (
	"crypto/ecdsa"
	"encoding/binary"
	"errors"
	"math/big"
	"testing"

	"github.com/hashicorp/go-hclog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rei-network/executive/chain"
	"github.com/rei-network/executive/crypto"
	"github.com/rei-network/executive/state/runtime"
	"github.com/rei-network/executive/types"
)

const testChainID = 100

var testMiner = types.StringToAddress("0x5a")

var istanbulForks = []string{
	chain.Homestead,
	chain.EIP150,
	chain.EIP158,
	chain.Byzantium,
	chain.Constantinople,
	chain.ConstantinopleFix,
	chain.Istanbul,
}

func testParams(extra ...string) *chain.Params {
	forks := chain.Forks{}

	for _, name := range append(append([]string{}, istanbulForks...), extra...) {
		forks[name] = chain.NewFork(0)
	}

	return &chain.Params{
		Forks:   &forks,
		ChainID: testChainID,
	}
}

func testEnv(number uint64) *EnvInfo {
	return &EnvInfo{
		Header: &types.Header{
			Number:    number,
			GasLimit:  10_000_000,
			Miner:     testMiner,
			Timestamp: 1000,
		},
	}
}

func newTestKey(t *testing.T) (*ecdsa.PrivateKey, types.Address) {
	t.Helper()

	key, err := crypto.GenerateECDSAKey()
	require.NoError(t, err)

	return key, crypto.PubKeyToAddress(&key.PublicKey)
}

func signTx(t *testing.T, key *ecdsa.PrivateKey, skel types.TransactionSkeleton) *types.Transaction {
	t.Helper()

	tx, err := crypto.NewSignedTransaction(skel, key)
	require.NoError(t, err)

	return tx
}

func zeroSignatureTx(t *testing.T, skel types.TransactionSkeleton) *types.Transaction {
	t.Helper()

	tx, err := types.NewTransaction(skel)
	require.NoError(t, err)

	tx.SetSignature(&types.Signature{R: big.NewInt(0), S: big.NewInt(0)})

	return tx
}

func executeTx(params *chain.Params, ws *WorldState, env *EnvInfo, tx *types.Transaction) (*Executive, error) {
	ws.BeginTransaction()

	e := NewExecutive(hclog.NewNullLogger(), params, ws, env)
	if err := e.Initialize(tx); err != nil {
		return e, err
	}

	if err := run(e); err != nil {
		return e, err
	}

	e.Finalize()

	return e, nil
}

func executeMessage(params *chain.Params, ws *WorldState, env *EnvInfo, msg *Message) (*Executive, error) {
	ws.BeginTransaction()

	e := NewExecutive(hclog.NewNullLogger(), params, ws, env)
	if err := e.InitializeMessage(msg); err != nil {
		return e, err
	}

	if err := run(e); err != nil {
		return e, err
	}

	e.Finalize()

	return e, nil
}

func run(e *Executive) error {
	done, err := e.Execute()
	if err != nil {
		return err
	}

	if !done {
		return e.Go(nil)
	}

	return nil
}

func requireException(t *testing.T, err error, code runtime.TransactionException) {
	t.Helper()

	require.Error(t, err)

	got, ok := runtime.ExceptionFor(err)
	require.True(t, ok)
	assert.Equal(t, code, got, err.Error())
}

func TestExecutive_Transfer(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name     string
		balance  uint64
		value    int64
		sender   int64
		receiver int64
	}{
		{
			name:     "single wei",
			balance:  100000,
			value:    1,
			sender:   100000 - 1 - 21000,
			receiver: 1,
		},
		{
			name:     "large value",
			balance:  1_000_000,
			value:    100000,
			sender:   879000,
			receiver: 100000,
		},
	}

	for _, c := range cases {
		c := c

		t.Run(c.name, func(t *testing.T) {
			t.Parallel()

			key, sender := newTestKey(t)
			receiver := types.StringToAddress("0xbb")

			ws := newTestWorldState(PreStates{
				sender: {Balance: c.balance},
			})

			tx := signTx(t, key, types.TransactionSkeleton{
				To:       receiver,
				Value:    big.NewInt(c.value),
				GasPrice: big.NewInt(1),
				Gas:      21000,
			})

			e, err := executeTx(testParams(), ws, testEnv(1), tx)
			require.NoError(t, err)

			res := e.Result()
			assert.True(t, res.Succeeded())
			assert.Equal(t, uint64(21000), res.GasUsed)
			assert.Equal(t, ExecutiveFinalized, e.State())

			assert.Equal(t, c.sender, ws.Balance(sender).Int64())
			assert.Equal(t, c.receiver, ws.Balance(receiver).Int64())
			assert.Equal(t, int64(21000), ws.Balance(testMiner).Int64())
			assert.Equal(t, uint64(1), ws.Nonce(sender))
		})
	}
}

func TestExecutive_ValueAboveBalance(t *testing.T) {
	t.Parallel()

	funded := types.StringToAddress("0xaa")
	receiver := types.StringToAddress("0x2222")

	zeroSigParams := testParams(chain.Berlin, chain.FreeStaking)
	(*zeroSigParams.Forks)[chain.Experimental] = chain.NewFork(5)

	cases := []struct {
		name   string
		sender types.Address
		pre    PreStates
		exec   func(t *testing.T, ws *WorldState) error
	}{
		{
			name:   "message",
			sender: funded,
			pre:    PreStates{funded: {Balance: 3}},
			exec: func(t *testing.T, ws *WorldState) error {
				t.Helper()

				_, err := executeMessage(testParams(), ws, testEnv(1), &Message{
					From:  funded,
					To:    receiver,
					Gas:   50000,
					Value: big.NewInt(5),
				})

				return err
			},
		},
		{
			name:   "message creation",
			sender: funded,
			pre:    PreStates{funded: {Balance: 3, Nonce: 1}},
			exec: func(t *testing.T, ws *WorldState) error {
				t.Helper()

				_, err := executeMessage(testParams(), ws, testEnv(1), &Message{
					From:       funded,
					IsCreation: true,
					Gas:        100000,
					Value:      big.NewInt(5),
					Data:       []byte{0x00},
				})

				return err
			},
		},
		{
			name:   "upgrade of a missing account",
			sender: funded,
			pre:    PreStates{funded: {Balance: 3}},
			exec: func(t *testing.T, ws *WorldState) error {
				t.Helper()

				_, err := executeMessage(testParams(), ws, testEnv(1), &Message{
					From:      funded,
					To:        receiver,
					Gas:       100000,
					Value:     big.NewInt(5),
					Data:      []byte{0x00},
					IsUpgrade: true,
				})

				return err
			},
		},
		{
			name:   "zero signature",
			sender: types.MaxAddress,
			pre:    nil,
			exec: func(t *testing.T, ws *WorldState) error {
				t.Helper()

				tx := zeroSignatureTx(t, types.TransactionSkeleton{
					To:    receiver,
					Gas:   21000,
					Value: big.NewInt(7),
				})

				_, err := executeTx(zeroSigParams, ws, testEnv(10), tx)

				return err
			},
		},
	}

	for _, c := range cases {
		c := c

		t.Run(c.name, func(t *testing.T) {
			t.Parallel()

			ws := newTestWorldState(c.pre)
			before := ws.Balance(c.sender)

			err := c.exec(t, ws)
			requireException(t, err, runtime.ExceptionNotEnoughCash)
			assert.ErrorIs(t, err, ErrNotEnoughFunds)

			ws = commit(t, ws, false)

			assert.Equal(t, 0, before.Cmp(ws.Balance(c.sender)))
			assert.Equal(t, 0, ws.Balance(receiver).Sign())
			assert.False(t, ws.AccountExists(receiver))
		})
	}
}

func TestExecutive_InitializeErrors(t *testing.T) {
	t.Parallel()

	key, sender := newTestKey(t)
	receiver := types.StringToAddress("0xbb")

	chainID := uint64(testChainID)
	typed := types.TransactionSkeleton{
		To:         receiver,
		GasPrice:   big.NewInt(1),
		Gas:        21000,
		ChainID:    &chainID,
		AccessList: types.NewAccessList(),
	}

	cases := []struct {
		name    string
		params  *chain.Params
		balance uint64
		gasUsed uint64
		skel    types.TransactionSkeleton
		code    runtime.TransactionException
		err     error
	}{
		{
			name:    "invalid nonce",
			balance: 1_000_000,
			skel:    types.TransactionSkeleton{To: receiver, Nonce: 5, Gas: 21000},
			code:    runtime.ExceptionInvalidNonce,
			err:     ErrNonceIncorrect,
		},
		{
			name:    "not enough cash",
			balance: 10,
			skel:    types.TransactionSkeleton{To: receiver, GasPrice: big.NewInt(1), Gas: 21000},
			code:    runtime.ExceptionNotEnoughCash,
			err:     ErrNotEnoughFunds,
		},
		{
			name:    "intrinsic gas",
			balance: 1_000_000,
			skel:    types.TransactionSkeleton{To: receiver, Gas: 20000},
			code:    runtime.ExceptionOutOfGasIntrinsic,
			err:     ErrIntrinsicGasTooLow,
		},
		{
			name:    "block gas limit",
			balance: 1_000_000,
			gasUsed: 10_000_000 - 20000,
			skel:    types.TransactionSkeleton{To: receiver, Gas: 21000},
			code:    runtime.ExceptionBlockGasLimitReached,
			err:     ErrBlockGasLimitReached,
		},
		{
			name:    "typed transaction before berlin",
			balance: 1_000_000,
			skel:    typed,
			code:    runtime.ExceptionInvalidFormat,
			err:     ErrTypedTxNotEnabled,
		},
		{
			name: "replay protection before EIP158",
			params: &chain.Params{
				Forks:   &chain.Forks{chain.Homestead: chain.NewFork(0)},
				ChainID: testChainID,
			},
			balance: 1_000_000,
			skel:    typed,
			code:    runtime.ExceptionInvalidSignature,
			err:     ErrReplayProtection,
		},
	}

	for _, c := range cases {
		c := c

		t.Run(c.name, func(t *testing.T) {
			t.Parallel()

			params := c.params
			if params == nil {
				params = testParams()
			}

			ws := newTestWorldState(PreStates{
				sender: {Balance: c.balance},
			})

			env := testEnv(1)
			env.GasUsed = c.gasUsed

			_, err := executeTx(params, ws, env, signTx(t, key, c.skel))
			requireException(t, err, c.code)
			assert.ErrorIs(t, err, c.err)

			// nothing is charged for an invalid transaction
			assert.Equal(t, c.balance, ws.Balance(sender).Uint64())
			assert.Equal(t, uint64(0), ws.Nonce(sender))
		})
	}
}

func TestExecutive_RequirementError(t *testing.T) {
	t.Parallel()

	key, sender := newTestKey(t)

	ws := newTestWorldState(PreStates{
		sender: {Nonce: 2, Balance: 1_000_000},
	})

	tx := signTx(t, key, types.TransactionSkeleton{
		To:    types.StringToAddress("0xbb"),
		Nonce: 7,
		Gas:   21000,
	})

	_, err := executeTx(testParams(), ws, testEnv(1), tx)

	var reqErr *RequirementError
	require.True(t, errors.As(err, &reqErr))
	assert.Equal(t, int64(2), reqErr.Required.Int64())
	assert.Equal(t, int64(7), reqErr.Got.Int64())
}

func TestExecutive_SenderWithCode(t *testing.T) {
	t.Parallel()

	key, sender := newTestKey(t)

	ws := newTestWorldState(PreStates{
		sender: {Balance: 1_000_000},
	})
	ws.SetCode(sender, []byte{0x00}, 0)

	tx := signTx(t, key, types.TransactionSkeleton{
		To:  types.StringToAddress("0xbb"),
		Gas: 21000,
	})

	_, err := executeTx(testParams(), ws, testEnv(1), tx)
	requireException(t, err, runtime.ExceptionInvalidSender)
	assert.ErrorIs(t, err, ErrSenderHasCode)
}

func TestExecutive_ZeroSignature(t *testing.T) {
	t.Parallel()

	params := testParams(chain.Berlin, chain.FreeStaking)
	(*params.Forks)[chain.Experimental] = chain.NewFork(5)

	receiver := types.StringToAddress("0xbb")

	t.Run("before the experimental fork", func(t *testing.T) {
		t.Parallel()

		ws := newTestWorldState(nil)
		tx := zeroSignatureTx(t, types.TransactionSkeleton{To: receiver, Gas: 21000})

		_, err := executeTx(params, ws, testEnv(3), tx)
		requireException(t, err, runtime.ExceptionInvalidSignature)
	})

	t.Run("non zero nonce", func(t *testing.T) {
		t.Parallel()

		ws := newTestWorldState(nil)
		tx := zeroSignatureTx(t, types.TransactionSkeleton{To: receiver, Nonce: 1, Gas: 21000})

		_, err := executeTx(params, ws, testEnv(10), tx)
		requireException(t, err, runtime.ExceptionInvalidZeroSignatureFormat)
	})

	t.Run("system sender keeps its nonce", func(t *testing.T) {
		t.Parallel()

		ws := newTestWorldState(nil)

		for i := 0; i < 2; i++ {
			tx := zeroSignatureTx(t, types.TransactionSkeleton{To: receiver, Gas: 21000})

			e, err := executeTx(params, ws, testEnv(10), tx)
			require.NoError(t, err)
			assert.True(t, e.Result().Succeeded())
		}

		assert.Equal(t, uint64(0), ws.Nonce(types.MaxAddress))
	})
}

func TestExecutive_Create(t *testing.T) {
	t.Parallel()

	// stores 0xfe as the contract code
	init := []byte{0x60, 0xfe, 0x60, 0x00, 0x53, 0x60, 0x01, 0x60, 0x00, 0xf3}

	key, sender := newTestKey(t)

	ws := newTestWorldState(PreStates{
		sender: {Balance: 1_000_000},
	})

	tx := signTx(t, key, types.TransactionSkeleton{
		Creation: true,
		GasPrice: big.NewInt(1),
		Gas:      100000,
		Input:    init,
	})

	e, err := executeTx(testParams(), ws, testEnv(1), tx)
	require.NoError(t, err)

	res := e.Result()
	require.True(t, res.Succeeded())

	addr := crypto.CreateAddress(sender, 0)
	assert.Equal(t, addr, res.NewAddress)
	assert.Equal(t, []byte{0xfe}, ws.Code(addr))
	assert.Equal(t, uint64(1), ws.Nonce(addr))
	assert.Equal(t, CodeDepositSuccess, res.CodeDeposit)
	assert.Equal(t, uint64(1), res.DepositSize)

	// intrinsic 53136, execution 18, deposit 200
	assert.Equal(t, uint64(53354), res.GasUsed)
}

func TestExecutive_CreateOversizedCode(t *testing.T) {
	t.Parallel()

	// returns 0x6001 zero bytes, one more than the limit
	init := []byte{0x61, 0x60, 0x01, 0x60, 0x00, 0xf3}

	key, sender := newTestKey(t)

	ws := newTestWorldState(PreStates{
		sender: {Balance: 1_000_000},
	})

	tx := signTx(t, key, types.TransactionSkeleton{
		Creation: true,
		GasPrice: big.NewInt(1),
		Gas:      200000,
		Input:    init,
	})

	e, err := executeTx(testParams(), ws, testEnv(1), tx)
	require.NoError(t, err)

	res := e.Result()
	assert.Equal(t, runtime.ExceptionOutOfGas, res.Excepted)
	assert.Equal(t, uint64(200000), res.GasUsed)
	assert.Equal(t, types.ZeroAddress, res.NewAddress)

	addr := crypto.CreateAddress(sender, 0)
	assert.False(t, ws.HasCode(addr))
	assert.False(t, ws.AccountExists(addr))

	assert.Equal(t, uint64(1), ws.Nonce(sender))
	assert.Equal(t, int64(800000), ws.Balance(sender).Int64())
}

func TestExecutive_Create2Collision(t *testing.T) {
	t.Parallel()

	sender := types.StringToAddress("0xaa")
	salt := types.StringToHash("0x1234")

	ws := newTestWorldState(PreStates{
		sender: {Balance: 10},
	})
	ws.BeginTransaction()

	params := testParams()
	addr := crypto.CreateAddress2(sender, salt, nil)

	first := NewExecutive(hclog.NewNullLogger(), params, ws, testEnv(1))

	done, err := first.Create2Opcode(sender, big.NewInt(1), big.NewInt(0), 50000, nil, sender, salt)
	require.NoError(t, err)
	assert.True(t, done)
	assert.Equal(t, addr, first.NewAddress())
	assert.Equal(t, uint64(50000), first.Gas())

	second := NewExecutive(hclog.NewNullLogger(), params, ws, testEnv(1))

	done, err = second.Create2Opcode(sender, big.NewInt(1), big.NewInt(0), 50000, nil, sender, salt)
	require.NoError(t, err)
	assert.True(t, done)

	assert.Equal(t, runtime.ExceptionAddressAlreadyUsed, second.Excepted())
	assert.Equal(t, ExecutiveAddressCollision, second.State())
	assert.Equal(t, uint64(0), second.Gas())
	assert.Equal(t, types.ZeroAddress, second.NewAddress())

	// the collision keeps the first deployment and its endowment
	assert.Equal(t, uint64(1), ws.Nonce(addr))
	assert.Equal(t, int64(1), ws.Balance(addr).Int64())
	assert.Equal(t, int64(9), ws.Balance(sender).Int64())

	// both attempts moved the nonce of the creator
	assert.Equal(t, uint64(2), ws.Nonce(sender))
}

func TestExecutive_AccessList(t *testing.T) {
	t.Parallel()

	contract := types.StringToAddress("0xcc")
	slot := types.BytesToHash([]byte{0x01})

	// SLOAD(1)
	code := []byte{0x60, 0x01, 0x54, 0x00}

	chainID := uint64(testChainID)

	cases := []struct {
		name       string
		accessList *types.AccessList
		gasUsed    uint64
	}{
		{
			name:    "cold slot",
			gasUsed: 21000 + 3 + 2100,
		},
		{
			name: "warm slot",
			accessList: types.NewAccessList(types.AccessTuple{
				Address:     contract,
				StorageKeys: []types.Hash{slot},
			}),
			gasUsed: 21000 + 2400 + 1900 + 3 + 100,
		},
	}

	for _, c := range cases {
		c := c

		t.Run(c.name, func(t *testing.T) {
			t.Parallel()

			key, sender := newTestKey(t)

			ws := newTestWorldState(PreStates{
				sender: {Balance: 1_000_000},
			})
			ws.SetCode(contract, code, 0)

			skel := types.TransactionSkeleton{
				To:       contract,
				GasPrice: big.NewInt(1),
				Gas:      100000,
			}

			if c.accessList != nil {
				skel.ChainID = &chainID
				skel.AccessList = c.accessList
			}

			e, err := executeTx(testParams(chain.Berlin), ws, testEnv(1), signTx(t, key, skel))
			require.NoError(t, err)

			res := e.Result()
			require.True(t, res.Succeeded())
			assert.Equal(t, c.gasUsed, res.GasUsed)
		})
	}
}

func TestExecutive_SelfdestructRefund(t *testing.T) {
	t.Parallel()

	contract := types.StringToAddress("0xcc")
	beneficiary := types.StringToAddress("0xdd")

	code := append([]byte{0x73}, beneficiary.Bytes()...)
	code = append(code, 0xff)

	key, sender := newTestKey(t)

	ws := newTestWorldState(PreStates{
		sender:      {Balance: 1_000_000},
		contract:    {Balance: 50},
		beneficiary: {Balance: 1},
	})
	ws.SetCode(contract, code, 0)

	tx := signTx(t, key, types.TransactionSkeleton{
		To:       contract,
		GasPrice: big.NewInt(1),
		Gas:      100000,
	})

	e, err := executeTx(testParams(), ws, testEnv(1), tx)
	require.NoError(t, err)

	res := e.Result()
	require.True(t, res.Succeeded())

	// 26003 used before the refund, capped at half of it
	assert.Equal(t, uint64(13002), res.GasUsed)
	assert.Equal(t, uint64(24000), res.GasRefunded)

	assert.False(t, ws.AccountExists(contract))
	assert.Equal(t, int64(51), ws.Balance(beneficiary).Int64())
	assert.Equal(t, int64(1_000_000-13002), ws.Balance(sender).Int64())
}

func TestExecutive_NestedCallRevert(t *testing.T) {
	t.Parallel()

	outer := types.StringToAddress("0xaa")
	inner := types.StringToAddress("0xbb")
	sender := types.StringToAddress("0x01")

	// SSTORE(0, 1), LOG0, then the last instruction
	innerCode := func(last byte) []byte {
		return []byte{
			0x60, 0x01, 0x60, 0x00, 0x55,
			0x60, 0x00, 0x60, 0x00, 0xa0,
			0x60, 0x00, 0x60, 0x00, last,
		}
	}

	// SSTORE(0, 1), CALL(inner), POP, LOG0
	outerCode := []byte{0x60, 0x01, 0x60, 0x00, 0x55}
	outerCode = append(outerCode, 0x60, 0x00, 0x60, 0x00, 0x60, 0x00, 0x60, 0x00, 0x60, 0x00, 0x73)
	outerCode = append(outerCode, inner.Bytes()...)
	outerCode = append(outerCode, 0x61, 0xff, 0xff, 0xf1, 0x50, 0x60, 0x00, 0x60, 0x00, 0xa0, 0x00)

	cases := []struct {
		name   string
		last   byte
		stored types.Hash
		logs   int
	}{
		{
			name:   "inner reverts",
			last:   0xfd,
			stored: types.ZeroHash,
			logs:   1,
		},
		{
			name:   "inner succeeds",
			last:   0xf3,
			stored: types.BytesToHash([]byte{0x01}),
			logs:   2,
		},
	}

	for _, c := range cases {
		c := c

		t.Run(c.name, func(t *testing.T) {
			t.Parallel()

			ws := newTestWorldState(PreStates{
				sender: {Balance: 1},
				outer:  {Nonce: 1},
				inner:  {Nonce: 1},
			})
			ws.SetCode(outer, outerCode, 0)
			ws.SetCode(inner, innerCode(c.last), 0)

			e, err := executeMessage(testParams(), ws, testEnv(1), &Message{
				From: sender,
				To:   outer,
				Gas:  200000,
			})
			require.NoError(t, err)
			require.True(t, e.Result().Succeeded())

			assert.Equal(t, types.BytesToHash([]byte{0x01}), ws.Storage(outer, types.ZeroHash))
			assert.Equal(t, c.stored, ws.Storage(inner, types.ZeroHash))

			require.Len(t, e.Logs(), c.logs)
			assert.Equal(t, outer, e.Logs()[c.logs-1].Address)
		})
	}
}

func TestExecutive_Revert(t *testing.T) {
	t.Parallel()

	contract := types.StringToAddress("0xcc")

	// SSTORE(0, 1), REVERT(0, 0)
	code := []byte{0x60, 0x01, 0x60, 0x00, 0x55, 0x60, 0x00, 0x60, 0x00, 0xfd}

	key, sender := newTestKey(t)

	ws := newTestWorldState(PreStates{
		sender: {Balance: 1_000_000},
	})
	ws.SetCode(contract, code, 0)

	tx := signTx(t, key, types.TransactionSkeleton{
		To:       contract,
		Value:    big.NewInt(5),
		GasPrice: big.NewInt(1),
		Gas:      100000,
	})

	e, err := executeTx(testParams(), ws, testEnv(1), tx)
	require.NoError(t, err)

	res := e.Result()
	assert.Equal(t, runtime.ExceptionRevertInstruction, res.Excepted)
	assert.Less(t, res.GasUsed, uint64(100000))

	assert.Equal(t, types.ZeroHash, ws.Storage(contract, types.ZeroHash))
	assert.Equal(t, 0, ws.Balance(contract).Sign())

	// the nonce and the fee survive the revert
	assert.Equal(t, uint64(1), ws.Nonce(sender))
	assert.Equal(t, int64(1_000_000-res.GasUsed), ws.Balance(sender).Int64())
}

func TestExecutive_PrecompiledOutOfGas(t *testing.T) {
	t.Parallel()

	sha256Addr := types.StringToAddress("0x2")

	ws := newTestWorldState(PreStates{
		types.SystemAddress:           {Balance: 10},
		types.RipemdPrecompileAddress: {},
		sha256Addr:                    {},
	})

	params := testParams()

	for _, to := range []types.Address{types.RipemdPrecompileAddress, sha256Addr} {
		e, err := executeMessage(params, ws, testEnv(1), &Message{
			From:  types.SystemAddress,
			To:    to,
			Gas:   10,
			Value: big.NewInt(1),
		})
		require.NoError(t, err)

		res := e.Result()
		assert.Equal(t, runtime.ExceptionOutOfGasBase, res.Excepted)
		assert.Equal(t, uint64(10), res.GasUsed)
	}

	ws = commit(t, ws, true)

	// the ripemd account is touched even though the call failed
	assert.False(t, ws.AccountExists(types.RipemdPrecompileAddress))
	assert.True(t, ws.AccountExists(sha256Addr))
}

func TestExecutive_PrecompiledCall(t *testing.T) {
	t.Parallel()

	identity := types.StringToAddress("0x4")
	input := []byte{0x01, 0x02, 0x03}

	ws := newTestWorldState(nil)

	e, err := executeMessage(testParams(), ws, testEnv(1), &Message{
		From: types.SystemAddress,
		To:   identity,
		Gas:  1000,
		Data: input,
	})
	require.NoError(t, err)

	res := e.Result()
	require.True(t, res.Succeeded())
	assert.Equal(t, input, e.Output())

	// 15 plus 3 per word
	assert.Equal(t, uint64(18), res.GasUsed)
}

func estimateFeeInput(addr types.Address, timestamp uint64) []byte {
	input := make([]byte, 64)
	copy(input[12:32], addr.Bytes())
	binary.BigEndian.PutUint64(input[56:], timestamp)

	return input
}

func TestExecutive_EstimateFee(t *testing.T) {
	t.Parallel()

	staker := types.StringToAddress("0x3289621709f5b35d09b4335e129907ac367a0593")

	scheduleFee := new(big.Int).Mul(big.NewInt(100), chain.FreeStakingSchedule.DailyFee)
	scheduleFee.Div(scheduleFee, big.NewInt(1000))

	cases := []struct {
		name   string
		engine map[string]interface{}
		staker bool
		fee    *big.Int
	}{
		{
			name:   "schedule daily fee",
			staker: true,
			fee:    scheduleFee,
		},
		{
			name: "config storage daily fee",
			engine: map[string]interface{}{
				chain.FreeStakingEngine: map[string]interface{}{
					"dailyFeeSource": "config-storage",
				},
			},
			staker: true,
			fee:    big.NewInt(500),
		},
		{
			name: "no stake",
			fee:  big.NewInt(0),
		},
	}

	for _, c := range cases {
		c := c

		t.Run(c.name, func(t *testing.T) {
			t.Parallel()

			params := testParams(chain.Berlin, chain.FreeStaking)
			params.Engine = c.engine

			ws := newTestWorldState(PreStates{
				staker:                  {Balance: 1},
				types.FeeManagerAddress: {Balance: 1000},
			})
			ws.SetStorage(types.ConfigAddress, types.DailyFeeSlot, types.BytesToHash(big.NewInt(5000).Bytes()))

			if c.staker {
				ws.SetStakeInfo(staker, &StakeInfo{
					Total: big.NewInt(100),
					Usage: big.NewInt(0),
				})
			}

			e, err := executeMessage(params, ws, testEnv(1), &Message{
				From: types.SystemAddress,
				To:   types.EstimateFeePrecompileAddress,
				Gas:  100000,
				Data: estimateFeeInput(staker, 2000),
			})
			require.NoError(t, err)
			require.True(t, e.Result().Succeeded())

			out := e.Output()
			require.Len(t, out, 32)
			assert.Equal(t, 0, c.fee.Cmp(new(big.Int).SetBytes(out)), new(big.Int).SetBytes(out).String())
		})
	}
}

func TestExecutive_EstimateFeeDisabled(t *testing.T) {
	t.Parallel()

	ws := newTestWorldState(nil)
	e := NewExecutive(hclog.NewNullLogger(), testParams(chain.Berlin), ws, testEnv(1))

	_, err := e.estimateFee(types.StringToAddress("0x1"), 0)
	assert.ErrorIs(t, err, ErrFreeStakingDisabled)
}

func TestExecutive_Upgrade(t *testing.T) {
	t.Parallel()

	target := types.StringToAddress("0xcc")
	slot := types.BytesToHash([]byte{0x01})

	// stores 0xfe as the contract code
	init := []byte{0x60, 0xfe, 0x60, 0x00, 0x53, 0x60, 0x01, 0x60, 0x00, 0xf3}

	// builds a world state where target has storage and, optionally, code
	prepare := func(t *testing.T, code []byte) *WorldState {
		t.Helper()

		ws := newTestWorldState(PreStates{
			target: {Balance: 1, State: map[types.Hash]types.Hash{slot: slot}},
		})

		if code != nil {
			ws.SetCode(target, code, 0)
		}

		return commit(t, ws, false)
	}

	upgrade := func(code []byte, clearStorage bool) *Message {
		return &Message{
			From:         types.SystemAddress,
			To:           target,
			Gas:          100000,
			Data:         code,
			IsUpgrade:    true,
			ClearStorage: clearStorage,
		}
	}

	t.Run("missing account runs the init code", func(t *testing.T) {
		t.Parallel()

		ws := newTestWorldState(nil)

		e, err := executeMessage(testParams(), ws, testEnv(1), upgrade(init, false))
		require.NoError(t, err)
		require.True(t, e.Result().Succeeded())

		assert.Equal(t, target, e.Result().NewAddress)
		assert.Equal(t, []byte{0xfe}, ws.Code(target))
		assert.Equal(t, uint64(1), ws.Nonce(target))
	})

	t.Run("existing code is replaced", func(t *testing.T) {
		t.Parallel()

		ws := prepare(t, []byte{0x00})
		code := []byte{0x60, 0x00}

		e, err := executeMessage(testParams(), ws, testEnv(1), upgrade(code, true))
		require.NoError(t, err)
		require.True(t, e.Result().Succeeded())

		assert.Equal(t, code, ws.Code(target))
		assert.Equal(t, types.ZeroHash, ws.Storage(target, slot))

		// the replacement leaves no gas
		assert.Equal(t, uint64(100000), e.Result().GasUsed)
	})

	t.Run("existing code keeps storage", func(t *testing.T) {
		t.Parallel()

		ws := prepare(t, []byte{0x00})

		_, err := executeMessage(testParams(), ws, testEnv(1), upgrade([]byte{0x60, 0x00}, false))
		require.NoError(t, err)

		assert.Equal(t, slot, ws.Storage(target, slot))
	})

	t.Run("existing account without code", func(t *testing.T) {
		t.Parallel()

		ws := prepare(t, nil)

		e, err := executeMessage(testParams(), ws, testEnv(1), upgrade([]byte{0x60, 0x00}, false))
		require.NoError(t, err)

		assert.Equal(t, runtime.ExceptionAddressAlreadyUsed, e.Result().Excepted)
		assert.False(t, ws.HasCode(target))
		assert.Equal(t, slot, ws.Storage(target, slot))
	})

	t.Run("transactions cannot upgrade", func(t *testing.T) {
		t.Parallel()

		ws := newTestWorldState(nil)
		e := NewExecutive(hclog.NewNullLogger(), testParams(), ws, testEnv(1))

		_, err := e.Upgrade(types.SystemAddress, target, big.NewInt(0), big.NewInt(0), 1000, nil, types.SystemAddress, false)
		requireException(t, err, runtime.ExceptionExecutionFailed)
	})
}

func TestExecutive_MessageCreate(t *testing.T) {
	t.Parallel()

	sender := types.StringToAddress("0xaa")

	t.Run("uses the nonce before the originator increment", func(t *testing.T) {
		t.Parallel()

		ws := newTestWorldState(PreStates{
			sender: {Nonce: 3},
		})

		e, err := executeMessage(testParams(), ws, testEnv(1), &Message{
			From:       sender,
			Gas:        100000,
			IsCreation: true,
		})
		require.NoError(t, err)

		assert.Equal(t, crypto.CreateAddress(sender, 2), e.Result().NewAddress)
		assert.Equal(t, uint64(3), ws.Nonce(sender))
	})

	t.Run("zero nonce is fatal", func(t *testing.T) {
		t.Parallel()

		ws := newTestWorldState(nil)

		_, err := executeMessage(testParams(), ws, testEnv(1), &Message{
			From:       sender,
			Gas:        100000,
			IsCreation: true,
		})
		assert.True(t, runtime.IsFatal(err))
		assert.ErrorIs(t, err, ErrZeroMessageNonce)
	})

	t.Run("gas below the base fee", func(t *testing.T) {
		t.Parallel()

		ws := newTestWorldState(nil)

		_, err := executeMessage(testParams(), ws, testEnv(1), &Message{
			From:    sender,
			Gas:     10,
			BaseFee: 20,
		})
		requireException(t, err, runtime.ExceptionOutOfGasIntrinsic)
	})
}

func TestExecutive_StateOrder(t *testing.T) {
	t.Parallel()

	ws := newTestWorldState(nil)
	e := NewExecutive(hclog.NewNullLogger(), testParams(), ws, testEnv(1))

	_, err := e.Execute()
	assert.ErrorIs(t, err, ErrExecutiveState)

	require.NoError(t, e.InitializeMessage(&Message{From: types.SystemAddress, To: addr1, Gas: 10}))
	assert.ErrorIs(t, e.InitializeMessage(&Message{}), ErrExecutiveState)
}
