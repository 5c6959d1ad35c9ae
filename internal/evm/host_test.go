package evm

import (
	"bytes"
	"context"
	"errors"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/holiman/uint256"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const counterABI = `[
	{"type":"function","name":"increment","inputs":[],"outputs":[],"stateMutability":"nonpayable"},
	{"type":"function","name":"incrementAndFail","inputs":[],"outputs":[],"stateMutability":"nonpayable"},
	{"type":"function","name":"get","inputs":[],"outputs":[{"name":"","type":"uint256"}],"stateMutability":"view"},
	{"type":"function","name":"badView","inputs":[],"outputs":[],"stateMutability":"view"},
	{"type":"function","name":"deposit","inputs":[],"outputs":[],"stateMutability":"payable"},
	{"type":"event","name":"Incremented","inputs":[{"name":"by","type":"address","indexed":true},{"name":"value","type":"uint256","indexed":false}],"anonymous":false}
]`

var (
	errBoom     = errors.New("boom")
	counterSlot = Slot("test.counter")
	parsedABI   = MustParseABI(counterABI)
)

type counter struct{ d *Dispatcher }

func newCounter() *counter {
	c := &counter{}
	c.d = NewDispatcher(parsedABI).
		On("increment", func(env *Env, _ []interface{}) ([]interface{}, error) {
			return nil, c.bump(env)
		}).
		On("incrementAndFail", func(env *Env, _ []interface{}) ([]interface{}, error) {
			if err := c.bump(env); err != nil {
				return nil, err
			}
			return nil, errBoom
		}).
		On("get", func(env *Env, _ []interface{}) ([]interface{}, error) {
			return []interface{}{env.GetBig(counterSlot)}, nil
		}).
		On("badView", func(env *Env, _ []interface{}) ([]interface{}, error) {
			return nil, env.SetBool(counterSlot, true)
		}).
		On("deposit", func(env *Env, _ []interface{}) ([]interface{}, error) {
			return nil, nil
		})
	return c
}

func (c *counter) bump(env *Env) error {
	next := new(big.Int).Add(env.GetBig(counterSlot), big.NewInt(1))
	if err := env.SetBig(counterSlot, next); err != nil {
		return err
	}
	return EmitEvent(env, parsedABI.Events["Incremented"], env.Caller(), next)
}

func (c *counter) Run(env *Env, input []byte) ([]byte, error) { return c.d.Dispatch(env, input) }

// contractFunc lets tests install ad-hoc raw contracts.
type contractFunc func(env *Env, input []byte) ([]byte, error)

func (f contractFunc) Run(env *Env, input []byte) ([]byte, error) { return f(env, input) }

func selector(name string) []byte { return parsedABI.Methods[name].ID }

var (
	alice = common.HexToAddress("0x00000000000000000000000000000000000a11ce")
	bob   = common.HexToAddress("0x0000000000000000000000000000000000000b0b")
)

func deploy(t *testing.T, h *Host, c Contract) common.Address {
	t.Helper()
	receipt, err := h.Deploy(context.Background(), alice, c, nil)
	require.NoError(t, err)
	return receipt.ContractAddress
}

func readCounter(t *testing.T, h *Host, addr common.Address) *big.Int {
	t.Helper()
	ret, err := h.Call(context.Background(), alice, addr, selector("get"))
	require.NoError(t, err)
	out, err := parsedABI.Methods["get"].Outputs.Unpack(ret)
	require.NoError(t, err)
	return out[0].(*big.Int)
}

func TestHost_Deploy(t *testing.T) {
	h := NewHost(31337)
	addr := deploy(t, h, newCounter())

	assert.Equal(t, crypto.CreateAddress(alice, 0), addr)
	assert.Equal(t, uint64(1), h.NonceAt(alice))
	assert.Equal(t, uint64(1), h.NonceAt(addr))
	code, err := h.CodeAt(context.Background(), addr, nil)
	require.NoError(t, err)
	assert.NotEmpty(t, code)
	assert.Equal(t, byte(0xfe), code[0])
}

func TestHost_Transact(t *testing.T) {
	ctx := context.Background()

	t.Run("applies state and emits logs", func(t *testing.T) {
		h := NewHost(31337)
		addr := deploy(t, h, newCounter())

		receipt, err := h.Transact(ctx, bob, addr, nil, selector("increment"))
		require.NoError(t, err)
		assert.True(t, receipt.Succeeded())
		require.Len(t, receipt.Logs, 1)
		assert.Equal(t, addr, receipt.Logs[0].Address)
		assert.Equal(t, parsedABI.Events["Incremented"].ID, receipt.Logs[0].Topics[0])
		assert.Equal(t, common.BytesToHash(bob.Bytes()), receipt.Logs[0].Topics[1])
		assert.Equal(t, receipt.TxHash, receipt.Logs[0].TxHash)
		assert.Equal(t, int64(1), readCounter(t, h, addr).Int64())
	})

	t.Run("revert discards state and logs but consumes nonce", func(t *testing.T) {
		h := NewHost(31337)
		addr := deploy(t, h, newCounter())

		receipt, err := h.Transact(ctx, bob, addr, nil, selector("incrementAndFail"))
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrExecutionReverted)
		assert.ErrorIs(t, err, errBoom)
		assert.False(t, receipt.Succeeded())
		assert.Empty(t, receipt.Logs)
		assert.Zero(t, readCounter(t, h, addr).Sign())
		assert.Equal(t, uint64(1), h.NonceAt(bob))
	})

	t.Run("unknown selector", func(t *testing.T) {
		h := NewHost(31337)
		addr := deploy(t, h, newCounter())

		_, err := h.Transact(ctx, bob, addr, nil, []byte{1, 2, 3, 4})
		assert.ErrorIs(t, err, ErrUnknownSelector)
	})

	t.Run("value transfer", func(t *testing.T) {
		h := NewHost(31337)
		addr := deploy(t, h, newCounter())
		h.SetBalance(bob, uint256.NewInt(100))

		_, err := h.Transact(ctx, bob, addr, uint256.NewInt(40), selector("deposit"))
		require.NoError(t, err)
		assert.Equal(t, uint256.NewInt(60), h.BalanceAt(bob))
		assert.Equal(t, uint256.NewInt(40), h.BalanceAt(addr))

		_, err = h.Transact(ctx, bob, addr, uint256.NewInt(40), selector("increment"))
		assert.ErrorIs(t, err, ErrNonPayable)

		_, err = h.Transact(ctx, bob, addr, uint256.NewInt(1000), selector("deposit"))
		assert.ErrorIs(t, err, ErrInsufficientBalance)
		assert.Equal(t, uint256.NewInt(60), h.BalanceAt(bob))
	})

	t.Run("cancelled context", func(t *testing.T) {
		h := NewHost(31337)
		cctx, cancel := context.WithCancel(ctx)
		cancel()
		_, err := h.Transact(cctx, bob, alice, nil, nil)
		assert.ErrorIs(t, err, context.Canceled)
		assert.Equal(t, uint64(0), h.NonceAt(bob))
	})
}

func TestHost_Call(t *testing.T) {
	h := NewHost(31337)
	addr := deploy(t, h, newCounter())

	_, err := h.Call(context.Background(), bob, addr, selector("increment"))
	require.NoError(t, err)
	assert.Zero(t, readCounter(t, h, addr).Sign())

	_, err = h.Call(context.Background(), bob, addr, selector("badView"))
	assert.ErrorIs(t, err, ErrWriteProtection)
}

func TestEnv_Frames(t *testing.T) {
	ctx := context.Background()

	t.Run("failed inner call is rolled back when caught", func(t *testing.T) {
		h := NewHost(31337)
		target := deploy(t, h, newCounter())
		outer := deploy(t, h, contractFunc(func(env *Env, input []byte) ([]byte, error) {
			if _, err := env.Call(target, nil, selector("increment")); err != nil {
				return nil, err
			}
			_, err := env.Call(target, nil, selector("incrementAndFail"))
			assert.ErrorIs(t, err, errBoom)
			return nil, nil
		}))

		receipt, err := h.Transact(ctx, bob, outer, nil, nil)
		require.NoError(t, err)
		assert.Len(t, receipt.Logs, 1)
		assert.Equal(t, int64(1), readCounter(t, h, target).Int64())
	})

	t.Run("static call forbids writes", func(t *testing.T) {
		h := NewHost(31337)
		target := deploy(t, h, newCounter())
		outer := deploy(t, h, contractFunc(func(env *Env, input []byte) ([]byte, error) {
			return env.StaticCall(target, selector("increment"))
		}))

		_, err := h.Transact(ctx, bob, outer, nil, nil)
		assert.ErrorIs(t, err, ErrWriteProtection)
	})

	t.Run("delegate call uses caller storage", func(t *testing.T) {
		h := NewHost(31337)
		impl := deploy(t, h, newCounter())
		shell := deploy(t, h, contractFunc(func(env *Env, input []byte) ([]byte, error) {
			if bytes.Equal(input, selector("increment")) {
				assert.Equal(t, bob, env.Caller())
			}
			assert.Equal(t, env.Address(), env.CodeAddress())
			return env.DelegateCall(impl, input)
		}))

		receipt, err := h.Transact(ctx, bob, shell, nil, selector("increment"))
		require.NoError(t, err)
		require.Len(t, receipt.Logs, 1)
		assert.Equal(t, shell, receipt.Logs[0].Address)
		assert.Equal(t, int64(1), readCounter(t, h, shell).Int64())
		assert.Zero(t, readCounter(t, h, impl).Sign())
	})

	t.Run("call depth is bounded", func(t *testing.T) {
		h := NewHost(31337)
		var self common.Address
		self = deploy(t, h, contractFunc(func(env *Env, input []byte) ([]byte, error) {
			return env.Call(self, nil, nil)
		}))

		_, err := h.Transact(ctx, bob, self, nil, nil)
		assert.ErrorIs(t, err, ErrDepthExceeded)
	})
}

func TestEnv_Create2(t *testing.T) {
	ctx := context.Background()
	initCode := []byte("counter-init")
	loader := CodeLoaderFunc(func(code []byte) ([]byte, Contract, bool) {
		if string(code) != string(initCode) {
			return nil, nil, false
		}
		return []byte("counter-runtime"), newCounter(), true
	})
	salt := common.HexToHash("0x01")

	var created common.Address
	h := NewHost(31337, WithCodeLoader(loader))
	factory := deploy(t, h, contractFunc(func(env *Env, input []byte) ([]byte, error) {
		addr, err := env.Create2(salt, input, nil)
		created = addr
		return addr.Bytes(), err
	}))

	_, err := h.Transact(ctx, bob, factory, nil, initCode)
	require.NoError(t, err)
	assert.Equal(t, crypto.CreateAddress2(factory, salt, crypto.Keccak256(initCode)), created)
	code, err := h.CodeAt(ctx, created, nil)
	require.NoError(t, err)
	assert.Equal(t, []byte("counter-runtime"), code)

	_, err = h.Transact(ctx, bob, factory, nil, initCode)
	assert.ErrorIs(t, err, ErrContractCollision)

	_, err = h.Transact(ctx, bob, factory, nil, []byte("unknown"))
	assert.ErrorIs(t, err, ErrUnknownInitCode)
}

func TestEnv_StringStorage(t *testing.T) {
	h := NewHost(1)
	long := "ipfs://QmZcH4YvBVVRJtdn4RdbaqgspFU8gH6P9vomDpBVpAL3u4/"
	var got []string
	addr := deploy(t, h, contractFunc(func(env *Env, input []byte) ([]byte, error) {
		if err := env.SetString(counterSlot, string(input)); err != nil {
			return nil, err
		}
		got = append(got, env.GetString(counterSlot))
		return nil, nil
	}))

	for _, s := range []string{long, "short", ""} {
		_, err := h.Transact(context.Background(), bob, addr, nil, []byte(s))
		require.NoError(t, err)
	}
	assert.Equal(t, []string{long, "short", ""}, got)
	assert.Equal(t, common.Hash{}, h.StorageAt(addr, OffsetSlot(crypto.Keccak256Hash(counterSlot.Bytes()), 1)))
}
