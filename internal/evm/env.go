package evm

import (
	"fmt"
	"log/slog"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/holiman/uint256"
)

// txContext is shared by every frame of one transaction.
type txContext struct {
	state       *StateDB
	chainID     *big.Int
	origin      common.Address
	blockNumber uint64
	txHash      common.Hash
	loaders     []CodeLoader
	log         *slog.Logger
}

// Env is the execution frame handed to a contract. Address is the storage
// context; under DELEGATECALL it differs from CodeAddress.
type Env struct {
	tx          *txContext
	caller      common.Address
	address     common.Address
	codeAddress common.Address
	value       *uint256.Int
	static      bool
	depth       int
}

func (e *Env) Caller() common.Address      { return e.caller }
func (e *Env) Address() common.Address     { return e.address }
func (e *Env) CodeAddress() common.Address { return e.codeAddress }
func (e *Env) Origin() common.Address      { return e.tx.origin }
func (e *Env) ReadOnly() bool              { return e.static }
func (e *Env) Depth() int                  { return e.depth }
func (e *Env) BlockNumber() uint64         { return e.tx.blockNumber }
func (e *Env) TxHash() common.Hash         { return e.tx.txHash }
func (e *Env) Logger() *slog.Logger        { return e.tx.log }

// Value returns a copy of the value sent with the current frame.
func (e *Env) Value() *uint256.Int { return new(uint256.Int).Set(e.value) }

func (e *Env) ChainID() *big.Int { return new(big.Int).Set(e.tx.chainID) }

func (e *Env) GetState(key common.Hash) common.Hash {
	return e.tx.state.GetState(e.address, key)
}

func (e *Env) SetState(key, value common.Hash) error {
	if e.static {
		return ErrWriteProtection
	}
	e.tx.state.SetState(e.address, key, value)
	return nil
}

func (e *Env) Balance(addr common.Address) *uint256.Int { return e.tx.state.GetBalance(addr) }

func (e *Env) SelfBalance() *uint256.Int { return e.tx.state.GetBalance(e.address) }

func (e *Env) Code(addr common.Address) []byte { return e.tx.state.GetCode(addr) }

func (e *Env) HasCode(addr common.Address) bool { return len(e.tx.state.GetCode(addr)) > 0 }

// Call runs to's code in its own storage context, transferring value.
func (e *Env) Call(to common.Address, value *uint256.Int, input []byte) ([]byte, error) {
	if value == nil {
		value = new(uint256.Int)
	}
	if e.static && !value.IsZero() {
		return nil, ErrWriteProtection
	}
	return e.tx.call(e.depth+1, e.address, to, to, value, input, e.static, true)
}

// StaticCall runs to's code with every state modification forbidden.
func (e *Env) StaticCall(to common.Address, input []byte) ([]byte, error) {
	return e.tx.call(e.depth+1, e.address, to, to, new(uint256.Int), input, true, false)
}

// DelegateCall runs codeAddr's code in the current storage context, keeping
// the current caller and value.
func (e *Env) DelegateCall(codeAddr common.Address, input []byte) ([]byte, error) {
	return e.tx.call(e.depth+1, e.caller, e.address, codeAddr, e.value, input, e.static, false)
}

// Create2 deploys initCode at keccak256(0xff ++ self ++ salt ++ keccak256(initCode))[12:].
func (e *Env) Create2(salt common.Hash, initCode []byte, value *uint256.Int) (common.Address, error) {
	addr := crypto.CreateAddress2(e.address, salt, crypto.Keccak256(initCode))
	if e.static {
		return addr, ErrWriteProtection
	}
	if value == nil {
		value = new(uint256.Int)
	}
	runtime, c, ok := e.tx.load(initCode)
	if !ok {
		return addr, fmt.Errorf("%w: %d bytes", ErrUnknownInitCode, len(initCode))
	}
	e.tx.state.SetNonce(e.address, e.tx.state.GetNonce(e.address)+1)
	if err := e.tx.create(e.depth+1, e.address, addr, runtime, c, value); err != nil {
		return addr, err
	}
	return addr, nil
}

// Emit appends a log attributed to the current storage context.
func (e *Env) Emit(topics []common.Hash, data []byte) error {
	if e.static {
		return ErrWriteProtection
	}
	e.tx.state.AddLog(&types.Log{
		Address:     e.address,
		Topics:      append([]common.Hash{}, topics...),
		Data:        common.CopyBytes(data),
		BlockNumber: e.tx.blockNumber,
		TxHash:      e.tx.txHash,
	})
	return nil
}

func (e *Env) readOnly() *Env {
	cp := *e
	cp.static = true
	return &cp
}

func (tx *txContext) load(initCode []byte) ([]byte, Contract, bool) {
	for _, l := range tx.loaders {
		if runtime, c, ok := l.Load(initCode); ok {
			return runtime, c, true
		}
	}
	return nil, nil, false
}

func (tx *txContext) call(depth int, caller, address, codeAddress common.Address, value *uint256.Int, input []byte, static, transfer bool) ([]byte, error) {
	if depth > MaxCallDepth {
		return nil, ErrDepthExceeded
	}
	snap := tx.state.Snapshot()
	if transfer && !value.IsZero() {
		if tx.state.GetBalance(caller).Lt(value) {
			return nil, ErrInsufficientBalance
		}
		tx.state.SubBalance(caller, value)
		tx.state.AddBalance(address, value)
	}
	c := tx.state.contract(codeAddress)
	if c == nil {
		return nil, nil
	}
	env := &Env{
		tx:          tx,
		caller:      caller,
		address:     address,
		codeAddress: codeAddress,
		value:       value,
		static:      static,
		depth:       depth,
	}
	ret, err := c.Run(env, input)
	if err != nil {
		tx.state.RevertToSnapshot(snap)
		return nil, err
	}
	return ret, nil
}

func (tx *txContext) create(depth int, creator, addr common.Address, runtime []byte, c Contract, value *uint256.Int) error {
	if depth > MaxCallDepth {
		return ErrDepthExceeded
	}
	if len(tx.state.GetCode(addr)) > 0 || tx.state.GetNonce(addr) > 0 {
		return fmt.Errorf("%w: %s", ErrContractCollision, addr.Hex())
	}
	snap := tx.state.Snapshot()
	if !value.IsZero() {
		if tx.state.GetBalance(creator).Lt(value) {
			return ErrInsufficientBalance
		}
		tx.state.SubBalance(creator, value)
		tx.state.AddBalance(addr, value)
	}
	tx.state.SetNonce(addr, 1)
	tx.state.SetCode(addr, runtime, c)
	if ctor, ok := c.(Constructor); ok {
		env := &Env{
			tx:          tx,
			caller:      creator,
			address:     addr,
			codeAddress: addr,
			value:       value,
			depth:       depth,
		}
		if err := ctor.Construct(env); err != nil {
			tx.state.RevertToSnapshot(snap)
			return err
		}
	}
	return nil
}
