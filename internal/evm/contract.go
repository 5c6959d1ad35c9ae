// Package evm is a small EVM-like host that runs Go-native contracts.
//
// Contracts are ordinary Go values implementing Contract. The host gives them
// what bytecode would get from the EVM: per-address storage, balances, nonces,
// CALL / STATICCALL / DELEGATECALL frames, CREATE / CREATE2 deployment, logs,
// and a journal that rolls back every change made by a failed frame. Gas is
// not metered.
package evm

import (
	"errors"
	"fmt"
)

// MaxCallDepth is the deepest call stack the host allows.
const MaxCallDepth = 1024

var (
	ErrExecutionReverted   = errors.New("execution reverted")
	ErrWriteProtection     = errors.New("write protection")
	ErrDepthExceeded       = errors.New("max call depth exceeded")
	ErrInsufficientBalance = errors.New("insufficient balance for transfer")
	ErrContractCollision   = errors.New("contract address collision")
	ErrUnknownInitCode     = errors.New("init code not recognised by any loader")
	ErrUnknownSelector     = errors.New("function selector not recognised")
	ErrNonPayable          = errors.New("non-payable function received value")
	ErrNoCode              = errors.New("call to address without code")
	ErrInvalidInput        = errors.New("invalid call data")
)

// Contract is native code installed at an address.
type Contract interface {
	Run(env *Env, input []byte) ([]byte, error)
}

// Constructor is implemented by contracts that execute code at deployment,
// in the storage context of the new address.
type Constructor interface {
	Construct(env *Env) error
}

// CodeLoader turns init code into runtime code plus the contract executing it.
// Loaders are consulted in registration order by CREATE2.
type CodeLoader interface {
	Load(initCode []byte) (runtime []byte, c Contract, ok bool)
}

// CodeLoaderFunc adapts a function to CodeLoader.
type CodeLoaderFunc func(initCode []byte) ([]byte, Contract, bool)

func (f CodeLoaderFunc) Load(initCode []byte) ([]byte, Contract, bool) {
	return f(initCode)
}

// nativeCodePrefix starts with INVALID so the code is never mistaken for
// executable bytecode.
var nativeCodePrefix = []byte{0xfe, 'n', 'a', 't', 'i', 'v', 'e', ':'}

// NativeCode returns the marker code stored at the address of a native contract.
func NativeCode(c Contract) []byte {
	if named, ok := c.(interface{ Name() string }); ok {
		return append(append([]byte{}, nativeCodePrefix...), named.Name()...)
	}
	return append(append([]byte{}, nativeCodePrefix...), fmt.Sprintf("%T", c)...)
}
