package domain

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// Sentinel errors for account operations
var (
	// ErrNotFound is returned when a requested resource doesn't exist
	ErrNotFound = errors.New("not found")

	// ErrInvalidAddress is returned when an Ethereum address is invalid
	ErrInvalidAddress = errors.New("invalid address")

	// ErrInvalidChainID is returned when a chain ID is invalid
	ErrInvalidChainID = errors.New("invalid chain ID")

	// ErrUnauthorized is matched by every AuthorizationError
	ErrUnauthorized = errors.New("unauthorized caller")

	ErrAlreadyInitialized    = errors.New("account already initialized")
	ErrNotInitialized        = errors.New("account not initialized")
	ErrBindingMismatch       = errors.New("binding does not match deployed code")
	ErrDeploymentFailed      = errors.New("account deployment failed")
	ErrInvalidImplementation = errors.New("implementation has no code")
	ErrSubcallFailed         = errors.New("forwarded call failed")
	ErrOracleFailure         = errors.New("ownership query failed")

	// ErrReentrantCall is returned when an account is re-entered during executeCall
	ErrReentrantCall = errors.New("reentrant call")

	// ErrOwnershipCycle is returned when an account would receive its own token
	ErrOwnershipCycle = errors.New("account cannot hold its own token")

	ErrInvalidSignature      = errors.New("invalid signature")
	ErrTokenNotFound         = errors.New("token does not exist")
	ErrInsufficientBalance   = errors.New("insufficient balance")
	ErrInsufficientAllowance = errors.New("insufficient allowance")
)

// AuthorizationError is returned when a caller is neither the owner nor an
// approved relay for the account.
type AuthorizationError struct {
	Caller  common.Address
	Account common.Address
	Cause   error
}

func (e *AuthorizationError) Error() string {
	msg := fmt.Sprintf("caller %s is not authorized on account %s", e.Caller.Hex(), e.Account.Hex())
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

func (e *AuthorizationError) Is(target error) bool { return target == ErrUnauthorized }

func (e *AuthorizationError) Unwrap() error { return e.Cause }

// DeploymentError reports why the registry could not materialize an account.
type DeploymentError struct {
	Account common.Address
	Reason  error
}

func (e *DeploymentError) Error() string {
	return fmt.Sprintf("deploy account %s: %v", e.Account.Hex(), e.Reason)
}

func (e *DeploymentError) Is(target error) bool { return target == ErrDeploymentFailed }

func (e *DeploymentError) Unwrap() error { return e.Reason }

// SubcallError wraps the revert of a call forwarded by executeCall.
type SubcallError struct {
	Target common.Address
	Value  *big.Int
	Err    error
}

func (e *SubcallError) Error() string {
	return fmt.Sprintf("call to %s failed: %v", e.Target.Hex(), e.Err)
}

func (e *SubcallError) Is(target error) bool { return target == ErrSubcallFailed }

func (e *SubcallError) Unwrap() error { return e.Err }

// OracleError is returned when the bound token contract cannot answer ownerOf.
type OracleError struct {
	TokenContract common.Address
	TokenID       *big.Int
	Err           error
}

func (e *OracleError) Error() string {
	return fmt.Sprintf("ownerOf(%s) on %s: %v", orZero(e.TokenID), e.TokenContract.Hex(), e.Err)
}

func (e *OracleError) Is(target error) bool { return target == ErrOracleFailure }

func (e *OracleError) Unwrap() error { return e.Err }
