package usecase

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/trebuchet-org/nftwallet/internal/contracts/account"
	"github.com/trebuchet-org/nftwallet/internal/contracts/proxy"
	"github.com/trebuchet-org/nftwallet/internal/derive"
	"github.com/trebuchet-org/nftwallet/internal/domain"
)

// InspectAccountResult is the live view of one account
type InspectAccountResult struct {
	Address common.Address
	// Deployed is false when no code lives at Address
	Deployed bool
	// CloneTarget is the implementation baked into the clone code
	CloneTarget common.Address
	// Implementation is the logic the proxy currently forwards to
	Implementation common.Address
	Binding        domain.TokenBinding
	Owner          common.Address
	// OwnerErr is set when the token contract could not answer ownerOf
	OwnerErr error
	Nonce    *big.Int
	Balance  *big.Int
}

// InspectAccount reads an account's binding and live owner
type InspectAccount struct {
	chain Chain
}

// NewInspectAccount creates a new InspectAccount use case
func NewInspectAccount(chain Chain) *InspectAccount {
	return &InspectAccount{chain: chain}
}

// Run executes the inspect account use case
func (uc *InspectAccount) Run(ctx context.Context, address common.Address) (*InspectAccountResult, error) {
	result := &InspectAccountResult{Address: address}

	code, err := uc.chain.CodeAt(ctx, address, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to get code at %s: %w", address.Hex(), err)
	}
	if len(code) == 0 {
		return result, nil
	}
	result.Deployed = true

	impl, binding, err := derive.ParseClone(code)
	if err != nil {
		return nil, fmt.Errorf("%s is not a token-bound account: %w", address.Hex(), err)
	}
	result.CloneTarget = impl
	result.Binding = binding
	result.Implementation = impl

	if ret, err := uc.chain.Call(ctx, common.Address{}, address, proxy.PackImplementation()); err == nil {
		if current, err := proxy.UnpackImplementation(ret); err == nil {
			result.Implementation = current
		}
	}

	ret, err := uc.chain.Call(ctx, common.Address{}, address, account.Pack("owner"))
	if err == nil {
		result.Owner, err = account.UnpackAddress("owner", ret)
	}
	result.OwnerErr = err

	ret, err = uc.chain.Call(ctx, common.Address{}, address, account.Pack("nonce"))
	if err != nil {
		return nil, fmt.Errorf("failed to read nonce of %s: %w", address.Hex(), err)
	}
	if result.Nonce, err = account.UnpackNonce(ret); err != nil {
		return nil, err
	}

	result.Balance = uc.chain.BalanceAt(address).ToBig()
	return result, nil
}

// Record converts the inspection into an index record carrying runtime fields.
func (r *InspectAccountResult) Record() *domain.AccountRecord {
	return &domain.AccountRecord{
		Address:        r.Address,
		Implementation: r.CloneTarget,
		Binding:        r.Binding,
		Deployed:       r.Deployed,
		Owner:          r.Owner,
		Nonce:          r.Nonce,
		Balance:        r.Balance,
	}
}
