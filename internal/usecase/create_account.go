package usecase

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/trebuchet-org/nftwallet/internal/contracts/registry"
	"github.com/trebuchet-org/nftwallet/internal/domain"
	"github.com/trebuchet-org/nftwallet/internal/evm"
)

// CreateAccountParams contains parameters for creating an account
type CreateAccountParams struct {
	From           common.Address
	Registry       common.Address
	Implementation common.Address
	Binding        domain.TokenBinding
}

// CreateAccountResult contains the account and whether this call deployed it
type CreateAccountResult struct {
	Account *domain.AccountRecord
	Created bool
	Receipt *evm.Receipt
}

// CreateAccount deploys (or returns) the account for a token binding
type CreateAccount struct {
	chain   Chain
	indexer *IndexAccounts
	metrics MetricsRecorder
}

// NewCreateAccount creates a new CreateAccount use case
func NewCreateAccount(chain Chain, indexer *IndexAccounts, metrics MetricsRecorder) *CreateAccount {
	return &CreateAccount{
		chain:   chain,
		indexer: indexer,
		metrics: metrics,
	}
}

// Run executes the create account use case
func (uc *CreateAccount) Run(ctx context.Context, params CreateAccountParams) (*CreateAccountResult, error) {
	receipt, err := uc.chain.Transact(ctx, params.From, params.Registry, nil,
		registry.PackCreateAccount(params.Implementation, params.Binding))
	uc.metrics.RecordOperation("create_account", err)
	if err != nil {
		return nil, fmt.Errorf("failed to create account for %s: %w", params.Binding, err)
	}

	address, err := registry.UnpackAddress("createAccount", receipt.ReturnData)
	if err != nil {
		return nil, err
	}

	indexed, err := uc.indexer.Run(ctx, IndexAccountsParams{Logs: receipt.Logs, BlockNumber: receipt.BlockNumber})
	if err != nil {
		return nil, err
	}

	result := &CreateAccountResult{Receipt: receipt}
	for _, rec := range indexed.Indexed {
		if rec.Address == address {
			result.Account = rec
			result.Created = true
		}
	}
	if result.Account == nil {
		// already deployed: nothing was emitted, fall back to the index or a fresh derivation
		rec, err := uc.indexer.store.GetAccount(ctx, address)
		if err != nil {
			rec = &domain.AccountRecord{
				Address:        address,
				Registry:       params.Registry,
				Implementation: params.Implementation,
				Binding:        params.Binding.Normalized(),
				Deployed:       true,
			}
		}
		result.Account = rec
	}
	return result, nil
}
