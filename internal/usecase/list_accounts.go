package usecase

import (
	"context"
	"sort"

	"github.com/ethereum/go-ethereum/common"
	"github.com/samber/lo"
	"github.com/trebuchet-org/nftwallet/internal/domain"
	"github.com/trebuchet-org/nftwallet/internal/domain/config"
)

// ListAccountsParams contains parameters for listing accounts
type ListAccountsParams struct {
	// Filter parameters (chainID comes from RuntimeConfig)
	TokenContract  common.Address
	Implementation common.Address
	DeployedOnly   bool
}

// AccountSummary counts indexed accounts
type AccountSummary struct {
	Total           int
	Deployed        int
	ByChain         map[uint64]int
	ByTokenContract map[common.Address]int
}

// AccountListResult contains the filtered accounts and their summary
type AccountListResult struct {
	Accounts []*domain.AccountRecord
	Summary  AccountSummary
}

// ListAccounts is the use case for listing indexed accounts
type ListAccounts struct {
	config *config.RuntimeConfig
	store  AccountStore
	sink   ProgressSink
}

// NewListAccounts creates a new ListAccounts use case
func NewListAccounts(cfg *config.RuntimeConfig, store AccountStore, sink ProgressSink) *ListAccounts {
	return &ListAccounts{
		config: cfg,
		store:  store,
		sink:   sink,
	}
}

// Run executes the list accounts use case
func (uc *ListAccounts) Run(ctx context.Context, params ListAccountsParams) (*AccountListResult, error) {
	uc.sink.OnProgress(ctx, ProgressEvent{
		Stage:   "loading",
		Message: "Loading accounts from index",
		Spinner: true,
	})

	filter := domain.AccountFilter{
		TokenContract:  params.TokenContract,
		Implementation: params.Implementation,
		DeployedOnly:   params.DeployedOnly,
	}
	if uc.config != nil && uc.config.Network != nil {
		filter.ChainID = uc.config.Network.ChainID
	}

	accounts, err := uc.store.ListAccounts(ctx, filter)
	if err != nil {
		return nil, err
	}

	sortAccounts(accounts)
	summary := summarizeAccounts(accounts)

	uc.sink.OnProgress(ctx, ProgressEvent{
		Stage:   "complete",
		Current: len(accounts),
		Total:   len(accounts),
		Message: "Accounts loaded",
	})

	return &AccountListResult{
		Accounts: accounts,
		Summary:  summary,
	}, nil
}

// sortAccounts sorts by chain, token contract, then token id
func sortAccounts(accounts []*domain.AccountRecord) {
	sort.Slice(accounts, func(i, j int) bool {
		a, b := accounts[i].Binding.Normalized(), accounts[j].Binding.Normalized()
		if c := a.ChainID.Cmp(b.ChainID); c != 0 {
			return c < 0
		}
		if a.TokenContract != b.TokenContract {
			return a.TokenContract.Cmp(b.TokenContract) < 0
		}
		if c := a.TokenID.Cmp(b.TokenID); c != 0 {
			return c < 0
		}
		return accounts[i].Implementation.Cmp(accounts[j].Implementation) < 0
	})
}

func summarizeAccounts(accounts []*domain.AccountRecord) AccountSummary {
	return AccountSummary{
		Total:    len(accounts),
		Deployed: lo.CountBy(accounts, func(r *domain.AccountRecord) bool { return r.Deployed }),
		ByChain: lo.CountValuesBy(accounts, func(r *domain.AccountRecord) uint64 {
			return r.Binding.Normalized().ChainID.Uint64()
		}),
		ByTokenContract: lo.CountValuesBy(accounts, func(r *domain.AccountRecord) common.Address {
			return r.Binding.TokenContract
		}),
	}
}
