package usecase

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/trebuchet-org/nftwallet/internal/contracts/account"
	"github.com/trebuchet-org/nftwallet/internal/derive"
	"github.com/trebuchet-org/nftwallet/internal/domain"
	"github.com/trebuchet-org/nftwallet/internal/domain/config"
	"golang.org/x/sync/errgroup"
)

// maxConcurrentChecks bounds in-flight RPC probes.
const maxConcurrentChecks = 8

// CheckAccountsParams selects the token ids to probe on the configured network
type CheckAccountsParams struct {
	TokenIDs []*big.Int
}

// AccountStatus is the live state of one predicted account
type AccountStatus struct {
	Derivation derive.Derivation
	Deployed   bool
	// BindingMatches is true when token() reports the predicted binding
	BindingMatches bool
	Owner          common.Address
	Error          string
}

// CheckAccountsResult lists statuses in token id order
type CheckAccountsResult struct {
	Network  *config.Network
	Statuses []*AccountStatus
	Deployed int
}

// CheckAccounts compares predicted accounts with a live network
type CheckAccounts struct {
	config  *config.RuntimeConfig
	checker BlockchainChecker
	sink    ProgressSink
}

// NewCheckAccounts creates a new CheckAccounts use case
func NewCheckAccounts(cfg *config.RuntimeConfig, checker BlockchainChecker, sink ProgressSink) *CheckAccounts {
	return &CheckAccounts{
		config:  cfg,
		checker: checker,
		sink:    sink,
	}
}

// Run executes the check accounts use case
func (uc *CheckAccounts) Run(ctx context.Context, params CheckAccountsParams) (*CheckAccountsResult, error) {
	if uc.config.Network == nil || uc.config.Network.RPCURL == "" {
		return nil, fmt.Errorf("no network with an RPC URL configured")
	}

	predicted, err := NewPredictAccount(uc.config).Run(ctx, PredictAccountParams{TokenIDs: params.TokenIDs})
	if err != nil {
		return nil, err
	}

	uc.sink.OnProgress(ctx, ProgressEvent{
		Stage:   "connecting",
		Message: fmt.Sprintf("Connecting to %s", uc.config.Network.Name),
		Spinner: true,
	})
	if err := uc.checker.Connect(ctx, uc.config.Network.RPCURL, uc.config.Network.ChainID); err != nil {
		return nil, err
	}

	statuses := make([]*AccountStatus, len(predicted.Predictions))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrentChecks)
	for i, d := range predicted.Predictions {
		g.Go(func() error {
			status, err := uc.probe(gctx, d)
			if err != nil {
				return err
			}
			statuses[i] = status
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	result := &CheckAccountsResult{Network: uc.config.Network, Statuses: statuses}
	for _, s := range statuses {
		if s.Deployed {
			result.Deployed++
		}
	}

	uc.sink.OnProgress(ctx, ProgressEvent{
		Stage:   "complete",
		Current: result.Deployed,
		Total:   len(statuses),
		Message: "Accounts checked",
	})
	return result, nil
}

// probe fails only on transport errors; contract-level failures are reported
// in the status.
func (uc *CheckAccounts) probe(ctx context.Context, d derive.Derivation) (*AccountStatus, error) {
	status := &AccountStatus{Derivation: d}

	deployed, err := derive.IsDeployed(ctx, uc.checker, d.Address)
	if err != nil {
		return nil, err
	}
	status.Deployed = deployed
	if !deployed {
		return status, nil
	}

	ret, err := uc.checker.CallContract(ctx, d.Address, account.Pack("token"))
	if err != nil {
		status.Error = fmt.Sprintf("token(): %v", err)
		return status, nil
	}
	binding, err := account.UnpackToken(ret)
	if err != nil {
		status.Error = err.Error()
		return status, nil
	}
	status.BindingMatches = binding.Equal(d.Binding)

	ret, err = uc.checker.CallContract(ctx, d.Address, account.Pack("owner"))
	if err == nil {
		status.Owner, err = account.UnpackAddress("owner", ret)
	}
	if err != nil {
		status.Error = (&domain.OracleError{TokenContract: d.Binding.TokenContract, TokenID: d.Binding.TokenID, Err: err}).Error()
	}
	return status, nil
}
