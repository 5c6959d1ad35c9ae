package usecase

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/trebuchet-org/nftwallet/internal/derive"
	"github.com/trebuchet-org/nftwallet/internal/domain"
	"github.com/trebuchet-org/nftwallet/internal/domain/config"
)

// PredictAccountParams contains parameters for predicting account addresses.
// Zero addresses and chain id fall back to the runtime configuration.
type PredictAccountParams struct {
	Registry       common.Address
	Implementation common.Address
	ChainID        uint64
	TokenContract  common.Address
	TokenIDs       []*big.Int
}

// PredictAccountResult contains one derivation per requested token id
type PredictAccountResult struct {
	Predictions []derive.Derivation
}

// PredictAccount derives account addresses without touching any chain
type PredictAccount struct {
	config *config.RuntimeConfig
}

// NewPredictAccount creates a new PredictAccount use case
func NewPredictAccount(cfg *config.RuntimeConfig) *PredictAccount {
	return &PredictAccount{config: cfg}
}

// Run executes the predict account use case
func (uc *PredictAccount) Run(ctx context.Context, params PredictAccountParams) (*PredictAccountResult, error) {
	params = uc.withDefaults(params)

	if params.Registry == (common.Address{}) {
		return nil, fmt.Errorf("registry: %w", domain.ErrInvalidAddress)
	}
	if params.Implementation == (common.Address{}) {
		return nil, fmt.Errorf("implementation: %w", domain.ErrInvalidAddress)
	}
	if params.TokenContract == (common.Address{}) {
		return nil, fmt.Errorf("token contract: %w", domain.ErrInvalidAddress)
	}
	if params.ChainID == 0 {
		return nil, domain.ErrInvalidChainID
	}
	if len(params.TokenIDs) == 0 {
		return nil, fmt.Errorf("no token ids given")
	}

	deriver := derive.New(params.Registry)
	predictions := make([]derive.Derivation, 0, len(params.TokenIDs))
	for _, id := range params.TokenIDs {
		if id == nil || id.Sign() < 0 {
			return nil, fmt.Errorf("invalid token id %v", id)
		}
		binding := domain.NewTokenBinding(params.ChainID, params.TokenContract, id)
		predictions = append(predictions, deriver.Account(params.Implementation, binding))
	}

	return &PredictAccountResult{Predictions: predictions}, nil
}

func (uc *PredictAccount) withDefaults(params PredictAccountParams) PredictAccountParams {
	if uc.config == nil {
		return params
	}
	if params.Registry == (common.Address{}) {
		params.Registry = uc.config.Contracts.Registry
	}
	if params.Implementation == (common.Address{}) {
		params.Implementation = uc.config.Contracts.Implementation
	}
	if params.TokenContract == (common.Address{}) {
		params.TokenContract = uc.config.Contracts.TokenContract
	}
	if params.ChainID == 0 && uc.config.Network != nil {
		params.ChainID = uc.config.Network.ChainID
	}
	return params
}
