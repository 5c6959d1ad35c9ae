package usecase_test

import (
	"context"
	"errors"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/trebuchet-org/nftwallet/internal/derive"
	"github.com/trebuchet-org/nftwallet/internal/domain"
	"github.com/trebuchet-org/nftwallet/internal/domain/config"
	"github.com/trebuchet-org/nftwallet/internal/usecase"
)

var (
	testRegistry = common.HexToAddress("0x1111111111111111111111111111111111111111")
	testImpl     = common.HexToAddress("0x2222222222222222222222222222222222222222")
	testNFT      = common.HexToAddress("0x3333333333333333333333333333333333333333")
)

func testConfig() *config.RuntimeConfig {
	return &config.RuntimeConfig{
		Network: &config.Network{Name: "sepolia", ChainID: 11155111, RPCURL: "http://localhost:8545"},
		Contracts: config.Contracts{
			Registry:       testRegistry,
			Implementation: testImpl,
			TokenContract:  testNFT,
		},
	}
}

func TestPredictAccount(t *testing.T) {
	ctx := context.Background()

	t.Run("uses configured contracts", func(t *testing.T) {
		uc := usecase.NewPredictAccount(testConfig())
		result, err := uc.Run(ctx, usecase.PredictAccountParams{TokenIDs: []*big.Int{big.NewInt(0), big.NewInt(1)}})
		require.NoError(t, err)
		require.Len(t, result.Predictions, 2)

		want := derive.New(testRegistry).Account(testImpl, domain.NewTokenBinding(11155111, testNFT, big.NewInt(0)))
		assert.Equal(t, want.Address, result.Predictions[0].Address)
		assert.Equal(t, want.Salt, result.Predictions[0].Salt)
		assert.NotEqual(t, result.Predictions[0].Address, result.Predictions[1].Address)
	})

	t.Run("params override config", func(t *testing.T) {
		uc := usecase.NewPredictAccount(testConfig())
		result, err := uc.Run(ctx, usecase.PredictAccountParams{ChainID: 31337, TokenIDs: []*big.Int{big.NewInt(0)}})
		require.NoError(t, err)

		mainnet, err := uc.Run(ctx, usecase.PredictAccountParams{TokenIDs: []*big.Int{big.NewInt(0)}})
		require.NoError(t, err)
		assert.NotEqual(t, mainnet.Predictions[0].Address, result.Predictions[0].Address)
	})

	t.Run("deterministic", func(t *testing.T) {
		uc := usecase.NewPredictAccount(testConfig())
		params := usecase.PredictAccountParams{TokenIDs: []*big.Int{big.NewInt(42)}}
		a, err := uc.Run(ctx, params)
		require.NoError(t, err)
		b, err := uc.Run(ctx, params)
		require.NoError(t, err)
		assert.Equal(t, a.Predictions, b.Predictions)
	})

	t.Run("validation", func(t *testing.T) {
		tests := []struct {
			name    string
			cfg     *config.RuntimeConfig
			params  usecase.PredictAccountParams
			wantErr error
			wantMsg string
		}{
			{
				name:    "no registry",
				cfg:     &config.RuntimeConfig{},
				params:  usecase.PredictAccountParams{TokenIDs: []*big.Int{big.NewInt(0)}},
				wantErr: domain.ErrInvalidAddress,
			},
			{
				name: "no chain",
				cfg:  &config.RuntimeConfig{Contracts: testConfig().Contracts},
				params: usecase.PredictAccountParams{
					TokenIDs: []*big.Int{big.NewInt(0)},
				},
				wantErr: domain.ErrInvalidChainID,
			},
			{
				name:    "no token ids",
				cfg:     testConfig(),
				wantMsg: "no token ids",
			},
			{
				name:    "negative token id",
				cfg:     testConfig(),
				params:  usecase.PredictAccountParams{TokenIDs: []*big.Int{big.NewInt(-1)}},
				wantMsg: "invalid token id",
			},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				_, err := usecase.NewPredictAccount(tt.cfg).Run(ctx, tt.params)
				require.Error(t, err)
				if tt.wantErr != nil {
					assert.True(t, errors.Is(err, tt.wantErr), "got %v", err)
				}
				if tt.wantMsg != "" {
					assert.Contains(t, err.Error(), tt.wantMsg)
				}
			})
		}
	})
}
