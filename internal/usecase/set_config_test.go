package usecase_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/trebuchet-org/nftwallet/internal/domain/config"
	"github.com/trebuchet-org/nftwallet/internal/usecase"
)

const localConfigPath = "/project/.nftwallet/config.local.json"

func TestSetConfig(t *testing.T) {
	ctx := context.Background()
	cfg := &config.RuntimeConfig{
		ProjectRoot: t.TempDir(),
		Networks:    []string{"mainnet", "sepolia"},
	}
	require.NoError(t, os.WriteFile(filepath.Join(cfg.ProjectRoot, "smoke.yaml"), []byte("name: smoke\n"), 0644))

	t.Run("sets known network", func(t *testing.T) {
		store := new(MockLocalConfigStore)
		store.On("Load", ctx).Return(&config.LocalConfig{Scenario: "smoke.yaml"}, nil)
		store.On("Save", ctx, &config.LocalConfig{Network: "sepolia", Scenario: "smoke.yaml"}).Return(nil)
		store.On("GetPath").Return(localConfigPath)

		result, err := usecase.NewSetConfig(cfg, store).Run(ctx, usecase.SetConfigParams{Key: "Network", Value: "sepolia"})
		require.NoError(t, err)
		assert.Equal(t, config.ConfigKeyNetwork, result.Key)
		assert.Equal(t, "sepolia", result.UpdatedConfig.Network)
		assert.Equal(t, localConfigPath, result.ConfigPath)
		store.AssertExpectations(t)
	})

	t.Run("sets existing scenario file", func(t *testing.T) {
		store := new(MockLocalConfigStore)
		store.On("Load", ctx).Return(&config.LocalConfig{}, nil)
		store.On("Save", ctx, mock.Anything).Return(nil)
		store.On("GetPath").Return(localConfigPath)

		result, err := usecase.NewSetConfig(cfg, store).Run(ctx, usecase.SetConfigParams{Key: "scenario", Value: "smoke.yaml"})
		require.NoError(t, err)
		assert.Equal(t, "smoke.yaml", result.UpdatedConfig.Scenario)
		store.AssertExpectations(t)
	})

	tests := []struct {
		name    string
		params  usecase.SetConfigParams
		wantErr string
	}{
		{name: "unknown key", params: usecase.SetConfigParams{Key: "namespace", Value: "x"}, wantErr: "unknown config key: namespace"},
		{name: "empty value", params: usecase.SetConfigParams{Key: "network", Value: ""}, wantErr: "must not be empty"},
		{name: "unknown network", params: usecase.SetConfigParams{Key: "network", Value: "goerli"}, wantErr: "Available networks: mainnet, sepolia"},
		{name: "missing scenario", params: usecase.SetConfigParams{Key: "scenario", Value: "missing.yaml"}, wantErr: "scenario file"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := new(MockLocalConfigStore)
			_, err := usecase.NewSetConfig(cfg, store).Run(ctx, tt.params)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
			store.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
		})
	}

	t.Run("no project networks", func(t *testing.T) {
		_, err := usecase.NewSetConfig(&config.RuntimeConfig{}, new(MockLocalConfigStore)).
			Run(ctx, usecase.SetConfigParams{Key: "network", Value: "sepolia"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "no networks defined")
	})

	t.Run("save failure", func(t *testing.T) {
		store := new(MockLocalConfigStore)
		store.On("Load", ctx).Return(&config.LocalConfig{}, nil)
		store.On("Save", ctx, mock.Anything).Return(errors.New("disk full"))

		_, err := usecase.NewSetConfig(cfg, store).Run(ctx, usecase.SetConfigParams{Key: "network", Value: "mainnet"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to save config: disk full")
	})
}

func TestRemoveConfig(t *testing.T) {
	ctx := context.Background()

	t.Run("removes value", func(t *testing.T) {
		store := new(MockLocalConfigStore)
		store.On("Exists").Return(true)
		store.On("Load", ctx).Return(&config.LocalConfig{Network: "sepolia", Scenario: "smoke.yaml"}, nil)
		store.On("Save", ctx, &config.LocalConfig{Scenario: "smoke.yaml"}).Return(nil)
		store.On("GetPath").Return(localConfigPath)

		result, err := usecase.NewRemoveConfig(store).Run(ctx, usecase.RemoveConfigParams{Key: "network"})
		require.NoError(t, err)
		assert.Equal(t, "sepolia", result.RemovedValue)
		assert.Empty(t, result.UpdatedConfig.Network)
		store.AssertExpectations(t)
	})

	t.Run("no config file", func(t *testing.T) {
		store := new(MockLocalConfigStore)
		store.On("Exists").Return(false)
		store.On("GetPath").Return(localConfigPath)

		_, err := usecase.NewRemoveConfig(store).Run(ctx, usecase.RemoveConfigParams{Key: "network"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "no config file found at "+localConfigPath)
	})

	t.Run("unknown key", func(t *testing.T) {
		store := new(MockLocalConfigStore)
		store.On("Exists").Return(true)

		_, err := usecase.NewRemoveConfig(store).Run(ctx, usecase.RemoveConfigParams{Key: "ns"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "Available keys: network, scenario")
	})
}
