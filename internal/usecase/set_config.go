package usecase

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/samber/lo"
	"github.com/trebuchet-org/nftwallet/internal/domain/config"
)

// SetConfigParams contains parameters for setting configuration
type SetConfigParams struct {
	Key   string
	Value string
}

// SetConfigResult contains the result of setting configuration
type SetConfigResult struct {
	UpdatedConfig *config.LocalConfig
	ConfigPath    string
	Key           config.ConfigKey
	Value         string
}

// SetConfig is a use case for setting local configuration values
type SetConfig struct {
	config *config.RuntimeConfig
	store  LocalConfigStore
}

// NewSetConfig creates a new SetConfig use case
func NewSetConfig(cfg *config.RuntimeConfig, store LocalConfigStore) *SetConfig {
	return &SetConfig{config: cfg, store: store}
}

// Run executes the set config use case
func (uc *SetConfig) Run(ctx context.Context, params SetConfigParams) (*SetConfigResult, error) {
	key, err := parseConfigKey(params.Key)
	if err != nil {
		return nil, err
	}
	if params.Value == "" {
		return nil, fmt.Errorf("value for %s must not be empty", key)
	}
	if err := uc.validate(key, params.Value); err != nil {
		return nil, err
	}

	local, err := uc.store.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	local.Set(key, params.Value)

	if err := uc.store.Save(ctx, local); err != nil {
		return nil, fmt.Errorf("failed to save config: %w", err)
	}

	return &SetConfigResult{
		UpdatedConfig: local,
		ConfigPath:    uc.store.GetPath(),
		Key:           key,
		Value:         params.Value,
	}, nil
}

// validate rejects values the config provider would refuse on the next run
func (uc *SetConfig) validate(key config.ConfigKey, value string) error {
	switch key {
	case config.ConfigKeyNetwork:
		if !slices.Contains(uc.config.Networks, value) {
			if len(uc.config.Networks) == 0 {
				return fmt.Errorf("unknown network %q: no networks defined in nftwallet.toml", value)
			}
			return fmt.Errorf("unknown network %q\nAvailable networks: %s", value, strings.Join(uc.config.Networks, ", "))
		}
	case config.ConfigKeyScenario:
		path := value
		if !filepath.IsAbs(path) {
			path = filepath.Join(uc.config.ProjectRoot, path)
		}
		if _, err := os.Stat(path); err != nil {
			return fmt.Errorf("scenario file: %w", err)
		}
	}
	return nil
}

func parseConfigKey(raw string) (config.ConfigKey, error) {
	key := strings.ToLower(raw)
	if !config.IsValidConfigKey(key) {
		validKeys := lo.Map(config.ValidConfigKeys(), func(k config.ConfigKey, _ int) string { return string(k) })
		return "", fmt.Errorf("unknown config key: %s\nAvailable keys: %s", raw, strings.Join(validKeys, ", "))
	}
	return config.ConfigKey(key), nil
}
