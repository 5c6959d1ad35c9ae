package usecase

import (
	"context"

	"github.com/trebuchet-org/nftwallet/internal/domain/config"
)

// ShowConfigResult contains the resolved configuration
type ShowConfigResult struct {
	Config *config.RuntimeConfig
	// Source is the project file the values came from, or "defaults"
	Source string
}

// ShowConfig is a use case for showing configuration
type ShowConfig struct {
	config *config.RuntimeConfig
}

// NewShowConfig creates a new ShowConfig use case
func NewShowConfig(cfg *config.RuntimeConfig) *ShowConfig {
	return &ShowConfig{config: cfg}
}

// Run executes the show config use case
func (uc *ShowConfig) Run(ctx context.Context) (*ShowConfigResult, error) {
	source := uc.config.ConfigSource
	if source == "" {
		source = "defaults"
	}
	return &ShowConfigResult{
		Config: uc.config,
		Source: source,
	}, nil
}
