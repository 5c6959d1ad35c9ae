//go:build wireinject
// +build wireinject

package app

import (
	"github.com/google/wire"
	"github.com/spf13/viper"
	"github.com/trebuchet-org/nftwallet/internal/adapters"
	"github.com/trebuchet-org/nftwallet/internal/config"
	"github.com/trebuchet-org/nftwallet/internal/logging"
	"github.com/trebuchet-org/nftwallet/internal/usecase"
)

// InitApp creates a fully wired App instance
func InitApp(v *viper.Viper, sink usecase.ProgressSink) (*App, error) {
	wire.Build(
		// Configuration
		config.Provider,
		logging.LoggingSet,

		// Adapters
		adapters.AllAdapters,

		// Use cases
		usecase.NewPredictAccount,
		usecase.NewListAccounts,
		usecase.NewCheckAccounts,
		usecase.NewRunScenario,
		usecase.NewShowConfig,
		usecase.NewSetConfig,
		usecase.NewRemoveConfig,

		// App
		NewApp,
	)
	return nil, nil
}
