package app

import (
	"log/slog"

	"github.com/trebuchet-org/nftwallet/internal/adapters/metrics"
	"github.com/trebuchet-org/nftwallet/internal/domain/config"
	"github.com/trebuchet-org/nftwallet/internal/usecase"
)

// App is the main application container that holds all use cases
type App struct {
	// Configuration
	Config *config.RuntimeConfig
	Log    *slog.Logger

	// Use cases
	PredictAccount *usecase.PredictAccount
	ListAccounts   *usecase.ListAccounts
	CheckAccounts  *usecase.CheckAccounts
	RunScenario    *usecase.RunScenario
	ShowConfig     *usecase.ShowConfig
	SetConfig      *usecase.SetConfig
	RemoveConfig   *usecase.RemoveConfig

	// Metrics collected by the use cases, exported on request
	Metrics *metrics.Recorder
}

// NewApp creates a new application instance with all use cases
func NewApp(
	cfg *config.RuntimeConfig,
	log *slog.Logger,
	predictAccount *usecase.PredictAccount,
	listAccounts *usecase.ListAccounts,
	checkAccounts *usecase.CheckAccounts,
	runScenario *usecase.RunScenario,
	showConfig *usecase.ShowConfig,
	setConfig *usecase.SetConfig,
	removeConfig *usecase.RemoveConfig,
	recorder *metrics.Recorder,
) (*App, error) {
	return &App{
		Config:         cfg,
		Log:            log,
		PredictAccount: predictAccount,
		ListAccounts:   listAccounts,
		CheckAccounts:  checkAccounts,
		RunScenario:    runScenario,
		ShowConfig:     showConfig,
		SetConfig:      setConfig,
		RemoveConfig:   removeConfig,
		Metrics:        recorder,
	}, nil
}
