package usecase

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/holiman/uint256"
	"github.com/trebuchet-org/nftwallet/internal/domain"
	"github.com/trebuchet-org/nftwallet/internal/domain/config"
	"github.com/trebuchet-org/nftwallet/internal/evm"
)

// Chain executes transactions against the account system
type Chain interface {
	ChainID() *big.Int
	Transact(ctx context.Context, from, to common.Address, value *uint256.Int, data []byte) (*evm.Receipt, error)
	Call(ctx context.Context, from, to common.Address, data []byte) ([]byte, error)
	CodeAt(ctx context.Context, account common.Address, blockNumber *big.Int) ([]byte, error)
	BalanceAt(account common.Address) *uint256.Int
}

// DevChainManager boots local chains with the contract suite deployed
type DevChainManager interface {
	Start(ctx context.Context, opts domain.DevChainOptions) (Chain, *domain.DevSuite, error)
}

// AccountStore is the discovery index of created accounts. It is a cache
// built from AccountCreated events and never decides authorization.
type AccountStore interface {
	GetAccount(ctx context.Context, address common.Address) (*domain.AccountRecord, error)
	ListAccounts(ctx context.Context, filter domain.AccountFilter) ([]*domain.AccountRecord, error)
	SaveAccount(ctx context.Context, record *domain.AccountRecord) error
}

// EventDecoder turns receipt logs into domain events
type EventDecoder interface {
	Decode(log *types.Log) (domain.ParsedEvent, error)
}

// BlockchainChecker reads live chain state over RPC
type BlockchainChecker interface {
	Connect(ctx context.Context, rpcURL string, chainID uint64) error
	CodeAt(ctx context.Context, account common.Address, blockNumber *big.Int) ([]byte, error)
	CallContract(ctx context.Context, to common.Address, data []byte) ([]byte, error)
}

// ScenarioLoader provides scenarios for simulation
type ScenarioLoader interface {
	Load(path string) (*domain.Scenario, error)
	Default() *domain.Scenario
}

// MetricsRecorder counts operations for observability
type MetricsRecorder interface {
	RecordOperation(operation string, err error)
	RecordAccountCreated(chainID uint64)
}

// NopMetrics discards every observation
type NopMetrics struct{}

func (NopMetrics) RecordOperation(string, error) {}
func (NopMetrics) RecordAccountCreated(uint64)   {}

// Progress tracking interfaces

// ProgressEvent represents a progress update
type ProgressEvent struct {
	Stage    string
	Current  int
	Total    int
	Message  string
	Spinner  bool
	Metadata interface{}
}

// ProgressSink receives progress events
type ProgressSink interface {
	OnProgress(ctx context.Context, event ProgressEvent)
	Info(message string)
	Error(message string)
}

// NopProgress is a no-op implementation of ProgressSink
type NopProgress struct{}

func (NopProgress) OnProgress(context.Context, ProgressEvent) {}
func (NopProgress) Info(string)                               {}
func (NopProgress) Error(string)                              {}

// LocalConfigStore persists .nftwallet/config.local.json
type LocalConfigStore interface {
	Exists() bool
	Load(ctx context.Context) (*config.LocalConfig, error)
	Save(ctx context.Context, cfg *config.LocalConfig) error
	GetPath() string
}
