package usecase_test

import (
	"context"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/stretchr/testify/mock"
	"github.com/trebuchet-org/nftwallet/internal/domain"
	"github.com/trebuchet-org/nftwallet/internal/domain/config"
	"github.com/trebuchet-org/nftwallet/internal/usecase"
)

// MockAccountStore is a mock implementation of AccountStore
type MockAccountStore struct {
	mock.Mock
}

func (m *MockAccountStore) GetAccount(ctx context.Context, address common.Address) (*domain.AccountRecord, error) {
	args := m.Called(ctx, address)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.AccountRecord), args.Error(1)
}

func (m *MockAccountStore) ListAccounts(ctx context.Context, filter domain.AccountFilter) ([]*domain.AccountRecord, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.AccountRecord), args.Error(1)
}

func (m *MockAccountStore) SaveAccount(ctx context.Context, record *domain.AccountRecord) error {
	args := m.Called(ctx, record)
	return args.Error(0)
}

// MockEventDecoder is a mock implementation of EventDecoder
type MockEventDecoder struct {
	mock.Mock
}

func (m *MockEventDecoder) Decode(log *types.Log) (domain.ParsedEvent, error) {
	args := m.Called(log)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(domain.ParsedEvent), args.Error(1)
}

// MockBlockchainChecker is a mock implementation of BlockchainChecker
type MockBlockchainChecker struct {
	mock.Mock
}

func (m *MockBlockchainChecker) Connect(ctx context.Context, rpcURL string, chainID uint64) error {
	args := m.Called(ctx, rpcURL, chainID)
	return args.Error(0)
}

func (m *MockBlockchainChecker) CodeAt(ctx context.Context, account common.Address, blockNumber *big.Int) ([]byte, error) {
	args := m.Called(ctx, account, blockNumber)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]byte), args.Error(1)
}

func (m *MockBlockchainChecker) CallContract(ctx context.Context, to common.Address, data []byte) ([]byte, error) {
	args := m.Called(ctx, to, data)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]byte), args.Error(1)
}

// MockProgressSink is a mock implementation of ProgressSink
type MockProgressSink struct {
	events []usecase.ProgressEvent
	errors []string
}

func (m *MockProgressSink) OnProgress(ctx context.Context, event usecase.ProgressEvent) {
	m.events = append(m.events, event)
}

func (m *MockProgressSink) Info(message string) {}

func (m *MockProgressSink) Error(message string) {
	m.errors = append(m.errors, message)
}

func (m *MockProgressSink) stages() []string {
	stages := make([]string, len(m.events))
	for i, e := range m.events {
		stages[i] = e.Stage
	}
	return stages
}

// recordingMetrics counts observations
type recordingMetrics struct {
	mu         sync.Mutex
	operations map[string][]error
	created    map[uint64]int
}

func newRecordingMetrics() *recordingMetrics {
	return &recordingMetrics{operations: map[string][]error{}, created: map[uint64]int{}}
}

func (r *recordingMetrics) RecordOperation(operation string, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.operations[operation] = append(r.operations[operation], err)
}

func (r *recordingMetrics) RecordAccountCreated(chainID uint64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.created[chainID]++
}

// MockLocalConfigStore is a mock implementation of LocalConfigStore
type MockLocalConfigStore struct {
	mock.Mock
}

func (m *MockLocalConfigStore) Exists() bool {
	return m.Called().Bool(0)
}

func (m *MockLocalConfigStore) Load(ctx context.Context) (*config.LocalConfig, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*config.LocalConfig), args.Error(1)
}

func (m *MockLocalConfigStore) Save(ctx context.Context, cfg *config.LocalConfig) error {
	return m.Called(ctx, cfg).Error(0)
}

func (m *MockLocalConfigStore) GetPath() string {
	return m.Called().String(0)
}

var _ usecase.LocalConfigStore = (*MockLocalConfigStore)(nil)
