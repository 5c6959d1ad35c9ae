package fs

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/trebuchet-org/nftwallet/internal/domain"
	"github.com/trebuchet-org/nftwallet/internal/domain/config"
	"github.com/trebuchet-org/nftwallet/internal/usecase"
)

const accountsFileVersion = 1

type accountsFile struct {
	Version  int                                      `json:"version"`
	Accounts map[common.Address]*domain.AccountRecord `json:"accounts"`
}

// AccountStoreAdapter implements AccountStore on a JSON file
type AccountStoreAdapter struct {
	mu   sync.RWMutex
	path string
}

// NewAccountStoreAdapter creates a store at <DataDir>/accounts.json
func NewAccountStoreAdapter(cfg *config.RuntimeConfig) *AccountStoreAdapter {
	return &AccountStoreAdapter{
		path: filepath.Join(cfg.DataDir, "accounts.json"),
	}
}

// Path returns the index file location
func (s *AccountStoreAdapter) Path() string {
	return s.path
}

// GetAccount retrieves an account by address
func (s *AccountStoreAdapter) GetAccount(_ context.Context, address common.Address) (*domain.AccountRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	file, err := s.load()
	if err != nil {
		return nil, err
	}
	rec, ok := file.Accounts[address]
	if !ok {
		return nil, fmt.Errorf("account %s: %w", address.Hex(), domain.ErrNotFound)
	}
	return rec, nil
}

// ListAccounts retrieves accounts matching the filter
func (s *AccountStoreAdapter) ListAccounts(_ context.Context, filter domain.AccountFilter) ([]*domain.AccountRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	file, err := s.load()
	if err != nil {
		return nil, err
	}

	result := make([]*domain.AccountRecord, 0, len(file.Accounts))
	for _, rec := range file.Accounts {
		if filter.Matches(rec) {
			result = append(result, rec)
		}
	}
	return result, nil
}

// SaveAccount inserts or replaces an account
func (s *AccountStoreAdapter) SaveAccount(_ context.Context, record *domain.AccountRecord) error {
	if record == nil || record.Address == (common.Address{}) {
		return fmt.Errorf("account record without address: %w", domain.ErrInvalidAddress)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	file, err := s.load()
	if err != nil {
		return err
	}
	file.Accounts[record.Address] = record
	return s.save(file)
}

// load reads the index. A missing file is an empty index.
func (s *AccountStoreAdapter) load() (*accountsFile, error) {
	file := &accountsFile{Version: accountsFileVersion, Accounts: make(map[common.Address]*domain.AccountRecord)}

	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return file, nil
		}
		return nil, fmt.Errorf("failed to read accounts file: %w", err)
	}

	if err := json.Unmarshal(data, file); err != nil {
		return nil, fmt.Errorf("failed to parse accounts file: %w", err)
	}
	if file.Version > accountsFileVersion {
		return nil, fmt.Errorf("accounts file version %d is newer than supported version %d", file.Version, accountsFileVersion)
	}
	if file.Accounts == nil {
		file.Accounts = make(map[common.Address]*domain.AccountRecord)
	}
	return file, nil
}

func (s *AccountStoreAdapter) save(file *accountsFile) error {
	data, err := json.MarshalIndent(file, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal accounts: %w", err)
	}
	return writeFileAtomic(s.path, data)
}

// Ensure AccountStoreAdapter implements AccountStore
var _ usecase.AccountStore = (*AccountStoreAdapter)(nil)
