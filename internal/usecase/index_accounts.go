package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/core/types"
	"github.com/trebuchet-org/nftwallet/internal/derive"
	"github.com/trebuchet-org/nftwallet/internal/domain"
)

// IndexAccountsParams contains the logs to index. Logs that are not
// AccountCreated events are skipped.
type IndexAccountsParams struct {
	Logs        []*types.Log
	BlockNumber uint64
}

// IndexAccountsResult lists the records written to the index
type IndexAccountsResult struct {
	Indexed []*domain.AccountRecord
	Skipped int
}

// IndexAccounts feeds AccountCreated events into the discovery index
type IndexAccounts struct {
	decoder EventDecoder
	store   AccountStore
	metrics MetricsRecorder
}

// NewIndexAccounts creates a new IndexAccounts use case
func NewIndexAccounts(decoder EventDecoder, store AccountStore, metrics MetricsRecorder) *IndexAccounts {
	return &IndexAccounts{
		decoder: decoder,
		store:   store,
		metrics: metrics,
	}
}

// Run executes the index accounts use case
func (uc *IndexAccounts) Run(ctx context.Context, params IndexAccountsParams) (*IndexAccountsResult, error) {
	result := &IndexAccountsResult{}
	for _, log := range params.Logs {
		event, err := uc.decoder.Decode(log)
		if err != nil {
			return nil, fmt.Errorf("failed to decode log %d: %w", log.Index, err)
		}
		created, ok := event.(*domain.AccountCreatedEvent)
		if !ok {
			result.Skipped++
			continue
		}

		block := params.BlockNumber
		if block == 0 {
			block = log.BlockNumber
		}
		record, err := uc.save(ctx, created, block)
		if err != nil {
			return nil, err
		}
		uc.metrics.RecordAccountCreated(record.Binding.ChainID.Uint64())
		result.Indexed = append(result.Indexed, record)
	}
	return result, nil
}

func (uc *IndexAccounts) save(ctx context.Context, event *domain.AccountCreatedEvent, block uint64) (*domain.AccountRecord, error) {
	now := time.Now()
	derivation := derive.New(event.Registry).Account(event.Implementation, event.Binding)

	record, err := uc.store.GetAccount(ctx, event.Account)
	switch {
	case err == nil:
	case isNotFound(err):
		record = &domain.AccountRecord{Address: event.Account, CreatedAt: now}
	default:
		return nil, fmt.Errorf("failed to load account %s: %w", event.Account.Hex(), err)
	}

	record.Registry = event.Registry
	record.Implementation = event.Implementation
	record.Salt = derivation.Salt
	record.Binding = event.Binding.Normalized()
	record.Deployed = true
	record.TxHash = event.TransactionID
	record.Block = block
	record.UpdatedAt = now

	if err := uc.store.SaveAccount(ctx, record); err != nil {
		return nil, fmt.Errorf("failed to save account %s: %w", event.Account.Hex(), err)
	}
	return record, nil
}
