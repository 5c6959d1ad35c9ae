package usecase

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/trebuchet-org/nftwallet/internal/contracts/account"
	"github.com/trebuchet-org/nftwallet/internal/domain"
	"github.com/trebuchet-org/nftwallet/internal/evm"
)

// ExecuteCallParams contains parameters for a call forwarded by an account
type ExecuteCallParams struct {
	From    common.Address
	Account common.Address
	To      common.Address
	Value   *big.Int
	Data    []byte
}

// ExecuteCallResult contains the forwarded call's return data and events
type ExecuteCallResult struct {
	ReturnData []byte
	Events     []domain.ParsedEvent
	Receipt    *evm.Receipt
}

// ExecuteCall relays a call through a token-bound account
type ExecuteCall struct {
	chain   Chain
	decoder EventDecoder
	metrics MetricsRecorder
}

// NewExecuteCall creates a new ExecuteCall use case
func NewExecuteCall(chain Chain, decoder EventDecoder, metrics MetricsRecorder) *ExecuteCall {
	return &ExecuteCall{
		chain:   chain,
		decoder: decoder,
		metrics: metrics,
	}
}

// Run executes the execute call use case
func (uc *ExecuteCall) Run(ctx context.Context, params ExecuteCallParams) (*ExecuteCallResult, error) {
	receipt, err := uc.chain.Transact(ctx, params.From, params.Account, nil,
		account.PackExecuteCall(params.To, params.Value, params.Data))
	uc.metrics.RecordOperation("execute_call", err)
	if err != nil {
		return nil, fmt.Errorf("failed to execute call via %s: %w", params.Account.Hex(), err)
	}

	ret, err := account.UnpackExecuteCall(receipt.ReturnData)
	if err != nil {
		return nil, err
	}

	events, err := decodeLogs(uc.decoder, receipt)
	if err != nil {
		return nil, err
	}

	return &ExecuteCallResult{
		ReturnData: ret,
		Events:     events,
		Receipt:    receipt,
	}, nil
}

func decodeLogs(decoder EventDecoder, receipt *evm.Receipt) ([]domain.ParsedEvent, error) {
	events := make([]domain.ParsedEvent, 0, len(receipt.Logs))
	for _, log := range receipt.Logs {
		event, err := decoder.Decode(log)
		if err != nil {
			return nil, fmt.Errorf("failed to decode log %d: %w", log.Index, err)
		}
		events = append(events, event)
	}
	return events, nil
}
