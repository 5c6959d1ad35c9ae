package abi

import (
	"fmt"
	"log/slog"
	"math/big"

	ethabi "github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/trebuchet-org/nftwallet/internal/contracts/account"
	"github.com/trebuchet-org/nftwallet/internal/contracts/entrypoint"
	"github.com/trebuchet-org/nftwallet/internal/contracts/proxy"
	"github.com/trebuchet-org/nftwallet/internal/contracts/registry"
	"github.com/trebuchet-org/nftwallet/internal/contracts/token"
	"github.com/trebuchet-org/nftwallet/internal/domain"
	"github.com/trebuchet-org/nftwallet/internal/usecase"
)

// EventDecoder decodes logs emitted by the account system contracts
type EventDecoder struct {
	log *slog.Logger
}

// NewEventDecoder creates a new event decoder
func NewEventDecoder(log *slog.Logger) *EventDecoder {
	return &EventDecoder{
		log: log.With("component", "EventDecoder"),
	}
}

var (
	accountCreated      = registry.ABI.Events["AccountCreated"]
	mintNFTWallet       = token.NFTABI.Events["MintNFTWallet"]
	transactionExecuted = account.ABI.Events["TransactionExecuted"]
	upgraded            = proxy.AccountProxyABI.Events["Upgraded"]
	nftTransfer         = token.NFTABI.Events["Transfer"]
	erc20Transfer       = token.ERC20ABI.Events["Transfer"]
	userOperation       = entrypoint.ABI.Events["UserOperationEvent"]
)

// Decode turns a log into a domain event. Logs from unknown events decode
// to *domain.UnknownEvent rather than an error.
func (d *EventDecoder) Decode(log *types.Log) (domain.ParsedEvent, error) {
	if len(log.Topics) == 0 {
		return d.unknown(log), nil
	}

	switch log.Topics[0] {
	case accountCreated.ID:
		values, err := unpackLog(accountCreated, log)
		if err != nil {
			return nil, err
		}
		return &domain.AccountCreatedEvent{
			Registry:       log.Address,
			Account:        values["account"].(common.Address),
			Implementation: values["implementation"].(common.Address),
			Binding: domain.TokenBinding{
				ChainID:       values["chainId"].(*big.Int),
				TokenContract: values["tokenContract"].(common.Address),
				TokenID:       values["tokenId"].(*big.Int),
			},
			TransactionID: log.TxHash,
		}, nil

	case mintNFTWallet.ID:
		values, err := unpackLog(mintNFTWallet, log)
		if err != nil {
			return nil, err
		}
		return &domain.MintNFTWalletEvent{
			TokenID:       values["tokenId"].(*big.Int),
			ChainID:       values["chainId"].(*big.Int),
			TokenContract: values["tokenContract"].(common.Address),
			Account:       values["account"].(common.Address),
			TransactionID: log.TxHash,
		}, nil

	case transactionExecuted.ID:
		values, err := unpackLog(transactionExecuted, log)
		if err != nil {
			return nil, err
		}
		return &domain.TransactionExecutedEvent{
			Account:       log.Address,
			Target:        values["target"].(common.Address),
			Value:         values["value"].(*big.Int),
			Data:          values["data"].([]byte),
			TransactionID: log.TxHash,
		}, nil

	case upgraded.ID:
		values, err := unpackLog(upgraded, log)
		if err != nil {
			return nil, err
		}
		return &domain.UpgradedEvent{
			ProxyAddress:          log.Address,
			ImplementationAddress: values["implementation"].(common.Address),
			TransactionID:         log.TxHash,
		}, nil

	case nftTransfer.ID:
		// ERC-20 and ERC-721 share the signature; only ERC-721 indexes the amount
		event, nonFungible, amountKey := erc20Transfer, false, "value"
		if len(log.Topics) == 4 {
			event, nonFungible, amountKey = nftTransfer, true, "tokenId"
		}
		values, err := unpackLog(event, log)
		if err != nil {
			return nil, err
		}
		return &domain.TransferEvent{
			Contract:      log.Address,
			From:          values["from"].(common.Address),
			To:            values["to"].(common.Address),
			Amount:        values[amountKey].(*big.Int),
			NonFungible:   nonFungible,
			TransactionID: log.TxHash,
		}, nil

	case userOperation.ID:
		values, err := unpackLog(userOperation, log)
		if err != nil {
			return nil, err
		}
		return &domain.UserOperationEvent{
			UserOpHash:    common.Hash(values["userOpHash"].([32]byte)),
			Sender:        values["sender"].(common.Address),
			Nonce:         values["nonce"].(*big.Int),
			Success:       values["success"].(bool),
			TransactionID: log.TxHash,
		}, nil
	}

	d.log.Debug("unknown event", "address", log.Address.Hex(), "topic", log.Topics[0].Hex())
	return d.unknown(log), nil
}

func (d *EventDecoder) unknown(log *types.Log) *domain.UnknownEvent {
	return &domain.UnknownEvent{
		Address:       log.Address,
		Topics:        log.Topics,
		Data:          common.Bytes2Hex(log.Data),
		TransactionID: log.TxHash,
	}
}

// unpackLog decodes indexed parameters from topics and the rest from data.
func unpackLog(event ethabi.Event, log *types.Log) (map[string]interface{}, error) {
	values := make(map[string]interface{})

	var indexed ethabi.Arguments
	for _, input := range event.Inputs {
		if input.Indexed {
			indexed = append(indexed, input)
		}
	}
	if len(log.Topics)-1 != len(indexed) {
		return nil, fmt.Errorf("%s: expected %d indexed topics, got %d", event.Name, len(indexed), len(log.Topics)-1)
	}
	if err := ethabi.ParseTopicsIntoMap(values, indexed, log.Topics[1:]); err != nil {
		return nil, fmt.Errorf("failed to parse %s topics: %w", event.Name, err)
	}

	if nonIndexed := event.Inputs.NonIndexed(); len(nonIndexed) > 0 {
		if err := nonIndexed.UnpackIntoMap(values, log.Data); err != nil {
			return nil, fmt.Errorf("failed to unpack %s data: %w", event.Name, err)
		}
	}
	return values, nil
}

// Ensure the decoder implements the interface
var _ usecase.EventDecoder = (*EventDecoder)(nil)
