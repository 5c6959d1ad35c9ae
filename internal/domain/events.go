package domain

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

type EventType string

const (
	EventTypeAccountCreated      EventType = "AccountCreated"
	EventTypeMintNFTWallet       EventType = "MintNFTWallet"
	EventTypeTransactionExecuted EventType = "TransactionExecuted"
	EventTypeUpgraded            EventType = "Upgraded"
	EventTypeTransfer            EventType = "Transfer"
	EventTypeUserOperation       EventType = "UserOperationEvent"
	EventTypeUnknown             EventType = "Unknown"
)

// ParsedEvent is the interface for all parsed events
type ParsedEvent interface {
	ContractEventName() string
	String() string
}

func short(a common.Address) string {
	return a.Hex()[:10] + "..."
}

// AccountCreatedEvent is emitted by the registry when an account is deployed.
type AccountCreatedEvent struct {
	Registry       common.Address
	Account        common.Address
	Implementation common.Address
	Binding        TokenBinding
	TransactionID  common.Hash
}

func (AccountCreatedEvent) ContractEventName() string {
	return string(EventTypeAccountCreated)
}

func (e *AccountCreatedEvent) String() string {
	return fmt.Sprintf("%s: account=%s, impl=%s, %s",
		e.ContractEventName(), short(e.Account), short(e.Implementation), e.Binding)
}

// MintNFTWalletEvent is emitted by the NFT when a token is minted with its wallet.
type MintNFTWalletEvent struct {
	TokenID       *big.Int
	ChainID       *big.Int
	TokenContract common.Address
	Account       common.Address
	TransactionID common.Hash
}

func (MintNFTWalletEvent) ContractEventName() string {
	return string(EventTypeMintNFTWallet)
}

func (e *MintNFTWalletEvent) String() string {
	return fmt.Sprintf("%s: token=%s #%s, account=%s",
		e.ContractEventName(), short(e.TokenContract), e.TokenID, short(e.Account))
}

// TransactionExecutedEvent is emitted by an account after a forwarded call.
type TransactionExecutedEvent struct {
	Account       common.Address
	Target        common.Address
	Value         *big.Int
	Data          []byte
	TransactionID common.Hash
}

func (TransactionExecutedEvent) ContractEventName() string {
	return string(EventTypeTransactionExecuted)
}

func (e *TransactionExecutedEvent) String() string {
	return fmt.Sprintf("%s: account=%s, to=%s, value=%s",
		e.ContractEventName(), short(e.Account), short(e.Target), e.Value)
}

// UpgradedEvent represents an account proxy implementation upgrade
type UpgradedEvent struct {
	ProxyAddress          common.Address
	ImplementationAddress common.Address
	TransactionID         common.Hash
}

func (UpgradedEvent) ContractEventName() string {
	return string(EventTypeUpgraded)
}

func (e *UpgradedEvent) String() string {
	return fmt.Sprintf("%s: proxy=%s, impl=%s",
		e.ContractEventName(), short(e.ProxyAddress), short(e.ImplementationAddress))
}

// TransferEvent covers both ERC-20 and ERC-721 Transfer logs. For ERC-721
// Amount holds the token id.
type TransferEvent struct {
	Contract      common.Address
	From          common.Address
	To            common.Address
	Amount        *big.Int
	NonFungible   bool
	TransactionID common.Hash
}

func (TransferEvent) ContractEventName() string {
	return string(EventTypeTransfer)
}

func (e *TransferEvent) String() string {
	kind := "amount"
	if e.NonFungible {
		kind = "tokenId"
	}
	return fmt.Sprintf("%s: contract=%s, from=%s, to=%s, %s=%s",
		e.ContractEventName(), short(e.Contract), short(e.From), short(e.To), kind, e.Amount)
}

// UserOperationEvent is emitted by the entry point for every handled operation.
type UserOperationEvent struct {
	UserOpHash    common.Hash
	Sender        common.Address
	Nonce         *big.Int
	Success       bool
	TransactionID common.Hash
}

func (UserOperationEvent) ContractEventName() string {
	return string(EventTypeUserOperation)
}

func (e *UserOperationEvent) String() string {
	return fmt.Sprintf("%s: sender=%s, nonce=%s, success=%t",
		e.ContractEventName(), short(e.Sender), e.Nonce, e.Success)
}

// UnknownEvent represents an unknown event type
type UnknownEvent struct {
	Address       common.Address
	Topics        []common.Hash
	Data          string
	TransactionID common.Hash
}

func (UnknownEvent) ContractEventName() string {
	return string(EventTypeUnknown)
}

func (e *UnknownEvent) String() string {
	return fmt.Sprintf("%s: %s", e.ContractEventName(), short(e.Address))
}
