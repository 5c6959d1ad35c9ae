package usecase

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/trebuchet-org/nftwallet/internal/contracts/token"
	"github.com/trebuchet-org/nftwallet/internal/domain"
	"github.com/trebuchet-org/nftwallet/internal/evm"
)

// MintWithWalletParams contains parameters for minting a token with its wallet
type MintWithWalletParams struct {
	From common.Address
	NFT  common.Address
	To   common.Address
}

// MintWithWalletResult contains the minted token and its account
type MintWithWalletResult struct {
	TokenID *big.Int
	Account *domain.AccountRecord
	Event   *domain.MintNFTWalletEvent
	Receipt *evm.Receipt
}

// MintWithWallet mints an NFT and binds a freshly created account to it
type MintWithWallet struct {
	chain   Chain
	decoder EventDecoder
	indexer *IndexAccounts
	metrics MetricsRecorder
}

// NewMintWithWallet creates a new MintWithWallet use case
func NewMintWithWallet(chain Chain, decoder EventDecoder, indexer *IndexAccounts, metrics MetricsRecorder) *MintWithWallet {
	return &MintWithWallet{
		chain:   chain,
		decoder: decoder,
		indexer: indexer,
		metrics: metrics,
	}
}

// Run executes the mint with wallet use case
func (uc *MintWithWallet) Run(ctx context.Context, params MintWithWalletParams) (*MintWithWalletResult, error) {
	to := params.To
	if to == (common.Address{}) {
		to = params.From
	}
	data, err := token.NFTABI.Pack("mintNFTwithWallet", to)
	if err != nil {
		return nil, err
	}

	receipt, err := uc.chain.Transact(ctx, params.From, params.NFT, nil, data)
	uc.metrics.RecordOperation("mint_with_wallet", err)
	if err != nil {
		return nil, fmt.Errorf("failed to mint to %s: %w", to.Hex(), err)
	}

	result := &MintWithWalletResult{Receipt: receipt}
	for _, log := range receipt.Logs {
		event, err := uc.decoder.Decode(log)
		if err != nil {
			return nil, err
		}
		if minted, ok := event.(*domain.MintNFTWalletEvent); ok {
			result.Event = minted
			result.TokenID = minted.TokenID
		}
	}
	if result.Event == nil {
		return nil, fmt.Errorf("transaction %s emitted no MintNFTWallet event", receipt.TxHash.Hex())
	}

	indexed, err := uc.indexer.Run(ctx, IndexAccountsParams{Logs: receipt.Logs, BlockNumber: receipt.BlockNumber})
	if err != nil {
		return nil, err
	}
	for _, rec := range indexed.Indexed {
		if rec.Address == result.Event.Account {
			result.Account = rec
		}
	}
	if result.Account == nil {
		return nil, fmt.Errorf("account %s was not created by the mint", result.Event.Account.Hex())
	}
	return result, nil
}
