package abi_test

import (
	"log/slog"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/trebuchet-org/nftwallet/internal/adapters/abi"
	"github.com/trebuchet-org/nftwallet/internal/contracts/contracttest"
	"github.com/trebuchet-org/nftwallet/internal/contracts/registry"
	"github.com/trebuchet-org/nftwallet/internal/contracts/token"
	"github.com/trebuchet-org/nftwallet/internal/domain"
)

func newDecoder() *abi.EventDecoder {
	return abi.NewEventDecoder(slog.New(slog.DiscardHandler))
}

func TestEventDecoder_MintReceipt(t *testing.T) {
	f := contracttest.New(t)
	receipt := f.MustSend(f.Caller1, f.C().NFT, f.Pack(token.NFTABI, "mintNFTwithWallet", f.Caller1.Address))

	decoder := newDecoder()
	var (
		transfer *domain.TransferEvent
		created  *domain.AccountCreatedEvent
		minted   *domain.MintNFTWalletEvent
	)
	for _, log := range receipt.Logs {
		event, err := decoder.Decode(log)
		require.NoError(t, err)
		switch e := event.(type) {
		case *domain.TransferEvent:
			transfer = e
		case *domain.AccountCreatedEvent:
			created = e
		case *domain.MintNFTWalletEvent:
			minted = e
		}
	}

	require.NotNil(t, transfer)
	assert.True(t, transfer.NonFungible)
	assert.Equal(t, common.Address{}, transfer.From)
	assert.Equal(t, f.Caller1.Address, transfer.To)

	require.NotNil(t, created)
	assert.Equal(t, f.C().Registry, created.Registry)
	assert.Equal(t, f.C().AccountProxy, created.Implementation)
	assert.Equal(t, int64(31337), created.Binding.ChainID.Int64())
	assert.Equal(t, f.C().NFT, created.Binding.TokenContract)
	assert.Equal(t, receipt.TxHash, created.TransactionID)

	require.NotNil(t, minted)
	assert.Equal(t, created.Account, minted.Account)
	assert.Zero(t, minted.TokenID.Sign())
}

func TestEventDecoder_ExecuteReceipt(t *testing.T) {
	f := contracttest.New(t)
	_, acct := f.Mint(f.Deployer, f.Deployer.Address)
	receipt, err := f.Execute(f.Deployer, acct, f.C().ERC20, f.Pack(token.ERC20ABI, "mint"))
	require.NoError(t, err)

	decoder := newDecoder()
	require.Len(t, receipt.Logs, 2)

	first, err := decoder.Decode(receipt.Logs[0])
	require.NoError(t, err)
	transfer, ok := first.(*domain.TransferEvent)
	require.True(t, ok, "got %T", first)
	assert.False(t, transfer.NonFungible)
	assert.Equal(t, acct, transfer.To)
	assert.Equal(t, contracttest.Tokens(10000), transfer.Amount)

	second, err := decoder.Decode(receipt.Logs[1])
	require.NoError(t, err)
	executed, ok := second.(*domain.TransactionExecutedEvent)
	require.True(t, ok, "got %T", second)
	assert.Equal(t, acct, executed.Account)
	assert.Equal(t, f.C().ERC20, executed.Target)
	assert.Equal(t, "TransactionExecuted", executed.ContractEventName())
}

func TestEventDecoder_Unknown(t *testing.T) {
	decoder := newDecoder()

	tests := []struct {
		name string
		log  *types.Log
	}{
		{"no topics", &types.Log{Address: common.HexToAddress("0x01")}},
		{"foreign event", &types.Log{Address: common.HexToAddress("0x01"), Topics: []common.Hash{common.HexToHash("0xdead")}, Data: []byte{0x01}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			event, err := decoder.Decode(tt.log)
			require.NoError(t, err)
			unknown, ok := event.(*domain.UnknownEvent)
			require.True(t, ok)
			assert.Equal(t, tt.log.Address, unknown.Address)
		})
	}
}

func TestEventDecoder_MalformedTopics(t *testing.T) {
	decoder := newDecoder()
	log := &types.Log{
		Topics: []common.Hash{registry.ABI.Events["AccountCreated"].ID},
		Data:   common.LeftPadBytes(big.NewInt(1).Bytes(), 96),
	}
	_, err := decoder.Decode(log)
	assert.Error(t, err)
}
