package blockchain

import (
	"context"
	"fmt"
	"math/big"
	"time"

	ethereum "github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/trebuchet-org/nftwallet/internal/usecase"
)

const callTimeout = 5 * time.Second

// CheckerAdapter implements the BlockchainChecker interface using ethclient
type CheckerAdapter struct {
	client  *ethclient.Client
	chainID uint64
}

// NewCheckerAdapter creates a new blockchain checker adapter
func NewCheckerAdapter() *CheckerAdapter {
	return &CheckerAdapter{}
}

// Connect establishes connection to the blockchain
func (c *CheckerAdapter) Connect(ctx context.Context, rpcURL string, chainID uint64) error {
	client, err := ethclient.DialContext(ctx, rpcURL)
	if err != nil {
		return fmt.Errorf("failed to connect to RPC: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, callTimeout)
	defer cancel()

	networkChainID, err := client.ChainID(ctx)
	if err != nil {
		client.Close()
		return fmt.Errorf("failed to get chain ID: %w", err)
	}

	// A zero chain ID accepts whatever the node reports
	switch {
	case chainID == 0:
		c.chainID = networkChainID.Uint64()
	case networkChainID.Uint64() != chainID:
		client.Close()
		return fmt.Errorf("chain ID mismatch: expected %d, got %d", chainID, networkChainID.Uint64())
	default:
		c.chainID = chainID
	}

	if c.client != nil {
		c.client.Close()
	}
	c.client = client
	return nil
}

// ChainID returns the chain the adapter is connected to
func (c *CheckerAdapter) ChainID() uint64 {
	return c.chainID
}

// CodeAt returns the runtime code at address
func (c *CheckerAdapter) CodeAt(ctx context.Context, account common.Address, blockNumber *big.Int) ([]byte, error) {
	if c.client == nil {
		return nil, fmt.Errorf("not connected to blockchain")
	}

	ctx, cancel := context.WithTimeout(ctx, callTimeout)
	defer cancel()

	code, err := c.client.CodeAt(ctx, account, blockNumber)
	if err != nil {
		return nil, fmt.Errorf("failed to get code at %s: %w", account.Hex(), err)
	}
	return code, nil
}

// CallContract performs a read-only call at the latest block
func (c *CheckerAdapter) CallContract(ctx context.Context, to common.Address, data []byte) ([]byte, error) {
	if c.client == nil {
		return nil, fmt.Errorf("not connected to blockchain")
	}

	ctx, cancel := context.WithTimeout(ctx, callTimeout)
	defer cancel()

	return c.client.CallContract(ctx, ethereum.CallMsg{To: &to, Data: data}, nil)
}

// Close releases the RPC connection
func (c *CheckerAdapter) Close() {
	if c.client != nil {
		c.client.Close()
		c.client = nil
	}
}

// Ensure the adapter implements the interface
var _ usecase.BlockchainChecker = (*CheckerAdapter)(nil)
