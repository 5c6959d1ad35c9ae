package evm

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/holiman/uint256"
)

// Host owns the world state and applies transactions one at a time. Each
// transaction is mined into its own block.
type Host struct {
	mu          sync.Mutex
	state       *StateDB
	chainID     *big.Int
	blockNumber uint64
	loaders     []CodeLoader
	log         *slog.Logger
}

type Option func(*Host)

// WithLogger sets the logger handed to contracts and used for tx tracing.
func WithLogger(log *slog.Logger) Option {
	return func(h *Host) { h.log = log }
}

// WithCodeLoader registers loaders resolving CREATE2 init code.
func WithCodeLoader(loaders ...CodeLoader) Option {
	return func(h *Host) { h.loaders = append(h.loaders, loaders...) }
}

// NewHost creates a host with an empty state for the given chain id.
func NewHost(chainID uint64, opts ...Option) *Host {
	h := &Host{
		state:   NewStateDB(),
		chainID: new(big.Int).SetUint64(chainID),
		log:     slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(h)
	}
	h.log = h.log.With("component", "evm")
	return h
}

// Receipt is the outcome of one transaction.
type Receipt struct {
	TxHash          common.Hash
	BlockNumber     uint64
	From            common.Address
	To              common.Address
	ContractAddress common.Address
	Status          uint64
	Logs            []*types.Log
	ReturnData      []byte
	Err             error
}

func (r *Receipt) Succeeded() bool { return r.Status == types.ReceiptStatusSuccessful }

func (h *Host) ChainID() *big.Int { return new(big.Int).Set(h.chainID) }

func (h *Host) BlockNumber() uint64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.blockNumber
}

// Transact sends a message call from an externally owned account. The
// sender's nonce is consumed even when execution reverts. A reverted
// transaction returns its receipt together with an error matching
// ErrExecutionReverted and the cause.
func (h *Host) Transact(ctx context.Context, from, to common.Address, value *uint256.Int, data []byte) (*Receipt, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if value == nil {
		value = new(uint256.Int)
	}
	h.mu.Lock()
	defer h.mu.Unlock()

	tx := h.begin(from, to, value, data)
	ret, err := tx.call(1, from, to, to, value, data, false, true)
	return h.finish(tx, from, to, common.Address{}, ret, err)
}

// Deploy places a native contract at the CREATE address of from and runs
// its constructor.
func (h *Host) Deploy(ctx context.Context, from common.Address, c Contract, value *uint256.Int) (*Receipt, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if value == nil {
		value = new(uint256.Int)
	}
	h.mu.Lock()
	defer h.mu.Unlock()

	addr := crypto.CreateAddress(from, h.state.GetNonce(from))
	tx := h.begin(from, common.Address{}, value, NativeCode(c))
	err := tx.create(1, from, addr, NativeCode(c), c, value)
	return h.finish(tx, from, common.Address{}, addr, nil, err)
}

// Call executes a message against the current state and discards every
// change, like eth_call.
func (h *Host) Call(ctx context.Context, from, to common.Address, data []byte) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	h.mu.Lock()
	defer h.mu.Unlock()

	tx := h.newTxContext(from, common.Hash{})
	tx.blockNumber = h.blockNumber
	snap := h.state.Snapshot()
	defer func() {
		h.state.RevertToSnapshot(snap)
		h.state.TakeLogs()
	}()
	ret, err := tx.call(1, from, to, to, new(uint256.Int), data, false, false)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrExecutionReverted, err)
	}
	return ret, nil
}

func (h *Host) newTxContext(from common.Address, hash common.Hash) *txContext {
	return &txContext{
		state:       h.state,
		chainID:     h.chainID,
		origin:      from,
		blockNumber: h.blockNumber,
		txHash:      hash,
		loaders:     h.loaders,
		log:         h.log,
	}
}

func (h *Host) begin(from, to common.Address, value *uint256.Int, data []byte) *txContext {
	nonce := h.state.GetNonce(from)
	h.blockNumber++
	h.state.SetNonce(from, nonce+1)
	h.state.Finalise()
	return h.newTxContext(from, txHash(h.chainID, from, nonce, to, value, data))
}

func (h *Host) finish(tx *txContext, from, to, created common.Address, ret []byte, err error) (*Receipt, error) {
	receipt := &Receipt{
		TxHash:          tx.txHash,
		BlockNumber:     tx.blockNumber,
		From:            from,
		To:              to,
		ContractAddress: created,
		Status:          types.ReceiptStatusSuccessful,
		ReturnData:      ret,
	}
	if err != nil {
		h.state.RevertToSnapshot(0)
		receipt.Status = types.ReceiptStatusFailed
		receipt.ContractAddress = common.Address{}
		if !errors.Is(err, ErrExecutionReverted) {
			err = fmt.Errorf("%w: %w", ErrExecutionReverted, err)
		}
		receipt.Err = err
	}
	blockHash := crypto.Keccak256Hash(tx.txHash.Bytes(), new(big.Int).SetUint64(tx.blockNumber).Bytes())
	receipt.Logs = h.state.TakeLogs()
	for i, l := range receipt.Logs {
		l.Index = uint(i)
		l.BlockHash = blockHash
	}
	h.state.Finalise()

	h.log.Debug("transaction",
		"hash", receipt.TxHash.Hex(),
		"from", from.Hex(),
		"to", to.Hex(),
		"status", receipt.Status,
		"logs", len(receipt.Logs),
	)
	return receipt, receipt.Err
}

func txHash(chainID *big.Int, from common.Address, nonce uint64, to common.Address, value *uint256.Int, data []byte) common.Hash {
	var n [8]byte
	binary.BigEndian.PutUint64(n[:], nonce)
	v := value.Bytes32()
	return crypto.Keccak256Hash(common.BigToHash(chainID).Bytes(), from.Bytes(), n[:], to.Bytes(), v[:], data)
}

// SetBalance overwrites the balance of addr, like anvil_setBalance.
func (h *Host) SetBalance(addr common.Address, amount *uint256.Int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.state.setBalance(addr, amount)
	h.state.Finalise()
}

func (h *Host) BalanceAt(addr common.Address) *uint256.Int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.state.GetBalance(addr)
}

func (h *Host) NonceAt(addr common.Address) uint64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.state.GetNonce(addr)
}

// CodeAt mirrors ethclient.Client.CodeAt. Only the latest block is kept, so
// blockNumber is ignored.
func (h *Host) CodeAt(ctx context.Context, addr common.Address, blockNumber *big.Int) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.state.GetCode(addr), nil
}

func (h *Host) StorageAt(addr common.Address, key common.Hash) common.Hash {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.state.GetState(addr, key)
}
