// Package devchain boots an in-process chain with the account system
// deployed, in the same order a hardhat fixture would.
package devchain

import (
	"context"
	"fmt"
	"log/slog"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/params"
	"github.com/holiman/uint256"
	"github.com/trebuchet-org/nftwallet/internal/contracts/account"
	"github.com/trebuchet-org/nftwallet/internal/contracts/entrypoint"
	"github.com/trebuchet-org/nftwallet/internal/contracts/guardian"
	"github.com/trebuchet-org/nftwallet/internal/contracts/proxy"
	"github.com/trebuchet-org/nftwallet/internal/contracts/registry"
	"github.com/trebuchet-org/nftwallet/internal/contracts/token"
	"github.com/trebuchet-org/nftwallet/internal/domain"
	"github.com/trebuchet-org/nftwallet/internal/evm"
	"github.com/trebuchet-org/nftwallet/internal/usecase"
)

const (
	DefaultChainID = 31337
	DefaultBaseURI = "ipfs://QmZcH4YvBVVRJtdn4RdbaqgspFU8gH6P9vomDpBVpAL3u4/"
)

// Well-known hardhat / anvil development keys. Never use them on a real network.
var devKeys = []struct {
	name string
	key  string
}{
	{"deployer", "ac0974bec39a17e36ba4a6b4d238ff944bacb478cbed5efcae784d7bf4f2ff80"},
	{"caller1", "59c6995e998f97a5a0044966f0945389dc9e86dae88c7a8412f4603b6b78690d"},
	{"caller2", "5de4111afa1a4b94908f83103eb1f1706367c2e68ca870fc3fb9a804cdab365a"},
	{"caller3", "7c852118294e51e653712a81e05800f419141751be58f605c371e15141b007a6"},
	{"caller4", "47e179ec197488593b187f80a00eb0da91f1b9d0b13f8733639f19c30a34926a"},
}

// InitialBalance funds every dev signer with 10000 ether.
var InitialBalance = new(uint256.Int).Mul(uint256.NewInt(10000), uint256.NewInt(params.Ether))

// Signers returns the dev signers in a fixed order.
func Signers() ([]domain.Signer, error) {
	signers := make([]domain.Signer, 0, len(devKeys))
	for _, k := range devKeys {
		key, err := crypto.HexToECDSA(k.key)
		if err != nil {
			return nil, fmt.Errorf("invalid dev key %s: %w", k.name, err)
		}
		signers = append(signers, domain.Signer{Name: k.name, Address: crypto.PubkeyToAddress(key.PublicKey), Key: key})
	}
	return signers, nil
}

// Manager starts dev chains.
type Manager struct {
	log *slog.Logger
}

// NewManager creates a new dev chain manager
func NewManager(log *slog.Logger) *Manager {
	return &Manager{log: log.With("component", "devchain")}
}

// Start boots a fresh chain and deploys the suite.
func (m *Manager) Start(ctx context.Context, opts domain.DevChainOptions) (usecase.Chain, *domain.DevSuite, error) {
	host, suite, err := Bootstrap(ctx, opts, m.log)
	if err != nil {
		return nil, nil, err
	}
	return host, suite, nil
}

// Bootstrap deploys, from the first signer:
// AccountGuardian, EntryPoint, Account, AccountProxy (then initialize()),
// ERC6551Registry, the NFT logic, an ERC1967Proxy initializing the NFT,
// and MockERC20.
func Bootstrap(ctx context.Context, opts domain.DevChainOptions, log *slog.Logger) (*evm.Host, *domain.DevSuite, error) {
	if opts.ChainID == 0 {
		opts.ChainID = DefaultChainID
	}
	if opts.BaseURI == "" {
		opts.BaseURI = DefaultBaseURI
	}
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}

	signers, err := Signers()
	if err != nil {
		return nil, nil, err
	}
	host := evm.NewHost(opts.ChainID, evm.WithLogger(log), evm.WithCodeLoader(proxy.CloneLoader))
	for _, s := range signers {
		host.SetBalance(s.Address, InitialBalance)
	}
	deployer := signers[0].Address

	d := &deployment{ctx: ctx, host: host, from: deployer, log: log}
	var c domain.SuiteContracts
	c.Guardian = d.deploy("AccountGuardian", guardian.New())
	c.EntryPoint = d.deploy("EntryPoint", entrypoint.New())
	c.Account = d.deploy("Account", account.New(c.Guardian, c.EntryPoint))
	c.AccountProxy = d.deploy("AccountProxy", proxy.NewAccountProxy(c.Account, c.Guardian))
	d.transact("AccountProxy.initialize", c.AccountProxy, proxy.AccountProxyABI, "initialize")
	c.Registry = d.deploy("ERC6551Registry", registry.New())
	c.NFTImplementation = d.deploy("ERC6551Test", token.NewNFT())
	initData, err := token.NFTABI.Pack("initialize", c.Registry, c.AccountProxy, opts.BaseURI, new(big.Int).SetUint64(opts.ChainID))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to pack NFT initializer: %w", err)
	}
	c.NFT = d.deploy("ERC1967Proxy", proxy.NewERC1967Proxy(c.NFTImplementation, initData))
	c.ERC20 = d.deploy("MockERC20", token.NewMockERC20())
	if d.err != nil {
		return nil, nil, d.err
	}

	return host, &domain.DevSuite{ChainID: opts.ChainID, Contracts: c, Signers: signers}, nil
}

// deployment stops at the first error so Bootstrap reads as a script.
type deployment struct {
	ctx  context.Context
	host *evm.Host
	from common.Address
	log  *slog.Logger
	err  error
}

func (d *deployment) deploy(name string, c evm.Contract) common.Address {
	if d.err != nil {
		return common.Address{}
	}
	receipt, err := d.host.Deploy(d.ctx, d.from, c, nil)
	if err != nil {
		d.err = fmt.Errorf("failed to deploy %s: %w", name, err)
		return common.Address{}
	}
	d.log.Debug("deployed", "contract", name, "address", receipt.ContractAddress.Hex())
	return receipt.ContractAddress
}

func (d *deployment) transact(name string, to common.Address, contractABI abi.ABI, method string, args ...interface{}) {
	if d.err != nil {
		return
	}
	data, err := contractABI.Pack(method, args...)
	if err != nil {
		d.err = fmt.Errorf("failed to pack %s: %w", name, err)
		return
	}
	if _, err := d.host.Transact(d.ctx, d.from, to, nil, data); err != nil {
		d.err = fmt.Errorf("failed to call %s: %w", name, err)
	}
}
