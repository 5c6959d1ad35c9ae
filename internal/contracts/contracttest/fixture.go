// Package contracttest boots the dev suite for contract tests.
package contracttest

import (
	"context"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/stretchr/testify/require"
	"github.com/trebuchet-org/nftwallet/internal/adapters/devchain"
	"github.com/trebuchet-org/nftwallet/internal/contracts/account"
	"github.com/trebuchet-org/nftwallet/internal/contracts/token"
	"github.com/trebuchet-org/nftwallet/internal/domain"
	"github.com/trebuchet-org/nftwallet/internal/evm"
)

// Fixture is a freshly bootstrapped chain.
type Fixture struct {
	T        *testing.T
	Ctx      context.Context
	Host     *evm.Host
	Suite    *domain.DevSuite
	Deployer domain.Signer
	Caller1  domain.Signer
	Caller2  domain.Signer
}

// New deploys the suite on chain 31337.
func New(t *testing.T) *Fixture {
	t.Helper()
	ctx := context.Background()
	host, suite, err := devchain.Bootstrap(ctx, domain.DevChainOptions{}, nil)
	require.NoError(t, err)
	return &Fixture{
		T:        t,
		Ctx:      ctx,
		Host:     host,
		Suite:    suite,
		Deployer: suite.Signers[0],
		Caller1:  suite.Signers[1],
		Caller2:  suite.Signers[2],
	}
}

func (f *Fixture) C() domain.SuiteContracts { return f.Suite.Contracts }

// Send submits a transaction and returns its receipt and error.
func (f *Fixture) Send(from domain.Signer, to common.Address, data []byte) (*evm.Receipt, error) {
	return f.Host.Transact(f.Ctx, from.Address, to, nil, data)
}

// SendValue submits a transaction carrying value.
func (f *Fixture) SendValue(from domain.Signer, to common.Address, value *uint256.Int, data []byte) (*evm.Receipt, error) {
	return f.Host.Transact(f.Ctx, from.Address, to, value, data)
}

// MustSend fails the test when the transaction reverts.
func (f *Fixture) MustSend(from domain.Signer, to common.Address, data []byte) *evm.Receipt {
	f.T.Helper()
	receipt, err := f.Send(from, to, data)
	require.NoError(f.T, err)
	return receipt
}

// Pack packs call data or fails the test.
func (f *Fixture) Pack(contractABI abi.ABI, method string, args ...interface{}) []byte {
	f.T.Helper()
	data, err := contractABI.Pack(method, args...)
	require.NoError(f.T, err)
	return data
}

// View calls a view method and returns its decoded outputs.
func (f *Fixture) View(to common.Address, contractABI abi.ABI, method string, args ...interface{}) []interface{} {
	f.T.Helper()
	out, err := f.ViewErr(to, contractABI, method, args...)
	require.NoError(f.T, err)
	return out
}

// ViewErr is View returning the error instead of failing.
func (f *Fixture) ViewErr(to common.Address, contractABI abi.ABI, method string, args ...interface{}) ([]interface{}, error) {
	ret, err := f.Host.Call(f.Ctx, f.Deployer.Address, to, f.Pack(contractABI, method, args...))
	if err != nil {
		return nil, err
	}
	return contractABI.Unpack(method, ret)
}

// Mint runs mintNFTwithWallet and returns the token id and account.
func (f *Fixture) Mint(from domain.Signer, to common.Address) (*big.Int, common.Address) {
	f.T.Helper()
	receipt := f.MustSend(from, f.C().NFT, f.Pack(token.NFTABI, "mintNFTwithWallet", to))
	out, err := token.NFTABI.Unpack("mintNFTwithWallet", receipt.ReturnData)
	require.NoError(f.T, err)
	return out[0].(*big.Int), out[1].(common.Address)
}

// Execute sends executeCall through acct.
func (f *Fixture) Execute(from domain.Signer, acct, to common.Address, data []byte) (*evm.Receipt, error) {
	return f.Send(from, acct, account.PackExecuteCall(to, nil, data))
}

// ERC20Balance reads MockERC20.balanceOf(holder).
func (f *Fixture) ERC20Balance(holder common.Address) *big.Int {
	f.T.Helper()
	return f.View(f.C().ERC20, token.ERC20ABI, "balanceOf", holder)[0].(*big.Int)
}

// Tokens converts whole tokens to 18-decimal base units.
func Tokens(n int64) *big.Int {
	return new(big.Int).Mul(big.NewInt(n), big.NewInt(1e18))
}
