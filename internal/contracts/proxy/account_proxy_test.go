package proxy_test

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/trebuchet-org/nftwallet/internal/contracts/account"
	"github.com/trebuchet-org/nftwallet/internal/contracts/contracttest"
	"github.com/trebuchet-org/nftwallet/internal/contracts/guardian"
	"github.com/trebuchet-org/nftwallet/internal/contracts/proxy"
	"github.com/trebuchet-org/nftwallet/internal/contracts/token"
	"github.com/trebuchet-org/nftwallet/internal/domain"
)

func deployAccountLogic(t *testing.T, f *contracttest.Fixture) common.Address {
	t.Helper()
	receipt, err := f.Host.Deploy(f.Ctx, f.Deployer.Address, account.New(f.C().Guardian, f.C().EntryPoint), nil)
	require.NoError(t, err)
	return receipt.ContractAddress
}

func implementationOf(f *contracttest.Fixture, acct common.Address) common.Address {
	return f.View(acct, proxy.AccountProxyABI, "implementation")[0].(common.Address)
}

func TestAccountProxy_Defaults(t *testing.T) {
	f := contracttest.New(t)
	_, acct := f.Mint(f.Deployer, f.Deployer.Address)

	assert.Equal(t, f.C().Account, implementationOf(f, acct))
	assert.Equal(t, f.C().Guardian, f.View(acct, proxy.AccountProxyABI, "admin")[0].(common.Address))

	_, err := f.Send(f.Deployer, f.C().AccountProxy, f.Pack(proxy.AccountProxyABI, "initialize"))
	assert.ErrorIs(t, err, domain.ErrAlreadyInitialized)
}

func TestAccountProxy_InitializeThroughClone(t *testing.T) {
	f := contracttest.New(t)
	_, acct := f.Mint(f.Deployer, f.Deployer.Address)

	for _, s := range []domain.Signer{f.Deployer, f.Caller1} {
		receipt, err := f.Send(s, acct, f.Pack(proxy.AccountProxyABI, "initialize"))
		assert.ErrorIs(t, err, domain.ErrUnauthorized)
		if receipt != nil {
			assert.Empty(t, receipt.Logs)
		}
	}
	assert.Equal(t, f.C().Account, implementationOf(f, acct))

	// a later default upgrade still reaches the account
	next := deployAccountLogic(t, f)
	f.MustSend(f.Deployer, f.C().Guardian, f.Pack(guardian.ABI, "upgradeAccount", acct, next))
	assert.Equal(t, next, implementationOf(f, acct))
}

func TestAccountProxy_UpgradeTo(t *testing.T) {
	t.Run("strangers and owners cannot upgrade directly", func(t *testing.T) {
		f := contracttest.New(t)
		_, acct := f.Mint(f.Deployer, f.Deployer.Address)
		next := deployAccountLogic(t, f)

		for _, s := range []domain.Signer{f.Deployer, f.Caller1} {
			_, err := f.Send(s, acct, f.Pack(proxy.AccountProxyABI, "upgradeTo", next))
			assert.ErrorIs(t, err, domain.ErrUnauthorized)
		}
		assert.Equal(t, f.C().Account, implementationOf(f, acct))
	})

	t.Run("guardian upgrades a single account", func(t *testing.T) {
		f := contracttest.New(t)
		_, acct0 := f.Mint(f.Deployer, f.Deployer.Address)
		_, acct1 := f.Mint(f.Caller1, f.Caller1.Address)
		next := deployAccountLogic(t, f)

		receipt := f.MustSend(f.Deployer, f.C().Guardian, f.Pack(guardian.ABI, "upgradeAccount", acct0, next))
		require.NotEmpty(t, receipt.Logs)
		assert.Equal(t, proxy.AccountProxyABI.Events["Upgraded"].ID, receipt.Logs[0].Topics[0])

		assert.Equal(t, next, implementationOf(f, acct0))
		assert.Equal(t, f.C().Account, implementationOf(f, acct1))

		// state survives the switch
		assert.Equal(t, f.Deployer.Address, f.View(acct0, account.ABI, "owner")[0].(common.Address))
		_, err := f.Execute(f.Deployer, acct0, f.C().ERC20, f.Pack(token.ERC20ABI, "mint"))
		require.NoError(t, err)
	})

	t.Run("self upgrade needs guardian approval", func(t *testing.T) {
		f := contracttest.New(t)
		_, acct := f.Mint(f.Deployer, f.Deployer.Address)
		next := deployAccountLogic(t, f)
		upgrade := proxy.PackUpgradeTo(next)

		_, err := f.Execute(f.Deployer, acct, acct, upgrade)
		assert.ErrorIs(t, err, domain.ErrSubcallFailed)
		assert.ErrorIs(t, err, domain.ErrUnauthorized)

		op := domain.UpgradeOperation(next)
		f.MustSend(f.Deployer, f.C().Guardian, f.Pack(guardian.ABI, "setApproval", [32]byte(op), acct, true))
		_, err = f.Execute(f.Deployer, acct, acct, upgrade)
		require.NoError(t, err)
		assert.Equal(t, next, implementationOf(f, acct))
	})

	t.Run("target must have code", func(t *testing.T) {
		f := contracttest.New(t)
		_, acct := f.Mint(f.Deployer, f.Deployer.Address)
		empty := common.HexToAddress("0x00000000000000000000000000000000000000aa")

		_, err := f.Send(f.Deployer, f.C().Guardian, f.Pack(guardian.ABI, "upgradeAccount", acct, empty))
		assert.ErrorIs(t, err, domain.ErrInvalidImplementation)
	})
}
