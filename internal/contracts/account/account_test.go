package account_test

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/params"
	"github.com/holiman/uint256"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/trebuchet-org/nftwallet/internal/contracts/account"
	"github.com/trebuchet-org/nftwallet/internal/contracts/contracttest"
	"github.com/trebuchet-org/nftwallet/internal/contracts/guardian"
	"github.com/trebuchet-org/nftwallet/internal/contracts/iface"
	"github.com/trebuchet-org/nftwallet/internal/contracts/registry"
	"github.com/trebuchet-org/nftwallet/internal/contracts/token"
	"github.com/trebuchet-org/nftwallet/internal/derive"
	"github.com/trebuchet-org/nftwallet/internal/domain"
	"github.com/trebuchet-org/nftwallet/internal/evm"
)

var mintData = token.ERC20ABI.Methods["mint"].ID

func TestAccount_MintAndBind(t *testing.T) {
	f := contracttest.New(t)
	c := f.C()

	predicted0 := derive.New(c.Registry).Account(c.AccountProxy, domain.NewTokenBinding(31337, c.NFT, big.NewInt(0))).Address
	id0, acct0 := f.Mint(f.Deployer, f.Deployer.Address)
	id1, acct1 := f.Mint(f.Caller1, f.Caller1.Address)

	assert.Equal(t, int64(0), id0.Int64())
	assert.Equal(t, int64(1), id1.Int64())
	assert.Equal(t, predicted0, acct0)
	assert.NotEqual(t, acct0, acct1)

	for id, acct := range map[int64]common.Address{0: acct0, 1: acct1} {
		ret, err := f.Host.Call(f.Ctx, f.Deployer.Address, acct, account.Pack("token"))
		require.NoError(t, err)
		b, err := account.UnpackToken(ret)
		require.NoError(t, err)
		assert.Equal(t, int64(31337), b.ChainID.Int64())
		assert.Equal(t, c.NFT, b.TokenContract)
		assert.Equal(t, id, b.TokenID.Int64())
	}

	owner := f.View(acct0, account.ABI, "owner")[0].(common.Address)
	assert.Equal(t, f.Deployer.Address, owner)
}

func TestAccount_ExecuteCall(t *testing.T) {
	t.Run("owner can execute and others cannot", func(t *testing.T) {
		f := contracttest.New(t)
		_, acct0 := f.Mint(f.Deployer, f.Deployer.Address)
		_, acct1 := f.Mint(f.Caller1, f.Caller1.Address)

		receipt, err := f.Execute(f.Deployer, acct0, f.C().ERC20, mintData)
		require.NoError(t, err)
		assert.Equal(t, contracttest.Tokens(10000), f.ERC20Balance(acct0))
		last := receipt.Logs[len(receipt.Logs)-1]
		assert.Equal(t, account.ABI.Events["TransactionExecuted"].ID, last.Topics[0])
		assert.Equal(t, acct0, last.Address)

		_, err = f.Execute(f.Caller1, acct0, f.C().ERC20, mintData)
		require.Error(t, err)
		assert.ErrorIs(t, err, domain.ErrUnauthorized)
		var authErr *domain.AuthorizationError
		require.ErrorAs(t, err, &authErr)
		assert.Equal(t, f.Caller1.Address, authErr.Caller)
		assert.Equal(t, acct0, authErr.Account)

		_, err = f.Execute(f.Caller1, acct1, f.C().ERC20, mintData)
		require.NoError(t, err)
		assert.Equal(t, contracttest.Tokens(10000), f.ERC20Balance(acct1))
		assert.Equal(t, contracttest.Tokens(10000), f.ERC20Balance(acct0))
	})

	t.Run("nonce counts executed calls", func(t *testing.T) {
		f := contracttest.New(t)
		_, acct := f.Mint(f.Deployer, f.Deployer.Address)

		for i := 0; i < 2; i++ {
			_, err := f.Execute(f.Deployer, acct, f.C().ERC20, mintData)
			require.NoError(t, err)
		}
		_, err := f.Execute(f.Caller1, acct, f.C().ERC20, mintData)
		require.Error(t, err)
		assert.Equal(t, int64(2), f.View(acct, account.ABI, "nonce")[0].(*big.Int).Int64())
	})

	t.Run("transfer moves control", func(t *testing.T) {
		f := contracttest.New(t)
		id, acct := f.Mint(f.Deployer, f.Deployer.Address)

		f.MustSend(f.Deployer, f.C().NFT, f.Pack(token.NFTABI, "transferFrom", f.Deployer.Address, f.Caller2.Address, id))

		_, err := f.Execute(f.Deployer, acct, f.C().ERC20, mintData)
		assert.ErrorIs(t, err, domain.ErrUnauthorized)
		_, err = f.Execute(f.Caller2, acct, f.C().ERC20, mintData)
		require.NoError(t, err)
		assert.Equal(t, f.Caller2.Address, f.View(acct, account.ABI, "owner")[0].(common.Address))
	})

	t.Run("failed forwarded call rolls back", func(t *testing.T) {
		f := contracttest.New(t)
		_, acct := f.Mint(f.Deployer, f.Deployer.Address)
		_, err := f.Execute(f.Deployer, acct, f.C().ERC20, mintData)
		require.NoError(t, err)

		transfer := f.Pack(token.ERC20ABI, "transfer", f.Caller1.Address, contracttest.Tokens(20000))
		receipt, err := f.Execute(f.Deployer, acct, f.C().ERC20, transfer)
		require.Error(t, err)
		assert.ErrorIs(t, err, domain.ErrSubcallFailed)
		assert.ErrorIs(t, err, domain.ErrInsufficientBalance)
		assert.Empty(t, receipt.Logs)
		assert.Equal(t, contracttest.Tokens(10000), f.ERC20Balance(acct))
		assert.Equal(t, int64(1), f.View(acct, account.ABI, "nonce")[0].(*big.Int).Int64())
	})

	t.Run("forwards value", func(t *testing.T) {
		f := contracttest.New(t)
		_, acct := f.Mint(f.Deployer, f.Deployer.Address)
		oneEther := uint256.NewInt(params.Ether)

		_, err := f.SendValue(f.Caller1, acct, oneEther, nil)
		require.NoError(t, err)
		assert.Equal(t, oneEther, f.Host.BalanceAt(acct))

		before := f.Host.BalanceAt(f.Caller2.Address)
		_, err = f.Send(f.Deployer, acct, account.PackExecuteCall(f.Caller2.Address, big.NewInt(params.Ether), nil))
		require.NoError(t, err)
		assert.True(t, f.Host.BalanceAt(acct).IsZero())
		assert.Equal(t, new(uint256.Int).Add(before, oneEther), f.Host.BalanceAt(f.Caller2.Address))
	})
}

type contractFunc func(env *evm.Env, input []byte) ([]byte, error)

func (fn contractFunc) Run(env *evm.Env, input []byte) ([]byte, error) { return fn(env, input) }

func TestAccount_RejectsReentry(t *testing.T) {
	f := contracttest.New(t)
	_, acct := f.Mint(f.Deployer, f.Deployer.Address)

	receipt, err := f.Host.Deploy(f.Ctx, f.Deployer.Address, contractFunc(func(env *evm.Env, input []byte) ([]byte, error) {
		return env.Call(acct, nil, account.PackExecuteCall(f.C().ERC20, nil, mintData))
	}), nil)
	require.NoError(t, err)
	attacker := receipt.ContractAddress

	_, err = f.Execute(f.Deployer, acct, attacker, []byte{0x01, 0x02, 0x03, 0x04})
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrReentrantCall)
	assert.ErrorIs(t, err, domain.ErrSubcallFailed)
	assert.Equal(t, int64(0), f.ERC20Balance(acct).Int64())

	// the lock is released once the call unwinds
	_, err = f.Execute(f.Deployer, acct, f.C().ERC20, mintData)
	require.NoError(t, err)
}

func TestAccount_Initialize(t *testing.T) {
	t.Run("second initialize fails", func(t *testing.T) {
		f := contracttest.New(t)
		_, acct := f.Mint(f.Deployer, f.Deployer.Address)

		_, err := f.Send(f.Deployer, acct, f.Pack(account.ABI, "initialize", big.NewInt(31337), f.C().NFT, big.NewInt(9)))
		assert.ErrorIs(t, err, domain.ErrAlreadyInitialized)
	})

	t.Run("binding must match clone code", func(t *testing.T) {
		f := contracttest.New(t)
		c := f.C()
		codeBinding := domain.NewTokenBinding(31337, c.NFT, big.NewInt(5))
		receipt, err := f.Host.Deploy(f.Ctx, f.Deployer.Address, contractFunc(func(env *evm.Env, input []byte) ([]byte, error) {
			addr, err := env.Create2(derive.Salt(codeBinding), derive.InitCode(c.AccountProxy, codeBinding), nil)
			if err != nil {
				return nil, err
			}
			_, err = evm.CallMethod(env, addr, nil, iface.IAccount.Methods["initialize"], big.NewInt(31337), c.NFT, big.NewInt(6))
			return nil, err
		}), nil)
		require.NoError(t, err)

		_, err = f.Send(f.Deployer, receipt.ContractAddress, nil)
		assert.ErrorIs(t, err, domain.ErrBindingMismatch)
	})

	t.Run("logic contract cannot be initialized", func(t *testing.T) {
		f := contracttest.New(t)
		c := f.C()
		for _, target := range []common.Address{c.Account, c.AccountProxy} {
			_, err := f.Send(f.Caller1, target, f.Pack(account.ABI, "initialize", big.NewInt(31337), c.NFT, big.NewInt(1)))
			assert.ErrorIs(t, err, domain.ErrBindingMismatch)
		}
		_, err := f.ViewErr(c.Account, account.ABI, "owner")
		assert.ErrorIs(t, err, domain.ErrNotInitialized)
	})

	t.Run("uninitialized account has no owner", func(t *testing.T) {
		f := contracttest.New(t)
		_, err := f.ViewErr(f.C().Account, account.ABI, "owner")
		assert.ErrorIs(t, err, domain.ErrNotInitialized)
	})
}

func TestAccount_OwnershipOracle(t *testing.T) {
	t.Run("burned token denies everyone", func(t *testing.T) {
		f := contracttest.New(t)
		id, acct := f.Mint(f.Deployer, f.Deployer.Address)
		f.MustSend(f.Deployer, f.C().NFT, f.Pack(token.NFTABI, "burn", id))

		_, err := f.ViewErr(acct, account.ABI, "owner")
		assert.ErrorIs(t, err, domain.ErrOracleFailure)
		assert.ErrorIs(t, err, domain.ErrTokenNotFound)

		_, err = f.Execute(f.Deployer, acct, f.C().ERC20, mintData)
		assert.ErrorIs(t, err, domain.ErrUnauthorized)
		assert.ErrorIs(t, err, domain.ErrOracleFailure)
	})

	t.Run("foreign chain binding has no local owner", func(t *testing.T) {
		f := contracttest.New(t)
		c := f.C()
		receipt := f.MustSend(f.Deployer, c.Registry, registry.PackCreateAccount(c.AccountProxy, domain.NewTokenBinding(1, c.NFT, big.NewInt(0))))
		acct, err := registry.UnpackAddress("createAccount", receipt.ReturnData)
		require.NoError(t, err)

		assert.Equal(t, common.Address{}, f.View(acct, account.ABI, "owner")[0].(common.Address))
		_, err = f.Execute(f.Deployer, acct, c.ERC20, mintData)
		assert.ErrorIs(t, err, domain.ErrUnauthorized)
	})
}

func TestAccount_GuardianApproval(t *testing.T) {
	nonce := func(f *contracttest.Fixture, acct common.Address) *big.Int {
		return f.View(acct, account.ABI, "nonce")[0].(*big.Int)
	}
	approve := func(f *contracttest.Fixture, acct common.Address, op common.Hash) {
		f.MustSend(f.Deployer, f.C().Guardian, f.Pack(guardian.ABI, "setApproval", [32]byte(op), acct, true))
	}

	t.Run("single use", func(t *testing.T) {
		f := contracttest.New(t)
		c := f.C()
		_, acct := f.Mint(f.Deployer, f.Deployer.Address)
		op := domain.ExecuteOperation(f.Deployer.Address, nonce(f, acct), f.Caller2.Address, c.ERC20, big.NewInt(0), mintData)

		_, err := f.Execute(f.Caller2, acct, c.ERC20, mintData)
		assert.ErrorIs(t, err, domain.ErrUnauthorized)

		_, err = f.Send(f.Caller1, c.Guardian, f.Pack(guardian.ABI, "setApproval", [32]byte(op), acct, true))
		assert.ErrorIs(t, err, domain.ErrUnauthorized, "only the guardian owner may approve")

		approve(f, acct, op)
		transfer := f.Pack(token.ERC20ABI, "transfer", f.Caller2.Address, contracttest.Tokens(1))
		_, err = f.Execute(f.Caller2, acct, c.ERC20, transfer)
		assert.ErrorIs(t, err, domain.ErrUnauthorized, "approval covers only the exact call")

		_, err = f.Execute(f.Caller2, acct, c.ERC20, mintData)
		require.NoError(t, err)
		assert.Equal(t, int64(1), nonce(f, acct).Int64())

		_, err = f.Execute(f.Caller2, acct, c.ERC20, mintData)
		assert.ErrorIs(t, err, domain.ErrUnauthorized, "a spent approval cannot be replayed")
		assert.Equal(t, contracttest.Tokens(10000), f.ERC20Balance(acct))
	})

	t.Run("lapses when the token is sold", func(t *testing.T) {
		f := contracttest.New(t)
		c := f.C()
		id, acct := f.Mint(f.Deployer, f.Deployer.Address)
		_, err := f.Execute(f.Deployer, acct, c.ERC20, mintData)
		require.NoError(t, err)

		transfer := f.Pack(token.ERC20ABI, "transfer", f.Caller2.Address, contracttest.Tokens(1000))
		approve(f, acct, domain.ExecuteOperation(f.Deployer.Address, nonce(f, acct), f.Caller2.Address, c.ERC20, big.NewInt(0), transfer))

		f.MustSend(f.Deployer, c.NFT, f.Pack(token.NFTABI, "transferFrom", f.Deployer.Address, f.Caller1.Address, id))
		for i := 0; i < 3; i++ {
			_, err = f.Execute(f.Caller2, acct, c.ERC20, transfer)
			assert.ErrorIs(t, err, domain.ErrUnauthorized)
		}
		assert.Equal(t, contracttest.Tokens(10000), f.ERC20Balance(acct))
		assert.Zero(t, f.ERC20Balance(f.Caller2.Address).Sign())
	})

	t.Run("recovers a burned token once", func(t *testing.T) {
		f := contracttest.New(t)
		c := f.C()
		id, acct := f.Mint(f.Deployer, f.Deployer.Address)
		f.MustSend(f.Deployer, c.NFT, f.Pack(token.NFTABI, "burn", id))

		// without a live owner the approval is keyed to the zero address
		approve(f, acct, domain.ExecuteOperation(common.Address{}, nonce(f, acct), f.Caller2.Address, c.ERC20, big.NewInt(0), mintData))
		_, err := f.Execute(f.Caller2, acct, c.ERC20, mintData)
		require.NoError(t, err)
		assert.Equal(t, contracttest.Tokens(10000), f.ERC20Balance(acct))

		_, err = f.Execute(f.Caller2, acct, c.ERC20, mintData)
		assert.ErrorIs(t, err, domain.ErrUnauthorized)
	})
}

func TestAccount_Signatures(t *testing.T) {
	f := contracttest.New(t)
	_, acct := f.Mint(f.Deployer, f.Deployer.Address)
	hash := crypto.Keccak256Hash([]byte("hello"))

	sign := func(s domain.Signer) []byte {
		sig, err := crypto.Sign(hash.Bytes(), s.Key)
		require.NoError(t, err)
		sig[crypto.RecoveryIDOffset] += 27
		return sig
	}

	got := f.View(acct, account.ABI, "isValidSignature", [32]byte(hash), sign(f.Deployer))[0].([4]byte)
	assert.Equal(t, iface.ERC1271MagicValue, got)

	got = f.View(acct, account.ABI, "isValidSignature", [32]byte(hash), sign(f.Caller1))[0].([4]byte)
	assert.Equal(t, iface.ERC1271InvalidSignature, got)

	got = f.View(acct, account.ABI, "isValidSignature", [32]byte(hash), []byte{0x01})[0].([4]byte)
	assert.Equal(t, iface.ERC1271InvalidSignature, got)

	// validateUserOp is reserved to the entry point
	_, err := f.Send(f.Deployer, acct, f.Pack(account.ABI, "validateUserOp",
		iface.UserOperation{Sender: acct}.Normalized(), [32]byte(accounts.TextHash(hash.Bytes())), big.NewInt(0)))
	assert.ErrorIs(t, err, domain.ErrUnauthorized)
}

func TestAccount_ReceivesTokens(t *testing.T) {
	f := contracttest.New(t)
	c := f.C()
	id0, acct0 := f.Mint(f.Deployer, f.Deployer.Address)
	id1, _ := f.Mint(f.Caller1, f.Caller1.Address)

	safeTransfer := func(from domain.Signer, to common.Address, id *big.Int) error {
		_, err := f.Send(from, c.NFT, f.Pack(token.NFTABI, "safeTransferFrom", from.Address, to, id))
		return err
	}

	err := safeTransfer(f.Deployer, acct0, id0)
	assert.ErrorIs(t, err, domain.ErrOwnershipCycle)
	assert.Equal(t, f.Deployer.Address, f.View(c.NFT, token.NFTABI, "ownerOf", id0)[0].(common.Address))

	require.NoError(t, safeTransfer(f.Caller1, acct0, id1))
	assert.Equal(t, acct0, f.View(c.NFT, token.NFTABI, "ownerOf", id1)[0].(common.Address))
}

func TestAccount_SupportsInterface(t *testing.T) {
	f := contracttest.New(t)
	_, acct := f.Mint(f.Deployer, f.Deployer.Address)

	tests := []struct {
		name string
		id   [4]byte
		want bool
	}{
		{"erc165", iface.InterfaceIDERC165, true},
		{"erc721 receiver", iface.InterfaceIDERC721Receiver, true},
		{"erc1271", iface.InterfaceIDERC1271, true},
		{"account", iface.AccountInterfaceID, true},
		{"erc721", iface.InterfaceIDERC721, false},
		{"invalid", [4]byte{0xff, 0xff, 0xff, 0xff}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, f.View(acct, account.ABI, "supportsInterface", tt.id)[0].(bool))
		})
	}
}

func TestAccount_Immutables(t *testing.T) {
	f := contracttest.New(t)
	_, acct := f.Mint(f.Deployer, f.Deployer.Address)

	assert.Equal(t, f.C().Guardian, f.View(acct, account.ABI, "guardian")[0].(common.Address))
	assert.Equal(t, f.C().EntryPoint, f.View(acct, account.ABI, "entryPoint")[0].(common.Address))
}
