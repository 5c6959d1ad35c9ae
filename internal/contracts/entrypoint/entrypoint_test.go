package entrypoint_test

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/params"
	"github.com/holiman/uint256"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/trebuchet-org/nftwallet/internal/contracts/account"
	"github.com/trebuchet-org/nftwallet/internal/contracts/contracttest"
	"github.com/trebuchet-org/nftwallet/internal/contracts/entrypoint"
	"github.com/trebuchet-org/nftwallet/internal/contracts/iface"
	"github.com/trebuchet-org/nftwallet/internal/contracts/registry"
	"github.com/trebuchet-org/nftwallet/internal/contracts/token"
	"github.com/trebuchet-org/nftwallet/internal/domain"
)

func sign(t *testing.T, f *contracttest.Fixture, op iface.UserOperation, s domain.Signer) iface.UserOperation {
	t.Helper()
	hash := entrypoint.UserOpHash(op, f.C().EntryPoint, big.NewInt(31337))
	sig, err := crypto.Sign(accounts.TextHash(hash.Bytes()), s.Key)
	require.NoError(t, err)
	op.Signature = sig
	return op
}

func handleOps(t *testing.T, f *contracttest.Fixture, bundler domain.Signer, ops ...iface.UserOperation) ([]*types.Log, error) {
	t.Helper()
	data, err := entrypoint.PackHandleOps(ops, bundler.Address)
	require.NoError(t, err)
	receipt, err := f.Send(bundler, f.C().EntryPoint, data)
	if receipt == nil {
		return nil, err
	}
	return receipt.Logs, err
}

func userOpEvents(t *testing.T, logs []*types.Log) []map[string]interface{} {
	t.Helper()
	var events []map[string]interface{}
	for _, l := range logs {
		if l.Topics[0] != entrypoint.ABI.Events["UserOperationEvent"].ID {
			continue
		}
		ev := map[string]interface{}{}
		require.NoError(t, entrypoint.ABI.UnpackIntoMap(ev, "UserOperationEvent", l.Data))
		ev["sender"] = common.BytesToAddress(l.Topics[2].Bytes())
		events = append(events, ev)
	}
	return events
}

func nonce(f *contracttest.Fixture, sender common.Address) int64 {
	return f.View(f.C().EntryPoint, entrypoint.ABI, "getNonce", sender)[0].(*big.Int).Int64()
}

func TestEntryPoint_RelaysSignedOperation(t *testing.T) {
	f := contracttest.New(t)
	_, acct := f.Mint(f.Deployer, f.Deployer.Address)
	mint := f.Pack(token.ERC20ABI, "mint")

	op := sign(t, f, iface.UserOperation{
		Sender:   acct,
		Nonce:    big.NewInt(0),
		CallData: account.PackExecuteCall(f.C().ERC20, nil, mint),
	}, f.Deployer)

	logs, err := handleOps(t, f, f.Caller1, op)
	require.NoError(t, err)

	events := userOpEvents(t, logs)
	require.Len(t, events, 1)
	assert.True(t, events[0]["success"].(bool))
	assert.Equal(t, acct, events[0]["sender"])
	assert.Equal(t, contracttest.Tokens(10000), f.ERC20Balance(acct))
	assert.Equal(t, int64(1), nonce(f, acct))

	// relaying gives the bundler no standing on the account
	_, err = f.Execute(f.Caller1, acct, f.C().ERC20, mint)
	assert.ErrorIs(t, err, domain.ErrUnauthorized)
}

func TestEntryPoint_RejectsInvalidOperations(t *testing.T) {
	f := contracttest.New(t)
	_, acct := f.Mint(f.Deployer, f.Deployer.Address)
	callData := account.PackExecuteCall(f.C().ERC20, nil, f.Pack(token.ERC20ABI, "mint"))

	tests := []struct {
		name   string
		op     iface.UserOperation
		signer domain.Signer
		reason string
	}{
		{
			name:   "wrong signer",
			op:     iface.UserOperation{Sender: acct, Nonce: big.NewInt(0), CallData: callData},
			signer: f.Caller1,
			reason: "AA24 signature error",
		},
		{
			name:   "wrong nonce",
			op:     iface.UserOperation{Sender: acct, Nonce: big.NewInt(3), CallData: callData},
			signer: f.Deployer,
			reason: "AA25 invalid account nonce",
		},
		{
			name:   "undeployed sender",
			op:     iface.UserOperation{Sender: common.HexToAddress("0x1234"), Nonce: big.NewInt(0), CallData: callData},
			signer: f.Deployer,
			reason: "AA20 account not deployed",
		},
		{
			name:   "initCode for deployed sender",
			op:     iface.UserOperation{Sender: acct, Nonce: big.NewInt(0), InitCode: f.C().Registry.Bytes(), CallData: callData},
			signer: f.Deployer,
			reason: "AA10 sender already constructed",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := handleOps(t, f, f.Caller2, sign(t, f, tt.op, tt.signer))
			require.Error(t, err)
			var failed *entrypoint.FailedOpError
			require.ErrorAs(t, err, &failed)
			assert.Equal(t, 0, failed.OpIndex)
			assert.Equal(t, tt.reason, failed.Reason)
			assert.Zero(t, f.ERC20Balance(acct).Sign())
			assert.Zero(t, nonce(f, acct))
		})
	}
}

func TestEntryPoint_ExecutionFailureDoesNotRevertBundle(t *testing.T) {
	f := contracttest.New(t)
	_, acct := f.Mint(f.Deployer, f.Deployer.Address)
	transfer := f.Pack(token.ERC20ABI, "transfer", f.Caller1.Address, contracttest.Tokens(1))

	op := sign(t, f, iface.UserOperation{
		Sender:   acct,
		Nonce:    big.NewInt(0),
		CallData: account.PackExecuteCall(f.C().ERC20, nil, transfer),
	}, f.Deployer)

	logs, err := handleOps(t, f, f.Caller1, op)
	require.NoError(t, err)

	events := userOpEvents(t, logs)
	require.Len(t, events, 1)
	assert.False(t, events[0]["success"].(bool))
	assert.Equal(t, int64(1), nonce(f, acct))

	var reverted bool
	for _, l := range logs {
		reverted = reverted || l.Topics[0] == entrypoint.ABI.Events["UserOperationRevertReason"].ID
	}
	assert.True(t, reverted)
}

func TestEntryPoint_DeploysSenderFromInitCode(t *testing.T) {
	f := contracttest.New(t)
	c := f.C()
	id, _ := f.Mint(f.Deployer, f.Deployer.Address)

	// a second account for the same token, bound directly to the logic contract
	b := domain.NewTokenBinding(31337, c.NFT, id)
	predicted, err := f.Host.Call(f.Ctx, f.Deployer.Address, c.Registry, registry.PackAccount(c.Account, b))
	require.NoError(t, err)
	sender, err := registry.UnpackAddress("account", predicted)
	require.NoError(t, err)

	op := sign(t, f, iface.UserOperation{
		Sender:   sender,
		Nonce:    big.NewInt(0),
		InitCode: append(c.Registry.Bytes(), registry.PackCreateAccount(c.Account, b)...),
		CallData: account.PackExecuteCall(c.ERC20, nil, f.Pack(token.ERC20ABI, "mint")),
	}, f.Deployer)

	logs, err := handleOps(t, f, f.Caller2, op)
	require.NoError(t, err)

	var deployed bool
	for _, l := range logs {
		deployed = deployed || l.Topics[0] == entrypoint.ABI.Events["AccountDeployed"].ID
	}
	assert.True(t, deployed)
	assert.Equal(t, contracttest.Tokens(10000), f.ERC20Balance(sender))
}

func TestEntryPoint_Deposits(t *testing.T) {
	f := contracttest.New(t)
	ep := f.C().EntryPoint

	_, err := f.SendValue(f.Caller1, ep, uint256FromEther(2), nil)
	require.NoError(t, err)
	assert.Equal(t, "2000000000000000000", f.View(ep, entrypoint.ABI, "balanceOf", f.Caller1.Address)[0].(*big.Int).String())

	op := iface.UserOperation{Sender: f.Caller1.Address, Nonce: big.NewInt(0)}
	got := f.View(ep, entrypoint.ABI, "getUserOpHash", op.Normalized())[0].([32]byte)
	assert.Equal(t, entrypoint.UserOpHash(op, ep, big.NewInt(31337)), common.Hash(got))
}

func uint256FromEther(n uint64) *uint256.Int {
	return new(uint256.Int).Mul(uint256.NewInt(n), uint256.NewInt(params.Ether))
}
