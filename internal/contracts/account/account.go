// Package account implements the token-bound account logic. It runs behind
// a per-token clone and the shared AccountProxy, so all of its state lives in
// the clone's storage.
package account

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/holiman/uint256"
	"github.com/trebuchet-org/nftwallet/internal/contracts/iface"
	"github.com/trebuchet-org/nftwallet/internal/derive"
	"github.com/trebuchet-org/nftwallet/internal/domain"
	"github.com/trebuchet-org/nftwallet/internal/evm"
)

var ABI = evm.MustParseABI(`[
	{"type":"function","name":"initialize","inputs":[{"name":"chainId","type":"uint256"},{"name":"tokenContract","type":"address"},{"name":"tokenId","type":"uint256"}],"outputs":[],"stateMutability":"nonpayable"},
	{"type":"function","name":"token","inputs":[],"outputs":[{"name":"chainId","type":"uint256"},{"name":"tokenContract","type":"address"},{"name":"tokenId","type":"uint256"}],"stateMutability":"view"},
	{"type":"function","name":"owner","inputs":[],"outputs":[{"name":"","type":"address"}],"stateMutability":"view"},
	{"type":"function","name":"executeCall","inputs":[{"name":"to","type":"address"},{"name":"value","type":"uint256"},{"name":"data","type":"bytes"}],"outputs":[{"name":"result","type":"bytes"}],"stateMutability":"payable"},
	{"type":"function","name":"nonce","inputs":[],"outputs":[{"name":"","type":"uint256"}],"stateMutability":"view"},
	{"type":"function","name":"guardian","inputs":[],"outputs":[{"name":"","type":"address"}],"stateMutability":"view"},
	{"type":"function","name":"entryPoint","inputs":[],"outputs":[{"name":"","type":"address"}],"stateMutability":"view"},
	{"type":"function","name":"isValidSignature","inputs":[{"name":"hash","type":"bytes32"},{"name":"signature","type":"bytes"}],"outputs":[{"name":"magicValue","type":"bytes4"}],"stateMutability":"view"},
	{"type":"function","name":"validateUserOp","inputs":[` + iface.UserOperationTuple + `,{"name":"userOpHash","type":"bytes32"},{"name":"missingAccountFunds","type":"uint256"}],"outputs":[{"name":"validationData","type":"uint256"}],"stateMutability":"nonpayable"},
	{"type":"function","name":"supportsInterface","inputs":[{"name":"interfaceId","type":"bytes4"}],"outputs":[{"name":"","type":"bool"}],"stateMutability":"view"},
	{"type":"function","name":"onERC721Received","inputs":[{"name":"operator","type":"address"},{"name":"from","type":"address"},{"name":"tokenId","type":"uint256"},{"name":"data","type":"bytes"}],"outputs":[{"name":"","type":"bytes4"}],"stateMutability":"nonpayable"},
	{"type":"event","name":"Initialized","inputs":[{"name":"chainId","type":"uint256","indexed":false},{"name":"tokenContract","type":"address","indexed":true},{"name":"tokenId","type":"uint256","indexed":true}],"anonymous":false},
	{"type":"event","name":"TransactionExecuted","inputs":[{"name":"target","type":"address","indexed":true},{"name":"value","type":"uint256","indexed":true},{"name":"data","type":"bytes","indexed":false}],"anonymous":false}
]`)

var (
	bindingSlot     = evm.Slot("nftwallet.account.binding")
	initializedSlot = evm.Slot("nftwallet.account.initialized")
	nonceSlot       = evm.Slot("nftwallet.account.nonce")
	lockSlot        = evm.Slot("nftwallet.account.lock")
	signerSlot      = evm.Slot("nftwallet.account.validatedSigner")
)

var errGuardianDenied = errors.New("guardian did not approve the operation")

// Account is the wallet logic shared by every token-bound account.
type Account struct {
	guardian   common.Address
	entryPoint common.Address
	d          *evm.Dispatcher
}

// New returns account logic trusting the given guardian and entry point.
// Either may be zero to disable that authorization path.
func New(guardian, entryPoint common.Address) *Account {
	a := &Account{guardian: guardian, entryPoint: entryPoint}
	a.d = evm.NewDispatcher(ABI).
		On("initialize", a.initialize).
		On("token", a.token).
		On("owner", a.owner).
		On("executeCall", a.executeCall).
		On("nonce", func(env *evm.Env, _ []interface{}) ([]interface{}, error) {
			return []interface{}{env.GetBig(nonceSlot)}, nil
		}).
		On("guardian", func(*evm.Env, []interface{}) ([]interface{}, error) {
			return []interface{}{a.guardian}, nil
		}).
		On("entryPoint", func(*evm.Env, []interface{}) ([]interface{}, error) {
			return []interface{}{a.entryPoint}, nil
		}).
		On("isValidSignature", a.isValidSignature).
		On("validateUserOp", a.validateUserOp).
		On("supportsInterface", a.supportsInterface).
		On("onERC721Received", a.onERC721Received).
		OnReceive(func(*evm.Env) error { return nil })
	return a
}

func (a *Account) Name() string { return "Account" }

func (a *Account) Run(env *evm.Env, input []byte) ([]byte, error) {
	return a.d.Dispatch(env, input)
}

func loadBinding(env *evm.Env) domain.TokenBinding {
	return domain.TokenBinding{
		ChainID:       env.GetBig(bindingSlot),
		TokenContract: env.GetAddress(evm.OffsetSlot(bindingSlot, 1)),
		TokenID:       env.GetBig(evm.OffsetSlot(bindingSlot, 2)),
	}
}

func storeBinding(env *evm.Env, b domain.TokenBinding) error {
	if err := env.SetBig(bindingSlot, b.ChainID); err != nil {
		return err
	}
	if err := env.SetAddress(evm.OffsetSlot(bindingSlot, 1), b.TokenContract); err != nil {
		return err
	}
	return env.SetBig(evm.OffsetSlot(bindingSlot, 2), b.TokenID)
}

// initialize binds the account exactly once. It only runs behind a clone and
// the arguments must match the binding embedded in the clone's code.
func (a *Account) initialize(env *evm.Env, args []interface{}) ([]interface{}, error) {
	if env.GetBool(initializedSlot) {
		return nil, domain.ErrAlreadyInitialized
	}
	b := domain.TokenBinding{
		ChainID:       args[0].(*big.Int),
		TokenContract: args[1].(common.Address),
		TokenID:       args[2].(*big.Int),
	}
	_, embedded, err := derive.ParseClone(env.Code(env.Address()))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrBindingMismatch, err)
	}
	if !embedded.Equal(b) {
		return nil, fmt.Errorf("%w: code has %s, got %s", domain.ErrBindingMismatch, embedded, b)
	}
	if err := storeBinding(env, b); err != nil {
		return nil, err
	}
	if err := env.SetBool(initializedSlot, true); err != nil {
		return nil, err
	}
	return nil, evm.EmitEvent(env, ABI.Events["Initialized"], b.ChainID, b.TokenContract, b.TokenID)
}

func (a *Account) token(env *evm.Env, _ []interface{}) ([]interface{}, error) {
	b := loadBinding(env)
	return []interface{}{b.ChainID, b.TokenContract, b.TokenID}, nil
}

// currentOwner reads ownership live from the bound token contract. Tokens on
// another chain have no local owner.
func (a *Account) currentOwner(env *evm.Env) (common.Address, error) {
	if !env.GetBool(initializedSlot) {
		return common.Address{}, domain.ErrNotInitialized
	}
	b := loadBinding(env)
	if !b.OnChain(env.ChainID()) {
		return common.Address{}, nil
	}
	out, err := evm.StaticCallMethod(env, b.TokenContract, iface.IERC721.Methods["ownerOf"], b.TokenID)
	if err != nil {
		return common.Address{}, &domain.OracleError{TokenContract: b.TokenContract, TokenID: b.TokenID, Err: err}
	}
	return out[0].(common.Address), nil
}

func (a *Account) owner(env *evm.Env, _ []interface{}) ([]interface{}, error) {
	owner, err := a.currentOwner(env)
	if err != nil {
		return nil, err
	}
	return []interface{}{owner}, nil
}

// authorize admits, in order: the live owner, the entry point relaying an
// operation signed by the live owner, and any caller the guardian approves
// for this exact call at the current owner and nonce.
func (a *Account) authorize(env *evm.Env, to common.Address, value *big.Int, data []byte) error {
	caller := env.Caller()
	owner, ownerErr := a.currentOwner(env)
	if ownerErr == nil && owner != (common.Address{}) && caller == owner {
		return nil
	}

	if a.entryPoint != (common.Address{}) && caller == a.entryPoint {
		signer := env.GetAddress(signerSlot)
		if err := env.SetAddress(signerSlot, common.Address{}); err != nil {
			return err
		}
		if ownerErr == nil && signer != (common.Address{}) && signer == owner {
			return nil
		}
	}

	cause := ownerErr
	if a.guardian != (common.Address{}) {
		out, err := evm.StaticCallMethod(env, a.guardian, iface.IAccountGuardian.Methods["approve"],
			[32]byte(domain.ExecuteOperation(owner, env.GetBig(nonceSlot), caller, to, value, data)), env.Address())
		switch {
		case err == nil && out[0].(bool):
			return nil
		case err != nil && cause == nil:
			cause = err
		case cause == nil:
			cause = errGuardianDenied
		}
	}
	return &domain.AuthorizationError{Caller: caller, Account: env.Address(), Cause: cause}
}

func (a *Account) executeCall(env *evm.Env, args []interface{}) ([]interface{}, error) {
	to := args[0].(common.Address)
	value := args[1].(*big.Int)
	data := args[2].([]byte)

	if env.GetBool(lockSlot) {
		return nil, domain.ErrReentrantCall
	}
	if err := a.authorize(env, to, value, data); err != nil {
		return nil, err
	}

	if err := env.SetBool(lockSlot, true); err != nil {
		return nil, err
	}
	next := new(big.Int).Add(env.GetBig(nonceSlot), big.NewInt(1))
	if err := env.SetBig(nonceSlot, next); err != nil {
		return nil, err
	}
	v, overflow := uint256.FromBig(value)
	if overflow {
		return nil, fmt.Errorf("value %s overflows uint256", value)
	}
	result, err := env.Call(to, v, data)
	if err != nil {
		return nil, &domain.SubcallError{Target: to, Value: value, Err: err}
	}
	if err := env.SetBool(lockSlot, false); err != nil {
		return nil, err
	}

	if err := evm.EmitEvent(env, ABI.Events["TransactionExecuted"], to, value, data); err != nil {
		return nil, err
	}
	if result == nil {
		result = []byte{}
	}
	return []interface{}{result}, nil
}

// recoverSigner accepts 65-byte signatures with v in {0,1,27,28}.
func recoverSigner(hash []byte, sig []byte) (common.Address, error) {
	if len(sig) != crypto.SignatureLength {
		return common.Address{}, fmt.Errorf("%w: length %d", domain.ErrInvalidSignature, len(sig))
	}
	sig = common.CopyBytes(sig)
	if sig[crypto.RecoveryIDOffset] >= 27 {
		sig[crypto.RecoveryIDOffset] -= 27
	}
	pub, err := crypto.SigToPub(hash, sig)
	if err != nil {
		return common.Address{}, fmt.Errorf("%w: %v", domain.ErrInvalidSignature, err)
	}
	return crypto.PubkeyToAddress(*pub), nil
}

// isValidSignature implements ERC-1271 against the current owner.
func (a *Account) isValidSignature(env *evm.Env, args []interface{}) ([]interface{}, error) {
	hash := args[0].([32]byte)
	signature := args[1].([]byte)

	owner, err := a.currentOwner(env)
	if err != nil || owner == (common.Address{}) {
		return []interface{}{iface.ERC1271InvalidSignature}, nil
	}
	signer, err := recoverSigner(hash[:], signature)
	if err != nil || signer != owner {
		return []interface{}{iface.ERC1271InvalidSignature}, nil
	}
	return []interface{}{iface.ERC1271MagicValue}, nil
}

// validateUserOp checks that the live owner signed the EIP-191 digest of
// userOpHash and records the signer for the executeCall that follows.
func (a *Account) validateUserOp(env *evm.Env, args []interface{}) ([]interface{}, error) {
	if a.entryPoint == (common.Address{}) || env.Caller() != a.entryPoint {
		return nil, &domain.AuthorizationError{Caller: env.Caller(), Account: env.Address()}
	}
	op := *abi.ConvertType(args[0], new(iface.UserOperation)).(*iface.UserOperation)
	userOpHash := args[1].([32]byte)
	missingFunds := args[2].(*big.Int)

	validation := iface.SigValidationFailed
	validated := common.Address{}
	signer, sigErr := recoverSigner(accounts.TextHash(userOpHash[:]), op.Signature)
	owner, ownerErr := a.currentOwner(env)
	if sigErr == nil && ownerErr == nil && owner != (common.Address{}) && signer == owner {
		validation = iface.SigValidationSucceeded
		validated = signer
	}
	if err := env.SetAddress(signerSlot, validated); err != nil {
		return nil, err
	}

	if missingFunds.Sign() > 0 {
		// The entry point checks the deposit; a failed payment is not ours to report.
		_, _ = env.Call(a.entryPoint, uint256.MustFromBig(missingFunds), nil)
	}
	return []interface{}{new(big.Int).Set(validation)}, nil
}

func (a *Account) supportsInterface(env *evm.Env, args []interface{}) ([]interface{}, error) {
	id := args[0].([4]byte)
	switch id {
	case iface.InterfaceIDERC165, iface.InterfaceIDERC721Receiver, iface.InterfaceIDERC1271, iface.AccountInterfaceID:
		return []interface{}{true}, nil
	}
	return []interface{}{false}, nil
}

// onERC721Received refuses the account's own token: an account owning the
// token that controls it would lock both forever.
func (a *Account) onERC721Received(env *evm.Env, args []interface{}) ([]interface{}, error) {
	tokenID := args[2].(*big.Int)
	if env.GetBool(initializedSlot) {
		b := loadBinding(env)
		if b.OnChain(env.ChainID()) && env.Caller() == b.TokenContract && b.TokenID.Cmp(tokenID) == 0 {
			return nil, domain.ErrOwnershipCycle
		}
	}
	return []interface{}{iface.ERC721ReceivedMagic}, nil
}
