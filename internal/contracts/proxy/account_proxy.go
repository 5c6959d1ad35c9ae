// Package proxy implements the forwarding shells in front of account logic:
// the upgradeable AccountProxy, a plain ERC-1967 proxy, and the EIP-1167
// clones the registry deploys per token.
package proxy

import (
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/trebuchet-org/nftwallet/internal/contracts/iface"
	"github.com/trebuchet-org/nftwallet/internal/domain"
	"github.com/trebuchet-org/nftwallet/internal/evm"
)

var (
	// ImplementationSlot is bytes32(uint256(keccak256("eip1967.proxy.implementation")) - 1).
	ImplementationSlot = common.HexToHash("0x360894a13ba1a3210667c828492db98dca3e2076cc3735a920a3ca505d382bbc")
	// AdminSlot is bytes32(uint256(keccak256("eip1967.proxy.admin")) - 1).
	AdminSlot = common.HexToHash("0xb53127684a568b3173ae13b9f8a6016e243e63b6e8ee1178d6a717850b5d6103")
)

var AccountProxyABI = evm.MustParseABI(`[
	{"type":"function","name":"initialize","inputs":[],"outputs":[],"stateMutability":"nonpayable"},
	{"type":"function","name":"upgradeTo","inputs":[{"name":"implementation","type":"address"}],"outputs":[],"stateMutability":"nonpayable"},
	{"type":"function","name":"implementation","inputs":[],"outputs":[{"name":"","type":"address"}],"stateMutability":"view"},
	{"type":"function","name":"admin","inputs":[],"outputs":[{"name":"","type":"address"}],"stateMutability":"view"},
	{"type":"event","name":"Upgraded","inputs":[{"name":"implementation","type":"address","indexed":true}],"anonymous":false}
]`)

var errUpgradeNotApproved = errors.New("guardian has not approved the upgrade")

// AccountProxy is the shared implementation target of every account clone.
// It runs in the clone's storage context, so each account keeps its own
// implementation pointer.
type AccountProxy struct {
	defaultImplementation common.Address
	admin                 common.Address
	d                     *evm.Dispatcher
}

// NewAccountProxy returns a proxy forwarding to defaultImplementation until
// upgraded. admin is the guardian allowed to upgrade any account and to
// approve self-upgrades; it may be zero.
func NewAccountProxy(defaultImplementation, admin common.Address) *AccountProxy {
	p := &AccountProxy{defaultImplementation: defaultImplementation, admin: admin}
	p.d = evm.NewDispatcher(AccountProxyABI).
		On("initialize", p.initialize).
		On("upgradeTo", p.upgradeTo).
		On("implementation", p.implementation).
		On("admin", func(*evm.Env, []interface{}) ([]interface{}, error) {
			return []interface{}{p.admin}, nil
		}).
		OnFallback(p.forward)
	return p
}

func (p *AccountProxy) Name() string { return "AccountProxy" }

func (p *AccountProxy) Run(env *evm.Env, input []byte) ([]byte, error) {
	return p.d.Dispatch(env, input)
}

func (p *AccountProxy) current(env *evm.Env) common.Address {
	if impl := env.GetAddress(ImplementationSlot); impl != (common.Address{}) {
		return impl
	}
	return p.defaultImplementation
}

func (p *AccountProxy) forward(env *evm.Env, input []byte) ([]byte, error) {
	return env.DelegateCall(p.current(env), input)
}

// initialize pins the default implementation in the proxy's own storage. It
// cannot be reached through a clone, where the pointer is only moved by
// upgradeTo.
func (p *AccountProxy) initialize(env *evm.Env, _ []interface{}) ([]interface{}, error) {
	if env.Address() != env.CodeAddress() {
		return nil, &domain.AuthorizationError{Caller: env.Caller(), Account: env.Address()}
	}
	if env.GetAddress(ImplementationSlot) != (common.Address{}) {
		return nil, domain.ErrAlreadyInitialized
	}
	return nil, p.setImplementation(env, p.defaultImplementation)
}

func (p *AccountProxy) implementation(env *evm.Env, _ []interface{}) ([]interface{}, error) {
	return []interface{}{p.current(env)}, nil
}

// upgradeTo is open to the admin, and to the account itself when the admin
// has approved the target implementation.
func (p *AccountProxy) upgradeTo(env *evm.Env, args []interface{}) ([]interface{}, error) {
	newImplementation := args[0].(common.Address)
	caller, self := env.Caller(), env.Address()

	switch {
	case p.admin != (common.Address{}) && caller == p.admin:
	case caller == self:
		if p.admin != (common.Address{}) {
			out, err := evm.StaticCallMethod(env, p.admin, iface.IAccountGuardian.Methods["approve"],
				[32]byte(domain.UpgradeOperation(newImplementation)), self)
			if err != nil {
				return nil, &domain.AuthorizationError{Caller: caller, Account: self, Cause: err}
			}
			if !out[0].(bool) {
				return nil, &domain.AuthorizationError{Caller: caller, Account: self, Cause: errUpgradeNotApproved}
			}
		}
	default:
		return nil, &domain.AuthorizationError{Caller: caller, Account: self}
	}

	if !env.HasCode(newImplementation) {
		return nil, fmt.Errorf("%w: %s", domain.ErrInvalidImplementation, newImplementation.Hex())
	}
	return nil, p.setImplementation(env, newImplementation)
}

func (p *AccountProxy) setImplementation(env *evm.Env, impl common.Address) error {
	if err := env.SetAddress(ImplementationSlot, impl); err != nil {
		return err
	}
	return evm.EmitEvent(env, AccountProxyABI.Events["Upgraded"], impl)
}
