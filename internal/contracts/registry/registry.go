// Package registry implements the ERC-6551 style account registry: a
// deploy-or-fetch factory for token-bound account clones.
package registry

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/trebuchet-org/nftwallet/internal/contracts/iface"
	"github.com/trebuchet-org/nftwallet/internal/derive"
	"github.com/trebuchet-org/nftwallet/internal/domain"
	"github.com/trebuchet-org/nftwallet/internal/evm"
)

var ABI = evm.MustParseABI(`[
	{"type":"function","name":"createAccount","inputs":[{"name":"chainId","type":"uint256"},{"name":"tokenContract","type":"address"},{"name":"tokenId","type":"uint256"},{"name":"implementation","type":"address"}],"outputs":[{"name":"","type":"address"}],"stateMutability":"nonpayable"},
	{"type":"function","name":"account","inputs":[{"name":"chainId","type":"uint256"},{"name":"tokenContract","type":"address"},{"name":"tokenId","type":"uint256"},{"name":"implementation","type":"address"}],"outputs":[{"name":"","type":"address"}],"stateMutability":"view"},
	{"type":"event","name":"AccountCreated","inputs":[{"name":"account","type":"address","indexed":false},{"name":"implementation","type":"address","indexed":true},{"name":"chainId","type":"uint256","indexed":false},{"name":"tokenContract","type":"address","indexed":true},{"name":"tokenId","type":"uint256","indexed":true}],"anonymous":false}
]`)

// Registry is stateless: existence of an account is observed from code.
type Registry struct {
	d *evm.Dispatcher
}

func New() *Registry {
	r := &Registry{}
	r.d = evm.NewDispatcher(ABI).
		On("createAccount", r.createAccount).
		On("account", r.account)
	return r
}

func (r *Registry) Name() string { return "ERC6551Registry" }

func (r *Registry) Run(env *evm.Env, input []byte) ([]byte, error) {
	return r.d.Dispatch(env, input)
}

func bindingArgs(args []interface{}) (domain.TokenBinding, common.Address) {
	return domain.TokenBinding{
		ChainID:       args[0].(*big.Int),
		TokenContract: args[1].(common.Address),
		TokenID:       args[2].(*big.Int),
	}, args[3].(common.Address)
}

func (r *Registry) account(env *evm.Env, args []interface{}) ([]interface{}, error) {
	b, impl := bindingArgs(args)
	return []interface{}{derive.New(env.Address()).Account(impl, b).Address}, nil
}

// createAccount returns the existing account untouched, or deploys and
// initializes it and emits AccountCreated. Any failure reverts the whole
// deployment.
func (r *Registry) createAccount(env *evm.Env, args []interface{}) ([]interface{}, error) {
	b, impl := bindingArgs(args)
	target := derive.New(env.Address()).Account(impl, b)
	if env.HasCode(target.Address) {
		return []interface{}{target.Address}, nil
	}
	if !env.HasCode(impl) {
		return nil, &domain.DeploymentError{
			Account: target.Address,
			Reason:  fmt.Errorf("%w: %s", domain.ErrInvalidImplementation, impl.Hex()),
		}
	}

	addr, err := env.Create2(target.Salt, derive.InitCode(impl, b), nil)
	if err != nil {
		return nil, &domain.DeploymentError{Account: target.Address, Reason: err}
	}
	_, err = evm.CallMethod(env, addr, nil, iface.IAccount.Methods["initialize"], b.ChainID, b.TokenContract, b.TokenID)
	if err != nil {
		return nil, &domain.DeploymentError{Account: addr, Reason: fmt.Errorf("initialize: %w", err)}
	}

	if err := evm.EmitEvent(env, ABI.Events["AccountCreated"], addr, impl, b.ChainID, b.TokenContract, b.TokenID); err != nil {
		return nil, err
	}
	env.Logger().Debug("account created", "account", addr.Hex(), "binding", b.String())
	return []interface{}{addr}, nil
}

// PackCreateAccount builds createAccount call data.
func PackCreateAccount(implementation common.Address, b domain.TokenBinding) []byte {
	b = b.Normalized()
	data, err := ABI.Pack("createAccount", b.ChainID, b.TokenContract, b.TokenID, implementation)
	if err != nil {
		panic(err)
	}
	return data
}

// PackAccount builds account call data.
func PackAccount(implementation common.Address, b domain.TokenBinding) []byte {
	b = b.Normalized()
	data, err := ABI.Pack("account", b.ChainID, b.TokenContract, b.TokenID, implementation)
	if err != nil {
		panic(err)
	}
	return data
}

// UnpackAddress decodes the address returned by createAccount or account.
func UnpackAddress(method string, data []byte) (common.Address, error) {
	out, err := ABI.Unpack(method, data)
	if err != nil {
		return common.Address{}, fmt.Errorf("unpack %s: %w", method, err)
	}
	return out[0].(common.Address), nil
}
