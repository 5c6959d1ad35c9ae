package token

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/params"
	"github.com/trebuchet-org/nftwallet/internal/domain"
	"github.com/trebuchet-org/nftwallet/internal/evm"
)

var ERC20ABI = evm.MustParseABI(`[
	{"type":"function","name":"mint","inputs":[],"outputs":[],"stateMutability":"nonpayable"},
	{"type":"function","name":"name","inputs":[],"outputs":[{"name":"","type":"string"}],"stateMutability":"view"},
	{"type":"function","name":"symbol","inputs":[],"outputs":[{"name":"","type":"string"}],"stateMutability":"view"},
	{"type":"function","name":"decimals","inputs":[],"outputs":[{"name":"","type":"uint8"}],"stateMutability":"view"},
	{"type":"function","name":"totalSupply","inputs":[],"outputs":[{"name":"","type":"uint256"}],"stateMutability":"view"},
	{"type":"function","name":"balanceOf","inputs":[{"name":"account","type":"address"}],"outputs":[{"name":"","type":"uint256"}],"stateMutability":"view"},
	{"type":"function","name":"allowance","inputs":[{"name":"owner","type":"address"},{"name":"spender","type":"address"}],"outputs":[{"name":"","type":"uint256"}],"stateMutability":"view"},
	{"type":"function","name":"approve","inputs":[{"name":"spender","type":"address"},{"name":"amount","type":"uint256"}],"outputs":[{"name":"","type":"bool"}],"stateMutability":"nonpayable"},
	{"type":"function","name":"transfer","inputs":[{"name":"to","type":"address"},{"name":"amount","type":"uint256"}],"outputs":[{"name":"","type":"bool"}],"stateMutability":"nonpayable"},
	{"type":"function","name":"transferFrom","inputs":[{"name":"from","type":"address"},{"name":"to","type":"address"},{"name":"amount","type":"uint256"}],"outputs":[{"name":"","type":"bool"}],"stateMutability":"nonpayable"},
	{"type":"event","name":"Transfer","inputs":[{"name":"from","type":"address","indexed":true},{"name":"to","type":"address","indexed":true},{"name":"value","type":"uint256","indexed":false}],"anonymous":false},
	{"type":"event","name":"Approval","inputs":[{"name":"owner","type":"address","indexed":true},{"name":"spender","type":"address","indexed":true},{"name":"value","type":"uint256","indexed":false}],"anonymous":false}
]`)

const (
	ERC20Name     = "MockERC20"
	ERC20Symbol   = "MOCK"
	ERC20Decimals = 18
)

// MintAmount is what every mint() call credits: 10000 tokens.
var MintAmount = new(big.Int).Mul(big.NewInt(10000), big.NewInt(params.Ether))

var (
	erc20SupplySlot     = evm.Slot("nftwallet.erc20.totalSupply")
	erc20BalancesSlot   = evm.Slot("nftwallet.erc20.balances")
	erc20AllowancesSlot = evm.Slot("nftwallet.erc20.allowances")
)

// MockERC20 is an ERC-20 with an open faucet.
type MockERC20 struct {
	d *evm.Dispatcher
}

func NewMockERC20() *MockERC20 {
	t := &MockERC20{}
	t.d = evm.NewDispatcher(ERC20ABI).
		On("mint", t.mint).
		On("name", constant(ERC20Name)).
		On("symbol", constant(ERC20Symbol)).
		On("decimals", constant(uint8(ERC20Decimals))).
		On("totalSupply", bigGetter(erc20SupplySlot)).
		On("balanceOf", func(env *evm.Env, args []interface{}) ([]interface{}, error) {
			return []interface{}{env.GetBig(erc20BalanceSlot(args[0].(common.Address)))}, nil
		}).
		On("allowance", func(env *evm.Env, args []interface{}) ([]interface{}, error) {
			return []interface{}{env.GetBig(allowanceSlot(args[0].(common.Address), args[1].(common.Address)))}, nil
		}).
		On("approve", t.approve).
		On("transfer", t.transfer).
		On("transferFrom", t.transferFrom)
	return t
}

func (t *MockERC20) Name() string { return ERC20Name }

func (t *MockERC20) Run(env *evm.Env, input []byte) ([]byte, error) {
	return t.d.Dispatch(env, input)
}

func erc20BalanceSlot(owner common.Address) common.Hash {
	return evm.MappingSlot(erc20BalancesSlot, evm.AddressKey(owner))
}

func allowanceSlot(owner, spender common.Address) common.Hash {
	return evm.MappingSlot(erc20AllowancesSlot, evm.AddressKey(owner), evm.AddressKey(spender))
}

func (t *MockERC20) mint(env *evm.Env, _ []interface{}) ([]interface{}, error) {
	to := env.Caller()
	if err := env.SetBig(erc20SupplySlot, new(big.Int).Add(env.GetBig(erc20SupplySlot), MintAmount)); err != nil {
		return nil, err
	}
	if err := env.SetBig(erc20BalanceSlot(to), new(big.Int).Add(env.GetBig(erc20BalanceSlot(to)), MintAmount)); err != nil {
		return nil, err
	}
	return nil, evm.EmitEvent(env, ERC20ABI.Events["Transfer"], common.Address{}, to, MintAmount)
}

func (t *MockERC20) move(env *evm.Env, from, to common.Address, amount *big.Int) error {
	if to == (common.Address{}) {
		return fmt.Errorf("transfer to the zero address: %w", domain.ErrInvalidAddress)
	}
	balance := env.GetBig(erc20BalanceSlot(from))
	if balance.Cmp(amount) < 0 {
		return fmt.Errorf("%w: %s has %s, needs %s", domain.ErrInsufficientBalance, from.Hex(), balance, amount)
	}
	if err := env.SetBig(erc20BalanceSlot(from), new(big.Int).Sub(balance, amount)); err != nil {
		return err
	}
	if err := env.SetBig(erc20BalanceSlot(to), new(big.Int).Add(env.GetBig(erc20BalanceSlot(to)), amount)); err != nil {
		return err
	}
	return evm.EmitEvent(env, ERC20ABI.Events["Transfer"], from, to, amount)
}

func (t *MockERC20) approve(env *evm.Env, args []interface{}) ([]interface{}, error) {
	spender, amount := args[0].(common.Address), args[1].(*big.Int)
	if err := env.SetBig(allowanceSlot(env.Caller(), spender), amount); err != nil {
		return nil, err
	}
	if err := evm.EmitEvent(env, ERC20ABI.Events["Approval"], env.Caller(), spender, amount); err != nil {
		return nil, err
	}
	return []interface{}{true}, nil
}

func (t *MockERC20) transfer(env *evm.Env, args []interface{}) ([]interface{}, error) {
	if err := t.move(env, env.Caller(), args[0].(common.Address), args[1].(*big.Int)); err != nil {
		return nil, err
	}
	return []interface{}{true}, nil
}

func (t *MockERC20) transferFrom(env *evm.Env, args []interface{}) ([]interface{}, error) {
	from, to, amount := args[0].(common.Address), args[1].(common.Address), args[2].(*big.Int)
	slot := allowanceSlot(from, env.Caller())
	allowance := env.GetBig(slot)
	if allowance.Cmp(amount) < 0 {
		return nil, fmt.Errorf("%w: %s allowed %s, needs %s", domain.ErrInsufficientAllowance, env.Caller().Hex(), allowance, amount)
	}
	if err := env.SetBig(slot, new(big.Int).Sub(allowance, amount)); err != nil {
		return nil, err
	}
	if err := t.move(env, from, to, amount); err != nil {
		return nil, err
	}
	return []interface{}{true}, nil
}
