// Package guardian implements the AccountGuardian: an owner-administered
// approval oracle accounts consult for relayed and recovery operations.
package guardian

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/trebuchet-org/nftwallet/internal/contracts/iface"
	"github.com/trebuchet-org/nftwallet/internal/domain"
	"github.com/trebuchet-org/nftwallet/internal/evm"
)

var ABI = evm.MustParseABI(`[
	{"type":"function","name":"approve","inputs":[{"name":"operation","type":"bytes32"},{"name":"account","type":"address"}],"outputs":[{"name":"","type":"bool"}],"stateMutability":"view"},
	{"type":"function","name":"setApproval","inputs":[{"name":"operation","type":"bytes32"},{"name":"account","type":"address"},{"name":"approved","type":"bool"}],"outputs":[],"stateMutability":"nonpayable"},
	{"type":"function","name":"upgradeAccount","inputs":[{"name":"account","type":"address"},{"name":"implementation","type":"address"}],"outputs":[],"stateMutability":"nonpayable"},
	{"type":"function","name":"owner","inputs":[],"outputs":[{"name":"","type":"address"}],"stateMutability":"view"},
	{"type":"function","name":"transferOwnership","inputs":[{"name":"newOwner","type":"address"}],"outputs":[],"stateMutability":"nonpayable"},
	{"type":"event","name":"ApprovalSet","inputs":[{"name":"operation","type":"bytes32","indexed":true},{"name":"account","type":"address","indexed":true},{"name":"approved","type":"bool","indexed":false}],"anonymous":false},
	{"type":"event","name":"OwnershipTransferred","inputs":[{"name":"previousOwner","type":"address","indexed":true},{"name":"newOwner","type":"address","indexed":true}],"anonymous":false}
]`)

var (
	ownerSlot     = evm.Slot("nftwallet.guardian.owner")
	approvalsSlot = evm.Slot("nftwallet.guardian.approvals")
)

// Guardian is deployed by its initial owner.
type Guardian struct {
	d *evm.Dispatcher
}

func New() *Guardian {
	g := &Guardian{}
	g.d = evm.NewDispatcher(ABI).
		On("approve", g.approve).
		On("setApproval", g.setApproval).
		On("upgradeAccount", g.upgradeAccount).
		On("owner", g.owner).
		On("transferOwnership", g.transferOwnership)
	return g
}

func (g *Guardian) Name() string { return "AccountGuardian" }

func (g *Guardian) Construct(env *evm.Env) error {
	return g.setOwner(env, env.Caller())
}

func (g *Guardian) Run(env *evm.Env, input []byte) ([]byte, error) {
	return g.d.Dispatch(env, input)
}

func approvalSlot(operation common.Hash, account common.Address) common.Hash {
	return evm.MappingSlot(approvalsSlot, evm.AddressKey(account), operation)
}

// approve answers for the account first, then for the zero-address wildcard.
func (g *Guardian) approve(env *evm.Env, args []interface{}) ([]interface{}, error) {
	operation := common.Hash(args[0].([32]byte))
	account := args[1].(common.Address)
	approved := env.GetBool(approvalSlot(operation, account)) ||
		env.GetBool(approvalSlot(operation, common.Address{}))
	return []interface{}{approved}, nil
}

func (g *Guardian) onlyOwner(env *evm.Env) error {
	if env.Caller() != env.GetAddress(ownerSlot) {
		return &domain.AuthorizationError{Caller: env.Caller(), Account: env.Address()}
	}
	return nil
}

func (g *Guardian) setApproval(env *evm.Env, args []interface{}) ([]interface{}, error) {
	if err := g.onlyOwner(env); err != nil {
		return nil, err
	}
	operation := common.Hash(args[0].([32]byte))
	account := args[1].(common.Address)
	approved := args[2].(bool)
	if err := env.SetBool(approvalSlot(operation, account), approved); err != nil {
		return nil, err
	}
	return nil, evm.EmitEvent(env, ABI.Events["ApprovalSet"], [32]byte(operation), account, approved)
}

// upgradeAccount is the recovery path: the guardian is the proxy admin and
// may move any account to a new implementation.
func (g *Guardian) upgradeAccount(env *evm.Env, args []interface{}) ([]interface{}, error) {
	if err := g.onlyOwner(env); err != nil {
		return nil, err
	}
	account := args[0].(common.Address)
	implementation := args[1].(common.Address)
	if _, err := evm.CallMethod(env, account, nil, iface.IAccountProxy.Methods["upgradeTo"], implementation); err != nil {
		return nil, fmt.Errorf("upgrade %s: %w", account.Hex(), err)
	}
	return nil, nil
}

func (g *Guardian) owner(env *evm.Env, _ []interface{}) ([]interface{}, error) {
	return []interface{}{env.GetAddress(ownerSlot)}, nil
}

func (g *Guardian) transferOwnership(env *evm.Env, args []interface{}) ([]interface{}, error) {
	if err := g.onlyOwner(env); err != nil {
		return nil, err
	}
	newOwner := args[0].(common.Address)
	if newOwner == (common.Address{}) {
		return nil, fmt.Errorf("new owner is the zero address: %w", domain.ErrInvalidAddress)
	}
	return nil, g.setOwner(env, newOwner)
}

func (g *Guardian) setOwner(env *evm.Env, newOwner common.Address) error {
	previous := env.GetAddress(ownerSlot)
	if err := env.SetAddress(ownerSlot, newOwner); err != nil {
		return err
	}
	return evm.EmitEvent(env, ABI.Events["OwnershipTransferred"], previous, newOwner)
}
