package proxy

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/trebuchet-org/nftwallet/internal/evm"
)

// ERC1967Proxy forwards every call to the implementation recorded in the
// ERC-1967 slot. It has no upgrade function of its own.
type ERC1967Proxy struct {
	implementation common.Address
	initData       []byte
}

// NewERC1967Proxy returns a proxy whose constructor delegatecalls initData
// into implementation when initData is not empty.
func NewERC1967Proxy(implementation common.Address, initData []byte) *ERC1967Proxy {
	return &ERC1967Proxy{implementation: implementation, initData: common.CopyBytes(initData)}
}

func (p *ERC1967Proxy) Name() string { return "ERC1967Proxy" }

func (p *ERC1967Proxy) Construct(env *evm.Env) error {
	if err := env.SetAddress(ImplementationSlot, p.implementation); err != nil {
		return err
	}
	if err := evm.EmitEvent(env, AccountProxyABI.Events["Upgraded"], p.implementation); err != nil {
		return err
	}
	if len(p.initData) == 0 {
		return nil
	}
	_, err := env.DelegateCall(p.implementation, p.initData)
	return err
}

func (p *ERC1967Proxy) Run(env *evm.Env, input []byte) ([]byte, error) {
	return env.DelegateCall(env.GetAddress(ImplementationSlot), input)
}
