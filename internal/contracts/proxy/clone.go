package proxy

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/trebuchet-org/nftwallet/internal/derive"
	"github.com/trebuchet-org/nftwallet/internal/evm"
)

// Clone is the EIP-1167 minimal proxy deployed for each token.
type Clone struct {
	Implementation common.Address
}

func (c *Clone) Name() string { return "Clone" }

func (c *Clone) Run(env *evm.Env, input []byte) ([]byte, error) {
	return env.DelegateCall(c.Implementation, input)
}

// CloneLoader lets the host deploy account clones from their init code.
var CloneLoader = evm.CodeLoaderFunc(func(initCode []byte) ([]byte, evm.Contract, bool) {
	runtime, impl, _, err := derive.ParseInitCode(initCode)
	if err != nil {
		return nil, nil, false
	}
	return runtime, &Clone{Implementation: impl}, true
})
