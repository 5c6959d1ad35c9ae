package proxy

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
)

// PackImplementation builds implementation() call data.
func PackImplementation() []byte {
	data, err := AccountProxyABI.Pack("implementation")
	if err != nil {
		panic(err)
	}
	return data
}

// UnpackImplementation decodes the address returned by implementation().
func UnpackImplementation(data []byte) (common.Address, error) {
	out, err := AccountProxyABI.Unpack("implementation", data)
	if err != nil {
		return common.Address{}, fmt.Errorf("unpack implementation: %w", err)
	}
	return out[0].(common.Address), nil
}

// PackUpgradeTo builds upgradeTo(implementation) call data.
func PackUpgradeTo(implementation common.Address) []byte {
	data, err := AccountProxyABI.Pack("upgradeTo", implementation)
	if err != nil {
		panic(err)
	}
	return data
}
