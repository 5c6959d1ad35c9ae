package account

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/trebuchet-org/nftwallet/internal/domain"
)

// PackExecuteCall builds executeCall(to, value, data) call data.
func PackExecuteCall(to common.Address, value *big.Int, data []byte) []byte {
	if value == nil {
		value = new(big.Int)
	}
	if data == nil {
		data = []byte{}
	}
	packed, err := ABI.Pack("executeCall", to, value, data)
	if err != nil {
		panic(err)
	}
	return packed
}

// Pack builds call data for an argument-less view such as token or owner.
func Pack(method string) []byte {
	packed, err := ABI.Pack(method)
	if err != nil {
		panic(err)
	}
	return packed
}

// UnpackToken decodes the result of token().
func UnpackToken(data []byte) (domain.TokenBinding, error) {
	out, err := ABI.Unpack("token", data)
	if err != nil {
		return domain.TokenBinding{}, fmt.Errorf("unpack token: %w", err)
	}
	return domain.TokenBinding{
		ChainID:       out[0].(*big.Int),
		TokenContract: out[1].(common.Address),
		TokenID:       out[2].(*big.Int),
	}, nil
}

// UnpackAddress decodes a single address result (owner, guardian, entryPoint).
func UnpackAddress(method string, data []byte) (common.Address, error) {
	out, err := ABI.Unpack(method, data)
	if err != nil {
		return common.Address{}, fmt.Errorf("unpack %s: %w", method, err)
	}
	return out[0].(common.Address), nil
}

// UnpackExecuteCall decodes the bytes returned by executeCall.
func UnpackExecuteCall(data []byte) ([]byte, error) {
	out, err := ABI.Unpack("executeCall", data)
	if err != nil {
		return nil, fmt.Errorf("unpack executeCall: %w", err)
	}
	return out[0].([]byte), nil
}

// UnpackNonce decodes the result of nonce().
func UnpackNonce(data []byte) (*big.Int, error) {
	out, err := ABI.Unpack("nonce", data)
	if err != nil {
		return nil, fmt.Errorf("unpack nonce: %w", err)
	}
	return out[0].(*big.Int), nil
}
