// Package derive computes token-bound account addresses. Every function is
// pure: the address of an account is known before it is deployed.
package derive

import (
	"bytes"
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/trebuchet-org/nftwallet/internal/domain"
)

var (
	// EIP-1167 minimal proxy runtime around a 20-byte implementation address.
	clonePrefix = common.FromHex("0x363d3d373d3d3d363d73")
	cloneSuffix = common.FromHex("0x5af43d82803e903d91602b57fd5bf3")

	uint256Type, _ = abi.NewType("uint256", "", nil)
	addressType, _ = abi.NewType("address", "", nil)
	bindingArgs    = abi.Arguments{{Type: uint256Type}, {Type: addressType}, {Type: uint256Type}}
)

const (
	// FooterLength is the size of the ABI-encoded binding appended to the clone.
	FooterLength = 96
	// RuntimeLength is the size of a deployed account clone.
	RuntimeLength = 45 + FooterLength
	// creationLength is the size of the constructor prefix copying the runtime.
	creationLength = 10
)

// EncodeBinding returns abi.encode(uint256 chainId, address tokenContract, uint256 tokenId).
func EncodeBinding(b domain.TokenBinding) []byte {
	b = b.Normalized()
	packed, err := bindingArgs.Pack(b.ChainID, b.TokenContract, b.TokenID)
	if err != nil {
		panic(fmt.Errorf("encode binding: %w", err))
	}
	return packed
}

// DecodeBinding is the inverse of EncodeBinding.
func DecodeBinding(data []byte) (domain.TokenBinding, error) {
	out, err := bindingArgs.Unpack(data)
	if err != nil {
		return domain.TokenBinding{}, fmt.Errorf("decode binding: %w", err)
	}
	return domain.TokenBinding{
		ChainID:       out[0].(*big.Int),
		TokenContract: out[1].(common.Address),
		TokenID:       out[2].(*big.Int),
	}, nil
}

// Salt is keccak256 of the canonical binding encoding.
func Salt(b domain.TokenBinding) common.Hash {
	return crypto.Keccak256Hash(EncodeBinding(b))
}

// RuntimeCode is the code an account clone carries once deployed.
func RuntimeCode(implementation common.Address, b domain.TokenBinding) []byte {
	code := make([]byte, 0, RuntimeLength)
	code = append(code, clonePrefix...)
	code = append(code, implementation.Bytes()...)
	code = append(code, cloneSuffix...)
	return append(code, EncodeBinding(b)...)
}

// InitCode wraps RuntimeCode in a constructor returning it verbatim.
func InitCode(implementation common.Address, b domain.TokenBinding) []byte {
	runtime := RuntimeCode(implementation, b)
	code := []byte{0x3d, 0x60, byte(len(runtime)), 0x80, 0x60, creationLength, 0x3d, 0x39, 0x81, 0xf3}
	return append(code, runtime...)
}

func InitCodeHash(implementation common.Address, b domain.TokenBinding) common.Hash {
	return crypto.Keccak256Hash(InitCode(implementation, b))
}

// Create2Address is keccak256(0xff ++ deployer ++ salt ++ initCodeHash)[12:].
func Create2Address(deployer common.Address, salt, initCodeHash common.Hash) common.Address {
	return crypto.CreateAddress2(deployer, salt, initCodeHash.Bytes())
}

// Derivation is everything needed to predict and later verify an account.
type Derivation struct {
	Address        common.Address
	Salt           common.Hash
	InitCodeHash   common.Hash
	Registry       common.Address
	Implementation common.Address
	Binding        domain.TokenBinding
}

// Deriver predicts accounts deployed by one registry.
type Deriver struct {
	registry common.Address
}

func New(registry common.Address) *Deriver {
	return &Deriver{registry: registry}
}

func (d *Deriver) Registry() common.Address { return d.registry }

func (d *Deriver) Account(implementation common.Address, b domain.TokenBinding) Derivation {
	b = b.Normalized()
	salt := Salt(b)
	initHash := InitCodeHash(implementation, b)
	return Derivation{
		Address:        Create2Address(d.registry, salt, initHash),
		Salt:           salt,
		InitCodeHash:   initHash,
		Registry:       d.registry,
		Implementation: implementation,
		Binding:        b,
	}
}

// ParseClone recovers the implementation and binding from account runtime code.
func ParseClone(code []byte) (common.Address, domain.TokenBinding, error) {
	if len(code) != RuntimeLength {
		return common.Address{}, domain.TokenBinding{}, fmt.Errorf("clone code has %d bytes, want %d", len(code), RuntimeLength)
	}
	implEnd := len(clonePrefix) + common.AddressLength
	if !bytes.Equal(code[:len(clonePrefix)], clonePrefix) || !bytes.Equal(code[implEnd:implEnd+len(cloneSuffix)], cloneSuffix) {
		return common.Address{}, domain.TokenBinding{}, fmt.Errorf("code is not an account clone")
	}
	b, err := DecodeBinding(code[implEnd+len(cloneSuffix):])
	if err != nil {
		return common.Address{}, domain.TokenBinding{}, err
	}
	return common.BytesToAddress(code[len(clonePrefix):implEnd]), b, nil
}

// ParseInitCode recognises InitCode output and returns its runtime part.
func ParseInitCode(initCode []byte) (runtime []byte, implementation common.Address, b domain.TokenBinding, err error) {
	if len(initCode) != creationLength+RuntimeLength || initCode[0] != 0x3d || initCode[2] != RuntimeLength {
		return nil, common.Address{}, domain.TokenBinding{}, fmt.Errorf("init code is not an account clone constructor")
	}
	runtime = initCode[creationLength:]
	implementation, b, err = ParseClone(runtime)
	if err != nil {
		return nil, common.Address{}, domain.TokenBinding{}, err
	}
	return runtime, implementation, b, nil
}

// CodeReader is satisfied by ethclient.Client and evm.Host.
type CodeReader interface {
	CodeAt(ctx context.Context, account common.Address, blockNumber *big.Int) ([]byte, error)
}

// IsDeployed reports whether addr carries code at the latest block.
func IsDeployed(ctx context.Context, r CodeReader, addr common.Address) (bool, error) {
	code, err := r.CodeAt(ctx, addr, nil)
	if err != nil {
		return false, fmt.Errorf("failed to get code at %s: %w", addr.Hex(), err)
	}
	return len(code) > 0, nil
}
