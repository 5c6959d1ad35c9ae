// Package iface holds the external interfaces contracts use to talk to each
// other, so that no contract package has to import another.
package iface

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/trebuchet-org/nftwallet/internal/evm"
)

// UserOperationTuple is the ERC-4337 v0.6 user operation tuple, shared by
// the account and entry point ABIs.
const UserOperationTuple = `{"name":"userOp","type":"tuple","internalType":"struct UserOperation","components":[
	{"name":"sender","type":"address"},
	{"name":"nonce","type":"uint256"},
	{"name":"initCode","type":"bytes"},
	{"name":"callData","type":"bytes"},
	{"name":"callGasLimit","type":"uint256"},
	{"name":"verificationGasLimit","type":"uint256"},
	{"name":"preVerificationGas","type":"uint256"},
	{"name":"maxFeePerGas","type":"uint256"},
	{"name":"maxPriorityFeePerGas","type":"uint256"},
	{"name":"paymasterAndData","type":"bytes"},
	{"name":"signature","type":"bytes"}]}`

var (
	IERC721 = evm.MustParseABI(`[
		{"type":"function","name":"ownerOf","inputs":[{"name":"tokenId","type":"uint256"}],"outputs":[{"name":"","type":"address"}],"stateMutability":"view"},
		{"type":"function","name":"balanceOf","inputs":[{"name":"owner","type":"address"}],"outputs":[{"name":"","type":"uint256"}],"stateMutability":"view"},
		{"type":"function","name":"transferFrom","inputs":[{"name":"from","type":"address"},{"name":"to","type":"address"},{"name":"tokenId","type":"uint256"}],"outputs":[],"stateMutability":"nonpayable"}
	]`)

	IERC721Receiver = evm.MustParseABI(`[
		{"type":"function","name":"onERC721Received","inputs":[{"name":"operator","type":"address"},{"name":"from","type":"address"},{"name":"tokenId","type":"uint256"},{"name":"data","type":"bytes"}],"outputs":[{"name":"","type":"bytes4"}],"stateMutability":"nonpayable"}
	]`)

	IERC165 = evm.MustParseABI(`[
		{"type":"function","name":"supportsInterface","inputs":[{"name":"interfaceId","type":"bytes4"}],"outputs":[{"name":"","type":"bool"}],"stateMutability":"view"}
	]`)

	IAccountGuardian = evm.MustParseABI(`[
		{"type":"function","name":"approve","inputs":[{"name":"operation","type":"bytes32"},{"name":"account","type":"address"}],"outputs":[{"name":"","type":"bool"}],"stateMutability":"view"}
	]`)

	IAccountProxy = evm.MustParseABI(`[
		{"type":"function","name":"upgradeTo","inputs":[{"name":"implementation","type":"address"}],"outputs":[],"stateMutability":"nonpayable"},
		{"type":"function","name":"implementation","inputs":[],"outputs":[{"name":"","type":"address"}],"stateMutability":"view"}
	]`)

	IAccount = evm.MustParseABI(`[
		{"type":"function","name":"initialize","inputs":[{"name":"chainId","type":"uint256"},{"name":"tokenContract","type":"address"},{"name":"tokenId","type":"uint256"}],"outputs":[],"stateMutability":"nonpayable"},
		{"type":"function","name":"token","inputs":[],"outputs":[{"name":"chainId","type":"uint256"},{"name":"tokenContract","type":"address"},{"name":"tokenId","type":"uint256"}],"stateMutability":"view"},
		{"type":"function","name":"owner","inputs":[],"outputs":[{"name":"","type":"address"}],"stateMutability":"view"},
		{"type":"function","name":"executeCall","inputs":[{"name":"to","type":"address"},{"name":"value","type":"uint256"},{"name":"data","type":"bytes"}],"outputs":[{"name":"result","type":"bytes"}],"stateMutability":"payable"},
		{"type":"function","name":"nonce","inputs":[],"outputs":[{"name":"","type":"uint256"}],"stateMutability":"view"},
		{"type":"function","name":"validateUserOp","inputs":[` + UserOperationTuple + `,{"name":"userOpHash","type":"bytes32"},{"name":"missingAccountFunds","type":"uint256"}],"outputs":[{"name":"validationData","type":"uint256"}],"stateMutability":"nonpayable"}
	]`)

	IERC6551Registry = evm.MustParseABI(`[
		{"type":"function","name":"createAccount","inputs":[{"name":"chainId","type":"uint256"},{"name":"tokenContract","type":"address"},{"name":"tokenId","type":"uint256"},{"name":"implementation","type":"address"}],"outputs":[{"name":"","type":"address"}],"stateMutability":"nonpayable"},
		{"type":"function","name":"account","inputs":[{"name":"chainId","type":"uint256"},{"name":"tokenContract","type":"address"},{"name":"tokenId","type":"uint256"},{"name":"implementation","type":"address"}],"outputs":[{"name":"","type":"address"}],"stateMutability":"view"}
	]`)
)

// Well-known ERC-165 interface ids and magic return values.
var (
	InterfaceIDERC165         = [4]byte{0x01, 0xff, 0xc9, 0xa7}
	InterfaceIDERC721         = [4]byte{0x80, 0xac, 0x58, 0xcd}
	InterfaceIDERC721Metadata = [4]byte{0x5b, 0x5e, 0x13, 0x9f}
	InterfaceIDERC721Receiver = [4]byte{0x15, 0x0b, 0x7a, 0x02}
	InterfaceIDERC1271        = [4]byte{0x16, 0x26, 0xba, 0x7e}
	ERC721ReceivedMagic       = InterfaceIDERC721Receiver
	ERC1271MagicValue         = InterfaceIDERC1271
	ERC1271InvalidSignature   = [4]byte{0xff, 0xff, 0xff, 0xff}
	SigValidationSucceeded    = big.NewInt(0)
	SigValidationFailed       = big.NewInt(1)
)

// AccountInterfaceID identifies the token-bound account surface.
var AccountInterfaceID = InterfaceID(
	IAccount.Methods["token"].ID,
	IAccount.Methods["owner"].ID,
	IAccount.Methods["executeCall"].ID,
	IAccount.Methods["nonce"].ID,
)

// InterfaceID xors the selectors of the named methods, as type(I).interfaceId does.
func InterfaceID(methods ...[]byte) [4]byte {
	var id [4]byte
	for _, sel := range methods {
		for i := range id {
			id[i] ^= sel[i]
		}
	}
	return id
}

// UserOperation is the ERC-4337 v0.6 user operation.
type UserOperation struct {
	Sender               common.Address
	Nonce                *big.Int
	InitCode             []byte
	CallData             []byte
	CallGasLimit         *big.Int
	VerificationGasLimit *big.Int
	PreVerificationGas   *big.Int
	MaxFeePerGas         *big.Int
	MaxPriorityFeePerGas *big.Int
	PaymasterAndData     []byte
	Signature            []byte
}

// Normalized replaces nil integers with zero so the operation can be packed.
func (op UserOperation) Normalized() UserOperation {
	for _, v := range []**big.Int{&op.Nonce, &op.CallGasLimit, &op.VerificationGasLimit, &op.PreVerificationGas, &op.MaxFeePerGas, &op.MaxPriorityFeePerGas} {
		if *v == nil {
			*v = new(big.Int)
		}
	}
	return op
}
