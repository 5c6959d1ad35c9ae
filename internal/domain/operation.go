package domain

import (
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// Operation tags scope guardian approvals so an approval for one class of
// operation never authorizes another.
var (
	ExecuteOperationTag = crypto.Keccak256Hash([]byte("nftwallet.guardian.execute"))
	UpgradeOperationTag = crypto.Keccak256Hash([]byte("nftwallet.guardian.upgrade"))
)

var (
	bytes32Type, _ = abi.NewType("bytes32", "", nil)
	addressType, _ = abi.NewType("address", "", nil)
	uint256Type, _ = abi.NewType("uint256", "", nil)

	executeOperationArgs = abi.Arguments{
		{Type: bytes32Type}, {Type: addressType}, {Type: uint256Type},
		{Type: addressType}, {Type: addressType}, {Type: uint256Type}, {Type: bytes32Type},
	}
	upgradeOperationArgs = abi.Arguments{{Type: bytes32Type}, {Type: addressType}}
)

// ExecuteOperation is the guardian approval key for one executeCall. owner is
// the account's live owner (zero when the token has none) and nonce the
// account nonce before the call, so an approval is single-use and lapses when
// the token changes hands.
func ExecuteOperation(owner common.Address, nonce *big.Int, caller, to common.Address, value *big.Int, data []byte) common.Hash {
	packed, err := executeOperationArgs.Pack(
		[32]byte(ExecuteOperationTag), owner, orZero(nonce),
		caller, to, orZero(value), [32]byte(crypto.Keccak256Hash(data)),
	)
	if err != nil {
		panic(err)
	}
	return crypto.Keccak256Hash(packed)
}

// UpgradeOperation is the guardian approval key for a self-initiated upgrade.
func UpgradeOperation(newImplementation common.Address) common.Hash {
	packed, err := upgradeOperationArgs.Pack([32]byte(UpgradeOperationTag), newImplementation)
	if err != nil {
		panic(err)
	}
	return crypto.Keccak256Hash(packed)
}
