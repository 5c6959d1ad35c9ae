// Package entrypoint implements a simplified ERC-4337 v0.6 entry point.
// Gas is not metered, so there is no fee accounting or compensation.
package entrypoint

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/trebuchet-org/nftwallet/internal/contracts/iface"
	"github.com/trebuchet-org/nftwallet/internal/evm"
)

var opsTuple = strings.Replace(iface.UserOperationTuple, `"name":"userOp","type":"tuple"`, `"name":"ops","type":"tuple[]"`, 1)

var ABI = evm.MustParseABI(`[
	{"type":"function","name":"handleOps","inputs":[` + opsTuple + `,{"name":"beneficiary","type":"address"}],"outputs":[],"stateMutability":"nonpayable"},
	{"type":"function","name":"getUserOpHash","inputs":[` + iface.UserOperationTuple + `],"outputs":[{"name":"","type":"bytes32"}],"stateMutability":"view"},
	{"type":"function","name":"getNonce","inputs":[{"name":"sender","type":"address"}],"outputs":[{"name":"","type":"uint256"}],"stateMutability":"view"},
	{"type":"function","name":"balanceOf","inputs":[{"name":"account","type":"address"}],"outputs":[{"name":"","type":"uint256"}],"stateMutability":"view"},
	{"type":"event","name":"UserOperationEvent","inputs":[{"name":"userOpHash","type":"bytes32","indexed":true},{"name":"sender","type":"address","indexed":true},{"name":"paymaster","type":"address","indexed":true},{"name":"nonce","type":"uint256","indexed":false},{"name":"success","type":"bool","indexed":false},{"name":"actualGasCost","type":"uint256","indexed":false},{"name":"actualGasUsed","type":"uint256","indexed":false}],"anonymous":false},
	{"type":"event","name":"UserOperationRevertReason","inputs":[{"name":"userOpHash","type":"bytes32","indexed":true},{"name":"sender","type":"address","indexed":true},{"name":"nonce","type":"uint256","indexed":false},{"name":"revertReason","type":"bytes","indexed":false}],"anonymous":false},
	{"type":"event","name":"AccountDeployed","inputs":[{"name":"userOpHash","type":"bytes32","indexed":true},{"name":"sender","type":"address","indexed":true},{"name":"factory","type":"address","indexed":false},{"name":"paymaster","type":"address","indexed":false}],"anonymous":false},
	{"type":"event","name":"Deposited","inputs":[{"name":"account","type":"address","indexed":true},{"name":"totalDeposit","type":"uint256","indexed":false}],"anonymous":false}
]`)

var (
	noncesSlot   = evm.Slot("nftwallet.entrypoint.nonces")
	depositsSlot = evm.Slot("nftwallet.entrypoint.deposits")
)

// FailedOpError aborts the whole bundle when an operation fails validation.
type FailedOpError struct {
	OpIndex int
	Reason  string
	Err     error
}

func (e *FailedOpError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("FailedOp(%d, %q): %v", e.OpIndex, e.Reason, e.Err)
	}
	return fmt.Sprintf("FailedOp(%d, %q)", e.OpIndex, e.Reason)
}

func (e *FailedOpError) Unwrap() error { return e.Err }

type EntryPoint struct {
	d *evm.Dispatcher
}

func New() *EntryPoint {
	ep := &EntryPoint{}
	ep.d = evm.NewDispatcher(ABI).
		On("handleOps", ep.handleOps).
		On("getUserOpHash", func(env *evm.Env, args []interface{}) ([]interface{}, error) {
			op := *abi.ConvertType(args[0], new(iface.UserOperation)).(*iface.UserOperation)
			return []interface{}{[32]byte(UserOpHash(op, env.Address(), env.ChainID()))}, nil
		}).
		On("getNonce", func(env *evm.Env, args []interface{}) ([]interface{}, error) {
			return []interface{}{env.GetBig(nonceSlot(args[0].(common.Address)))}, nil
		}).
		On("balanceOf", func(env *evm.Env, args []interface{}) ([]interface{}, error) {
			return []interface{}{env.GetBig(depositSlot(args[0].(common.Address)))}, nil
		}).
		OnReceive(ep.deposit)
	return ep
}

func (ep *EntryPoint) Name() string { return "EntryPoint" }

func (ep *EntryPoint) Run(env *evm.Env, input []byte) ([]byte, error) {
	return ep.d.Dispatch(env, input)
}

func nonceSlot(sender common.Address) common.Hash {
	return evm.MappingSlot(noncesSlot, evm.AddressKey(sender))
}

func depositSlot(account common.Address) common.Hash {
	return evm.MappingSlot(depositsSlot, evm.AddressKey(account))
}

func (ep *EntryPoint) deposit(env *evm.Env) error {
	total := new(big.Int).Add(env.GetBig(depositSlot(env.Caller())), env.Value().ToBig())
	if err := env.SetBig(depositSlot(env.Caller()), total); err != nil {
		return err
	}
	return evm.EmitEvent(env, ABI.Events["Deposited"], env.Caller(), total)
}

var (
	bytes32Type, _ = abi.NewType("bytes32", "", nil)
	addressType, _ = abi.NewType("address", "", nil)
	uint256Type, _ = abi.NewType("uint256", "", nil)

	packedOpArgs = abi.Arguments{
		{Type: addressType}, {Type: uint256Type}, {Type: bytes32Type}, {Type: bytes32Type},
		{Type: uint256Type}, {Type: uint256Type}, {Type: uint256Type}, {Type: uint256Type}, {Type: uint256Type},
		{Type: bytes32Type},
	}
	opHashArgs = abi.Arguments{{Type: bytes32Type}, {Type: addressType}, {Type: uint256Type}}
)

// UserOpHash computes the v0.6 user operation hash signed by account owners.
func UserOpHash(op iface.UserOperation, entryPoint common.Address, chainID *big.Int) common.Hash {
	op = op.Normalized()
	packed, err := packedOpArgs.Pack(
		op.Sender, op.Nonce,
		[32]byte(crypto.Keccak256Hash(op.InitCode)), [32]byte(crypto.Keccak256Hash(op.CallData)),
		op.CallGasLimit, op.VerificationGasLimit, op.PreVerificationGas, op.MaxFeePerGas, op.MaxPriorityFeePerGas,
		[32]byte(crypto.Keccak256Hash(op.PaymasterAndData)),
	)
	if err != nil {
		panic(err)
	}
	outer, err := opHashArgs.Pack([32]byte(crypto.Keccak256Hash(packed)), entryPoint, chainID)
	if err != nil {
		panic(err)
	}
	return crypto.Keccak256Hash(outer)
}

func (ep *EntryPoint) handleOps(env *evm.Env, args []interface{}) ([]interface{}, error) {
	ops := *abi.ConvertType(args[0], new([]iface.UserOperation)).(*[]iface.UserOperation)
	for i, op := range ops {
		if err := ep.handleOp(env, i, op.Normalized()); err != nil {
			return nil, err
		}
	}
	return nil, nil
}

func (ep *EntryPoint) handleOp(env *evm.Env, index int, op iface.UserOperation) error {
	hash := UserOpHash(op, env.Address(), env.ChainID())
	log := env.Logger().With("component", "entrypoint", "sender", op.Sender.Hex(), "op", index)

	if len(op.InitCode) > 0 {
		if err := ep.deploySender(env, index, hash, op); err != nil {
			return err
		}
	}
	if !env.HasCode(op.Sender) {
		return &FailedOpError{OpIndex: index, Reason: "AA20 account not deployed"}
	}

	expected := env.GetBig(nonceSlot(op.Sender))
	if op.Nonce.Cmp(expected) != 0 {
		return &FailedOpError{OpIndex: index, Reason: "AA25 invalid account nonce"}
	}
	if err := env.SetBig(nonceSlot(op.Sender), new(big.Int).Add(expected, big.NewInt(1))); err != nil {
		return err
	}

	out, err := evm.CallMethod(env, op.Sender, nil, iface.IAccount.Methods["validateUserOp"], op, [32]byte(hash), new(big.Int))
	if err != nil {
		return &FailedOpError{OpIndex: index, Reason: "AA23 reverted", Err: err}
	}
	if out[0].(*big.Int).Sign() != 0 {
		return &FailedOpError{OpIndex: index, Reason: "AA24 signature error"}
	}

	success := true
	if _, err := env.Call(op.Sender, nil, op.CallData); err != nil {
		success = false
		log.Debug("user operation reverted", "error", err)
		if err := evm.EmitEvent(env, ABI.Events["UserOperationRevertReason"], [32]byte(hash), op.Sender, op.Nonce, []byte(err.Error())); err != nil {
			return err
		}
	}
	return evm.EmitEvent(env, ABI.Events["UserOperationEvent"],
		[32]byte(hash), op.Sender, paymaster(op), op.Nonce, success, new(big.Int), new(big.Int))
}

func (ep *EntryPoint) deploySender(env *evm.Env, index int, hash common.Hash, op iface.UserOperation) error {
	if env.HasCode(op.Sender) {
		return &FailedOpError{OpIndex: index, Reason: "AA10 sender already constructed"}
	}
	if len(op.InitCode) < common.AddressLength {
		return &FailedOpError{OpIndex: index, Reason: "AA13 initCode failed or OOG"}
	}
	factory := common.BytesToAddress(op.InitCode[:common.AddressLength])
	ret, err := env.Call(factory, nil, op.InitCode[common.AddressLength:])
	if err != nil {
		return &FailedOpError{OpIndex: index, Reason: "AA13 initCode failed or OOG", Err: err}
	}
	if len(ret) < common.HashLength || common.BytesToAddress(ret[:common.HashLength]) != op.Sender {
		return &FailedOpError{OpIndex: index, Reason: "AA14 initCode must return sender"}
	}
	return evm.EmitEvent(env, ABI.Events["AccountDeployed"], [32]byte(hash), op.Sender, factory, paymaster(op))
}

func paymaster(op iface.UserOperation) common.Address {
	if len(op.PaymasterAndData) < common.AddressLength {
		return common.Address{}
	}
	return common.BytesToAddress(op.PaymasterAndData[:common.AddressLength])
}

// PackHandleOps builds handleOps call data.
func PackHandleOps(ops []iface.UserOperation, beneficiary common.Address) ([]byte, error) {
	normalized := make([]iface.UserOperation, len(ops))
	for i, op := range ops {
		normalized[i] = op.Normalized()
	}
	return ABI.Pack("handleOps", normalized, beneficiary)
}
