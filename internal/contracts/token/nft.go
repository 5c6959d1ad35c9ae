// Package token implements the collaborators of the account system: an
// ERC-721 collection that mints every token together with its account, and
// a mock ERC-20 for exercising accounts.
package token

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/trebuchet-org/nftwallet/internal/contracts/iface"
	"github.com/trebuchet-org/nftwallet/internal/domain"
	"github.com/trebuchet-org/nftwallet/internal/evm"
)

const (
	NFTName   = "ERC6551Test"
	NFTSymbol = "E6551"
)

var NFTABI = evm.MustParseABI(`[
	{"type":"function","name":"initialize","inputs":[{"name":"registry","type":"address"},{"name":"implementation","type":"address"},{"name":"baseURI","type":"string"},{"name":"chainId","type":"uint256"}],"outputs":[],"stateMutability":"nonpayable"},
	{"type":"function","name":"mintNFTwithWallet","inputs":[{"name":"to","type":"address"}],"outputs":[{"name":"tokenId","type":"uint256"},{"name":"account","type":"address"}],"stateMutability":"nonpayable"},
	{"type":"function","name":"ownerOf","inputs":[{"name":"tokenId","type":"uint256"}],"outputs":[{"name":"","type":"address"}],"stateMutability":"view"},
	{"type":"function","name":"balanceOf","inputs":[{"name":"owner","type":"address"}],"outputs":[{"name":"","type":"uint256"}],"stateMutability":"view"},
	{"type":"function","name":"approve","inputs":[{"name":"to","type":"address"},{"name":"tokenId","type":"uint256"}],"outputs":[],"stateMutability":"nonpayable"},
	{"type":"function","name":"getApproved","inputs":[{"name":"tokenId","type":"uint256"}],"outputs":[{"name":"","type":"address"}],"stateMutability":"view"},
	{"type":"function","name":"setApprovalForAll","inputs":[{"name":"operator","type":"address"},{"name":"approved","type":"bool"}],"outputs":[],"stateMutability":"nonpayable"},
	{"type":"function","name":"isApprovedForAll","inputs":[{"name":"owner","type":"address"},{"name":"operator","type":"address"}],"outputs":[{"name":"","type":"bool"}],"stateMutability":"view"},
	{"type":"function","name":"transferFrom","inputs":[{"name":"from","type":"address"},{"name":"to","type":"address"},{"name":"tokenId","type":"uint256"}],"outputs":[],"stateMutability":"nonpayable"},
	{"type":"function","name":"safeTransferFrom","inputs":[{"name":"from","type":"address"},{"name":"to","type":"address"},{"name":"tokenId","type":"uint256"}],"outputs":[],"stateMutability":"nonpayable"},
	{"type":"function","name":"safeTransferFrom","inputs":[{"name":"from","type":"address"},{"name":"to","type":"address"},{"name":"tokenId","type":"uint256"},{"name":"data","type":"bytes"}],"outputs":[],"stateMutability":"nonpayable"},
	{"type":"function","name":"burn","inputs":[{"name":"tokenId","type":"uint256"}],"outputs":[],"stateMutability":"nonpayable"},
	{"type":"function","name":"tokenURI","inputs":[{"name":"tokenId","type":"uint256"}],"outputs":[{"name":"","type":"string"}],"stateMutability":"view"},
	{"type":"function","name":"baseURI","inputs":[],"outputs":[{"name":"","type":"string"}],"stateMutability":"view"},
	{"type":"function","name":"name","inputs":[],"outputs":[{"name":"","type":"string"}],"stateMutability":"view"},
	{"type":"function","name":"symbol","inputs":[],"outputs":[{"name":"","type":"string"}],"stateMutability":"view"},
	{"type":"function","name":"erc6551Registry","inputs":[],"outputs":[{"name":"","type":"address"}],"stateMutability":"view"},
	{"type":"function","name":"erc6551AccountImplementation","inputs":[],"outputs":[{"name":"","type":"address"}],"stateMutability":"view"},
	{"type":"function","name":"chainId","inputs":[],"outputs":[{"name":"","type":"uint256"}],"stateMutability":"view"},
	{"type":"function","name":"totalSupply","inputs":[],"outputs":[{"name":"","type":"uint256"}],"stateMutability":"view"},
	{"type":"function","name":"supportsInterface","inputs":[{"name":"interfaceId","type":"bytes4"}],"outputs":[{"name":"","type":"bool"}],"stateMutability":"view"},
	{"type":"event","name":"Transfer","inputs":[{"name":"from","type":"address","indexed":true},{"name":"to","type":"address","indexed":true},{"name":"tokenId","type":"uint256","indexed":true}],"anonymous":false},
	{"type":"event","name":"Approval","inputs":[{"name":"owner","type":"address","indexed":true},{"name":"approved","type":"address","indexed":true},{"name":"tokenId","type":"uint256","indexed":true}],"anonymous":false},
	{"type":"event","name":"ApprovalForAll","inputs":[{"name":"owner","type":"address","indexed":true},{"name":"operator","type":"address","indexed":true},{"name":"approved","type":"bool","indexed":false}],"anonymous":false},
	{"type":"event","name":"MintNFTWallet","inputs":[{"name":"tokenId","type":"uint256","indexed":false},{"name":"chainId","type":"uint256","indexed":false},{"name":"tokenContract","type":"address","indexed":false},{"name":"account","type":"address","indexed":false}],"anonymous":false}
]`)

var (
	nftInitializedSlot = evm.Slot("nftwallet.nft.initialized")
	nftRegistrySlot    = evm.Slot("nftwallet.nft.registry")
	nftImplSlot        = evm.Slot("nftwallet.nft.implementation")
	nftBaseURISlot     = evm.Slot("nftwallet.nft.baseURI")
	nftChainIDSlot     = evm.Slot("nftwallet.nft.chainId")
	nftNextIDSlot      = evm.Slot("nftwallet.nft.nextTokenId")
	nftSupplySlot      = evm.Slot("nftwallet.nft.totalSupply")
	nftOwnersSlot      = evm.Slot("nftwallet.nft.owners")
	nftBalancesSlot    = evm.Slot("nftwallet.nft.balances")
	nftApprovalsSlot   = evm.Slot("nftwallet.nft.tokenApprovals")
	nftOperatorsSlot   = evm.Slot("nftwallet.nft.operatorApprovals")
)

// NFT is the collection logic. It is deployed behind an ERC1967Proxy and
// initialized through the proxy constructor.
type NFT struct {
	d *evm.Dispatcher
}

func NewNFT() *NFT {
	n := &NFT{}
	n.d = evm.NewDispatcher(NFTABI).
		On("initialize", n.initialize).
		On("mintNFTwithWallet", n.mintNFTwithWallet).
		On("ownerOf", n.ownerOf).
		On("balanceOf", n.balanceOf).
		On("approve", n.approve).
		On("getApproved", n.getApproved).
		On("setApprovalForAll", n.setApprovalForAll).
		On("isApprovedForAll", func(env *evm.Env, args []interface{}) ([]interface{}, error) {
			return []interface{}{isOperator(env, args[0].(common.Address), args[1].(common.Address))}, nil
		}).
		On("transferFrom", n.transferFrom).
		On("safeTransferFrom", n.safeTransferFrom).
		On("safeTransferFrom0", n.safeTransferFrom).
		On("burn", n.burn).
		On("tokenURI", n.tokenURI).
		On("baseURI", stringGetter(nftBaseURISlot)).
		On("name", constant(NFTName)).
		On("symbol", constant(NFTSymbol)).
		On("erc6551Registry", addressGetter(nftRegistrySlot)).
		On("erc6551AccountImplementation", addressGetter(nftImplSlot)).
		On("chainId", bigGetter(nftChainIDSlot)).
		On("totalSupply", bigGetter(nftSupplySlot)).
		On("supportsInterface", func(env *evm.Env, args []interface{}) ([]interface{}, error) {
			switch args[0].([4]byte) {
			case iface.InterfaceIDERC165, iface.InterfaceIDERC721, iface.InterfaceIDERC721Metadata:
				return []interface{}{true}, nil
			}
			return []interface{}{false}, nil
		})
	return n
}

func (n *NFT) Name() string { return NFTName }

func (n *NFT) Run(env *evm.Env, input []byte) ([]byte, error) {
	return n.d.Dispatch(env, input)
}

func constant(v interface{}) evm.Handler {
	return func(*evm.Env, []interface{}) ([]interface{}, error) { return []interface{}{v}, nil }
}

func addressGetter(slot common.Hash) evm.Handler {
	return func(env *evm.Env, _ []interface{}) ([]interface{}, error) {
		return []interface{}{env.GetAddress(slot)}, nil
	}
}

func bigGetter(slot common.Hash) evm.Handler {
	return func(env *evm.Env, _ []interface{}) ([]interface{}, error) {
		return []interface{}{env.GetBig(slot)}, nil
	}
}

func stringGetter(slot common.Hash) evm.Handler {
	return func(env *evm.Env, _ []interface{}) ([]interface{}, error) {
		return []interface{}{env.GetString(slot)}, nil
	}
}

func (n *NFT) initialize(env *evm.Env, args []interface{}) ([]interface{}, error) {
	if env.GetBool(nftInitializedSlot) {
		return nil, domain.ErrAlreadyInitialized
	}
	if err := env.SetBool(nftInitializedSlot, true); err != nil {
		return nil, err
	}
	if err := env.SetAddress(nftRegistrySlot, args[0].(common.Address)); err != nil {
		return nil, err
	}
	if err := env.SetAddress(nftImplSlot, args[1].(common.Address)); err != nil {
		return nil, err
	}
	if err := env.SetString(nftBaseURISlot, args[2].(string)); err != nil {
		return nil, err
	}
	return nil, env.SetBig(nftChainIDSlot, args[3].(*big.Int))
}

func ownerSlot(tokenID *big.Int) common.Hash {
	return evm.MappingSlot(nftOwnersSlot, evm.BigKey(tokenID))
}

func balanceSlot(owner common.Address) common.Hash {
	return evm.MappingSlot(nftBalancesSlot, evm.AddressKey(owner))
}

func approvalSlot(tokenID *big.Int) common.Hash {
	return evm.MappingSlot(nftApprovalsSlot, evm.BigKey(tokenID))
}

func operatorSlot(owner, operator common.Address) common.Hash {
	return evm.MappingSlot(nftOperatorsSlot, evm.AddressKey(owner), evm.AddressKey(operator))
}

func isOperator(env *evm.Env, owner, operator common.Address) bool {
	return env.GetBool(operatorSlot(owner, operator))
}

func requireOwned(env *evm.Env, tokenID *big.Int) (common.Address, error) {
	owner := env.GetAddress(ownerSlot(tokenID))
	if owner == (common.Address{}) {
		return common.Address{}, fmt.Errorf("%w: %s", domain.ErrTokenNotFound, tokenID)
	}
	return owner, nil
}

func addBig(env *evm.Env, slot common.Hash, delta int64) error {
	return env.SetBig(slot, new(big.Int).Add(env.GetBig(slot), big.NewInt(delta)))
}

// mintNFTwithWallet mints the next token id to `to` and creates its account
// through the registry in the same transaction.
func (n *NFT) mintNFTwithWallet(env *evm.Env, args []interface{}) ([]interface{}, error) {
	to := args[0].(common.Address)
	tokenID := env.GetBig(nftNextIDSlot)
	if err := addBig(env, nftNextIDSlot, 1); err != nil {
		return nil, err
	}
	if err := n.mint(env, to, tokenID); err != nil {
		return nil, err
	}

	chainID := env.GetBig(nftChainIDSlot)
	out, err := evm.CallMethod(env, env.GetAddress(nftRegistrySlot), nil,
		iface.IERC6551Registry.Methods["createAccount"], chainID, env.Address(), tokenID, env.GetAddress(nftImplSlot))
	if err != nil {
		return nil, fmt.Errorf("create account for token %s: %w", tokenID, err)
	}
	account := out[0].(common.Address)

	if err := evm.EmitEvent(env, NFTABI.Events["MintNFTWallet"], tokenID, chainID, env.Address(), account); err != nil {
		return nil, err
	}
	if err := n.checkReceiver(env, common.Address{}, to, tokenID, nil); err != nil {
		return nil, err
	}
	return []interface{}{tokenID, account}, nil
}

func (n *NFT) mint(env *evm.Env, to common.Address, tokenID *big.Int) error {
	if to == (common.Address{}) {
		return fmt.Errorf("mint to the zero address: %w", domain.ErrInvalidAddress)
	}
	if err := env.SetAddress(ownerSlot(tokenID), to); err != nil {
		return err
	}
	if err := addBig(env, balanceSlot(to), 1); err != nil {
		return err
	}
	if err := addBig(env, nftSupplySlot, 1); err != nil {
		return err
	}
	return evm.EmitEvent(env, NFTABI.Events["Transfer"], common.Address{}, to, tokenID)
}

func (n *NFT) ownerOf(env *evm.Env, args []interface{}) ([]interface{}, error) {
	owner, err := requireOwned(env, args[0].(*big.Int))
	if err != nil {
		return nil, err
	}
	return []interface{}{owner}, nil
}

func (n *NFT) balanceOf(env *evm.Env, args []interface{}) ([]interface{}, error) {
	owner := args[0].(common.Address)
	if owner == (common.Address{}) {
		return nil, fmt.Errorf("balance of the zero address: %w", domain.ErrInvalidAddress)
	}
	return []interface{}{env.GetBig(balanceSlot(owner))}, nil
}

func (n *NFT) approve(env *evm.Env, args []interface{}) ([]interface{}, error) {
	to := args[0].(common.Address)
	tokenID := args[1].(*big.Int)
	owner, err := requireOwned(env, tokenID)
	if err != nil {
		return nil, err
	}
	if env.Caller() != owner && !isOperator(env, owner, env.Caller()) {
		return nil, &domain.AuthorizationError{Caller: env.Caller(), Account: owner}
	}
	if err := env.SetAddress(approvalSlot(tokenID), to); err != nil {
		return nil, err
	}
	return nil, evm.EmitEvent(env, NFTABI.Events["Approval"], owner, to, tokenID)
}

func (n *NFT) getApproved(env *evm.Env, args []interface{}) ([]interface{}, error) {
	tokenID := args[0].(*big.Int)
	if _, err := requireOwned(env, tokenID); err != nil {
		return nil, err
	}
	return []interface{}{env.GetAddress(approvalSlot(tokenID))}, nil
}

func (n *NFT) setApprovalForAll(env *evm.Env, args []interface{}) ([]interface{}, error) {
	operator := args[0].(common.Address)
	approved := args[1].(bool)
	if err := env.SetBool(operatorSlot(env.Caller(), operator), approved); err != nil {
		return nil, err
	}
	return nil, evm.EmitEvent(env, NFTABI.Events["ApprovalForAll"], env.Caller(), operator, approved)
}

func (n *NFT) authorizedFor(env *evm.Env, owner common.Address, tokenID *big.Int) error {
	spender := env.Caller()
	if spender == owner || isOperator(env, owner, spender) || env.GetAddress(approvalSlot(tokenID)) == spender {
		return nil
	}
	return &domain.AuthorizationError{Caller: spender, Account: owner}
}

func (n *NFT) transfer(env *evm.Env, from, to common.Address, tokenID *big.Int) error {
	owner, err := requireOwned(env, tokenID)
	if err != nil {
		return err
	}
	if owner != from {
		return fmt.Errorf("token %s is not owned by %s", tokenID, from.Hex())
	}
	if to == (common.Address{}) {
		return fmt.Errorf("transfer to the zero address: %w", domain.ErrInvalidAddress)
	}
	if err := n.authorizedFor(env, owner, tokenID); err != nil {
		return err
	}
	if err := env.SetAddress(approvalSlot(tokenID), common.Address{}); err != nil {
		return err
	}
	if err := addBig(env, balanceSlot(from), -1); err != nil {
		return err
	}
	if err := addBig(env, balanceSlot(to), 1); err != nil {
		return err
	}
	if err := env.SetAddress(ownerSlot(tokenID), to); err != nil {
		return err
	}
	return evm.EmitEvent(env, NFTABI.Events["Transfer"], from, to, tokenID)
}

func (n *NFT) transferFrom(env *evm.Env, args []interface{}) ([]interface{}, error) {
	return nil, n.transfer(env, args[0].(common.Address), args[1].(common.Address), args[2].(*big.Int))
}

func (n *NFT) safeTransferFrom(env *evm.Env, args []interface{}) ([]interface{}, error) {
	from, to, tokenID := args[0].(common.Address), args[1].(common.Address), args[2].(*big.Int)
	var data []byte
	if len(args) > 3 {
		data = args[3].([]byte)
	}
	if err := n.transfer(env, from, to, tokenID); err != nil {
		return nil, err
	}
	return nil, n.checkReceiver(env, from, to, tokenID, data)
}

// checkReceiver calls onERC721Received on contract recipients.
func (n *NFT) checkReceiver(env *evm.Env, from, to common.Address, tokenID *big.Int, data []byte) error {
	if !env.HasCode(to) {
		return nil
	}
	if data == nil {
		data = []byte{}
	}
	out, err := evm.CallMethod(env, to, nil, iface.IERC721Receiver.Methods["onERC721Received"], env.Caller(), from, tokenID, data)
	if err != nil {
		return fmt.Errorf("receiver %s rejected token %s: %w", to.Hex(), tokenID, err)
	}
	if out[0].([4]byte) != iface.ERC721ReceivedMagic {
		return fmt.Errorf("receiver %s returned %x", to.Hex(), out[0])
	}
	return nil
}

func (n *NFT) burn(env *evm.Env, args []interface{}) ([]interface{}, error) {
	tokenID := args[0].(*big.Int)
	owner, err := requireOwned(env, tokenID)
	if err != nil {
		return nil, err
	}
	if err := n.authorizedFor(env, owner, tokenID); err != nil {
		return nil, err
	}
	if err := env.SetAddress(approvalSlot(tokenID), common.Address{}); err != nil {
		return nil, err
	}
	if err := addBig(env, balanceSlot(owner), -1); err != nil {
		return nil, err
	}
	if err := addBig(env, nftSupplySlot, -1); err != nil {
		return nil, err
	}
	if err := env.SetAddress(ownerSlot(tokenID), common.Address{}); err != nil {
		return nil, err
	}
	return nil, evm.EmitEvent(env, NFTABI.Events["Transfer"], owner, common.Address{}, tokenID)
}

func (n *NFT) tokenURI(env *evm.Env, args []interface{}) ([]interface{}, error) {
	tokenID := args[0].(*big.Int)
	if _, err := requireOwned(env, tokenID); err != nil {
		return nil, err
	}
	base := env.GetString(nftBaseURISlot)
	if base == "" {
		return []interface{}{""}, nil
	}
	return []interface{}{base + tokenID.String()}, nil
}
