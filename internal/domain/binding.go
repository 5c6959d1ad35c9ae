package domain

import (
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// TokenBinding identifies the NFT an account is bound to.
type TokenBinding struct {
	ChainID       *big.Int       `json:"chainId"`
	TokenContract common.Address `json:"tokenContract"`
	TokenID       *big.Int       `json:"tokenId"`
}

// NewTokenBinding builds a binding from a chain id, token contract and token id.
func NewTokenBinding(chainID uint64, tokenContract common.Address, tokenID *big.Int) TokenBinding {
	return TokenBinding{
		ChainID:       new(big.Int).SetUint64(chainID),
		TokenContract: tokenContract,
		TokenID:       orZero(tokenID),
	}
}

// Normalized returns a copy with nil integers replaced by zero.
func (b TokenBinding) Normalized() TokenBinding {
	return TokenBinding{
		ChainID:       orZero(b.ChainID),
		TokenContract: b.TokenContract,
		TokenID:       orZero(b.TokenID),
	}
}

// Equal reports whether both bindings name the same token on the same chain.
func (b TokenBinding) Equal(other TokenBinding) bool {
	return b.TokenContract == other.TokenContract &&
		orZero(b.ChainID).Cmp(orZero(other.ChainID)) == 0 &&
		orZero(b.TokenID).Cmp(orZero(other.TokenID)) == 0
}

// IsZero reports whether the binding is unset.
func (b TokenBinding) IsZero() bool {
	return b.TokenContract == (common.Address{}) && orZero(b.ChainID).Sign() == 0 && orZero(b.TokenID).Sign() == 0
}

// OnChain reports whether the binding targets the given chain.
func (b TokenBinding) OnChain(chainID *big.Int) bool {
	return orZero(b.ChainID).Cmp(orZero(chainID)) == 0
}

// Key returns a stable identifier suitable for map keys and file indexes.
func (b TokenBinding) Key() string {
	return fmt.Sprintf("%s/%s/%s", orZero(b.ChainID), b.TokenContract.Hex(), orZero(b.TokenID))
}

func (b TokenBinding) String() string {
	return fmt.Sprintf("chain=%s token=%s id=%s", orZero(b.ChainID), b.TokenContract.Hex(), orZero(b.TokenID))
}

func orZero(v *big.Int) *big.Int {
	if v == nil {
		return new(big.Int)
	}
	return v
}

// AccountRecord is the locally indexed view of a token-bound account.
type AccountRecord struct {
	Address        common.Address `json:"address"`
	Registry       common.Address `json:"registry"`
	Implementation common.Address `json:"implementation"`
	Salt           common.Hash    `json:"salt"`
	Binding        TokenBinding   `json:"binding"`

	Deployed  bool        `json:"deployed"`
	TxHash    common.Hash `json:"txHash,omitempty"`
	Block     uint64      `json:"block,omitempty"`
	CreatedAt time.Time   `json:"createdAt"`
	UpdatedAt time.Time   `json:"updatedAt"`

	// Runtime fields (not persisted)
	Owner   common.Address `json:"-"`
	Nonce   *big.Int       `json:"-"`
	Balance *big.Int       `json:"-"`
}

// AccountFilter narrows account listings.
type AccountFilter struct {
	ChainID        uint64
	TokenContract  common.Address
	Implementation common.Address
	DeployedOnly   bool
}

// Matches reports whether the record passes the filter.
func (f AccountFilter) Matches(rec *AccountRecord) bool {
	if f.ChainID != 0 && !rec.Binding.OnChain(new(big.Int).SetUint64(f.ChainID)) {
		return false
	}
	if f.TokenContract != (common.Address{}) && rec.Binding.TokenContract != f.TokenContract {
		return false
	}
	if f.Implementation != (common.Address{}) && rec.Implementation != f.Implementation {
		return false
	}
	if f.DeployedOnly && !rec.Deployed {
		return false
	}
	return true
}
