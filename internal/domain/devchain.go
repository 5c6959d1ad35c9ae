package domain

import (
	"crypto/ecdsa"

	"github.com/ethereum/go-ethereum/common"
)

// Signer is a funded externally owned account on the dev chain.
type Signer struct {
	Name    string            `json:"name"`
	Address common.Address    `json:"address"`
	Key     *ecdsa.PrivateKey `json:"-"`
}

// SuiteContracts are the addresses of the bootstrapped contract suite.
type SuiteContracts struct {
	Guardian          common.Address `json:"guardian"`
	EntryPoint        common.Address `json:"entryPoint"`
	Account           common.Address `json:"account"`
	AccountProxy      common.Address `json:"accountProxy"`
	Registry          common.Address `json:"registry"`
	NFTImplementation common.Address `json:"nftImplementation"`
	NFT               common.Address `json:"nft"`
	ERC20             common.Address `json:"erc20"`
}

// DevSuite describes a bootstrapped dev chain.
type DevSuite struct {
	ChainID   uint64         `json:"chainId"`
	Contracts SuiteContracts `json:"contracts"`
	Signers   []Signer       `json:"signers"`
}

// Signer returns the signer with the given name.
func (s *DevSuite) Signer(name string) (Signer, bool) {
	for _, sg := range s.Signers {
		if sg.Name == name {
			return sg, true
		}
	}
	return Signer{}, false
}

// DevChainOptions configure a dev chain bootstrap.
type DevChainOptions struct {
	ChainID uint64
	BaseURI string
}
