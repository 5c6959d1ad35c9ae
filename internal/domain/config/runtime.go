package config

import (
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// RuntimeConfig represents the complete runtime configuration
// This is injected into use cases and contains all resolved settings
type RuntimeConfig struct {
	// Core settings
	ProjectRoot string
	DataDir     string

	// Context settings
	Network  *Network // nil if not specified
	Networks []string // names declared in nftwallet.toml, sorted

	// Execution settings
	Debug          bool
	NonInteractive bool
	JSON           bool // Output in JSON format
	Timeout        time.Duration

	// Contract addresses used for prediction and live checks
	Contracts Contracts

	// Local simulation settings
	Simulate Simulate

	// Config source tracking
	ConfigSource string // "nftwallet.toml" or "defaults"
}

// Network represents network configuration
type Network struct {
	Name        string `json:"name"`
	ChainID     uint64 `json:"chainId"`
	RPCURL      string `json:"rpcUrl"`
	ExplorerURL string `json:"explorerUrl,omitempty"`
}

// Contracts holds the deployed addresses of the account system on a network.
type Contracts struct {
	Registry       common.Address `json:"registry"`
	Implementation common.Address `json:"implementation"`
	TokenContract  common.Address `json:"tokenContract"`
	Guardian       common.Address `json:"guardian,omitempty"`
	EntryPoint     common.Address `json:"entryPoint,omitempty"`
}

// Simulate configures the in-process dev chain.
type Simulate struct {
	ChainID  uint64 `json:"chainId"`
	Scenario string `json:"scenario,omitempty"`
	BaseURI  string `json:"baseUri"`
}
