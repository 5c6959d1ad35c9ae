package domain

import (
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// StepKind names an action a scenario step performs.
type StepKind string

const (
	StepMint            StepKind = "mint"
	StepCreateAccount   StepKind = "create_account"
	StepERC20Mint       StepKind = "erc20_mint"
	StepERC20Transfer   StepKind = "erc20_transfer"
	StepTransferNFT     StepKind = "transfer_nft"
	StepBurn            StepKind = "burn"
	StepGuardianApprove StepKind = "guardian_approve"
	StepRelay           StepKind = "relay"
	StepExpectBalance   StepKind = "expect_balance"
)

// Scenario is a scripted sequence of interactions with a dev chain.
type Scenario struct {
	Name        string         `yaml:"name" json:"name"`
	Description string         `yaml:"description,omitempty" json:"description,omitempty"`
	ChainID     uint64         `yaml:"chain_id,omitempty" json:"chainId,omitempty"`
	Steps       []ScenarioStep `yaml:"steps" json:"steps"`
}

// ScenarioStep is one action. Party references are signer names
// ("deployer", "caller1"), "account:<tokenId>", "nft", "erc20", or a hex
// address.
type ScenarioStep struct {
	Name string   `yaml:"name,omitempty" json:"name,omitempty"`
	Kind StepKind `yaml:"kind" json:"kind"`
	From string   `yaml:"from" json:"from"`
	To   string   `yaml:"to,omitempty" json:"to,omitempty"`

	// Via routes the call through the account bound to this token id.
	Via *int64 `yaml:"via,omitempty" json:"via,omitempty"`
	// Token is the token id a transfer, burn or create_account refers to.
	Token *int64 `yaml:"token,omitempty" json:"token,omitempty"`
	// Amount is a decimal amount of whole ERC-20 tokens.
	Amount string `yaml:"amount,omitempty" json:"amount,omitempty"`

	// ExpectError is an error class: unauthorized, reentrant, not_found,
	// insufficient_balance, ownership_cycle, subcall, or any.
	ExpectError string `yaml:"expect_error,omitempty" json:"expectError,omitempty"`
}

// StepOutcome records what happened when a step ran.
type StepOutcome struct {
	Index    int            `json:"index"`
	Step     ScenarioStep   `json:"step"`
	TxHash   common.Hash    `json:"txHash,omitempty"`
	Passed   bool           `json:"passed"`
	Err      string         `json:"error,omitempty"`
	Events   []string       `json:"events,omitempty"`
	Account  common.Address `json:"account,omitempty"`
	Duration time.Duration  `json:"duration"`
}
