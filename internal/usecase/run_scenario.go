package usecase

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"
	"github.com/trebuchet-org/nftwallet/internal/contracts/account"
	"github.com/trebuchet-org/nftwallet/internal/contracts/entrypoint"
	"github.com/trebuchet-org/nftwallet/internal/contracts/guardian"
	"github.com/trebuchet-org/nftwallet/internal/contracts/iface"
	"github.com/trebuchet-org/nftwallet/internal/contracts/token"
	"github.com/trebuchet-org/nftwallet/internal/derive"
	"github.com/trebuchet-org/nftwallet/internal/domain"
	"github.com/trebuchet-org/nftwallet/internal/domain/config"
	"github.com/trebuchet-org/nftwallet/internal/evm"
)

// RunScenarioParams contains parameters for a simulation run
type RunScenarioParams struct {
	// ScenarioPath is a YAML file; empty runs the configured or built-in scenario
	ScenarioPath string
	ChainID      uint64
	BaseURI      string
}

// RunScenarioResult contains every step outcome of a simulation
type RunScenarioResult struct {
	Scenario *domain.Scenario
	Suite    *domain.DevSuite
	Outcomes []*domain.StepOutcome
	// Accounts maps minted token ids to their accounts
	Accounts map[int64]common.Address
	// Inspections holds the final state of every account, by token id
	Inspections []*InspectAccountResult
	Passed      int
	Failed      int
}

// RunScenario boots a dev chain and plays a scenario against it
type RunScenario struct {
	config   *config.RuntimeConfig
	devchain DevChainManager
	loader   ScenarioLoader
	decoder  EventDecoder
	store    AccountStore
	metrics  MetricsRecorder
	sink     ProgressSink
}

// NewRunScenario creates a new RunScenario use case
func NewRunScenario(
	cfg *config.RuntimeConfig,
	devchain DevChainManager,
	loader ScenarioLoader,
	decoder EventDecoder,
	store AccountStore,
	metrics MetricsRecorder,
	sink ProgressSink,
) *RunScenario {
	return &RunScenario{
		config:   cfg,
		devchain: devchain,
		loader:   loader,
		decoder:  decoder,
		store:    store,
		metrics:  metrics,
		sink:     sink,
	}
}

// Run executes the run scenario use case. Failed steps are recorded in the
// result; only setup problems return an error.
func (uc *RunScenario) Run(ctx context.Context, params RunScenarioParams) (*RunScenarioResult, error) {
	scenario, err := uc.loadScenario(params)
	if err != nil {
		return nil, err
	}

	opts := domain.DevChainOptions{ChainID: params.ChainID, BaseURI: params.BaseURI}
	if opts.ChainID == 0 {
		opts.ChainID = scenario.ChainID
	}
	if opts.ChainID == 0 && uc.config != nil {
		opts.ChainID = uc.config.Simulate.ChainID
	}
	if opts.BaseURI == "" && uc.config != nil {
		opts.BaseURI = uc.config.Simulate.BaseURI
	}

	uc.sink.OnProgress(ctx, ProgressEvent{
		Stage:   "deploying",
		Message: "Deploying account system to dev chain",
		Spinner: true,
	})
	chain, suite, err := uc.devchain.Start(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to start dev chain: %w", err)
	}

	indexer := NewIndexAccounts(uc.decoder, uc.store, uc.metrics)
	run := &scenarioRun{
		chain:    chain,
		suite:    suite,
		decoder:  uc.decoder,
		mint:     NewMintWithWallet(chain, uc.decoder, indexer, uc.metrics),
		create:   NewCreateAccount(chain, indexer, uc.metrics),
		execute:  NewExecuteCall(chain, uc.decoder, uc.metrics),
		accounts: make(map[int64]common.Address),
	}

	result := &RunScenarioResult{Scenario: scenario, Suite: suite, Accounts: run.accounts}
	for i, step := range scenario.Steps {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		uc.sink.OnProgress(ctx, ProgressEvent{
			Stage:   "step",
			Current: i + 1,
			Total:   len(scenario.Steps),
			Message: stepLabel(step),
			Spinner: true,
		})

		outcome := run.play(ctx, i, step)
		if outcome.Passed {
			result.Passed++
		} else {
			result.Failed++
		}
		result.Outcomes = append(result.Outcomes, outcome)
	}

	inspect := NewInspectAccount(chain)
	tokenIDs := lo.Keys(run.accounts)
	slices.Sort(tokenIDs)
	for _, id := range tokenIDs {
		state, err := inspect.Run(ctx, run.accounts[id])
		if err != nil {
			uc.sink.Error(fmt.Sprintf("inspect account for token %d: %v", id, err))
			continue
		}
		result.Inspections = append(result.Inspections, state)
	}

	uc.sink.OnProgress(ctx, ProgressEvent{
		Stage:   "complete",
		Current: result.Passed,
		Total:   len(scenario.Steps),
		Message: "Scenario finished",
	})
	return result, nil
}

func (uc *RunScenario) loadScenario(params RunScenarioParams) (*domain.Scenario, error) {
	path := params.ScenarioPath
	if path == "" && uc.config != nil {
		path = uc.config.Simulate.Scenario
	}
	if path == "" {
		return uc.loader.Default(), nil
	}
	scenario, err := uc.loader.Load(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load scenario %s: %w", path, err)
	}
	return scenario, nil
}

func stepLabel(step domain.ScenarioStep) string {
	if step.Name != "" {
		return step.Name
	}
	return fmt.Sprintf("%s from %s", step.Kind, step.From)
}

// errorClasses maps expect_error values to the errors they match.
var errorClasses = map[string]error{
	"unauthorized":         domain.ErrUnauthorized,
	"reentrant":            domain.ErrReentrantCall,
	"not_found":            domain.ErrTokenNotFound,
	"insufficient_balance": domain.ErrInsufficientBalance,
	"ownership_cycle":      domain.ErrOwnershipCycle,
	"subcall":              domain.ErrSubcallFailed,
}

// KnownErrorClass reports whether class may be used as expect_error.
func KnownErrorClass(class string) bool {
	_, ok := errorClasses[class]
	return ok || class == "any"
}

func expectationMet(class string, err error) bool {
	switch {
	case class == "":
		return err == nil
	case class == "any":
		return err != nil
	}
	target, ok := errorClasses[class]
	return ok && errors.Is(err, target)
}

type scenarioRun struct {
	chain    Chain
	suite    *domain.DevSuite
	decoder  EventDecoder
	mint     *MintWithWallet
	create   *CreateAccount
	execute  *ExecuteCall
	accounts map[int64]common.Address
}

func (r *scenarioRun) play(ctx context.Context, index int, step domain.ScenarioStep) *domain.StepOutcome {
	start := time.Now()
	outcome := &domain.StepOutcome{Index: index, Step: step}

	receipt, acct, err := r.dispatch(ctx, step)
	outcome.Duration = time.Since(start)
	outcome.Account = acct
	if receipt != nil {
		outcome.TxHash = receipt.TxHash
		if receipt.Succeeded() {
			if events, derr := decodeLogs(r.decoder, receipt); derr == nil {
				for _, ev := range events {
					outcome.Events = append(outcome.Events, ev.String())
				}
			}
		}
	}

	outcome.Passed = expectationMet(step.ExpectError, err)
	switch {
	case err != nil:
		outcome.Err = err.Error()
	case !outcome.Passed:
		outcome.Err = fmt.Sprintf("expected %s error, step succeeded", step.ExpectError)
	}
	return outcome
}

func (r *scenarioRun) dispatch(ctx context.Context, step domain.ScenarioStep) (*evm.Receipt, common.Address, error) {
	if step.Kind == domain.StepExpectBalance {
		return nil, common.Address{}, r.expectBalance(ctx, step)
	}
	from, err := r.signer(step.From)
	if err != nil {
		return nil, common.Address{}, err
	}
	c := r.suite.Contracts

	switch step.Kind {
	case domain.StepMint:
		to := from.Address
		if step.To != "" {
			if to, err = r.resolve(step.To); err != nil {
				return nil, common.Address{}, err
			}
		}
		res, err := r.mint.Run(ctx, MintWithWalletParams{From: from.Address, NFT: c.NFT, To: to})
		if err != nil {
			return nil, common.Address{}, err
		}
		r.accounts[res.TokenID.Int64()] = res.Account.Address
		return res.Receipt, res.Account.Address, nil

	case domain.StepCreateAccount:
		if step.Token == nil {
			return nil, common.Address{}, fmt.Errorf("create_account needs a token")
		}
		res, err := r.create.Run(ctx, CreateAccountParams{
			From:           from.Address,
			Registry:       c.Registry,
			Implementation: c.AccountProxy,
			Binding:        domain.NewTokenBinding(r.suite.ChainID, c.NFT, big.NewInt(*step.Token)),
		})
		if err != nil {
			return nil, common.Address{}, err
		}
		r.accounts[*step.Token] = res.Account.Address
		return res.Receipt, res.Account.Address, nil

	case domain.StepERC20Mint, domain.StepERC20Transfer:
		data, err := r.erc20Call(step)
		if err != nil {
			return nil, common.Address{}, err
		}
		return r.send(ctx, from, step.Via, c.ERC20, data)

	case domain.StepTransferNFT:
		if step.Token == nil {
			return nil, common.Address{}, fmt.Errorf("transfer_nft needs a token")
		}
		to, err := r.resolve(step.To)
		if err != nil {
			return nil, common.Address{}, err
		}
		holder := from.Address
		if step.Via != nil {
			holder = r.accountFor(*step.Via)
		}
		data, err := token.NFTABI.Pack("safeTransferFrom", holder, to, big.NewInt(*step.Token))
		if err != nil {
			return nil, common.Address{}, err
		}
		return r.send(ctx, from, step.Via, c.NFT, data)

	case domain.StepBurn:
		if step.Token == nil {
			return nil, common.Address{}, fmt.Errorf("burn needs a token")
		}
		data, err := token.NFTABI.Pack("burn", big.NewInt(*step.Token))
		if err != nil {
			return nil, common.Address{}, err
		}
		return r.send(ctx, from, step.Via, c.NFT, data)

	case domain.StepGuardianApprove:
		return r.guardianApprove(ctx, from, step)

	case domain.StepRelay:
		return r.relay(ctx, from, step)
	}
	return nil, common.Address{}, fmt.Errorf("unknown step kind %q", step.Kind)
}

// send submits data directly from the signer, or through the account bound
// to token via.
func (r *scenarioRun) send(ctx context.Context, from domain.Signer, via *int64, to common.Address, data []byte) (*evm.Receipt, common.Address, error) {
	if via == nil {
		receipt, err := r.chain.Transact(ctx, from.Address, to, nil, data)
		return receipt, common.Address{}, err
	}
	acct := r.accountFor(*via)
	res, err := r.execute.Run(ctx, ExecuteCallParams{From: from.Address, Account: acct, To: to, Data: data})
	if err != nil {
		return nil, acct, err
	}
	return res.Receipt, acct, nil
}

// guardianApprove lets step.To run the ERC-20 faucet call through account via.
func (r *scenarioRun) guardianApprove(ctx context.Context, from domain.Signer, step domain.ScenarioStep) (*evm.Receipt, common.Address, error) {
	if step.Via == nil {
		return nil, common.Address{}, fmt.Errorf("guardian_approve needs via")
	}
	caller, err := r.resolve(step.To)
	if err != nil {
		return nil, common.Address{}, err
	}
	acct := r.accountFor(*step.Via)

	// An owner() revert means the token has no owner; the account then
	// authorizes against the zero address.
	var owner common.Address
	if ret, err := r.chain.Call(ctx, from.Address, acct, account.Pack("owner")); err == nil {
		if owner, err = account.UnpackAddress("owner", ret); err != nil {
			return nil, acct, err
		}
	}
	ret, err := r.chain.Call(ctx, from.Address, acct, account.Pack("nonce"))
	if err != nil {
		return nil, acct, fmt.Errorf("read nonce of %s: %w", acct.Hex(), err)
	}
	nonce, err := account.UnpackNonce(ret)
	if err != nil {
		return nil, acct, err
	}

	op := domain.ExecuteOperation(owner, nonce, caller, r.suite.Contracts.ERC20, big.NewInt(0), token.ERC20ABI.Methods["mint"].ID)
	data, err := guardian.ABI.Pack("setApproval", [32]byte(op), acct, true)
	if err != nil {
		return nil, common.Address{}, err
	}
	receipt, err := r.chain.Transact(ctx, from.Address, r.suite.Contracts.Guardian, nil, data)
	return receipt, acct, err
}

// relay signs a user operation for account via with the From key and submits
// it to the entry point from the same signer.
func (r *scenarioRun) relay(ctx context.Context, from domain.Signer, step domain.ScenarioStep) (*evm.Receipt, common.Address, error) {
	if step.Via == nil {
		return nil, common.Address{}, fmt.Errorf("relay needs via")
	}
	if from.Key == nil {
		return nil, common.Address{}, fmt.Errorf("signer %s has no key", from.Name)
	}
	c := r.suite.Contracts
	acct := r.accountFor(*step.Via)

	inner, err := r.erc20Call(step)
	if err != nil {
		return nil, acct, err
	}

	nonceData, err := entrypoint.ABI.Pack("getNonce", acct)
	if err != nil {
		return nil, acct, err
	}
	ret, err := r.chain.Call(ctx, from.Address, c.EntryPoint, nonceData)
	if err != nil {
		return nil, acct, err
	}
	out, err := entrypoint.ABI.Unpack("getNonce", ret)
	if err != nil {
		return nil, acct, err
	}

	op := iface.UserOperation{
		Sender:   acct,
		Nonce:    out[0].(*big.Int),
		CallData: account.PackExecuteCall(c.ERC20, nil, inner),
	}.Normalized()
	hash := entrypoint.UserOpHash(op, c.EntryPoint, r.chain.ChainID())
	if op.Signature, err = crypto.Sign(accounts.TextHash(hash.Bytes()), from.Key); err != nil {
		return nil, acct, err
	}

	data, err := entrypoint.PackHandleOps([]iface.UserOperation{op}, from.Address)
	if err != nil {
		return nil, acct, err
	}
	receipt, err := r.chain.Transact(ctx, from.Address, c.EntryPoint, nil, data)
	if err != nil {
		return receipt, acct, err
	}

	events, err := decodeLogs(r.decoder, receipt)
	if err != nil {
		return receipt, acct, err
	}
	for _, ev := range events {
		if userOp, ok := ev.(*domain.UserOperationEvent); ok && !userOp.Success {
			return receipt, acct, fmt.Errorf("user operation %s: %w", userOp.UserOpHash.Hex(), domain.ErrSubcallFailed)
		}
	}
	return receipt, acct, nil
}

func (r *scenarioRun) expectBalance(ctx context.Context, step domain.ScenarioStep) error {
	holder, err := r.resolve(step.To)
	if err != nil {
		return err
	}
	want, err := ParseTokenAmount(step.Amount)
	if err != nil {
		return err
	}
	data, err := token.ERC20ABI.Pack("balanceOf", holder)
	if err != nil {
		return err
	}
	ret, err := r.chain.Call(ctx, holder, r.suite.Contracts.ERC20, data)
	if err != nil {
		return err
	}
	out, err := token.ERC20ABI.Unpack("balanceOf", ret)
	if err != nil {
		return err
	}
	if got := out[0].(*big.Int); got.Cmp(want) != 0 {
		return fmt.Errorf("balance of %s is %s, want %s", holder.Hex(), FormatTokenAmount(got), FormatTokenAmount(want))
	}
	return nil
}

// erc20Call is the faucet mint when no amount is given, otherwise a transfer
// of amount to step.To.
func (r *scenarioRun) erc20Call(step domain.ScenarioStep) ([]byte, error) {
	if step.Kind == domain.StepERC20Mint || (step.Kind == domain.StepRelay && step.Amount == "") {
		return token.ERC20ABI.Pack("mint")
	}
	to, err := r.resolve(step.To)
	if err != nil {
		return nil, err
	}
	amount, err := ParseTokenAmount(step.Amount)
	if err != nil {
		return nil, err
	}
	return token.ERC20ABI.Pack("transfer", to, amount)
}

func (r *scenarioRun) signer(ref string) (domain.Signer, error) {
	s, ok := r.suite.Signer(ref)
	if !ok {
		return domain.Signer{}, fmt.Errorf("unknown signer %q", ref)
	}
	return s, nil
}

func (r *scenarioRun) resolve(ref string) (common.Address, error) {
	c := r.suite.Contracts
	switch {
	case ref == "nft":
		return c.NFT, nil
	case ref == "erc20":
		return c.ERC20, nil
	case strings.HasPrefix(ref, "account:"):
		id, err := strconv.ParseInt(strings.TrimPrefix(ref, "account:"), 10, 64)
		if err != nil {
			return common.Address{}, fmt.Errorf("invalid account reference %q", ref)
		}
		return r.accountFor(id), nil
	case common.IsHexAddress(ref):
		return common.HexToAddress(ref), nil
	}
	if s, ok := r.suite.Signer(ref); ok {
		return s.Address, nil
	}
	return common.Address{}, fmt.Errorf("unknown party %q", ref)
}

// accountFor returns the minted account for a token id, or its predicted
// address when the token has not been minted in this run.
func (r *scenarioRun) accountFor(tokenID int64) common.Address {
	if acct, ok := r.accounts[tokenID]; ok {
		return acct
	}
	c := r.suite.Contracts
	binding := domain.NewTokenBinding(r.suite.ChainID, c.NFT, big.NewInt(tokenID))
	return derive.New(c.Registry).Account(c.AccountProxy, binding).Address
}

// ParseTokenAmount converts a decimal amount of whole tokens to 18-decimal
// base units.
func ParseTokenAmount(s string) (*big.Int, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return nil, fmt.Errorf("invalid amount %q: %w", s, err)
	}
	units := d.Shift(token.ERC20Decimals)
	if !units.IsInteger() || units.IsNegative() {
		return nil, fmt.Errorf("invalid amount %q", s)
	}
	return units.BigInt(), nil
}

// FormatTokenAmount renders 18-decimal base units as whole tokens.
func FormatTokenAmount(units *big.Int) string {
	return decimal.NewFromBigInt(units, -token.ERC20Decimals).String()
}
