package render

import (
	"fmt"
	"io"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/samber/lo"
	"github.com/trebuchet-org/nftwallet/internal/domain"
	"github.com/trebuchet-org/nftwallet/internal/usecase"
)

// ScenarioRenderer renders simulation results
type ScenarioRenderer struct {
	out     io.Writer
	json    bool
	verbose bool
}

// NewScenarioRenderer creates a new scenario renderer. Verbose output lists
// decoded events under each step.
func NewScenarioRenderer(out io.Writer, json, verbose bool) *ScenarioRenderer {
	return &ScenarioRenderer{out: out, json: json, verbose: verbose}
}

type scenarioJSON struct {
	Scenario  string                `json:"scenario"`
	ChainID   uint64                `json:"chainId"`
	Contracts domain.SuiteContracts `json:"contracts"`
	Signers   []domain.Signer       `json:"signers"`
	Steps     []*domain.StepOutcome `json:"steps"`
	Accounts  []scenarioAccountJSON `json:"accounts"`
	Passed    int                   `json:"passed"`
	Failed    int                   `json:"failed"`
}

type scenarioAccountJSON struct {
	TokenID  string `json:"tokenId"`
	Address  string `json:"address"`
	Deployed bool   `json:"deployed"`
	Owner    string `json:"owner,omitempty"`
	OwnerErr string `json:"ownerError,omitempty"`
	Nonce    string `json:"nonce,omitempty"`
	Balance  string `json:"balance,omitempty"`
}

func (r *ScenarioRenderer) Render(result *usecase.RunScenarioResult) error {
	accounts := lo.Map(result.Inspections, func(s *usecase.InspectAccountResult, _ int) scenarioAccountJSON {
		a := scenarioAccountJSON{
			TokenID:  s.Binding.TokenID.String(),
			Address:  s.Address.Hex(),
			Deployed: s.Deployed,
			Owner:    s.Owner.Hex(),
		}
		if s.OwnerErr != nil {
			a.Owner = ""
			a.OwnerErr = s.OwnerErr.Error()
		}
		if s.Nonce != nil {
			a.Nonce = s.Nonce.String()
		}
		if s.Balance != nil {
			a.Balance = FormatEther(s.Balance)
		}
		return a
	})

	if r.json {
		return JSON(r.out, scenarioJSON{
			Scenario:  result.Scenario.Name,
			ChainID:   result.Suite.ChainID,
			Contracts: result.Suite.Contracts,
			Signers:   result.Suite.Signers,
			Steps:     result.Outcomes,
			Accounts:  accounts,
			Passed:    result.Passed,
			Failed:    result.Failed,
		})
	}

	sectionHeader(r.out, "🧪 Scenario %s on chain %d", result.Scenario.Name, result.Suite.ChainID)
	if result.Scenario.Description != "" {
		fmt.Fprintln(r.out, faintStyle.Sprint(result.Scenario.Description))
	}
	fmt.Fprintln(r.out)

	r.renderContracts(result.Suite.Contracts)
	r.renderSteps(result.Outcomes)
	r.renderAccounts(accounts)

	summary := fmt.Sprintf("%d/%d steps passed", result.Passed, result.Passed+result.Failed)
	if result.Failed > 0 {
		fmt.Fprintln(r.out, FormatError(summary))
	} else {
		fmt.Fprintln(r.out, FormatSuccess(summary))
	}
	return nil
}

func (r *ScenarioRenderer) renderContracts(c domain.SuiteContracts) {
	t := newTable(r.out)
	t.AppendHeader(table.Row{"CONTRACT", "ADDRESS"})
	t.AppendRows([]table.Row{
		{"ERC6551Registry", formatAddress(c.Registry)},
		{"Account", formatAddress(c.Account)},
		{"AccountProxy", formatAddress(c.AccountProxy)},
		{"AccountGuardian", formatAddress(c.Guardian)},
		{"EntryPoint", formatAddress(c.EntryPoint)},
		{"ERC6551Test (proxy)", formatAddress(c.NFT)},
		{"MockERC20", formatAddress(c.ERC20)},
	})
	t.Render()
	fmt.Fprintln(r.out)
}

func (r *ScenarioRenderer) renderSteps(outcomes []*domain.StepOutcome) {
	t := newTable(r.out)
	t.AppendHeader(table.Row{"#", "", "STEP", "DETAIL", "TIME"})
	for _, o := range outcomes {
		label := o.Step.Name
		if label == "" {
			label = string(o.Step.Kind)
		}
		detail := ""
		switch {
		case o.Err != "" && o.Passed:
			detail = faintStyle.Sprintf("reverted as expected: %s", o.Err)
		case o.Err != "":
			detail = failStyle.Sprint(o.Err)
		case o.Account != (common.Address{}):
			detail = fmt.Sprintf("account %s", shortAddress(o.Account))
		}
		t.AppendRow(table.Row{o.Index + 1, check(o.Passed), label, detail, o.Duration.Round(time.Microsecond)})
		if r.verbose {
			for _, ev := range o.Events {
				t.AppendRow(table.Row{"", "", "", faintStyle.Sprint("↳ " + ev), ""})
			}
		}
	}
	t.Render()
	fmt.Fprintln(r.out)
}

// renderAccounts expects accounts in token id order
func (r *ScenarioRenderer) renderAccounts(accounts []scenarioAccountJSON) {
	if len(accounts) == 0 {
		return
	}
	t := newTable(r.out)
	t.AppendHeader(table.Row{"TOKEN", "ACCOUNT", "OWNER", "NONCE", "ETH"})
	for _, a := range accounts {
		owner := a.Owner
		if a.OwnerErr != "" {
			owner = warnStyle.Sprint("unavailable")
		}
		t.AppendRow(table.Row{a.TokenID, addressStyle.Sprint(a.Address), owner, a.Nonce, a.Balance})
	}
	t.Render()
	fmt.Fprintln(r.out)
}
