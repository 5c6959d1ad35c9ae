package render

import (
	"fmt"
	"io"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/trebuchet-org/nftwallet/internal/usecase"
)

// StatusRenderer renders live account checks
type StatusRenderer struct {
	out  io.Writer
	json bool
}

// NewStatusRenderer creates a new status renderer
func NewStatusRenderer(out io.Writer, json bool) *StatusRenderer {
	return &StatusRenderer{out: out, json: json}
}

type statusJSON struct {
	TokenID        string `json:"tokenId"`
	Account        string `json:"account"`
	Deployed       bool   `json:"deployed"`
	BindingMatches bool   `json:"bindingMatches"`
	Owner          string `json:"owner,omitempty"`
	Error          string `json:"error,omitempty"`
}

func (r *StatusRenderer) Render(result *usecase.CheckAccountsResult) error {
	if r.json {
		out := make([]statusJSON, 0, len(result.Statuses))
		for _, s := range result.Statuses {
			entry := statusJSON{
				TokenID:        s.Derivation.Binding.TokenID.String(),
				Account:        s.Derivation.Address.Hex(),
				Deployed:       s.Deployed,
				BindingMatches: s.BindingMatches,
				Error:          s.Error,
			}
			if s.Deployed && s.Error == "" {
				entry.Owner = s.Owner.Hex()
			}
			out = append(out, entry)
		}
		return JSON(r.out, out)
	}

	sectionHeader(r.out, "🌐 %s (chain %d)", result.Network.Name, result.Network.ChainID)
	fmt.Fprintln(r.out)

	t := newTable(r.out)
	t.AppendHeader(table.Row{"TOKEN", "ACCOUNT", "DEPLOYED", "BINDING", "OWNER"})
	for _, s := range result.Statuses {
		binding, owner := faintStyle.Sprint("-"), faintStyle.Sprint("-")
		if s.Deployed {
			binding = check(s.BindingMatches)
			owner = formatAddress(s.Owner)
			if s.Error != "" {
				owner = warnStyle.Sprint(s.Error)
			}
		}
		t.AppendRow(table.Row{
			s.Derivation.Binding.TokenID.String(),
			addressStyle.Sprint(s.Derivation.Address.Hex()),
			check(s.Deployed),
			binding,
			owner,
		})
	}
	t.Render()
	fmt.Fprintln(r.out)
	fmt.Fprintf(r.out, "%d of %d accounts deployed\n", result.Deployed, len(result.Statuses))
	return nil
}
