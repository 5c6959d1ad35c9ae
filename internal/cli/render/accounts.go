package render

import (
	"fmt"
	"io"
	"sort"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/samber/lo"
	"github.com/trebuchet-org/nftwallet/internal/usecase"
)

// AccountsRenderer renders the local account index
type AccountsRenderer struct {
	out  io.Writer
	json bool
}

// NewAccountsRenderer creates a new accounts renderer
func NewAccountsRenderer(out io.Writer, json bool) *AccountsRenderer {
	return &AccountsRenderer{out: out, json: json}
}

func (r *AccountsRenderer) Render(result *usecase.AccountListResult) error {
	if r.json {
		return JSON(r.out, result.Accounts)
	}

	if len(result.Accounts) == 0 {
		fmt.Fprintln(r.out, "No accounts found")
		return nil
	}

	t := newTable(r.out)
	t.AppendHeader(table.Row{"CHAIN", "TOKEN CONTRACT", "TOKEN", "ACCOUNT", "", "BLOCK", "INDEXED"})
	for _, rec := range result.Accounts {
		b := rec.Binding.Normalized()
		block := ""
		if rec.Block > 0 {
			block = fmt.Sprint(rec.Block)
		}
		t.AppendRow(table.Row{
			b.ChainID.String(),
			shortAddress(b.TokenContract),
			b.TokenID.String(),
			addressStyle.Sprint(rec.Address.Hex()),
			check(rec.Deployed),
			block,
			faintStyle.Sprint(rec.CreatedAt.Format("2006-01-02 15:04:05")),
		})
	}
	t.Render()
	fmt.Fprintln(r.out)

	chains := lo.Keys(result.Summary.ByChain)
	sort.Slice(chains, func(i, j int) bool { return chains[i] < chains[j] })
	perChain := lo.Map(chains, func(id uint64, _ int) string {
		return fmt.Sprintf("%d on chain %d", result.Summary.ByChain[id], id)
	})
	fmt.Fprintf(r.out, "%d accounts (%d deployed): %v\n", result.Summary.Total, result.Summary.Deployed, perChain)
	return nil
}
