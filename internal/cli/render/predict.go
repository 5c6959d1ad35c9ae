package render

import (
	"fmt"
	"io"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/trebuchet-org/nftwallet/internal/usecase"
)

// PredictRenderer renders account address predictions
type PredictRenderer struct {
	out  io.Writer
	json bool
}

// NewPredictRenderer creates a new predict renderer
func NewPredictRenderer(out io.Writer, json bool) *PredictRenderer {
	return &PredictRenderer{out: out, json: json}
}

type predictionJSON struct {
	TokenID        string `json:"tokenId"`
	ChainID        string `json:"chainId"`
	TokenContract  string `json:"tokenContract"`
	Account        string `json:"account"`
	Salt           string `json:"salt"`
	InitCodeHash   string `json:"initCodeHash"`
	Registry       string `json:"registry"`
	Implementation string `json:"implementation"`
}

func (r *PredictRenderer) Render(result *usecase.PredictAccountResult) error {
	if r.json {
		out := make([]predictionJSON, 0, len(result.Predictions))
		for _, p := range result.Predictions {
			out = append(out, predictionJSON{
				TokenID:        p.Binding.TokenID.String(),
				ChainID:        p.Binding.ChainID.String(),
				TokenContract:  p.Binding.TokenContract.Hex(),
				Account:        p.Address.Hex(),
				Salt:           p.Salt.Hex(),
				InitCodeHash:   p.InitCodeHash.Hex(),
				Registry:       p.Registry.Hex(),
				Implementation: p.Implementation.Hex(),
			})
		}
		return JSON(r.out, out)
	}

	if len(result.Predictions) == 0 {
		fmt.Fprintln(r.out, "No predictions")
		return nil
	}
	first := result.Predictions[0]
	sectionHeader(r.out, "🔮 Predicted accounts")
	fmt.Fprintf(r.out, "Registry:       %s\n", formatAddress(first.Registry))
	fmt.Fprintf(r.out, "Implementation: %s\n", formatAddress(first.Implementation))
	fmt.Fprintf(r.out, "Token contract: %s (chain %s)\n\n", formatAddress(first.Binding.TokenContract), first.Binding.ChainID)

	t := newTable(r.out)
	t.AppendHeader(table.Row{"TOKEN", "ACCOUNT", "SALT"})
	for _, p := range result.Predictions {
		t.AppendRow(table.Row{p.Binding.TokenID.String(), addressStyle.Sprint(p.Address.Hex()), faintStyle.Sprint(p.Salt.Hex())})
	}
	t.Render()
	return nil
}
