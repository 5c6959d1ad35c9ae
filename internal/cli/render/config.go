package render

import (
	"fmt"
	"io"

	"github.com/trebuchet-org/nftwallet/internal/usecase"
)

// ConfigRenderer renders config-related output
type ConfigRenderer struct {
	out  io.Writer
	json bool
}

// NewConfigRenderer creates a new config renderer
func NewConfigRenderer(out io.Writer, json bool) *ConfigRenderer {
	return &ConfigRenderer{out: out, json: json}
}

func (r *ConfigRenderer) Render(result *usecase.ShowConfigResult) error {
	cfg := result.Config
	if r.json {
		return JSON(r.out, map[string]any{
			"source":      result.Source,
			"projectRoot": cfg.ProjectRoot,
			"dataDir":     cfg.DataDir,
			"network":     cfg.Network,
			"contracts":   cfg.Contracts,
			"simulate":    cfg.Simulate,
		})
	}

	fmt.Fprintln(r.out, "📋 Current config:")
	fmt.Fprintf(r.out, "Project:   %s\n", cfg.ProjectRoot)
	fmt.Fprintf(r.out, "Data dir:  %s\n", cfg.DataDir)
	if cfg.Network != nil {
		fmt.Fprintf(r.out, "Network:   %s (chain %d)\n", cfg.Network.Name, cfg.Network.ChainID)
		fmt.Fprintf(r.out, "RPC URL:   %s\n", cfg.Network.RPCURL)
	} else {
		fmt.Fprintf(r.out, "Network:   %s\n", "(not set)")
	}

	fmt.Fprintln(r.out)
	fmt.Fprintln(r.out, "📜 Contracts:")
	fmt.Fprintf(r.out, "Registry:        %s\n", formatAddress(cfg.Contracts.Registry))
	fmt.Fprintf(r.out, "Implementation:  %s\n", formatAddress(cfg.Contracts.Implementation))
	fmt.Fprintf(r.out, "Token contract:  %s\n", formatAddress(cfg.Contracts.TokenContract))

	if cfg.Simulate.ChainID != 0 || cfg.Simulate.Scenario != "" {
		fmt.Fprintln(r.out)
		fmt.Fprintln(r.out, "🧪 Simulate:")
		if cfg.Simulate.ChainID != 0 {
			fmt.Fprintf(r.out, "Chain ID:  %d\n", cfg.Simulate.ChainID)
		}
		if cfg.Simulate.Scenario != "" {
			fmt.Fprintf(r.out, "Scenario:  %s\n", cfg.Simulate.Scenario)
		}
	}

	fmt.Fprintf(r.out, "\n📦 Config source: %s\n", result.Source)
	return nil
}

// RenderSet renders the result of config set
func (r *ConfigRenderer) RenderSet(result *usecase.SetConfigResult) error {
	if r.json {
		return JSON(r.out, map[string]string{
			"key":   string(result.Key),
			"value": result.Value,
			"path":  result.ConfigPath,
		})
	}
	fmt.Fprintln(r.out, FormatSuccess(fmt.Sprintf("Set %s to %s", result.Key, result.Value)))
	fmt.Fprintln(r.out, faintStyle.Sprintf("📁 %s", result.ConfigPath))
	return nil
}

// RenderRemove renders the result of config remove
func (r *ConfigRenderer) RenderRemove(result *usecase.RemoveConfigResult) error {
	if r.json {
		return JSON(r.out, map[string]string{
			"key":     string(result.Key),
			"removed": result.RemovedValue,
			"path":    result.ConfigPath,
		})
	}
	if result.RemovedValue == "" {
		fmt.Fprintln(r.out, FormatWarning(fmt.Sprintf("%s was not set", result.Key)))
		return nil
	}
	fmt.Fprintln(r.out, FormatSuccess(fmt.Sprintf("Removed %s (was %s)", result.Key, result.RemovedValue)))
	return nil
}
