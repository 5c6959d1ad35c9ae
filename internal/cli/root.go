package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/trebuchet-org/nftwallet/internal/adapters/progress"
	"github.com/trebuchet-org/nftwallet/internal/app"
	"github.com/trebuchet-org/nftwallet/internal/config"
	"github.com/trebuchet-org/nftwallet/internal/usecase"
)

// contextKey is the type for context keys
type contextKey string

const (
	// appKey is the context key for the app instance
	appKey contextKey = "app"
	// sinkKey is the context key for the progress sink
	sinkKey contextKey = "sink"
)

// NewRootCmd creates the root command
func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "nftwallet",
		Short: "Token-bound accounts for NFTs",
		Long: `nftwallet predicts, simulates and inspects token-bound accounts:
smart wallets deployed at deterministic addresses and controlled by
whoever currently owns the NFT they are bound to.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// Skip for help/version commands
			if cmd.Name() == "version" || cmd.Name() == "help" || cmd.Name() == "completion" {
				return nil
			}

			projectRoot, err := config.FindProjectRoot()
			if err != nil {
				return err
			}
			v := config.SetupViper(projectRoot, cmd)

			sink := newProgressSink(cmd)
			appInstance, err := app.InitApp(v, sink)
			if err != nil {
				return fmt.Errorf("failed to initialize app: %w", err)
			}

			ctx := context.WithValue(cmd.Context(), appKey, appInstance)
			ctx = context.WithValue(ctx, sinkKey, sink)
			if appInstance.Config.Timeout > 0 {
				var cancel context.CancelFunc
				ctx, cancel = context.WithTimeout(ctx, appInstance.Config.Timeout)
				cmd.PostRun = func(cmd *cobra.Command, args []string) {
					cancel()
				}
			}
			cmd.SetContext(ctx)
			return nil
		},
	}

	// Global flags
	rootCmd.PersistentFlags().Bool("debug", false, "Enable debug output")
	rootCmd.PersistentFlags().Bool("non-interactive", false, "Disable spinners and prompts")
	rootCmd.PersistentFlags().Bool("json", false, "Output in JSON format")
	rootCmd.PersistentFlags().StringP("network", "n", "", "Network from nftwallet.toml (e.g., sepolia)")
	rootCmd.PersistentFlags().Duration("timeout", 0, "Abort the command after this long (default 5m)")

	rootCmd.AddGroup(&cobra.Group{
		ID:    "main",
		Title: "Main Commands",
	})
	rootCmd.AddGroup(&cobra.Group{
		ID:    "management",
		Title: "Management Commands",
	})

	for _, cmd := range []*cobra.Command{NewPredictCmd(), NewSimulateCmd(), NewStatusCmd()} {
		cmd.GroupID = "main"
		rootCmd.AddCommand(cmd)
	}
	for _, cmd := range []*cobra.Command{NewAccountsCmd(), NewConfigCmd()} {
		cmd.GroupID = "management"
		rootCmd.AddCommand(cmd)
	}
	rootCmd.AddCommand(NewVersionCmd())

	return rootCmd
}

// newProgressSink picks the spinner for interactive text output
func newProgressSink(cmd *cobra.Command) usecase.ProgressSink {
	jsonOut, _ := cmd.Flags().GetBool("json")
	nonInteractive, _ := cmd.Flags().GetBool("non-interactive")
	if jsonOut || nonInteractive {
		return progress.NewNopSink()
	}
	return progress.NewSpinnerSink()
}

// stopProgress clears any spinner left running by a failed use case
func stopProgress(cmd *cobra.Command) {
	if s, ok := cmd.Context().Value(sinkKey).(interface{ Stop() }); ok {
		s.Stop()
	}
}

// getApp retrieves the app instance from the command context
func getApp(cmd *cobra.Command) (*app.App, error) {
	appInstance := cmd.Context().Value(appKey)
	if appInstance == nil {
		return nil, fmt.Errorf("app not initialized")
	}

	a, ok := appInstance.(*app.App)
	if !ok {
		return nil, fmt.Errorf("invalid app instance")
	}

	return a, nil
}

// addContractFlags registers the per-command contract address overrides
func addContractFlags(cmd *cobra.Command) {
	cmd.Flags().String("registry", "", "Registry address (overrides nftwallet.toml)")
	cmd.Flags().String("implementation", "", "Account implementation address (overrides nftwallet.toml)")
	cmd.Flags().String("token", "", "NFT contract address (overrides nftwallet.toml)")
}
