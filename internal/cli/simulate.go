package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/trebuchet-org/nftwallet/internal/cli/render"
	"github.com/trebuchet-org/nftwallet/internal/usecase"
)

// NewSimulateCmd creates the simulate command
func NewSimulateCmd() *cobra.Command {
	var (
		scenarioPath string
		chainID      uint64
		baseURI      string
		metricsFile  string
		verbose      bool
	)

	cmd := &cobra.Command{
		Use:     "simulate",
		Aliases: []string{"sim"},
		Short:   "Run a scenario against an in-process dev chain",
		Long: `Deploy the account system (registry, account, proxy, guardian, entry point,
NFT and MockERC20) to a fresh in-process chain and play a scenario against it.

Without --scenario the built-in scenario runs: two tokens are minted with their
wallets, MockERC20 is minted and moved through both accounts, and token 0 changes
hands. Created accounts are added to the local index.`,
		Example: `  # Built-in scenario
  nftwallet simulate

  # Custom scenario with decoded events
  nftwallet simulate --scenario scenarios/recovery.yaml -v`,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := getApp(cmd)
			if err != nil {
				return err
			}
			defer stopProgress(cmd)

			result, err := app.RunScenario.Run(cmd.Context(), usecase.RunScenarioParams{
				ScenarioPath: scenarioPath,
				ChainID:      chainID,
				BaseURI:      baseURI,
			})
			if err != nil {
				return err
			}
			stopProgress(cmd)

			if metricsFile != "" {
				if err := app.Metrics.WriteTextfile(metricsFile); err != nil {
					return fmt.Errorf("failed to write metrics: %w", err)
				}
			}

			if err := render.NewScenarioRenderer(cmd.OutOrStdout(), app.Config.JSON, verbose).Render(result); err != nil {
				return err
			}
			if result.Failed > 0 {
				return fmt.Errorf("%d of %d scenario steps failed", result.Failed, result.Passed+result.Failed)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&scenarioPath, "scenario", "", "Scenario YAML file (defaults to [simulate] scenario or the built-in one)")
	cmd.Flags().Uint64Var(&chainID, "chain-id", 0, "Dev chain id (default 31337)")
	cmd.Flags().StringVar(&baseURI, "base-uri", "", "NFT metadata base URI")
	cmd.Flags().StringVar(&metricsFile, "metrics-file", "", "Write Prometheus metrics to this file after the run")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Show decoded events for every step")

	return cmd
}
