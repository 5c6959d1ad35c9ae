package cli

import (
	"github.com/spf13/cobra"
	"github.com/trebuchet-org/nftwallet/internal/cli/render"
	"github.com/trebuchet-org/nftwallet/internal/usecase"
)

// NewStatusCmd creates the status command
func NewStatusCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status <tokenId>...",
		Short: "Check predicted accounts on a live network",
		Long: `Predict the account for each token id and query the network over RPC:
whether code is deployed, whether token() reports the expected binding, and
who currently owns the token.`,
		Example: `  nftwallet status 0-9 --network sepolia`,
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := getApp(cmd)
			if err != nil {
				return err
			}
			defer stopProgress(cmd)

			ids, err := parseTokenIDs(args)
			if err != nil {
				return err
			}
			result, err := app.CheckAccounts.Run(cmd.Context(), usecase.CheckAccountsParams{TokenIDs: ids})
			if err != nil {
				return err
			}
			stopProgress(cmd)
			return render.NewStatusRenderer(cmd.OutOrStdout(), app.Config.JSON).Render(result)
		},
	}

	addContractFlags(cmd)

	return cmd
}
