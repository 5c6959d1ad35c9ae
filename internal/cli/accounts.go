package cli

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"
	"github.com/trebuchet-org/nftwallet/internal/cli/render"
	"github.com/trebuchet-org/nftwallet/internal/usecase"
)

// NewAccountsCmd creates the accounts command
func NewAccountsCmd() *cobra.Command {
	var (
		tokenContract  string
		implementation string
		deployedOnly   bool
	)

	cmd := &cobra.Command{
		Use:     "accounts",
		Aliases: []string{"ls"},
		Short:   "List accounts in the local index",
		Long: `List the accounts recorded in .nftwallet/accounts.json.

The index is built from AccountCreated events seen by simulate. It is a
discovery aid only: control of an account is always decided by the live
owner of its token. With --network only accounts on that chain are shown.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := getApp(cmd)
			if err != nil {
				return err
			}
			defer stopProgress(cmd)

			params := usecase.ListAccountsParams{DeployedOnly: deployedOnly}
			if tokenContract != "" {
				if !common.IsHexAddress(tokenContract) {
					return fmt.Errorf("invalid --token-contract %q", tokenContract)
				}
				params.TokenContract = common.HexToAddress(tokenContract)
			}
			if implementation != "" {
				if !common.IsHexAddress(implementation) {
					return fmt.Errorf("invalid --impl %q", implementation)
				}
				params.Implementation = common.HexToAddress(implementation)
			}

			result, err := app.ListAccounts.Run(cmd.Context(), params)
			if err != nil {
				return err
			}
			stopProgress(cmd)
			return render.NewAccountsRenderer(cmd.OutOrStdout(), app.Config.JSON).Render(result)
		},
	}

	cmd.Flags().StringVar(&tokenContract, "token-contract", "", "Filter by NFT contract")
	cmd.Flags().StringVar(&implementation, "impl", "", "Filter by account implementation")
	cmd.Flags().BoolVar(&deployedOnly, "deployed", false, "Only show deployed accounts")

	return cmd
}
