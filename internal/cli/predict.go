package cli

import (
	"github.com/spf13/cobra"
	"github.com/trebuchet-org/nftwallet/internal/cli/render"
	"github.com/trebuchet-org/nftwallet/internal/usecase"
)

// NewPredictCmd creates the predict command
func NewPredictCmd() *cobra.Command {
	var chainID uint64

	cmd := &cobra.Command{
		Use:   "predict <tokenId>...",
		Short: "Predict account addresses for token ids",
		Long: `Derive the CREATE2 address of the account bound to each token id.

Prediction is offline: it needs the registry, the account implementation and the
NFT contract, taken from the selected network in nftwallet.toml or from flags.`,
		Example: `  # Accounts for tokens 0 through 4 on sepolia
  nftwallet predict 0-4 --network sepolia

  # Explicit contracts on a dev chain
  nftwallet predict 7 --chain-id 31337 --registry 0x... --implementation 0x... --token 0x...`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := getApp(cmd)
			if err != nil {
				return err
			}
			ids, err := parseTokenIDs(args)
			if err != nil {
				return err
			}

			result, err := app.PredictAccount.Run(cmd.Context(), usecase.PredictAccountParams{
				ChainID:  chainID,
				TokenIDs: ids,
			})
			if err != nil {
				return err
			}
			return render.NewPredictRenderer(cmd.OutOrStdout(), app.Config.JSON).Render(result)
		},
	}

	addContractFlags(cmd)
	cmd.Flags().Uint64Var(&chainID, "chain-id", 0, "Chain id of the NFT (defaults to the network's)")

	return cmd
}
