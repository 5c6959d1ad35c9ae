package cli

import (
	"github.com/spf13/cobra"
	"github.com/trebuchet-org/nftwallet/internal/cli/render"
	"github.com/trebuchet-org/nftwallet/internal/usecase"
)

// NewConfigCmd creates the config command with subcommands
func NewConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage nftwallet local config",
		Long: `Show the configuration after merging nftwallet.toml, .env files,
.nftwallet/config.local.json, NFTWALLET_* environment variables and flags.

Subcommands edit .nftwallet/config.local.json, which overrides the project
file for this checkout only.

Available keys:
  network   Network from nftwallet.toml used when --network is not given
  scenario  Scenario file used by simulate when --scenario is not given`,
		Example: `  nftwallet config
  nftwallet config set network sepolia
  nftwallet config remove scenario`,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := getApp(cmd)
			if err != nil {
				return err
			}
			result, err := app.ShowConfig.Run(cmd.Context())
			if err != nil {
				return err
			}
			return render.NewConfigRenderer(cmd.OutOrStdout(), app.Config.JSON).Render(result)
		},
	}

	cmd.AddCommand(newConfigSetCmd())
	cmd.AddCommand(newConfigRemoveCmd())

	return cmd
}

func newConfigSetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "set <key> <value>",
		Short: "Set a local config value",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := getApp(cmd)
			if err != nil {
				return err
			}
			result, err := app.SetConfig.Run(cmd.Context(), usecase.SetConfigParams{Key: args[0], Value: args[1]})
			if err != nil {
				return err
			}
			return render.NewConfigRenderer(cmd.OutOrStdout(), app.Config.JSON).RenderSet(result)
		},
	}
}

func newConfigRemoveCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "remove <key>",
		Aliases: []string{"rm", "unset"},
		Short:   "Remove a local config value",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := getApp(cmd)
			if err != nil {
				return err
			}
			result, err := app.RemoveConfig.Run(cmd.Context(), usecase.RemoveConfigParams{Key: args[0]})
			if err != nil {
				return err
			}
			return render.NewConfigRenderer(cmd.OutOrStdout(), app.Config.JSON).RenderRemove(result)
		},
	}
}
