package commands

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/yeremiapane/restqr/config"
	"github.com/yeremiapane/restqr/utils"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "restqr",
	Short: "RestQR - table QR ordering backend",
	Long: `RestQR serves the per-table QR ordering flow: table tokens, order
submission and the live kitchen display feed.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		loaded, err := config.Load()
		if err != nil {
			return err
		}
		cfg = loaded
		utils.InitLogger(cfg.LogLevel, cfg.LogFormat)
		return nil
	},
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
