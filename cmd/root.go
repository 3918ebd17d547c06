package main

import (
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/Vini334/ReclamaAI/internal/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "reclamaai",
	Short: "Automated customer complaint triage pipeline",
	Long:  "Collects complaints, strips personal data, classifies them with Claude, routes them to a support team, opens a ticket and notifies the team and the customer.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load()
		if err != nil {
			return eris.Wrap(err, "load config")
		}
		cfg = c

		if err := config.InitLogger(cfg.Log); err != nil {
			return eris.Wrap(err, "init logger")
		}

		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
