// Command platewise is the operator CLI for the POS analytics engine:
// schema migration, tenant management, demo seeding, derived-table
// refreshes, the exclusion registry, and the analytics queries.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/platewise/platewise/internal/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "platewise",
	Short: "Restaurant POS analytics engine",
	Long: "platewise ingests POS line items and serves menu engineering,\n" +
		"dayparting, trend, and basket analytics per tenant.",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		var err error
		cfg, err = config.Load()
		if err != nil {
			return err
		}
		if err := config.InitLogger(cfg.Log); err != nil {
			return err
		}
		return cfg.Validate()
	},
	PersistentPostRun: func(_ *cobra.Command, _ []string) {
		_ = zap.L().Sync()
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
