package cli

import (
	"github.com/spf13/cobra"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "intentd",
	Short: "Signal decay and intent-scoring engine",
	Long:  "Intentd ingests weighted signal events about companies and contacts, decays them over per-type half-life curves, and serves live intent scores and tiers.",
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to TOML config file")
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(taxonomyCmd)
	rootCmd.AddCommand(scoresCmd)
}
