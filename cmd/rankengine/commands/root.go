package commands

import (
	"github.com/spf13/cobra"
)

var (
	// Global flags
	configFile string
	env        string
	verbose    bool
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "rankengine",
	Short: "Equity ranking engine for the Indian market",
	Long: `rankengine

Ranks NSE/BSE equities across five scoring strategies, ingesting daily
price bars and fundamentals through a scheduled poller pipeline.

Usage:
  rankengine [command]

Examples:
  rankengine scheduler start
  rankengine pipeline run --strategy momentum --top 50
  rankengine admin trigger-price-update
  rankengine status market`,
}

// Execute adds all child commands to the root command and sets flags
// appropriately. This is called by main.main(). It only needs to happen
// once to the rootCmd.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "config file (default is .env)")
	rootCmd.PersistentFlags().StringVar(&env, "env", "development", "environment (development|staging|production)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}
