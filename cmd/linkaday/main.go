package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/jmerrifield20/linkaday/internal/config"
)

// version is overridden via -ldflags "-X main.version=...".
var version = "dev"

var cfgFile string

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "linkaday",
	Short: "Linkaday profile and subscription service",
	Long: `linkaday runs the Linkaday backend: Google sign-in, the LinkedIn
persona profile editor, Stripe subscriptions and profile export.

Configuration is read from linkaday.yaml (./ or ./configs) and LINKADAY_*
environment variables, e.g. LINKADAY_DATABASE_URL.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default ./linkaday.yaml or ./configs/linkaday.yaml)")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(profileCmd)
	rootCmd.AddCommand(versionCmd)
}

func loadConfig() (*config.Config, error) {
	return config.Load(newViper())
}

func newViper() *viper.Viper {
	return config.New(cfgFile)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the linkaday version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintln(cmd.OutOrStdout(), "linkaday", version)
	},
}
