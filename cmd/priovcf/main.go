// Package main provides the priovcf command-line tool, which
// annotates variants in a VCF with a prioritisation flag based on
// gene-panel modes of inheritance, allele-frequency thresholds and
// zygosity counts.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// Version information (set at build time)
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

var verbose bool

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:     "priovcf",
		Short:   "Flag variants for clinical review based on panel modes of inheritance",
		Long: `priovcf annotates a single-sample, VEP-annotated VCF with a flag
marking each variant PRIORITISED, NOT_PRIORITISED or NOT_ASSESSED,
using the gene panel's mode of inheritance, MOI-specific allele
frequency ceilings and per-gene zygosity counts.`,
		Version:       fmt.Sprintf("%s (%s) built %s", version, commit, date),
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	cobra.OnInitialize(initConfig)

	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")

	root.AddCommand(newFlagCmd())
	root.AddCommand(newPanelCmd())
	root.AddCommand(newConfigCmd())

	return root
}

// initConfig loads the persistent tool configuration from
// ~/.priovcf.yaml if present.
func initConfig() {
	home, err := os.UserHomeDir()
	if err != nil {
		return
	}
	viper.AddConfigPath(home)
	viper.SetConfigName(".priovcf")
	viper.SetConfigType("yaml")
	viper.SetEnvPrefix("PRIOVCF")
	viper.AutomaticEnv()

	// Missing config file is fine; defaults apply.
	_ = viper.ReadInConfig()
}

// newLogger builds the CLI logger. Library packages default to no-op
// loggers; the CLI injects this one.
func newLogger() (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.OutputPaths = []string{"stderr"}
	if verbose {
		cfg = zap.NewDevelopmentConfig()
		cfg.OutputPaths = []string{"stderr"}
	}
	return cfg.Build()
}
