// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package main is the entry point for the genegap CLI: the HTTP API
// server plus one-shot analysis, lookup and archive commands.
package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/genegap/internal/output"
	"github.com/pdiddy/genegap/internal/secrets"
)

// version is set at build time via ldflags.
var version = "dev"

// loadedSecrets holds credentials loaded from .secrets/ at startup.
var loadedSecrets secrets.Set

// rootCmd is the base command for the genegap CLI.
var rootCmd = &cobra.Command{
	Use:   "genegap",
	Short: "Find plant genes studied in one species but not in others",
	Long: `genegap mines PubMed for genes associated with a research question in a
well-studied plant, then counts publications for each gene in other crops
to surface under-studied genes.

Run "genegap serve" for the JSON API used by the web frontend, or
"genegap analyze" for a one-shot analysis on the command line.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		s, err := secrets.Load(viper.GetString("secrets_dir"), nil)
		if err != nil {
			return err
		}
		loadedSecrets = s
		if len(s) > 0 {
			newPrinter(os.Stderr).Info("Loaded secrets: %v", s.Keys())
		}
		if _, err := output.ResolveColors(viper.GetString("output.color")); err != nil {
			return err
		}
		return nil
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().String("config", "", "config file (default: ./genegap.yaml or ~/.config/genegap/genegap.yaml)")
	rootCmd.PersistentFlags().String("log-level", "", "log level: debug, info, warn, error")
	rootCmd.PersistentFlags().String("model", "", "language model used when a request names none")
	viper.BindPFlag("log_level", rootCmd.PersistentFlags().Lookup("log-level"))
	rootCmd.PersistentFlags().String("color", "", "color output: auto, always or never")
	viper.BindPFlag("llm.model", rootCmd.PersistentFlags().Lookup("model"))
	viper.BindPFlag("output.color", rootCmd.PersistentFlags().Lookup("color"))

	setDefaults()
}

func initConfig() {
	cfgFile, _ := rootCmd.PersistentFlags().GetString("config")
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("genegap")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(filepath.Join(home, ".config", "genegap"))
		}
	}

	viper.SetEnvPrefix("GENEGAP")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

// newPrinter returns a status printer for w honoring output.color. An
// invalid mode is rejected in PersistentPreRunE, so it maps to plain here.
func newPrinter(w io.Writer) *output.Printer {
	useColors, _ := output.ResolveColors(viper.GetString("output.color"))
	return output.NewPrinter(w, useColors)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
