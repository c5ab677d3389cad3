// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package main is the entry point for the mescan CLI.
// Implements: prd001-ingest, prd002-classification, prd003-couplings,
//             prd004-engine-bridge, prd005-scan, prd006-results (CLI surface).
// See docs/ARCHITECTURE § Pipeline Interface, § Project Structure.
package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// version is set at build time via ldflags.
var version = "dev"

// rootCmd is the base command for the mescan CLI.
var rootCmd = &cobra.Command{
	Use:   "mescan",
	Short: "Matrix-element scans over Les Houches event files",
	Long: `mescan reads Les Houches event files, classifies each event's particles
into Higgs decay daughters, associated production particles, and incoming
beams, and drives an external matrix-element worker to compute observables
for each event under a set of coupling scenarios.

Each pipeline stage is a subcommand: classify inspects events, scan runs
the full pipeline into a results database, couplings manages the coupling
registry and scenario files, and results queries recorded runs.`,
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().String("config", "", "config file (default: ./mescan.yaml or ~/.config/mescan/config.yaml)")
	rootCmd.PersistentFlags().String("db", "", "results database file (default: mescan.db)")
	rootCmd.PersistentFlags().Bool("quiet", false, "suppress per-event progress output")
}

func initConfig() {
	cfgFile, _ := rootCmd.PersistentFlags().GetString("config")
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("mescan")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(filepath.Join(home, ".config", "mescan"))
		}
	}

	viper.SetEnvPrefix("MESCAN")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

// stringSetting resolves a setting from its flag, then the config file,
// then the built-in fallback.
func stringSetting(cmd *cobra.Command, name, fallback string) string {
	if v, _ := cmd.Flags().GetString(name); v != "" {
		return v
	}
	if v := viper.GetString(name); v != "" {
		return v
	}
	return fallback
}

// databasePath returns the results database file for this invocation.
func databasePath(cmd *cobra.Command) string {
	return stringSetting(cmd, "db", "mescan.db")
}

// progressWriter returns the destination for per-event progress lines,
// honoring --quiet.
func progressWriter(cmd *cobra.Command) io.Writer {
	if q, _ := cmd.Flags().GetBool("quiet"); q || viper.GetBool("quiet") {
		return io.Discard
	}
	return os.Stdout
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
