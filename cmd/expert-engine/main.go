// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package main is the entry point for the expert-engine CLI.
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/expert-engine/pkg/types"
)

// version is set at build time via ldflags.
var version = "dev"

// rootCmd is the base command for the expert-engine CLI.
var rootCmd = &cobra.Command{
	Use:   "expert-engine",
	Short: "Build and query an expert-discovery index from bibliographic dumps",
	Long: `expert-engine ingests bibliographic XML dumps into a searchable document
store, resolves raw author strings to canonical identities, maintains a
co-authorship graph, and ranks authors by topical authority.

Each stage is a subcommand: ingest processes dump partitions resumably,
rank answers topic queries, and graph inspects the co-authorship graph.`,
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().String("config", "", "config file (default: ./expert-engine.yaml or ~/.config/expert-engine/config.yaml)")
	rootCmd.PersistentFlags().String("data-dir", "data", "directory for the index, graph, and checkpoint files")
}

func initConfig() {
	cfgFile, _ := rootCmd.PersistentFlags().GetString("config")
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("expert-engine")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(filepath.Join(home, ".config", "expert-engine"))
		}
	}

	viper.SetEnvPrefix("EXPERT_ENGINE")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

// pipelineConfig loads stage settings from the config file's pipeline
// section. Missing file or section means defaults throughout.
func pipelineConfig() (types.PipelineConfig, error) {
	var cfg struct {
		Pipeline types.PipelineConfig `yaml:"pipeline"`
	}
	path := viper.ConfigFileUsed()
	if path == "" {
		return cfg.Pipeline, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg.Pipeline, fmt.Errorf("reading config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg.Pipeline, fmt.Errorf("parsing config %s: %w", path, err)
	}
	return cfg.Pipeline, nil
}

// dataPath resolves a state file location under the data directory.
func dataPath(cmd *cobra.Command, name string) string {
	dir, _ := cmd.Flags().GetString("data-dir")
	if dir == "" {
		dir = "data"
	}
	return filepath.Join(dir, name)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
