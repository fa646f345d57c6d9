// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pdiddy/expert-engine/internal/docstore"
	"github.com/pdiddy/expert-engine/internal/graph"
	"github.com/pdiddy/expert-engine/internal/rank"
)

var rankCmd = &cobra.Command{
	Use:   "rank [query...]",
	Short: "Rank authors by topical authority",
	Long: `Rank finds the authors most authoritative on a topic. The score blends
textual relevance of each author's articles, recency of that work, and
the author's centrality in the co-authorship graph.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runRank,
}

func init() {
	rankCmd.Flags().Int("top", 10, "number of authors to return")
	rankCmd.Flags().Int("pool", 0, "candidate article pool size")
	rankCmd.Flags().Float64("half-life", 0, "recency half-life in years")
	rankCmd.Flags().Float64("alpha", 0, "text-score weight in the blend (0..1)")
	rankCmd.Flags().Bool("json", false, "output results as JSON")

	rootCmd.AddCommand(rankCmd)
}

func runRank(cmd *cobra.Command, args []string) error {
	cfg, err := pipelineConfig()
	if err != nil {
		return err
	}

	store, err := docstore.OpenSQLite(dataPath(cmd, "index.db"))
	if err != nil {
		return err
	}
	defer store.Close()

	g, err := graph.Load(dataPath(cmd, "graph.db"), cfg.Graph)
	if err != nil {
		return err
	}

	if v, _ := cmd.Flags().GetInt("pool"); v > 0 {
		cfg.Ranking.PoolSize = v
	}
	if v, _ := cmd.Flags().GetFloat64("half-life"); v > 0 {
		cfg.Ranking.HalfLifeYears = v
	}
	if v, _ := cmd.Flags().GetFloat64("alpha"); v > 0 {
		cfg.Ranking.Alpha = v
	}

	topK, _ := cmd.Flags().GetInt("top")
	ranker := rank.New(store, g, cfg.Ranking)
	results, err := ranker.Rank(context.Background(), strings.Join(args, " "), topK)
	if err != nil {
		return err
	}

	if jsonOutput, _ := cmd.Flags().GetBool("json"); jsonOutput {
		return rank.FormatJSON(results, os.Stdout)
	}
	rank.FormatTable(results, os.Stdout)
	return nil
}
