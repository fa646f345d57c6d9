// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pdiddy/expert-engine/internal/docstore"
	"github.com/pdiddy/expert-engine/internal/graph"
)

var graphCmd = &cobra.Command{
	Use:   "graph",
	Short: "Inspect the co-authorship graph",
}

var graphStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Print node and edge counts",
	RunE:  runGraphStats,
}

var graphTopCmd = &cobra.Command{
	Use:   "top",
	Short: "List the most central authors",
	RunE:  runGraphTop,
}

func init() {
	graphTopCmd.Flags().Int("n", 10, "number of authors to list")

	graphCmd.AddCommand(graphStatsCmd)
	graphCmd.AddCommand(graphTopCmd)
	rootCmd.AddCommand(graphCmd)
}

func loadGraph(cmd *cobra.Command) (*graph.Store, error) {
	cfg, err := pipelineConfig()
	if err != nil {
		return nil, err
	}
	return graph.Load(dataPath(cmd, "graph.db"), cfg.Graph)
}

func runGraphStats(cmd *cobra.Command, args []string) error {
	g, err := loadGraph(cmd)
	if err != nil {
		return err
	}
	stats := g.Stats()
	fmt.Printf("nodes: %d\nedges: %d\n", stats.Nodes, stats.Edges)
	return nil
}

func runGraphTop(cmd *cobra.Command, args []string) error {
	g, err := loadGraph(cmd)
	if err != nil {
		return err
	}
	n, _ := cmd.Flags().GetInt("n")
	top := g.TopCentral(n)
	if len(top) == 0 {
		fmt.Println("Graph is empty.")
		return nil
	}

	store, err := docstore.OpenSQLite(dataPath(cmd, "index.db"))
	if err != nil {
		return err
	}
	defer store.Close()

	ids := make([]string, len(top))
	for i, ca := range top {
		ids[i] = ca.AuthorID
	}
	authors, err := store.AuthorsByID(context.Background(), ids)
	if err != nil {
		return err
	}

	fmt.Fprintf(os.Stdout, "%-4s  %-10s  %-30s  %s\n", "Rank", "ID", "Name", "Centrality")
	fmt.Fprintln(os.Stdout, strings.Repeat("-", 60))
	for i, ca := range top {
		fmt.Fprintf(os.Stdout, "%-4d  %-10s  %-30s  %.3f\n",
			i+1, ca.AuthorID, authors[ca.AuthorID].DisplayName, ca.Centrality)
	}
	return nil
}
