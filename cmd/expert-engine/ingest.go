// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/pdiddy/expert-engine/internal/checkpoint"
	"github.com/pdiddy/expert-engine/internal/docstore"
	"github.com/pdiddy/expert-engine/internal/graph"
	"github.com/pdiddy/expert-engine/internal/ingest"
	"github.com/pdiddy/expert-engine/internal/resolve"
)

var ingestCmd = &cobra.Command{
	Use:   "ingest [dump-dir]",
	Short: "Ingest bibliographic dump partitions into the index",
	Long: `Ingest reads every *.xml and *.xml.gz partition under dump-dir, parses
the records, resolves author identities, updates the co-authorship graph,
and bulk-indexes the documents.

Progress is checkpointed: an interrupted run resumes where it left off,
and re-running over the same dumps never duplicates documents, identities,
or graph edges. Use --reset to discard the checkpoint and start over.`,
	Args: cobra.ExactArgs(1),
	RunE: runIngest,
}

func init() {
	ingestCmd.Flags().Int("min-year", 0, "drop articles published before this year")
	ingestCmd.Flags().Int("batch-size", 0, "documents per bulk submission")
	ingestCmd.Flags().Int("max-in-flight", 0, "concurrent bulk submissions")
	ingestCmd.Flags().Float64("rate-limit", 0, "bulk submissions per second (0 = unlimited)")
	ingestCmd.Flags().Int("workers", 0, "partitions parsed ahead concurrently")
	ingestCmd.Flags().Bool("reset", false, "discard the checkpoint and re-ingest from the first partition")

	rootCmd.AddCommand(ingestCmd)
}

func runIngest(cmd *cobra.Command, args []string) error {
	cfg, err := pipelineConfig()
	if err != nil {
		return err
	}
	if v, _ := cmd.Flags().GetInt("min-year"); v > 0 {
		cfg.Parser.MinYear = v
	}
	if v, _ := cmd.Flags().GetInt("batch-size"); v > 0 {
		cfg.Ingest.BatchSize = v
	}
	if v, _ := cmd.Flags().GetInt("max-in-flight"); v > 0 {
		cfg.Ingest.MaxInFlight = v
	}
	if v, _ := cmd.Flags().GetFloat64("rate-limit"); v > 0 {
		cfg.Ingest.RatePerSecond = v
	}
	if v, _ := cmd.Flags().GetInt("workers"); v > 0 {
		cfg.Ingest.Workers = v
	}

	checkpoints := checkpoint.NewFileStore(dataPath(cmd, "checkpoint.yaml"))
	if reset, _ := cmd.Flags().GetBool("reset"); reset {
		if err := checkpoints.Reset(); err != nil {
			return err
		}
		fmt.Fprintln(os.Stderr, "Checkpoint reset")
	}

	store, err := docstore.OpenSQLite(dataPath(cmd, "index.db"))
	if err != nil {
		return err
	}
	defer store.Close()

	graphPath := dataPath(cmd, "graph.db")
	g, err := graph.Load(graphPath, cfg.Graph)
	if err != nil {
		return err
	}

	resolverPath := dataPath(cmd, "resolver.yaml")
	resolver, err := resolve.LoadFile(resolverPath, cfg.Resolver, os.Stderr)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pipeline := &ingest.Pipeline{
		Store:       store,
		Graph:       g,
		Resolver:    resolver,
		Checkpoints: checkpoints,
		Config:      cfg,
		Progress:    os.Stderr,
		PersistState: func() error {
			if err := resolver.SaveFile(resolverPath); err != nil {
				return err
			}
			return g.Save(graphPath)
		},
	}

	report, runErr := pipeline.Run(ctx, args[0])
	report.Write(os.Stdout)
	if runErr != nil {
		return runErr
	}

	// Final state snapshot, so rank and graph commands see the run.
	if err := pipeline.PersistState(); err != nil {
		return err
	}
	if len(report.Failed) > 0 {
		return fmt.Errorf("%d document(s) failed indexing", len(report.Failed))
	}
	return nil
}
