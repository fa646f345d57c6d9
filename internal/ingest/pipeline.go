// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package ingest turns a directory of bibliographic dump files into
// indexed documents with resolved author identities and an updated
// co-authorship graph. Runs are resumable: progress is checkpointed at
// batch granularity and every stage is idempotent, so a crash costs at
// most one partition of reprocessing and never produces duplicates.
package ingest

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/pdiddy/expert-engine/internal/checkpoint"
	"github.com/pdiddy/expert-engine/internal/docstore"
	"github.com/pdiddy/expert-engine/internal/graph"
	"github.com/pdiddy/expert-engine/internal/pubmed"
	"github.com/pdiddy/expert-engine/internal/resolve"
	"github.com/pdiddy/expert-engine/pkg/types"
)

// Pipeline wires the parse, resolve, graph, and index stages together.
// The caller owns the collaborators and their lifetimes.
type Pipeline struct {
	Store       docstore.Store
	Graph       *graph.Store
	Resolver    *resolve.Resolver
	Checkpoints checkpoint.Store
	Config      types.PipelineConfig

	// PersistState, when set, is invoked at every partition boundary
	// before the boundary checkpoint is written. It should make the
	// resolver and graph state durable so that a resumed run replays a
	// partition against the same state the crashed run started it with.
	PersistState func() error

	// Progress receives human-readable progress lines. Nil discards.
	Progress io.Writer
}

// parsedItem carries one parsed article tagged with its source record
// index, or a stream-level parse failure that aborts the partition.
// Malformed and filtered records advance the index without producing
// an item.
type parsedItem struct {
	article *types.Article
	record  int
	err     error
}

// partitionStream is a partition being parsed ahead of consumption.
// The counters are written before items is closed and must only be
// read after the channel is drained.
type partitionStream struct {
	part    Partition
	items   chan parsedItem
	records int
	skipped int
	dropped int
}

// Run processes every partition under dir that the checkpoint has not
// yet passed. It returns the run report alongside any error; the
// report is valid even for aborted runs.
func (p *Pipeline) Run(ctx context.Context, dir string) (*Report, error) {
	start := time.Now()
	cfg := p.Config.Defaulted()
	w := p.Progress
	if w == nil {
		w = io.Discard
	}
	report := &Report{}
	ix := newIndexer(p.Store, p.Checkpoints, cfg.Ingest, w)
	finish := func(err error) (*Report, error) {
		report.Batches, report.Indexed, report.Failed = ix.snapshot()
		report.Elapsed = time.Since(start)
		report.Authors = len(p.Resolver.Authors())
		report.Ambiguities = p.Resolver.Ambiguities()
		return report, err
	}

	partitions, err := ListPartitions(dir)
	if err != nil {
		return finish(err)
	}
	cp, err := p.Checkpoints.Load()
	if err != nil {
		return finish(fmt.Errorf("loading checkpoint: %w", err))
	}
	if cp.Partition > 0 || cp.Record > 0 {
		fmt.Fprintf(w, "Resuming from partition %d, record %d\n", cp.Partition, cp.Record)
	}
	if cp.Partition >= len(partitions) {
		fmt.Fprintf(w, "Nothing to do: %d partitions, all committed\n", len(partitions))
		return finish(nil)
	}
	pending := partitions[cp.Partition:]

	// Parse ahead: up to Workers partitions are decompressed and
	// parsed concurrently, but consumed strictly in order.
	streams := make([]*partitionStream, len(pending))
	for i, part := range pending {
		streams[i] = &partitionStream{part: part, items: make(chan parsedItem, 256)}
	}
	parseCtx, stopParsing := context.WithCancel(ctx)
	defer stopParsing()
	started := 0
	startAhead := func(upto int) {
		for ; started < len(streams) && started <= upto; started++ {
			go p.parsePartition(parseCtx, streams[started])
		}
	}

	for i, ps := range streams {
		startAhead(i + cfg.Ingest.Workers - 1)

		// Records at or below the resume offset were committed by the
		// crashed run. They are replayed through the resolver and the
		// graph, both idempotent against the persisted boundary state,
		// but not resubmitted to the document store.
		skipBelow := 0
		if ps.part.Index == cp.Partition {
			skipBelow = cp.Record
		}

		if err := p.consumePartition(ctx, ps, ix, cfg.Ingest, skipBelow); err != nil {
			ix.flush()
			return finish(err)
		}
		// A cancelled context drains the parse channel early; the
		// partition is incomplete and must not be marked committed.
		if err := ctx.Err(); err != nil {
			ix.flush()
			return finish(err)
		}

		if err := ix.flush(); err != nil {
			return finish(err)
		}
		if p.PersistState != nil {
			if err := p.PersistState(); err != nil {
				return finish(fmt.Errorf("persisting pipeline state: %w", err))
			}
		}
		if err := p.Checkpoints.Save(checkpoint.Checkpoint{
			Partition: ps.part.Index + 1,
			UpdatedAt: time.Now().UTC(),
		}); err != nil {
			return finish(fmt.Errorf("advancing checkpoint: %w", err))
		}

		report.Partitions++
		report.Records += ps.records
		report.Skipped += ps.skipped
		report.Dropped += ps.dropped
		fmt.Fprintf(w, "Partition %s: %d records, %d malformed, %d filtered\n",
			ps.part.Name(), ps.records, ps.skipped, ps.dropped)
	}

	if err := p.flushAuthors(ctx, cfg.Ingest); err != nil {
		return finish(err)
	}
	return finish(nil)
}

// consumePartition drains one parsed partition, resolving identities,
// recording co-authorship, and batching documents for submission.
func (p *Pipeline) consumePartition(ctx context.Context, ps *partitionStream, ix *indexer, cfg types.IngestConfig, skipBelow int) error {
	lastRecord := 0
	var docs []docstore.Document

	submit := func() error {
		if len(docs) == 0 {
			return nil
		}
		b := batch{
			seq:       ix.nextSeq(),
			partition: ps.part.Index,
			endRecord: lastRecord,
			docs:      docs,
		}
		docs = nil
		return ix.submit(ctx, b)
	}

	for item := range ps.items {
		if item.err != nil {
			return fmt.Errorf("partition %s: %w", ps.part.Name(), item.err)
		}

		article := item.article
		resolutions := p.Resolver.Resolve(article)
		authorIDs := make([]string, len(resolutions))
		for _, res := range resolutions {
			authorIDs[res.RawIndex] = res.AuthorID
		}
		p.Graph.RecordCoauthorship(article.ID, authorIDs, article.Date)

		if item.record <= skipBelow {
			continue
		}
		docs = append(docs, docstore.FromArticle(article, authorIDs))
		lastRecord = item.record
		if len(docs) >= cfg.BatchSize {
			if err := submit(); err != nil {
				return err
			}
		}
	}
	return submit()
}

// parsePartition streams one partition's articles into ps.items,
// closing the channel when the partition is exhausted or ctx ends.
func (p *Pipeline) parsePartition(ctx context.Context, ps *partitionStream) {
	var s *pubmed.Stream
	defer close(ps.items)
	defer func() {
		if s != nil {
			ps.records = s.Records()
			ps.skipped = s.Skipped()
			ps.dropped = s.Dropped()
		}
	}()

	rc, err := ps.part.Open()
	if err != nil {
		ps.items <- parsedItem{err: err}
		return
	}
	defer rc.Close()

	s = pubmed.NewStream(rc, p.Config.Parser)
	for {
		article, err := s.Next()
		if err == io.EOF {
			return
		}
		// Malformed records are skipped and counted; the stream stays
		// usable. Only stream-level failures end the partition.
		if pubmed.IsRecordError(err) {
			continue
		}
		if err != nil {
			select {
			case ps.items <- parsedItem{err: err}:
			case <-ctx.Done():
			}
			return
		}
		select {
		case ps.items <- parsedItem{article: article, record: s.Records()}:
		case <-ctx.Done():
			return
		}
	}
}

// flushAuthors writes the resolver's author summaries to the document
// store so search results can show display names without a resolver.
func (p *Pipeline) flushAuthors(ctx context.Context, cfg types.IngestConfig) error {
	authors := p.Resolver.Authors()
	if len(authors) == 0 {
		return nil
	}
	callCtx, cancel := context.WithTimeout(ctx, cfg.StoreTimeout)
	defer cancel()
	if err := p.Store.PutAuthors(callCtx, authors); err != nil {
		return fmt.Errorf("storing author summaries: %w", err)
	}
	return nil
}
