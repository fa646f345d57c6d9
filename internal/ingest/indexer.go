// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package ingest

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"

	"github.com/pdiddy/expert-engine/internal/checkpoint"
	"github.com/pdiddy/expert-engine/internal/docstore"
	"github.com/pdiddy/expert-engine/pkg/types"
)

// retryBaseDelay is the first backoff step for a failed bulk
// submission. Doubled on every subsequent attempt. A variable so tests
// can run without waiting.
var retryBaseDelay = 500 * time.Millisecond

// batch is one bulk submission. endRecord is the number of source
// records consumed from the partition once this batch is committed;
// batches never span partitions, so (partition, endRecord) is a valid
// checkpoint position.
type batch struct {
	seq       int
	partition int
	endRecord int
	docs      []docstore.Document
}

// outcome is the result of one settled batch, held until all earlier
// batches have settled so the checkpoint only ever moves forward. A
// non-nil fatal marks a store-level outage: the batch's documents were
// never committed, so the checkpoint must not advance past it.
type outcome struct {
	cp     checkpoint.Checkpoint
	failed []docstore.ItemError
	fatal  error
}

// indexer submits batches to the document store concurrently while
// advancing the checkpoint strictly in batch order. In-flight
// submissions are bounded by a semaphore and the submission rate by a
// token bucket.
type indexer struct {
	store       docstore.Store
	checkpoints checkpoint.Store
	cfg         types.IngestConfig
	sem         *semaphore.Weighted
	limiter     *rate.Limiter
	w           io.Writer

	wg  sync.WaitGroup
	seq int

	mu      sync.Mutex
	settled map[int]outcome
	next    int // next seq eligible to advance the checkpoint
	failed  []docstore.ItemError
	batches int
	indexed int
	fatal   error
}

func newIndexer(store docstore.Store, checkpoints checkpoint.Store, cfg types.IngestConfig, w io.Writer) *indexer {
	limit := rate.Inf
	if cfg.RatePerSecond > 0 {
		limit = rate.Limit(cfg.RatePerSecond)
	}
	return &indexer{
		store:       store,
		checkpoints: checkpoints,
		cfg:         cfg,
		sem:         semaphore.NewWeighted(int64(cfg.MaxInFlight)),
		limiter:     rate.NewLimiter(limit, 1),
		w:           w,
		settled:     make(map[int]outcome),
	}
}

// nextSeq issues the next batch sequence number. Called only from the
// single consuming goroutine.
func (ix *indexer) nextSeq() int {
	seq := ix.seq
	ix.seq++
	return seq
}

// snapshot returns the settled counters for the run report.
func (ix *indexer) snapshot() (batches, indexed int, failed []docstore.ItemError) {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	return ix.batches, ix.indexed, ix.failed
}

// submit hands a batch to a worker goroutine. It blocks while the
// in-flight limit is reached, which applies backpressure to the parse
// stage.
func (ix *indexer) submit(ctx context.Context, b batch) error {
	if err := ix.sem.Acquire(ctx, 1); err != nil {
		return err
	}
	ix.wg.Add(1)
	go func() {
		defer ix.sem.Release(1)
		defer ix.wg.Done()
		failed, fatal := ix.process(ctx, b)
		ix.settle(b, failed, fatal)
	}()
	return nil
}

// process pushes the batch to durable storage, retrying the failed subset with
// exponential backoff. Documents still rejected after the retry budget
// are returned as permanent failures. Already-committed items are not
// resubmitted, so retries combined with upsert semantics keep the
// store idempotent. A store-level error that survives the retries is
// returned as fatal: the whole store is presumed unreachable.
func (ix *indexer) process(ctx context.Context, b batch) ([]docstore.ItemError, error) {
	docs := b.docs
	for attempt := 0; ; attempt++ {
		if err := ix.limiter.Wait(ctx); err != nil {
			return failAll(docs, err), err
		}

		callCtx, cancel := context.WithTimeout(ctx, ix.cfg.StoreTimeout)
		res, err := ix.store.BulkUpsert(callCtx, docs)
		cancel()

		if err == nil && len(res.Failed) == 0 {
			ix.addIndexed(res.Upserted)
			return nil, nil
		}
		if err == nil {
			ix.addIndexed(res.Upserted)
			docs = failedSubset(docs, res.Failed)
		}

		if attempt >= ix.cfg.MaxRetries {
			if err != nil {
				return failAll(docs, err), fmt.Errorf("bulk upsert: %w", err)
			}
			return res.Failed, nil
		}

		delay := retryBaseDelay << uint(attempt)
		fmt.Fprintf(ix.w, "batch %d: %d documents rejected, retrying in %s\n", b.seq, len(docs), delay)
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return failAll(docs, ctx.Err()), ctx.Err()
		}
	}
}

func (ix *indexer) addIndexed(n int) {
	ix.mu.Lock()
	ix.indexed += n
	ix.mu.Unlock()
}

// settle records a finished batch and advances the checkpoint over the
// contiguous prefix of settled batches. A batch with per-document
// rejections still advances the checkpoint; its failures surface in
// the run report instead of blocking all later progress. A fatal batch
// stops the advance: nothing from it reached the store.
func (ix *indexer) settle(b batch, failed []docstore.ItemError, fatal error) {
	ix.mu.Lock()
	defer ix.mu.Unlock()

	ix.batches++
	ix.settled[b.seq] = outcome{
		cp: checkpoint.Checkpoint{
			Partition: b.partition,
			Record:    b.endRecord,
			UpdatedAt: time.Now().UTC(),
		},
		failed: failed,
		fatal:  fatal,
	}

	for {
		out, ok := ix.settled[ix.next]
		if !ok {
			return
		}
		delete(ix.settled, ix.next)
		ix.next++

		ix.failed = append(ix.failed, out.failed...)
		if ix.fatal != nil {
			continue
		}
		if out.fatal != nil {
			ix.fatal = out.fatal
			continue
		}
		if err := ix.checkpoints.Save(out.cp); err != nil {
			ix.fatal = fmt.Errorf("advancing checkpoint: %w", err)
		}
	}
}

// flush waits for every in-flight batch to settle and reports the
// first fatal error: a store outage or a checkpoint persistence
// failure, either of which ends the run.
func (ix *indexer) flush() error {
	ix.wg.Wait()
	ix.mu.Lock()
	defer ix.mu.Unlock()
	return ix.fatal
}

func failAll(docs []docstore.Document, err error) []docstore.ItemError {
	items := make([]docstore.ItemError, len(docs))
	for i, doc := range docs {
		items[i] = docstore.ItemError{ID: doc.ID, Err: err}
	}
	return items
}

func failedSubset(docs []docstore.Document, failed []docstore.ItemError) []docstore.Document {
	ids := make(map[string]bool, len(failed))
	for _, item := range failed {
		ids[item.ID] = true
	}
	subset := make([]docstore.Document, 0, len(failed))
	for _, doc := range docs {
		if ids[doc.ID] {
			subset = append(subset, doc)
		}
	}
	return subset
}
