// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package ingest

import (
	"fmt"
	"io"
	"time"

	"github.com/pdiddy/expert-engine/internal/docstore"
)

// Report aggregates the counters of one pipeline run. Failed documents
// are carried individually so the operator can inspect or replay them.
type Report struct {
	// Partitions is the number of dump files processed this run,
	// excluding partitions skipped by the checkpoint.
	Partitions int

	// Records is the number of source records read, including
	// malformed and filtered ones.
	Records int

	// Skipped is the number of malformed records dropped by the parser.
	Skipped int

	// Dropped is the number of records excluded by the minimum-year
	// filter.
	Dropped int

	// Indexed is the number of documents durably committed to the
	// document store.
	Indexed int

	// Failed holds the documents that could not be committed after
	// exhausting retries.
	Failed []docstore.ItemError

	// Batches is the number of bulk submissions issued.
	Batches int

	// Authors is the number of distinct author identities known after
	// the run.
	Authors int

	// Ambiguities is the number of identity resolutions that needed a
	// tie-break or spawned a new identity on conflicting evidence.
	Ambiguities int

	// Elapsed is the wall-clock duration of the run.
	Elapsed time.Duration
}

// Write prints a one-screen summary in the pipeline's progress format.
func (r *Report) Write(w io.Writer) {
	fmt.Fprintf(w, "Ingested %d partitions in %s\n", r.Partitions, r.Elapsed.Round(time.Second))
	fmt.Fprintf(w, "  records read:    %d\n", r.Records)
	fmt.Fprintf(w, "  malformed:       %d\n", r.Skipped)
	fmt.Fprintf(w, "  filtered by age: %d\n", r.Dropped)
	fmt.Fprintf(w, "  indexed:         %d in %d batches\n", r.Indexed, r.Batches)
	fmt.Fprintf(w, "  failed:          %d\n", len(r.Failed))
	fmt.Fprintf(w, "  authors:         %d (%d ambiguous resolutions)\n", r.Authors, r.Ambiguities)
	for _, item := range r.Failed {
		fmt.Fprintf(w, "  failed document %s: %v\n", item.ID, item.Err)
	}
}
