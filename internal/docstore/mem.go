// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package docstore

import (
	"context"
	"sort"
	"strings"
	"sync"
	"unicode"

	"github.com/pdiddy/expert-engine/pkg/types"
)

// Mem is an in-memory Store for tests and small corpora. Scoring is a
// weighted term-frequency sum over the same fields the SQLite store
// indexes, so ranking behavior is comparable if not identical.
type Mem struct {
	mu      sync.Mutex
	docs    map[string]Document
	authors map[string]types.Author

	// Failure injection for pipeline tests.
	UpsertErr error                 // returned by BulkUpsert when set
	SearchErr error                 // returned by Search when set
	RejectID  func(id string) error // per-item rejection when non-nil
}

// NewMem creates an empty in-memory store.
func NewMem() *Mem {
	return &Mem{
		docs:    make(map[string]Document),
		authors: make(map[string]types.Author),
	}
}

// BulkUpsert stores the batch, honoring the failure-injection hooks.
func (m *Mem) BulkUpsert(ctx context.Context, docs []Document) (BulkResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.UpsertErr != nil {
		return BulkResult{}, m.UpsertErr
	}

	var result BulkResult
	for i := range docs {
		d := docs[i]
		if err := validate(&d); err != nil {
			result.Failed = append(result.Failed, ItemError{ID: d.ID, Err: err})
			continue
		}
		if m.RejectID != nil {
			if err := m.RejectID(d.ID); err != nil {
				result.Failed = append(result.Failed, ItemError{ID: d.ID, Err: err})
				continue
			}
		}
		m.docs[d.ID] = d
		result.Upserted++
	}
	return result, nil
}

func memTokens(s string) []string {
	return strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

func termFrequency(text string, terms []string) float64 {
	freq := 0.0
	for _, tok := range memTokens(text) {
		for _, term := range terms {
			if tok == term {
				freq++
			}
		}
	}
	return freq
}

// Search scores every document by weighted term frequency (title 3x,
// subjects 2x, abstract 1x) and returns the top Size, ties by ID.
func (m *Mem) Search(ctx context.Context, q Query) ([]Hit, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.SearchErr != nil {
		return nil, m.SearchErr
	}

	terms := memTokens(q.Text)
	if len(terms) == 0 {
		return nil, nil
	}

	var hits []Hit
	for _, d := range m.docs {
		score := 3*termFrequency(d.Title, terms) +
			2*termFrequency(strings.Join(d.Subjects, " "), terms) +
			termFrequency(d.Abstract, terms)
		if score > 0 {
			hits = append(hits, Hit{Document: d, Score: score})
		}
	}

	sort.Slice(hits, func(i, j int) bool {
		if hits[i].Score != hits[j].Score {
			return hits[i].Score > hits[j].Score
		}
		return hits[i].ID < hits[j].ID
	})

	size := q.Size
	if size <= 0 {
		size = 100
	}
	if len(hits) > size {
		hits = hits[:size]
	}
	return hits, nil
}

// PutAuthors stores author summaries.
func (m *Mem) PutAuthors(ctx context.Context, authors []types.Author) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, a := range authors {
		m.authors[a.ID] = a
	}
	return nil
}

// AuthorsByID fetches stored author summaries.
func (m *Mem) AuthorsByID(ctx context.Context, ids []string) (map[string]types.Author, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string]types.Author, len(ids))
	for _, id := range ids {
		if a, ok := m.authors[id]; ok {
			out[id] = a
		}
	}
	return out, nil
}

// Close is a no-op.
func (m *Mem) Close() error { return nil }

// Len returns the number of stored documents.
func (m *Mem) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.docs)
}

// Get returns a stored document by ID.
func (m *Mem) Get(id string) (Document, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.docs[id]
	return d, ok
}
