// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package docstore defines the document-store contract the engine writes
// to and ranks from, plus the default SQLite FTS5 implementation. The
// store is an external collaborator: a durable keyed document sink with
// field-scoped text queries and native relevance scores.
package docstore

import (
	"context"
	"time"

	"github.com/pdiddy/expert-engine/pkg/types"
)

// Document is one indexed article, denormalized for search: resolved
// author IDs travel with the text fields so ranking needs no joins.
type Document struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Abstract    string    `json:"abstract,omitempty"`
	Subjects    []string  `json:"subjects,omitempty"`
	Date        time.Time `json:"date"`
	AuthorIDs   []string  `json:"author_ids"`
	AuthorNames []string  `json:"author_names,omitempty"`
}

// ItemError is one rejected document of a bulk upsert.
type ItemError struct {
	ID  string
	Err error
}

// BulkResult reports per-item outcomes of one bulk upsert.
type BulkResult struct {
	Upserted int
	Failed   []ItemError
}

// Query is a field-scoped text query over title, abstract, and subject
// terms.
type Query struct {
	// Text is the free-text query. Terms combine with OR so the
	// candidate pool stays broad; relevance ranking separates them.
	Text string

	// Size bounds the number of hits.
	Size int
}

// Hit is one scored match.
type Hit struct {
	Document
	// Score is the store's native relevance score, higher is better.
	Score float64
}

// Store is the document-store contract. Upserts are keyed by document
// ID: re-submitting an ID overwrites, so re-ingestion is idempotent.
type Store interface {
	// BulkUpsert writes a batch. Individual rejections come back in the
	// result; the error return is reserved for store-level failures
	// where nothing can be assumed written.
	BulkUpsert(ctx context.Context, docs []Document) (BulkResult, error)

	// Search runs a relevance-scored text query restricted to the
	// title/abstract/subjects fields.
	Search(ctx context.Context, q Query) ([]Hit, error)

	// PutAuthors upserts author summary documents.
	PutAuthors(ctx context.Context, authors []types.Author) error

	// AuthorsByID fetches author summaries; absent IDs are simply
	// missing from the map.
	AuthorsByID(ctx context.Context, ids []string) (map[string]types.Author, error)

	Close() error
}

// FromArticle builds the indexable document for an article and its
// resolved author IDs.
func FromArticle(a *types.Article, authorIDs []string) Document {
	names := make([]string, 0, len(a.Authors))
	for _, raw := range a.Authors {
		if raw.GivenName != "" {
			names = append(names, raw.GivenName+" "+raw.FamilyName)
		} else {
			names = append(names, raw.FamilyName)
		}
	}
	return Document{
		ID:          a.ID,
		Title:       a.Title,
		Abstract:    a.Abstract,
		Subjects:    a.SubjectTerms(),
		Date:        a.Date,
		AuthorIDs:   authorIDs,
		AuthorNames: names,
	}
}
