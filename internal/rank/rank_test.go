// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package rank

import (
	"context"
	"errors"
	"math"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/expert-engine/internal/docstore"
	"github.com/pdiddy/expert-engine/internal/graph"
	"github.com/pdiddy/expert-engine/pkg/types"
)

var rankNow = time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)

func newRanker(t *testing.T, store *docstore.Mem, g *graph.Store, cfg types.RankingConfig) *Ranker {
	t.Helper()
	if g == nil {
		g = graph.New(types.GraphConfig{})
	}
	r := New(store, g, cfg)
	r.now = func() time.Time { return rankNow }
	return r
}

func putDocs(t *testing.T, store *docstore.Mem, docs ...docstore.Document) {
	t.Helper()
	res, err := store.BulkUpsert(context.Background(), docs)
	require.NoError(t, err)
	require.Empty(t, res.Failed)
}

func TestRankRejectsEmptyQuery(t *testing.T) {
	r := newRanker(t, docstore.NewMem(), nil, types.RankingConfig{})
	_, err := r.Rank(context.Background(), "   ", 10)
	assert.ErrorIs(t, err, ErrInvalidQuery)
}

func TestRankStoreOutage(t *testing.T) {
	store := docstore.NewMem()
	store.SearchErr = errors.New("index offline")
	r := newRanker(t, store, nil, types.RankingConfig{})
	_, err := r.Rank(context.Background(), "graphs", 10)
	assert.ErrorIs(t, err, ErrUnavailable)
	assert.ErrorIs(t, err, store.SearchErr)
}

func TestRankNoMatches(t *testing.T) {
	r := newRanker(t, docstore.NewMem(), nil, types.RankingConfig{})
	results, err := r.Rank(context.Background(), "unheard topic", 10)
	require.NoError(t, err)
	assert.Empty(t, results)
}

// A breadth of recent, moderately relevant work outranks one strong
// but stale match.
func TestRankRecentBreadthBeatsStaleDepth(t *testing.T) {
	store := docstore.NewMem()
	putDocs(t, store,
		docstore.Document{ID: "1", Title: "Graph methods", Date: rankNow.AddDate(0, -6, 0), AuthorIDs: []string{"a000001"}},
		docstore.Document{ID: "2", Title: "Graph learning", Date: rankNow.AddDate(-1, 0, 0), AuthorIDs: []string{"a000001"}},
		docstore.Document{ID: "3", Title: "Graph sampling", Date: rankNow.AddDate(-1, -6, 0), AuthorIDs: []string{"a000001"}},
		docstore.Document{ID: "4", Title: "Graph graph graph theory", Date: rankNow.AddDate(-15, 0, 0), AuthorIDs: []string{"a000002"}},
	)

	r := newRanker(t, store, nil, types.RankingConfig{})
	results, err := r.Rank(context.Background(), "graph", 10)
	require.NoError(t, err)
	require.Len(t, results, 2)

	assert.Equal(t, "a000001", results[0].AuthorID)
	assert.Equal(t, "a000002", results[1].AuthorID)
	assert.Greater(t, results[0].Score, results[1].Score)
	assert.Len(t, results[0].Contributions, 3)
}

func TestRankCentralityBreaksTextTies(t *testing.T) {
	store := docstore.NewMem()
	putDocs(t, store,
		docstore.Document{ID: "1", Title: "Protein folding", Date: rankNow, AuthorIDs: []string{"a000001"}},
		docstore.Document{ID: "2", Title: "Protein folding", Date: rankNow, AuthorIDs: []string{"a000002"}},
	)

	g := graph.New(types.GraphConfig{})
	g.RecordCoauthorship("x1", []string{"a000002", "a000009"}, rankNow)
	g.RecordCoauthorship("x2", []string{"a000002", "a000008"}, rankNow)

	r := newRanker(t, store, g, types.RankingConfig{})
	results, err := r.Rank(context.Background(), "protein folding", 10)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "a000002", results[0].AuthorID)
	assert.Greater(t, results[0].Centrality, results[1].Centrality)
}

func TestRankDeterministicTieOrder(t *testing.T) {
	store := docstore.NewMem()
	putDocs(t, store,
		docstore.Document{ID: "1", Title: "Quantum sensing", Date: rankNow, AuthorIDs: []string{"a000005"}},
		docstore.Document{ID: "2", Title: "Quantum sensing", Date: rankNow, AuthorIDs: []string{"a000003"}},
	)

	r := newRanker(t, store, nil, types.RankingConfig{})
	for run := 0; run < 3; run++ {
		results, err := r.Rank(context.Background(), "quantum", 10)
		require.NoError(t, err)
		require.Len(t, results, 2)
		assert.Equal(t, "a000003", results[0].AuthorID)
		assert.Equal(t, "a000005", results[1].AuthorID)
	}
}

func TestRankTruncatesToTopK(t *testing.T) {
	store := docstore.NewMem()
	for i := 0; i < 5; i++ {
		putDocs(t, store, docstore.Document{
			ID:        string(rune('1' + i)),
			Title:     "Climate modeling",
			Date:      rankNow,
			AuthorIDs: []string{"a00000" + string(rune('0'+i))},
		})
	}

	r := newRanker(t, store, nil, types.RankingConfig{})
	results, err := r.Rank(context.Background(), "climate", 2)
	require.NoError(t, err)
	assert.Len(t, results, 2)
}

func TestRankFillsDisplayNames(t *testing.T) {
	store := docstore.NewMem()
	putDocs(t, store, docstore.Document{ID: "1", Title: "Neural decoding", Date: rankNow, AuthorIDs: []string{"a000001"}})
	require.NoError(t, store.PutAuthors(context.Background(), []types.Author{
		{ID: "a000001", DisplayName: "Jane Smith"},
	}))

	r := newRanker(t, store, nil, types.RankingConfig{})
	results, err := r.Rank(context.Background(), "neural", 10)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "Jane Smith", results[0].DisplayName)
}

// flatStore serves a fixed hit list so score shapes the in-memory
// store never produces can still be exercised.
type flatStore struct {
	hits []docstore.Hit
}

func (s *flatStore) BulkUpsert(context.Context, []docstore.Document) (docstore.BulkResult, error) {
	return docstore.BulkResult{}, nil
}

func (s *flatStore) Search(context.Context, docstore.Query) ([]docstore.Hit, error) {
	return s.hits, nil
}

func (s *flatStore) PutAuthors(context.Context, []types.Author) error { return nil }

func (s *flatStore) AuthorsByID(context.Context, []string) (map[string]types.Author, error) {
	return map[string]types.Author{}, nil
}

func (s *flatStore) Close() error { return nil }

// Some backends bottom out at a flat zero relevance; normalization must
// stay finite instead of dividing by the pool maximum.
func TestRankZeroScorePool(t *testing.T) {
	store := &flatStore{hits: []docstore.Hit{
		{Document: docstore.Document{ID: "1", Title: "Graph methods", Date: rankNow, AuthorIDs: []string{"a000001"}}},
		{Document: docstore.Document{ID: "2", Title: "Graph learning", Date: rankNow, AuthorIDs: []string{"a000002"}}},
	}}
	r := New(store, graph.New(types.GraphConfig{}), types.RankingConfig{})
	r.now = func() time.Time { return rankNow }

	results, err := r.Rank(context.Background(), "graphs", 10)
	require.NoError(t, err)
	require.Len(t, results, 2)
	for _, res := range results {
		assert.False(t, math.IsNaN(res.Score), "score for %s", res.AuthorID)
		assert.False(t, math.IsNaN(res.TextScore), "text score for %s", res.AuthorID)
	}
}

func TestRecencyMultiplier(t *testing.T) {
	r := newRanker(t, docstore.NewMem(), nil, types.RankingConfig{})

	assert.InDelta(t, 1.0, r.recency(rankNow, rankNow), 1e-9)
	assert.InDelta(t, 0.1, r.recency(time.Time{}, rankNow), 1e-9, "undated gets the floor")
	assert.InDelta(t, 1.0, r.recency(rankNow.AddDate(1, 0, 0), rankNow), 1e-9, "future dates clamp")

	old := r.recency(rankNow.AddDate(-40, 0, 0), rankNow)
	assert.InDelta(t, 0.1, old, 1e-9, "ancient work floors out")

	mid := r.recency(rankNow.AddDate(-5, 0, 0), rankNow)
	assert.Greater(t, mid, 0.3)
	assert.Less(t, mid, 0.5)
}

func TestFormatTable(t *testing.T) {
	results := []types.RankedResult{
		{AuthorID: "a000001", DisplayName: "Jane Smith", Score: 0.91, TextScore: 1.0, Centrality: 0.7,
			Contributions: []types.Contribution{{ArticleID: "1"}}},
	}
	var sb strings.Builder
	FormatTable(results, &sb)
	out := sb.String()
	assert.Contains(t, out, "Jane Smith")
	assert.Contains(t, out, "a000001")
	assert.Contains(t, out, "1 experts")

	sb.Reset()
	FormatTable(nil, &sb)
	assert.Contains(t, sb.String(), "No experts found.")
}

func TestFormatJSON(t *testing.T) {
	results := []types.RankedResult{{AuthorID: "a000001", Score: 0.5}}
	var sb strings.Builder
	require.NoError(t, FormatJSON(results, &sb))
	assert.Contains(t, sb.String(), `"author_id": "a000001"`)
}
