// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package docstore

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/expert-engine/pkg/types"
)

func testStore(t *testing.T) *SQLite {
	t.Helper()
	s, err := OpenSQLite(filepath.Join(t.TempDir(), "docs.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func doc(id, title, abstract string, subjects ...string) Document {
	return Document{
		ID:       id,
		Title:    title,
		Abstract: abstract,
		Subjects: subjects,
		Date:     time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC),
	}
}

func TestBulkUpsertAndSearch(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	res, err := s.BulkUpsert(ctx, []Document{
		doc("1", "Spectral graph theory methods", "We study eigenvalues of graphs.", "Graph Theory"),
		doc("2", "Deep learning for protein folding", "Neural networks fold proteins.", "Proteins"),
	})
	require.NoError(t, err)
	assert.Equal(t, 2, res.Upserted)
	assert.Empty(t, res.Failed)

	hits, err := s.Search(ctx, Query{Text: "graph theory", Size: 10})
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "1", hits[0].ID)
	assert.Greater(t, hits[0].Score, 0.0)
	assert.Equal(t, []string{"Graph Theory"}, hits[0].Subjects)
}

func TestBulkUpsertIdempotentOverwrite(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	first := doc("1", "Original title", "", "X")
	_, err := s.BulkUpsert(ctx, []Document{first})
	require.NoError(t, err)

	// Same ID again: overwrite, not duplicate.
	second := doc("1", "Updated title about transformers", "", "X")
	res, err := s.BulkUpsert(ctx, []Document{second})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Upserted)

	hits, err := s.Search(ctx, Query{Text: "transformers", Size: 10})
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "Updated title about transformers", hits[0].Title)

	// The old title no longer matches anything.
	hits, err = s.Search(ctx, Query{Text: "original", Size: 10})
	require.NoError(t, err)
	assert.Empty(t, hits)
}

func TestBulkUpsertPerItemFailures(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	batch := []Document{
		doc("1", "Good one", ""),
		{ID: "2"}, // no title: rejected
		doc("3", "Another good one", ""),
		{Title: "no id"}, // no ID: rejected
	}
	res, err := s.BulkUpsert(ctx, batch)
	require.NoError(t, err, "per-item rejections are not a batch error")
	assert.Equal(t, 2, res.Upserted)
	require.Len(t, res.Failed, 2)
	assert.Equal(t, "2", res.Failed[0].ID)
}

func TestSearchFieldWeighting(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	_, err := s.BulkUpsert(ctx, []Document{
		doc("title-hit", "Quantum computing advances", "Nothing relevant here."),
		doc("abstract-hit", "A survey of algorithms", "This work discusses quantum computing."),
	})
	require.NoError(t, err)

	hits, err := s.Search(ctx, Query{Text: "quantum computing", Size: 10})
	require.NoError(t, err)
	require.Len(t, hits, 2)
	assert.Equal(t, "title-hit", hits[0].ID, "title matches outrank abstract matches")
}

func TestSearchPunctuationSafe(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	_, err := s.BulkUpsert(ctx, []Document{doc("1", "CRISPR-Cas9 gene editing", "")})
	require.NoError(t, err)

	// Raw FTS5 would choke on the quotes and dashes.
	hits, err := s.Search(ctx, Query{Text: `"CRISPR-Cas9" (editing)`, Size: 10})
	require.NoError(t, err)
	assert.NotEmpty(t, hits)
}

func TestSearchDeterministicTieOrder(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	_, err := s.BulkUpsert(ctx, []Document{
		doc("b", "same words here", ""),
		doc("a", "same words here", ""),
		doc("c", "same words here", ""),
	})
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		hits, err := s.Search(ctx, Query{Text: "same words", Size: 10})
		require.NoError(t, err)
		require.Len(t, hits, 3)
		assert.Equal(t, "a", hits[0].ID)
		assert.Equal(t, "b", hits[1].ID)
		assert.Equal(t, "c", hits[2].ID)
	}
}

func TestPutAndGetAuthors(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	authors := []types.Author{
		{ID: "a000000", DisplayName: "Jane Smith", NameVariants: []string{"jane smith", "j smith"},
			Affiliations: []string{"MIT"}, Articles: []string{"1", "2"}},
		{ID: "a000001", DisplayName: "A Lee", Articles: []string{"2"}},
	}
	require.NoError(t, s.PutAuthors(ctx, authors))

	got, err := s.AuthorsByID(ctx, []string{"a000000", "a000001", "missing"})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "Jane Smith", got["a000000"].DisplayName)
	assert.Equal(t, []string{"1", "2"}, got["a000000"].Articles)

	// Upsert with grown article list overwrites.
	authors[1].Articles = []string{"2", "3"}
	require.NoError(t, s.PutAuthors(ctx, authors))
	got, err = s.AuthorsByID(ctx, []string{"a000001"})
	require.NoError(t, err)
	assert.Equal(t, []string{"2", "3"}, got["a000001"].Articles)
}

func TestFromArticle(t *testing.T) {
	a := &types.Article{
		ID:       "42",
		Title:    "T",
		Abstract: "A",
		Date:     time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC),
		Authors: []types.RawAuthor{
			{FamilyName: "Smith", GivenName: "Jane"},
			{FamilyName: "Consortium"},
		},
		Mesh: []types.MeshHeading{{ID: "D1", Name: "Graph Theory"}},
	}

	d := FromArticle(a, []string{"a000000", "a000001"})
	assert.Equal(t, "42", d.ID)
	assert.Equal(t, []string{"Graph Theory"}, d.Subjects)
	assert.Equal(t, []string{"Jane Smith", "Consortium"}, d.AuthorNames)
	assert.Equal(t, []string{"a000000", "a000001"}, d.AuthorIDs)
}
