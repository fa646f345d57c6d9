// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package rank turns a topic query into an ordered list of author
// identities. Authority comes from three signals: textual relevance of
// the author's articles, recency of those articles, and the author's
// position in the co-authorship graph.
package rank

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/pdiddy/expert-engine/internal/docstore"
	"github.com/pdiddy/expert-engine/internal/graph"
	"github.com/pdiddy/expert-engine/pkg/types"
)

// ErrInvalidQuery marks a query the engine cannot rank, such as an
// empty string.
var ErrInvalidQuery = errors.New("invalid query")

// ErrUnavailable marks a ranking attempt that failed because the
// document store could not answer. Ranking fails fast rather than
// serving a partial or stale answer.
var ErrUnavailable = errors.New("ranking unavailable")

// Ranker scores authors for topic queries. Safe for concurrent use as
// long as its collaborators are.
type Ranker struct {
	store docstore.Store
	graph *graph.Store
	cfg   types.RankingConfig
	now   func() time.Time
}

// New creates a ranker over the given document store and graph.
func New(store docstore.Store, g *graph.Store, cfg types.RankingConfig) *Ranker {
	return &Ranker{store: store, graph: g, cfg: cfg.Defaulted(), now: time.Now}
}

// Rank returns the topK most authoritative authors for the query.
// Results are strictly ordered: equal scores fall back to contribution
// count, then author ID, so the same corpus always yields the same
// list.
func (r *Ranker) Rank(ctx context.Context, query string, topK int) ([]types.RankedResult, error) {
	if strings.TrimSpace(query) == "" {
		return nil, fmt.Errorf("%w: empty query text", ErrInvalidQuery)
	}
	if topK <= 0 {
		topK = 10
	}

	callCtx, cancel := context.WithTimeout(ctx, r.cfg.StoreTimeout)
	hits, err := r.store.Search(callCtx, docstore.Query{Text: query, Size: r.cfg.PoolSize})
	cancel()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	if len(hits) == 0 {
		return []types.RankedResult{}, nil
	}

	// Text scores are backend-scaled; normalize by the pool maximum so
	// they blend with centrality on equal [0, 1] footing.
	maxScore := 0.0
	for _, h := range hits {
		if h.Score > maxScore {
			maxScore = h.Score
		}
	}
	if maxScore <= 0 {
		maxScore = 1
	}

	now := r.now()
	byAuthor := make(map[string][]types.Contribution)
	for _, h := range hits {
		rel := h.Score / maxScore
		adjusted := rel * r.recency(h.Date, now)
		for _, authorID := range h.AuthorIDs {
			if authorID == "" {
				continue
			}
			byAuthor[authorID] = append(byAuthor[authorID], types.Contribution{
				ArticleID: h.ID,
				Relevance: rel,
				Adjusted:  adjusted,
			})
		}
	}

	results := make([]types.RankedResult, 0, len(byAuthor))
	maxText := 0.0
	for authorID, contribs := range byAuthor {
		sort.Slice(contribs, func(i, j int) bool {
			if contribs[i].Adjusted != contribs[j].Adjusted {
				return contribs[i].Adjusted > contribs[j].Adjusted
			}
			return contribs[i].ArticleID < contribs[j].ArticleID
		})
		// Diminishing returns: the i-th best article counts 1/i, so
		// breadth helps but can never swamp a single strong match.
		text := 0.0
		for i, c := range contribs {
			text += c.Adjusted / float64(i+1)
		}
		if text > maxText {
			maxText = text
		}
		results = append(results, types.RankedResult{
			AuthorID:      authorID,
			TextScore:     text,
			Centrality:    r.graph.Centrality(authorID),
			Contributions: contribs,
		})
	}

	for i := range results {
		text := results[i].TextScore
		if maxText > 0 {
			text /= maxText
		}
		results[i].Score = r.cfg.Alpha*text + (1-r.cfg.Alpha)*results[i].Centrality
	}

	sort.Slice(results, func(i, j int) bool {
		a, b := results[i], results[j]
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		if len(a.Contributions) != len(b.Contributions) {
			return len(a.Contributions) > len(b.Contributions)
		}
		return a.AuthorID < b.AuthorID
	})
	if len(results) > topK {
		results = results[:topK]
	}

	if err := r.fillNames(ctx, results); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	return results, nil
}

// recency maps article age to a multiplier in [floor, 1]. Undated
// articles get the floor: they still count, just never as fresh work.
func (r *Ranker) recency(date time.Time, now time.Time) float64 {
	if date.IsZero() {
		return r.cfg.RecencyFloor
	}
	age := now.Sub(date).Hours() / (24 * 365.25)
	if age < 0 {
		age = 0
	}
	return math.Max(r.cfg.RecencyFloor, math.Exp(-age/r.cfg.HalfLifeYears))
}

func (r *Ranker) fillNames(ctx context.Context, results []types.RankedResult) error {
	if len(results) == 0 {
		return nil
	}
	ids := make([]string, len(results))
	for i, res := range results {
		ids[i] = res.AuthorID
	}
	callCtx, cancel := context.WithTimeout(ctx, r.cfg.StoreTimeout)
	defer cancel()
	authors, err := r.store.AuthorsByID(callCtx, ids)
	if err != nil {
		return err
	}
	for i := range results {
		if a, ok := authors[results[i].AuthorID]; ok {
			results[i].DisplayName = a.DisplayName
		}
	}
	return nil
}
