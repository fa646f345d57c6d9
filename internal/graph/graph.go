// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package graph maintains the weighted co-authorship network: authors as
// nodes, shared-article authorship as edges. Edge state is sharded so
// concurrent article processing never contends on a single lock.
package graph

import (
	"hash/fnv"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/pdiddy/expert-engine/pkg/types"
)

// edge is one unordered author pair. The contributing-article set makes
// weight updates idempotent: re-ingesting a corpus never double-counts.
type edge struct {
	a, b     string // canonical order: a < b
	weight   float64
	articles map[string]bool
	updated  time.Time
}

type shard struct {
	mu    sync.Mutex
	edges map[string]*edge
}

// Store is the co-authorship graph.
type Store struct {
	cfg    types.GraphConfig
	shards []*shard

	// Centrality cache, recomputed lazily after writes.
	centralMu sync.RWMutex
	central   map[string]float64
	dirty     bool
}

// New creates an empty graph store.
func New(cfg types.GraphConfig) *Store {
	cfg = cfg.Defaulted()
	shards := make([]*shard, cfg.Shards)
	for i := range shards {
		shards[i] = &shard{edges: make(map[string]*edge)}
	}
	return &Store{cfg: cfg, shards: shards, dirty: true}
}

func edgeKey(x, y string) (string, string, string) {
	if y < x {
		x, y = y, x
	}
	return x, y, x + "\x00" + y
}

func (s *Store) shardFor(key string) *shard {
	h := fnv.New32a()
	h.Write([]byte(key))
	return s.shards[h.Sum32()%uint32(len(s.shards))]
}

// contribution returns the weight an article adds to an edge: 1.0, or a
// recency-decayed value when a half-life is configured.
func (s *Store) contribution(published time.Time) float64 {
	if s.cfg.HalfLifeYears <= 0 || published.IsZero() {
		return 1.0
	}
	ageYears := time.Since(published).Hours() / (24 * 365.25)
	if ageYears < 0 {
		ageYears = 0
	}
	return math.Exp(-ageYears / s.cfg.HalfLifeYears)
}

// RecordCoauthorship updates the edge of every unordered author pair on
// the article. An article already reflected in an edge is ignored, so
// the call is idempotent. Self-loops are never created; duplicate IDs in
// the list collapse to one node.
func (s *Store) RecordCoauthorship(articleID string, authorIDs []string, published time.Time) {
	unique := make([]string, 0, len(authorIDs))
	seen := make(map[string]bool, len(authorIDs))
	for _, id := range authorIDs {
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		unique = append(unique, id)
	}
	if len(unique) < 2 {
		return
	}

	contrib := s.contribution(published)
	now := time.Now().UTC()
	changed := false

	for i := 0; i < len(unique); i++ {
		for j := i + 1; j < len(unique); j++ {
			a, b, key := edgeKey(unique[i], unique[j])
			sh := s.shardFor(key)
			sh.mu.Lock()
			e, ok := sh.edges[key]
			if !ok {
				e = &edge{a: a, b: b, articles: make(map[string]bool)}
				sh.edges[key] = e
			}
			if !e.articles[articleID] {
				e.articles[articleID] = true
				e.weight += contrib
				e.updated = now
				changed = true
			}
			sh.mu.Unlock()
		}
	}

	if changed {
		s.centralMu.Lock()
		s.dirty = true
		s.centralMu.Unlock()
	}
}

// Weight returns the edge weight between two authors, in either argument
// order. Zero when no edge exists.
func (s *Store) Weight(x, y string) float64 {
	_, _, key := edgeKey(x, y)
	sh := s.shardFor(key)
	sh.mu.Lock()
	defer sh.mu.Unlock()
	if e, ok := sh.edges[key]; ok {
		return e.weight
	}
	return 0
}

// Centrality returns the author's normalized weighted degree: the sum of
// incident edge weights divided by the corpus-wide maximum. Deterministic
// given the graph state and monotone in edge weight. Authors with no
// edges score zero.
func (s *Store) Centrality(authorID string) float64 {
	s.centralMu.RLock()
	if !s.dirty {
		c := s.central[authorID]
		s.centralMu.RUnlock()
		return c
	}
	s.centralMu.RUnlock()

	s.centralMu.Lock()
	defer s.centralMu.Unlock()
	if s.dirty {
		s.recompute()
	}
	return s.central[authorID]
}

// recompute rebuilds the normalized degree table. Caller holds centralMu.
func (s *Store) recompute() {
	degrees := make(map[string]float64)
	for _, sh := range s.shards {
		sh.mu.Lock()
		for _, e := range sh.edges {
			degrees[e.a] += e.weight
			degrees[e.b] += e.weight
		}
		sh.mu.Unlock()
	}

	max := 0.0
	for _, d := range degrees {
		if d > max {
			max = d
		}
	}

	s.central = make(map[string]float64, len(degrees))
	if max > 0 {
		for id, d := range degrees {
			s.central[id] = d / max
		}
	}
	s.dirty = false
}

// Stats summarizes the graph for operator visibility.
type Stats struct {
	Nodes int
	Edges int
}

// Stats returns node and edge counts.
func (s *Store) Stats() Stats {
	nodes := make(map[string]bool)
	edges := 0
	for _, sh := range s.shards {
		sh.mu.Lock()
		for _, e := range sh.edges {
			nodes[e.a] = true
			nodes[e.b] = true
			edges++
		}
		sh.mu.Unlock()
	}
	return Stats{Nodes: len(nodes), Edges: edges}
}

// CentralAuthor is one entry of a centrality leaderboard.
type CentralAuthor struct {
	AuthorID   string
	Centrality float64
}

// TopCentral returns the n most central authors, ties broken by ID.
func (s *Store) TopCentral(n int) []CentralAuthor {
	s.centralMu.Lock()
	if s.dirty {
		s.recompute()
	}
	out := make([]CentralAuthor, 0, len(s.central))
	for id, c := range s.central {
		out = append(out, CentralAuthor{AuthorID: id, Centrality: c})
	}
	s.centralMu.Unlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].Centrality != out[j].Centrality {
			return out[i].Centrality > out[j].Centrality
		}
		return out[i].AuthorID < out[j].AuthorID
	})
	if n > 0 && len(out) > n {
		out = out[:n]
	}
	return out
}
