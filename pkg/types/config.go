// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// ParserConfig holds settings for the record parser.
type ParserConfig struct {
	// MinYear drops articles published before this year at parse time.
	// Zero keeps everything.
	MinYear int `json:"min_year" yaml:"min_year"`
}

// ResolverConfig holds settings for author identity resolution.
type ResolverConfig struct {
	// AffiliationThreshold is the minimum Jaccard token similarity
	// between normalized affiliations for a name match to bind to an
	// existing identity (default 0.5).
	AffiliationThreshold float64 `json:"affiliation_threshold" yaml:"affiliation_threshold"`
}

// Defaulted returns the config with zero fields replaced by defaults.
func (c ResolverConfig) Defaulted() ResolverConfig {
	if c.AffiliationThreshold <= 0 {
		c.AffiliationThreshold = 0.5
	}
	return c
}

// GraphConfig holds settings for the co-authorship graph store.
type GraphConfig struct {
	// Shards is the number of edge shards (default 64).
	Shards int `json:"shards" yaml:"shards"`

	// HalfLifeYears controls the recency decay of edge contributions.
	// Zero disables decay; every shared article then counts 1.0.
	HalfLifeYears float64 `json:"half_life_years" yaml:"half_life_years"`
}

// Defaulted returns the config with zero fields replaced by defaults.
func (c GraphConfig) Defaulted() GraphConfig {
	if c.Shards <= 0 {
		c.Shards = 64
	}
	return c
}

// IngestConfig holds settings for the checkpointed bulk indexer and the
// ingestion pipeline around it.
type IngestConfig struct {
	// BatchSize is the number of documents per bulk upsert (default 500).
	BatchSize int `json:"batch_size" yaml:"batch_size"`

	// MaxInFlight bounds concurrent bulk submissions (default 4).
	// Producers block when the limit is reached.
	MaxInFlight int `json:"max_in_flight" yaml:"max_in_flight"`

	// MaxRetries bounds per-batch retry attempts for rejected documents
	// (default 3).
	MaxRetries int `json:"max_retries" yaml:"max_retries"`

	// RatePerSecond caps bulk submissions per second. Zero disables
	// rate limiting.
	RatePerSecond float64 `json:"rate_per_second" yaml:"rate_per_second"`

	// Workers is the number of partitions parsed ahead concurrently
	// (default 2). Partitions are always committed in order.
	Workers int `json:"workers" yaml:"workers"`

	// StoreTimeout bounds each document-store call (default 30s).
	StoreTimeout time.Duration `json:"store_timeout" yaml:"store_timeout"`
}

// Defaulted returns the config with zero fields replaced by defaults.
func (c IngestConfig) Defaulted() IngestConfig {
	if c.BatchSize <= 0 {
		c.BatchSize = 500
	}
	if c.MaxInFlight <= 0 {
		c.MaxInFlight = 4
	}
	if c.MaxRetries <= 0 {
		c.MaxRetries = 3
	}
	if c.Workers <= 0 {
		c.Workers = 2
	}
	if c.StoreTimeout <= 0 {
		c.StoreTimeout = 30 * time.Second
	}
	return c
}

// RankingConfig holds settings for the ranking engine.
type RankingConfig struct {
	// PoolSize is the candidate article pool fetched from the store,
	// always larger than the requested top-k (default 200).
	PoolSize int `json:"pool_size" yaml:"pool_size"`

	// HalfLifeYears controls the recency multiplier applied to article
	// relevance (default 5).
	HalfLifeYears float64 `json:"half_life_years" yaml:"half_life_years"`

	// RecencyFloor is the minimum recency multiplier, so old articles
	// keep some weight (default 0.1).
	RecencyFloor float64 `json:"recency_floor" yaml:"recency_floor"`

	// Alpha is the convex blend weight of the textual score; the
	// remainder goes to graph centrality (default 0.7).
	Alpha float64 `json:"alpha" yaml:"alpha"`

	// StoreTimeout bounds the candidate query (default 10s). Ranking
	// fails rather than waits: staleness is cheaper than latency.
	StoreTimeout time.Duration `json:"store_timeout" yaml:"store_timeout"`
}

// Defaulted returns the config with zero fields replaced by defaults.
func (c RankingConfig) Defaulted() RankingConfig {
	if c.PoolSize <= 0 {
		c.PoolSize = 200
	}
	if c.HalfLifeYears <= 0 {
		c.HalfLifeYears = 5
	}
	if c.RecencyFloor <= 0 {
		c.RecencyFloor = 0.1
	}
	if c.Alpha <= 0 || c.Alpha > 1 {
		c.Alpha = 0.7
	}
	if c.StoreTimeout <= 0 {
		c.StoreTimeout = 10 * time.Second
	}
	return c
}

// PipelineConfig groups all stage configurations.
type PipelineConfig struct {
	Parser   ParserConfig   `json:"parser" yaml:"parser"`
	Resolver ResolverConfig `json:"resolver" yaml:"resolver"`
	Graph    GraphConfig    `json:"graph" yaml:"graph"`
	Ingest   IngestConfig   `json:"ingest" yaml:"ingest"`
	Ranking  RankingConfig  `json:"ranking" yaml:"ranking"`
}

// Defaulted returns the config with zero fields replaced by defaults
// in every stage.
func (c PipelineConfig) Defaulted() PipelineConfig {
	c.Resolver = c.Resolver.Defaulted()
	c.Graph = c.Graph.Defaulted()
	c.Ingest = c.Ingest.Defaulted()
	c.Ranking = c.Ranking.Defaulted()
	return c
}
