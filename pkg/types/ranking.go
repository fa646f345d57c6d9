// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

// Contribution is one candidate article's share of an author's score,
// kept so a ranking can be explained.
type Contribution struct {
	// ArticleID is the contributing article.
	ArticleID string `json:"article_id" yaml:"article_id"`

	// Relevance is the store's native relevance score for the article.
	Relevance float64 `json:"relevance" yaml:"relevance"`

	// Adjusted is the relevance after the recency multiplier.
	Adjusted float64 `json:"adjusted" yaml:"adjusted"`
}

// RankedResult is one entry of a ranking. Query-time only, never persisted.
type RankedResult struct {
	// AuthorID is the ranked identity.
	AuthorID string `json:"author_id" yaml:"author_id"`

	// DisplayName is the author's display name when the store knows it.
	DisplayName string `json:"display_name,omitempty" yaml:"display_name,omitempty"`

	// Score is the blended final score.
	Score float64 `json:"score" yaml:"score"`

	// TextScore is the aggregated textual component before blending.
	TextScore float64 `json:"text_score" yaml:"text_score"`

	// Centrality is the co-authorship centrality component.
	Centrality float64 `json:"centrality" yaml:"centrality"`

	// Contributions lists the candidate articles behind the score,
	// ordered by adjusted relevance descending.
	Contributions []Contribution `json:"contributions" yaml:"contributions"`
}
