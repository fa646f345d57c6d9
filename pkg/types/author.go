// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

// Author is a resolved person identity, distinct from any single raw name
// string. Identities are never deleted; merging two identities is a
// future ID-level redirect, not a runtime rewrite.
type Author struct {
	// ID is the stable surrogate identifier assigned at creation
	// (e.g. "a000042"). Lexical order matches creation order.
	ID string `json:"id" yaml:"id"`

	// DisplayName is the fullest observed name form, kept for output.
	DisplayName string `json:"display_name" yaml:"display_name"`

	// ORCID is set once an article binds one to this identity.
	ORCID string `json:"orcid,omitempty" yaml:"orcid,omitempty"`

	// NameVariants holds every normalized full name observed for this
	// identity.
	NameVariants []string `json:"name_variants" yaml:"name_variants"`

	// Affiliations holds every normalized affiliation observed.
	Affiliations []string `json:"affiliations,omitempty" yaml:"affiliations,omitempty"`

	// Articles lists the IDs of articles this identity contributed to.
	Articles []string `json:"articles" yaml:"articles"`
}

// ArticleCount returns the number of contributed articles.
func (a *Author) ArticleCount() int { return len(a.Articles) }
