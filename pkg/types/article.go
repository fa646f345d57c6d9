// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package types holds the domain model and per-stage configuration shared
// across the engine. Components accept these structs; package-internal
// state stays in the internal packages.
package types

import "time"

// RawAuthor is one entry of an article's author list exactly as it appears
// in the source record, before identity resolution.
type RawAuthor struct {
	// FamilyName is the surname (PubMed LastName). Required by the
	// resolver; records without it still parse.
	FamilyName string `json:"family_name" yaml:"family_name"`

	// GivenName is the forename, possibly initials only (PubMed ForeName).
	GivenName string `json:"given_name,omitempty" yaml:"given_name,omitempty"`

	// ORCID is the author identifier when the source carries one.
	ORCID string `json:"orcid,omitempty" yaml:"orcid,omitempty"`

	// Affiliation is the first affiliation string, empty when absent.
	Affiliation string `json:"affiliation,omitempty" yaml:"affiliation,omitempty"`
}

// MeshQualifier refines a MeSH descriptor.
type MeshQualifier struct {
	ID         string `json:"id" yaml:"id"`
	Name       string `json:"name" yaml:"name"`
	MajorTopic bool   `json:"major_topic" yaml:"major_topic"`
}

// MeshHeading is one MeSH annotation: a descriptor plus its qualifiers.
type MeshHeading struct {
	ID         string          `json:"id" yaml:"id"`
	Name       string          `json:"name" yaml:"name"`
	MajorTopic bool            `json:"major_topic" yaml:"major_topic"`
	Qualifiers []MeshQualifier `json:"qualifiers,omitempty" yaml:"qualifiers,omitempty"`
}

// Article is one bibliographic record from a source dump. Immutable once
// ingested; re-ingestion overwrites by ID.
type Article struct {
	// ID is the source-assigned identifier (PMID).
	ID string `json:"id" yaml:"id"`

	// Title is the article title.
	Title string `json:"title" yaml:"title"`

	// Abstract is the abstract text with labeled segments flattened
	// ("BACKGROUND: ... METHODS: ..."). Empty when the record has none.
	Abstract string `json:"abstract,omitempty" yaml:"abstract,omitempty"`

	// Date is the publication date (PubMedPubDate with PubStatus
	// "pubmed"). Zero when the record carries no usable date.
	Date time.Time `json:"date" yaml:"date"`

	// Authors lists the raw author entries in source order.
	Authors []RawAuthor `json:"authors" yaml:"authors"`

	// Mesh lists the MeSH annotations.
	Mesh []MeshHeading `json:"mesh,omitempty" yaml:"mesh,omitempty"`

	// References lists cited article IDs (PMIDs) when present.
	References []string `json:"references,omitempty" yaml:"references,omitempty"`
}

// SubjectTerms returns the MeSH descriptor names, the article's subject
// vocabulary used for field-scoped search.
func (a *Article) SubjectTerms() []string {
	if len(a.Mesh) == 0 {
		return nil
	}
	terms := make([]string, 0, len(a.Mesh))
	for _, h := range a.Mesh {
		terms = append(terms, h.Name)
	}
	return terms
}

// AgeYears returns the article age in fractional years at now. Articles
// with a zero date report a very large age so recency boosts never apply.
func (a *Article) AgeYears(now time.Time) float64 {
	if a.Date.IsZero() {
		return 1e9
	}
	return now.Sub(a.Date).Hours() / (24 * 365.25)
}
