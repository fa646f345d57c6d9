// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package resolve

import (
	"io"
	"strings"
	"testing"

	"github.com/pdiddy/expert-engine/pkg/types"
)

func article(id string, authors ...types.RawAuthor) *types.Article {
	return &types.Article{ID: id, Title: "t-" + id, Authors: authors}
}

func newTestResolver() *Resolver {
	return New(types.ResolverConfig{}, io.Discard)
}

func TestResolveOneMappingPerRawAuthor(t *testing.T) {
	r := newTestResolver()
	a := article("1",
		types.RawAuthor{FamilyName: "Smith", GivenName: "J", Affiliation: "MIT"},
		types.RawAuthor{FamilyName: "Lee", GivenName: "A", Affiliation: "MIT"},
		types.RawAuthor{FamilyName: "Smith", GivenName: "Q"},
	)

	res := r.Resolve(a)
	if len(res) != len(a.Authors) {
		t.Fatalf("got %d resolutions, want %d", len(res), len(a.Authors))
	}
	for i, got := range res {
		if got.RawIndex != i {
			t.Errorf("resolution %d has RawIndex %d", i, got.RawIndex)
		}
	}
	// "J Smith" and "Q Smith" are different people.
	if res[0].AuthorID == res[2].AuthorID {
		t.Error("distinct given names resolved to the same identity")
	}
}

func TestResolveIsIdempotent(t *testing.T) {
	r := newTestResolver()
	a := article("1",
		types.RawAuthor{FamilyName: "Smith", GivenName: "Jane", Affiliation: "MIT"},
		types.RawAuthor{FamilyName: "Lee", GivenName: "A", Affiliation: "MIT"},
	)

	first := r.Resolve(a)
	second := r.Resolve(a)

	for i := range first {
		if first[i].AuthorID != second[i].AuthorID {
			t.Errorf("resolution %d changed: %s vs %s", i, first[i].AuthorID, second[i].AuthorID)
		}
	}

	// Re-resolving must not duplicate the article in the identity's list.
	for _, au := range r.Authors() {
		for _, id := range au.Articles {
			count := 0
			for _, other := range au.Articles {
				if other == id {
					count++
				}
			}
			if count != 1 {
				t.Errorf("author %s lists article %s %d times", au.ID, id, count)
			}
		}
	}
}

func TestResolveNameVariantSamePerson(t *testing.T) {
	r := newTestResolver()

	res1 := r.Resolve(article("1", types.RawAuthor{FamilyName: "Smith", GivenName: "Jane", Affiliation: "Department of Mathematics, MIT"}))
	res2 := r.Resolve(article("2", types.RawAuthor{FamilyName: "Smith", GivenName: "J.", Affiliation: "MIT"}))

	if res1[0].AuthorID != res2[0].AuthorID {
		t.Errorf("Jane Smith@MIT and J. Smith@MIT should resolve to one identity, got %s and %s",
			res1[0].AuthorID, res2[0].AuthorID)
	}

	res3 := r.Resolve(article("3", types.RawAuthor{FamilyName: "Smith", GivenName: "J.", Affiliation: "Unrelated University"}))
	if res3[0].AuthorID == res1[0].AuthorID {
		t.Error("J. Smith at an unrelated institution should be a new identity")
	}
}

func TestResolveNoAffiliationBindsByName(t *testing.T) {
	r := newTestResolver()

	res1 := r.Resolve(article("1", types.RawAuthor{FamilyName: "Curie", GivenName: "Marie", Affiliation: "Sorbonne"}))
	res2 := r.Resolve(article("2", types.RawAuthor{FamilyName: "Curie", GivenName: "Marie"}))

	if res1[0].AuthorID != res2[0].AuthorID {
		t.Error("missing affiliation on one side should not block a full-name match")
	}
}

func TestResolveORCIDOverridesHeuristic(t *testing.T) {
	r := newTestResolver()
	orcid := "0000-0001-2345-6789"

	res1 := r.Resolve(article("1", types.RawAuthor{FamilyName: "Smith", GivenName: "Jane", ORCID: orcid, Affiliation: "MIT"}))
	// Different affiliation, same ORCID: still the same person.
	res2 := r.Resolve(article("2", types.RawAuthor{FamilyName: "Smith", GivenName: "J", ORCID: orcid, Affiliation: "Stanford University"}))

	if res1[0].AuthorID != res2[0].AuthorID {
		t.Error("shared ORCID must bind to one identity regardless of affiliation")
	}
}

func TestResolveDiacriticsAndCase(t *testing.T) {
	r := newTestResolver()

	res1 := r.Resolve(article("1", types.RawAuthor{FamilyName: "Müller", GivenName: "Jürgen", Affiliation: "TU Berlin"}))
	res2 := r.Resolve(article("2", types.RawAuthor{FamilyName: "MULLER", GivenName: "Jurgen", Affiliation: "TU Berlin"}))

	if res1[0].AuthorID != res2[0].AuthorID {
		t.Error("diacritic and case variants should resolve to one identity")
	}
}

func TestResolveTieBreakPrefersMostPublished(t *testing.T) {
	r := newTestResolver()

	// Two existing "J Smith" identities with no affiliation overlap paths:
	// seed them via distinct affiliations, then add articles to the first.
	res1 := r.Resolve(article("1", types.RawAuthor{FamilyName: "Smith", GivenName: "J", Affiliation: "MIT"}))
	r.Resolve(article("2", types.RawAuthor{FamilyName: "Smith", GivenName: "J", Affiliation: "MIT"}))
	res3 := r.Resolve(article("3", types.RawAuthor{FamilyName: "Smith", GivenName: "J", Affiliation: "Oxford"}))

	if res1[0].AuthorID == res3[0].AuthorID {
		t.Fatal("setup failed: expected two distinct J Smith identities")
	}

	// No affiliation: both identities match equally well by name. The
	// one with more prior articles wins.
	var buf strings.Builder
	r.w = &buf
	res4 := r.Resolve(article("4", types.RawAuthor{FamilyName: "Smith", GivenName: "J"}))

	if res4[0].AuthorID != res1[0].AuthorID {
		t.Errorf("tie should go to the identity with more articles: got %s, want %s",
			res4[0].AuthorID, res1[0].AuthorID)
	}
	if r.Ambiguities() == 0 {
		t.Error("tie between candidates should be counted as an ambiguity")
	}
	if !strings.Contains(buf.String(), "ambiguity") {
		t.Error("ambiguity should be logged for offline review")
	}
}

func TestAuthorsSnapshotSorted(t *testing.T) {
	r := newTestResolver()
	r.Resolve(article("1",
		types.RawAuthor{FamilyName: "Zed", GivenName: "A"},
		types.RawAuthor{FamilyName: "Young", GivenName: "B"},
		types.RawAuthor{FamilyName: "Xu", GivenName: "C"},
	))

	authors := r.Authors()
	if len(authors) != 3 {
		t.Fatalf("got %d authors, want 3", len(authors))
	}
	for i := 1; i < len(authors); i++ {
		if authors[i-1].ID >= authors[i].ID {
			t.Errorf("snapshot not sorted: %s before %s", authors[i-1].ID, authors[i].ID)
		}
	}
	if authors[0].ArticleCount() != 1 {
		t.Errorf("ArticleCount = %d, want 1", authors[0].ArticleCount())
	}
}
