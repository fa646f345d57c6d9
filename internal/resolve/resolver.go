// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package resolve maps raw author name+affiliation strings to canonical
// Author identities. The heuristic leans toward precision: when the
// evidence is ambiguous it creates a new identity rather than risk
// polluting an existing one with someone else's articles.
package resolve

import (
	"fmt"
	"io"
	"sort"
	"sync"

	"github.com/pdiddy/expert-engine/pkg/types"
)

// Resolution maps one raw author entry to a canonical identity.
type Resolution struct {
	// AuthorID is the canonical identity.
	AuthorID string

	// RawIndex is the position in the article's raw author list.
	RawIndex int
}

// authorRec is the resolver's working state for one identity: the public
// Author record plus the normalized evidence used for matching.
type authorRec struct {
	author   types.Author
	keys     []string          // index keys this identity is registered under
	givens   [][]string        // observed given-name token lists
	affils   []map[string]bool // observed affiliation token sets
	variants map[string]bool   // normalized full-name keys, for dedup
	articles map[string]bool
}

// Resolver holds the identity index. All matching and creation for one
// article runs under a single lock so concurrent article processing
// cannot interleave and split identities.
type Resolver struct {
	mu      sync.Mutex
	cfg     types.ResolverConfig
	nextID  int
	byID    map[string]*authorRec
	index   map[string][]*authorRec // family|initial → candidates, creation order
	byORCID map[string]*authorRec

	ambiguities int
	w           io.Writer
}

// New creates an empty resolver. Ambiguity events are logged to w for
// offline review; pass io.Discard to silence them.
func New(cfg types.ResolverConfig, w io.Writer) *Resolver {
	if w == nil {
		w = io.Discard
	}
	return &Resolver{
		cfg:     cfg.Defaulted(),
		byID:    make(map[string]*authorRec),
		index:   make(map[string][]*authorRec),
		byORCID: make(map[string]*authorRec),
		w:       w,
	}
}

// Resolve maps every raw author entry of the article to an identity,
// creating identities as needed. It returns exactly one resolution per
// raw entry, in raw-list order. Resolving the same article twice against
// the same resolver state returns the same identifiers.
func (r *Resolver) Resolve(article *types.Article) []Resolution {
	r.mu.Lock()
	defer r.mu.Unlock()

	resolutions := make([]Resolution, 0, len(article.Authors))
	for i, raw := range article.Authors {
		rec := r.resolveOne(raw)
		rec.articles[article.ID] = true
		rec.author.Articles = appendUnique(rec.author.Articles, article.ID)
		resolutions = append(resolutions, Resolution{AuthorID: rec.author.ID, RawIndex: i})
	}
	return resolutions
}

func (r *Resolver) resolveOne(raw types.RawAuthor) *authorRec {
	// An ORCID is a stable key: it binds regardless of the heuristic.
	if raw.ORCID != "" {
		if rec, ok := r.byORCID[raw.ORCID]; ok {
			r.observe(rec, raw)
			return rec
		}
	}

	given := normalizeGiven(raw.GivenName)
	key := indexKey(raw.FamilyName, given)
	affil := affiliationTokens(raw.Affiliation)

	var matches []*authorRec
	for _, cand := range r.index[key] {
		if !r.nameMatches(cand, given) {
			continue
		}
		sim, comparable := r.bestAffiliationSim(cand, affil)
		if !comparable || sim >= r.cfg.AffiliationThreshold {
			matches = append(matches, cand)
		} else {
			// Same name, dissimilar affiliation: keep identities apart.
			r.ambiguities++
			fmt.Fprintf(r.w, "ambiguity: %q %q affiliation mismatch with %s (sim %.2f)\n",
				raw.GivenName, raw.FamilyName, cand.author.ID, sim)
		}
	}

	if len(matches) == 0 {
		return r.create(raw, given, key, affil)
	}

	if len(matches) > 1 {
		r.ambiguities++
		fmt.Fprintf(r.w, "ambiguity: %q %q matches %d identities, keeping most published\n",
			raw.GivenName, raw.FamilyName, len(matches))
		sort.Slice(matches, func(i, j int) bool {
			ci, cj := len(matches[i].articles), len(matches[j].articles)
			if ci != cj {
				return ci > cj
			}
			return matches[i].author.ID < matches[j].author.ID
		})
	}

	rec := matches[0]
	r.observe(rec, raw)
	return rec
}

// nameMatches reports whether the incoming given-name tokens are
// compatible with any observed variant of the candidate.
func (r *Resolver) nameMatches(cand *authorRec, given []string) bool {
	for _, g := range cand.givens {
		if givenCompatible(g, given) {
			return true
		}
	}
	return false
}

// bestAffiliationSim returns the highest similarity between the incoming
// affiliation and any observed one. comparable is false when either side
// has no affiliation evidence at all, in which case the name alone decides.
func (r *Resolver) bestAffiliationSim(cand *authorRec, affil map[string]bool) (best float64, comparable bool) {
	if len(affil) == 0 || len(cand.affils) == 0 {
		return 0, false
	}
	for _, a := range cand.affils {
		if sim := jaccard(a, affil); sim > best {
			best = sim
		}
	}
	return best, true
}

func (r *Resolver) create(raw types.RawAuthor, given []string, key string, affil map[string]bool) *authorRec {
	id := fmt.Sprintf("a%06d", r.nextID)
	r.nextID++

	rec := &authorRec{
		author: types.Author{
			ID:          id,
			DisplayName: displayName(raw),
			ORCID:       raw.ORCID,
		},
		variants: make(map[string]bool),
		articles: make(map[string]bool),
	}
	rec.givens = append(rec.givens, given)
	if len(affil) > 0 {
		rec.affils = append(rec.affils, affil)
		rec.author.Affiliations = appendUnique(rec.author.Affiliations, raw.Affiliation)
	}
	r.recordVariant(rec, raw)

	r.byID[id] = rec
	r.register(rec, key)
	if raw.ORCID != "" {
		r.byORCID[raw.ORCID] = rec
	}
	return rec
}

// register adds the identity under an index key. An identity observed
// through its ORCID under a new name form becomes findable under that
// name's key too.
func (r *Resolver) register(rec *authorRec, key string) {
	for _, k := range rec.keys {
		if k == key {
			return
		}
	}
	rec.keys = append(rec.keys, key)
	r.index[key] = append(r.index[key], rec)
}

// observe grows the identity's evidence sets with a newly resolved raw
// entry.
func (r *Resolver) observe(rec *authorRec, raw types.RawAuthor) {
	given := normalizeGiven(raw.GivenName)
	if !knownGiven(rec.givens, given) {
		rec.givens = append(rec.givens, given)
	}
	r.register(rec, indexKey(raw.FamilyName, given))
	if affil := affiliationTokens(raw.Affiliation); len(affil) > 0 {
		if sim, comparable := r.bestAffiliationSim(rec, affil); !comparable || sim < 1 {
			rec.affils = append(rec.affils, affil)
		}
		rec.author.Affiliations = appendUnique(rec.author.Affiliations, raw.Affiliation)
	}
	if rec.author.ORCID == "" && raw.ORCID != "" {
		rec.author.ORCID = raw.ORCID
		r.byORCID[raw.ORCID] = rec
	}
	// Prefer the fullest name form for display.
	if len(displayName(raw)) > len(rec.author.DisplayName) {
		rec.author.DisplayName = displayName(raw)
	}
	r.recordVariant(rec, raw)
}

func (r *Resolver) recordVariant(rec *authorRec, raw types.RawAuthor) {
	v := fold(raw.GivenName) + " " + fold(raw.FamilyName)
	if !rec.variants[v] {
		rec.variants[v] = true
		rec.author.NameVariants = append(rec.author.NameVariants, v)
	}
}

// Authors returns a snapshot of all identities, sorted by ID.
func (r *Resolver) Authors() []types.Author {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]types.Author, 0, len(r.byID))
	for _, rec := range r.byID {
		out = append(out, rec.author)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Ambiguities returns the number of ambiguity events seen so far.
func (r *Resolver) Ambiguities() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.ambiguities
}

func displayName(raw types.RawAuthor) string {
	if raw.GivenName == "" {
		return raw.FamilyName
	}
	return raw.GivenName + " " + raw.FamilyName
}

func knownGiven(observed [][]string, given []string) bool {
	for _, g := range observed {
		if len(g) != len(given) {
			continue
		}
		same := true
		for i := range g {
			if g[i] != given[i] {
				same = false
				break
			}
		}
		if same {
			return true
		}
	}
	return false
}

func appendUnique(list []string, v string) []string {
	for _, existing := range list {
		if existing == v {
			return list
		}
	}
	return append(list, v)
}
