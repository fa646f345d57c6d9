// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package resolve

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"

	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/expert-engine/pkg/types"
)

// persistedAuthor is one identity with the matching evidence needed to
// resume resolution with identical outcomes.
type persistedAuthor struct {
	Author types.Author `yaml:"author"`
	Keys   []string     `yaml:"keys"`
	Givens [][]string   `yaml:"givens"`
	Affils [][]string   `yaml:"affiliation_tokens"`
}

type persistedState struct {
	NextID  int               `yaml:"next_id"`
	Authors []persistedAuthor `yaml:"authors"`
}

// SaveFile writes the resolver state to path atomically. A resolver
// loaded from the file resolves any input sequence exactly as this one
// would, which is what makes partition replay after a crash safe.
func (r *Resolver) SaveFile(path string) error {
	r.mu.Lock()
	state := persistedState{NextID: r.nextID}
	ids := make([]string, 0, len(r.byID))
	for id := range r.byID {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		rec := r.byID[id]
		pa := persistedAuthor{
			Author: rec.author,
			Keys:   append([]string(nil), rec.keys...),
			Givens: rec.givens,
		}
		for _, affil := range rec.affils {
			tokens := make([]string, 0, len(affil))
			for t := range affil {
				tokens = append(tokens, t)
			}
			sort.Strings(tokens)
			pa.Affils = append(pa.Affils, tokens)
		}
		state.Authors = append(state.Authors, pa)
	}
	r.mu.Unlock()

	data, err := yaml.Marshal(&state)
	if err != nil {
		return fmt.Errorf("encoding resolver state: %w", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("writing resolver state: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".resolver-*")
	if err != nil {
		return fmt.Errorf("writing resolver state: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("writing resolver state: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("writing resolver state: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("writing resolver state: %w", err)
	}
	return nil
}

// LoadFile restores a resolver from a state file written by SaveFile.
// A missing file yields an empty resolver.
func LoadFile(path string, cfg types.ResolverConfig, w io.Writer) (*Resolver, error) {
	r := New(cfg, w)

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return r, nil
		}
		return nil, fmt.Errorf("reading resolver state %s: %w", path, err)
	}

	var state persistedState
	if err := yaml.Unmarshal(data, &state); err != nil {
		return nil, fmt.Errorf("parsing resolver state %s: %w", path, err)
	}

	r.nextID = state.NextID
	for _, pa := range state.Authors {
		rec := &authorRec{
			author:   pa.Author,
			givens:   pa.Givens,
			variants: make(map[string]bool),
			articles: make(map[string]bool),
		}
		for _, tokens := range pa.Affils {
			affil := make(map[string]bool, len(tokens))
			for _, t := range tokens {
				affil[t] = true
			}
			rec.affils = append(rec.affils, affil)
		}
		for _, v := range pa.Author.NameVariants {
			rec.variants[v] = true
		}
		for _, id := range pa.Author.Articles {
			rec.articles[id] = true
		}

		r.byID[pa.Author.ID] = rec
		for _, key := range pa.Keys {
			r.register(rec, key)
		}
		if pa.Author.ORCID != "" {
			r.byORCID[pa.Author.ORCID] = rec
		}
	}
	return r, nil
}
