// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package graph

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/pdiddy/expert-engine/pkg/types"
)

// Save writes the full edge state to a SQLite file so a graph built
// during ingestion survives to ranking runs. The file is replaced
// atomically from the reader's point of view: one transaction clears and
// rewrites the edges table.
func (s *Store) Save(path string) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating graph directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL")
	if err != nil {
		return fmt.Errorf("opening graph database: %w", err)
	}
	defer db.Close()

	if _, err := db.Exec(
		`CREATE TABLE IF NOT EXISTS edges (
			a TEXT NOT NULL,
			b TEXT NOT NULL,
			weight REAL NOT NULL,
			updated TEXT NOT NULL,
			articles TEXT NOT NULL,
			PRIMARY KEY (a, b)
		)`); err != nil {
		return fmt.Errorf("creating edges schema: %w", err)
	}

	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM edges`); err != nil {
		return fmt.Errorf("clearing edges: %w", err)
	}

	stmt, err := tx.Prepare(`INSERT INTO edges (a, b, weight, updated, articles) VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("preparing insert: %w", err)
	}
	defer stmt.Close()

	for _, sh := range s.shards {
		sh.mu.Lock()
		for _, e := range sh.edges {
			ids := make([]string, 0, len(e.articles))
			for id := range e.articles {
				ids = append(ids, id)
			}
			sort.Strings(ids)
			articlesJSON, _ := json.Marshal(ids)

			if _, err := stmt.Exec(e.a, e.b, e.weight, e.updated.Format(time.RFC3339Nano), string(articlesJSON)); err != nil {
				sh.mu.Unlock()
				return fmt.Errorf("inserting edge (%s, %s): %w", e.a, e.b, err)
			}
		}
		sh.mu.Unlock()
	}

	return tx.Commit()
}

// Load reads edge state from a SQLite file into an empty store. A
// missing file is not an error: ranking against an empty graph simply
// returns zero centrality.
func Load(path string, cfg types.GraphConfig) (*Store, error) {
	s := New(cfg)

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return s, nil
	}

	db, err := sql.Open("sqlite3", path+"?mode=ro")
	if err != nil {
		return nil, fmt.Errorf("opening graph database: %w", err)
	}
	defer db.Close()

	rows, err := db.Query(`SELECT a, b, weight, updated, articles FROM edges`)
	if err != nil {
		return nil, fmt.Errorf("querying edges: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var a, b, updatedStr, articlesJSON string
		var weight float64
		if err := rows.Scan(&a, &b, &weight, &updatedStr, &articlesJSON); err != nil {
			return nil, fmt.Errorf("scanning edge: %w", err)
		}

		var ids []string
		if err := json.Unmarshal([]byte(articlesJSON), &ids); err != nil {
			return nil, fmt.Errorf("parsing edge (%s, %s) articles: %w", a, b, err)
		}
		updated, _ := time.Parse(time.RFC3339Nano, updatedStr)

		e := &edge{a: a, b: b, weight: weight, updated: updated, articles: make(map[string]bool, len(ids))}
		for _, id := range ids {
			e.articles[id] = true
		}
		_, _, key := edgeKey(a, b)
		sh := s.shardFor(key)
		sh.mu.Lock()
		sh.edges[key] = e
		sh.mu.Unlock()
	}

	return s, rows.Err()
}
