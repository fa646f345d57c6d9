// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package docstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode"

	_ "github.com/mattn/go-sqlite3"

	"github.com/pdiddy/expert-engine/pkg/types"
)

// Field weights for bm25 ranking: title, abstract, subjects.
const bm25Weights = "3.0, 1.0, 2.0"

// SQLite is the default Store: a single-file FTS5 index.
type SQLite struct {
	db *sql.DB
}

// OpenSQLite opens or creates the document store at path, bootstrapping
// the schema on first use.
func OpenSQLite(path string) (*SQLite, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating store directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("opening document store: %w", err)
	}

	s := &SQLite{db: db}
	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return s, nil
}

// Close releases the database connection.
func (s *SQLite) Close() error {
	return s.db.Close()
}

func (s *SQLite) createSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS articles (
			id TEXT NOT NULL UNIQUE,
			title TEXT NOT NULL,
			abstract TEXT,
			subjects TEXT,
			date TEXT,
			author_ids TEXT,
			author_names TEXT
		)`,
		`CREATE TABLE IF NOT EXISTS authors (
			id TEXT PRIMARY KEY,
			display_name TEXT,
			orcid TEXT,
			name_variants TEXT,
			affiliations TEXT,
			articles TEXT
		)`,
	}
	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("executing schema statement: %w", err)
		}
	}

	// FTS5 virtual table with triggers for sync.
	var ftsExists int
	if err := s.db.QueryRow(
		`SELECT count(*) FROM sqlite_master WHERE type='table' AND name='articles_fts'`,
	).Scan(&ftsExists); err != nil {
		return fmt.Errorf("checking FTS table: %w", err)
	}

	if ftsExists == 0 {
		ftsStatements := []string{
			`CREATE VIRTUAL TABLE articles_fts USING fts5(title, abstract, subjects, content=articles, content_rowid=rowid)`,
			`CREATE TRIGGER articles_ai AFTER INSERT ON articles BEGIN
				INSERT INTO articles_fts(rowid, title, abstract, subjects)
				VALUES (new.rowid, new.title, new.abstract, new.subjects);
			END`,
			`CREATE TRIGGER articles_ad AFTER DELETE ON articles BEGIN
				INSERT INTO articles_fts(articles_fts, rowid, title, abstract, subjects)
				VALUES('delete', old.rowid, old.title, old.abstract, old.subjects);
			END`,
			`CREATE TRIGGER articles_au AFTER UPDATE ON articles BEGIN
				INSERT INTO articles_fts(articles_fts, rowid, title, abstract, subjects)
				VALUES('delete', old.rowid, old.title, old.abstract, old.subjects);
				INSERT INTO articles_fts(rowid, title, abstract, subjects)
				VALUES (new.rowid, new.title, new.abstract, new.subjects);
			END`,
		}
		for _, stmt := range ftsStatements {
			if _, err := s.db.Exec(stmt); err != nil {
				return fmt.Errorf("creating FTS infrastructure: %w", err)
			}
		}
	}

	return nil
}

// validate applies the store's document contract; rejected documents
// surface as per-item failures, not batch errors.
func validate(d *Document) error {
	if strings.TrimSpace(d.ID) == "" {
		return fmt.Errorf("document has no ID")
	}
	if strings.TrimSpace(d.Title) == "" {
		return fmt.Errorf("document has no title")
	}
	return nil
}

// BulkUpsert writes the batch in one transaction, collecting per-item
// rejections. A failed item does not poison the rest of the batch.
func (s *SQLite) BulkUpsert(ctx context.Context, docs []Document) (BulkResult, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return BulkResult{}, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO articles (id, title, abstract, subjects, date, author_ids, author_names)
		 VALUES (?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
			title=excluded.title, abstract=excluded.abstract, subjects=excluded.subjects,
			date=excluded.date, author_ids=excluded.author_ids, author_names=excluded.author_names`)
	if err != nil {
		return BulkResult{}, fmt.Errorf("preparing upsert: %w", err)
	}
	defer stmt.Close()

	var result BulkResult
	for i := range docs {
		d := &docs[i]
		if err := validate(d); err != nil {
			result.Failed = append(result.Failed, ItemError{ID: d.ID, Err: err})
			continue
		}

		idsJSON, _ := json.Marshal(d.AuthorIDs)
		namesJSON, _ := json.Marshal(d.AuthorNames)
		dateStr := ""
		if !d.Date.IsZero() {
			dateStr = d.Date.Format(time.RFC3339)
		}

		if _, err := stmt.ExecContext(ctx,
			d.ID, d.Title, d.Abstract, strings.Join(d.Subjects, "; "),
			dateStr, string(idsJSON), string(namesJSON),
		); err != nil {
			result.Failed = append(result.Failed, ItemError{ID: d.ID, Err: err})
			continue
		}
		result.Upserted++
	}

	if err := tx.Commit(); err != nil {
		return BulkResult{}, fmt.Errorf("committing batch: %w", err)
	}
	return result, nil
}

// matchExpression turns free text into an FTS5 MATCH expression: plain
// alphanumeric tokens OR-ed together, so user punctuation can never
// break the query syntax.
func matchExpression(text string) string {
	tokens := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	for i, tok := range tokens {
		tokens[i] = `"` + tok + `"`
	}
	return strings.Join(tokens, " OR ")
}

// Search runs a bm25-ranked query over title/abstract/subjects. Hits
// with equal rank come back in ID order so results are deterministic.
func (s *SQLite) Search(ctx context.Context, q Query) ([]Hit, error) {
	expr := matchExpression(q.Text)
	if expr == "" {
		return nil, nil
	}
	size := q.Size
	if size <= 0 {
		size = 100
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT a.id, a.title, a.abstract, a.subjects, a.date, a.author_ids, a.author_names,
			bm25(articles_fts, `+bm25Weights+`) AS score
		FROM articles_fts
		JOIN articles a ON a.rowid = articles_fts.rowid
		WHERE articles_fts MATCH ?
		ORDER BY score, a.id
		LIMIT ?`, expr, size)
	if err != nil {
		return nil, fmt.Errorf("querying document store: %w", err)
	}
	defer rows.Close()

	var hits []Hit
	for rows.Next() {
		var (
			h         Hit
			abstract  sql.NullString
			subjects  sql.NullString
			dateStr   sql.NullString
			idsJSON   sql.NullString
			namesJSON sql.NullString
			score     float64
		)
		if err := rows.Scan(&h.ID, &h.Title, &abstract, &subjects, &dateStr, &idsJSON, &namesJSON, &score); err != nil {
			return nil, fmt.Errorf("scanning hit: %w", err)
		}

		h.Abstract = abstract.String
		if subjects.String != "" {
			h.Subjects = strings.Split(subjects.String, "; ")
		}
		if dateStr.String != "" {
			h.Date, _ = time.Parse(time.RFC3339, dateStr.String)
		}
		if idsJSON.Valid {
			json.Unmarshal([]byte(idsJSON.String), &h.AuthorIDs)
		}
		if namesJSON.Valid {
			json.Unmarshal([]byte(namesJSON.String), &h.AuthorNames)
		}

		// bm25 reports lower-is-better; flip it so callers always see
		// higher-is-better relevance.
		h.Score = -score
		hits = append(hits, h)
	}

	return hits, rows.Err()
}

// PutAuthors upserts author summary documents.
func (s *SQLite) PutAuthors(ctx context.Context, authors []types.Author) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO authors (id, display_name, orcid, name_variants, affiliations, articles)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
			display_name=excluded.display_name, orcid=excluded.orcid,
			name_variants=excluded.name_variants, affiliations=excluded.affiliations,
			articles=excluded.articles`)
	if err != nil {
		return fmt.Errorf("preparing author upsert: %w", err)
	}
	defer stmt.Close()

	for _, a := range authors {
		variantsJSON, _ := json.Marshal(a.NameVariants)
		affilJSON, _ := json.Marshal(a.Affiliations)
		articlesJSON, _ := json.Marshal(a.Articles)
		if _, err := stmt.ExecContext(ctx,
			a.ID, a.DisplayName, a.ORCID, string(variantsJSON), string(affilJSON), string(articlesJSON),
		); err != nil {
			return fmt.Errorf("upserting author %s: %w", a.ID, err)
		}
	}

	return tx.Commit()
}

// AuthorsByID fetches author summaries for the given IDs.
func (s *SQLite) AuthorsByID(ctx context.Context, ids []string) (map[string]types.Author, error) {
	out := make(map[string]types.Author, len(ids))
	stmt, err := s.db.PrepareContext(ctx,
		`SELECT id, display_name, orcid, name_variants, affiliations, articles FROM authors WHERE id = ?`)
	if err != nil {
		return nil, fmt.Errorf("preparing author lookup: %w", err)
	}
	defer stmt.Close()

	for _, id := range ids {
		var (
			a            types.Author
			variantsJSON sql.NullString
			affilJSON    sql.NullString
			articlesJSON sql.NullString
		)
		err := stmt.QueryRowContext(ctx, id).Scan(
			&a.ID, &a.DisplayName, &a.ORCID, &variantsJSON, &affilJSON, &articlesJSON)
		if err == sql.ErrNoRows {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("looking up author %s: %w", id, err)
		}
		if variantsJSON.Valid {
			json.Unmarshal([]byte(variantsJSON.String), &a.NameVariants)
		}
		if affilJSON.Valid {
			json.Unmarshal([]byte(affilJSON.String), &a.Affiliations)
		}
		if articlesJSON.Valid {
			json.Unmarshal([]byte(articlesJSON.String), &a.Articles)
		}
		out[a.ID] = a
	}
	return out, nil
}
