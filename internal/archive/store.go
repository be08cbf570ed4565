// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package archive persists completed gap analyses in SQLite so they can be
// listed, reloaded and exported. The pipeline writes to it after a run
// completes and never reads from it.
package archive

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/pdiddy/genegap/pkg/types"
)

const (
	dbFile            = "genegap.db"
	defaultMaxResults = 50

	// timeLayout is fixed width so created_at sorts as text.
	timeLayout = "2006-01-02T15:04:05.000000000Z"
)

// ErrNotFound is returned by Get for an unknown analysis id.
var ErrNotFound = errors.New("analysis not found")

// Store manages the archive database.
type Store struct {
	db         *sql.DB
	dir        string
	maxResults int
}

// NewStore opens or creates the archive database at dir/genegap.db and
// creates the schema if it does not exist.
func NewStore(cfg types.ArchiveConfig) (*Store, error) {
	if cfg.Dir == "" {
		return nil, errors.New("archive directory not set")
	}
	if err := os.MkdirAll(cfg.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating archive directory: %w", err)
	}

	dbPath := filepath.Join(cfg.Dir, dbFile)
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	maxResults := cfg.MaxResults
	if maxResults <= 0 {
		maxResults = defaultMaxResults
	}

	s := &Store{db: db, dir: cfg.Dir, maxResults: maxResults}
	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return s, nil
}

// Close releases the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) createSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS analyses (
			id TEXT PRIMARY KEY,
			query TEXT NOT NULL,
			source_species TEXT NOT NULL,
			target_species TEXT NOT NULL,
			articles INTEGER NOT NULL,
			total_gaps INTEGER NOT NULL,
			complete_gaps INTEGER NOT NULL,
			created_at TEXT NOT NULL,
			result TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS gaps (
			analysis_id TEXT NOT NULL REFERENCES analyses(id) ON DELETE CASCADE,
			species TEXT NOT NULL,
			gene TEXT NOT NULL,
			level TEXT NOT NULL,
			source_pubs INTEGER NOT NULL,
			target_pubs INTEGER NOT NULL,
			priority REAL NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_gaps_analysis ON gaps(analysis_id)`,
		`CREATE INDEX IF NOT EXISTS idx_gaps_gene ON gaps(gene COLLATE NOCASE)`,
		`CREATE INDEX IF NOT EXISTS idx_analyses_created ON analyses(created_at)`,
	}
	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("executing schema statement: %w", err)
		}
	}
	return nil
}

// Save stores a completed analysis. Saving an id again replaces it.
func (s *Store) Save(ctx context.Context, r *types.AnalysisResult) error {
	if r.ID == "" {
		return errors.New("analysis has no id")
	}

	resultJSON, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("marshaling analysis: %w", err)
	}
	targetsJSON, _ := json.Marshal(r.Query.TargetSpecies)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM gaps WHERE analysis_id = ?`, r.ID); err != nil {
		return fmt.Errorf("deleting old gaps: %w", err)
	}
	_, err = tx.ExecContext(ctx,
		`INSERT INTO analyses (id, query, source_species, target_species, articles, total_gaps, complete_gaps, created_at, result)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
			query=excluded.query, source_species=excluded.source_species,
			target_species=excluded.target_species, articles=excluded.articles,
			total_gaps=excluded.total_gaps, complete_gaps=excluded.complete_gaps,
			created_at=excluded.created_at, result=excluded.result`,
		r.ID, r.Query.Text, r.Query.SourceSpecies, string(targetsJSON), r.ArticlesAnalyzed,
		r.Statistics.TotalGaps, r.Statistics.CompleteGaps,
		r.CreatedAt.UTC().Format(timeLayout), string(resultJSON),
	)
	if err != nil {
		return fmt.Errorf("upserting analysis: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO gaps (analysis_id, species, gene, level, source_pubs, target_pubs, priority)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("preparing insert: %w", err)
	}
	defer stmt.Close()

	for _, sp := range r.Gaps {
		for _, g := range sp.Gaps {
			_, err := stmt.ExecContext(ctx, r.ID, sp.Species, g.Gene, string(g.Level),
				g.SourcePublications, g.TargetPublications, g.PriorityScore)
			if err != nil {
				return fmt.Errorf("inserting gap %s/%s: %w", sp.Species, g.Gene, err)
			}
		}
	}

	return tx.Commit()
}

// Get loads the analysis with the given id.
func (s *Store) Get(ctx context.Context, id string) (types.AnalysisResult, error) {
	var raw string
	err := s.db.QueryRowContext(ctx, `SELECT result FROM analyses WHERE id = ?`, id).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return types.AnalysisResult{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return types.AnalysisResult{}, fmt.Errorf("querying analysis: %w", err)
	}

	var r types.AnalysisResult
	if err := json.Unmarshal([]byte(raw), &r); err != nil {
		return types.AnalysisResult{}, fmt.Errorf("decoding analysis %s: %w", id, err)
	}
	restoreSpecies(&r)
	return r, nil
}

// restoreSpecies fills GapRecord.Species, which the JSON form omits.
func restoreSpecies(r *types.AnalysisResult) {
	for i := range r.Gaps {
		for j := range r.Gaps[i].Gaps {
			r.Gaps[i].Gaps[j].Species = r.Gaps[i].Species
		}
	}
}

// ListOptions filters archive listings.
type ListOptions struct {
	// Gene keeps analyses that found a gap for this gene (case-insensitive).
	Gene string

	// Species keeps analyses whose source or target set includes it.
	Species string

	// Limit caps the number of entries. Zero uses the store default.
	Limit int
}

// Entry is the listing form of an archived analysis.
type Entry struct {
	ID               string    `json:"id" yaml:"id"`
	Query            string    `json:"query" yaml:"query"`
	SourceSpecies    string    `json:"source_species" yaml:"source_species"`
	TargetSpecies    []string  `json:"target_species" yaml:"target_species"`
	ArticlesAnalyzed int       `json:"articles_analyzed" yaml:"articles_analyzed"`
	TotalGaps        int       `json:"total_gaps" yaml:"total_gaps"`
	CompleteGaps     int       `json:"complete_gaps" yaml:"complete_gaps"`
	CreatedAt        time.Time `json:"created_at" yaml:"created_at"`
}

// List returns archived analyses, newest first.
func (s *Store) List(ctx context.Context, opts ListOptions) ([]Entry, error) {
	limit := opts.Limit
	if limit <= 0 {
		limit = s.maxResults
	}

	var (
		qb   strings.Builder
		args []any
	)
	qb.WriteString(
		`SELECT a.id, a.query, a.source_species, a.target_species, a.articles,
			a.total_gaps, a.complete_gaps, a.created_at
		FROM analyses a
		WHERE 1=1`)

	if opts.Gene != "" {
		qb.WriteString(` AND EXISTS (SELECT 1 FROM gaps g WHERE g.analysis_id = a.id AND g.gene = ? COLLATE NOCASE)`)
		args = append(args, strings.TrimSpace(opts.Gene))
	}
	if opts.Species != "" {
		qb.WriteString(` AND (a.source_species = ? COLLATE NOCASE OR EXISTS (SELECT 1 FROM json_each(a.target_species) t WHERE t.value = ? COLLATE NOCASE))`)
		sp := strings.Join(strings.Fields(opts.Species), " ")
		args = append(args, sp, sp)
	}
	qb.WriteString(` ORDER BY a.created_at DESC, a.id LIMIT ?`)
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, qb.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("listing analyses: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var (
			e         Entry
			targets   string
			createdAt string
		)
		if err := rows.Scan(&e.ID, &e.Query, &e.SourceSpecies, &targets, &e.ArticlesAnalyzed,
			&e.TotalGaps, &e.CompleteGaps, &createdAt); err != nil {
			return nil, fmt.Errorf("scanning analysis: %w", err)
		}
		json.Unmarshal([]byte(targets), &e.TargetSpecies)
		e.CreatedAt, _ = time.Parse(timeLayout, createdAt)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Delete removes an analysis and its gap rows.
func (s *Store) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM analyses WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting analysis: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return nil
}
