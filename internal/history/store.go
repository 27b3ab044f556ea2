// Package history keeps a local record of past cost estimates in SQLite.
package history

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/philipparndt/partquote/pkg/advisor"
	"github.com/philipparndt/partquote/pkg/analysis"
	"github.com/philipparndt/partquote/pkg/cost"
)

// openDB is a package-level var to allow test injection.
var openDB = sql.Open

const schema = `
CREATE TABLE IF NOT EXISTS estimates (
	id            INTEGER PRIMARY KEY AUTOINCREMENT,
	run_id        TEXT NOT NULL,
	file_name     TEXT NOT NULL,
	material      TEXT NOT NULL,
	source        TEXT NOT NULL,
	provenance    TEXT NOT NULL,
	volume        REAL NOT NULL,
	surface_area  REAL NOT NULL,
	face_count    INTEGER NOT NULL,
	total_cost    REAL NOT NULL,
	complexity    TEXT NOT NULL,
	estimated_time TEXT NOT NULL,
	created_at    TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_estimates_created ON estimates(created_at);
`

// Entry is one recorded estimate
type Entry struct {
	ID            int64              `json:"id"`
	RunID         string             `json:"runId"`
	FileName      string             `json:"fileName"`
	Material      string             `json:"material"`
	Source        analysis.Source    `json:"source"`
	Provenance    advisor.Provenance `json:"provenance"`
	Volume        float64            `json:"volume"`
	SurfaceArea   float64            `json:"surfaceArea"`
	FaceCount     int                `json:"faceCount"`
	TotalCost     float64            `json:"totalCost"`
	Complexity    cost.Complexity    `json:"complexity"`
	EstimatedTime string             `json:"estimatedTime"`
	CreatedAt     time.Time          `json:"createdAt"`
}

// NewEntry builds an entry from a finished estimate
func NewEntry(runID, fileName string, metrics analysis.GeometryMetrics, result advisor.Result) Entry {
	return Entry{
		RunID:         runID,
		FileName:      fileName,
		Material:      result.Breakdown.Material,
		Source:        metrics.Source,
		Provenance:    result.Provenance,
		Volume:        metrics.Volume,
		SurfaceArea:   metrics.SurfaceArea,
		FaceCount:     metrics.FaceCount,
		TotalCost:     result.Breakdown.TotalCost,
		Complexity:    result.Breakdown.Complexity,
		EstimatedTime: result.Breakdown.EstimatedTime,
		CreatedAt:     time.Now().UTC(),
	}
}

// Store persists estimate entries
type Store struct {
	db *sql.DB
}

// Open opens or creates the database at path
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("history: create data dir: %w", err)
	}

	db, err := openDB("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("history: open database: %w", err)
	}
	db.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA synchronous = NORMAL",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			db.Close()
			return nil, fmt.Errorf("history: %s: %w", p, err)
		}
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("history: create schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the database
func (s *Store) Close() error {
	return s.db.Close()
}

// Record stores an entry and returns its ID
func (s *Store) Record(ctx context.Context, e Entry) (int64, error) {
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO estimates (run_id, file_name, material, source, provenance, volume, surface_area,
			face_count, total_cost, complexity, estimated_time, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.RunID, e.FileName, e.Material, string(e.Source), string(e.Provenance), e.Volume, e.SurfaceArea,
		e.FaceCount, e.TotalCost, string(e.Complexity), e.EstimatedTime, e.CreatedAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return 0, fmt.Errorf("history: insert estimate: %w", err)
	}
	return res.LastInsertId()
}

// Recent returns up to limit entries, newest first
func (s *Store) Recent(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, run_id, file_name, material, source, provenance, volume, surface_area,
			face_count, total_cost, complexity, estimated_time, created_at
		FROM estimates
		ORDER BY created_at DESC, id DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("history: query estimates: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var (
			e          Entry
			source     string
			provenance string
			complexity string
			createdAt  string
		)
		if err := rows.Scan(&e.ID, &e.RunID, &e.FileName, &e.Material, &source, &provenance, &e.Volume,
			&e.SurfaceArea, &e.FaceCount, &e.TotalCost, &complexity, &e.EstimatedTime, &createdAt); err != nil {
			return nil, fmt.Errorf("history: scan estimate: %w", err)
		}
		e.Source = analysis.Source(source)
		e.Provenance = advisor.Provenance(provenance)
		e.Complexity = cost.Complexity(complexity)
		if e.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt); err != nil {
			return nil, fmt.Errorf("history: parse timestamp %q: %w", createdAt, err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
