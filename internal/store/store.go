// Package store persists validation reports so collaborators (reporting
// and plotting code) can fetch them after the run.
package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	apperrors "github.com/clinscore/trs/internal/errors"
	"github.com/clinscore/trs/internal/validation"
)

// Store wraps the sqlite database holding validation reports.
type Store struct {
	db *sql.DB
}

const schema = `
CREATE TABLE IF NOT EXISTS reports (
	id          TEXT PRIMARY KEY,
	created_at  TIMESTAMP NOT NULL,
	cohort_size INTEGER NOT NULL,
	events      INTEGER NOT NULL,
	iterations  INTEGER NOT NULL,
	excluded    INTEGER NOT NULL,
	payload     TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_reports_created_at ON reports(created_at);
`

// New opens (or creates) the report database under dataDir and runs the
// schema migration.
func New(dataDir string) (*Store, error) {
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	dbPath := filepath.Join(dataDir, "trs.db")
	connStr := fmt.Sprintf("%s?_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)&_pragma=busy_timeout(5000)", dbPath)

	db, err := sql.Open("sqlite3", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return &Store{db: db}, nil
}

// Close releases the database connection.
func (s *Store) Close() error { return s.db.Close() }

// SaveReport persists a validation report.
func (s *Store) SaveReport(report *validation.Report) error {
	payload, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("failed to encode report: %w", err)
	}

	_, err = s.db.Exec(
		`INSERT INTO reports (id, created_at, cohort_size, events, iterations, excluded, payload)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		report.ID, report.CreatedAt, report.CohortSize, report.Events,
		report.Iterations, report.Excluded, string(payload),
	)
	if err != nil {
		return fmt.Errorf("failed to insert report: %w", err)
	}
	return nil
}

// GetReport fetches a report by id.
func (s *Store) GetReport(id string) (*validation.Report, error) {
	var payload string
	err := s.db.QueryRow(`SELECT payload FROM reports WHERE id = ?`, id).Scan(&payload)
	if err == sql.ErrNoRows {
		return nil, apperrors.NewNotFoundError("report", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query report: %w", err)
	}

	var report validation.Report
	if err := json.Unmarshal([]byte(payload), &report); err != nil {
		return nil, fmt.Errorf("failed to decode report %s: %w", id, err)
	}
	return &report, nil
}

// ReportListing is one row of the report index.
type ReportListing struct {
	ID         string    `json:"id"`
	CreatedAt  time.Time `json:"created_at"`
	CohortSize int       `json:"cohort_size"`
	Events     int       `json:"events"`
	Iterations int       `json:"iterations"`
	Excluded   int       `json:"excluded"`
}

// ListReports returns the most recent reports, newest first.
func (s *Store) ListReports(limit int) ([]ReportListing, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := s.db.Query(
		`SELECT id, created_at, cohort_size, events, iterations, excluded
		 FROM reports ORDER BY created_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list reports: %w", err)
	}
	defer rows.Close()

	var listings []ReportListing
	for rows.Next() {
		var l ReportListing
		if err := rows.Scan(&l.ID, &l.CreatedAt, &l.CohortSize, &l.Events, &l.Iterations, &l.Excluded); err != nil {
			return nil, fmt.Errorf("failed to scan report row: %w", err)
		}
		listings = append(listings, l)
	}
	return listings, rows.Err()
}

// DeleteReportsBefore removes reports created before the cutoff and
// returns how many were deleted.
func (s *Store) DeleteReportsBefore(cutoff time.Time) (int64, error) {
	res, err := s.db.Exec(`DELETE FROM reports WHERE created_at < ?`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to delete reports: %w", err)
	}
	return res.RowsAffected()
}
