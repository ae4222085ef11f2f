// Package history records training runs in a SQLite database.
package history

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	_ "modernc.org/sqlite"

	"github.com/crimson-sun/triage/internal/engine/metrics"
)

// Fixed width so that text order is time order.
const timeFormat = "2006-01-02T15:04:05.000000000Z07:00"

const schema = `
CREATE TABLE IF NOT EXISTS runs (
	id                 TEXT PRIMARY KEY,
	started_at         TEXT NOT NULL,
	finished_at        TEXT NOT NULL,
	train_path         TEXT NOT NULL,
	test_path          TEXT NOT NULL,
	model_path         TEXT NOT NULL,
	seed               INTEGER NOT NULL,
	evaluated          INTEGER NOT NULL,
	skipped            INTEGER NOT NULL,
	micro_accuracy     REAL NOT NULL,
	macro_accuracy     REAL NOT NULL,
	log_loss           REAL NOT NULL,
	log_loss_reduction REAL NOT NULL,
	top_k              INTEGER NOT NULL DEFAULT 0,
	top_k_accuracy     REAL NOT NULL DEFAULT 0,
	prediction         TEXT DEFAULT ''
);
CREATE INDEX IF NOT EXISTS idx_runs_started_at ON runs(started_at);
`

// Run is one recorded training run.
type Run struct {
	ID         string
	StartedAt  time.Time
	FinishedAt time.Time
	TrainPath  string
	TestPath   string
	ModelPath  string
	Seed       int64
	Metrics    metrics.Metrics
	Prediction string // area predicted for the final sample issue
}

// Store is an open run history database.
type Store struct {
	db *sql.DB
}

// Open opens or creates the database at path.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, errors.Wrap(err, "history: create directory")
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, errors.Wrap(err, "history: open")
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "history: create schema")
	}
	return &Store{db: db}, nil
}

// Record stores r. An empty ID is filled with a new random UUID, which is
// returned.
func (s *Store) Record(ctx context.Context, r Run) (string, error) {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	m := r.Metrics
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO runs (id, started_at, finished_at, train_path, test_path, model_path, seed,
			evaluated, skipped, micro_accuracy, macro_accuracy, log_loss, log_loss_reduction, top_k, top_k_accuracy, prediction)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID, formatTime(r.StartedAt), formatTime(r.FinishedAt), r.TrainPath, r.TestPath, r.ModelPath, r.Seed,
		m.Rows, m.Skipped, m.MicroAccuracy, m.MacroAccuracy, m.LogLoss, m.LogLossReduction, m.TopK, m.TopKAccuracy,
		r.Prediction,
	)
	if err != nil {
		return "", errors.Wrap(err, "history: insert run")
	}
	return r.ID, nil
}

// Recent returns up to n runs, newest first.
func (s *Store) Recent(ctx context.Context, n int) ([]Run, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, started_at, finished_at, train_path, test_path, model_path, seed,
			evaluated, skipped, micro_accuracy, macro_accuracy, log_loss, log_loss_reduction, top_k, top_k_accuracy, prediction
		 FROM runs ORDER BY started_at DESC, id LIMIT ?`, n)
	if err != nil {
		return nil, errors.Wrap(err, "history: query runs")
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var (
			r                 Run
			started, finished string
		)
		m := &r.Metrics
		err := rows.Scan(
			&r.ID, &started, &finished, &r.TrainPath, &r.TestPath, &r.ModelPath, &r.Seed,
			&m.Rows, &m.Skipped, &m.MicroAccuracy, &m.MacroAccuracy, &m.LogLoss, &m.LogLossReduction,
			&m.TopK, &m.TopKAccuracy, &r.Prediction,
		)
		if err != nil {
			return nil, errors.Wrap(err, "history: scan run")
		}
		if r.StartedAt, err = time.Parse(timeFormat, started); err != nil {
			return nil, errors.Wrapf(err, "history: run %s started_at", r.ID)
		}
		if r.FinishedAt, err = time.Parse(timeFormat, finished); err != nil {
			return nil, errors.Wrapf(err, "history: run %s finished_at", r.ID)
		}
		runs = append(runs, r)
	}
	return runs, errors.Wrap(rows.Err(), "history: read runs")
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeFormat)
}
