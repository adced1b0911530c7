// Package postgres provides a Postgres-backed AssignmentStore using the pgx
// database/sql driver.
package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib" // register pgx as a database/sql driver

	"traycore/pkg/domain"
)

var _ domain.AssignmentStore = (*Store)(nil)

const (
	defaultDriver = "pgx"
	// DefaultDSN is used when no DSN is configured.
	DefaultDSN = "postgres://localhost/traycore?sslmode=disable"
)

var (
	sqlOpen = sql.Open
	openMu  sync.Mutex
)

// Store persists region assignments as JSONB rows.
type Store struct {
	db *sql.DB
}

// NewStore opens a Postgres-backed store using dsn (falling back to
// DefaultDSN) and ensures the assignments table exists.
func NewStore(ctx context.Context, dsn string) (*Store, error) {
	if dsn == "" {
		dsn = DefaultDSN
	}
	openMu.Lock()
	db, err := sqlOpen(defaultDriver, dsn)
	openMu.Unlock()
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	if err := ensureTable(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Store{db: db}, nil
}

// DB exposes the underlying sql.DB for integration testing hooks.
func (s *Store) DB() *sql.DB { return s.db }

func ensureTable(ctx context.Context, db *sql.DB) error {
	ddl := `CREATE TABLE IF NOT EXISTS region_assignments (
		experiment_id TEXT PRIMARY KEY,
		payload JSONB NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL
	)`
	if _, err := db.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("ensure region_assignments table: %w", err)
	}
	return nil
}

// LoadAssignment implements domain.AssignmentStore.
func (s *Store) LoadAssignment(ctx context.Context, experimentID string) (domain.Assignment, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT experiment_id, payload, updated_at FROM region_assignments WHERE experiment_id = $1`, experimentID)
	if err != nil {
		return domain.Assignment{}, fmt.Errorf("select assignment: %w", err)
	}
	defer func() { _ = rows.Close() }()
	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return domain.Assignment{}, fmt.Errorf("select assignment: %w", err)
		}
		return domain.Assignment{}, fmt.Errorf("assignment %s: %w", experimentID, domain.ErrNotFound)
	}
	var (
		a       domain.Assignment
		payload []byte
	)
	if err := rows.Scan(&a.ExperimentID, &payload, &a.UpdatedAt); err != nil {
		return domain.Assignment{}, fmt.Errorf("scan assignment: %w", err)
	}
	if err := json.Unmarshal(payload, &a.Regions); err != nil {
		return domain.Assignment{}, fmt.Errorf("decode regions: %w", err)
	}
	if a.Regions == nil {
		a.Regions = []domain.Region{}
	}
	return a, nil
}

// SaveAssignment upserts the assignment inside a transaction. Last write wins.
func (s *Store) SaveAssignment(ctx context.Context, a domain.Assignment) error {
	if a.ExperimentID == "" {
		return fmt.Errorf("assignment requires an experiment id")
	}
	regions := a.Regions
	if regions == nil {
		regions = []domain.Region{}
	}
	payload, err := json.Marshal(regions)
	if err != nil {
		return fmt.Errorf("encode regions: %w", err)
	}
	updated := a.UpdatedAt
	if updated.IsZero() {
		updated = time.Now()
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	commit := false
	defer func() {
		if !commit {
			_ = tx.Rollback()
		}
	}()
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO region_assignments (experiment_id, payload, updated_at) VALUES ($1, $2, $3) ON CONFLICT (experiment_id) DO UPDATE SET payload = EXCLUDED.payload, updated_at = EXCLUDED.updated_at`,
		a.ExperimentID, payload, updated.UTC(),
	); err != nil {
		return fmt.Errorf("upsert assignment: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	commit = true
	return nil
}

// DeleteAssignment removes the experiment's row if present.
func (s *Store) DeleteAssignment(ctx context.Context, experimentID string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM region_assignments WHERE experiment_id = $1`, experimentID); err != nil {
		return fmt.Errorf("delete assignment: %w", err)
	}
	return nil
}

// ListExperiments returns stored experiment ids in ascending order.
func (s *Store) ListExperiments(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT experiment_id FROM region_assignments ORDER BY experiment_id`)
	if err != nil {
		return nil, fmt.Errorf("list assignments: %w", err)
	}
	defer func() { _ = rows.Close() }()
	var out []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan: %w", err)
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

// Close releases the database handle.
func (s *Store) Close() error { return s.db.Close() }

// OverrideSQLOpen swaps the sql.Open implementation for tests and returns a
// restore function.
func OverrideSQLOpen(fn func(driverName, dsn string) (*sql.DB, error)) func() {
	openMu.Lock()
	prev := sqlOpen
	sqlOpen = fn
	openMu.Unlock()
	return func() {
		openMu.Lock()
		sqlOpen = prev
		openMu.Unlock()
	}
}
