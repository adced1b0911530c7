// Package sqlite persists region assignments to a single SQLite file. The
// schema is managed by embedded migrations applied on open.
package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/golang-migrate/migrate/v4"
	migratesqlite "github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "modernc.org/sqlite" // pure go sqlite driver

	"traycore/pkg/domain"
)

// DefaultPath is used when no database path is configured.
const DefaultPath = "traycore.db"

var _ domain.AssignmentStore = (*Store)(nil)

//go:embed migrations/*.sql
var migrationFS embed.FS

// Store is a SQLite-backed AssignmentStore. Each assignment is one row holding
// the JSON region array.
type Store struct {
	db   *sql.DB
	path string
}

// NewStore opens (creating if needed) the database at path and migrates it to
// the latest schema version.
func NewStore(path string) (*Store, error) {
	if path == "" {
		path = DefaultPath
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil && !errors.Is(err, os.ErrExist) {
		return nil, fmt.Errorf("create dirs: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)
	if err := applyMigrations(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Store{db: db, path: path}, nil
}

func applyMigrations(db *sql.DB) error {
	src, err := iofs.New(migrationFS, "migrations")
	if err != nil {
		return fmt.Errorf("load migrations: %w", err)
	}
	driver, err := migratesqlite.WithInstance(db, &migratesqlite.Config{})
	if err != nil {
		return fmt.Errorf("migration driver: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", src, "sqlite", driver)
	if err != nil {
		return fmt.Errorf("init migrations: %w", err)
	}
	// m.Close would close db as well; the source is released explicitly instead.
	defer func() { _ = src.Close() }()
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("apply migrations: %w", err)
	}
	return nil
}

// Path returns the database file location.
func (s *Store) Path() string { return s.path }

// DB exposes the underlying handle for tests.
func (s *Store) DB() *sql.DB { return s.db }

// LoadAssignment implements domain.AssignmentStore.
func (s *Store) LoadAssignment(ctx context.Context, experimentID string) (domain.Assignment, error) {
	var (
		payload []byte
		updated string
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT payload, updated_at FROM region_assignments WHERE experiment_id = ?`, experimentID,
	).Scan(&payload, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Assignment{}, fmt.Errorf("assignment %s: %w", experimentID, domain.ErrNotFound)
	}
	if err != nil {
		return domain.Assignment{}, fmt.Errorf("select assignment: %w", err)
	}
	a := domain.Assignment{ExperimentID: experimentID}
	if err := json.Unmarshal(payload, &a.Regions); err != nil {
		return domain.Assignment{}, fmt.Errorf("decode regions: %w", err)
	}
	if a.Regions == nil {
		a.Regions = []domain.Region{}
	}
	if a.UpdatedAt, err = time.Parse(time.RFC3339Nano, updated); err != nil {
		return domain.Assignment{}, fmt.Errorf("decode updated_at: %w", err)
	}
	return a, nil
}

// SaveAssignment upserts the assignment row.
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
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO region_assignments(experiment_id, payload, updated_at) VALUES(?, ?, ?)
		ON CONFLICT(experiment_id) DO UPDATE SET payload = excluded.payload, updated_at = excluded.updated_at`,
		a.ExperimentID, payload, updated.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("upsert assignment: %w", err)
	}
	return nil
}

// DeleteAssignment removes the experiment's row if present.
func (s *Store) DeleteAssignment(ctx context.Context, experimentID string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM region_assignments WHERE experiment_id = ?`, experimentID); err != nil {
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
