package core

import (
	"context"
	"fmt"

	"traycore/internal/infra/persistence/memory"
	"traycore/internal/infra/persistence/postgres"
	"traycore/internal/infra/persistence/sqlite"
	"traycore/pkg/domain"
)

// StorageDriver identifies a concrete assignment storage implementation.
type StorageDriver string

const (
	StorageMemory   StorageDriver = "memory"   // in-memory only (tests / ephemeral)
	StorageSQLite   StorageDriver = "sqlite"   // embedded sqlite file
	StoragePostgres StorageDriver = "postgres" // PostgreSQL server
)

// StorageOptions selects and configures an assignment backend. An empty
// Driver means sqlite.
type StorageOptions struct {
	Driver      StorageDriver
	SQLitePath  string
	PostgresDSN string
}

// OpenAssignmentStore opens the backend described by opts.
func OpenAssignmentStore(ctx context.Context, opts StorageOptions) (domain.AssignmentStore, error) {
	driver := opts.Driver
	if driver == "" {
		driver = StorageSQLite
	}
	switch driver {
	case StorageMemory:
		return memory.NewStore(), nil
	case StorageSQLite:
		return sqlite.NewStore(opts.SQLitePath)
	case StoragePostgres:
		return postgres.NewStore(ctx, opts.PostgresDSN)
	default:
		return nil, fmt.Errorf("unknown storage driver %s", driver)
	}
}
