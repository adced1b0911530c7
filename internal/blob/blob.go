// Package blob is the single entry point to interchange document storage.
// Callers depend on Store; only this package wires the infra backends.
package blob

import (
	"context"
	"fmt"

	"traycore/internal/blob/core"
	fsstore "traycore/internal/infra/blob/fs"
	memorystore "traycore/internal/infra/blob/memory"
	s3store "traycore/internal/infra/blob/s3"
)

type (
	// Store is the document storage abstraction.
	Store = core.Store
	// Driver identifies a backend.
	Driver = core.Driver
	// Info describes a stored blob.
	Info = core.Info
	// PutOptions configures Put.
	PutOptions = core.PutOptions
	// S3Config configures the S3 backend.
	S3Config = s3store.Config
)

// Backend drivers.
const (
	DriverFilesystem = core.DriverFilesystem
	DriverS3         = core.DriverS3
	DriverMemory     = core.DriverMemory
)

// Sentinel errors shared by every backend.
var (
	ErrNotFound = core.ErrNotFound
	ErrExists   = core.ErrExists
)

// Config selects and configures a backend.
type Config struct {
	Driver Driver
	FSRoot string
	S3     S3Config
}

// Open constructs the configured backend, defaulting to the filesystem.
func Open(ctx context.Context, cfg Config) (Store, error) {
	switch cfg.Driver {
	case "", DriverFilesystem:
		return NewFilesystem(cfg.FSRoot)
	case DriverS3:
		return NewS3(ctx, cfg.S3)
	case DriverMemory:
		return NewMemory(), nil
	default:
		return nil, fmt.Errorf("unknown blob driver %s", cfg.Driver)
	}
}

// NewMemory returns an in-memory Store suitable for tests.
func NewMemory() Store { return memorystore.New() }

// NewFilesystem constructs a filesystem-backed Store rooted at root.
func NewFilesystem(root string) (Store, error) {
	return fsstore.New(root)
}

// NewS3 constructs an S3-backed Store.
func NewS3(ctx context.Context, cfg S3Config) (Store, error) {
	return s3store.New(ctx, cfg)
}

// NewMockS3ForTests exposes the in-memory S3 mock for cross-package tests.
func NewMockS3ForTests() Store { return s3store.NewMockForTests() }
