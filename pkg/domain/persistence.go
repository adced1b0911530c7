package domain

import (
	"context"
	"time"
)

// Assignment is the persisted region array of one experiment.
type Assignment struct {
	ExperimentID string    `json:"experiment_id"`
	Regions      []Region  `json:"regions"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// AssignmentStore is the minimal abstraction over durable backends holding
// region assignments. Saves are last-write-wins; there is no locking across
// concurrent editors.
type AssignmentStore interface {
	// LoadAssignment returns ErrNotFound when the experiment has never been saved.
	LoadAssignment(ctx context.Context, experimentID string) (Assignment, error)
	SaveAssignment(ctx context.Context, assignment Assignment) error
	DeleteAssignment(ctx context.Context, experimentID string) error
	ListExperiments(ctx context.Context) ([]string, error)
	Close() error
}
