// Package memory provides an in-process AssignmentStore used by tests and
// ephemeral sessions.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"traycore/pkg/domain"
)

var _ domain.AssignmentStore = (*Store)(nil)

// Store keeps region assignments in a map keyed by experiment.
type Store struct {
	mu          sync.RWMutex
	assignments map[string]domain.Assignment
	now         func() time.Time
}

// NewStore constructs an empty store.
func NewStore() *Store {
	return &Store{
		assignments: make(map[string]domain.Assignment),
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// LoadAssignment returns a copy of the stored assignment.
func (s *Store) LoadAssignment(ctx context.Context, experimentID string) (domain.Assignment, error) {
	if err := ctx.Err(); err != nil {
		return domain.Assignment{}, err
	}
	s.mu.RLock()
	a, ok := s.assignments[experimentID]
	s.mu.RUnlock()
	if !ok {
		return domain.Assignment{}, fmt.Errorf("assignment %s: %w", experimentID, domain.ErrNotFound)
	}
	a.Regions = domain.CloneRegions(a.Regions)
	return a, nil
}

// SaveAssignment replaces the stored assignment. Last write wins.
func (s *Store) SaveAssignment(ctx context.Context, a domain.Assignment) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if a.ExperimentID == "" {
		return fmt.Errorf("assignment requires an experiment id")
	}
	a.Regions = domain.CloneRegions(a.Regions)
	if a.Regions == nil {
		a.Regions = []domain.Region{}
	}
	if a.UpdatedAt.IsZero() {
		a.UpdatedAt = s.now()
	}
	s.mu.Lock()
	s.assignments[a.ExperimentID] = a
	s.mu.Unlock()
	return nil
}

// DeleteAssignment removes an assignment; deleting a missing one is not an error.
func (s *Store) DeleteAssignment(_ context.Context, experimentID string) error {
	s.mu.Lock()
	delete(s.assignments, experimentID)
	s.mu.Unlock()
	return nil
}

// ListExperiments returns the stored experiment ids in ascending order.
func (s *Store) ListExperiments(_ context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, 0, len(s.assignments))
	for id := range s.assignments {
		out = append(out, id)
	}
	sort.Strings(out)
	return out, nil
}

// Close is a no-op.
func (s *Store) Close() error { return nil }
