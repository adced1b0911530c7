package sqlite

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"traycore/pkg/domain"
)

func TestStorePersistsAcrossReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "nested", "traycore.db")
	s, err := NewStore(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if _, err := s.LoadAssignment(ctx, "exp"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	regions := []domain.Region{
		{ID: "r1", Name: "Foo", TraySequenceID: domain.SequenceID(1), RowMax: 1, ColMax: 2, Color: "#ff0000", TreatmentID: "t1", Dilution: "1:10"},
		{ID: "r2", Name: "Legacy", RowMin: 3, RowMax: 4},
	}
	stamp := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	if err := s.SaveAssignment(ctx, domain.Assignment{ExperimentID: "exp", Regions: regions, UpdatedAt: stamp}); err != nil {
		t.Fatalf("save: %v", err)
	}
	regions[0].Name = "Bar"
	if err := s.SaveAssignment(ctx, domain.Assignment{ExperimentID: "exp", Regions: regions, UpdatedAt: stamp}); err != nil {
		t.Fatalf("overwrite: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	reopened, err := NewStore(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	t.Cleanup(func() { _ = reopened.Close() })
	got, err := reopened.LoadAssignment(ctx, "exp")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if diff := cmp.Diff(regions, got.Regions); diff != "" {
		t.Fatalf("regions (-want +got):\n%s", diff)
	}
	if !got.UpdatedAt.Equal(stamp) {
		t.Fatalf("expected updated_at %v, got %v", stamp, got.UpdatedAt)
	}
	if got.Regions[1].TraySequenceID != nil {
		t.Fatalf("legacy region must keep a nil tray")
	}
}

func TestStoreAppliesMigrations(t *testing.T) {
	s, err := NewStore(filepath.Join(t.TempDir(), "traycore.db"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	var version int
	var dirty bool
	if err := s.DB().QueryRow(`SELECT version, dirty FROM schema_migrations`).Scan(&version, &dirty); err != nil {
		t.Fatalf("read schema version: %v", err)
	}
	if version != 1 || dirty {
		t.Fatalf("unexpected schema version %d dirty=%v", version, dirty)
	}
}

func TestStoreListAndDelete(t *testing.T) {
	ctx := context.Background()
	s, err := NewStore(filepath.Join(t.TempDir(), "traycore.db"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	for _, id := range []string{"b", "a"} {
		if err := s.SaveAssignment(ctx, domain.Assignment{ExperimentID: id}); err != nil {
			t.Fatalf("save: %v", err)
		}
	}
	if err := s.SaveAssignment(ctx, domain.Assignment{}); err == nil {
		t.Fatalf("expected error for missing experiment id")
	}
	ids, err := s.ListExperiments(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if diff := cmp.Diff([]string{"a", "b"}, ids); diff != "" {
		t.Fatalf("list (-want +got):\n%s", diff)
	}
	got, err := s.LoadAssignment(ctx, "a")
	if err != nil || got.Regions == nil || len(got.Regions) != 0 {
		t.Fatalf("expected empty region array, got %+v err=%v", got, err)
	}
	if err := s.DeleteAssignment(ctx, "a"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := s.LoadAssignment(ctx, "a"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
}
