package core

import (
	"errors"
	"testing"

	"traycore/pkg/domain"
)

func TestCreateRegionNormalizesDragDirection(t *testing.T) {
	tray := testTrays()[1]
	r, err := CreateRegion(tray, domain.Cell{Row: 3, Col: 5}, domain.Cell{Row: 0, Col: 1}, nil, "#fff")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	want := domain.Bounds{RowMin: 0, RowMax: 3, ColMin: 1, ColMax: 5}
	if r.Bounds() != want || !r.OnTray(2) || r.Color != "#fff" {
		t.Fatalf("unexpected region %+v", r)
	}
}

func TestCreateRegionRejectsOverlap(t *testing.T) {
	tray := testTrays()[1]
	store := NewRegionStore(nil)
	store, a, err := store.Create(tray, domain.Cell{Row: 0, Col: 0}, domain.Cell{Row: 3, Col: 5})
	if err != nil {
		t.Fatalf("create A: %v", err)
	}
	before := store.Len()
	next, _, err := store.Create(tray, domain.Cell{Row: 2, Col: 3}, domain.Cell{Row: 6, Col: 8})
	var overlap domain.OverlapError
	if !errors.As(err, &overlap) {
		t.Fatalf("expected overlap error, got %v", err)
	}
	if overlap.Conflict.ID != a.ID || overlap.TraySequenceID != 2 {
		t.Fatalf("unexpected overlap detail %+v", overlap)
	}
	if next.Len() != before {
		t.Fatalf("store length changed on rejection: %d -> %d", before, next.Len())
	}

	// touching edge cells overlap because bounds are inclusive
	if _, _, err := store.Create(tray, domain.Cell{Row: 3, Col: 5}, domain.Cell{Row: 4, Col: 6}); err == nil {
		t.Fatalf("expected shared corner to overlap")
	}
	if _, _, err := store.Create(tray, domain.Cell{Row: 4, Col: 0}, domain.Cell{Row: 7, Col: 5}); err != nil {
		t.Fatalf("disjoint region rejected: %v", err)
	}
}

func TestCreateRegionIgnoresOtherTrays(t *testing.T) {
	trays := testTrays()
	store := NewRegionStore([]domain.Region{boxRegion("Elsewhere", domain.SequenceID(1), 0, 2, 0, 3)})
	if _, _, err := store.Create(trays[1], domain.Cell{}, domain.Cell{Row: 2, Col: 3}); err != nil {
		t.Fatalf("regions on another tray must not conflict: %v", err)
	}
}

func TestCreateRegionRejectsOutOfBounds(t *testing.T) {
	tray := testTrays()[0]
	_, err := CreateRegion(tray, domain.Cell{}, domain.Cell{Row: 3, Col: 0}, nil, "")
	var bounds domain.BoundsError
	if !errors.As(err, &bounds) || bounds.Cell.Row != 3 || bounds.Tray != "P1" {
		t.Fatalf("expected bounds error, got %v", err)
	}
}

func TestThirdRegionBetweenDisjointPair(t *testing.T) {
	tray := testTrays()[1]
	store := NewRegionStore(nil)
	var err error
	for _, corners := range [][2]domain.Cell{
		{{Row: 0, Col: 0}, {Row: 1, Col: 1}},
		{{Row: 6, Col: 10}, {Row: 7, Col: 11}},
		{{Row: 3, Col: 3}, {Row: 4, Col: 6}},
	} {
		if store, _, err = store.Create(tray, corners[0], corners[1]); err != nil {
			t.Fatalf("create %v: %v", corners, err)
		}
	}
	if store.Len() != 3 {
		t.Fatalf("expected 3 regions, got %d", store.Len())
	}
	for i, r := range store.Regions() {
		if r.Color != domain.ColorFor(i) {
			t.Fatalf("region %d color %s, want %s", i, r.Color, domain.ColorFor(i))
		}
	}
}
