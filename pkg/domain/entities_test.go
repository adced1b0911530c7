package domain

import (
	"encoding/json"
	"errors"
	"testing"
)

func TestParseRotation(t *testing.T) {
	for _, deg := range []int{0, 90, 180, 270} {
		r, err := ParseRotation(deg)
		if err != nil {
			t.Fatalf("parse %d: %v", deg, err)
		}
		if r.Degrees() != deg {
			t.Fatalf("expected %d, got %d", deg, r.Degrees())
		}
	}
	for _, deg := range []int{-90, 45, 360} {
		if _, err := ParseRotation(deg); !errors.Is(err, ErrInvalidRotation) {
			t.Fatalf("expected ErrInvalidRotation for %d, got %v", deg, err)
		}
	}
}

func TestRotationInverse(t *testing.T) {
	cases := map[Rotation]Rotation{
		Rotation0:   Rotation0,
		Rotation90:  Rotation270,
		Rotation180: Rotation180,
		Rotation270: Rotation90,
	}
	for r, want := range cases {
		if got := r.Inverse(); got != want {
			t.Fatalf("inverse of %d: expected %d, got %d", r, want, got)
		}
	}
}

func TestTrayValidate(t *testing.T) {
	cases := []struct {
		name string
		tray Tray
		ok   bool
	}{
		{"standard", Tray{Name: "P1", Columns: 12, Rows: 8}, true},
		{"rotated", Tray{Name: "P1", Columns: 12, Rows: 8, Rotation: Rotation270}, true},
		{"max letters", Tray{Name: "wide", Columns: 26, Rows: 99}, true},
		{"no name", Tray{Columns: 12, Rows: 8}, false},
		{"zero columns", Tray{Name: "P1", Rows: 8}, false},
		{"beyond letters", Tray{Name: "wide", Columns: 48, Rows: 32}, true},
		{"beyond two digits", Tray{Name: "tall", Columns: 12, Rows: 120}, true},
		{"bad rotation", Tray{Name: "P1", Columns: 12, Rows: 8, Rotation: 45}, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.tray.Validate()
			if tc.ok && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !tc.ok && err == nil {
				t.Fatalf("expected validation error")
			}
		})
	}
}

func TestTraysFromPlacements(t *testing.T) {
	diameter := 0.8
	placements := []TrayPlacement{
		{OrderSequence: 1, RotationDegrees: 90, Trays: []TrayDefinition{{Name: " P1 ", QtyXAxis: 12, QtyYAxis: 8, WellRelativeDiameter: &diameter}}},
		{OrderSequence: 2, RotationDegrees: 0, Trays: []TrayDefinition{{Name: "P2", QtyXAxis: 6, QtyYAxis: 4}}},
	}
	trays, err := TraysFromPlacements(placements)
	if err != nil {
		t.Fatalf("convert: %v", err)
	}
	if len(trays) != 2 {
		t.Fatalf("expected 2 trays, got %d", len(trays))
	}
	first := trays[0]
	if first.Name != "P1" || first.Columns != 12 || first.Rows != 8 || first.Rotation != Rotation90 || first.SequenceID != 1 {
		t.Fatalf("unexpected first tray %+v", first)
	}
	if first.WellDiameter == nil || *first.WellDiameter != diameter {
		t.Fatalf("expected well diameter to be carried")
	}
	if got, ok := FindTrayByName(trays, "P2"); !ok || got.SequenceID != 2 {
		t.Fatalf("expected to find P2 by name, got %+v", got)
	}
	if got, ok := FindTrayBySequence(trays, 1); !ok || got.Name != "P1" {
		t.Fatalf("expected to find sequence 1, got %+v", got)
	}
	if _, ok := FindTrayBySequence(trays, 3); ok {
		t.Fatalf("unexpected tray for sequence 3")
	}
}

func TestTraysFromPlacementsRejectsBadConfiguration(t *testing.T) {
	def := TrayDefinition{Name: "P1", QtyXAxis: 12, QtyYAxis: 8}
	cases := map[string][]TrayPlacement{
		"empty placement":    {{OrderSequence: 1}},
		"duplicate sequence": {{OrderSequence: 1, Trays: []TrayDefinition{def}}, {OrderSequence: 1, Trays: []TrayDefinition{{Name: "P2", QtyXAxis: 1, QtyYAxis: 1}}}},
		"duplicate name":     {{OrderSequence: 1, Trays: []TrayDefinition{def}}, {OrderSequence: 2, Trays: []TrayDefinition{def}}},
		"bad rotation":       {{OrderSequence: 1, RotationDegrees: 30, Trays: []TrayDefinition{def}}},
		"bad dimensions":     {{OrderSequence: 1, Trays: []TrayDefinition{{Name: "P1", QtyXAxis: 40, QtyYAxis: 8}}}},
	}
	for name, placements := range cases {
		t.Run(name, func(t *testing.T) {
			if _, err := TraysFromPlacements(placements); err == nil {
				t.Fatalf("expected error")
			}
		})
	}
}

func TestRegionJSONShapeIsStable(t *testing.T) {
	region := Region{
		Name:           "Foo",
		TraySequenceID: SequenceID(2),
		RowMin:         0, RowMax: 2, ColMin: 1, ColMax: 3,
		Color:       "#1f77b4",
		TreatmentID: "t-1",
		Dilution:    "1:10",
	}
	data, err := json.Marshal(region)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var payload map[string]any
	if err := json.Unmarshal(data, &payload); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	for _, key := range []string{"name", "tray_sequence_id", "row_min", "row_max", "col_min", "col_max", "color", "treatment_id", "dilution", "is_background_key"} {
		if _, ok := payload[key]; !ok {
			t.Fatalf("expected key %q in %s", key, data)
		}
	}
	if _, ok := payload["treatment"]; ok {
		t.Fatalf("unresolved treatment should be omitted: %s", data)
	}

	var legacy Region
	if err := json.Unmarshal([]byte(`{"name":"old","tray_sequence_id":null,"row_min":0,"row_max":1,"col_min":0,"col_max":1}`), &legacy); err != nil {
		t.Fatalf("unmarshal legacy: %v", err)
	}
	if legacy.HasTray() {
		t.Fatalf("expected legacy region without tray")
	}
}

func TestBoundsOverlap(t *testing.T) {
	a := NormalizeBounds(Cell{Row: 3, Col: 5}, Cell{Row: 0, Col: 0})
	if a != (Bounds{RowMin: 0, RowMax: 3, ColMin: 0, ColMax: 5}) {
		t.Fatalf("unexpected normalization %+v", a)
	}
	cases := []struct {
		name string
		b    Bounds
		want bool
	}{
		{"intersecting", Bounds{RowMin: 2, RowMax: 6, ColMin: 3, ColMax: 8}, true},
		{"shared edge", Bounds{RowMin: 3, RowMax: 4, ColMin: 5, ColMax: 6}, true},
		{"adjacent rows", Bounds{RowMin: 4, RowMax: 6, ColMin: 0, ColMax: 5}, false},
		{"adjacent cols", Bounds{RowMin: 0, RowMax: 3, ColMin: 6, ColMax: 8}, false},
		{"rows only", Bounds{RowMin: 0, RowMax: 3, ColMin: 7, ColMax: 9}, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := a.Overlaps(tc.b); got != tc.want {
				t.Fatalf("expected %v, got %v", tc.want, got)
			}
			if got := tc.b.Overlaps(a); got != tc.want {
				t.Fatalf("overlap must be symmetric")
			}
		})
	}
	if a.WellCount() != 24 {
		t.Fatalf("expected 24 wells, got %d", a.WellCount())
	}
}

func TestRegionCloneIsDeep(t *testing.T) {
	orig := Region{
		TraySequenceID: SequenceID(1),
		Treatment: &TreatmentDetail{ID: "t", Sample: &SampleDetail{Name: "s", Location: &LocationRecord{Name: "loc"}}},
	}
	cp := orig.Clone()
	*cp.TraySequenceID = 9
	cp.Treatment.Sample.Location.Name = "changed"
	if *orig.TraySequenceID != 1 || orig.Treatment.Sample.Location.Name != "loc" {
		t.Fatalf("clone shares state with original")
	}
}

func TestProjectTreatmentStatus(t *testing.T) {
	full := ProjectTreatment(TreatmentDetail{ID: "t", Name: "heat", Sample: &SampleDetail{Name: "s1", Type: "soil", Location: &LocationRecord{Name: "Site A"}}})
	if full.Status != ResolutionResolved || full.LocationName != "Site A" || full.SampleType != "soil" {
		t.Fatalf("unexpected projection %+v", full)
	}
	partial := ProjectTreatment(TreatmentDetail{ID: "t", Name: "heat"})
	if partial.Status != ResolutionPartial {
		t.Fatalf("expected partial, got %s", partial.Status)
	}
	if Unresolved("x").Status != ResolutionUnresolved {
		t.Fatalf("expected unresolved")
	}
}

func TestColorForCycles(t *testing.T) {
	if ColorFor(0) != Palette[0] || ColorFor(len(Palette)) != Palette[0] || ColorFor(len(Palette)+1) != Palette[1] {
		t.Fatalf("palette does not cycle")
	}
}

func TestIndexWellSummaries(t *testing.T) {
	idx := IndexWellSummaries([]WellSummary{
		{Coordinate: "A1", TrayName: "P1", FinalState: "frozen"},
		{Coordinate: "A1", TrayName: "P2", FinalState: "liquid"},
	}, "P1")
	if len(idx) != 1 || idx["A1"].FinalState != "frozen" {
		t.Fatalf("unexpected index %+v", idx)
	}
}
