package geometry

import (
	"errors"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"traycore/pkg/domain"
)

func plate(rotation domain.Rotation) domain.Tray {
	return domain.Tray{SequenceID: 1, Name: "P1", Columns: 12, Rows: 8, Rotation: rotation}
}

func TestCellToLabelKnownWells(t *testing.T) {
	g := New(plate(domain.Rotation0))
	cases := map[domain.Cell]string{
		{Row: 0, Col: 0}:  "A1",
		{Row: 4, Col: 11}: "L5",
		{Row: 7, Col: 3}:  "D8",
	}
	for cell, want := range cases {
		if got := g.CellToLabel(cell); got != want {
			t.Fatalf("cell %v: expected %s, got %s", cell, want, got)
		}
	}
}

func TestLabelRoundTripAllWells(t *testing.T) {
	trays := []domain.Tray{
		plate(domain.Rotation0),
		plate(domain.Rotation90),
		{Name: "strip", Columns: 1, Rows: 99},
		{Name: "wide", Columns: 26, Rows: 3, Rotation: domain.Rotation270},
	}
	for _, tray := range trays {
		g := New(tray)
		for row := 0; row < tray.Rows; row++ {
			for col := 0; col < tray.Columns; col++ {
				c := domain.Cell{Row: row, Col: col}
				if got := g.LabelToCell(g.CellToLabel(c)); got != c {
					t.Fatalf("tray %s: round trip of %v produced %v", tray.Name, c, got)
				}
			}
		}
	}
}

func TestParseLabelAcceptsLowerCase(t *testing.T) {
	c, err := ParseLabel(" d5 ", plate(domain.Rotation0))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if c != (domain.Cell{Row: 4, Col: 3}) {
		t.Fatalf("unexpected cell %v", c)
	}
}

func TestParseLabelRejects(t *testing.T) {
	tray := plate(domain.Rotation0)
	for _, label := range []string{"", "A", "1A", "AA1", "A100", "M1", "A9", "A0", "A-1"} {
		if _, err := ParseLabel(label, tray); err == nil {
			t.Fatalf("expected error for %q", label)
		}
	}
	var bounds domain.BoundsError
	if _, err := ParseLabel("M1", tray); !errors.As(err, &bounds) {
		t.Fatalf("expected bounds error, got %v", err)
	}
}

func TestCodecFailsClosedWithDiagnostic(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	g := New(plate(domain.Rotation0), WithLogger(zap.New(core)))

	if got := g.CellToLabel(domain.Cell{Row: 8, Col: 0}); got != DefaultLabel {
		t.Fatalf("expected default label, got %s", got)
	}
	if got := g.CellToLabel(domain.Cell{Row: -1, Col: 2}); got != DefaultLabel {
		t.Fatalf("expected default label, got %s", got)
	}
	if got := g.LabelToCell("Z1"); got != (domain.Cell{}) {
		t.Fatalf("expected origin cell, got %v", got)
	}
	if got := g.LabelToCell("not-a-label"); got != (domain.Cell{}) {
		t.Fatalf("expected origin cell, got %v", got)
	}
	if n := logs.FilterMessage("well cell out of bounds").Len(); n != 2 {
		t.Fatalf("expected 2 cell diagnostics, got %d", n)
	}
	if n := logs.FilterMessage("well label not addressable").Len(); n != 2 {
		t.Fatalf("expected 2 label diagnostics, got %d", n)
	}
}

func TestFormatLabelRejectsOutOfBounds(t *testing.T) {
	if _, err := FormatLabel(domain.Cell{Row: 0, Col: 12}, plate(domain.Rotation0)); err == nil {
		t.Fatalf("expected bounds error")
	}
	if _, ok := ColumnLetter(26); ok {
		t.Fatalf("column 26 has no single letter")
	}
}

func TestWellsBeyondLabelLimitsFailClosed(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	tray := domain.Tray{SequenceID: 1, Name: "Wide", Columns: 48, Rows: 120}
	g := New(tray, WithLogger(zap.New(core)))

	if got := g.CellToLabel(domain.Cell{Row: 98, Col: 25}); got != "Z99" {
		t.Fatalf("expected Z99, got %s", got)
	}
	for _, c := range []domain.Cell{{Row: 0, Col: 26}, {Row: 99, Col: 0}} {
		if _, err := FormatLabel(c, tray); !errors.As(err, new(domain.BoundsError)) {
			t.Fatalf("%v: expected bounds error, got %v", c, err)
		}
		if got := g.CellToLabel(c); got != DefaultLabel {
			t.Fatalf("%v: expected default label, got %s", c, got)
		}
	}
	if n := logs.FilterMessage("well cell out of bounds").Len(); n != 2 {
		t.Fatalf("expected 2 cell diagnostics, got %d", n)
	}
	if axes := g.Axes(); axes.X[26] != "?" || axes.Y[119] != "120" {
		t.Fatalf("unexpected axes beyond letters: %q, %q", axes.X[26], axes.Y[119])
	}
}
