package domain

import "strings"

// Bounds is an inclusive logical bounding box.
type Bounds struct {
	RowMin int `json:"row_min"`
	RowMax int `json:"row_max"`
	ColMin int `json:"col_min"`
	ColMax int `json:"col_max"`
}

// NormalizeBounds builds a bounding box from two opposite corners, regardless
// of the direction they were dragged in.
func NormalizeBounds(a, b Cell) Bounds {
	return Bounds{
		RowMin: min(a.Row, b.Row),
		RowMax: max(a.Row, b.Row),
		ColMin: min(a.Col, b.Col),
		ColMax: max(a.Col, b.Col),
	}
}

// Overlaps reports closed-interval intersection on both axes.
func (b Bounds) Overlaps(o Bounds) bool {
	return b.RowMin <= o.RowMax && b.RowMax >= o.RowMin &&
		b.ColMin <= o.ColMax && b.ColMax >= o.ColMin
}

// Contains reports whether c lies inside the box.
func (b Bounds) Contains(c Cell) bool {
	return c.Row >= b.RowMin && c.Row <= b.RowMax && c.Col >= b.ColMin && c.Col <= b.ColMax
}

// UpperLeft returns the logical corner with the smallest indices.
func (b Bounds) UpperLeft() Cell { return Cell{Row: b.RowMin, Col: b.ColMin} }

// LowerRight returns the logical corner with the largest indices.
func (b Bounds) LowerRight() Cell { return Cell{Row: b.RowMax, Col: b.ColMax} }

// WellCount returns the number of wells covered by the box.
func (b Bounds) WellCount() int { return (b.RowMax - b.RowMin + 1) * (b.ColMax - b.ColMin + 1) }

// Region is a named rectangular group of wells on one tray bound to a
// treatment and dilution. This is the persisted record shape; fields may be
// added but not renamed.
//
// TraySequenceID is nil only for legacy records that predate multi-tray
// configurations. Treatment carries the nested treatment object when the
// backend returned one; it is never a source of truth for TreatmentID.
type Region struct {
	ID              string           `json:"id,omitempty"`
	Name            string           `json:"name"`
	TraySequenceID  *int             `json:"tray_sequence_id"`
	RowMin          int              `json:"row_min"`
	RowMax          int              `json:"row_max"`
	ColMin          int              `json:"col_min"`
	ColMax          int              `json:"col_max"`
	Color           string           `json:"color"`
	TreatmentID     string           `json:"treatment_id"`
	Dilution        string           `json:"dilution"`
	IsBackgroundKey bool             `json:"is_background_key"`
	Treatment       *TreatmentDetail `json:"treatment,omitempty"`
}

// Bounds returns the region's bounding box.
func (r Region) Bounds() Bounds {
	return Bounds{RowMin: r.RowMin, RowMax: r.RowMax, ColMin: r.ColMin, ColMax: r.ColMax}
}

// SetBounds replaces the region's bounding box.
func (r *Region) SetBounds(b Bounds) {
	r.RowMin, r.RowMax, r.ColMin, r.ColMax = b.RowMin, b.RowMax, b.ColMin, b.ColMax
}

// OnTray reports whether the region is assigned to the tray with sequenceID.
func (r Region) OnTray(sequenceID int) bool {
	return r.TraySequenceID != nil && *r.TraySequenceID == sequenceID
}

// HasTray reports whether the region carries a tray assignment.
func (r Region) HasTray() bool { return r.TraySequenceID != nil }

// TrimmedName returns the name used for uniqueness checks.
func (r Region) TrimmedName() string { return strings.TrimSpace(r.Name) }

// Clone returns a deep copy of the region.
func (r Region) Clone() Region {
	cp := r
	if r.TraySequenceID != nil {
		seq := *r.TraySequenceID
		cp.TraySequenceID = &seq
	}
	if r.Treatment != nil {
		t := r.Treatment.Clone()
		cp.Treatment = &t
	}
	return cp
}

// CloneRegions deep copies a region slice.
func CloneRegions(in []Region) []Region {
	if in == nil {
		return nil
	}
	out := make([]Region, len(in))
	for i, r := range in {
		out[i] = r.Clone()
	}
	return out
}

// SequenceID returns a pointer to a copy of id, for populating TraySequenceID.
func SequenceID(id int) *int { return &id }
