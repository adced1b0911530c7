// Package domain defines the tray, well, and region value types, the rule
// evaluation primitives, and the persistence contract used by traycore.
package domain

import (
	"fmt"
	"strings"
)

// Label codec limits. Columns are encoded as a single ASCII letter and rows as
// at most two decimal digits. Wells beyond them exist but have no label.
const (
	MaxColumns = 26
	MaxRows    = 99
)

// Rotation is the mounting angle of a physical tray relative to its logical
// definition, in degrees clockwise.
type Rotation int

// Supported rotations.
const (
	Rotation0   Rotation = 0
	Rotation90  Rotation = 90
	Rotation180 Rotation = 180
	Rotation270 Rotation = 270
)

// ParseRotation validates a rotation expressed in degrees.
func ParseRotation(degrees int) (Rotation, error) {
	r := Rotation(degrees)
	if !r.Valid() {
		return 0, fmt.Errorf("%w: %d", ErrInvalidRotation, degrees)
	}
	return r, nil
}

// Valid reports whether r is one of the four supported rotations.
func (r Rotation) Valid() bool {
	switch r {
	case Rotation0, Rotation90, Rotation180, Rotation270:
		return true
	default:
		return false
	}
}

// Inverse returns the rotation that undoes r.
func (r Rotation) Inverse() Rotation {
	switch r {
	case Rotation90:
		return Rotation270
	case Rotation270:
		return Rotation90
	default:
		return r
	}
}

// Degrees returns the rotation as a plain integer.
func (r Rotation) Degrees() int { return int(r) }

// Tray is an immutable descriptor of a physical well grid mounted at a given
// rotation. SequenceID is the tray's order_sequence within the experiment's
// tray configuration and is the identity regions refer to.
type Tray struct {
	SequenceID   int      `json:"tray_sequence_id"`
	Name         string   `json:"name"`
	Columns      int      `json:"columns"`
	Rows         int      `json:"rows"`
	Rotation     Rotation `json:"rotation_degrees"`
	WellDiameter *float64 `json:"well_diameter,omitempty"`
}

// Validate checks the tray name, dimensions and rotation.
func (t Tray) Validate() error {
	switch {
	case strings.TrimSpace(t.Name) == "":
		return fmt.Errorf("%w: tray %d has no name", ErrInvalidTray, t.SequenceID)
	case t.Columns < 1 || t.Rows < 1:
		return fmt.Errorf("%w: tray %s has %dx%d wells", ErrInvalidTray, t.Name, t.Columns, t.Rows)
	case !t.Rotation.Valid():
		return fmt.Errorf("%w: tray %s: %d", ErrInvalidRotation, t.Name, t.Rotation)
	}
	return nil
}

// Contains reports whether c addresses a well of the tray.
func (t Tray) Contains(c Cell) bool {
	return c.Row >= 0 && c.Row < t.Rows && c.Col >= 0 && c.Col < t.Columns
}

// Fits reports whether a bounding box lies entirely inside the tray.
func (t Tray) Fits(b Bounds) bool {
	return b.RowMin >= 0 && b.ColMin >= 0 && b.RowMax < t.Rows && b.ColMax < t.Columns
}

// WellCount returns the number of wells on the tray.
func (t Tray) WellCount() int { return t.Rows * t.Columns }

// FindTrayBySequence returns the tray with the given sequence id.
func FindTrayBySequence(trays []Tray, sequenceID int) (Tray, bool) {
	for _, t := range trays {
		if t.SequenceID == sequenceID {
			return t, true
		}
	}
	return Tray{}, false
}

// FindTrayByName returns the first tray with the given name.
func FindTrayByName(trays []Tray, name string) (Tray, bool) {
	for _, t := range trays {
		if t.Name == name {
			return t, true
		}
	}
	return Tray{}, false
}

// Cell is a logical, unrotated well coordinate. Both indices are zero based.
type Cell struct {
	Row int `json:"row"`
	Col int `json:"col"`
}

func (c Cell) String() string { return fmt.Sprintf("(%d,%d)", c.Row, c.Col) }

// DisplayCell is a rotated coordinate as rendered: X is the horizontal index
// and Y the vertical index, both zero based from the top-left corner.
type DisplayCell struct {
	X int `json:"xIndex"`
	Y int `json:"yIndex"`
}

// TrayPlacement is one entry of the consumed tray configuration.
type TrayPlacement struct {
	OrderSequence   int              `json:"order_sequence" yaml:"order_sequence"`
	RotationDegrees int              `json:"rotation_degrees" yaml:"rotation_degrees"`
	Trays           []TrayDefinition `json:"trays" yaml:"trays"`
}

// TrayDefinition describes the physical grid mounted at a placement.
type TrayDefinition struct {
	Name                 string   `json:"name" yaml:"name"`
	QtyXAxis             int      `json:"qty_x_axis" yaml:"qty_x_axis"`
	QtyYAxis             int      `json:"qty_y_axis" yaml:"qty_y_axis"`
	WellRelativeDiameter *float64 `json:"well_relative_diameter,omitempty" yaml:"well_relative_diameter,omitempty"`
}

// TraysFromPlacements converts a tray configuration into validated trays in
// declaration order. Each placement mounts its first tray definition.
func TraysFromPlacements(placements []TrayPlacement) ([]Tray, error) {
	out := make([]Tray, 0, len(placements))
	seenSeq := make(map[int]struct{}, len(placements))
	seenName := make(map[string]struct{}, len(placements))
	for _, p := range placements {
		if len(p.Trays) == 0 {
			return nil, fmt.Errorf("%w: placement %d has no tray definition", ErrInvalidTray, p.OrderSequence)
		}
		if _, dup := seenSeq[p.OrderSequence]; dup {
			return nil, fmt.Errorf("%w: duplicate order_sequence %d", ErrInvalidTray, p.OrderSequence)
		}
		rotation, err := ParseRotation(p.RotationDegrees)
		if err != nil {
			return nil, fmt.Errorf("placement %d: %w", p.OrderSequence, err)
		}
		def := p.Trays[0]
		t := Tray{
			SequenceID:   p.OrderSequence,
			Name:         strings.TrimSpace(def.Name),
			Columns:      def.QtyXAxis,
			Rows:         def.QtyYAxis,
			Rotation:     rotation,
			WellDiameter: def.WellRelativeDiameter,
		}
		if err := t.Validate(); err != nil {
			return nil, err
		}
		if _, dup := seenName[t.Name]; dup {
			return nil, fmt.Errorf("%w: duplicate tray name %q", ErrInvalidTray, t.Name)
		}
		seenSeq[p.OrderSequence] = struct{}{}
		seenName[t.Name] = struct{}{}
		out = append(out, t)
	}
	return out, nil
}
