package geometry

import (
	"go.uber.org/zap"

	"traycore/pkg/domain"
)

// ToDisplay maps a logical cell to its rendered position for a tray mounted
// at rotation r. The mapping is a permutation of the tray's wells.
func ToDisplay(c domain.Cell, r domain.Rotation, t domain.Tray) domain.DisplayCell {
	switch r {
	case domain.Rotation90:
		return domain.DisplayCell{X: c.Row, Y: t.Columns - 1 - c.Col}
	case domain.Rotation180:
		return domain.DisplayCell{X: t.Columns - 1 - c.Col, Y: t.Rows - 1 - c.Row}
	case domain.Rotation270:
		return domain.DisplayCell{X: t.Rows - 1 - c.Row, Y: c.Col}
	default:
		return domain.DisplayCell{X: c.Col, Y: c.Row}
	}
}

// FromDisplay is the exact inverse of ToDisplay for the same rotation and tray.
func FromDisplay(d domain.DisplayCell, r domain.Rotation, t domain.Tray) domain.Cell {
	switch r {
	case domain.Rotation90:
		return domain.Cell{Row: d.X, Col: t.Columns - 1 - d.Y}
	case domain.Rotation180:
		return domain.Cell{Row: t.Rows - 1 - d.Y, Col: t.Columns - 1 - d.X}
	case domain.Rotation270:
		return domain.Cell{Row: t.Rows - 1 - d.X, Col: d.Y}
	default:
		return domain.Cell{Row: d.Y, Col: d.X}
	}
}

// DisplaySize returns the rendered grid width and height.
func DisplaySize(r domain.Rotation, t domain.Tray) (width, height int) {
	if quarterTurn(r) {
		return t.Rows, t.Columns
	}
	return t.Columns, t.Rows
}

// DisplayTray describes the rendered grid of t as a tray of its own, mounted
// at the inverse rotation. Applying ToDisplay with it undoes ToDisplay on t.
func DisplayTray(t domain.Tray) domain.Tray {
	w, h := DisplaySize(t.Rotation, t)
	return domain.Tray{
		SequenceID: t.SequenceID,
		Name:       t.Name,
		Columns:    w,
		Rows:       h,
		Rotation:   t.Rotation.Inverse(),
	}
}

// XIsColumn reports whether the display x axis runs along logical columns.
func XIsColumn(r domain.Rotation) bool { return !quarterTurn(r) }

func quarterTurn(r domain.Rotation) bool {
	return r == domain.Rotation90 || r == domain.Rotation270
}

// ToDisplay maps c using the tray's mounting rotation.
func (g Geometry) ToDisplay(c domain.Cell) domain.DisplayCell {
	return ToDisplay(c, g.tray.Rotation, g.tray)
}

// FromDisplay maps a rendered position back to its logical cell.
func (g Geometry) FromDisplay(d domain.DisplayCell) domain.Cell {
	return FromDisplay(d, g.tray.Rotation, g.tray)
}

// DisplaySize returns the rendered grid width and height.
func (g Geometry) DisplaySize() (width, height int) {
	return DisplaySize(g.tray.Rotation, g.tray)
}

// ContainsDisplay reports whether d is a rendered position of the tray.
func (g Geometry) ContainsDisplay(d domain.DisplayCell) bool {
	w, h := g.DisplaySize()
	return d.X >= 0 && d.X < w && d.Y >= 0 && d.Y < h
}

// CellAt resolves a rendered position, failing closed to the origin cell.
func (g Geometry) CellAt(d domain.DisplayCell) (domain.Cell, bool) {
	if !g.ContainsDisplay(d) {
		g.log.Warn("display position out of bounds",
			zap.String("tray", g.tray.Name),
			zap.Int("x", d.X),
			zap.Int("y", d.Y))
		return domain.Cell{}, false
	}
	return g.FromDisplay(d), true
}

// LabelAt returns the well label rendered at d.
func (g Geometry) LabelAt(d domain.DisplayCell) string {
	c, ok := g.CellAt(d)
	if !ok {
		return DefaultLabel
	}
	return g.CellToLabel(c)
}

// DisplayBounds returns the rendered rectangle covered by a logical box as
// its top-left and bottom-right display positions.
func (g Geometry) DisplayBounds(b domain.Bounds) (topLeft, bottomRight domain.DisplayCell) {
	a := g.ToDisplay(b.UpperLeft())
	z := g.ToDisplay(b.LowerRight())
	topLeft = domain.DisplayCell{X: min(a.X, z.X), Y: min(a.Y, z.Y)}
	bottomRight = domain.DisplayCell{X: max(a.X, z.X), Y: max(a.Y, z.Y)}
	return topLeft, bottomRight
}

// DisplayCorners returns the logical cells rendered at the top-left and
// bottom-right corners of a logical box.
func (g Geometry) DisplayCorners(b domain.Bounds) (upperLeft, lowerRight domain.Cell) {
	tl, br := g.DisplayBounds(b)
	return g.FromDisplay(tl), g.FromDisplay(br)
}
