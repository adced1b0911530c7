package geometry

import "traycore/pkg/domain"

// Axes holds the rendered header labels. X[i] heads display column i and
// Y[j] heads display row j.
type Axes struct {
	X         []string
	Y         []string
	XIsColumn bool
}

// Axes derives header labels through FromDisplay, so the letters land on
// whichever edge the logical columns are rendered along.
func (g Geometry) Axes() Axes {
	w, h := g.DisplaySize()
	xIsCol := XIsColumn(g.tray.Rotation)
	axes := Axes{X: make([]string, w), Y: make([]string, h), XIsColumn: xIsCol}
	for x := 0; x < w; x++ {
		axes.X[x] = g.axisLabel(g.FromDisplay(domain.DisplayCell{X: x}), xIsCol)
	}
	for y := 0; y < h; y++ {
		axes.Y[y] = g.axisLabel(g.FromDisplay(domain.DisplayCell{Y: y}), !xIsCol)
	}
	return axes
}

func (g Geometry) axisLabel(c domain.Cell, column bool) string {
	if !column {
		return RowNumber(c.Row)
	}
	letter, ok := ColumnLetter(c.Col)
	if !ok {
		return "?"
	}
	return letter
}
