package geometry

import (
	"fmt"
	"strings"

	"traycore/pkg/domain"
)

// Selection is an interactive drag from Start to End in display coordinates.
type Selection struct {
	Start domain.DisplayCell
	End   domain.DisplayCell
}

// Corners converts a selection into the logical corners passed to region
// creation. ok is false when either end lies outside the rendered grid.
func (g Geometry) Corners(s Selection) (upperLeft, lowerRight domain.Cell, ok bool) {
	a, okA := g.CellAt(s.Start)
	b, okB := g.CellAt(s.End)
	if !okA || !okB {
		return domain.Cell{}, domain.Cell{}, false
	}
	box := domain.NormalizeBounds(a, b)
	return box.UpperLeft(), box.LowerRight(), true
}

// WellView is one rendered well of a read-only result grid.
type WellView struct {
	Display     domain.DisplayCell
	Cell        domain.Cell
	Label       string
	Summary     *domain.WellSummary
	RegionName  string
	RegionColor string
	Background  bool
}

// ResultGrid lays out the tray's wells in display order: grid[y][x]. Summaries
// are looked up by the generated label; regions not on this tray are ignored.
func (g Geometry) ResultGrid(summaries map[string]domain.WellSummary, regions []domain.Region) [][]WellView {
	w, h := g.DisplaySize()
	onTray := make([]domain.Region, 0, len(regions))
	for _, r := range regions {
		if r.OnTray(g.tray.SequenceID) {
			onTray = append(onTray, r)
		}
	}
	grid := make([][]WellView, h)
	for y := 0; y < h; y++ {
		row := make([]WellView, w)
		for x := 0; x < w; x++ {
			d := domain.DisplayCell{X: x, Y: y}
			c := g.FromDisplay(d)
			view := WellView{Display: d, Cell: c, Label: g.CellToLabel(c)}
			if s, ok := summaries[view.Label]; ok {
				view.Summary = &s
			}
			for _, r := range onTray {
				if r.Bounds().Contains(c) {
					view.RegionName = r.TrimmedName()
					view.RegionColor = r.Color
					view.Background = r.IsBackgroundKey
					break
				}
			}
			row[x] = view
		}
		grid[y] = row
	}
	return grid
}

// Tooltip describes the well rendered at d.
func (g Geometry) Tooltip(d domain.DisplayCell, summaries map[string]domain.WellSummary, regions []domain.Region) string {
	c, ok := g.CellAt(d)
	if !ok {
		return DefaultLabel
	}
	label := g.CellToLabel(c)
	parts := []string{label}
	for _, r := range regions {
		if r.OnTray(g.tray.SequenceID) && r.Bounds().Contains(c) {
			name := r.TrimmedName()
			if name == "" {
				name = "unnamed region"
			}
			parts = append(parts, name)
			break
		}
	}
	if s, ok := summaries[label]; ok {
		if s.FinalState != "" {
			parts = append(parts, s.FinalState)
		}
		if s.FirstPhaseChangeSeconds != nil {
			parts = append(parts, fmt.Sprintf("%.0fs", *s.FirstPhaseChangeSeconds))
		}
	}
	return strings.Join(parts, " · ")
}
