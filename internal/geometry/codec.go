// Package geometry is the single implementation of tray well addressing: the
// well label codec, the rotation transform between logical and display
// coordinates, and everything derived from them (axis headers, selections,
// result grids, tooltips). Interactive editing, read-only visualization and
// the interchange codec all go through this package.
package geometry

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"traycore/pkg/domain"
)

var labelPattern = regexp.MustCompile(`^[A-Za-z]\d{1,2}$`)

// DefaultLabel is returned by the fail-closed codec paths.
const DefaultLabel = "A1"

// ColumnLetter returns the letter naming a logical column, or false when the
// column has no single-letter name.
func ColumnLetter(col int) (string, bool) {
	if col < 0 || col >= domain.MaxColumns {
		return "", false
	}
	return string(rune('A' + col)), true
}

// RowNumber returns the 1-based number naming a logical row.
func RowNumber(row int) string { return strconv.Itoa(row + 1) }

// FormatLabel encodes c as a well label, failing when c is outside t or lies
// beyond the label codec limits.
func FormatLabel(c domain.Cell, t domain.Tray) (string, error) {
	if !t.Contains(c) {
		return "", domain.BoundsError{Cell: c, Tray: t.Name, Rows: t.Rows, Cols: t.Columns}
	}
	letter, ok := ColumnLetter(c.Col)
	if !ok {
		return "", fmt.Errorf("column %d has no label: %w", c.Col, domain.BoundsError{Cell: c, Tray: t.Name, Rows: t.Rows, Cols: t.Columns})
	}
	if c.Row >= domain.MaxRows {
		return "", fmt.Errorf("row %d has no label: %w", c.Row, domain.BoundsError{Cell: c, Tray: t.Name, Rows: t.Rows, Cols: t.Columns})
	}
	return letter + RowNumber(c.Row), nil
}

// ParseLabel decodes a well label such as "D5" or "d5", failing when the label
// is malformed or addresses a well outside t.
func ParseLabel(label string, t domain.Tray) (domain.Cell, error) {
	label = strings.TrimSpace(label)
	if !labelPattern.MatchString(label) {
		return domain.Cell{}, fmt.Errorf("malformed well label %q", label)
	}
	col := int(strings.ToUpper(label[:1])[0] - 'A')
	n, err := strconv.Atoi(label[1:])
	if err != nil {
		return domain.Cell{}, fmt.Errorf("malformed well label %q: %w", label, err)
	}
	c := domain.Cell{Row: n - 1, Col: col}
	if !t.Contains(c) {
		return domain.Cell{}, fmt.Errorf("well label %q: %w", label, domain.BoundsError{Cell: c, Tray: t.Name, Rows: t.Rows, Cols: t.Columns})
	}
	return c, nil
}

// Geometry binds the codec and rotation transform to one tray. The zero value
// is not usable; construct with New.
type Geometry struct {
	tray domain.Tray
	log  *zap.Logger
}

// Option configures a Geometry.
type Option func(*Geometry)

// WithLogger routes bounds diagnostics to log.
func WithLogger(log *zap.Logger) Option {
	return func(g *Geometry) {
		if log != nil {
			g.log = log
		}
	}
}

// New returns the geometry of t.
func New(t domain.Tray, opts ...Option) Geometry {
	g := Geometry{tray: t, log: zap.NewNop()}
	for _, opt := range opts {
		opt(&g)
	}
	return g
}

// Tray returns the tray descriptor.
func (g Geometry) Tray() domain.Tray { return g.tray }

// CellToLabel encodes c. Out-of-bounds cells yield DefaultLabel and a
// diagnostic so rendering never fails.
func (g Geometry) CellToLabel(c domain.Cell) string {
	label, err := FormatLabel(c, g.tray)
	if err != nil {
		g.log.Warn("well cell out of bounds",
			zap.String("tray", g.tray.Name),
			zap.Int("row", c.Row),
			zap.Int("col", c.Col),
			zap.Error(err))
		return DefaultLabel
	}
	return label
}

// LabelToCell decodes label. Malformed or out-of-range labels collapse to the
// origin cell with a diagnostic.
func (g Geometry) LabelToCell(label string) domain.Cell {
	c, err := ParseLabel(label, g.tray)
	if err != nil {
		g.log.Warn("well label not addressable",
			zap.String("tray", g.tray.Name),
			zap.String("label", label),
			zap.Error(err))
		return domain.Cell{}
	}
	return c
}
