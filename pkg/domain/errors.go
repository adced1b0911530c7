package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors.
var (
	ErrInvalidRotation   = errors.New("invalid rotation")
	ErrInvalidTray       = errors.New("invalid tray")
	ErrUnknownTray       = errors.New("unknown tray")
	ErrIndexOutOfRange   = errors.New("region index out of range")
	ErrUnknownField      = errors.New("unknown region field")
	ErrInvalidFieldValue = errors.New("invalid region field value")
	ErrNotFound          = errors.New("not found")
)

// BoundsError reports a cell outside its tray.
type BoundsError struct {
	Cell Cell
	Tray string
	Rows int
	Cols int
}

func (e BoundsError) Error() string {
	return fmt.Sprintf("cell %s outside tray %s (%d rows x %d columns)", e.Cell, e.Tray, e.Rows, e.Cols)
}

// OverlapError reports a rejected region creation. The store is unchanged.
type OverlapError struct {
	TraySequenceID int
	Requested      Bounds
	Conflict       Region
}

func (e OverlapError) Error() string {
	name := e.Conflict.TrimmedName()
	if name == "" {
		name = "an unnamed region"
	} else {
		name = fmt.Sprintf("region %q", name)
	}
	return fmt.Sprintf("selection rows %d-%d cols %d-%d overlaps %s on tray %d",
		e.Requested.RowMin, e.Requested.RowMax, e.Requested.ColMin, e.Requested.ColMax, name, e.TraySequenceID)
}

// ValidationError is the form-level message blocking a save.
type ValidationError struct {
	Rule    string
	Message string
}

func (e ValidationError) Error() string { return e.Message }
