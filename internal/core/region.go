package core

import (
	"traycore/pkg/domain"
)

// CreateRegion builds an unnamed region spanning the two corners on tray t.
// Corners may be given in any drag direction. The request is rejected with a
// BoundsError when either corner lies outside t, or with an OverlapError when
// the box intersects any region in existing that sits on the same tray.
func CreateRegion(t domain.Tray, upperLeft, lowerRight domain.Cell, existing []domain.Region, color string) (domain.Region, error) {
	for _, c := range []domain.Cell{upperLeft, lowerRight} {
		if !t.Contains(c) {
			return domain.Region{}, domain.BoundsError{Cell: c, Tray: t.Name, Rows: t.Rows, Cols: t.Columns}
		}
	}
	box := domain.NormalizeBounds(upperLeft, lowerRight)
	if conflict, ok := firstOverlap(box, t.SequenceID, existing, -1); ok {
		return domain.Region{}, domain.OverlapError{TraySequenceID: t.SequenceID, Requested: box, Conflict: conflict}
	}
	r := domain.Region{
		TraySequenceID: domain.SequenceID(t.SequenceID),
		Color:          color,
	}
	r.SetBounds(box)
	return r, nil
}

// firstOverlap returns the first region on tray seq whose box intersects b.
// The region at index skip is ignored so an edited region never conflicts
// with itself.
func firstOverlap(b domain.Bounds, seq int, regions []domain.Region, skip int) (domain.Region, bool) {
	for i, other := range regions {
		if i == skip || !other.OnTray(seq) {
			continue
		}
		if b.Overlaps(other.Bounds()) {
			return other, true
		}
	}
	return domain.Region{}, false
}
