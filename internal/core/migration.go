package core

import "traycore/pkg/domain"

// MigrateLegacy assigns a tray to every region that has none. Candidate trays
// are tried in declaration order and the first whose dimensions contain the
// region's box wins; when none fits, the first declared tray is used. Regions
// already carrying a tray are never touched, so running the migration again
// is a no-op. It returns the migrated store and the number of regions changed.
func (s RegionStore) MigrateLegacy(trays []domain.Tray) (RegionStore, int) {
	if len(trays) == 0 {
		return s, 0
	}
	migrated := 0
	next := RegionStore{regions: make([]domain.Region, len(s.regions))}
	for i, r := range s.regions {
		r = r.Clone()
		if !r.HasTray() {
			r.TraySequenceID = domain.SequenceID(legacyTray(r.Bounds(), trays).SequenceID)
			migrated++
		}
		next.regions[i] = r
	}
	if migrated == 0 {
		return s, 0
	}
	return next, migrated
}

func legacyTray(b domain.Bounds, trays []domain.Tray) domain.Tray {
	for _, t := range trays {
		if b.RowMax < t.Rows && b.ColMax < t.Columns {
			return t
		}
	}
	return trays[0]
}
