package core

import (
	"context"
	"fmt"

	"traycore/pkg/domain"
)

// NewTrayBoundsRule warns about regions that reference an unknown tray or
// extend past their tray's dimensions. It never blocks a save.
func NewTrayBoundsRule() domain.Rule {
	return trayBoundsRule{}
}

type trayBoundsRule struct{}

func (trayBoundsRule) Name() string { return "tray_bounds" }

func (trayBoundsRule) Evaluate(_ context.Context, view domain.RuleView) (domain.Result, error) {
	res := domain.Result{}
	trays := view.Trays()
	for i, r := range view.Regions() {
		if !r.HasTray() {
			res.Violations = append(res.Violations, regionViolation("tray_bounds", domain.SeverityWarn,
				fmt.Sprintf("region %q has no tray", r.TrimmedName()), i, r))
			continue
		}
		t, ok := domain.FindTrayBySequence(trays, *r.TraySequenceID)
		if !ok {
			res.Violations = append(res.Violations, regionViolation("tray_bounds", domain.SeverityWarn,
				fmt.Sprintf("region %q references unknown tray %d", r.TrimmedName(), *r.TraySequenceID), i, r))
			continue
		}
		if !t.Fits(r.Bounds()) {
			res.Violations = append(res.Violations, regionViolation("tray_bounds", domain.SeverityWarn,
				fmt.Sprintf("region %q exceeds tray %s (%d rows x %d columns)", r.TrimmedName(), t.Name, t.Rows, t.Columns), i, r))
		}
	}
	return res, nil
}
