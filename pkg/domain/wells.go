package domain

// WellSummary is the per-well outcome produced by the spreadsheet ingestion
// pipeline. It is looked up by well label and never mutated here.
type WellSummary struct {
	Coordinate              string   `json:"coordinate"`
	TrayName                string   `json:"tray_name"`
	FirstPhaseChangeSeconds *float64 `json:"first_phase_change_seconds,omitempty"`
	FinalState              string   `json:"final_state"`
	Treatment               string   `json:"treatment,omitempty"`
	DilutionFactor          string   `json:"dilution_factor,omitempty"`
}

// IndexWellSummaries keys the summaries recorded for trayName by coordinate.
func IndexWellSummaries(summaries []WellSummary, trayName string) map[string]WellSummary {
	out := make(map[string]WellSummary)
	for _, s := range summaries {
		if s.TrayName != trayName {
			continue
		}
		out[s.Coordinate] = s
	}
	return out
}
