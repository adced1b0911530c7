package domain

// TreatmentRecord is the backend treatment returned by a fetch-by-id lookup.
type TreatmentRecord struct {
	ID       string `json:"id" yaml:"id"`
	Name     string `json:"name" yaml:"name"`
	SampleID string `json:"sample_id" yaml:"sample_id"`
}

// SampleRecord is the backend sample a treatment is applied to.
type SampleRecord struct {
	ID         string `json:"id" yaml:"id"`
	Name       string `json:"name" yaml:"name"`
	Type       string `json:"type" yaml:"type"`
	LocationID string `json:"location_id" yaml:"location_id"`
}

// LocationRecord is the sampling location a sample was collected at.
type LocationRecord struct {
	ID   string `json:"id" yaml:"id"`
	Name string `json:"name" yaml:"name"`
}

// TreatmentDetail is a treatment with its sample and location already nested,
// as carried by loaded regions and by previously fetched option lists.
type TreatmentDetail struct {
	ID     string        `json:"id"`
	Name   string        `json:"name"`
	Sample *SampleDetail `json:"sample,omitempty"`
}

// SampleDetail nests a sample's location.
type SampleDetail struct {
	ID       string          `json:"id"`
	Name     string          `json:"name"`
	Type     string          `json:"type,omitempty"`
	Location *LocationRecord `json:"location,omitempty"`
}

// Clone returns a deep copy.
func (t TreatmentDetail) Clone() TreatmentDetail {
	cp := t
	if t.Sample != nil {
		s := *t.Sample
		if t.Sample.Location != nil {
			loc := *t.Sample.Location
			s.Location = &loc
		}
		cp.Sample = &s
	}
	return cp
}

// ResolutionStatus tags how much of a ResolvedTreatment hierarchy is known.
type ResolutionStatus string

// Resolution states.
const (
	ResolutionUnresolved ResolutionStatus = "unresolved"
	ResolutionPartial    ResolutionStatus = "partial"
	ResolutionResolved   ResolutionStatus = "resolved"
)

// ResolvedTreatment is the three level display projection of a treatment id
// (location, sample, treatment). Unknown levels are empty strings.
type ResolvedTreatment struct {
	TreatmentID   string           `json:"treatment_id"`
	LocationName  string           `json:"location_name"`
	SampleName    string           `json:"sample_name"`
	TreatmentName string           `json:"treatment_name"`
	SampleType    string           `json:"sample_type"`
	Status        ResolutionStatus `json:"status"`
}

// Unresolved returns the empty projection for id.
func Unresolved(id string) ResolvedTreatment {
	return ResolvedTreatment{TreatmentID: id, Status: ResolutionUnresolved}
}

// ProjectTreatment flattens a nested treatment detail.
func ProjectTreatment(t TreatmentDetail) ResolvedTreatment {
	out := ResolvedTreatment{TreatmentID: t.ID, TreatmentName: t.Name}
	if t.Sample != nil {
		out.SampleName = t.Sample.Name
		out.SampleType = t.Sample.Type
		if t.Sample.Location != nil {
			out.LocationName = t.Sample.Location.Name
		}
	}
	out.Status = out.classify()
	return out
}

// WithStatus recomputes Status from the populated fields.
func (r ResolvedTreatment) WithStatus() ResolvedTreatment {
	r.Status = r.classify()
	return r
}

func (r ResolvedTreatment) classify() ResolutionStatus {
	switch {
	case r.TreatmentName != "" && r.SampleName != "" && r.LocationName != "":
		return ResolutionResolved
	case r.TreatmentName == "" && r.SampleName == "" && r.LocationName == "":
		return ResolutionUnresolved
	default:
		return ResolutionPartial
	}
}
