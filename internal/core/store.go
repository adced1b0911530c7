package core

import (
	"fmt"
	"strings"

	"github.com/google/uuid"

	"traycore/pkg/domain"
)

// RegionField names an editable region attribute.
type RegionField string

// Editable region fields.
const (
	FieldName            RegionField = "name"
	FieldColor           RegionField = "color"
	FieldTreatmentID     RegionField = "treatment_id"
	FieldTreatment       RegionField = "treatment"
	FieldDilution        RegionField = "dilution"
	FieldIsBackgroundKey RegionField = "is_background_key"
	FieldTraySequenceID  RegionField = "tray_sequence_id"
)

// ParseRegionField validates a field name received from a caller.
func ParseRegionField(name string) (RegionField, error) {
	f := RegionField(strings.TrimSpace(name))
	switch f {
	case FieldName, FieldColor, FieldTreatmentID, FieldTreatment, FieldDilution, FieldIsBackgroundKey, FieldTraySequenceID:
		return f, nil
	}
	return "", fmt.Errorf("%w: %q", domain.ErrUnknownField, name)
}

// RegionStore is the ordered region assignment of one experiment. It is an
// immutable value: every mutation returns a new store and leaves the receiver
// untouched, so an observer holding a snapshot never sees it change.
type RegionStore struct {
	regions []domain.Region
}

// NewRegionStore copies regions into a store, preserving order.
func NewRegionStore(regions []domain.Region) RegionStore {
	return RegionStore{regions: domain.CloneRegions(regions)}
}

// Len returns the number of regions.
func (s RegionStore) Len() int { return len(s.regions) }

// Regions returns a copy of the regions in insertion order.
func (s RegionStore) Regions() []domain.Region {
	out := domain.CloneRegions(s.regions)
	if out == nil {
		out = []domain.Region{}
	}
	return out
}

// At returns a copy of the region at index i.
func (s RegionStore) At(i int) (domain.Region, bool) {
	if i < 0 || i >= len(s.regions) {
		return domain.Region{}, false
	}
	return s.regions[i].Clone(), true
}

// IndexOf returns the index of the region with the given id, or -1.
func (s RegionStore) IndexOf(id string) int {
	if id == "" {
		return -1
	}
	for i, r := range s.regions {
		if r.ID == id {
			return i
		}
	}
	return -1
}

// OnTray returns copies of the regions assigned to tray seq.
func (s RegionStore) OnTray(seq int) []domain.Region {
	var out []domain.Region
	for _, r := range s.regions {
		if r.OnTray(seq) {
			out = append(out, r.Clone())
		}
	}
	return out
}

// Insert appends r, assigning an id when it has none.
func (s RegionStore) Insert(r domain.Region) RegionStore {
	r = r.Clone()
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	next := s.grow(1)
	next.regions = append(next.regions, r)
	return next
}

// Create builds a region from two corners on tray t and appends it. The color
// is taken from the palette by the current store length.
func (s RegionStore) Create(t domain.Tray, upperLeft, lowerRight domain.Cell) (RegionStore, domain.Region, error) {
	r, err := CreateRegion(t, upperLeft, lowerRight, s.regions, domain.ColorFor(s.Len()))
	if err != nil {
		return s, domain.Region{}, err
	}
	next := s.Insert(r)
	created := next.regions[len(next.regions)-1].Clone()
	return next, created, nil
}

// Merge appends regions that do not overlap any existing region or any
// earlier accepted region on the same tray. Regions without a tray are
// rejected. It returns the new store with the accepted and rejected regions.
func (s RegionStore) Merge(incoming []domain.Region) (RegionStore, []domain.Region, []error) {
	next := s.grow(len(incoming))
	var accepted []domain.Region
	var rejected []error
	for _, r := range incoming {
		if !r.HasTray() {
			rejected = append(rejected, fmt.Errorf("region %q: %w", r.Name, domain.ErrUnknownTray))
			continue
		}
		if conflict, ok := firstOverlap(r.Bounds(), *r.TraySequenceID, next.regions, -1); ok {
			rejected = append(rejected, domain.OverlapError{TraySequenceID: *r.TraySequenceID, Requested: r.Bounds(), Conflict: conflict})
			continue
		}
		next = next.Insert(r)
		accepted = append(accepted, next.regions[len(next.regions)-1].Clone())
	}
	return next, accepted, rejected
}

// Remove drops the region at index i.
func (s RegionStore) Remove(i int) (RegionStore, error) {
	if i < 0 || i >= len(s.regions) {
		return s, fmt.Errorf("%w: %d of %d", domain.ErrIndexOutOfRange, i, len(s.regions))
	}
	next := RegionStore{regions: make([]domain.Region, 0, len(s.regions)-1)}
	for j, r := range s.regions {
		if j == i {
			continue
		}
		next.regions = append(next.regions, r.Clone())
	}
	return next, nil
}

// Update replaces one field of the region at index i. String fields take a
// string, the background flag a bool, the tray a int or *int, and the nested
// treatment a domain.TreatmentDetail (which also sets treatment_id). Moving a
// region to a tray where it would overlap another region is rejected.
func (s RegionStore) Update(i int, field RegionField, value any) (RegionStore, error) {
	if i < 0 || i >= len(s.regions) {
		return s, fmt.Errorf("%w: %d of %d", domain.ErrIndexOutOfRange, i, len(s.regions))
	}
	r := s.regions[i].Clone()
	switch field {
	case FieldName, FieldColor, FieldTreatmentID, FieldDilution:
		v, ok := value.(string)
		if !ok {
			return s, invalidValue(field, value)
		}
		switch field {
		case FieldName:
			r.Name = v
		case FieldColor:
			r.Color = v
		case FieldDilution:
			r.Dilution = v
		case FieldTreatmentID:
			r.TreatmentID = v
			if r.Treatment != nil && r.Treatment.ID != v {
				r.Treatment = nil
			}
		}
	case FieldTreatment:
		switch v := value.(type) {
		case domain.TreatmentDetail:
			r.TreatmentID = v.ID
			detail := v.Clone()
			r.Treatment = &detail
		case *domain.TreatmentDetail:
			if v == nil {
				r.Treatment = nil
				break
			}
			r.TreatmentID = v.ID
			detail := v.Clone()
			r.Treatment = &detail
		default:
			return s, invalidValue(field, value)
		}
	case FieldIsBackgroundKey:
		v, ok := value.(bool)
		if !ok {
			return s, invalidValue(field, value)
		}
		r.IsBackgroundKey = v
	case FieldTraySequenceID:
		var seq int
		switch v := value.(type) {
		case int:
			seq = v
		case *int:
			if v == nil {
				return s, invalidValue(field, value)
			}
			seq = *v
		default:
			return s, invalidValue(field, value)
		}
		if conflict, ok := firstOverlap(r.Bounds(), seq, s.regions, i); ok {
			return s, domain.OverlapError{TraySequenceID: seq, Requested: r.Bounds(), Conflict: conflict}
		}
		r.TraySequenceID = domain.SequenceID(seq)
	default:
		return s, fmt.Errorf("%w: %q", domain.ErrUnknownField, field)
	}
	return s.replace(i, r), nil
}

// ApplyTreatmentToAll sets treatment_id on every region, leaving other fields
// as they are. Several regions may end up sharing one treatment.
func (s RegionStore) ApplyTreatmentToAll(treatmentID string) RegionStore {
	next := RegionStore{regions: make([]domain.Region, len(s.regions))}
	for i, r := range s.regions {
		r = r.Clone()
		r.TreatmentID = treatmentID
		if r.Treatment != nil && r.Treatment.ID != treatmentID {
			r.Treatment = nil
		}
		next.regions[i] = r
	}
	return next
}

// WithIDs assigns ids to regions that have none and reports how many were
// assigned.
func (s RegionStore) WithIDs() (RegionStore, int) {
	assigned := 0
	next := RegionStore{regions: make([]domain.Region, len(s.regions))}
	for i, r := range s.regions {
		r = r.Clone()
		if r.ID == "" {
			r.ID = uuid.NewString()
			assigned++
		}
		next.regions[i] = r
	}
	return next, assigned
}

func (s RegionStore) replace(i int, r domain.Region) RegionStore {
	next := RegionStore{regions: domain.CloneRegions(s.regions)}
	next.regions[i] = r
	return next
}

func (s RegionStore) grow(extra int) RegionStore {
	next := RegionStore{regions: make([]domain.Region, len(s.regions), len(s.regions)+extra)}
	for i, r := range s.regions {
		next.regions[i] = r.Clone()
	}
	return next
}

func invalidValue(field RegionField, value any) error {
	return fmt.Errorf("%w: %s cannot be set to %T", domain.ErrInvalidFieldValue, field, value)
}
