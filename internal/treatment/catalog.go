package treatment

import (
	"context"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"traycore/pkg/domain"
)

// Catalog is a static Lookup loaded from a YAML file:
//
//	treatments:
//	  - {id: t1, name: Heat, sample_id: s1}
//	samples:
//	  - {id: s1, name: Filter 3, type: filter, location_id: l1}
//	locations:
//	  - {id: l1, name: Station A}
type Catalog struct {
	treatments map[string]domain.TreatmentRecord
	samples    map[string]domain.SampleRecord
	locations  map[string]domain.LocationRecord
}

type catalogFile struct {
	Treatments []domain.TreatmentRecord `yaml:"treatments"`
	Samples    []domain.SampleRecord    `yaml:"samples"`
	Locations  []domain.LocationRecord  `yaml:"locations"`
}

// LoadCatalog decodes a catalog document.
func LoadCatalog(r io.Reader) (*Catalog, error) {
	var f catalogFile
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil && err != io.EOF {
		return nil, fmt.Errorf("decode catalog: %w", err)
	}
	c := &Catalog{
		treatments: make(map[string]domain.TreatmentRecord, len(f.Treatments)),
		samples:    make(map[string]domain.SampleRecord, len(f.Samples)),
		locations:  make(map[string]domain.LocationRecord, len(f.Locations)),
	}
	for _, t := range f.Treatments {
		if t.ID == "" {
			return nil, fmt.Errorf("catalog treatment %q has no id", t.Name)
		}
		c.treatments[t.ID] = t
	}
	for _, s := range f.Samples {
		if s.ID == "" {
			return nil, fmt.Errorf("catalog sample %q has no id", s.Name)
		}
		c.samples[s.ID] = s
	}
	for _, l := range f.Locations {
		if l.ID == "" {
			return nil, fmt.Errorf("catalog location %q has no id", l.Name)
		}
		c.locations[l.ID] = l
	}
	return c, nil
}

// ReadCatalogFile loads a catalog from path.
func ReadCatalogFile(path string) (*Catalog, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()
	return LoadCatalog(f)
}

// Treatment implements Lookup.
func (c *Catalog) Treatment(ctx context.Context, id string) (domain.TreatmentRecord, error) {
	if err := ctx.Err(); err != nil {
		return domain.TreatmentRecord{}, err
	}
	t, ok := c.treatments[id]
	if !ok {
		return domain.TreatmentRecord{}, fmt.Errorf("treatment %s: %w", id, domain.ErrNotFound)
	}
	return t, nil
}

// Sample implements Lookup.
func (c *Catalog) Sample(ctx context.Context, id string) (domain.SampleRecord, error) {
	if err := ctx.Err(); err != nil {
		return domain.SampleRecord{}, err
	}
	s, ok := c.samples[id]
	if !ok {
		return domain.SampleRecord{}, fmt.Errorf("sample %s: %w", id, domain.ErrNotFound)
	}
	return s, nil
}

// Location implements Lookup.
func (c *Catalog) Location(ctx context.Context, id string) (domain.LocationRecord, error) {
	if err := ctx.Err(); err != nil {
		return domain.LocationRecord{}, err
	}
	l, ok := c.locations[id]
	if !ok {
		return domain.LocationRecord{}, fmt.Errorf("location %s: %w", id, domain.ErrNotFound)
	}
	return l, nil
}
