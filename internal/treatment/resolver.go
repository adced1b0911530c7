// Package treatment resolves treatment ids into the location, sample and
// treatment names shown next to a region.
package treatment

import (
	"context"
	"fmt"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"traycore/pkg/domain"
)

// DefaultCacheSize bounds the number of cached resolutions.
const DefaultCacheSize = 1024

// Resolution sources, recorded as the metric label.
const (
	SourceCache      = "cache"
	SourceRegion     = "region"
	SourceOptions    = "options"
	SourceLookup     = "lookup"
	SourceUnresolved = "unresolved"
)

// Lookup is the read-only data collaborator. Each call fetches one record by id.
type Lookup interface {
	Treatment(ctx context.Context, id string) (domain.TreatmentRecord, error)
	Sample(ctx context.Context, id string) (domain.SampleRecord, error)
	Location(ctx context.Context, id string) (domain.LocationRecord, error)
}

// Policy controls cache expiry. A zero TTL keeps entries until Clear.
type Policy struct {
	TTL time.Duration
}

// NeverExpire keeps entries until the cache is cleared.
var NeverExpire = Policy{}

type entry struct {
	value  domain.ResolvedTreatment
	stored time.Time
}

// Resolver memoizes treatment resolutions. It is safe for concurrent use.
type Resolver struct {
	cache  *lru.Cache[string, entry]
	group  singleflight.Group
	lookup Lookup

	mu      sync.RWMutex
	options map[string]domain.TreatmentDetail

	policy      Policy
	now         func() time.Time
	log         *zap.Logger
	size        int
	registerer  prometheus.Registerer
	resolutions *prometheus.CounterVec
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithLookup sets the data collaborator used when nothing local is known.
func WithLookup(l Lookup) Option { return func(r *Resolver) { r.lookup = l } }

// WithCacheSize bounds the cache.
func WithCacheSize(n int) Option { return func(r *Resolver) { r.size = n } }

// WithPolicy sets the expiry policy.
func WithPolicy(p Policy) Option { return func(r *Resolver) { r.policy = p } }

// WithClock overrides the time source used for expiry.
func WithClock(now func() time.Time) Option {
	return func(r *Resolver) {
		if now != nil {
			r.now = now
		}
	}
}

// WithLogger routes lookup failures to l.
func WithLogger(l *zap.Logger) Option {
	return func(r *Resolver) {
		if l != nil {
			r.log = l
		}
	}
}

// WithRegisterer registers the resolution counter with reg.
func WithRegisterer(reg prometheus.Registerer) Option {
	return func(r *Resolver) { r.registerer = reg }
}

// New constructs a resolver.
func New(opts ...Option) (*Resolver, error) {
	r := &Resolver{
		options: make(map[string]domain.TreatmentDetail),
		policy:  NeverExpire,
		now:     time.Now,
		log:     zap.NewNop(),
		size:    DefaultCacheSize,
	}
	for _, opt := range opts {
		opt(r)
	}
	cache, err := lru.New[string, entry](r.size)
	if err != nil {
		return nil, fmt.Errorf("treatment cache: %w", err)
	}
	r.cache = cache
	r.resolutions = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "traycore_treatment_resolutions_total",
		Help: "Treatment resolutions by the source that answered them.",
	}, []string{"source"})
	if r.registerer != nil {
		if err := r.registerer.Register(r.resolutions); err != nil {
			return nil, fmt.Errorf("register treatment metrics: %w", err)
		}
	}
	return r, nil
}

// Resolutions exposes the resolution counter.
func (r *Resolver) Resolutions() *prometheus.CounterVec { return r.resolutions }

// SetOptions replaces the previously fetched treatment option list.
func (r *Resolver) SetOptions(options []domain.TreatmentDetail) {
	next := make(map[string]domain.TreatmentDetail, len(options))
	for _, o := range options {
		if o.ID != "" {
			next[o.ID] = o.Clone()
		}
	}
	r.mu.Lock()
	r.options = next
	r.mu.Unlock()
}

// Clear drops every cached resolution.
func (r *Resolver) Clear() { r.cache.Purge() }

// Len returns the number of cached resolutions.
func (r *Resolver) Len() int { return r.cache.Len() }

// Resolve projects treatmentID into its display hierarchy. It consults, in
// order, the cache, any region already carrying the nested treatment, the
// option list, and finally the lookup chain. Failures never propagate: the
// unknown levels are left empty. Only fully resolved values are cached.
func (r *Resolver) Resolve(ctx context.Context, treatmentID string, regions []domain.Region) domain.ResolvedTreatment {
	if treatmentID == "" {
		return r.answer(SourceUnresolved, domain.Unresolved(treatmentID))
	}
	if e, ok := r.cache.Get(treatmentID); ok {
		if r.policy.TTL <= 0 || r.now().Sub(e.stored) < r.policy.TTL {
			return r.answer(SourceCache, e.value)
		}
		r.cache.Remove(treatmentID)
	}
	for _, region := range regions {
		if region.Treatment != nil && region.Treatment.ID == treatmentID {
			return r.answer(SourceRegion, r.store(domain.ProjectTreatment(*region.Treatment)))
		}
	}
	r.mu.RLock()
	option, ok := r.options[treatmentID]
	r.mu.RUnlock()
	if ok {
		return r.answer(SourceOptions, r.store(domain.ProjectTreatment(option)))
	}
	if r.lookup == nil {
		return r.answer(SourceUnresolved, domain.Unresolved(treatmentID))
	}

	v, _, _ := r.group.Do(treatmentID, func() (any, error) {
		return r.fetch(ctx, treatmentID), nil
	})
	resolved := v.(domain.ResolvedTreatment)
	if resolved.Status == domain.ResolutionUnresolved {
		return r.answer(SourceUnresolved, resolved)
	}
	if ctx.Err() == nil {
		r.store(resolved)
	}
	return r.answer(SourceLookup, resolved)
}

// fetch walks treatment, sample and location in sequence, stopping at the
// first failure.
func (r *Resolver) fetch(ctx context.Context, id string) domain.ResolvedTreatment {
	out := domain.Unresolved(id)
	t, err := r.lookup.Treatment(ctx, id)
	if err != nil {
		r.log.Warn("treatment lookup failed", zap.String("treatment_id", id), zap.Error(err))
		return out
	}
	out.TreatmentName = t.Name
	if t.SampleID == "" {
		return out.WithStatus()
	}
	s, err := r.lookup.Sample(ctx, t.SampleID)
	if err != nil {
		r.log.Warn("sample lookup failed", zap.String("treatment_id", id), zap.String("sample_id", t.SampleID), zap.Error(err))
		return out.WithStatus()
	}
	out.SampleName = s.Name
	out.SampleType = s.Type
	if s.LocationID == "" {
		return out.WithStatus()
	}
	loc, err := r.lookup.Location(ctx, s.LocationID)
	if err != nil {
		r.log.Warn("location lookup failed", zap.String("treatment_id", id), zap.String("location_id", s.LocationID), zap.Error(err))
		return out.WithStatus()
	}
	out.LocationName = loc.Name
	return out.WithStatus()
}

func (r *Resolver) store(v domain.ResolvedTreatment) domain.ResolvedTreatment {
	if v.Status == domain.ResolutionResolved {
		r.cache.Add(v.TreatmentID, entry{value: v, stored: r.now()})
	}
	return v
}

func (r *Resolver) answer(source string, v domain.ResolvedTreatment) domain.ResolvedTreatment {
	r.resolutions.WithLabelValues(source).Inc()
	return v
}
