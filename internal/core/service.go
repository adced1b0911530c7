package core

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"traycore/internal/blob"
	"traycore/internal/geometry"
	"traycore/internal/infra/persistence/memory"
	"traycore/internal/interchange"
	"traycore/internal/treatment"
	"traycore/pkg/domain"
)

// DefaultResolveConcurrency bounds in-flight treatment resolutions per call.
const DefaultResolveConcurrency = 4

// ErrSelectionOutsideTray is returned when a drag selection ends outside the
// rendered grid.
var ErrSelectionOutsideTray = errors.New("selection outside tray")

// ErrSessionClosed is returned by operations on a closed service.
var ErrSessionClosed = errors.New("session closed")

// TreatmentResolver projects treatment ids for display. *treatment.Resolver
// satisfies it.
type TreatmentResolver interface {
	Resolve(ctx context.Context, treatmentID string, regions []domain.Region) domain.ResolvedTreatment
	Clear()
}

// Snapshot is the state of the session after one mutation. Observers receive
// a fresh copy; nothing in it is shared with the session.
type Snapshot struct {
	ExperimentID string
	Revision     uint64
	Action       domain.Action
	Regions      []domain.Region
	Trays        []domain.Tray
	At           time.Time
}

// LoadReport describes the fixes applied to a region array on load.
type LoadReport struct {
	Migrated    int
	IDsAssigned int
}

// ImportReport describes the outcome of an import.
type ImportReport struct {
	Imported []domain.Region
	Skipped  []interchange.Skipped
	Rejected []error
}

// ServiceOption configures optional collaborators on a Service.
type ServiceOption func(*Service)

// WithClock overrides the time source used for snapshot and save stamps.
func WithClock(clock Clock) ServiceOption {
	return func(s *Service) {
		if clock != nil {
			s.clock = clock
		}
	}
}

// WithLogger sets the logger used for operation diagnostics.
func WithLogger(logger Logger) ServiceOption {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithMetricsRecorder records per-operation outcome and latency.
func WithMetricsRecorder(m MetricsRecorder) ServiceOption {
	return func(s *Service) {
		if m != nil {
			s.metrics = m
		}
	}
}

// WithTracer opens a span per operation.
func WithTracer(t Tracer) ServiceOption {
	return func(s *Service) {
		if t != nil {
			s.tracer = t
		}
	}
}

// WithAssignmentStore sets the backend used by Load and Save. The service
// does not close it.
func WithAssignmentStore(store domain.AssignmentStore) ServiceOption {
	return func(s *Service) {
		if store != nil {
			s.assignments = store
		}
	}
}

// WithDocumentStore sets the blob store holding interchange documents.
func WithDocumentStore(store blob.Store) ServiceOption {
	return func(s *Service) {
		if store != nil {
			s.documents = store
		}
	}
}

// WithRulesEngine replaces the default validation rules.
func WithRulesEngine(engine *domain.RulesEngine) ServiceOption {
	return func(s *Service) {
		if engine != nil {
			s.engine = engine
		}
	}
}

// WithResolver sets the treatment resolver used for display enrichment.
func WithResolver(r TreatmentResolver) ServiceOption {
	return func(s *Service) {
		if r != nil {
			s.resolver = r
		}
	}
}

// WithCodec sets the interchange codec.
func WithCodec(c *interchange.Codec) ServiceOption {
	return func(s *Service) {
		if c != nil {
			s.codec = c
		}
	}
}

// WithResolveConcurrency bounds concurrent lookups started by ResolveTreatments.
func WithResolveConcurrency(n int) ServiceOption {
	return func(s *Service) {
		if n > 0 {
			s.resolveLimit = n
		}
	}
}

type display struct {
	treatmentID string
	value       domain.ResolvedTreatment
}

// Service is the editing session of one experiment's region assignment.
// Mutations run to completion under a lock and publish a new Snapshot; only
// treatment resolution runs in the background.
type Service struct {
	mu           sync.Mutex
	experimentID string
	trays        []domain.Tray
	store        RegionStore
	revision     uint64
	observers    map[int]func(Snapshot)
	nextObserver int
	displays     map[string]display
	closed       bool

	assignments  domain.AssignmentStore
	documents    blob.Store
	engine       *domain.RulesEngine
	resolver     TreatmentResolver
	codec        *interchange.Codec
	resolveLimit int

	clock   Clock
	logger  Logger
	metrics MetricsRecorder
	tracer  Tracer

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewService constructs a session over the given tray configuration. Trays
// must be valid and carry distinct sequence ids.
func NewService(trays []domain.Tray, opts ...ServiceOption) (*Service, error) {
	seen := make(map[int]bool, len(trays))
	for _, t := range trays {
		if err := t.Validate(); err != nil {
			return nil, err
		}
		if seen[t.SequenceID] {
			return nil, fmt.Errorf("%w: duplicate sequence id %d", domain.ErrInvalidTray, t.SequenceID)
		}
		seen[t.SequenceID] = true
	}
	s := &Service{
		trays:        append([]domain.Tray(nil), trays...),
		observers:    make(map[int]func(Snapshot)),
		displays:     make(map[string]display),
		engine:       NewDefaultRulesEngine(),
		codec:        interchange.New(),
		resolveLimit: DefaultResolveConcurrency,
		clock:        systemClock{},
		logger:       noopLogger{},
		metrics:      noopMetrics{},
		tracer:       noopTracer{},
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.assignments == nil {
		s.assignments = memory.NewStore()
	}
	if s.documents == nil {
		s.documents = blob.NewMemory()
	}
	if s.resolver == nil {
		r, err := treatment.New()
		if err != nil {
			return nil, err
		}
		s.resolver = r
	}
	s.ctx, s.cancel = context.WithCancel(context.Background())
	return s, nil
}

// Trays returns the tray configuration in declaration order.
func (s *Service) Trays() []domain.Tray { return append([]domain.Tray(nil), s.trays...) }

// Tray returns the tray with the given sequence id.
func (s *Service) Tray(seq int) (domain.Tray, error) {
	t, ok := domain.FindTrayBySequence(s.trays, seq)
	if !ok {
		return domain.Tray{}, fmt.Errorf("%w: sequence %d", domain.ErrUnknownTray, seq)
	}
	return t, nil
}

// Geometry returns the shared coordinate and rotation view of a tray.
func (s *Service) Geometry(seq int) (geometry.Geometry, error) {
	t, err := s.Tray(seq)
	if err != nil {
		return geometry.Geometry{}, err
	}
	return geometry.New(t), nil
}

// Subscribe registers fn to receive every snapshot published after a
// mutation. The returned function removes the subscription.
func (s *Service) Subscribe(fn func(Snapshot)) func() {
	s.mu.Lock()
	id := s.nextObserver
	s.nextObserver++
	s.observers[id] = fn
	s.mu.Unlock()
	return func() {
		s.mu.Lock()
		delete(s.observers, id)
		s.mu.Unlock()
	}
}

// Snapshot returns the current state.
func (s *Service) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked("")
}

// Open replaces the session state with regions for experimentID. Legacy
// regions without a tray are migrated once and every region is given an id.
// Cached treatment resolutions are cleared.
func (s *Service) Open(ctx context.Context, experimentID string, regions []domain.Region) (Snapshot, LoadReport, error) {
	var (
		snap   Snapshot
		report LoadReport
	)
	err := s.run(ctx, "open", func(context.Context) error {
		var err error
		snap, report, err = s.open(experimentID, regions)
		return err
	})
	return snap, report, err
}

// Load reads the experiment's assignment from the assignment store and opens
// it. An experiment that was never saved opens empty.
func (s *Service) Load(ctx context.Context, experimentID string) (Snapshot, LoadReport, error) {
	var (
		snap   Snapshot
		report LoadReport
	)
	err := s.run(ctx, "load", func(ctx context.Context) error {
		if experimentID == "" {
			return fmt.Errorf("load requires an experiment id")
		}
		a, err := s.assignments.LoadAssignment(ctx, experimentID)
		if err != nil && !errors.Is(err, domain.ErrNotFound) {
			return fmt.Errorf("load assignment: %w", err)
		}
		snap, report, err = s.open(experimentID, a.Regions)
		return err
	})
	return snap, report, err
}

func (s *Service) open(experimentID string, regions []domain.Region) (Snapshot, LoadReport, error) {
	s.mu.Lock()
	closed := s.closed
	s.mu.Unlock()
	if closed {
		return Snapshot{}, LoadReport{}, ErrSessionClosed
	}
	store := NewRegionStore(regions)
	store, migrated := store.MigrateLegacy(s.trays)
	store, assigned := store.WithIDs()
	report := LoadReport{Migrated: migrated, IDsAssigned: assigned}
	if migrated > 0 {
		s.logger.Info("legacy regions migrated", "experiment", experimentID, "count", migrated)
	}
	s.resolver.Clear()

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return Snapshot{}, LoadReport{}, ErrSessionClosed
	}
	s.experimentID = experimentID
	s.displays = make(map[string]display)
	snap, observers := s.commitLocked(store, domain.ActionLoad)
	s.mu.Unlock()
	notify(observers, snap)
	return snap, report, nil
}

// CreateRegion adds a region between two logical corners on tray seq. The
// store is unchanged when the box leaves the tray or overlaps a region on the
// same tray.
func (s *Service) CreateRegion(ctx context.Context, seq int, upperLeft, lowerRight domain.Cell) (domain.Region, Snapshot, error) {
	var (
		created domain.Region
		snap    Snapshot
	)
	err := s.run(ctx, "create_region", func(context.Context) error {
		t, err := s.Tray(seq)
		if err != nil {
			return err
		}
		return s.mutate(domain.ActionCreate, &snap, func(store RegionStore) (RegionStore, error) {
			next, r, err := store.Create(t, upperLeft, lowerRight)
			created = r
			return next, err
		})
	})
	return created, snap, err
}

// CreateRegionFromSelection converts a drag selection in display coordinates
// into logical corners and creates the region.
func (s *Service) CreateRegionFromSelection(ctx context.Context, seq int, sel geometry.Selection) (domain.Region, Snapshot, error) {
	g, err := s.Geometry(seq)
	if err != nil {
		return domain.Region{}, s.Snapshot(), err
	}
	upperLeft, lowerRight, ok := g.Corners(sel)
	if !ok {
		return domain.Region{}, s.Snapshot(), fmt.Errorf("%w: %+v to %+v on %s", ErrSelectionOutsideTray, sel.Start, sel.End, g.Tray().Name)
	}
	return s.CreateRegion(ctx, seq, upperLeft, lowerRight)
}

// RemoveRegion drops the region at index.
func (s *Service) RemoveRegion(ctx context.Context, index int) (Snapshot, error) {
	var snap Snapshot
	err := s.run(ctx, "remove_region", func(context.Context) error {
		return s.mutate(domain.ActionDelete, &snap, func(store RegionStore) (RegionStore, error) {
			return store.Remove(index)
		})
	})
	return snap, err
}

// UpdateRegion sets one field of the region at index. Moving a region to a
// sequence id with no configured tray fails with domain.ErrUnknownTray.
func (s *Service) UpdateRegion(ctx context.Context, index int, field RegionField, value any) (Snapshot, error) {
	var snap Snapshot
	err := s.run(ctx, "update_region", func(context.Context) error {
		if seq, ok := traySequenceValue(field, value); ok {
			if _, err := s.Tray(seq); err != nil {
				return err
			}
		}
		return s.mutate(domain.ActionUpdate, &snap, func(store RegionStore) (RegionStore, error) {
			return store.Update(index, field, value)
		})
	})
	return snap, err
}

// traySequenceValue extracts the target sequence id of a tray move. Values of
// other types are left to RegionStore.Update to reject.
func traySequenceValue(field RegionField, value any) (int, bool) {
	if field != FieldTraySequenceID {
		return 0, false
	}
	switch v := value.(type) {
	case int:
		return v, true
	case *int:
		if v != nil {
			return *v, true
		}
	}
	return 0, false
}

// ApplyTreatmentToAll binds every region to treatmentID.
func (s *Service) ApplyTreatmentToAll(ctx context.Context, treatmentID string) (Snapshot, error) {
	var snap Snapshot
	err := s.run(ctx, "apply_treatment", func(context.Context) error {
		return s.mutate(domain.ActionApply, &snap, func(store RegionStore) (RegionStore, error) {
			return store.ApplyTreatmentToAll(treatmentID), nil
		})
	})
	return snap, err
}

// Validate evaluates the rules engine against the current regions. The
// returned result carries blocking violations and warnings; use Result.Err
// for the form-level message.
func (s *Service) Validate(ctx context.Context) (domain.Result, error) {
	var res domain.Result
	err := s.run(ctx, "validate", func(ctx context.Context) error {
		var err error
		res, err = s.evaluate(ctx)
		return err
	})
	return res, err
}

func (s *Service) evaluate(ctx context.Context) (domain.Result, error) {
	s.mu.Lock()
	regions := s.store.Regions()
	s.mu.Unlock()
	res, err := s.engine.Evaluate(ctx, NewRuleView(regions, s.trays))
	if err != nil {
		return domain.Result{}, fmt.Errorf("evaluate rules: %w", err)
	}
	return res, nil
}

// Save validates the regions and persists them. A blocking violation is
// returned as a ValidationError and nothing is written.
func (s *Service) Save(ctx context.Context) (domain.Result, error) {
	var res domain.Result
	err := s.run(ctx, "save", func(ctx context.Context) error {
		var err error
		res, err = s.evaluate(ctx)
		if err != nil {
			return err
		}
		if err := res.Err(); err != nil {
			return err
		}
		s.mu.Lock()
		a := domain.Assignment{ExperimentID: s.experimentID, Regions: s.store.Regions(), UpdatedAt: s.clock.Now()}
		s.mu.Unlock()
		if a.ExperimentID == "" {
			return fmt.Errorf("save requires an opened experiment")
		}
		if err := s.assignments.SaveAssignment(ctx, a); err != nil {
			return fmt.Errorf("save assignment: %w", err)
		}
		return nil
	})
	return res, err
}

// ImportData parses an interchange document and appends the recovered
// regions. Entries that cannot be parsed, name an unknown tray, or overlap an
// existing or earlier imported region are skipped. When nothing survives the
// import is aborted with interchange.ErrNothingImported and the store is
// unchanged.
func (s *Service) ImportData(ctx context.Context, data []byte) (ImportReport, Snapshot, error) {
	var (
		report ImportReport
		snap   Snapshot
	)
	err := s.run(ctx, "import", func(context.Context) error {
		s.mu.Lock()
		start := s.store.Len()
		s.mu.Unlock()
		parsed, err := s.codec.Import(data, s.trays, start)
		report.Skipped = parsed.Skipped
		if err != nil {
			snap = s.Snapshot()
			return err
		}
		return s.mutate(domain.ActionImport, &snap, func(store RegionStore) (RegionStore, error) {
			next, accepted, rejected := store.Merge(parsed.Regions)
			report.Imported, report.Rejected = accepted, rejected
			for _, r := range rejected {
				s.logger.Warn("imported region rejected", "error", r)
			}
			if len(accepted) == 0 {
				return store, interchange.ErrNothingImported
			}
			return next, nil
		})
	})
	return report, snap, err
}

// ImportDocument reads key from the document store and imports it.
func (s *Service) ImportDocument(ctx context.Context, key string) (ImportReport, Snapshot, error) {
	if err := interchange.CheckExtension(key); err != nil {
		return ImportReport{}, s.Snapshot(), err
	}
	data, err := interchange.ReadDocument(ctx, s.documents, key)
	if err != nil {
		return ImportReport{}, s.Snapshot(), err
	}
	return s.ImportData(ctx, data)
}

// ExportData renders the regions as an interchange document.
func (s *Service) ExportData(ctx context.Context) ([]byte, []interchange.Skipped, error) {
	var (
		data    []byte
		skipped []interchange.Skipped
	)
	err := s.run(ctx, "export", func(context.Context) error {
		s.mu.Lock()
		regions := s.store.Regions()
		s.mu.Unlock()
		data, skipped = s.codec.Export(regions, s.trays)
		return nil
	})
	return data, skipped, err
}

// ExportDocument writes the interchange document to key in the document store.
func (s *Service) ExportDocument(ctx context.Context, key string) (blob.Info, []interchange.Skipped, error) {
	if err := interchange.CheckExtension(key); err != nil {
		return blob.Info{}, nil, err
	}
	data, skipped, err := s.ExportData(ctx)
	if err != nil {
		return blob.Info{}, skipped, err
	}
	s.mu.Lock()
	experimentID := s.experimentID
	s.mu.Unlock()
	info, err := interchange.WriteDocument(ctx, s.documents, key, data, map[string]string{"experiment": experimentID})
	return info, skipped, err
}

type resolveJob struct {
	regionID    string
	treatmentID string
}

// ResolveTreatments starts background resolution of every region's
// treatment. The returned channel is closed once all lookups finished or were
// abandoned. A completion is applied only if its region still exists with
// the same treatment id; results arriving after ctx is cancelled or the
// session is closed are dropped.
func (s *Service) ResolveTreatments(ctx context.Context) <-chan struct{} {
	done := make(chan struct{})
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		close(done)
		return done
	}
	regions := s.store.Regions()
	var jobs []resolveJob
	for _, r := range regions {
		if r.TreatmentID != "" {
			jobs = append(jobs, resolveJob{regionID: r.ID, treatmentID: r.TreatmentID})
		}
	}
	s.wg.Add(1)
	s.mu.Unlock()

	rctx, cancel := context.WithCancel(ctx)
	stop := context.AfterFunc(s.ctx, cancel)
	go func() {
		defer s.wg.Done()
		defer close(done)
		defer cancel()
		defer stop()
		started := s.clock.Now()
		var g errgroup.Group
		g.SetLimit(s.resolveLimit)
		for _, job := range jobs {
			if rctx.Err() != nil {
				break
			}
			g.Go(func() error {
				if rctx.Err() != nil {
					return nil
				}
				v := s.resolver.Resolve(rctx, job.treatmentID, regions)
				s.completeResolution(rctx, job, v)
				return nil
			})
		}
		_ = g.Wait()
		s.metrics.Observe(ctx, "resolve_treatments", rctx.Err() == nil, s.clock.Now().Sub(started))
	}()
	return done
}

func (s *Service) completeResolution(ctx context.Context, job resolveJob, v domain.ResolvedTreatment) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || ctx.Err() != nil {
		s.logger.Debug("treatment resolution abandoned", "region", job.regionID, "treatment", job.treatmentID)
		return
	}
	i := s.store.IndexOf(job.regionID)
	if i < 0 || s.store.regions[i].TreatmentID != job.treatmentID {
		s.logger.Debug("stale treatment resolution discarded", "region", job.regionID, "treatment", job.treatmentID)
		return
	}
	s.displays[job.regionID] = display{treatmentID: job.treatmentID, value: v}
}

// Display returns the resolved treatment shown next to a region.
func (s *Service) Display(regionID string) (domain.ResolvedTreatment, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.displays[regionID]
	return d.value, ok
}

// Displays returns every resolved treatment keyed by region id.
func (s *Service) Displays() map[string]domain.ResolvedTreatment {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]domain.ResolvedTreatment, len(s.displays))
	for id, d := range s.displays {
		out[id] = d.value
	}
	return out
}

// ResultGrid lays out tray seq for read-only display with the given well
// summaries and the session's regions.
func (s *Service) ResultGrid(seq int, summaries []domain.WellSummary) ([][]geometry.WellView, error) {
	g, err := s.Geometry(seq)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	regions := s.store.Regions()
	s.mu.Unlock()
	return g.ResultGrid(domain.IndexWellSummaries(summaries, g.Tray().Name), regions), nil
}

// Close abandons in-flight resolutions and waits for their goroutines.
// Later mutations fail with ErrSessionClosed.
func (s *Service) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mu.Unlock()
	s.cancel()
	s.wg.Wait()
	return nil
}

// mutate applies fn to the current store under the lock. On success the new
// store is committed and observers are notified after the lock is released.
func (s *Service) mutate(action domain.Action, out *Snapshot, fn func(RegionStore) (RegionStore, error)) error {
	s.mu.Lock()
	if s.closed {
		*out = s.snapshotLocked("")
		s.mu.Unlock()
		return ErrSessionClosed
	}
	next, err := fn(s.store)
	if err != nil {
		*out = s.snapshotLocked("")
		s.mu.Unlock()
		return err
	}
	snap, observers := s.commitLocked(next, action)
	s.mu.Unlock()
	*out = snap
	notify(observers, snap)
	return nil
}

func (s *Service) commitLocked(next RegionStore, action domain.Action) (Snapshot, []func(Snapshot)) {
	s.store = next
	s.revision++
	for id, d := range s.displays {
		i := next.IndexOf(id)
		if i < 0 || next.regions[i].TreatmentID != d.treatmentID {
			delete(s.displays, id)
		}
	}
	snap := s.snapshotLocked(action)
	observers := make([]func(Snapshot), 0, len(s.observers))
	for id := 0; id < s.nextObserver; id++ {
		if fn, ok := s.observers[id]; ok {
			observers = append(observers, fn)
		}
	}
	return snap, observers
}

func (s *Service) snapshotLocked(action domain.Action) Snapshot {
	return Snapshot{
		ExperimentID: s.experimentID,
		Revision:     s.revision,
		Action:       action,
		Regions:      s.store.Regions(),
		Trays:        append([]domain.Tray(nil), s.trays...),
		At:           s.clock.Now(),
	}
}

func notify(observers []func(Snapshot), snap Snapshot) {
	for _, fn := range observers {
		c := snap
		c.Regions = domain.CloneRegions(snap.Regions)
		c.Trays = append([]domain.Tray(nil), snap.Trays...)
		fn(c)
	}
}

func (s *Service) run(ctx context.Context, op string, fn func(context.Context) error) error {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, span := s.tracer.Start(ctx, op)
	start := s.clock.Now()
	err := fn(ctx)
	s.metrics.Observe(ctx, op, err == nil, s.clock.Now().Sub(start))
	span.End(err)
	if err != nil {
		s.logger.Warn("operation failed", "operation", op, "error", err)
		return err
	}
	s.logger.Debug("operation completed", "operation", op)
	return nil
}
