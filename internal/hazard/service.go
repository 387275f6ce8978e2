// Package hazard computes interpolated hazard curves for a point: it expands
// optional request parameters, looks up regions and datasets, resolves the
// enclosing grid cell and interpolates across it.
package hazard

import (
	"cmp"
	"context"
	"log/slog"
	"math"
	"slices"
	"sync"

	"github.com/jonboulle/clockwork"

	"github.com/mohammed-shakir/hazard-curve-service/internal/core/model"
	"github.com/mohammed-shakir/hazard-curve-service/internal/core/observability"
	"github.com/mohammed-shakir/hazard-curve-service/internal/hazard/curve"
	"github.com/mohammed-shakir/hazard-curve-service/internal/hazard/errs"
	"github.com/mohammed-shakir/hazard-curve-service/internal/hazard/gridcell"
	"github.com/mohammed-shakir/hazard-curve-service/internal/hazard/spatial"
	"github.com/mohammed-shakir/hazard-curve-service/internal/hitevents"
	"github.com/mohammed-shakir/hazard-curve-service/internal/store"
)

const (
	defaultMaxWorkers = 4
	defaultH3Res      = 5
)

type Service struct {
	store      store.Reader
	resolver   *gridcell.Resolver
	assembler  *curve.Assembler
	sink       hitevents.Sink
	logger     *slog.Logger
	maxWorkers int
	h3Res      int
	clock      clockwork.Clock
}

type Option func(*Service)

func WithLogger(l *slog.Logger) Option {
	return func(s *Service) { s.logger = l }
}

func WithClock(c clockwork.Clock) Option {
	return func(s *Service) { s.clock = c }
}

// WithSink publishes a hit event per computed curve. A nil or Nop sink
// disables event building.
func WithSink(sink hitevents.Sink) Option {
	return func(s *Service) {
		if _, nop := sink.(hitevents.Nop); nop {
			sink = nil
		}
		s.sink = sink
	}
}

// WithMaxWorkers bounds the number of sub-queries computed concurrently.
func WithMaxWorkers(n int) Option {
	return func(s *Service) { s.maxWorkers = n }
}

// WithH3Resolution sets the resolution used to tag hit events.
func WithH3Resolution(res int) Option {
	return func(s *Service) { s.h3Res = res }
}

func New(st store.Reader, opts ...Option) *Service {
	s := &Service{
		store:      st,
		logger:     slog.Default(),
		maxWorkers: defaultMaxWorkers,
		h3Res:      defaultH3Res,
	}
	for _, o := range opts {
		o(s)
	}
	if s.clock == nil {
		s.clock = clockwork.NewRealClock()
	}
	if s.maxWorkers <= 0 {
		s.maxWorkers = defaultMaxWorkers
	}
	s.resolver = gridcell.New(st)
	s.assembler = curve.New(s.clock)
	return s
}

// Validate checks the parameters every curve request must carry.
func Validate(req model.CurveRequest) error {
	switch {
	case req.Edition == "":
		return errs.Validation("edition is required")
	case req.Vs30 == "":
		return errs.Validation("vs30 is required")
	case math.IsNaN(req.Latitude) || req.Latitude < -90 || req.Latitude > 90:
		return errs.Validation("latitude %v out of range [-90, 90]", req.Latitude)
	case math.IsNaN(req.Longitude) || req.Longitude < -180 || req.Longitude > 180:
		return errs.Validation("longitude %v out of range [-180, 180]", req.Longitude)
	}
	return nil
}

// Curves expands req into one query per spectral period and computes each
// curve. Results follow query order; the first failure fails the request.
func (s *Service) Curves(ctx context.Context, req model.CurveRequest) ([]model.InterpolatedCurve, error) {
	queries, err := s.Expand(ctx, req)
	if err != nil {
		observability.IncCurveError(err)
		return nil, err
	}
	observability.ObserveSubQueries(len(queries))

	out, err := s.run(ctx, queries)
	if err != nil {
		observability.IncCurveError(err)
		return nil, err
	}
	return out, nil
}

func (s *Service) run(ctx context.Context, queries []model.Query) ([]model.InterpolatedCurve, error) {
	if len(queries) == 1 {
		c, err := s.Curve(ctx, queries[0])
		if err != nil {
			return nil, err
		}
		return []model.InterpolatedCurve{c}, nil
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	out := make([]model.InterpolatedCurve, len(queries))
	jobs := make(chan int)

	var (
		mu       sync.Mutex
		firstErr error
		wg       sync.WaitGroup
	)
	fail := func(err error) {
		mu.Lock()
		defer mu.Unlock()
		if firstErr == nil {
			firstErr = err
			cancel()
		}
	}

	workerN := min(s.maxWorkers, len(queries))
	wg.Add(workerN)
	for range workerN {
		go func() {
			defer wg.Done()
			for i := range jobs {
				c, err := s.Curve(ctx, queries[i])
				if err != nil {
					fail(err)
					continue
				}
				out[i] = c
			}
		}()
	}

feed:
	for i := range queries {
		select {
		case jobs <- i:
		case <-ctx.Done():
			break feed
		}
	}
	close(jobs)
	wg.Wait()

	if firstErr != nil {
		return nil, firstErr
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// Curve computes one curve for a fully resolved query.
func (s *Service) Curve(ctx context.Context, q model.Query) (model.InterpolatedCurve, error) {
	start := s.clock.Now()

	region, err := s.store.Region(ctx, q.Region)
	if err != nil {
		return model.InterpolatedCurve{}, err
	}
	ds, err := s.store.Dataset(ctx, q.Selector())
	if err != nil {
		return model.InterpolatedCurve{}, err
	}

	cell, err := s.resolver.Resolve(ctx, ds, region, q.Latitude, q.Longitude)
	if err != nil {
		return model.InterpolatedCurve{}, err
	}
	afe, err := spatial.Interpolate(q.Latitude, q.Longitude, cell)
	if err != nil {
		return model.InterpolatedCurve{}, err
	}

	c := s.assembler.Assemble(ds.IML, afe, curve.Metadata(q))
	topology := spatial.Topology(cell)

	observability.IncCurve(topology)
	s.logger.DebugContext(ctx, "curve computed",
		"selector", q.Selector().String(),
		"lat", q.Latitude, "lon", q.Longitude,
		"topology", topology,
		"points", len(c.Data),
		"dur", s.clock.Since(start).String())
	if s.sink != nil {
		s.sink.Publish(hitevents.NewEvent(c.Metadata, topology, s.h3Res))
	}
	return c, nil
}

// Expand fills in a missing region and spectral period from the loaded
// datasets.
func (s *Service) Expand(ctx context.Context, req model.CurveRequest) ([]model.Query, error) {
	if err := Validate(req); err != nil {
		return nil, err
	}

	datasets, err := s.store.Datasets(ctx)
	if err != nil {
		return nil, err
	}

	region := req.Region
	if region == "" {
		region, err = s.pickRegion(ctx, req, datasets)
		if err != nil {
			return nil, err
		}
	}

	periods := []string{req.SpectralPeriod}
	if req.SpectralPeriod == "" {
		periods = distinct(datasets, func(ds model.Dataset) (string, bool) {
			return ds.SpectralPeriod, ds.Edition == req.Edition && ds.Region == region && ds.Vs30 == req.Vs30
		})
		if len(periods) == 0 {
			return nil, errs.NotFound("no spectral periods for edition=%s region=%s vs30=%s",
				req.Edition, region, req.Vs30)
		}
	}

	out := make([]model.Query, 0, len(periods))
	for _, p := range periods {
		out = append(out, model.Query{
			Latitude:       req.Latitude,
			Longitude:      req.Longitude,
			Edition:        req.Edition,
			Region:         region,
			SpectralPeriod: p,
			Vs30:           req.Vs30,
		})
	}
	return out, nil
}

// pickRegion returns the finest-spaced region that contains the point and
// has data for the requested edition and vs30.
func (s *Service) pickRegion(ctx context.Context, req model.CurveRequest, datasets []model.Dataset) (string, error) {
	regions, err := s.store.Regions(ctx)
	if err != nil {
		return "", err
	}

	var candidates []model.Region
	for _, r := range regions {
		if r.Contains(req.Latitude, req.Longitude) {
			candidates = append(candidates, r)
		}
	}
	slices.SortFunc(candidates, func(a, b model.Region) int {
		if c := cmp.Compare(a.GridSpacing, b.GridSpacing); c != 0 {
			return c
		}
		return cmp.Compare(a.Value, b.Value)
	})

	for _, r := range candidates {
		for _, ds := range datasets {
			if ds.Region != r.Value || ds.Edition != req.Edition || ds.Vs30 != req.Vs30 {
				continue
			}
			if req.SpectralPeriod != "" && ds.SpectralPeriod != req.SpectralPeriod {
				continue
			}
			return r.Value, nil
		}
	}
	return "", errs.NotFound("no region covers (%g, %g) for edition=%s vs30=%s",
		req.Latitude, req.Longitude, req.Edition, req.Vs30)
}

func (s *Service) Editions(ctx context.Context) ([]string, error) {
	datasets, err := s.store.Datasets(ctx)
	if err != nil {
		return nil, err
	}
	return distinct(datasets, func(ds model.Dataset) (string, bool) { return ds.Edition, true }), nil
}

func (s *Service) Regions(ctx context.Context) ([]model.Region, error) {
	return s.store.Regions(ctx)
}

// SpectralPeriods lists periods across datasets. Empty filters match all.
func (s *Service) SpectralPeriods(ctx context.Context, edition, region string) ([]string, error) {
	datasets, err := s.store.Datasets(ctx)
	if err != nil {
		return nil, err
	}
	return distinct(datasets, func(ds model.Dataset) (string, bool) {
		return ds.SpectralPeriod, matches(ds, edition, region)
	}), nil
}

func (s *Service) Vs30s(ctx context.Context, edition, region string) ([]string, error) {
	datasets, err := s.store.Datasets(ctx)
	if err != nil {
		return nil, err
	}
	return distinct(datasets, func(ds model.Dataset) (string, bool) {
		return ds.Vs30, matches(ds, edition, region)
	}), nil
}

func matches(ds model.Dataset, edition, region string) bool {
	return (edition == "" || ds.Edition == edition) && (region == "" || ds.Region == region)
}

func distinct(datasets []model.Dataset, pick func(model.Dataset) (string, bool)) []string {
	seen := make(map[string]struct{}, len(datasets))
	out := make([]string, 0, len(datasets))
	for _, ds := range datasets {
		v, ok := pick(ds)
		if !ok || v == "" {
			continue
		}
		if _, dup := seen[v]; dup {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	slices.Sort(out)
	return out
}
