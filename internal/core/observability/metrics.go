package observability

import (
	"errors"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/mohammed-shakir/hazard-curve-service/internal/hazard/errs"
)

var (
	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"method", "route", "status"},
	)

	httpRequestDurationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds.",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 14), // 1ms to ~8s
		},
		[]string{"method", "route", "status"},
	)

	storeOpTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "store_op_total",
			Help: "Dataset store operations by outcome.",
		},
		[]string{"op", "outcome"},
	)

	storeOpDurationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "store_op_duration_seconds",
			Help:    "Latency of dataset store operations in seconds.",
			Buckets: prometheus.ExponentialBuckets(0.0005, 2, 12),
		},
		[]string{"op"},
	)

	metadataCacheTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "metadata_cache_total",
			Help: "Region and dataset metadata cache lookups.",
		},
		[]string{"kind", "result"},
	)

	curvesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hazard_curves_total",
			Help: "Interpolated hazard curves by cell topology.",
		},
		[]string{"topology"},
	)

	curveErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hazard_curve_errors_total",
			Help: "Failed curve computations by error kind.",
		},
		[]string{"kind"},
	)

	subQueries = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "hazard_subqueries_per_request",
			Help:    "Number of curves computed for one request after expansion.",
			Buckets: []float64{1, 2, 4, 8, 16, 32},
		},
	)

	cellCandidates = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "hazard_cell_candidates",
			Help:    "Grid points returned by the search box before reduction to the enclosing cell.",
			Buckets: []float64{0, 1, 2, 4, 6, 9, 16},
		},
	)

	hitEventsDropped = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "hit_events_dropped_total",
			Help: "Hit events dropped because the publish queue was full.",
		},
	)
)

// Collectors lists every service collector for registration.
func Collectors() []prometheus.Collector {
	return []prometheus.Collector{
		httpRequestsTotal,
		httpRequestDurationSeconds,
		storeOpTotal,
		storeOpDurationSeconds,
		metadataCacheTotal,
		curvesTotal,
		curveErrorsTotal,
		subQueries,
		cellCandidates,
		hitEventsDropped,
	}
}

// Init registers the service collectors with reg. Collectors already
// present in reg are left alone.
func Init(reg prometheus.Registerer) {
	if reg == nil {
		return
	}
	for _, c := range Collectors() {
		if err := reg.Register(c); err != nil {
			var are prometheus.AlreadyRegisteredError
			if errors.As(err, &are) {
				continue
			}
			panic(err)
		}
	}
}

func ObserveHTTP(method, route string, status int, durationSeconds float64) {
	st := strconv.Itoa(status)
	httpRequestsTotal.WithLabelValues(method, route, st).Inc()
	httpRequestDurationSeconds.WithLabelValues(method, route, st).Observe(durationSeconds)
}

func ObserveStoreOp(op string, err error, durationSeconds float64) {
	outcome := "ok"
	switch {
	case err == nil:
	case errors.Is(err, errs.ErrNotFound):
		outcome = "not_found"
	default:
		outcome = "error"
	}
	storeOpTotal.WithLabelValues(op, outcome).Inc()
	storeOpDurationSeconds.WithLabelValues(op).Observe(durationSeconds)
}

func IncMetadataCache(kind string, hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	metadataCacheTotal.WithLabelValues(kind, result).Inc()
}

func IncCurve(topology string) {
	curvesTotal.WithLabelValues(topology).Inc()
}

func IncCurveError(err error) {
	kind := "internal"
	switch {
	case errors.Is(err, errs.ErrValidation):
		kind = "validation"
	case errors.Is(err, errs.ErrNotFound):
		kind = "not_found"
	case errors.Is(err, errs.ErrArithmetic):
		kind = "arithmetic"
	case errors.Is(err, errs.ErrDataIntegrity):
		kind = "data_integrity"
	}
	curveErrorsTotal.WithLabelValues(kind).Inc()
}

func ObserveSubQueries(n int) {
	subQueries.Observe(float64(n))
}

func ObserveCandidates(n int) {
	cellCandidates.Observe(float64(n))
}

func IncHitEventDropped() {
	hitEventsDropped.Inc()
}
