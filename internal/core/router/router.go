// Package router parses hazard API requests and writes the JSON envelope
// every endpoint responds with.
package router

import (
	"context"
	"encoding/json"
	"log/slog"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/mohammed-shakir/hazard-curve-service/internal/core/model"
	"github.com/mohammed-shakir/hazard-curve-service/internal/core/observability"
	"github.com/mohammed-shakir/hazard-curve-service/internal/hazard/errs"
	mylog "github.com/mohammed-shakir/hazard-curve-service/internal/logger"
)

// CurveService is what the handlers need from the hazard service.
type CurveService interface {
	Curves(ctx context.Context, req model.CurveRequest) ([]model.InterpolatedCurve, error)
	Editions(ctx context.Context) ([]string, error)
	Regions(ctx context.Context) ([]model.Region, error)
	SpectralPeriods(ctx context.Context, edition, region string) ([]string, error)
	Vs30s(ctx context.Context, edition, region string) ([]string, error)
}

type Metadata struct {
	Date   time.Time `json:"date"`
	Status string    `json:"status"`
	URL    string    `json:"url"`
}

type Envelope struct {
	Metadata Metadata `json:"metadata"`
	Data     any      `json:"data"`
}

type Handlers struct {
	logger *slog.Logger
	svc    CurveService
	clock  clockwork.Clock
}

func New(logger *slog.Logger, svc CurveService, clock clockwork.Clock) *Handlers {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Handlers{logger: logger, svc: svc, clock: clock}
}

// first non-empty value among the given parameter names
func param(r *http.Request, names ...string) string {
	q := r.URL.Query()
	for _, n := range names {
		if v := strings.TrimSpace(q.Get(n)); v != "" {
			return v
		}
	}
	return ""
}

func parseCoord(r *http.Request, name string, limit float64) (float64, error) {
	raw := param(r, name)
	if raw == "" {
		return 0, errs.Validation("missing required parameter: %s", name)
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, errs.Validation("invalid %s %q", name, raw)
	}
	if f < -limit || f > limit {
		return 0, errs.Validation("%s must be in [%g,%g]", name, -limit, limit)
	}
	return f, nil
}

// ParseCurveRequest reads the curve query string. region and spectralPeriod
// are optional; modelEdition and modelRegion are accepted as aliases.
func ParseCurveRequest(r *http.Request) (model.CurveRequest, error) {
	lat, err := parseCoord(r, "latitude", 90)
	if err != nil {
		return model.CurveRequest{}, err
	}
	lon, err := parseCoord(r, "longitude", 180)
	if err != nil {
		return model.CurveRequest{}, err
	}

	req := model.CurveRequest{
		Latitude:       lat,
		Longitude:      lon,
		Edition:        param(r, "edition", "modelEdition"),
		Region:         param(r, "region", "modelRegion"),
		SpectralPeriod: param(r, "spectralPeriod", "imt"),
		Vs30:           param(r, "vs30"),
	}
	if req.Edition == "" {
		return model.CurveRequest{}, errs.Validation("missing required parameter: edition")
	}
	if req.Vs30 == "" {
		return model.CurveRequest{}, errs.Validation("missing required parameter: vs30")
	}
	return req, nil
}

func (h *Handlers) Curve(w http.ResponseWriter, r *http.Request) {
	h.serve(w, r, "/curve.json", func(ctx context.Context) (any, error) {
		req, err := ParseCurveRequest(r)
		if err != nil {
			return nil, err
		}
		return h.svc.Curves(ctx, req)
	})
}

func (h *Handlers) Editions(w http.ResponseWriter, r *http.Request) {
	h.serve(w, r, "/editions.json", func(ctx context.Context) (any, error) {
		return h.svc.Editions(ctx)
	})
}

func (h *Handlers) Regions(w http.ResponseWriter, r *http.Request) {
	h.serve(w, r, "/regions.json", func(ctx context.Context) (any, error) {
		return h.svc.Regions(ctx)
	})
}

func (h *Handlers) SpectralPeriods(w http.ResponseWriter, r *http.Request) {
	h.serve(w, r, "/spectralPeriods.json", func(ctx context.Context) (any, error) {
		return h.svc.SpectralPeriods(ctx, param(r, "edition", "modelEdition"), param(r, "region", "modelRegion"))
	})
}

func (h *Handlers) Vs30s(w http.ResponseWriter, r *http.Request) {
	h.serve(w, r, "/vs30.json", func(ctx context.Context) (any, error) {
		return h.svc.Vs30s(ctx, param(r, "edition", "modelEdition"), param(r, "region", "modelRegion"))
	})
}

func (h *Handlers) serve(w http.ResponseWriter, r *http.Request, route string, fn func(ctx context.Context) (any, error)) {
	start := time.Now()
	ctx := mylog.WithRoute(r.Context(), route)
	data, err := fn(ctx)

	code := errs.HTTPStatus(err)
	env := Envelope{Metadata: Metadata{Date: h.clock.Now().UTC(), Status: "success", URL: requestURL(r)}, Data: data}
	if err != nil {
		env.Metadata.Status = "error"
		env.Data = err.Error()
		if code >= http.StatusInternalServerError {
			h.logger.ErrorContext(ctx, "request failed", "url", env.Metadata.URL, "err", err)
			env.Data = "internal server error"
		} else {
			h.logger.DebugContext(ctx, "request rejected", "status", code, "err", err)
		}
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if encErr := json.NewEncoder(w).Encode(env); encErr != nil {
		h.logger.WarnContext(ctx, "write response", "err", encErr)
	}
	observability.ObserveHTTP(r.Method, route, code, time.Since(start).Seconds())
}

func requestURL(r *http.Request) string {
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	if p := r.Header.Get("X-Forwarded-Proto"); p != "" {
		scheme = p
	}
	return scheme + "://" + r.Host + r.URL.RequestURI()
}
