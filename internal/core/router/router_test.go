package router

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/mohammed-shakir/hazard-curve-service/internal/core/model"
	"github.com/mohammed-shakir/hazard-curve-service/internal/hazard/errs"
	mylog "github.com/mohammed-shakir/hazard-curve-service/internal/logger"
)

type fakeService struct {
	lastReq model.CurveRequest
	err     error
	edition string
	region  string
}

func (f *fakeService) Curves(_ context.Context, req model.CurveRequest) ([]model.InterpolatedCurve, error) {
	f.lastReq = req
	if f.err != nil {
		return nil, f.err
	}
	return []model.InterpolatedCurve{{
		Metadata: model.CurveMetadata{Edition: req.Edition, Latitude: req.Latitude, Longitude: req.Longitude},
		Data:     []model.Point{{X: 0.1, Y: 0.5}},
	}}, nil
}

func (f *fakeService) Editions(context.Context) ([]string, error) { return []string{"E2008", "E2014"}, f.err }

func (f *fakeService) Regions(context.Context) ([]model.Region, error) {
	return []model.Region{{Value: "WUS0P05", GridSpacing: 0.05}}, f.err
}

func (f *fakeService) SpectralPeriods(_ context.Context, edition, region string) ([]string, error) {
	f.edition, f.region = edition, region
	return []string{"PGA"}, f.err
}

func (f *fakeService) Vs30s(_ context.Context, edition, region string) ([]string, error) {
	f.edition, f.region = edition, region
	return []string{"760"}, f.err
}

var fixedNow = time.Date(2024, 3, 4, 5, 6, 7, 0, time.UTC)

func newHandlers(svc CurveService) *Handlers {
	return New(slog.New(slog.NewTextHandler(io.Discard, nil)), svc, clockwork.NewFakeClockAt(fixedNow))
}

type envelope struct {
	Metadata Metadata        `json:"metadata"`
	Data     json.RawMessage `json:"data"`
}

func do(t *testing.T, h http.HandlerFunc, target string) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	rr := httptest.NewRecorder()
	h(rr, req)
	var env envelope
	if err := json.Unmarshal(rr.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode envelope: %v (%s)", err, rr.Body.String())
	}
	return rr, env
}

func TestCurve_Success(t *testing.T) {
	svc := &fakeService{}
	h := newHandlers(svc)

	rr, env := do(t, h.Curve, "http://example.com/ws/hazard/curve.json?latitude=34.05&longitude=-118.25&edition=E2014&vs30=760")
	if rr.Code != http.StatusOK {
		t.Fatalf("status=%d body=%s", rr.Code, rr.Body.String())
	}
	if ct := rr.Header().Get("Content-Type"); ct != "application/json" {
		t.Fatalf("content-type=%q", ct)
	}
	if env.Metadata.Status != "success" || !env.Metadata.Date.Equal(fixedNow) {
		t.Fatalf("unexpected metadata: %+v", env.Metadata)
	}
	if env.Metadata.URL != "http://example.com/ws/hazard/curve.json?latitude=34.05&longitude=-118.25&edition=E2014&vs30=760" {
		t.Fatalf("url=%q", env.Metadata.URL)
	}
	if !strings.Contains(string(env.Data), `"data":[[0.1,0.5]]`) {
		t.Fatalf("unexpected data: %s", env.Data)
	}
	if svc.lastReq.Region != "" || svc.lastReq.SpectralPeriod != "" {
		t.Fatalf("optional params should be empty: %+v", svc.lastReq)
	}
}

func TestParseCurveRequest_Aliases(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet,
		"/curve.json?latitude=1&longitude=2&modelEdition=E2014&modelRegion=WUS0P05&imt=PGA&vs30=760", nil)
	got, err := ParseCurveRequest(req)
	if err != nil {
		t.Fatalf("ParseCurveRequest: %v", err)
	}
	want := model.CurveRequest{Latitude: 1, Longitude: 2, Edition: "E2014", Region: "WUS0P05", SpectralPeriod: "PGA", Vs30: "760"}
	if got != want {
		t.Fatalf("got %+v want %+v", got, want)
	}
}

func TestParseCurveRequest_Validation(t *testing.T) {
	cases := map[string]string{
		"missing latitude":  "longitude=1&edition=E&vs30=760",
		"missing longitude": "latitude=1&edition=E&vs30=760",
		"bad latitude":      "latitude=abc&longitude=1&edition=E&vs30=760",
		"nan latitude":      "latitude=NaN&longitude=1&edition=E&vs30=760",
		"latitude range":    "latitude=90.5&longitude=1&edition=E&vs30=760",
		"longitude range":   "latitude=1&longitude=-180.1&edition=E&vs30=760",
		"missing edition":   "latitude=1&longitude=1&vs30=760",
		"missing vs30":      "latitude=1&longitude=1&edition=E",
	}
	for name, qs := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := ParseCurveRequest(httptest.NewRequest(http.MethodGet, "/curve.json?"+qs, nil))
			if !errors.Is(err, errs.ErrValidation) {
				t.Fatalf("expected validation error, got %v", err)
			}
		})
	}
}

func TestCurve_ErrorStatusMapping(t *testing.T) {
	cases := []struct {
		name     string
		target   string
		err      error
		wantCode int
		wantData string
	}{
		{"validation", "/curve.json?longitude=1&edition=E&vs30=760", nil, http.StatusBadRequest, "missing required parameter: latitude"},
		{"not found", "/curve.json?latitude=1&longitude=1&edition=E&vs30=760", errs.NotFound("no grid points"), http.StatusNotFound, "not found: no grid points"},
		{"integrity", "/curve.json?latitude=1&longitude=1&edition=E&vs30=760", errs.DataIntegrity("bad cell"), http.StatusInternalServerError, "internal server error"},
		{"arithmetic", "/curve.json?latitude=1&longitude=1&edition=E&vs30=760", errs.Arithmetic("x0 == x1"), http.StatusInternalServerError, "internal server error"},
		{"unknown", "/curve.json?latitude=1&longitude=1&edition=E&vs30=760", errors.New("redis down"), http.StatusInternalServerError, "internal server error"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			h := newHandlers(&fakeService{err: tc.err})
			rr, env := do(t, h.Curve, tc.target)
			if rr.Code != tc.wantCode {
				t.Fatalf("status=%d want %d", rr.Code, tc.wantCode)
			}
			if env.Metadata.Status != "error" {
				t.Fatalf("status field=%q", env.Metadata.Status)
			}
			var msg string
			if err := json.Unmarshal(env.Data, &msg); err != nil {
				t.Fatalf("data is not a string: %s", env.Data)
			}
			if !strings.Contains(msg, tc.wantData) {
				t.Fatalf("data=%q want substring %q", msg, tc.wantData)
			}
		})
	}
}

func TestServe_LogsCarryRoute(t *testing.T) {
	var buf bytes.Buffer
	zl := mylog.Build(mylog.Config{Level: "debug"}, &buf)
	h := New(mylog.NewSlog(&zl), &fakeService{err: errors.New("redis down")}, clockwork.NewFakeClockAt(fixedNow))

	rr, _ := do(t, h.Curve, "/curve.json?latitude=1&longitude=1&edition=E&vs30=760")
	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("status=%d", rr.Code)
	}
	if !strings.Contains(buf.String(), `"route":"/curve.json"`) {
		t.Fatalf("expected route field from context in log: %s", buf.String())
	}
}

func TestListings_PassFilters(t *testing.T) {
	svc := &fakeService{}
	h := newHandlers(svc)

	rr, env := do(t, h.SpectralPeriods, "/spectralPeriods.json?edition=E2014&region=WUS0P05")
	if rr.Code != http.StatusOK || string(env.Data) != `["PGA"]` {
		t.Fatalf("status=%d data=%s", rr.Code, env.Data)
	}
	if svc.edition != "E2014" || svc.region != "WUS0P05" {
		t.Fatalf("filters not passed: %q %q", svc.edition, svc.region)
	}

	_, env = do(t, h.Vs30s, "/vs30.json?modelEdition=E2008")
	if string(env.Data) != `["760"]` || svc.edition != "E2008" || svc.region != "" {
		t.Fatalf("vs30 listing: data=%s edition=%q region=%q", env.Data, svc.edition, svc.region)
	}

	_, env = do(t, h.Editions, "/editions.json")
	if string(env.Data) != `["E2008","E2014"]` {
		t.Fatalf("editions=%s", env.Data)
	}

	_, env = do(t, h.Regions, "/regions.json")
	if !strings.Contains(string(env.Data), `"value":"WUS0P05"`) {
		t.Fatalf("regions=%s", env.Data)
	}
}
