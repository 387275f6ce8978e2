package metrics

import (
	"context"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/mohammed-shakir/hazard-curve-service/internal/core/observability"
	"github.com/mohammed-shakir/hazard-curve-service/internal/hazard/errs"
)

func assertHasMetricLine(t *testing.T, body, metric string, wantLabels ...string) {
	t.Helper()
	for ln := range strings.SplitSeq(body, "\n") {
		if !strings.HasPrefix(ln, metric+"{") && !strings.HasPrefix(ln, metric+" ") {
			continue
		}
		ok := true
		for _, s := range wantLabels {
			if !strings.Contains(ln, s) {
				ok = false
				break
			}
		}
		if ok && (len(ln) > 0 && ln[len(ln)-1] >= '0' && ln[len(ln)-1] <= '9') {
			return
		}
	}
	t.Fatalf("expected a %s line with labels %v; got:\n%s", metric, wantLabels, body)
}

func scrape(t *testing.T, p *Provider) string {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rr := httptest.NewRecorder()
	p.Handler().ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("status=%d", rr.Code)
	}
	return rr.Body.String()
}

func TestProvider_BuildInfoAndRuntime(t *testing.T) {
	p := Init(Config{Build: BuildInfo{Revision: "abc123", Branch: "main"}})
	body := scrape(t, p)

	assertHasMetricLine(t, body, "hazard_build_info",
		`service="hazard"`, `version="dev"`, `revision="abc123"`, `branch="main"`, `go_version="go`)
	if !strings.Contains(body, "go_goroutines") {
		t.Fatalf("expected go collector metrics")
	}
}

func TestProvider_ServiceCollectors(t *testing.T) {
	p := Init(Config{Service: "hazard-service", Build: BuildInfo{Version: "test"}}, observability.Collectors()...)

	observability.ObserveHTTP("GET", "/curve.json", 200, 0.01)
	observability.ObserveStoreOp("grid_points", nil, 0.002)
	observability.ObserveStoreOp("dataset", errs.NotFound("x"), 0.001)
	observability.IncMetadataCache("region", true)
	observability.IncCurve("quad")
	observability.IncCurveError(errs.Arithmetic("x0 == x1"))
	observability.ObserveSubQueries(3)
	observability.ObserveCandidates(4)
	observability.IncHitEventDropped()

	body := scrape(t, p)
	assertHasMetricLine(t, body, "http_requests_total", `route="/curve.json"`, `status="200"`)
	assertHasMetricLine(t, body, "store_op_total", `op="grid_points"`, `outcome="ok"`)
	assertHasMetricLine(t, body, "store_op_total", `op="dataset"`, `outcome="not_found"`)
	assertHasMetricLine(t, body, "metadata_cache_total", `kind="region"`, `result="hit"`)
	assertHasMetricLine(t, body, "hazard_curves_total", `topology="quad"`)
	assertHasMetricLine(t, body, "hazard_curve_errors_total", `kind="arithmetic"`)
	assertHasMetricLine(t, body, "hazard_subqueries_per_request_count")
	assertHasMetricLine(t, body, "hazard_cell_candidates_count")
	assertHasMetricLine(t, body, "hit_events_dropped_total")
}

func TestProvider_RegisterSkipsDuplicates(t *testing.T) {
	p := Init(Config{})
	if err := p.Register(p.buildInfo); err != nil {
		t.Fatalf("re-registering the same collector: %v", err)
	}

	clash := prometheus.NewGauge(prometheus.GaugeOpts{Name: "hazard_build_info", Help: "clash"})
	if err := p.Register(clash); err == nil {
		t.Fatal("expected an error for a different collector with a taken name")
	}
}

func TestProvider_Serve(t *testing.T) {
	p := Init(Config{})
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	addr := ln.Addr().String()
	_ = ln.Close()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- p.Serve(ctx, slog.New(slog.NewTextHandler(io.Discard, nil)), addr, "/prom") }()

	var resp *http.Response
	deadline := time.Now().Add(2 * time.Second)
	for {
		resp, err = http.Get("http://" + addr + "/prom")
		if err == nil || time.Now().After(deadline) {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}
	if err != nil {
		t.Fatalf("GET metrics: %v", err)
	}
	body, _ := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	if resp.StatusCode != http.StatusOK || !strings.Contains(string(body), "hazard_build_info") {
		t.Fatalf("status=%d body=%s", resp.StatusCode, body)
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Serve returned %v", err)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("Serve did not return after cancel")
	}
}
