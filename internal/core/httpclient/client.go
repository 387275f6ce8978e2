// Package httpclient configures outbound HTTP and provides a client for a
// remote hazard curve service.
package httpclient

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/mohammed-shakir/hazard-curve-service/internal/core/model"
	"github.com/mohammed-shakir/hazard-curve-service/internal/hazard/errs"
)

// NewOutbound creates a new outbound http client
func NewOutbound() *http.Client {
	transport := &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           (&net.Dialer{Timeout: 5 * time.Second, KeepAlive: 30 * time.Second}).DialContext,
		MaxIdleConns:          32,
		MaxIdleConnsPerHost:   8,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   5 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	}
	return &http.Client{
		Transport: transport,
		Timeout:   30 * time.Second,
	}
}

// HazardClient calls the curve endpoint of a running hazard service.
type HazardClient struct {
	base   *url.URL
	client *http.Client
}

// NewHazardClient takes the API mount URL, e.g. http://host:8090/ws/hazard.
func NewHazardClient(base string, c *http.Client) (*HazardClient, error) {
	u, err := url.Parse(strings.TrimRight(base, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse server url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("server url %q must be http or https", base)
	}
	if c == nil {
		c = NewOutbound()
	}
	return &HazardClient{base: u, client: c}, nil
}

func (h *HazardClient) Curves(ctx context.Context, req model.CurveRequest) ([]model.InterpolatedCurve, error) {
	q := url.Values{}
	q.Set("latitude", strconv.FormatFloat(req.Latitude, 'g', -1, 64))
	q.Set("longitude", strconv.FormatFloat(req.Longitude, 'g', -1, 64))
	q.Set("edition", req.Edition)
	q.Set("vs30", req.Vs30)
	if req.Region != "" {
		q.Set("region", req.Region)
	}
	if req.SpectralPeriod != "" {
		q.Set("spectralPeriod", req.SpectralPeriod)
	}

	u := *h.base
	u.Path += "/curve.json"
	u.RawQuery = q.Encode()

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	httpReq.Header.Set("Accept", "application/json")

	resp, err := h.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("do request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	var env struct {
		Data json.RawMessage `json:"data"`
	}
	if err := json.NewDecoder(io.LimitReader(resp.Body, 32<<20)).Decode(&env); err != nil {
		return nil, fmt.Errorf("decode response (status %d): %w", resp.StatusCode, err)
	}

	if resp.StatusCode != http.StatusOK {
		var msg string
		_ = json.Unmarshal(env.Data, &msg)
		switch resp.StatusCode {
		case http.StatusBadRequest:
			return nil, errs.Validation("remote: %s", msg)
		case http.StatusNotFound:
			return nil, errs.NotFound("remote: %s", msg)
		default:
			return nil, fmt.Errorf("upstream status %d: %s", resp.StatusCode, msg)
		}
	}

	var curves []model.InterpolatedCurve
	if err := json.Unmarshal(env.Data, &curves); err != nil {
		return nil, fmt.Errorf("decode curves: %w", err)
	}
	return curves, nil
}
