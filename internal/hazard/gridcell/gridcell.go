// Package gridcell finds the lattice cell enclosing a query point and
// turns the fetched grid points into a spatial.Cell.
package gridcell

import (
	"cmp"
	"context"
	"fmt"
	"math"
	"slices"

	"github.com/mohammed-shakir/hazard-curve-service/internal/core/model"
	"github.com/mohammed-shakir/hazard-curve-service/internal/core/observability"
	"github.com/mohammed-shakir/hazard-curve-service/internal/hazard/errs"
	"github.com/mohammed-shakir/hazard-curve-service/internal/hazard/spatial"
)

// Fetcher returns every grid point of a dataset inside an inclusive box.
type Fetcher interface {
	GridPoints(ctx context.Context, datasetID string, box model.BBox) ([]model.GridPoint, error)
}

type Resolver struct {
	fetch Fetcher
}

func New(f Fetcher) *Resolver {
	return &Resolver{fetch: f}
}

// SearchBox is the query point widened by one grid spacing on each axis.
func SearchBox(region model.Region, lat, lon float64) model.BBox {
	return model.BBox{
		MinLatitude:  lat - region.GridSpacing,
		MaxLatitude:  lat + region.GridSpacing,
		MinLongitude: lon - region.GridSpacing,
		MaxLongitude: lon + region.GridSpacing,
	}
}

// Resolve fetches the candidates around (lat, lon) and classifies the
// enclosing cell.
func (r *Resolver) Resolve(ctx context.Context, ds model.Dataset, region model.Region, lat, lon float64) (spatial.Cell, error) {
	pts, err := r.Points(ctx, ds, region, lat, lon)
	if err != nil {
		return nil, err
	}
	return spatial.NewCell(pts)
}

// Points returns the corners of the enclosing cell sorted by latitude then
// longitude, so that four points form row 0 followed by row 1.
func (r *Resolver) Points(ctx context.Context, ds model.Dataset, region model.Region, lat, lon float64) ([]model.GridPoint, error) {
	if !(region.GridSpacing > 0) {
		return nil, errs.DataIntegrity("region %q has invalid grid spacing %g", region.Value, region.GridSpacing)
	}

	box := SearchBox(region, lat, lon)
	candidates, err := r.fetch.GridPoints(ctx, ds.ID, box)
	if err != nil {
		return nil, fmt.Errorf("fetch grid points for %s: %w", ds.ID, err)
	}
	observability.ObserveCandidates(len(candidates))
	if len(candidates) == 0 {
		return nil, errs.NotFound("no grid points near (%g, %g) for %s", lat, lon, ds.Selector)
	}
	for _, p := range candidates {
		if len(p.AFE) != len(ds.IML) {
			return nil, errs.DataIntegrity("grid point (%g, %g) has %d afe values, dataset %s has %d iml values",
				p.Latitude, p.Longitude, len(p.AFE), ds.ID, len(ds.IML))
		}
	}

	tol := region.GridSpacing * 1e-9
	lats, ok := bracket(candidates, lat, tol, func(p model.GridPoint) float64 { return p.Latitude })
	if !ok {
		return nil, errs.NotFound("latitude %g is outside the coverage of %s", lat, ds.Selector)
	}
	lons, ok := bracket(candidates, lon, tol, func(p model.GridPoint) float64 { return p.Longitude })
	if !ok {
		return nil, errs.NotFound("longitude %g is outside the coverage of %s", lon, ds.Selector)
	}

	cell := make([]model.GridPoint, 0, 4)
	for _, p := range candidates {
		if slices.Contains(lats, p.Latitude) && slices.Contains(lons, p.Longitude) {
			cell = append(cell, p)
		}
	}

	want := len(lats) * len(lons)
	if len(cell) != want {
		return nil, errs.DataIntegrity("cell around (%g, %g) has %d grid points, expected %d", lat, lon, len(cell), want)
	}
	if n := len(cell); n != 1 && n != 2 && n != 4 {
		return nil, errs.DataIntegrity("expected 1, 2 or 4 grid points, got %d", n)
	}

	slices.SortFunc(cell, func(a, b model.GridPoint) int {
		if c := cmp.Compare(a.Latitude, b.Latitude); c != 0 {
			return c
		}
		return cmp.Compare(a.Longitude, b.Longitude)
	})
	return cell, nil
}

// bracket picks, along one axis, the candidate coordinate equal to v or the
// nearest coordinates on either side of it.
func bracket(points []model.GridPoint, v, tol float64, coord func(model.GridPoint) float64) ([]float64, bool) {
	below, above := math.Inf(-1), math.Inf(1)
	for _, p := range points {
		c := coord(p)
		if math.Abs(c-v) <= tol {
			return []float64{c}, true
		}
		if c < v && c > below {
			below = c
		}
		if c > v && c < above {
			above = c
		}
	}
	if math.IsInf(below, -1) || math.IsInf(above, 1) {
		return nil, false
	}
	return []float64{below, above}, true
}
