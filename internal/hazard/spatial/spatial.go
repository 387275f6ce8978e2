// Package spatial reduces the grid points surrounding a query location to a
// single interpolated curve.
//
// The surrounding points are first classified into a Cell: an exact lattice
// hit, a pair of points on a shared lattice line, or the four corners of the
// enclosing lattice square. Interpolate then applies zero, one or three
// element-wise linear passes depending on the variant.
package spatial

import (
	"github.com/mohammed-shakir/hazard-curve-service/internal/core/model"
	"github.com/mohammed-shakir/hazard-curve-service/internal/hazard/errs"
	"github.com/mohammed-shakir/hazard-curve-service/internal/hazard/interp"
)

type Axis int

const (
	// AlongLongitude interpolates between two points sharing a latitude.
	AlongLongitude Axis = iota
	// AlongLatitude interpolates between two points sharing a longitude.
	AlongLatitude
)

func (a Axis) String() string {
	if a == AlongLatitude {
		return "latitude"
	}
	return "longitude"
}

// Cell is one of ExactMatch, EdgePair or Quad.
type Cell interface {
	Points() []model.GridPoint
	cell()
}

type ExactMatch struct {
	Point model.GridPoint
}

type EdgePair struct {
	A, B model.GridPoint
	Axis Axis
}

// Quad holds the enclosing corners as two rows. Both points of a row share
// a latitude; the rows differ in latitude.
type Quad struct {
	Rows [2][2]model.GridPoint
}

func (ExactMatch) cell() {}
func (EdgePair) cell()   {}
func (Quad) cell()       {}

func (c ExactMatch) Points() []model.GridPoint { return []model.GridPoint{c.Point} }
func (c EdgePair) Points() []model.GridPoint   { return []model.GridPoint{c.A, c.B} }
func (c Quad) Points() []model.GridPoint {
	return []model.GridPoint{c.Rows[0][0], c.Rows[0][1], c.Rows[1][0], c.Rows[1][1]}
}

// NewCell classifies already ordered points. Four points must arrive as
// row 0 followed by row 1.
func NewCell(points []model.GridPoint) (Cell, error) {
	switch len(points) {
	case 1:
		return ExactMatch{Point: points[0]}, nil
	case 2:
		p0, p1 := points[0], points[1]
		switch {
		case p0.Latitude == p1.Latitude && p0.Longitude == p1.Longitude:
			return nil, errs.DataIntegrity("duplicate grid point (%g, %g)", p0.Latitude, p0.Longitude)
		case p0.Latitude == p1.Latitude:
			return EdgePair{A: p0, B: p1, Axis: AlongLongitude}, nil
		case p0.Longitude == p1.Longitude:
			return EdgePair{A: p0, B: p1, Axis: AlongLatitude}, nil
		default:
			return nil, errs.DataIntegrity("grid points (%g, %g) and (%g, %g) do not share a lattice line",
				p0.Latitude, p0.Longitude, p1.Latitude, p1.Longitude)
		}
	case 4:
		q := Quad{Rows: [2][2]model.GridPoint{
			{points[0], points[1]},
			{points[2], points[3]},
		}}
		for i, row := range q.Rows {
			if row[0].Latitude != row[1].Latitude {
				return nil, errs.DataIntegrity("quad row %d does not share a latitude", i)
			}
		}
		if q.Rows[0][0].Latitude == q.Rows[1][0].Latitude {
			return nil, errs.DataIntegrity("quad rows share latitude %g", q.Rows[0][0].Latitude)
		}
		return q, nil
	default:
		return nil, errs.DataIntegrity("expected 1, 2 or 4 grid points, got %d", len(points))
	}
}

// Interpolate estimates the curve at (lat, lon) from the cell corners.
func Interpolate(lat, lon float64, c Cell) ([]float64, error) {
	switch c := c.(type) {
	case ExactMatch:
		out := make([]float64, len(c.Point.AFE))
		copy(out, c.Point.AFE)
		return out, nil

	case EdgePair:
		if c.Axis == AlongLatitude {
			return interp.Curve(c.A.Latitude, c.A.AFE, c.B.Latitude, c.B.AFE, lat)
		}
		return interp.Curve(c.A.Longitude, c.A.AFE, c.B.Longitude, c.B.AFE, lon)

	case Quad:
		p0, p1 := c.Rows[0][0], c.Rows[0][1]
		p2, p3 := c.Rows[1][0], c.Rows[1][1]

		top, err := interp.Curve(p0.Longitude, p0.AFE, p1.Longitude, p1.AFE, lon)
		if err != nil {
			return nil, err
		}
		bottom, err := interp.Curve(p2.Longitude, p2.AFE, p3.Longitude, p3.AFE, lon)
		if err != nil {
			return nil, err
		}
		return interp.Curve(p0.Latitude, top, p2.Latitude, bottom, lat)

	default:
		return nil, errs.DataIntegrity("unsupported cell %T", c)
	}
}

// InterpolatePoints classifies points and interpolates them in one step.
func InterpolatePoints(lat, lon float64, points []model.GridPoint) ([]float64, error) {
	c, err := NewCell(points)
	if err != nil {
		return nil, err
	}
	return Interpolate(lat, lon, c)
}

// Topology names the cell variant for logs and metrics.
func Topology(c Cell) string {
	switch c.(type) {
	case ExactMatch:
		return "exact"
	case EdgePair:
		return "edge"
	case Quad:
		return "quad"
	default:
		return "unknown"
	}
}
