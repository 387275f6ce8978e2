// Package model defines core domain types shared across the service.
package model

import (
	"encoding/json"
	"fmt"
	"time"
)

// GridPoint is one precomputed hazard curve sample on a region lattice.
// AFE is ordered index-for-index with the owning dataset's IML axis.
type GridPoint struct {
	Latitude  float64   `json:"latitude" yaml:"latitude"`
	Longitude float64   `json:"longitude" yaml:"longitude"`
	AFE       []float64 `json:"afe" yaml:"afe"`
}

type Region struct {
	Value        string  `json:"value" yaml:"value"`
	Display      string  `json:"display,omitempty" yaml:"display,omitempty"`
	MinLatitude  float64 `json:"minLatitude" yaml:"minLatitude"`
	MaxLatitude  float64 `json:"maxLatitude" yaml:"maxLatitude"`
	MinLongitude float64 `json:"minLongitude" yaml:"minLongitude"`
	MaxLongitude float64 `json:"maxLongitude" yaml:"maxLongitude"`
	GridSpacing  float64 `json:"gridSpacing" yaml:"gridSpacing"`
}

// Contains reports whether the point lies inside the region bounds (inclusive).
func (r Region) Contains(lat, lon float64) bool {
	return lat >= r.MinLatitude && lat <= r.MaxLatitude &&
		lon >= r.MinLongitude && lon <= r.MaxLongitude
}

// Selector identifies exactly one curve family.
type Selector struct {
	Edition        string `json:"edition" yaml:"edition"`
	Region         string `json:"region" yaml:"region"`
	SpectralPeriod string `json:"spectralPeriod" yaml:"spectralPeriod"`
	Vs30           string `json:"vs30" yaml:"vs30"`
}

func (s Selector) String() string {
	return fmt.Sprintf("edition=%s region=%s spectralPeriod=%s vs30=%s",
		s.Edition, s.Region, s.SpectralPeriod, s.Vs30)
}

type Dataset struct {
	ID string `json:"id"`
	Selector
	IML []float64 `json:"iml"`
}

// Query is a fully resolved request for a single curve.
type Query struct {
	Latitude       float64
	Longitude      float64
	Edition        string
	Region         string
	SpectralPeriod string
	Vs30           string
}

func (q Query) Selector() Selector {
	return Selector{
		Edition:        q.Edition,
		Region:         q.Region,
		SpectralPeriod: q.SpectralPeriod,
		Vs30:           q.Vs30,
	}
}

// CurveRequest is what a caller asks for. Region and SpectralPeriod may be
// empty, in which case they are expanded against the available datasets.
type CurveRequest struct {
	Latitude       float64
	Longitude      float64
	Edition        string
	Region         string
	SpectralPeriod string
	Vs30           string
}

// BBox is an inclusive latitude/longitude search box.
type BBox struct {
	MinLatitude  float64
	MaxLatitude  float64
	MinLongitude float64
	MaxLongitude float64
}

func (b BBox) Contains(lat, lon float64) bool {
	return lat >= b.MinLatitude && lat <= b.MaxLatitude &&
		lon >= b.MinLongitude && lon <= b.MaxLongitude
}

func (b BBox) String() string {
	return fmt.Sprintf("%.6f,%.6f,%.6f,%.6f", b.MinLongitude, b.MinLatitude, b.MaxLongitude, b.MaxLatitude)
}

// Point is one (iml, afe) pair, encoded as a two element JSON array.
type Point struct {
	X float64
	Y float64
}

func (p Point) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]float64{p.X, p.Y})
}

func (p *Point) UnmarshalJSON(b []byte) error {
	var xy [2]float64
	if err := json.Unmarshal(b, &xy); err != nil {
		return fmt.Errorf("point: %w", err)
	}
	p.X, p.Y = xy[0], xy[1]
	return nil
}

type CurveMetadata struct {
	Edition        string    `json:"edition"`
	Region         string    `json:"region"`
	SpectralPeriod string    `json:"spectralPeriod"`
	Vs30           string    `json:"vs30"`
	Latitude       float64   `json:"latitude"`
	Longitude      float64   `json:"longitude"`
	Date           time.Time `json:"date"`
}

type InterpolatedCurve struct {
	Metadata CurveMetadata `json:"metadata"`
	Data     []Point       `json:"data"`
}
