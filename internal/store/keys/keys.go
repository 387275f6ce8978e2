// Package keys builds the Redis key layout for hazard datasets.
package keys

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"

	"github.com/cespare/xxhash/v2"

	"github.com/mohammed-shakir/hazard-curve-service/internal/core/model"
)

const (
	Regions  = "hazard:regions"
	Datasets = "hazard:datasets"
)

// DatasetID derives a stable identifier from a selector. The readable
// segments are sanitized and truncated; the hash suffix keeps ids unique
// when sanitizing collapses distinct values.
func DatasetID(sel model.Selector) string {
	raw := strings.Join([]string{
		strings.TrimSpace(sel.Edition),
		strings.TrimSpace(sel.Region),
		strings.TrimSpace(sel.SpectralPeriod),
		strings.TrimSpace(sel.Vs30),
	}, "\x1f")
	sum := xxhash.Sum64String(raw)

	return fmt.Sprintf("ds:%s:%s:%s:%s:h=%016x",
		segment(sel.Edition), segment(sel.Region), segment(sel.SpectralPeriod), segment(sel.Vs30), sum)
}

// Rows is the sorted set of row latitudes (Coord encoded) scored by latitude.
func Rows(datasetID string) string { return datasetID + ":rows" }

// Row is the sorted set of "lat,lon" members on one latitude row, scored by
// longitude. lat is a member of Rows.
func Row(datasetID, lat string) string { return datasetID + ":row:" + lat }

// AFE is the hash of "lat,lon" members to JSON encoded afe values.
func AFE(datasetID string) string { return datasetID + ":afe" }

// Coord is the shortest exact text form of a coordinate.
func Coord(v float64) string { return strconv.FormatFloat(v, 'g', -1, 64) }

func Member(lat, lon float64) string { return Coord(lat) + "," + Coord(lon) }

func ParseMember(m string) (lat, lon float64, err error) {
	a, b, ok := strings.Cut(m, ",")
	if !ok {
		return 0, 0, fmt.Errorf("grid member %q: missing comma", m)
	}
	if lat, err = strconv.ParseFloat(a, 64); err != nil {
		return 0, 0, fmt.Errorf("grid member %q latitude: %w", m, err)
	}
	if lon, err = strconv.ParseFloat(b, 64); err != nil {
		return 0, 0, fmt.Errorf("grid member %q longitude: %w", m, err)
	}
	return lat, lon, nil
}

func segment(s string) string {
	const maxSegmentLen = 32
	out := sanitize(strings.TrimSpace(s))
	if len(out) > maxSegmentLen {
		out = out[:maxSegmentLen]
	}
	if out == "" {
		out = "-"
	}
	return out
}

// sanitize keeps [A-Za-z0-9._-], maps whitespace to '_' and anything else
// to '-', collapsing repeats.
func sanitize(s string) string {
	var b strings.Builder
	b.Grow(len(s))

	var prev rune
	for _, r := range s {
		var out rune
		switch {
		case unicode.IsSpace(r):
			out = '_'
		case isAlphaNum(r) || r == '.' || r == '_' || r == '-':
			out = r
		default:
			out = '-'
		}
		if (out == '_' || out == '-') && out == prev {
			continue
		}
		b.WriteRune(out)
		prev = out
	}
	return b.String()
}

func isAlphaNum(r rune) bool {
	return (r >= 'a' && r <= 'z') ||
		(r >= 'A' && r <= 'Z') ||
		(r >= '0' && r <= '9')
}
