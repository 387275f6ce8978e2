// Package curve packages interpolated exceedance values into response curves.
package curve

import (
	"github.com/jonboulle/clockwork"

	"github.com/mohammed-shakir/hazard-curve-service/internal/core/model"
)

// Assembler zips an IML axis with AFE values. The clock is the only state.
type Assembler struct {
	clock clockwork.Clock
}

// New returns an Assembler using c for timestamps. A nil clock means real time.
func New(c clockwork.Clock) *Assembler {
	if c == nil {
		c = clockwork.NewRealClock()
	}
	return &Assembler{clock: c}
}

// Assemble pairs iml[i] with afe[i] in axis order and stamps meta with the
// assembly time.
func (a *Assembler) Assemble(iml, afe []float64, meta model.CurveMetadata) model.InterpolatedCurve {
	n := min(len(iml), len(afe))
	data := make([]model.Point, n)
	for i := range n {
		data[i] = model.Point{X: iml[i], Y: afe[i]}
	}
	meta.Date = a.clock.Now().UTC()
	return model.InterpolatedCurve{Metadata: meta, Data: data}
}

// Metadata echoes a resolved query.
func Metadata(q model.Query) model.CurveMetadata {
	return model.CurveMetadata{
		Edition:        q.Edition,
		Region:         q.Region,
		SpectralPeriod: q.SpectralPeriod,
		Vs30:           q.Vs30,
		Latitude:       q.Latitude,
		Longitude:      q.Longitude,
	}
}
