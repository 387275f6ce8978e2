package loader

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mohammed-shakir/hazard-curve-service/internal/core/model"
	"github.com/mohammed-shakir/hazard-curve-service/internal/hazard/errs"
	"github.com/mohammed-shakir/hazard-curve-service/internal/store/redisstore"
)

const bundleYAML = `
regions:
  - value: WUS0P05
    display: Western US
    minLatitude: 34
    maxLatitude: 34.05
    minLongitude: -118.05
    maxLongitude: -118
    gridSpacing: 0.05
datasets:
  - edition: E2014
    region: WUS0P05
    spectralPeriod: PGA
    vs30: "760"
    iml: [0.1, 0.2]
    points:
      - {latitude: 34, longitude: -118.05, afe: [0.01, 0.001]}
      - {latitude: 34, longitude: -118, afe: [0.02, 0.002]}
      - {latitude: 34.05, longitude: -118.05, afe: [0.03, 0.003]}
      - {latitude: 34.05, longitude: -118, afe: [0.04, 0.004]}
`

func newTarget(t *testing.T) *redisstore.Client {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	rc, err := redisstore.New(ctx, mr.Addr())
	require.NoError(t, err)
	t.Cleanup(func() { _ = rc.Close() })
	return rc
}

func TestRead_ParsesBundle(t *testing.T) {
	b, err := Read(strings.NewReader(bundleYAML))
	require.NoError(t, err)
	require.Len(t, b.Regions, 1)
	require.Len(t, b.Datasets, 1)

	ds := b.Datasets[0]
	assert.Equal(t, model.Selector{Edition: "E2014", Region: "WUS0P05", SpectralPeriod: "PGA", Vs30: "760"}, ds.Selector)
	assert.Equal(t, []float64{0.1, 0.2}, ds.IML)
	assert.Len(t, ds.Points, 4)
	assert.Equal(t, 0.05, b.Regions[0].GridSpacing)
}

func TestRead_RejectsUnknownFields(t *testing.T) {
	_, err := Read(strings.NewReader("regions: []\nextra: 1\n"))
	assert.ErrorIs(t, err, errs.ErrValidation)
}

func TestRead_EmptyInput(t *testing.T) {
	b, err := Read(strings.NewReader(""))
	require.NoError(t, err)
	assert.Empty(t, b.Datasets)
}

func TestApply_WritesIntoStore(t *testing.T) {
	rc := newTarget(t)
	b, err := Read(strings.NewReader(bundleYAML))
	require.NoError(t, err)

	sum, err := Apply(context.Background(), rc, b, nil)
	require.NoError(t, err)
	assert.Equal(t, Summary{Regions: 1, Datasets: 1, Points: 4}, sum)

	ctx := context.Background()
	ds, err := rc.Dataset(ctx, b.Datasets[0].Selector)
	require.NoError(t, err)
	pts, err := rc.GridPoints(ctx, ds.ID, model.BBox{MinLatitude: 34, MaxLatitude: 34.05, MinLongitude: -118.05, MaxLongitude: -118})
	require.NoError(t, err)
	assert.Len(t, pts, 4)
}

func TestApply_ResolvesRegionFromTarget(t *testing.T) {
	rc := newTarget(t)
	b, err := Read(strings.NewReader(bundleYAML))
	require.NoError(t, err)
	_, err = Apply(context.Background(), rc, b, nil)
	require.NoError(t, err)

	// second bundle references the stored region only
	b.Regions = nil
	b.Datasets[0].SpectralPeriod = "SA1P0"
	sum, err := Apply(context.Background(), rc, b, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, sum.Datasets)
}

func TestApply_UnknownRegion(t *testing.T) {
	rc := newTarget(t)
	b, err := Read(strings.NewReader(bundleYAML))
	require.NoError(t, err)
	b.Regions = nil

	_, err = Apply(context.Background(), rc, b, nil)
	assert.ErrorIs(t, err, errs.ErrValidation)
}

func TestValidate(t *testing.T) {
	base := func() *Bundle {
		b, err := Read(strings.NewReader(bundleYAML))
		require.NoError(t, err)
		return b
	}

	cases := map[string]struct {
		mutate func(b *Bundle)
		want   error
	}{
		"afe length": {func(b *Bundle) { b.Datasets[0].Points[2].AFE = []float64{1} }, errs.ErrDataIntegrity},
		"duplicate point": {func(b *Bundle) {
			b.Datasets[0].Points[1] = b.Datasets[0].Points[0]
		}, errs.ErrDataIntegrity},
		"spacing":      {func(b *Bundle) { b.Regions[0].GridSpacing = 0 }, errs.ErrValidation},
		"bounds":       {func(b *Bundle) { b.Regions[0].MinLatitude = 50 }, errs.ErrValidation},
		"missing vs30": {func(b *Bundle) { b.Datasets[0].Vs30 = "" }, errs.ErrValidation},
		"empty iml":    {func(b *Bundle) { b.Datasets[0].IML = nil }, errs.ErrValidation},
		"duplicate region": {func(b *Bundle) {
			b.Regions = append(b.Regions, b.Regions[0])
		}, errs.ErrValidation},
		"duplicate dataset": {func(b *Bundle) {
			b.Datasets = append(b.Datasets, b.Datasets[0])
		}, errs.ErrValidation},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			b := base()
			tc.mutate(b)
			err := b.Validate()
			if !errors.Is(err, tc.want) {
				t.Fatalf("got %v want %v", err, tc.want)
			}
		})
	}
}
