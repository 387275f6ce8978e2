// Package cached wraps a store.Reader with an in-process LRU for region and
// dataset metadata. Entries expire after a TTL so reloaded datasets become
// visible without a restart. Grid points are never cached.
package cached

import (
	"context"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/mohammed-shakir/hazard-curve-service/internal/core/model"
	"github.com/mohammed-shakir/hazard-curve-service/internal/core/observability"
	"github.com/mohammed-shakir/hazard-curve-service/internal/store"
	"github.com/mohammed-shakir/hazard-curve-service/internal/store/keys"
)

const (
	defaultSize = 256
	defaultTTL  = time.Minute
)

type Reader struct {
	next     store.Reader
	regions  *expirable.LRU[string, model.Region]
	datasets *expirable.LRU[string, model.Dataset]
}

var _ store.Reader = (*Reader)(nil)

// New caches up to size regions and size datasets for ttl each. Zero values
// pick the defaults.
func New(next store.Reader, size int, ttl time.Duration) *Reader {
	if size <= 0 {
		size = defaultSize
	}
	if ttl <= 0 {
		ttl = defaultTTL
	}
	return &Reader{
		next:     next,
		regions:  expirable.NewLRU[string, model.Region](size, nil, ttl),
		datasets: expirable.NewLRU[string, model.Dataset](size, nil, ttl),
	}
}

func (c *Reader) Region(ctx context.Context, value string) (model.Region, error) {
	if r, ok := c.regions.Get(value); ok {
		observability.IncMetadataCache("region", true)
		return r, nil
	}
	observability.IncMetadataCache("region", false)

	r, err := c.next.Region(ctx, value)
	if err != nil {
		return model.Region{}, err
	}
	c.regions.Add(value, r)
	return r, nil
}

func (c *Reader) Regions(ctx context.Context) ([]model.Region, error) {
	return c.next.Regions(ctx)
}

func (c *Reader) Dataset(ctx context.Context, sel model.Selector) (model.Dataset, error) {
	id := keys.DatasetID(sel)
	if ds, ok := c.datasets.Get(id); ok {
		observability.IncMetadataCache("dataset", true)
		return ds, nil
	}
	observability.IncMetadataCache("dataset", false)

	ds, err := c.next.Dataset(ctx, sel)
	if err != nil {
		return model.Dataset{}, err
	}
	c.datasets.Add(id, ds)
	return ds, nil
}

func (c *Reader) Datasets(ctx context.Context) ([]model.Dataset, error) {
	return c.next.Datasets(ctx)
}

func (c *Reader) GridPoints(ctx context.Context, datasetID string, box model.BBox) ([]model.GridPoint, error) {
	return c.next.GridPoints(ctx, datasetID, box)
}
