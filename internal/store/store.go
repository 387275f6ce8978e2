// Package store defines the dataset store contracts used by the hazard
// service and the loader.
package store

import (
	"context"

	"github.com/mohammed-shakir/hazard-curve-service/internal/core/model"
)

// Reader looks up regions, datasets and grid points. Lookups of unknown
// regions or datasets fail with errs.ErrNotFound.
type Reader interface {
	Region(ctx context.Context, value string) (model.Region, error)
	Regions(ctx context.Context) ([]model.Region, error)
	Dataset(ctx context.Context, sel model.Selector) (model.Dataset, error)
	Datasets(ctx context.Context) ([]model.Dataset, error)
	GridPoints(ctx context.Context, datasetID string, box model.BBox) ([]model.GridPoint, error)
}

// Writer replaces regions and datasets. PutDataset returns the dataset
// with its assigned ID.
type Writer interface {
	PutRegion(ctx context.Context, r model.Region) error
	PutDataset(ctx context.Context, ds model.Dataset, points []model.GridPoint) (model.Dataset, error)
}

type Pinger interface {
	Ping(ctx context.Context) error
}
