// Package loader reads YAML dataset bundles and writes them into a store.
package loader

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/mohammed-shakir/hazard-curve-service/internal/core/model"
	"github.com/mohammed-shakir/hazard-curve-service/internal/hazard/errs"
	"github.com/mohammed-shakir/hazard-curve-service/internal/store"
	"github.com/mohammed-shakir/hazard-curve-service/internal/store/keys"
)

// Bundle is the root of a dataset file.
type Bundle struct {
	Regions  []model.Region `yaml:"regions"`
	Datasets []DatasetSpec  `yaml:"datasets"`
}

type DatasetSpec struct {
	model.Selector `yaml:",inline"`
	IML            []float64         `yaml:"iml"`
	Points         []model.GridPoint `yaml:"points"`
}

// Target is where bundles are written. Region lookups resolve datasets whose
// region was loaded by an earlier bundle.
type Target interface {
	store.Writer
	Region(ctx context.Context, value string) (model.Region, error)
}

type Summary struct {
	Regions  int
	Datasets int
	Points   int
}

// Load reads and parses the bundle at path.
func Load(path string) (*Bundle, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open bundle: %w", err)
	}
	defer func() { _ = f.Close() }()
	return Read(f)
}

// Read parses a bundle, rejecting unknown fields.
func Read(r io.Reader) (*Bundle, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var b Bundle
	if err := dec.Decode(&b); err != nil {
		if errors.Is(err, io.EOF) {
			return &b, nil
		}
		return nil, errs.Validation("parse bundle: %v", err)
	}
	return &b, nil
}

// Validate checks the bundle on its own. Datasets whose region is not in the
// bundle are left for Apply to resolve against the target.
func (b *Bundle) Validate() error {
	seen := make(map[string]struct{}, len(b.Regions))
	for i, r := range b.Regions {
		if err := validateRegion(r); err != nil {
			return fmt.Errorf("regions[%d]: %w", i, err)
		}
		if _, dup := seen[r.Value]; dup {
			return errs.Validation("regions[%d]: duplicate region %q", i, r.Value)
		}
		seen[r.Value] = struct{}{}
	}

	sels := make(map[string]struct{}, len(b.Datasets))
	for i, ds := range b.Datasets {
		if err := validateDataset(ds); err != nil {
			return fmt.Errorf("datasets[%d]: %w", i, err)
		}
		id := keys.DatasetID(ds.Selector)
		if _, dup := sels[id]; dup {
			return errs.Validation("datasets[%d]: duplicate dataset %s", i, ds.Selector)
		}
		sels[id] = struct{}{}
	}
	return nil
}

func validateRegion(r model.Region) error {
	switch {
	case r.Value == "":
		return errs.Validation("region value is required")
	case !(r.GridSpacing > 0):
		return errs.Validation("region %q: gridSpacing must be positive", r.Value)
	case r.MinLatitude > r.MaxLatitude || r.MinLongitude > r.MaxLongitude:
		return errs.Validation("region %q: min bounds exceed max bounds", r.Value)
	}
	return nil
}

func validateDataset(ds DatasetSpec) error {
	if ds.Edition == "" || ds.Region == "" || ds.SpectralPeriod == "" || ds.Vs30 == "" {
		return errs.Validation("edition, region, spectralPeriod and vs30 are required (%s)", ds.Selector)
	}
	if len(ds.IML) == 0 {
		return errs.Validation("%s: iml is empty", ds.Selector)
	}
	if len(ds.Points) == 0 {
		return errs.Validation("%s: no grid points", ds.Selector)
	}

	seen := make(map[string]struct{}, len(ds.Points))
	for j, p := range ds.Points {
		if len(p.AFE) != len(ds.IML) {
			return errs.DataIntegrity("%s: points[%d] (%g, %g) has %d afe values, iml has %d",
				ds.Selector, j, p.Latitude, p.Longitude, len(p.AFE), len(ds.IML))
		}
		m := keys.Member(p.Latitude, p.Longitude)
		if _, dup := seen[m]; dup {
			return errs.DataIntegrity("%s: duplicate grid point (%g, %g)", ds.Selector, p.Latitude, p.Longitude)
		}
		seen[m] = struct{}{}
	}
	return nil
}

// Apply validates b and writes its regions, then its datasets. Each dataset
// replaces any previous dataset with the same selector.
func Apply(ctx context.Context, t Target, b *Bundle, log *slog.Logger) (Summary, error) {
	if log == nil {
		log = slog.Default()
	}
	var sum Summary
	if err := b.Validate(); err != nil {
		return sum, err
	}

	regions := make(map[string]model.Region, len(b.Regions))
	for _, r := range b.Regions {
		regions[r.Value] = r
	}
	for _, ds := range b.Datasets {
		if _, ok := regions[ds.Region]; ok {
			continue
		}
		r, err := t.Region(ctx, ds.Region)
		if errors.Is(err, errs.ErrNotFound) {
			return sum, errs.Validation("%s: unknown region %q", ds.Selector, ds.Region)
		}
		if err != nil {
			return sum, fmt.Errorf("lookup region %q: %w", ds.Region, err)
		}
		regions[ds.Region] = r
	}

	for _, r := range b.Regions {
		if err := t.PutRegion(ctx, r); err != nil {
			return sum, fmt.Errorf("put region %q: %w", r.Value, err)
		}
		sum.Regions++
	}

	for _, entry := range b.Datasets {
		outside := 0
		r := regions[entry.Region]
		for _, p := range entry.Points {
			if !r.Contains(p.Latitude, p.Longitude) {
				outside++
			}
		}
		if outside > 0 {
			log.WarnContext(ctx, "grid points outside region bounds",
				"dataset", entry.Selector.String(), "region", r.Value, "count", outside)
		}

		ds, err := t.PutDataset(ctx, model.Dataset{Selector: entry.Selector, IML: entry.IML}, entry.Points)
		if err != nil {
			return sum, fmt.Errorf("put dataset %s: %w", entry.Selector, err)
		}
		log.InfoContext(ctx, "dataset loaded", "id", ds.ID, "points", len(entry.Points))
		sum.Datasets++
		sum.Points += len(entry.Points)
	}
	return sum, nil
}
