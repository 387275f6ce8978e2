// Package redisstore keeps hazard regions, datasets and grid points in Redis.
package redisstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/redis/go-redis/v9"
	maintnotifications "github.com/redis/go-redis/v9/maintnotifications"

	"github.com/mohammed-shakir/hazard-curve-service/internal/core/model"
	"github.com/mohammed-shakir/hazard-curve-service/internal/core/observability"
	"github.com/mohammed-shakir/hazard-curve-service/internal/hazard/errs"
	"github.com/mohammed-shakir/hazard-curve-service/internal/store/keys"
)

type settings struct {
	redis     *redis.Options
	opTimeout time.Duration
}

type Option func(*settings)

func WithPoolSize(n int) Option {
	return func(s *settings) { s.redis.PoolSize = n }
}

func WithDialTimeout(d time.Duration) Option {
	return func(s *settings) { s.redis.DialTimeout = d }
}

func WithReadTimeout(d time.Duration) Option {
	return func(s *settings) { s.redis.ReadTimeout = d }
}

func WithWriteTimeout(d time.Duration) Option {
	return func(s *settings) { s.redis.WriteTimeout = d }
}

// WithOpTimeout bounds every store call. Zero leaves the caller's context alone.
func WithOpTimeout(d time.Duration) Option {
	return func(s *settings) { s.opTimeout = d }
}

type Client struct {
	rdb       *redis.Client
	opTimeout time.Duration
}

// members per ZADD/HSET command when writing a dataset
const writeChunk = 1000

func New(ctx context.Context, addr string, opts ...Option) (*Client, error) {
	if addr == "" {
		return nil, errors.New("redis address is required")
	}

	s := &settings{
		redis: &redis.Options{
			Addr:         addr,
			PoolSize:     32,
			MinIdleConns: 2,
			DialTimeout:  2 * time.Second,
			ReadTimeout:  2 * time.Second,
			WriteTimeout: 2 * time.Second,
			MaintNotificationsConfig: &maintnotifications.Config{
				Mode: maintnotifications.ModeDisabled,
			},
		},
	}
	for _, f := range opts {
		f(s)
	}

	rdb := redis.NewClient(s.redis)
	c := &Client{rdb: rdb, opTimeout: s.opTimeout}
	if err := c.Ping(ctx); err != nil {
		_ = rdb.Close()
		return nil, err
	}
	return c, nil
}

func (c *Client) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.opTimeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, c.opTimeout)
}

func (c *Client) Ping(ctx context.Context) error {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	start := time.Now()
	err := c.rdb.Ping(ctx).Err()
	observability.ObserveStoreOp("ping", err, time.Since(start).Seconds())
	if err != nil {
		return fmt.Errorf("redis ping: %w", err)
	}
	return nil
}

func (c *Client) Close() error {
	if err := c.rdb.Close(); err != nil {
		return fmt.Errorf("redis close: %w", err)
	}
	return nil
}

func (c *Client) Region(ctx context.Context, value string) (model.Region, error) {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	start := time.Now()
	raw, err := c.rdb.HGet(ctx, keys.Regions, value).Result()
	if errors.Is(err, redis.Nil) {
		err = errs.NotFound("region %q", value)
	} else if err != nil {
		err = fmt.Errorf("redis HGET region %q: %w", value, err)
	}
	observability.ObserveStoreOp("region", err, time.Since(start).Seconds())
	if err != nil {
		return model.Region{}, err
	}

	var r model.Region
	if err := json.Unmarshal([]byte(raw), &r); err != nil {
		return model.Region{}, errs.DataIntegrity("decode region %q: %v", value, err)
	}
	return r, nil
}

func (c *Client) Regions(ctx context.Context) ([]model.Region, error) {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	start := time.Now()
	vals, err := c.rdb.HVals(ctx, keys.Regions).Result()
	observability.ObserveStoreOp("regions", err, time.Since(start).Seconds())
	if err != nil {
		return nil, fmt.Errorf("redis HVALS regions: %w", err)
	}

	out := make([]model.Region, 0, len(vals))
	for _, raw := range vals {
		var r model.Region
		if err := json.Unmarshal([]byte(raw), &r); err != nil {
			return nil, errs.DataIntegrity("decode region: %v", err)
		}
		out = append(out, r)
	}
	slices.SortFunc(out, func(a, b model.Region) int {
		switch {
		case a.Value < b.Value:
			return -1
		case a.Value > b.Value:
			return 1
		}
		return 0
	})
	return out, nil
}

func (c *Client) Dataset(ctx context.Context, sel model.Selector) (model.Dataset, error) {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	id := keys.DatasetID(sel)
	start := time.Now()
	raw, err := c.rdb.HGet(ctx, keys.Datasets, id).Result()
	if errors.Is(err, redis.Nil) {
		err = errs.NotFound("dataset %s", sel)
	} else if err != nil {
		err = fmt.Errorf("redis HGET dataset %s: %w", id, err)
	}
	observability.ObserveStoreOp("dataset", err, time.Since(start).Seconds())
	if err != nil {
		return model.Dataset{}, err
	}

	var ds model.Dataset
	if err := json.Unmarshal([]byte(raw), &ds); err != nil {
		return model.Dataset{}, errs.DataIntegrity("decode dataset %s: %v", id, err)
	}
	ds.ID = id
	return ds, nil
}

func (c *Client) Datasets(ctx context.Context) ([]model.Dataset, error) {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	start := time.Now()
	all, err := c.rdb.HGetAll(ctx, keys.Datasets).Result()
	observability.ObserveStoreOp("datasets", err, time.Since(start).Seconds())
	if err != nil {
		return nil, fmt.Errorf("redis HGETALL datasets: %w", err)
	}

	out := make([]model.Dataset, 0, len(all))
	for id, raw := range all {
		var ds model.Dataset
		if err := json.Unmarshal([]byte(raw), &ds); err != nil {
			return nil, errs.DataIntegrity("decode dataset %s: %v", id, err)
		}
		ds.ID = id
		out = append(out, ds)
	}
	slices.SortFunc(out, func(a, b model.Dataset) int {
		switch {
		case a.ID < b.ID:
			return -1
		case a.ID > b.ID:
			return 1
		}
		return 0
	})
	return out, nil
}

// GridPoints ranges the row index over the box latitudes, then each row over
// the box longitudes, and loads the matching afe values. A box one spacing
// wide touches at most three rows of three points.
func (c *Client) GridPoints(ctx context.Context, datasetID string, box model.BBox) ([]model.GridPoint, error) {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	start := time.Now()
	rows, err := c.rdb.ZRangeByScore(ctx, keys.Rows(datasetID), &redis.ZRangeBy{
		Min: keys.Coord(box.MinLatitude),
		Max: keys.Coord(box.MaxLatitude),
	}).Result()
	if err != nil {
		observability.ObserveStoreOp("grid_points", err, time.Since(start).Seconds())
		return nil, fmt.Errorf("redis ZRANGEBYSCORE %s rows: %w", datasetID, err)
	}
	if len(rows) == 0 {
		observability.ObserveStoreOp("grid_points", nil, time.Since(start).Seconds())
		return nil, nil
	}

	cmds, err := c.rdb.Pipelined(ctx, func(p redis.Pipeliner) error {
		for _, lat := range rows {
			p.ZRangeByScore(ctx, keys.Row(datasetID, lat), &redis.ZRangeBy{
				Min: keys.Coord(box.MinLongitude),
				Max: keys.Coord(box.MaxLongitude),
			})
		}
		return nil
	})
	if err != nil {
		observability.ObserveStoreOp("grid_points", err, time.Since(start).Seconds())
		return nil, fmt.Errorf("redis ZRANGEBYSCORE %s %d rows: %w", datasetID, len(rows), err)
	}

	var members []string
	for _, cmd := range cmds {
		ms, err := cmd.(*redis.StringSliceCmd).Result()
		if err != nil {
			observability.ObserveStoreOp("grid_points", err, time.Since(start).Seconds())
			return nil, fmt.Errorf("redis ZRANGEBYSCORE %s row: %w", datasetID, err)
		}
		members = append(members, ms...)
	}

	var (
		fields []string
		points []model.GridPoint
	)
	for _, m := range members {
		lat, lon, err := keys.ParseMember(m)
		if err != nil {
			observability.ObserveStoreOp("grid_points", err, time.Since(start).Seconds())
			return nil, errs.DataIntegrity("%s: %v", datasetID, err)
		}
		fields = append(fields, m)
		points = append(points, model.GridPoint{Latitude: lat, Longitude: lon})
	}
	if len(fields) == 0 {
		observability.ObserveStoreOp("grid_points", nil, time.Since(start).Seconds())
		return nil, nil
	}

	vals, err := c.rdb.HMGet(ctx, keys.AFE(datasetID), fields...).Result()
	observability.ObserveStoreOp("grid_points", err, time.Since(start).Seconds())
	if err != nil {
		return nil, fmt.Errorf("redis HMGET %s %d fields: %w", datasetID, len(fields), err)
	}

	for i, v := range vals {
		s, ok := v.(string)
		if !ok {
			return nil, errs.DataIntegrity("%s: grid point %s has no afe values", datasetID, fields[i])
		}
		if err := json.Unmarshal([]byte(s), &points[i].AFE); err != nil {
			return nil, errs.DataIntegrity("%s: decode afe for %s: %v", datasetID, fields[i], err)
		}
	}
	return points, nil
}

func (c *Client) PutRegion(ctx context.Context, r model.Region) error {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	if r.Value == "" {
		return errs.Validation("region value is required")
	}
	b, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("encode region %q: %w", r.Value, err)
	}

	start := time.Now()
	err = c.rdb.HSet(ctx, keys.Regions, r.Value, b).Err()
	observability.ObserveStoreOp("put_region", err, time.Since(start).Seconds())
	if err != nil {
		return fmt.Errorf("redis HSET region %q: %w", r.Value, err)
	}
	return nil
}

// PutDataset replaces the dataset metadata and all of its grid points in
// one transaction.
func (c *Client) PutDataset(ctx context.Context, ds model.Dataset, points []model.GridPoint) (model.Dataset, error) {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	ds.ID = keys.DatasetID(ds.Selector)
	for _, p := range points {
		if len(p.AFE) != len(ds.IML) {
			return model.Dataset{}, errs.DataIntegrity("grid point (%g, %g) has %d afe values, iml has %d",
				p.Latitude, p.Longitude, len(p.AFE), len(ds.IML))
		}
	}

	meta, err := json.Marshal(ds)
	if err != nil {
		return model.Dataset{}, fmt.Errorf("encode dataset %s: %w", ds.ID, err)
	}

	start := time.Now()
	oldRows, err := c.rdb.ZRange(ctx, keys.Rows(ds.ID), 0, -1).Result()
	if err != nil {
		observability.ObserveStoreOp("put_dataset", err, time.Since(start).Seconds())
		return model.Dataset{}, fmt.Errorf("redis ZRANGE %s rows: %w", ds.ID, err)
	}

	_, err = c.rdb.TxPipelined(ctx, func(p redis.Pipeliner) error {
		stale := []string{keys.Rows(ds.ID), keys.AFE(ds.ID)}
		for _, lat := range oldRows {
			stale = append(stale, keys.Row(ds.ID, lat))
		}
		p.Del(ctx, stale...)

		for chunk := range slices.Chunk(points, writeChunk) {
			rows := make(map[string][]redis.Z)
			afe := make(map[string]any, len(chunk))
			for _, gp := range chunk {
				m := keys.Member(gp.Latitude, gp.Longitude)
				b, err := json.Marshal(gp.AFE)
				if err != nil {
					return fmt.Errorf("encode afe for %s: %w", m, err)
				}
				lat := keys.Coord(gp.Latitude)
				if _, ok := rows[lat]; !ok {
					p.ZAdd(ctx, keys.Rows(ds.ID), redis.Z{Score: gp.Latitude, Member: lat})
				}
				rows[lat] = append(rows[lat], redis.Z{Score: gp.Longitude, Member: m})
				afe[m] = b
			}
			for lat, zs := range rows {
				p.ZAdd(ctx, keys.Row(ds.ID, lat), zs...)
			}
			p.HSet(ctx, keys.AFE(ds.ID), afe)
		}
		p.HSet(ctx, keys.Datasets, ds.ID, meta)
		return nil
	})
	observability.ObserveStoreOp("put_dataset", err, time.Since(start).Seconds())
	if err != nil {
		return model.Dataset{}, fmt.Errorf("redis write dataset %s (%d points): %w", ds.ID, len(points), err)
	}
	return ds, nil
}
