package hub

import (
	"context"
	"sync"
	"time"

	"github.com/bytedance/sonic"
	"github.com/yanun0323/errors"
	"github.com/yanun0323/logs"

	"cryptoflow/internal/model"
)

// CacheKey names one cacheable payload.
type CacheKey string

const (
	CacheLiquidations   CacheKey = "liquidations"
	CacheClimacticMoves CacheKey = "climacticMoves"
	CacheVolumeAnalysis CacheKey = "volumeAnalysis"
	CacheMarketMovers   CacheKey = "marketMovers"
	CacheOptionsFlow    CacheKey = "optionsFlow"
)

var CacheKeys = []CacheKey{CacheLiquidations, CacheClimacticMoves, CacheVolumeAnalysis, CacheMarketMovers, CacheOptionsFlow}

// Mirror persists encoded cache payloads outside the process.
type Mirror interface {
	Save(ctx context.Context, key string, payload []byte) error
	Load(ctx context.Context, key string) ([]byte, error)
}

// SnapshotCache holds the last computed payload per key. Each key has one
// writer, its refresher. Payloads are replaced, never mutated in place.
type SnapshotCache struct {
	mu     sync.RWMutex
	snap   model.InitialSnapshot
	mirror Mirror
}

func NewSnapshotCache(mirror Mirror) *SnapshotCache {
	return &SnapshotCache{mirror: mirror}
}

// Snapshot returns the latest fully written payloads.
func (c *SnapshotCache) Snapshot() model.InitialSnapshot {
	c.mu.RLock()
	snap := c.snap
	c.mu.RUnlock()
	snap.Timestamp = time.Now()
	return snap.Normalize()
}

func (c *SnapshotCache) SetLiquidations(rows []model.LiquidationRow) {
	c.mu.Lock()
	c.snap.Liquidations = rows
	c.mu.Unlock()
}

func (c *SnapshotCache) SetClimacticMoves(rows []model.ClimacticRow) {
	c.mu.Lock()
	c.snap.ClimacticMoves = rows
	c.mu.Unlock()
}

func (c *SnapshotCache) SetVolumeAnalysis(rows []model.VolumeRow) {
	c.mu.Lock()
	c.snap.VolumeAnalysis = rows
	c.mu.Unlock()
}

func (c *SnapshotCache) SetMarketMovers(movers model.MarketMovers) {
	c.mu.Lock()
	c.snap.MarketMovers = movers
	c.mu.Unlock()
}

func (c *SnapshotCache) SetOptionsFlow(rows []model.OptionFlow) {
	c.mu.Lock()
	c.snap.OptionsFlow = rows
	c.mu.Unlock()
}

// Mirror writes payload under key when a mirror is configured.
func (c *SnapshotCache) Mirror(ctx context.Context, key CacheKey, payload any) error {
	if c.mirror == nil {
		return nil
	}
	b, err := sonic.Marshal(payload)
	if err != nil {
		return errors.Wrap(err, "marshal cache payload").With("key", key)
	}
	if err := c.mirror.Save(ctx, string(key), b); err != nil {
		return errors.Wrap(err, "save cache payload").With("key", key)
	}
	return nil
}

// Warm loads every mirrored payload. Missing or broken keys are skipped.
func (c *SnapshotCache) Warm(ctx context.Context) int {
	if c.mirror == nil {
		return 0
	}

	loaded := 0
	for _, key := range CacheKeys {
		b, err := c.mirror.Load(ctx, string(key))
		if err != nil {
			continue
		}
		if err := c.restore(key, b); err != nil {
			logs.Warnf("hub cache: skip mirrored %s, err: %+v", key, err)
			continue
		}
		loaded++
	}
	return loaded
}

func (c *SnapshotCache) restore(key CacheKey, b []byte) error {
	switch key {
	case CacheLiquidations:
		var rows []model.LiquidationRow
		if err := sonic.Unmarshal(b, &rows); err != nil {
			return err
		}
		c.SetLiquidations(rows)
	case CacheClimacticMoves:
		var rows []model.ClimacticRow
		if err := sonic.Unmarshal(b, &rows); err != nil {
			return err
		}
		c.SetClimacticMoves(rows)
	case CacheVolumeAnalysis:
		var rows []model.VolumeRow
		if err := sonic.Unmarshal(b, &rows); err != nil {
			return err
		}
		c.SetVolumeAnalysis(rows)
	case CacheMarketMovers:
		var movers model.MarketMovers
		if err := sonic.Unmarshal(b, &movers); err != nil {
			return err
		}
		c.SetMarketMovers(movers)
	case CacheOptionsFlow:
		var rows []model.OptionFlow
		if err := sonic.Unmarshal(b, &rows); err != nil {
			return err
		}
		c.SetOptionsFlow(rows)
	}
	return nil
}
