package modbusgw

import (
	"context"
	"time"

	"github.com/fluxionwatt/modbusgw/internal/models"
)

// requestBudget is the wall-clock deadline enforced around every
// data-plane call: a request that doesn't complete within it is treated
// as hitting a wedged device, and the gateway transport is reset instead
// of left to finish on its own schedule.
const requestBudget = 5 * time.Second

// Pipeline is the single entry point the HTTP layer calls for data-plane
// reads and writes: it resolves caching, dispatches onto the
// ClientManager, and records metrics, so handlers never touch Gateway or
// Cache directly.
type Pipeline struct {
	mgr     *ClientManager
	cache   *Cache
	metrics *Metrics
	pub     *Publisher
}

func NewPipeline(mgr *ClientManager, cache *Cache, metrics *Metrics, pub *Publisher) *Pipeline {
	return &Pipeline{mgr: mgr, cache: cache, metrics: metrics, pub: pub}
}

// ReadResult is returned to HTTP handlers for a data-plane read.
type ReadResult struct {
	DeviceID     string         `json:"device_id"`
	RegisterType models.RegType `json:"register_type"`
	Address      int            `json:"address"`
	Count        int            `json:"count"`
	Values       []uint16       `json:"values"`
	Source       string         `json:"source"`
	CachedAt     *time.Time     `json:"cached_at,omitempty"`
}

// Read serves a register/bit read from the cache when a fresh entry
// exists; otherwise it performs a live read through the ClientManager and
// populates the cache for subsequent callers. The call is bounded by
// requestBudget regardless of the caller's own context.
func (p *Pipeline) Read(ctx context.Context, deviceID string, regType models.RegType, address, count int, fresh bool) (*ReadResult, error) {
	key := models.CacheKey(deviceID, regType, address, count)

	if !fresh {
		if values, readAt, ok := p.cache.Get(key); ok {
			at := readAt
			return &ReadResult{
				DeviceID:     deviceID,
				RegisterType: regType,
				Address:      address,
				Count:        count,
				Values:       values,
				Source:       "cache",
				CachedAt:     &at,
			}, nil
		}
	}

	ctx, cancel := context.WithTimeout(ctx, requestBudget)
	defer cancel()

	start := time.Now()
	values, err := p.mgr.Read(ctx, deviceID, regType, address, count)
	p.metrics.RecordModbusCall(err == nil, time.Since(start))
	if err != nil {
		return nil, err
	}

	p.cache.Set(key, values)
	return &ReadResult{
		DeviceID:     deviceID,
		RegisterType: regType,
		Address:      address,
		Count:        count,
		Values:       values,
		Source:       "live",
	}, nil
}

// Write performs a live write through the ClientManager, then invalidates
// any cached reading covering the same address so the next read observes
// the new value instead of a stale cache hit. The call is bounded by
// requestBudget regardless of the caller's own context.
func (p *Pipeline) Write(ctx context.Context, deviceID string, regType models.RegType, address int, value uint16) error {
	ctx, cancel := context.WithTimeout(ctx, requestBudget)
	defer cancel()

	start := time.Now()
	err := p.mgr.Write(ctx, deviceID, regType, address, value)
	p.metrics.RecordModbusCall(err == nil, time.Since(start))
	if err != nil {
		return err
	}

	p.cache.InvalidatePrefix(deviceID + ":" + string(regType) + ":")
	p.pub.Publish(deviceID, regType, address, []uint16{value})
	return nil
}
