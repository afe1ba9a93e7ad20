package modbusgw

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/fluxionwatt/modbusgw/internal/models"
	"github.com/sirupsen/logrus"
)

func testLogger() logrus.FieldLogger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return logrus.NewEntry(l)
}

func TestPipelineReadServesFromCache(t *testing.T) {
	cache := NewCache(time.Minute)
	metrics := NewMetrics()
	pub := &Publisher{enabled: false}
	p := NewPipeline(nil, cache, metrics, pub)

	key := models.CacheKey("dev1", models.RegHolding, 0, 2)
	cache.Set(key, []uint16{10, 20})

	result, err := p.Read(context.Background(), "dev1", models.RegHolding, 0, 2, false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Source != "cache" {
		t.Errorf("expected source=cache, got %s", result.Source)
	}
	if result.CachedAt == nil {
		t.Error("expected CachedAt to be populated on a cache hit")
	}
	if len(result.Values) != 2 || result.Values[0] != 10 {
		t.Errorf("unexpected values: %v", result.Values)
	}

	snap := metrics.Snapshot(CacheStats{})
	if snap.ModbusTotal != 0 {
		t.Errorf("expected no live modbus call on cache hit, got %d", snap.ModbusTotal)
	}
}

func TestPipelineReadFreshBypassesCache(t *testing.T) {
	cache := NewCache(time.Minute)
	metrics := NewMetrics()
	pub := &Publisher{enabled: false}
	mgr := NewClientManager(nil, testLogger())
	p := NewPipeline(mgr, cache, metrics, pub)

	key := models.CacheKey("dev1", models.RegHolding, 0, 1)
	cache.Set(key, []uint16{99})

	// fresh=true must not return the stale cached value; with no device
	// registered the manager reports NotFound instead.
	_, err := p.Read(context.Background(), "dev1", models.RegHolding, 0, 1, true)
	if err == nil {
		t.Fatal("expected NotFound error for unregistered device on a live read")
	}
}
