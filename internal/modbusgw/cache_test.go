package modbusgw

import (
	"testing"
	"time"
)

func TestCacheSetGet(t *testing.T) {
	c := NewCache(time.Minute)
	c.Set("k1", []uint16{1, 2, 3})

	values, _, ok := c.Get("k1")
	if !ok {
		t.Fatal("expected hit")
	}
	if len(values) != 3 || values[0] != 1 {
		t.Errorf("unexpected values: %v", values)
	}

	stats := c.Stats()
	if stats.Sets != 1 || stats.Hits != 1 || stats.Size != 1 {
		t.Errorf("unexpected stats: %+v", stats)
	}
}

func TestCacheMiss(t *testing.T) {
	c := NewCache(time.Minute)

	if _, _, ok := c.Get("missing"); ok {
		t.Fatal("expected miss")
	}
	if c.Stats().Misses != 1 {
		t.Errorf("expected 1 miss, got %d", c.Stats().Misses)
	}
}

func TestCacheExpiry(t *testing.T) {
	c := NewCache(10 * time.Millisecond)
	c.Set("k1", []uint16{42})

	time.Sleep(20 * time.Millisecond)

	if _, _, ok := c.Get("k1"); ok {
		t.Fatal("expected entry to have expired")
	}
	stats := c.Stats()
	if stats.Evictions != 1 {
		t.Errorf("expected 1 eviction from expired-get, got %d", stats.Evictions)
	}
	if stats.Size != 0 {
		t.Errorf("expected expired entry removed from map, size=%d", stats.Size)
	}
}

func TestCacheInvalidate(t *testing.T) {
	c := NewCache(time.Minute)
	c.Set("k1", []uint16{1})

	c.Invalidate("k1")
	if _, _, ok := c.Get("k1"); ok {
		t.Fatal("expected entry to be gone after Invalidate")
	}
}

func TestCacheInvalidatePrefix(t *testing.T) {
	c := NewCache(time.Minute)
	c.Set("dev1:holding:0:1", []uint16{1})
	c.Set("dev1:holding:10:4", []uint16{2, 3, 4, 5})
	c.Set("dev1:input:0:1", []uint16{9})
	c.Set("dev2:holding:0:1", []uint16{7})

	c.InvalidatePrefix("dev1:holding:")

	if _, _, ok := c.Get("dev1:holding:0:1"); ok {
		t.Error("expected dev1:holding:0:1 invalidated")
	}
	if _, _, ok := c.Get("dev1:holding:10:4"); ok {
		t.Error("expected dev1:holding:10:4 invalidated")
	}
	if _, _, ok := c.Get("dev1:input:0:1"); !ok {
		t.Error("expected dev1:input:0:1 untouched")
	}
	if _, _, ok := c.Get("dev2:holding:0:1"); !ok {
		t.Error("expected dev2:holding:0:1 untouched")
	}
}

func TestCacheKeysAndDeviceKeys(t *testing.T) {
	c := NewCache(time.Minute)
	c.Set("dev1:holding:0:1", []uint16{1})
	c.Set("dev1:input:0:1", []uint16{2})
	c.Set("dev2:holding:0:1", []uint16{3})

	keys := c.Keys()
	if len(keys) != 3 {
		t.Fatalf("expected 3 keys, got %d: %v", len(keys), keys)
	}

	dev1Keys := c.DeviceKeys("dev1")
	if len(dev1Keys) != 2 {
		t.Fatalf("expected 2 keys for dev1, got %d: %v", len(dev1Keys), dev1Keys)
	}
}

func TestCacheKeysExcludesExpired(t *testing.T) {
	c := NewCache(10 * time.Millisecond)
	c.Set("k1", []uint16{1})

	time.Sleep(20 * time.Millisecond)

	if keys := c.Keys(); len(keys) != 0 {
		t.Errorf("expected expired entry excluded from Keys, got %v", keys)
	}
}

func TestCacheClear(t *testing.T) {
	c := NewCache(time.Minute)
	c.Set("k1", []uint16{1})
	c.Set("k2", []uint16{2})

	c.Clear()

	if c.Stats().Size != 0 {
		t.Errorf("expected empty cache after Clear, size=%d", c.Stats().Size)
	}
	if _, _, ok := c.Get("k1"); ok {
		t.Error("expected k1 gone after Clear")
	}
}
