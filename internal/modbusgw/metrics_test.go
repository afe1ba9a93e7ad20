package modbusgw

import (
	"testing"
	"time"
)

func TestMetricsRecordModbusCall(t *testing.T) {
	m := NewMetrics()
	m.RecordModbusCall(true, 10*time.Millisecond)
	m.RecordModbusCall(false, 20*time.Millisecond)

	snap := m.Snapshot(CacheStats{})
	if snap.ModbusTotal != 2 {
		t.Errorf("expected total=2, got %d", snap.ModbusTotal)
	}
	if snap.ModbusSuccess != 1 || snap.ModbusFail != 1 {
		t.Errorf("expected 1 success and 1 fail, got success=%d fail=%d", snap.ModbusSuccess, snap.ModbusFail)
	}
	if snap.ModbusAvgLatencyMs <= 0 {
		t.Errorf("expected positive average latency, got %f", snap.ModbusAvgLatencyMs)
	}
}

func TestMetricsRecordPollCycle(t *testing.T) {
	m := NewMetrics()
	m.RecordPollCycle(true, 5*time.Millisecond)

	snap := m.Snapshot(CacheStats{})
	if snap.PollCycles != 1 || snap.PollSuccess != 1 || snap.PollFail != 0 {
		t.Errorf("unexpected poll counters: %+v", snap)
	}
}

func TestMetricsSnapshotFoldsCacheStats(t *testing.T) {
	m := NewMetrics()
	snap := m.Snapshot(CacheStats{Hits: 3, Misses: 1, Sets: 2, Evictions: 1})

	if snap.CacheHits != 3 || snap.CacheMisses != 1 || snap.CacheSets != 2 || snap.CacheEvictions != 1 {
		t.Errorf("cache stats not folded correctly: %+v", snap)
	}
}

func TestMetricsRecordPollSkipped(t *testing.T) {
	m := NewMetrics()
	m.RecordPollSkipped()
	m.RecordPollSkipped()

	if snap := m.Snapshot(CacheStats{}); snap.PollSkipped != 2 {
		t.Errorf("expected 2 skipped, got %d", snap.PollSkipped)
	}
}

func TestMetricsReset(t *testing.T) {
	m := NewMetrics()
	m.RecordModbusCall(true, 10*time.Millisecond)
	m.RecordPollCycle(true, 5*time.Millisecond)
	m.RecordPollSkipped()

	m.Reset()

	snap := m.Snapshot(CacheStats{})
	if snap.ModbusTotal != 0 || snap.PollCycles != 0 || snap.PollSkipped != 0 {
		t.Errorf("expected all counters zeroed after Reset, got %+v", snap)
	}
}
