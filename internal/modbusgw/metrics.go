package modbusgw

import (
	"sync/atomic"
	"time"
)

// Metrics accumulates process-lifetime counters for the Modbus data plane
// and polling loop. It is deliberately a plain atomic-counter struct
// rather than a client_golang registry: nothing else in this codebase's
// dependency corpus pulls in a Prometheus or StatsD client, so adding one
// here for a single /api/v1/metrics JSON snapshot would be the only
// consumer of that whole ecosystem.
type Metrics struct {
	modbusTotal   uint64
	modbusSuccess uint64
	modbusFail    uint64
	modbusNanos   uint64

	pollCycles  uint64
	pollSuccess uint64
	pollFail    uint64
	pollSkipped uint64
	pollNanos   uint64
}

func NewMetrics() *Metrics {
	return &Metrics{}
}

// RecordModbusCall records the outcome and latency of one gateway
// read/write attempt.
func (m *Metrics) RecordModbusCall(ok bool, d time.Duration) {
	atomic.AddUint64(&m.modbusTotal, 1)
	atomic.AddUint64(&m.modbusNanos, uint64(d.Nanoseconds()))
	if ok {
		atomic.AddUint64(&m.modbusSuccess, 1)
	} else {
		atomic.AddUint64(&m.modbusFail, 1)
	}
}

// RecordPollCycle records the outcome and wall-clock duration of one full
// poller sweep across all gateways.
func (m *Metrics) RecordPollCycle(ok bool, d time.Duration) {
	atomic.AddUint64(&m.pollCycles, 1)
	atomic.AddUint64(&m.pollNanos, uint64(d.Nanoseconds()))
	if ok {
		atomic.AddUint64(&m.pollSuccess, 1)
	} else {
		atomic.AddUint64(&m.pollFail, 1)
	}
}

// RecordPollSkipped records one polling target skipped because its device
// was missing or inactive at poll time.
func (m *Metrics) RecordPollSkipped() {
	atomic.AddUint64(&m.pollSkipped, 1)
}

// Reset zeroes every counter. Used by the admin metrics-reset endpoint;
// it does not touch the cache's own counters.
func (m *Metrics) Reset() {
	atomic.StoreUint64(&m.modbusTotal, 0)
	atomic.StoreUint64(&m.modbusSuccess, 0)
	atomic.StoreUint64(&m.modbusFail, 0)
	atomic.StoreUint64(&m.modbusNanos, 0)
	atomic.StoreUint64(&m.pollCycles, 0)
	atomic.StoreUint64(&m.pollSuccess, 0)
	atomic.StoreUint64(&m.pollFail, 0)
	atomic.StoreUint64(&m.pollSkipped, 0)
	atomic.StoreUint64(&m.pollNanos, 0)
}

// Snapshot is a point-in-time JSON-serializable view of every counter,
// merged with the live Cache's own stats by the caller.
type Snapshot struct {
	ModbusTotal        uint64  `json:"modbus_total"`
	ModbusSuccess      uint64  `json:"modbus_success"`
	ModbusFail         uint64  `json:"modbus_fail"`
	ModbusAvgLatencyMs float64 `json:"modbus_avg_latency_ms"`
	CacheHits          uint64  `json:"cache_hits"`
	CacheMisses        uint64  `json:"cache_misses"`
	CacheSets          uint64  `json:"cache_sets"`
	CacheEvictions     uint64  `json:"cache_evictions"`
	PollCycles         uint64  `json:"poll_cycles"`
	PollSuccess        uint64  `json:"poll_success"`
	PollFail           uint64  `json:"poll_fail"`
	PollSkipped        uint64  `json:"poll_skipped"`
	PollAvgDurationMs  float64 `json:"poll_avg_duration_ms"`
}

// Snapshot returns a consistent read of every counter and folds in the
// given cache stats.
func (m *Metrics) Snapshot(cacheStats CacheStats) Snapshot {
	total := atomic.LoadUint64(&m.modbusTotal)
	nanos := atomic.LoadUint64(&m.modbusNanos)
	var avgMs float64
	if total > 0 {
		avgMs = float64(nanos) / float64(total) / 1e6
	}

	cycles := atomic.LoadUint64(&m.pollCycles)
	pollNanos := atomic.LoadUint64(&m.pollNanos)
	var pollAvgMs float64
	if cycles > 0 {
		pollAvgMs = float64(pollNanos) / float64(cycles) / 1e6
	}

	return Snapshot{
		ModbusTotal:        total,
		ModbusSuccess:      atomic.LoadUint64(&m.modbusSuccess),
		ModbusFail:         atomic.LoadUint64(&m.modbusFail),
		ModbusAvgLatencyMs: avgMs,
		CacheHits:          cacheStats.Hits,
		CacheMisses:        cacheStats.Misses,
		CacheSets:          cacheStats.Sets,
		CacheEvictions:     cacheStats.Evictions,
		PollCycles:         cycles,
		PollSuccess:        atomic.LoadUint64(&m.pollSuccess),
		PollFail:           atomic.LoadUint64(&m.pollFail),
		PollSkipped:        atomic.LoadUint64(&m.pollSkipped),
		PollAvgDurationMs:  pollAvgMs,
	}
}
