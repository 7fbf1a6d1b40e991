// Package metrics holds small in-memory counters the engine updates as it
// mines and retargets. telemetry.Store snapshots these into durable samples;
// metrics itself never touches disk and is reset on restart.
package metrics

import (
	"sync/atomic"
	"time"
)

// Metrics is a set of atomically-updated counters, safe for concurrent use
// by the miner worker and the node state machine.
type Metrics struct {
	hashCount   uint64
	blocksMined uint64
	retargets   uint64
	fallbacks   uint64
	startTime   time.Time
}

var global = &Metrics{startTime: time.Now()}

// Global returns the process-wide Metrics instance.
func Global() *Metrics { return global }

// AddHashes records n additional hash attempts by the miner worker.
func (m *Metrics) AddHashes(n uint64) { atomic.AddUint64(&m.hashCount, n) }

// IncrementBlocksMined records a successfully finalized block.
func (m *Metrics) IncrementBlocksMined() { atomic.AddUint64(&m.blocksMined, 1) }

// IncrementRetargets records a difficulty recalculation that did not fall
// back to the initial difficulty.
func (m *Metrics) IncrementRetargets() { atomic.AddUint64(&m.retargets, 1) }

// IncrementFallbacks records a difficulty window lookup that fell back to
// the initial difficulty.
func (m *Metrics) IncrementFallbacks() { atomic.AddUint64(&m.fallbacks, 1) }

// HashRate returns the average hashes-per-second since process start.
func (m *Metrics) HashRate() float64 {
	uptime := time.Since(m.startTime).Seconds()
	if uptime == 0 {
		return 0
	}
	return float64(atomic.LoadUint64(&m.hashCount)) / uptime
}

func (m *Metrics) BlocksMined() uint64 { return atomic.LoadUint64(&m.blocksMined) }
func (m *Metrics) Retargets() uint64   { return atomic.LoadUint64(&m.retargets) }
func (m *Metrics) Fallbacks() uint64   { return atomic.LoadUint64(&m.fallbacks) }
