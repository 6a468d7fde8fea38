// control/metrics.go
// Author: momentics <momentics@gmail.com>
//
// Runtime counters for the driver and the sink.
// Counters are created on first use and updated with atomics; the map itself
// is only locked on registration and snapshot.

package control

import (
	"sync"
	"sync/atomic"
	"time"
)

// MetricsRegistry holds named int64 counters and free-form gauges.
type MetricsRegistry struct {
	mu       sync.RWMutex
	counters map[string]*atomic.Int64
	gauges   map[string]any
	updated  atomic.Int64
}

// NewMetricsRegistry creates an empty registry.
func NewMetricsRegistry() *MetricsRegistry {
	return &MetricsRegistry{
		counters: make(map[string]*atomic.Int64),
		gauges:   make(map[string]any),
	}
}

// Counter returns the counter registered under key, creating it if needed.
// The returned pointer stays valid for the registry lifetime.
func (mr *MetricsRegistry) Counter(key string) *atomic.Int64 {
	mr.mu.RLock()
	c, ok := mr.counters[key]
	mr.mu.RUnlock()
	if ok {
		return c
	}
	mr.mu.Lock()
	defer mr.mu.Unlock()
	if c, ok = mr.counters[key]; !ok {
		c = new(atomic.Int64)
		mr.counters[key] = c
	}
	return c
}

// Add increments key by delta and returns the new value.
func (mr *MetricsRegistry) Add(key string, delta int64) int64 {
	v := mr.Counter(key).Add(delta)
	mr.updated.Store(time.Now().UnixNano())
	return v
}

// Load returns the current value of key, 0 if never touched.
func (mr *MetricsRegistry) Load(key string) int64 {
	mr.mu.RLock()
	c, ok := mr.counters[key]
	mr.mu.RUnlock()
	if !ok {
		return 0
	}
	return c.Load()
}

// Set sets or updates a gauge.
func (mr *MetricsRegistry) Set(key string, value any) {
	mr.mu.Lock()
	mr.gauges[key] = value
	mr.mu.Unlock()
	mr.updated.Store(time.Now().UnixNano())
}

// Updated returns the time of the last write, zero if none.
func (mr *MetricsRegistry) Updated() time.Time {
	ns := mr.updated.Load()
	if ns == 0 {
		return time.Time{}
	}
	return time.Unix(0, ns)
}

// GetSnapshot returns the latest counters (as int64) and gauges.
func (mr *MetricsRegistry) GetSnapshot() map[string]any {
	mr.mu.RLock()
	defer mr.mu.RUnlock()
	out := make(map[string]any, len(mr.counters)+len(mr.gauges))
	for k, v := range mr.gauges {
		out[k] = v
	}
	for k, c := range mr.counters {
		out[k] = c.Load()
	}
	return out
}
