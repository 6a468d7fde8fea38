// Package control
// Author: momentics <momentics@gmail.com>
//
// Runtime counters and debug introspection for the driver and the sink.
//
// Provides concurrent-safe primitives:
//   - MetricsRegistry: atomic named counters plus gauges, snapshot reads
//   - DebugProbes: named probes evaluated on demand
//   - platform probes (goroutines, descriptor limit)
package control
