// File: driver/driver.go
// Package driver generates concurrent outbound TCP load against one target.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Every iteration launches an independent task that owns exactly one
// connection: dial, write the payload Writes times with Delay between writes,
// close. Launches are never throttled and tasks share nothing but counters.
// Failures are logged and counted per task; nothing is retried.

package driver

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/momentics/loadsink/api"
	"github.com/momentics/loadsink/control"
	"github.com/momentics/loadsink/transport/tcp"
	"github.com/mxk/go-flowrate/flowrate"
	"golang.org/x/sync/errgroup"
)

// descriptors kept free for stdio, the log sink and the runtime
const fdHeadroom = 64

const (
	metricLaunched      = "tasks.launched"
	metricConnected     = "tasks.connected"
	metricConnectFailed = "tasks.connect_failed"
	metricCompleted     = "tasks.completed"
	metricCancelled     = "tasks.cancelled"
	metricWrites        = "writes.ok"
	metricWriteFailed   = "writes.failed"
	metricBytes         = "bytes.written"
)

var errCancelled = errors.New("task cancelled")

// Driver runs one load configuration. A Driver may be Run more than once;
// counters accumulate across runs.
type Driver struct {
	cfg     Config
	log     *slog.Logger
	metrics *control.MetricsRegistry

	mu       sync.Mutex
	failures []TaskFailure
}

// New validates cfg and builds a Driver. A nil cfg selects DefaultConfig.
func New(cfg *Config) (*Driver, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Driver{
		cfg:     *cfg,
		log:     logger,
		metrics: control.NewMetricsRegistry(),
	}, nil
}

// Run is a shortcut for New followed by Driver.Run.
func Run(ctx context.Context, cfg *Config) (Report, error) {
	d, err := New(cfg)
	if err != nil {
		return Report{}, err
	}
	return d.Run(ctx), nil
}

// Metrics exposes the live counters.
func (d *Driver) Metrics() *control.MetricsRegistry {
	return d.metrics
}

// Run launches all tasks back to back and returns once every task has
// finished. Cancelling ctx aborts pending dials, writes and delays.
func (d *Driver) Run(ctx context.Context) Report {
	start := time.Now()
	if d.cfg.Connections > 0 {
		if limit, err := tcp.RaiseFDLimit(uint64(d.cfg.Connections) + fdHeadroom); err != nil {
			d.log.DebugContext(ctx, "descriptor limit unchanged", "err", err)
		} else {
			d.log.DebugContext(ctx, "descriptor limit", "nofile", limit)
		}
	}

	var g errgroup.Group
	for i := 0; i < d.cfg.Connections; i++ {
		task := i
		d.metrics.Add(metricLaunched, 1)
		g.Go(func() error {
			if err := d.runTask(ctx, task); err != nil {
				d.recordFailure(task, err)
			}
			return nil
		})
	}
	_ = g.Wait()
	return d.report(time.Since(start))
}

func (d *Driver) runTask(ctx context.Context, task int) error {
	taskID := uuid.NewString()
	addr := d.cfg.Addr()

	conn, err := tcp.Dial(ctx, addr, d.cfg.Dial)
	if err != nil {
		if ctx.Err() != nil {
			d.metrics.Add(metricCancelled, 1)
			return nil
		}
		d.metrics.Add(metricConnectFailed, 1)
		d.log.WarnContext(ctx, "connect failed", "task", task, "task_id", taskID, "addr", addr, "err", err)
		return err
	}
	d.metrics.Add(metricConnected, 1)
	var w io.WriteCloser = conn
	if d.cfg.RateLimit > 0 {
		// closing the flowrate writer also ends its limiter wait, not just
		// the socket
		w = flowrate.NewWriter(conn, d.cfg.RateLimit)
	}
	// unblock a pending write when ctx ends
	stop := context.AfterFunc(ctx, func() { _ = w.Close() })
	defer func() {
		stop()
		_ = w.Close()
	}()
	d.log.DebugContext(ctx, "connected", "task", task, "task_id", taskID, "local", conn.LocalAddr())

	for i := 0; i < d.cfg.Writes; i++ {
		if i > 0 {
			if err := pause(ctx, d.cfg.Delay); err != nil {
				d.metrics.Add(metricCancelled, 1)
				return nil
			}
		}
		n, err := w.Write(d.cfg.Payload)
		d.metrics.Add(metricBytes, int64(n))
		if err != nil {
			if ctx.Err() != nil {
				d.metrics.Add(metricCancelled, 1)
				return nil
			}
			d.metrics.Add(metricWriteFailed, 1)
			werr := api.WrapError(api.ErrCodeWrite, "write", err).
				WithContext("task", task).
				WithContext("write", i)
			d.log.WarnContext(ctx, "write failed", "task", task, "task_id", taskID, "write", i, "err", err)
			return werr
		}
		d.metrics.Add(metricWrites, 1)
	}
	d.metrics.Add(metricCompleted, 1)
	d.log.DebugContext(ctx, "task done", "task", task, "task_id", taskID, "writes", d.cfg.Writes)
	return nil
}

// pause suspends the task for d, returning early with errCancelled when ctx ends.
func pause(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		if ctx.Err() != nil {
			return errCancelled
		}
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return errCancelled
	case <-t.C:
		return nil
	}
}

func (d *Driver) recordFailure(task int, err error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(d.failures) >= MaxRecordedFailures {
		return
	}
	d.failures = append(d.failures, TaskFailure{Task: task, Code: api.CodeOf(err), Err: err})
}

func (d *Driver) report(elapsed time.Duration) Report {
	d.mu.Lock()
	failures := append([]TaskFailure(nil), d.failures...)
	d.mu.Unlock()
	m := d.metrics
	return Report{
		Launched:      m.Load(metricLaunched),
		Connected:     m.Load(metricConnected),
		ConnectFailed: m.Load(metricConnectFailed),
		Completed:     m.Load(metricCompleted),
		Cancelled:     m.Load(metricCancelled),
		Writes:        m.Load(metricWrites),
		WriteFailed:   m.Load(metricWriteFailed),
		BytesWritten:  m.Load(metricBytes),
		Duration:      elapsed,
		Failures:      failures,
	}
}
