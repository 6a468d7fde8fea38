// File: driver/report.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package driver

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/momentics/loadsink/api"
)

// MaxRecordedFailures bounds Report.Failures; the counters stay exact.
const MaxRecordedFailures = 64

// TaskFailure describes one task that ended on a connect or write error.
type TaskFailure struct {
	Task int
	Code api.ErrorCode
	Err  error
}

// Report summarises one Run.
type Report struct {
	Launched      int64
	Connected     int64
	ConnectFailed int64
	Completed     int64 // tasks that performed every write
	Cancelled     int64 // tasks stopped by context cancellation
	Writes        int64
	WriteFailed   int64
	BytesWritten  int64
	Duration      time.Duration
	Failures      []TaskFailure
}

// Failed reports whether any task ended on an error.
func (r Report) Failed() int64 {
	return r.ConnectFailed + r.WriteFailed
}

func (r Report) String() string {
	return fmt.Sprintf("launched=%d connected=%d connect_failed=%d completed=%d cancelled=%d writes=%d write_failed=%d bytes=%d duration=%s",
		r.Launched, r.Connected, r.ConnectFailed, r.Completed, r.Cancelled,
		r.Writes, r.WriteFailed, r.BytesWritten, r.Duration)
}

// LogValue implements slog.LogValuer.
func (r Report) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Int64("launched", r.Launched),
		slog.Int64("connected", r.Connected),
		slog.Int64("connect_failed", r.ConnectFailed),
		slog.Int64("completed", r.Completed),
		slog.Int64("cancelled", r.Cancelled),
		slog.Int64("writes", r.Writes),
		slog.Int64("write_failed", r.WriteFailed),
		slog.Int64("bytes", r.BytesWritten),
		slog.Duration("duration", r.Duration),
	)
}
