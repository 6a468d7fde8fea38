// File: sink/config.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package sink

import (
	"log/slog"

	"github.com/momentics/loadsink/api"
	"github.com/momentics/loadsink/pool"
)

// Config holds sink parameters.
type Config struct {
	Host       string // "" listens on all local interfaces
	Ports      []int  // one listening socket per entry; 0 picks an ephemeral port
	ChunkSize  int    // read buffer per chunk
	RecvBuffer int    // SO_RCVBUF, 0 keeps the OS default
	BatchSize  int    // events dispatched per event-loop pass
	Logger     *slog.Logger
}

// DefaultConfig returns a config with no ports; callers add them.
func DefaultConfig() *Config {
	return &Config{
		ChunkSize: pool.DefaultChunkSize,
		BatchSize: 64,
	}
}

// Validate checks ranges. Duplicate ports are left to the bind step.
func (c *Config) Validate() error {
	if len(c.Ports) == 0 {
		return api.NewError(api.ErrCodeInvalidArgument, "at least one port is required")
	}
	for _, p := range c.Ports {
		if p < 0 || p > 65535 {
			return api.NewError(api.ErrCodeInvalidArgument, "port out of range").WithContext("port", p)
		}
	}
	if c.ChunkSize < 0 || c.RecvBuffer < 0 || c.BatchSize < 0 {
		return api.NewError(api.ErrCodeInvalidArgument, "sizes must be >= 0").
			WithContext("chunk_size", c.ChunkSize).
			WithContext("rcvbuf", c.RecvBuffer).
			WithContext("batch", c.BatchSize)
	}
	return nil
}
