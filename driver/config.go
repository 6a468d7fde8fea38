// File: driver/config.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package driver

import (
	"log/slog"
	"net"
	"strconv"
	"time"

	"github.com/momentics/loadsink/api"
	"github.com/momentics/loadsink/transport/tcp"
)

// Defaults reproduce the classic fixed load: 200 connections to
// 127.0.0.1:8080, 200 writes of a short greeting each, one second apart.
const (
	DefaultHost        = "127.0.0.1"
	DefaultPort        = 8080
	DefaultConnections = 200
	DefaultWrites      = 200
	DefaultPayload     = "Hello, server!"
	DefaultDelay       = time.Second
)

// Config holds driver parameters.
type Config struct {
	Host        string
	Port        int
	Connections int           // independent tasks launched, one connection each
	Writes      int           // writes of Payload per connection
	Payload     []byte        // written as-is, no framing
	Delay       time.Duration // pause between writes on one connection, 0 = back to back
	RateLimit   int64         // bytes/s per connection, 0 = unlimited; cancellation lands within one 100ms sample
	Dial        tcp.DialConfig
	Logger      *slog.Logger
}

// DefaultConfig returns the classic fixed load.
func DefaultConfig() *Config {
	return &Config{
		Host:        DefaultHost,
		Port:        DefaultPort,
		Connections: DefaultConnections,
		Writes:      DefaultWrites,
		Payload:     []byte(DefaultPayload),
		Delay:       DefaultDelay,
		Dial:        tcp.DefaultDialConfig(),
	}
}

// Addr returns the target as host:port.
func (c *Config) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

// Validate checks ranges; it does not resolve the host.
func (c *Config) Validate() error {
	switch {
	case c.Port <= 0 || c.Port > 65535:
		return api.NewError(api.ErrCodeInvalidArgument, "port out of range").WithContext("port", c.Port)
	case c.Connections < 0:
		return api.NewError(api.ErrCodeInvalidArgument, "connections must be >= 0").WithContext("connections", c.Connections)
	case c.Writes < 0:
		return api.NewError(api.ErrCodeInvalidArgument, "writes must be >= 0").WithContext("writes", c.Writes)
	case c.Delay < 0:
		return api.NewError(api.ErrCodeInvalidArgument, "delay must be >= 0").WithContext("delay", c.Delay)
	case c.RateLimit < 0:
		return api.NewError(api.ErrCodeInvalidArgument, "rate limit must be >= 0").WithContext("rate", c.RateLimit)
	}
	return nil
}
