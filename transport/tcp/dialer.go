// Copyright (c) 2025
// Author: momentics <momentics@gmail.com>

package tcp

import (
	"context"
	"net"
	"time"

	"github.com/momentics/loadsink/api"
)

// DialConfig tunes outbound connections.
type DialConfig struct {
	Timeout    time.Duration // 0 waits for the OS connect timeout
	NoDelay    bool          // TCP_NODELAY
	Linger     time.Duration // SO_LINGER; < 0 keeps the OS default, 0 resets on close
	SendBuffer int           // SO_SNDBUF in bytes, 0 keeps the OS default
}

// DefaultDialConfig mirrors Go's defaults.
func DefaultDialConfig() DialConfig {
	return DialConfig{NoDelay: true, Linger: -1}
}

// Dial opens a TCP connection to addr. Failures are ErrCodeConnect.
func Dial(ctx context.Context, addr string, cfg DialConfig) (net.Conn, error) {
	d := net.Dialer{
		Timeout: cfg.Timeout,
		Control: dialControl(cfg),
	}
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, api.WrapError(api.ErrCodeConnect, "dial "+addr, err).WithContext("addr", addr)
	}
	if tc, ok := conn.(*net.TCPConn); ok && !cfg.NoDelay {
		// the runtime enables TCP_NODELAY after connect, so it can only be
		// turned off here
		_ = tc.SetNoDelay(false)
	}
	return conn, nil
}
