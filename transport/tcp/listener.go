// Copyright (c) 2025
// Author: momentics <momentics@gmail.com>

package tcp

import (
	"context"
	"errors"
	"iter"
	"log/slog"
	"net"
	"strconv"
	"time"

	"github.com/momentics/loadsink/api"
)

const (
	minAcceptBackoff = 5 * time.Millisecond
	maxAcceptBackoff = time.Second
)

// ListenerConfig holds configuration for one listening socket.
type ListenerConfig struct {
	Host       string // "" binds all local interfaces
	Port       int    // 0 picks an ephemeral port
	RecvBuffer int    // SO_RCVBUF in bytes, 0 keeps the OS default
	Logger     *slog.Logger
}

// Listener owns one bound TCP socket.
type Listener struct {
	ln   net.Listener
	port int
	log  *slog.Logger
}

// Listen binds the socket described by cfg. SO_REUSEPORT is never set, so a
// port held by another socket fails with ErrCodeBind every time.
func Listen(ctx context.Context, cfg ListenerConfig) (*Listener, error) {
	if cfg.Port < 0 || cfg.Port > 65535 {
		return nil, api.NewError(api.ErrCodeInvalidArgument, "port out of range").WithContext("port", cfg.Port)
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	addr := net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port))
	lc := net.ListenConfig{Control: listenControl(cfg)}
	ln, err := lc.Listen(ctx, "tcp", addr)
	if err != nil {
		return nil, api.WrapError(api.ErrCodeBind, "listen "+addr, err).WithContext("port", cfg.Port)
	}
	l := &Listener{ln: ln, log: logger}
	if ta, ok := ln.Addr().(*net.TCPAddr); ok {
		l.port = ta.Port
	} else {
		l.port = cfg.Port
	}
	return l, nil
}

// Addr returns the bound address.
func (l *Listener) Addr() net.Addr {
	return l.ln.Addr()
}

// Port returns the bound port, resolved when 0 was requested.
func (l *Listener) Port() int {
	return l.port
}

// Accept waits for the next connection.
func (l *Listener) Accept() (*Conn, error) {
	raw, err := l.ln.Accept()
	if err != nil {
		return nil, api.WrapError(api.ErrCodeAccept, "accept", err).WithContext("port", l.port)
	}
	return NewConn(raw, l.port), nil
}

// Conns returns the accepted connections as a lazy, infinite sequence.
// The sequence ends when the listener is closed or ctx is done; cancelling
// ctx closes the listener, so it cannot be ranged over again. Accept errors
// are yielded with a nil *Conn and retried after a capped backoff.
// Ownership of each yielded *Conn passes to the consumer.
func (l *Listener) Conns(ctx context.Context) iter.Seq2[*Conn, error] {
	return func(yield func(*Conn, error) bool) {
		stop := context.AfterFunc(ctx, func() { _ = l.Close() })
		defer stop()

		var delay time.Duration
		for {
			c, err := l.Accept()
			if err != nil {
				if errors.Is(err, net.ErrClosed) || ctx.Err() != nil {
					return
				}
				if !yield(nil, err) {
					return
				}
				delay = nextBackoff(delay)
				l.log.WarnContext(ctx, "accept failed, retrying", "port", l.port, "delay", delay, "err", err)
				t := time.NewTimer(delay)
				select {
				case <-ctx.Done():
					t.Stop()
					return
				case <-t.C:
				}
				continue
			}
			delay = 0
			if !yield(c, nil) {
				_ = c.Close()
				return
			}
		}
	}
}

// Close shuts down the listener. Connections already accepted stay open.
func (l *Listener) Close() error {
	return l.ln.Close()
}

func nextBackoff(d time.Duration) time.Duration {
	if d == 0 {
		return minAcceptBackoff
	}
	d *= 2
	if d > maxAcceptBackoff {
		d = maxAcceptBackoff
	}
	return d
}
