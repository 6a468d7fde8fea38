//go:build linux

// Copyright (c) 2025
// Author: momentics <momentics@gmail.com>

// Linux socket options and descriptor limits via x/sys/unix.

package tcp

import (
	"syscall"
	"time"

	"golang.org/x/sys/unix"
)

type controlFunc func(network, address string, c syscall.RawConn) error

func rawControl(fn func(fd int) error) controlFunc {
	return func(_, _ string, c syscall.RawConn) error {
		var serr error
		if err := c.Control(func(fd uintptr) { serr = fn(int(fd)) }); err != nil {
			return err
		}
		return serr
	}
}

func listenControl(cfg ListenerConfig) controlFunc {
	return rawControl(func(fd int) error {
		if err := unix.SetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_REUSEADDR, 1); err != nil {
			return err
		}
		if cfg.RecvBuffer > 0 {
			return unix.SetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_RCVBUF, cfg.RecvBuffer)
		}
		return nil
	})
}

func dialControl(cfg DialConfig) controlFunc {
	if cfg.Linger < 0 && cfg.SendBuffer <= 0 {
		return nil
	}
	return rawControl(func(fd int) error {
		if cfg.Linger >= 0 {
			l := &unix.Linger{Onoff: 1, Linger: int32(cfg.Linger / time.Second)}
			if err := unix.SetsockoptLinger(fd, unix.SOL_SOCKET, unix.SO_LINGER, l); err != nil {
				return err
			}
		}
		if cfg.SendBuffer > 0 {
			return unix.SetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_SNDBUF, cfg.SendBuffer)
		}
		return nil
	})
}

// RaiseFDLimit raises the RLIMIT_NOFILE soft limit towards want, capped at
// the hard limit, and returns the resulting soft limit.
func RaiseFDLimit(want uint64) (uint64, error) {
	var lim unix.Rlimit
	if err := unix.Getrlimit(unix.RLIMIT_NOFILE, &lim); err != nil {
		return 0, err
	}
	if lim.Cur >= want {
		return lim.Cur, nil
	}
	target := want
	if target > lim.Max {
		target = lim.Max
	}
	lim.Cur = target
	if err := unix.Setrlimit(unix.RLIMIT_NOFILE, &lim); err != nil {
		return 0, err
	}
	return target, nil
}
