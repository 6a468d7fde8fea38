//go:build !linux

// Copyright (c) 2025
// Author: momentics <momentics@gmail.com>

package tcp

import (
	"syscall"

	"github.com/momentics/loadsink/api"
)

// Socket tuning is Linux-only; other platforms keep OS defaults.

func listenControl(ListenerConfig) func(network, address string, c syscall.RawConn) error {
	return nil
}

func dialControl(DialConfig) func(network, address string, c syscall.RawConn) error {
	return nil
}

// RaiseFDLimit is not supported on this platform.
func RaiseFDLimit(uint64) (uint64, error) {
	return 0, api.ErrNotSupported
}
