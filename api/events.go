// File: api/events.go
// Package api defines connection lifecycle events delivered to a Handler.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package api

import "time"

// OpenEvent is emitted once when a connection is accepted.
type OpenEvent struct {
	Conn ConnInfo
}

// DataEvent is emitted once per chunk delivered by the transport.
// Chunk is only valid for the duration of the handler call.
type DataEvent struct {
	Conn  ConnInfo
	Chunk []byte
}

// ErrorEvent is emitted on a transport-level error (e.g. peer reset).
type ErrorEvent struct {
	Conn ConnInfo
	Err  error
}

// CloseEvent is emitted once when the connection ends, for any reason.
type CloseEvent struct {
	Conn     ConnInfo
	Bytes    int64
	Chunks   int64
	AvgRate  int64 // bytes per second over the connection lifetime
	Duration time.Duration
}
