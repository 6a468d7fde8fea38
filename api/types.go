// File: api/types.go
// Author: momentics <momentics@gmail.com>
//
// Shared API-level type declarations.

package api

import "net"

// ConnState enumerates the lifecycle of an accepted connection.
type ConnState int

const (
	ConnUnknown ConnState = iota
	ConnAccepted
	ConnActive
	ConnClosed
)

func (s ConnState) String() string {
	switch s {
	case ConnAccepted:
		return "accepted"
	case ConnActive:
		return "active"
	case ConnClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// ConnInfo is an immutable description of one connection, safe to share.
type ConnInfo struct {
	ID     string   // random id, for log correlation only
	Port   int      // listening port that accepted the connection
	Local  net.Addr
	Remote net.Addr
}
