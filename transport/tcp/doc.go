// Copyright (c) 2025
// Author: momentics <momentics@gmail.com>

// Package tcp implements the raw TCP plumbing shared by the driver and the
// sink: a listener exposing accepted connections as a lazy sequence, a
// connection wrapper exposing received bytes as a lazy sequence of pooled
// chunks, a dialer, and platform socket options.
package tcp
