// File: sink/dispatch.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package sink

import (
	"fmt"
	"log/slog"

	"github.com/momentics/loadsink/api"
	"github.com/momentics/loadsink/internal/concurrency"
	"github.com/momentics/loadsink/transport/tcp"
)

// dataEvent carries a pooled chunk to the loop, which releases it once the
// handler returns.
type dataEvent struct {
	conn  api.ConnInfo
	chunk tcp.Chunk
}

// dispatcher routes loop events to an api.Handler.
type dispatcher struct {
	h   api.Handler
	log *slog.Logger
}

func (d *dispatcher) HandleEvent(ev concurrency.Event) {
	// a panicking handler must not take the loop, and every other
	// connection, down with it
	defer func() {
		if r := recover(); r != nil {
			d.log.Error("handler panic", "type", fmt.Sprintf("%T", ev.Data), "panic", r)
		}
	}()
	switch e := ev.Data.(type) {
	case api.OpenEvent:
		d.h.OnOpen(e)
	case dataEvent:
		defer e.chunk.Release()
		d.h.OnData(api.DataEvent{Conn: e.conn, Chunk: e.chunk.Bytes()})
	case api.ErrorEvent:
		d.h.OnError(e)
	case api.CloseEvent:
		d.h.OnClose(e)
	default:
		d.log.Warn("unknown event", "type", fmt.Sprintf("%T", ev.Data))
	}
}
