// File: sink/printer.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package sink

import (
	"io"
	"log/slog"

	"github.com/momentics/loadsink/api"
)

// Marker is written once per received chunk.
const Marker = '.'

// Printer is the default Handler: one marker per chunk on out, transport
// errors on the logger. Bytes are neither parsed nor stored.
type Printer struct {
	out    io.Writer
	log    *slog.Logger
	marker [1]byte
}

// NewPrinter builds a Printer writing markers to out.
func NewPrinter(out io.Writer, logger *slog.Logger) *Printer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Printer{out: out, log: logger, marker: [1]byte{Marker}}
}

func (p *Printer) OnOpen(ev api.OpenEvent) {
	p.log.Debug("connection accepted", "conn", ev.Conn.ID, "port", ev.Conn.Port, "remote", ev.Conn.Remote)
}

func (p *Printer) OnData(api.DataEvent) {
	_, _ = p.out.Write(p.marker[:])
}

func (p *Printer) OnError(ev api.ErrorEvent) {
	p.log.Error("Error: "+ev.Err.Error(), "conn", ev.Conn.ID, "port", ev.Conn.Port, "remote", ev.Conn.Remote)
}

func (p *Printer) OnClose(ev api.CloseEvent) {
	p.log.Debug("connection closed",
		"conn", ev.Conn.ID,
		"port", ev.Conn.Port,
		"bytes", ev.Bytes,
		"chunks", ev.Chunks,
		"avg_rate", ev.AvgRate,
		"duration", ev.Duration,
	)
}

var _ api.Handler = (*Printer)(nil)
