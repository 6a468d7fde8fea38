// File: sink/sink.go
// Package sink accepts TCP connections on a set of ports and reports every
// received chunk to a Handler.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Each port has its own accept goroutine and each connection its own reader
// goroutine. Readers never wait on handlers: they post events to one event
// loop, which invokes the Handler serially. Per connection the handler sees
// OnOpen, zero or more OnData, at most one OnError, then OnClose.

package sink

import (
	"context"
	"log/slog"
	"net"
	"os"
	"sync"
	"sync/atomic"

	"github.com/momentics/loadsink/api"
	"github.com/momentics/loadsink/control"
	"github.com/momentics/loadsink/internal/concurrency"
	"github.com/momentics/loadsink/pool"
	"github.com/momentics/loadsink/transport/tcp"
	"golang.org/x/sync/errgroup"
)

const (
	MetricAccepted        = "conns.accepted"
	MetricActive          = "conns.active"
	MetricClosed          = "conns.closed"
	MetricChunks          = "chunks.received"
	MetricBytes           = "bytes.received"
	MetricTransportErrors = "errors.transport"
	MetricAcceptErrors    = "errors.accept"
)

// Sink is a set of listening ports feeding one Handler.
type Sink struct {
	cfg     Config
	handler api.Handler
	log     *slog.Logger

	loop    *concurrency.EventLoop
	chunks  *pool.ChunkPool
	metrics *control.MetricsRegistry
	probes  *control.DebugProbes

	mu        sync.Mutex
	listeners []*tcp.Listener
	serving   atomic.Bool
	conns     sync.WaitGroup
}

// New validates cfg and builds a Sink. A nil handler selects a Printer on
// stdout.
func New(cfg *Config, h api.Handler) (*Sink, error) {
	if cfg == nil {
		return nil, api.NewError(api.ErrCodeInvalidArgument, "config is required")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if h == nil {
		h = NewPrinter(os.Stdout, logger)
	}
	s := &Sink{
		cfg:     *cfg,
		handler: h,
		log:     logger,
		loop:    concurrency.NewEventLoop(cfg.BatchSize),
		chunks:  pool.NewChunkPool(cfg.ChunkSize),
		metrics: control.NewMetricsRegistry(),
		probes:  control.NewDebugProbes(),
	}
	s.loop.RegisterHandler(&dispatcher{h: h, log: logger})

	control.RegisterPlatformProbes(s.probes)
	s.probes.RegisterProbe("loop.pending", func() any { return s.loop.Pending() })
	s.probes.RegisterProbe("loop.dispatched", func() any { return s.loop.Dispatched() })
	s.probes.RegisterProbe("pool.in_use", func() any { return s.chunks.Stats().InUse })
	s.probes.RegisterProbe("listeners", func() any {
		s.mu.Lock()
		defer s.mu.Unlock()
		return len(s.listeners)
	})
	return s, nil
}

// Listen binds every configured port and serves until ctx is done.
func Listen(ctx context.Context, cfg *Config, h api.Handler) error {
	s, err := New(cfg, h)
	if err != nil {
		return err
	}
	if err := s.Bind(ctx); err != nil {
		return err
	}
	return s.Serve(ctx)
}

// Bind opens one listening socket per configured port. Any failure closes
// the sockets opened so far and returns an ErrCodeBind error: a sink never
// runs on a subset of its ports.
func (s *Sink) Bind(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.listeners) > 0 {
		return api.NewError(api.ErrCodeInvalidArgument, "sink already bound")
	}
	bound := make([]*tcp.Listener, 0, len(s.cfg.Ports))
	for _, port := range s.cfg.Ports {
		l, err := tcp.Listen(ctx, tcp.ListenerConfig{
			Host:       s.cfg.Host,
			Port:       port,
			RecvBuffer: s.cfg.RecvBuffer,
			Logger:     s.log,
		})
		if err != nil {
			for _, b := range bound {
				_ = b.Close()
			}
			return err
		}
		bound = append(bound, l)
		s.log.InfoContext(ctx, "listening for connections", "port", l.Port(), "addr", l.Addr().String())
	}
	s.listeners = bound
	return nil
}

// Addrs returns the bound addresses in port order.
func (s *Sink) Addrs() []net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]net.Addr, len(s.listeners))
	for i, l := range s.listeners {
		out[i] = l.Addr()
	}
	return out
}

// Serve accepts on every bound port until ctx is done, then closes the
// listeners and open connections, waits for their close events to be
// handled and returns nil. A listener that stops on its own ends Serve
// with an ErrCodeAccept error.
func (s *Sink) Serve(ctx context.Context) error {
	s.mu.Lock()
	listeners := append([]*tcp.Listener(nil), s.listeners...)
	s.mu.Unlock()
	if len(listeners) == 0 {
		return api.NewError(api.ErrCodeInvalidArgument, "sink not bound")
	}
	if !s.serving.CompareAndSwap(false, true) {
		return api.NewError(api.ErrCodeInvalidArgument, "sink already serving")
	}

	go s.loop.Run()

	g, gctx := errgroup.WithContext(ctx)
	for _, l := range listeners {
		g.Go(func() error { return s.acceptLoop(gctx, l) })
	}
	err := g.Wait()

	for _, l := range listeners {
		_ = l.Close()
	}
	s.conns.Wait()
	s.loop.Stop()
	<-s.loop.Done()
	return err
}

// Stats returns counters plus "debug."-prefixed probe values.
func (s *Sink) Stats() map[string]any {
	return control.Merge(s.metrics.GetSnapshot(), s.probes.DumpState())
}

// Metrics exposes the live counters.
func (s *Sink) Metrics() *control.MetricsRegistry {
	return s.metrics
}

func (s *Sink) acceptLoop(ctx context.Context, l *tcp.Listener) error {
	for c, err := range l.Conns(ctx) {
		if err != nil {
			s.metrics.Add(MetricAcceptErrors, 1)
			continue
		}
		s.conns.Add(1)
		go s.serveConn(ctx, c)
	}
	if ctx.Err() != nil {
		return nil
	}
	return api.NewError(api.ErrCodeAccept, "listener stopped").WithContext("port", l.Port())
}

// serveConn owns c for its whole lifetime.
func (s *Sink) serveConn(ctx context.Context, c *tcp.Conn) {
	defer s.conns.Done()
	stop := context.AfterFunc(ctx, func() { _ = c.Close() })
	defer stop()

	info := c.Info()
	s.metrics.Add(MetricAccepted, 1)
	s.metrics.Add(MetricActive, 1)
	s.post(api.OpenEvent{Conn: info})

	for ch, err := range c.Chunks(s.chunks) {
		if err != nil {
			s.metrics.Add(MetricTransportErrors, 1)
			s.post(api.ErrorEvent{Conn: info, Err: err})
			break
		}
		s.metrics.Add(MetricChunks, 1)
		s.metrics.Add(MetricBytes, int64(ch.Len()))
		s.post(dataEvent{conn: info, chunk: ch})
	}

	_ = c.Close()
	st := c.Status()
	s.metrics.Add(MetricActive, -1)
	s.metrics.Add(MetricClosed, 1)
	s.post(api.CloseEvent{
		Conn:     info,
		Bytes:    c.BytesRead(),
		Chunks:   c.ChunksRead(),
		AvgRate:  st.AvgRate,
		Duration: st.Duration,
	})
}

func (s *Sink) post(data any) {
	if s.loop.Post(concurrency.Event{Data: data}) {
		return
	}
	if de, ok := data.(dataEvent); ok {
		de.chunk.Release()
	}
}
