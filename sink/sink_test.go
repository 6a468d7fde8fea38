package sink_test

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/momentics/loadsink/api"
	"github.com/momentics/loadsink/driver"
	"github.com/momentics/loadsink/sink"
	"github.com/momentics/loadsink/sink/mocks"
	"github.com/momentics/loadsink/transport/tcp"
	"go.uber.org/mock/gomock"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// running is a bound sink serving in the background.
type running struct {
	s      *sink.Sink
	cancel context.CancelFunc
	done   chan error
}

func start(t testing.TB, h api.Handler, ports ...int) *running {
	t.Helper()
	if len(ports) == 0 {
		ports = []int{0}
	}
	cfg := sink.DefaultConfig()
	cfg.Host = "127.0.0.1"
	cfg.Ports = ports
	cfg.Logger = quietLogger()
	s, err := sink.New(cfg, h)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	if err := s.Bind(ctx); err != nil {
		cancel()
		t.Fatalf("bind: %v", err)
	}
	r := &running{s: s, cancel: cancel, done: make(chan error, 1)}
	go func() { r.done <- s.Serve(ctx) }()
	t.Cleanup(func() { _ = r.stop(t) })
	return r
}

func (r *running) addr(i int) string {
	return r.s.Addrs()[i].String()
}

// stop cancels the sink and waits for Serve to return.
func (r *running) stop(t testing.TB) error {
	t.Helper()
	r.cancel()
	select {
	case err, ok := <-r.done:
		if !ok {
			return nil
		}
		close(r.done)
		return err
	case <-time.After(5 * time.Second):
		t.Fatal("serve did not return after cancel")
		return nil
	}
}

// recorder keeps every handler call in arrival order.
type recorder struct {
	mu     sync.Mutex
	events []string
	data   map[string]*bytes.Buffer
	closed chan api.CloseEvent
}

func newRecorder() *recorder {
	return &recorder{data: make(map[string]*bytes.Buffer), closed: make(chan api.CloseEvent, 1024)}
}

func (r *recorder) handler() api.Handler {
	return api.HandlerFuncs{
		Open: func(ev api.OpenEvent) { r.add(ev.Conn.ID, "open") },
		Data: func(ev api.DataEvent) {
			r.mu.Lock()
			b, ok := r.data[ev.Conn.ID]
			if !ok {
				b = new(bytes.Buffer)
				r.data[ev.Conn.ID] = b
			}
			b.Write(ev.Chunk)
			r.mu.Unlock()
			r.add(ev.Conn.ID, "data")
		},
		Error: func(ev api.ErrorEvent) {
			r.add(ev.Conn.ID, "error:"+api.CodeOf(ev.Err).String())
		},
		Close: func(ev api.CloseEvent) {
			r.add(ev.Conn.ID, "close")
			r.closed <- ev
		},
	}
}

func (r *recorder) add(id, kind string) {
	r.mu.Lock()
	r.events = append(r.events, id+" "+kind)
	r.mu.Unlock()
}

func (r *recorder) waitClosed(t testing.TB, n int) []api.CloseEvent {
	t.Helper()
	out := make([]api.CloseEvent, 0, n)
	timeout := time.After(5 * time.Second)
	for len(out) < n {
		select {
		case ev := <-r.closed:
			out = append(out, ev)
		case <-timeout:
			t.Fatalf("saw %d of %d close events", len(out), n)
		}
	}
	return out
}

// perConn splits the recorded events by connection.
func (r *recorder) perConn() map[string][]string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make(map[string][]string)
	for _, e := range r.events {
		id, kind, _ := strings.Cut(e, " ")
		out[id] = append(out[id], kind)
	}
	return out
}

// checkLifecycle asserts open, data*, error?, close for one connection.
func checkLifecycle(t testing.TB, id string, kinds []string) {
	t.Helper()
	if len(kinds) < 2 || kinds[0] != "open" || kinds[len(kinds)-1] != "close" {
		t.Fatalf("conn %s: malformed lifecycle %v", id, kinds)
	}
	mid := kinds[1 : len(kinds)-1]
	for i, k := range mid {
		if k == "data" {
			continue
		}
		if !strings.HasPrefix(k, "error:") || i != len(mid)-1 {
			t.Fatalf("conn %s: unexpected %q at %d in %v", id, k, i+1, kinds)
		}
	}
}

func TestNewRejectsConfigWithoutPorts(t *testing.T) {
	_, err := sink.New(sink.DefaultConfig(), nil)
	if !errors.Is(err, api.ErrInvalidArgument) {
		t.Fatalf("expected invalid argument, got %v", err)
	}
	cfg := sink.DefaultConfig()
	cfg.Ports = []int{8080, 65536}
	if _, err := sink.New(cfg, nil); !errors.Is(err, api.ErrInvalidArgument) {
		t.Fatalf("expected invalid argument for port 65536, got %v", err)
	}
}

func TestPingDeliveredAsOneChunk(t *testing.T) {
	ctrl := gomock.NewController(t)
	h := mocks.NewMockHandler(ctrl)
	closed := make(chan api.CloseEvent, 1)

	gomock.InOrder(
		h.EXPECT().OnOpen(gomock.Any()),
		h.EXPECT().OnData(gomock.Any()).Do(func(ev api.DataEvent) {
			if string(ev.Chunk) != "ping" {
				t.Errorf("chunk = %q, want ping", ev.Chunk)
			}
		}),
		h.EXPECT().OnClose(gomock.Any()).Do(func(ev api.CloseEvent) { closed <- ev }),
	)

	r := start(t, h)
	c, err := net.Dial("tcp", r.addr(0))
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	if _, err := c.Write([]byte("ping")); err != nil {
		t.Fatalf("write: %v", err)
	}
	_ = c.Close()

	select {
	case ev := <-closed:
		if ev.Bytes != 4 || ev.Chunks != 1 {
			t.Fatalf("close stats: bytes=%d chunks=%d", ev.Bytes, ev.Chunks)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("no close event")
	}
	if err := r.stop(t); err != nil {
		t.Fatalf("serve: %v", err)
	}
}

func TestEmptyConnectionHasNoData(t *testing.T) {
	ctrl := gomock.NewController(t)
	h := mocks.NewMockHandler(ctrl)
	closed := make(chan api.CloseEvent, 1)

	gomock.InOrder(
		h.EXPECT().OnOpen(gomock.Any()),
		h.EXPECT().OnClose(gomock.Any()).Do(func(ev api.CloseEvent) { closed <- ev }),
	)

	r := start(t, h)
	c, err := net.Dial("tcp", r.addr(0))
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	_ = c.Close()

	select {
	case ev := <-closed:
		if ev.Bytes != 0 || ev.Chunks != 0 {
			t.Fatalf("expected empty close, got bytes=%d chunks=%d", ev.Bytes, ev.Chunks)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("no close event")
	}
	_ = r.stop(t)
}

func TestBindConflictIsFatal(t *testing.T) {
	first := start(t, nil)
	port := first.s.Addrs()[0].(*net.TCPAddr).Port

	cfg := sink.DefaultConfig()
	cfg.Host = "127.0.0.1"
	cfg.Ports = []int{port}
	cfg.Logger = quietLogger()
	for i := 0; i < 3; i++ {
		err := sink.Listen(context.Background(), cfg, nil)
		if !errors.Is(err, api.ErrBind) {
			t.Fatalf("attempt %d: expected bind error, got %v", i, err)
		}
	}
}

func TestBindFailureReleasesEarlierPorts(t *testing.T) {
	busy, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer busy.Close()
	free, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	freePort := free.Addr().(*net.TCPAddr).Port
	_ = free.Close()

	cfg := sink.DefaultConfig()
	cfg.Host = "127.0.0.1"
	cfg.Ports = []int{freePort, busy.Addr().(*net.TCPAddr).Port}
	cfg.Logger = quietLogger()
	s, err := sink.New(cfg, nil)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if err := s.Bind(context.Background()); api.CodeOf(err) != api.ErrCodeBind {
		t.Fatalf("expected bind error, got %v", err)
	}
	if n := len(s.Addrs()); n != 0 {
		t.Fatalf("expected no bound listeners, got %d", n)
	}

	again, err := net.Listen("tcp", fmt.Sprintf("127.0.0.1:%d", freePort))
	if err != nil {
		t.Fatalf("first port still held: %v", err)
	}
	_ = again.Close()
}

func TestServeBeforeBindFails(t *testing.T) {
	cfg := sink.DefaultConfig()
	cfg.Ports = []int{0}
	s, err := sink.New(cfg, nil)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if err := s.Serve(context.Background()); !errors.Is(err, api.ErrInvalidArgument) {
		t.Fatalf("expected invalid argument, got %v", err)
	}
}

func TestEveryPortReportsItsConnections(t *testing.T) {
	rec := newRecorder()
	r := start(t, rec.handler(), 0, 0, 0)

	for i := range r.s.Addrs() {
		c, err := net.Dial("tcp", r.addr(i))
		if err != nil {
			t.Fatalf("dial %d: %v", i, err)
		}
		_, _ = c.Write([]byte{byte('a' + i)})
		_ = c.Close()
	}

	ports := make(map[int]bool)
	for _, ev := range rec.waitClosed(t, 3) {
		ports[ev.Conn.Port] = true
	}
	for _, a := range r.s.Addrs() {
		if p := a.(*net.TCPAddr).Port; !ports[p] {
			t.Fatalf("no connection reported for port %d", p)
		}
	}
	for id, kinds := range rec.perConn() {
		checkLifecycle(t, id, kinds)
	}
}

func TestDriverLoadDeliveredInOrder(t *testing.T) {
	rec := newRecorder()
	r := start(t, rec.handler())
	port := r.s.Addrs()[0].(*net.TCPAddr).Port

	const conns, writes = 10, 30
	cfg := driver.DefaultConfig()
	cfg.Host = "127.0.0.1"
	cfg.Port = port
	cfg.Connections = conns
	cfg.Writes = writes
	cfg.Payload = []byte("Hello, server!")
	cfg.Delay = 0
	cfg.Logger = quietLogger()

	rep, err := driver.Run(context.Background(), cfg)
	if err != nil {
		t.Fatalf("driver: %v", err)
	}
	if rep.Completed != conns {
		t.Fatalf("completed %d of %d: %s", rep.Completed, conns, rep)
	}
	rec.waitClosed(t, conns)

	want := bytes.Repeat(cfg.Payload, writes)
	rec.mu.Lock()
	for id, buf := range rec.data {
		if !bytes.Equal(buf.Bytes(), want) {
			t.Errorf("conn %s: got %d bytes, stream differs", id, buf.Len())
		}
	}
	rec.mu.Unlock()
	for id, kinds := range rec.perConn() {
		checkLifecycle(t, id, kinds)
	}

	stats := r.s.Stats()
	if got := stats[sink.MetricAccepted].(int64); got != int64(rep.Connected) {
		t.Fatalf("accepted %d, driver connected %d", got, rep.Connected)
	}
	if got := stats[sink.MetricBytes].(int64); got != int64(len(want)*conns) {
		t.Fatalf("bytes received %d, want %d", got, len(want)*conns)
	}
	if got := stats[sink.MetricActive].(int64); got != 0 {
		t.Fatalf("active = %d after all closes", got)
	}
}

func TestResetConnectionEndsWithClose(t *testing.T) {
	rec := newRecorder()
	r := start(t, rec.handler())

	dc := tcp.DefaultDialConfig()
	dc.Linger = 0
	c, err := tcp.Dial(context.Background(), r.addr(0), dc)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	_, _ = c.Write([]byte("x"))
	_ = c.Close()

	ev := rec.waitClosed(t, 1)[0]
	kinds := rec.perConn()[ev.Conn.ID]
	checkLifecycle(t, ev.Conn.ID, kinds)

	var errs int64
	for _, k := range kinds {
		if strings.HasPrefix(k, "error:") {
			errs++
			if k != "error:"+api.ErrCodeTransport.String() {
				t.Fatalf("unexpected error kind %q", k)
			}
		}
	}
	if got := r.s.Metrics().Load(sink.MetricTransportErrors); got != errs {
		t.Fatalf("transport errors counter %d, handler saw %d", got, errs)
	}
}

func TestCancelClosesOpenConnections(t *testing.T) {
	rec := newRecorder()
	r := start(t, rec.handler())

	c, err := net.Dial("tcp", r.addr(0))
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer c.Close()
	_, _ = c.Write([]byte("held open"))

	deadline := time.Now().Add(5 * time.Second)
	for r.s.Metrics().Load(sink.MetricChunks) == 0 {
		if time.Now().After(deadline) {
			t.Fatal("chunk never received")
		}
		time.Sleep(5 * time.Millisecond)
	}

	if err := r.stop(t); err != nil {
		t.Fatalf("serve: %v", err)
	}
	// Serve waits for close events to be handled before returning.
	select {
	case <-rec.closed:
	default:
		t.Fatal("open connection was not closed on shutdown")
	}

	_ = c.SetReadDeadline(time.Now().Add(2 * time.Second))
	if _, err := c.Read(make([]byte, 1)); err == nil {
		t.Fatal("peer still open after shutdown")
	}
}

func TestHandlerPanicDoesNotStopSink(t *testing.T) {
	var mu sync.Mutex
	var got []byte
	closed := make(chan struct{}, 4)
	var calls int
	h := api.HandlerFuncs{
		Data: func(ev api.DataEvent) {
			mu.Lock()
			calls++
			first := calls == 1
			got = append(got, ev.Chunk...)
			mu.Unlock()
			if first {
				panic("boom")
			}
		},
		Close: func(api.CloseEvent) { closed <- struct{}{} },
	}
	r := start(t, h)

	for _, msg := range []string{"a", "b"} {
		c, err := net.Dial("tcp", r.addr(0))
		if err != nil {
			t.Fatalf("dial: %v", err)
		}
		_, _ = c.Write([]byte(msg))
		_ = c.Close()
		select {
		case <-closed:
		case <-time.After(5 * time.Second):
			t.Fatalf("no close after %q", msg)
		}
	}
	mu.Lock()
	defer mu.Unlock()
	if string(got) != "ab" {
		t.Fatalf("got %q, want ab", got)
	}
}

func TestStatsIncludeProbes(t *testing.T) {
	r := start(t, api.HandlerFuncs{})
	stats := r.s.Stats()
	for _, key := range []string{"debug.loop.pending", "debug.pool.in_use", "debug.listeners"} {
		if _, ok := stats[key]; !ok {
			t.Fatalf("missing %s in %v", key, stats)
		}
	}
	if n := stats["debug.listeners"].(int); n != 1 {
		t.Fatalf("listeners = %d", n)
	}
}
