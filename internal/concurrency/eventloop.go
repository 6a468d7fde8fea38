// File: internal/concurrency/eventloop.go
// Package concurrency implements a single-goroutine event loop over an
// unbounded FIFO.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Producers never block and events are never dropped while the loop is open.
// Handlers run on the loop goroutine only, one event at a time, in post order.

package concurrency

import (
	"sync"
	"sync/atomic"

	"github.com/eapache/queue"
)

type Event struct {
	Data interface{}
}

type EventHandler interface {
	HandleEvent(ev Event)
}

// HandlerFunc adapts a function to EventHandler.
type HandlerFunc func(ev Event)

func (f HandlerFunc) HandleEvent(ev Event) { f(ev) }

type EventLoop struct {
	mu     sync.Mutex
	queue  *queue.Queue
	closed bool

	regMu     sync.Mutex
	handlers  atomic.Pointer[[]EventHandler]
	wake      chan struct{}
	batchSize int
	done      chan struct{}
	running   int32
	stopOnce  sync.Once

	dispatched atomic.Int64
}

// NewEventLoop creates a new EventLoop that dequeues up to batchSize events
// per lock acquisition.
func NewEventLoop(batchSize int) *EventLoop {
	if batchSize <= 0 {
		batchSize = 16
	}
	loop := &EventLoop{
		queue:     queue.New(),
		wake:      make(chan struct{}, 1),
		batchSize: batchSize,
		done:      make(chan struct{}),
	}
	loop.handlers.Store(&[]EventHandler{})
	return loop
}

// Pending returns the number of queued, not yet dispatched events.
func (el *EventLoop) Pending() int {
	el.mu.Lock()
	defer el.mu.Unlock()
	return el.queue.Length()
}

// Dispatched returns the number of events handed to handlers so far.
func (el *EventLoop) Dispatched() int64 {
	return el.dispatched.Load()
}

// RegisterHandler adds h; it receives every event dispatched afterwards.
func (el *EventLoop) RegisterHandler(h EventHandler) {
	el.regMu.Lock()
	defer el.regMu.Unlock()
	old := *el.handlers.Load()
	next := make([]EventHandler, len(old), len(old)+1)
	copy(next, old)
	next = append(next, h)
	el.handlers.Store(&next)
}

func (el *EventLoop) UnregisterHandler(h EventHandler) {
	el.regMu.Lock()
	defer el.regMu.Unlock()
	next := []EventHandler{}
	for _, hh := range *el.handlers.Load() {
		if hh != h {
			next = append(next, hh)
		}
	}
	el.handlers.Store(&next)
}

// Post enqueues ev. It returns false once Stop has been called.
func (el *EventLoop) Post(ev Event) bool {
	el.mu.Lock()
	if el.closed {
		el.mu.Unlock()
		return false
	}
	el.queue.Add(ev)
	el.mu.Unlock()

	select {
	case el.wake <- struct{}{}:
	default:
	}
	return true
}

// Run dispatches events until Stop is called and the queue is drained.
// A second concurrent call returns immediately.
func (el *EventLoop) Run() {
	if !atomic.CompareAndSwapInt32(&el.running, 0, 1) {
		return
	}
	defer func() {
		el.handlers.Store(&[]EventHandler{})
		close(el.done)
	}()
	batch := make([]Event, 0, el.batchSize)
	for {
		var closed bool
		batch, closed = el.nextBatch(batch[:0])
		if len(batch) > 0 {
			el.dispatch(batch)
			continue
		}
		if closed {
			return
		}
		<-el.wake
	}
}

// Stop rejects further posts and lets Run drain what is already queued. It
// waits for Run only if Run has started; callers racing a fresh Run goroutine
// wait on Done instead.
func (el *EventLoop) Stop() {
	el.stopOnce.Do(func() {
		el.mu.Lock()
		el.closed = true
		el.mu.Unlock()
		select {
		case el.wake <- struct{}{}:
		default:
		}
	})
	if atomic.LoadInt32(&el.running) == 1 {
		<-el.done
	}
}

// Done is closed when Run returns.
func (el *EventLoop) Done() <-chan struct{} {
	return el.done
}

func (el *EventLoop) nextBatch(batch []Event) ([]Event, bool) {
	el.mu.Lock()
	defer el.mu.Unlock()
	for len(batch) < el.batchSize && el.queue.Length() > 0 {
		batch = append(batch, el.queue.Remove().(Event))
	}
	return batch, el.closed
}

func (el *EventLoop) dispatch(batch []Event) {
	handlers := *el.handlers.Load()
	for i := range batch {
		for _, h := range handlers {
			h.HandleEvent(batch[i])
		}
		batch[i] = Event{}
		el.dispatched.Add(1)
	}
}
