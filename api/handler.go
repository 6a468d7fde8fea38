// File: api/handler.go
// Package api defines Handler interface.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package api

//go:generate go run go.uber.org/mock/mockgen@v0.6.0 -destination=../sink/mocks/handler_mock.go -package=mocks . Handler

// Handler observes connection events. The sink invokes all methods from a
// single goroutine, so implementations need no locking.
type Handler interface {
	OnOpen(ev OpenEvent)
	OnData(ev DataEvent)
	OnError(ev ErrorEvent)
	OnClose(ev CloseEvent)
}

// HandlerFuncs adapts optional functions to Handler. Nil fields are no-ops.
type HandlerFuncs struct {
	Open  func(OpenEvent)
	Data  func(DataEvent)
	Error func(ErrorEvent)
	Close func(CloseEvent)
}

func (h HandlerFuncs) OnOpen(ev OpenEvent) {
	if h.Open != nil {
		h.Open(ev)
	}
}

func (h HandlerFuncs) OnData(ev DataEvent) {
	if h.Data != nil {
		h.Data(ev)
	}
}

func (h HandlerFuncs) OnError(ev ErrorEvent) {
	if h.Error != nil {
		h.Error(ev)
	}
}

func (h HandlerFuncs) OnClose(ev CloseEvent) {
	if h.Close != nil {
		h.Close(ev)
	}
}

var _ Handler = HandlerFuncs{}
