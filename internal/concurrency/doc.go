// File: internal/concurrency/doc.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Concurrency primitives for the sink: an event loop that serialises
// connection callbacks onto one goroutine without exerting backpressure
// on the readers feeding it.
package concurrency
