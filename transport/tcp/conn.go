// Copyright (c) 2025
// Author: momentics <momentics@gmail.com>

package tcp

import (
	"errors"
	"io"
	"iter"
	"net"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/momentics/loadsink/api"
	"github.com/momentics/loadsink/pool"
	"github.com/mxk/go-flowrate/flowrate"
)

// Conn is an accepted connection. It must be read by a single goroutine.
type Conn struct {
	raw    net.Conn
	info   api.ConnInfo
	reader *flowrate.Reader

	chunks    atomic.Int64
	bytes     atomic.Int64
	closed    atomic.Bool
	closeOnce sync.Once
	closeErr  error
}

// NewConn wraps raw, tagging it with a fresh id. port is the listening port.
func NewConn(raw net.Conn, port int) *Conn {
	return &Conn{
		raw: raw,
		info: api.ConnInfo{
			ID:     uuid.NewString(),
			Port:   port,
			Local:  raw.LocalAddr(),
			Remote: raw.RemoteAddr(),
		},
		// limit 0: monitor only, never throttle
		reader: flowrate.NewReader(raw, 0),
	}
}

// Info returns the immutable connection description.
func (c *Conn) Info() api.ConnInfo {
	return c.info
}

// ID returns the connection id.
func (c *Conn) ID() string {
	return c.info.ID
}

// ChunksRead returns how many chunks have been read so far.
func (c *Conn) ChunksRead() int64 {
	return c.chunks.Load()
}

// BytesRead returns the exact number of bytes read so far.
func (c *Conn) BytesRead() int64 {
	return c.bytes.Load()
}

// Status returns the throughput monitor state. The monitor samples every
// 100ms, so its byte count lags while the connection is open and is exact
// only after Close; use BytesRead for a live total.
func (c *Conn) Status() flowrate.Status {
	return c.reader.Status()
}

// Chunk is one transport delivery backed by a pooled buffer.
type Chunk struct {
	buf  *[]byte
	n    int
	pool *pool.ChunkPool
}

// Bytes returns the received bytes. Not valid after Release.
func (ch Chunk) Bytes() []byte {
	if ch.buf == nil {
		return nil
	}
	return (*ch.buf)[:ch.n]
}

// Len returns the chunk size in bytes.
func (ch Chunk) Len() int {
	return ch.n
}

// Release hands the buffer back to its pool.
func (ch Chunk) Release() {
	if ch.pool != nil && ch.buf != nil {
		ch.pool.Put(ch.buf)
	}
}

// Chunks reads the connection as a lazy sequence that ends at EOF or at
// local close. Chunk boundaries are whatever each read returns. A read
// failure is yielded once as an ErrCodeTransport error and ends the
// sequence. The consumer owns every yielded Chunk and must Release it.
func (c *Conn) Chunks(p *pool.ChunkPool) iter.Seq2[Chunk, error] {
	return func(yield func(Chunk, error) bool) {
		for {
			buf := p.Get()
			n, err := c.reader.Read(*buf)
			if n > 0 {
				c.chunks.Add(1)
				c.bytes.Add(int64(n))
				if !yield(Chunk{buf: buf, n: n, pool: p}, nil) {
					return
				}
			} else {
				p.Put(buf)
			}
			if err == nil {
				continue
			}
			if errors.Is(err, io.EOF) || (c.closed.Load() && errors.Is(err, net.ErrClosed)) {
				return
			}
			yield(Chunk{}, api.WrapError(api.ErrCodeTransport, "read", err).WithContext("conn", c.info.ID))
			return
		}
	}
}

// Close closes the connection; later calls return the first result.
func (c *Conn) Close() error {
	c.closeOnce.Do(func() {
		c.closed.Store(true)
		// flowrate.Reader.Close marks the monitor done and closes raw.
		c.closeErr = c.reader.Close()
	})
	return c.closeErr
}
