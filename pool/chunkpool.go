// File: pool/chunkpool.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Fixed-size read buffers for per-connection chunk reads.

package pool

import (
	"sync"
	"sync/atomic"
)

// DefaultChunkSize matches the 64 KiB read high-water mark of common
// event-driven runtimes.
const DefaultChunkSize = 64 * 1024

// Stats aggregates allocation/reuse counters.
type Stats struct {
	Gets  int64
	Puts  int64
	InUse int64
	New   int64
}

// ChunkPool hands out *[]byte buffers of a fixed length.
// Pointers are pooled to avoid an allocation per Put.
type ChunkPool struct {
	pool sync.Pool // of *[]byte
	size int

	gets  atomic.Int64
	puts  atomic.Int64
	fresh atomic.Int64
}

// NewChunkPool creates a pool of size-byte buffers. size <= 0 selects
// DefaultChunkSize.
func NewChunkPool(size int) *ChunkPool {
	if size <= 0 {
		size = DefaultChunkSize
	}
	cp := &ChunkPool{size: size}
	cp.pool.New = func() any {
		cp.fresh.Add(1)
		b := make([]byte, size)
		return &b
	}
	return cp
}

// Size returns the length of every buffer handed out.
func (cp *ChunkPool) Size() int {
	return cp.size
}

// Get returns a buffer of length Size().
func (cp *ChunkPool) Get() *[]byte {
	cp.gets.Add(1)
	b := cp.pool.Get().(*[]byte)
	*b = (*b)[:cp.size]
	return b
}

// Put returns a buffer; foreign-sized buffers are dropped.
func (cp *ChunkPool) Put(b *[]byte) {
	if b == nil {
		return
	}
	cp.puts.Add(1)
	if cap(*b) < cp.size {
		return
	}
	cp.pool.Put(b)
}

// Stats returns a snapshot of the pool counters.
func (cp *ChunkPool) Stats() Stats {
	gets, puts := cp.gets.Load(), cp.puts.Load()
	return Stats{
		Gets:  gets,
		Puts:  puts,
		InUse: gets - puts,
		New:   cp.fresh.Load(),
	}
}
