// Package ringbuf implements a lock-free single-producer/single-consumer
// byte ring, ported from pulsecore/ringbuffer.c. It exposes a
// split-region API — Peek/BeginWrite return a slice clipped to the
// physical wrap boundary rather than copying through — so a caller
// iterates the pair until the returned slice is empty to traverse a
// wrap, exactly like the C original's peek/begin_write contract.
//
// The shared fill counter is the only state touched by both sides; it
// uses atomic add/sub with acquire/release ordering so that data a
// producer writes before EndWrite is visible to a consumer that
// observes the updated count via Peek.
package ringbuf

import "sync/atomic"

// Ring is a fixed-capacity SPSC byte ring. The zero value is not usable;
// construct with New. Capacity need not be a power of two.
type Ring struct {
	memory   []byte
	capacity int

	count atomic.Int64 // bytes currently queued for read; touched by both sides

	// readIndex is private to the consumer, writeIndex to the producer.
	readIndex  int
	writeIndex int
}

// New allocates a ring of the given capacity.
func New(capacity int) *Ring {
	if capacity <= 0 {
		panic("ringbuf: capacity must be positive")
	}
	return &Ring{
		memory:   make([]byte, capacity),
		capacity: capacity,
	}
}

// Len returns the number of bytes currently queued for reading.
func (r *Ring) Len() int {
	return int(r.count.Load())
}

// Capacity returns the ring's fixed capacity.
func (r *Ring) Capacity() int {
	return r.capacity
}

// Peek returns a contiguous, physically-backed span of readable bytes
// starting at the current read position, clipped to the ring's wrap
// boundary. An empty slice means nothing is readable. Consumer-side
// only.
func (r *Ring) Peek() []byte {
	c := int(r.count.Load())
	n := c
	if r.readIndex+n > r.capacity {
		n = r.capacity - r.readIndex
	}
	return r.memory[r.readIndex : r.readIndex+n]
}

// Drop advances the read index by n bytes (n must not exceed the length
// of the slice last returned by Peek without an intervening Drop) and
// reports whether the ring was exactly full immediately before the
// drop — used by a consumer to decide whether to wake a blocked
// producer. Consumer-side only.
func (r *Ring) Drop(n int) bool {
	wasFull := r.count.Add(-int64(n))+int64(n) >= int64(r.capacity)
	r.readIndex = (r.readIndex + n) % r.capacity
	return wasFull
}

// BeginWrite returns a contiguous, physically-backed span the producer
// may fill, clipped to the ring's wrap boundary and to the remaining
// free capacity. An empty slice means the ring is full. Producer-side
// only.
func (r *Ring) BeginWrite() []byte {
	c := int(r.count.Load())
	free := r.capacity - c
	n := r.capacity - r.writeIndex
	if n > free {
		n = free
	}
	if n < 0 {
		n = 0
	}
	return r.memory[r.writeIndex : r.writeIndex+n]
}

// EndWrite advances the write index and publishes n newly-written bytes
// to the consumer. Producer-side only.
func (r *Ring) EndWrite(n int) {
	r.count.Add(int64(n))
	r.writeIndex = (r.writeIndex + n) % r.capacity
}

// Write copies as much of data as fits into the ring, looping
// BeginWrite/EndWrite across a wrap, and returns the number of bytes
// actually written.
func (r *Ring) Write(data []byte) int {
	written := 0
	for len(data) > 0 {
		dst := r.BeginWrite()
		if len(dst) == 0 {
			break
		}
		n := copy(dst, data)
		r.EndWrite(n)
		written += n
		data = data[n:]
	}
	return written
}

// Read copies as much readable data as fits into dst, looping
// Peek/Drop across a wrap, and returns the number of bytes actually
// read.
func (r *Ring) Read(dst []byte) int {
	read := 0
	for len(dst) > 0 {
		src := r.Peek()
		if len(src) == 0 {
			break
		}
		n := copy(dst, src)
		r.Drop(n)
		read += n
		dst = dst[n:]
	}
	return read
}
