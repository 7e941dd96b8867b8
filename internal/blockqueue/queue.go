// Package blockqueue implements the bounded FIFO of audio memory chunks
// described in spec.md §4.2: a queue parameterized by maxlength,
// tlength, prebuf, minreq, and frame_size, with an explicit
// underrun/prebuffer state machine.
//
// It is grounded on the pa_memblockq_* call sites visible in
// original_source/src/protocol-native.c (missing, peek, drop,
// push_align, is_readable). Chunks are stored in one growing byte
// slice rather than a linked list of memory blocks — Go slices already
// give cheap, contiguous, trim-from-either-end storage, so the node
// list the C original needs for its allocator isn't worth porting.
package blockqueue

import (
	"sync"
	"sync/atomic"
)

// state is the underrun/prebuffer state machine of spec.md §4.2.
type state int

const (
	starving state = iota // peek empty until fill >= prebuf
	primed                // peek returns data whenever fill > 0
)

// Attrs holds the queue's configured constants.
type Attrs struct {
	MaxLength int
	TLength   int
	Prebuf    int
	MinReq    int
	FrameSize int
}

// Queue is a bounded FIFO of audio bytes with prebuffer/min-request
// accounting. The mixer calls Peek/Drop from its own goroutine while the
// network-ingress side calls PushAlign from the connection's reader
// goroutine; both sides may run concurrently, so access is guarded by a
// mutex (the one place this port adds a lock the original single
// mainloop-threaded C code didn't need — see SPEC_FULL.md §8).
type Queue struct {
	attrs Attrs

	mu    sync.Mutex
	buf   []byte
	state state

	// writeOffset is the logical end-of-stream position: the total
	// number of bytes (silence gaps included) ever enqueued by PushAlign.
	writeOffset int64

	underruns atomic.Int64 // observability: count of drop-to-empty events
}

// New creates a Queue with the given attributes.
func New(attrs Attrs) *Queue {
	if attrs.FrameSize <= 0 {
		attrs.FrameSize = 1
	}
	return &Queue{attrs: attrs, state: starving}
}

func alignDown(n, frame int) int {
	return (n / frame) * frame
}

// PushAlign enqueues chunk at the current write position preceded by
// delta bytes of frame-aligned silence (delta <= 0 is treated as no
// gap). If the insertion would exceed MaxLength, bytes are trimmed from
// the leading edge of the queue to make room — the queue documents this
// as acceptable loss rather than rejecting the write, matching a
// playback stream's tolerance for a slow consumer falling behind.
func (q *Queue) PushAlign(chunk []byte, delta int32) {
	q.mu.Lock()
	defer q.mu.Unlock()

	gap := 0
	if delta > 0 {
		gap = alignDown(int(delta), q.attrs.FrameSize)
	}
	aligned := alignDown(len(chunk), q.attrs.FrameSize)
	chunk = chunk[:aligned]

	add := gap + len(chunk)
	if add == 0 {
		return
	}

	if len(q.buf)+add > q.attrs.MaxLength {
		overflow := len(q.buf) + add - q.attrs.MaxLength
		if overflow > len(q.buf) {
			overflow = len(q.buf)
		}
		q.buf = q.buf[overflow:]
	}

	if gap > 0 {
		q.buf = append(q.buf, make([]byte, gap)...)
	}
	q.buf = append(q.buf, chunk...)
	q.writeOffset += int64(add)

	if q.state == starving && len(q.buf) >= q.attrs.Prebuf {
		q.state = primed
	}
}

// Peek yields the next readable contiguous chunk without removing it.
// ok is false when the queue is empty, or starving (fill below Prebuf
// after an underrun).
func (q *Queue) Peek() (data []byte, ok bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if !q.readableLocked() {
		return nil, false
	}
	return q.buf, true
}

// Drop discards n bytes from the read side. Triggers an underrun
// (STARVING) if the fill falls to zero.
func (q *Queue) Drop(n int) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if n > len(q.buf) {
		n = len(q.buf)
	}
	q.buf = q.buf[n:]
	if len(q.buf) == 0 {
		if q.state == primed {
			q.underruns.Add(1)
		}
		q.state = starving
	}
}

// Missing returns max(0, tlength - fill).
func (q *Queue) Missing() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	m := q.attrs.TLength - len(q.buf)
	if m < 0 {
		m = 0
	}
	return m
}

// IsReadable reports whether the next Peek would succeed.
func (q *Queue) IsReadable() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.readableLocked()
}

func (q *Queue) readableLocked() bool {
	if q.state == starving && len(q.buf) >= q.attrs.Prebuf {
		q.state = primed
	}
	if q.state != primed {
		return false
	}
	return len(q.buf) > 0
}

// Length returns the current fill in bytes.
func (q *Queue) Length() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.buf)
}

// MinReq returns the configured minimum request grain.
func (q *Queue) MinReq() int { return q.attrs.MinReq }

// FrameSize returns the configured frame alignment.
func (q *Queue) FrameSize() int { return q.attrs.FrameSize }

// MaxLength returns the configured hard cap.
func (q *Queue) MaxLength() int { return q.attrs.MaxLength }

// TLength returns the configured target fill.
func (q *Queue) TLength() int { return q.attrs.TLength }

// Underruns returns the number of times the queue has drained to empty
// while primed — purely observability, not part of spec.md's invariants.
func (q *Queue) Underruns() int64 { return q.underruns.Load() }
