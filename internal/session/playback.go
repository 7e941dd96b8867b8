package session

import (
	"sync"

	"github.com/a-darwish/pulseaudio/internal/blockqueue"
	"github.com/a-darwish/pulseaudio/internal/mixer"
	"github.com/a-darwish/pulseaudio/internal/perr"
	"github.com/a-darwish/pulseaudio/internal/tagstruct"
	"github.com/a-darwish/pulseaudio/internal/wire"
)

// PlaybackStream is one CREATE_PLAYBACK_STREAM registration: a block
// queue fed by inbound memblocks on one channel, drained by the mixer
// through the SinkInputOps contract, with flow-control credit and
// DRAIN_PLAYBACK_STREAM bookkeeping layered on top.
//
// Grounded on the pa_sink_input / connection playback_stream struct in
// original_source/src/protocol-native.c: request_bytes tracking in
// sink_input_peek_cb/sink_input_drop_cb, and the drain_request /
// drain_tag fields on struct playback_stream.
type PlaybackStream struct {
	conn  *Connection
	index uint32

	ss tagstruct.SampleSpec

	sink      mixer.Sink
	sinkInput mixer.SinkInputHandle
	queue     *blockqueue.Queue

	mu             sync.Mutex
	requestedBytes int
	drainRequest   bool
	drainTag       uint32
	freed          bool
}

func newPlaybackStream(conn *Connection, index uint32, ss tagstruct.SampleSpec, sink mixer.Sink, queue *blockqueue.Queue) *PlaybackStream {
	return &PlaybackStream{conn: conn, index: index, ss: ss, sink: sink, queue: queue}
}

// Peek implements mixer.SinkInputOps.
func (s *PlaybackStream) Peek() (mixer.Chunk, bool) {
	data, ok := s.queue.Peek()
	if !ok {
		return mixer.Chunk{}, false
	}
	return mixer.Chunk{Data: data}, true
}

// Drop implements mixer.SinkInputOps.
func (s *PlaybackStream) Drop(n int) {
	s.queue.Drop(n)
	s.recomputeCredit()
	s.maybeCompleteDrain()
}

// Kill implements mixer.SinkInputOps: the mixer is telling this stream
// to free itself (sink removal, mixer shutdown). The sink input is
// already being torn down on the mixer's side, so free must not call
// RemoveInput again.
func (s *PlaybackStream) Kill() {
	s.free(true)
}

// LatencyUsec implements mixer.SinkInputOps.
func (s *PlaybackStream) LatencyUsec() int64 {
	return bytesToUsec(s.queue.Length(), s.ss)
}

// HandleMemblock applies one inbound memblock frame: it reduces
// outstanding credit by the bytes just received (floored at zero, since
// a client may legitimately send more than it was last granted if a
// REQUEST and a write cross in flight) and enqueues the payload, gap-
// filling delta bytes of silence first per spec.md §4.2.
func (s *PlaybackStream) HandleMemblock(payload []byte, delta int32) {
	s.mu.Lock()
	if len(payload) >= s.requestedBytes {
		s.requestedBytes = 0
	} else {
		s.requestedBytes -= len(payload)
	}
	s.mu.Unlock()

	s.queue.PushAlign(payload, delta)
	s.sink.Notify()
}

// recomputeCredit implements spec.md §4.6's flow-control rule: grant
// more credit only once the gap since the last REQUEST reaches MinReq,
// to avoid a storm of tiny REQUEST frames.
func (s *PlaybackStream) recomputeCredit() {
	want := s.queue.Missing()

	s.mu.Lock()
	delta := want - s.requestedBytes
	if delta < s.queue.MinReq() {
		s.mu.Unlock()
		return
	}
	s.requestedBytes += delta
	s.mu.Unlock()

	s.sendRequest(delta)
}

// requestInitialCredit grants the stream's full target length as its
// first REQUEST, issued once right after CREATE_PLAYBACK_STREAM's reply
// per spec.md §4.6.
func (s *PlaybackStream) requestInitialCredit() {
	want := s.queue.Missing()
	if want <= 0 {
		return
	}
	s.mu.Lock()
	s.requestedBytes += want
	s.mu.Unlock()
	s.sendRequest(want)
}

func (s *PlaybackStream) sendRequest(n int) {
	rec := tagstruct.New()
	rec.PutU32(wire.CmdRequest)
	rec.PutU32(wire.NoReplyTag)
	rec.PutU32(s.index)
	rec.PutU32(uint32(n))
	s.conn.sendPacket(rec)
}

// Drain implements DRAIN_PLAYBACK_STREAM: acknowledges immediately if
// the queue has already drained, otherwise defers the reply until the
// queue next empties.
func (s *PlaybackStream) Drain(tag uint32) {
	if !s.queue.IsReadable() {
		s.conn.sendSimpleAck(tag)
		return
	}
	s.mu.Lock()
	s.drainRequest = true
	s.drainTag = tag
	s.mu.Unlock()
}

func (s *PlaybackStream) maybeCompleteDrain() {
	s.mu.Lock()
	if !s.drainRequest || s.queue.IsReadable() {
		s.mu.Unlock()
		return
	}
	tag := s.drainTag
	s.drainRequest = false
	s.mu.Unlock()
	s.conn.sendSimpleAck(tag)
}

// free tears the stream down exactly once. fromMixer is true when Kill
// initiated the teardown (the mixer is already removing the sink input
// on its own, so calling RemoveInput again would be a double free);
// it is false when a client DELETE_PLAYBACK_STREAM command drives it.
func (s *PlaybackStream) free(fromMixer bool) {
	s.mu.Lock()
	if s.freed {
		s.mu.Unlock()
		return
	}
	s.freed = true
	wasDraining := s.drainRequest
	drainTag := s.drainTag
	s.drainRequest = false
	s.mu.Unlock()

	s.conn.removePlaybackStream(s.index)

	if !fromMixer {
		s.sink.RemoveInput(s.sinkInput)
	}

	if wasDraining {
		s.conn.sendError(drainTag, perr.CodeNoEntity)
	}
}

// bytesToUsec converts a byte length to microseconds of playback time
// at ss's frame rate, per pa_bytes_to_usec.
func bytesToUsec(length int, ss tagstruct.SampleSpec) int64 {
	frameSize := wire.BytesPerSample(ss.Encoding) * int(ss.Channels)
	if frameSize <= 0 || ss.Rate == 0 {
		return 0
	}
	frames := int64(length) / int64(frameSize)
	return frames * 1_000_000 / int64(ss.Rate)
}
