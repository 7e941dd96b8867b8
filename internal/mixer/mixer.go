// Package mixer declares the contract this daemon expects from the
// mixing core: the sink/source registry and the pull-driven mixing
// loop. The mixing core itself is out of scope (spec.md §1) — this
// package holds interfaces only, mirroring pa_sink / pa_sink_input /
// pa_idxset from original_source/src/protocol-native.c closely enough
// that a real mixing core can implement them directly.
package mixer

import "github.com/a-darwish/pulseaudio/internal/tagstruct"

// Chunk is a contiguous span of PCM bytes, as handed to/from a
// SinkInput/SourceOutput.
type Chunk struct {
	Data []byte
}

// SinkInputOps are the callbacks the mixer invokes on a registered
// playback stream, under the mixer's own serialization discipline —
// not necessarily the same goroutine that handles that connection's
// wire traffic. Grounded on protocol-native.c's sink_input_peek_cb /
// sink_input_drop_cb / sink_input_kill_cb / sink_input_get_latency_cb.
type SinkInputOps interface {
	// Peek returns the next chunk the mixer should pull, or ok=false if
	// nothing is available right now.
	Peek() (chunk Chunk, ok bool)
	// Drop tells the stream the mixer consumed n bytes of the most
	// recent Peek result.
	Drop(n int)
	// Kill asks the owning stream to free itself (e.g. the sink
	// disappeared, or the mixer is shutting down).
	Kill()
	// LatencyUsec reports the stream's queued playback latency.
	LatencyUsec() int64
}

// SourceOutputOps is the symmetric record-direction contract. Reserved
// for completeness per spec.md §3 ("Record stream") — no command
// handler currently drives it.
type SourceOutputOps interface {
	Push(chunk Chunk)
	Kill()
}

// SinkInputHandle is the mixer-assigned identity of a registered
// playback stream.
type SinkInputHandle struct {
	Index uint32
}

// SourceOutputHandle is the mixer-assigned identity of a registered
// record stream.
type SourceOutputHandle struct {
	Index uint32
}

// Sink is a mixer output device a playback stream can attach to.
type Sink interface {
	Index() uint32
	Name() string
	// NewInput registers ops as a new sink input on this sink and
	// returns its mixer-assigned handle.
	NewInput(ss tagstruct.SampleSpec, ops SinkInputOps) (SinkInputHandle, error)
	// RemoveInput deregisters a previously-registered sink input. The
	// mixer MUST NOT call back into ops during this call.
	RemoveInput(h SinkInputHandle)
	// Notify wakes the mixer's pull loop after new data has been pushed
	// into a previously-starved input, mirroring pa_sink_notify in
	// protocol-native.c's memblock handling.
	Notify()
}

// Source is a mixer input device a record stream can attach to.
type Source interface {
	Index() uint32
	Name() string
	NewOutput(ss tagstruct.SampleSpec, ops SourceOutputOps) (SourceOutputHandle, error)
	RemoveOutput(h SourceOutputHandle)
}

// Core is the mixer's registry of sinks and sources, the one
// external collaborator the session package depends on.
type Core interface {
	// DefaultSink returns the sink used when a client asks for index
	// 0xFFFFFFFF. ok is false if no sink exists.
	DefaultSink() (Sink, bool)
	// DefaultSource is the Source analogue of DefaultSink.
	DefaultSource() (Source, bool)
	// SinkByIndex / SinkByName back LOOKUP_SINK and explicit
	// sink_index arguments.
	SinkByIndex(index uint32) (Sink, bool)
	SinkByName(name string) (Sink, bool)
	// SourceByIndex / SourceByName are the Source analogues.
	SourceByIndex(index uint32) (Source, bool)
	SourceByName(name string) (Source, bool)
}
