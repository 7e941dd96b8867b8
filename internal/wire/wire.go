// Package wire implements the frame-level transport format: a 20-byte
// descriptor followed by either a serialized tagged-record packet or a
// raw memblock payload. Everything above this layer (the dispatcher,
// the session package) reads and writes Frame values and never touches
// descriptor bytes directly.
//
// Framing is grounded on the teacher's BuildDescriptor/BuildCommand
// helpers in internal/pulse/protocol.go and on the memblock/packet split
// in protocol-native.c's pstream callbacks.
package wire

import (
	"encoding/binary"
	"fmt"
	"io"
)

// Command IDs. Values match the teacher's own command table
// (internal/pulse/protocol.go) plus the ones spec.md §4.8 adds.
const (
	CmdError                = 0
	CmdTimeout              = 1
	CmdReply                = 2
	CmdCreatePlaybackStream = 3
	CmdDeletePlaybackStream = 4
	CmdCreateRecordStream   = 5
	CmdDeleteRecordStream   = 6
	CmdExit                 = 7
	CmdAuth                 = 8
	CmdSetClientName        = 9
	CmdLookupSink           = 10
	CmdLookupSource         = 11
	CmdDrainPlaybackStream  = 12
	CmdRequest              = 61

	// CommandMax sizes the dispatcher's fixed handler table.
	CommandMax = 62
)

// ControlChannel is the channel ID used for control (packet) frames.
const ControlChannel = 0xFFFFFFFF

// DefaultSinkIndex means "use the default sink" in
// CREATE_PLAYBACK_STREAM's sink_index argument.
const DefaultSinkIndex = 0xFFFFFFFF

// NoReplyTag is the tag used on server-initiated frames (REQUEST) that
// expect no reply.
const NoReplyTag = 0xFFFFFFFF

// DescriptorSize is the size of a frame descriptor in bytes.
const DescriptorSize = 20

// Sample formats, copied from the teacher's internal/pulse/protocol.go
// so wire values stay consistent between the client and server sides
// of this port.
const (
	SampleU8        = 0
	SampleALaw      = 1
	SampleULaw      = 2
	SampleS16LE     = 3
	SampleS16BE     = 4
	SampleFloat32LE = 5
	SampleFloat32BE = 6
	SampleS32LE     = 7
	SampleS32BE     = 8
	SampleS24LE     = 9
	SampleS24BE     = 10
	SampleS2432LE   = 11
	SampleS2432BE   = 12
)

// BytesPerSample returns the per-channel sample width for encoding, or 0
// for an unrecognized value.
func BytesPerSample(encoding uint8) int {
	switch encoding {
	case SampleU8, SampleALaw, SampleULaw:
		return 1
	case SampleS16LE, SampleS16BE:
		return 2
	case SampleS24LE, SampleS24BE:
		return 3
	case SampleS32LE, SampleS32BE, SampleFloat32LE, SampleFloat32BE, SampleS2432LE, SampleS2432BE:
		return 4
	default:
		return 0
	}
}

// Frame is a single decoded wire frame: either a control packet
// (Channel == ControlChannel, Payload is a tagstruct-encoded record) or
// a memblock (Channel identifies the target stream, Delta carries
// jitter/gap signalling, Payload is raw audio bytes).
type Frame struct {
	Channel uint32
	Delta   int32
	Payload []byte
}

// IsPacket reports whether this frame is a control packet rather than a
// memblock.
func (f Frame) IsPacket() bool { return f.Channel == ControlChannel }

// ReadFrame reads one descriptor + payload from r.
func ReadFrame(r io.Reader) (Frame, error) {
	var desc [DescriptorSize]byte
	if _, err := io.ReadFull(r, desc[:]); err != nil {
		return Frame{}, fmt.Errorf("wire: read descriptor: %w", err)
	}

	length := binary.BigEndian.Uint32(desc[0:4])
	channel := binary.BigEndian.Uint32(desc[4:8])
	delta := int32(binary.BigEndian.Uint32(desc[8:12]))

	var payload []byte
	if length > 0 {
		payload = make([]byte, length)
		if _, err := io.ReadFull(r, payload); err != nil {
			return Frame{}, fmt.Errorf("wire: read payload (%d bytes): %w", length, err)
		}
	}

	return Frame{Channel: channel, Delta: delta, Payload: payload}, nil
}

// WriteFrame writes a descriptor + payload to w.
func WriteFrame(w io.Writer, f Frame) error {
	var desc [DescriptorSize]byte
	binary.BigEndian.PutUint32(desc[0:4], uint32(len(f.Payload)))
	binary.BigEndian.PutUint32(desc[4:8], f.Channel)
	binary.BigEndian.PutUint32(desc[8:12], uint32(f.Delta))
	// Delta occupies the offset_hi slot; offset_lo and flags stay zero.

	if _, err := w.Write(desc[:]); err != nil {
		return fmt.Errorf("wire: write descriptor: %w", err)
	}
	if len(f.Payload) > 0 {
		if _, err := w.Write(f.Payload); err != nil {
			return fmt.Errorf("wire: write payload: %w", err)
		}
	}
	return nil
}

// WritePacket frames and writes a control packet.
func WritePacket(w io.Writer, payload []byte) error {
	return WriteFrame(w, Frame{Channel: ControlChannel, Payload: payload})
}

// WriteMemblock frames and writes a memblock addressed to channel.
func WriteMemblock(w io.Writer, channel uint32, delta int32, payload []byte) error {
	return WriteFrame(w, Frame{Channel: channel, Delta: delta, Payload: payload})
}
