// Package tagstruct implements the self-describing tagged-record codec
// used as the wire language between a native-protocol client and this
// daemon: an ordered, heterogeneous sequence of fields, each preceded by
// a one-byte type tag.
//
// Tag byte values are taken from the teacher's own internal/pulse
// protocol table so the two stay wire-compatible for the tags they
// share; TagU64 and TagS32 are new since the client side never needed
// them.
package tagstruct

import (
	"encoding/binary"
	"fmt"
)

// Tag bytes.
const (
	TagStringNull = 'N'
	TagU32        = 'L'
	TagS64        = 'R'
	TagSampleSpec = 'a'
	TagArbitrary  = 'x'
	TagBoolTrue   = '1'
	TagBoolFalse  = '0'
	TagU8         = 'B'
	TagString     = 't'
	TagU64        = 'u'
	TagS32        = 's'
)

// MaxAppendedSize is the inline storage capacity of a growing record
// before further writes spill into a heap-allocated buffer. spec.md
// recommends 128 bytes; the copy-independence tests are written against
// payloads that straddle this boundary (~60 and ~120 u8 entries, each
// with its own 1-byte tag).
const MaxAppendedSize = 128

// SampleSpec describes a PCM sample format: encoding, channel count, and
// sample rate in Hz.
type SampleSpec struct {
	Encoding uint8
	Channels uint8
	Rate     uint32
}

// Record is an ordered heterogeneous tuple with a finite read cursor.
//
// A Record is either appended-growing (owns a small inline array that
// spills into a heap buffer past MaxAppendedSize) or fixed-view
// (read-only over an externally owned byte slice, never copied on
// construction). Copying a Record always detaches storage from the
// source, for either variant.
type Record struct {
	appended    [MaxAppendedSize]byte
	appendedLen int
	spill       []byte

	fixed []byte // non-nil => this is a fixed-view record

	pos int
}

// New creates an empty, growing Record ready for Put* calls.
func New() *Record {
	return &Record{}
}

// NewFixedView creates a read-only Record viewing data directly; data is
// not copied, so the caller must keep it alive (and unmodified) for as
// long as the Record is read from. Use Copy to detach.
func NewFixedView(data []byte) *Record {
	return &Record{fixed: data}
}

func (r *Record) isFixed() bool { return r.fixed != nil }

func (r *Record) length() int {
	if r.isFixed() {
		return len(r.fixed)
	}
	return r.appendedLen + len(r.spill)
}

// Len returns the total number of encoded bytes.
func (r *Record) Len() int { return r.length() }

// Eof reports whether the read cursor has reached the logical end.
func (r *Record) Eof() bool { return r.pos >= r.length() }

// byteAt returns the logical byte at index i (0 <= i < length()).
func (r *Record) byteAt(i int) byte {
	if r.isFixed() {
		return r.fixed[i]
	}
	if i < r.appendedLen {
		return r.appended[i]
	}
	return r.spill[i-r.appendedLen]
}

// sliceAt copies out length logical bytes starting at start.
func (r *Record) sliceAt(start, n int) []byte {
	out := make([]byte, n)
	for i := 0; i < n; i++ {
		out[i] = r.byteAt(start + i)
	}
	return out
}

func (r *Record) write(b []byte) {
	if r.isFixed() {
		panic("tagstruct: write to a fixed-view record")
	}
	if r.spill == nil {
		room := MaxAppendedSize - r.appendedLen
		if room >= len(b) {
			copy(r.appended[r.appendedLen:], b)
			r.appendedLen += len(b)
			return
		}
		copy(r.appended[r.appendedLen:], b[:room])
		r.appendedLen = MaxAppendedSize
		b = b[room:]
		r.spill = make([]byte, 0, len(b)*2+16)
	}
	r.spill = append(r.spill, b...)
}

// Copy produces a new, independent Record whose backing storage does
// not alias the source: freeing or zeroing the source afterwards must
// not affect the copy. The fixed-view variant copies the viewed bytes
// into an owned appended region. The read cursor position is preserved.
func (r *Record) Copy() *Record {
	c := New()
	n := r.length()
	if n > 0 {
		c.write(r.sliceAt(0, n))
	}
	c.pos = r.pos
	return c
}

// --- writers ---

// PutU8 appends a u8 field.
func (r *Record) PutU8(v uint8) {
	r.write([]byte{TagU8, v})
}

// PutU32 appends a big-endian u32 field.
func (r *Record) PutU32(v uint32) {
	var b [5]byte
	b[0] = TagU32
	binary.BigEndian.PutUint32(b[1:], v)
	r.write(b[:])
}

// PutU64 appends a big-endian u64 field.
func (r *Record) PutU64(v uint64) {
	var b [9]byte
	b[0] = TagU64
	binary.BigEndian.PutUint64(b[1:], v)
	r.write(b[:])
}

// PutS32 appends a big-endian s32 field.
func (r *Record) PutS32(v int32) {
	var b [5]byte
	b[0] = TagS32
	binary.BigEndian.PutUint32(b[1:], uint32(v))
	r.write(b[:])
}

// PutString appends a NUL-terminated UTF-8 string field. An empty
// string is encoded as TAG_STRING_NULL, matching the wire convention
// used for "no value" (e.g. a default sink name).
func (r *Record) PutString(s string) {
	if s == "" {
		r.write([]byte{TagStringNull})
		return
	}
	b := make([]byte, 0, len(s)+2)
	b = append(b, TagString)
	b = append(b, s...)
	b = append(b, 0)
	r.write(b)
}

// PutArbitrary appends a length-prefixed raw byte array.
func (r *Record) PutArbitrary(data []byte) {
	b := make([]byte, 0, len(data)+5)
	b = append(b, TagArbitrary)
	var lb [4]byte
	binary.BigEndian.PutUint32(lb[:], uint32(len(data)))
	b = append(b, lb[:]...)
	b = append(b, data...)
	r.write(b)
}

// PutBool appends a boolean field.
func (r *Record) PutBool(v bool) {
	if v {
		r.write([]byte{TagBoolTrue})
	} else {
		r.write([]byte{TagBoolFalse})
	}
}

// PutSampleSpec appends a sample-format descriptor.
func (r *Record) PutSampleSpec(ss SampleSpec) {
	var b [7]byte
	b[0] = TagSampleSpec
	b[1] = ss.Encoding
	b[2] = ss.Channels
	binary.BigEndian.PutUint32(b[3:], ss.Rate)
	r.write(b[:])
}

// --- readers ---
//
// Every Get* validates the expected tag at the cursor and advances only
// on success; failure returns an error and leaves the cursor unchanged.

func (r *Record) checkedTag(want byte) error {
	if r.pos >= r.length() {
		return fmt.Errorf("tagstruct: unexpected end of record reading tag 0x%02x", want)
	}
	got := r.byteAt(r.pos)
	if got != want {
		return fmt.Errorf("tagstruct: expected tag 0x%02x, got 0x%02x", want, got)
	}
	return nil
}

// GetU8 reads a u8 field.
func (r *Record) GetU8() (uint8, error) {
	if err := r.checkedTag(TagU8); err != nil {
		return 0, err
	}
	if r.pos+2 > r.length() {
		return 0, fmt.Errorf("tagstruct: truncated u8")
	}
	v := r.byteAt(r.pos + 1)
	r.pos += 2
	return v, nil
}

// GetU32 reads a big-endian u32 field.
func (r *Record) GetU32() (uint32, error) {
	if err := r.checkedTag(TagU32); err != nil {
		return 0, err
	}
	if r.pos+5 > r.length() {
		return 0, fmt.Errorf("tagstruct: truncated u32")
	}
	v := binary.BigEndian.Uint32(r.sliceAt(r.pos+1, 4))
	r.pos += 5
	return v, nil
}

// GetU64 reads a big-endian u64 field.
func (r *Record) GetU64() (uint64, error) {
	if err := r.checkedTag(TagU64); err != nil {
		return 0, err
	}
	if r.pos+9 > r.length() {
		return 0, fmt.Errorf("tagstruct: truncated u64")
	}
	v := binary.BigEndian.Uint64(r.sliceAt(r.pos+1, 8))
	r.pos += 9
	return v, nil
}

// GetS32 reads a big-endian s32 field.
func (r *Record) GetS32() (int32, error) {
	if err := r.checkedTag(TagS32); err != nil {
		return 0, err
	}
	if r.pos+5 > r.length() {
		return 0, fmt.Errorf("tagstruct: truncated s32")
	}
	v := int32(binary.BigEndian.Uint32(r.sliceAt(r.pos+1, 4)))
	r.pos += 5
	return v, nil
}

// GetString reads a NUL-terminated string field, or "" for
// TAG_STRING_NULL.
func (r *Record) GetString() (string, error) {
	if r.pos >= r.length() {
		return "", fmt.Errorf("tagstruct: unexpected end of record reading string")
	}
	tag := r.byteAt(r.pos)
	if tag == TagStringNull {
		r.pos++
		return "", nil
	}
	if tag != TagString {
		return "", fmt.Errorf("tagstruct: expected tag 0x%02x, got 0x%02x", byte(TagString), tag)
	}
	i := r.pos + 1
	for i < r.length() && r.byteAt(i) != 0 {
		i++
	}
	if i >= r.length() {
		return "", fmt.Errorf("tagstruct: string not NUL-terminated")
	}
	s := string(r.sliceAt(r.pos+1, i-r.pos-1))
	r.pos = i + 1
	return s, nil
}

// GetBool reads a boolean field.
func (r *Record) GetBool() (bool, error) {
	if r.pos >= r.length() {
		return false, fmt.Errorf("tagstruct: unexpected end of record reading bool")
	}
	tag := r.byteAt(r.pos)
	switch tag {
	case TagBoolTrue:
		r.pos++
		return true, nil
	case TagBoolFalse:
		r.pos++
		return false, nil
	default:
		return false, fmt.Errorf("tagstruct: expected bool tag, got 0x%02x", tag)
	}
}

// GetArbitrary reads a length-prefixed raw byte array.
func (r *Record) GetArbitrary() ([]byte, error) {
	if err := r.checkedTag(TagArbitrary); err != nil {
		return nil, err
	}
	if r.pos+5 > r.length() {
		return nil, fmt.Errorf("tagstruct: truncated arbitrary length")
	}
	n := binary.BigEndian.Uint32(r.sliceAt(r.pos+1, 4))
	start := r.pos + 5
	if start+int(n) > r.length() {
		return nil, fmt.Errorf("tagstruct: truncated arbitrary payload")
	}
	data := r.sliceAt(start, int(n))
	r.pos = start + int(n)
	return data, nil
}

// GetSampleSpec reads a sample-format descriptor.
func (r *Record) GetSampleSpec() (SampleSpec, error) {
	if err := r.checkedTag(TagSampleSpec); err != nil {
		return SampleSpec{}, err
	}
	if r.pos+7 > r.length() {
		return SampleSpec{}, fmt.Errorf("tagstruct: truncated sample spec")
	}
	ss := SampleSpec{
		Encoding: r.byteAt(r.pos + 1),
		Channels: r.byteAt(r.pos + 2),
		Rate:     binary.BigEndian.Uint32(r.sliceAt(r.pos+3, 4)),
	}
	r.pos += 7
	return ss, nil
}

// Bytes returns the full encoded payload (ignores the read cursor).
func (r *Record) Bytes() []byte {
	return r.sliceAt(0, r.length())
}
