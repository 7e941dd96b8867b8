package blockqueue

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func newTestQueue() *Queue {
	return New(Attrs{MaxLength: 65536, TLength: 16384, Prebuf: 4096, MinReq: 1024, FrameSize: 4})
}

func TestStartsStarving(t *testing.T) {
	q := newTestQueue()
	require.False(t, q.IsReadable())
	_, ok := q.Peek()
	require.False(t, ok)
	require.Equal(t, 16384, q.Missing())
}

func TestBecomesReadableAtPrebuf(t *testing.T) {
	q := newTestQueue()
	q.PushAlign(make([]byte, 2048), 0)
	require.False(t, q.IsReadable(), "below prebuf")

	q.PushAlign(make([]byte, 2048), 0)
	require.True(t, q.IsReadable(), "at prebuf")

	data, ok := q.Peek()
	require.True(t, ok)
	require.Equal(t, 4096, len(data))
}

func TestDropToEmptyReturnsToStarving(t *testing.T) {
	q := newTestQueue()
	q.PushAlign(make([]byte, 4096), 0)
	require.True(t, q.IsReadable())

	q.Drop(4096)
	require.False(t, q.IsReadable())
	require.Equal(t, 0, q.Length())

	// Must refill to prebuf again before becoming readable, not just
	// non-empty.
	q.PushAlign(make([]byte, 100), 0)
	require.False(t, q.IsReadable())
}

func TestMissingClampedToZero(t *testing.T) {
	q := newTestQueue()
	q.PushAlign(make([]byte, 20000), 0)
	require.Equal(t, 0, q.Missing())
	require.LessOrEqual(t, q.Length(), q.MaxLength())
}

func TestMaxLengthTrimsLeadingEdge(t *testing.T) {
	q := New(Attrs{MaxLength: 100, TLength: 100, Prebuf: 0, MinReq: 1, FrameSize: 1})
	q.PushAlign(make([]byte, 60), 0)
	q.PushAlign(make([]byte, 60), 0)
	require.Equal(t, 100, q.Length())
	require.LessOrEqual(t, q.Length(), q.MaxLength())
}

func TestGapFillsSilence(t *testing.T) {
	q := New(Attrs{MaxLength: 1000, TLength: 100, Prebuf: 0, MinReq: 1, FrameSize: 4})
	payload := []byte{1, 2, 3, 4}
	q.PushAlign(payload, 8)

	data, ok := q.Peek()
	require.True(t, ok)
	require.Equal(t, 12, len(data))
	require.Equal(t, []byte{0, 0, 0, 0, 0, 0, 0, 0, 1, 2, 3, 4}, data)
}

func TestMisalignedTrailingBytesDropped(t *testing.T) {
	q := New(Attrs{MaxLength: 1000, TLength: 100, Prebuf: 0, MinReq: 1, FrameSize: 4})
	q.PushAlign([]byte{1, 2, 3, 4, 5, 6}, 0) // 6 bytes, frame=4 -> 4 bytes kept

	data, ok := q.Peek()
	require.True(t, ok)
	require.Equal(t, []byte{1, 2, 3, 4}, data)
}
