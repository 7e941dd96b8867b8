package ringbuf

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestWriteReadRoundTrip(t *testing.T) {
	r := New(16)
	n := r.Write([]byte("hello"))
	require.Equal(t, 5, n)
	require.Equal(t, 5, r.Len())

	buf := make([]byte, 5)
	got := r.Read(buf)
	require.Equal(t, 5, got)
	require.Equal(t, "hello", string(buf))
	require.Equal(t, 0, r.Len())
}

func TestWrapAround(t *testing.T) {
	r := New(8)

	require.Equal(t, 6, r.Write([]byte("abcdef")))
	buf := make([]byte, 4)
	require.Equal(t, 4, r.Read(buf))
	require.Equal(t, "abcd", string(buf))

	// Write past the physical end; BeginWrite must clip at the
	// boundary and require a second iteration to finish the wrap.
	require.Equal(t, 6, r.Write([]byte("ghijkl")))

	out := make([]byte, 8)
	require.Equal(t, 8, r.Read(out))
	require.Equal(t, "efghijkl", string(out))
}

func TestDropReportsWasFull(t *testing.T) {
	r := New(4)
	require.Equal(t, 4, r.Write([]byte("abcd")))

	buf := make([]byte, 2)
	r.Read(buf[:1]) // drop 1: was full immediately before
	_ = buf

	r2 := New(4)
	r2.Write([]byte("abcd"))
	wasFull := r2.Drop(1)
	require.True(t, wasFull)

	wasFull = r2.Drop(1)
	require.False(t, wasFull)
}

func TestFillStaysWithinBounds(t *testing.T) {
	r := New(32)
	rng := rand.New(rand.NewSource(1))

	src := make([]byte, 200)
	for i := range src {
		src[i] = byte(i)
	}

	var out []byte
	totalWritten := 0
	for totalWritten < len(src) || r.Len() > 0 {
		if totalWritten < len(src) {
			chunk := src[totalWritten:]
			if max := 1 + rng.Intn(5); len(chunk) > max {
				chunk = chunk[:max]
			}
			totalWritten += r.Write(chunk)
		}
		require.GreaterOrEqual(t, r.Len(), 0)
		require.LessOrEqual(t, r.Len(), r.Capacity())

		buf := make([]byte, 1+rng.Intn(5))
		n := r.Read(buf)
		out = append(out, buf[:n]...)
	}

	require.Equal(t, src, out)
}
