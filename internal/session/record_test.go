package session

import (
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/a-darwish/pulseaudio/internal/mixer"
	"github.com/a-darwish/pulseaudio/internal/tagstruct"
	"github.com/a-darwish/pulseaudio/internal/wire"
)

// dialWithConn is dial, but also returns the server-side Connection so
// tests can drive record streams directly (no CREATE_RECORD_STREAM
// handler exists yet to do it for them; see record.go).
func dialWithConn(t *testing.T, l *Listener) (*client, *Connection) {
	t.Helper()
	server, clientSide := net.Pipe()
	conn := l.Accept(server)
	return &client{t: t, conn: clientSide}, conn
}

func TestRecordStreamPushDeliversMemblock(t *testing.T) {
	core := newFakeCore()
	source := core.addSource(0, "default")
	l := newTestListener(core)
	c, conn := dialWithConn(t, l)

	ss := tagstruct.SampleSpec{Encoding: wire.SampleS16LE, Channels: 2, Rate: 44100}
	stream := newRecordStream(conn, 7, ss, source)
	handle, err := source.NewOutput(ss, stream)
	require.NoError(t, err)
	stream.output = handle

	payload := make([]byte, 256)
	payload[0] = 0xAB
	stream.Push(mixer.Chunk{Data: payload})

	c.conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	frame, err := wire.ReadFrame(c.conn)
	require.NoError(t, err)
	require.False(t, frame.IsPacket())
	require.Equal(t, uint32(7), frame.Channel)
	require.Equal(t, payload, frame.Payload)
}

func TestRecordStreamKillSkipsRemoveOutputButFreeDoesNot(t *testing.T) {
	core := newFakeCore()
	source := core.addSource(0, "default")
	l := newTestListener(core)
	_, conn := dialWithConn(t, l)

	ss := tagstruct.SampleSpec{Encoding: wire.SampleS16LE, Channels: 1, Rate: 44100}

	killed := newRecordStream(conn, 1, ss, source)
	handle, err := source.NewOutput(ss, killed)
	require.NoError(t, err)
	killed.output = handle
	killed.Kill()
	// Kill() (fromMixer=true) must not call RemoveOutput a second time;
	// the mixer already dropped its own reference. The fake source only
	// forgets an output through RemoveOutput, so it still holds this one.
	require.NotNil(t, source.output(handle.Index))
	require.NotContains(t, source.removed, handle.Index)

	// A second Kill is a no-op, not a double-free.
	killed.Kill()

	freed := newRecordStream(conn, 2, ss, source)
	handle2, err := source.NewOutput(ss, freed)
	require.NoError(t, err)
	freed.output = handle2
	freed.free(false)
	require.Contains(t, source.removed, handle2.Index)
}
