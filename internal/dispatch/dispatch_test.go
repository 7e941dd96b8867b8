package dispatch

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/a-darwish/pulseaudio/internal/perr"
	"github.com/a-darwish/pulseaudio/internal/tagstruct"
	"github.com/a-darwish/pulseaudio/internal/wire"
)

func encodeHeader(cmd, tag uint32) *tagstruct.Record {
	r := tagstruct.New()
	r.PutU32(cmd)
	r.PutU32(tag)
	return r
}

func TestDispatchRoutesToHandler(t *testing.T) {
	d := New()
	var gotTag uint32
	var gotName string
	d.Handle(wire.CmdSetClientName, func(tag uint32, args *tagstruct.Record) error {
		gotTag = tag
		name, err := args.GetString()
		require.NoError(t, err)
		gotName = name
		return nil
	})

	r := encodeHeader(wire.CmdSetClientName, 7)
	r.PutString("hello")

	require.NoError(t, d.Dispatch(r.Bytes()))
	require.Equal(t, uint32(7), gotTag)
	require.Equal(t, "hello", gotName)
}

func TestDispatchUnknownCommandIsProtocolError(t *testing.T) {
	d := New()
	r := encodeHeader(999, 1)

	err := d.Dispatch(r.Bytes())
	require.Error(t, err)
	var pe *perr.Error
	require.ErrorAs(t, err, &pe)
	require.Equal(t, perr.KindProtocol, pe.Kind)
}

func TestDispatchTruncatedHeaderIsProtocolError(t *testing.T) {
	d := New()
	err := d.Dispatch([]byte{tagstruct.TagU32})
	require.Error(t, err)
	var pe *perr.Error
	require.ErrorAs(t, err, &pe)
	require.Equal(t, perr.KindProtocol, pe.Kind)
}

func TestSendRequestCompletesOnReply(t *testing.T) {
	d := New()
	done := make(chan struct{})
	var completedErr error

	tag := d.SendRequest(time.Second, func(cmd uint32, args *tagstruct.Record, err error) {
		completedErr = err
		close(done)
	})

	r := encodeHeader(wire.CmdReply, tag)
	require.NoError(t, d.Dispatch(r.Bytes()))

	<-done
	require.NoError(t, completedErr)
}

func TestSendRequestTimesOut(t *testing.T) {
	d := New()
	done := make(chan struct{})
	var completedErr error

	d.SendRequest(10*time.Millisecond, func(cmd uint32, args *tagstruct.Record, err error) {
		completedErr = err
		close(done)
	})

	<-done
	var pe *perr.Error
	require.ErrorAs(t, completedErr, &pe)
	require.Equal(t, perr.KindTimeout, pe.Kind)
}

func TestCancelAllFiresNoEntity(t *testing.T) {
	d := New()
	done := make(chan struct{})
	var completedErr error

	d.SendRequest(time.Minute, func(cmd uint32, args *tagstruct.Record, err error) {
		completedErr = err
		close(done)
	})

	d.CancelAll()
	<-done
	var pe *perr.Error
	require.ErrorAs(t, completedErr, &pe)
	require.Equal(t, perr.KindNoEntity, pe.Kind)
}
