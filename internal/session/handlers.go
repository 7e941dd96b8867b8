package session

import (
	"github.com/a-darwish/pulseaudio/internal/blockqueue"
	"github.com/a-darwish/pulseaudio/internal/cookie"
	"github.com/a-darwish/pulseaudio/internal/mixer"
	"github.com/a-darwish/pulseaudio/internal/perr"
	"github.com/a-darwish/pulseaudio/internal/tagstruct"
	"github.com/a-darwish/pulseaudio/internal/wire"
)

func (c *Connection) installHandlers() {
	c.dispatch.Handle(wire.CmdAuth, c.handleAuth)
	c.dispatch.Handle(wire.CmdSetClientName, c.handleSetClientName)
	c.dispatch.Handle(wire.CmdExit, c.handleExit)
	c.dispatch.Handle(wire.CmdLookupSink, c.handleLookupSink)
	c.dispatch.Handle(wire.CmdLookupSource, c.handleLookupSource)
	c.dispatch.Handle(wire.CmdCreatePlaybackStream, c.handleCreatePlaybackStream)
	c.dispatch.Handle(wire.CmdDeletePlaybackStream, c.handleDeletePlaybackStream)
	c.dispatch.Handle(wire.CmdDrainPlaybackStream, c.handleDrainPlaybackStream)
}

// handleAuth implements spec.md §4.1: a wrong cookie returns
// ACCESS and keeps the connection open; a malformed argument list is a
// protocol violation.
func (c *Connection) handleAuth(tag uint32, args *tagstruct.Record) error {
	given, err := args.GetArbitrary()
	if err != nil {
		return perr.Protocol("auth.cookie", err)
	}
	if !args.Eof() {
		return perr.Protocol("auth.trailing", errTrailingData)
	}

	if !cookie.Equal(given, c.cookie) {
		c.sendError(tag, perr.CodeAccess)
		return nil
	}
	c.setAuthorized()
	c.sendSimpleAck(tag)
	return nil
}

// handleSetClientName implements spec.md §4.1's client naming command;
// it re-tags this connection's logger with the new name.
func (c *Connection) handleSetClientName(tag uint32, args *tagstruct.Record) error {
	name, err := args.GetString()
	if err != nil {
		return perr.Protocol("set_client_name.name", err)
	}
	if !args.Eof() {
		return perr.Protocol("set_client_name.trailing", errTrailingData)
	}
	if !c.isAuthorized() {
		c.sendError(tag, perr.CodeAccess)
		return nil
	}
	if name != "" {
		c.log = c.log.With("name", name)
	}
	c.sendSimpleAck(tag)
	return nil
}

// handleExit implements spec.md §4.1's EXIT command: informational only
// per this port's Open Question decision (DESIGN.md) since there is no
// event-loop owner for this package to signal — it replies, then
// invokes the listener's OnExit hook if one is configured.
func (c *Connection) handleExit(tag uint32, args *tagstruct.Record) error {
	if !args.Eof() {
		return perr.Protocol("exit.trailing", errTrailingData)
	}
	if !c.isAuthorized() {
		c.sendError(tag, perr.CodeAccess)
		return nil
	}
	c.sendSimpleAck(tag)
	c.listener.onExitRequested()
	return nil
}

func (c *Connection) handleLookupSink(tag uint32, args *tagstruct.Record) error {
	return c.handleLookup(tag, args, true)
}

func (c *Connection) handleLookupSource(tag uint32, args *tagstruct.Record) error {
	return c.handleLookup(tag, args, false)
}

func (c *Connection) handleLookup(tag uint32, args *tagstruct.Record, isSink bool) error {
	name, err := args.GetString()
	if err != nil {
		return perr.Protocol("lookup.name", err)
	}
	if !args.Eof() {
		return perr.Protocol("lookup.trailing", errTrailingData)
	}
	if !c.isAuthorized() {
		c.sendError(tag, perr.CodeAccess)
		return nil
	}

	var index uint32
	if isSink {
		sink, ok := c.core.SinkByName(name)
		if !ok {
			c.sendError(tag, perr.CodeNoEntity)
			return nil
		}
		index = sink.Index()
	} else {
		source, ok := c.core.SourceByName(name)
		if !ok {
			c.sendError(tag, perr.CodeNoEntity)
			return nil
		}
		index = source.Index()
	}

	rec := tagstruct.New()
	rec.PutU32(wire.CmdReply)
	rec.PutU32(tag)
	rec.PutU32(index)
	c.sendPacket(rec)
	return nil
}

// handleCreatePlaybackStream implements spec.md §4.6: resolves the
// target sink, substitutes server defaults for 0xFFFFFFFF buffer
// attribute sentinels, registers a block queue as a sink input, and
// issues the stream's first REQUEST once the reply is on the wire.
func (c *Connection) handleCreatePlaybackStream(tag uint32, args *tagstruct.Record) error {
	name, err := args.GetString()
	if err != nil {
		return perr.Protocol("create_playback_stream.name", err)
	}
	ss, err := args.GetSampleSpec()
	if err != nil {
		return perr.Protocol("create_playback_stream.sample_spec", err)
	}
	sinkIndex, err := args.GetU32()
	if err != nil {
		return perr.Protocol("create_playback_stream.sink_index", err)
	}
	maxLength, err := args.GetU32()
	if err != nil {
		return perr.Protocol("create_playback_stream.maxlength", err)
	}
	tLength, err := args.GetU32()
	if err != nil {
		return perr.Protocol("create_playback_stream.tlength", err)
	}
	prebuf, err := args.GetU32()
	if err != nil {
		return perr.Protocol("create_playback_stream.prebuf", err)
	}
	minReq, err := args.GetU32()
	if err != nil {
		return perr.Protocol("create_playback_stream.minreq", err)
	}
	if !args.Eof() {
		return perr.Protocol("create_playback_stream.trailing", errTrailingData)
	}

	if !c.isAuthorized() {
		c.sendError(tag, perr.CodeAccess)
		return nil
	}

	sink, ok := c.resolveSink(sinkIndex)
	if !ok {
		c.sendError(tag, perr.CodeNoEntity)
		return nil
	}

	frameSize := wire.BytesPerSample(ss.Encoding) * int(ss.Channels)
	if frameSize <= 0 {
		c.sendError(tag, perr.CodeInvalid)
		return nil
	}

	attrs := blockqueue.Attrs{
		MaxLength: resolveBufferAttr(maxLength, c.defaults.MaxLength),
		TLength:   resolveBufferAttr(tLength, c.defaults.TLength),
		Prebuf:    resolveBufferAttr(prebuf, c.defaults.Prebuf),
		MinReq:    resolveBufferAttr(minReq, c.defaults.MinReq),
		FrameSize: frameSize,
	}
	queue := blockqueue.New(attrs)

	c.mu.Lock()
	index := c.nextPlaybackID
	c.nextPlaybackID++
	c.mu.Unlock()

	stream := newPlaybackStream(c, index, ss, sink, queue)
	c.log.Debug("created playback stream", "index", index, "name", name, "sink", sink.Name())

	handle, err := sink.NewInput(ss, stream)
	if err != nil {
		c.sendError(tag, perr.CodeInvalid)
		return nil
	}
	stream.sinkInput = handle

	c.mu.Lock()
	c.playback[index] = stream
	c.mu.Unlock()

	rec := tagstruct.New()
	rec.PutU32(wire.CmdReply)
	rec.PutU32(tag)
	rec.PutU32(index)
	rec.PutU32(handle.Index)
	c.sendPacket(rec)

	stream.requestInitialCredit()
	return nil
}

// resolveSink selects the stream's target sink by sink_index alone —
// this wire format has no sink_name argument, only a 0xFFFFFFFF
// sentinel meaning "use the default sink".
func (c *Connection) resolveSink(index uint32) (mixer.Sink, bool) {
	if index == wire.DefaultSinkIndex {
		return c.core.DefaultSink()
	}
	return c.core.SinkByIndex(index)
}

// handleDeletePlaybackStream implements the corrected (non-buggy)
// behavior from spec.md §9's Open Question: deleting a stream actually
// frees it and deregisters its sink input, rather than merely
// acknowledging the command.
func (c *Connection) handleDeletePlaybackStream(tag uint32, args *tagstruct.Record) error {
	index, err := args.GetU32()
	if err != nil {
		return perr.Protocol("delete_playback_stream.index", err)
	}
	if !args.Eof() {
		return perr.Protocol("delete_playback_stream.trailing", errTrailingData)
	}
	if !c.isAuthorized() {
		c.sendError(tag, perr.CodeAccess)
		return nil
	}

	c.mu.Lock()
	stream, ok := c.playback[index]
	c.mu.Unlock()
	if !ok {
		c.sendError(tag, perr.CodeExist)
		return nil
	}

	stream.free(false)
	c.sendSimpleAck(tag)
	return nil
}

func (c *Connection) handleDrainPlaybackStream(tag uint32, args *tagstruct.Record) error {
	index, err := args.GetU32()
	if err != nil {
		return perr.Protocol("drain_playback_stream.index", err)
	}
	if !args.Eof() {
		return perr.Protocol("drain_playback_stream.trailing", errTrailingData)
	}
	if !c.isAuthorized() {
		c.sendError(tag, perr.CodeAccess)
		return nil
	}

	c.mu.Lock()
	stream, ok := c.playback[index]
	c.mu.Unlock()
	if !ok {
		c.sendError(tag, perr.CodeNoEntity)
		return nil
	}

	stream.Drain(tag)
	return nil
}

type errTrailingDataType struct{}

func (errTrailingDataType) Error() string { return "trailing data after expected end of record" }

var errTrailingData = errTrailingDataType{}
