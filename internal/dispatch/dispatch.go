// Package dispatch implements the per-connection packet dispatcher of
// spec.md §4.4: a table indexed by command-id mapping to handlers, plus
// an outstanding-request table for commands this daemon itself
// initiates and expects a REPLY/ERROR for.
//
// Grounded on the command_table array and pa_pdispatch_run call site in
// original_source/src/protocol-native.c, and on the command constant
// block in the teacher's internal/pulse/protocol.go.
package dispatch

import (
	"sync"
	"time"

	"github.com/a-darwish/pulseaudio/internal/perr"
	"github.com/a-darwish/pulseaudio/internal/tagstruct"
	"github.com/a-darwish/pulseaudio/internal/wire"
)

// Handler processes one inbound command. It must parse its entire
// argument record and assert Eof() before returning; a *perr.Error with
// KindProtocol returned here kills the connection with no reply.
type Handler func(tag uint32, args *tagstruct.Record) error

// pendingRequest is one outbound command awaiting a REPLY/ERROR.
type pendingRequest struct {
	onComplete func(cmd uint32, args *tagstruct.Record, err error)
	timer      *time.Timer
}

// Dispatcher maps command IDs to handlers for one connection and tracks
// this daemon's own outstanding requests by tag. The zero value is not
// usable; construct with New.
type Dispatcher struct {
	handlers [wire.CommandMax]Handler

	mu      sync.Mutex
	pending map[uint32]*pendingRequest
	nextTag uint32
}

// New creates an empty Dispatcher.
func New() *Dispatcher {
	return &Dispatcher{pending: make(map[uint32]*pendingRequest)}
}

// Handle installs handler for command. CmdError, CmdTimeout and
// CmdReply are reserved sentinels — routed only through the
// outstanding-request table — and Handle panics if asked to install a
// handler for them.
func (d *Dispatcher) Handle(command uint32, h Handler) {
	switch command {
	case wire.CmdError, wire.CmdTimeout, wire.CmdReply:
		panic("dispatch: cannot install a handler for a reserved sentinel command")
	}
	d.handlers[command] = h
}

// Dispatch decodes the leading command/tag header of a control packet
// and routes it to the matching handler, or to the outstanding-request
// table if the command is REPLY or ERROR. It returns a *perr.Error with
// KindProtocol if the header itself can't be parsed or no handler is
// installed for a non-reserved command — per spec.md §4.4, that is
// fatal for the connection.
func (d *Dispatcher) Dispatch(payload []byte) error {
	rec := tagstruct.NewFixedView(payload)

	cmd, err := rec.GetU32()
	if err != nil {
		return perr.Protocol("dispatch.command", err)
	}
	tag, err := rec.GetU32()
	if err != nil {
		return perr.Protocol("dispatch.tag", err)
	}

	if cmd == wire.CmdReply || cmd == wire.CmdError {
		d.completePending(cmd, tag, rec)
		return nil
	}

	if int(cmd) >= len(d.handlers) || d.handlers[cmd] == nil {
		return perr.Protocol("dispatch.lookup", errUnknownCommand(cmd))
	}

	return d.handlers[cmd](tag, rec)
}

type errUnknownCommand uint32

func (e errUnknownCommand) Error() string {
	return "unknown command id"
}

// SendRequest registers a new outstanding request tag with a timeout.
// onComplete fires exactly once: with the reply's command/args on a
// matching REPLY/ERROR, or with a *perr.Error (KindTimeout) if no reply
// arrives within timeout. The caller is responsible for actually
// writing the command frame carrying the returned tag.
func (d *Dispatcher) SendRequest(timeout time.Duration, onComplete func(cmd uint32, args *tagstruct.Record, err error)) uint32 {
	d.mu.Lock()
	tag := d.nextTag
	d.nextTag++
	pr := &pendingRequest{onComplete: onComplete}
	d.pending[tag] = pr
	d.mu.Unlock()

	pr.timer = time.AfterFunc(timeout, func() {
		d.mu.Lock()
		_, stillPending := d.pending[tag]
		delete(d.pending, tag)
		d.mu.Unlock()
		if stillPending {
			onComplete(wire.CmdTimeout, nil, perr.Timeout("dispatch.request"))
		}
	})
	return tag
}

func (d *Dispatcher) completePending(cmd, tag uint32, args *tagstruct.Record) {
	d.mu.Lock()
	pr, ok := d.pending[tag]
	if ok {
		delete(d.pending, tag)
	}
	d.mu.Unlock()
	if !ok {
		return
	}
	pr.timer.Stop()
	var err error
	if cmd == wire.CmdError {
		code, _ := args.GetU32()
		err = &perr.Error{Kind: perr.KindInvalid, Code: perr.Code(code), Op: "dispatch.request"}
	}
	pr.onComplete(cmd, args, err)
}

// CancelAll fires every still-outstanding request's callback with a
// NO_ENTITY error and clears the table. Used when the owning connection
// is torn down.
func (d *Dispatcher) CancelAll() {
	d.mu.Lock()
	pending := d.pending
	d.pending = make(map[uint32]*pendingRequest)
	d.mu.Unlock()

	for _, pr := range pending {
		pr.timer.Stop()
		pr.onComplete(wire.CmdError, nil, perr.NoEntity("dispatch.cancel"))
	}
}
