package session

import (
	"sync"

	"github.com/a-darwish/pulseaudio/internal/config"
	"github.com/a-darwish/pulseaudio/internal/mixer"
)

// Listener owns the set of live connections and the shared, connection-
// independent state (the auth cookie, mixer core, default buffer
// attributes) that each one is constructed with.
//
// Grounded on pa_protocol_native's connections idxset and its
// new-connection callback in original_source/src/protocol-native.c;
// the accept loop itself lives in cmd/pulsenatived, which owns the
// actual net.Listener.
type Listener struct {
	cookie   []byte
	core     mixer.Core
	defaults config.BufferDefaults
	// public, per spec.md §3/§4.7/§6, pre-authorizes every new
	// connection instead of requiring a matching-cookie AUTH first.
	public bool

	// OnExit, if set, is invoked when an authorized client sends EXIT.
	// spec.md §9 leaves EXIT's effect on the daemon as an open question;
	// this port treats it as informational and delegates the decision to
	// whatever owns the daemon's main goroutine (cmd/pulsenatived).
	OnExit func()

	mu    sync.Mutex
	conns map[*Connection]struct{}
}

// NewListener constructs a Listener ready to Accept connections. When
// public is true, new connections start pre-authorized (spec.md §4.7);
// AUTH is still accepted and still checks the cookie, so a wrong cookie
// gets an ACCESS error while the connection stays authorized.
func NewListener(cookie []byte, public bool, core mixer.Core, defaults config.BufferDefaults) *Listener {
	return &Listener{
		cookie:   cookie,
		public:   public,
		core:     core,
		defaults: defaults,
		conns:    make(map[*Connection]struct{}),
	}
}

// Accept constructs a Connection over t, registers it, and starts its
// Serve loop on a new goroutine. It returns immediately; the returned
// Connection is already running.
func (l *Listener) Accept(t Transport) *Connection {
	c := newConnection(l, t)
	l.mu.Lock()
	l.conns[c] = struct{}{}
	l.mu.Unlock()

	go c.Serve()
	return c
}

func (l *Listener) forget(c *Connection) {
	l.mu.Lock()
	delete(l.conns, c)
	l.mu.Unlock()
}

func (l *Listener) onExitRequested() {
	if l.OnExit != nil {
		l.OnExit()
	}
}

// Shutdown tears down every live connection. Safe to call once all
// accepting has stopped.
func (l *Listener) Shutdown() {
	l.mu.Lock()
	conns := make([]*Connection, 0, len(l.conns))
	for c := range l.conns {
		conns = append(conns, c)
	}
	l.mu.Unlock()

	for _, c := range conns {
		c.teardown()
	}
}
