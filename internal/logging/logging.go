// Package logging sets up the daemon-wide structured logger. Grounded
// on doismellburning-samoyed's go.mod, which carries
// github.com/charmbracelet/log as a direct dependency for exactly this
// kind of daemon-wide leveled logger.
package logging

import (
	"os"

	"github.com/charmbracelet/log"
)

var base = log.NewWithOptions(os.Stderr, log.Options{
	ReportTimestamp: true,
	Level:           log.InfoLevel,
})

// SetLevel parses level (debug, info, warn, error) and applies it to
// the global logger; unknown values are ignored and leave the current
// level in place.
func SetLevel(level string) {
	lvl, err := log.ParseLevel(level)
	if err != nil {
		return
	}
	base.SetLevel(lvl)
}

// Logger returns the daemon-wide logger.
func Logger() *log.Logger { return base }

// ForConnection returns a logger scoped to one client connection,
// tagging every line with its client id — the Go analogue of
// pa_client's name in protocol-native.c, surfaced here since this port
// has no client-registry component to rename inside (see SPEC_FULL.md
// §7).
func ForConnection(clientID string) *log.Logger {
	return base.With("client", clientID)
}
