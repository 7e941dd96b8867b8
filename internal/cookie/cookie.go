// Package cookie loads and compares the daemon's shared-secret
// authentication cookie, per spec.md §6.
//
// The search order mirrors the teacher's own client-side ReadCookie
// (internal/pulse/auth.go): $PULSE_COOKIE, then
// ~/.config/pulse/cookie, then the legacy ~/.pulse-cookie path.
package cookie

import (
	"crypto/subtle"
	"fmt"
	"os"
	"path/filepath"
)

// Length is the fixed cookie size in bytes (spec.md §6 recommends 16;
// PulseAudio's own on-disk cookie is 256 bytes — this daemon accepts any
// cookie file of at least Length bytes, so a real cookie file loads
// unmodified, and keeps and compares only its first Length bytes).
const Length = 16

// Load searches the standard locations for a cookie file and returns
// its first Length bytes. If path is non-empty, only that path is
// tried.
func Load(path string) ([]byte, error) {
	if path != "" {
		return loadFile(path)
	}

	if env := os.Getenv("PULSE_COOKIE"); env != "" {
		if data, err := loadFile(env); err == nil {
			return data, nil
		}
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("cookie: resolve home directory: %w", err)
	}

	candidates := []string{
		filepath.Join(home, ".config", "pulse", "cookie"),
		filepath.Join(home, ".pulse-cookie"),
	}
	var lastErr error
	for _, c := range candidates {
		data, err := loadFile(c)
		if err == nil {
			return data, nil
		}
		lastErr = err
	}
	return nil, fmt.Errorf("cookie: no cookie file found: %w", lastErr)
}

func loadFile(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cookie: read %s: %w", path, err)
	}
	if len(data) < Length {
		return nil, fmt.Errorf("cookie: %s is shorter than %d bytes", path, Length)
	}
	return data[:Length], nil
}

// Equal compares two cookies in constant time.
func Equal(a, b []byte) bool {
	if len(a) != len(b) {
		return false
	}
	return subtle.ConstantTimeCompare(a, b) == 1
}
