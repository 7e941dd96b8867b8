// Package config holds the daemon's runtime configuration: listen
// address, public-mode flag, cookie file path, default stream buffer
// attributes, and log level. Loaded from an optional YAML file (per
// doismellburning-samoyed and nishisan-dev-n-backup, both of which
// configure their daemons this way) with command-line overrides
// applied on top.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// BufferDefaults are the buffer attributes handed to a playback stream
// when the client leaves maxlength/tlength/prebuf/minreq at their
// "server default" sentinel (0xFFFFFFFF), per spec.md §4.6.
type BufferDefaults struct {
	MaxLength int `yaml:"max_length"`
	TLength   int `yaml:"tlength"`
	Prebuf    int `yaml:"prebuf"`
	MinReq    int `yaml:"minreq"`
}

// Config is the daemon's full runtime configuration.
type Config struct {
	ListenNetwork string         `yaml:"listen_network"` // "unix" or "tcp"
	ListenAddress string         `yaml:"listen_address"`
	Public        bool           `yaml:"public"`
	CookiePath    string         `yaml:"cookie_path"`
	LogLevel      string         `yaml:"log_level"`
	Buffers       BufferDefaults `yaml:"buffers"`
}

// Default returns the built-in configuration used when no file or flag
// overrides anything.
func Default() Config {
	return Config{
		ListenNetwork: "unix",
		ListenAddress: "/tmp/pulsenatived.sock",
		Public:        false,
		LogLevel:      "info",
		Buffers: BufferDefaults{
			MaxLength: 1 << 20,
			TLength:   64 << 10,
			Prebuf:    16 << 10,
			MinReq:    4 << 10,
		},
	}
}

// Load reads path (if non-empty) as YAML over top of Default().
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("config: read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("config: parse %s: %w", path, err)
	}
	return cfg, nil
}
