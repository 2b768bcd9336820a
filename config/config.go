// Package config loads the server's runtime configuration from a TOML file
// (spec §6.2's Config contract), using the same library the rest of the
// retrieval pack reaches for (github.com/pelletier/go-toml/v2) rather than
// a hand-rolled flag/ini parser.
package config

import (
	"fmt"
	"os"

	"github.com/pelletier/go-toml/v2"
)

// Config mirrors spec §6.2's `Config { bind_addrs, tcp_port, ws_port,
// tls_cert?, tls_key?, identity_key?, client_whitelist?, password?,
// target_fps, max_clients, palette, color_mode, audio_enabled,
// compression_level }`.
type Config struct {
	BindAddrs []string `toml:"bind_addrs"`
	TCPPort   int      `toml:"tcp_port"`
	WSPort    int      `toml:"ws_port"`

	TLSCert string `toml:"tls_cert"`
	TLSKey  string `toml:"tls_key"`

	IdentityKey       string `toml:"identity_key"`
	ClientWhitelist   string `toml:"client_whitelist"`
	KnownHosts        string `toml:"known_hosts"`
	Password          string `toml:"password"`

	TargetFPS        int    `toml:"target_fps"`
	MaxClients       int    `toml:"max_clients"`
	Palette          string `toml:"palette"`
	ColorMode        bool   `toml:"color_mode"`
	AudioEnabled     bool   `toml:"audio_enabled"`
	CompressionLevel int    `toml:"compression_level"`

	// AudioMixMinusSelf sends each client a mix excluding its own
	// contribution instead of the shared mix everyone else gets (spec
	// §4.2 "mix-minus-self ... if implementation cost allows"). Off by
	// default to match the spec's send-same-to-all default.
	AudioMixMinusSelf bool `toml:"audio_mix_minus_self"`

	CanvasWidth  int `toml:"canvas_width"`
	CanvasHeight int `toml:"canvas_height"`

	MetricsAddr string `toml:"metrics_addr"`
	AllowedWSOrigin string `toml:"allowed_ws_origin"`
}

// Default returns the configuration the server runs with when no file is
// supplied.
func Default() Config {
	return Config{
		BindAddrs:        []string{"0.0.0.0"},
		TCPPort:          9090,
		WSPort:           9091,
		TargetFPS:        20,
		MaxClients:       32,
		Palette:          " .:-=+*#%@",
		ColorMode:        true,
		AudioEnabled:     true,
		CompressionLevel: 3,
		CanvasWidth:      120,
		CanvasHeight:     40,
		MetricsAddr:      ":9092",
	}
}

// Load reads and parses a TOML config file, starting from Default() so
// unset fields keep their defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks the invariants the server relies on before it ever binds
// a socket (spec §6.2 exit code 2, "fatal configuration error").
func (c Config) Validate() error {
	if c.TCPPort <= 0 && c.WSPort <= 0 {
		return fmt.Errorf("config: at least one of tcp_port/ws_port must be set")
	}
	if c.MaxClients <= 0 {
		return fmt.Errorf("config: max_clients must be positive")
	}
	if c.TargetFPS <= 0 || c.TargetFPS > 60 {
		return fmt.Errorf("config: target_fps must be in (0, 60]")
	}
	if (c.TLSCert == "") != (c.TLSKey == "") {
		return fmt.Errorf("config: tls_cert and tls_key must both be set or both empty")
	}
	if len(c.Palette) < 2 {
		return fmt.Errorf("config: palette must have at least 2 characters")
	}
	return nil
}
