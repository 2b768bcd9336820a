package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDefaultPassesValidate(t *testing.T) {
	require.NoError(t, Default().Validate())
}

func TestLoadOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	data := `
tcp_port = 7000
ws_port = 0
max_clients = 8
target_fps = 24
palette = " .#"
`
	require.NoError(t, os.WriteFile(path, []byte(data), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, 7000, cfg.TCPPort)
	require.Equal(t, 0, cfg.WSPort)
	require.Equal(t, 8, cfg.MaxClients)
	require.Equal(t, 24, cfg.TargetFPS)
	require.True(t, cfg.ColorMode) // unset field keeps Default()'s value
}

func TestValidateRejectsNoListeners(t *testing.T) {
	cfg := Default()
	cfg.TCPPort = 0
	cfg.WSPort = 0
	require.Error(t, cfg.Validate())
}

func TestValidateRejectsMismatchedTLSPair(t *testing.T) {
	cfg := Default()
	cfg.TLSCert = "cert.pem"
	require.Error(t, cfg.Validate())
}

func TestValidateRejectsTooFewPaletteChars(t *testing.T) {
	cfg := Default()
	cfg.Palette = "x"
	require.Error(t, cfg.Validate())
}

func TestLoadRejectsMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "does-not-exist.toml"))
	require.Error(t, err)
}
