package server

import (
	"crypto/ed25519"
	"crypto/tls"
	"fmt"
	"os"

	"github.com/zfogg/ascii-chat/config"
	"github.com/zfogg/ascii-chat/cryptoacip"
)

// exit codes, spec §6.2.
const (
	ExitClean       = 0
	ExitConfigError = 2
	ExitBindError   = 3
	ExitCryptoError = 4
)

// loadIdentity reads an Ed25519 seed file at path, generating and
// persisting a fresh identity if the file does not exist yet (spec §6.3
// only names known_hosts/authorized_clients as persisted state, but an
// identity that changes on every restart would invalidate every client's
// pinned known_hosts entry, so the server's own key is sticky too).
func loadIdentity(path string) (cryptoacip.Identity, error) {
	if path == "" {
		id, err := cryptoacip.GenerateIdentity()
		if err != nil {
			return cryptoacip.Identity{}, fmt.Errorf("generate ephemeral identity: %w", err)
		}
		return id, nil
	}
	seed, err := os.ReadFile(path)
	if err == nil {
		if len(seed) != ed25519.SeedSize {
			return cryptoacip.Identity{}, fmt.Errorf("identity file %s: want a %d-byte seed, got %d bytes", path, ed25519.SeedSize, len(seed))
		}
		priv := ed25519.NewKeyFromSeed(seed)
		return cryptoacip.Identity{Public: priv.Public().(ed25519.PublicKey), Private: priv}, nil
	}
	if !os.IsNotExist(err) {
		return cryptoacip.Identity{}, fmt.Errorf("read identity: %w", err)
	}
	id, err := cryptoacip.GenerateIdentity()
	if err != nil {
		return cryptoacip.Identity{}, fmt.Errorf("generate identity: %w", err)
	}
	if werr := os.WriteFile(path, id.Private.Seed(), 0600); werr != nil {
		return cryptoacip.Identity{}, fmt.Errorf("persist identity: %w", werr)
	}
	return id, nil
}

// loadAuthPolicy builds the auth policy named by cfg: whitelist takes
// priority over a shared password, falling back to AllowAnyone (spec §4.5
// policies a/b/c).
func loadAuthPolicy(cfg config.Config) (cryptoacip.AuthPolicy, error) {
	if cfg.ClientWhitelist != "" {
		f, err := os.Open(cfg.ClientWhitelist)
		if err != nil {
			return nil, fmt.Errorf("open client_whitelist: %w", err)
		}
		defer f.Close()
		keys, err := cryptoacip.LoadAuthorizedKeys(f)
		if err != nil {
			return nil, fmt.Errorf("parse client_whitelist: %w", err)
		}
		return cryptoacip.NewWhitelistPolicy(keys), nil
	}
	if cfg.Password != "" {
		return cryptoacip.NewPasswordPolicy([]byte(cfg.Password), []byte("ascii-chat-kdf-salt")), nil
	}
	return cryptoacip.AllowAnyone{}, nil
}

// loadTLSConfig builds a *tls.Config from cfg's cert/key pair, or returns
// nil if TLS is not configured.
func loadTLSConfig(cfg config.Config) (*tls.Config, error) {
	if cfg.TLSCert == "" {
		return nil, nil
	}
	cert, err := tls.LoadX509KeyPair(cfg.TLSCert, cfg.TLSKey)
	if err != nil {
		return nil, fmt.Errorf("load tls keypair: %w", err)
	}
	return &tls.Config{Certificates: []tls.Certificate{cert}}, nil
}
