package cryptoacip

import (
	"crypto/ed25519"
	"crypto/subtle"

	"golang.org/x/crypto/argon2"
)

// AuthPolicy decides whether a connecting client's identity is permitted,
// and optionally supplies a shared password to mix into the KDF (spec §4.5
// auth policies a/b/c).
type AuthPolicy interface {
	Check(clientPub ed25519.PublicKey) error
	Password() []byte
}

// AllowAnyone is the default policy: every identity is accepted, no shared
// password is mixed into the KDF.
type AllowAnyone struct{}

func (AllowAnyone) Check(ed25519.PublicKey) error { return nil }
func (AllowAnyone) Password() []byte              { return nil }

// PasswordPolicy requires every client to share a password, which is mixed
// into the session KDF rather than transmitted. The password itself is
// Argon2id-stretched before mixing so a weak shared secret doesn't directly
// become key material.
type PasswordPolicy struct {
	stretched []byte
}

// NewPasswordPolicy derives key material from password via Argon2id, using
// salt as a fixed per-deployment salt (spec §4.5 "password-derived
// identity... Argon2... mixed into the KDF").
func NewPasswordPolicy(password, salt []byte) PasswordPolicy {
	stretched := argon2.IDKey(password, salt, 1, 64*1024, 4, 32)
	return PasswordPolicy{stretched: stretched}
}

func (p PasswordPolicy) Check(ed25519.PublicKey) error { return nil }
func (p PasswordPolicy) Password() []byte              { return p.stretched }

// WhitelistPolicy only admits clients whose Ed25519 public key is present
// in an explicit allow-list (spec §4.5 auth policy (c), §6.3
// authorized_clients file).
type WhitelistPolicy struct {
	allowed map[[32]byte]struct{}
}

// NewWhitelistPolicy builds a policy from a set of allowed public keys.
func NewWhitelistPolicy(keys []ed25519.PublicKey) WhitelistPolicy {
	allowed := make(map[[32]byte]struct{}, len(keys))
	for _, k := range keys {
		var arr [32]byte
		copy(arr[:], k)
		allowed[arr] = struct{}{}
	}
	return WhitelistPolicy{allowed: allowed}
}

func (w WhitelistPolicy) Check(clientPub ed25519.PublicKey) error {
	var arr [32]byte
	copy(arr[:], clientPub)
	for k := range w.allowed {
		if subtle.ConstantTimeCompare(k[:], arr[:]) == 1 {
			return nil
		}
	}
	return ErrAuthFailed
}

func (WhitelistPolicy) Password() []byte { return nil }
