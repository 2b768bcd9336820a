// Package cryptoacip implements the ACIP cryptographic handshake and
// per-packet AEAD (spec §4.5, §6.1, §6.3): X25519 ephemeral key agreement
// signed by long-term Ed25519 identities, a BLAKE2b KDF deriving two
// directional session keys, and XSalsa20-Poly1305 sealing via
// nacl/secretbox. Authentication policy (anyone/password/whitelist) and the
// OpenSSH-authorized_keys-compatible known_hosts/authorized_clients files
// live alongside it.
package cryptoacip

import (
	"crypto/ed25519"
	"crypto/rand"

	"golang.org/x/crypto/curve25519"
)

// Identity is a long-term Ed25519 keypair used to sign handshake messages.
type Identity struct {
	Public  ed25519.PublicKey
	Private ed25519.PrivateKey
}

// GenerateIdentity creates a fresh random Ed25519 identity.
func GenerateIdentity() (Identity, error) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return Identity{}, newErr(KindCrypto, "generate identity", err)
	}
	return Identity{Public: pub, Private: priv}, nil
}

// Sign signs message with the identity's long-term private key.
func (id Identity) Sign(message []byte) []byte {
	return ed25519.Sign(id.Private, message)
}

// Verify checks sig over message under the given Ed25519 public key.
func Verify(pub ed25519.PublicKey, message, sig []byte) bool {
	if len(pub) != ed25519.PublicKeySize {
		return false
	}
	return ed25519.Verify(pub, message, sig)
}

// Ephemeral is a one-shot X25519 keypair, generated fresh per handshake and
// discarded once the shared secret is derived.
type Ephemeral struct {
	Public  [32]byte
	private [32]byte
}

// GenerateEphemeral creates a fresh random X25519 ephemeral keypair.
func GenerateEphemeral() (Ephemeral, error) {
	var e Ephemeral
	if _, err := rand.Read(e.private[:]); err != nil {
		return Ephemeral{}, newErr(KindCrypto, "generate ephemeral", err)
	}
	pub, err := curve25519.X25519(e.private[:], curve25519.Basepoint)
	if err != nil {
		return Ephemeral{}, newErr(KindCrypto, "derive ephemeral public", err)
	}
	copy(e.Public[:], pub)
	return e, nil
}

// Agree computes the X25519 shared secret with a peer's ephemeral public key.
func (e Ephemeral) Agree(peerPublic [32]byte) ([32]byte, error) {
	shared, err := curve25519.X25519(e.private[:], peerPublic[:])
	if err != nil {
		return [32]byte{}, newErr(KindCrypto, "x25519 agree", err)
	}
	var out [32]byte
	copy(out[:], shared)
	return out, nil
}
