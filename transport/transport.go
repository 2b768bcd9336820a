// Package transport adapts ACIP packet framing onto concrete connection
// types — raw TCP, TLS-wrapped TCP, and WebSocket — behind one interface
// the rest of the server depends on. ProvidesEncryption reports whether
// the underlying transport already encrypts the stream (TLS, WSS), which
// is what the encryption policy in the crypto layer consults before
// deciding whether to wrap outbound packets in ENCRYPTED (spec §4.4
// "Encryption policy").
package transport

import (
	"time"

	"github.com/zfogg/ascii-chat/wire"
)

// Transport is a bidirectional ACIP packet channel over some underlying
// connection.
type Transport interface {
	// ReadPacket blocks for the next complete packet, or returns an error
	// wrapping wire.ErrIO/ErrProtocol/ErrClosed.
	ReadPacket() (*wire.Packet, error)
	// WritePacket writes p in full or returns an error.
	WritePacket(p *wire.Packet) error
	// ProvidesEncryption reports whether the stream itself is encrypted
	// (TLS or WSS), meaning ACIP-layer AEAD wrapping is unnecessary.
	ProvidesEncryption() bool
	// RemoteAddr identifies the peer for logging/metrics.
	RemoteAddr() string
	SetDeadline(t time.Time) error
	Close() error
}
