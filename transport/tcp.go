package transport

import (
	"crypto/tls"
	"net"
	"time"

	"github.com/zfogg/ascii-chat/wire"
)

// TCP wraps a raw or TLS-wrapped net.Conn as a Transport. Framing is the
// ACIP header+payload laid directly on the stream (spec §3.1).
type TCP struct {
	conn      net.Conn
	encrypted bool
}

// NewTCP wraps an accepted plaintext connection.
func NewTCP(conn net.Conn) *TCP {
	return &TCP{conn: conn}
}

// NewTLS wraps an accepted connection already upgraded via tls.Server,
// reporting ProvidesEncryption() == true so the crypto layer skips its own
// per-packet AEAD wrapping (spec §4.4).
func NewTLS(conn *tls.Conn) *TCP {
	return &TCP{conn: conn, encrypted: true}
}

func (t *TCP) ReadPacket() (*wire.Packet, error) {
	return wire.ReadPacket(t.conn)
}

func (t *TCP) WritePacket(p *wire.Packet) error {
	_, err := p.WriteTo(t.conn)
	return err
}

func (t *TCP) ProvidesEncryption() bool { return t.encrypted }

func (t *TCP) RemoteAddr() string { return t.conn.RemoteAddr().String() }

func (t *TCP) SetDeadline(tm time.Time) error { return t.conn.SetDeadline(tm) }

func (t *TCP) Close() error { return t.conn.Close() }
