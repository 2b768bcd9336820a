package transport

import (
	"bytes"
	"time"

	"github.com/gorilla/websocket"
	"github.com/zfogg/ascii-chat/wire"
)

// WS wraps a gorilla/websocket connection as a Transport. Each ACIP packet
// travels as exactly one binary WebSocket message (spec §4.1 "server
// listens on both a raw TCP port and a WebSocket endpoint, sharing one
// packet-dispatch path"); WSS always reports ProvidesEncryption() == true,
// plain WS reports false so the crypto layer still wraps packets in
// ENCRYPTED over an unencrypted WebSocket.
type WS struct {
	conn      *websocket.Conn
	encrypted bool
}

// NewWS wraps an accepted connection; wss indicates the handshake arrived
// over TLS (spec §4.4 encryption policy keys off the transport, not the
// URL scheme string, but the caller determines this from the HTTP request).
func NewWS(conn *websocket.Conn, wss bool) *WS {
	return &WS{conn: conn, encrypted: wss}
}

func (w *WS) ReadPacket() (*wire.Packet, error) {
	typ, data, err := w.conn.ReadMessage()
	if err != nil {
		return nil, wire.ErrClosed
	}
	if typ != websocket.BinaryMessage {
		return nil, wire.ErrProtocol
	}
	return wire.ReadPacket(bytes.NewReader(data))
}

func (w *WS) WritePacket(p *wire.Packet) error {
	return w.conn.WriteMessage(websocket.BinaryMessage, p.Encode())
}

func (w *WS) ProvidesEncryption() bool { return w.encrypted }

func (w *WS) RemoteAddr() string { return w.conn.RemoteAddr().String() }

func (w *WS) SetDeadline(t time.Time) error {
	if err := w.conn.SetReadDeadline(t); err != nil {
		return err
	}
	return w.conn.SetWriteDeadline(t)
}

func (w *WS) Close() error { return w.conn.Close() }
