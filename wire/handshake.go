package wire

import "errors"

// Sizes of the handshake payload fields (spec §4.5, §6.1).
const (
	Ed25519PubSize  = 32
	X25519PubSize   = 32
	HandshakeNonceSize = 24
	SignatureSize   = 64
)

// HandshakeHello is the client's first handshake message: long-term Ed25519
// identity key, ephemeral X25519 key, a fresh nonce, and a signature over
// (ephemeral_pub || nonce).
type HandshakeHello struct {
	IdentityPub  [Ed25519PubSize]byte
	EphemeralPub [X25519PubSize]byte
	Nonce        [HandshakeNonceSize]byte
	Signature    [SignatureSize]byte
}

const helloSize = Ed25519PubSize + X25519PubSize + HandshakeNonceSize + SignatureSize

func (h HandshakeHello) Encode() []byte {
	buf := make([]byte, helloSize)
	off := 0
	off += copy(buf[off:], h.IdentityPub[:])
	off += copy(buf[off:], h.EphemeralPub[:])
	off += copy(buf[off:], h.Nonce[:])
	copy(buf[off:], h.Signature[:])
	return buf
}

func DecodeHandshakeHello(payload []byte) (HandshakeHello, error) {
	if len(payload) != helloSize {
		return HandshakeHello{}, newErr(KindProtocol, "decode hello", errors.New("unexpected handshake hello length"))
	}
	var h HandshakeHello
	off := 0
	off += copy(h.IdentityPub[:], payload[off:off+Ed25519PubSize])
	off += copy(h.EphemeralPub[:], payload[off:off+X25519PubSize])
	off += copy(h.Nonce[:], payload[off:off+HandshakeNonceSize])
	copy(h.Signature[:], payload[off:off+SignatureSize])
	return h, nil
}

// HandshakeResponse is the server's reply: its long-term identity key, a
// fresh ephemeral key, and a signature over (client_nonce || server_ephemeral_pub).
type HandshakeResponse struct {
	IdentityPub  [Ed25519PubSize]byte
	EphemeralPub [X25519PubSize]byte
	Signature    [SignatureSize]byte
}

const responseSize = Ed25519PubSize + X25519PubSize + SignatureSize

func (r HandshakeResponse) Encode() []byte {
	buf := make([]byte, responseSize)
	off := 0
	off += copy(buf[off:], r.IdentityPub[:])
	off += copy(buf[off:], r.EphemeralPub[:])
	copy(buf[off:], r.Signature[:])
	return buf
}

func DecodeHandshakeResponse(payload []byte) (HandshakeResponse, error) {
	if len(payload) != responseSize {
		return HandshakeResponse{}, newErr(KindProtocol, "decode response", errors.New("unexpected handshake response length"))
	}
	var r HandshakeResponse
	off := 0
	off += copy(r.IdentityPub[:], payload[off:off+Ed25519PubSize])
	off += copy(r.EphemeralPub[:], payload[off:off+X25519PubSize])
	copy(r.Signature[:], payload[off:off+SignatureSize])
	return r, nil
}

// HandshakeFinish is the client's final message. Its payload is exactly the
// 64-byte Ed25519 signature made with the client's identity key; it carries
// no other content.
type HandshakeFinish struct {
	Signature [SignatureSize]byte
}

func (f HandshakeFinish) Encode() []byte {
	buf := make([]byte, SignatureSize)
	copy(buf, f.Signature[:])
	return buf
}

func DecodeHandshakeFinish(payload []byte) (HandshakeFinish, error) {
	if len(payload) != SignatureSize {
		return HandshakeFinish{}, newErr(KindProtocol, "decode finish", errors.New("unexpected handshake finish length"))
	}
	var f HandshakeFinish
	copy(f.Signature[:], payload)
	return f, nil
}
