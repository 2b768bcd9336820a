package cryptoacip

import (
	"github.com/zfogg/ascii-chat/transport"
	"github.com/zfogg/ascii-chat/wire"
)

// SecureTransport wraps an underlying transport.Transport with the
// encryption policy from spec §4.4: if the transport itself already
// encrypts the stream (TLS or WSS), packets pass through untouched; else,
// once the handshake has produced a Session, every outbound packet is
// wrapped in ENCRYPTED and every inbound ENCRYPTED packet is unwrapped,
// re-validated, and re-dispatched as its inner type. Handshake packets
// always travel in the clear regardless of transport, since they establish
// the very identity the encryption depends on.
type SecureTransport struct {
	transport.Transport
	session *Session
}

// NewSecureTransport wraps t. session may be nil before the handshake
// completes; SetSession installs it once ready.
func NewSecureTransport(t transport.Transport) *SecureTransport {
	return &SecureTransport{Transport: t}
}

// SetSession installs the session derived from a completed handshake.
func (s *SecureTransport) SetSession(session *Session) {
	s.session = session
}

func isHandshakeType(t wire.Type) bool {
	switch t {
	case wire.TypeHandshakeHello, wire.TypeHandshakeResponse, wire.TypeHandshakeFinish:
		return true
	default:
		return false
	}
}

// outerFixedFields returns what the AAD would be for an ENCRYPTED packet
// carrying senderID: the framing metadata fixed before the ciphertext
// length (and therefore payload_length/crc32) are known.
func outerFixedFields(senderID uint32) []byte {
	h := wire.Header{Magic: wire.Magic, Version: wire.Version, Type: wire.TypeEncrypted, SenderID: senderID}
	return h.FixedFields()
}

// WritePacket implements the send half of spec §4.4's encryption policy:
// the plaintext sealed is the inner packet's own header+payload, and the
// AAD is the outer ENCRYPTED packet's fixed framing fields.
func (s *SecureTransport) WritePacket(p *wire.Packet) error {
	if s.Transport.ProvidesEncryption() || isHandshakeType(p.Header.Type) || s.session == nil {
		return s.Transport.WritePacket(p)
	}

	inner := p.Encode()
	aad := outerFixedFields(p.Header.SenderID)

	nonce, ciphertext, err := s.session.Seal(aad, inner)
	if err != nil {
		return err
	}
	encPayload := append(append([]byte{}, nonce[:]...), ciphertext...)
	outer := wire.NewPacket(wire.TypeEncrypted, p.Header.SenderID, encPayload)
	return s.Transport.WritePacket(outer)
}

// ReadPacket implements the recv half: transparently unwraps ENCRYPTED
// packets into their inner type once a session exists, re-validating the
// inner payload's CRC32 after decryption (spec §4.4 "re-verify CRC32").
func (s *SecureTransport) ReadPacket() (*wire.Packet, error) {
	p, err := s.Transport.ReadPacket()
	if err != nil {
		return nil, err
	}
	if s.Transport.ProvidesEncryption() || p.Header.Type != wire.TypeEncrypted || s.session == nil {
		return p, nil
	}

	if len(p.Payload) < 24 {
		return nil, ErrDecryptFailed
	}
	var nonce [24]byte
	copy(nonce[:], p.Payload[:24])
	ciphertext := p.Payload[24:]

	aad := outerFixedFields(p.Header.SenderID)
	plaintext, err := s.session.Open(nonce, aad, ciphertext)
	if err != nil {
		return nil, err
	}
	if len(plaintext) < wire.HeaderSize {
		return nil, ErrDecryptFailed
	}
	inner, err := wire.DecodeHeader(plaintext[:wire.HeaderSize])
	if err != nil {
		return nil, err
	}
	innerPayload := plaintext[wire.HeaderSize:]
	if err := wire.VerifyPayloadCRC(inner, innerPayload); err != nil {
		return nil, err
	}
	return &wire.Packet{Header: inner, Payload: innerPayload}, nil
}
