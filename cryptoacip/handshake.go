package cryptoacip

import (
	"crypto/ed25519"
	"crypto/rand"

	"github.com/zfogg/ascii-chat/wire"
)

// ClientHandshake drives the client side of the three-message handshake
// (spec §4.5): build HELLO, validate the server's RESPONSE against an
// optional pinned server key, derive session keys, and produce the signed
// FINISH payload. send/recv perform the actual wire I/O so this function
// stays transport-agnostic.
type ClientHandshake struct {
	Identity       Identity
	PinnedServer   *ed25519.PublicKey // nil if the client does not pin
	Password       []byte             // nil unless the server requires one
}

// Run executes the handshake and returns the resulting session plus the
// server's verified long-term identity public key.
func (c ClientHandshake) Run(send func(wire.HandshakeHello) error, recvResponse func() (wire.HandshakeResponse, error), sendFinish func(wire.HandshakeFinish) error) (*Session, ed25519.PublicKey, error) {
	eph, err := GenerateEphemeral()
	if err != nil {
		return nil, nil, err
	}
	var nonce [24]byte
	if _, err := rand.Read(nonce[:]); err != nil {
		return nil, nil, newErr(KindCrypto, "handshake nonce", err)
	}

	sigMsg := append(append([]byte{}, eph.Public[:]...), nonce[:]...)
	sig := c.Identity.Sign(sigMsg)

	hello := wire.HandshakeHello{
		IdentityPub:  [32]byte(c.Identity.Public),
		EphemeralPub: eph.Public,
		Nonce:        nonce,
	}
	copy(hello.Signature[:], sig)

	if err := send(hello); err != nil {
		return nil, nil, err
	}

	resp, err := recvResponse()
	if err != nil {
		return nil, nil, err
	}

	if c.PinnedServer != nil {
		if [32]byte(*c.PinnedServer) != resp.IdentityPub {
			return nil, nil, ErrServerIdentityMismatch
		}
	}

	respSigMsg := append(append([]byte{}, nonce[:]...), resp.EphemeralPub[:]...)
	if !Verify(ed25519.PublicKey(resp.IdentityPub[:]), respSigMsg, resp.Signature[:]) {
		return nil, nil, ErrBadSignature
	}

	shared, err := eph.Agree(resp.EphemeralPub)
	if err != nil {
		return nil, nil, err
	}

	var kc2s, ks2c [32]byte
	if len(c.Password) > 0 {
		kc2s, ks2c, err = deriveKeysWithPassword(shared, nonce, c.Password)
	} else {
		kc2s, ks2c, err = deriveKeys(shared, nonce)
	}
	if err != nil {
		return nil, nil, err
	}

	session := &Session{
		PeerIdentityPub: resp.IdentityPub,
		sendKey:         kc2s,
		recvKey:         ks2c,
		sendCtr:         NewNonceCounter(DirClientToServer),
		recvCtr:         NewNonceCounter(DirServerToClient),
	}

	finishSig := c.Identity.Sign(respSigMsg)
	var finish wire.HandshakeFinish
	copy(finish.Signature[:], finishSig)
	if err := sendFinish(finish); err != nil {
		return nil, nil, err
	}

	return session, ed25519.PublicKey(resp.IdentityPub[:]), nil
}

// ServerHandshake drives the server side: receive HELLO, run the auth
// policy against the client's identity, send RESPONSE, then receive and
// verify FINISH.
type ServerHandshake struct {
	Identity Identity
	Auth     AuthPolicy
}

func (s ServerHandshake) Run(recvHello func() (wire.HandshakeHello, error), send func(wire.HandshakeResponse) error, recvFinish func() (wire.HandshakeFinish, error)) (*Session, ed25519.PublicKey, error) {
	hello, err := recvHello()
	if err != nil {
		return nil, nil, err
	}

	helloSigMsg := append(append([]byte{}, hello.EphemeralPub[:]...), hello.Nonce[:]...)
	clientPub := ed25519.PublicKey(hello.IdentityPub[:])
	if !Verify(clientPub, helloSigMsg, hello.Signature[:]) {
		return nil, nil, ErrBadSignature
	}

	if err := s.Auth.Check(clientPub); err != nil {
		return nil, nil, err
	}

	eph, err := GenerateEphemeral()
	if err != nil {
		return nil, nil, err
	}

	respSigMsg := append(append([]byte{}, hello.Nonce[:]...), eph.Public[:]...)
	respSig := s.Identity.Sign(respSigMsg)

	resp := wire.HandshakeResponse{
		IdentityPub:  [32]byte(s.Identity.Public),
		EphemeralPub: eph.Public,
	}
	copy(resp.Signature[:], respSig)

	if err := send(resp); err != nil {
		return nil, nil, err
	}

	shared, err := eph.Agree(hello.EphemeralPub)
	if err != nil {
		return nil, nil, err
	}

	var kc2s, ks2c [32]byte
	if pw := s.Auth.Password(); len(pw) > 0 {
		kc2s, ks2c, err = deriveKeysWithPassword(shared, hello.Nonce, pw)
	} else {
		kc2s, ks2c, err = deriveKeys(shared, hello.Nonce)
	}
	if err != nil {
		return nil, nil, err
	}

	finish, err := recvFinish()
	if err != nil {
		return nil, nil, err
	}
	if !Verify(clientPub, respSigMsg, finish.Signature[:]) {
		return nil, nil, ErrBadSignature
	}

	session := &Session{
		PeerIdentityPub: hello.IdentityPub,
		sendKey:         ks2c,
		recvKey:         kc2s,
		sendCtr:         NewNonceCounter(DirServerToClient),
		recvCtr:         NewNonceCounter(DirClientToServer),
	}

	return session, clientPub, nil
}
