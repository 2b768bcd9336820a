package cryptoacip

import (
	"crypto/ed25519"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/zfogg/ascii-chat/wire"
)

func TestFullHandshakeProducesMatchingSessions(t *testing.T) {
	clientID, err := GenerateIdentity()
	require.NoError(t, err)
	serverID, err := GenerateIdentity()
	require.NoError(t, err)

	helloCh := make(chan wire.HandshakeHello, 1)
	respCh := make(chan wire.HandshakeResponse, 1)
	finishCh := make(chan wire.HandshakeFinish, 1)

	client := ClientHandshake{Identity: clientID}
	server := ServerHandshake{Identity: serverID, Auth: AllowAnyone{}}

	var clientSession, serverSession *Session
	var clientErr, serverErr error

	done := make(chan struct{})
	go func() {
		serverSession, _, serverErr = server.Run(
			func() (wire.HandshakeHello, error) { return <-helloCh, nil },
			func(r wire.HandshakeResponse) error { respCh <- r; return nil },
			func() (wire.HandshakeFinish, error) { return <-finishCh, nil },
		)
		close(done)
	}()

	clientSession, _, clientErr = client.Run(
		func(h wire.HandshakeHello) error { helloCh <- h; return nil },
		func() (wire.HandshakeResponse, error) { return <-respCh, nil },
		func(f wire.HandshakeFinish) error { finishCh <- f; return nil },
	)
	<-done

	require.NoError(t, clientErr)
	require.NoError(t, serverErr)
	require.NotNil(t, clientSession)
	require.NotNil(t, serverSession)

	plaintext := []byte("hello from client")
	assoc := []byte("hdr")
	nonce, ct, err := clientSession.Seal(assoc, plaintext)
	require.NoError(t, err)
	opened, err := serverSession.Open(nonce, assoc, ct)
	require.NoError(t, err)
	require.Equal(t, plaintext, opened)
}

func TestNonceCounterRejectsReplay(t *testing.T) {
	c := NewNonceCounter(DirClientToServer)
	n1, err := c.Next()
	require.NoError(t, err)
	require.NoError(t, c.CheckAndAdvance(n1))
	require.ErrorIs(t, c.CheckAndAdvance(n1), ErrReplayOrReorder)
}

func TestWhitelistPolicyRejectsUnknownKey(t *testing.T) {
	allowedID, _ := GenerateIdentity()
	otherID, _ := GenerateIdentity()
	policy := NewWhitelistPolicy([]ed25519.PublicKey{allowedID.Public})
	require.NoError(t, policy.Check(allowedID.Public))
	err := policy.Check(otherID.Public)
	require.Error(t, err)
	require.True(t, errors.Is(err, ErrAuthFailed))
}

func TestLoadAuthorizedKeysParsesEd25519(t *testing.T) {
	id, err := GenerateIdentity()
	require.NoError(t, err)
	line, err := MarshalAuthorizedKey(id.Public)
	require.NoError(t, err)

	keys, err := LoadAuthorizedKeys(strings.NewReader(line))
	require.NoError(t, err)
	require.Len(t, keys, 1)
	require.True(t, keys[0].Equal(id.Public))
}

func TestLoadAuthorizedKeysSkipsGarbageLines(t *testing.T) {
	keys, err := LoadAuthorizedKeys(strings.NewReader("# comment\nnot a key\n\n"))
	require.NoError(t, err)
	require.Len(t, keys, 0)
}
