package server

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/zfogg/ascii-chat/config"
	"github.com/zfogg/ascii-chat/cryptoacip"
)

func testLogger() zerolog.Logger { return zerolog.Nop() }

func TestNewBuildsServerWithGeneratedIdentity(t *testing.T) {
	cfg := config.Default()
	cfg.IdentityKey = ""
	cfg.TCPPort = 0
	cfg.WSPort = 0

	s, err := New(cfg, testLogger())
	require.NoError(t, err)
	require.NotNil(t, s.identity.Private)
	require.IsType(t, cryptoacip.AllowAnyone{}, s.auth)
}

func TestLoadAuthPolicyDefaultsToAllowAnyone(t *testing.T) {
	cfg := config.Default()
	policy, err := loadAuthPolicy(cfg)
	require.NoError(t, err)
	require.NoError(t, policy.Check(nil))
}

func TestHandshakeFailureReasonClassifiesKnownErrors(t *testing.T) {
	require.Equal(t, "bad_signature", handshakeFailureReason(cryptoacip.ErrBadSignature))
	require.Equal(t, "auth_failed", handshakeFailureReason(cryptoacip.ErrAuthFailed))
	require.Equal(t, "other", handshakeFailureReason(nil))
}

func TestBindErrorUnwraps(t *testing.T) {
	inner := require.AnError
	be := bindError{inner}
	require.Equal(t, inner, be.Unwrap())
	require.Equal(t, inner.Error(), be.Error())
}
