package cryptoacip

import (
	"errors"

	"github.com/zfogg/ascii-chat/acerr"
)

type ErrorKind = acerr.Kind

const (
	KindCrypto   = acerr.KindCrypto
	KindAuth     = acerr.KindAuth
	KindProtocol = acerr.KindProtocol
)

func newErr(kind ErrorKind, op string, err error) *acerr.Error {
	return acerr.New(kind, op, err)
}

var (
	ErrBadSignature           = newErr(KindCrypto, "handshake", errors.New("bad signature"))
	ErrReplayOrReorder        = newErr(KindCrypto, "nonce", errors.New("replay or reorder detected"))
	ErrServerIdentityMismatch = newErr(KindAuth, "handshake", errors.New("server identity mismatch"))
	ErrAuthFailed             = newErr(KindAuth, "handshake", errors.New("client not authorized"))
	ErrDecryptFailed          = newErr(KindCrypto, "aead", errors.New("decrypt failed"))
	ErrNonceExhausted         = newErr(KindCrypto, "nonce", errors.New("nonce counter exhausted"))
)
