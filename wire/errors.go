package wire

import (
	"errors"

	"github.com/zfogg/ascii-chat/acerr"
)

// The wire package's error kinds and constructor are aliases onto the
// shared acerr taxonomy (spec §7), so callers can use either wire.ErrCrypto
// or acerr.ErrCrypto interchangeably with errors.Is.
type ErrorKind = acerr.Kind

const (
	KindIO       = acerr.KindIO
	KindTimeout  = acerr.KindTimeout
	KindProtocol = acerr.KindProtocol
	KindCrypto   = acerr.KindCrypto
	KindAuth     = acerr.KindAuth
	KindResource = acerr.KindResource
	KindState    = acerr.KindState
	KindFatal    = acerr.KindFatal
)

type Error = acerr.Error

func newErr(kind ErrorKind, op string, err error) *Error {
	return acerr.New(kind, op, err)
}

// Sentinel kind markers for errors.Is comparisons; carry no Op/Err of their own.
var (
	ErrIO       = acerr.ErrIO
	ErrTimeout  = acerr.ErrTimeout
	ErrProtocol = acerr.ErrProtocol
	ErrCrypto   = acerr.ErrCrypto
	ErrAuth     = acerr.ErrAuth
	ErrResource = acerr.ErrResource
	ErrState    = acerr.ErrState
	ErrFatal    = acerr.ErrFatal
)

// Specific named failures referenced by spec §4.5 and §7, each wrapping the
// matching Kind so errors.Is(err, wire.ErrCrypto) still succeeds.
var (
	ErrClosed                 = newErr(KindIO, "closed", errors.New("peer closed connection"))
	ErrBadSignature           = newErr(KindCrypto, "handshake", errors.New("bad signature"))
	ErrReplayOrReorder        = newErr(KindCrypto, "nonce", errors.New("replay or reorder detected"))
	ErrServerIdentityMismatch = newErr(KindAuth, "handshake", errors.New("server identity mismatch"))
	ErrAuthFailed             = newErr(KindAuth, "handshake", errors.New("client not authorized"))
	ErrDecryptFailed          = newErr(KindCrypto, "aead", errors.New("decrypt failed"))
	ErrNonceExhausted         = newErr(KindCrypto, "nonce", errors.New("nonce counter exhausted"))
	ErrServerFull             = newErr(KindState, "join", errors.New("server full"))
)

// ErrWouldBlock classifies a bounded operation that would need to block.
// The queue and buffer pool in this module do not return it: queue.Push
// reports a drop by returning false, and the pool falls back to a fresh
// allocation (spec §7 propagation policy: drop and count, never surface).
var ErrWouldBlock = newErr(KindResource, "enqueue", errors.New("would block"))
