// Package acerr is the shared error taxonomy used across every ascii-chat
// package (spec §7): a small Kind enum plus a wrapping Error type that
// supports errors.Is/As/Unwrap, so a caller anywhere in the pipeline can
// test errors.Is(err, acerr.Crypto) regardless of which package produced it.
package acerr

// Kind is the top-level error taxonomy from spec §7.
type Kind int

const (
	// KindIO covers transport-level read/write errors, socket closed, TLS errors.
	KindIO Kind = iota
	// KindTimeout covers handshake or steady-state timeouts.
	KindTimeout
	// KindProtocol covers bad magic, oversize length, CRC mismatch, unknown
	// required type, unexpected packet in handshake phase, size/dimension
	// violations.
	KindProtocol
	// KindCrypto covers signature/KDF/AEAD failure, nonce replay/reorder.
	KindCrypto
	// KindAuth covers identity mismatch, not in whitelist, password mismatch.
	KindAuth
	// KindResource covers allocation failure, pool exhaustion, queue full.
	KindResource
	// KindState covers an operation invalid for the current connection state.
	KindState
	// KindFatal covers configuration or startup errors; the process exits.
	KindFatal
)

func (k Kind) String() string {
	switch k {
	case KindIO:
		return "io"
	case KindTimeout:
		return "timeout"
	case KindProtocol:
		return "protocol"
	case KindCrypto:
		return "crypto"
	case KindAuth:
		return "auth"
	case KindResource:
		return "resource"
	case KindState:
		return "state"
	case KindFatal:
		return "fatal"
	default:
		return "unknown"
	}
}

// Error is the taxonomy-carrying error type used across the module.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return e.Kind.String() + ": " + e.Op
	}
	return e.Kind.String() + ": " + e.Op + ": " + e.Err.Error()
}

func (e *Error) Unwrap() error { return e.Err }

// Is allows errors.Is(err, acerr.ErrProtocol) to match any *Error of the
// same kind, regardless of Op/Err.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind
}

// New builds an *Error wrapping err under kind, tagged with op for context.
func New(kind Kind, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}

// Sentinel kind markers for errors.Is comparisons; carry no Op/Err of their own.
var (
	ErrIO       = &Error{Kind: KindIO}
	ErrTimeout  = &Error{Kind: KindTimeout}
	ErrProtocol = &Error{Kind: KindProtocol}
	ErrCrypto   = &Error{Kind: KindCrypto}
	ErrAuth     = &Error{Kind: KindAuth}
	ErrResource = &Error{Kind: KindResource}
	ErrState    = &Error{Kind: KindState}
	ErrFatal    = &Error{Kind: KindFatal}
)
