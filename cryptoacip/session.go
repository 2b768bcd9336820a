package cryptoacip

import (
	"sync/atomic"

	"golang.org/x/crypto/blake2b"
	"golang.org/x/crypto/nacl/secretbox"
)

// Direction tags the two halves of a session's nonce space so client→server
// and server→client ciphertexts can never collide even if both sides ever
// reused a counter value (spec §4.5 "nonce structured as direction_tag ||
// monotonic_counter").
type Direction byte

const (
	DirClientToServer Direction = 0
	DirServerToClient Direction = 1
)

// deriveKeys runs the shared X25519 secret through a BLAKE2b-based KDF to
// produce two independent 32-byte directional keys. Spec §4.5 allows
// BLAKE2b or HKDF; BLAKE2b is used here since x/crypto/blake2b is already a
// pulled-in dependency and needs no extra HMAC construction.
func deriveKeys(shared [32]byte, helloNonce [24]byte) (k_c2s, k_s2c [32]byte, err error) {
	h1, err := blake2b.New256(append([]byte("ascii-chat c2s"), helloNonce[:]...))
	if err != nil {
		return k_c2s, k_s2c, newErr(KindCrypto, "kdf", err)
	}
	h1.Write(shared[:])
	copy(k_c2s[:], h1.Sum(nil))

	h2, err := blake2b.New256(append([]byte("ascii-chat s2c"), helloNonce[:]...))
	if err != nil {
		return k_c2s, k_s2c, newErr(KindCrypto, "kdf", err)
	}
	h2.Write(shared[:])
	copy(k_s2c[:], h2.Sum(nil))
	return k_c2s, k_s2c, nil
}

// deriveKeysWithPassword mixes a shared password into the KDF's key material
// (spec §4.5 auth policy (b)), used when the server requires a shared
// secret in addition to identity verification.
func deriveKeysWithPassword(shared [32]byte, helloNonce [24]byte, password []byte) (k_c2s, k_s2c [32]byte, err error) {
	mixed := append(append([]byte{}, shared[:]...), password...)
	var mixedArr [32]byte
	sum := blake2bSum256(mixed)
	copy(mixedArr[:], sum)
	return deriveKeys(mixedArr, helloNonce)
}

func blake2bSum256(data []byte) []byte {
	sum := blake2b.Sum256(data)
	return sum[:]
}

// NonceCounter is a strictly-increasing per-direction AEAD nonce counter
// (spec §4.5, §4.9). Producer-owned counters (Next) require no
// synchronization since only the send task calls them; receiver-side
// validation (CheckAndAdvance) is likewise single-owner on the receive task, but both
// use atomics defensively since a session may be shared across a read/write
// pair of goroutines in some transports.
type NonceCounter struct {
	dir     Direction
	counter atomic.Uint64
	lastSeen atomic.Uint64
	seenAny atomic.Bool
}

// NewNonceCounter builds a fresh counter for the given direction, starting
// at zero (spec edge case: next counter value after 0 is 1, matching "nonce
// counter at 2^64-1: the next send closes the connection").
func NewNonceCounter(dir Direction) *NonceCounter {
	return &NonceCounter{dir: dir}
}

// nonceBytes packs a direction tag and a 64-bit big-endian counter into the
// 24-byte XSalsa20-Poly1305 nonce (1 tag byte + 15 reserved zero bytes + 8
// counter bytes, keeping the counter in the low-order, most frequently
// varying position).
func nonceBytes(dir Direction, counter uint64) [24]byte {
	var n [24]byte
	n[0] = byte(dir)
	for i := 0; i < 8; i++ {
		n[23-i] = byte(counter >> (8 * i))
	}
	return n
}

// Next allocates the next nonce to use for an outbound message, returning
// ErrNonceExhausted once the counter would wrap past 2^64-1.
func (c *NonceCounter) Next() ([24]byte, error) {
	for {
		cur := c.counter.Load()
		if cur == ^uint64(0) {
			return [24]byte{}, ErrNonceExhausted
		}
		next := cur + 1
		if c.counter.CompareAndSwap(cur, next) {
			return nonceBytes(c.dir, next), nil
		}
	}
}

// CheckAndAdvance validates an inbound nonce's counter is strictly greater
// than the last one accepted for this direction (spec §4.5 "counters...must
// strictly increase"; gaps from lost packets are fine, reordering is not).
func (c *NonceCounter) CheckAndAdvance(nonce [24]byte) error {
	var counter uint64
	for i := 0; i < 8; i++ {
		counter |= uint64(nonce[23-i]) << (8 * i)
	}
	for {
		last := c.lastSeen.Load()
		seen := c.seenAny.Load()
		if seen && counter <= last {
			return ErrReplayOrReorder
		}
		if c.lastSeen.CompareAndSwap(last, counter) {
			c.seenAny.Store(true)
			return nil
		}
	}
}

// Session holds the two directional keys and nonce counters negotiated by
// a completed handshake, plus the peer's verified long-term identity.
type Session struct {
	PeerIdentityPub [32]byte // Ed25519 public key, raw bytes for storage convenience

	sendKey [32]byte
	recvKey [32]byte
	sendCtr *NonceCounter
	recvCtr *NonceCounter
}

// Seal encrypts plaintext under the session's send key and a freshly
// allocated nonce, binding assocData (the outer packet header's fixed
// fields per spec §6.1 ENCRYPTED) to it. secretbox has no native AAD
// support, so assocData is prepended to the plaintext and sealed inside the
// ciphertext; Open checks and strips that prefix, matching the
// "encrypt-then-strip" pattern several secretbox-based tools use for
// pseudo-AAD.
func (s *Session) Seal(assocData, plaintext []byte) (nonce [24]byte, ciphertext []byte, err error) {
	nonce, err = s.sendCtr.Next()
	if err != nil {
		return nonce, nil, err
	}
	combined := append(append([]byte{}, assocData...), plaintext...)
	ciphertext = secretbox.Seal(nil, combined, &nonce, &s.sendKey)
	return nonce, ciphertext, nil
}

// Open decrypts ciphertext sealed under the session's recv key, verifying
// the nonce is fresh and assocData matches the prefix stripped at Seal time.
func (s *Session) Open(nonce [24]byte, assocData, ciphertext []byte) ([]byte, error) {
	if err := s.recvCtr.CheckAndAdvance(nonce); err != nil {
		return nil, err
	}
	combined, ok := secretbox.Open(nil, ciphertext, &nonce, &s.recvKey)
	if !ok {
		return nil, ErrDecryptFailed
	}
	if len(combined) < len(assocData) {
		return nil, ErrDecryptFailed
	}
	for i := range assocData {
		if combined[i] != assocData[i] {
			return nil, ErrDecryptFailed
		}
	}
	return combined[len(assocData):], nil
}
