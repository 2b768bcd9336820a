// Package wire implements the ACIP on-the-wire packet format: a fixed
// 24-byte big-endian header, a CRC32-checked variable-length payload, and
// the payload-type bounds table that packet dispatch uses to reject
// malformed input before any allocation (spec §3.1, §6.1, §4.9).
package wire

import (
	"encoding/binary"
	"errors"
	"hash/crc32"
)

var (
	errShortHeader     = errors.New("buffer shorter than header size")
	errBadMagic        = errors.New("bad magic")
	errPayloadTooLarge = errors.New("payload length exceeds MaxPacketSize")
	errCRCMismatch     = errors.New("crc32 mismatch")

	errPayloadLengthOutOfRange = errors.New("payload length out of range for type")
	errUnexpectedAfterHandshake = errors.New("packet only valid before handshake completion")
	errBeforeHandshake          = errors.New("packet requires completed handshake")
)

// Magic is the fixed 4-byte value every packet header must carry.
const Magic uint32 = 0x41534349

// Version is the current wire protocol version this package emits.
const Version uint16 = 1

// MaxPacketSize is the largest payload this implementation will accept.
const MaxPacketSize = 32 * 1024 * 1024 // 32 MiB

// HeaderSize is the fixed, constant size of every packet header on the wire.
const HeaderSize = 24

// Type enumerates ACIP payload types (spec §3.1).
type Type uint16

const (
	TypeHandshakeHello Type = iota + 1
	TypeHandshakeResponse
	TypeHandshakeFinish
	TypeClientJoin
	TypeClientList
	TypeStreamStart
	TypeStreamStop
	TypeImageFrame
	TypeAsciiFrame
	TypeAudioBatch
	TypeSizeUpdate
	TypePing
	TypePong
	TypeServerState
	TypeClearConsole
	TypeError
	TypeEncrypted
)

func (t Type) String() string {
	switch t {
	case TypeHandshakeHello:
		return "HANDSHAKE_HELLO"
	case TypeHandshakeResponse:
		return "HANDSHAKE_RESPONSE"
	case TypeHandshakeFinish:
		return "HANDSHAKE_FINISH"
	case TypeClientJoin:
		return "CLIENT_JOIN"
	case TypeClientList:
		return "CLIENT_LIST"
	case TypeStreamStart:
		return "STREAM_START"
	case TypeStreamStop:
		return "STREAM_STOP"
	case TypeImageFrame:
		return "IMAGE_FRAME"
	case TypeAsciiFrame:
		return "ASCII_FRAME"
	case TypeAudioBatch:
		return "AUDIO_BATCH"
	case TypeSizeUpdate:
		return "SIZE_UPDATE"
	case TypePing:
		return "PING"
	case TypePong:
		return "PONG"
	case TypeServerState:
		return "SERVER_STATE"
	case TypeClearConsole:
		return "CLEAR_CONSOLE"
	case TypeError:
		return "ERROR"
	case TypeEncrypted:
		return "ENCRYPTED"
	default:
		return "UNKNOWN"
	}
}

// Capability bitfield values carried by CLIENT_JOIN (spec §6.1).
const (
	CapVideo uint32 = 1 << iota
	CapAudio
	CapColor
	CapStretch
	CapUTF8
)

// StreamKind bitfield values carried by STREAM_START/STREAM_STOP (spec §6.1).
const (
	StreamVideo uint32 = 1 << iota
	StreamAudio
)

// Header is the fixed 24-byte ACIP packet header, network byte order.
type Header struct {
	Magic         uint32
	Version       uint16
	Type          Type
	PayloadLength uint32
	CRC32         uint32
	SenderID      uint32
	Flags         uint16
	Reserved      uint16
}

// NewHeader builds a header for payload, computing length and CRC32.
func NewHeader(typ Type, senderID uint32, payload []byte) Header {
	return Header{
		Magic:         Magic,
		Version:       Version,
		Type:          typ,
		PayloadLength: uint32(len(payload)),
		CRC32:         crc32.ChecksumIEEE(payload),
		SenderID:      senderID,
	}
}

// Encode writes the header in its 24-byte wire representation.
func (h Header) Encode(buf []byte) {
	_ = buf[HeaderSize-1] // bounds check hint
	binary.BigEndian.PutUint32(buf[0:4], h.Magic)
	binary.BigEndian.PutUint16(buf[4:6], h.Version)
	binary.BigEndian.PutUint16(buf[6:8], uint16(h.Type))
	binary.BigEndian.PutUint32(buf[8:12], h.PayloadLength)
	binary.BigEndian.PutUint32(buf[12:16], h.CRC32)
	binary.BigEndian.PutUint32(buf[16:20], h.SenderID)
	binary.BigEndian.PutUint16(buf[20:22], h.Flags)
	binary.BigEndian.PutUint16(buf[22:24], h.Reserved)
}

// DecodeHeader parses a 24-byte buffer into a Header. It does not validate
// magic or bounds; callers run Validate (or the dispatch bounds table).
func DecodeHeader(buf []byte) (Header, error) {
	if len(buf) < HeaderSize {
		return Header{}, newErr(KindProtocol, "decode header", errShortHeader)
	}
	return Header{
		Magic:         binary.BigEndian.Uint32(buf[0:4]),
		Version:       binary.BigEndian.Uint16(buf[4:6]),
		Type:          Type(binary.BigEndian.Uint16(buf[6:8])),
		PayloadLength: binary.BigEndian.Uint32(buf[8:12]),
		CRC32:         binary.BigEndian.Uint32(buf[12:16]),
		SenderID:      binary.BigEndian.Uint32(buf[16:20]),
		Flags:         binary.BigEndian.Uint16(buf[20:22]),
		Reserved:      binary.BigEndian.Uint16(buf[22:24]),
	}, nil
}

// FixedFields returns the header fields that don't depend on the payload
// itself (magic, version, type, sender_id, flags, reserved — everything but
// payload_length and crc32). This is what ENCRYPTED packets use as AEAD
// associated data (spec §4.4, §6.1): the framing metadata can be
// authenticated without a circular dependency on the ciphertext it wraps.
func (h Header) FixedFields() []byte {
	buf := make([]byte, 16)
	binary.BigEndian.PutUint32(buf[0:4], h.Magic)
	binary.BigEndian.PutUint16(buf[4:6], h.Version)
	binary.BigEndian.PutUint16(buf[6:8], uint16(h.Type))
	binary.BigEndian.PutUint32(buf[8:12], h.SenderID)
	binary.BigEndian.PutUint16(buf[12:14], h.Flags)
	binary.BigEndian.PutUint16(buf[14:16], h.Reserved)
	return buf
}

// ValidateMagic checks the header's magic is the ACIP constant.
func (h Header) ValidateMagic() error {
	if h.Magic != Magic {
		return newErr(KindProtocol, "validate header", errBadMagic)
	}
	return nil
}
