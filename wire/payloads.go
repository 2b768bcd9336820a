package wire

import (
	"encoding/binary"
	"errors"
	"hash/crc32"
	"math"
)

// MaxImageDimension bounds both width and height of an IMAGE_FRAME (spec §8).
const MaxImageDimension = 4096

// ImageFrame is the decoded payload of an IMAGE_FRAME packet: raw RGB pixels
// from a client's webcam (spec §6.1).
type ImageFrame struct {
	Width, Height uint32
	RGB           []byte
}

var (
	errZeroDimension  = errors.New("image dimension is zero")
	errDimensionTooBig = errors.New("image dimension exceeds maximum")
	errSizeMismatch   = errors.New("payload length does not match width*height*3")
)

// DecodeImageFrame parses and validates an IMAGE_FRAME payload per spec §4.4:
// `[width:u32 be][height:u32 be][rgb pixels]`, length == 8 + w*h*3.
func DecodeImageFrame(payload []byte) (ImageFrame, error) {
	if len(payload) < 8 {
		return ImageFrame{}, newErr(KindProtocol, "decode image frame", errShortHeader)
	}
	w := binary.BigEndian.Uint32(payload[0:4])
	h := binary.BigEndian.Uint32(payload[4:8])
	if w == 0 || h == 0 {
		return ImageFrame{}, newErr(KindProtocol, "decode image frame", errZeroDimension)
	}
	if w > MaxImageDimension || h > MaxImageDimension {
		return ImageFrame{}, newErr(KindProtocol, "decode image frame", errDimensionTooBig)
	}
	want := 8 + uint64(w)*uint64(h)*3
	if uint64(len(payload)) != want {
		return ImageFrame{}, newErr(KindProtocol, "decode image frame", errSizeMismatch)
	}
	return ImageFrame{Width: w, Height: h, RGB: payload[8:]}, nil
}

// Encode serializes an ImageFrame back into wire form (used by tests and by
// any client-facing code sharing this codec).
func (f ImageFrame) Encode() []byte {
	buf := make([]byte, 8+len(f.RGB))
	binary.BigEndian.PutUint32(buf[0:4], f.Width)
	binary.BigEndian.PutUint32(buf[4:8], f.Height)
	copy(buf[8:], f.RGB)
	return buf
}

// AsciiFrameFlags bit assignments.
const (
	AsciiFlagColor uint32 = 1 << iota
	AsciiFlagHalfBlock
)

// AsciiFrame is the payload of an ASCII_FRAME packet (spec §4.7, §6.1): the
// composited grid, optionally zstd-compressed, with a CRC32 over the
// uncompressed bytes retained for legacy-protocol compatibility (spec §9).
type AsciiFrame struct {
	CellsW, CellsH uint32
	OriginalSize   uint32
	CompressedSize uint32
	CRC32          uint32
	Flags          uint32
	Payload        []byte // raw bytes if CompressedSize == 0, else compressed bytes
}

// NewAsciiFrame builds a frame header for uncompressed original bytes,
// optionally replacing Payload with compressed bytes (compressedSize > 0).
func NewAsciiFrame(cellsW, cellsH uint32, original []byte, compressed []byte, flags uint32) AsciiFrame {
	f := AsciiFrame{
		CellsW:       cellsW,
		CellsH:       cellsH,
		OriginalSize: uint32(len(original)),
		CRC32:        crc32.ChecksumIEEE(original),
		Flags:        flags,
	}
	if compressed != nil {
		f.CompressedSize = uint32(len(compressed))
		f.Payload = compressed
	} else {
		f.Payload = original
	}
	return f
}

// Encode serializes per spec §6.1:
// [cells_w][cells_h][original][compressed][crc32][flags][bytes].
func (f AsciiFrame) Encode() []byte {
	buf := make([]byte, 24+len(f.Payload))
	binary.BigEndian.PutUint32(buf[0:4], f.CellsW)
	binary.BigEndian.PutUint32(buf[4:8], f.CellsH)
	binary.BigEndian.PutUint32(buf[8:12], f.OriginalSize)
	binary.BigEndian.PutUint32(buf[12:16], f.CompressedSize)
	binary.BigEndian.PutUint32(buf[16:20], f.CRC32)
	binary.BigEndian.PutUint32(buf[20:24], f.Flags)
	copy(buf[24:], f.Payload)
	return buf
}

// DecodeAsciiFrame parses an ASCII_FRAME payload.
func DecodeAsciiFrame(payload []byte) (AsciiFrame, error) {
	if len(payload) < 24 {
		return AsciiFrame{}, newErr(KindProtocol, "decode ascii frame", errShortHeader)
	}
	f := AsciiFrame{
		CellsW:         binary.BigEndian.Uint32(payload[0:4]),
		CellsH:         binary.BigEndian.Uint32(payload[4:8]),
		OriginalSize:   binary.BigEndian.Uint32(payload[8:12]),
		CompressedSize: binary.BigEndian.Uint32(payload[12:16]),
		CRC32:          binary.BigEndian.Uint32(payload[16:20]),
		Flags:          binary.BigEndian.Uint32(payload[20:24]),
		Payload:        payload[24:],
	}
	return f, nil
}

// DecodeAudioBatch interprets a payload as little-endian float32 PCM samples
// at 48kHz mono (spec §4.4, §6.1).
func DecodeAudioBatch(payload []byte) ([]float32, error) {
	if len(payload)%4 != 0 {
		return nil, newErr(KindProtocol, "decode audio batch", errors.New("payload length not a multiple of 4"))
	}
	n := len(payload) / 4
	samples := make([]float32, n)
	for i := 0; i < n; i++ {
		bits := binary.LittleEndian.Uint32(payload[i*4 : i*4+4])
		samples[i] = math.Float32frombits(bits)
	}
	return samples, nil
}

// EncodeAudioBatch serializes float32 PCM samples as little-endian bytes.
func EncodeAudioBatch(samples []float32) []byte {
	buf := make([]byte, len(samples)*4)
	for i, s := range samples {
		binary.LittleEndian.PutUint32(buf[i*4:i*4+4], math.Float32bits(s))
	}
	return buf
}

// SizeUpdate is the payload of a SIZE_UPDATE packet: client terminal
// dimensions in cells (spec §6.1).
type SizeUpdate struct {
	Width, Height uint16
}

func DecodeSizeUpdate(payload []byte) (SizeUpdate, error) {
	if len(payload) != 4 {
		return SizeUpdate{}, newErr(KindProtocol, "decode size update", errors.New("expected 4 byte payload"))
	}
	return SizeUpdate{
		Width:  binary.BigEndian.Uint16(payload[0:2]),
		Height: binary.BigEndian.Uint16(payload[2:4]),
	}, nil
}

func (s SizeUpdate) Encode() []byte {
	buf := make([]byte, 4)
	binary.BigEndian.PutUint16(buf[0:2], s.Width)
	binary.BigEndian.PutUint16(buf[2:4], s.Height)
	return buf
}

// ClientJoinNameSize is the fixed, NUL-padded display name field width.
const ClientJoinNameSize = 32

// ClientJoin is the payload of a CLIENT_JOIN packet (spec §6.1).
type ClientJoin struct {
	DisplayName  string
	Capabilities uint32
}

func DecodeClientJoin(payload []byte) (ClientJoin, error) {
	if len(payload) != ClientJoinNameSize+4 {
		return ClientJoin{}, newErr(KindProtocol, "decode client join", errors.New("unexpected payload length"))
	}
	nameBytes := payload[:ClientJoinNameSize]
	end := ClientJoinNameSize
	for i, b := range nameBytes {
		if b == 0 {
			end = i
			break
		}
	}
	return ClientJoin{
		DisplayName:  string(nameBytes[:end]),
		Capabilities: binary.BigEndian.Uint32(payload[ClientJoinNameSize:]),
	}, nil
}

func (c ClientJoin) Encode() []byte {
	buf := make([]byte, ClientJoinNameSize+4)
	copy(buf[:ClientJoinNameSize], c.DisplayName)
	binary.BigEndian.PutUint32(buf[ClientJoinNameSize:], c.Capabilities)
	return buf
}

// DecodeStreamKinds parses the STREAM_START/STREAM_STOP bitfield payload.
func DecodeStreamKinds(payload []byte) (uint32, error) {
	if len(payload) != 4 {
		return 0, newErr(KindProtocol, "decode stream kinds", errors.New("expected 4 byte payload"))
	}
	return binary.BigEndian.Uint32(payload), nil
}

func EncodeStreamKinds(kinds uint32) []byte {
	buf := make([]byte, 4)
	binary.BigEndian.PutUint32(buf, kinds)
	return buf
}

// NonceSize is the XSalsa20-Poly1305 nonce length used by ENCRYPTED packets.
const NonceSize = 24

// Encrypted is the payload of an ENCRYPTED packet (spec §4.1, §6.1):
// nonce || ciphertext+tag.
type Encrypted struct {
	Nonce      [NonceSize]byte
	Ciphertext []byte
}

func DecodeEncrypted(payload []byte) (Encrypted, error) {
	if len(payload) < NonceSize {
		return Encrypted{}, newErr(KindProtocol, "decode encrypted", errShortHeader)
	}
	var e Encrypted
	copy(e.Nonce[:], payload[:NonceSize])
	e.Ciphertext = payload[NonceSize:]
	return e, nil
}

func (e Encrypted) Encode() []byte {
	buf := make([]byte, NonceSize+len(e.Ciphertext))
	copy(buf[:NonceSize], e.Nonce[:])
	copy(buf[NonceSize:], e.Ciphertext)
	return buf
}

// ErrorPayload is the payload of an ERROR packet (spec §7): code + message.
type ErrorPayload struct {
	Code    uint32
	Message string
}

// Well-known ERROR codes (spec §7, §8).
const (
	ErrCodeProtocol   uint32 = 1
	ErrCodeServerFull uint32 = 2
	ErrCodeAuthFailed uint32 = 3
	ErrCodeCrypto     uint32 = 4
	ErrCodeInternal   uint32 = 5
)

func (e ErrorPayload) Encode() []byte {
	buf := make([]byte, 4+len(e.Message))
	binary.BigEndian.PutUint32(buf[0:4], e.Code)
	copy(buf[4:], e.Message)
	return buf
}

func DecodeErrorPayload(payload []byte) (ErrorPayload, error) {
	if len(payload) < 4 {
		return ErrorPayload{}, newErr(KindProtocol, "decode error payload", errShortHeader)
	}
	return ErrorPayload{
		Code:    binary.BigEndian.Uint32(payload[0:4]),
		Message: string(payload[4:]),
	}, nil
}
