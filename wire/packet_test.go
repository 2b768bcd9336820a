package wire

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestHeaderEncodeDecodeRoundTrip(t *testing.T) {
	payload := []byte("hello ascii-chat")
	h := NewHeader(TypeImageFrame, 42, payload)

	var buf [HeaderSize]byte
	h.Encode(buf[:])

	got, err := DecodeHeader(buf[:])
	require.NoError(t, err)
	require.Equal(t, h, got)
	require.NoError(t, got.ValidateMagic())
}

func TestPacketRoundTrip(t *testing.T) {
	payload := []byte{1, 2, 3, 4, 5}
	p := NewPacket(TypeAudioBatch, 7, payload)

	encoded := p.Encode()

	decoded, err := ReadPacket(bytes.NewReader(encoded))
	require.NoError(t, err)
	require.Equal(t, p.Header.Magic, decoded.Header.Magic)
	require.Equal(t, p.Header.Type, decoded.Header.Type)
	require.Equal(t, p.Header.SenderID, decoded.Header.SenderID)
	require.Equal(t, p.Payload, decoded.Payload)
}

func TestReadPacketRejectsBadCRC(t *testing.T) {
	p := NewPacket(TypePing, 1, nil)
	encoded := p.Encode()
	// Ping has an empty payload with nothing to corrupt, so use a packet
	// that carries a payload and flip its last byte instead.
	p2 := NewPacket(TypeAudioBatch, 1, []byte{9, 9, 9, 9})
	encoded2 := p2.Encode()
	encoded2[len(encoded2)-1] ^= 0xFF // corrupt last payload byte

	_, err := ReadPacket(bytes.NewReader(encoded2))
	require.Error(t, err)
	require.ErrorIs(t, err, ErrProtocol)
	_ = encoded
}

func TestReadPacketRejectsOversizePayload(t *testing.T) {
	var hdr [HeaderSize]byte
	h := Header{Magic: Magic, Version: Version, Type: TypeImageFrame, PayloadLength: MaxPacketSize + 1}
	h.Encode(hdr[:])

	_, err := ReadPacket(bytes.NewReader(hdr[:]))
	require.Error(t, err)
	require.ErrorIs(t, err, ErrProtocol)
}

func TestImageFrameDecodeBoundaries(t *testing.T) {
	_, err := DecodeImageFrame([]byte{0, 0, 0, 0, 0, 0, 0, 1})
	require.Error(t, err)

	big := make([]byte, 8)
	big[0] = 0xFF
	big[1] = 0xFF
	_, err = DecodeImageFrame(big)
	require.Error(t, err)

	f := ImageFrame{Width: 2, Height: 1, RGB: make([]byte, 6)}
	encoded := f.Encode()
	decoded, err := DecodeImageFrame(encoded)
	require.NoError(t, err)
	require.Equal(t, f.Width, decoded.Width)
	require.Equal(t, f.Height, decoded.Height)
}

func TestAudioBatchRoundTrip(t *testing.T) {
	samples := []float32{0, 0.5, -0.5, 1, -1}
	encoded := EncodeAudioBatch(samples)
	decoded, err := DecodeAudioBatch(encoded)
	require.NoError(t, err)
	require.Equal(t, samples, decoded)
}

func TestClientJoinRoundTrip(t *testing.T) {
	cj := ClientJoin{DisplayName: "Ada", Capabilities: CapVideo | CapAudio}
	encoded := cj.Encode()
	require.Len(t, encoded, ClientJoinNameSize+4)
	decoded, err := DecodeClientJoin(encoded)
	require.NoError(t, err)
	require.Equal(t, cj.DisplayName, decoded.DisplayName)
	require.Equal(t, cj.Capabilities, decoded.Capabilities)
}

func TestValidateBoundaryPayloadLength(t *testing.T) {
	p := &Packet{Header: Header{Type: TypeImageFrame, PayloadLength: MaxPacketSize}, Payload: make([]byte, MaxPacketSize)}
	// MaxLen for image frame (8 + 4096*4096*3) is larger than MaxPacketSize,
	// so a payload of exactly MaxPacketSize is within both bounds and accepted.
	err := Validate(p, true)
	require.NoError(t, err)
}

func TestValidateHandshakePhase(t *testing.T) {
	hello := &Packet{Header: Header{Type: TypeHandshakeHello, PayloadLength: uint32(helloSize)}, Payload: make([]byte, helloSize)}
	require.NoError(t, Validate(hello, false))
	require.Error(t, Validate(hello, true))

	join := &Packet{Header: Header{Type: TypeClientJoin, PayloadLength: ClientJoinNameSize + 4}, Payload: make([]byte, ClientJoinNameSize+4)}
	require.Error(t, Validate(join, false))
	require.NoError(t, Validate(join, true))
}
