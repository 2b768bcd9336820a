package wire

// TypeRule describes the admissible payload-length range and handshake
// phase constraints for a single packet type (spec §4.9). Packet dispatch
// consults this table before any allocation or index arithmetic derived
// from wire-supplied lengths.
type TypeRule struct {
	MinLen uint32
	MaxLen uint32
	// RequiresHandshake is true if the packet must only be accepted after
	// the crypto handshake has completed for this connection.
	RequiresHandshake bool
	// HandshakePhaseOnly is true if the packet is only valid before the
	// handshake completes (the handshake messages themselves).
	HandshakePhaseOnly bool
}

// Rules is the authoritative per-type bounds table.
var Rules = map[Type]TypeRule{
	TypeHandshakeHello:     {MinLen: uint32(helloSize), MaxLen: uint32(helloSize), HandshakePhaseOnly: true},
	TypeHandshakeResponse:  {MinLen: uint32(responseSize), MaxLen: uint32(responseSize), HandshakePhaseOnly: true},
	TypeHandshakeFinish:    {MinLen: SignatureSize, MaxLen: SignatureSize, HandshakePhaseOnly: true},
	TypeClientJoin:         {MinLen: ClientJoinNameSize + 4, MaxLen: ClientJoinNameSize + 4, RequiresHandshake: true},
	TypeClientList:         {MinLen: 0, MaxLen: MaxPacketSize, RequiresHandshake: true},
	TypeStreamStart:        {MinLen: 4, MaxLen: 4, RequiresHandshake: true},
	TypeStreamStop:         {MinLen: 4, MaxLen: 4, RequiresHandshake: true},
	TypeImageFrame:         {MinLen: 8, MaxLen: 8 + MaxImageDimension*MaxImageDimension*3, RequiresHandshake: true},
	TypeAsciiFrame:         {MinLen: 24, MaxLen: MaxPacketSize, RequiresHandshake: true},
	TypeAudioBatch:         {MinLen: 0, MaxLen: MaxPacketSize, RequiresHandshake: true},
	TypeSizeUpdate:         {MinLen: 4, MaxLen: 4, RequiresHandshake: true},
	TypePing:               {MinLen: 0, MaxLen: 0, RequiresHandshake: true},
	TypePong:               {MinLen: 0, MaxLen: 0, RequiresHandshake: true},
	TypeServerState:        {MinLen: 8, MaxLen: 8, RequiresHandshake: true},
	TypeClearConsole:       {MinLen: 0, MaxLen: 0, RequiresHandshake: true},
	TypeError:              {MinLen: 4, MaxLen: MaxPacketSize, RequiresHandshake: false},
	TypeEncrypted:          {MinLen: NonceSize, MaxLen: MaxPacketSize, RequiresHandshake: true},
}

// Validate checks a decoded packet against its type rule, given whether the
// handshake has completed for this connection. It returns a *Error with
// KindProtocol for a payload length out of range and KindState for a packet
// sent in the wrong handshake phase.
func Validate(p *Packet, handshakeComplete bool) error {
	rule, ok := Rules[p.Header.Type]
	if !ok {
		// Unknown type: spec §4.4 says log and continue, not a protocol
		// violation by itself — dispatch handles this, not Validate.
		return nil
	}
	n := uint32(len(p.Payload))
	if n < rule.MinLen || n > rule.MaxLen {
		return newErr(KindProtocol, "validate payload length", errPayloadLengthOutOfRange)
	}
	if rule.HandshakePhaseOnly && handshakeComplete {
		return newErr(KindState, "validate handshake phase", errUnexpectedAfterHandshake)
	}
	if rule.RequiresHandshake && !handshakeComplete {
		return newErr(KindState, "validate handshake phase", errBeforeHandshake)
	}
	return nil
}
