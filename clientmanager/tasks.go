package clientmanager

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"github.com/zfogg/ascii-chat/wire"
)

// ReceiveIdleTimeout is how long the receive task waits for any packet
// before sending a PING keepalive (spec §4.8 "receive-idle timeout sends a
// PING").
const ReceiveIdleTimeout = 10 * time.Second

// PongTimeout is how long the receive task waits for the PONG reply to its
// keepalive PING before closing the connection.
const PongTimeout = 10 * time.Second

// MaxImageDimension bounds IMAGE_FRAME width/height (spec §4.4 "≤ 4096 × 4096").
const MaxImageDimension = 4096

// ReceiveLoop implements spec §4.4's receive task: read, validate, and
// dispatch by type, mutating only this client's own ClientInfo fields (the
// "capability/stream/state fields mutated only by the receive task" rule
// in spec §3.5).
func ReceiveLoop(ctx context.Context, info *Info, handshakeComplete bool, log zerolog.Logger) error {
	awaitingPong := false
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		deadline := ReceiveIdleTimeout
		if awaitingPong {
			deadline = PongTimeout
		}
		if err := info.Transport.SetDeadline(time.Now().Add(deadline)); err != nil {
			return err
		}
		p, err := info.Transport.ReadPacket()
		if err != nil {
			if awaitingPong {
				return err
			}
			// Idle timeout: probe with a PING before giving up entirely, and
			// give the peer PongTimeout to reply before closing.
			pong := wire.NewPacket(wire.TypePing, info.ID, nil)
			info.OutboundVideo.Push(pong)
			awaitingPong = true
			continue
		}
		awaitingPong = false

		if err := wire.Validate(p, handshakeComplete); err != nil {
			log.Warn().Err(err).Uint32("client", info.ID).Str("type", p.Header.Type.String()).Msg("dropping invalid packet")
			continue
		}

		if err := dispatch(info, p, log); err != nil {
			return err
		}
	}
}

func dispatch(info *Info, p *wire.Packet, log zerolog.Logger) error {
	switch p.Header.Type {
	case wire.TypeClientJoin:
		cj, err := wire.DecodeClientJoin(p.Payload)
		if err != nil {
			return nil
		}
		info.DisplayName = cj.DisplayName
		info.Capabilities = cj.Capabilities
		info.SetState(StateActive)

	case wire.TypeStreamStart:
		kinds, err := wire.DecodeStreamKinds(p.Payload)
		if err == nil {
			info.Streams |= kinds
		}

	case wire.TypeStreamStop:
		kinds, err := wire.DecodeStreamKinds(p.Payload)
		if err == nil {
			info.Streams &^= kinds
		}

	case wire.TypeImageFrame:
		frame, err := wire.DecodeImageFrame(p.Payload)
		if err != nil {
			log.Warn().Err(err).Uint32("client", info.ID).Msg("bad image frame")
			return nil
		}
		if frame.Width > MaxImageDimension || frame.Height > MaxImageDimension {
			log.Warn().Uint32("client", info.ID).Msg("image frame exceeds max dimension")
			return nil
		}
		info.InboundVideo.Push(p.Payload)
		info.FramesReceived.Add(1)

	case wire.TypeAudioBatch:
		samples, err := wire.DecodeAudioBatch(p.Payload)
		if err != nil {
			return nil
		}
		info.InboundAudio.Write(samples)

	case wire.TypeSizeUpdate:
		su, err := wire.DecodeSizeUpdate(p.Payload)
		if err == nil {
			info.LastWidth, info.LastHeight = su.Width, su.Height
		}

	case wire.TypePing:
		pong := wire.NewPacket(wire.TypePong, info.ID, nil)
		info.OutboundVideo.Push(pong)

	case wire.TypePong:
		// keepalive acknowledged; nothing to do beyond resetting the
		// idle-timeout deadline, handled by the loop's next SetDeadline call.

	default:
		log.Debug().Str("type", p.Header.Type.String()).Msg("unhandled packet type")
	}
	return nil
}

// SendLoop implements spec §4.3's drain order: audio first, then video;
// when both queues are empty it sleeps for a millisecond before polling
// again, so the task stays responsive without busy-spinning (the queues
// themselves have no blocking wait).
func SendLoop(ctx context.Context, info *Info) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		drained := false
		if v, ok := info.OutboundAudio.Pop(); ok {
			if err := writePacket(info, v); err != nil {
				return err
			}
			drained = true
		}
		if v, ok := info.OutboundVideo.Pop(); ok {
			if err := writePacket(info, v); err != nil {
				return err
			}
			drained = true
		}
		if !drained {
			time.Sleep(time.Millisecond)
		}
	}
}

func writePacket(info *Info, v any) error {
	p, ok := v.(*wire.Packet)
	if !ok {
		return nil
	}
	return info.Transport.WritePacket(p)
}
