package broadcast

import (
	"context"
	"time"

	"github.com/zfogg/ascii-chat/clientmanager"
	"github.com/zfogg/ascii-chat/mixer"
	"github.com/zfogg/ascii-chat/wire"
)

// AudioLoop runs the mixer at its own 20 ms cadence, independent of the
// video broadcast loop's frame rate (spec §4.8 "the mixer's tick may
// enqueue AUDIO_BATCH packets at its own 20 ms cadence").
type AudioLoop struct {
	mixer    *mixer.Mixer
	clients  *clientmanager.Manager
	senderID uint32

	// minusSelf, when set, sends each client its own mix.MinusSelf(id)
	// batch instead of the shared mix (spec §4.2).
	minusSelf bool

	registered map[uint32]bool
}

// NewAudioLoop builds an audio loop over clients using m as the shared
// mixer instance. minusSelf selects spec §4.2's mix-minus-self delivery
// mode over the default send-same-to-all.
func NewAudioLoop(m *mixer.Mixer, clients *clientmanager.Manager, senderID uint32, minusSelf bool) *AudioLoop {
	return &AudioLoop{mixer: m, clients: clients, senderID: senderID, minusSelf: minusSelf, registered: make(map[uint32]bool)}
}

// Run blocks, ticking the mixer every 20ms until ctx is canceled.
func (a *AudioLoop) Run(ctx context.Context) {
	ticker := time.NewTicker(20 * time.Millisecond)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			a.tick()
		}
	}
}

func (a *AudioLoop) tick() {
	snapshot := a.clients.Snapshot()
	a.syncSources(snapshot)

	mixed := a.mixer.Tick()
	if len(mixed) == 0 {
		return
	}

	if !a.minusSelf {
		packet := wire.NewPacket(wire.TypeAudioBatch, a.senderID, wire.EncodeAudioBatch(mixed))
		for _, c := range snapshot {
			if !c.HasAudio() {
				continue
			}
			c.OutboundAudio.Push(packet)
		}
		return
	}

	for _, c := range snapshot {
		if !c.HasAudio() {
			continue
		}
		personal := a.mixer.MinusSelf(c.ID)
		packet := wire.NewPacket(wire.TypeAudioBatch, a.senderID, wire.EncodeAudioBatch(personal))
		c.OutboundAudio.Push(packet)
	}
}

// syncSources adds mixer sources for newly-audio-active clients and removes
// ones that disconnected or stopped sending audio.
func (a *AudioLoop) syncSources(snapshot []*clientmanager.Info) {
	seen := make(map[uint32]bool, len(snapshot))
	for _, c := range snapshot {
		if !c.HasAudio() {
			continue
		}
		seen[c.ID] = true
		if a.registered[c.ID] {
			continue
		}
		info := c
		a.mixer.AddSource(info.ID, func(out []float32) int {
			return info.InboundAudio.Read(out)
		})
		a.registered[c.ID] = true
	}
	for id := range a.registered {
		if !seen[id] {
			a.mixer.RemoveSource(id)
			delete(a.registered, id)
		}
	}
}
