// Package clientmanager owns the server's client table and the per-client
// receive and send tasks (spec §3.5, §3.6, §4.8). There is no per-client
// render task: the broadcast loop pushes one shared frame onto every
// client's video queue. Its shape mirrors
// the teacher's room/peer bookkeeping (sfuRoom/sfuServer's mutex-protected
// peer maps) generalized from one room to the whole server's flat client
// set, since ascii-chat has no room concept — every connected client can
// see every other connected client.
package clientmanager

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/zfogg/ascii-chat/queue"
	"github.com/zfogg/ascii-chat/ring"
	"github.com/zfogg/ascii-chat/transport"
	"github.com/zfogg/ascii-chat/wire"
)

// State is a client connection's lifecycle stage (spec §3.6).
type State int

const (
	StateConnected State = iota
	StateHandshaking
	StateAuthenticated
	StateActive
	StateClosing
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateConnected:
		return "connected"
	case StateHandshaking:
		return "handshaking"
	case StateAuthenticated:
		return "authenticated"
	case StateActive:
		return "active"
	case StateClosing:
		return "closing"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// Info is the server's view of one connected client: identity, negotiated
// capabilities, per-direction queues/rings, and lifecycle state.
type Info struct {
	ID           uint32
	DisplayName  string
	Capabilities uint32
	Streams      uint32 // StreamVideo|StreamAudio bits currently active

	Transport transport.Transport

	state atomic.Int32

	// InboundVideo/InboundAudio receive raw frames/samples this client sent
	// (written by the receive task, read by the compositor/mixer each tick
	// — spec §3.4 "per-client video/audio ring").
	InboundVideo *ring.Video
	InboundAudio *ring.Audio

	// OutboundAudio/OutboundVideo are the per-client send queues the
	// broadcast loop, mixer, and receive task (pong/control replies) push
	// onto; the send task drains audio first, then video (spec §4.3
	// "audio drained preferentially over video").
	OutboundAudio *queue.Queue
	OutboundVideo *queue.Queue

	LastWidth, LastHeight uint16

	FramesReceived atomic.Uint64
	FramesDropped  atomic.Uint64

	cancel context.CancelFunc
}

// State returns the client's current lifecycle stage.
func (i *Info) State() State { return State(i.state.Load()) }

// SetState transitions the client to s.
func (i *Info) SetState(s State) { i.state.Store(int32(s)) }

// SetCancel installs the cancel function for this client's task group,
// called by whichever task (receive or send) returns a fatal error to tear
// down the other (spec §4.8 "one task's fatal error cancels its siblings").
func (i *Info) SetCancel(cancel context.CancelFunc) { i.cancel = cancel }

// Cancel tears down the client's task group, if installed.
func (i *Info) Cancel() {
	if i.cancel != nil {
		i.cancel()
	}
}

// HasVideo/HasAudio report whether the client currently has that stream
// kind active (spec §6.1 STREAM_START/STREAM_STOP).
func (i *Info) HasVideo() bool { return i.Streams&wire.StreamVideo != 0 }
func (i *Info) HasAudio() bool { return i.Streams&wire.StreamAudio != 0 }

// Manager is the server's client table: a mutex-protected map keyed by
// client ID, grounded on the teacher's sfuRoom.peers (map[string]*sfuPeer
// behind a single sync.Mutex, spec-equivalent to every ascii-chat client
// sharing one implicit room).
type Manager struct {
	mu      sync.RWMutex
	clients map[uint32]*Info
	nextID  atomic.Uint32
}

// New builds an empty client table.
func New() *Manager {
	return &Manager{clients: make(map[uint32]*Info)}
}

// Limits bounds the per-client queue/ring capacities (spec §4.3 "hard cap,
// e.g. 100 audio slots, ~30 video slots").
type Limits struct {
	AudioQueueCapacity int
	VideoQueueCapacity int
	AudioRingSize      int
	VideoRingSize      int
}

// DefaultLimits matches the capacities spec §4.3 suggests.
func DefaultLimits() Limits {
	return Limits{AudioQueueCapacity: 100, VideoQueueCapacity: 30, AudioRingSize: 48000, VideoRingSize: 4}
}

// Add registers a newly connected client and returns it with a fresh ID.
func (m *Manager) Add(t transport.Transport, limits Limits) *Info {
	id := m.nextID.Add(1)
	info := &Info{
		ID:            id,
		Transport:     t,
		InboundVideo:  ring.NewVideo(limits.VideoRingSize),
		InboundAudio:  ring.NewAudio(limits.AudioRingSize),
		OutboundAudio: queue.New(limits.AudioQueueCapacity, queue.DropNewest),
		OutboundVideo: queue.New(limits.VideoQueueCapacity, queue.DropOldest),
	}
	info.SetState(StateConnected)
	m.mu.Lock()
	m.clients[id] = info
	m.mu.Unlock()
	return info
}

// Remove deletes a client from the table. It does not close the client's
// transport; callers own that lifecycle step.
func (m *Manager) Remove(id uint32) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.clients, id)
}

// Get returns the client for id, or nil if not present.
func (m *Manager) Get(id uint32) *Info {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.clients[id]
}

// Count returns the number of currently connected clients.
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.clients)
}

// Snapshot returns a stable slice of every connected client, safe to
// iterate without holding the table lock (spec §4.8 "broadcast loop reads
// a snapshot, never the live map").
func (m *Manager) Snapshot() []*Info {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*Info, 0, len(m.clients))
	for _, c := range m.clients {
		out = append(out, c)
	}
	return out
}

// Others returns every client except the one with id, mirroring the
// teacher's "broadcast to every peer but the sender" pattern.
func (m *Manager) Others(id uint32) []*Info {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*Info, 0, len(m.clients))
	for cid, c := range m.clients {
		if cid != id {
			out = append(out, c)
		}
	}
	return out
}
