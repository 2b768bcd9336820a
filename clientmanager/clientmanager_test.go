package clientmanager

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/zfogg/ascii-chat/wire"
)

type fakeTransport struct {
	in     chan *wire.Packet
	out    chan *wire.Packet
	closed bool
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{in: make(chan *wire.Packet, 16), out: make(chan *wire.Packet, 16)}
}

func (f *fakeTransport) ReadPacket() (*wire.Packet, error) {
	select {
	case p, ok := <-f.in:
		if !ok {
			return nil, wire.ErrClosed
		}
		return p, nil
	case <-time.After(50 * time.Millisecond):
		return nil, wire.ErrTimeout
	}
}

func (f *fakeTransport) WritePacket(p *wire.Packet) error {
	f.out <- p
	return nil
}

func (f *fakeTransport) ProvidesEncryption() bool      { return false }
func (f *fakeTransport) RemoteAddr() string            { return "fake" }
func (f *fakeTransport) SetDeadline(t time.Time) error { return nil }
func (f *fakeTransport) Close() error                  { f.closed = true; return nil }

func TestManagerAddRemoveGet(t *testing.T) {
	m := New()
	ft := newFakeTransport()
	info := m.Add(ft, DefaultLimits())
	require.Equal(t, 1, m.Count())
	require.Equal(t, info, m.Get(info.ID))

	m.Remove(info.ID)
	require.Equal(t, 0, m.Count())
	require.Nil(t, m.Get(info.ID))
}

func TestManagerOthersExcludesSelf(t *testing.T) {
	m := New()
	a := m.Add(newFakeTransport(), DefaultLimits())
	b := m.Add(newFakeTransport(), DefaultLimits())

	others := m.Others(a.ID)
	require.Len(t, others, 1)
	require.Equal(t, b.ID, others[0].ID)
}

func TestDispatchClientJoinSetsNameAndCapabilities(t *testing.T) {
	m := New()
	info := m.Add(newFakeTransport(), DefaultLimits())
	cj := wire.ClientJoin{DisplayName: "Ada", Capabilities: wire.CapVideo}
	p := wire.NewPacket(wire.TypeClientJoin, info.ID, cj.Encode())

	require.NoError(t, dispatch(info, p, testLogger()))
	require.Equal(t, "Ada", info.DisplayName)
	require.Equal(t, wire.CapVideo, info.Capabilities)
	require.Equal(t, StateActive, info.State())
}

func TestDispatchStreamStartStop(t *testing.T) {
	m := New()
	info := m.Add(newFakeTransport(), DefaultLimits())

	startPayload := wire.EncodeStreamKinds(wire.StreamVideo | wire.StreamAudio)
	require.NoError(t, dispatch(info, wire.NewPacket(wire.TypeStreamStart, info.ID, startPayload), testLogger()))
	require.True(t, info.HasVideo())
	require.True(t, info.HasAudio())

	stopPayload := wire.EncodeStreamKinds(wire.StreamAudio)
	require.NoError(t, dispatch(info, wire.NewPacket(wire.TypeStreamStop, info.ID, stopPayload), testLogger()))
	require.True(t, info.HasVideo())
	require.False(t, info.HasAudio())
}

func TestDispatchPingEnqueuesPong(t *testing.T) {
	m := New()
	info := m.Add(newFakeTransport(), DefaultLimits())
	require.NoError(t, dispatch(info, wire.NewPacket(wire.TypePing, info.ID, nil), testLogger()))

	v, ok := info.OutboundVideo.Pop()
	require.True(t, ok)
	p := v.(*wire.Packet)
	require.Equal(t, wire.TypePong, p.Header.Type)
}

func TestDispatchAudioBatchWritesRing(t *testing.T) {
	m := New()
	info := m.Add(newFakeTransport(), DefaultLimits())
	samples := []float32{0.1, 0.2, 0.3}
	p := wire.NewPacket(wire.TypeAudioBatch, info.ID, wire.EncodeAudioBatch(samples))
	require.NoError(t, dispatch(info, p, testLogger()))
	require.Equal(t, 3, info.InboundAudio.Len())
}
