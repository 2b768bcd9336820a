package ring

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAudioWriteReadRoundTrip(t *testing.T) {
	r := NewAudio(8)
	r.Write([]float32{1, 2, 3})
	out := make([]float32, 3)
	n := r.Read(out)
	require.Equal(t, 3, n)
	require.Equal(t, []float32{1, 2, 3}, out)
}

func TestAudioDropsNewestOnOverflow(t *testing.T) {
	r := NewAudio(4)
	r.Write([]float32{1, 2, 3, 4, 5, 6})
	out := make([]float32, 4)
	n := r.Read(out)
	require.Equal(t, 4, n)
	require.Equal(t, []float32{1, 2, 3, 4}, out)
}

func TestAudioReadEmpty(t *testing.T) {
	r := NewAudio(4)
	out := make([]float32, 4)
	n := r.Read(out)
	require.Equal(t, 0, n)
}

func TestAudioPartialRead(t *testing.T) {
	r := NewAudio(8)
	r.Write([]float32{1, 2})
	out := make([]float32, 5)
	n := r.Read(out)
	require.Equal(t, 2, n)
	require.Equal(t, int(0), r.Len())
}

func TestVideoPushPopRoundTrip(t *testing.T) {
	r := NewVideo(2)
	r.Push([]byte("frame1"))
	f, ok := r.Pop()
	require.True(t, ok)
	require.Equal(t, []byte("frame1"), f)
}

func TestVideoDropsOldestOnOverflow(t *testing.T) {
	r := NewVideo(2)
	r.Push([]byte("a"))
	r.Push([]byte("b"))
	r.Push([]byte("c"))
	require.Equal(t, 2, r.Len())
	f, ok := r.Pop()
	require.True(t, ok)
	require.Equal(t, []byte("b"), f)
	f, ok = r.Pop()
	require.True(t, ok)
	require.Equal(t, []byte("c"), f)
}

func TestVideoPopEmpty(t *testing.T) {
	r := NewVideo(2)
	_, ok := r.Pop()
	require.False(t, ok)
}

func TestVideoLatestSkipsBacklog(t *testing.T) {
	r := NewVideo(4)
	r.Push([]byte("a"))
	r.Push([]byte("b"))
	r.Push([]byte("c"))
	require.Equal(t, 3, r.Len())

	f, ok := r.Latest()
	require.True(t, ok)
	require.Equal(t, []byte("c"), f)
	require.Equal(t, 0, r.Len())

	_, ok = r.Latest()
	require.False(t, ok)
}

func TestVideoLatestEmpty(t *testing.T) {
	r := NewVideo(2)
	_, ok := r.Latest()
	require.False(t, ok)
}
