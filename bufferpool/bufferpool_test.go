package bufferpool

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAcquireReleaseRoundTrip(t *testing.T) {
	p := New(0)
	b := p.Acquire(512)
	require.Len(t, b.Bytes(), 512)
	p.Release(b)

	stats := p.Stats()
	require.Equal(t, int64(1), stats.NewAllocs)
	require.Equal(t, int64(1), stats.Returns)
}

func TestAcquireReusesFreedBuffer(t *testing.T) {
	p := New(0)
	b1 := p.Acquire(100)
	p.Release(b1)

	b2 := p.Acquire(100)
	stats := p.Stats()
	require.Equal(t, int64(1), stats.NewAllocs)
	require.Equal(t, int64(1), stats.Hits)
	p.Release(b2)
}

func TestAcquireZero(t *testing.T) {
	p := New(0)
	b := p.Acquire(0)
	require.Len(t, b.Bytes(), 0)
	p.Release(b)
}

func TestAcquireAboveMaxBypasses(t *testing.T) {
	p := New(1024)
	b := p.Acquire(4096)
	require.Len(t, b.Bytes(), 4096)
	p.Release(b)
	require.Equal(t, int64(1), p.Stats().Bypasses)
}

func TestDoubleReleasePanics(t *testing.T) {
	p := New(0)
	b := p.Acquire(64)
	p.Release(b)
	require.Panics(t, func() { p.Release(b) })
}

func TestReleaseToForeignPoolPanics(t *testing.T) {
	p1 := New(0)
	p2 := New(0)
	b := p1.Acquire(64)
	require.Panics(t, func() { p2.Release(b) })
}

func TestConcurrentAcquireRelease(t *testing.T) {
	p := New(0)
	var wg sync.WaitGroup
	for i := 0; i < 64; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				b := p.Acquire(1024)
				b.Bytes()[0] = 1
				p.Release(b)
			}
		}()
	}
	wg.Wait()
	require.Equal(t, int64(0), p.Stats().BytesInUse)
}

func TestShrinkTrimsFreeList(t *testing.T) {
	p := New(0)
	bufs := make([]Buffer, 10)
	for i := range bufs {
		bufs[i] = p.Acquire(256)
	}
	for _, b := range bufs {
		p.Release(b)
	}
	p.Shrink(2)
	// Can't directly observe idle count, but a subsequent burst of acquires
	// should still succeed without panicking after shrink trims the list.
	b := p.Acquire(256)
	p.Release(b)
}
