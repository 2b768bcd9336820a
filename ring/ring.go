// Package ring implements the single-producer/single-consumer ring buffers
// used for inter-goroutine audio and video handoff (spec §3.4). Both are
// power-of-two-sized, use atomic head/tail indices with masking instead of
// modulo, and never block: a full write drops the samples that do not fit
// (audio) or the oldest unread frame (video), matching the channel-free,
// allocation-free path the receive task and broadcast loops run on.
package ring

import "sync/atomic"

func nextPow2(n int) int {
	if n <= 1 {
		return 1
	}
	p := 1
	for p < n {
		p *= 2
	}
	return p
}

// Audio is an SPSC ring of float32 samples. Writer overruns drop the newest
// samples (the ones that do not fit) rather than block or overwrite unread
// data, so buffered audio stays continuous and the mixer never stalls
// (spec §7.2).
type Audio struct {
	buf  []float32
	mask uint64
	head atomic.Uint64 // next read index (consumer-owned)
	tail atomic.Uint64 // next write index (producer-owned)
}

// NewAudio builds an audio ring with capacity rounded up to a power of two.
func NewAudio(capacity int) *Audio {
	n := nextPow2(capacity)
	return &Audio{buf: make([]float32, n), mask: uint64(n - 1)}
}

// Write appends as many samples as fit in the free space and drops the rest
// (the newest). It never blocks and never overwrites unread data.
func (r *Audio) Write(samples []float32) {
	tail := r.tail.Load()
	head := r.head.Load()
	free := uint64(len(r.buf)) - (tail - head)
	if uint64(len(samples)) > free {
		samples = samples[:free]
	}
	for _, s := range samples {
		r.buf[tail&r.mask] = s
		tail++
	}
	r.tail.Store(tail)
}

// Read drains up to len(out) available samples, returning how many were
// copied. It never blocks; a short read means the ring is empty.
func (r *Audio) Read(out []float32) int {
	head := r.head.Load()
	tail := r.tail.Load()
	avail := tail - head
	n := uint64(len(out))
	if n > avail {
		n = avail
	}
	for i := uint64(0); i < n; i++ {
		out[i] = r.buf[(head+i)&r.mask]
	}
	r.head.Store(head + n)
	return int(n)
}

// Len reports the number of unread samples currently buffered.
func (r *Audio) Len() int {
	return int(r.tail.Load() - r.head.Load())
}

// Video is an SPSC ring of opaque frame payloads (already-encoded ASCII or
// raw image bytes). Capacity is intentionally small (spec recommends 2-3):
// a full ring drops the oldest unread frame, since stale video is useless
// once a fresher frame exists (spec §3.4, §7.3 "drop-oldest").
type Video struct {
	slots []([]byte)
	mask  uint64
	head  atomic.Uint64
	tail  atomic.Uint64
}

// NewVideo builds a video ring with capacity rounded up to a power of two.
func NewVideo(capacity int) *Video {
	n := nextPow2(capacity)
	return &Video{slots: make([][]byte, n), mask: uint64(n - 1)}
}

// Push stores frame, dropping the oldest unread frame if the ring is full.
func (r *Video) Push(frame []byte) {
	tail := r.tail.Load()
	head := r.head.Load()
	n := uint64(len(r.slots))
	if tail-head >= n {
		head++
		r.head.Store(head)
	}
	r.slots[tail&r.mask] = frame
	r.tail.Store(tail + 1)
}

// Pop returns the oldest unread frame and true, or (nil, false) if empty.
func (r *Video) Pop() ([]byte, bool) {
	head := r.head.Load()
	tail := r.tail.Load()
	if head == tail {
		return nil, false
	}
	frame := r.slots[head&r.mask]
	r.slots[head&r.mask] = nil
	r.head.Store(head + 1)
	return frame, true
}

// Latest returns the most recently pushed frame, discarding every older
// buffered frame in the same call, or (nil, false) if the ring is empty.
// The broadcast tick uses this instead of Pop so a slow tick skips straight
// to the newest frame rather than working through a growing backlog (spec
// §4.7 step 1 "peek the latest frame ... consume to avoid backlog").
func (r *Video) Latest() ([]byte, bool) {
	head := r.head.Load()
	tail := r.tail.Load()
	if head == tail {
		return nil, false
	}
	newest := tail - 1
	frame := r.slots[newest&r.mask]
	for i := head; i <= newest; i++ {
		r.slots[i&r.mask] = nil
	}
	r.head.Store(tail)
	return frame, true
}

// Len reports the number of unread frames currently buffered.
func (r *Video) Len() int {
	return int(r.tail.Load() - r.head.Load())
}
