// Package bufferpool implements the lock-free, size-classed byte buffer
// pool described in spec §3.2/§4.2: a CAS free-list per size class, with
// bypass allocation on exhaustion and a periodic shrink policy serialized
// against itself but concurrent with acquire/release.
package bufferpool

import (
	"sync"
	"sync/atomic"
)

const (
	minClassSize = 256
	// maxClassSize bounds the largest size class the pool manages; requests
	// larger than this always bypass the pool (spec §4.2 "bounded above by
	// a configured maximum").
	maxClassSize = 32 * 1024 * 1024
	canaryFresh  = 0xACC1AC1D
	canaryFreed  = 0xDEADBEEF
)

// buffer is a pooled allocation. Buf is the usable slice (len == requested
// size, cap == class size); class and owner are used by release to push
// back onto the correct free-list and to catch cross-pool returns.
type buffer struct {
	Buf     []byte
	class   int
	owner   *Pool
	canary  uint32
	next    atomic.Pointer[buffer]
	bypass  bool
}

// Buffer is the handle callers hold between acquire and release. It wraps
// the internal buffer so the pool's free-list node isn't exposed directly.
type Buffer struct {
	b *buffer
}

// Bytes returns the usable byte slice (length == the size requested at
// acquire time).
func (h Buffer) Bytes() []byte {
	if h.b == nil {
		return nil
	}
	return h.b.Buf
}

// Stats mirrors the atomic counters of spec §4.2.
type Stats struct {
	BytesInUse int64
	PeakBytes  int64
	Hits       int64
	NewAllocs  int64
	Returns    int64
	Bypasses   int64
}

type class struct {
	size int
	head atomic.Pointer[buffer]
	// idle is an approximate count of buffers currently sitting on the
	// free-list, used by shrink to decide what to trim. It need not be
	// perfectly exact (CAS losers retry, so it may transiently drift) but
	// is close enough for a background policy.
	idle atomic.Int64
}

// Pool is a lock-free size-classed buffer pool.
type Pool struct {
	classes   []*class
	maxClass  int
	shrinkMu  sync.Mutex // serializes shrink against itself only
	bytesInUse atomic.Int64
	peakBytes  atomic.Int64
	hits       atomic.Int64
	newAllocs  atomic.Int64
	returns    atomic.Int64
	bypasses   atomic.Int64
}

// New builds a pool with power-of-two size classes from minClassSize up to
// maxClassSize (or the caller-provided ceiling rounded up to a power of two,
// whichever is smaller).
func New(maxSize int) *Pool {
	if maxSize <= 0 || maxSize > maxClassSize {
		maxSize = maxClassSize
	}
	maxSize = classFor(maxSize)
	p := &Pool{}
	for sz := minClassSize; sz <= maxSize; sz *= 2 {
		p.classes = append(p.classes, &class{size: sz})
	}
	p.maxClass = maxSize
	return p
}

func classFor(n int) int {
	if n <= minClassSize {
		return minClassSize
	}
	sz := minClassSize
	for sz < n {
		sz *= 2
	}
	return sz
}

func (p *Pool) classIndex(size int) int {
	for i, c := range p.classes {
		if c.size == size {
			return i
		}
	}
	return -1
}

// Acquire returns a buffer with capacity >= n. n == 0 returns a valid
// zero-length handle (spec §8 boundary behavior). Requests above the
// pool's maximum class bypass the pool entirely: a plain heap allocation
// is returned and counted, and the matching Release transparently frees it.
func (p *Pool) Acquire(n int) Buffer {
	if n < 0 {
		n = 0
	}
	if n > p.maxClass {
		p.bypasses.Add(1)
		b := &buffer{Buf: make([]byte, n), canary: canaryFresh, bypass: true, owner: p}
		p.trackAcquire(int64(n))
		return Buffer{b: b}
	}
	size := classFor(n)
	idx := p.classIndex(size)
	if idx < 0 {
		// Shouldn't happen given classFor's range, but bypass defensively
		// rather than index out of range.
		p.bypasses.Add(1)
		b := &buffer{Buf: make([]byte, n), canary: canaryFresh, bypass: true, owner: p}
		p.trackAcquire(int64(n))
		return Buffer{b: b}
	}
	c := p.classes[idx]
	for {
		head := c.head.Load()
		if head == nil {
			b := &buffer{Buf: make([]byte, n, size), class: idx, canary: canaryFresh, owner: p}
			p.newAllocs.Add(1)
			p.trackAcquire(int64(size))
			return Buffer{b: b}
		}
		next := head.next.Load()
		if c.head.CompareAndSwap(head, next) {
			if head.canary != canaryFreed {
				panic("bufferpool: double-acquire or corrupted free-list entry")
			}
			head.canary = canaryFresh
			head.Buf = head.Buf[:n]
			head.next.Store(nil)
			c.idle.Add(-1)
			p.hits.Add(1)
			p.trackAcquire(int64(size))
			return Buffer{b: head}
		}
		// CAS lost to a concurrent popper; retry.
	}
}

func (p *Pool) trackAcquire(size int64) {
	inUse := p.bytesInUse.Add(size)
	for {
		peak := p.peakBytes.Load()
		if inUse <= peak || p.peakBytes.CompareAndSwap(peak, inUse) {
			return
		}
	}
}

// Release returns buf to its owning pool's free-list. It is a programming
// error to release a buffer to a pool other than the one that produced it,
// or to release the same buffer twice; both are caught by the canary and
// panic rather than silently corrupting the free-list.
func (p *Pool) Release(h Buffer) {
	b := h.b
	if b == nil {
		return
	}
	if b.owner != p {
		panic("bufferpool: buffer released to a pool that did not allocate it")
	}
	if b.canary == canaryFreed {
		panic("bufferpool: double-free detected")
	}
	p.bytesInUse.Add(-int64(cap(b.Buf)))
	p.returns.Add(1)
	if b.bypass {
		b.canary = canaryFreed
		return
	}
	b.canary = canaryFreed
	c := p.classes[b.class]
	for {
		head := c.head.Load()
		b.next.Store(head)
		if c.head.CompareAndSwap(head, b) {
			c.idle.Add(1)
			return
		}
	}
}

// Stats returns a point-in-time snapshot of the pool's atomic counters.
func (p *Pool) Stats() Stats {
	return Stats{
		BytesInUse: p.bytesInUse.Load(),
		PeakBytes:  p.peakBytes.Load(),
		Hits:       p.hits.Load(),
		NewAllocs:  p.newAllocs.Load(),
		Returns:    p.returns.Load(),
		Bypasses:   p.bypasses.Load(),
	}
}

// Shrink examines each class's idle count and frees buffers beyond
// highWater, one CAS-pop at a time. It holds only the shrink-only mutex, so
// it never blocks acquire/release (those retry on CAS loss, which shrink
// participating in the same free-list can cause, but never deadlocks).
func (p *Pool) Shrink(highWater int) {
	p.shrinkMu.Lock()
	defer p.shrinkMu.Unlock()
	for _, c := range p.classes {
		for c.idle.Load() > int64(highWater) {
			head := c.head.Load()
			if head == nil {
				break
			}
			next := head.next.Load()
			if c.head.CompareAndSwap(head, next) {
				c.idle.Add(-1)
				// head is now fully detached and not returned to the
				// caller — it is simply dropped, letting the GC reclaim it.
			}
		}
	}
}
