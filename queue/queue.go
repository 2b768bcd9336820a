// Package queue implements the bounded, lock-free multi-producer
// single-consumer packet queue that holds a client's outbound packets
// between their producers (the broadcast loop, the audio loop and the
// client's receive task) and that client's send task (spec §3.3, §4.3).
// Each client owns two queues, and overflow policy is per queue: the audio
// queue drops the newest arrival (a late sample is nearly worthless, spec
// §7.2), the video queue, which also carries control packets, drops the
// oldest queued entry so the freshest frame always has room.
package queue

import (
	"sync/atomic"
)

// Policy selects the overflow behavior once the queue is full.
type Policy int

const (
	// DropNewest rejects the incoming item, leaving the queue unchanged.
	DropNewest Policy = iota
	// DropOldest evicts the head to make room for the incoming item.
	DropOldest
)

type node struct {
	value any
	next  atomic.Pointer[node]
}

// Queue is a bounded lock-free queue built as a Michael-Scott linked list
// with a separate atomic length counter enforcing capacity. Multiple
// goroutines may call Push concurrently, and the head is CAS-based so pop
// is also safe to call concurrently with itself and with Pop — DropOldest
// eviction runs inline inside Push on whichever producer goroutine hits a
// full queue, not just the designated consumer.
type Queue struct {
	head     atomic.Pointer[node]
	tail     atomic.Pointer[node]
	length   atomic.Int64
	capacity int64
	policy   Policy

	dropped atomic.Int64
}

// New builds a queue bounded at capacity with the given overflow policy.
func New(capacity int, policy Policy) *Queue {
	sentinel := &node{}
	q := &Queue{capacity: int64(capacity), policy: policy}
	q.head.Store(sentinel)
	q.tail.Store(sentinel)
	return q
}

// Push enqueues value. Under DropNewest, Push silently discards value (and
// returns false) once the queue is at capacity. Under DropOldest, Push pops
// and discards the oldest entry to make room, then always succeeds.
func (q *Queue) Push(value any) bool {
	for {
		n := q.length.Load()
		if n >= q.capacity {
			if q.policy == DropNewest {
				q.dropped.Add(1)
				return false
			}
			if _, ok := q.pop(); ok {
				q.dropped.Add(1)
				q.length.Add(-1)
			}
		}
		if q.tryPush(value) {
			q.length.Add(1)
			return true
		}
	}
}

func (q *Queue) tryPush(value any) bool {
	newNode := &node{value: value}
	for {
		tail := q.tail.Load()
		next := tail.next.Load()
		if next == nil {
			if tail.next.CompareAndSwap(nil, newNode) {
				q.tail.CompareAndSwap(tail, newNode)
				return true
			}
		} else {
			q.tail.CompareAndSwap(tail, next)
		}
	}
}

// Pop dequeues the oldest item, or returns (nil, false) if empty. Safe to
// call from the consuming send task concurrently with Push's DropOldest
// eviction path on other goroutines.
func (q *Queue) Pop() (any, bool) {
	v, ok := q.pop()
	if ok {
		q.length.Add(-1)
	}
	return v, ok
}

// pop is the CAS-based dequeue shared by Pop and Push's eviction path, so
// it is safe under multiple concurrent callers: only the goroutine whose
// CompareAndSwap succeeds claims a given node, and losers retry against
// the new head.
func (q *Queue) pop() (any, bool) {
	for {
		head := q.head.Load()
		next := head.next.Load()
		if next == nil {
			return nil, false
		}
		if q.head.CompareAndSwap(head, next) {
			v := next.value
			next.value = nil
			return v, true
		}
	}
}

// Len reports the current number of queued items.
func (q *Queue) Len() int64 {
	return q.length.Load()
}

// Dropped reports the cumulative number of items discarded by overflow.
func (q *Queue) Dropped() int64 {
	return q.dropped.Load()
}
