package queue

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPushPopFIFO(t *testing.T) {
	q := New(4, DropNewest)
	require.True(t, q.Push(1))
	require.True(t, q.Push(2))
	require.True(t, q.Push(3))

	v, ok := q.Pop()
	require.True(t, ok)
	require.Equal(t, 1, v)
	v, ok = q.Pop()
	require.True(t, ok)
	require.Equal(t, 2, v)
}

func TestPopEmpty(t *testing.T) {
	q := New(4, DropNewest)
	_, ok := q.Pop()
	require.False(t, ok)
}

func TestDropNewestPolicy(t *testing.T) {
	q := New(2, DropNewest)
	require.True(t, q.Push(1))
	require.True(t, q.Push(2))
	require.False(t, q.Push(3))
	require.Equal(t, int64(1), q.Dropped())

	v, _ := q.Pop()
	require.Equal(t, 1, v)
	v, _ = q.Pop()
	require.Equal(t, 2, v)
}

func TestDropOldestPolicy(t *testing.T) {
	q := New(2, DropOldest)
	require.True(t, q.Push(1))
	require.True(t, q.Push(2))
	require.True(t, q.Push(3))
	require.Equal(t, int64(1), q.Dropped())
	require.Equal(t, int64(2), q.Len())

	v, _ := q.Pop()
	require.Equal(t, 2, v)
	v, _ = q.Pop()
	require.Equal(t, 3, v)
}

func TestConcurrentProducersSingleConsumer(t *testing.T) {
	q := New(1000, DropOldest)
	var wg sync.WaitGroup
	for p := 0; p < 8; p++ {
		wg.Add(1)
		go func(p int) {
			defer wg.Done()
			for i := 0; i < 100; i++ {
				q.Push(p*100 + i)
			}
		}(p)
	}
	wg.Wait()

	count := 0
	for {
		_, ok := q.Pop()
		if !ok {
			break
		}
		count++
	}
	require.Equal(t, int(q.Dropped())+count, 800)
	require.Equal(t, int64(0), q.Len())
}

// TestConcurrentProducersDropOldestPastCapacity pushes far more items than
// capacity from multiple goroutines under DropOldest, so every producer
// repeatedly hits the eviction path in Push concurrently with the others —
// the scenario broadcast.Loop.tick() and clientmanager's per-client receive
// goroutine create on a client's shared OutboundVideo queue. It must
// neither corrupt the list (lost/aliased nodes) nor race with a concurrent
// consumer Pop.
func TestConcurrentProducersDropOldestPastCapacity(t *testing.T) {
	const capacity = 4
	const producers = 8
	const perProducer = 200
	q := New(capacity, DropOldest)

	var wg sync.WaitGroup
	for p := 0; p < producers; p++ {
		wg.Add(1)
		go func(p int) {
			defer wg.Done()
			for i := 0; i < perProducer; i++ {
				q.Push(p*perProducer + i)
			}
		}(p)
	}

	done := make(chan struct{})
	poppedCh := make(chan int)
	go func() {
		n := 0
		for {
			select {
			case <-done:
				poppedCh <- n
				return
			default:
			}
			if _, ok := q.Pop(); ok {
				n++
			}
		}
	}()

	wg.Wait()
	close(done)
	popped := <-poppedCh

	for {
		if _, ok := q.Pop(); ok {
			popped++
		} else {
			break
		}
	}

	require.Equal(t, producers*perProducer, popped+int(q.Dropped()))
	require.Equal(t, int64(0), q.Len())
	require.LessOrEqual(t, q.Len(), int64(capacity))
}
