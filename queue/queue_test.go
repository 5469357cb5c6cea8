package queue

import (
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/kolkov/hazard/hazard"
)

// TestQueueFIFO verifies single-threaded ordering through the dummy-node
// dance.
func TestQueueFIFO(t *testing.T) {
	d := hazard.NewDomain(hazard.Config{})
	th := d.Register()
	defer th.Deregister()

	q := New[int]()

	_, ok := q.Dequeue(th)
	require.False(t, ok, "dequeue on empty queue")

	q.Enqueue(th, 8)
	q.Enqueue(th, 7)
	v, ok := q.Dequeue(th)
	require.True(t, ok)
	require.Equal(t, 8, v)
	v, ok = q.Dequeue(th)
	require.True(t, ok)
	require.Equal(t, 7, v)
	_, ok = q.Dequeue(th)
	require.False(t, ok)

	for i := 0; i < 100; i++ {
		q.Enqueue(th, i)
	}
	for i := 0; i < 100; i++ {
		v, ok := q.Dequeue(th)
		require.True(t, ok)
		require.Equal(t, i, v)
	}
	_, ok = q.Dequeue(th)
	require.False(t, ok)
}

// TestQueuePerProducerOrder checks that each producer's values come out in
// the order that producer enqueued them (FIFO is per-producer observable
// even under interleaving).
func TestQueuePerProducerOrder(t *testing.T) {
	const (
		producers   = 4
		consumers   = 4
		perProducer = 5000
	)
	d := hazard.NewDomain(hazard.Config{ScanThreshold: 16})
	q := New[[2]int]() // [producer, sequence]

	var (
		wg       sync.WaitGroup
		consumed atomic.Int64
		mu       sync.Mutex
	)

	for p := 0; p < producers; p++ {
		wg.Add(1)
		go func(p int) {
			defer wg.Done()
			th := d.Register()
			defer th.Deregister()
			for i := 0; i < perProducer; i++ {
				q.Enqueue(th, [2]int{p, i})
			}
		}(p)
	}
	for c := 0; c < consumers; c++ {
		// Each consumer tracks the last sequence it saw per producer.
		last := make([]int, producers)
		for i := range last {
			last[i] = -1
		}
		wg.Add(1)
		go func(last []int) {
			defer wg.Done()
			th := d.Register()
			defer th.Deregister()
			for consumed.Load() < producers*perProducer {
				v, ok := q.Dequeue(th)
				if !ok {
					continue
				}
				consumed.Add(1)
				p, seq := v[0], v[1]
				if seq <= last[p] {
					mu.Lock()
					t.Errorf("producer %d: sequence %d after %d", p, seq, last[p])
					mu.Unlock()
					return
				}
				last[p] = seq
			}
		}(last)
	}
	wg.Wait()

	require.Equal(t, int64(producers*perProducer), consumed.Load())

	th := d.Register()
	_, ok := q.Dequeue(th)
	require.False(t, ok, "queue should be drained")
	th.Deregister()
	d.Reclaim()

	st := d.Stats()
	require.Equal(t, st.Retires, st.Frees, "dummy nodes leaked after drain")
	require.Equal(t, uint64(producers*perProducer), st.Retires, "every dequeue retires one dummy")
}

// TestQueueDummyRetirement verifies dequeues actually route old dummies
// through the reclamation core.
func TestQueueDummyRetirement(t *testing.T) {
	d := hazard.NewDomain(hazard.Config{ScanThreshold: 4})
	th := d.Register()

	q := New[int]()
	for i := 0; i < 10; i++ {
		q.Enqueue(th, i)
	}
	for i := 0; i < 10; i++ {
		q.Dequeue(th)
	}
	th.Deregister()
	d.Reclaim()

	st := d.Stats()
	require.Equal(t, uint64(10), st.Retires)
	require.Equal(t, uint64(10), st.Frees)
}

func BenchmarkQueueEnqueueDequeue(b *testing.B) {
	d := hazard.NewDomain(hazard.Config{})
	q := New[int]()

	b.RunParallel(func(pb *testing.PB) {
		th := d.Register()
		defer th.Deregister()
		for pb.Next() {
			q.Enqueue(th, 1)
			q.Dequeue(th)
		}
	})
}
