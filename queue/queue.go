// Package queue implements a lock-free FIFO queue (Michael-Scott) with
// exponential backoff.
//
// The queue keeps a dummy head node: head always points at the node before
// the first value, and dequeue swings head forward, retiring the old dummy.
// Enqueue links at the tail and helps a lagging tail pointer catch up, so
// no operation ever waits on another thread's progress.
//
// Dequeuers protect the head node and its successor in hazard slots 0 and
// 1 before dereferencing them; enqueuers protect the tail in slot 0.
// Retired dummies return to an internal pool once unprotected.
package queue

import (
	"sync"
	"sync/atomic"
	"unsafe"

	"github.com/kolkov/hazard/hazard"
	"github.com/kolkov/hazard/internal/hazard/backoff"
)

// node is one queue cell. The first node is a value-less dummy.
type node[T any] struct {
	next  atomic.Pointer[node[T]]
	value T
}

// Queue is a lock-free FIFO queue. Create with New; the zero value is not
// usable. Dequeue requires a Thread with at least two hazard slots.
type Queue[T any] struct {
	head atomic.Pointer[node[T]]
	tail atomic.Pointer[node[T]]
	pool sync.Pool
}

// New creates an empty queue with its initial dummy node.
func New[T any]() *Queue[T] {
	q := &Queue[T]{}
	q.pool.New = func() any { return new(node[T]) }
	dummy := q.pool.Get().(*node[T])
	q.head.Store(dummy)
	q.tail.Store(dummy)
	return q
}

// Enqueue appends v at the tail.
func (q *Queue[T]) Enqueue(t *hazard.Thread, v T) {
	n := q.pool.Get().(*node[T])
	n.value = v
	var bo backoff.Backoff
	for {
		tail := q.tail.Load()
		t.Protect(0, unsafe.Pointer(tail))
		// Tail still consistent? Required for the protection to count.
		if q.tail.Load() != tail {
			continue
		}
		next := tail.next.Load()
		if q.tail.Load() != tail {
			continue
		}
		if next != nil {
			// Tail is lagging behind the real end; help it catch up.
			q.tail.CompareAndSwap(tail, next)
			continue
		}
		if tail.next.CompareAndSwap(nil, n) {
			// Linked. Swinging tail is best effort: a failed CAS means
			// someone already helped.
			q.tail.CompareAndSwap(tail, n)
			t.Clear(0)
			return
		}
		bo.Wait()
	}
}

// Dequeue removes and returns the oldest value. The second result is false
// if the queue was empty.
func (q *Queue[T]) Dequeue(t *hazard.Thread) (T, bool) {
	var zero T
	var bo backoff.Backoff
	for {
		head := q.head.Load()
		t.Protect(0, unsafe.Pointer(head))
		if q.head.Load() != head {
			continue
		}
		tail := q.tail.Load()
		next := head.next.Load()
		t.Protect(1, unsafe.Pointer(next))
		if q.head.Load() != head {
			continue
		}
		if next == nil {
			t.Clear(0)
			t.Clear(1)
			return zero, false
		}
		if head == tail {
			// Non-empty but head == tail: the tail is falling behind.
			q.tail.CompareAndSwap(tail, next)
			continue
		}
		v := next.value
		if q.head.CompareAndSwap(head, next) {
			// next is the new dummy; the old one is unreachable and can
			// be retired.
			t.Clear(0)
			t.Clear(1)
			t.Retire(unsafe.Pointer(head), func() { q.release(head) })
			return v, true
		}
		bo.Wait()
	}
}

// release resets a retired dummy and returns it to the pool.
func (q *Queue[T]) release(n *node[T]) {
	var zero T
	n.value = zero
	n.next.Store(nil)
	q.pool.Put(n)
}
