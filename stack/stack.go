// Package stack implements a lock-free LIFO stack (Treiber) with an
// elimination layer.
//
// Pushes and pops contend on a single head pointer with CAS retry. Under
// contention a failed CAS falls back to the elimination layer: a push and a
// pop that meet on an exchanger slot cancel each other out without ever
// touching the head, which turns contention into throughput instead of
// retries.
//
// Popped nodes are retired through a hazard.Thread and returned to an
// internal pool once no traversal can still hold them, so node memory is
// reused without use-after-free.
package stack

import (
	"sync"
	"sync/atomic"
	"unsafe"

	"github.com/kolkov/hazard/hazard"
)

// node is one stack cell. next is written only before the node is
// published by the head CAS, and read only under hazard protection.
type node[T any] struct {
	value T
	next  *node[T]
}

// Stack is a lock-free LIFO stack. Create with New; the zero value is not
// usable. All methods take the calling goroutine's hazard.Thread.
type Stack[T any] struct {
	head atomic.Pointer[node[T]]
	elim elimination[T]
	pool sync.Pool
}

// New creates an empty stack.
func New[T any]() *Stack[T] {
	s := &Stack[T]{}
	s.pool.New = func() any { return new(node[T]) }
	return s
}

// Push adds v to the top of the stack.
//
// The fast path is a single CAS on the head. On a lost race, Push offers v
// to a concurrent Pop through the elimination layer before retrying; an
// eliminated push never touches the head at all.
func (s *Stack[T]) Push(t *hazard.Thread, v T) {
	n := s.pool.Get().(*node[T])
	n.value = v
	for {
		h := s.head.Load()
		n.next = h
		if s.head.CompareAndSwap(h, n) {
			return
		}
		if _, ok := s.elim.visit(v, opPush); ok {
			// Value handed directly to a popper; the node was never
			// published, so it goes straight back to the pool.
			s.release(n)
			return
		}
	}
}

// Pop removes and returns the top value. The second result is false if the
// stack was empty.
//
// Pop protects the head node in hazard slot 0 before reading its next
// link, re-validating reachability after the publish. On a successful head
// swing the old node is retired; its memory returns to the pool once no
// other thread protects it.
func (s *Stack[T]) Pop(t *hazard.Thread) (T, bool) {
	var zero T
	for {
		h := s.head.Load()
		if h == nil {
			t.Clear(0)
			return zero, false
		}
		t.Protect(0, unsafe.Pointer(h))
		if s.head.Load() != h {
			// Unlinked between load and publish; the protection may be
			// stale, start over.
			continue
		}
		next := h.next
		if s.head.CompareAndSwap(h, next) {
			v := h.value
			t.Clear(0)
			t.Retire(unsafe.Pointer(h), func() { s.release(h) })
			return v, true
		}
		if v, ok := s.elim.visit(zero, opPop); ok {
			t.Clear(0)
			return v, true
		}
	}
}

// release resets a node and returns it to the pool. Only called for nodes
// that are unpublished or whose retirement has cleared reclamation.
func (s *Stack[T]) release(n *node[T]) {
	var zero T
	n.value = zero
	n.next = nil
	s.pool.Put(n)
}
