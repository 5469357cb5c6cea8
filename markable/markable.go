// Package markable provides an atomic pointer coupled to a one-bit mark,
// updated together as a single indivisible unit.
//
// Lock-free linked structures use the mark to signal logical deletion: a
// remover first flips the mark on the victim's outgoing link, which fences
// off concurrent inserts at that node, and only then physically unlinks it.
// Because pointer and mark live in one atomic word, no interleaving can
// observe (or install) half of an update — a concurrent insert can never
// resurrect a node that has already been marked for removal.
//
// The packed representation is a pointer to an unexported immutable
// (pointer, mark) pair. Pair cells are never mutated after publication, and
// the garbage collector keeps a cell alive while any thread still holds it,
// so the single-word identity CAS cannot suffer an ABA on recycled cells.
// Callers never see the packed form; all access goes through Load,
// CompareAndSet and Mark.
//
// The zero value of Pointer is ready to use and holds (nil, false).
package markable

import "sync/atomic"

// pair is one immutable (pointer, mark) state. A nil *pair means the zero
// state (nil, false).
type pair[T any] struct {
	ptr    *T
	marked bool
}

// Pointer is an atomic (pointer, mark) cell.
//
// All mutation goes through CompareAndSet (or Mark); plain overwrites are
// reserved for Store, which is only legal before the cell is shared.
type Pointer[T any] struct {
	v atomic.Pointer[pair[T]]
}

// Load returns the current pointer and mark as one consistent snapshot.
//
//go:nosplit
func (m *Pointer[T]) Load() (ptr *T, marked bool) {
	p := m.v.Load()
	if p == nil {
		return nil, false
	}
	return p.ptr, p.marked
}

// Store unconditionally sets the pointer and mark.
//
// Store is for single-owner initialization, before the enclosing node is
// published to other threads. Once shared, the cell must only be updated
// through CompareAndSet so no update can be lost or observed partially.
func (m *Pointer[T]) Store(ptr *T, marked bool) {
	m.v.Store(&pair[T]{ptr: ptr, marked: marked})
}

// CompareAndSet atomically installs (newPtr, newMark) if the current state
// equals (expPtr, expMark). It reports whether the update took effect.
//
// The comparison and the update cover both fields: a stale expected pointer
// or a stale expected mark fails the operation and leaves the cell
// untouched. Under contention exactly one of several racing calls with the
// same expected state succeeds; the losers observe the winner's state on
// their next Load.
//
// A failure always reflects an intervening update, never a spurious miss.
// The converse does not hold: a cycle of updates that lands back on the
// expected values between the load and the swap replaces the internal pair
// cell, so the operation can fail even though the current values match the
// expected ones. Callers must treat any failure as "reload and retry".
func (m *Pointer[T]) CompareAndSet(expPtr, newPtr *T, expMark, newMark bool) bool {
	cur := m.v.Load()
	curPtr, curMark := unpack(cur)
	if curPtr != expPtr || curMark != expMark {
		return false
	}
	if curPtr == newPtr && curMark == newMark {
		// Expected equals desired: nothing to change. Linearizes at the
		// load above.
		return true
	}
	return m.v.CompareAndSwap(cur, &pair[T]{ptr: newPtr, marked: newMark})
}

// Mark flips only the deletion bit, keeping the pointer: it is equivalent to
// CompareAndSet(expPtr, expPtr, false, true). It fails if the pointer has
// changed or the cell is already marked.
//
// This is the logical-deletion step: callers mark a node's outgoing link
// first, then physically unlink the node with a separate CompareAndSet on
// the predecessor's link.
func (m *Pointer[T]) Mark(expPtr *T) bool {
	return m.CompareAndSet(expPtr, expPtr, false, true)
}

func unpack[T any](p *pair[T]) (*T, bool) {
	if p == nil {
		return nil, false
	}
	return p.ptr, p.marked
}
