// Package slot implements the process-wide hazard slot table.
//
// The table is the single piece of shared state in the reclamation
// subsystem: every registered thread owns one or more slots, publishes the
// address it is about to dereference into them, and every reclaim pass reads
// all slots to decide which retired nodes are still protected.
//
// Architecture:
//   - Append-only chain of fixed-size segments (64 slots each)
//   - Growth via a single CompareAndSwap on the chain's next link
//   - Segments are never relocated or freed, so a *Slot handed to a thread
//     stays valid for the lifetime of the table
//   - Each slot is cache-line padded to avoid false sharing between the
//     publish stores of neighboring threads
//
// Ownership discipline: a slot is written only by the thread that acquired
// it (Publish/Clear) and read by any thread running a scan. Acquire and
// Release hand ownership over with a CAS on the active flag, so no two
// threads ever own the same slot concurrently.
//
// Thread Safety: all operations are lock-free and safe for concurrent use.
package slot

import (
	"sync/atomic"
	"unsafe"
)

// SegmentSize is the number of slots added by one table growth step.
//
// 64 slots per segment keeps growth rare (a segment covers 32 threads at the
// default two slots per thread) while keeping scan cost proportional to the
// number of threads actually seen, not to a preallocated maximum.
const SegmentSize = 64

// Slot is a single hazard publish cell.
//
// Layout (64 bytes, one cache line):
//   - addr:   published address, 0 when empty (8 bytes)
//   - owner:  ID of the owning thread, diagnostic only (8 bytes)
//   - active: true while a thread owns the slot (1 byte + alignment)
//   - padding to 64 bytes
//
// The addr store is the correctness-critical operation of the subsystem: it
// uses a sequentially consistent atomic store, so a scan that begins after
// Publish returns is guaranteed to observe the address.
type Slot struct {
	addr   atomic.Uintptr // Published address; 0 means none.
	owner  atomic.Uint64  // Owning thread ID, for diagnostics.
	active atomic.Bool    // True while owned by a thread.
	_      [40]byte       // Pad to 64 bytes (cache line).
}

// Publish announces that the owning thread is about to dereference p.
//
// Must only be called by the slot's owner. The store is sequentially
// consistent: any Scan starting after Publish returns observes p.
//
//go:nosplit
func (s *Slot) Publish(p unsafe.Pointer) {
	s.addr.Store(uintptr(p))
}

// Clear withdraws the slot's published address.
//
// Must only be called by the slot's owner. After Clear returns, a
// subsequent scan no longer counts the previous address as protected.
//
//go:nosplit
func (s *Slot) Clear() {
	s.addr.Store(0)
}

// Owner returns the ID of the thread that currently owns the slot.
// Diagnostic only; the value is meaningless once the slot is released.
func (s *Slot) Owner() uint64 {
	return s.owner.Load()
}

// segment is one fixed-size block of the append-only slot arena.
type segment struct {
	slots [SegmentSize]Slot
	next  atomic.Pointer[segment]
}

// Table is the process-wide collection of hazard slots.
//
// The zero value is not usable; create tables with NewTable. A table grows
// but never shrinks: released slots return to a free pool (the inactive
// slots of existing segments) and are handed out again by Acquire.
type Table struct {
	// head is the first segment, allocated at table creation.
	// The chain is reachable only by walking next links from here.
	head *segment

	// tail caches the last known segment so growth does not rescan the
	// chain from the start. It is a hint: stale values are corrected by
	// following next links.
	tail atomic.Pointer[segment]

	// segments counts chain length, so Len is O(1).
	segments atomic.Int64
}

// NewTable creates a slot table with one initial segment.
func NewTable() *Table {
	t := &Table{head: &segment{}}
	t.tail.Store(t.head)
	t.segments.Store(1)
	return t
}

// Acquire claims a free slot for the given owner and returns it.
//
// Never blocks: if every slot in the table is active, Acquire appends a new
// segment with a bounded CAS retry (a failed CAS means another thread grew
// the table, and its fresh segment serves this call too).
//
// The returned slot is empty (no published address) and owned by owner
// until Release is called.
func (t *Table) Acquire(owner uint64) *Slot {
	for seg := t.head; ; {
		for i := range seg.slots {
			s := &seg.slots[i]
			if s.active.Load() {
				continue
			}
			if s.active.CompareAndSwap(false, true) {
				s.owner.Store(owner)
				return s
			}
		}
		next := seg.next.Load()
		if next == nil {
			next = t.grow(seg)
		}
		seg = next
	}
}

// grow appends a fresh segment after seg and returns the successor to keep
// walking from. Exactly one of the racing growers installs its segment; the
// losers adopt the winner's.
func (t *Table) grow(seg *segment) *segment {
	fresh := &segment{}
	if seg.next.CompareAndSwap(nil, fresh) {
		t.segments.Add(1)
		t.tail.Store(fresh)
		return fresh
	}
	// Lost the race: someone else extended the chain.
	return seg.next.Load()
}

// Release returns a slot to the free pool.
//
// The slot is cleared before deactivation so a concurrent scan never counts
// an abandoned address as protected. Must only be called by the owner, once.
func (t *Table) Release(s *Slot) {
	s.Clear()
	s.owner.Store(0)
	s.active.Store(false)
}

// Scan reads every slot and records each non-zero published address into
// out. Slots are read independently with one atomic load each; the snapshot
// is not required to be instantaneously consistent across slots.
//
// Inactive slots are read too: a slot mid-release is either still holding
// its address (counted, conservatively safe) or already cleared.
func (t *Table) Scan(out map[uintptr]struct{}) {
	for seg := t.head; seg != nil; seg = seg.next.Load() {
		for i := range seg.slots {
			if a := seg.slots[i].addr.Load(); a != 0 {
				out[a] = struct{}{}
			}
		}
	}
}

// Len returns the total number of slots in the table (active or not).
func (t *Table) Len() int {
	return int(t.segments.Load()) * SegmentSize
}

// Active returns the number of currently owned slots. O(n); diagnostics and
// tests only.
func (t *Table) Active() int {
	n := 0
	for seg := t.head; seg != nil; seg = seg.next.Load() {
		for i := range seg.slots {
			if seg.slots[i].active.Load() {
				n++
			}
		}
	}
	return n
}
