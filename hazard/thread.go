package hazard

import (
	"unsafe"

	"github.com/kolkov/hazard/internal/hazard/slot"
)

// Thread is a per-goroutine handle over owned hazard slots and a private
// retire list.
//
// A Thread is exclusively owned: only the goroutine that called Register
// may use it, and no method is safe for concurrent calls on the same
// Thread. Cross-thread visibility happens solely through the slot table
// (publishes read by scans) and the orphan list.
type Thread struct {
	domain *Domain
	id     uint64
	slots  []*slot.Slot

	// retirements since the last reclaim pass. Private to this thread;
	// appended by Retire, repartitioned by reclaim.
	retiredNodes []retired

	done bool
}

// ID returns the thread's registration ID. Diagnostic only.
func (t *Thread) ID() uint64 {
	return t.id
}

// Domain returns the domain this thread is registered with.
func (t *Thread) Domain() *Domain {
	return t.domain
}

// Protect publishes p into the thread's i-th hazard slot and returns p.
//
// Publication alone does not make p safe: the caller must re-validate that
// p is still reachable from the structure after Protect returns (the usual
// load, protect, re-load-and-compare dance). Once validated, p cannot be
// freed until Clear(i) or a later Protect(i, ...) overwrites the slot.
//
//go:nosplit
func (t *Thread) Protect(i int, p unsafe.Pointer) unsafe.Pointer {
	t.slot(i).Publish(p)
	return p
}

// Clear empties the thread's i-th hazard slot, withdrawing protection.
//
//go:nosplit
func (t *Thread) Clear(i int) {
	t.slot(i).Clear()
}

// ClearAll empties every slot the thread owns.
func (t *Thread) ClearAll() {
	for _, s := range t.slots {
		s.Clear()
	}
}

// Slots returns the number of hazard slots the thread owns.
func (t *Thread) Slots() int {
	return len(t.slots)
}

func (t *Thread) slot(i int) *slot.Slot {
	if t.done {
		panic("hazard: use of deregistered Thread")
	}
	if i < 0 || i >= len(t.slots) {
		panic("hazard: slot index out of range")
	}
	return t.slots[i]
}

// Retire queues a removed node for reclamation. The node must already be
// unreachable from every structure root (no future traversal can find it),
// and must be retired exactly once.
//
// Retire appends to the thread's private list — O(1), no shared state, no
// synchronization. When the list grows past the domain's scan threshold R,
// Retire runs a reclaim pass inline before returning, which bounds the
// thread's unreclaimed count at R+1.
//
// free runs exactly once, when a pass finds the node unprotected. It must
// not touch the domain (no Retire/Protect reentry).
func (t *Thread) Retire(p unsafe.Pointer, free func()) {
	if t.done {
		panic("hazard: use of deregistered Thread")
	}
	t.retiredNodes = append(t.retiredNodes, retired{
		ptr:  p,
		addr: uintptr(p),
		free: free,
	})
	t.domain.stats.retires.Add(1)
	if len(t.retiredNodes) > t.domain.cfg.ScanThreshold {
		t.reclaim()
	}
}

// Pending returns the length of the thread's private retire list.
func (t *Thread) Pending() int {
	return len(t.retiredNodes)
}

// Deregister releases the thread's hazard slots and migrates any
// still-unreclaimed retirements to the domain's orphan list, where a later
// reclaim pass on any surviving thread (or a final Domain.Reclaim) frees
// them.
//
// Deregister runs one last reclaim pass first, so the migrated remainder is
// only what is genuinely still protected by other threads. Safe to call
// exactly once; typically deferred right after Register.
func (t *Thread) Deregister() {
	if t.done {
		panic("hazard: Thread deregistered twice")
	}
	t.reclaim()
	for _, s := range t.slots {
		t.domain.table.Release(s)
	}
	t.slots = nil
	// Explicit ownership transfer: whatever survived the final pass
	// stays eligible for reclamation instead of leaking with the thread.
	t.domain.stats.orphaned.Add(uint64(len(t.retiredNodes)))
	t.domain.pushOrphans(t.retiredNodes)
	t.retiredNodes = nil
	t.done = true
	t.domain.stats.deregistered.Add(1)
}
