// Package set implements a lock-free sorted linked set whose links are
// markable pointers.
//
// Removal is two-phase, linearized by the mark bit: a remover first marks
// the victim's outgoing link (logical deletion — from this instant the key
// is out of the set and no insert can attach behind the victim), then
// unlinks the victim with a CAS on the predecessor's link (physical
// deletion). Traversals help: any marked node found on the way is unlinked
// and retired by whoever trips over it.
//
// Traversal protects the pred/curr pair in hazard slots 0 and 1, rotating
// as it advances, so a node being examined can never be reclaimed
// underneath the reader. Unlinked nodes go through Thread.Retire and
// return to an internal pool once unprotected.
package set

import (
	"cmp"
	"sync"
	"unsafe"

	"github.com/kolkov/hazard/hazard"
	"github.com/kolkov/hazard/markable"
)

// node is one list cell. The head sentinel carries no key and is never
// removed, so it needs no protection.
type node[K cmp.Ordered] struct {
	key  K
	next markable.Pointer[node[K]]
}

// Set is a lock-free sorted set of keys. Create with New; the zero value
// is not usable. Methods require a Thread with at least two hazard slots.
type Set[K cmp.Ordered] struct {
	head *node[K]
	pool sync.Pool
}

// New creates an empty set.
func New[K cmp.Ordered]() *Set[K] {
	s := &Set[K]{head: &node[K]{}}
	s.pool.New = func() any { return new(node[K]) }
	return s
}

// find walks the list to the position of key: it returns the last node
// with a smaller key (pred) and the first node with key >= key (curr, nil
// at the end of the list). Marked nodes encountered on the way are
// unlinked and retired.
//
// On return pred and curr are protected (pred unless it is the sentinel),
// and pred's link to curr was observed unmarked after both publishes. The
// caller clears the slots when done.
func (s *Set[K]) find(t *hazard.Thread, key K) (pred, curr *node[K]) {
retry:
	for {
		pred = s.head
		curr, _ = pred.next.Load()
		idx := 0
		for curr != nil {
			t.Protect(idx, unsafe.Pointer(curr))
			// Re-validate after the publish: pred must still link to
			// curr, unmarked. Otherwise the protection may be stale.
			if c, m := pred.next.Load(); c != curr || m {
				continue retry
			}
			next, marked := curr.next.Load()
			if marked {
				// curr is logically deleted: unlink it here.
				if !pred.next.CompareAndSet(curr, next, false, false) {
					continue retry
				}
				victim := curr
				t.Retire(unsafe.Pointer(victim), func() { s.release(victim) })
				curr = next
				continue
			}
			if curr.key >= key {
				return pred, curr
			}
			pred = curr
			curr = next
			// Rotate so pred keeps its slot and the next curr takes the
			// other one.
			idx ^= 1
		}
		return pred, nil
	}
}

// Add inserts key and reports whether it was absent.
func (s *Set[K]) Add(t *hazard.Thread, key K) bool {
	n := s.pool.Get().(*node[K])
	n.key = key
	for {
		pred, curr := s.find(t, key)
		if curr != nil && curr.key == key {
			t.ClearAll()
			s.release(n)
			return false
		}
		// Pre-publication store; the node becomes shared only through
		// the CAS below.
		n.next.Store(curr, false)
		if pred.next.CompareAndSet(curr, n, false, false) {
			t.ClearAll()
			return true
		}
	}
}

// Remove deletes key and reports whether it was present.
func (s *Set[K]) Remove(t *hazard.Thread, key K) bool {
	for {
		pred, curr := s.find(t, key)
		if curr == nil || curr.key != key {
			t.ClearAll()
			return false
		}
		next, marked := curr.next.Load()
		for !marked {
			if curr.next.Mark(next) {
				// Logical deletion won: key is out as of this CAS. Try
				// the physical unlink; on failure a later traversal
				// does it.
				if pred.next.CompareAndSet(curr, next, false, false) {
					victim := curr
					t.Retire(unsafe.Pointer(victim), func() { s.release(victim) })
				}
				t.ClearAll()
				return true
			}
			next, marked = curr.next.Load()
		}
		// Another remover marked curr first; retry from a fresh find,
		// which will unlink it.
	}
}

// Contains reports whether key is in the set.
func (s *Set[K]) Contains(t *hazard.Thread, key K) bool {
	_, curr := s.find(t, key)
	found := curr != nil && curr.key == key
	t.ClearAll()
	return found
}

// release resets a node and returns it to the pool.
func (s *Set[K]) release(n *node[K]) {
	var zero K
	n.key = zero
	n.next.Store(nil, false)
	s.pool.Put(n)
}
