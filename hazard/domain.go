package hazard

import (
	"sync"
	"sync/atomic"
	"unsafe"

	"github.com/kolkov/hazard/internal/hazard/slot"
)

// retired is one entry on a retire list: the node's address plus the
// cleanup to run before the node is released.
//
// The unsafe.Pointer keeps the node reachable for the garbage collector
// until the cleanup has run; addr is the scan-comparable form of the same
// pointer.
type retired struct {
	ptr  unsafe.Pointer
	addr uintptr
	free func()
}

// orphanBatch is a retire list migrated off an exiting thread, linked into
// the domain's lock-free orphan stack.
type orphanBatch struct {
	nodes []retired
	next  *orphanBatch
}

// Domain is one independent reclamation scope: a slot table, the shared
// orphan list, the configuration and counters.
//
// All structures that exchange nodes must share a domain, so that a scan
// sees every slot that could protect a node retired into it. Most programs
// use a single domain; Default returns a lazily initialized process-wide
// one. The global state is an explicit object on purpose: every Thread
// holds a reference to its domain rather than reaching into a hidden
// singleton.
type Domain struct {
	cfg   Config
	table *slot.Table

	// orphans is a Treiber stack of retire batches abandoned by exiting
	// threads. Any thread's reclaim pass drains it.
	orphans atomic.Pointer[orphanBatch]

	// nextID allocates thread IDs. Diagnostic only; IDs are not reused.
	nextID atomic.Uint64

	stats stats
}

// stats holds the domain's monotonic counters. Updated with atomics only.
type stats struct {
	registered   atomic.Uint64
	deregistered atomic.Uint64
	retires      atomic.Uint64
	frees        atomic.Uint64
	scans        atomic.Uint64
	orphaned     atomic.Uint64
}

// Stats is a point-in-time snapshot of a domain's counters.
type Stats struct {
	// Registered and Deregistered count Thread lifecycle events.
	Registered   uint64
	Deregistered uint64

	// Retires counts Retire calls; Frees counts cleanups actually run.
	// Retires - Frees is the number of nodes still awaiting reclamation
	// (on retire lists or the orphan list).
	Retires uint64
	Frees   uint64

	// Scans counts reclaim passes; Orphaned counts retired nodes
	// migrated to the orphan list by exiting threads.
	Scans    uint64
	Orphaned uint64

	// Slots is the current table capacity, ActiveSlots the owned subset.
	Slots       int
	ActiveSlots int
}

// NewDomain creates a reclamation domain with the given configuration.
// Zero Config fields select the documented defaults.
func NewDomain(cfg Config) *Domain {
	return &Domain{
		cfg:   cfg.withDefaults(),
		table: slot.NewTable(),
	}
}

// defaultDomain is the process-wide domain, created on first use.
var (
	defaultDomain     *Domain
	defaultDomainOnce sync.Once
)

// Default returns the lazily initialized process-wide domain. Its
// configuration is the package defaults; programs that need different
// tunables create their own domain with NewDomain.
func Default() *Domain {
	defaultDomainOnce.Do(func() {
		defaultDomain = NewDomain(Config{})
	})
	return defaultDomain
}

// Register creates a thread context bound to the calling goroutine,
// acquiring the configured number of hazard slots. Never blocks: the slot
// table grows if no free slot exists.
//
// The returned Thread must be used only by the registering goroutine and
// released with Deregister (typically deferred, so slots are returned even
// on a panic unwind).
func (d *Domain) Register() *Thread {
	id := d.nextID.Add(1)
	t := &Thread{
		domain: d,
		id:     id,
		slots:  make([]*slot.Slot, d.cfg.SlotsPerThread),
	}
	for i := range t.slots {
		t.slots[i] = d.table.Acquire(id)
	}
	d.stats.registered.Add(1)
	return t
}

// Config returns the domain's resolved configuration.
func (d *Domain) Config() Config {
	return d.cfg
}

// Stats returns a snapshot of the domain's counters. Counters are read
// independently; the snapshot is not required to be mutually consistent
// while threads are running.
func (d *Domain) Stats() Stats {
	return Stats{
		Registered:   d.stats.registered.Load(),
		Deregistered: d.stats.deregistered.Load(),
		Retires:      d.stats.retires.Load(),
		Frees:        d.stats.frees.Load(),
		Scans:        d.stats.scans.Load(),
		Orphaned:     d.stats.orphaned.Load(),
		Slots:        d.table.Len(),
		ActiveSlots:  d.table.Active(),
	}
}

// pushOrphans transfers a retire list to the shared orphan stack.
func (d *Domain) pushOrphans(nodes []retired) {
	if len(nodes) == 0 {
		return
	}
	b := &orphanBatch{nodes: nodes}
	for {
		b.next = d.orphans.Load()
		if d.orphans.CompareAndSwap(b.next, b) {
			return
		}
	}
}

// drainOrphans detaches the whole orphan stack and returns its entries.
func (d *Domain) drainOrphans() []retired {
	head := d.orphans.Swap(nil)
	if head == nil {
		return nil
	}
	var out []retired
	for b := head; b != nil; b = b.next {
		out = append(out, b.nodes...)
	}
	return out
}
