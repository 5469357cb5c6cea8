package hazard

// reclaim runs one scan-and-free pass on the calling thread.
//
// Protocol:
//  1. Fold any batches abandoned by exited threads into the candidate set.
//     This must precede the snapshot: an orphan was retired before it was
//     pushed, so a snapshot begun earlier could miss a publish made between
//     scanning that publisher's slot and the drain.
//  2. Snapshot every published address via one independent atomic load per
//     slot. The snapshot need not be instantaneously consistent across
//     slots: safety only requires that a freed node had zero protecting
//     publishes at some instant strictly after its retirement, which each
//     per-slot load establishes for the addresses it misses — provided
//     every candidate's retirement precedes the scan, which step 1
//     guarantees.
//  3. Partition into protected (address present in the snapshot) and
//     unprotected; free the unprotected, requeue the protected.
//
// A node that appears in the snapshot is never freed by this pass. The
// scan threshold decides when this runs, never whether steps 1-3 happen.
func (t *Thread) reclaim() {
	d := t.domain
	d.stats.scans.Add(1)

	candidates := t.retiredNodes
	candidates = append(candidates, d.drainOrphans()...)

	snapshot := make(map[uintptr]struct{}, d.table.Len())
	d.table.Scan(snapshot)

	// Partition in place: kept entries compact to the front of the
	// candidate slice, freed entries are dropped.
	kept := candidates[:0]
	for _, r := range candidates {
		if _, protected := snapshot[r.addr]; protected {
			kept = append(kept, r)
			continue
		}
		if r.free != nil {
			r.free()
		}
		d.stats.frees.Add(1)
	}
	// Drop freed tail references so the GC can collect the nodes.
	for i := len(kept); i < len(candidates); i++ {
		candidates[i] = retired{}
	}
	t.retiredNodes = kept
}

// Reclaim runs a best-effort pass over the shared orphan list without a
// registered thread, for process shutdown after the last worker has
// deregistered. It frees every orphan not protected by a surviving slot
// and returns the number freed; still-protected orphans are pushed back.
//
// If no thread ever runs another pass, whatever remains protected is
// leaked deliberately: with no further activity there is nobody left to
// clear the protecting slots.
func (d *Domain) Reclaim() int {
	orphans := d.drainOrphans()
	if len(orphans) == 0 {
		return 0
	}
	d.stats.scans.Add(1)

	snapshot := make(map[uintptr]struct{}, d.table.Len())
	d.table.Scan(snapshot)

	freed := 0
	kept := orphans[:0]
	for _, r := range orphans {
		if _, protected := snapshot[r.addr]; protected {
			kept = append(kept, r)
			continue
		}
		if r.free != nil {
			r.free()
		}
		d.stats.frees.Add(1)
		freed++
	}
	for i := len(kept); i < len(orphans); i++ {
		orphans[i] = retired{}
	}
	d.pushOrphans(kept)
	return freed
}
