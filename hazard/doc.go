// Package hazard implements hazard-pointer based memory reclamation for
// lock-free data structures.
//
// When a lock-free structure unlinks a node, another thread may still hold a
// raw reference to that node mid-traversal, so the node cannot be released
// (returned to a pool, have its cleanup run) immediately without risking a
// use-after-free. Hazard pointers solve this without locks, reference
// counting or stop-the-world phases:
//
//  1. Before dereferencing a candidate node, a thread publishes its address
//     into a hazard slot it owns, then re-validates that the node is still
//     reachable. From that point the node cannot be freed under it.
//  2. When a structure removes a node, it retires it instead of freeing it.
//     Retirement is an O(1) append to the retiring thread's private list.
//  3. Once a thread's retire list exceeds the scan threshold, the thread
//     scans all hazard slots and frees every retired node whose address is
//     not published anywhere. Protected nodes are requeued for the next
//     pass.
//
// Every operation completes in a bounded number of steps regardless of what
// other threads are doing; there is no blocking anywhere in the package.
//
// # Usage
//
// Worker goroutines register once and keep the returned Thread for the
// duration of their work:
//
//	d := hazard.NewDomain(hazard.Config{})
//	t := d.Register()
//	defer t.Deregister()
//
//	for {
//		n := head.Load()
//		t.Protect(0, unsafe.Pointer(n))
//		if head.Load() != n {
//			continue // unlinked underneath us, retry
//		}
//		// n is safe to dereference until t.Clear(0).
//		...
//	}
//
// On removal:
//
//	t.Retire(unsafe.Pointer(n), func() { pool.Put(n) })
//
// The cleanup runs exactly once, on whichever thread's reclaim pass finds
// the node unprotected.
//
// A Thread is owned by the goroutine that registered it and must not be
// shared. Deregister releases the thread's slots and migrates any
// still-unreclaimed retirements to the domain's orphan list, where a later
// pass on any surviving thread picks them up.
//
// # What this package does not do
//
// Abrupt goroutine death is out of scope: the design assumes cooperative
// registration and deregistration (use defer). Retiring a node twice, or
// touching it after retiring it without protection, is a contract violation
// the package does not detect.
package hazard
