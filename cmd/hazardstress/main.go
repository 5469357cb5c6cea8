// Package main implements the hazardstress soak tool.
//
// hazardstress hammers one of the lock-free structures from this module
// with a configurable number of goroutines for a fixed duration, then runs
// a final reclamation pass and prints the domain counters. Its job is to
// surface reclamation bugs that only show up under real contention: lost
// frees, double frees (the pools corrupt quickly if one happens) and
// unbounded retire lists.
//
// Usage:
//
//	hazardstress --structure queue --goroutines 16 --duration 10s
//	hazardstress --structure set --threshold 4
//
// The tool exits non-zero if nodes remain unreclaimed after the workers
// have deregistered and the final pass has run.
package main

import (
	"fmt"
	"math/rand/v2"
	"os"
	"sync"
	"sync/atomic"
	"time"

	flag "github.com/spf13/pflag"

	"github.com/kolkov/hazard/hazard"
	"github.com/kolkov/hazard/queue"
	"github.com/kolkov/hazard/set"
	"github.com/kolkov/hazard/stack"
)

var (
	structure  = flag.String("structure", "stack", "structure to stress: stack, queue or set")
	goroutines = flag.Int("goroutines", 8, "number of worker goroutines")
	duration   = flag.Duration("duration", 2*time.Second, "how long to run the workload")
	threshold  = flag.Int("threshold", hazard.DefaultScanThreshold, "retire-list length R that triggers a scan")
	slots      = flag.Int("slots", hazard.DefaultSlotsPerThread, "hazard slots per thread")
	keyspace   = flag.Int("keyspace", 1024, "key range for the set workload")
)

func main() {
	flag.Parse()

	d := hazard.NewDomain(hazard.Config{
		SlotsPerThread: *slots,
		ScanThreshold:  *threshold,
	})

	workload, err := pickWorkload()
	if err != nil {
		fmt.Fprintln(os.Stderr, "hazardstress:", err)
		os.Exit(2)
	}

	var (
		ops  atomic.Uint64
		stop atomic.Bool
		wg   sync.WaitGroup
	)
	start := time.Now()
	for i := 0; i < *goroutines; i++ {
		wg.Add(1)
		go func(seed uint64) {
			defer wg.Done()
			t := d.Register()
			defer t.Deregister()
			r := rand.New(rand.NewPCG(seed, seed^0x9E3779B97F4A7C15))
			for !stop.Load() {
				workload(t, r)
				ops.Add(1)
			}
		}(uint64(i + 1))
	}
	time.Sleep(*duration)
	stop.Store(true)
	wg.Wait()
	elapsed := time.Since(start)

	// All workers are gone; anything still unreclaimed sits on the
	// orphan list with no slot left to protect it.
	d.Reclaim()
	report(d.Stats(), ops.Load(), elapsed)
}

// pickWorkload returns one iteration of the selected structure's workload.
func pickWorkload() (func(*hazard.Thread, *rand.Rand), error) {
	switch *structure {
	case "stack":
		s := stack.New[int]()
		return func(t *hazard.Thread, r *rand.Rand) {
			if r.IntN(2) == 0 {
				s.Push(t, r.Int())
			} else {
				s.Pop(t)
			}
		}, nil
	case "queue":
		q := queue.New[int]()
		return func(t *hazard.Thread, r *rand.Rand) {
			if r.IntN(2) == 0 {
				q.Enqueue(t, r.Int())
			} else {
				q.Dequeue(t)
			}
		}, nil
	case "set":
		s := set.New[int]()
		ks := *keyspace
		return func(t *hazard.Thread, r *rand.Rand) {
			k := r.IntN(ks)
			switch r.IntN(3) {
			case 0:
				s.Add(t, k)
			case 1:
				s.Remove(t, k)
			default:
				s.Contains(t, k)
			}
		}, nil
	default:
		return nil, fmt.Errorf("unknown structure %q", *structure)
	}
}

func report(st hazard.Stats, ops uint64, elapsed time.Duration) {
	outstanding := st.Retires - st.Frees
	fmt.Printf("hazardstress: %s, %d goroutines, %s\n", *structure, *goroutines, elapsed.Round(time.Millisecond))
	fmt.Printf("  operations:   %d (%.0f ops/sec)\n", ops, float64(ops)/elapsed.Seconds())
	fmt.Printf("  retired:      %d\n", st.Retires)
	fmt.Printf("  freed:        %d\n", st.Frees)
	fmt.Printf("  outstanding:  %d\n", outstanding)
	fmt.Printf("  scans:        %d\n", st.Scans)
	fmt.Printf("  orphaned:     %d\n", st.Orphaned)
	fmt.Printf("  slots:        %d (%d active)\n", st.Slots, st.ActiveSlots)

	if outstanding != 0 {
		fmt.Fprintf(os.Stderr, "hazardstress: %d nodes leaked after final pass\n", outstanding)
		os.Exit(1)
	}
}
