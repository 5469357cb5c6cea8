package stack

import (
	"math/rand/v2"
	"runtime"
	"sync/atomic"
)

// The elimination layer pairs up concurrent pushes and pops that lost a
// head CAS. A push and a pop that rendezvous on the same exchanger slot
// complete without touching the stack at all: the pop takes the push's
// value, the push's node is recycled unused. Same-sided meetings (two
// pushes, two pops) never match.

const (
	opPush = iota
	opPop
)

// offer states. A slot holds nil when empty, a Waiting offer while one side
// spins for a partner, and a Busy reply for the instant of the handoff.
const (
	stateWaiting int32 = iota
	stateBusy
)

// offer is one immutable rendezvous record.
type offer[T any] struct {
	value T
	op    int
	state int32
}

// exchanger is a single rendezvous slot following the Empty -> Waiting ->
// Busy protocol. Records are immutable; every transition is a CAS swapping
// the whole record, so value, operation and state change as one unit.
type exchanger[T any] struct {
	slot atomic.Pointer[offer[T]]
}

// exchange attempts a rendezvous, spinning for at most spins iterations.
// It returns the partner's value and true on a successful meeting with the
// opposite operation, or false if it timed out or only same-sided traffic
// showed up.
func (e *exchanger[T]) exchange(mine T, op int, spins int) (T, bool) {
	var zero T
	for i := 0; i < spins; i++ {
		cur := e.slot.Load()
		switch {
		case cur == nil:
			// Empty: install a waiting offer and spin for a partner.
			o := &offer[T]{value: mine, op: op, state: stateWaiting}
			if !e.slot.CompareAndSwap(nil, o) {
				continue
			}
			for j := 0; j < spins; j++ {
				reply := e.slot.Load()
				if reply != o {
					// A partner swapped in its Busy reply.
					e.slot.Store(nil)
					return reply.value, true
				}
				runtime.Gosched()
			}
			// Timed out: withdraw the offer. A failed withdrawal means a
			// partner arrived in the meantime.
			if e.slot.CompareAndSwap(o, nil) {
				return zero, false
			}
			reply := e.slot.Load()
			e.slot.Store(nil)
			return reply.value, true

		case cur.state == stateWaiting && cur.op != op:
			// Opposite side is waiting: claim it with a Busy reply.
			reply := &offer[T]{value: mine, op: op, state: stateBusy}
			if e.slot.CompareAndSwap(cur, reply) {
				return cur.value, true
			}

		default:
			// Busy handoff in progress, or a same-op waiter occupies the
			// slot. No rendezvous possible here.
			return zero, false
		}
	}
	return zero, false
}

const (
	// eliminationSlots is the width of the elimination array. A handful
	// of slots is enough: the layer only absorbs CAS losers, not the
	// full operation rate.
	eliminationSlots = 4

	// exchangeSpins bounds both the outer retry loop and the waiting
	// spin of one exchange attempt, keeping Push/Pop lock-free.
	exchangeSpins = 64
)

// elimination is the array of exchanger slots backing a stack.
type elimination[T any] struct {
	slots [eliminationSlots]exchanger[T]
}

// visit tries one rendezvous on a randomly chosen slot.
func (e *elimination[T]) visit(v T, op int) (T, bool) {
	return e.slots[rand.IntN(eliminationSlots)].exchange(v, op, exchangeSpins)
}
