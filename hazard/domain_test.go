package hazard

import (
	"testing"
	"unsafe"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

// TestConfigDefaults verifies zero Config fields resolve to the documented
// defaults and explicit values pass through.
func TestConfigDefaults(t *testing.T) {
	d := NewDomain(Config{})
	want := Config{
		SlotsPerThread: DefaultSlotsPerThread,
		ScanThreshold:  DefaultScanThreshold,
	}
	if diff := cmp.Diff(want, d.Config()); diff != "" {
		t.Fatalf("resolved config mismatch (-want +got):\n%s", diff)
	}

	d = NewDomain(Config{SlotsPerThread: 3, ScanThreshold: 4})
	want = Config{SlotsPerThread: 3, ScanThreshold: 4}
	if diff := cmp.Diff(want, d.Config()); diff != "" {
		t.Fatalf("explicit config mismatch (-want +got):\n%s", diff)
	}
}

// TestRegisterAllocatesSlots verifies a registered thread owns the
// configured number of slots and distinct threads get distinct IDs.
func TestRegisterAllocatesSlots(t *testing.T) {
	d := NewDomain(Config{SlotsPerThread: 3})

	t1 := d.Register()
	t2 := d.Register()
	defer t1.Deregister()
	defer t2.Deregister()

	require.Equal(t, 3, t1.Slots())
	require.Equal(t, 3, t2.Slots())
	require.NotEqual(t, t1.ID(), t2.ID())
	require.Same(t, d, t1.Domain())

	st := d.Stats()
	require.Equal(t, uint64(2), st.Registered)
	require.Equal(t, 6, st.ActiveSlots)
}

// TestDeregisterReleasesSlots verifies slots return to the free pool on
// deregistration.
func TestDeregisterReleasesSlots(t *testing.T) {
	d := NewDomain(Config{})

	th := d.Register()
	require.Equal(t, DefaultSlotsPerThread, d.Stats().ActiveSlots)

	th.Deregister()
	st := d.Stats()
	require.Equal(t, 0, st.ActiveSlots)
	require.Equal(t, uint64(1), st.Deregistered)
}

// TestThreadContractViolationsPanic covers the misuse panics: double
// deregister, slot use after deregister, out-of-range slot index.
func TestThreadContractViolationsPanic(t *testing.T) {
	d := NewDomain(Config{})

	th := d.Register()
	x := 0
	require.Panics(t, func() { th.Protect(5, unsafe.Pointer(&x)) })
	require.Panics(t, func() { th.Clear(-1) })

	th.Deregister()
	require.Panics(t, func() { th.Deregister() })
	require.Panics(t, func() { th.Protect(0, unsafe.Pointer(&x)) })
	require.Panics(t, func() { th.Retire(unsafe.Pointer(&x), nil) })
}

// TestDefaultDomainIsSingleton verifies the lazily initialized default
// domain is one process-wide instance shared by the package helpers.
func TestDefaultDomainIsSingleton(t *testing.T) {
	require.Same(t, Default(), Default())

	th := Register()
	require.Same(t, Default(), th.Domain())
	th.Deregister()
}

// TestStatsSnapshot verifies the counters track a simple scripted run.
func TestStatsSnapshot(t *testing.T) {
	d := NewDomain(Config{ScanThreshold: 2})

	th := d.Register()
	for i := 0; i < 3; i++ {
		n := new(int)
		th.Retire(unsafe.Pointer(n), func() {})
	}
	th.Deregister()
	d.Reclaim()

	got := d.Stats()
	got.Slots = 0 // capacity depends on segment size, not under test
	want := Stats{
		Registered:   1,
		Deregistered: 1,
		Retires:      3,
		Frees:        3,
		Scans:        2, // threshold pass + deregister pass
		Orphaned:     0,
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("stats mismatch (-want +got):\n%s", diff)
	}
}
