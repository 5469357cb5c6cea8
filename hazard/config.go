package hazard

// Defaults for Config fields left at their zero value.
const (
	// DefaultSlotsPerThread is the number of hazard slots a thread owns.
	// Two suffices for every structure in this module: list traversals
	// rotate a pred/curr pair, and the queue protects head and next.
	DefaultSlotsPerThread = 2

	// DefaultScanThreshold is the retire-list length R that triggers an
	// inline scan-and-free pass. Larger values amortize the O(slots) scan
	// over more retirements at the cost of up to R+1 unreclaimed nodes
	// per thread; smaller values reclaim eagerly.
	DefaultScanThreshold = 64
)

// Config carries the tunables of a Domain. The zero value selects the
// documented defaults.
type Config struct {
	// SlotsPerThread is the number of hazard slots handed to each
	// registering thread. Structures address them by index in
	// Thread.Protect.
	SlotsPerThread int

	// ScanThreshold is R: a thread's retirement that pushes its private
	// retire list past R runs a reclaim pass before returning. The
	// threshold governs when reclaim work happens, never whether the
	// protection check happens.
	ScanThreshold int
}

// withDefaults resolves zero fields to the package defaults.
func (c Config) withDefaults() Config {
	if c.SlotsPerThread <= 0 {
		c.SlotsPerThread = DefaultSlotsPerThread
	}
	if c.ScanThreshold <= 0 {
		c.ScanThreshold = DefaultScanThreshold
	}
	return c
}
