package hazard

// Package-level helpers over the process-wide default domain, for programs
// that do not need multiple reclamation scopes.

// Register creates a thread context on the default domain.
//
// Equivalent to Default().Register(). The default domain is created on
// first use with the package defaults.
//
// Example:
//
//	t := hazard.Register()
//	defer t.Deregister()
func Register() *Thread {
	return Default().Register()
}

// Reclaim runs a best-effort orphan pass on the default domain; see
// Domain.Reclaim. Intended for process shutdown.
func Reclaim() int {
	return Default().Reclaim()
}

// DomainStats returns a counter snapshot of the default domain.
func DomainStats() Stats {
	return Default().Stats()
}
