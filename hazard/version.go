package hazard

// Version information for the hazard reclamation library.
const (
	// Version is the current version of the library.
	Version = "0.1.0"

	// VersionMajor is the major version number.
	VersionMajor = 0

	// VersionMinor is the minor version number.
	VersionMinor = 1

	// VersionPatch is the patch version number.
	VersionPatch = 0
)

// Info provides runtime information about the reclamation scheme.
type Info struct {
	// Version is the library version string.
	Version string

	// Scheme is the reclamation scheme implemented.
	Scheme string
}

// GetInfo returns information about the reclamation library.
//
// Example:
//
//	info := hazard.GetInfo()
//	fmt.Printf("hazard %s (%s)\n", info.Version, info.Scheme)
func GetInfo() Info {
	return Info{
		Version: Version,
		Scheme:  "Hazard Pointers (Michael, IEEE TPDS 2004)",
	}
}
