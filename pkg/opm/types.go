package opm

// Config holds the install path and release endpoints for the opm binary.
// Constructed once at startup and threaded as a parameter.
type Config struct {
	// BinPath is the stable path commands invoke; it is a symlink to the
	// versioned binary stored alongside it.
	BinPath string
	// ReleaseURL is the base URL versioned release binaries download from.
	ReleaseURL string
	// LatestURL is the endpoint that resolves the latest release version.
	LatestURL string
}
