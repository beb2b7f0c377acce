package common

// Build information, set via -ldflags at build time.
var (
	Version   = "0.1.0"
	GitCommit = "unknown"
	BuildTime = "unknown"
)

// GetVersion returns the version string
func GetVersion() string {
	return Version
}
