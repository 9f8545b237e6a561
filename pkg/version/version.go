package version

// Version is the application version, set at build time via ldflags.
// Example: go build -ldflags "-X github.com/shishobooks/circulation/pkg/version.Version=1.0.0".
var Version = "dev"

// String returns the version for CLI --version output.
func String() string {
	return "circulation " + Version
}
