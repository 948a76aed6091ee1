// Package version holds the build metadata of the crmops binary.
package version

import (
	"fmt"
	"runtime"
)

// Version is the release of the binary, set at build time with
// -ldflags "-X github.com/matiasleandrokruk/crmops/internal/version.Version=...".
var Version = "dev"

// BuildTime is when the binary was built, set the same way.
var BuildTime = "unknown"

// String returns the one-line version banner printed by `crmops version`.
func String() string {
	return fmt.Sprintf("crmops version %s (built %s, %s)", Version, BuildTime, runtime.Version())
}
