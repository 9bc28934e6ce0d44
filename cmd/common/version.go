package common

import (
	"fmt"
	"runtime"
)

const (
	ProjectName    = "Regime Backtester"
	ProjectVersion = "0.3.0"
)

// Build information, set during build via -ldflags
var (
	BuildDate   = "unknown"
	BuildCommit = "dev"
)

// PrintVersion prints version information
func PrintVersion(appName string) {
	fmt.Printf("%s v%s (%s)\n", appName, ProjectVersion, ProjectName)
	fmt.Printf("Build: %s (%s)\n", BuildCommit, BuildDate)
	fmt.Printf("Go: %s (%s/%s)\n", runtime.Version(), runtime.GOOS, runtime.GOARCH)
}
