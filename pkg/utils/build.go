// Build metadata of the dlist binary, injected at link time, e.g.
// `go build -ldflags "-X github.com/nobletooth/dlist/pkg/utils.Version=v0.1.0"`.
// CAUTION: This file shouldn't be removed or else flags wouldn't be set properly.

package utils

import (
	"log/slog"
	"strconv"
	"time"
)

const unknownBuildInfo = "unknown"

var (
	TestMode   string // Should be true when running tests.
	IsTestMode bool
	Version    string
	Commit     string
	BuildTime  string
	StartTime  time.Time
)

func init() {
	StartTime = time.Now()

	// If build info is not set, make that clear.
	if Version == "" {
		Version = unknownBuildInfo
	}
	if Commit == "" {
		Commit = unknownBuildInfo
	}
	if BuildTime == "" {
		BuildTime = unknownBuildInfo
	}
	if len(TestMode) > 0 {
		if isTestMode, err := strconv.ParseBool(TestMode); err == nil {
			IsTestMode = isTestMode
		} else {
			slog.Warn("Failed to parse TestMode build flag, defaulting to false", "error", err)
		}
	}
}

// Uptime returns how long the process has been running.
func Uptime() time.Duration {
	return time.Since(StartTime)
}
