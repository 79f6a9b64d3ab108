// Package buildinfo holds application metadata set at build time.
//
//	go build -ldflags "\
//	  -X github.com/dotside-studios/nfc-bridge/buildinfo.Version=1.0.0 \
//	  -X github.com/dotside-studios/nfc-bridge/buildinfo.Commit=$(git rev-parse --short HEAD)"
package buildinfo

import (
	"fmt"
	"runtime"
	"strings"
)

var (
	// Name is the technical application name
	Name = "nfc-bridge"

	// DisplayName is used for the tray title and the mDNS instance name
	DisplayName = "NFC Bridge"

	Description = "Forwards NFC tag identifiers to a UI client over a method channel"

	// Version is the semantic version (set via ldflags for releases)
	Version = "dev"

	Commit    = ""
	BuildTime = ""
)

// FullVersion returns the version with the commit appended when known,
// e.g. "1.0.0 (abc1234)".
func FullVersion() string {
	if Commit != "" {
		return fmt.Sprintf("%s (%s)", Version, Commit)
	}
	return Version
}

// BuildInfo returns a multi-line description of the build.
func BuildInfo() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s %s\n", Name, FullVersion())
	fmt.Fprintf(&sb, "  %s\n", Description)
	fmt.Fprintf(&sb, "  Go: %s\n", runtime.Version())
	fmt.Fprintf(&sb, "  OS/Arch: %s/%s", runtime.GOOS, runtime.GOARCH)
	if BuildTime != "" {
		fmt.Fprintf(&sb, "\n  Built: %s", BuildTime)
	}
	return sb.String()
}

func IsDev() bool {
	return Version == "dev"
}
