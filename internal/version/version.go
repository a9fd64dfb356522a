// Package version holds the build version, set with -ldflags.
package version

// Version is overridden at build time:
//
//	go build -ldflags "-X github.com/mj1618/guidepilot/internal/version.Version=v1.2.3"
var Version = "dev"
