// Package build holds version information stamped in at build time.
package build

// Set with -ldflags, e.g.
//
//	go build -ldflags "-X github.com/drummonds/goPreview/internal/build.Version=v1.2.0"
var (
	Version   = "dev"
	BuildDate = ""
)
