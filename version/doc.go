// Package version reports the build of the cachesync binary.
//
// Version and Commit are set at link time:
//
//	go build -ldflags "-X github.com/kbukum/cachesync/version.Version=1.4.0" ./cmd/cachesync
//
// Without them the commit and dirty flag come from the VCS stamp of the
// Go build info.
package version
