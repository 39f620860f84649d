//go:build purego

// Pure Go SQLite driver for CGO_ENABLED=0 builds.
//
// Build with: go build -tags purego
package store

import (
	_ "modernc.org/sqlite"
)

const driverName = "sqlite"
