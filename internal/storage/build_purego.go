//go:build !cgo_sqlite

package storage

// Default build. Pure Go SQLite with FTS5 compiled in; no C toolchain needed.

import (
	_ "modernc.org/sqlite"
)

const (
	// DriverName is the database/sql driver registered by this build
	DriverName = "sqlite"

	// BuildMode describes the current build configuration
	BuildMode = "purego"
)
