//go:build cgo_sqlite

package storage

// Compiled with the cgo_sqlite tag. Uses the C SQLite amalgamation, which
// needs the sqlite_fts5 tag for full-text search:
//
//	CGO_ENABLED=1 go build -tags "cgo_sqlite sqlite_fts5" ./...

import (
	_ "github.com/mattn/go-sqlite3"
)

const (
	// DriverName is the database/sql driver registered by this build
	DriverName = "sqlite3"

	// BuildMode describes the current build configuration
	BuildMode = "cgo"
)
