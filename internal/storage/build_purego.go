//go:build purego || !sqlite_vec
// +build purego !sqlite_vec

package storage

// Compiled when building without CGO or without the sqlite_vec tag. Uses the
// pure Go SQLite implementation; similarity scoring happens in Go.
//
// Build command:
//
//	CGO_ENABLED=0 go build ./...
//
// Driver used: modernc.org/sqlite

import (
	_ "modernc.org/sqlite"
)

const (
	// DriverName is the SQLite driver to use.
	DriverName = "sqlite"

	// VectorExtensionAvailable reports whether sqlite-vec is compiled in.
	VectorExtensionAvailable = false

	// BuildMode describes the current build configuration.
	BuildMode = "purego"
)
