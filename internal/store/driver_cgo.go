//go:build !purego

package store

import (
	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

const driverName = "sqlite3"
