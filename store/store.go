// Package store provides read access to the notification record table.
//
// The table is owned by the operating system; Blurt only ever reads it. Row
// identifiers grow on insert but rows disappear when the user dismisses
// notifications, so the current maximum identifier can move backwards
// between two reads.
package store

import (
	"context"
	"errors"
)

// ErrReadOnly is returned when a fixture write is attempted on a read-only store
var ErrReadOnly = errors.New("store is read-only")

// Record is one row of the record table
type Record struct {
	ID   int64  // ROWID
	Data []byte // Binary property list payload
}

// Reader is the query surface the change-detection cursor needs
type Reader interface {
	// MaxRowID returns the largest row identifier, or ok=false for an empty table
	MaxRowID(ctx context.Context) (id int64, ok bool, err error)
	// RecordsAfter returns records with ID strictly greater than id, ascending
	RecordsAfter(ctx context.Context, id int64) ([]Record, error)
}

// Store is a Reader backed by a database file
type Store interface {
	Reader
	// Exists reports whether the underlying database file is present
	Exists() bool
	// Path returns the database file path
	Path() string
	// Close releases the connection
	Close() error
}
