// Package cursor tracks the highest record ROWID accounted for by this
// process and turns successive MAX(ROWID) observations into the set of
// records that appeared since the previous poll.
package cursor

import (
	"context"
	"fmt"

	"github.com/blurt-dev/blurt/store"
)

// Change classifies what a single poll observed
type Change int

const (
	// ChangeEmpty means the table had no rows
	ChangeEmpty Change = iota
	// ChangeInitialized means the first non-empty observation set the watermark
	ChangeInitialized
	// ChangeGrew means rows with higher IDs were found
	ChangeGrew
	// ChangeShrank means MAX(ROWID) fell below the watermark
	ChangeShrank
	// ChangeUnchanged means MAX(ROWID) equals the watermark
	ChangeUnchanged
)

func (c Change) String() string {
	switch c {
	case ChangeEmpty:
		return "empty"
	case ChangeInitialized:
		return "initialized"
	case ChangeGrew:
		return "grew"
	case ChangeShrank:
		return "shrank"
	case ChangeUnchanged:
		return "unchanged"
	default:
		return "unknown"
	}
}

// Result is the outcome of one poll
type Result struct {
	Change  Change
	Records []store.Record
}

// Cursor holds the watermark. It is not safe for concurrent use; the
// poller owns it exclusively.
type Cursor struct {
	watermark int64
	set       bool
}

// New returns a cursor with no watermark
func New() *Cursor {
	return &Cursor{}
}

// Watermark returns the current watermark and whether it has been set
func (c *Cursor) Watermark() (int64, bool) {
	return c.watermark, c.set
}

// Poll observes the reader once and advances the watermark.
// On error the watermark is left as it was.
func (c *Cursor) Poll(ctx context.Context, reader store.Reader) (Result, error) {
	maxID, ok, err := reader.MaxRowID(ctx)
	if err != nil {
		return Result{}, fmt.Errorf("read max row id: %w", err)
	}

	if !ok {
		return Result{Change: ChangeEmpty}, nil
	}

	if !c.set {
		c.watermark = maxID
		c.set = true
		return Result{Change: ChangeInitialized}, nil
	}

	switch {
	case maxID > c.watermark:
		records, err := reader.RecordsAfter(ctx, c.watermark)
		if err != nil {
			return Result{}, fmt.Errorf("read records after %d: %w", c.watermark, err)
		}
		if len(records) > 0 {
			c.watermark = records[len(records)-1].ID
		}
		return Result{Change: ChangeGrew, Records: records}, nil

	case maxID < c.watermark:
		// Rows were deleted. Anything above the new max cannot exist, so the
		// query below returns nothing and the row that caused the drop is
		// not delivered.
		records, err := reader.RecordsAfter(ctx, maxID)
		if err != nil {
			return Result{}, fmt.Errorf("read records after %d: %w", maxID, err)
		}
		c.watermark = maxID
		if len(records) > 0 {
			c.watermark = records[len(records)-1].ID
		}
		return Result{Change: ChangeShrank, Records: records}, nil

	default:
		return Result{Change: ChangeUnchanged}, nil
	}
}
