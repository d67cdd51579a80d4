// Package storetest provides fixtures for tests that need a notification
// database on disk.
package storetest

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/blurt-dev/blurt/store"
	"howett.net/plist"
)

// DefaultBundleID is used by fixtures that don't care about the sender
const DefaultBundleID = "com.example.testapp"

// DefaultAppID is the app row every fixture record refers to
const DefaultAppID = 1

// NewTestStore creates a read-write store with the notification schema in a
// temporary directory. It returns the store and the database path, and closes
// the store when the test completes.
func NewTestStore(t *testing.T) (*store.SQLiteStore, string) {
	t.Helper()

	path := filepath.Join(t.TempDir(), "notifications.db")
	s, err := store.OpenReadWrite(path)
	if err != nil {
		t.Fatalf("opening test store: %v", err)
	}

	t.Cleanup(func() {
		if err := s.Close(); err != nil {
			t.Errorf("closing test store: %v", err)
		}
	})

	if err := s.InitSchema(context.Background()); err != nil {
		t.Fatalf("initializing schema: %v", err)
	}
	if err := s.InsertApp(context.Background(), DefaultAppID, DefaultBundleID); err != nil {
		t.Fatalf("seeding app: %v", err)
	}

	return s, path
}

// Payload builds a binary property list with the layout the notification
// center uses: app and date at the top level, details under "req".
func Payload(t *testing.T, title, body, bundleID string, date float64) []byte {
	t.Helper()

	return MarshalPlist(t, map[string]interface{}{
		"app":  bundleID,
		"date": date,
		"req": map[string]interface{}{
			"titl": title,
			"body": body,
		},
	})
}

// MarshalPlist encodes v as a binary property list
func MarshalPlist(t *testing.T, v interface{}) []byte {
	t.Helper()

	data, err := plist.Marshal(v, plist.BinaryFormat)
	if err != nil {
		t.Fatalf("marshaling plist: %v", err)
	}
	return data
}

// InsertNotification inserts a record whose payload carries the given fields
func InsertNotification(t *testing.T, s *store.SQLiteStore, recID int64, title, body, bundleID string, date float64) {
	t.Helper()

	InsertRaw(t, s, recID, Payload(t, title, body, bundleID, date))
}

// InsertRaw inserts a record with an arbitrary payload
func InsertRaw(t *testing.T, s *store.SQLiteStore, recID int64, data []byte) {
	t.Helper()

	err := s.InsertRecord(context.Background(), store.FixtureRecord{
		RecID: recID,
		AppID: DefaultAppID,
		Data:  data,
		Date:  1234567890.0,
	})
	if err != nil {
		t.Fatalf("inserting record %d: %v", recID, err)
	}
}

// DeleteAll removes every record
func DeleteAll(t *testing.T, s *store.SQLiteStore) {
	t.Helper()

	if err := s.DeleteAllRecords(context.Background()); err != nil {
		t.Fatalf("deleting records: %v", err)
	}
}
