package store

import (
	"context"
	"fmt"

	"github.com/doug-martin/goqu/v9"
)

// schemaStatements mirror the tables the notification center creates
var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS app (
		app_id INTEGER PRIMARY KEY,
		identifier VARCHAR,
		badge INTEGER NULL
	)`,
	`CREATE TABLE IF NOT EXISTS record (
		rec_id INTEGER PRIMARY KEY,
		app_id INTEGER,
		uuid BLOB,
		data BLOB,
		request_date REAL,
		request_last_date REAL,
		delivered_date REAL,
		presented BOOL,
		style INTEGER,
		snooze_fire_date REAL
	)`,
}

// FixtureRecord describes a row to insert into the record table
type FixtureRecord struct {
	RecID int64 // Becomes the ROWID
	AppID int64
	UUID  []byte
	Data  []byte
	Date  float64 // Used for all date columns
}

// InitSchema creates the app and record tables
func (s *SQLiteStore) InitSchema(ctx context.Context) error {
	if s.readOnly {
		return ErrReadOnly
	}

	for _, stmt := range schemaStatements {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("creating schema: %w", err)
		}
	}
	return nil
}

// InsertRecord inserts a row into the record table
func (s *SQLiteStore) InsertRecord(ctx context.Context, rec FixtureRecord) error {
	if s.readOnly {
		return ErrReadOnly
	}

	uuid := rec.UUID
	if uuid == nil {
		uuid = make([]byte, 16)
	}

	query, args, err := dialect.Insert(recordTable).Rows(goqu.Record{
		"rec_id":            rec.RecID,
		"app_id":            rec.AppID,
		"uuid":              uuid,
		"data":              rec.Data,
		"request_date":      rec.Date,
		"request_last_date": rec.Date,
		"delivered_date":    rec.Date,
		"presented":         true,
		"style":             0,
		"snooze_fire_date":  0.0,
	}).Prepared(true).ToSQL()
	if err != nil {
		return fmt.Errorf("building insert: %w", err)
	}

	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("inserting record %d: %w", rec.RecID, err)
	}
	return nil
}

// InsertApp inserts a row into the app table
func (s *SQLiteStore) InsertApp(ctx context.Context, appID int64, identifier string) error {
	if s.readOnly {
		return ErrReadOnly
	}

	query, args, err := dialect.Insert(appTable).Rows(goqu.Record{
		"app_id":     appID,
		"identifier": identifier,
	}).Prepared(true).ToSQL()
	if err != nil {
		return fmt.Errorf("building insert: %w", err)
	}

	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("inserting app %d: %w", appID, err)
	}
	return nil
}

// DeleteAllRecords removes every row of the record table, as dismissing all
// notifications does
func (s *SQLiteStore) DeleteAllRecords(ctx context.Context) error {
	if s.readOnly {
		return ErrReadOnly
	}

	query, args, err := dialect.Delete(recordTable).Prepared(true).ToSQL()
	if err != nil {
		return fmt.Errorf("building delete: %w", err)
	}

	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("deleting records: %w", err)
	}
	return nil
}

// DeleteRecord removes a single row
func (s *SQLiteStore) DeleteRecord(ctx context.Context, recID int64) error {
	if s.readOnly {
		return ErrReadOnly
	}

	query, args, err := dialect.Delete(recordTable).
		Where(goqu.C("rec_id").Eq(recID)).
		Prepared(true).
		ToSQL()
	if err != nil {
		return fmt.Errorf("building delete: %w", err)
	}

	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("deleting record %d: %w", recID, err)
	}
	return nil
}
