package store

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"os"
	"path/filepath"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/sqlite3"
	"github.com/mattn/go-sqlite3"
)

// SQLiteDriverName is the driver registered with a busy timeout connect hook
const SQLiteDriverName = "sqlite3_blurt"

const (
	recordTable   = "record"
	appTable      = "app"
	rowIDColumn   = "ROWID"
	busyTimeoutMS = 5000
)

func init() {
	// The notification daemon writes to the table while we read it
	sql.Register(SQLiteDriverName, &sqlite3.SQLiteDriver{
		ConnectHook: func(conn *sqlite3.SQLiteConn) error {
			_, err := conn.Exec(fmt.Sprintf("PRAGMA busy_timeout = %d", busyTimeoutMS), nil)
			return err
		},
	})
}

var dialect = goqu.Dialect("sqlite3")

// SQLiteStore reads the record table of a notification database
type SQLiteStore struct {
	path     string
	readOnly bool
	db       *sql.DB
}

// Open opens the database at path in read-only mode. The file is not
// required to exist yet; call Exists before the first query.
func Open(path string) (*SQLiteStore, error) {
	return open(path, true)
}

// OpenReadWrite opens (creating if needed) the database at path for writing.
// Only fixtures and tests write to the table.
func OpenReadWrite(path string) (*SQLiteStore, error) {
	return open(path, false)
}

func open(path string, readOnly bool) (*SQLiteStore, error) {
	dsn, err := buildDSN(path, readOnly)
	if err != nil {
		return nil, err
	}

	db, err := sql.Open(SQLiteDriverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite db: %w", err)
	}

	// The poller is the only user of the connection
	db.SetMaxOpenConns(1)

	return &SQLiteStore{
		path:     path,
		readOnly: readOnly,
		db:       db,
	}, nil
}

// buildDSN returns a SQLite URI filename with the requested access mode
func buildDSN(path string, readOnly bool) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("resolving %s: %w", path, err)
	}

	mode := "rwc"
	if readOnly {
		mode = "ro"
	}

	u := url.URL{
		Scheme:   "file",
		Path:     filepath.ToSlash(abs),
		RawQuery: "mode=" + mode,
	}
	return u.String(), nil
}

// Path returns the database file path
func (s *SQLiteStore) Path() string {
	return s.path
}

// ReadOnly reports whether the store was opened read-only
func (s *SQLiteStore) ReadOnly() bool {
	return s.readOnly
}

// Exists reports whether the database file is present
func (s *SQLiteStore) Exists() bool {
	info, err := os.Stat(s.path)
	if err != nil {
		return false
	}
	return !info.IsDir()
}

// DB exposes the underlying handle
func (s *SQLiteStore) DB() *sql.DB {
	return s.db
}

// Close closes the underlying database connection
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// MaxRowID returns MAX(ROWID) of the record table
func (s *SQLiteStore) MaxRowID(ctx context.Context) (int64, bool, error) {
	query, args, err := dialect.From(recordTable).
		Select(goqu.MAX(goqu.I(rowIDColumn))).
		Prepared(true).
		ToSQL()
	if err != nil {
		return 0, false, fmt.Errorf("building max rowid query: %w", err)
	}

	var maxID sql.NullInt64
	if err := s.db.QueryRowContext(ctx, query, args...).Scan(&maxID); err != nil {
		return 0, false, fmt.Errorf("querying max rowid: %w", err)
	}

	if !maxID.Valid {
		return 0, false, nil
	}
	return maxID.Int64, true, nil
}

// RecordsAfter returns all records with ROWID > id in ascending ROWID order
func (s *SQLiteStore) RecordsAfter(ctx context.Context, id int64) ([]Record, error) {
	query, args, err := dialect.From(recordTable).
		Select(goqu.I(rowIDColumn), goqu.C("data")).
		Where(goqu.I(rowIDColumn).Gt(id)).
		Order(goqu.I(rowIDColumn).Asc()).
		Prepared(true).
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("building records query: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying records after %d: %w", id, err)
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		var rec Record
		if err := rows.Scan(&rec.ID, &rec.Data); err != nil {
			return nil, fmt.Errorf("scanning record: %w", err)
		}
		records = append(records, rec)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating records: %w", err)
	}

	return records, nil
}
