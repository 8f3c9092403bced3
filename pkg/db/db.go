package db

import (
	"database/sql"
	_ "embed"
	"strings"

	_ "github.com/mattn/go-sqlite3"
	"github.com/pkg/errors"
)

//go:embed schema.sql
var migrationsSQL string

// MemoryPath opens a private in-memory database.
const MemoryPath = ":memory:"

// InitDB runs migrations on the given DB connection using the embedded SQL.
func InitDB(db *sql.DB) error {
	stmts := strings.Split(migrationsSQL, ";")
	for _, s := range stmts {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		if _, err := db.Exec(s); err != nil {
			return errors.Wrapf(err, "migrate: %.40s", s)
		}
	}
	return nil
}

// DSN builds the go-sqlite3 connection string for path. Foreign keys are
// enforced on every connection; file databases also get WAL and a busy
// timeout so the two corpus pipelines can write to the same file.
func DSN(path string) string {
	params := []string{"_foreign_keys=1"}
	if path != MemoryPath {
		params = append(params, "_busy_timeout=5000", "_journal_mode=WAL")
	}
	return path + "?" + strings.Join(params, "&")
}

// Open opens the database at path and applies the schema.
func Open(path string) (*sql.DB, error) {
	conn, err := sql.Open("sqlite3", DSN(path))
	if err != nil {
		return nil, errors.Wrap(err, "open sqlite")
	}
	if path == MemoryPath {
		// Ensure single connection to avoid separate in-memory DBs per connection.
		conn.SetMaxOpenConns(1)
	}
	if err := InitDB(conn); err != nil {
		conn.Close()
		return nil, err
	}
	return conn, nil
}
