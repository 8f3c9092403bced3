package db

import (
	"database/sql"
	"testing"

	_ "github.com/mattn/go-sqlite3"
)

func tableColumns(t *testing.T, conn *sql.DB, table string) map[string]bool {
	t.Helper()
	rows, err := conn.Query("PRAGMA table_info(" + table + ")")
	if err != nil {
		t.Fatalf("pragmas: %v", err)
	}
	defer rows.Close()
	cols := map[string]bool{}
	for rows.Next() {
		var cid int
		var colName, ctype string
		var notnull, pk int
		var dfltVal interface{}
		if err := rows.Scan(&cid, &colName, &ctype, &notnull, &dfltVal, &pk); err != nil {
			t.Fatalf("scan col: %v", err)
		}
		cols[colName] = true
	}
	return cols
}

// TestInitDBCreatesSchema verifies InitDB creates every table the importer
// writes to, including the full-text table.
func TestInitDBCreatesSchema(t *testing.T) {
	dbConn, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	defer dbConn.Close()
	dbConn.SetMaxOpenConns(1)

	if err := InitDB(dbConn); err != nil {
		t.Fatalf("InitDB failed: %v", err)
	}

	for _, table := range []string{
		"dictionary_entries", "kanji", "reading", "senses", "examples",
		"fields", "sense_field_refs", "kanji_entries", "kanji_readings", "dictionary_fts",
	} {
		var name string
		if err := dbConn.QueryRow("SELECT name FROM sqlite_master WHERE name = ?", table).Scan(&name); err != nil {
			t.Fatalf("%s table missing: %v", table, err)
		}
	}

	cols := tableColumns(t, dbConn, "senses")
	for _, c := range []string{"entry_id", "position", "pos", "glosses", "s_inf"} {
		if !cols[c] {
			t.Fatalf("expected column %s in senses, got %v", c, cols)
		}
	}
}

func TestInitDBIsRepeatable(t *testing.T) {
	conn, err := Open(MemoryPath)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer conn.Close()
	if err := InitDB(conn); err != nil {
		t.Fatalf("second InitDB failed: %v", err)
	}
}

func TestOpenEnablesForeignKeys(t *testing.T) {
	conn, err := Open(MemoryPath)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer conn.Close()
	var on int
	if err := conn.QueryRow("PRAGMA foreign_keys").Scan(&on); err != nil {
		t.Fatalf("pragma: %v", err)
	}
	if on != 1 {
		t.Fatalf("expected foreign_keys=1, got %d", on)
	}
}

func TestDSN(t *testing.T) {
	if got := DSN(MemoryPath); got != ":memory:?_foreign_keys=1" {
		t.Errorf("DSN(memory) = %q", got)
	}
	if got := DSN("/tmp/x.db"); got != "/tmp/x.db?_foreign_keys=1&_busy_timeout=5000&_journal_mode=WAL" {
		t.Errorf("DSN(file) = %q", got)
	}
}
