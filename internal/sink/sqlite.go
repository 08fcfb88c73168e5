package sink

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"

	_ "modernc.org/sqlite"
)

// SQLite writes tables and rows into a single SQLite database file.
//
// SQLite serializes writers anyway, so a mutex guards the write path;
// concurrent file workers queue here rather than fighting over the
// database lock. Each batch is one transaction.
type SQLite struct {
	db *sql.DB

	mu      sync.Mutex
	inserts map[string]string // table → prepared INSERT SQL
}

// OpenSQLite opens (or creates) the database file and applies the
// bulk-load pragmas: WAL journaling with NORMAL sync is the tuning
// that held up on the multi-hundred-MB source files, and foreign keys
// are enforced so the schema's declared integrity is real.
func OpenSQLite(path string) (*SQLite, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}
	for _, pragma := range []string{
		"PRAGMA foreign_keys = ON",
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("%s: %w", pragma, err)
		}
	}
	return &SQLite{db: db, inserts: make(map[string]string)}, nil
}

// CreateTable builds and executes the DDL for a table, declaring its
// primary and foreign keys. CREATE TABLE IF NOT EXISTS keeps the call
// idempotent.
func (s *SQLite) CreateTable(ctx context.Context, t Table) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	parts := make([]string, 0, len(t.Columns)+1+len(t.ForeignKeys))
	for _, c := range t.Columns {
		parts = append(parts, fmt.Sprintf("%s %s", quoteIdent(c.Name), c.Type))
	}
	if len(t.PrimaryKey) > 0 {
		cols := make([]string, len(t.PrimaryKey))
		for i, c := range t.PrimaryKey {
			cols[i] = quoteIdent(c)
		}
		parts = append(parts, fmt.Sprintf("PRIMARY KEY (%s)", strings.Join(cols, ", ")))
	}
	for _, fk := range t.ForeignKeys {
		parts = append(parts, fmt.Sprintf("FOREIGN KEY (%s) REFERENCES %s(%s)",
			quoteIdent(fk.Column), quoteIdent(fk.RefTable), quoteIdent(fk.RefColumn)))
	}

	ddl := fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (%s)", quoteIdent(t.Name), strings.Join(parts, ", "))
	if _, err := s.db.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("create table %s: %w", t.Name, err)
	}

	cols := make([]string, len(t.Columns))
	marks := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		cols[i] = quoteIdent(c.Name)
		marks[i] = "?"
	}
	s.inserts[t.Name] = fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		quoteIdent(t.Name), strings.Join(cols, ", "), strings.Join(marks, ", "))
	return nil
}

// InsertBatch writes all rows in one transaction. Any row failure
// rolls the whole batch back.
func (s *SQLite) InsertBatch(ctx context.Context, table string, rows []Row) error {
	if len(rows) == 0 {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	insertSQL, ok := s.inserts[table]
	if !ok {
		return fmt.Errorf("insert into %s: table was never created", table)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin batch for %s: %w", table, err)
	}
	stmt, err := tx.PrepareContext(ctx, insertSQL)
	if err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("prepare insert for %s: %w", table, err)
	}
	for i, row := range rows {
		if _, err := stmt.ExecContext(ctx, row...); err != nil {
			_ = stmt.Close()
			_ = tx.Rollback()
			return fmt.Errorf("insert row %d into %s: %w", i, table, err)
		}
	}
	_ = stmt.Close()
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit batch for %s: %w", table, err)
	}
	return nil
}

// Finalize compacts statistics and closes the database.
func (s *SQLite) Finalize(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.db.ExecContext(ctx, "PRAGMA optimize"); err != nil {
		_ = s.db.Close()
		return fmt.Errorf("optimize: %w", err)
	}
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("close database: %w", err)
	}
	return nil
}

// DB exposes the underlying handle for tests and ad hoc queries.
func (s *SQLite) DB() *sql.DB { return s.db }

// quoteIdent double-quotes an identifier. Field codes and table names
// come from descriptors, not users, but quoting keeps reserved words
// safe.
func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

var _ Sink = (*SQLite)(nil)
