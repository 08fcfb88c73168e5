// Package sink is the relational output boundary. The engine only
// needs three operations — create a table with declared keys, insert a
// batch atomically, finalize — so anything that can do those can be a
// destination. The shipped implementation writes SQLite.
package sink

import "context"

// ColumnType is the relational type of a column.
type ColumnType int

const (
	TypeText ColumnType = iota
	TypeInteger
	TypeReal
)

func (t ColumnType) String() string {
	switch t {
	case TypeInteger:
		return "INTEGER"
	case TypeReal:
		return "REAL"
	}
	return "TEXT"
}

// Column is one table column.
type Column struct {
	Name string
	Type ColumnType
}

// ForeignKey declares a reference from one column to another table.
type ForeignKey struct {
	Column    string
	RefTable  string
	RefColumn string
}

// Table is a relational table definition, derived 1:1 from a record
// layout before any rows are inserted.
type Table struct {
	Name        string
	Columns     []Column
	PrimaryKey  []string
	ForeignKeys []ForeignKey
}

// Row is one row's values in column order. Values are nil, string,
// int64, float64, or a driver-convertible type such as time.Time.
type Row []any

// Sink accepts table definitions and batched rows.
//
// CreateTable is idempotent-safe: creating a table that already exists
// with the same definition is not an error. InsertBatch is atomic:
// either every row in the batch commits or none does. Finalize is
// called exactly once, after all files are processed.
type Sink interface {
	CreateTable(ctx context.Context, t Table) error
	InsertBatch(ctx context.Context, table string, rows []Row) error
	Finalize(ctx context.Context) error
}
