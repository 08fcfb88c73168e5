package sink

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testTable() Table {
	return Table{
		Name: "offender_profile",
		Columns: []Column{
			{Name: "CMDORNUM", Type: TypeText},
			{Name: "CMWEIGHT", Type: TypeReal},
		},
		PrimaryKey: []string{"CMDORNUM"},
	}
}

func openTestDB(t *testing.T) (*SQLite, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := OpenSQLite(path)
	require.NoError(t, err)
	return s, path
}

func TestCreateTableAndInsert(t *testing.T) {
	ctx := context.Background()
	s, path := openTestDB(t)

	require.NoError(t, s.CreateTable(ctx, testTable()))
	// Idempotent.
	require.NoError(t, s.CreateTable(ctx, testTable()))

	rows := []Row{
		{"A1", 180.5},
		{"A2", nil},
	}
	require.NoError(t, s.InsertBatch(ctx, "offender_profile", rows))
	require.NoError(t, s.Finalize(ctx))

	db, err := sql.Open("sqlite", path)
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	var n int
	require.NoError(t, db.QueryRow("SELECT COUNT(*) FROM offender_profile").Scan(&n))
	assert.Equal(t, 2, n)

	var w sql.NullFloat64
	require.NoError(t, db.QueryRow("SELECT CMWEIGHT FROM offender_profile WHERE CMDORNUM = 'A1'").Scan(&w))
	require.True(t, w.Valid)
	assert.Equal(t, 180.5, w.Float64)
}

func TestInsertBatchAtomic(t *testing.T) {
	ctx := context.Background()
	s, path := openTestDB(t)
	require.NoError(t, s.CreateTable(ctx, testTable()))

	// The duplicate primary key fails mid-batch; the earlier rows must
	// not survive.
	rows := []Row{
		{"A1", 1.0},
		{"A2", 2.0},
		{"A1", 3.0},
	}
	err := s.InsertBatch(ctx, "offender_profile", rows)
	require.Error(t, err)
	require.NoError(t, s.Finalize(ctx))

	db, err := sql.Open("sqlite", path)
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	var n int
	require.NoError(t, db.QueryRow("SELECT COUNT(*) FROM offender_profile").Scan(&n))
	assert.Equal(t, 0, n, "failed batch must leave no rows behind")
}

func TestInsertBatchUnknownTable(t *testing.T) {
	ctx := context.Background()
	s, _ := openTestDB(t)
	defer func() { _ = s.Finalize(ctx) }()

	err := s.InsertBatch(ctx, "never_created", []Row{{"x"}})
	assert.Error(t, err)
}

func TestForeignKeyDeclared(t *testing.T) {
	ctx := context.Background()
	s, path := openTestDB(t)

	require.NoError(t, s.CreateTable(ctx, testTable()))
	dep := Table{
		Name: "financial_obligation",
		Columns: []Column{
			{Name: "CDDORNUM", Type: TypeText},
			{Name: "AMOUNT", Type: TypeReal},
		},
		ForeignKeys: []ForeignKey{
			{Column: "CDDORNUM", RefTable: "offender_profile", RefColumn: "CMDORNUM"},
		},
	}
	require.NoError(t, s.CreateTable(ctx, dep))
	require.NoError(t, s.Finalize(ctx))

	db, err := sql.Open("sqlite", path)
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	var ddl string
	require.NoError(t, db.QueryRow(
		"SELECT sql FROM sqlite_master WHERE name = 'financial_obligation'").Scan(&ddl))
	assert.Contains(t, ddl, `FOREIGN KEY ("CDDORNUM") REFERENCES "offender_profile"("CMDORNUM")`)
}

func TestInsertEmptyBatch(t *testing.T) {
	ctx := context.Background()
	s, _ := openTestDB(t)
	defer func() { _ = s.Finalize(ctx) }()

	assert.NoError(t, s.InsertBatch(ctx, "anything", nil))
}
