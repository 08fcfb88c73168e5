package tests

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ncopendata/opibase/internal/catalog"
	"github.com/ncopendata/opibase/internal/engine"
	"github.com/ncopendata/opibase/internal/layout"
	"github.com/ncopendata/opibase/internal/sink"
	"github.com/ncopendata/opibase/internal/source"
)

// testFixture bundles the shared state for integration tests: a real
// on-disk data directory with descriptor and data files, the engine
// report, and an open handle on the produced SQLite database.
type testFixture struct {
	dbPath string
	db     *sql.DB
	report *engine.Report
}

const refDES = `NC Department of Adult Correction

Name                          Offender Profile

CMDORNUM    Offender Number            CHAR    1    7
CMFIRNAM    First Name                 CHAR    8    8
CMBIRTHD    Birth Date                 DATE   16   10
`

const depDES = `Name                          Financial Obligation

CDDORNUM    Offender Number            CHAR       1    7
CDAMOUNT    Obligation Amount          DECIMAL    8    8
CDDUEDAT    Due Date                   DATE      17   10
`

const refDAT = "" +
	"0000101JOHN    1980-04-01\n" +
	"0000102JANE    0001-01-01\n" + // zero date is null, row still accepted
	"       NOKEY   1990-01-01\n" + // blank required key, malformed
	"0000103BOB     1975-13-99\n" // impossible date, malformed

const depDAT = "" +
	"0000101  123.45 2024-01-15\n" +
	"0000101   67.00 2024-02-15\n" +
	"0000999   10.00 2024-03-15\n" + // orphan: 0000999 never in the profile
	"          50.00 2024-04-15\n" + // null key bypasses the orphan check
	"0101" // truncated tail, dropped with a tally

// setup writes a data directory in the published layout, replicates
// the CLI's registry wiring, and runs the full pipeline into a fresh
// SQLite database.
func setup(t *testing.T) *testFixture {
	t.Helper()

	dataDir := t.TempDir()
	writeFile := func(id, ext, content string) {
		require.NoError(t, os.MkdirAll(filepath.Join(dataDir, id), 0o755))
		require.NoError(t, os.WriteFile(
			filepath.Join(dataDir, id, id+ext), []byte(content), 0o644))
	}
	writeFile("OFNT3AA1", ".des", refDES)
	writeFile("OFNT3AA1", ".dat", refDAT)
	writeFile("OFNT1BA1", ".des", depDES)
	writeFile("OFNT1BA1", ".dat", depDAT)

	store := source.NewOSStore(dataDir)

	parse := func(id string) (*layout.RecordLayout, string) {
		des, err := store.Descriptor(id)
		require.NoError(t, err)
		l, err := layout.ParseDES(id, des)
		require.NoError(t, err)
		key := catalog.KeyField(l.FieldNames())
		require.NotEmpty(t, key, "no key field in %s", id)
		return l, key
	}

	ref, refKey := parse("OFNT3AA1")
	require.NoError(t, ref.WireKeys(refKey, nil))
	dep, depKey := parse("OFNT1BA1")
	require.NoError(t, dep.WireKeys(depKey, &layout.Ref{FileID: "OFNT3AA1", Field: refKey}))

	reg, err := layout.NewRegistry(ref, dep)
	require.NoError(t, err)

	dbPath := filepath.Join(t.TempDir(), "opi.db")
	out, err := sink.OpenSQLite(dbPath)
	require.NoError(t, err)

	eng := &engine.Engine{Registry: reg, Store: store, Sink: out, BatchSize: 3, Jobs: 2}
	report, err := eng.Run(context.Background(), "OFNT3AA1", []string{"OFNT1BA1"})
	require.NoError(t, err, "pipeline run failed")
	require.False(t, report.Fatal(), "failed files: %v", report.Failed())

	db, err := sql.Open("sqlite", dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	return &testFixture{dbPath: dbPath, db: db, report: report}
}

func (f *testFixture) count(t *testing.T, query string) int {
	t.Helper()
	var n int
	require.NoError(t, f.db.QueryRow(query).Scan(&n))
	return n
}

func TestIntegration_ReferenceOutcomes(t *testing.T) {
	fix := setup(t)

	ref := fix.report.Files[0]
	assert.Equal(t, "OFNT3AA1", ref.FileID)
	assert.Equal(t, 4, ref.RecordsRead)
	assert.Equal(t, 2, ref.Accepted)
	assert.Equal(t, 2, ref.RejectedMalformed)
	assert.Equal(t, 2, fix.report.Keys)

	assert.Equal(t, 2, fix.count(t, "SELECT COUNT(*) FROM offender_profile"))
}

func TestIntegration_DependentOutcomes(t *testing.T) {
	fix := setup(t)

	dep := fix.report.Files[1]
	assert.Equal(t, "OFNT1BA1", dep.FileID)
	assert.Equal(t, 4, dep.RecordsRead)
	assert.Equal(t, 3, dep.Accepted)
	assert.Equal(t, 1, dep.RejectedOrphan)
	assert.Equal(t, 1, dep.Truncated)

	assert.Equal(t, 3, fix.count(t, "SELECT COUNT(*) FROM financial_obligation"))
	assert.Equal(t, 0, fix.count(t,
		"SELECT COUNT(*) FROM financial_obligation WHERE CDDORNUM = '0000999'"),
		"orphan row must not land")
	assert.Equal(t, 1, fix.count(t,
		"SELECT COUNT(*) FROM financial_obligation WHERE CDDORNUM IS NULL"),
		"null-key row lands with a NULL foreign key")
}

func TestIntegration_TypedColumns(t *testing.T) {
	fix := setup(t)

	var amount float64
	require.NoError(t, fix.db.QueryRow(
		"SELECT CDAMOUNT FROM financial_obligation WHERE CDAMOUNT > 100").Scan(&amount))
	assert.Equal(t, 123.45, amount)

	// Dates land as ISO text; the zero date became NULL.
	var dob sql.NullString
	require.NoError(t, fix.db.QueryRow(
		"SELECT CMBIRTHD FROM offender_profile WHERE CMDORNUM = '0000101'").Scan(&dob))
	require.True(t, dob.Valid)
	assert.Equal(t, "1980-04-01", dob.String)

	require.NoError(t, fix.db.QueryRow(
		"SELECT CMBIRTHD FROM offender_profile WHERE CMDORNUM = '0000102'").Scan(&dob))
	assert.False(t, dob.Valid)
}

func TestIntegration_SchemaKeysDeclared(t *testing.T) {
	fix := setup(t)

	var ddl string
	require.NoError(t, fix.db.QueryRow(
		"SELECT sql FROM sqlite_master WHERE name = 'offender_profile'").Scan(&ddl))
	assert.Contains(t, ddl, `PRIMARY KEY ("CMDORNUM")`)

	require.NoError(t, fix.db.QueryRow(
		"SELECT sql FROM sqlite_master WHERE name = 'financial_obligation'").Scan(&ddl))
	assert.Contains(t, ddl, `FOREIGN KEY ("CDDORNUM") REFERENCES "offender_profile"("CMDORNUM")`)
}

func TestIntegration_Determinism(t *testing.T) {
	a := setup(t)
	b := setup(t)
	assert.Equal(t, a.report, b.report)
	assert.Equal(t,
		a.count(t, "SELECT COUNT(*) FROM financial_obligation"),
		b.count(t, "SELECT COUNT(*) FROM financial_obligation"))
}
