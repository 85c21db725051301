package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedTime = time.Date(2026, 3, 4, 5, 6, 7, 0, time.UTC)

// createTestStore opens a fresh store with deterministic IDs and time.
func createTestStore(t *testing.T, ids ...string) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "history.db")

	s, err := Open(path, WithIDGenerator(NewFixedGenerator(ids...)), WithClock(FixedClock(fixedTime)))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

// ============================================================================
// Open
// ============================================================================

func TestOpen_CreatesNewDatabase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")

	s, err := Open(path)
	require.NoError(t, err)
	defer s.Close()

	_, err = os.Stat(path)
	assert.NoError(t, err, "database file was not created")
}

func TestOpen_Idempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")

	for i := 0; i < 3; i++ {
		s, err := Open(path)
		require.NoError(t, err, "Open() iteration %d", i)
		s.Close()
	}

	s, err := Open(path)
	require.NoError(t, err)
	defer s.Close()

	for _, table := range []string{"runs", "run_mismatches"} {
		var name string
		err := s.db.QueryRow(
			"SELECT name FROM sqlite_master WHERE type='table' AND name=?",
			table,
		).Scan(&name)
		assert.NoError(t, err, "table %q not found after idempotent opens", table)
	}
}

func TestOpen_AppliesPragmas(t *testing.T) {
	s := createTestStore(t)

	assert.NoError(t, s.verifyPragma("journal_mode", "wal"))
	assert.NoError(t, s.verifyPragma("foreign_keys", "1"))
	assert.NoError(t, s.verifyPragma("busy_timeout", "5000"))
	assert.NoError(t, s.verifyPragma("user_version", "1"))
}

func TestOpen_MigratesDocumentColumns(t *testing.T) {
	s := createTestStore(t)

	for _, column := range []string{"subject_doc", "expectation_doc"} {
		ok, err := hasColumn(s.db, "runs", column)
		require.NoError(t, err)
		assert.True(t, ok, "column %s missing", column)
	}
}

func TestOpen_InvalidPath(t *testing.T) {
	_, err := Open(filepath.Join(t.TempDir(), "missing", "dir", "test.db"))
	assert.Error(t, err)
}

// ============================================================================
// WriteRun / ReadRun
// ============================================================================

func TestWriteRun_AssignsIDSeqAndTime(t *testing.T) {
	s := createTestStore(t, "run-1", "run-2")
	ctx := context.Background()

	first, err := s.WriteRun(ctx, Run{Name: "orders", Equivalent: true})
	require.NoError(t, err)
	second, err := s.WriteRun(ctx, Run{Name: "orders"})
	require.NoError(t, err)

	assert.Equal(t, "run-1", first.ID)
	assert.Equal(t, int64(1), first.Seq)
	assert.Equal(t, "run-2", second.ID)
	assert.Equal(t, int64(2), second.Seq)
	assert.True(t, fixedTime.Equal(first.RecordedAt))
	assert.JSONEq(t, `{}`, string(first.Options))

	seq, err := s.LastSeq(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), seq)
}

func TestWriteRun_RoundTrip(t *testing.T) {
	s := createTestStore(t, "run-1")
	ctx := context.Background()

	written, err := s.WriteRun(ctx, Run{
		Name:           "people",
		Subject:        "actual.json",
		Expectation:    "expected.yaml",
		Options:        json.RawMessage(`{"ignore_case":true}`),
		Mismatches:     []MismatchRecord{{Path: "Name", Message: "first"}, {Path: "Age", Message: "second"}},
		SubjectDoc:     `{"Name":"Ann"}`,
		ExpectationDoc: `{"Name":"Bob"}`,
	})
	require.NoError(t, err)

	got, err := s.ReadRun(ctx, written.ID)
	require.NoError(t, err)

	assert.Equal(t, "people", got.Name)
	assert.Equal(t, "actual.json", got.Subject)
	assert.Equal(t, "expected.yaml", got.Expectation)
	assert.JSONEq(t, `{"ignore_case":true}`, string(got.Options))
	assert.False(t, got.Equivalent)
	assert.Equal(t, []MismatchRecord{{Path: "Name", Message: "first"}, {Path: "Age", Message: "second"}}, got.Mismatches)
	assert.Equal(t, `{"Name":"Ann"}`, got.SubjectDoc)
	assert.Equal(t, `{"Name":"Bob"}`, got.ExpectationDoc)
	assert.True(t, fixedTime.Equal(got.RecordedAt))
}

func TestWriteRun_RejectsInvalidOptions(t *testing.T) {
	s := createTestStore(t, "run-1")

	_, err := s.WriteRun(context.Background(), Run{Options: json.RawMessage(`{`)})
	assert.Error(t, err)
}

func TestWriteRun_DuplicateIDRollsBack(t *testing.T) {
	s := createTestStore(t, "same", "same")
	ctx := context.Background()

	_, err := s.WriteRun(ctx, Run{Name: "a"})
	require.NoError(t, err)
	_, err = s.WriteRun(ctx, Run{Name: "b", Mismatches: []MismatchRecord{{Path: "X", Message: "m"}}})
	require.Error(t, err)

	var count int
	require.NoError(t, s.db.QueryRow("SELECT COUNT(*) FROM run_mismatches").Scan(&count))
	assert.Zero(t, count)
}

func TestReadRun_NotFound(t *testing.T) {
	s := createTestStore(t)

	_, err := s.ReadRun(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrRunNotFound)
}

func TestDeleteRun_CascadesMismatches(t *testing.T) {
	s := createTestStore(t, "run-1")
	ctx := context.Background()

	run, err := s.WriteRun(ctx, Run{Mismatches: []MismatchRecord{{Path: "A", Message: "m"}}})
	require.NoError(t, err)
	require.NoError(t, s.DeleteRun(ctx, run.ID))

	_, err = s.ReadRun(ctx, run.ID)
	assert.ErrorIs(t, err, ErrRunNotFound)

	var count int
	require.NoError(t, s.db.QueryRow("SELECT COUNT(*) FROM run_mismatches").Scan(&count))
	assert.Zero(t, count)
}

// ============================================================================
// ListRuns
// ============================================================================

func TestListRuns_OrderedBySeq(t *testing.T) {
	s := createTestStore(t, "c", "a", "b")
	ctx := context.Background()

	for _, name := range []string{"one", "two", "one"} {
		_, err := s.WriteRun(ctx, Run{Name: name, Equivalent: name == "two"})
		require.NoError(t, err)
	}

	all, err := s.ListRuns(ctx, ListFilter{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, []string{"c", "a", "b"}, []string{all[0].ID, all[1].ID, all[2].ID})

	named, err := s.ListRuns(ctx, ListFilter{Name: "one"})
	require.NoError(t, err)
	assert.Len(t, named, 2)

	failed, err := s.ListRuns(ctx, ListFilter{FailedOnly: true})
	require.NoError(t, err)
	assert.Len(t, failed, 2)

	last, err := s.ListRuns(ctx, ListFilter{Limit: 2})
	require.NoError(t, err)
	require.Len(t, last, 2)
	assert.Equal(t, "a", last[0].ID)
	assert.Equal(t, "b", last[1].ID)
}

func TestListRuns_EmptyIsNotNil(t *testing.T) {
	s := createTestStore(t)

	runs, err := s.ListRuns(context.Background(), ListFilter{})
	require.NoError(t, err)
	assert.NotNil(t, runs)
	assert.Empty(t, runs)
}

// ============================================================================
// Records / Source
// ============================================================================

func TestStore_Records(t *testing.T) {
	s := createTestStore(t, "run-1")
	ctx := context.Background()

	_, err := s.WriteRun(ctx, Run{Name: "orders", Equivalent: true})
	require.NoError(t, err)

	records, err := s.Records(ctx, "SELECT id, name, equivalent FROM runs WHERE name = ?", "orders")
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "run-1", records[0]["id"])
	assert.Equal(t, int64(1), records[0]["equivalent"])
}

func TestOpenSource_ReadsRecords(t *testing.T) {
	path := filepath.Join(t.TempDir(), "source.db")
	db, err := sql.Open("sqlite3", path)
	require.NoError(t, err)
	_, err = db.Exec(`
		CREATE TABLE people (name TEXT, age INTEGER, avatar BLOB);
		INSERT INTO people VALUES ('Ann', 41, x'6869'), ('Bob', NULL, NULL);
	`)
	require.NoError(t, err)
	require.NoError(t, db.Close())

	src, err := OpenSource(path)
	require.NoError(t, err)
	defer src.Close()

	records, err := src.Records(context.Background(), "SELECT name, age, avatar FROM people ORDER BY name")
	require.NoError(t, err)
	assert.Equal(t, []map[string]any{
		{"name": "Ann", "age": int64(41), "avatar": "hi"},
		{"name": "Bob", "age": nil, "avatar": nil},
	}, records)

	_, err = src.Records(context.Background(), "DELETE FROM people")
	assert.Error(t, err, "source must be read-only")
}

func TestOpenSource_MissingFile(t *testing.T) {
	_, err := OpenSource(filepath.Join(t.TempDir(), "missing.db"))
	assert.Error(t, err)
}

// ============================================================================
// IDs
// ============================================================================

func TestFixedGenerator_Exhausted(t *testing.T) {
	g := NewFixedGenerator("only")
	assert.Equal(t, "only", g.Generate())
	assert.Panics(t, func() { g.Generate() })
}

func TestUUIDv7Generator_Sortable(t *testing.T) {
	g := UUIDv7Generator{}
	a := g.Generate()
	b := g.Generate()

	assert.Len(t, a, 36)
	assert.NotEqual(t, a, b)
}
