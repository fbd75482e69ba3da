package store

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"path/filepath"
	"slices"
	"testing"

	"github.com/roach88/ergo/internal/ir"
	"github.com/roach88/ergo/internal/signature"
)

// createTestStore opens a store in a temp dir, closed at cleanup.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func testSignature() ir.Signature {
	return ir.Signature{
		Kind: ir.TriggerLike,
		Inputs: []ir.PortSpec{
			{Name: "signal", Type: ir.TypeNumber, Cardinality: ir.Single},
		},
		Outputs: []ir.PortSpec{
			{Name: "event", Type: ir.TypeEvent, Cardinality: ir.Single, Wireable: true},
		},
	}
}

func TestOpen_CreatesNewDatabase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")

	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	defer s.Close()

	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Error("database file was not created")
	}
}

func TestOpen_Idempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")

	for i := 0; i < 3; i++ {
		s, err := Open(path)
		if err != nil {
			t.Fatalf("Open() iteration %d failed: %v", i, err)
		}
		s.Close()
	}

	s, err := Open(path)
	if err != nil {
		t.Fatalf("final Open() failed: %v", err)
	}
	defer s.Close()

	for _, table := range []string{"signatures", "runs"} {
		var name string
		err := s.db.QueryRow(
			"SELECT name FROM sqlite_master WHERE type='table' AND name=?",
			table,
		).Scan(&name)
		if err != nil {
			t.Errorf("table %q not found after idempotent opens: %v", table, err)
		}
	}
}

func TestOpen_InvalidPath(t *testing.T) {
	if _, err := Open("/nonexistent/dir/test.db"); err == nil {
		t.Error("expected error for invalid path, got nil")
	}
}

func TestClose_NilDB(t *testing.T) {
	s := &Store{db: nil}
	if err := s.Close(); err != nil {
		t.Errorf("Close() on nil db should not error: %v", err)
	}
}

func TestPragmas(t *testing.T) {
	s := createTestStore(t)

	tests := []struct{ name, want string }{
		{"journal_mode", "wal"},
		{"synchronous", "1"}, // NORMAL
		{"busy_timeout", "5000"},
		{"user_version", "1"},
	}
	for _, tt := range tests {
		if err := s.verifyPragma(tt.name, tt.want); err != nil {
			t.Error(err)
		}
	}
}

func TestSchema_Indexes(t *testing.T) {
	s := createTestStore(t)

	if !slices.Contains(getTableIndexes(t, s.db, "signatures"), "idx_signatures_hash") {
		t.Error("signatures table missing index idx_signatures_hash")
	}
	if !slices.Contains(getTableIndexes(t, s.db, "runs"), "idx_runs_cluster") {
		t.Error("runs table missing index idx_runs_cluster")
	}
}

func TestMigration_FromVersionZero(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	// Simulate a database written before the hash index existed.
	if _, err := s.db.Exec("DROP INDEX idx_signatures_hash"); err != nil {
		t.Fatalf("drop index: %v", err)
	}
	if _, err := s.db.Exec("PRAGMA user_version = 0"); err != nil {
		t.Fatalf("reset user_version: %v", err)
	}
	s.Close()

	s, err = Open(path)
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	defer s.Close()

	if !slices.Contains(getTableIndexes(t, s.db, "signatures"), "idx_signatures_hash") {
		t.Error("migration did not restore idx_signatures_hash")
	}
	if err := s.verifyPragma("user_version", "1"); err != nil {
		t.Error(err)
	}
}

func TestSignatures_GetPut(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	if _, ok, err := s.Get(ctx, "missing"); err != nil || ok {
		t.Fatalf("Get(missing) = ok %v, err %v; want miss", ok, err)
	}

	sig := testSignature()
	if err := s.Put(ctx, "k1", sig); err != nil {
		t.Fatalf("Put() failed: %v", err)
	}

	got, ok, err := s.Get(ctx, "k1")
	if err != nil || !ok {
		t.Fatalf("Get(k1) = ok %v, err %v; want hit", ok, err)
	}
	if signature.Hash(got) != signature.Hash(sig) {
		t.Errorf("Get(k1) = %+v, want %+v", got, sig)
	}
}

func TestSignatures_PutIsIdempotent(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	first := testSignature()
	second := testSignature()
	second.Kind = ir.ComputeLike

	if err := s.Put(ctx, "k1", first); err != nil {
		t.Fatalf("first Put() failed: %v", err)
	}
	if err := s.Put(ctx, "k1", second); err != nil {
		t.Fatalf("second Put() failed: %v", err)
	}

	got, _, _ := s.Get(ctx, "k1")
	if got.Kind != first.Kind {
		t.Errorf("Kind = %s, want first write %s", got.Kind, first.Kind)
	}
	n, err := s.Len(ctx)
	if err != nil || n != 1 {
		t.Errorf("Len() = %d, %v; want 1", n, err)
	}
}

func TestSignatures_SurviveReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")
	ctx := context.Background()

	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	if err := s.Put(ctx, "k1", testSignature()); err != nil {
		t.Fatalf("Put() failed: %v", err)
	}
	s.Close()

	s, err = Open(path)
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	defer s.Close()

	if _, ok, err := s.Get(ctx, "k1"); err != nil || !ok {
		t.Errorf("Get(k1) after reopen = ok %v, err %v", ok, err)
	}
}

func TestSignatures_KeysWithHash(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	sig := testSignature()

	for _, k := range []string{"kb", "ka"} {
		if err := s.Put(ctx, k, sig); err != nil {
			t.Fatalf("Put(%s) failed: %v", k, err)
		}
	}

	keys, err := s.KeysWithHash(ctx, signature.Hash(sig))
	if err != nil {
		t.Fatalf("KeysWithHash() failed: %v", err)
	}
	if !slices.Equal(keys, []string{"ka", "kb"}) {
		t.Errorf("KeysWithHash() = %v, want [ka kb]", keys)
	}

	keys, err = s.KeysWithHash(ctx, "nope")
	if err != nil || keys == nil || len(keys) != 0 {
		t.Errorf("KeysWithHash(nope) = %#v, %v; want empty slice", keys, err)
	}
}

func TestRuns_WriteRead(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	seq, err := s.WriteRun(ctx, Run{
		RunID:     "r1",
		ClusterID: "hello_world",
		Version:   "1.0.0",
		Status:    RunOK,
		Report:    []byte(`{"outputs":{}}`),
	})
	if err != nil {
		t.Fatalf("WriteRun() failed: %v", err)
	}
	if seq != 1 {
		t.Errorf("seq = %d, want 1", seq)
	}

	got, err := s.ReadRun(ctx, "r1")
	if err != nil {
		t.Fatalf("ReadRun() failed: %v", err)
	}
	if got.Status != RunOK || string(got.Report) != `{"outputs":{}}` || got.Seq != 1 {
		t.Errorf("ReadRun() = %+v", got)
	}

	if _, err := s.ReadRun(ctx, "missing"); !errors.Is(err, ErrRunNotFound) {
		t.Errorf("ReadRun(missing) error = %v, want ErrRunNotFound", err)
	}
}

func TestRuns_WriteIsIdempotent(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	r := Run{RunID: "r1", ClusterID: "c", Version: "1.0.0", Status: RunFailed, Error: "boom"}

	first, err := s.WriteRun(ctx, r)
	if err != nil {
		t.Fatalf("WriteRun() failed: %v", err)
	}
	r.Status = RunOK
	second, err := s.WriteRun(ctx, r)
	if err != nil {
		t.Fatalf("second WriteRun() failed: %v", err)
	}
	if first != second {
		t.Errorf("seq changed on rewrite: %d != %d", first, second)
	}

	got, _ := s.ReadRun(ctx, "r1")
	if got.Status != RunFailed || got.Error != "boom" || got.Report != nil {
		t.Errorf("ReadRun() = %+v, want first record", got)
	}
}

func TestRuns_ListOrdersBySeq(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	for _, r := range []Run{
		{RunID: "z", ClusterID: "a", Version: "1.0.0", Status: RunOK},
		{RunID: "y", ClusterID: "b", Version: "1.0.0", Status: RunInvalid},
		{RunID: "x", ClusterID: "a", Version: "1.0.0", Status: RunFailed},
	} {
		if _, err := s.WriteRun(ctx, r); err != nil {
			t.Fatalf("WriteRun(%s) failed: %v", r.RunID, err)
		}
	}

	all, err := s.ListRuns(ctx, "", "")
	if err != nil {
		t.Fatalf("ListRuns() failed: %v", err)
	}
	if ids := runIDs(all); !slices.Equal(ids, []string{"z", "y", "x"}) {
		t.Errorf("ListRuns() = %v, want [z y x]", ids)
	}

	a, err := s.ListRuns(ctx, "a", "1.0.0")
	if err != nil {
		t.Fatalf("ListRuns(a) failed: %v", err)
	}
	if ids := runIDs(a); !slices.Equal(ids, []string{"z", "x"}) {
		t.Errorf("ListRuns(a) = %v, want [z x]", ids)
	}

	none, err := s.ListRuns(ctx, "a", "2.0.0")
	if err != nil || none == nil || len(none) != 0 {
		t.Errorf("ListRuns(a@2.0.0) = %#v, %v; want empty slice", none, err)
	}
}

func runIDs(runs []Run) []string {
	var ids []string
	for _, r := range runs {
		ids = append(ids, r.RunID)
	}
	return ids
}

func getTableIndexes(t *testing.T, db *sql.DB, table string) []string {
	t.Helper()

	rows, err := db.Query("SELECT name FROM sqlite_master WHERE type='index' AND tbl_name=?", table)
	if err != nil {
		t.Fatalf("failed to get indexes for %q: %v", table, err)
	}
	defer rows.Close()

	var indexes []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			t.Fatalf("failed to scan index name: %v", err)
		}
		indexes = append(indexes, name)
	}
	return indexes
}
