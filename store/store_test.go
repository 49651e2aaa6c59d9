//go:build cgo

package store

import (
	"context"
	"database/sql"
	"errors"
	"math"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	s, err := New(dbPath, 3) // dim=3 for test vectors
	if err != nil {
		t.Fatalf("creating store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// ---------------------------------------------------------------------------
// Schema / construction
// ---------------------------------------------------------------------------

func TestNew(t *testing.T) {
	s := newTestStore(t)
	if s.EmbeddingDim() != 3 {
		t.Fatalf("expected embedding dim 3, got %d", s.EmbeddingDim())
	}
	if s.DB() == nil {
		t.Fatal("expected non-nil *sql.DB")
	}
}

func TestNewCreatesParentDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "sub", "dir")
	s, err := New(filepath.Join(dir, "test.db"), 3)
	if err != nil {
		t.Fatalf("creating store in nested dir: %v", err)
	}
	s.Close()
}

func TestMigrationsApplied(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	v, err := s.SchemaVersion(ctx)
	if err != nil {
		t.Fatalf("SchemaVersion: %v", err)
	}
	if want := migrations[len(migrations)-1].version; v != want {
		t.Errorf("schema version = %d, want %d", v, want)
	}

	// Re-running is a no-op.
	if err := s.Migrate(ctx); err != nil {
		t.Fatalf("second Migrate: %v", err)
	}
	var n int
	s.DB().QueryRow("SELECT COUNT(*) FROM schema_version").Scan(&n)
	if n != len(migrations) {
		t.Errorf("schema_version rows = %d, want %d", n, len(migrations))
	}
}

// ---------------------------------------------------------------------------
// Runs
// ---------------------------------------------------------------------------

func sampleRun(id string) Run {
	return Run{
		ID:             id,
		RawDir:         "data/raw",
		OutputDir:      "data/processed",
		FilterMode:     "all",
		TestRuns:       4,
		FaultClasses:   2,
		FeatureColumns: 43680,
		Sensors:        []string{"CE", "PS1", "TS1"},
		Outputs:        []string{"data/processed/sensors.csv"},
		DurationMs:     1200,
	}
}

func sampleTests(embeddings ...[]float32) []TestRun {
	tests := make([]TestRun, len(embeddings))
	for i, e := range embeddings {
		fid := 0
		if i%2 == 1 {
			fid = 1
		}
		tests[i] = TestRun{
			RowIndex:  i,
			CoolerEff: fid,
			ValvePerc: fid,
			PumpLeak:  fid,
			AccuPrs:   fid,
			FaultID:   fid,
			Stats: []SensorStat{
				{Sensor: "CE", Mean: 40, StdDev: 1, Min: 38, Max: 42},
				{Sensor: "PS1", Mean: 150, StdDev: 2, Min: 145, Max: 155},
			},
			Embedding: e,
		}
	}
	return tests
}

func sampleClasses() []FaultClass {
	return []FaultClass{
		{FaultID: 0, TestRuns: 2},
		{FaultID: 1, CoolerEff: 1, ValvePerc: 1, PumpLeak: 1, AccuPrs: 1, TestRuns: 2},
	}
}

func saveSample(t *testing.T, s *Store, id string) {
	t.Helper()
	tests := sampleTests(
		[]float32{0, 0, 0},
		[]float32{1, 0, 0},
		[]float32{5, 0, 0},
		[]float32{0.5, 0, 0},
	)
	if err := s.SaveRun(context.Background(), sampleRun(id), sampleClasses(), tests); err != nil {
		t.Fatalf("SaveRun(%s): %v", id, err)
	}
}

func TestSaveAndGetRun(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	saveSample(t, s, "run-1")

	got, err := s.GetRun(ctx, "run-1")
	if err != nil {
		t.Fatalf("GetRun: %v", err)
	}
	want := sampleRun("run-1")
	if got.FilterMode != want.FilterMode || got.TestRuns != want.TestRuns ||
		got.FeatureColumns != want.FeatureColumns || got.DurationMs != want.DurationMs {
		t.Errorf("GetRun = %+v", got)
	}
	if !reflect.DeepEqual(got.Sensors, want.Sensors) {
		t.Errorf("Sensors = %v, want %v", got.Sensors, want.Sensors)
	}
	if !reflect.DeepEqual(got.Outputs, want.Outputs) {
		t.Errorf("Outputs = %v, want %v", got.Outputs, want.Outputs)
	}
	if got.Status != "complete" {
		t.Errorf("Status = %q, want complete", got.Status)
	}
	if got.CreatedAt == "" {
		t.Error("CreatedAt not set")
	}
}

func TestGetRunNotFound(t *testing.T) {
	s := newTestStore(t)
	if _, err := s.GetRun(context.Background(), "nope"); !errors.Is(err, sql.ErrNoRows) {
		t.Errorf("expected sql.ErrNoRows, got %v", err)
	}
}

func TestSaveRunDuplicateRollsBack(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	saveSample(t, s, "run-1")

	if err := s.SaveRun(ctx, sampleRun("run-1"), nil, nil); err == nil {
		t.Fatal("expected error for duplicate run id")
	}
	stats, err := s.DBStats(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if stats.Runs != 1 || stats.TestRuns != 4 {
		t.Errorf("unexpected counts after failed save: %+v", stats)
	}
}

func TestSaveRunEmbeddingDimension(t *testing.T) {
	s := newTestStore(t)
	tests := sampleTests([]float32{1, 2})
	if err := s.SaveRun(context.Background(), sampleRun("run-1"), nil, tests); err == nil {
		t.Fatal("expected error for wrong embedding dimension")
	}
	if _, err := s.GetRun(context.Background(), "run-1"); !errors.Is(err, sql.ErrNoRows) {
		t.Errorf("run should not exist after rollback, got %v", err)
	}
}

func TestListRuns(t *testing.T) {
	s := newTestStore(t)
	saveSample(t, s, "run-1")
	saveSample(t, s, "run-2")

	runs, err := s.ListRuns(context.Background())
	if err != nil {
		t.Fatalf("ListRuns: %v", err)
	}
	if len(runs) != 2 {
		t.Fatalf("expected 2 runs, got %d", len(runs))
	}
	if runs[0].ID != "run-2" {
		t.Errorf("expected newest run first, got %s", runs[0].ID)
	}
}

func TestDeleteRun(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	saveSample(t, s, "run-1")
	saveSample(t, s, "run-2")

	if err := s.DeleteRun(ctx, "run-1"); err != nil {
		t.Fatalf("DeleteRun: %v", err)
	}
	stats, err := s.DBStats(ctx)
	if err != nil {
		t.Fatal(err)
	}
	want := DBStats{Runs: 1, FaultClasses: 2, TestRuns: 4, SensorStats: 8, Embeddings: 4}
	if *stats != want {
		t.Errorf("counts after delete = %+v, want %+v", *stats, want)
	}
	if err := s.DeleteRun(ctx, "run-1"); !errors.Is(err, sql.ErrNoRows) {
		t.Errorf("second DeleteRun: expected sql.ErrNoRows, got %v", err)
	}
}

// ---------------------------------------------------------------------------
// Fault classes and test runs
// ---------------------------------------------------------------------------

func TestFaultClasses(t *testing.T) {
	s := newTestStore(t)
	saveSample(t, s, "run-1")

	classes, err := s.FaultClasses(context.Background(), "run-1")
	if err != nil {
		t.Fatalf("FaultClasses: %v", err)
	}
	if len(classes) != 2 {
		t.Fatalf("expected 2 classes, got %d", len(classes))
	}
	if classes[1].FaultID != 1 || classes[1].CoolerEff != 1 || classes[1].RunID != "run-1" {
		t.Errorf("unexpected class: %+v", classes[1])
	}
}

func TestGetTestRun(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	saveSample(t, s, "run-1")

	tr, err := s.GetTestRun(ctx, "run-1", 3)
	if err != nil {
		t.Fatalf("GetTestRun: %v", err)
	}
	if tr.RowIndex != 3 || tr.FaultID != 1 || tr.RunID != "run-1" {
		t.Errorf("unexpected test run: %+v", tr)
	}
	if len(tr.Stats) != 2 || tr.Stats[1].Sensor != "PS1" || tr.Stats[1].Max != 155 {
		t.Errorf("unexpected stats: %+v", tr.Stats)
	}

	if _, err := s.GetTestRun(ctx, "run-1", 99); !errors.Is(err, sql.ErrNoRows) {
		t.Errorf("expected sql.ErrNoRows, got %v", err)
	}
}

// ---------------------------------------------------------------------------
// Similarity search
// ---------------------------------------------------------------------------

func TestSimilarTestRuns(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	saveSample(t, s, "run-1")
	saveSample(t, s, "run-2")

	got, err := s.SimilarTestRuns(ctx, "run-1", 0, 2)
	if err != nil {
		t.Fatalf("SimilarTestRuns: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 neighbors, got %d: %+v", len(got), got)
	}
	// Row 3 sits at 0.5, row 1 at 1.0; the query row and run-2 are excluded.
	if got[0].RowIndex != 3 || got[1].RowIndex != 1 {
		t.Errorf("neighbors = %+v, want rows 3 then 1", got)
	}
	if math.Abs(got[0].Distance-0.5) > 1e-6 {
		t.Errorf("distance = %v, want 0.5", got[0].Distance)
	}
	if got[1].FaultID != 1 {
		t.Errorf("FaultID = %d, want 1", got[1].FaultID)
	}

	all, err := s.SimilarTestRuns(ctx, "run-1", 0, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 3 {
		t.Errorf("expected the 3 other rows of run-1, got %+v", all)
	}
}

func TestSimilarTestRunsIgnoresOtherRuns(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	saveSample(t, s, "target")

	// Other runs pack more vectors than one KNN query may return right
	// next to the query vector.
	for _, id := range []string{"crowd-1", "crowd-2", "crowd-3"} {
		crowd := make([]TestRun, 1500)
		for i := range crowd {
			crowd[i] = TestRun{RowIndex: i, Embedding: []float32{0.001, 0, 0}}
		}
		if err := s.SaveRun(ctx, sampleRun(id), nil, crowd); err != nil {
			t.Fatalf("SaveRun(%s): %v", id, err)
		}
	}

	got, err := s.SimilarTestRuns(ctx, "target", 0, 2)
	if err != nil {
		t.Fatalf("SimilarTestRuns: %v", err)
	}
	if len(got) != 2 || got[0].RowIndex != 3 || got[1].RowIndex != 1 {
		t.Errorf("neighbors = %+v, want rows 3 then 1", got)
	}

	if err := s.DeleteRun(ctx, "crowd-1"); err != nil {
		t.Fatal(err)
	}
	stats, err := s.DBStats(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if stats.Embeddings != 4+2*1500 {
		t.Errorf("embeddings after delete = %d, want %d", stats.Embeddings, 4+2*1500)
	}
}

func TestMigrationPartitionsVectors(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	saveSample(t, s, "run-1")
	saveSample(t, s, "run-2")

	// Rebuild the vector table in its unpartitioned form.
	db := s.DB()
	mustExec := func(query string, args ...any) {
		t.Helper()
		if _, err := db.Exec(query, args...); err != nil {
			t.Fatalf("%s: %v", query, err)
		}
	}
	mustExec("DROP TABLE vec_test_runs")
	mustExec(`CREATE VIRTUAL TABLE vec_test_runs USING vec0(
		test_run_id INTEGER PRIMARY KEY,
		embedding float[3]
	)`)
	xs := []float32{0, 1, 5, 0.5}
	rows, err := db.Query("SELECT id, row_index FROM test_runs")
	if err != nil {
		t.Fatal(err)
	}
	type pair struct{ id, row int64 }
	var pairs []pair
	for rows.Next() {
		var p pair
		rows.Scan(&p.id, &p.row)
		pairs = append(pairs, p)
	}
	rows.Close()
	for _, p := range pairs {
		mustExec("INSERT INTO vec_test_runs (test_run_id, embedding) VALUES (?, ?)",
			p.id, serializeFloat32([]float32{xs[p.row], 0, 0}))
	}
	mustExec("DELETE FROM schema_version WHERE version = 3")

	if err := s.Migrate(ctx); err != nil {
		t.Fatalf("Migrate: %v", err)
	}

	var ddl string
	db.QueryRow("SELECT sql FROM sqlite_master WHERE name = 'vec_test_runs'").Scan(&ddl)
	if !strings.Contains(ddl, "partition key") {
		t.Errorf("vec_test_runs not partitioned: %s", ddl)
	}
	var n int
	db.QueryRow("SELECT COUNT(*) FROM vec_test_runs WHERE run_id = 'run-2'").Scan(&n)
	if n != 4 {
		t.Errorf("run-2 vectors = %d, want 4", n)
	}

	got, err := s.SimilarTestRuns(ctx, "run-2", 0, 2)
	if err != nil {
		t.Fatalf("SimilarTestRuns: %v", err)
	}
	if len(got) != 2 || got[0].RowIndex != 3 || got[1].RowIndex != 1 {
		t.Errorf("neighbors = %+v, want rows 3 then 1", got)
	}
}

func TestSimilarTestRunsUnknownRow(t *testing.T) {
	s := newTestStore(t)
	saveSample(t, s, "run-1")
	if _, err := s.SimilarTestRuns(context.Background(), "run-1", 42, 3); !errors.Is(err, sql.ErrNoRows) {
		t.Errorf("expected sql.ErrNoRows, got %v", err)
	}
}

func TestSerializeFloat32(t *testing.T) {
	b := serializeFloat32([]float32{1, -2})
	if len(b) != 8 {
		t.Fatalf("len = %d, want 8", len(b))
	}
	// 1.0f = 0x3f800000 little-endian
	if b[0] != 0 || b[1] != 0 || b[2] != 0x80 || b[3] != 0x3f {
		t.Errorf("unexpected encoding %x", b[:4])
	}
}
