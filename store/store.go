package store

import (
	"context"
	"database/sql"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"time"

	sqlite_vec "github.com/asg017/sqlite-vec-go-bindings/cgo"
	_ "github.com/mattn/go-sqlite3"
)

func init() {
	sqlite_vec.Auto()
}

// maxKNN is the largest k sqlite-vec accepts in a KNN query.
const maxKNN = 4096

// Run represents a row in the runs table.
type Run struct {
	ID             string   `json:"id"`
	RawDir         string   `json:"raw_dir"`
	OutputDir      string   `json:"output_dir"`
	FilterMode     string   `json:"filter_mode"`
	TestRuns       int      `json:"test_runs"`
	FaultClasses   int      `json:"fault_classes"`
	FeatureColumns int      `json:"feature_columns"`
	Sensors        []string `json:"sensors"`
	Outputs        []string `json:"outputs,omitempty"`
	DurationMs     int64    `json:"duration_ms"`
	Status         string   `json:"status"`
	CreatedAt      string   `json:"created_at"`
}

// FaultClass represents a row in the fault_classes table.
type FaultClass struct {
	RunID     string `json:"run_id"`
	FaultID   int    `json:"fault_id"`
	CoolerEff int    `json:"cooler_eff"`
	ValvePerc int    `json:"valve_perc"`
	PumpLeak  int    `json:"pump_leak"`
	AccuPrs   int    `json:"accu_prs"`
	TestRuns  int    `json:"test_runs"`
}

// SensorStat represents a row in the sensor_stats table.
type SensorStat struct {
	Sensor string  `json:"sensor"`
	Mean   float64 `json:"mean"`
	StdDev float64 `json:"std_dev"`
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
}

// TestRun represents a row in the test_runs table together with its
// sensor statistics and profile vector.
type TestRun struct {
	ID        int64        `json:"id"`
	RunID     string       `json:"run_id"`
	RowIndex  int          `json:"row_index"`
	CoolerEff int          `json:"cooler_eff"`
	ValvePerc int          `json:"valve_perc"`
	PumpLeak  int          `json:"pump_leak"`
	AccuPrs   int          `json:"accu_prs"`
	FaultID   int          `json:"fault_id"`
	Stats     []SensorStat `json:"stats,omitempty"`
	Embedding []float32    `json:"-"`
}

// Neighbor is a test run found by SimilarTestRuns.
type Neighbor struct {
	RowIndex int     `json:"row_index"`
	FaultID  int     `json:"fault_id"`
	Distance float64 `json:"distance"`
}

// Store wraps the SQLite database for all hydraprep persistence.
type Store struct {
	db           *sql.DB
	embeddingDim int
}

// New opens (or creates) a SQLite database at the given path and
// initialises the schema including the sqlite-vec virtual table.
func New(dbPath string, embeddingDim int) (*Store, error) {
	dir := filepath.Dir(dbPath)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("creating db directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_foreign_keys=on&_busy_timeout=30000")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	if _, err := db.Exec(schemaSQL(embeddingDim)); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(30 * time.Minute)

	s := &Store{db: db, embeddingDim: embeddingDim}

	if err := s.Migrate(context.Background()); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return s, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// DB returns the underlying *sql.DB for advanced queries.
func (s *Store) DB() *sql.DB {
	return s.db
}

// EmbeddingDim returns the configured embedding dimension.
func (s *Store) EmbeddingDim() int {
	return s.embeddingDim
}

// --- Run operations ---

// SaveRun records a run with its fault classes and test runs in one
// transaction. Test runs with a non-empty Embedding are indexed for
// similarity search.
func (s *Store) SaveRun(ctx context.Context, run Run, classes []FaultClass, tests []TestRun) error {
	sensors, err := json.Marshal(run.Sensors)
	if err != nil {
		return err
	}
	outputs, err := json.Marshal(run.Outputs)
	if err != nil {
		return err
	}
	status := run.Status
	if status == "" {
		status = "complete"
	}

	return s.inTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO runs (id, raw_dir, output_dir, filter_mode, test_runs, fault_classes,
				feature_columns, sensors, outputs, duration_ms, status)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`, run.ID, run.RawDir, run.OutputDir, run.FilterMode, run.TestRuns, run.FaultClasses,
			run.FeatureColumns, string(sensors), string(outputs), run.DurationMs, status); err != nil {
			return fmt.Errorf("inserting run: %w", err)
		}

		classStmt, err := tx.PrepareContext(ctx, `
			INSERT INTO fault_classes (run_id, fault_id, cooler_eff, valve_perc, pump_leak, accu_prs, test_runs)
			VALUES (?, ?, ?, ?, ?, ?, ?)
		`)
		if err != nil {
			return err
		}
		defer classStmt.Close()

		for _, c := range classes {
			if _, err := classStmt.ExecContext(ctx, run.ID, c.FaultID,
				c.CoolerEff, c.ValvePerc, c.PumpLeak, c.AccuPrs, c.TestRuns); err != nil {
				return fmt.Errorf("inserting fault class %d: %w", c.FaultID, err)
			}
		}

		testStmt, err := tx.PrepareContext(ctx, `
			INSERT INTO test_runs (run_id, row_index, cooler_eff, valve_perc, pump_leak, accu_prs, fault_id)
			VALUES (?, ?, ?, ?, ?, ?, ?)
		`)
		if err != nil {
			return err
		}
		defer testStmt.Close()

		statStmt, err := tx.PrepareContext(ctx, `
			INSERT INTO sensor_stats (test_run_id, sensor, mean, std_dev, min, max)
			VALUES (?, ?, ?, ?, ?, ?)
		`)
		if err != nil {
			return err
		}
		defer statStmt.Close()

		vecStmt, err := tx.PrepareContext(ctx,
			"INSERT INTO vec_test_runs (test_run_id, run_id, embedding) VALUES (?, ?, ?)")
		if err != nil {
			return err
		}
		defer vecStmt.Close()

		for _, t := range tests {
			res, err := testStmt.ExecContext(ctx, run.ID, t.RowIndex,
				t.CoolerEff, t.ValvePerc, t.PumpLeak, t.AccuPrs, t.FaultID)
			if err != nil {
				return fmt.Errorf("inserting test run %d: %w", t.RowIndex, err)
			}
			id, err := res.LastInsertId()
			if err != nil {
				return err
			}

			for _, st := range t.Stats {
				if _, err := statStmt.ExecContext(ctx, id, st.Sensor, st.Mean, st.StdDev, st.Min, st.Max); err != nil {
					return fmt.Errorf("inserting %s stats for test run %d: %w", st.Sensor, t.RowIndex, err)
				}
			}

			if len(t.Embedding) == 0 {
				continue
			}
			if len(t.Embedding) != s.embeddingDim {
				return fmt.Errorf("test run %d: embedding has %d dimensions, want %d",
					t.RowIndex, len(t.Embedding), s.embeddingDim)
			}
			if _, err := vecStmt.ExecContext(ctx, id, run.ID, serializeFloat32(t.Embedding)); err != nil {
				return fmt.Errorf("indexing test run %d: %w", t.RowIndex, err)
			}
		}
		return nil
	})
}

// GetRun retrieves a run by ID. Returns sql.ErrNoRows if it does not exist.
func (s *Store) GetRun(ctx context.Context, id string) (*Run, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, raw_dir, output_dir, filter_mode, test_runs, fault_classes,
			feature_columns, sensors, outputs, duration_ms, status, created_at
		FROM runs WHERE id = ?
	`, id)
	return scanRun(row)
}

// ListRuns returns all runs, newest first.
func (s *Store) ListRuns(ctx context.Context) ([]Run, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, raw_dir, output_dir, filter_mode, test_runs, fault_classes,
			feature_columns, sensors, outputs, duration_ms, status, created_at
		FROM runs ORDER BY created_at DESC, rowid DESC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, *r)
	}
	return runs, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(sc scanner) (*Run, error) {
	r := &Run{}
	var sensors string
	var outputs sql.NullString
	if err := sc.Scan(&r.ID, &r.RawDir, &r.OutputDir, &r.FilterMode, &r.TestRuns,
		&r.FaultClasses, &r.FeatureColumns, &sensors, &outputs,
		&r.DurationMs, &r.Status, &r.CreatedAt); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(sensors), &r.Sensors); err != nil {
		return nil, fmt.Errorf("decoding sensors of run %s: %w", r.ID, err)
	}
	if outputs.Valid && outputs.String != "" && outputs.String != "null" {
		if err := json.Unmarshal([]byte(outputs.String), &r.Outputs); err != nil {
			return nil, fmt.Errorf("decoding outputs of run %s: %w", r.ID, err)
		}
	}
	return r, nil
}

// DeleteRun removes a run and everything recorded for it.
func (s *Store) DeleteRun(ctx context.Context, id string) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		// vec0 tables do not take part in foreign key cascades
		if _, err := tx.ExecContext(ctx,
			"DELETE FROM vec_test_runs WHERE run_id = ?", id); err != nil {
			return err
		}
		res, err := tx.ExecContext(ctx, "DELETE FROM runs WHERE id = ?", id)
		if err != nil {
			return err
		}
		n, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if n == 0 {
			return sql.ErrNoRows
		}
		return nil
	})
}

// --- Fault class and test run operations ---

// FaultClasses returns the fault classes of a run ordered by id.
func (s *Store) FaultClasses(ctx context.Context, runID string) ([]FaultClass, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT run_id, fault_id, cooler_eff, valve_perc, pump_leak, accu_prs, test_runs
		FROM fault_classes WHERE run_id = ? ORDER BY fault_id
	`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var classes []FaultClass
	for rows.Next() {
		var c FaultClass
		if err := rows.Scan(&c.RunID, &c.FaultID, &c.CoolerEff, &c.ValvePerc,
			&c.PumpLeak, &c.AccuPrs, &c.TestRuns); err != nil {
			return nil, err
		}
		classes = append(classes, c)
	}
	return classes, rows.Err()
}

// GetTestRun retrieves one test run of a run with its sensor statistics.
// Returns sql.ErrNoRows if the run did not retain that row.
func (s *Store) GetTestRun(ctx context.Context, runID string, rowIndex int) (*TestRun, error) {
	t := &TestRun{}
	err := s.db.QueryRowContext(ctx, `
		SELECT id, run_id, row_index, cooler_eff, valve_perc, pump_leak, accu_prs, fault_id
		FROM test_runs WHERE run_id = ? AND row_index = ?
	`, runID, rowIndex).Scan(&t.ID, &t.RunID, &t.RowIndex, &t.CoolerEff,
		&t.ValvePerc, &t.PumpLeak, &t.AccuPrs, &t.FaultID)
	if err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT sensor, mean, std_dev, min, max
		FROM sensor_stats WHERE test_run_id = ? ORDER BY rowid
	`, t.ID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var st SensorStat
		if err := rows.Scan(&st.Sensor, &st.Mean, &st.StdDev, &st.Min, &st.Max); err != nil {
			return nil, err
		}
		t.Stats = append(t.Stats, st)
	}
	return t, rows.Err()
}

// SimilarTestRuns returns up to k test runs of the same run whose sensor
// profile vectors are nearest to the given test run's, closest first. The
// query test run itself is excluded.
func (s *Store) SimilarTestRuns(ctx context.Context, runID string, rowIndex, k int) ([]Neighbor, error) {
	var id int64
	if err := s.db.QueryRowContext(ctx,
		"SELECT id FROM test_runs WHERE run_id = ? AND row_index = ?",
		runID, rowIndex).Scan(&id); err != nil {
		return nil, err
	}

	var embedding []byte
	if err := s.db.QueryRowContext(ctx,
		"SELECT embedding FROM vec_test_runs WHERE test_run_id = ?", id).Scan(&embedding); err != nil {
		return nil, err
	}

	// One extra neighbor covers the query test run itself.
	rows, err := s.db.QueryContext(ctx, `
		WITH knn AS (
			SELECT test_run_id, distance
			FROM vec_test_runs
			WHERE embedding MATCH ? AND k = ? AND run_id = ?
		)
		SELECT t.row_index, t.fault_id, knn.distance
		FROM knn
		JOIN test_runs t ON t.id = knn.test_run_id
		WHERE t.id != ?
		ORDER BY knn.distance
	`, embedding, min(k+1, maxKNN), runID, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Neighbor
	for rows.Next() {
		var n Neighbor
		if err := rows.Scan(&n.RowIndex, &n.FaultID, &n.Distance); err != nil {
			return nil, err
		}
		out = append(out, n)
		if len(out) == k {
			break
		}
	}
	return out, rows.Err()
}

// DBStats holds row counts for diagnostics.
type DBStats struct {
	Runs         int `json:"runs"`
	FaultClasses int `json:"fault_classes"`
	TestRuns     int `json:"test_runs"`
	SensorStats  int `json:"sensor_stats"`
	Embeddings   int `json:"embeddings"`
}

// DBStats returns counts of every table.
func (s *Store) DBStats(ctx context.Context) (*DBStats, error) {
	stats := &DBStats{}
	queries := []struct {
		query string
		dest  *int
	}{
		{"SELECT COUNT(*) FROM runs", &stats.Runs},
		{"SELECT COUNT(*) FROM fault_classes", &stats.FaultClasses},
		{"SELECT COUNT(*) FROM test_runs", &stats.TestRuns},
		{"SELECT COUNT(*) FROM sensor_stats", &stats.SensorStats},
		{"SELECT COUNT(*) FROM vec_test_runs", &stats.Embeddings},
	}
	for _, q := range queries {
		if err := s.db.QueryRowContext(ctx, q.query).Scan(q.dest); err != nil {
			return nil, fmt.Errorf("counting %s: %w", q.query, err)
		}
	}
	return stats, nil
}

// --- helpers ---

func (s *Store) inTx(ctx context.Context, fn func(*sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}
	return tx.Commit()
}

// serializeFloat32 converts a float32 slice to little-endian bytes for sqlite-vec.
func serializeFloat32(v []float32) []byte {
	buf := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}
