package store

import "fmt"

// schemaSQL returns the DDL for all tables. embeddingDim controls the
// vec0 virtual table dimension and equals the number of sensors.
func schemaSQL(embeddingDim int) string {
	return fmt.Sprintf(`
-- One row per pipeline execution
CREATE TABLE IF NOT EXISTS runs (
    id TEXT PRIMARY KEY,
    raw_dir TEXT NOT NULL,
    output_dir TEXT NOT NULL,
    filter_mode TEXT NOT NULL,
    test_runs INTEGER NOT NULL,
    fault_classes INTEGER NOT NULL,
    feature_columns INTEGER NOT NULL,
    sensors JSON NOT NULL,
    outputs JSON,
    duration_ms INTEGER DEFAULT 0,
    status TEXT DEFAULT 'complete',
    created_at DATETIME DEFAULT CURRENT_TIMESTAMP
);

-- Distinct fault states of a run and the ids they were assigned
CREATE TABLE IF NOT EXISTS fault_classes (
    run_id TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
    fault_id INTEGER NOT NULL,
    cooler_eff INTEGER NOT NULL,
    valve_perc INTEGER NOT NULL,
    pump_leak INTEGER NOT NULL,
    accu_prs INTEGER NOT NULL,
    test_runs INTEGER NOT NULL,
    PRIMARY KEY (run_id, fault_id)
);

-- Retained test runs with their targets
CREATE TABLE IF NOT EXISTS test_runs (
    id INTEGER PRIMARY KEY,
    run_id TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
    row_index INTEGER NOT NULL,
    cooler_eff INTEGER NOT NULL,
    valve_perc INTEGER NOT NULL,
    pump_leak INTEGER NOT NULL,
    accu_prs INTEGER NOT NULL,
    fault_id INTEGER NOT NULL,
    UNIQUE(run_id, row_index)
);

-- Per test run, per sensor descriptive statistics
CREATE TABLE IF NOT EXISTS sensor_stats (
    test_run_id INTEGER NOT NULL REFERENCES test_runs(id) ON DELETE CASCADE,
    sensor TEXT NOT NULL,
    mean REAL NOT NULL,
    std_dev REAL NOT NULL,
    min REAL NOT NULL,
    max REAL NOT NULL,
    PRIMARY KEY (test_run_id, sensor)
);

-- Standardized sensor profile vectors via sqlite-vec
%s

-- Indexes
CREATE INDEX IF NOT EXISTS idx_test_runs_run ON test_runs(run_id);
CREATE INDEX IF NOT EXISTS idx_runs_created ON runs(created_at);
`, vecTableSQL(embeddingDim))
}

// vecTableSQL returns the vec0 DDL. Vectors are partitioned by run so a
// KNN query only scans the vectors of one run.
func vecTableSQL(embeddingDim int) string {
	return fmt.Sprintf(`CREATE VIRTUAL TABLE IF NOT EXISTS vec_test_runs USING vec0(
    test_run_id INTEGER PRIMARY KEY,
    run_id text partition key,
    embedding float[%d]
);`, embeddingDim)
}
