package store

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"
)

// migration represents a single schema migration.
type migration struct {
	version     int
	description string
	apply       func(tx *sql.Tx, embeddingDim int) error
}

// migrations is the ordered list of all schema migrations.
// New migrations are appended at the end; never modify existing entries.
var migrations = []migration{
	{
		version:     1,
		description: "initial schema (applied via schemaSQL)",
		apply:       func(tx *sql.Tx, embeddingDim int) error { return nil },
	},
	{
		version:     2,
		description: "index test runs by fault id",
		apply: func(tx *sql.Tx, embeddingDim int) error {
			_, err := tx.Exec("CREATE INDEX IF NOT EXISTS idx_test_runs_fault ON test_runs(run_id, fault_id)")
			return err
		},
	},
	{
		version:     3,
		description: "partition profile vectors by run",
		apply:       partitionVectorsByRun,
	},
}

// partitionVectorsByRun rebuilds vec_test_runs with a run_id partition
// key, carrying over the stored vectors.
func partitionVectorsByRun(tx *sql.Tx, embeddingDim int) error {
	var ddl string
	if err := tx.QueryRow(
		"SELECT sql FROM sqlite_master WHERE name = 'vec_test_runs'").Scan(&ddl); err != nil {
		return fmt.Errorf("reading vec_test_runs definition: %w", err)
	}
	if strings.Contains(strings.ToLower(ddl), "partition key") {
		return nil
	}

	type vector struct {
		id        int64
		runID     string
		embedding []byte
	}
	rows, err := tx.Query(`
		SELECT v.test_run_id, t.run_id, v.embedding
		FROM vec_test_runs v
		JOIN test_runs t ON t.id = v.test_run_id
	`)
	if err != nil {
		return err
	}
	var vectors []vector
	for rows.Next() {
		var v vector
		if err := rows.Scan(&v.id, &v.runID, &v.embedding); err != nil {
			rows.Close()
			return err
		}
		vectors = append(vectors, v)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return err
	}

	if _, err := tx.Exec("DROP TABLE vec_test_runs"); err != nil {
		return err
	}
	if _, err := tx.Exec(vecTableSQL(embeddingDim)); err != nil {
		return err
	}
	for _, v := range vectors {
		if _, err := tx.Exec(
			"INSERT INTO vec_test_runs (test_run_id, run_id, embedding) VALUES (?, ?, ?)",
			v.id, v.runID, v.embedding); err != nil {
			return fmt.Errorf("copying vector of test run %d: %w", v.id, err)
		}
	}
	slog.Info("partitioned profile vectors by run", "vectors", len(vectors))
	return nil
}

// Migrate runs all pending schema migrations.
func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS schema_version (
			version INTEGER PRIMARY KEY,
			description TEXT,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`); err != nil {
		return fmt.Errorf("creating schema_version table: %w", err)
	}

	var current int
	row := s.db.QueryRowContext(ctx, "SELECT COALESCE(MAX(version), 0) FROM schema_version")
	if err := row.Scan(&current); err != nil {
		return fmt.Errorf("reading schema version: %w", err)
	}

	for _, m := range migrations {
		if m.version <= current {
			continue
		}

		slog.Info("applying migration", "version", m.version, "description", m.description)

		err := s.inTx(ctx, func(tx *sql.Tx) error {
			if err := m.apply(tx, s.embeddingDim); err != nil {
				return fmt.Errorf("migration %d failed: %w", m.version, err)
			}
			if _, err := tx.ExecContext(ctx,
				"INSERT INTO schema_version (version, description) VALUES (?, ?)",
				m.version, m.description); err != nil {
				return fmt.Errorf("recording migration %d: %w", m.version, err)
			}
			return nil
		})
		if err != nil {
			return err
		}
	}

	return nil
}

// SchemaVersion returns the highest applied migration.
func (s *Store) SchemaVersion(ctx context.Context) (int, error) {
	var v int
	err := s.db.QueryRowContext(ctx, "SELECT COALESCE(MAX(version), 0) FROM schema_version").Scan(&v)
	return v, err
}
