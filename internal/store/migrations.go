package store

import (
	"database/sql"
	"fmt"
	"log"
	"time"
)

type migration struct {
	Version     int
	Description string
	SQL         string
}

var migrations = []migration{
	{
		Version:     1,
		Description: "Initial schema",
		SQL: `
CREATE TABLE IF NOT EXISTS records (
    nzgd_id INTEGER PRIMARY KEY,
    name TEXT NOT NULL UNIQUE,
    type TEXT NOT NULL,
    latitude REAL NOT NULL,
    longitude REAL NOT NULL,
    investigation_date DATETIME,
    published_date DATETIME,
    original_reference TEXT,
    region TEXT NOT NULL DEFAULT '',
    district TEXT NOT NULL DEFAULT '',
    city TEXT NOT NULL DEFAULT '',
    suburb TEXT NOT NULL DEFAULT '',
    shallowest_depth REAL,
    deepest_depth REAL,
    measured_gwl REAL,
    model_gwl_westerhoff_2019 REAL,
    model_vs30_foster_2019 REAL,
    model_vs30_stddev_foster_2019 REAL,
    tip_net_area_ratio REAL,
    hammer_energy_ratio REAL,
    borehole_diameter REAL
);

CREATE TABLE IF NOT EXISTS cpt_measurements (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    nzgd_id INTEGER NOT NULL REFERENCES records(nzgd_id),
    depth REAL NOT NULL,
    qc REAL NOT NULL,
    fs REAL,
    u2 REAL
);

CREATE INDEX IF NOT EXISTS idx_cpt_measurements_record ON cpt_measurements(nzgd_id, depth);

CREATE TABLE IF NOT EXISTS spt_measurements (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    nzgd_id INTEGER NOT NULL REFERENCES records(nzgd_id),
    depth REAL NOT NULL,
    n INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_spt_measurements_record ON spt_measurements(nzgd_id, depth);

CREATE TABLE IF NOT EXISTS spt_soil_intervals (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    nzgd_id INTEGER NOT NULL REFERENCES records(nzgd_id),
    top_depth REAL NOT NULL,
    thickness REAL NOT NULL,
    soil_type TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_spt_soil_intervals_record ON spt_soil_intervals(nzgd_id, top_depth);

CREATE TABLE IF NOT EXISTS dataset_meta (
    key TEXT PRIMARY KEY,
    value TEXT NOT NULL
);
`,
	},
}

func (s *Store) Migrate() error {
	if err := s.ensureMigrationsTable(); err != nil {
		return fmt.Errorf("ensure migrations table: %w", err)
	}

	applied, err := s.getAppliedMigrations()
	if err != nil {
		return fmt.Errorf("get applied migrations: %w", err)
	}

	for _, m := range migrations {
		if applied[m.Version] {
			continue
		}

		log.Printf("migrations: applying %d - %s", m.Version, m.Description)

		tx, err := s.db.Begin()
		if err != nil {
			return fmt.Errorf("begin tx for migration %d: %w", m.Version, err)
		}

		if _, err := tx.Exec(m.SQL); err != nil {
			tx.Rollback()
			return fmt.Errorf("execute migration %d: %w", m.Version, err)
		}

		if _, err := tx.Exec(
			"INSERT INTO schema_migrations (version, description, applied_at) VALUES (?, ?, ?)",
			m.Version, m.Description, time.Now().UTC(),
		); err != nil {
			tx.Rollback()
			return fmt.Errorf("record migration %d: %w", m.Version, err)
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit migration %d: %w", m.Version, err)
		}
	}

	return nil
}

func (s *Store) ensureMigrationsTable() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			description TEXT,
			applied_at DATETIME
		)
	`)
	return err
}

func (s *Store) getAppliedMigrations() (map[int]bool, error) {
	rows, err := s.db.Query("SELECT version FROM schema_migrations")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	applied := make(map[int]bool)
	for rows.Next() {
		var version int
		if err := rows.Scan(&version); err != nil {
			return nil, err
		}
		applied[version] = true
	}
	return applied, rows.Err()
}

func (s *Store) MigrationVersion() (int, error) {
	var version sql.NullInt64
	err := s.db.QueryRow("SELECT MAX(version) FROM schema_migrations").Scan(&version)
	if err != nil {
		return 0, err
	}
	if !version.Valid {
		return 0, nil
	}
	return int(version.Int64), nil
}
