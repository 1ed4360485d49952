package store

import (
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"dwinhmi/internal/hmi"
)

// DB is the SQLite-backed recovery record and print history.
//
// The recovery record lives in a single row. Cancel retires it by clearing
// the active flag; Purge deletes it.
type DB struct {
	mu sync.Mutex
	db *sql.DB
}

// OpenDB opens (or creates) the database file and its tables.
func OpenDB(path string) (*DB, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// One connection keeps ":memory:" databases shared across calls.
	db.SetMaxOpenConns(1)

	createTables := []string{
		`CREATE TABLE IF NOT EXISTS recovery_record (
			id INTEGER PRIMARY KEY CHECK (id = 1),
			filename TEXT NOT NULL,
			file_offset INTEGER NOT NULL,
			hotend_target INTEGER NOT NULL,
			bed_target INTEGER NOT NULL,
			fan_speed INTEGER NOT NULL,
			feedrate_percent INTEGER NOT NULL,
			z REAL NOT NULL,
			elapsed_ms INTEGER NOT NULL,
			saved_at TIMESTAMP NOT NULL,
			active INTEGER NOT NULL DEFAULT 1
		)`,
		`CREATE TABLE IF NOT EXISTS print_history (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			file TEXT NOT NULL,
			outcome TEXT NOT NULL,
			percent INTEGER NOT NULL,
			elapsed_ms INTEGER NOT NULL,
			print_started TIMESTAMP,
			print_finished TIMESTAMP
		)`,
	}
	for _, query := range createTables {
		if _, err := db.Exec(query); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to create table: %w", err)
		}
	}
	return &DB{db: db}, nil
}

// Close releases the database.
func (d *DB) Close() error {
	return d.db.Close()
}

// ============================================================================
// Recovery record (hmi.RecoveryStore)
// ============================================================================

// Load returns the active record, or hmi.ErrNoRecord.
func (d *DB) Load() (hmi.RecoveryRecord, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	var (
		rec       hmi.RecoveryRecord
		elapsedMS int64
	)
	err := d.db.QueryRow(`SELECT filename, file_offset, hotend_target, bed_target,
		fan_speed, feedrate_percent, z, elapsed_ms, saved_at
		FROM recovery_record WHERE id = 1 AND active = 1`).Scan(
		&rec.Filename, &rec.Offset, &rec.HotendTarget, &rec.BedTarget,
		&rec.FanSpeed, &rec.FeedratePercent, &rec.Z, &elapsedMS, &rec.SavedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return hmi.RecoveryRecord{}, hmi.ErrNoRecord
	}
	if err != nil {
		return hmi.RecoveryRecord{}, fmt.Errorf("failed to load recovery record: %w", err)
	}
	rec.Elapsed = time.Duration(elapsedMS) * time.Millisecond
	return rec, nil
}

// Save replaces the record and marks it active.
func (d *DB) Save(rec hmi.RecoveryRecord) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	_, err := d.db.Exec(`INSERT OR REPLACE INTO recovery_record
		(id, filename, file_offset, hotend_target, bed_target, fan_speed,
		 feedrate_percent, z, elapsed_ms, saved_at, active)
		VALUES (1, ?, ?, ?, ?, ?, ?, ?, ?, ?, 1)`,
		rec.Filename, rec.Offset, rec.HotendTarget, rec.BedTarget, rec.FanSpeed,
		rec.FeedratePercent, rec.Z, rec.Elapsed.Milliseconds(), rec.SavedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save recovery record: %w", err)
	}
	return nil
}

// Cancel retires the record without deleting it.
func (d *DB) Cancel() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, err := d.db.Exec("UPDATE recovery_record SET active = 0 WHERE id = 1"); err != nil {
		return fmt.Errorf("failed to cancel recovery record: %w", err)
	}
	return nil
}

// Purge deletes the record.
func (d *DB) Purge() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, err := d.db.Exec("DELETE FROM recovery_record"); err != nil {
		return fmt.Errorf("failed to purge recovery record: %w", err)
	}
	return nil
}

// ============================================================================
// Print history (hmi.History)
// ============================================================================

// Job is one stored history row.
type Job struct {
	ID int64 `json:"id"`
	hmi.JobRecord
}

// Record appends a job.
func (d *DB) Record(j hmi.JobRecord) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	_, err := d.db.Exec(
		"INSERT INTO print_history (file, outcome, percent, elapsed_ms, print_started, print_finished) VALUES (?, ?, ?, ?, ?, ?)",
		j.File, j.Outcome, j.Percent, j.Elapsed.Milliseconds(), j.Started, j.Ended,
	)
	if err != nil {
		return fmt.Errorf("failed to record job: %w", err)
	}
	return nil
}

// Jobs returns up to limit jobs, newest first.
func (d *DB) Jobs(limit int) ([]Job, error) {
	if limit <= 0 {
		limit = 50
	}
	d.mu.Lock()
	defer d.mu.Unlock()

	rows, err := d.db.Query(
		"SELECT id, file, outcome, percent, elapsed_ms, print_started, print_finished FROM print_history ORDER BY id DESC LIMIT ?",
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query history: %w", err)
	}
	defer rows.Close()

	var jobs []Job
	for rows.Next() {
		var (
			j         Job
			elapsedMS int64
		)
		if err := rows.Scan(&j.ID, &j.File, &j.Outcome, &j.Percent, &elapsedMS, &j.Started, &j.Ended); err != nil {
			return nil, err
		}
		j.Elapsed = time.Duration(elapsedMS) * time.Millisecond
		jobs = append(jobs, j)
	}
	return jobs, rows.Err()
}
