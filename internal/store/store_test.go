package store

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"dwinhmi/internal/hmi"
)

// TestSettingsFile_RoundTrip tests save then load
func TestSettingsFile_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub", "settings.yaml")
	f := NewSettingsFile(path, hmi.DefaultSettings())

	s := hmi.DefaultSettings()
	s.Language = hmi.LanguageChinese
	s.RunoutEnabled = false
	s.PLA.Hotend = 205
	s.StepsPerMM.E = 415.5
	s.ZOffset = -1.25

	if err := f.Save(s); err != nil {
		t.Fatalf("Save: %v", err)
	}
	got, err := f.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got != s {
		t.Errorf("expected %+v, got %+v", s, got)
	}
}

// TestSettingsFile_Missing tests that a missing file reports os.ErrNotExist
func TestSettingsFile_Missing(t *testing.T) {
	f := NewSettingsFile(filepath.Join(t.TempDir(), "none.yaml"), hmi.DefaultSettings())
	if _, err := f.Load(); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("expected ErrNotExist, got %v", err)
	}
}

// TestSettingsFile_PartialKeepsDefaults tests that omitted keys keep defaults
func TestSettingsFile_PartialKeepsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.yaml")
	if err := os.WriteFile(path, []byte("language: zh\npla:\n  hotend: 210\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	got, err := NewSettingsFile(path, hmi.DefaultSettings()).Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got.Language != hmi.LanguageChinese || got.PLA.Hotend != 210 {
		t.Errorf("expected file values, got %+v", got)
	}
	if got.PLA.Bed != 60 || got.MaxFeedrate.X != 500 {
		t.Errorf("expected defaults kept, got %+v", got)
	}
}

// TestSettingsFile_UnknownKey tests strict decoding
func TestSettingsFile_UnknownKey(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.yaml")
	if err := os.WriteFile(path, []byte("colour: blue\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := NewSettingsFile(path, hmi.DefaultSettings()).Load(); err == nil {
		t.Error("expected unknown key to fail")
	}
}

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := OpenDB(filepath.Join(t.TempDir(), "hmi.db"))
	if err != nil {
		t.Fatalf("OpenDB: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// TestDB_RecoveryLifecycle tests save, load, cancel and purge
func TestDB_RecoveryLifecycle(t *testing.T) {
	db := openTestDB(t)

	if _, err := db.Load(); !errors.Is(err, hmi.ErrNoRecord) {
		t.Fatalf("expected ErrNoRecord on empty db, got %v", err)
	}

	rec := hmi.RecoveryRecord{
		Filename:        "benchy.gcode",
		Offset:          123456,
		HotendTarget:    210,
		BedTarget:       60,
		FanSpeed:        255,
		FeedratePercent: 110,
		Z:               12.4,
		Elapsed:         42 * time.Minute,
		SavedAt:         time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
	}
	if err := db.Save(rec); err != nil {
		t.Fatalf("Save: %v", err)
	}
	got, err := db.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got.Filename != rec.Filename || got.Offset != rec.Offset || got.Elapsed != rec.Elapsed ||
		got.HotendTarget != 210 || got.FeedratePercent != 110 || !got.SavedAt.Equal(rec.SavedAt) {
		t.Errorf("expected %+v, got %+v", rec, got)
	}

	rec.Offset = 200000
	if err := db.Save(rec); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if got, _ := db.Load(); got.Offset != 200000 {
		t.Errorf("expected overwrite, got offset %d", got.Offset)
	}

	if err := db.Cancel(); err != nil {
		t.Fatalf("Cancel: %v", err)
	}
	if _, err := db.Load(); !errors.Is(err, hmi.ErrNoRecord) {
		t.Errorf("expected cancelled record hidden, got %v", err)
	}

	if err := db.Save(rec); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if err := db.Purge(); err != nil {
		t.Fatalf("Purge: %v", err)
	}
	if _, err := db.Load(); !errors.Is(err, hmi.ErrNoRecord) {
		t.Errorf("expected purged record gone, got %v", err)
	}
}

// TestDB_History tests job recording order
func TestDB_History(t *testing.T) {
	db := openTestDB(t)
	t0 := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	for i, outcome := range []string{"finished", "aborted", "finished"} {
		err := db.Record(hmi.JobRecord{
			File:    "part.gcode",
			Outcome: outcome,
			Percent: 100 - i*10,
			Elapsed: time.Duration(i+1) * time.Minute,
			Started: t0,
			Ended:   t0.Add(time.Hour),
		})
		if err != nil {
			t.Fatalf("Record: %v", err)
		}
	}

	jobs, err := db.Jobs(2)
	if err != nil {
		t.Fatalf("Jobs: %v", err)
	}
	if len(jobs) != 2 {
		t.Fatalf("expected 2 jobs, got %d", len(jobs))
	}
	if jobs[0].Percent != 80 || jobs[1].Outcome != "aborted" {
		t.Errorf("expected newest first, got %+v", jobs)
	}
	if jobs[0].Elapsed != 3*time.Minute {
		t.Errorf("expected elapsed 3m, got %v", jobs[0].Elapsed)
	}
}
