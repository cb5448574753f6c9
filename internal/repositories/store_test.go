package repositories

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/desertthunder/xmarc/internal/shared"
	xmarctest "github.com/desertthunder/xmarc/internal/testing"
)

type testRecord struct {
	PlaylistID string `json:"current_playlist_id"`
	Volume     int    `json:"current_volume"`
}

func newTestRecord() *testRecord {
	return &testRecord{Volume: 1}
}

func TestFileStore(t *testing.T) {
	t.Run("Load Missing Returns Defaults", func(t *testing.T) {
		store := NewFileStore(filepath.Join(t.TempDir(), "volume.json"), newTestRecord)

		record, err := store.Load()
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if record.Volume != 1 || record.PlaylistID != "" {
			t.Errorf("expected default record, got %+v", record)
		}
	})

	t.Run("Round Trip", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "state", "volume.json")
		store := NewFileStore(path, newTestRecord)

		if err := store.Save(&testRecord{PlaylistID: "p2", Volume: 2}); err != nil {
			t.Fatalf("save failed: %v", err)
		}

		xmarctest.AssertFileExists(t, path)

		record, err := store.Load()
		if err != nil {
			t.Fatalf("load failed: %v", err)
		}
		if record.PlaylistID != "p2" || record.Volume != 2 {
			t.Errorf("unexpected record %+v", record)
		}
	})

	t.Run("Corrupt File Returns Defaults", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "volume.json")
		xmarctest.MustWriteFile(t, path, "{not json")

		store := NewFileStore(path, newTestRecord)

		record, err := store.Load()
		if err != nil {
			t.Fatalf("corrupt record must not fail the load, got %v", err)
		}
		if record.Volume != 1 || record.PlaylistID != "" {
			t.Errorf("expected default record, got %+v", record)
		}
	})

	t.Run("Save Leaves No Temp File", func(t *testing.T) {
		dir := t.TempDir()
		store := NewFileStore(filepath.Join(dir, "volume.json"), newTestRecord)

		if err := store.Save(&testRecord{PlaylistID: "p1", Volume: 1}); err != nil {
			t.Fatalf("save failed: %v", err)
		}

		if _, err := os.Stat(filepath.Join(dir, "volume.json.tmp")); !os.IsNotExist(err) {
			t.Error("temp file should have been renamed away")
		}
	})
}

func TestSQLiteStore(t *testing.T) {
	db, err := shared.NewDatabase(filepath.Join(t.TempDir(), "state.db"))
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	defer db.Close()

	if err := shared.RunMigrations(db); err != nil {
		t.Fatalf("failed to run migrations: %v", err)
	}

	t.Run("Load Missing Returns Defaults", func(t *testing.T) {
		store := NewSQLiteStore(db, "missing", newTestRecord)

		record, err := store.Load()
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if record.Volume != 1 {
			t.Errorf("expected default record, got %+v", record)
		}
	})

	t.Run("Round Trip Overwrites", func(t *testing.T) {
		store := NewSQLiteStore(db, "volume", newTestRecord)

		if err := store.Save(&testRecord{PlaylistID: "p7", Volume: 7}); err != nil {
			t.Fatalf("save failed: %v", err)
		}
		if err := store.Save(&testRecord{PlaylistID: "p8", Volume: 8}); err != nil {
			t.Fatalf("second save failed: %v", err)
		}

		record, err := store.Load()
		if err != nil {
			t.Fatalf("load failed: %v", err)
		}
		if record.PlaylistID != "p8" || record.Volume != 8 {
			t.Errorf("expected latest record, got %+v", record)
		}
	})

	t.Run("Records Are Independent", func(t *testing.T) {
		other := NewSQLiteStore(db, "other", newTestRecord)
		if err := other.Save(&testRecord{PlaylistID: "x1", Volume: 1}); err != nil {
			t.Fatalf("save failed: %v", err)
		}

		store := NewSQLiteStore(db, "volume", newTestRecord)
		record, err := store.Load()
		if err != nil {
			t.Fatalf("load failed: %v", err)
		}
		if record.PlaylistID != "p8" {
			t.Errorf("other record overwrote this one: %+v", record)
		}
	})

	t.Run("Corrupt Record Returns Defaults", func(t *testing.T) {
		if _, err := db.Exec(`INSERT INTO state_records (name, value) VALUES ('corrupt', '{oops')`); err != nil {
			t.Fatalf("failed to insert corrupt row: %v", err)
		}

		store := NewSQLiteStore(db, "corrupt", newTestRecord)
		record, err := store.Load()
		if err != nil {
			t.Fatalf("corrupt record must not fail the load, got %v", err)
		}
		if record.Volume != 1 || record.PlaylistID != "" {
			t.Errorf("expected default record, got %+v", record)
		}
	})
}
