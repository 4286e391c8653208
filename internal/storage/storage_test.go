package storage

import (
	"os"
	"testing"
)

func TestStorage(t *testing.T) {
	store, err := OpenStorage(t.TempDir())
	if err != nil {
		t.Fatalf("OpenStorage failed: %v", err)
	}
	defer store.Close()

	t.Run("ProbeRoundTrip", func(t *testing.T) {
		rec := ProbeRecord{WDL: 2, DTZ: 13}
		if err := store.SaveProbe(0xDEADBEEF, rec); err != nil {
			t.Fatalf("SaveProbe failed: %v", err)
		}

		got, found, err := store.LoadProbe(0xDEADBEEF)
		if err != nil {
			t.Fatalf("LoadProbe failed: %v", err)
		}
		if !found {
			t.Fatal("expected probe record to be found")
		}
		if got != rec {
			t.Errorf("LoadProbe = %+v, want %+v", got, rec)
		}
	})

	t.Run("ProbeMiss", func(t *testing.T) {
		_, found, err := store.LoadProbe(0x12345678)
		if err != nil {
			t.Fatalf("LoadProbe failed: %v", err)
		}
		if found {
			t.Error("expected no record for unknown hash")
		}
	})

	t.Run("RecordProbe", func(t *testing.T) {
		if err := store.RecordProbe("KQvK", true); err != nil {
			t.Fatalf("RecordProbe failed: %v", err)
		}
		if err := store.RecordProbe("KQvK", false); err != nil {
			t.Fatalf("RecordProbe failed: %v", err)
		}
		if err := store.RecordProbe("KRvK", true); err != nil {
			t.Fatalf("RecordProbe failed: %v", err)
		}

		stats, err := store.LoadStats()
		if err != nil {
			t.Fatalf("LoadStats failed: %v", err)
		}
		if stats.Probes != 3 || stats.Hits != 2 || stats.Misses != 1 {
			t.Errorf("stats = %d/%d/%d, want 3/2/1", stats.Probes, stats.Hits, stats.Misses)
		}
		if stats.ByMaterial["KQvK"] != 2 {
			t.Errorf("ByMaterial[KQvK] = %d, want 2", stats.ByMaterial["KQvK"])
		}
		if stats.LastProbe.IsZero() {
			t.Error("LastProbe not set")
		}
	})
}

func TestHitRate(t *testing.T) {
	stats := NewProbeStats()
	if stats.HitRate() != 0 {
		t.Errorf("empty HitRate() = %.2f, want 0", stats.HitRate())
	}

	stats.Probes = 10
	stats.Hits = 5
	if stats.HitRate() != 50 {
		t.Errorf("HitRate() = %.2f, want 50", stats.HitRate())
	}
}

func TestDataPaths(t *testing.T) {
	// Test that GetDataDir returns a valid path
	dataDir, err := GetDataDir()
	if err != nil {
		t.Fatalf("GetDataDir failed: %v", err)
	}
	if dataDir == "" {
		t.Error("GetDataDir returned empty path")
	}

	// Verify directory exists
	if _, err := os.Stat(dataDir); os.IsNotExist(err) {
		t.Errorf("Data directory was not created: %s", dataDir)
	}

	t.Logf("Data directory: %s", dataDir)
}
