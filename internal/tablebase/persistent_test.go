package tablebase

import (
	"testing"

	"github.com/hailam/endgame/internal/board"
	"github.com/hailam/endgame/internal/storage"
)

func TestPersistentProber(t *testing.T) {
	store, err := storage.OpenStorage(t.TempDir())
	if err != nil {
		t.Fatalf("OpenStorage failed: %v", err)
	}
	defer store.Close()

	inner := &countingProber{}
	prober := NewPersistentProber(inner, store)

	pos, err := board.ParseFEN("8/8/4K3/8/8/3k4/8/4Q3 w - - 0 1")
	if err != nil {
		t.Fatal(err)
	}

	first := prober.Probe(pos)
	if !first.Found {
		t.Fatal("expected result from inner prober")
	}
	if inner.probes != 1 {
		t.Fatalf("inner prober consulted %d times, want 1", inner.probes)
	}

	second := prober.Probe(pos)
	if !second.Found || second.WDL != first.WDL {
		t.Error("cached result does not match original")
	}
	if inner.probes != 1 {
		t.Errorf("inner prober consulted %d times after cache, want 1", inner.probes)
	}

	stats, err := prober.Stats()
	if err != nil {
		t.Fatalf("Stats failed: %v", err)
	}
	if stats.Probes != 2 || stats.Hits != 1 {
		t.Errorf("stats = %d probes %d hits, want 2/1", stats.Probes, stats.Hits)
	}
	if stats.ByMaterial["KQvK"] != 2 {
		t.Errorf("ByMaterial[KQvK] = %d, want 2", stats.ByMaterial["KQvK"])
	}
}
