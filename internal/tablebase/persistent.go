package tablebase

import (
	"log"

	"github.com/hailam/endgame/internal/board"
	"github.com/hailam/endgame/internal/storage"
	"github.com/hailam/endgame/internal/syzygy"
)

// PersistentProber wraps another prober with an on-disk result cache.
// Results survive restarts, which matters most for the API fallback.
type PersistentProber struct {
	inner Prober
	store *storage.Storage
}

// NewPersistentProber creates a persistent cached prober over the given store.
func NewPersistentProber(inner Prober, store *storage.Storage) *PersistentProber {
	return &PersistentProber{inner: inner, store: store}
}

func (pp *PersistentProber) Probe(pos *board.Position) ProbeResult {
	material := syzygy.CalcKey(pos, false)

	rec, found, err := pp.store.LoadProbe(pos.Hash)
	if err != nil {
		log.Printf("[Syzygy] Probe cache read failed: %v", err)
	}
	if found {
		pp.record(material, true)
		return ProbeResult{Found: true, WDL: WDL(rec.WDL), DTZ: rec.DTZ}
	}

	result := pp.inner.Probe(pos)
	pp.record(material, false)

	if result.Found {
		err := pp.store.SaveProbe(pos.Hash, storage.ProbeRecord{
			WDL: int(result.WDL),
			DTZ: result.DTZ,
		})
		if err != nil {
			log.Printf("[Syzygy] Probe cache write failed: %v", err)
		}
	}
	return result
}

func (pp *PersistentProber) record(material string, hit bool) {
	if err := pp.store.RecordProbe(material, hit); err != nil {
		log.Printf("[Syzygy] Stats update failed: %v", err)
	}
}

func (pp *PersistentProber) ProbeRoot(pos *board.Position) RootResult {
	// Root probing is not cached (needs move info)
	return pp.inner.ProbeRoot(pos)
}

func (pp *PersistentProber) MaxPieces() int {
	return pp.inner.MaxPieces()
}

func (pp *PersistentProber) Available() bool {
	return pp.inner.Available()
}

// Stats returns the cumulative probe statistics.
func (pp *PersistentProber) Stats() (*storage.ProbeStats, error) {
	return pp.store.LoadStats()
}
