package tablebase

import (
	"errors"
	"log"
	"os"
	"sync"

	"github.com/hailam/endgame/internal/board"
	"github.com/hailam/endgame/internal/syzygy"
)

// SyzygyProber probes local Syzygy tablebase files, falling back to the
// Lichess API for endgames that are not on disk.
type SyzygyProber struct {
	mu         sync.RWMutex
	path       string
	tables     *syzygy.Tablebase
	maxPieces  int
	available  bool
	fallback   Prober
	downloader *SyzygyDownloader
}

// NewSyzygyProber creates a new Syzygy prober over the given directory.
// If path is empty, the default cache directory is used.
func NewSyzygyProber(path string) *SyzygyProber {
	if path == "" {
		path = DefaultCacheDir()
	}

	sp := &SyzygyProber{
		path:       path,
		fallback:   NewCachedLichessProber(),
		downloader: NewSyzygyDownloader(path),
	}
	sp.refresh()
	return sp
}

// refresh rescans the table directory and rebuilds the reader.
func (sp *SyzygyProber) refresh() {
	sp.mu.Lock()
	defer sp.mu.Unlock()

	if sp.tables != nil {
		sp.tables.Close()
	}
	sp.tables = syzygy.NewTablebase(0)

	if _, err := os.Stat(sp.path); os.IsNotExist(err) {
		sp.available = false
		sp.maxPieces = 0
		log.Printf("[Syzygy] Path does not exist: %s, using Lichess API fallback", sp.path)
		return
	}

	n, err := sp.tables.AddDirectory(sp.path)
	if err != nil {
		log.Printf("[Syzygy] Failed to scan %s: %v", sp.path, err)
	}
	sp.maxPieces = sp.tables.LargestWdl()
	sp.available = sp.maxPieces > 0

	if sp.available {
		log.Printf("[Syzygy] Found %d local tablebase files at %s (max %d pieces)", n, sp.path, sp.maxPieces)
	} else {
		log.Printf("[Syzygy] No local tablebases found at %s, using Lichess API fallback", sp.path)
	}
}

// SetPath updates the tablebase path and rescans it.
func (sp *SyzygyProber) SetPath(path string) {
	if path == "" {
		path = DefaultCacheDir()
	}
	sp.mu.Lock()
	sp.path = path
	sp.downloader = NewSyzygyDownloader(path)
	sp.mu.Unlock()
	sp.refresh()
}

// Probe looks up a position, local files first.
func (sp *SyzygyProber) Probe(pos *board.Position) ProbeResult {
	pieceCount := CountPieces(pos)
	if pieceCount > 7 {
		return ProbeResult{Found: false}
	}

	sp.mu.RLock()
	tables := sp.tables
	localMax := sp.maxPieces
	sp.mu.RUnlock()

	if pieceCount <= localMax {
		if res, ok := sp.probeLocal(tables, pos); ok {
			return res
		}
	}
	return sp.fallback.Probe(pos)
}

func (sp *SyzygyProber) probeLocal(tables *syzygy.Tablebase, pos *board.Position) (ProbeResult, bool) {
	wdl, err := tables.ProbeWDL(pos)
	if err != nil {
		sp.reportProbeError(err)
		return ProbeResult{}, false
	}

	// A missing DTZ table does not invalidate the WDL result.
	dtz, err := tables.ProbeDTZ(pos)
	if err != nil {
		sp.reportProbeError(err)
		dtz = 0
	}
	return ProbeResult{Found: true, WDL: WDL(wdl), DTZ: dtz}, true
}

func (sp *SyzygyProber) reportProbeError(err error) {
	var corrupt *syzygy.CorruptTableError
	if errors.As(err, &corrupt) {
		log.Printf("[Syzygy] %v", corrupt)
	}
}

// ProbeRoot ranks root moves by DTZ using local files, falling back to
// the Lichess API.
func (sp *SyzygyProber) ProbeRoot(pos *board.Position) RootResult {
	pieceCount := CountPieces(pos)
	if pieceCount > 7 {
		return RootResult{Found: false}
	}

	sp.mu.RLock()
	tables := sp.tables
	localMax := sp.maxPieces
	sp.mu.RUnlock()

	if pieceCount <= localMax {
		best, evals, err := tables.ProbeRoot(pos)
		if err == nil && len(evals) > 0 {
			return RootResult{
				Found: true,
				Move:  best,
				WDL:   WDL(evals[0].WDL),
				DTZ:   evals[0].DTZ,
			}
		}
		if err != nil {
			sp.reportProbeError(err)
		}
	}
	return sp.fallback.ProbeRoot(pos)
}

// MaxPieces returns the maximum number of pieces supported, counting the
// API fallback.
func (sp *SyzygyProber) MaxPieces() int {
	return 7
}

// Available returns true; the Lichess fallback always answers.
func (sp *SyzygyProber) Available() bool {
	return true
}

// LocalMaxPieces returns the max pieces available from local files.
func (sp *SyzygyProber) LocalMaxPieces() int {
	sp.mu.RLock()
	defer sp.mu.RUnlock()
	return sp.maxPieces
}

// HasLocalFiles returns true if local tablebase files exist.
func (sp *SyzygyProber) HasLocalFiles() bool {
	sp.mu.RLock()
	defer sp.mu.RUnlock()
	return sp.available
}

// Path returns the current tablebase path.
func (sp *SyzygyProber) Path() string {
	sp.mu.RLock()
	defer sp.mu.RUnlock()
	return sp.path
}

// Close releases the mapped table files.
func (sp *SyzygyProber) Close() {
	sp.mu.Lock()
	defer sp.mu.Unlock()
	if sp.tables != nil {
		sp.tables.Close()
	}
}

// Download5Piece downloads the complete 5-piece table set and rescans.
// Returns a channel for progress updates.
func (sp *SyzygyProber) Download5Piece() (<-chan DownloadProgress, error) {
	if err := sp.downloader.EnsureCacheDir(); err != nil {
		return nil, err
	}

	progress := make(chan DownloadProgress, 100)
	go func() {
		defer close(progress)
		if err := sp.downloader.Download5Piece(progress); err != nil {
			progress <- DownloadProgress{Error: err}
		}
		sp.refresh()
	}()
	return progress, nil
}
