package tablebase

import (
	"container/list"
	"sync"

	"github.com/hailam/endgame/internal/board"
)

// CachedProber wraps another prober with an LRU cache.
// This reduces API calls for frequently probed positions.
type CachedProber struct {
	inner   Prober
	mu      sync.Mutex
	cache   map[uint64]*list.Element
	order   *list.List
	maxSize int
	hits    uint64
	misses  uint64
}

type cacheEntry struct {
	key    uint64
	result ProbeResult
}

// NewCachedProber creates a cached prober wrapping the given prober.
func NewCachedProber(inner Prober, cacheSize int) *CachedProber {
	return &CachedProber{
		inner:   inner,
		cache:   make(map[uint64]*list.Element, cacheSize),
		order:   list.New(),
		maxSize: cacheSize,
	}
}

// NewCachedLichessProber creates a cached Lichess prober with default cache size.
func NewCachedLichessProber() *CachedProber {
	return NewCachedProber(NewLichessProber(), 100000)
}

func (cp *CachedProber) Probe(pos *board.Position) ProbeResult {
	cp.mu.Lock()
	if elem, ok := cp.cache[pos.Hash]; ok {
		cp.order.MoveToFront(elem)
		cp.hits++
		result := elem.Value.(*cacheEntry).result
		cp.mu.Unlock()
		return result
	}
	cp.mu.Unlock()

	result := cp.inner.Probe(pos)

	cp.mu.Lock()
	cp.misses++
	if elem, ok := cp.cache[pos.Hash]; ok {
		// Someone raced us; keep their entry.
		cp.order.MoveToFront(elem)
	} else {
		for cp.order.Len() >= cp.maxSize {
			oldest := cp.order.Back()
			cp.order.Remove(oldest)
			delete(cp.cache, oldest.Value.(*cacheEntry).key)
		}
		cp.cache[pos.Hash] = cp.order.PushFront(&cacheEntry{key: pos.Hash, result: result})
	}
	cp.mu.Unlock()

	return result
}

func (cp *CachedProber) ProbeRoot(pos *board.Position) RootResult {
	// Root probing is not cached (needs move info)
	return cp.inner.ProbeRoot(pos)
}

func (cp *CachedProber) MaxPieces() int {
	return cp.inner.MaxPieces()
}

func (cp *CachedProber) Available() bool {
	return cp.inner.Available()
}

// HitRate returns the cache hit rate as a percentage.
func (cp *CachedProber) HitRate() float64 {
	cp.mu.Lock()
	defer cp.mu.Unlock()
	total := cp.hits + cp.misses
	if total == 0 {
		return 0
	}
	return float64(cp.hits) / float64(total) * 100
}

// CacheSize returns the current number of cached entries.
func (cp *CachedProber) CacheSize() int {
	cp.mu.Lock()
	defer cp.mu.Unlock()
	return cp.order.Len()
}

// Clear clears the cache.
func (cp *CachedProber) Clear() {
	cp.mu.Lock()
	defer cp.mu.Unlock()
	cp.cache = make(map[uint64]*list.Element, cp.maxSize)
	cp.order.Init()
	cp.hits = 0
	cp.misses = 0
}
