package storage

import (
	"encoding/binary"
	"encoding/json"
	"time"

	"github.com/dgraph-io/badger/v4"
)

// Storage keys
const (
	keyStats       = "stats"
	probeKeyPrefix = "probe:"
)

// Cached probe results rot slowly; table files never change, but API
// results may.
const probeTTL = 30 * 24 * time.Hour

// ProbeRecord is a cached tablebase verdict for one position.
type ProbeRecord struct {
	WDL int `json:"wdl"`
	DTZ int `json:"dtz"`
}

// ProbeStats stores cumulative probe statistics.
type ProbeStats struct {
	Probes     uint64            `json:"probes"`
	Hits       uint64            `json:"hits"`
	Misses     uint64            `json:"misses"`
	ByMaterial map[string]uint64 `json:"by_material"`
	LastProbe  time.Time         `json:"last_probe"`
}

// NewProbeStats returns empty probe statistics
func NewProbeStats() *ProbeStats {
	return &ProbeStats{
		ByMaterial: make(map[string]uint64),
	}
}

// HitRate returns the cache hit rate as a percentage (0-100)
func (s *ProbeStats) HitRate() float64 {
	if s.Probes == 0 {
		return 0
	}
	return float64(s.Hits) / float64(s.Probes) * 100
}

// Storage wraps BadgerDB for persistent storage
type Storage struct {
	db *badger.DB
}

// NewStorage creates a new storage instance in the default data directory
func NewStorage() (*Storage, error) {
	dbDir, err := GetDatabaseDir()
	if err != nil {
		return nil, err
	}
	return OpenStorage(dbDir)
}

// OpenStorage creates a storage instance in the given directory
func OpenStorage(dir string) (*Storage, error) {
	opts := badger.DefaultOptions(dir)
	opts.Logger = nil // Disable logging

	db, err := badger.Open(opts)
	if err != nil {
		return nil, err
	}

	return &Storage{db: db}, nil
}

// Close closes the database
func (s *Storage) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

func probeKey(hash uint64) []byte {
	key := make([]byte, len(probeKeyPrefix)+8)
	copy(key, probeKeyPrefix)
	binary.BigEndian.PutUint64(key[len(probeKeyPrefix):], hash)
	return key
}

// SaveProbe caches a probe result keyed by position hash
func (s *Storage) SaveProbe(hash uint64, rec ProbeRecord) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return err
	}

	return s.db.Update(func(txn *badger.Txn) error {
		entry := badger.NewEntry(probeKey(hash), data).WithTTL(probeTTL)
		return txn.SetEntry(entry)
	})
}

// LoadProbe looks up a cached probe result by position hash
func (s *Storage) LoadProbe(hash uint64) (ProbeRecord, bool, error) {
	var rec ProbeRecord
	found := false

	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(probeKey(hash))
		if err == badger.ErrKeyNotFound {
			return nil
		}
		if err != nil {
			return err
		}

		return item.Value(func(val []byte) error {
			if err := json.Unmarshal(val, &rec); err != nil {
				return err
			}
			found = true
			return nil
		})
	})

	return rec, found, err
}

// SaveStats saves probe statistics
func (s *Storage) SaveStats(stats *ProbeStats) error {
	data, err := json.Marshal(stats)
	if err != nil {
		return err
	}

	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(keyStats), data)
	})
}

// LoadStats loads probe statistics, returns empty stats if not found
func (s *Storage) LoadStats() (*ProbeStats, error) {
	stats := NewProbeStats()

	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(keyStats))
		if err == badger.ErrKeyNotFound {
			return nil // Use empty stats
		}
		if err != nil {
			return err
		}

		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, stats)
		})
	})

	return stats, err
}

// RecordProbe records one probe against the statistics. material is the
// normalized tablebase name, hit says whether the cache answered.
func (s *Storage) RecordProbe(material string, hit bool) error {
	stats, err := s.LoadStats()
	if err != nil {
		return err
	}

	stats.Probes++
	if hit {
		stats.Hits++
	} else {
		stats.Misses++
	}
	if material != "" {
		stats.ByMaterial[material]++
	}
	stats.LastProbe = time.Now()

	return s.SaveStats(stats)
}
