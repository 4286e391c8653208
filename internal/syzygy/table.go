package syzygy

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/edsrzf/mmap-go"
)

// Magic bytes at the start of every table file.
var (
	wdlMagic = [4]byte{0x71, 0xE8, 0x23, 0x5D}
	dtzMagic = [4]byte{0xD7, 0x66, 0x0C, 0xA5}
)

const (
	// Table name extensions.
	wdlSuffix = ".rtbw"
	dtzSuffix = ".rtbz"
)

// baseTable carries the memory mapping and the metadata both WDL and DTZ
// tables derive from their filename. The mapping is created lazily on the
// first probe and torn down by Close, so a Tablebase can track thousands of
// tables while only a bounded number hold OS resources.
type baseTable struct {
	path  string
	magic [4]byte

	key         string
	mirroredKey string
	symmetric   bool
	num         int
	hasPawns    bool
	pawns       [2]int
	encType     int

	mu    sync.RWMutex
	ready bool
	file  *os.File
	data  mmap.MMap

	// setup parses the table header after the mapping is established,
	// teardown drops the parsed state when the mapping goes away. Both
	// are called with mu held for writing.
	setup    func() error
	teardown func()
}

func (t *baseTable) initMeta(path string) error {
	t.path = path
	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	if !IsTablename(name) {
		return fmt.Errorf("unrecognized table name %q", name)
	}
	t.key = NormalizeTablename(name, false)
	t.mirroredKey = NormalizeTablename(name, true)
	t.symmetric = t.key == t.mirroredKey

	// The v does not count as a piece.
	t.num = len(name) - 1
	t.hasPawns = strings.Contains(name, "P")

	w, b, _ := strings.Cut(name, "v")
	if t.hasPawns {
		wp, bp := strings.Count(w, "P"), strings.Count(b, "P")
		if bp > 0 && (wp == 0 || bp < wp) {
			wp, bp = bp, wp
		}
		t.pawns = [2]int{wp, bp}
	} else {
		singles := 0
		for _, c := range pchr {
			if strings.Count(w, string(c)) == 1 {
				singles++
			}
			if strings.Count(b, string(c)) == 1 {
				singles++
			}
		}
		switch {
		case singles >= 3:
			t.encType = 0
		case singles == 2:
			t.encType = 2
		default:
			return fmt.Errorf("table %q has no singleton piece", name)
		}
	}
	return nil
}

// acquire maps the table into memory if needed and takes a read lock over
// the mapping. Every probe pairs it with release. A concurrent close can
// drop the mapping between the init and the read lock, so the init is
// retried until the mapping is observed under the read lock.
func (t *baseTable) acquire() error {
	for {
		t.mu.RLock()
		if t.ready {
			return nil
		}
		t.mu.RUnlock()

		t.mu.Lock()
		if !t.ready {
			if err := t.initMmap(); err != nil {
				t.mu.Unlock()
				return err
			}
		}
		t.mu.Unlock()
	}
}

func (t *baseTable) release() {
	t.mu.RUnlock()
}

// initMmap opens and maps the file, verifies its framing and runs the
// table-specific header setup. Called with mu held for writing.
func (t *baseTable) initMmap() error {
	f, err := os.Open(t.path)
	if err != nil {
		return &MissingTableError{Key: t.key}
	}

	fi, err := f.Stat()
	if err != nil {
		f.Close()
		return err
	}
	if fi.Size()%64 != 16 {
		f.Close()
		return &CorruptTableError{Path: t.path, Reason: "invalid file size"}
	}

	data, err := mmap.Map(f, mmap.RDONLY, 0)
	if err != nil {
		f.Close()
		return err
	}
	if len(data) < 4 || !bytes.Equal(data[:4], t.magic[:]) {
		data.Unmap()
		f.Close()
		return &CorruptTableError{Path: t.path, Reason: "invalid magic header"}
	}

	t.file = f
	t.data = data
	if err := t.setup(); err != nil {
		t.dropMmap()
		return err
	}
	t.ready = true
	return nil
}

func (t *baseTable) dropMmap() {
	if t.teardown != nil {
		t.teardown()
	}
	if t.data != nil {
		t.data.Unmap()
		t.data = nil
	}
	if t.file != nil {
		t.file.Close()
		t.file = nil
	}
	t.ready = false
}

// close releases the mapping. Waits for in-flight probes and is a no-op
// when the table was never opened. The table can be probed again
// afterwards, the mapping simply comes back.
func (t *baseTable) close() {
	t.mu.Lock()
	t.dropMmap()
	t.mu.Unlock()
}

func (t *baseTable) corrupt(reason string) *CorruptTableError {
	return &CorruptTableError{Path: t.path, Reason: reason}
}

// Raw reads over the mapping. Index and size tables are little endian,
// the Huffman stream inside blocks is big endian.

func (t *baseTable) readUint16LE(ptr int) uint16 {
	return binary.LittleEndian.Uint16(t.data[ptr:])
}

func (t *baseTable) readUint32LE(ptr int) uint32 {
	return binary.LittleEndian.Uint32(t.data[ptr:])
}

func (t *baseTable) readUint32BE(ptr int) uint32 {
	return binary.BigEndian.Uint32(t.data[ptr:])
}

func (t *baseTable) readUint64BE(ptr int) uint64 {
	return binary.BigEndian.Uint64(t.data[ptr:])
}
