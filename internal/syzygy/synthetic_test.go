package syzygy

import (
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/hailam/endgame/internal/board"
)

// The tests below probe table files built in memory, so the compressed
// streams, the sparse index and the block layout are all exercised
// without an installed table set.

const (
	synthBlockLog = 5 // 32 byte blocks
	synthIdxBits  = 15
)

// blockWriter packs Huffman codes into fixed-size blocks and tracks how
// many values each block holds. A code never straddles a block boundary.
type blockWriter struct {
	cur    []byte
	bit    int
	n      int
	blocks []byte
	counts []int
}

func newBlockWriter(blocksizeLog int) *blockWriter {
	return &blockWriter{cur: make([]byte, 1<<uint(blocksizeLog))}
}

func (w *blockWriter) put(code uint64, bits, values int) {
	if w.bit+bits > 8*len(w.cur) {
		w.closeBlock()
	}
	for i := bits - 1; i >= 0; i-- {
		if code>>uint(i)&1 != 0 {
			w.cur[w.bit>>3] |= 0x80 >> uint(w.bit&7)
		}
		w.bit++
	}
	w.n += values
}

func (w *blockWriter) closeBlock() {
	w.blocks = append(w.blocks, w.cur...)
	w.counts = append(w.counts, w.n)
	for i := range w.cur {
		w.cur[i] = 0
	}
	w.bit, w.n = 0, 0
}

func (w *blockWriter) finish() {
	if w.n > 0 {
		w.closeBlock()
	}
}

// synthStream is one compressed value stream ready to be assembled into a
// table file.
type synthStream struct {
	header []byte
	index  []byte
	sizes  []byte
	data   []byte
}

func u16le(v int) []byte { return []byte{byte(v), byte(v >> 8)} }

func u32le(v int) []byte {
	return []byte{byte(v), byte(v >> 8), byte(v >> 16), byte(v >> 24)}
}

func pairsHeader(blocksizeLog, idxbits, numBlocks, maxLen, minLen int, off []uint16, sympat []byte) []byte {
	h := []byte{0, byte(blocksizeLog), byte(idxbits), 0}
	h = append(h, u32le(numBlocks)...)
	h = append(h, byte(maxLen), byte(minLen))
	for _, o := range off {
		h = append(h, u16le(int(o))...)
	}
	numSyms := len(sympat) / 3
	h = append(h, u16le(numSyms)...)
	h = append(h, sympat...)
	if numSyms&1 != 0 {
		h = append(h, 0)
	}
	return h
}

func litSym(v byte) []byte { return []byte{v, 0xF0, 0xFF} }

func pairSym(s1, s2 int) []byte {
	return []byte{byte(s1), byte(s1>>8)&0x0F | byte(s2)&0x0F<<4, byte(s2 >> 4)}
}

func sizeTableBytes(counts []int) []byte {
	b := make([]byte, 0, 2*len(counts))
	for _, c := range counts {
		b = append(b, u16le(c-1)...)
	}
	return b
}

func indexBytes(t *testing.T, counts []int, total, idxbits int) []byte {
	t.Helper()
	numIndices := (total + (1 << uint(idxbits)) - 1) >> uint(idxbits)
	var b []byte
	for i := 0; i < numIndices; i++ {
		anchor := (i << uint(idxbits)) + (1 << uint(idxbits-1))
		if anchor >= total {
			t.Fatalf("index anchor %d beyond %d values", anchor, total)
		}
		start, block := 0, 0
		for anchor >= start+counts[block] {
			start += counts[block]
			block++
		}
		b = append(b, u32le(block)...)
		b = append(b, u16le(anchor-start)...)
	}
	return b
}

// uniformStream encodes count copies of one value with a two-symbol code
// of one bit per value.
func uniformStream(t *testing.T, value byte, count int) synthStream {
	w := newBlockWriter(synthBlockLog)
	for i := 0; i < count; i++ {
		w.put(uint64(i&1), 1, 1)
	}
	w.finish()
	sympat := append(litSym(value), litSym(value)...)
	return synthStream{
		header: pairsHeader(synthBlockLog, synthIdxBits, len(w.counts), 1, 1, []uint16{0}, sympat),
		index:  indexBytes(t, w.counts, count, synthIdxBits),
		sizes:  sizeTableBytes(w.counts),
		data:   w.blocks,
	}
}

// patternStream cycles through four literal values and pairs the first two
// of every cycle into a longer symbol, so decoding exercises both the code
// length descent and the pair expansion.
func patternStream(t *testing.T, values [4]byte, count int) (synthStream, []byte) {
	expected := make([]byte, count)
	for i := range expected {
		expected[i] = values[i%4]
	}
	w := newBlockWriter(synthBlockLog)
	for i := 0; i < count; {
		if i%4 == 0 && i+1 < count {
			w.put(1, 1, 2) // the pair symbol covers values[0], values[1]
			i += 2
		} else {
			w.put(uint64(i%4), 3, 1)
			i++
		}
	}
	w.finish()
	var sympat []byte
	for _, v := range values {
		sympat = append(sympat, litSym(v)...)
	}
	sympat = append(sympat, pairSym(0, 1)...)
	s := synthStream{
		header: pairsHeader(synthBlockLog, synthIdxBits, len(w.counts), 3, 1, []uint16{4, 4, 0}, sympat),
		index:  indexBytes(t, w.counts, count, synthIdxBits),
		sizes:  sizeTableBytes(w.counts),
		data:   w.blocks,
	}
	return s, expected
}

func singleValueStream(value byte) synthStream {
	return synthStream{header: []byte{0x80, value}}
}

// assembleTable lays a table file out the way setupTable reads it back:
// piece layout, parity pad, pairs headers, index tables, size tables and
// 64 byte aligned block data, with slack at the end for the decoder's
// read-ahead. It returns the image and each stream's index table offset.
func assembleTable(magic [4]byte, layout byte, pieceHdr []byte, streams []synthStream) ([]byte, []int) {
	buf := append([]byte{}, magic[:]...)
	buf = append(buf, layout)
	buf = append(buf, pieceHdr...)
	if len(buf)&1 != 0 {
		buf = append(buf, 0)
	}
	for _, s := range streams {
		buf = append(buf, s.header...)
	}
	idxOff := make([]int, len(streams))
	for i, s := range streams {
		idxOff[i] = len(buf)
		buf = append(buf, s.index...)
	}
	for _, s := range streams {
		buf = append(buf, s.sizes...)
	}
	for _, s := range streams {
		for len(buf)&0x3F != 0 {
			buf = append(buf, 0)
		}
		buf = append(buf, s.data...)
	}
	buf = append(buf, make([]byte, 64)...)
	for len(buf)%64 != 16 {
		buf = append(buf, 0)
	}
	return buf, idxOff
}

// pieceHdrBoth packs the same piece order into both side nibbles, pivot
// group first.
func pieceHdrBoth(pieces []byte) []byte {
	h := []byte{0x00}
	for _, p := range pieces {
		h = append(h, p|p<<4)
	}
	return h
}

func writeTableFile(t *testing.T, path string, data []byte) {
	t.Helper()
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}
}

// synthKQvK writes uniform KQvK tables into dir: whoever moves, the side
// with the queen wins, and the DTZ table is stored for the strong side.
func synthKQvK(t *testing.T, dir string) {
	t.Helper()
	pieces := []byte{6, 5, 14} // white king, white queen, black king
	const size = 31332
	wdl, _ := assembleTable(wdlMagic, 0x01, pieceHdrBoth(pieces),
		[]synthStream{uniformStream(t, 4, size), uniformStream(t, 0, size)})
	writeTableFile(t, filepath.Join(dir, "KQvK.rtbw"), wdl)

	dtz, _ := assembleTable(dtzMagic, 0x00, pieceHdrBoth(pieces),
		[]synthStream{singleValueStream(0)})
	writeTableFile(t, filepath.Join(dir, "KQvK.rtbz"), dtz)
}

// synthKRvK writes a KRvK WDL table whose streams follow a known repeating
// pattern, so every index has a predictable value.
func synthKRvK(t *testing.T, dir string) (string, [2][]byte, []int) {
	t.Helper()
	pieces := []byte{6, 4, 14}
	const size = 31332
	s0, want0 := patternStream(t, [4]byte{9, 57, 130, 201}, size)
	s1, want1 := patternStream(t, [4]byte{77, 3, 214, 42}, size)
	data, idxOff := assembleTable(wdlMagic, 0x01, pieceHdrBoth(pieces), []synthStream{s0, s1})
	path := filepath.Join(dir, "KRvK.rtbw")
	writeTableFile(t, path, data)
	return path, [2][]byte{want0, want1}, idxOff
}

// synthPawnSet writes uniform pawn tables: every KPvKP and KPvK position
// is lost for the side to move, so capturing en passant into the child
// table flips the verdict.
func synthPawnSet(t *testing.T, dir string) {
	t.Helper()

	// KPvKP is symmetric: one stream per leading-pawn file section.
	kpkpSection := []byte{0x00, 0x11, 0x11, 0x99, 0x66, 0xEE}
	const kpkpSize = 6 * 47 * 62 * 61
	var hdr []byte
	var streams []synthStream
	for f := 0; f < 4; f++ {
		hdr = append(hdr, kpkpSection...)
		streams = append(streams, uniformStream(t, 0, kpkpSize))
	}
	wdl, _ := assembleTable(wdlMagic, 0x02, hdr, streams)
	writeTableFile(t, filepath.Join(dir, "KPvKP.rtbw"), wdl)

	dtz, _ := assembleTable(dtzMagic, 0x02, hdr, []synthStream{
		singleValueStream(0), singleValueStream(0),
		singleValueStream(0), singleValueStream(0),
	})
	writeTableFile(t, filepath.Join(dir, "KPvKP.rtbz"), dtz)

	// KPvK stores both sides per section.
	kpkSection := []byte{0x00, 0x11, 0x66, 0xEE}
	const kpkSize = 6 * 63 * 62
	hdr = nil
	streams = nil
	for f := 0; f < 4; f++ {
		hdr = append(hdr, kpkSection...)
		streams = append(streams,
			uniformStream(t, 0, kpkSize), uniformStream(t, 0, kpkSize))
	}
	kpk, _ := assembleTable(wdlMagic, 0x03, hdr, streams)
	writeTableFile(t, filepath.Join(dir, "KPvK.rtbw"), kpk)
}

func TestDecompressMultiSymbol(t *testing.T) {
	path, want, _ := synthKRvK(t, t.TempDir())

	wt, err := newWdlTable(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := wt.acquire(); err != nil {
		t.Fatal(err)
	}
	for side := 0; side < 2; side++ {
		for idx := range want[side] {
			v, err := wt.decompressPairs(wt.precomp[side], uint64(idx))
			if err != nil {
				t.Fatalf("side %d idx %d: %v", side, idx, err)
			}
			if v != want[side][idx] {
				t.Fatalf("side %d idx %d = %d, want %d", side, idx, v, want[side][idx])
			}
		}
	}
	wt.release()
	wt.close()
}

func TestDecompressCorruptIndex(t *testing.T) {
	path, _, idxOff := synthKRvK(t, t.TempDir())
	clean, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}

	cases := []struct {
		name  string
		patch func([]byte)
	}{
		{"block out of range", func(b []byte) {
			copy(b[idxOff[0]:], []byte{0xFF, 0xFF, 0xFF, 0xFF})
		}},
		{"offset past last block", func(b []byte) {
			b[idxOff[0]+4], b[idxOff[0]+5] = 0xFF, 0xFF
		}},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			data := append([]byte{}, clean...)
			c.patch(data)
			bad := filepath.Join(t.TempDir(), "KRvK.rtbw")
			writeTableFile(t, bad, data)

			wt, err := newWdlTable(bad)
			if err != nil {
				t.Fatal(err)
			}
			if err := wt.acquire(); err != nil {
				t.Fatal(err)
			}
			_, err = wt.decompressPairs(wt.precomp[0], 0)
			var corrupt *CorruptTableError
			if !errors.As(err, &corrupt) {
				t.Fatalf("decompressPairs = %v, want CorruptTableError", err)
			}
			wt.release()
			wt.close()
		})
	}
}

func TestProbeWDLGeneratedTable(t *testing.T) {
	dir := t.TempDir()
	synthKQvK(t, dir)
	tb := NewTablebase(8)
	if n, err := tb.AddDirectory(dir); err != nil || n != 2 {
		t.Fatalf("AddDirectory = %d, %v", n, err)
	}
	t.Cleanup(tb.Close)

	cases := []struct {
		fen string
		wdl int
	}{
		{"K7/8/2Q5/8/8/8/8/6k1 w - - 0 1", 2},
		{"K7/8/2Q5/8/8/8/8/6k1 b - - 0 1", -2},
		{"k7/8/2q5/8/8/8/8/6K1 w - - 0 1", -2},
		{"k7/8/2q5/8/8/8/8/6K1 b - - 0 1", 2},
	}
	for _, c := range cases {
		got, err := tb.ProbeWDL(mustPosition(t, c.fen))
		if err != nil {
			t.Fatalf("ProbeWDL(%q): %v", c.fen, err)
		}
		if got != c.wdl {
			t.Errorf("ProbeWDL(%q) = %d, want %d", c.fen, got, c.wdl)
		}
	}
}

func TestProbeDTZGeneratedTable(t *testing.T) {
	dir := t.TempDir()
	synthKQvK(t, dir)
	tb := NewTablebase(8)
	if n, err := tb.AddDirectory(dir); err != nil || n != 2 {
		t.Fatalf("AddDirectory = %d, %v", n, err)
	}
	t.Cleanup(tb.Close)

	// The strong side is stored with distance zero, so its DTZ is the
	// immediate-win 1.
	v, err := tb.ProbeDTZ(mustPosition(t, "K7/8/2Q5/8/8/8/8/6k1 w - - 0 1"))
	if err != nil {
		t.Fatal(err)
	}
	if v != 1 {
		t.Errorf("ProbeDTZ strong side = %d, want 1", v)
	}

	// The weak side is not stored: its value comes from a one ply minimax
	// over the stored replies.
	v, err = tb.ProbeDTZ(mustPosition(t, "K7/8/2Q5/8/8/8/8/6k1 b - - 0 1"))
	if err != nil {
		t.Fatal(err)
	}
	if v != -2 {
		t.Errorf("ProbeDTZ weak side = %d, want -2", v)
	}
}

func TestProbeEnPassantGeneratedTable(t *testing.T) {
	dir := t.TempDir()
	synthPawnSet(t, dir)
	tb := NewTablebase(8)
	if n, err := tb.AddDirectory(dir); err != nil || n != 3 {
		t.Fatalf("AddDirectory = %d, %v", n, err)
	}
	t.Cleanup(tb.Close)

	pos := mustPosition(t, "8/8/8/8/2pP4/2K5/4k3/8 b - d3 0 1")

	// The tables call every position lost for the side to move, so the
	// raw table value is a loss.
	v, err := tb.probeDTZNoEP(pos)
	if err != nil {
		t.Fatal(err)
	}
	if v != -1 {
		t.Errorf("probeDTZNoEP = %d, want -1", v)
	}

	// The en passant capture reaches a KPvK child that is lost for the
	// opponent, which overrides the table value.
	v, err = tb.ProbeDTZ(pos)
	if err != nil {
		t.Fatal(err)
	}
	if v != 1 {
		t.Errorf("ProbeDTZ = %d, want 1", v)
	}

	w, err := tb.ProbeWDL(pos)
	if err != nil {
		t.Fatal(err)
	}
	if w != 2 {
		t.Errorf("ProbeWDL = %d, want 2", w)
	}
}

func TestProbeDuringClose(t *testing.T) {
	dir := t.TempDir()
	synthKQvK(t, dir)
	tb := NewTablebase(4)
	if n, err := tb.AddDirectory(dir); err != nil || n != 2 {
		t.Fatalf("AddDirectory = %d, %v", n, err)
	}
	t.Cleanup(tb.Close)

	done := make(chan struct{})
	var closer sync.WaitGroup
	closer.Add(1)
	go func() {
		defer closer.Done()
		for {
			select {
			case <-done:
				return
			default:
				tb.Close()
			}
		}
	}()

	// The file never goes away, so a probe racing a close must still
	// succeed: the mapping is simply re-established.
	var probers sync.WaitGroup
	for i := 0; i < 4; i++ {
		probers.Add(1)
		go func() {
			defer probers.Done()
			for j := 0; j < 50; j++ {
				pos, err := board.ParseFEN("K7/8/2Q5/8/8/8/8/6k1 w - - 0 1")
				if err != nil {
					t.Error(err)
					return
				}
				v, err := tb.ProbeWDL(pos)
				if err != nil {
					t.Errorf("ProbeWDL during close: %v", err)
					return
				}
				if v != 2 {
					t.Errorf("ProbeWDL during close = %d, want 2", v)
					return
				}
			}
		}()
	}
	probers.Wait()
	close(done)
	closer.Wait()
}
