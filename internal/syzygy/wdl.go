package syzygy

import (
	"github.com/hailam/endgame/internal/board"
)

// pawnFileData holds the per-file-section layout of a pawn table: each of
// the four sections where the leading pawn stands has its own piece order,
// grouping and compressed streams.
type pawnFileData struct {
	precomp [2]*pairsData
	pieces  [2][maxPieces]byte
	norm    [2][maxPieces]byte
	factor  [2][maxPieces]uint64
}

// wdlTable is a win/draw/loss table. Values are stored for both sides to
// move unless the split bit is clear, which only happens for symmetric
// material.
type wdlTable struct {
	baseTable

	// Pawnless layout.
	precomp [2]*pairsData
	pieces  [2][maxPieces]byte
	norm    [2][maxPieces]byte
	factor  [2][maxPieces]uint64

	// Pawn layout, one entry per file section of the leading pawn.
	files [4]pawnFileData
}

func newWdlTable(path string) (*wdlTable, error) {
	t := &wdlTable{}
	t.magic = wdlMagic
	if err := t.initMeta(path); err != nil {
		return nil, err
	}
	t.setup = t.setupTable
	t.teardown = t.teardownTable
	return t, nil
}

func (t *wdlTable) teardownTable() {
	t.precomp = [2]*pairsData{}
	t.files = [4]pawnFileData{}
}

// setupTable parses the header: piece layouts first, then the pairs
// headers, then the index tables, size tables and 64 byte aligned block
// data, laid out stream by stream.
func (t *wdlTable) setupTable() error {
	it := sharedTables()

	var tbSize [8]uint64
	var size [24]uint64

	split := t.data[4]&0x01 != 0
	numFiles := 1
	if t.data[4]&0x02 != 0 {
		numFiles = 4
	}

	ptr := 5
	if !t.hasPawns {
		t.setupPiecesPiece(it, ptr, &tbSize)
		ptr += t.num + 1
		ptr += ptr & 1

		var err error
		t.precomp[0], _, ptr, err = t.setupPairs(ptr, tbSize[0], size[0:3], true)
		if err != nil {
			return err
		}
		if split {
			t.precomp[1], _, ptr, err = t.setupPairs(ptr, tbSize[1], size[3:6], true)
			if err != nil {
				return err
			}
		}

		t.precomp[0].indexTable = ptr
		ptr += int(size[0])
		if split {
			t.precomp[1].indexTable = ptr
			ptr += int(size[3])
		}

		t.precomp[0].sizeTable = ptr
		ptr += int(size[1])
		if split {
			t.precomp[1].sizeTable = ptr
			ptr += int(size[4])
		}

		t.precomp[0].data = (ptr + 0x3F) &^ 0x3F
		ptr = t.precomp[0].data + int(size[2])
		if split {
			t.precomp[1].data = (ptr + 0x3F) &^ 0x3F
		}
		return nil
	}

	s := 1
	if t.pawns[1] > 0 {
		s = 2
	}
	for f := 0; f < 4; f++ {
		t.setupPiecesPawn(it, ptr, 2*f, f, &tbSize)
		ptr += t.num + s
	}
	ptr += ptr & 1

	var err error
	for f := 0; f < numFiles; f++ {
		t.files[f].precomp[0], _, ptr, err = t.setupPairs(ptr, tbSize[2*f], size[6*f:6*f+3], true)
		if err != nil {
			return err
		}
		if split {
			t.files[f].precomp[1], _, ptr, err = t.setupPairs(ptr, tbSize[2*f+1], size[6*f+3:6*f+6], true)
			if err != nil {
				return err
			}
		}
	}

	for f := 0; f < numFiles; f++ {
		t.files[f].precomp[0].indexTable = ptr
		ptr += int(size[6*f])
		if split {
			t.files[f].precomp[1].indexTable = ptr
			ptr += int(size[6*f+3])
		}
	}

	for f := 0; f < numFiles; f++ {
		t.files[f].precomp[0].sizeTable = ptr
		ptr += int(size[6*f+1])
		if split {
			t.files[f].precomp[1].sizeTable = ptr
			ptr += int(size[6*f+4])
		}
	}

	for f := 0; f < numFiles; f++ {
		ptr = (ptr + 0x3F) &^ 0x3F
		t.files[f].precomp[0].data = ptr
		ptr += int(size[6*f+2])
		if split {
			ptr = (ptr + 0x3F) &^ 0x3F
			t.files[f].precomp[1].data = ptr
			ptr += int(size[6*f+5])
		}
	}
	return nil
}

func (t *wdlTable) setupPiecesPiece(it *indexTables, ptr int, tbSize *[8]uint64) {
	for side := 0; side < 2; side++ {
		shift := uint(4 * side)
		for i := 0; i < t.num; i++ {
			t.pieces[side][i] = t.data[ptr+i+1] >> shift & 0x0F
		}
		order := int(t.data[ptr] >> shift & 0x0F)
		setNormPiece(t.num, t.encType, t.pieces[side][:], t.norm[side][:])
		tbSize[side] = it.calcFactorsPiece(t.factor[side][:], t.num, order, t.norm[side][:], t.encType)
	}
}

func (t *wdlTable) setupPiecesPawn(it *indexTables, ptr, sizeIdx, f int, tbSize *[8]uint64) {
	j := 1
	if t.pawns[1] > 0 {
		j = 2
	}
	for side := 0; side < 2; side++ {
		shift := uint(4 * side)
		order := int(t.data[ptr] >> shift & 0x0F)
		order2 := 0x0F
		if t.pawns[1] > 0 {
			order2 = int(t.data[ptr+1] >> shift & 0x0F)
		}
		fd := &t.files[f]
		for i := 0; i < t.num; i++ {
			fd.pieces[side][i] = t.data[ptr+i+j] >> shift & 0x0F
		}
		setNormPawn(t.num, t.pawns, fd.pieces[side][:], fd.norm[side][:])
		tbSize[sizeIdx+side] = it.calcFactorsPawn(fd.factor[side][:], t.num, order, order2, fd.norm[side][:], f)
	}
}

// probe returns the WDL value of the position from the white point of
// view of the table key, in -2..2.
func (t *wdlTable) probe(pos *board.Position) (int, error) {
	if err := t.acquire(); err != nil {
		return 0, err
	}
	defer t.release()

	it := sharedTables()
	cmirror, mirror, bside := t.orient(pos)

	var p [maxPieces]int
	if !t.hasPawns {
		i := 0
		for i < t.num {
			pc := t.pieces[bside][i]
			color := board.Color((pc ^ cmirror) >> 3)
			pt := board.PieceType(pc&0x07) - 1
			bb := pos.Pieces[color][pt]
			for bb != 0 {
				if i >= t.num {
					return 0, t.corrupt("piece layout mismatch")
				}
				p[i] = int(bb.PopLSB())
				i++
			}
		}
		idx := it.encodePiece(t.encType, t.num, t.norm[bside][:], p[:], t.factor[bside][:])
		v, err := t.decompressPairs(t.precomp[bside], idx)
		if err != nil {
			return 0, err
		}
		return int(v) - 2, nil
	}

	// The leading pawns select the file section; their squares are needed
	// before the section's piece order is known.
	k := t.files[0].pieces[0][0] ^ cmirror
	color := board.Color(k >> 3)
	pt := board.PieceType(k&0x07) - 1
	bb := pos.Pieces[color][pt]
	i := 0
	for bb != 0 {
		if i >= t.num {
			return 0, t.corrupt("piece layout mismatch")
		}
		p[i] = int(bb.PopLSB()) ^ int(mirror)
		i++
	}
	f := it.pawnFile(t.pawns, p[:])
	fd := &t.files[f]
	for i < t.num {
		pc := fd.pieces[bside][i]
		color := board.Color((pc ^ cmirror) >> 3)
		pt := board.PieceType(pc&0x07) - 1
		bb := pos.Pieces[color][pt]
		for bb != 0 {
			if i >= t.num {
				return 0, t.corrupt("piece layout mismatch")
			}
			p[i] = int(bb.PopLSB()) ^ int(mirror)
			i++
		}
	}
	idx := it.encodePawn(t.pawns, t.num, fd.norm[bside][:], p[:], fd.factor[bside][:])
	v, err := t.decompressPairs(fd.precomp[bside], idx)
	if err != nil {
		return 0, err
	}
	return int(v) - 2, nil
}

// orient decides which stored side to probe and which color and board
// mirrors to apply so the position matches the table key.
func (t *baseTable) orient(pos *board.Position) (cmirror, mirror byte, bside int) {
	if !t.symmetric {
		if CalcKey(pos, false) != t.key {
			cmirror, mirror = 8, 0x38
			bside = b2i(pos.SideToMove == board.White)
		} else {
			bside = b2i(pos.SideToMove != board.White)
		}
		return cmirror, mirror, bside
	}
	if pos.SideToMove != board.White {
		cmirror, mirror = 8, 0x38
	}
	return cmirror, mirror, 0
}
