package syzygy

import (
	"github.com/hailam/endgame/internal/board"
)

// wdlToMap selects which of the four stored value maps applies: losses,
// blessed losses, cursed wins and wins each have their own.
var wdlToMap = [5]int{1, 3, 0, 2, 0}

// paFlags marks the table flag that says ply counts for the given WDL
// class are stored directly instead of in half resolution.
var paFlags = [5]byte{8, 0, 0, 0, 4}

// dtzFileData is one file section of a DTZ table. DTZ values are stored
// for a single side to move, so unlike WDL there is no split layout.
type dtzFileData struct {
	precomp *pairsData
	pieces  [maxPieces]byte
	norm    [maxPieces]byte
	factor  [maxPieces]uint64
	flags   byte
	mapIdx  [4]int
}

// dtzTable is a distance-to-zeroing table. Pawnless tables use files[0]
// only.
type dtzTable struct {
	baseTable

	pMap  int
	files [4]dtzFileData
}

func newDtzTable(path string) (*dtzTable, error) {
	t := &dtzTable{}
	t.magic = dtzMagic
	if err := t.initMeta(path); err != nil {
		return nil, err
	}
	t.setup = t.setupTable
	t.teardown = t.teardownTable
	return t, nil
}

func (t *dtzTable) teardownTable() {
	t.files = [4]dtzFileData{}
	t.pMap = 0
}

func (t *dtzTable) setupTable() error {
	it := sharedTables()

	var tbSize [4]uint64
	var size [12]uint64

	numFiles := 1
	if t.data[4]&0x02 != 0 {
		numFiles = 4
	}

	ptr := 5
	if !t.hasPawns {
		t.setupPiecesPiece(it, ptr, &tbSize)
		ptr += t.num + 1
		ptr += ptr & 1

		d := &t.files[0]
		var err error
		d.precomp, d.flags, ptr, err = t.setupPairs(ptr, tbSize[0], size[0:3], false)
		if err != nil {
			return err
		}

		// The value map translates stored codes to ply counts.
		t.pMap = ptr
		if d.flags&2 != 0 {
			if d.flags&16 == 0 {
				for i := 0; i < 4; i++ {
					d.mapIdx[i] = ptr + 1 - t.pMap
					ptr += 1 + int(t.data[ptr])
				}
			} else {
				for i := 0; i < 4; i++ {
					d.mapIdx[i] = (ptr + 2 - t.pMap) / 2
					ptr += 2 + 2*int(t.readUint16LE(ptr))
				}
			}
			ptr += ptr & 1
		}

		d.precomp.indexTable = ptr
		ptr += int(size[0])
		d.precomp.sizeTable = ptr
		ptr += int(size[1])
		d.precomp.data = (ptr + 0x3F) &^ 0x3F
		return nil
	}

	s := 1
	if t.pawns[1] > 0 {
		s = 2
	}
	for f := 0; f < 4; f++ {
		t.setupPiecesPawn(it, ptr, f, f, &tbSize)
		ptr += t.num + s
	}
	ptr += ptr & 1

	var err error
	for f := 0; f < numFiles; f++ {
		t.files[f].precomp, t.files[f].flags, ptr, err = t.setupPairs(ptr, tbSize[f], size[3*f:3*f+3], false)
		if err != nil {
			return err
		}
	}

	t.pMap = ptr
	for f := 0; f < numFiles; f++ {
		d := &t.files[f]
		if d.flags&2 == 0 {
			continue
		}
		if d.flags&16 == 0 {
			for i := 0; i < 4; i++ {
				d.mapIdx[i] = ptr + 1 - t.pMap
				ptr += 1 + int(t.data[ptr])
			}
		} else {
			for i := 0; i < 4; i++ {
				d.mapIdx[i] = (ptr + 2 - t.pMap) / 2
				ptr += 2 + 2*int(t.readUint16LE(ptr))
			}
		}
	}
	ptr += ptr & 1

	for f := 0; f < numFiles; f++ {
		t.files[f].precomp.indexTable = ptr
		ptr += int(size[3*f])
	}
	for f := 0; f < numFiles; f++ {
		t.files[f].precomp.sizeTable = ptr
		ptr += int(size[3*f+1])
	}
	for f := 0; f < numFiles; f++ {
		ptr = (ptr + 0x3F) &^ 0x3F
		t.files[f].precomp.data = ptr
		ptr += int(size[3*f+2])
	}
	return nil
}

func (t *dtzTable) setupPiecesPiece(it *indexTables, ptr int, tbSize *[4]uint64) {
	d := &t.files[0]
	for i := 0; i < t.num; i++ {
		d.pieces[i] = t.data[ptr+i+1] & 0x0F
	}
	order := int(t.data[ptr] & 0x0F)
	setNormPiece(t.num, t.encType, d.pieces[:], d.norm[:])
	tbSize[0] = it.calcFactorsPiece(d.factor[:], t.num, order, d.norm[:], t.encType)
}

func (t *dtzTable) setupPiecesPawn(it *indexTables, ptr, sizeIdx, f int, tbSize *[4]uint64) {
	j := 1
	if t.pawns[1] > 0 {
		j = 2
	}
	order := int(t.data[ptr] & 0x0F)
	order2 := 0x0F
	if t.pawns[1] > 0 {
		order2 = int(t.data[ptr+1] & 0x0F)
	}
	d := &t.files[f]
	for i := 0; i < t.num; i++ {
		d.pieces[i] = t.data[ptr+i+j] & 0x0F
	}
	setNormPawn(t.num, t.pawns, d.pieces[:], d.norm[:])
	tbSize[sizeIdx] = it.calcFactorsPawn(d.factor[:], t.num, order, order2, d.norm[:], f)
}

// probe returns the stored distance to zeroing for the position, given its
// WDL class. The second result is false when the table only stores the
// other side to move; the caller then resolves the value with a one ply
// search.
func (t *dtzTable) probe(pos *board.Position, wdl int) (int, bool, error) {
	if err := t.acquire(); err != nil {
		return 0, false, err
	}
	defer t.release()

	it := sharedTables()
	cmirror, mirror, bside := t.orient(pos)

	var p [maxPieces]int
	if !t.hasPawns {
		d := &t.files[0]
		if int(d.flags&1) != bside && !t.symmetric {
			return 0, false, nil
		}
		i := 0
		for i < t.num {
			pc := d.pieces[i]
			color := board.Color((pc ^ cmirror) >> 3)
			pt := board.PieceType(pc&0x07) - 1
			bb := pos.Pieces[color][pt]
			for bb != 0 {
				if i >= t.num {
					return 0, false, t.corrupt("piece layout mismatch")
				}
				p[i] = int(bb.PopLSB())
				i++
			}
		}
		idx := it.encodePiece(t.encType, t.num, d.norm[:], p[:], d.factor[:])
		v, err := t.decompressPairs(d.precomp, idx)
		if err != nil {
			return 0, false, err
		}
		return t.mapValue(d, int(v), wdl), true, nil
	}

	k := t.files[0].pieces[0] ^ cmirror
	color := board.Color(k >> 3)
	pt := board.PieceType(k&0x07) - 1
	bb := pos.Pieces[color][pt]
	i := 0
	for bb != 0 {
		if i >= t.num {
			return 0, false, t.corrupt("piece layout mismatch")
		}
		p[i] = int(bb.PopLSB()) ^ int(mirror)
		i++
	}
	f := it.pawnFile(t.pawns, p[:])
	d := &t.files[f]
	if int(d.flags&1) != bside {
		return 0, false, nil
	}
	for i < t.num {
		pc := d.pieces[i]
		color := board.Color((pc ^ cmirror) >> 3)
		pt := board.PieceType(pc&0x07) - 1
		bb := pos.Pieces[color][pt]
		for bb != 0 {
			if i >= t.num {
				return 0, false, t.corrupt("piece layout mismatch")
			}
			p[i] = int(bb.PopLSB()) ^ int(mirror)
			i++
		}
	}
	idx := it.encodePawn(t.pawns, t.num, d.norm[:], p[:], d.factor[:])
	v, err := t.decompressPairs(d.precomp, idx)
	if err != nil {
		return 0, false, err
	}
	return t.mapValue(d, int(v), wdl), true, nil
}

// mapValue translates a stored code through the value map of the WDL class
// and restores full ply resolution where the table halved it.
func (t *dtzTable) mapValue(d *dtzFileData, res, wdl int) int {
	if d.flags&2 != 0 {
		if d.flags&16 == 0 {
			res = int(t.data[t.pMap+d.mapIdx[wdlToMap[wdl+2]]+res])
		} else {
			res = int(t.readUint16LE(t.pMap + 2*(d.mapIdx[wdlToMap[wdl+2]]+res)))
		}
	}
	if d.flags&paFlags[wdl+2] == 0 || wdl&1 != 0 {
		res *= 2
	}
	return res
}
