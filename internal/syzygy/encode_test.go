package syzygy

import "testing"

func TestSetNormPiece(t *testing.T) {
	// Three singletons: one pivot group of three.
	var norm [maxPieces]byte
	setNormPiece(3, 0, []byte{6, 14, 10}, norm[:])
	if norm[0] != 3 || norm[1] != 0 || norm[2] != 0 {
		t.Errorf("enc 0 norm = %v, want [3 0 0]", norm[:3])
	}

	// Two kings plus a knight pair: king pivot group, then the pair.
	setNormPiece(4, 2, []byte{6, 14, 2, 2}, norm[:])
	if norm[0] != 2 || norm[2] != 2 {
		t.Errorf("enc 2 norm = %v, want [2 0 2 0]", norm[:4])
	}
}

func TestCalcFactorsPiece(t *testing.T) {
	it := sharedTables()

	var norm, pieces [maxPieces]byte
	var factor [maxPieces]uint64

	// KNNvK: 462 king pairs times C(62, 2) knight placements.
	copy(pieces[:], []byte{6, 14, 2, 2})
	setNormPiece(4, 2, pieces[:], norm[:])
	size := it.calcFactorsPiece(factor[:], 4, 0, norm[:], 2)
	if want := uint64(462 * 1891); size != want {
		t.Errorf("KNNvK table size = %d, want %d", size, want)
	}
	if factor[0] != 1 || factor[2] != 462 {
		t.Errorf("KNNvK factors = [%d _ %d], want [1 _ 462]", factor[0], factor[2])
	}

	// Three singletons: the full wedge fold.
	copy(pieces[:], []byte{6, 14, 10})
	setNormPiece(3, 0, pieces[:], norm[:])
	size = it.calcFactorsPiece(factor[:], 3, 0, norm[:], 0)
	if size != 31332 {
		t.Errorf("three-piece table size = %d, want 31332", size)
	}
}

func TestEncodePieceSymmetry(t *testing.T) {
	it := sharedTables()

	var norm [maxPieces]byte
	var factor [maxPieces]uint64
	setNormPiece(3, 0, []byte{6, 14, 10}, norm[:])
	size := it.calcFactorsPiece(factor[:], 3, 0, norm[:], 0)

	squares := [][3]int{
		{12, 25, 44},
		{0, 18, 33},
		{5, 40, 62},
		{9, 27, 50},
	}
	for _, s := range squares {
		base := encodeAt(it, norm[:], factor[:], s[0], s[1], s[2])
		if base >= size {
			t.Fatalf("index %d for %v exceeds table size %d", base, s, size)
		}

		we := encodeAt(it, norm[:], factor[:], flipWE(s[0]), flipWE(s[1]), flipWE(s[2]))
		ns := encodeAt(it, norm[:], factor[:], flipNS(s[0]), flipNS(s[1]), flipNS(s[2]))
		dg := encodeAt(it, norm[:], factor[:], flipNWSE(s[0]), flipNWSE(s[1]), flipNWSE(s[2]))
		if we != base || ns != base || dg != base {
			t.Errorf("encoding of %v not symmetric: base %d, we %d, ns %d, diag %d",
				s, base, we, ns, dg)
		}
	}
}

func encodeAt(it *indexTables, norm []byte, factor []uint64, sqs ...int) uint64 {
	pos := make([]int, len(sqs))
	copy(pos, sqs)
	return it.encodePiece(0, len(sqs), norm, pos, factor)
}

func TestCalcFactorsPawn(t *testing.T) {
	it := sharedTables()

	var norm [maxPieces]byte
	var factor [maxPieces]uint64

	// KPvK: 6 pawn slots per file section, then two kings.
	setNormPawn(3, [2]int{1, 0}, []byte{1, 6, 14}, norm[:])
	if norm[0] != 1 || norm[1] != 1 || norm[2] != 1 {
		t.Fatalf("KPvK norm = %v, want [1 1 1]", norm[:3])
	}
	size := it.calcFactorsPawn(factor[:], 3, 0, 0x0F, norm[:], 0)
	if want := uint64(6 * 63 * 62); size != want {
		t.Errorf("KPvK section size = %d, want %d", size, want)
	}
}

func TestEncodePawnSymmetry(t *testing.T) {
	it := sharedTables()

	var norm [maxPieces]byte
	var factor [maxPieces]uint64
	setNormPawn(3, [2]int{1, 0}, []byte{1, 6, 14}, norm[:])

	// Pawn d5, kings f2 and c7: the west/east mirror must encode
	// identically within the same file section.
	sq := []int{35, 13, 50}
	mirrored := []int{flipWE(35), flipWE(13), flipWE(50)}

	p := append([]int(nil), sq...)
	f := it.pawnFile([2]int{1, 0}, p)
	size := it.calcFactorsPawn(factor[:], 3, 0, 0x0F, norm[:], f)
	base := it.encodePawn([2]int{1, 0}, 3, norm[:], p, factor[:])
	if base >= size {
		t.Fatalf("index %d exceeds section size %d", base, size)
	}

	p = append([]int(nil), mirrored...)
	if mf := it.pawnFile([2]int{1, 0}, p); mf != f {
		t.Fatalf("mirrored pawn selects file %d, want %d", mf, f)
	}
	got := it.encodePawn([2]int{1, 0}, 3, norm[:], p, factor[:])
	if got != base {
		t.Errorf("mirrored encoding = %d, want %d", got, base)
	}
}
