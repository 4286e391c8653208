// Package syzygy reads Syzygy endgame tablebases (.rtbw/.rtbz files) and
// answers exact win/draw/loss and distance-to-zero queries for positions
// with up to 7 pieces. File format reference: syzygy-tables.info and the
// original tbcore sources.
package syzygy

import (
	"sort"
	"sync"

	"gonum.org/v1/gonum/stat/combin"
)

// maxPieces is the largest material signature the probing code supports.
const maxPieces = 7

// indexTables holds every precomputed symmetry and combinatorics table the
// encoder needs. It is built exactly once and never mutated afterwards;
// all lookups are read-only and safe for concurrent use.
type indexTables struct {
	// binomial[k][n] = C(n, k+1).
	binomial [maxPieces][64]uint64

	// Board folding for pawnless tables. triangle maps any square into the
	// 10-square a1-d1-d4 wedge, diag/lower/offDiag/flipDiag classify squares
	// relative to the a1-h8 diagonal.
	triangle    [64]int
	invTriangle [10]int
	offDiag     [64]int
	flipDiag    [64]int
	diag        [64]int
	lower       [64]int

	// Canonical king-pair index for the two-kings encoding. kkIdx is keyed
	// by (triangle index of the first king, square of the second king) and
	// covers the 462 legal canonical pairs; -1 marks pairs that are illegal
	// or need a board flip before they become indexable.
	kkIdx [10][64]int16

	// Pawn folding. flap maps a pawn square to one of 24 queenside slots,
	// ptwist orders pawn squares by advancement for the leading-pawn sort,
	// invFlap inverts flap, fileToFile folds files onto the queenside.
	flap       [64]int
	ptwist     [64]int
	invFlap    [24]int
	fileToFile [8]int

	// pawnIdx/pfactor index the leading pawn group per file section.
	pawnIdx [5][24]uint64
	pfactor [5][4]uint64

	// Full-board symmetry-class indices. The Syzygy encoder itself only
	// consumes kkIdx above; these cover the general king-pair, like-piece
	// pair and pawn-pair folds over their whole domains, with -1 for
	// placements that need a flip (or are illegal) before indexing.
	kkFull [64][64]int16
	aaFull [64][64]int16
	pp48   [48][48]int16
	ppp48  map[int]int32
}

// Symmetry-class index bounds. Derived from the combinatorics once and
// asserted by tests rather than re-derived at runtime.
const (
	maxKK    = 462                    // canonical non-attacking king pairs
	maxAA    = 2016                   // C(64,2) unordered square pairs
	maxAAA   = 41664                  // C(64,3)
	maxAAAA  = 635376                 // C(64,4)
	maxPP48  = 576                    // pawn pairs folded onto the queenside
	maxPPP48 = 8648                   // pawn triples modulo the horizontal mirror
	noIndex  = -1                     // sentinel: not indexable as given
)

var (
	tablesOnce sync.Once
	tables     *indexTables
)

// sharedTables returns the process-wide immutable index tables, building
// them on first use.
func sharedTables() *indexTables {
	tablesOnce.Do(func() {
		t := &indexTables{}
		t.buildBinomial()
		t.buildBoardFolds()
		t.buildKKIdx()
		t.buildPawnFolds()
		t.buildPairFolds()
		tables = t
	})
	return tables
}

func squareFile(sq int) int { return sq & 7 }
func squareRank(sq int) int { return sq >> 3 }

// offDiagonal is positive above the a1-h8 diagonal, negative below.
func offDiagonal(sq int) int { return squareRank(sq) - squareFile(sq) }

func flipWE(sq int) int   { return sq ^ 0x07 }
func flipNS(sq int) int   { return sq ^ 0x38 }
func flipNWSE(sq int) int { return ((sq >> 3) | (sq << 3)) & 63 }

// kingsAdjacent reports whether two squares coincide or touch.
func kingsAdjacent(a, b int) bool {
	df := squareFile(a) - squareFile(b)
	dr := squareRank(a) - squareRank(b)
	if df < 0 {
		df = -df
	}
	if dr < 0 {
		dr = -dr
	}
	return df <= 1 && dr <= 1
}

func (t *indexTables) buildBinomial() {
	for k := 0; k < maxPieces; k++ {
		for n := 0; n < 64; n++ {
			if n >= k+1 {
				t.binomial[k][n] = uint64(combin.Binomial(n, k+1))
			}
		}
	}
}

// binom returns C(n, k), 0 for out-of-range arguments. Callers rely on the
// zero meaning "impossible placement", so this never errors.
func (t *indexTables) binom(n, k int) uint64 {
	if k <= 0 || k > maxPieces || n < 0 || n > 63 {
		if k == 0 && n >= 0 {
			return 1
		}
		return 0
	}
	return t.binomial[k-1][n]
}

func (t *indexTables) buildBoardFolds() {
	for sq := 0; sq < 64; sq++ {
		t.offDiag[sq] = offDiagonal(sq)
		t.flipDiag[sq] = flipNWSE(sq)
	}

	// Map the a1-d1-d4 wedge to 0..9, below-diagonal squares first, then
	// the diagonal, each in square order.
	var wedge [64]int
	for i := range wedge {
		wedge[i] = noIndex
	}
	code := 0
	var diagonal []int
	for sq := 0; sq < 28; sq++ {
		if squareFile(sq) > 3 {
			continue
		}
		switch {
		case offDiagonal(sq) < 0:
			wedge[sq] = code
			t.invTriangle[code] = sq
			code++
		case offDiagonal(sq) == 0:
			diagonal = append(diagonal, sq)
		}
	}
	for _, sq := range diagonal {
		wedge[sq] = code
		t.invTriangle[code] = sq
		code++
	}

	for sq := 0; sq < 64; sq++ {
		s := sq
		if squareFile(s) > 3 {
			s = flipWE(s)
		}
		if squareRank(s) > 3 {
			s = flipNS(s)
		}
		if offDiagonal(s) > 0 {
			s = flipNWSE(s)
		}
		t.triangle[sq] = wedge[s]
	}

	// diag: 0..7 along a1-h8, 8..15 along h1-a8, 0 elsewhere.
	for sq := 0; sq < 64; sq++ {
		f, r := squareFile(sq), squareRank(sq)
		switch {
		case f == r:
			t.diag[sq] = f
		case f+r == 7:
			t.diag[sq] = 8 + r
		}
	}

	// lower: running index over below-diagonal squares in square order,
	// 28+rank on the diagonal, mirrored across it for the upper half.
	idx := 0
	for sq := 0; sq < 64; sq++ {
		switch {
		case offDiagonal(sq) < 0:
			t.lower[sq] = idx
			idx++
		case offDiagonal(sq) == 0:
			t.lower[sq] = 28 + squareRank(sq)
		}
	}
	for sq := 0; sq < 64; sq++ {
		if offDiagonal(sq) > 0 {
			t.lower[sq] = t.lower[flipNWSE(sq)]
		}
	}
}

// buildKKIdx assigns the 462 canonical king-pair indices in first-seen
// order: the first king walks the a1-d1-d4 wedge, the second king the whole
// board, with pairs where both kings sit on the diagonal appended last.
// This reproduces the mapping the table generator used.
func (t *indexTables) buildKKIdx() {
	var wedgeOf [64]int
	for i := range wedgeOf {
		wedgeOf[i] = noIndex
	}
	for sq := 0; sq < 28; sq++ {
		if squareFile(sq) <= 3 && offDiagonal(sq) <= 0 {
			wedgeOf[sq] = t.triangle[sq]
		}
	}

	for i := range t.kkIdx {
		for j := range t.kkIdx[i] {
			t.kkIdx[i][j] = noIndex
		}
	}

	type pending struct{ idx, sq int }
	var bothOnDiag []pending
	code := int16(0)
	for idx := 0; idx < 10; idx++ {
		for s1 := 0; s1 < 28; s1++ {
			if wedgeOf[s1] != idx {
				continue
			}
			for s2 := 0; s2 < 64; s2++ {
				switch {
				case kingsAdjacent(s1, s2):
					// Illegal: kings coincide or touch.
				case offDiagonal(s1) == 0 && offDiagonal(s2) > 0:
					// Needs a diagonal flip first.
				case offDiagonal(s1) == 0 && offDiagonal(s2) == 0:
					bothOnDiag = append(bothOnDiag, pending{idx, s2})
				default:
					t.kkIdx[idx][s2] = code
					code++
				}
			}
		}
	}
	for _, p := range bothOnDiag {
		t.kkIdx[p.idx][p.sq] = code
		code++
	}
}

func (t *indexTables) buildPawnFolds() {
	t.fileToFile = [8]int{0, 1, 2, 3, 3, 2, 1, 0}

	for sq := 8; sq < 56; sq++ {
		f := t.fileToFile[squareFile(sq)]
		t.flap[sq] = f*6 + squareRank(sq) - 1
	}
	for i := 0; i < 24; i++ {
		t.invFlap[i] = 8*(i%6) + (i / 6) + 8
	}

	// ptwist orders pawn squares by advancement: the most advanced central
	// pawns first, queenside square of each mirrored file pair last.
	for g := 0; g < 4; g++ {
		qf, kf := 3-g, 4+g
		for r := 6; r >= 1; r-- {
			v := 12*g + 2*(6-r)
			t.ptwist[r*8+kf] = v
			t.ptwist[r*8+qf] = v + 1
		}
	}

	for i := 0; i < 5; i++ {
		j := 0
		for section := 0; section < 4; section++ {
			var s uint64
			for ; j < 6*(section+1); j++ {
				t.pawnIdx[i][j] = s
				if i == 0 {
					s++
				} else {
					s += t.binomial[i-1][t.ptwist[t.invFlap[j]]]
				}
			}
			t.pfactor[i][section] = s
		}
	}
}

// buildPairFolds constructs the general symmetry-class indices: king pairs
// over the full board, unordered like-piece pairs, and queenside-folded
// pawn pairs/triples.
func (t *indexTables) buildPairFolds() {
	for i := range t.kkFull {
		for j := range t.kkFull[i] {
			t.kkFull[i][j] = noIndex
			t.aaFull[i][j] = noIndex
		}
	}

	// Full-board king pairs: canonicalize the first king into the wedge,
	// resolve the diagonal ambiguity with the second king, then assign
	// class indices in first-seen order.
	norm := func(x, y int) (int, int) {
		if squareFile(x) > 3 {
			x, y = flipWE(x), flipWE(y)
		}
		if squareRank(x) > 3 {
			x, y = flipNS(x), flipNS(y)
		}
		if offDiagonal(x) > 0 {
			x, y = flipNWSE(x), flipNWSE(y)
		}
		if offDiagonal(x) == 0 && offDiagonal(y) > 0 {
			x, y = flipNWSE(x), flipNWSE(y)
		}
		return x, y
	}
	code := int16(0)
	for x := 0; x < 64; x++ {
		for y := 0; y < 64; y++ {
			if kingsAdjacent(x, y) {
				continue
			}
			cx, cy := norm(x, y)
			if t.kkFull[cx][cy] == noIndex {
				t.kkFull[cx][cy] = code
				code++
			}
			t.kkFull[x][y] = t.kkFull[cx][cy]
		}
	}

	// Unordered like-piece pairs in nested first-seen order.
	code = 0
	for x := 0; x < 64; x++ {
		for y := x + 1; y < 64; y++ {
			t.aaFull[x][y] = code
			t.aaFull[y][x] = code
			code++
		}
	}

	// Pawn pairs on the 48-square pawn zone, folded by the horizontal
	// mirror: each unordered pair shares a class with its mirror image.
	for i := range t.pp48 {
		for j := range t.pp48[i] {
			t.pp48[i][j] = noIndex
		}
	}
	mirror48 := func(p int) int { return p ^ 0x07 }
	code = 0
	for a := 0; a < 48; a++ {
		for b := a + 1; b < 48; b++ {
			if t.pp48[a][b] != noIndex {
				continue
			}
			t.pp48[a][b] = code
			t.pp48[b][a] = code
			ma, mb := mirror48(a), mirror48(b)
			if ma > mb {
				ma, mb = mb, ma
			}
			t.pp48[ma][mb] = code
			t.pp48[mb][ma] = code
			code++
		}
	}

	// Pawn triples, same fold, keyed by the sorted triple.
	t.ppp48 = make(map[int]int32, maxPPP48)
	var tcode int32
	for a := 0; a < 48; a++ {
		for b := a + 1; b < 48; b++ {
			for c := b + 1; c < 48; c++ {
				key := (a*48+b)*48 + c
				if _, ok := t.ppp48[key]; ok {
					continue
				}
				t.ppp48[key] = tcode
				m := []int{mirror48(a), mirror48(b), mirror48(c)}
				sort.Ints(m)
				t.ppp48[(m[0]*48+m[1])*48+m[2]] = tcode
				tcode++
			}
		}
	}
}

// kkIndex returns the symmetry-class index of a king pair anywhere on the
// board, or noIndex for coinciding/adjacent kings.
func (t *indexTables) kkIndex(wk, bk int) int {
	if kingsAdjacent(wk, bk) {
		return noIndex
	}
	return int(t.kkFull[wk][bk])
}

// aaIndex returns the class index of an unordered pair of like pieces, or
// noIndex when the squares coincide.
func (t *indexTables) aaIndex(a, b int) int {
	if a == b {
		return noIndex
	}
	return int(t.aaFull[a][b])
}

// aaaIndex ranks an unordered triple of distinct squares. The rank is the
// standard combination number, the same scheme the subfactor encoding uses.
func (t *indexTables) aaaIndex(a, b, c int) int {
	if a == b || a == c || b == c {
		return noIndex
	}
	s := []int{a, b, c}
	sort.Ints(s)
	return int(t.binom(s[0], 1) + t.binom(s[1], 2) + t.binom(s[2], 3))
}

// aaaaIndex ranks an unordered quad of distinct squares.
func (t *indexTables) aaaaIndex(a, b, c, d int) int {
	s := []int{a, b, c, d}
	sort.Ints(s)
	for i := 1; i < 4; i++ {
		if s[i] == s[i-1] {
			return noIndex
		}
	}
	return int(t.binom(s[0], 1) + t.binom(s[1], 2) + t.binom(s[2], 3) + t.binom(s[3], 4))
}

// pp48Index returns the mirror-folded class of a pawn pair. Inputs are
// pawn-zone squares shifted down by 8 (a2 = 0 .. h7 = 47).
func (t *indexTables) pp48Index(a, b int) int {
	if a == b {
		return noIndex
	}
	return int(t.pp48[a][b])
}

// ppp48Index returns the mirror-folded class of a pawn triple.
func (t *indexTables) ppp48Index(a, b, c int) int {
	if a == b || a == c || b == c {
		return noIndex
	}
	s := []int{a, b, c}
	sort.Ints(s)
	v, ok := t.ppp48[(s[0]*48+s[1])*48+s[2]]
	if !ok {
		return noIndex
	}
	return int(v)
}

// subfactor counts placements of k interchangeable pieces on n free squares.
func subfactor(k int, n uint64) uint64 {
	f := n
	l := uint64(1)
	for i := uint64(1); i < uint64(k); i++ {
		f *= n - i
		l *= i + 1
	}
	return f / l
}
