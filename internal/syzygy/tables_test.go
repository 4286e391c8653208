package syzygy

import "testing"

func TestBinomial(t *testing.T) {
	it := sharedTables()

	cases := []struct {
		k, n int
		want uint64
	}{
		{0, 0, 0},
		{0, 1, 1},
		{0, 47, 47},
		{1, 4, 6},
		{1, 62, 1891},
		{2, 5, 10},
		{2, 48, 17296},
		{3, 44, 135751},
	}
	for _, c := range cases {
		if got := it.binomial[c.k][c.n]; got != c.want {
			t.Errorf("binomial[%d][%d] = %d, want %d", c.k, c.n, got, c.want)
		}
	}
}

func TestTriangleFold(t *testing.T) {
	it := sharedTables()

	// b1, c1, d1, c2, d2, d3 get 0..5, the a1-d4 diagonal 6..9, and every
	// other square folds onto one of those by board symmetry.
	cases := []struct {
		sq   int
		want int
	}{
		{1, 0},   // b1
		{2, 1},   // c1
		{3, 2},   // d1
		{10, 3},  // c2
		{11, 4},  // d2
		{19, 5},  // d3
		{0, 6},   // a1
		{9, 7},   // b2
		{18, 8},  // c3
		{27, 9},  // d4
		{7, 6},   // h1 mirrors a1
		{63, 6},  // h8 mirrors a1
		{8, 0},   // a2 mirrors b1 across the diagonal
		{62, 0},  // g8
		{36, 9},  // e5 mirrors d4
	}
	for _, c := range cases {
		if got := it.triangle[c.sq]; got != c.want {
			t.Errorf("triangle[%d] = %d, want %d", c.sq, got, c.want)
		}
	}

	for code := 0; code < 10; code++ {
		sq := it.invTriangle[code]
		if it.triangle[sq] != code {
			t.Errorf("invTriangle[%d] = %d, but triangle[%d] = %d", code, sq, sq, it.triangle[sq])
		}
	}
}

func TestDiagLower(t *testing.T) {
	it := sharedTables()

	if it.diag[0] != 0 || it.diag[9] != 1 || it.diag[63] != 7 {
		t.Errorf("a1-h8 diagonal misnumbered: %d %d %d", it.diag[0], it.diag[9], it.diag[63])
	}
	if it.lower[8] != 0 {
		t.Errorf("lower[a2] = %d, want 0", it.lower[8])
	}
	if it.lower[0] != 28 {
		t.Errorf("lower[a1] = %d, want 28", it.lower[0])
	}
	// Above-diagonal squares mirror their reflection.
	if it.lower[1] != it.lower[8] {
		t.Errorf("lower[b1] = %d, lower[a2] = %d, want equal", it.lower[1], it.lower[8])
	}
}

func TestKKIndex(t *testing.T) {
	it := sharedTables()

	cases := []struct {
		tri, sq int
		want    int16
	}{
		{0, 0, noIndex}, // kings touch
		{0, 3, 0},
		{0, 4, 1},
		{0, 7, 4},
		{0, 11, 5},
		{0, 63, 57},
		{1, 0, 58},
		{1, 4, 59},
	}
	for _, c := range cases {
		if got := it.kkIdx[c.tri][c.sq]; got != c.want {
			t.Errorf("kkIdx[%d][%d] = %d, want %d", c.tri, c.sq, got, c.want)
		}
	}

	// Exactly 462 canonical pairs, numbered without gaps, diagonal pairs
	// in the last block.
	var seen [maxKK]bool
	count := 0
	for i := 0; i < 10; i++ {
		for j := 0; j < 64; j++ {
			v := it.kkIdx[i][j]
			if v == noIndex {
				continue
			}
			if v < 0 || int(v) >= maxKK {
				t.Fatalf("kkIdx[%d][%d] = %d out of range", i, j, v)
			}
			if seen[v] {
				t.Fatalf("kk index %d assigned twice", v)
			}
			seen[v] = true
			count++
			bothOnDiag := it.offDiag[it.invTriangle[i]] == 0 && j%9 == 0
			if bothOnDiag != (v >= 441) {
				t.Errorf("kkIdx[%d][%d] = %d: diagonal pairs must occupy 441..461", i, j, v)
			}
		}
	}
	if count != maxKK {
		t.Errorf("counted %d king pairs, want %d", count, maxKK)
	}
}

func TestPawnFolds(t *testing.T) {
	it := sharedTables()

	cases := []struct {
		sq   int
		flap int
	}{
		{8, 0},   // a2
		{9, 6},   // b2
		{11, 18}, // d2
		{16, 1},  // a3
		{48, 5},  // a7
		{51, 23}, // d7
		{12, 18}, // e2 mirrors d2
		{15, 0},  // h2 mirrors a2
	}
	for _, c := range cases {
		if got := it.flap[c.sq]; got != c.flap {
			t.Errorf("flap[%d] = %d, want %d", c.sq, got, c.flap)
		}
	}
	for i := 0; i < 24; i++ {
		sq := it.invFlap[i]
		if it.flap[sq] != i {
			t.Errorf("invFlap[%d] = %d, but flap[%d] = %d", i, sq, sq, it.flap[sq])
		}
	}

	ptwistCases := []struct {
		sq   int
		want int
	}{
		{52, 0},  // e7, most advanced kingside center pawn
		{51, 1},  // d7
		{12, 10}, // e2
		{8, 47},  // a2, least advanced edge pawn
		{15, 46}, // h2
	}
	for _, c := range ptwistCases {
		if got := it.ptwist[c.sq]; got != c.want {
			t.Errorf("ptwist[%d] = %d, want %d", c.sq, got, c.want)
		}
	}
}

func TestPawnIdxSections(t *testing.T) {
	it := sharedTables()

	// A lone leading pawn has six slots per file section.
	for f := 0; f < 4; f++ {
		if it.pfactor[0][f] != 6 {
			t.Errorf("pfactor[0][%d] = %d, want 6", f, it.pfactor[0][f])
		}
	}
	if it.pawnIdx[0][0] != 0 || it.pawnIdx[0][5] != 5 {
		t.Errorf("pawnIdx[0] section 0 = %d..%d, want 0..5", it.pawnIdx[0][0], it.pawnIdx[0][5])
	}
	// Each section restarts at zero.
	if it.pawnIdx[0][6] != 0 || it.pawnIdx[2][12] != 0 {
		t.Errorf("pawnIdx sections must restart at 0, got %d and %d",
			it.pawnIdx[0][6], it.pawnIdx[2][12])
	}
}

func TestSubfactor(t *testing.T) {
	cases := []struct {
		k    int
		n    uint64
		want uint64
	}{
		{1, 62, 62},
		{2, 62, 1891},
		{3, 61, 35990},
		{1, 48, 48},
		{2, 47, 1081},
	}
	for _, c := range cases {
		if got := subfactor(c.k, c.n); got != c.want {
			t.Errorf("subfactor(%d, %d) = %d, want %d", c.k, c.n, got, c.want)
		}
	}
}

func TestPairIndexBounds(t *testing.T) {
	it := sharedTables()

	seen := make(map[int]bool)
	for a := 0; a < 64; a++ {
		for b := 0; b < 64; b++ {
			v := it.aaFull[a][b]
			if v == noIndex {
				continue
			}
			if int(v) >= maxAA {
				t.Fatalf("aaFull[%d][%d] = %d out of range", a, b, v)
			}
			seen[int(v)] = true
		}
	}
	if len(seen) != maxAA {
		t.Errorf("aaFull covers %d classes, want %d", len(seen), maxAA)
	}

	seen = make(map[int]bool)
	for a := 0; a < 48; a++ {
		for b := 0; b < 48; b++ {
			v := it.pp48[a][b]
			if v == noIndex {
				continue
			}
			if int(v) >= maxPP48 {
				t.Fatalf("pp48[%d][%d] = %d out of range", a, b, v)
			}
			seen[int(v)] = true
		}
	}
	if len(seen) != maxPP48 {
		t.Errorf("pp48 covers %d classes, want %d", len(seen), maxPP48)
	}
}
