package syzygy

// Group layout and position encoding. Pieces are arranged in groups: the
// pivot pieces that exploit the board symmetry first, then runs of like
// pieces combined with binomial coefficients. norm[i] holds the length of
// the group starting at i, factor[i] the index weight of that group.

// pivotFactor[encType] is the number of placements of the pivot group:
// three free pieces folded into the wedge, two pieces, or the 462
// canonical king pairs.
var pivotFactor = [3]uint64{31332, 28056, 462}

func setNormPiece(num, encType int, pieces, norm []byte) {
	for i := 0; i < num; i++ {
		norm[i] = 0
	}

	switch encType {
	case 0:
		norm[0] = 3
	case 2:
		norm[0] = 2
	default:
		norm[0] = byte(encType - 1)
	}

	for i := int(norm[0]); i < num; i += int(norm[i]) {
		for j := i; j < num && pieces[j] == pieces[i]; j++ {
			norm[i]++
		}
	}
}

func setNormPawn(num int, pawns [2]int, pieces, norm []byte) {
	for i := 0; i < num; i++ {
		norm[i] = 0
	}

	norm[0] = byte(pawns[0])
	if pawns[1] > 0 {
		norm[pawns[0]] = byte(pawns[1])
	}

	for i := pawns[0] + pawns[1]; i < num; i += int(norm[i]) {
		for j := i; j < num && pieces[j] == pieces[i]; j++ {
			norm[i]++
		}
	}
}

// calcFactorsPiece assigns index weights to the groups in storage order and
// returns the total table size. order gives the position of the pivot group
// in the multiplication order.
func (t *indexTables) calcFactorsPiece(factor []uint64, num, order int, norm []byte, encType int) uint64 {
	n := uint64(64 - norm[0])

	f := uint64(1)
	i := int(norm[0])
	for k := 0; i < num || k == order; k++ {
		if k == order {
			factor[0] = f
			f *= pivotFactor[encType]
		} else {
			factor[i] = f
			f *= subfactor(int(norm[i]), n)
			n -= uint64(norm[i])
			i += int(norm[i])
		}
	}
	return f
}

// calcFactorsPawn is the pawn-table variant: the leading pawn group is
// sized per file section, a second pawn group (order2 below 0x0F) holds
// the other side's pawns on the remaining 48 - norm[0] pawn squares.
func (t *indexTables) calcFactorsPawn(factor []uint64, num, order, order2 int, norm []byte, file int) uint64 {
	i := int(norm[0])
	if order2 < 0x0F {
		i += int(norm[i])
	}
	n := uint64(64 - i)

	f := uint64(1)
	for k := 0; i < num || k == order || k == order2; k++ {
		switch k {
		case order:
			factor[0] = f
			f *= t.pfactor[norm[0]-1][file]
		case order2:
			factor[norm[0]] = f
			f *= subfactor(int(norm[norm[0]]), uint64(48-norm[0]))
		default:
			factor[i] = f
			f *= subfactor(int(norm[i]), n)
			n -= uint64(norm[i])
			i += int(norm[i])
		}
	}
	return f
}

// encodePiece folds the position into its canonical orientation and
// computes the table index for a pawnless table. pos holds the piece
// squares in storage order and is clobbered.
func (t *indexTables) encodePiece(encType, num int, norm []byte, pos []int, factor []uint64) uint64 {
	if pos[0]&0x04 != 0 {
		for i := 0; i < num; i++ {
			pos[i] = flipWE(pos[i])
		}
	}
	if pos[0]&0x20 != 0 {
		for i := 0; i < num; i++ {
			pos[i] = flipNS(pos[i])
		}
	}

	// The first piece off the long diagonal decides whether the position
	// is mirrored across it.
	k := 0
	for k < num && t.offDiag[pos[k]] == 0 {
		k++
	}
	limit := 2
	if encType == 0 {
		limit = 3
	}
	if k < limit && k < num && t.offDiag[pos[k]] > 0 {
		for i := 0; i < num; i++ {
			pos[i] = t.flipDiag[pos[i]]
		}
	}

	var idx uint64
	var i int
	switch encType {
	case 0:
		a := b2i(pos[1] > pos[0])
		b := b2i(pos[2] > pos[0]) + b2i(pos[2] > pos[1])

		switch {
		case t.offDiag[pos[0]] != 0:
			idx = uint64(t.triangle[pos[0]])*63*62 + uint64(pos[1]-a)*62 + uint64(pos[2]-b)
		case t.offDiag[pos[1]] != 0:
			idx = 6*63*62 + uint64(t.diag[pos[0]])*28*62 + uint64(t.lower[pos[1]])*62 + uint64(pos[2]-b)
		case t.offDiag[pos[2]] != 0:
			idx = 6*63*62 + 4*28*62 + uint64(t.diag[pos[0]])*7*28 + uint64(t.diag[pos[1]]-a)*28 + uint64(t.lower[pos[2]])
		default:
			idx = 6*63*62 + 4*28*62 + 4*7*28 + uint64(t.diag[pos[0]])*7*6 + uint64(t.diag[pos[1]]-a)*6 + uint64(t.diag[pos[2]]-b)
		}
		i = 3
	default:
		idx = uint64(t.kkIdx[t.triangle[pos[0]]][pos[1]])
		i = 2
	}
	idx *= factor[0]

	return idx + t.encodeGroups(i, num, norm, pos, factor, 0)
}

// encodePawn computes the table index for a pawn table. The position has
// already been oriented so the leading pawns belong to the first side and
// move up the board; only the west/east fold remains.
func (t *indexTables) encodePawn(pawns [2]int, num int, norm []byte, pos []int, factor []uint64) uint64 {
	if pos[0]&0x04 != 0 {
		for i := 0; i < num; i++ {
			pos[i] = flipWE(pos[i])
		}
	}

	// Leading pawns sorted by decreasing advancement.
	for i := 1; i < pawns[0]; i++ {
		for j := i + 1; j < pawns[0]; j++ {
			if t.ptwist[pos[i]] < t.ptwist[pos[j]] {
				pos[i], pos[j] = pos[j], pos[i]
			}
		}
	}

	lead := pawns[0] - 1
	idx := t.pawnIdx[lead][t.flap[pos[0]]]
	for i := lead; i > 0; i-- {
		idx += t.binomial[lead-i][t.ptwist[pos[i]]]
	}
	idx *= factor[0]

	// Remaining pawns of the other side, encoded over the 48 pawn squares.
	i := pawns[0]
	if last := i + pawns[1]; last > i {
		sortRange(pos, i, last)
		var s uint64
		for m := i; m < last; m++ {
			p := pos[m]
			j := 0
			for l := 0; l < i; l++ {
				j += b2i(p > pos[l])
			}
			s += t.binomial[m-i][p-j-8]
		}
		idx += s * factor[i]
		i = last
	}

	return idx + t.encodeGroups(i, num, norm, pos, factor, 8)
}

// encodeGroups encodes the like-piece groups from position i on. shift is 8
// for pawn tables, where squares above the relegated pawn ranks renumber
// from zero.
func (t *indexTables) encodeGroups(i, num int, norm []byte, pos []int, factor []uint64, shift int) uint64 {
	var idx uint64
	for i < num {
		g := int(norm[i])
		sortRange(pos, i, i+g)
		var s uint64
		for m := i; m < i+g; m++ {
			p := pos[m]
			j := 0
			for l := 0; l < i; l++ {
				j += b2i(p > pos[l])
			}
			s += t.binomial[m-i][p-j-shift]
		}
		idx += s * factor[i]
		i += g
	}
	return idx
}

// pawnFile moves the most queenside leading pawn to the front and returns
// the file section of the table it selects.
func (t *indexTables) pawnFile(pawns [2]int, pos []int) int {
	for i := 1; i < pawns[0]; i++ {
		if t.flap[pos[0]] > t.flap[pos[i]] {
			pos[0], pos[i] = pos[i], pos[0]
		}
	}
	return t.fileToFile[pos[0]&0x07]
}

func sortRange(pos []int, lo, hi int) {
	for j := lo; j < hi; j++ {
		for k := j + 1; k < hi; k++ {
			if pos[j] > pos[k] {
				pos[j], pos[k] = pos[k], pos[j]
			}
		}
	}
}

func b2i(b bool) int {
	if b {
		return 1
	}
	return 0
}
