package syzygy

// pairsData describes one compressed value stream: the Huffman code over
// recursively paired symbols, the sparse block index and the per-block size
// table. Pointer fields are offsets into the table mapping.
type pairsData struct {
	indexTable int
	sizeTable  int
	data       int
	offset     int // rebased by -2*minLen so it is indexed by code length
	sympat     int
	symlen     []byte
	base       []uint64 // indexed by code length - minLen
	blocksize  int
	idxbits    int
	minLen     int
	numBlocks  int
}

// setupPairs parses a pairs header at ptr. It fills the three size slots
// (index table, size table, block data) the caller lays out after all
// headers, and returns the stream flags and the offset just past the
// header. A table that takes a single value everywhere is flagged with
// 0x80 and stores that value in place of the minimum code length.
func (t *baseTable) setupPairs(ptr int, tbSize uint64, size []uint64, wdl bool) (*pairsData, byte, int, error) {
	flags := t.data[ptr]
	if flags&0x80 != 0 {
		d := &pairsData{}
		if wdl {
			d.minLen = int(t.data[ptr+1])
		}
		size[0], size[1], size[2] = 0, 0, 0
		return d, flags, ptr + 2, nil
	}

	blocksize := int(t.data[ptr+1])
	idxbits := int(t.data[ptr+2])
	realNumBlocks := int(t.readUint32LE(ptr + 4))
	numBlocks := realNumBlocks + int(t.data[ptr+3])
	maxLen := int(t.data[ptr+8])
	minLen := int(t.data[ptr+9])
	if maxLen < minLen || minLen < 1 {
		return nil, 0, 0, t.corrupt("invalid code lengths")
	}
	h := maxLen - minLen + 1
	numSyms := int(t.readUint16LE(ptr + 10 + 2*h))

	d := &pairsData{
		offset:    ptr + 10,
		sympat:    ptr + 12 + 2*h,
		symlen:    make([]byte, numSyms),
		base:      make([]uint64, h),
		blocksize: blocksize,
		idxbits:   idxbits,
		minLen:    minLen,
		numBlocks: numBlocks,
	}
	next := ptr + 12 + 2*h + 3*numSyms + (numSyms & 1)

	numIndices := (tbSize + (1 << uint(idxbits)) - 1) >> uint(idxbits)
	size[0] = 6 * numIndices
	size[1] = 2 * uint64(numBlocks)
	size[2] = uint64(realNumBlocks) << uint(blocksize)

	tmp := make([]byte, numSyms)
	for s := 0; s < numSyms; s++ {
		if tmp[s] == 0 {
			if err := t.calcSymlen(d, s, tmp); err != nil {
				return nil, 0, 0, err
			}
		}
	}

	// Canonical Huffman bases, built from the longest code down, then
	// left aligned in a 64 bit window.
	d.base[h-1] = 0
	for i := h - 2; i >= 0; i-- {
		d.base[i] = (d.base[i+1] + uint64(t.readUint16LE(d.offset+2*i)) - uint64(t.readUint16LE(d.offset+2*(i+1)))) / 2
	}
	for i := 0; i < h; i++ {
		d.base[i] <<= uint(64 - (minLen + i))
	}

	d.offset -= 2 * minLen
	return d, flags, next, nil
}

// calcSymlen computes how many literals symbol s expands to, minus one.
// tmp tracks 0 unvisited, 1 in progress, 2 done so that corrupt symbol
// tables cannot send the expansion into a loop.
func (t *baseTable) calcSymlen(d *pairsData, s int, tmp []byte) error {
	if tmp[s] == 1 {
		return t.corrupt("cyclic symbol definition")
	}
	tmp[s] = 1

	w := d.sympat + 3*s
	s2 := int(t.data[w+2])<<4 | int(t.data[w+1])>>4
	if s2 == 0x0FFF {
		d.symlen[s] = 0
	} else {
		s1 := (int(t.data[w+1])&0xF)<<8 | int(t.data[w])
		if s1 >= len(d.symlen) || s2 >= len(d.symlen) {
			return t.corrupt("symbol out of range")
		}
		if tmp[s1] != 2 {
			if err := t.calcSymlen(d, s1, tmp); err != nil {
				return err
			}
		}
		if tmp[s2] != 2 {
			if err := t.calcSymlen(d, s2, tmp); err != nil {
				return err
			}
		}
		n := int(d.symlen[s1]) + int(d.symlen[s2]) + 1
		if n > 255 {
			return t.corrupt("symbol expansion too long")
		}
		d.symlen[s] = byte(n)
	}
	tmp[s] = 2
	return nil
}

// decompressPairs returns the value at position idx of the stream.
func (t *baseTable) decompressPairs(d *pairsData, idx uint64) (byte, error) {
	if d.idxbits == 0 {
		return byte(d.minLen), nil
	}

	// The sparse index points at a block near the target, the size table
	// walk lands on the exact block and the literal offset within it.
	mainIdx := int(idx >> uint(d.idxbits))
	litIdx := int(idx&(1<<uint(d.idxbits)-1)) - 1<<(uint(d.idxbits)-1)
	block := int(t.readUint32LE(d.indexTable + 6*mainIdx))
	if block >= d.numBlocks {
		return 0, t.corrupt("block index out of range")
	}
	litIdx += int(t.readUint16LE(d.indexTable + 6*mainIdx + 4))

	if litIdx < 0 {
		for litIdx < 0 {
			block--
			if block < 0 {
				return 0, t.corrupt("block index underrun")
			}
			litIdx += int(t.readUint16LE(d.sizeTable+2*block)) + 1
		}
	} else {
		for litIdx > int(t.readUint16LE(d.sizeTable+2*block)) {
			litIdx -= int(t.readUint16LE(d.sizeTable+2*block)) + 1
			block++
			if block >= d.numBlocks {
				return 0, t.corrupt("block index overrun")
			}
		}
	}

	ptr := d.data + block<<uint(d.blocksize)

	m := d.minLen
	code := t.readUint64BE(ptr)
	ptr += 8
	bitCnt := 0

	var sym int
	for {
		l := m
		for code < d.base[l-m] {
			l++
			if l-m >= len(d.base) {
				return 0, t.corrupt("invalid huffman code")
			}
		}
		sym = int(t.readUint16LE(d.offset+2*l)) + int((code-d.base[l-m])>>uint(64-l))
		if litIdx < int(d.symlen[sym])+1 {
			break
		}
		litIdx -= int(d.symlen[sym]) + 1
		code <<= uint(l)
		bitCnt += l
		if bitCnt >= 32 {
			bitCnt -= 32
			code |= uint64(t.readUint32BE(ptr)) << uint(bitCnt)
			ptr += 4
		}
	}

	// Expand pair symbols until a literal remains.
	for d.symlen[sym] != 0 {
		w := d.sympat + 3*sym
		s1 := (int(t.data[w+1])&0xF)<<8 | int(t.data[w])
		if litIdx < int(d.symlen[s1])+1 {
			sym = s1
		} else {
			litIdx -= int(d.symlen[s1]) + 1
			sym = int(t.data[w+2])<<4 | int(t.data[w+1])>>4
		}
	}

	return t.data[d.sympat+3*sym], nil
}
