package syzygy

import (
	"sort"
	"strings"

	"github.com/hailam/endgame/internal/board"
)

// pchr orders piece letters by value, kings first. Material keys always use
// this order within a side.
const pchr = "KQRBNP"

func pieceValueIndex(c byte) int {
	return strings.IndexByte(pchr, c)
}

var charToPiece = map[byte]board.PieceType{
	'K': board.King,
	'Q': board.Queen,
	'R': board.Rook,
	'B': board.Bishop,
	'N': board.Knight,
	'P': board.Pawn,
}

// CalcKey returns the material key of a position, e.g. "KQvKR". With mirror
// set, the colours are swapped. The key is not normalized; compare against
// both a table's key and its mirrored key.
func CalcKey(pos *board.Position, mirror bool) string {
	white, black := board.White, board.Black
	if mirror {
		white, black = black, white
	}

	var b strings.Builder
	for i := 0; i < len(pchr); i++ {
		pt := charToPiece[pchr[i]]
		for n := pos.Pieces[white][pt].PopCount(); n > 0; n-- {
			b.WriteByte(pchr[i])
		}
	}
	b.WriteByte('v')
	for i := 0; i < len(pchr); i++ {
		pt := charToPiece[pchr[i]]
		for n := pos.Pieces[black][pt].PopCount(); n > 0; n-- {
			b.WriteByte(pchr[i])
		}
	}
	return b.String()
}

func sortSide(side string) string {
	letters := []byte(side)
	sort.SliceStable(letters, func(i, j int) bool {
		return pieceValueIndex(letters[i]) < pieceValueIndex(letters[j])
	})
	return string(letters)
}

// sideLeads reports whether side a precedes side b in a normalized name:
// the side with more pieces leads, ties broken by the more valuable
// composition (lower piece-value indices first).
func sideLeads(a, b string) bool {
	if len(a) != len(b) {
		return len(a) > len(b)
	}
	for i := 0; i < len(a); i++ {
		va, vb := pieceValueIndex(a[i]), pieceValueIndex(b[i])
		if va != vb {
			return va < vb
		}
	}
	return true
}

// NormalizeTablename puts a material key into its canonical form: each side
// sorted by piece value, the stronger side first. With mirror set, the side
// order is inverted.
func NormalizeTablename(name string, mirror bool) string {
	w, b, ok := strings.Cut(name, "v")
	if !ok {
		return name
	}
	w, b = sortSide(w), sortSide(b)
	if sideLeads(w, b) == mirror {
		w, b = b, w
	}
	return w + "v" + b
}

// IsTablename reports whether name is a plausible normalized tablebase name:
// one 'v', exactly one king per side, only valid piece letters, at most
// maxPieces pieces.
func IsTablename(name string) bool {
	w, b, ok := strings.Cut(name, "v")
	if !ok || len(w) == 0 || len(b) == 0 {
		return false
	}
	if strings.Count(w, "K") != 1 || strings.Count(b, "K") != 1 {
		return false
	}
	if len(w)+len(b) < 3 || len(w)+len(b) > maxPieces {
		return false
	}
	for i := 0; i < len(name); i++ {
		if name[i] != 'v' && pieceValueIndex(name[i]) < 0 {
			return false
		}
	}
	return name == NormalizeTablename(name, false)
}

// Dependencies yields every normalized key reachable from name by exactly
// one capture or one pawn promotion, de-duplicated. The trivial "KvK" is
// excluded. Used by table-set discovery, not by probing.
func Dependencies(name string) []string {
	w, b, ok := strings.Cut(name, "v")
	if !ok {
		return nil
	}

	seen := make(map[string]struct{})
	add := func(wside, bside string) {
		n := NormalizeTablename(wside+"v"+bside, false)
		if n == "KvK" {
			return
		}
		seen[n] = struct{}{}
	}

	for i := 1; i < len(pchr); i++ {
		p := string(pchr[i])

		// Promotions.
		if p != "P" {
			if strings.Contains(w, "P") {
				add(strings.Replace(w, "P", p, 1), b)
			}
			if strings.Contains(b, "P") {
				add(w, strings.Replace(b, "P", p, 1))
			}
		}

		// Captures.
		if strings.Contains(w, p) && len(w) > 1 {
			add(strings.Replace(w, p, "", 1), b)
		}
		if strings.Contains(b, p) && len(b) > 1 {
			add(w, strings.Replace(b, p, "", 1))
		}
	}

	deps := make([]string, 0, len(seen))
	for n := range seen {
		deps = append(deps, n)
	}
	sort.Strings(deps)
	return deps
}

// Tablenames enumerates every normalized material key with 3 up to
// pieceCount pieces, sorted. Drives directory scanning and downloads.
func Tablenames(pieceCount int) []string {
	if pieceCount > maxPieces {
		pieceCount = maxPieces
	}

	seen := make(map[string]struct{})
	var sides []string
	var build func(prefix string, min, left int)
	build = func(prefix string, min, left int) {
		sides = append(sides, "K"+prefix)
		if left == 0 {
			return
		}
		for i := min; i < len(pchr); i++ {
			build(prefix+string(pchr[i]), i, left-1)
		}
	}
	build("", 1, pieceCount-2)

	for _, w := range sides {
		for _, b := range sides {
			if len(w)+len(b) < 3 || len(w)+len(b) > pieceCount {
				continue
			}
			seen[NormalizeTablename(w+"v"+b, false)] = struct{}{}
		}
	}

	names := make([]string, 0, len(seen))
	for n := range seen {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
