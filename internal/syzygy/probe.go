// Package syzygy reads Syzygy endgame tables directly from disk. A
// Tablebase tracks every table found in the registered directories, maps
// them lazily on first probe and keeps at most maxOpen of them resident.
package syzygy

import (
	"container/list"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/hailam/endgame/internal/board"
)

// wdlToDtz converts a WDL class to the DTZ of the best zeroing move:
// immediate for real wins and losses, past the hundred ply horizon for
// cursed ones.
var wdlToDtz = [5]int{-1, -101, 0, 101, 1}

const defaultMaxOpen = 128

// Tablebase is a collection of WDL and DTZ tables. All methods are safe
// for concurrent use, but a probe mutates the Position it is handed while
// searching, so callers must not share one Position across goroutines.
type Tablebase struct {
	mu         sync.Mutex
	wdl        map[string]*wdlTable
	dtz        map[string]*dtzTable
	open       *list.List
	resident   map[interface{ close() }]*list.Element
	maxOpen    int
	largestWdl int
	largestDtz int
}

// NewTablebase returns an empty Tablebase. maxOpen bounds how many table
// files stay mapped at once; zero or negative selects the default.
func NewTablebase(maxOpen int) *Tablebase {
	if maxOpen <= 0 {
		maxOpen = defaultMaxOpen
	}
	return &Tablebase{
		wdl:      make(map[string]*wdlTable),
		dtz:      make(map[string]*dtzTable),
		open:     list.New(),
		resident: make(map[interface{ close() }]*list.Element),
		maxOpen:  maxOpen,
	}
}

// AddDirectory registers every table file in dir and returns how many were
// found. Files are not opened until first probed, so registering a
// directory with thousands of tables is cheap.
func (tb *Tablebase) AddDirectory(dir string) (int, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0, err
	}

	tb.mu.Lock()
	defer tb.mu.Unlock()

	found := 0
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		path := filepath.Join(dir, e.Name())
		switch strings.ToLower(filepath.Ext(e.Name())) {
		case wdlSuffix:
			t, err := newWdlTable(path)
			if err != nil {
				log.Printf("[Syzygy] Skipping %s: %v", e.Name(), err)
				continue
			}
			tb.wdl[t.key] = t
			tb.wdl[t.mirroredKey] = t
			if t.num > tb.largestWdl {
				tb.largestWdl = t.num
			}
			found++
		case dtzSuffix:
			t, err := newDtzTable(path)
			if err != nil {
				log.Printf("[Syzygy] Skipping %s: %v", e.Name(), err)
				continue
			}
			tb.dtz[t.key] = t
			tb.dtz[t.mirroredKey] = t
			if t.num > tb.largestDtz {
				tb.largestDtz = t.num
			}
			found++
		}
	}
	return found, nil
}

// LargestWdl returns the piece count of the largest registered WDL table.
func (tb *Tablebase) LargestWdl() int {
	tb.mu.Lock()
	defer tb.mu.Unlock()
	return tb.largestWdl
}

// LargestDtz returns the piece count of the largest registered DTZ table.
func (tb *Tablebase) LargestDtz() int {
	tb.mu.Lock()
	defer tb.mu.Unlock()
	return tb.largestDtz
}

// Close unmaps every open table. The Tablebase stays usable, tables are
// simply re-opened on the next probe.
func (tb *Tablebase) Close() {
	tb.mu.Lock()
	closers := make([]interface{ close() }, 0, len(tb.resident))
	for t := range tb.resident {
		closers = append(closers, t)
	}
	tb.open.Init()
	tb.resident = make(map[interface{ close() }]*list.Element)
	tb.mu.Unlock()

	for _, t := range closers {
		t.close()
	}
}

// touch moves a table to the front of the resident list and evicts from
// the back when too many tables are mapped. Called after a successful
// probe, with no table locks held.
func (tb *Tablebase) touch(t interface{ close() }) {
	var evicted []interface{ close() }

	tb.mu.Lock()
	if el, ok := tb.resident[t]; ok {
		tb.open.MoveToFront(el)
	} else {
		tb.resident[t] = tb.open.PushFront(t)
	}
	for tb.open.Len() > tb.maxOpen {
		back := tb.open.Back()
		victim := back.Value.(interface{ close() })
		tb.open.Remove(back)
		delete(tb.resident, victim)
		evicted = append(evicted, victim)
	}
	tb.mu.Unlock()

	for _, v := range evicted {
		v.close()
	}
}

// ProbeWDL returns the win/draw/loss value of the position for the side
// to move: 2 win, 1 cursed win, 0 draw, -1 blessed loss, -2 loss. The
// position must have no castling rights and no more pieces than the
// largest registered table.
func (tb *Tablebase) ProbeWDL(pos *board.Position) (int, error) {
	if err := tb.checkPosition(pos, tb.LargestWdl()); err != nil {
		return 0, err
	}
	return tb.probeWDL(pos)
}

// ProbeDTZ returns the distance to zeroing of the position for the side
// to move, negative for losses. A DTZ of n means the side to move can
// force a capture, pawn move or mate within n plies while preserving the
// WDL value; values beyond 100 mark results that fall to the fifty move
// rule.
func (tb *Tablebase) ProbeDTZ(pos *board.Position) (int, error) {
	if err := tb.checkPosition(pos, tb.LargestDtz()); err != nil {
		return 0, err
	}
	return tb.probeDTZ(pos)
}

func (tb *Tablebase) checkPosition(pos *board.Position, largest int) error {
	if pos.CastlingRights != board.NoCastling {
		return &InvalidPositionError{Reason: "position has castling rights"}
	}
	n := pos.AllOccupied.PopCount()
	if n > maxPieces {
		return &InvalidPositionError{Reason: "too many pieces"}
	}
	if n > largest {
		return &MissingTableError{Key: CalcKey(pos, false)}
	}
	return nil
}

// probeWDLTable looks up the position in its WDL table.
func (tb *Tablebase) probeWDLTable(pos *board.Position) (int, error) {
	key := CalcKey(pos, false)
	tb.mu.Lock()
	t, ok := tb.wdl[key]
	tb.mu.Unlock()
	if !ok {
		return 0, &MissingTableError{Key: key}
	}
	v, err := t.probe(pos)
	if err != nil {
		return 0, err
	}
	tb.touch(t)
	return v, nil
}

// probeDTZTable looks up the position in its DTZ table. ok is false when
// the table stores the other side to move.
func (tb *Tablebase) probeDTZTable(pos *board.Position, wdl int) (int, bool, error) {
	key := CalcKey(pos, false)
	tb.mu.Lock()
	t, ok := tb.dtz[key]
	tb.mu.Unlock()
	if !ok {
		return 0, false, &MissingTableError{Key: key}
	}
	v, stored, err := t.probe(pos, wdl)
	if err != nil {
		return 0, false, err
	}
	tb.touch(t)
	return v, stored, nil
}

// probeAB is an alpha-beta search over captures on top of the WDL tables.
// En passant captures are skipped here and resolved by the caller. The
// second result is 2 when a winning capture decided the value, 1 when the
// table did.
func (tb *Tablebase) probeAB(pos *board.Position, alpha, beta int) (int, int, error) {
	moves := pos.GenerateCaptures()
	for i := 0; i < moves.Len(); i++ {
		m := moves.Get(i)
		if m.IsEnPassant() || !m.IsCapture(pos) {
			continue
		}
		undo := pos.MakeMove(m)
		v, _, err := tb.probeAB(pos, -beta, -alpha)
		pos.UnmakeMove(m, undo)
		if err != nil {
			return 0, 0, err
		}
		v = -v
		if v > alpha {
			if v >= beta {
				return v, 2, nil
			}
			alpha = v
		}
	}

	v, err := tb.probeWDLTable(pos)
	if err != nil {
		return 0, 0, err
	}
	if alpha >= v {
		success := 1
		if alpha > 0 {
			success = 2
		}
		return alpha, success, nil
	}
	return v, 1, nil
}

// probeWDL resolves the en passant overlay on top of probeAB: the tables
// ignore the en passant square, so a better en passant capture, or one the
// side to move cannot avoid, overrides the table value.
func (tb *Tablebase) probeWDL(pos *board.Position) (int, error) {
	v, _, err := tb.probeAB(pos, -2, 2)
	if err != nil {
		return 0, err
	}
	if pos.EnPassant == board.NoSquare {
		return v, nil
	}

	v1 := -3
	moves := pos.GenerateLegalMoves()
	for i := 0; i < moves.Len(); i++ {
		m := moves.Get(i)
		if !m.IsEnPassant() {
			continue
		}
		undo := pos.MakeMove(m)
		v0, _, err := tb.probeAB(pos, -2, 2)
		pos.UnmakeMove(m, undo)
		if err != nil {
			return 0, err
		}
		if v0 = -v0; v0 > v1 {
			v1 = v0
		}
	}
	if v1 > -3 {
		if v1 >= v {
			v = v1
		} else if v == 0 && tb.onlyEnPassant(moves) {
			// Forced to play the losing en passant capture.
			v = v1
		}
	}
	return v, nil
}

func (tb *Tablebase) onlyEnPassant(moves *board.MoveList) bool {
	for i := 0; i < moves.Len(); i++ {
		if !moves.Get(i).IsEnPassant() {
			return false
		}
	}
	return moves.Len() > 0
}

// probeDTZ layers the en passant rules over probeDTZNoEP, mirroring the
// WDL overlay but in DTZ units and respecting the fifty move horizon.
func (tb *Tablebase) probeDTZ(pos *board.Position) (int, error) {
	v, err := tb.probeDTZNoEP(pos)
	if err != nil {
		return 0, err
	}
	if pos.EnPassant == board.NoSquare {
		return v, nil
	}

	v1 := -3
	moves := pos.GenerateLegalMoves()
	for i := 0; i < moves.Len(); i++ {
		m := moves.Get(i)
		if !m.IsEnPassant() {
			continue
		}
		undo := pos.MakeMove(m)
		v0, _, err := tb.probeAB(pos, -2, 2)
		pos.UnmakeMove(m, undo)
		if err != nil {
			return 0, err
		}
		if v0 = -v0; v0 > v1 {
			v1 = v0
		}
	}
	if v1 == -3 {
		return v, nil
	}

	v1 = wdlToDtz[v1+2]
	switch {
	case v < -100:
		if v1 >= 0 {
			v = v1
		}
	case v < 0:
		if v1 >= 0 || v1 < -100 {
			v = v1
		}
	case v > 100:
		if v1 > 0 {
			v = v1
		}
	case v > 0:
		if v1 == 1 {
			v = v1
		}
	case v1 >= 0:
		v = v1
	default:
		if tb.onlyEnPassant(moves) {
			v = v1
		}
	}
	return v, nil
}

// probeDTZNoEP computes DTZ ignoring the en passant square. Wins prefer
// zeroing moves that keep the win, otherwise the DTZ table value applies;
// when the table stores the other side to move the value is resolved one
// ply deeper.
func (tb *Tablebase) probeDTZNoEP(pos *board.Position) (int, error) {
	wdl, success, err := tb.probeAB(pos, -2, 2)
	if err != nil {
		return 0, err
	}
	if wdl == 0 {
		return 0, nil
	}
	if success == 2 {
		// A winning capture zeroes immediately.
		return wdlToDtz[wdl+2], nil
	}

	var moves *board.MoveList
	if wdl > 0 {
		// A pawn push that preserves the win zeroes just as fast.
		moves = pos.GenerateLegalMoves()
		for i := 0; i < moves.Len(); i++ {
			m := moves.Get(i)
			if m.IsCapture(pos) || pos.PieceAt(m.From()).Type() != board.Pawn {
				continue
			}
			undo := pos.MakeMove(m)
			v, _, err := tb.probeAB(pos, -2, -wdl+1)
			pos.UnmakeMove(m, undo)
			if err != nil {
				return 0, err
			}
			if -v == wdl {
				return wdlToDtz[wdl+2], nil
			}
		}
	}

	dtz, stored, err := tb.probeDTZTable(pos, wdl)
	if err != nil {
		return 0, err
	}
	if stored {
		if wdl > 0 {
			return wdlToDtz[wdl+2] + dtz, nil
		}
		return wdlToDtz[wdl+2] - dtz, nil
	}

	// The table stores the other side to move: minimax one ply.
	if wdl > 0 {
		best := 0xFFFF
		for i := 0; i < moves.Len(); i++ {
			m := moves.Get(i)
			if m.IsCapture(pos) || pos.PieceAt(m.From()).Type() == board.Pawn {
				continue
			}
			undo := pos.MakeMove(m)
			v, err := tb.probeDTZ(pos)
			pos.UnmakeMove(m, undo)
			if err != nil {
				return 0, err
			}
			if v = -v; v > 0 && v+1 < best {
				best = v + 1
			}
		}
		return best, nil
	}

	best := -1
	moves = pos.GenerateLegalMoves()
	for i := 0; i < moves.Len(); i++ {
		m := moves.Get(i)
		undo := pos.MakeMove(m)
		var v int
		if pos.HalfMoveClock == 0 {
			// The move zeroes: the result comes from the WDL tables.
			if wdl == -2 {
				v = -1
			} else {
				w, _, werr := tb.probeAB(pos, 1, 2)
				err = werr
				if w == 2 {
					v = 0
				} else {
					v = -101
				}
			}
		} else {
			v, err = tb.probeDTZ(pos)
			v = -v - 1
		}
		pos.UnmakeMove(m, undo)
		if err != nil {
			return 0, err
		}
		if v < best {
			best = v
		}
	}
	return best, nil
}
