package syzygy

import (
	"sort"

	"github.com/hailam/endgame/internal/board"
)

// MoveEval is the tablebase verdict on one root move, from the point of
// view of the side making it.
type MoveEval struct {
	Move board.Move
	DTZ  int
	WDL  int
}

// ProbeRoot evaluates every legal move by DTZ and returns them best first,
// along with the move to play. Move ordering honors the fifty move rule:
// a win that cannot be converted before the counter runs out ranks below
// one that can.
func (tb *Tablebase) ProbeRoot(pos *board.Position) (board.Move, []MoveEval, error) {
	if err := tb.checkPosition(pos, tb.LargestDtz()); err != nil {
		return 0, nil, err
	}

	moves := pos.GenerateLegalMoves()
	if moves.Len() == 0 {
		return 0, nil, &InvalidPositionError{Reason: "no legal moves"}
	}

	evals := make([]MoveEval, 0, moves.Len())
	for i := 0; i < moves.Len(); i++ {
		m := moves.Get(i)
		undo := pos.MakeMove(m)
		var v int
		var err error
		switch {
		case pos.IsCheckmate():
			v = 1
		case pos.HalfMoveClock == 0:
			// Zeroing move: the DTZ restarts, only the WDL after the
			// move matters.
			var w int
			w, err = tb.probeWDL(pos)
			v = wdlToDtz[-w+2]
		default:
			v, err = tb.probeDTZ(pos)
			v = -v
			if v > 0 {
				v++
			} else if v < 0 {
				v--
			}
		}
		pos.UnmakeMove(m, undo)
		if err != nil {
			return 0, nil, err
		}
		evals = append(evals, MoveEval{Move: m, DTZ: v, WDL: dtzToWdl(v)})
	}

	clock := pos.HalfMoveClock
	sort.SliceStable(evals, func(i, j int) bool {
		return moveBetter(evals[i].DTZ, evals[j].DTZ, clock)
	})
	return evals[0].Move, evals, nil
}

func dtzToWdl(dtz int) int {
	switch {
	case dtz > 100:
		return 1
	case dtz > 0:
		return 2
	case dtz == 0:
		return 0
	case dtz >= -100:
		return -2
	default:
		return -1
	}
}

// moveBetter ranks DTZ values after a move: convertible wins by shortest
// DTZ, then cursed or unconvertible wins, then draws, then losses by
// longest resistance.
func moveBetter(a, b, clock int) bool {
	return moveRank(a, clock) > moveRank(b, clock)
}

func moveRank(dtz, clock int) int {
	switch {
	case dtz > 0 && dtz <= 100 && dtz+clock <= 100:
		return 400 - dtz
	case dtz > 0:
		return 200 - min(dtz, 100)
	case dtz == 0:
		return 0
	default:
		return -200 - dtz // less negative dtz loses sooner
	}
}
