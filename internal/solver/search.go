// Package solver plays tic-tac-toe perfectly by searching the whole game
// tree below a board. Nothing is cached between or within searches.
package solver

import "github.com/jaminalder/minimax-tic-tac-toe/internal/domain"

// MaxValue is the value of b with X, the maximizer, to move.
func MaxValue(b domain.Board) domain.Utility { return maxValue(b, nil) }

// MinValue is the value of b with O, the minimizer, to move.
func MinValue(b domain.Board) domain.Utility { return minValue(b, nil) }

// counter tallies visited boards. A nil counter counts nothing.
type counter struct{ nodes int64 }

func (c *counter) visit() {
	if c != nil {
		c.nodes++
	}
}

func terminalValue(b domain.Board) (domain.Utility, bool) {
	if !b.Terminal() {
		return 0, false
	}
	v, _ := b.Utility()
	return v, true
}

func maxValue(b domain.Board, n *counter) domain.Utility {
	n.visit()
	if v, ok := terminalValue(b); ok {
		return v
	}
	best := domain.OWins
	for _, next := range b.Successors() {
		best = max(best, minValue(next, n))
	}
	return best
}

func minValue(b domain.Board, n *counter) domain.Utility {
	n.visit()
	if v, ok := terminalValue(b); ok {
		return v
	}
	best := domain.XWins
	for _, next := range b.Successors() {
		best = min(best, maxValue(next, n))
	}
	return best
}

// replyValue scores next, the board after mover's move, by letting the
// opponent reply optimally.
func replyValue(mover domain.Cell, next domain.Board, n *counter) domain.Utility {
	if mover == domain.X {
		return minValue(next, n)
	}
	return maxValue(next, n)
}
