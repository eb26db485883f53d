package solver

import (
	"fmt"
	"slices"

	"github.com/samber/lo"

	"github.com/jaminalder/minimax-tic-tac-toe/internal/domain"
)

// Policy decides which scored candidate the mover picks.
type Policy uint8

const (
	// Minimax picks the best value for the mover: highest for X, lowest
	// for O. Ties go to the earliest candidate in row-major order.
	Minimax Policy = iota
	// Ascending sorts candidates by value and takes the first for both
	// players. X then chooses its worst move; kept for comparison only.
	Ascending
)

func (p Policy) String() string {
	switch p {
	case Ascending:
		return "ascending"
	default:
		return "minimax"
	}
}

// ParsePolicy maps a configuration name to a Policy.
func ParsePolicy(s string) (Policy, error) {
	switch s {
	case "", "minimax":
		return Minimax, nil
	case "ascending":
		return Ascending, nil
	}
	return Minimax, fmt.Errorf("unknown selection policy %q", s)
}

// Candidate is a legal action with the value the position reaches after it
// under optimal play.
type Candidate struct {
	Action domain.Action
	Value  domain.Utility
}

// BestAction returns the optimal move for the side to move on b under the
// Minimax policy. It reports false when b is terminal.
func BestAction(b domain.Board) (domain.Action, bool) {
	return bestAction(b, Minimax, nil)
}

func bestAction(b domain.Board, p Policy, n *counter) (domain.Action, bool) {
	if b.Terminal() {
		return domain.Action{}, false
	}
	mover := b.ActivePlayer()
	var cands []Candidate
	for a, next := range b.Successors() {
		if next.Winner() == mover {
			return a, true
		}
		cands = append(cands, Candidate{Action: a, Value: replyValue(mover, next, n)})
	}
	return pick(mover, cands, p), true
}

// immediateWin returns the first action in row-major order that wins on the spot.
func immediateWin(b domain.Board) (domain.Action, bool) {
	mover := b.ActivePlayer()
	for a, next := range b.Successors() {
		if next.Winner() == mover {
			return a, true
		}
	}
	return domain.Action{}, false
}

// pick selects from candidates listed in row-major order. cands must not be empty.
func pick(mover domain.Cell, cands []Candidate, p Policy) domain.Action {
	if p == Ascending {
		sorted := slices.Clone(cands)
		slices.SortStableFunc(sorted, func(a, b Candidate) int { return int(a.Value) - int(b.Value) })
		return sorted[0].Action
	}
	best := lo.MaxBy(cands, func(a, b Candidate) bool {
		if mover == domain.X {
			return a.Value > b.Value
		}
		return a.Value < b.Value
	})
	return best.Action
}

// Analyze scores every legal action of b in row-major order. A terminal
// board has no candidates.
func Analyze(b domain.Board) []Candidate {
	if b.Terminal() {
		return nil
	}
	mover := b.ActivePlayer()
	var out []Candidate
	for a, next := range b.Successors() {
		out = append(out, Candidate{Action: a, Value: replyValue(mover, next, nil)})
	}
	return out
}

// Value is the game-theoretic value of b with its active player to move.
func Value(b domain.Board) domain.Utility {
	if b.ActivePlayer() == domain.X {
		return MaxValue(b)
	}
	return MinValue(b)
}
