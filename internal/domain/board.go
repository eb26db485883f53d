package domain

import (
	"errors"
	"fmt"
	"iter"
)

// Cell represents a board cell state. X and O double as the two players.
type Cell uint8

const (
	Empty Cell = iota
	X
	O
)

func (c Cell) String() string {
	switch c {
	case X:
		return "X"
	case O:
		return "O"
	default:
		return "."
	}
}

// Opponent returns the other player. Empty has no opponent.
func (c Cell) Opponent() Cell {
	switch c {
	case X:
		return O
	case O:
		return X
	default:
		return Empty
	}
}

// Utility is the value of a finished board from X's point of view.
type Utility int8

const (
	OWins     Utility = -1
	DrawValue Utility = 0
	XWins     Utility = 1
)

// Outcome summarizes where a board stands.
type Outcome uint8

const (
	Undetermined Outcome = iota
	XWon
	OWon
	Draw
)

func (o Outcome) String() string {
	switch o {
	case XWon:
		return "x_won"
	case OWon:
		return "o_won"
	case Draw:
		return "draw"
	default:
		return "in_progress"
	}
}

// Action addresses a cell by row and column, both in 0..2.
type Action struct {
	Row int
	Col int
}

func (a Action) String() string { return fmt.Sprintf("(%d,%d)", a.Row, a.Col) }

func (a Action) inBounds() bool {
	return a.Row >= 0 && a.Row <= 2 && a.Col >= 0 && a.Col <= 2
}

func (a Action) index() int { return a.Row*3 + a.Col }

func actionAt(idx int) Action { return Action{Row: idx / 3, Col: idx % 3} }

// Board is a fixed 3x3 board stored row-major. It is a value: Apply returns
// a new Board and never modifies the receiver.
type Board [9]Cell

// Errors returned by board operations.
var (
	ErrOutOfBounds   = errors.New("out of bounds")
	ErrOccupied      = errors.New("cell occupied")
	ErrInvalidAction = errors.New("invalid action")
	ErrPrecondition  = errors.New("precondition violated")
)

var lines = [8][3]int{
	// rows
	{0, 1, 2}, {3, 4, 5}, {6, 7, 8},
	// cols
	{0, 3, 6}, {1, 4, 7}, {2, 5, 8},
	// diags
	{0, 4, 8}, {2, 4, 6},
}

// NewBoard returns the empty starting board.
func NewBoard() Board { return Board{} }

// At returns the cell at row r, column c. Coordinates must be in range.
func (b Board) At(r, c int) Cell { return b[r*3+c] }

// Occupied counts the non-empty cells.
func (b Board) Occupied() int {
	n := 0
	for _, c := range b {
		if c != Empty {
			n++
		}
	}
	return n
}

// ActivePlayer returns the side to move: X after an even number of moves, O otherwise.
func (b Board) ActivePlayer() Cell {
	if b.Occupied()%2 == 0 {
		return X
	}
	return O
}

// LegalActions lists the empty cells in row-major order.
func (b Board) LegalActions() []Action {
	out := make([]Action, 0, 9)
	for i, c := range b {
		if c == Empty {
			out = append(out, actionAt(i))
		}
	}
	return out
}

// Apply returns the board after the active player marks a. The receiver is
// left untouched.
func (b Board) Apply(a Action) (Board, error) {
	if !a.inBounds() {
		return b, fmt.Errorf("%w %v: %w", ErrInvalidAction, a, ErrOutOfBounds)
	}
	if b[a.index()] != Empty {
		return b, fmt.Errorf("%w %v: %w", ErrInvalidAction, a, ErrOccupied)
	}
	next := b
	next[a.index()] = b.ActivePlayer()
	return next, nil
}

// Successors yields every legal action together with the board it leads
// to, in the same order as LegalActions.
func (b Board) Successors() iter.Seq2[Action, Board] {
	return func(yield func(Action, Board) bool) {
		mover := b.ActivePlayer()
		for i, c := range b {
			if c != Empty {
				continue
			}
			next := b
			next[i] = mover
			if !yield(actionAt(i), next) {
				return
			}
		}
	}
}

// Winner returns the player owning a full line, or Empty.
func (b Board) Winner() Cell {
	for _, ln := range lines {
		if side := b[ln[0]]; side != Empty && b[ln[1]] == side && b[ln[2]] == side {
			return side
		}
	}
	return Empty
}

// WinningLine returns the actions of the first completed line, if any.
func (b Board) WinningLine() []Action {
	for _, ln := range lines {
		if side := b[ln[0]]; side != Empty && b[ln[1]] == side && b[ln[2]] == side {
			return []Action{actionAt(ln[0]), actionAt(ln[1]), actionAt(ln[2])}
		}
	}
	return nil
}

// Full reports whether every cell is taken.
func (b Board) Full() bool {
	for _, c := range b {
		if c == Empty {
			return false
		}
	}
	return true
}

// Terminal reports whether the game on b is over.
func (b Board) Terminal() bool {
	return b.Winner() != Empty || b.Full()
}

// Utility scores a terminal board from X's point of view. Asking for the
// utility of a board that is still in play is a caller error.
func (b Board) Utility() (Utility, error) {
	switch b.Winner() {
	case X:
		return XWins, nil
	case O:
		return OWins, nil
	}
	if !b.Full() {
		return DrawValue, fmt.Errorf("%w: utility of a board still in play", ErrPrecondition)
	}
	return DrawValue, nil
}

// Outcome classifies the board.
func (b Board) Outcome() Outcome {
	switch b.Winner() {
	case X:
		return XWon
	case O:
		return OWon
	}
	if b.Full() {
		return Draw
	}
	return Undetermined
}
