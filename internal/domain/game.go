package domain

import "errors"

// Game holds the current state of a Tic-Tac-Toe match.
type Game struct {
	Board   Board
	Turn    Cell
	Winner  Cell
	Over    bool
	Moves   int
	History []Action
}

// ErrGameOver is returned when playing on a finished game.
var ErrGameOver = errors.New("game over")

// New returns a new game with X to move.
func New() Game {
	return Game{Turn: X}
}

// Play attempts to play the current turn at row r, column c (0..2).
func (g *Game) Play(r, c int) error {
	if g.Over {
		return ErrGameOver
	}
	a := Action{Row: r, Col: c}
	next, err := g.Board.Apply(a)
	if err != nil {
		return err
	}
	g.Board = next
	g.Moves++
	g.History = append(g.History, a)

	if g.Board.Terminal() {
		g.Winner = g.Board.Winner()
		g.Over = true
		return nil
	}
	g.Turn = g.Board.ActivePlayer()
	return nil
}

// Outcome reports the result of the match so far.
func (g Game) Outcome() Outcome { return g.Board.Outcome() }

// Clone returns a copy that shares no history storage with g.
func (g Game) Clone() Game {
	g.History = append([]Action(nil), g.History...)
	return g
}
