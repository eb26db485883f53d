// Package console runs a game between a person at a terminal and the solver.
package console

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/rs/zerolog"

	"github.com/jaminalder/minimax-tic-tac-toe/internal/domain"
	"github.com/jaminalder/minimax-tic-tac-toe/internal/solver"
)

// LineReader yields one line of input per call. *readline.Instance
// satisfies it.
type LineReader interface {
	Readline() (string, error)
}

// ErrQuit is returned by Run when the player types "quit".
var ErrQuit = errors.New("quit")

var errBadMove = errors.New(`enter a move as "row col" with values 0-2, "hint" or "quit"`)

// Session plays one game.
type Session struct {
	In     LineReader
	Out    io.Writer
	Solver *solver.Solver
	Human  domain.Cell
	Log    zerolog.Logger
}

type command int

const (
	cmdMove command = iota
	cmdHint
	cmdQuit
)

// parseInput accepts "r c", "r,c" or "rc" with 0-based coordinates.
func parseInput(line string) (command, domain.Action, error) {
	line = strings.TrimSpace(strings.ToLower(line))
	switch line {
	case "q", "quit", "exit":
		return cmdQuit, domain.Action{}, nil
	case "h", "hint", "?":
		return cmdHint, domain.Action{}, nil
	}
	fields := strings.FieldsFunc(line, func(r rune) bool { return r == ' ' || r == ',' })
	if len(fields) == 1 && len(fields[0]) == 2 {
		fields = []string{fields[0][:1], fields[0][1:]}
	}
	if len(fields) != 2 {
		return cmdMove, domain.Action{}, errBadMove
	}
	r, err1 := strconv.Atoi(fields[0])
	c, err2 := strconv.Atoi(fields[1])
	if err1 != nil || err2 != nil {
		return cmdMove, domain.Action{}, errBadMove
	}
	return cmdMove, domain.Action{Row: r, Col: c}, nil
}

// Render draws b as a grid with row and column labels.
func Render(b domain.Board) string {
	var sb strings.Builder
	sb.WriteString("    0   1   2\n")
	for r := 0; r < 3; r++ {
		if r > 0 {
			sb.WriteString("   ---+---+---\n")
		}
		fmt.Fprintf(&sb, "%d ", r)
		for c := 0; c < 3; c++ {
			if c > 0 {
				sb.WriteByte('|')
			}
			sym := " "
			if cell := b.At(r, c); cell != domain.Empty {
				sym = cell.String()
			}
			fmt.Fprintf(&sb, " %s ", sym)
		}
		sb.WriteByte('\n')
	}
	return sb.String()
}

// Run plays until the game ends, the player quits or input runs out.
func (s *Session) Run(ctx context.Context) (domain.Game, error) {
	if s.Human != domain.X && s.Human != domain.O {
		return domain.Game{}, fmt.Errorf("human side must be X or O, got %v", s.Human)
	}
	g := domain.New()
	for !g.Over {
		if g.Turn != s.Human {
			a, ok, err := s.Solver.BestAction(ctx, g.Board)
			if err != nil {
				return g, err
			}
			if !ok {
				break
			}
			if err := g.Play(a.Row, a.Col); err != nil {
				return g, err
			}
			s.Log.Debug().Stringer("action", a).Msg("computer moved")
			fmt.Fprintf(s.Out, "computer plays %d %d\n", a.Row, a.Col)
			continue
		}

		fmt.Fprint(s.Out, Render(g.Board))
		line, err := s.In.Readline()
		if err != nil {
			return g, err
		}
		cmd, a, err := parseInput(line)
		if err != nil {
			fmt.Fprintln(s.Out, err)
			continue
		}
		switch cmd {
		case cmdQuit:
			return g, ErrQuit
		case cmdHint:
			h, ok, err := s.Solver.BestAction(ctx, g.Board)
			if err != nil {
				return g, err
			}
			if ok {
				fmt.Fprintf(s.Out, "hint: %d %d\n", h.Row, h.Col)
			}
			continue
		}
		if err := g.Play(a.Row, a.Col); err != nil {
			switch {
			case errors.Is(err, domain.ErrOccupied):
				fmt.Fprintln(s.Out, "that cell is taken")
			case errors.Is(err, domain.ErrOutOfBounds):
				fmt.Fprintln(s.Out, "row and column must be 0, 1 or 2")
			default:
				return g, err
			}
		}
	}

	fmt.Fprint(s.Out, Render(g.Board))
	switch g.Winner {
	case s.Human:
		fmt.Fprintln(s.Out, "you win")
	case domain.Empty:
		fmt.Fprintln(s.Out, "draw")
	default:
		fmt.Fprintln(s.Out, "computer wins")
	}
	return g, nil
}
