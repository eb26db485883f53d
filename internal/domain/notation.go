package domain

import (
	"errors"
	"fmt"
	"strings"
)

// ErrBadNotation is returned by ParseBoard for malformed input.
var ErrBadNotation = errors.New("bad board notation")

// String renders the board as three rows separated by '|', e.g. "XX.|.O.|...".
func (b Board) String() string {
	var sb strings.Builder
	for i, c := range b {
		if i > 0 && i%3 == 0 {
			sb.WriteByte('|')
		}
		sb.WriteString(c.String())
	}
	return sb.String()
}

// ParseBoard reads the notation produced by Board.String. Row separators
// ('|' or '/') and spaces are optional; '.', '_' and '-' mark empty cells.
// Boards whose mark counts cannot arise from alternating play are rejected.
func ParseBoard(s string) (Board, error) {
	var b Board
	n := 0
	for _, r := range s {
		var c Cell
		switch r {
		case '|', '/', ' ':
			continue
		case 'X', 'x':
			c = X
		case 'O', 'o':
			c = O
		case '.', '_', '-':
			c = Empty
		default:
			return Board{}, fmt.Errorf("%w: unexpected %q", ErrBadNotation, r)
		}
		if n == 9 {
			return Board{}, fmt.Errorf("%w: more than 9 cells", ErrBadNotation)
		}
		b[n] = c
		n++
	}
	if n != 9 {
		return Board{}, fmt.Errorf("%w: got %d cells, want 9", ErrBadNotation, n)
	}
	var nx, no int
	for _, c := range b {
		switch c {
		case X:
			nx++
		case O:
			no++
		}
	}
	if nx != no && nx != no+1 {
		return Board{}, fmt.Errorf("%w: %d X against %d O", ErrBadNotation, nx, no)
	}
	return b, nil
}
