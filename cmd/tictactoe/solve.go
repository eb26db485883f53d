package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/jaminalder/minimax-tic-tac-toe/internal/domain"
	"github.com/jaminalder/minimax-tic-tac-toe/internal/solver"
)

var solveCmd = &cobra.Command{
	Use:   "solve <board>",
	Short: "Print the value of every move and the solver's choice",
	Long: `Board notation is nine cells, row by row, using X, O and '.',
optionally separated by '|' or '/', for example "XX.|.O.|...".`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		b, err := domain.ParseBoard(args[0])
		if err != nil {
			return err
		}
		return writeSolution(cmd, cmd.OutOrStdout(), b, solver.New(cfg.SolverOptions()...))
	},
}

func writeSolution(cmd *cobra.Command, w io.Writer, b domain.Board, sv *solver.Solver) error {
	fmt.Fprintf(w, "board:   %v\n", b)
	if b.Terminal() {
		fmt.Fprintf(w, "outcome: %v\n", b.Outcome())
		return nil
	}
	fmt.Fprintf(w, "to move: %v\n", b.ActivePlayer())
	cands, err := sv.Analyze(cmd.Context(), b)
	if err != nil {
		return err
	}
	for _, c := range cands {
		fmt.Fprintf(w, "  %d %d  %+d\n", c.Action.Row, c.Action.Col, c.Value)
	}
	a, _ := sv.Choose(b, cands)
	fmt.Fprintf(w, "best:    %d %d (%v)\n", a.Row, a.Col, sv.Policy())
	return nil
}
