package main

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/chzyer/readline"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/jaminalder/minimax-tic-tac-toe/internal/console"
	"github.com/jaminalder/minimax-tic-tac-toe/internal/domain"
	"github.com/jaminalder/minimax-tic-tac-toe/internal/solver"
)

var playAs string

var playCmd = &cobra.Command{
	Use:   "play",
	Short: "Play against the solver in the terminal",
	Args:  cobra.NoArgs,
	RunE:  runPlay,
}

func init() {
	playCmd.Flags().StringVar(&playAs, "as", "x", "your side: x moves first, o moves second")
}

func runPlay(cmd *cobra.Command, args []string) error {
	var human domain.Cell
	switch strings.ToLower(playAs) {
	case "x":
		human = domain.X
	case "o":
		human = domain.O
	default:
		return fmt.Errorf("--as must be x or o, got %q", playAs)
	}

	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "\033[31m»\033[0m ",
		InterruptPrompt: "^C",
		EOFPrompt:       "quit",
	})
	if err != nil {
		return err
	}
	defer rl.Close()

	s := &console.Session{
		In:     rl,
		Out:    rl.Stdout(),
		Solver: solver.New(append(cfg.SolverOptions(), solver.WithLogger(log.Logger))...),
		Human:  human,
		Log:    log.Logger,
	}
	fmt.Fprintf(rl.Stdout(), "you are %v; moves are \"row col\", also \"hint\" and \"quit\"\n", human)
	_, err = s.Run(cmd.Context())
	if errors.Is(err, console.ErrQuit) || errors.Is(err, io.EOF) || errors.Is(err, readline.ErrInterrupt) {
		return nil
	}
	return err
}
