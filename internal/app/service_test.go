package app

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/jaminalder/minimax-tic-tac-toe/internal/domain"
	"github.com/jaminalder/minimax-tic-tac-toe/internal/solver"
)

// minimal renderer for tests: encode moves count as bytes
func testRenderer(gs GameState) []byte { return []byte(fmt.Sprintf("moves=%d", gs.Game.Moves)) }

func TestCreateAndGet(t *testing.T) {
	s := NewServiceWithRenderer(testRenderer)
	gs, err := s.CreateGame()
	if err != nil {
		t.Fatalf("CreateGame error: %v", err)
	}
	if gs.ID == "" {
		t.Fatalf("expected non-empty game ID")
	}
	if gs.Game.Turn != domain.X {
		t.Fatalf("expected initial turn X")
	}
	if gs.Created.IsZero() || gs.Updated.IsZero() {
		t.Fatalf("expected timestamps to be set")
	}
	got, ok := s.Get(gs.ID)
	if !ok || got.ID != gs.ID {
		t.Fatalf("Get should find created game")
	}
}

func TestJoinSeatsAndRejoin(t *testing.T) {
	s := NewServiceWithRenderer(testRenderer)
	gs, _ := s.CreateGame()
	p1, p2, p3 := "p1", "p2", "p3"

	side, _, err := s.Join(gs.ID, p1)
	if err != nil || side != domain.X {
		t.Fatalf("p1 should claim X, got %v, err=%v", side, err)
	}
	side, _, err = s.Join(gs.ID, p2)
	if err != nil || side != domain.O {
		t.Fatalf("p2 should claim O, got %v, err=%v", side, err)
	}
	side, _, err = s.Join(gs.ID, p1)
	if err != nil || side != domain.X {
		t.Fatalf("p1 rejoin should keep X, got %v, err=%v", side, err)
	}
	side, _, err = s.Join(gs.ID, p3)
	if err != nil || side != domain.Empty {
		t.Fatalf("p3 should spectate (Empty), got %v, err=%v", side, err)
	}
	if _, _, err := s.Join("missing", p1); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestPlayEnforcesTurnAndSpectatorBlocked(t *testing.T) {
	ctx := context.Background()
	s := NewServiceWithRenderer(testRenderer)
	gs, _ := s.CreateGame()
	p1, p2, p3 := "p1", "p2", "p3"
	s.Join(gs.ID, p1) // X
	s.Join(gs.ID, p2) // O
	s.Join(gs.ID, p3) // spectator

	// O cannot play first
	if _, err := s.Play(ctx, gs.ID, p2, 0, 0); !errors.Is(err, ErrNotYourTurn) {
		t.Fatalf("expected ErrNotYourTurn, got %v", err)
	}
	// spectator cannot play
	if _, err := s.Play(ctx, gs.ID, p3, 0, 0); !errors.Is(err, ErrNotAPlayer) {
		t.Fatalf("expected ErrNotAPlayer, got %v", err)
	}
	// X plays
	st, err := s.Play(ctx, gs.ID, p1, 0, 0)
	if err != nil {
		t.Fatalf("X play failed: %v", err)
	}
	if st.Game.Board[0] != domain.X || st.Game.Turn != domain.O || st.Game.Moves != 1 {
		t.Fatalf("unexpected state after X move: turn=%v moves=%d cell0=%v", st.Game.Turn, st.Game.Moves, st.Game.Board[0])
	}
	// X cannot play again
	if _, err := s.Play(ctx, gs.ID, p1, 1, 1); !errors.Is(err, ErrNotYourTurn) {
		t.Fatalf("expected ErrNotYourTurn for X again, got %v", err)
	}
	// O cannot take X's cell
	if _, err := s.Play(ctx, gs.ID, p2, 0, 0); !errors.Is(err, domain.ErrOccupied) {
		t.Fatalf("expected ErrOccupied, got %v", err)
	}
}

func TestComputerOpensWhenPlayingX(t *testing.T) {
	s := NewService(WithSolver(solver.New(solver.WithWorkers(2))))
	gs, err := s.CreateComputerGame(context.Background(), domain.X)
	if err != nil {
		t.Fatalf("CreateComputerGame: %v", err)
	}
	if gs.Computer() != domain.X || gs.X != ComputerID {
		t.Fatalf("expected computer on X, got X=%q O=%q", gs.X, gs.O)
	}
	if gs.Game.Moves != 1 || gs.Game.Turn != domain.O {
		t.Fatalf("expected computer opening, moves=%d turn=%v", gs.Game.Moves, gs.Game.Turn)
	}
	side, _, _ := s.Join(gs.ID, "human")
	if side != domain.O {
		t.Fatalf("human should get O, got %v", side)
	}
}

func TestComputerRepliesAndNeverLoses(t *testing.T) {
	ctx := context.Background()
	s := NewService()
	gs, err := s.CreateComputerGame(ctx, domain.O)
	if err != nil {
		t.Fatalf("CreateComputerGame: %v", err)
	}
	if gs.Game.Moves != 0 {
		t.Fatalf("computer on O must not open, moves=%d", gs.Game.Moves)
	}
	s.Join(gs.ID, "human")

	// The human plays the first empty cell every turn.
	for !gs.Game.Over {
		a := gs.Game.Board.LegalActions()[0]
		next, err := s.Play(ctx, gs.ID, "human", a.Row, a.Col)
		if err != nil {
			t.Fatalf("play %v: %v", a, err)
		}
		if !next.Game.Over && next.Game.Turn != domain.X {
			t.Fatalf("expected computer to have replied, turn=%v", next.Game.Turn)
		}
		gs = next
	}
	if gs.Game.Winner == domain.X {
		t.Fatalf("computer lost: %v", gs.Game.Board)
	}
	if _, err := s.Play(ctx, gs.ID, ComputerID, 0, 0); !errors.Is(err, ErrNotAPlayer) {
		t.Fatalf("computer seat must not be playable, got %v", err)
	}
}

func TestCreateComputerGameRejectsEmptySide(t *testing.T) {
	s := NewService()
	if _, err := s.CreateComputerGame(context.Background(), domain.Empty); !errors.Is(err, ErrBadSide) {
		t.Fatalf("expected ErrBadSide, got %v", err)
	}
}

func TestHint(t *testing.T) {
	ctx := context.Background()
	s := NewService()
	gs, _ := s.CreateGame()
	s.Join(gs.ID, "p1")
	s.Join(gs.ID, "p2")
	for _, m := range [][3]any{{"p1", 0, 0}, {"p2", 1, 1}, {"p1", 0, 1}} {
		if _, err := s.Play(ctx, gs.ID, m[0].(string), m[1].(int), m[2].(int)); err != nil {
			t.Fatalf("play %v: %v", m, err)
		}
	}
	a, ok, err := s.Hint(ctx, gs.ID)
	if err != nil || !ok {
		t.Fatalf("hint failed: ok=%v err=%v", ok, err)
	}
	if a != (domain.Action{Row: 0, Col: 2}) {
		t.Fatalf("O must block at (0,2), hint was %v", a)
	}
	if _, _, err := s.Hint(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestComputerReplyIgnoresCanceledContext(t *testing.T) {
	s := NewService()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	gs, err := s.CreateComputerGame(ctx, domain.X)
	if err != nil {
		t.Fatalf("create with canceled context: %v", err)
	}
	if gs.Game.Moves != 1 || gs.Game.Turn != domain.O {
		t.Fatalf("computer should have opened, got moves=%d turn=%v", gs.Game.Moves, gs.Game.Turn)
	}

	gs, err = s.CreateComputerGame(context.Background(), domain.O)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	s.Join(gs.ID, "alice")
	after, err := s.Play(ctx, gs.ID, "alice", 1, 1)
	if err != nil {
		t.Fatalf("play with canceled context: %v", err)
	}
	if after.Game.Moves != 2 || after.Game.Turn != domain.X {
		t.Fatalf("computer should have replied, got moves=%d turn=%v", after.Game.Moves, after.Game.Turn)
	}
	stored, _ := s.Get(gs.ID)
	if stored.Game.Board != after.Game.Board {
		t.Fatalf("stored board %v differs from returned %v", stored.Game.Board, after.Game.Board)
	}

	// the game keeps going
	r, c := 0, 0
	if after.Game.Board.At(0, 0) != domain.Empty {
		r, c = 2, 2
	}
	if _, err := s.Play(context.Background(), gs.ID, "alice", r, c); err != nil {
		t.Fatalf("next move: %v", err)
	}
}

func TestSubscribeUnknownGame(t *testing.T) {
	s := NewService()
	ch, unsub, err := s.Subscribe(context.Background(), "missing")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if ch != nil || unsub != nil {
		t.Fatalf("unknown game should not yield a subscription")
	}
	if _, ok := s.Get("missing"); ok {
		t.Fatalf("subscribe must not create a game")
	}
}

func TestSubscribeAndBroadcast(t *testing.T) {
	s := NewServiceWithRenderer(testRenderer)
	gs, _ := s.CreateGame()
	p1, p2 := "p1", "p2"
	s.Join(gs.ID, p1)
	s.Join(gs.ID, p2)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second*2)
	defer cancel()
	ch, unsub, err := s.Subscribe(ctx, gs.ID)
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	defer unsub()

	// Trigger an update: X plays
	if _, err := s.Play(ctx, gs.ID, p1, 0, 0); err != nil {
		t.Fatalf("play failed: %v", err)
	}

	select {
	case b, ok := <-ch:
		if !ok {
			t.Fatalf("channel closed unexpectedly")
		}
		if string(b) != "moves=1" {
			t.Fatalf("unexpected broadcast payload: %q", string(b))
		}
	case <-ctx.Done():
		t.Fatalf("timed out waiting for broadcast")
	}
}

func TestDropSlowSubscriber(t *testing.T) {
	s := NewServiceWithRenderer(testRenderer)
	gs, _ := s.CreateGame()
	p1, p2 := "p1", "p2"
	s.Join(gs.ID, p1)
	s.Join(gs.ID, p2)

	// Slow subscriber: never read
	ctxSlow, cancelSlow := context.WithCancel(context.Background())
	defer cancelSlow()
	slowCh, _, err := s.Subscribe(ctxSlow, gs.ID)
	if err != nil {
		t.Fatalf("subscribe slow: %v", err)
	}

	ctxFast, cancelFast := context.WithTimeout(context.Background(), time.Second*2)
	defer cancelFast()
	fastCh, unsubFast, err := s.Subscribe(ctxFast, gs.ID)
	if err != nil {
		t.Fatalf("subscribe fast: %v", err)
	}
	defer unsubFast()

	// Two quick updates; the fast subscriber drains between them
	if _, err := s.Play(ctxFast, gs.ID, p1, 0, 0); err != nil {
		t.Fatalf("play1: %v", err)
	}
	select {
	case <-fastCh:
	case <-ctxFast.Done():
		t.Fatalf("fast subscriber did not receive first update")
	}
	if _, err := s.Play(ctxFast, gs.ID, p2, 1, 1); err != nil {
		t.Fatalf("play2: %v", err)
	}
	select {
	case <-fastCh:
	case <-ctxFast.Done():
		t.Fatalf("fast subscriber did not receive second update")
	}

	// Slow subscriber got the first payload, then was dropped and closed
	if b, ok := <-slowCh; !ok || string(b) != "moves=1" {
		t.Fatalf("expected buffered first payload, got %q ok=%v", b, ok)
	}
	if _, ok := <-slowCh; ok {
		t.Fatalf("expected slow subscriber channel to be closed")
	}
}
