package app

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/samber/lo"

	"github.com/jaminalder/minimax-tic-tac-toe/internal/domain"
	"github.com/jaminalder/minimax-tic-tac-toe/internal/solver"
)

// ComputerID is the seat holder id of the solver-driven player.
const ComputerID = "computer"

// Errors exposed by the service layer.
var (
	ErrNotFound    = errors.New("game not found")
	ErrNotYourTurn = errors.New("not your turn")
	ErrNotAPlayer  = errors.New("not a player")
	ErrBadSide     = errors.New("computer side must be X or O")

	errStale = errors.New("board changed during search")
)

// GameState is the in-memory state tracked per game.
type GameState struct {
	ID      string
	Game    domain.Game
	X       string
	O       string
	Created time.Time
	Updated time.Time
}

// Computer reports which side the solver plays, or Empty.
func (gs GameState) Computer() domain.Cell {
	if gs.X == ComputerID {
		return domain.X
	}
	if gs.O == ComputerID {
		return domain.O
	}
	return domain.Empty
}

func (gs GameState) computerToMove() bool {
	c := gs.Computer()
	return c != domain.Empty && !gs.Game.Over && gs.Game.Turn == c
}

func (gs *GameState) snapshot() GameState {
	cp := *gs
	cp.Game = gs.Game.Clone()
	return cp
}

type subscriber struct {
	ch        chan []byte
	closeOnce sync.Once
}

func (s *subscriber) close() { s.closeOnce.Do(func() { close(s.ch) }) }

// Service manages games and subscribers.
type Service struct {
	mu     sync.Mutex
	games  map[string]*GameState
	subs   map[string]map[*subscriber]struct{}
	render func(GameState) []byte
	solver *solver.Solver
	log    zerolog.Logger
}

// Option configures a Service.
type Option func(*Service)

// WithRenderer sets the function that encodes broadcast payloads.
func WithRenderer(renderer func(GameState) []byte) Option {
	return func(s *Service) { s.render = renderer }
}

// WithSolver sets the solver used for computer moves and hints.
func WithSolver(sv *solver.Solver) Option { return func(s *Service) { s.solver = sv } }

// WithLogger sets the service logger.
func WithLogger(l zerolog.Logger) Option { return func(s *Service) { s.log = l } }

func nopRender(GameState) []byte { return nil }

// NewService creates a service. Without options it uses a sequential
// minimax solver and a renderer that encodes nothing useful.
func NewService(opts ...Option) *Service {
	s := &Service{
		games: make(map[string]*GameState),
		subs:  make(map[string]map[*subscriber]struct{}),
		log:   zerolog.Nop(),
	}
	for _, o := range opts {
		o(s)
	}
	if s.render == nil {
		s.render = nopRender
	}
	if s.solver == nil {
		s.solver = solver.New()
	}
	return s
}

// NewServiceWithRenderer allows injecting a renderer for broadcast payloads.
func NewServiceWithRenderer(renderer func(GameState) []byte) *Service {
	return NewService(WithRenderer(renderer))
}

// SetRenderer replaces the broadcast renderer function.
func (s *Service) SetRenderer(renderer func(GameState) []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if renderer == nil {
		s.render = nopRender
		return
	}
	s.render = renderer
}

// CreateGame creates and registers a new game between two people.
func (s *Service) CreateGame() (*GameState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	gs := s.newGameLocked()
	cp := gs.snapshot()
	return &cp, nil
}

func (s *Service) newGameLocked() *GameState {
	id := uuid.NewString()
	now := time.Now()
	gs := &GameState{ID: id, Game: domain.New(), Created: now, Updated: now}
	s.games[id] = gs
	s.log.Info().Str("game", id).Msg("game created")
	return gs
}

// CreateComputerGame creates a game in which the solver holds the given
// side. When the computer plays X it opens immediately, even if ctx is
// canceled meanwhile.
func (s *Service) CreateComputerGame(ctx context.Context, side domain.Cell) (*GameState, error) {
	if side != domain.X && side != domain.O {
		return nil, ErrBadSide
	}
	s.mu.Lock()
	gs := s.newGameLocked()
	if side == domain.X {
		gs.X = ComputerID
	} else {
		gs.O = ComputerID
	}
	cp := gs.snapshot()
	s.mu.Unlock()

	if cp.computerToMove() {
		return s.computerMove(context.WithoutCancel(ctx), cp)
	}
	return &cp, nil
}

// Get returns a copy of the game state if present.
func (s *Service) Get(id string) (*GameState, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	gs, ok := s.games[id]
	if !ok {
		return nil, false
	}
	cp := gs.snapshot()
	return &cp, true
}

// Join assigns a seat to the player if available; returns Empty for spectators.
func (s *Service) Join(id, playerID string) (domain.Cell, *GameState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	gs, ok := s.games[id]
	if !ok {
		return domain.Empty, nil, ErrNotFound
	}
	side := domain.Empty
	if playerID == ComputerID {
		cp := gs.snapshot()
		return side, &cp, nil
	}
	if gs.X == "" || gs.X == playerID {
		gs.X = playerID
		side = domain.X
	} else if gs.O == "" || gs.O == playerID {
		gs.O = playerID
		side = domain.O
	}
	gs.Updated = time.Now()
	cp := gs.snapshot()
	return side, &cp, nil
}

// Play validates seat and turn, applies a move, updates timestamps, and
// broadcasts. In a game against the computer the reply is played before
// Play returns. The reply ignores cancellation of ctx: once the human move
// is stored the computer must answer it.
func (s *Service) Play(ctx context.Context, id, playerID string, r, c int) (*GameState, error) {
	if playerID == ComputerID {
		return nil, ErrNotAPlayer
	}
	cp, err := s.apply(id, func(gs *GameState) error {
		var seat domain.Cell
		if gs.X == playerID {
			seat = domain.X
		} else if gs.O == playerID {
			seat = domain.O
		} else {
			return ErrNotAPlayer
		}
		if seat != gs.Game.Turn {
			return ErrNotYourTurn
		}
		return gs.Game.Play(r, c)
	})
	if err != nil {
		return nil, err
	}
	s.log.Debug().Str("game", id).Str("player", playerID).Int("row", r).Int("col", c).Msg("move played")
	if cp.computerToMove() {
		return s.computerMove(context.WithoutCancel(ctx), *cp)
	}
	return cp, nil
}

// computerMove searches outside the lock and plays the result only if the
// board is still the one searched.
func (s *Service) computerMove(ctx context.Context, cp GameState) (*GameState, error) {
	board := cp.Game.Board
	a, ok, err := s.solver.BestAction(ctx, board)
	if err != nil {
		return nil, err
	}
	if !ok {
		return &cp, nil
	}
	next, err := s.apply(cp.ID, func(gs *GameState) error {
		if gs.Game.Board != board {
			return errStale
		}
		return gs.Game.Play(a.Row, a.Col)
	})
	if errors.Is(err, errStale) {
		latest, ok := s.Get(cp.ID)
		if !ok {
			return nil, ErrNotFound
		}
		return latest, nil
	}
	if err != nil {
		return nil, err
	}
	s.log.Debug().Str("game", cp.ID).Stringer("action", a).Msg("computer moved")
	return next, nil
}

// apply runs fn on the stored game under the lock, then fans the new state
// out to subscribers.
func (s *Service) apply(id string, fn func(gs *GameState) error) (*GameState, error) {
	var toDrop []*subscriber

	s.mu.Lock()
	gs, ok := s.games[id]
	if !ok {
		s.mu.Unlock()
		return nil, ErrNotFound
	}
	if err := fn(gs); err != nil {
		s.mu.Unlock()
		return nil, err
	}
	gs.Updated = time.Now()
	if gs.Game.Over {
		s.log.Info().Str("game", id).Stringer("outcome", gs.Game.Outcome()).Msg("game finished")
	}

	// Snapshot state and subscribers
	cp := gs.snapshot()
	subs := s.copySubsLocked(id)
	payload := s.render(cp)
	s.mu.Unlock()

	// Fan-out; drop slow subscribers by closing and marking for deletion
	for _, sub := range subs {
		select {
		case sub.ch <- payload:
		default:
			sub.close()
			toDrop = append(toDrop, sub)
		}
	}
	if len(toDrop) > 0 {
		s.log.Warn().Str("game", id).Int("dropped", len(toDrop)).Msg("dropped slow subscribers")
		s.mu.Lock()
		for _, sub := range toDrop {
			if set, ok := s.subs[id]; ok {
				delete(set, sub)
			}
		}
		s.mu.Unlock()
	}
	return &cp, nil
}

// Hint returns the move the solver would play for the side to move.
func (s *Service) Hint(ctx context.Context, id string) (domain.Action, bool, error) {
	gs, ok := s.Get(id)
	if !ok {
		return domain.Action{}, false, ErrNotFound
	}
	return s.solver.BestAction(ctx, gs.Game.Board)
}

// Subscribe registers a subscriber for a game. Returns a channel and an
// unsubscribe func, or ErrNotFound for an unknown game.
func (s *Service) Subscribe(ctx context.Context, id string) (<-chan []byte, func(), error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.games[id]; !ok {
		return nil, nil, ErrNotFound
	}
	set := s.subs[id]
	if set == nil {
		set = make(map[*subscriber]struct{})
		s.subs[id] = set
	}
	sub := &subscriber{ch: make(chan []byte, 1)}
	set[sub] = struct{}{}

	unsubOnce := &sync.Once{}
	unsub := func() {
		unsubOnce.Do(func() {
			s.mu.Lock()
			if set, ok := s.subs[id]; ok {
				delete(set, sub)
			}
			s.mu.Unlock()
			sub.close()
		})
	}
	go func() {
		<-ctx.Done()
		unsub()
	}()
	return sub.ch, unsub, nil
}

func (s *Service) copySubsLocked(id string) []*subscriber {
	return lo.Keys(s.subs[id])
}
