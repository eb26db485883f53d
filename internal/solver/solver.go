package solver

import (
	"context"
	"runtime"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/jaminalder/minimax-tic-tac-toe/internal/domain"
)

// Solver picks moves for a service or a CLI. It holds configuration only;
// every search starts from scratch.
type Solver struct {
	policy  Policy
	workers int
	log     zerolog.Logger
}

// Option configures a Solver.
type Option func(*Solver)

// WithPolicy sets the selection policy. The default is Minimax.
func WithPolicy(p Policy) Option { return func(s *Solver) { s.policy = p } }

// WithWorkers bounds how many root moves are searched at once. Values
// below 1 mean runtime.GOMAXPROCS(0); 1 searches sequentially.
func WithWorkers(n int) Option { return func(s *Solver) { s.workers = n } }

// WithLogger sets the logger used for per-search debug stats.
func WithLogger(l zerolog.Logger) Option { return func(s *Solver) { s.log = l } }

// New returns a Solver with the given options applied.
func New(opts ...Option) *Solver {
	s := &Solver{policy: Minimax, workers: 1, log: zerolog.Nop()}
	for _, o := range opts {
		o(s)
	}
	if s.workers < 1 {
		s.workers = runtime.GOMAXPROCS(0)
	}
	return s
}

// Policy reports the configured selection policy.
func (s *Solver) Policy() Policy { return s.policy }

// BestAction returns the move the solver plays on b, or false when b is
// terminal. The result does not depend on the number of workers. The
// context is checked between root moves only; a started subtree always
// runs to completion.
func (s *Solver) BestAction(ctx context.Context, b domain.Board) (domain.Action, bool, error) {
	start := time.Now()
	if b.Terminal() {
		return domain.Action{}, false, nil
	}
	if a, ok := immediateWin(b); ok {
		s.log.Debug().Str("board", b.String()).Stringer("action", a).Msg("immediate win")
		return a, true, nil
	}
	cands, nodes, err := s.score(ctx, b)
	if err != nil {
		return domain.Action{}, false, err
	}
	a, _ := s.Choose(b, cands)
	s.log.Debug().
		Str("board", b.String()).
		Stringer("action", a).
		Stringer("policy", s.policy).
		Int64("nodes", nodes).
		Dur("elapsed", time.Since(start)).
		Msg("search finished")
	return a, true, nil
}

// Choose returns the move BestAction would play on b given cands, the
// output of Analyze for the same board. It reports false when b is
// terminal or cands is empty.
func (s *Solver) Choose(b domain.Board, cands []Candidate) (domain.Action, bool) {
	if b.Terminal() || len(cands) == 0 {
		return domain.Action{}, false
	}
	if a, ok := immediateWin(b); ok {
		return a, true
	}
	return pick(b.ActivePlayer(), cands, s.policy), true
}

// Analyze scores every legal move of b, in row-major order.
func (s *Solver) Analyze(ctx context.Context, b domain.Board) ([]Candidate, error) {
	if b.Terminal() {
		return nil, nil
	}
	cands, _, err := s.score(ctx, b)
	return cands, err
}

// score evaluates each root move. Workers write into their own slots, so
// the candidate order is row-major whatever the scheduling.
func (s *Solver) score(ctx context.Context, b domain.Board) ([]Candidate, int64, error) {
	mover := b.ActivePlayer()
	actions := b.LegalActions()
	cands := make([]Candidate, len(actions))
	counts := make([]counter, len(actions))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(s.workers)
	for i, a := range actions {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			next, err := b.Apply(a)
			if err != nil {
				return err
			}
			cands[i] = Candidate{Action: a, Value: replyValue(mover, next, &counts[i])}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, 0, err
	}
	var nodes int64
	for _, c := range counts {
		nodes += c.nodes
	}
	return cands, nodes, nil
}
