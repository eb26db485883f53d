package web

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/jaminalder/minimax-tic-tac-toe/internal/app"
	"github.com/jaminalder/minimax-tic-tac-toe/internal/solver"
)

// Option configures the HTTP server.
type Option func(*handlers)

// WithLogger sets the access and error logger.
func WithLogger(l zerolog.Logger) Option { return func(h *handlers) { h.log = l } }

// WithSolver sets the solver behind /api/solve.
func WithSolver(s *solver.Solver) Option { return func(h *handlers) { h.solver = s } }

// WithHeartbeat sets the SSE and websocket keepalive interval.
func WithHeartbeat(d time.Duration) Option {
	return func(h *handlers) {
		if d > 0 {
			h.heartbeat = d
		}
	}
}

// NewServer wires routes and returns an http.Handler.
func NewServer(s *app.Service, opts ...Option) http.Handler {
	h := &handlers{
		svc:       s,
		tpl:       loadTemplates(),
		solver:    solver.New(),
		log:       zerolog.Nop(),
		heartbeat: heartbeatInterval,
	}
	for _, o := range opts {
		o(h)
	}
	s.SetRenderer(h.renderState)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(accessLog(h.log))
	r.Use(middleware.Recoverer)

	r.Get("/", h.index)
	r.Post("/game", h.create)
	r.Route("/game/{id}", func(r chi.Router) {
		r.Get("/", h.view)
		r.Post("/join", h.join)
		r.Post("/play", h.play)
		r.Get("/hint", h.hint)
		r.Get("/events", h.events)
		r.Get("/ws", h.ws)
	})
	r.Post("/api/solve", h.solve)
	return r
}

// accessLog writes one zerolog event per request.
func accessLog(l zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			defer func() {
				l.Info().
					Str("request_id", middleware.GetReqID(r.Context())).
					Str("method", r.Method).
					Str("path", r.URL.Path).
					Int("status", ww.Status()).
					Int("bytes", ww.BytesWritten()).
					Dur("elapsed", time.Since(start)).
					Msg("request")
			}()
			next.ServeHTTP(ww, r)
		})
	}
}
