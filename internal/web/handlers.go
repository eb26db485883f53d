package web

import (
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/jaminalder/minimax-tic-tac-toe/internal/app"
	"github.com/jaminalder/minimax-tic-tac-toe/internal/domain"
	"github.com/jaminalder/minimax-tic-tac-toe/internal/solver"
)

type handlers struct {
	svc       *app.Service
	tpl       *templates
	solver    *solver.Solver
	log       zerolog.Logger
	heartbeat time.Duration
}

type boardData struct {
	ID     string
	Board  domain.Board
	Status string
	Error  string
	Hint   *domain.Action
}

func statusLine(gs app.GameState) string {
	switch gs.Game.Outcome() {
	case domain.XWon:
		return "X wins"
	case domain.OWon:
		return "O wins"
	case domain.Draw:
		return "Draw"
	}
	return gs.Game.Turn.String() + " to move"
}

func (h *handlers) renderBoard(gs app.GameState, errMsg string, hint *domain.Action) []byte {
	data := boardData{ID: gs.ID, Board: gs.Game.Board, Status: statusLine(gs), Error: errMsg, Hint: hint}
	return renderTemplate(h.tpl.board, "", data)
}

// renderState renders the board fragment pushed to SSE subscribers.
func (h *handlers) renderState(gs app.GameState) []byte { return h.renderBoard(gs, "", nil) }

func (h *handlers) index(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(renderTemplate(h.tpl.index, "", nil))
}

func (h *handlers) create(w http.ResponseWriter, r *http.Request) {
	_ = r.ParseForm()
	var (
		gs  *app.GameState
		err error
	)
	switch r.Form.Get("opponent") {
	case "computer-x":
		gs, err = h.svc.CreateComputerGame(r.Context(), domain.X)
	case "computer-o", "computer":
		gs, err = h.svc.CreateComputerGame(r.Context(), domain.O)
	default:
		gs, err = h.svc.CreateGame()
	}
	if err != nil {
		h.log.Error().Err(err).Msg("create game")
		http.Error(w, "failed to create", http.StatusInternalServerError)
		return
	}
	http.Redirect(w, r, "/game/"+gs.ID, http.StatusSeeOther)
}

func (h *handlers) view(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	// ensure cookie and auto-claim seat
	pid := ensurePlayerCookie(w, r)
	_, _, _ = h.svc.Join(id, pid)

	gs, ok := h.svc.Get(id)
	if !ok {
		http.NotFound(w, r)
		return
	}
	data := struct {
		ID        string
		Game      struct{ ID string }
		BoardHTML template.HTML
	}{ID: gs.ID}
	data.Game.ID = gs.ID
	data.BoardHTML = template.HTML(h.renderBoard(*gs, "", nil))

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(renderTemplate(h.tpl.game, "", data))
}

func (h *handlers) join(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	pid := ensurePlayerCookie(w, r)
	_, gs, err := h.svc.Join(id, pid)
	if err != nil || gs == nil {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(h.renderBoard(*gs, "", nil))
}

func moveError(err error) string {
	switch {
	case errors.Is(err, app.ErrNotYourTurn):
		return "Not your turn"
	case errors.Is(err, app.ErrNotAPlayer):
		return "You are a spectator"
	case errors.Is(err, domain.ErrOccupied):
		return "Cell is occupied"
	case errors.Is(err, domain.ErrOutOfBounds):
		return "Out of bounds"
	case errors.Is(err, domain.ErrGameOver):
		return "Game is over"
	default:
		return "Invalid move"
	}
}

func (h *handlers) play(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	pid := ensurePlayerCookie(w, r)
	_ = r.ParseForm()
	ri, errR := strconv.Atoi(r.Form.Get("r"))
	ci, errC := strconv.Atoi(r.Form.Get("c"))
	var (
		gs  *app.GameState
		err error
	)
	if errR != nil || errC != nil {
		err = domain.ErrOutOfBounds
	} else {
		gs, err = h.svc.Play(r.Context(), id, pid, ri, ci)
	}
	var errMsg string
	if err != nil {
		if gs == nil {
			if g, ok := h.svc.Get(id); ok {
				gs = g
			}
		}
		errMsg = moveError(err)
		h.log.Debug().Err(err).Str("game", id).Msg("move rejected")
	}
	if gs == nil {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(h.renderBoard(*gs, errMsg, nil))
}

func (h *handlers) hint(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	gs, ok := h.svc.Get(id)
	if !ok {
		http.NotFound(w, r)
		return
	}
	a, ok, err := h.svc.Hint(r.Context(), id)
	if err != nil {
		h.log.Error().Err(err).Str("game", id).Msg("hint")
		http.Error(w, "search failed", http.StatusInternalServerError)
		return
	}
	var hint *domain.Action
	if ok {
		hint = &a
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(h.renderBoard(*gs, "", hint))
}

var heartbeatInterval = 15 * time.Second

func (h *handlers) events(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, ok := h.svc.Get(id); !ok {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("X-Accel-Buffering", "no")
	// In tests or non-EventSource requests, just acknowledge headers and return
	if r.Header.Get("Accept") != "text/event-stream" {
		w.WriteHeader(http.StatusOK)
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		w.WriteHeader(http.StatusOK)
		return
	}
	ctx := r.Context()
	ch, unsub, err := h.svc.Subscribe(ctx, id)
	if err != nil {
		return
	}
	defer unsub()
	ticker := time.NewTicker(h.heartbeat)
	defer ticker.Stop()
	// Initial flush of headers
	flusher.Flush()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			_, _ = io.WriteString(w, ": ping\n\n")
			flusher.Flush()
		case b, ok := <-ch:
			if !ok {
				return
			}
			_, _ = fmt.Fprintf(w, "event: board\n")
			_, _ = fmt.Fprintf(w, "data: %s\n\n", b)
			flusher.Flush()
		}
	}
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

// stateMessage is the JSON view of a game sent over the websocket.
type stateMessage struct {
	ID       string   `json:"id"`
	Board    string   `json:"board"`
	Turn     string   `json:"turn"`
	Outcome  string   `json:"outcome"`
	Moves    int      `json:"moves"`
	Computer string   `json:"computer,omitempty"`
	Line     []action `json:"winning_line,omitempty"`
}

type action struct {
	Row int `json:"row"`
	Col int `json:"col"`
}

func toActions(as []domain.Action) []action {
	out := make([]action, len(as))
	for i, a := range as {
		out[i] = action{Row: a.Row, Col: a.Col}
	}
	return out
}

func newStateMessage(gs app.GameState) stateMessage {
	msg := stateMessage{
		ID:      gs.ID,
		Board:   gs.Game.Board.String(),
		Turn:    gs.Game.Turn.String(),
		Outcome: gs.Game.Outcome().String(),
		Moves:   gs.Game.Moves,
		Line:    toActions(gs.Game.Board.WinningLine()),
	}
	if c := gs.Computer(); c != domain.Empty {
		msg.Computer = c.String()
	}
	return msg
}

// ws streams the game state as JSON: once on connect, then after every move.
func (h *handlers) ws(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, ok := h.svc.Get(id); !ok {
		http.NotFound(w, r)
		return
	}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Debug().Err(err).Str("game", id).Msg("websocket upgrade")
		return
	}
	defer conn.Close()

	ctx := r.Context()
	ch, unsub, err := h.svc.Subscribe(ctx, id)
	if err != nil {
		return
	}
	defer unsub()

	// The read loop only notices the client going away.
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	send := func() error {
		gs, ok := h.svc.Get(id)
		if !ok {
			return app.ErrNotFound
		}
		_ = conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
		return conn.WriteJSON(newStateMessage(*gs))
	}
	if err := send(); err != nil {
		return
	}
	ticker := time.NewTicker(h.heartbeat)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-closed:
			return
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(5*time.Second)); err != nil {
				return
			}
		case _, ok := <-ch:
			if !ok {
				return
			}
			if err := send(); err != nil {
				h.log.Debug().Err(err).Str("game", id).Msg("websocket write")
				return
			}
		}
	}
}

type solveRequest struct {
	Board string `json:"board"`
}

type candidate struct {
	action
	Value int `json:"value"`
}

type solveResponse struct {
	Board      string      `json:"board"`
	Turn       string      `json:"turn"`
	Outcome    string      `json:"outcome"`
	Value      *int        `json:"value,omitempty"`
	Best       *action     `json:"best,omitempty"`
	Candidates []candidate `json:"candidates"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// solve answers {"board": "XX.|.O.|..."} with the solver's move and the
// value of every legal move.
func (h *handlers) solve(w http.ResponseWriter, r *http.Request) {
	var req solveRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, 1<<10)).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON body"})
		return
	}
	b, err := domain.ParseBoard(req.Board)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	resp := solveResponse{
		Board:      b.String(),
		Turn:       b.ActivePlayer().String(),
		Outcome:    b.Outcome().String(),
		Candidates: []candidate{},
	}
	if b.Terminal() {
		u, _ := b.Utility()
		v := int(u)
		resp.Value = &v
		writeJSON(w, http.StatusOK, resp)
		return
	}
	cands, err := h.solver.Analyze(r.Context(), b)
	if err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": err.Error()})
		return
	}
	a, _ := h.solver.Choose(b, cands)
	v := int(cands[0].Value)
	for _, c := range cands {
		resp.Candidates = append(resp.Candidates, candidate{action: action{Row: c.Action.Row, Col: c.Action.Col}, Value: int(c.Value)})
		if b.ActivePlayer() == domain.X {
			v = max(v, int(c.Value))
		} else {
			v = min(v, int(c.Value))
		}
	}
	resp.Value = &v
	resp.Best = &action{Row: a.Row, Col: a.Col}
	writeJSON(w, http.StatusOK, resp)
}
