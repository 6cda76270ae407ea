package main

import (
	"encoding/json"
	"log/slog"
	"math/rand"
	"net/http"
	"time"

	"github.com/brensch/greedysnek/decision"
	"github.com/brensch/greedysnek/game"
	"github.com/brensch/greedysnek/store"
)

// Recorder receives one row per answered move. *store.Recorder satisfies it.
type Recorder interface {
	Record(row store.DecisionRow) bool
}

// Server answers the Battlesnake webhooks. It keeps no per-game state.
type Server struct {
	engine   *decision.Engine
	recorder Recorder
	info     InfoResponse
	seed     func() int64
	now      func() time.Time
	log      *slog.Logger
}

type ServerOption func(*Server)

// WithRecorder logs every decision. A nil recorder disables recording.
func WithRecorder(r Recorder) ServerOption {
	return func(s *Server) { s.recorder = r }
}

// WithSeed replaces the per-request seed source.
func WithSeed(seed func() int64) ServerOption {
	return func(s *Server) { s.seed = seed }
}

func NewServer(engine *decision.Engine, info InfoResponse, logger *slog.Logger, opts ...ServerOption) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		engine: engine,
		info:   info,
		seed:   func() int64 { return time.Now().UnixNano() },
		now:    time.Now,
		log:    logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handleIndex)
	mux.HandleFunc("/start", s.handleStart)
	mux.HandleFunc("/move", s.handleMove)
	mux.HandleFunc("/end", s.handleEnd)
	return mux
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		methodNotAllowed(w, http.MethodGet)
		return
	}
	writeJSON(w, s.info)
}

func (s *Server) handleStart(w http.ResponseWriter, r *http.Request) {
	req, ok := s.decode(w, r)
	if !ok {
		return
	}
	s.log.InfoContext(r.Context(), "game started",
		"game_id", req.Game.ID,
		"ruleset", req.Game.Ruleset.Name,
		"width", req.Board.Width,
		"height", req.Board.Height,
		"snakes", len(req.Board.Snakes),
		"you", req.You.Name,
	)
	w.WriteHeader(http.StatusOK)
}

func (s *Server) handleMove(w http.ResponseWriter, r *http.Request) {
	start := s.now()
	req, ok := s.decode(w, r)
	if !ok {
		return
	}

	snap := snapshotFromRequest(req)
	rng := rand.New(rand.NewSource(s.seed()))
	d := s.engine.Move(r.Context(), snap, rng, "game_id", req.Game.ID, "turn", req.Turn)

	writeJSON(w, MoveResponse{Move: d.Move.String()})

	if s.recorder != nil {
		decided := s.now()
		row := decisionRow(req, snap, d)
		row.DecidedNs = decided.UnixNano()
		row.LatencyNs = decided.Sub(start).Nanoseconds()
		if !s.recorder.Record(row) {
			s.log.WarnContext(r.Context(), "decision row dropped", "game_id", req.Game.ID, "turn", req.Turn)
		}
	}
}

func (s *Server) handleEnd(w http.ResponseWriter, r *http.Request) {
	req, ok := s.decode(w, r)
	if !ok {
		return
	}
	s.log.InfoContext(r.Context(), "game ended",
		"game_id", req.Game.ID,
		"turn", req.Turn,
		"result", gameResult(req),
	)
	w.WriteHeader(http.StatusOK)
}

func (s *Server) decode(w http.ResponseWriter, r *http.Request) (*GameRequest, bool) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, http.MethodPost)
		return nil, false
	}
	var req GameRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.log.WarnContext(r.Context(), "bad request body", "path", r.URL.Path, "err", err)
		http.Error(w, err.Error(), http.StatusBadRequest)
		return nil, false
	}
	return &req, true
}

// snapshotFromRequest uses req.You as the deciding snake and every board
// snake with a different id as an opponent, so a request whose board omits
// you still gets a decision.
func snapshotFromRequest(req *GameRequest) decision.Snapshot {
	snap := decision.Snapshot{
		Width:  int32(req.Board.Width),
		Height: int32(req.Board.Height),
		Food:   toPoints(req.Board.Food),
		You:    toSnake(req.You),
		Others: make([]game.Snake, 0, len(req.Board.Snakes)),
	}
	for _, b := range req.Board.Snakes {
		if b.ID == req.You.ID {
			continue
		}
		snap.Others = append(snap.Others, toSnake(b))
	}
	return snap
}

func decisionRow(req *GameRequest, snap decision.Snapshot, d decision.Decision) store.DecisionRow {
	head, _ := snap.You.Head()
	return store.DecisionRow{
		GameID:    req.Game.ID,
		Turn:      int32(req.Turn),
		SnakeID:   snap.You.Id,
		Width:     snap.Width,
		Height:    snap.Height,
		HeadX:     head.X,
		HeadY:     head.Y,
		Length:    int32(len(snap.You.Body)),
		Health:    snap.You.Health,
		Opponents: int32(len(snap.Others)),
		Move:      d.Move.String(),
		Reason:    d.Reason.String(),
		Safe:      d.Safe.Names(),
		Food:      d.Food.Names(),
		Preferred: d.Preferred.Names(),
		Anomalies: d.Anomalies.Names(),
		Source:    "live",
	}
}

func gameResult(req *GameRequest) string {
	for _, snake := range req.Board.Snakes {
		if snake.ID == req.You.ID {
			return "won"
		}
	}
	if len(req.Board.Snakes) == 0 {
		return "draw"
	}
	return "lost"
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func methodNotAllowed(w http.ResponseWriter, allow string) {
	w.Header().Set("Allow", allow)
	http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
}
