package main

import (
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
)

// Server holds shared state for HTTP handlers.
type Server struct {
	dbCache *DBCache
	log     *slog.Logger
}

func NewServer(cache *DBCache, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{dbCache: cache, log: logger}
}

// RegisterRoutes sets up all API routes on the given mux.
func (s *Server) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/api/decisions/summary", s.handleDecisionSummary)
	mux.HandleFunc("/api/games", s.handleGames)
	mux.HandleFunc("/api/games/", s.handleGameTurns)
	mux.HandleFunc("/api/replays/agreement", s.handleAgreement)
}

func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	s.log.ErrorContext(r.Context(), "query failed", "path", r.URL.Path, "err", err)
	http.Error(w, err.Error(), http.StatusInternalServerError)
}

func (s *Server) handleDecisionSummary(w http.ResponseWriter, r *http.Request) {
	if !getOnly(w, r) {
		return
	}
	db, err := s.dbCache.Get()
	if err != nil {
		s.fail(w, r, err)
		return
	}
	summary, err := queryDecisionSummary(r.Context(), db, strings.TrimSpace(r.URL.Query().Get("game_id")))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, summary)
}

func (s *Server) handleGames(w http.ResponseWriter, r *http.Request) {
	if !getOnly(w, r) {
		return
	}
	games, err := s.dbCache.GamesIndex(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}

	limit := parseIntQuery(r, "limit", 100)
	offset := parseIntQuery(r, "offset", 0)
	sortKey := r.URL.Query().Get("sort")
	sortDir := r.URL.Query().Get("dir")
	writeJSON(w, GamesResponse{
		Total: int64(len(games)),
		Games: paginateGames(games, limit, offset, sortKey, sortDir),
	})
}

func (s *Server) handleGameTurns(w http.ResponseWriter, r *http.Request) {
	if !getOnly(w, r) {
		return
	}

	// /api/games/{id}/turns
	rest := strings.TrimPrefix(r.URL.Path, "/api/games/")
	parts := strings.Split(rest, "/")
	if len(parts) != 2 || parts[0] == "" || parts[1] != "turns" {
		http.NotFound(w, r)
		return
	}
	gameID, err := url.PathUnescape(parts[0])
	if err != nil {
		http.Error(w, "bad game id", http.StatusBadRequest)
		return
	}

	db, err := s.dbCache.Get()
	if err != nil {
		s.fail(w, r, err)
		return
	}
	turns, err := queryTurns(r.Context(), db, gameID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			http.NotFound(w, r)
			return
		}
		s.fail(w, r, err)
		return
	}
	writeJSON(w, turns)
}

func (s *Server) handleAgreement(w http.ResponseWriter, r *http.Request) {
	if !getOnly(w, r) {
		return
	}
	db, err := s.dbCache.Get()
	if err != nil {
		s.fail(w, r, err)
		return
	}
	resp, err := queryAgreement(r.Context(), db, parseIntQuery(r, "min_turns", 1), parseIntQuery(r, "limit", 50))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, resp)
}
