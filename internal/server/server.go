// Package server exposes game sessions over HTTP and WebSocket. Seats join
// over HTTP and receive a signed token; the token opens a WebSocket that
// carries commands in and events out.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/tomaszsb/Game-alpha-sub005/engine"
	"github.com/tomaszsb/Game-alpha-sub005/internal/game"
	"github.com/tomaszsb/Game-alpha-sub005/internal/models"
)

// Options configures a Server.
type Options struct {
	Rules        engine.Rules
	Seed         uint64 // 0 seeds each game from the clock
	WriteTimeout time.Duration
	PingInterval time.Duration
}

// Server routes requests to the live games it hosts.
type Server struct {
	catalog engine.Catalog
	opts    Options
	tokens  *TokenIssuer
	log     *logrus.Logger
	games   *registry
}

func New(cat engine.Catalog, tokens *TokenIssuer, opts Options, logger *logrus.Logger) *Server {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	if opts.WriteTimeout <= 0 {
		opts.WriteTimeout = 5 * time.Second
	}
	if opts.PingInterval <= 0 {
		opts.PingInterval = 30 * time.Second
	}
	return &Server{
		catalog: cat,
		opts:    opts,
		tokens:  tokens,
		log:     logger,
		games:   newRegistry(),
	}
}

// Handler returns the HTTP routes.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /games", s.handleListGames)
	mux.HandleFunc("POST /games", s.handleCreateGame)
	mux.HandleFunc("GET /games/{id}", s.handleGetGame)
	mux.HandleFunc("POST /games/{id}/seats", s.handleJoin)
	mux.HandleFunc("POST /games/{id}/start", s.handleStart)
	mux.HandleFunc("DELETE /games/{id}", s.handleClose)
	mux.HandleFunc("GET /games/{id}/ws", s.handleWS)
	return mux
}

// ListenAndServe serves until ctx is cancelled.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	errc := make(chan error, 1)
	go func() {
		s.log.Infof("Server listening on %s.", addr)
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
		s.log.Info("Shutting down server.")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		if err := <-errc; !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}
}

// NewGame creates and registers an empty session.
func (s *Server) NewGame() *game.Session {
	sess := game.NewSession(s.catalog, s.opts.Rules, s.opts.Seed, s.log)
	r := newRoom(sess, s.log.WithField("game", sess.ID.String()))
	sess.OnGameEnd = func(id uuid.UUID, winner string, final engine.GameState) {
		s.log.WithField("game", id.String()).Infof("Game finished on turn %d, winner %s.", final.Turn, winner)
	}
	s.games.add(r)
	return sess
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{"status": "ok", "games": s.games.count()})
}

func (s *Server) handleListGames(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.games.list())
}

func (s *Server) handleCreateGame(w http.ResponseWriter, _ *http.Request) {
	sess := s.NewGame()
	s.log.Infof("Game %s created.", sess.ID)
	writeJSON(w, http.StatusCreated, map[string]interface{}{"gameId": sess.ID})
}

func (s *Server) handleGetGame(w http.ResponseWriter, r *http.Request) {
	rm, ok := s.roomFor(w, r)
	if !ok {
		return
	}
	sess := rm.session
	sess.Mu.Lock()
	view := sess.GetSyncState("")
	sess.Mu.Unlock()
	writeJSON(w, http.StatusOK, view)
}

type joinRequest struct {
	Name   string `json:"name"`
	Color  string `json:"color"`
	Avatar string `json:"avatar"`
	AI     bool   `json:"ai"`
}

type joinResponse struct {
	SeatID string `json:"seatId"`
	Token  string `json:"token,omitempty"`
}

func (s *Server) handleJoin(w http.ResponseWriter, r *http.Request) {
	rm, ok := s.roomFor(w, r)
	if !ok {
		return
	}
	var req joinRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid join request")
		return
	}
	seat := &models.Seat{Name: req.Name, Color: req.Color, Avatar: req.Avatar, IsAI: req.AI}
	if err := rm.session.AddSeat(seat); err != nil {
		writeError(w, http.StatusConflict, err.Error())
		return
	}

	resp := joinResponse{SeatID: seat.ID}
	if !seat.IsAI {
		token, err := s.tokens.Issue(rm.session.ID.String(), seat.ID)
		if err != nil {
			s.log.WithError(err).Error("Failed issuing seat token.")
			writeError(w, http.StatusInternalServerError, "could not issue token")
			return
		}
		resp.Token = token
	}
	writeJSON(w, http.StatusCreated, resp)
}

func (s *Server) handleStart(w http.ResponseWriter, r *http.Request) {
	rm, ok := s.roomFor(w, r)
	if !ok {
		return
	}
	if _, ok := s.authorize(w, r, rm); !ok {
		return
	}
	if err := rm.session.Start(); err != nil {
		writeError(w, http.StatusConflict, err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleClose stops a game and forgets it. Open connections stay up until
// their seats disconnect but no longer reach a registered game.
func (s *Server) handleClose(w http.ResponseWriter, r *http.Request) {
	rm, ok := s.roomFor(w, r)
	if !ok {
		return
	}
	if _, ok := s.authorize(w, r, rm); !ok {
		return
	}
	rm.session.Close()
	s.games.remove(rm.session.ID)
	s.log.Infof("Game %s closed.", rm.session.ID)
	w.WriteHeader(http.StatusNoContent)
}

// roomFor resolves the {id} path value, writing 404 when unknown.
func (s *Server) roomFor(w http.ResponseWriter, r *http.Request) (*room, bool) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusNotFound, "game not found")
		return nil, false
	}
	rm, ok := s.games.get(id)
	if !ok {
		writeError(w, http.StatusNotFound, "game not found")
		return nil, false
	}
	return rm, true
}

// authorize checks that the request carries a token for a seat of rm.
func (s *Server) authorize(w http.ResponseWriter, r *http.Request, rm *room) (*SeatClaims, bool) {
	claims, err := s.tokens.Verify(tokenFromRequest(r))
	if err != nil {
		writeError(w, http.StatusUnauthorized, err.Error())
		return nil, false
	}
	if claims.GameID != rm.session.ID.String() {
		writeError(w, http.StatusForbidden, "token is for another game")
		return nil, false
	}
	return claims, true
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
