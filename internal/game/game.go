// Package game runs one live match: it serialises seat commands and AI
// turns through a single mutex, fans committed state out to the seats and
// mirrors the action log to Redis and Postgres.
package game

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/tomaszsb/Game-alpha-sub005/engine"
	"github.com/tomaszsb/Game-alpha-sub005/internal/cache"
	"github.com/tomaszsb/Game-alpha-sub005/internal/database"
	"github.com/tomaszsb/Game-alpha-sub005/internal/models"
)

// OnGameEndFunc is called once when a player reaches an ending space.
type OnGameEndFunc func(gameID uuid.UUID, winnerID string, final engine.GameState)

// GameEventType names an event sent over the wire.
type GameEventType string

const (
	EventPlayerJoined     GameEventType = "player_joined"           // Public: a seat joined or reconnected.
	EventPlayerLeft       GameEventType = "player_left"             // Public: a seat disconnected.
	EventGameStart        GameEventType = "game_start"              // Public: play has begun.
	EventGameState        GameEventType = "game_state"              // Public: committed state after every change.
	EventGamePlayerTurn   GameEventType = "game_player_turn"        // Public: a new turn belongs to playerId.
	EventTurnEffects      GameEventType = "turn_effects"            // Public: results of start/roll/manual/choice.
	EventPrivateChoice    GameEventType = "private_choice"          // Private: a choice awaits the seat.
	EventPrivateRejected  GameEventType = "private_action_rejected" // Private: a command was refused.
	EventPrivateSyncState GameEventType = "private_sync_state"      // Private: full state tailored to the seat.
	EventGameEnd          GameEventType = "game_end"                // Public: the game is over.
)

// GameEvent is the envelope for everything a seat receives.
type GameEvent struct {
	Type     GameEventType            `json:"type"`
	PlayerID string                   `json:"playerId,omitempty"`
	Effects  *engine.TurnEffectResult `json:"effects,omitempty"`
	Choice   *engine.Choice           `json:"choice,omitempty"`
	Payload  map[string]interface{}   `json:"payload,omitempty"`
	State    *engine.GameState        `json:"state,omitempty"`
	Sync     *SyncState               `json:"sync,omitempty"`
}

// Session is one match. Exported methods lock Mu unless noted; every engine
// command runs with Mu held, so the engine's commit listener does too.
type Session struct {
	ID     uuid.UUID
	Engine *engine.Engine
	Rules  engine.Rules
	Seats  []*models.Seat
	HostID string // first human seat; may clear a stuck choice

	Started  bool
	GameOver bool

	Mu sync.Mutex

	BroadcastFn         func(ev GameEvent)
	BroadcastToPlayerFn func(playerID string, ev GameEvent)
	OnGameEnd           OnGameEndFunc

	log         *logrus.Entry
	actionIndex int
	aiTimer     *time.Timer
	unsubscribe func()

	mirroredSeq  int    // last engine log entry sent to the historian
	lastTurn     int    // last turn announced
	lastChoiceID string // last choice announced
}

// NewSession creates a match on cat. A zero seed picks one from the clock.
func NewSession(cat engine.Catalog, rules engine.Rules, seed uint64, logger *logrus.Logger) *Session {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}
	s := &Session{
		ID:    uuid.New(),
		Rules: rules,
	}
	s.log = logger.WithField("game", s.ID.String())
	s.Engine = engine.New(cat,
		engine.WithRules(rules),
		engine.WithSeed(seed),
		engine.WithIDGenerator(uuid.NewString),
	)
	s.unsubscribe = s.Engine.Subscribe(s.onCommit)
	return s
}

// Close stops the AI timer and detaches from the engine.
func (s *Session) Close() {
	s.Mu.Lock()
	defer s.Mu.Unlock()
	s.stopAI()
	if s.unsubscribe != nil {
		s.unsubscribe()
		s.unsubscribe = nil
	}
}

// AddSeat seats a new player before the game starts, or reconnects an
// existing one at any time.
func (s *Session) AddSeat(seat *models.Seat) error {
	s.Mu.Lock()
	defer s.Mu.Unlock()

	if existing := s.getSeat(seat.ID); existing != nil {
		existing.Connected = true
		s.log.Infof("Seat %s (%s) reconnected.", existing.ID, existing.Name)
		s.logAction(existing.ID, "player_reconnect", map[string]interface{}{"name": existing.Name})
		s.fireEvent(GameEvent{Type: EventPlayerJoined, PlayerID: existing.ID, Payload: map[string]interface{}{"reconnect": true}})
		s.sendSyncState(existing.ID)
		return nil
	}
	if s.Started {
		return fmt.Errorf("game %s has already started", s.ID)
	}
	if seat.ID == "" {
		seat.ID = uuid.NewString()
	}
	err := s.Engine.AddPlayer(engine.PlayerSpec{
		ID:     seat.ID,
		Name:   seat.Name,
		Color:  seat.Color,
		Avatar: seat.Avatar,
		IsAI:   seat.IsAI,
	})
	if err != nil {
		return err
	}
	seat.Connected = seat.Connected || seat.IsAI
	s.Seats = append(s.Seats, seat)
	if s.HostID == "" && !seat.IsAI {
		s.HostID = seat.ID
	}
	s.log.Infof("Seat %s (%s) added. AI: %v.", seat.ID, seat.Name, seat.IsAI)
	s.logAction(seat.ID, "player_add", map[string]interface{}{"name": seat.Name, "ai": seat.IsAI})
	s.fireEvent(GameEvent{Type: EventPlayerJoined, PlayerID: seat.ID, Payload: map[string]interface{}{"name": seat.Name, "ai": seat.IsAI}})
	return nil
}

// Start moves the match from setup to play.
func (s *Session) Start() error {
	s.Mu.Lock()
	defer s.Mu.Unlock()
	return s.start()
}

// start assumes Mu is held.
func (s *Session) start() error {
	if s.Started {
		return fmt.Errorf("game %s has already started", s.ID)
	}
	if err := s.Engine.StartGame(); err != nil {
		return err
	}
	s.Started = true
	s.log.Infof("Game started with %d seats.", len(s.Seats))
	s.fireEvent(GameEvent{Type: EventGameStart, Payload: map[string]interface{}{"seats": len(s.Seats)}})
	s.broadcastSyncStateToAll()
	s.scheduleAI()
	return nil
}

// HandleDisconnect marks a seat as gone. The seat keeps its place and can
// reconnect through AddSeat. Assumes Mu is held.
func (s *Session) HandleDisconnect(seatID string) {
	seat := s.getSeat(seatID)
	if seat == nil {
		s.log.Warnf("Disconnected seat %s not found.", seatID)
		return
	}
	if !seat.Connected {
		return
	}
	seat.Connected = false
	s.log.Infof("Seat %s (%s) disconnected.", seat.ID, seat.Name)
	s.logAction(seatID, "player_disconnect", nil)
	s.fireEvent(GameEvent{Type: EventPlayerLeft, PlayerID: seatID})
}

// ConnectedSeats counts connected seats. Assumes Mu is held.
func (s *Session) ConnectedSeats() int {
	n := 0
	for _, seat := range s.Seats {
		if seat.Connected {
			n++
		}
	}
	return n
}

// onCommit receives every committed state. It runs with Mu held by the
// goroutine that issued the engine command.
func (s *Session) onCommit(state engine.GameState) {
	for _, entry := range state.GlobalActionLog {
		if entry.Seq <= s.mirroredSeq {
			continue
		}
		s.mirroredSeq = entry.Seq
		s.logAction(entry.PlayerID, entry.Type, map[string]interface{}{
			"seq":         entry.Seq,
			"turn":        entry.Turn,
			"description": entry.Description,
		})
	}

	s.fireEvent(GameEvent{Type: EventGameState, State: &state})

	if ch := state.AwaitingChoice; ch != nil && ch.ID != s.lastChoiceID {
		s.lastChoiceID = ch.ID
		choice := *ch
		s.fireEventToPlayer(ch.PlayerID, GameEvent{Type: EventPrivateChoice, PlayerID: ch.PlayerID, Choice: &choice})
	}

	switch {
	case state.Phase == engine.PhaseEnd && !s.GameOver:
		s.endGame(state)
	case state.Phase == engine.PhasePlay && state.Turn != s.lastTurn:
		if s.lastTurn > 0 {
			s.persistTurn(state)
		}
		s.lastTurn = state.Turn
		s.log.Debugf("Turn %d starting for player %s.", state.Turn, state.CurrentPlayerID)
		s.fireEvent(GameEvent{
			Type:     EventGamePlayerTurn,
			PlayerID: state.CurrentPlayerID,
			Payload:  map[string]interface{}{"turn": state.Turn},
		})
	}
}

// endGame freezes the session. Assumes Mu is held.
func (s *Session) endGame(final engine.GameState) {
	s.GameOver = true
	s.stopAI()
	winner := final.CurrentPlayerID
	s.log.Infof("Game over on turn %d. Winner: %s.", final.Turn, winner)

	standings := make([]map[string]interface{}, 0, len(final.Players))
	for _, p := range final.Players {
		standings = append(standings, map[string]interface{}{
			"playerId":  p.ID,
			"space":     p.CurrentSpace,
			"money":     p.Money,
			"timeSpent": p.TimeSpent,
		})
	}
	s.fireEvent(GameEvent{
		Type:     EventGameEnd,
		PlayerID: winner,
		Payload:  map[string]interface{}{"turn": final.Turn, "standings": standings},
	})
	s.persistFinal(final, winner)
	if s.OnGameEnd != nil {
		s.OnGameEnd(s.ID, winner, final)
	}
}

func (s *Session) persistTurn(state engine.GameState) {
	if database.DB == nil {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := database.UpsertTurnSnapshot(ctx, s.ID, state); err != nil {
			s.log.WithError(err).Warn("Failed storing turn snapshot.")
		}
	}()
}

func (s *Session) persistFinal(state engine.GameState, winner string) {
	if database.DB == nil {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := database.StoreFinalGameState(ctx, s.ID, state, winner); err != nil {
			s.log.WithError(err).Error("Failed storing final game state.")
		}
	}()
}

// fireEvent broadcasts to every seat. Assumes Mu is held.
func (s *Session) fireEvent(ev GameEvent) {
	if s.BroadcastFn == nil {
		s.log.Debugf("BroadcastFn is nil, dropping %s.", ev.Type)
		return
	}
	s.BroadcastFn(ev)
}

// fireEventToPlayer sends to one connected seat. Assumes Mu is held.
func (s *Session) fireEventToPlayer(seatID string, ev GameEvent) {
	if s.BroadcastToPlayerFn == nil {
		s.log.Debugf("BroadcastToPlayerFn is nil, dropping %s for %s.", ev.Type, seatID)
		return
	}
	if seat := s.getSeat(seatID); seat != nil && seat.Connected && !seat.IsAI {
		s.BroadcastToPlayerFn(seatID, ev)
	}
}

func (s *Session) getSeat(id string) *models.Seat {
	for _, seat := range s.Seats {
		if seat.ID == id {
			return seat
		}
	}
	return nil
}

// logAction publishes a record to the historian queue. Assumes Mu is held.
func (s *Session) logAction(actorID, actionType string, payload map[string]interface{}) {
	s.actionIndex++
	if payload == nil {
		payload = make(map[string]interface{})
	}
	record := cache.GameActionRecord{
		GameID:        s.ID,
		ActionIndex:   s.actionIndex,
		ActorUserID:   actorID,
		ActionType:    actionType,
		ActionPayload: payload,
		Timestamp:     time.Now().UnixMilli(),
	}
	if cache.Rdb == nil {
		return
	}
	go func(rec cache.GameActionRecord) {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := cache.PublishGameAction(ctx, rec); err != nil {
			s.log.WithError(err).Warnf("Failed publishing action %d (%s).", rec.ActionIndex, rec.ActionType)
		}
	}(record)
}
