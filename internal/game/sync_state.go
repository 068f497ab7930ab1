package game

import (
	"github.com/google/uuid"

	"github.com/tomaszsb/Game-alpha-sub005/engine"
	"github.com/tomaszsb/Game-alpha-sub005/internal/models"
)

// SyncState is the full picture for one seat: the shared GameState plus
// what that seat can do next.
type SyncState struct {
	GameID   uuid.UUID        `json:"gameId"`
	HostID   string           `json:"hostId,omitempty"`
	Started  bool             `json:"started"`
	GameOver bool             `json:"gameOver"`
	Stage    string           `json:"stage"`
	Seats    []models.Seat    `json:"seats"`
	State    engine.GameState `json:"state"`

	// The fields below are filled only when it is the requesting seat's turn.
	IsCurrentTurn bool           `json:"isCurrentTurn"`
	ValidMoves    []string       `json:"validMoves,omitempty"`
	ManualEffects []string       `json:"manualEffects,omitempty"`
	Choice        *engine.Choice `json:"choice,omitempty"`
	SpaceTitle    string         `json:"spaceTitle,omitempty"`
	CanNegotiate  bool           `json:"canNegotiate"`
}

// GetSyncState builds the view for forSeat. Assumes Mu is held.
func (s *Session) GetSyncState(forSeat string) SyncState {
	state := s.Engine.GetGameState()
	view := SyncState{
		GameID:   s.ID,
		HostID:   s.HostID,
		Started:  s.Started,
		GameOver: s.GameOver,
		Stage:    state.Stage(s.Engine.Catalog()).String(),
		State:    state,
	}
	for _, seat := range s.Seats {
		view.Seats = append(view.Seats, *seat)
	}

	if state.Phase != engine.PhasePlay || state.CurrentPlayerID != forSeat {
		return view
	}
	view.IsCurrentTurn = true
	p, ok := state.Player(forSeat)
	if !ok {
		return view
	}
	cat := s.Engine.Catalog()
	view.ValidMoves = engine.ValidMoves(cat, p.CurrentSpace, p.VisitType)
	view.ManualEffects = s.Engine.ManualEffectTypes(forSeat)
	if ch := state.AwaitingChoice; ch != nil && ch.PlayerID == forSeat {
		choice := *ch
		view.Choice = &choice
	}
	if content, ok := cat.SpaceContent(p.CurrentSpace, p.VisitType); ok {
		view.SpaceTitle = content.Title
		view.CanNegotiate = content.CanNegotiate
	}
	return view
}

// sendSyncState sends the seat its view. Assumes Mu is held.
func (s *Session) sendSyncState(seatID string) {
	view := s.GetSyncState(seatID)
	s.fireEventToPlayer(seatID, GameEvent{Type: EventPrivateSyncState, PlayerID: seatID, Sync: &view})
}

// broadcastSyncStateToAll sends every connected seat its view. Assumes Mu is held.
func (s *Session) broadcastSyncStateToAll() {
	for _, seat := range s.Seats {
		if seat.Connected && !seat.IsAI {
			s.sendSyncState(seat.ID)
		}
	}
}
