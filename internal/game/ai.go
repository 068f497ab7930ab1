package game

import (
	"time"

	"github.com/tomaszsb/Game-alpha-sub005/engine"
)

// scheduleAI arms the timer when the seat to act is an AI. The delay is
// cosmetic; an AI turn runs the same commands a person would send.
// Assumes Mu is held.
func (s *Session) scheduleAI() {
	if !s.Started || s.GameOver {
		return
	}
	state := s.Engine.GetGameState()
	if state.Phase != engine.PhasePlay {
		return
	}
	seat := s.getSeat(state.CurrentPlayerID)
	if seat == nil || !seat.IsAI {
		return
	}
	s.stopAI()
	seatID, turn := seat.ID, state.Turn
	s.aiTimer = time.AfterFunc(s.Rules.AutoPlayDelay, func() {
		s.Mu.Lock()
		defer s.Mu.Unlock()
		s.runAI(seatID, turn)
	})
}

// runAI plays one AI turn. Assumes Mu is held.
func (s *Session) runAI(seatID string, turn int) {
	if s.GameOver {
		return
	}
	state := s.Engine.GetGameState()
	if state.CurrentPlayerID != seatID || state.Turn != turn {
		return
	}
	s.log.Debugf("AI seat %s playing turn %d.", seatID, turn)
	results, err := s.Engine.AutoPlayTurn(seatID)
	for i := range results {
		s.fireEvent(GameEvent{Type: EventTurnEffects, PlayerID: seatID, Effects: &results[i]})
	}
	if err != nil {
		s.log.WithError(err).Errorf("AI seat %s could not finish turn %d.", seatID, turn)
		return
	}
	s.scheduleAI()
}

func (s *Session) stopAI() {
	if s.aiTimer != nil {
		s.aiTimer.Stop()
		s.aiTimer = nil
	}
}
