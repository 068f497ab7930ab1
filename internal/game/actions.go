package game

import (
	"errors"

	"github.com/tomaszsb/Game-alpha-sub005/engine"
	"github.com/tomaszsb/Game-alpha-sub005/internal/models"
)

// Session-level rejection codes; engine rejections carry their own.
const (
	CodeBadRequest    engine.RejectionCode = "BAD_REQUEST"
	CodeUnknownAction engine.RejectionCode = "UNKNOWN_ACTION"
	CodeInternal      engine.RejectionCode = "INTERNAL"
	CodeForbidden     engine.RejectionCode = "FORBIDDEN"
)

// HandlePlayerAction routes one command from a seat to the engine. Refused
// commands produce a private rejection event for that seat and change
// nothing. Assumes Mu is held by the caller.
func (s *Session) HandlePlayerAction(seatID string, action models.GameAction) {
	seat := s.getSeat(seatID)
	if seat == nil {
		s.log.Warnf("Action %s from unknown seat %s ignored.", action.ActionType, seatID)
		return
	}
	if action.ActionType == models.ActionRequestSync {
		s.sendSyncState(seatID)
		return
	}
	if s.GameOver {
		s.rejectAction(seatID, action.ActionType, engine.ErrCodeWrongPhase, "game is over")
		return
	}
	if action.ActionType == models.ActionStartGame {
		if err := s.start(); err != nil {
			s.refuse(seatID, action.ActionType, err)
		}
		return
	}
	if !s.Started {
		s.rejectAction(seatID, action.ActionType, engine.ErrCodeWrongPhase, "game has not started")
		return
	}

	res, err := s.dispatch(seatID, action)
	if err != nil {
		s.refuse(seatID, action.ActionType, err)
		return
	}
	if res != nil {
		s.fireEvent(GameEvent{Type: EventTurnEffects, PlayerID: seatID, Effects: res})
	}
	s.scheduleAI()
}

// errBadRequest marks payload decoding failures.
type errBadRequest struct{ err error }

func (e errBadRequest) Error() string { return e.err.Error() }

func badRequest(err error) error {
	if err == nil {
		return nil
	}
	return errBadRequest{err}
}

func (s *Session) dispatch(seatID string, action models.GameAction) (*engine.TurnEffectResult, error) {
	e := s.Engine
	withResult := func(r engine.TurnEffectResult, err error) (*engine.TurnEffectResult, error) {
		if err != nil {
			return nil, err
		}
		return &r, nil
	}

	switch action.ActionType {
	case models.ActionStartTurn:
		return withResult(e.StartTurn(seatID))

	case models.ActionRollDice:
		return withResult(e.RollDice(seatID))

	case models.ActionTriggerManualEffect:
		kind, err := action.GetString("effectType")
		if err != nil {
			return nil, badRequest(err)
		}
		return withResult(e.TriggerManualEffect(seatID, kind))

	case models.ActionResolveChoice:
		choiceID, err := action.GetString("choiceId")
		if err != nil {
			return nil, badRequest(err)
		}
		optionID, err := action.GetString("optionId")
		if err != nil {
			return nil, badRequest(err)
		}
		return withResult(e.ResolveChoiceFor(seatID, choiceID, optionID))

	case models.ActionSetMoveIntent:
		dest, err := action.GetString("destination")
		if err != nil {
			return nil, badRequest(err)
		}
		return nil, e.SetPlayerMoveIntent(seatID, dest)

	case models.ActionEndTurn:
		return nil, e.EndTurn(seatID)

	case models.ActionInitiateNegotiation:
		return nil, e.InitiateNegotiation(seatID)

	case models.ActionMakeOffer:
		money, err := action.GetInt("money")
		if err != nil {
			return nil, badRequest(err)
		}
		cards, err := action.GetStrings("cardIds")
		if err != nil {
			return nil, badRequest(err)
		}
		return nil, e.MakeOffer(seatID, engine.Offer{Money: money, CardIDs: cards})

	case models.ActionAcceptOffer:
		return nil, e.AcceptOffer(seatID)

	case models.ActionDeclineOffer:
		return nil, e.DeclineOffer(seatID)

	case models.ActionResetChoice:
		return nil, s.resetChoice(seatID)
	}
	return nil, &engine.RejectionError{Code: CodeUnknownAction, Message: "unknown action " + action.ActionType}
}

// resetChoice clears the outstanding choice without resolving it. Only the
// choosing seat or the host may do so. Assumes Mu is held.
func (s *Session) resetChoice(seatID string) error {
	state := s.Engine.GetGameState()
	ch := state.AwaitingChoice
	if ch == nil {
		return &engine.RejectionError{Code: engine.ErrCodeNoChoice, Message: "no choice is outstanding"}
	}
	if seatID != ch.PlayerID && seatID != s.HostID {
		return &engine.RejectionError{Code: CodeForbidden, Message: "only the host or the choosing seat can reset a choice"}
	}
	if err := s.Engine.ResetChoice(); err != nil {
		return err
	}
	s.log.Infof("Seat %s cleared choice %s of %s.", seatID, ch.ID, ch.PlayerID)
	s.logAction(seatID, "reset_choice", map[string]interface{}{"choiceId": ch.ID, "owner": ch.PlayerID})
	return nil
}

// refuse turns a failed command into a rejection event. Assumes Mu is held.
func (s *Session) refuse(seatID, actionType string, err error) {
	var bad errBadRequest
	var rej *engine.RejectionError
	switch {
	case errors.As(err, &bad):
		s.rejectAction(seatID, actionType, CodeBadRequest, bad.Error())
	case errors.As(err, &rej):
		s.log.Debugf("Action %s from %s rejected: %s.", actionType, seatID, rej.Message)
		s.rejectAction(seatID, actionType, rej.Code, rej.Message)
	default:
		s.log.WithError(err).Errorf("Action %s from %s aborted.", actionType, seatID)
		s.rejectAction(seatID, actionType, CodeInternal, err.Error())
	}
}

func (s *Session) rejectAction(seatID, actionType string, code engine.RejectionCode, message string) {
	s.fireEventToPlayer(seatID, GameEvent{
		Type:     EventPrivateRejected,
		PlayerID: seatID,
		Payload: map[string]interface{}{
			"action":  actionType,
			"code":    string(code),
			"message": message,
		},
	})
}
