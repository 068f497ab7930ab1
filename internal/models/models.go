// Package models holds the seat and command types shared by the game
// session and the transport.
package models

import (
	"fmt"
	"math"
)

// Seat is one player position in a session.
type Seat struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Color     string `json:"color,omitempty"`
	Avatar    string `json:"avatar,omitempty"`
	IsAI      bool   `json:"isAI"`
	Connected bool   `json:"connected"`
}

// Command names accepted from clients.
const (
	ActionStartGame           = "start_game"
	ActionStartTurn           = "start_turn"
	ActionRollDice            = "roll_dice"
	ActionTriggerManualEffect = "trigger_manual_effect"
	ActionResolveChoice       = "resolve_choice"
	ActionSetMoveIntent       = "set_move_intent"
	ActionEndTurn             = "end_turn"
	ActionInitiateNegotiation = "initiate_negotiation"
	ActionMakeOffer           = "make_offer"
	ActionAcceptOffer         = "accept_offer"
	ActionDeclineOffer        = "decline_offer"
	ActionResetChoice         = "reset_choice"
	ActionRequestSync         = "request_sync"
)

// GameAction is one command sent by a seat.
type GameAction struct {
	ActionType string                 `json:"actionType"`
	Payload    map[string]interface{} `json:"payload,omitempty"`
}

// GetString returns payload[key] or an error if it is missing or not a string.
func (a GameAction) GetString(key string) (string, error) {
	v, ok := a.Payload[key]
	if !ok {
		return "", fmt.Errorf("%s: missing %q", a.ActionType, key)
	}
	s, ok := v.(string)
	if !ok || s == "" {
		return "", fmt.Errorf("%s: %q must be a non-empty string", a.ActionType, key)
	}
	return s, nil
}

// GetInt returns payload[key] as an int, defaulting to 0 when absent. JSON
// numbers arrive as float64.
func (a GameAction) GetInt(key string) (int, error) {
	v, ok := a.Payload[key]
	if !ok || v == nil {
		return 0, nil
	}
	switch n := v.(type) {
	case float64:
		if n != math.Trunc(n) {
			return 0, fmt.Errorf("%s: %q must be a whole number", a.ActionType, key)
		}
		return int(n), nil
	case int:
		return n, nil
	}
	return 0, fmt.Errorf("%s: %q must be a number", a.ActionType, key)
}

// GetStrings returns payload[key] as a string list, defaulting to nil.
func (a GameAction) GetStrings(key string) ([]string, error) {
	v, ok := a.Payload[key]
	if !ok || v == nil {
		return nil, nil
	}
	switch list := v.(type) {
	case []string:
		return list, nil
	case []interface{}:
		out := make([]string, 0, len(list))
		for _, item := range list {
			s, ok := item.(string)
			if !ok {
				return nil, fmt.Errorf("%s: %q must contain strings", a.ActionType, key)
			}
			out = append(out, s)
		}
		return out, nil
	}
	return nil, fmt.Errorf("%s: %q must be a list", a.ActionType, key)
}
