package engine

import "fmt"

// movementFor returns the movement row for a space, defaulting to none.
func movementFor(cat Catalog, space string, visit VisitType) Movement {
	m, ok := cat.Movement(space, visit)
	if !ok {
		return Movement{Space: space, Visit: visit, Type: MovementNone}
	}
	return m
}

// ValidMoves lists the legal destinations from space for the given visit.
// Dice spaces list every destination reachable by some roll, in roll order.
func ValidMoves(cat Catalog, space string, visit VisitType) []string {
	m := movementFor(cat, space, visit)
	switch m.Type {
	case MovementFixed, MovementChoice:
		return append([]string(nil), m.Destinations...)
	case MovementDice:
		out, ok := cat.DiceOutcome(space, visit)
		if !ok {
			return nil
		}
		var dests []string
		seen := make(map[string]bool)
		for roll := MinRoll; roll <= MaxRoll; roll++ {
			d := out.Destinations[roll]
			if d == "" || seen[d] {
				continue
			}
			seen[d] = true
			dests = append(dests, d)
		}
		return dests
	}
	return nil
}

// DiceDestination returns the destination for roll on a dice space, or "".
func DiceDestination(cat Catalog, space string, visit VisitType, roll int) string {
	out, ok := cat.DiceOutcome(space, visit)
	if !ok {
		return ""
	}
	return out.Destinations[roll]
}

// GetValidMoves lists the legal destinations for playerID's current space.
func (e *Engine) GetValidMoves(playerID string) ([]string, error) {
	g := e.store.GetGameState()
	p, ok := g.Player(playerID)
	if !ok {
		return nil, reject(ErrCodeUnknownPlayer, "unknown player %s", playerID)
	}
	return ValidMoves(e.catalog, p.CurrentSpace, p.VisitType), nil
}

// GetDiceDestination is DiceDestination against the engine's catalog.
func (e *Engine) GetDiceDestination(space string, visit VisitType, roll int) string {
	return DiceDestination(e.catalog, space, visit, roll)
}

// ensureMovementChoice opens a MOVEMENT choice for the current player when
// their space offers several destinations and none is chosen yet. A single
// destination is taken directly. Nothing opens before the roll and the
// manual action quota are done.
func (g *GameState) ensureMovementChoice(ev *env) error {
	if g.AwaitingChoice != nil {
		return nil
	}
	if g.RollRequired && !g.HasPlayerRolledDice {
		return nil
	}
	if g.CompletedActions.Count < g.RequiredActions {
		return nil
	}
	p, ok := g.CurrentPlayer()
	if !ok || p.MoveIntent != "" {
		return nil
	}
	m := movementFor(ev.catalog, p.CurrentSpace, p.VisitType)
	if m.Type != MovementChoice || len(m.Destinations) == 0 {
		return nil
	}
	if len(m.Destinations) == 1 {
		p.MoveIntent = m.Destinations[0]
		return nil
	}
	options := make([]ChoiceOption, 0, len(m.Destinations))
	for _, d := range m.Destinations {
		options = append(options, ChoiceOption{ID: d, Label: d})
	}
	_, err := g.openChoice(ev, p.ID, ChoiceMovement, "Choose your destination", options, nil)
	return err
}

// SetPlayerMoveIntent records playerID's chosen destination. When a
// MOVEMENT choice is outstanding for the player it is resolved with dest.
func (e *Engine) SetPlayerMoveIntent(playerID, dest string) error {
	var resolved string
	err := e.update(func(g *GameState, ev *env) error {
		if err := checkActiveTurn(g, playerID); err != nil {
			return err
		}
		p := g.mustPlayer(playerID)
		m := movementFor(ev.catalog, p.CurrentSpace, p.VisitType)

		switch m.Type {
		case MovementNone:
			return reject(ErrCodeInvalidDestination, "%s has no onward movement", p.CurrentSpace)
		case MovementDice:
			if !g.HasPlayerRolledDice {
				return reject(ErrCodeInvalidDestination, "roll before moving from %s", p.CurrentSpace)
			}
			if rolled := DiceDestination(ev.catalog, p.CurrentSpace, p.VisitType, g.LastDiceRoll); dest != rolled {
				return reject(ErrCodeInvalidDestination, "roll of %d leads to %q, not %q", g.LastDiceRoll, rolled, dest)
			}
		default:
			if !contains(m.Destinations, dest) {
				return reject(ErrCodeInvalidDestination, "%q is not reachable from %s", dest, p.CurrentSpace)
			}
		}

		if ch := g.AwaitingChoice; ch != nil {
			if ch.Type != ChoiceMovement || ch.PlayerID != playerID {
				return reject(ErrCodeChoicePending, "choice %s must be resolved first", ch.ID)
			}
			resolved = ch.ID
			var res TurnEffectResult
			return g.resolveChoice(ev, ch.ID, dest, &res)
		}

		p.MoveIntent = dest
		g.HasPlayerMovedThisTurn = true
		g.appendLog(ev.now, playerID, "move_intent", fmt.Sprintf("Heading to %s", dest))
		return nil
	})
	if err == nil && resolved != "" {
		e.notifyWaiters(resolved, ChoiceResolution{ChoiceID: resolved, OptionID: dest}, nil)
	}
	return err
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
