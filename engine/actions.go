package engine

import "fmt"

// rollPolicy reports whether rolling is allowed and required on a space.
// Without a config row rolling is allowed, and required only when the
// space moves or pays out by dice.
func rollPolicy(cat Catalog, space string, visit VisitType) (allowed, required bool) {
	if cfg, ok := cat.SpaceConfig(space); ok {
		return cfg.RequiresDiceRoll, cfg.RequiresDiceRoll
	}
	if movementFor(cat, space, visit).Type == MovementDice {
		return true, true
	}
	return true, len(cat.DiceEffects(space, visit)) > 0
}

// manualKinds lists the distinct effect kinds triggerable by hand on a space.
func manualKinds(cat Catalog, space string, visit VisitType) []string {
	var kinds []string
	seen := make(map[string]bool)
	for _, se := range cat.SpaceEffects(space, visit) {
		if se.Trigger != TriggerManual {
			continue
		}
		k := string(se.Effect.Kind())
		if !seen[k] {
			seen[k] = true
			kinds = append(kinds, k)
		}
	}
	return kinds
}

// pendingManualKinds lists the manual kinds not yet triggered this turn.
func (g *GameState) pendingManualKinds(cat Catalog) []string {
	p, ok := g.CurrentPlayer()
	if !ok {
		return nil
	}
	var out []string
	for _, k := range manualKinds(cat, p.CurrentSpace, p.VisitType) {
		if _, done := g.CompletedActions.ManualActions[k]; !done {
			out = append(out, k)
		}
	}
	return out
}

// ManualEffectTypes lists the manual effect types playerID can still
// trigger this turn.
func (e *Engine) ManualEffectTypes(playerID string) []string {
	g := e.store.GetGameState()
	if g.CurrentPlayerID != playerID || !g.TurnStarted {
		return nil
	}
	return g.pendingManualKinds(e.catalog)
}

// StartTurn begins playerID's turn: per-turn flags are reset, the space's
// automatic effects are applied and the action quota is computed. The
// resource snapshot for a negotiation is taken by InitiateNegotiation.
func (e *Engine) StartTurn(playerID string) (TurnEffectResult, error) {
	var res TurnEffectResult
	err := e.update(func(g *GameState, ev *env) error {
		if err := checkTurn(g, playerID); err != nil {
			return err
		}
		if g.TurnStarted {
			return reject(ErrCodeTurnAlreadyStarted, "turn %d has already started", g.Turn)
		}
		g.resetTurnFlags()
		p := g.mustPlayer(playerID)

		_, required := rollPolicy(ev.catalog, p.CurrentSpace, p.VisitType)
		g.RollRequired = required
		g.RequiredActions = len(manualKinds(ev.catalog, p.CurrentSpace, p.VisitType))
		if required {
			g.RequiredActions++
		}
		g.TurnStarted = true
		g.appendLog(ev.now, playerID, "turn_start", fmt.Sprintf("%s starts turn %d on %s", p.Name, g.Turn, p.CurrentSpace))

		var steps []SpaceEffect
		for _, se := range ev.catalog.SpaceEffects(p.CurrentSpace, p.VisitType) {
			if se.Trigger == TriggerAuto && !se.Condition.DependsOnDice() {
				steps = append(steps, se)
			}
		}
		if err := g.applyBatch(ev, playerID, 0, steps, &res); err != nil {
			return err
		}
		return g.ensureMovementChoice(ev)
	})
	if err != nil {
		return TurnEffectResult{}, err
	}
	res.summarize()
	return res, nil
}

// RollDice rolls two dice for playerID, applies the dice-gated effects of
// the current space and records the dice destination as the move intent.
func (e *Engine) RollDice(playerID string) (TurnEffectResult, error) {
	var res TurnEffectResult
	err := e.update(func(g *GameState, ev *env) error {
		if err := checkActiveTurn(g, playerID); err != nil {
			return err
		}
		if g.HasPlayerRolledDice {
			return reject(ErrCodeDoubleRoll, "dice already rolled this turn")
		}
		if g.AwaitingChoice != nil {
			return reject(ErrCodeChoicePending, "choice %s must be resolved first", g.AwaitingChoice.ID)
		}
		p := g.mustPlayer(playerID)
		if allowed, _ := rollPolicy(ev.catalog, p.CurrentSpace, p.VisitType); !allowed {
			return reject(ErrCodeRollDisabled, "%s does not allow rolling", p.CurrentSpace)
		}

		roll := g.rollDie() + g.rollDie()
		g.HasPlayerRolledDice = true
		g.LastDiceRoll = roll
		g.CompletedActions.DiceRoll = true
		g.recountCompleted()
		res.DiceValue = roll
		g.appendLog(ev.now, playerID, "dice_roll", fmt.Sprintf("%s rolled %d", p.Name, roll))

		if movementFor(ev.catalog, p.CurrentSpace, p.VisitType).Type == MovementDice {
			if dest := DiceDestination(ev.catalog, p.CurrentSpace, p.VisitType, roll); dest != "" {
				p.MoveIntent = dest
				g.HasPlayerMovedThisTurn = true
				res.Effects = append(res.Effects, EffectResult{
					Type:        EffectMovement,
					Description: fmt.Sprintf("Roll of %d leads to %s", roll, dest),
					Destination: dest,
				})
			}
		}

		var steps []SpaceEffect
		for _, se := range ev.catalog.SpaceEffects(p.CurrentSpace, p.VisitType) {
			if se.Trigger == TriggerDice || (se.Trigger == TriggerAuto && se.Condition.DependsOnDice()) {
				steps = append(steps, se)
			}
		}
		steps = append(steps, diceEffectSteps(ev.catalog.DiceEffects(p.CurrentSpace, p.VisitType), roll)...)
		if err := g.applyBatch(ev, playerID, roll, steps, &res); err != nil {
			return err
		}
		return g.ensureMovementChoice(ev)
	})
	if err != nil {
		return TurnEffectResult{}, err
	}
	res.summarize()
	return res, nil
}

// TriggerManualEffect applies the manual effects of effectType on the
// current space. Each type may be triggered once per turn.
func (e *Engine) TriggerManualEffect(playerID, effectType string) (TurnEffectResult, error) {
	var res TurnEffectResult
	err := e.update(func(g *GameState, ev *env) error {
		if err := checkActiveTurn(g, playerID); err != nil {
			return err
		}
		if g.AwaitingChoice != nil {
			return reject(ErrCodeChoicePending, "choice %s must be resolved first", g.AwaitingChoice.ID)
		}
		if _, done := g.CompletedActions.ManualActions[effectType]; done {
			return reject(ErrCodeManualEffectDone, "%s effect already triggered this turn", effectType)
		}
		p := g.mustPlayer(playerID)
		var steps []SpaceEffect
		for _, se := range ev.catalog.SpaceEffects(p.CurrentSpace, p.VisitType) {
			if se.Trigger == TriggerManual && string(se.Effect.Kind()) == effectType {
				steps = append(steps, se)
			}
		}
		if len(steps) == 0 {
			return reject(ErrCodeNoManualEffect, "%s has no manual %s effect", p.CurrentSpace, effectType)
		}

		desc := fmt.Sprintf("%s triggered %s effect on %s", p.Name, effectType, p.CurrentSpace)
		g.CompletedActions.ManualActions[effectType] = desc
		g.recountCompleted()
		g.appendLog(ev.now, playerID, "manual_effect", desc)

		if err := g.applyBatch(ev, playerID, g.LastDiceRoll, steps, &res); err != nil {
			return err
		}
		return g.ensureMovementChoice(ev)
	})
	if err != nil {
		return TurnEffectResult{}, err
	}
	res.summarize()
	return res, nil
}

// EndTurn moves playerID to their intended destination and passes play to
// the next seat. It is refused while a choice or negotiation is open or
// the action quota is unmet.
func (e *Engine) EndTurn(playerID string) error {
	return e.update(func(g *GameState, ev *env) error {
		if err := checkActiveTurn(g, playerID); err != nil {
			return err
		}
		if ch := g.AwaitingChoice; ch != nil {
			return reject(ErrCodeChoicePending, "%s choice %s must be resolved before ending the turn", ch.Type, ch.ID)
		}
		if g.ActiveNegotiation != nil {
			return reject(ErrCodeNegotiationActive, "negotiation %s is still open", g.ActiveNegotiation.ID)
		}
		if g.CompletedActions.Count < g.RequiredActions {
			return reject(ErrCodeQuotaNotMet, "action quota not met: %d/%d", g.CompletedActions.Count, g.RequiredActions)
		}

		p := g.mustPlayer(playerID)
		dest := p.MoveIntent
		if dest == "" {
			m := movementFor(ev.catalog, p.CurrentSpace, p.VisitType)
			switch {
			case m.Type == MovementFixed && len(m.Destinations) > 0:
				dest = m.Destinations[0]
			case m.Type == MovementChoice && len(m.Destinations) == 1:
				dest = m.Destinations[0]
			case m.Type == MovementChoice && len(m.Destinations) > 1:
				return reject(ErrCodeInvalidDestination, "choose a destination before ending the turn")
			}
		}

		ending := false
		if dest != "" {
			from := p.CurrentSpace
			p.moveTo(dest)
			g.appendLog(ev.now, playerID, "move", fmt.Sprintf("%s moved from %s to %s", p.Name, from, dest))
			if cfg, ok := ev.catalog.SpaceConfig(dest); ok && cfg.IsEnding {
				ending = true
			}
		}
		p.MoveIntent = ""
		g.PreSpaceEffectState = nil
		g.resetTurnFlags()
		g.appendLog(ev.now, playerID, "turn_end", fmt.Sprintf("%s ended turn %d", p.Name, g.Turn))

		if ending {
			g.Phase = PhaseEnd
			g.appendLog(ev.now, playerID, "game_end", fmt.Sprintf("%s reached %s", p.Name, p.CurrentSpace))
			return nil
		}
		g.Turn++
		g.CurrentPlayerID = g.nextActiveSeat(ev, playerID)
		return nil
	})
}

// nextActiveSeat returns the seat after id, passing over players who
// must skip a turn. If every seat is skipping, play passes to the next
// seat regardless.
func (g *GameState) nextActiveSeat(ev *env, id string) string {
	next := g.NextSeat(id)
	candidate := next
	for range g.Players {
		p := g.mustPlayer(candidate)
		if p.TurnModifiers.SkipTurns == 0 {
			return candidate
		}
		p.TurnModifiers.SkipTurns--
		p.consumeSkipEffect()
		g.appendLog(ev.now, p.ID, "turn_skipped", p.Name+" skips a turn")
		candidate = g.NextSeat(candidate)
	}
	return next
}

func (p *Player) consumeSkipEffect() {
	for i := range p.ActiveEffects {
		if p.ActiveEffects[i].Type != "skip_turn" {
			continue
		}
		p.ActiveEffects[i].RemainingTurns--
		if p.ActiveEffects[i].RemainingTurns <= 0 {
			p.ActiveEffects = append(p.ActiveEffects[:i], p.ActiveEffects[i+1:]...)
		}
		return
	}
}

// Stage derives the turn protocol state from the flags in g.
func (g *GameState) Stage(cat Catalog) TurnStage {
	if g.Phase != PhasePlay || !g.TurnStarted {
		return StageEnded
	}
	if ch := g.AwaitingChoice; ch != nil {
		if ch.Type == ChoiceMovement {
			return StageAwaitingMovementChoice
		}
		if g.HasPlayerRolledDice {
			return StageRollApplied
		}
		return StageAwaitingManualActions
	}
	if g.RollRequired && !g.HasPlayerRolledDice {
		return StageAwaitingRoll
	}
	if g.CompletedActions.Count < g.RequiredActions {
		return StageAwaitingManualActions
	}
	if p, ok := g.CurrentPlayer(); ok && p.MoveIntent == "" {
		m := movementFor(cat, p.CurrentSpace, p.VisitType)
		if m.Type == MovementChoice && len(m.Destinations) > 1 {
			return StageAwaitingMovementChoice
		}
	}
	return StageReadyToEnd
}

// TurnStage reports where the current turn stands.
func (e *Engine) TurnStage() TurnStage {
	g := e.store.GetGameState()
	return g.Stage(e.catalog)
}

// maxAutoSteps bounds AutoPlayTurn against catalog data that never settles.
const maxAutoSteps = 64

// AutoPlayTurn plays playerID's whole turn with the same commands a human
// would send: start, roll, trigger every manual effect, answer each choice
// with its first option, then end the turn.
func (e *Engine) AutoPlayTurn(playerID string) ([]TurnEffectResult, error) {
	var results []TurnEffectResult
	keep := func(r TurnEffectResult, err error) error {
		if err == nil {
			results = append(results, r)
		}
		return err
	}

	for step := 0; step < maxAutoSteps; step++ {
		g := e.store.GetGameState()
		if g.Phase != PhasePlay || g.CurrentPlayerID != playerID {
			return results, nil
		}
		if !g.TurnStarted {
			if err := keep(e.StartTurn(playerID)); err != nil {
				return results, err
			}
			continue
		}

		var err error
		switch ch := g.AwaitingChoice; {
		case ch != nil:
			err = keep(e.ResolveChoiceFor(playerID, ch.ID, ch.Options[0].ID))
		case g.ActiveNegotiation != nil:
			err = e.AcceptOffer(playerID)
		default:
			switch g.Stage(e.catalog) {
			case StageAwaitingRoll:
				err = keep(e.RollDice(playerID))
			case StageAwaitingManualActions:
				kinds := g.pendingManualKinds(e.catalog)
				if len(kinds) == 0 {
					return results, &InvariantError{Invariant: "action-quota", Message: "quota unmet with nothing left to trigger"}
				}
				err = keep(e.TriggerManualEffect(playerID, kinds[0]))
			case StageAwaitingMovementChoice:
				moves := ValidMoves(e.catalog, g.mustPlayer(playerID).CurrentSpace, g.mustPlayer(playerID).VisitType)
				err = e.SetPlayerMoveIntent(playerID, moves[0])
			default:
				return results, e.EndTurn(playerID)
			}
		}
		if err != nil {
			return results, err
		}
	}
	return results, &InvariantError{Invariant: "auto-play-progress", Message: fmt.Sprintf("turn did not finish in %d steps", maxAutoSteps)}
}
