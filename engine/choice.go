package engine

import (
	"context"
	"fmt"
)

// ChoiceResolution is delivered to AwaitChoice callers.
type ChoiceResolution struct {
	ChoiceID string
	OptionID string
}

// openChoice registers a new outstanding Choice. A second outstanding
// choice is an orchestration bug, not a user error.
func (g *GameState) openChoice(ev *env, playerID string, typ ChoiceType, prompt string, options []ChoiceOption, resume *continuation) (*Choice, error) {
	if g.AwaitingChoice != nil {
		return nil, &InvariantError{
			Invariant: "single-outstanding-choice",
			Message:   fmt.Sprintf("choice %s is still unresolved", g.AwaitingChoice.ID),
		}
	}
	if err := validateOptions(options); err != nil {
		return nil, err
	}
	ch := &Choice{
		ID:       ev.newID(),
		Type:     typ,
		PlayerID: playerID,
		Prompt:   prompt,
		Options:  append([]ChoiceOption(nil), options...),
		resume:   resume,
	}
	g.AwaitingChoice = ch
	g.appendLog(ev.now, playerID, "choice_created", prompt)
	return ch, nil
}

func validateOptions(options []ChoiceOption) error {
	if len(options) == 0 {
		return reject(ErrCodeInvalidOption, "a choice needs at least one option")
	}
	seen := make(map[string]bool, len(options))
	for _, o := range options {
		if o.ID == "" || seen[o.ID] {
			return reject(ErrCodeInvalidOption, "option id %q is empty or duplicated", o.ID)
		}
		seen[o.ID] = true
	}
	return nil
}

// resolveChoice closes the outstanding choice with optionID and resumes the
// batch it suspended: the option's outcome first, then the rest.
func (g *GameState) resolveChoice(ev *env, choiceID, optionID string, res *TurnEffectResult) error {
	ch := g.AwaitingChoice
	if ch == nil || ch.ID != choiceID {
		if _, done := g.ResolvedChoices[choiceID]; done {
			return reject(ErrCodeChoiceResolved, "choice %s was already resolved", choiceID)
		}
		if ch == nil {
			return reject(ErrCodeNoChoice, "no choice is outstanding")
		}
		return reject(ErrCodeChoiceMismatch, "choice %s is not the outstanding choice", choiceID)
	}
	if !ch.HasOption(optionID) {
		return reject(ErrCodeInvalidOption, "option %q is not offered by choice %s", optionID, choiceID)
	}

	g.AwaitingChoice = nil
	g.ResolvedChoices[choiceID] = optionID
	g.appendLog(ev.now, ch.PlayerID, "choice_resolved", fmt.Sprintf("%s: %s", ch.Prompt, optionID))

	if ch.Type == ChoiceMovement {
		p := g.mustPlayer(ch.PlayerID)
		p.MoveIntent = optionID
		g.HasPlayerMovedThisTurn = true
		res.Effects = append(res.Effects, EffectResult{
			Type:        EffectMovement,
			Description: "Move to " + optionID,
			Destination: optionID,
		})
	}

	if r := ch.resume; r != nil {
		res.DiceValue = r.diceValue
		if err := g.applyBatch(ev, r.playerID, r.dice, r.outcomes[optionID], res); err != nil {
			return err
		}
		if g.AwaitingChoice != nil {
			// The outcome opened another choice; keep the tail behind it.
			g.AwaitingChoice.resume = chainContinuation(g.AwaitingChoice.resume, r.remaining)
		} else if err := g.applyBatch(ev, r.playerID, r.dice, r.remaining, res); err != nil {
			return err
		}
	}

	if g.AwaitingChoice == nil && g.TurnStarted {
		return g.ensureMovementChoice(ev)
	}
	return nil
}

// chainContinuation appends tail to c's remaining effects.
func chainContinuation(c *continuation, tail []SpaceEffect) *continuation {
	if len(tail) == 0 {
		return c
	}
	next := *c
	next.remaining = append(append([]SpaceEffect(nil), c.remaining...), tail...)
	return &next
}

// CreateChoice registers a generic decision for playerID. It fails while
// another choice is outstanding.
func (e *Engine) CreateChoice(playerID string, typ ChoiceType, prompt string, options []ChoiceOption) (Choice, error) {
	var created Choice
	err := e.update(func(g *GameState, ev *env) error {
		if _, ok := g.Player(playerID); !ok {
			return reject(ErrCodeUnknownPlayer, "unknown player %s", playerID)
		}
		if g.AwaitingChoice != nil {
			return reject(ErrCodeChoicePending, "choice %s is still unresolved", g.AwaitingChoice.ID)
		}
		ch, err := g.openChoice(ev, playerID, typ, prompt, options, nil)
		if err != nil {
			return err
		}
		created = *ch
		return nil
	})
	return created, err
}

// ResolveChoice answers the outstanding choice. A stale or foreign id is
// rejected without touching state.
func (e *Engine) ResolveChoice(choiceID, optionID string) (TurnEffectResult, error) {
	return e.resolve("", choiceID, optionID)
}

// ResolveChoiceFor is ResolveChoice restricted to the choice's owner.
func (e *Engine) ResolveChoiceFor(playerID, choiceID, optionID string) (TurnEffectResult, error) {
	return e.resolve(playerID, choiceID, optionID)
}

func (e *Engine) resolve(playerID, choiceID, optionID string) (TurnEffectResult, error) {
	var res TurnEffectResult
	err := e.update(func(g *GameState, ev *env) error {
		if playerID != "" && g.AwaitingChoice != nil && g.AwaitingChoice.ID == choiceID &&
			g.AwaitingChoice.PlayerID != playerID {
			return reject(ErrCodeChoiceMismatch, "choice %s belongs to another player", choiceID)
		}
		return g.resolveChoice(ev, choiceID, optionID, &res)
	})
	if err != nil {
		return TurnEffectResult{}, err
	}
	res.summarize()
	e.notifyWaiters(choiceID, ChoiceResolution{ChoiceID: choiceID, OptionID: optionID}, nil)
	return res, nil
}

// AwaitChoice blocks until choiceID is resolved, the choice is cleared by
// ResetChoice, or ctx is done.
func (e *Engine) AwaitChoice(ctx context.Context, choiceID string) (ChoiceResolution, error) {
	e.waitMu.Lock()
	g := e.store.GetGameState()
	if opt, done := g.ResolvedChoices[choiceID]; done {
		e.waitMu.Unlock()
		return ChoiceResolution{ChoiceID: choiceID, OptionID: opt}, nil
	}
	if g.AwaitingChoice == nil || g.AwaitingChoice.ID != choiceID {
		e.waitMu.Unlock()
		return ChoiceResolution{}, reject(ErrCodeNoChoice, "choice %s is not outstanding", choiceID)
	}
	ch := make(chan ChoiceResolution, 1)
	e.waiters[choiceID] = append(e.waiters[choiceID], ch)
	e.waitMu.Unlock()

	select {
	case r, ok := <-ch:
		if !ok {
			return ChoiceResolution{}, ErrChoiceCleared
		}
		return r, nil
	case <-ctx.Done():
		e.dropWaiter(choiceID, ch)
		return ChoiceResolution{}, ctx.Err()
	}
}

// notifyWaiters wakes every AwaitChoice caller for choiceID. A nil
// resolution with cleared set closes the channels instead.
func (e *Engine) notifyWaiters(choiceID string, r ChoiceResolution, cleared error) {
	e.waitMu.Lock()
	defer e.waitMu.Unlock()
	for _, ch := range e.waiters[choiceID] {
		if cleared != nil {
			close(ch)
			continue
		}
		ch <- r
	}
	delete(e.waiters, choiceID)
}

func (e *Engine) dropWaiter(choiceID string, ch chan ChoiceResolution) {
	e.waitMu.Lock()
	defer e.waitMu.Unlock()
	list := e.waiters[choiceID]
	for i, c := range list {
		if c == ch {
			e.waiters[choiceID] = append(list[:i:i], list[i+1:]...)
			break
		}
	}
	if len(e.waiters[choiceID]) == 0 {
		delete(e.waiters, choiceID)
	}
}

// ResetChoice clears the outstanding choice without resolving it. Any
// AwaitChoice caller receives ErrChoiceCleared.
func (e *Engine) ResetChoice() error {
	var cleared string
	err := e.update(func(g *GameState, ev *env) error {
		if g.AwaitingChoice == nil {
			return reject(ErrCodeNoChoice, "no choice is outstanding")
		}
		cleared = g.AwaitingChoice.ID
		g.appendLog(ev.now, g.AwaitingChoice.PlayerID, "choice_cleared", g.AwaitingChoice.Prompt)
		g.AwaitingChoice = nil
		return nil
	})
	if err != nil {
		return err
	}
	e.notifyWaiters(cleared, ChoiceResolution{}, ErrChoiceCleared)
	return nil
}
