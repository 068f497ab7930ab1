package engine

import (
	"fmt"
	"strings"
	"time"
)

// EffectKind is the resource or concern an Effect touches. Manual triggers
// are addressed by kind.
type EffectKind string

const (
	EffectMoney    EffectKind = "money"
	EffectFee      EffectKind = "fee"
	EffectTime     EffectKind = "time"
	EffectCards    EffectKind = "cards"
	EffectMovement EffectKind = "movement"
	EffectTurn     EffectKind = "turn"
	EffectChoice   EffectKind = "choice"
)

// CardAction is what a card effect does to a bucket.
type CardAction string

const (
	CardDraw    CardAction = "draw"
	CardRemove  CardAction = "remove"
	CardReplace CardAction = "replace"
)

// Effect is a closed union of resource changes. Only the types in this
// file implement it.
type Effect interface {
	Kind() EffectKind
	isEffect()
}

// MoneyEffect adds Delta to the player's money.
type MoneyEffect struct{ Delta int }

// FeeEffect charges Percent of the player's project scope.
type FeeEffect struct{ Percent int }

// TimeEffect adds Delta days to the player's time spent.
type TimeEffect struct{ Delta int }

// CardEffect draws, removes or replaces Count cards of one type.
type CardEffect struct {
	Action CardAction
	Type   CardType
	Count  int
}

// MoveEffect sets the player's move intent.
type MoveEffect struct{ Destination string }

// SkipTurnEffect makes the player sit out their next Turns turns.
type SkipTurnEffect struct{ Turns int }

// ChoiceEffect suspends the batch until the player picks an option. The
// picked option's outcome effects run before the rest of the batch.
type ChoiceEffect struct {
	Type     ChoiceType
	Prompt   string
	Options  []ChoiceOption
	Outcomes map[string][]SpaceEffect
}

func (MoneyEffect) Kind() EffectKind    { return EffectMoney }
func (FeeEffect) Kind() EffectKind      { return EffectFee }
func (TimeEffect) Kind() EffectKind     { return EffectTime }
func (CardEffect) Kind() EffectKind     { return EffectCards }
func (MoveEffect) Kind() EffectKind     { return EffectMovement }
func (SkipTurnEffect) Kind() EffectKind { return EffectTurn }
func (ChoiceEffect) Kind() EffectKind   { return EffectChoice }

func (MoneyEffect) isEffect()    {}
func (FeeEffect) isEffect()      {}
func (TimeEffect) isEffect()     {}
func (CardEffect) isEffect()     {}
func (MoveEffect) isEffect()     {}
func (SkipTurnEffect) isEffect() {}
func (ChoiceEffect) isEffect()   {}

// EffectResult describes one applied effect.
type EffectResult struct {
	Type        EffectKind `json:"type"`
	Value       int        `json:"value"`
	Description string     `json:"description"`
	CardAction  CardAction `json:"cardAction,omitempty"`
	CardType    CardType   `json:"cardType,omitempty"`
	CardIDs     []string   `json:"cardIds,omitempty"`
	Destination string     `json:"destination,omitempty"`
	ChoiceID    string     `json:"choiceId,omitempty"`
}

// TurnEffectResult is returned by every command that applies effects.
type TurnEffectResult struct {
	DiceValue  int            `json:"diceValue"`
	Effects    []EffectResult `json:"effects"`
	Summary    string         `json:"summary"`
	HasChoices bool           `json:"hasChoices"`
}

func (r *TurnEffectResult) summarize() {
	if len(r.Effects) == 0 {
		r.Summary = "No effects"
		return
	}
	parts := make([]string, 0, len(r.Effects))
	for _, e := range r.Effects {
		parts = append(parts, e.Description)
	}
	r.Summary = strings.Join(parts, "; ")
}

// continuation is the suspended remainder of an effect batch, attached to
// the Choice that interrupted it. It is never mutated after creation.
type continuation struct {
	playerID  string
	dice      int // roll seen by conditions
	diceValue int // roll reported in results; 0 for manual and arrival batches
	outcomes  map[string][]SpaceEffect
	remaining []SpaceEffect
}

// env carries the collaborators a command needs while it mutates a clone.
type env struct {
	catalog Catalog
	rules   *Rules
	now     time.Time
	newID   func() string
}

func (ev *env) cardType(id string) CardType {
	if c, ok := ev.catalog.Card(id); ok {
		return c.Type
	}
	if id != "" {
		if t := CardType(id[:1]); t.Valid() {
			return t
		}
	}
	return ""
}

// projectScope is the summed cost of the work cards in hand.
func (ev *env) projectScope(p *Player) int {
	scope := 0
	for _, id := range p.Hand {
		if c, ok := ev.catalog.Card(id); ok && c.Type == CardWork {
			scope += c.Cost
		}
	}
	return scope
}

func (ev *env) conditionInput(p *Player, dice int) conditionInput {
	return conditionInput{money: p.Money, scope: ev.projectScope(p), dice: dice}
}

// applyBatch applies steps in order for playerID. Each step's condition is
// evaluated against the state as left by the previous step. A ChoiceEffect
// opens a Choice and suspends the rest of the batch on it.
func (g *GameState) applyBatch(ev *env, playerID string, dice int, steps []SpaceEffect, res *TurnEffectResult) error {
	for i, step := range steps {
		p := g.mustPlayer(playerID)
		if !step.Condition.met(ev.conditionInput(p, dice)) {
			continue
		}
		if ce, ok := step.Effect.(ChoiceEffect); ok {
			ch, err := g.openChoice(ev, playerID, ce.Type, ce.Prompt, ce.Options, &continuation{
				playerID:  playerID,
				dice:      dice,
				diceValue: res.DiceValue,
				outcomes:  ce.Outcomes,
				remaining: append([]SpaceEffect(nil), steps[i+1:]...),
			})
			if err != nil {
				return err
			}
			res.HasChoices = true
			res.Effects = append(res.Effects, EffectResult{
				Type:        EffectChoice,
				Description: describe(step.Description, ce.Prompt),
				ChoiceID:    ch.ID,
			})
			return nil
		}
		res.Effects = append(res.Effects, g.applyEffect(ev, p, step.Effect, step.Description)...)
	}
	return nil
}

// applyEffect applies a single non-choice effect to p.
func (g *GameState) applyEffect(ev *env, p *Player, eff Effect, desc string) []EffectResult {
	switch e := eff.(type) {
	case MoneyEffect:
		p.Money = ev.rules.clampMoney(p.Money + e.Delta)
		return []EffectResult{{
			Type:        EffectMoney,
			Value:       e.Delta,
			Description: describe(desc, fmt.Sprintf("Money %+d", e.Delta)),
		}}

	case FeeEffect:
		fee := ev.projectScope(p) * e.Percent / 100
		p.Money = ev.rules.clampMoney(p.Money - fee)
		return []EffectResult{{
			Type:        EffectFee,
			Value:       -fee,
			Description: describe(desc, fmt.Sprintf("Fee of %d%% charged: %d", e.Percent, fee)),
		}}

	case TimeEffect:
		p.TimeSpent += e.Delta
		if p.TimeSpent < 0 {
			p.TimeSpent = 0
		}
		return []EffectResult{{
			Type:        EffectTime,
			Value:       e.Delta,
			Description: describe(desc, fmt.Sprintf("Time %+d days", e.Delta)),
		}}

	case CardEffect:
		return g.applyCardEffect(ev, p, e, desc)

	case MoveEffect:
		p.MoveIntent = e.Destination
		g.HasPlayerMovedThisTurn = true
		return []EffectResult{{
			Type:        EffectMovement,
			Description: describe(desc, "Move to "+e.Destination),
			Destination: e.Destination,
		}}

	case SkipTurnEffect:
		p.TurnModifiers.SkipTurns += e.Turns
		p.ActiveEffects = append(p.ActiveEffects, ActiveEffect{
			Type:           "skip_turn",
			Description:    describe(desc, fmt.Sprintf("Skip %d turn(s)", e.Turns)),
			RemainingTurns: e.Turns,
		})
		return []EffectResult{{
			Type:        EffectTurn,
			Value:       e.Turns,
			Description: describe(desc, fmt.Sprintf("Skip %d turn(s)", e.Turns)),
		}}
	}
	panic(fmt.Sprintf("engine: unhandled effect %T", eff))
}

func (g *GameState) applyCardEffect(ev *env, p *Player, e CardEffect, desc string) []EffectResult {
	var out []EffectResult
	switch e.Action {
	case CardDraw:
		ids := g.drawCards(p, e.Type, e.Count)
		out = append(out, EffectResult{
			Type:        EffectCards,
			Value:       len(ids),
			Description: describe(desc, fmt.Sprintf("Drew %d %s card(s)", len(ids), e.Type)),
			CardAction:  CardDraw,
			CardType:    e.Type,
			CardIDs:     ids,
		})
		out = append(out, g.fundFromCards(ev, p, ids)...)

	case CardRemove:
		ids := g.discardFromHand(ev, p, e.Type, e.Count)
		out = append(out, EffectResult{
			Type:        EffectCards,
			Value:       len(ids),
			Description: describe(desc, fmt.Sprintf("Discarded %d %s card(s)", len(ids), e.Type)),
			CardAction:  CardRemove,
			CardType:    e.Type,
			CardIDs:     ids,
		})

	case CardReplace:
		removed := g.discardFromHand(ev, p, e.Type, e.Count)
		ids := g.drawCards(p, e.Type, len(removed))
		out = append(out, EffectResult{
			Type:        EffectCards,
			Value:       len(ids),
			Description: describe(desc, fmt.Sprintf("Replaced %d %s card(s)", len(ids), e.Type)),
			CardAction:  CardReplace,
			CardType:    e.Type,
			CardIDs:     ids,
		})
		out = append(out, g.fundFromCards(ev, p, ids)...)
	}
	return out
}

// drawCards moves up to n cards from the top of the t deck into p's hand,
// reshuffling the discard pile into the deck when it runs out.
func (g *GameState) drawCards(p *Player, t CardType, n int) []string {
	var ids []string
	for i := 0; i < n; i++ {
		if len(g.Decks[t]) == 0 && !g.reshuffle(t) {
			break
		}
		deck := g.Decks[t]
		id := deck[len(deck)-1]
		g.Decks[t] = deck[:len(deck)-1]
		p.Hand = append(p.Hand, id)
		ids = append(ids, id)
	}
	return ids
}

// reshuffle moves the t discard pile into the t deck and shuffles it.
// Returns false when there is nothing to reshuffle.
func (g *GameState) reshuffle(t CardType) bool {
	pile := g.DiscardPiles[t]
	if len(pile) == 0 {
		return false
	}
	g.Decks[t] = append(g.Decks[t], pile...)
	g.DiscardPiles[t] = nil
	g.shuffle(g.Decks[t])
	return true
}

// discardFromHand removes up to n of the most recently drawn cards of type t
// from p's hand onto the discard pile.
func (g *GameState) discardFromHand(ev *env, p *Player, t CardType, n int) []string {
	var ids []string
	for i := len(p.Hand) - 1; i >= 0 && len(ids) < n; i-- {
		id := p.Hand[i]
		if ev.cardType(id) != t {
			continue
		}
		p.Hand = append(p.Hand[:i], p.Hand[i+1:]...)
		g.DiscardPiles[t] = append(g.DiscardPiles[t], id)
		ids = append(ids, id)
	}
	return ids
}

// fundFromCards credits the cost of newly drawn bank and investor cards.
// Bank funding is recorded as a loan.
func (g *GameState) fundFromCards(ev *env, p *Player, ids []string) []EffectResult {
	var out []EffectResult
	for _, id := range ids {
		c, ok := ev.catalog.Card(id)
		if !ok || c.Cost <= 0 || (c.Type != CardBank && c.Type != CardInvestor) {
			continue
		}
		p.Money = ev.rules.clampMoney(p.Money + c.Cost)
		if c.Type == CardBank {
			p.Loans = append(p.Loans, Loan{CardID: id, Amount: c.Cost, TakenTurn: g.Turn})
		}
		out = append(out, EffectResult{
			Type:        EffectMoney,
			Value:       c.Cost,
			Description: fmt.Sprintf("Funding from %s: %+d", id, c.Cost),
		})
	}
	return out
}

// diceEffectSteps converts the per-roll tables for a space into a batch.
func diceEffectSteps(tables []DiceEffect, roll int) []SpaceEffect {
	var steps []SpaceEffect
	for _, de := range tables {
		mag := de.ByRoll[roll]
		if mag == 0 {
			continue
		}
		var eff Effect
		switch de.Kind {
		case EffectCards:
			eff = CardEffect{Action: CardDraw, Type: de.CardType, Count: mag}
		case EffectMoney:
			eff = MoneyEffect{Delta: mag}
		case EffectTime:
			eff = TimeEffect{Delta: mag}
		default:
			continue
		}
		steps = append(steps, SpaceEffect{
			Space:     de.Space,
			Visit:     de.Visit,
			Trigger:   TriggerDice,
			Condition: Always,
			Effect:    eff,
		})
	}
	return steps
}

func describe(desc, fallback string) string {
	if desc != "" {
		return desc
	}
	return fallback
}
