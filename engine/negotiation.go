package engine

import "fmt"

// Offer is what a player puts on the table to settle a negotiation.
type Offer struct {
	Money   int      `json:"money"`
	CardIDs []string `json:"cardIds"`
}

// InitiateNegotiation opens an offer cycle for playerID on a negotiable
// space. Their money, time and hand are snapshotted so a declined offer can
// restore them.
func (e *Engine) InitiateNegotiation(playerID string) error {
	return e.update(func(g *GameState, ev *env) error {
		if err := checkActiveTurn(g, playerID); err != nil {
			return err
		}
		if g.ActiveNegotiation != nil {
			return reject(ErrCodeNegotiationActive, "negotiation %s is already open", g.ActiveNegotiation.ID)
		}
		if g.AwaitingChoice != nil {
			return reject(ErrCodeChoicePending, "choice %s must be resolved first", g.AwaitingChoice.ID)
		}
		p := g.mustPlayer(playerID)
		content, ok := ev.catalog.SpaceContent(p.CurrentSpace, p.VisitType)
		if !ok || !content.CanNegotiate {
			return reject(ErrCodeNegotiationIneligible, "%s does not allow negotiation", p.CurrentSpace)
		}

		snap := p.snapshot(ev.newID())
		g.PreSpaceEffectState = &snap
		g.ActiveNegotiation = &Negotiation{
			ID:          ev.newID(),
			PlayerID:    playerID,
			SnapshotID:  snap.ID,
			Status:      NegotiationMakingOffer,
			StartedTurn: g.Turn,
		}
		g.appendLog(ev.now, playerID, "negotiation_start", fmt.Sprintf("%s opened negotiation on %s", p.Name, p.CurrentSpace))
		return nil
	})
}

// openNegotiation returns the player's negotiation and its snapshot.
func (g *GameState) openNegotiation(playerID string) (*Negotiation, *ResourceSnapshot, error) {
	if _, ok := g.Player(playerID); !ok {
		return nil, nil, reject(ErrCodeUnknownPlayer, "unknown player %s", playerID)
	}
	n := g.ActiveNegotiation
	if n == nil || n.PlayerID != playerID {
		return nil, nil, reject(ErrCodeNoNegotiation, "%s has no open negotiation", playerID)
	}
	snap := g.PreSpaceEffectState
	if snap == nil || snap.ID != n.SnapshotID {
		return nil, nil, &InvariantError{
			Invariant: "snapshot-single-use",
			Message:   fmt.Sprintf("negotiation %s snapshot %s is missing or already consumed", n.ID, n.SnapshotID),
		}
	}
	return n, snap, nil
}

// MakeOffer pays the offer out of the player's money and hand and closes
// the negotiation, keeping the resulting state.
func (e *Engine) MakeOffer(playerID string, offer Offer) error {
	return e.update(func(g *GameState, ev *env) error {
		n, _, err := g.openNegotiation(playerID)
		if err != nil {
			return err
		}
		if offer.Money < 0 {
			return reject(ErrCodeInvalidOffer, "offered money must not be negative")
		}
		p := g.mustPlayer(playerID)
		for _, id := range offer.CardIDs {
			if !contains(p.Hand, id) {
				return reject(ErrCodeInvalidOffer, "card %s is not in hand", id)
			}
		}
		for _, id := range offer.CardIDs {
			p.Hand = removeOne(p.Hand, id)
			t := ev.cardType(id)
			g.DiscardPiles[t] = append(g.DiscardPiles[t], id)
		}
		p.Money = ev.rules.clampMoney(p.Money - offer.Money)

		g.appendLog(ev.now, playerID, "negotiation_offer",
			fmt.Sprintf("%s settled negotiation %s with %d money and %d card(s)", p.Name, n.ID, offer.Money, len(offer.CardIDs)))
		g.closeNegotiation()
		return nil
	})
}

// AcceptOffer keeps the player's current resources and closes the
// negotiation.
func (e *Engine) AcceptOffer(playerID string) error {
	return e.update(func(g *GameState, ev *env) error {
		n, _, err := g.openNegotiation(playerID)
		if err != nil {
			return err
		}
		g.appendLog(ev.now, playerID, "negotiation_accept", fmt.Sprintf("negotiation %s accepted", n.ID))
		g.closeNegotiation()
		return nil
	})
}

// DeclineOffer restores the player's money, time, hand and loans from the
// negotiation snapshot, then charges the decline time penalty.
func (e *Engine) DeclineOffer(playerID string) error {
	return e.update(func(g *GameState, ev *env) error {
		n, snap, err := g.openNegotiation(playerID)
		if err != nil {
			return err
		}
		p := g.mustPlayer(playerID)
		g.reconcileCards(ev, p.Hand, snap.Hand)
		p.Money = snap.Money
		p.TimeSpent = snap.TimeSpent + ev.rules.NegotiationTimePenalty
		p.Hand = append([]string(nil), snap.Hand...)
		if len(p.Loans) > snap.LoanCount {
			p.Loans = p.Loans[:snap.LoanCount:snap.LoanCount]
		}

		g.appendLog(ev.now, playerID, "negotiation_decline",
			fmt.Sprintf("negotiation %s declined, %d day(s) lost", n.ID, ev.rules.NegotiationTimePenalty))
		g.closeNegotiation()
		return nil
	})
}

// closeNegotiation discards the snapshot so it can't be restored twice.
func (g *GameState) closeNegotiation() {
	g.ActiveNegotiation = nil
	g.PreSpaceEffectState = nil
}

// reconcileCards keeps the decks consistent when a hand reverts from
// current to restored: cards gained since the snapshot go to the discard
// pile, and cards lost since then are taken back out of the piles.
func (g *GameState) reconcileCards(ev *env, current, restored []string) {
	for _, id := range current {
		if !contains(restored, id) {
			t := ev.cardType(id)
			g.DiscardPiles[t] = append(g.DiscardPiles[t], id)
		}
	}
	for _, id := range restored {
		if contains(current, id) {
			continue
		}
		t := ev.cardType(id)
		g.DiscardPiles[t] = removeOne(g.DiscardPiles[t], id)
		g.Decks[t] = removeOne(g.Decks[t], id)
	}
}

func removeOne(list []string, s string) []string {
	for i, v := range list {
		if v == s {
			return append(list[:i:i], list[i+1:]...)
		}
	}
	return list
}
