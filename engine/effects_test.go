package engine

import (
	"math"
	"testing"
)

func testEnv(cat Catalog, rules Rules) *env {
	n := 0
	return &env{
		catalog: cat,
		rules:   &rules,
		now:     fixedNow,
		newID: func() string {
			n++
			return "test-" + string(rune('a'+n))
		},
	}
}

func oneSeat(seed uint64) GameState {
	g := NewGame(seed)
	g.Players = []Player{{ID: "p1", Name: "One"}}
	g.CurrentPlayerID = "p1"
	g.Phase = PhasePlay
	return g
}

// TestConditionMet covers every guard kind.
func TestConditionMet(t *testing.T) {
	in := conditionInput{money: 500, scope: 300, dice: 7}
	tests := []struct {
		cond Condition
		want bool
	}{
		{Condition{}, true},
		{Always, true},
		{Condition{CondDiceRoll, 7}, true},
		{Condition{CondDiceRoll, 6}, false},
		{Condition{CondScopeLE, 300}, true},
		{Condition{CondScopeLE, 299}, false},
		{Condition{CondScopeGT, 299}, true},
		{Condition{CondScopeGT, 300}, false},
		{Condition{CondMoneyLT, 501}, true},
		{Condition{CondMoneyLT, 500}, false},
		{Condition{CondMoneyGE, 500}, true},
		{Condition{CondMoneyGE, 501}, false},
		{Condition{"bogus", 1}, false},
	}
	for _, tt := range tests {
		if got := tt.cond.met(in); got != tt.want {
			t.Errorf("%s.met = %v, want %v", tt.cond, got, tt.want)
		}
	}
	if (Condition{CondDiceRoll, 7}).met(conditionInput{}) {
		t.Error("dice guard must not hold before a roll")
	}
}

// TestMoneyEffectsAreOrderedSums verifies money deltas are plain integer addition and may go negative.
func TestMoneyEffectsAreOrderedSums(t *testing.T) {
	g := oneSeat(1)
	ev := testEnv(newTestCatalog(), DefaultRules())
	steps := []SpaceEffect{
		{Effect: MoneyEffect{Delta: 300}},
		{Effect: MoneyEffect{Delta: -1000}},
		{Effect: MoneyEffect{Delta: 50}},
	}
	var res TurnEffectResult
	if err := g.applyBatch(ev, "p1", 0, steps, &res); err != nil {
		t.Fatalf("applyBatch: %v", err)
	}
	if got := g.Players[0].Money; got != -650 {
		t.Errorf("Money: want -650, got %d", got)
	}
	if len(res.Effects) != 3 {
		t.Errorf("effects: want 3, got %d", len(res.Effects))
	}
}

// TestMoneyFloor verifies a configured floor clamps money.
func TestMoneyFloor(t *testing.T) {
	rules := DefaultRules()
	rules.MoneyFloor = 0
	g := oneSeat(1)
	ev := testEnv(newTestCatalog(), rules)

	g.applyEffect(ev, &g.Players[0], MoneyEffect{Delta: -40}, "")
	if got := g.Players[0].Money; got != 0 {
		t.Errorf("Money: want floor 0, got %d", got)
	}
	if DefaultRules().MoneyFloor != math.MinInt {
		t.Error("default rules should not floor money")
	}
}

// TestTimeNeverNegative verifies time spent clamps at zero.
func TestTimeNeverNegative(t *testing.T) {
	g := oneSeat(1)
	g.Players[0].TimeSpent = 3
	ev := testEnv(newTestCatalog(), DefaultRules())

	g.applyEffect(ev, &g.Players[0], TimeEffect{Delta: -10}, "")
	if got := g.Players[0].TimeSpent; got != 0 {
		t.Errorf("TimeSpent: want 0, got %d", got)
	}
	res := g.applyEffect(ev, &g.Players[0], TimeEffect{Delta: 4}, "Permit delay")
	if g.Players[0].TimeSpent != 4 || res[0].Description != "Permit delay" {
		t.Errorf("TimeSpent=%d result=%+v", g.Players[0].TimeSpent, res)
	}
}

// TestCardDrawReshufflesDiscard verifies an empty deck is refilled from its discard pile.
func TestCardDrawReshufflesDiscard(t *testing.T) {
	g := oneSeat(5)
	g.Decks[CardWork] = []string{"W1"}
	g.DiscardPiles[CardWork] = []string{"W2", "W3"}
	ev := testEnv(newTestCatalog(), DefaultRules())

	res := g.applyEffect(ev, &g.Players[0], CardEffect{Action: CardDraw, Type: CardWork, Count: 5}, "")
	if got := len(g.Players[0].Hand); got != 3 {
		t.Fatalf("Hand: want all 3 cards, got %v", g.Players[0].Hand)
	}
	if g.Players[0].Hand[0] != "W1" {
		t.Errorf("first draw should take the top of the deck, got %s", g.Players[0].Hand[0])
	}
	if res[0].Value != 3 || len(res[0].CardIDs) != 3 {
		t.Errorf("result: %+v", res[0])
	}
	if len(g.Decks[CardWork]) != 0 || len(g.DiscardPiles[CardWork]) != 0 {
		t.Errorf("deck=%v discard=%v, want both empty", g.Decks[CardWork], g.DiscardPiles[CardWork])
	}
}

// TestCardRemoveAndReplace verifies removal discards by type and replacement keeps hand size.
func TestCardRemoveAndReplace(t *testing.T) {
	g := oneSeat(5)
	g.Players[0].Hand = []string{"W1", "E1", "W2"}
	g.Decks[CardWork] = []string{"W4", "W3"}
	ev := testEnv(newTestCatalog(), DefaultRules())

	g.applyEffect(ev, &g.Players[0], CardEffect{Action: CardRemove, Type: CardWork, Count: 1}, "")
	if h := g.Players[0].Hand; len(h) != 2 || h[0] != "W1" || h[1] != "E1" {
		t.Errorf("after remove: hand %v", h)
	}
	if d := g.DiscardPiles[CardWork]; len(d) != 1 || d[0] != "W2" {
		t.Errorf("after remove: discard %v", d)
	}

	g.applyEffect(ev, &g.Players[0], CardEffect{Action: CardReplace, Type: CardWork, Count: 1}, "")
	if h := g.Players[0].Hand; len(h) != 2 || h[1] != "W3" {
		t.Errorf("after replace: hand %v", h)
	}

	// Removing more than held is clamped.
	res := g.applyEffect(ev, &g.Players[0], CardEffect{Action: CardRemove, Type: CardEquipment, Count: 9}, "")
	if res[0].Value != 1 {
		t.Errorf("clamped removal: want 1, got %d", res[0].Value)
	}
}

// TestFeeChargesScopePercentage verifies a fee is a percentage of the summed work card cost.
func TestFeeChargesScopePercentage(t *testing.T) {
	g := oneSeat(1)
	g.Players[0].Hand = []string{"W2", "W3", "E1"} // scope 200 + 300
	g.Players[0].Money = 1000
	ev := testEnv(newTestCatalog(), DefaultRules())

	res := g.applyEffect(ev, &g.Players[0], FeeEffect{Percent: 10}, "")
	if g.Players[0].Money != 950 || res[0].Value != -50 {
		t.Errorf("fee: money=%d value=%d", g.Players[0].Money, res[0].Value)
	}
}

// TestBankDrawFundsPlayer verifies a bank card credits its cost and records a loan.
func TestBankDrawFundsPlayer(t *testing.T) {
	g := oneSeat(1)
	g.Turn = 4
	g.Decks[CardBank] = []string{"B1"}
	ev := testEnv(newTestCatalog(), DefaultRules())

	res := g.applyEffect(ev, &g.Players[0], CardEffect{Action: CardDraw, Type: CardBank, Count: 1}, "")
	p := g.Players[0]
	if p.Money != 500 {
		t.Errorf("Money: want 500, got %d", p.Money)
	}
	if len(p.Loans) != 1 || p.Loans[0].CardID != "B1" || p.Loans[0].TakenTurn != 4 {
		t.Errorf("Loans: %+v", p.Loans)
	}
	if len(res) != 2 || res[1].Type != EffectMoney {
		t.Errorf("results: %+v", res)
	}
}

// TestConditionsSeeEarlierEffects verifies each guard is evaluated after the previous effect applied.
func TestConditionsSeeEarlierEffects(t *testing.T) {
	g := oneSeat(1)
	ev := testEnv(newTestCatalog(), DefaultRules())
	steps := []SpaceEffect{
		{Effect: MoneyEffect{Delta: 100}},
		{Condition: Condition{CondMoneyGE, 100}, Effect: TimeEffect{Delta: 1}},
		{Condition: Condition{CondMoneyLT, 100}, Effect: TimeEffect{Delta: 10}},
		{Condition: Condition{CondDiceRoll, 4}, Effect: TimeEffect{Delta: 100}},
	}
	var res TurnEffectResult
	if err := g.applyBatch(ev, "p1", 4, steps, &res); err != nil {
		t.Fatalf("applyBatch: %v", err)
	}
	if got := g.Players[0].TimeSpent; got != 101 {
		t.Errorf("TimeSpent: want 101, got %d", got)
	}
}

// TestSkipTurnEffect verifies the skip effect sets the modifier and a visible active effect.
func TestSkipTurnEffect(t *testing.T) {
	g := oneSeat(1)
	ev := testEnv(newTestCatalog(), DefaultRules())
	g.applyEffect(ev, &g.Players[0], SkipTurnEffect{Turns: 2}, "")
	p := g.Players[0]
	if p.TurnModifiers.SkipTurns != 2 || len(p.ActiveEffects) != 1 || p.ActiveEffects[0].RemainingTurns != 2 {
		t.Errorf("skip: %+v", p)
	}
}

// TestDiceEffectSteps verifies per-roll tables become a batch for the rolled value only.
func TestDiceEffectSteps(t *testing.T) {
	tables := []DiceEffect{
		{Kind: EffectCards, CardType: CardLife, ByRoll: map[int]int{3: 1}},
		{Kind: EffectMoney, ByRoll: map[int]int{3: -200, 4: 100}},
		{Kind: EffectTime, ByRoll: map[int]int{4: 2}},
	}
	steps := diceEffectSteps(tables, 3)
	if len(steps) != 2 {
		t.Fatalf("steps for roll 3: want 2, got %d", len(steps))
	}
	if ce, ok := steps[0].Effect.(CardEffect); !ok || ce.Type != CardLife || ce.Count != 1 {
		t.Errorf("step 0: %+v", steps[0].Effect)
	}
	if me, ok := steps[1].Effect.(MoneyEffect); !ok || me.Delta != -200 {
		t.Errorf("step 1: %+v", steps[1].Effect)
	}
}
