package engine

import (
	"fmt"
	"testing"
	"time"
)

// fakeCatalog is an in-memory Catalog for tests.
type fakeCatalog struct {
	movement    map[string]Movement
	dice        map[string]DiceOutcome
	effects     map[string][]SpaceEffect
	diceEffects map[string][]DiceEffect
	content     map[string]SpaceContent
	config      map[string]SpaceConfig
	cards       []Card
	start       string
}

func ck(space string, visit VisitType) string { return space + "|" + string(visit) }

func (c *fakeCatalog) Movement(space string, visit VisitType) (Movement, bool) {
	m, ok := c.movement[ck(space, visit)]
	return m, ok
}

func (c *fakeCatalog) DiceOutcome(space string, visit VisitType) (DiceOutcome, bool) {
	d, ok := c.dice[ck(space, visit)]
	return d, ok
}

func (c *fakeCatalog) SpaceEffects(space string, visit VisitType) []SpaceEffect {
	return c.effects[ck(space, visit)]
}

func (c *fakeCatalog) DiceEffects(space string, visit VisitType) []DiceEffect {
	return c.diceEffects[ck(space, visit)]
}

func (c *fakeCatalog) SpaceContent(space string, visit VisitType) (SpaceContent, bool) {
	s, ok := c.content[ck(space, visit)]
	return s, ok
}

func (c *fakeCatalog) SpaceConfig(space string) (SpaceConfig, bool) {
	s, ok := c.config[space]
	return s, ok
}

func (c *fakeCatalog) Card(id string) (Card, bool) {
	for _, card := range c.cards {
		if card.ID == id {
			return card, true
		}
	}
	return Card{}, false
}

func (c *fakeCatalog) Cards(t CardType) []Card {
	var out []Card
	for _, card := range c.cards {
		if card.Type == t {
			out = append(out, card)
		}
	}
	return out
}

func (c *fakeCatalog) StartingSpace() string { return c.start }

// both registers v under the First and Subsequent visits of space.
func both[T any](m map[string]T, space string, v T) {
	m[ck(space, VisitFirst)] = v
	m[ck(space, VisitSubsequent)] = v
}

// newTestCatalog builds a small board:
//
//	START  choice -> A | B, +100 money on arrival, no roll
//	A      fixed -> END, manual W draw, negotiable
//	B      dice: 2-6 -> A, 7-12 -> END, +1 day per roll
//	CHOICE no movement, money / choice / money batch
//	Y      roll required, manual +1 day, then choice -> A | B
//	LOAN   fixed -> END, manual B draw, negotiable
//	END    ending space
func newTestCatalog() *fakeCatalog {
	c := &fakeCatalog{
		movement:    make(map[string]Movement),
		dice:        make(map[string]DiceOutcome),
		effects:     make(map[string][]SpaceEffect),
		diceEffects: make(map[string][]DiceEffect),
		content:     make(map[string]SpaceContent),
		config:      make(map[string]SpaceConfig),
		start:       "START",
	}

	both(c.movement, "START", Movement{Space: "START", Type: MovementChoice, Destinations: []string{"A", "B"}})
	both(c.effects, "START", []SpaceEffect{
		{Space: "START", Trigger: TriggerAuto, Effect: MoneyEffect{Delta: 100}, Description: "Seed money"},
	})
	c.config["START"] = SpaceConfig{Space: "START", IsStarting: true}

	both(c.movement, "A", Movement{Space: "A", Type: MovementFixed, Destinations: []string{"END"}})
	both(c.effects, "A", []SpaceEffect{
		{Space: "A", Trigger: TriggerManual, Effect: CardEffect{Action: CardDraw, Type: CardWork, Count: 1}},
	})
	both(c.content, "A", SpaceContent{Space: "A", CanNegotiate: true})
	c.config["A"] = SpaceConfig{Space: "A"}

	both(c.movement, "B", Movement{Space: "B", Type: MovementDice})
	outcomes := make(map[int]string)
	perRoll := make(map[int]int)
	for r := MinRoll; r <= MaxRoll; r++ {
		outcomes[r] = "END"
		if r <= 6 {
			outcomes[r] = "A"
		}
		perRoll[r] = 1
	}
	both(c.dice, "B", DiceOutcome{Space: "B", Destinations: outcomes})
	both(c.diceEffects, "B", []DiceEffect{{Space: "B", Kind: EffectTime, ByRoll: perRoll}})
	c.config["B"] = SpaceConfig{Space: "B", RequiresDiceRoll: true}

	both(c.effects, "CHOICE", []SpaceEffect{
		{Space: "CHOICE", Trigger: TriggerAuto, Effect: MoneyEffect{Delta: 10}},
		{Space: "CHOICE", Trigger: TriggerAuto, Effect: ChoiceEffect{
			Type:    ChoiceCardEffect,
			Prompt:  "Pick a perk",
			Options: []ChoiceOption{{ID: "time", Label: "Time"}, {ID: "cash", Label: "Cash"}},
			Outcomes: map[string][]SpaceEffect{
				"time": {{Effect: TimeEffect{Delta: 2}}},
				"cash": {{Effect: MoneyEffect{Delta: 50}}},
			},
		}},
		{Space: "CHOICE", Trigger: TriggerAuto, Effect: MoneyEffect{Delta: 5}},
	})
	c.config["CHOICE"] = SpaceConfig{Space: "CHOICE"}

	both(c.movement, "Y", Movement{Space: "Y", Type: MovementChoice, Destinations: []string{"A", "B"}})
	both(c.effects, "Y", []SpaceEffect{
		{Space: "Y", Trigger: TriggerManual, Effect: TimeEffect{Delta: 1}, Description: "Site visit"},
	})
	c.config["Y"] = SpaceConfig{Space: "Y", RequiresDiceRoll: true}

	both(c.movement, "LOAN", Movement{Space: "LOAN", Type: MovementFixed, Destinations: []string{"END"}})
	both(c.effects, "LOAN", []SpaceEffect{
		{Space: "LOAN", Trigger: TriggerManual, Effect: CardEffect{Action: CardDraw, Type: CardBank, Count: 1}},
	})
	both(c.content, "LOAN", SpaceContent{Space: "LOAN", CanNegotiate: true})
	c.config["LOAN"] = SpaceConfig{Space: "LOAN"}

	c.config["END"] = SpaceConfig{Space: "END", IsEnding: true}

	for i := 1; i <= 4; i++ {
		c.cards = append(c.cards, Card{ID: fmt.Sprintf("W%d", i), Type: CardWork, Cost: 100 * i})
	}
	c.cards = append(c.cards,
		Card{ID: "B1", Type: CardBank, Cost: 500},
		Card{ID: "E1", Type: CardEquipment},
	)
	return c
}

var fixedNow = time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

// newTestEngine creates a started game with n seated human players p1..pn.
func newTestEngine(t *testing.T, cat *fakeCatalog, n int) *Engine {
	t.Helper()
	e := New(cat, WithSeed(42), WithClock(func() time.Time { return fixedNow }))
	for i := 1; i <= n; i++ {
		if err := e.AddPlayer(PlayerSpec{ID: fmt.Sprintf("p%d", i), Name: fmt.Sprintf("Player %d", i)}); err != nil {
			t.Fatalf("AddPlayer p%d: %v", i, err)
		}
	}
	if err := e.StartGame(); err != nil {
		t.Fatalf("StartGame: %v", err)
	}
	return e
}

// placePlayer moves id onto space directly, bypassing movement rules.
func placePlayer(t *testing.T, e *Engine, id, space string) {
	t.Helper()
	err := e.Store().Update(func(g *GameState) error {
		g.mustPlayer(id).moveTo(space)
		return nil
	})
	if err != nil {
		t.Fatalf("placePlayer: %v", err)
	}
}

func mustRejectWith(t *testing.T, err error, code RejectionCode) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected %s rejection, got nil", code)
	}
	if got := RejectionCodeOf(err); got != code {
		t.Fatalf("rejection code: want %s, got %q (%v)", code, got, err)
	}
}

// TestNewGameSeedZero verifies a zero seed is replaced so the RNG can advance.
func TestNewGameSeedZero(t *testing.T) {
	g := NewGame(0)
	if g.RNG == 0 {
		t.Fatal("RNG must not be zero")
	}
	if g.Phase != PhaseSetup {
		t.Errorf("Phase: want SETUP, got %s", g.Phase)
	}
	for _, ct := range CardTypes {
		if _, ok := g.Decks[ct]; !ok {
			t.Errorf("missing deck bucket %s", ct)
		}
	}
}

// TestRollDieRange verifies every die face stays in [1, 6].
func TestRollDieRange(t *testing.T) {
	g := NewGame(99)
	seen := make(map[int]bool)
	for i := 0; i < 1000; i++ {
		v := g.rollDie()
		if v < 1 || v > DieFaces {
			t.Fatalf("rollDie out of range: %d", v)
		}
		seen[v] = true
	}
	if len(seen) != DieFaces {
		t.Errorf("expected all %d faces over 1000 rolls, saw %d", DieFaces, len(seen))
	}
}

// TestRNGDeterministic verifies two states with the same seed roll the same sequence.
func TestRNGDeterministic(t *testing.T) {
	a, b := NewGame(7), NewGame(7)
	for i := 0; i < 50; i++ {
		if x, y := a.rollDie(), b.rollDie(); x != y {
			t.Fatalf("roll %d differs: %d vs %d", i, x, y)
		}
	}
}

// TestCloneIndependence verifies a clone shares no mutable memory with its source.
func TestCloneIndependence(t *testing.T) {
	g := NewGame(1)
	g.Players = []Player{{ID: "p1", Hand: []string{"W1"}, VisitedSpaces: []string{"START"}}}
	g.Decks[CardWork] = []string{"W2", "W3"}
	g.AwaitingChoice = &Choice{ID: "c1", Options: []ChoiceOption{{ID: "a"}}}
	g.PreSpaceEffectState = &ResourceSnapshot{ID: "s1", Hand: []string{"W1"}}
	g.ActiveNegotiation = &Negotiation{ID: "n1"}
	g.ResolvedChoices["old"] = "x"
	g.CompletedActions.ManualActions["cards"] = "done"

	c := g.Clone()
	c.Players[0].Hand[0] = "X"
	c.Players[0].VisitedSpaces = append(c.Players[0].VisitedSpaces, "A")
	c.Decks[CardWork][0] = "X"
	c.AwaitingChoice.Options[0].ID = "X"
	c.PreSpaceEffectState.Hand[0] = "X"
	c.ActiveNegotiation.ID = "X"
	c.ResolvedChoices["new"] = "y"
	c.CompletedActions.ManualActions["money"] = "done"

	if g.Players[0].Hand[0] != "W1" {
		t.Error("hand shared with clone")
	}
	if len(g.Players[0].VisitedSpaces) != 1 {
		t.Error("visited spaces shared with clone")
	}
	if g.Decks[CardWork][0] != "W2" {
		t.Error("deck shared with clone")
	}
	if g.AwaitingChoice.Options[0].ID != "a" {
		t.Error("choice options shared with clone")
	}
	if g.PreSpaceEffectState.Hand[0] != "W1" {
		t.Error("snapshot hand shared with clone")
	}
	if g.ActiveNegotiation.ID != "n1" {
		t.Error("negotiation shared with clone")
	}
	if _, ok := g.ResolvedChoices["new"]; ok {
		t.Error("resolved choices shared with clone")
	}
	if _, ok := g.CompletedActions.ManualActions["money"]; ok {
		t.Error("manual actions shared with clone")
	}
}

// TestMoveToVisitType verifies the first arrival is First and a return is Subsequent.
func TestMoveToVisitType(t *testing.T) {
	var p Player
	p.moveTo("START")
	if p.VisitType != VisitFirst {
		t.Errorf("first arrival: want First, got %s", p.VisitType)
	}
	p.moveTo("A")
	p.moveTo("START")
	if p.VisitType != VisitSubsequent {
		t.Errorf("return visit: want Subsequent, got %s", p.VisitType)
	}
	if len(p.VisitedSpaces) != 2 {
		t.Errorf("VisitedSpaces: want 2 entries, got %v", p.VisitedSpaces)
	}
}

// TestAddPlayerValidation verifies seating limits and phase checks.
func TestAddPlayerValidation(t *testing.T) {
	rules := DefaultRules()
	rules.MaxPlayers = 2
	rules.StartingMoney = 250
	e := New(newTestCatalog(), WithRules(rules), WithSeed(1))

	if err := e.AddPlayer(PlayerSpec{ID: "p1", Name: "One"}); err != nil {
		t.Fatalf("AddPlayer p1: %v", err)
	}
	mustRejectWith(t, e.AddPlayer(PlayerSpec{ID: "p1"}), ErrCodeDuplicatePlayer)
	if err := e.AddPlayer(PlayerSpec{ID: "p2", Name: "Two", IsAI: true}); err != nil {
		t.Fatalf("AddPlayer p2: %v", err)
	}
	mustRejectWith(t, e.AddPlayer(PlayerSpec{ID: "p3"}), ErrCodeSeatsFull)

	g := e.GetGameState()
	p, _ := g.Player("p1")
	if p.Money != 250 || p.CurrentSpace != "START" || p.VisitType != VisitFirst {
		t.Errorf("new player: got money=%d space=%s visit=%s", p.Money, p.CurrentSpace, p.VisitType)
	}

	if err := e.StartGame(); err != nil {
		t.Fatalf("StartGame: %v", err)
	}
	mustRejectWith(t, e.AddPlayer(PlayerSpec{ID: "p4"}), ErrCodeWrongPhase)
	mustRejectWith(t, e.StartGame(), ErrCodeWrongPhase)
}

// TestStartGameBuildsDecks verifies every catalog card lands in its bucket.
func TestStartGameBuildsDecks(t *testing.T) {
	e := newTestEngine(t, newTestCatalog(), 2)
	g := e.GetGameState()

	if g.Phase != PhasePlay || g.Turn != 1 || g.CurrentPlayerID != "p1" {
		t.Fatalf("after start: phase=%s turn=%d current=%s", g.Phase, g.Turn, g.CurrentPlayerID)
	}
	if n := len(g.Decks[CardWork]); n != 4 {
		t.Errorf("W deck: want 4 cards, got %d", n)
	}
	if n := len(g.Decks[CardBank]); n != 1 {
		t.Errorf("B deck: want 1 card, got %d", n)
	}
	if n := len(g.Decks[CardLife]); n != 0 {
		t.Errorf("L deck: want empty, got %d", n)
	}
}

// BenchmarkClone measures the cost of the copy taken by every command.
func BenchmarkClone(b *testing.B) {
	g := NewGame(42)
	for i := 0; i < 4; i++ {
		g.Players = append(g.Players, Player{ID: fmt.Sprint(i), Hand: make([]string, 10)})
	}
	for i := 0; i < 200; i++ {
		g.GlobalActionLog = append(g.GlobalActionLog, ActionLogEntry{Seq: i})
	}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = g.Clone()
	}
}
