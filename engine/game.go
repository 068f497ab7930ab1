// Package engine implements the turn and effect orchestration rules.
//
// All game state lives in a single GameState value owned by a Store. Every
// command runs against a private clone of that value and is committed only
// when it succeeds, so a rejected command never leaves a partial write and
// subscribers only ever observe whole mutations.
package engine

import "time"

// Player holds one seat's identity, position and resources.
type Player struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Color  string `json:"color"`
	Avatar string `json:"avatar"`
	IsAI   bool   `json:"isAI"`

	Money     int `json:"money"`     // negative is a deficit, not an error
	TimeSpent int `json:"timeSpent"` // days, never negative

	CurrentSpace  string    `json:"currentSpace"`
	VisitType     VisitType `json:"visitType"`
	VisitedSpaces []string  `json:"visitedSpaces"`

	Hand       []string `json:"hand"`
	MoveIntent string   `json:"moveIntent,omitempty"` // "" means no intent

	ActiveEffects []ActiveEffect `json:"activeEffects"`
	Loans         []Loan         `json:"loans"`
	TurnModifiers TurnModifiers  `json:"turnModifiers"`
}

// ActiveEffect is a lasting effect shown against a player.
type ActiveEffect struct {
	Type           string `json:"type"`
	Description    string `json:"description"`
	RemainingTurns int    `json:"remainingTurns"`
}

// Loan records funding received from a bank card.
type Loan struct {
	CardID    string `json:"cardId"`
	Amount    int    `json:"amount"`
	TakenTurn int    `json:"takenTurn"`
}

// TurnModifiers adjust how a player's upcoming turns are handled.
type TurnModifiers struct {
	SkipTurns int `json:"skipTurns"`
}

// ChoiceOption is one selectable answer to a Choice.
type ChoiceOption struct {
	ID    string `json:"id"`
	Label string `json:"label"`
}

// Choice is a single outstanding decision request.
type Choice struct {
	ID       string         `json:"id"`
	Type     ChoiceType     `json:"type"`
	PlayerID string         `json:"playerId"`
	Prompt   string         `json:"prompt"`
	Options  []ChoiceOption `json:"options"`

	resume *continuation // what to run with the answer
}

// HasOption reports whether id is one of the registered options.
func (c *Choice) HasOption(id string) bool {
	for _, o := range c.Options {
		if o.ID == id {
			return true
		}
	}
	return false
}

// ActionProgress tracks completed per-turn actions.
type ActionProgress struct {
	Count         int               `json:"count"`
	DiceRoll      bool              `json:"diceRoll"`
	ManualActions map[string]string `json:"manualActions"` // effect type -> completion description
}

// ResourceSnapshot is an immutable copy of a player's resource fields.
type ResourceSnapshot struct {
	ID        string   `json:"id"`
	PlayerID  string   `json:"playerId"`
	Money     int      `json:"money"`
	TimeSpent int      `json:"timeSpent"`
	Hand      []string `json:"hand"`
	LoanCount int      `json:"loanCount"` // loans taken after the snapshot are rolled back with it
}

// Negotiation is an open offer cycle for the current player.
type Negotiation struct {
	ID          string            `json:"id"`
	PlayerID    string            `json:"playerId"`
	SnapshotID  string            `json:"snapshotId"`
	Status      NegotiationStatus `json:"status"`
	StartedTurn int               `json:"startedTurn"`
}

// ActionLogEntry is one line of the append-only audit trail.
type ActionLogEntry struct {
	Seq         int       `json:"seq"`
	Turn        int       `json:"turn"`
	PlayerID    string    `json:"playerId,omitempty"`
	Type        string    `json:"type"`
	Description string    `json:"description"`
	Timestamp   time.Time `json:"timestamp"`
}

// GameState holds the complete state of a match.
type GameState struct {
	Players         []Player  `json:"players"` // seating order
	CurrentPlayerID string    `json:"currentPlayerId,omitempty"`
	Phase           GamePhase `json:"gamePhase"`
	Turn            int       `json:"turn"`

	TurnStarted            bool `json:"turnStarted"`
	HasPlayerMovedThisTurn bool `json:"hasPlayerMovedThisTurn"`
	HasPlayerRolledDice    bool `json:"hasPlayerRolledDice"`
	LastDiceRoll           int  `json:"lastDiceRoll"`
	RollRequired           bool `json:"rollRequired"`

	AwaitingChoice   *Choice           `json:"awaitingChoice,omitempty"`
	ResolvedChoices  map[string]string `json:"-"` // choice id -> selected option id
	RequiredActions  int               `json:"requiredActions"`
	CompletedActions ActionProgress    `json:"completedActions"`

	ActiveNegotiation   *Negotiation      `json:"activeNegotiation,omitempty"`
	PreSpaceEffectState *ResourceSnapshot `json:"preSpaceEffectState,omitempty"`

	Decks        map[CardType][]string `json:"decks"`        // top of stack is the last element
	DiscardPiles map[CardType][]string `json:"discardPiles"` // top of stack is the last element

	GlobalActionLog []ActionLogEntry `json:"globalActionLog"`

	RNG uint64 `json:"-"`
}

// NewGame returns an empty SETUP-phase state seeded for dice and shuffles.
func NewGame(seed uint64) GameState {
	g := GameState{
		Phase:           PhaseSetup,
		ResolvedChoices: make(map[string]string),
		Decks:           make(map[CardType][]string, len(CardTypes)),
		DiscardPiles:    make(map[CardType][]string, len(CardTypes)),
		CompletedActions: ActionProgress{
			ManualActions: make(map[string]string),
		},
		RNG: seed,
	}
	if g.RNG == 0 {
		g.RNG = 1 // xorshift can't start at 0
	}
	for _, t := range CardTypes {
		g.Decks[t] = nil
		g.DiscardPiles[t] = nil
	}
	return g
}

// ---------------------------------------------------------------------------
// xorshift64 RNG
// ---------------------------------------------------------------------------

func (g *GameState) nextRand() uint64 {
	x := g.RNG
	x ^= x << 13
	x ^= x >> 7
	x ^= x << 17
	g.RNG = x
	return x
}

// randN returns a random number in [0, n).
func (g *GameState) randN(n uint64) uint64 {
	return g.nextRand() % n
}

// rollDie returns a uniformly random face in [1, DieFaces].
func (g *GameState) rollDie() int {
	return int(g.randN(DieFaces)) + 1
}

// shuffle performs an in-place Fisher-Yates shuffle.
func (g *GameState) shuffle(ids []string) {
	for i := len(ids) - 1; i > 0; i-- {
		j := int(g.randN(uint64(i + 1)))
		ids[i], ids[j] = ids[j], ids[i]
	}
}

// ---------------------------------------------------------------------------
// Queries
// ---------------------------------------------------------------------------

// Player returns the player with the given id.
func (g *GameState) Player(id string) (*Player, bool) {
	for i := range g.Players {
		if g.Players[i].ID == id {
			return &g.Players[i], true
		}
	}
	return nil, false
}

// mustPlayer returns the player or panics: an unknown id here is a programming error.
func (g *GameState) mustPlayer(id string) *Player {
	p, ok := g.Player(id)
	if !ok {
		panic("engine: unknown player id " + id)
	}
	return p
}

// CurrentPlayer returns the player whose turn it is, if any.
func (g *GameState) CurrentPlayer() (*Player, bool) {
	if g.CurrentPlayerID == "" {
		return nil, false
	}
	return g.Player(g.CurrentPlayerID)
}

// seatIndex returns the seating position of id, or -1.
func (g *GameState) seatIndex(id string) int {
	for i := range g.Players {
		if g.Players[i].ID == id {
			return i
		}
	}
	return -1
}

// NextSeat returns the id of the player seated after id, wrapping past the last seat.
func (g *GameState) NextSeat(id string) string {
	if len(g.Players) == 0 {
		return ""
	}
	i := g.seatIndex(id)
	return g.Players[(i+1)%len(g.Players)].ID
}

// ---------------------------------------------------------------------------
// Mutation primitives
// ---------------------------------------------------------------------------

// appendLog records an entry in the global action log.
func (g *GameState) appendLog(now time.Time, playerID, typ, description string) {
	g.GlobalActionLog = append(g.GlobalActionLog, ActionLogEntry{
		Seq:         len(g.GlobalActionLog) + 1,
		Turn:        g.Turn,
		PlayerID:    playerID,
		Type:        typ,
		Description: description,
		Timestamp:   now,
	})
}

// resetTurnFlags clears every per-turn flag.
func (g *GameState) resetTurnFlags() {
	g.TurnStarted = false
	g.HasPlayerMovedThisTurn = false
	g.HasPlayerRolledDice = false
	g.LastDiceRoll = 0
	g.RollRequired = false
	g.RequiredActions = 0
	g.CompletedActions = ActionProgress{ManualActions: make(map[string]string)}
}

// recountCompleted recomputes CompletedActions.Count from the recorded actions.
func (g *GameState) recountCompleted() {
	n := len(g.CompletedActions.ManualActions)
	if g.RollRequired && g.CompletedActions.DiceRoll {
		n++
	}
	g.CompletedActions.Count = n
}

// moveTo places the player on space, updating visit type from their history.
func (p *Player) moveTo(space string) {
	p.VisitType = VisitFirst
	for _, s := range p.VisitedSpaces {
		if s == space {
			p.VisitType = VisitSubsequent
			break
		}
	}
	if p.VisitType == VisitFirst {
		p.VisitedSpaces = append(p.VisitedSpaces, space)
	}
	p.CurrentSpace = space
}

// snapshot copies the player's resource fields.
func (p *Player) snapshot(id string) ResourceSnapshot {
	return ResourceSnapshot{
		ID:        id,
		PlayerID:  p.ID,
		Money:     p.Money,
		TimeSpent: p.TimeSpent,
		Hand:      append([]string(nil), p.Hand...),
		LoanCount: len(p.Loans),
	}
}

// ---------------------------------------------------------------------------
// Clone
// ---------------------------------------------------------------------------

// Clone returns a deep copy sharing no mutable memory with g.
func (g *GameState) Clone() GameState {
	c := *g

	c.Players = make([]Player, len(g.Players))
	for i := range g.Players {
		c.Players[i] = g.Players[i].clone()
	}

	if g.AwaitingChoice != nil {
		ch := *g.AwaitingChoice
		ch.Options = append([]ChoiceOption(nil), g.AwaitingChoice.Options...)
		c.AwaitingChoice = &ch
	}
	c.ResolvedChoices = make(map[string]string, len(g.ResolvedChoices))
	for k, v := range g.ResolvedChoices {
		c.ResolvedChoices[k] = v
	}

	c.CompletedActions.ManualActions = make(map[string]string, len(g.CompletedActions.ManualActions))
	for k, v := range g.CompletedActions.ManualActions {
		c.CompletedActions.ManualActions[k] = v
	}

	if g.ActiveNegotiation != nil {
		n := *g.ActiveNegotiation
		c.ActiveNegotiation = &n
	}
	if g.PreSpaceEffectState != nil {
		s := *g.PreSpaceEffectState
		s.Hand = append([]string(nil), g.PreSpaceEffectState.Hand...)
		c.PreSpaceEffectState = &s
	}

	c.Decks = cloneBuckets(g.Decks)
	c.DiscardPiles = cloneBuckets(g.DiscardPiles)
	c.GlobalActionLog = append([]ActionLogEntry(nil), g.GlobalActionLog...)
	return c
}

func (p *Player) clone() Player {
	c := *p
	c.VisitedSpaces = append([]string(nil), p.VisitedSpaces...)
	c.Hand = append([]string(nil), p.Hand...)
	c.ActiveEffects = append([]ActiveEffect(nil), p.ActiveEffects...)
	c.Loans = append([]Loan(nil), p.Loans...)
	return c
}

func cloneBuckets(in map[CardType][]string) map[CardType][]string {
	out := make(map[CardType][]string, len(in))
	for k, v := range in {
		out[k] = append([]string(nil), v...)
	}
	return out
}
