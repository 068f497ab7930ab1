package engine

import (
	"strconv"
	"sync"
	"sync/atomic"
	"time"
)

// Engine is the command surface of a match. It owns a Store and applies
// every command as one atomic mutation of it.
type Engine struct {
	store   *Store
	catalog Catalog
	rules   Rules
	now     func() time.Time
	newID   func() string

	waitMu  sync.Mutex
	waiters map[string][]chan ChoiceResolution
}

// Option configures an Engine.
type Option func(*engineConfig)

type engineConfig struct {
	rules Rules
	seed  uint64
	now   func() time.Time
	newID func() string
}

// WithRules overrides DefaultRules.
func WithRules(r Rules) Option {
	return func(c *engineConfig) { c.rules = r }
}

// WithSeed seeds the dice and shuffle RNG.
func WithSeed(seed uint64) Option {
	return func(c *engineConfig) { c.seed = seed }
}

// WithClock sets the time source used for log timestamps.
func WithClock(now func() time.Time) Option {
	return func(c *engineConfig) { c.now = now }
}

// WithIDGenerator sets how choice, snapshot and negotiation ids are minted.
func WithIDGenerator(f func() string) Option {
	return func(c *engineConfig) { c.newID = f }
}

// New returns an engine in SETUP phase backed by catalog.
func New(catalog Catalog, opts ...Option) *Engine {
	var seq atomic.Uint64
	cfg := engineConfig{
		rules: DefaultRules(),
		seed:  uint64(time.Now().UnixNano()),
		now:   time.Now,
		newID: func() string { return "id-" + strconv.FormatUint(seq.Add(1), 10) },
	}
	for _, o := range opts {
		o(&cfg)
	}
	return &Engine{
		store:   NewStore(NewGame(cfg.seed)),
		catalog: catalog,
		rules:   cfg.rules,
		now:     cfg.now,
		newID:   cfg.newID,
		waiters: make(map[string][]chan ChoiceResolution),
	}
}

// Store returns the backing store.
func (e *Engine) Store() *Store { return e.store }

// Catalog returns the board data the engine was built with.
func (e *Engine) Catalog() Catalog { return e.catalog }

// Rules returns the active rule set.
func (e *Engine) Rules() Rules { return e.rules }

// GetGameState returns a deep copy of the current state.
func (e *Engine) GetGameState() GameState { return e.store.GetGameState() }

// Subscribe registers a state listener. See Store.Subscribe.
func (e *Engine) Subscribe(fn Listener) func() { return e.store.Subscribe(fn) }

// update runs fn against a clone with a fresh env.
func (e *Engine) update(fn func(g *GameState, ev *env) error) error {
	return e.store.Update(func(g *GameState) error {
		ev := &env{catalog: e.catalog, rules: &e.rules, now: e.now(), newID: e.newID}
		return fn(g, ev)
	})
}

// ---------------------------------------------------------------------------
// Setup
// ---------------------------------------------------------------------------

// PlayerSpec describes a seat to add during SETUP.
type PlayerSpec struct {
	ID     string
	Name   string
	Color  string
	Avatar string
	IsAI   bool
}

// AddPlayer seats a new player on the starting space.
func (e *Engine) AddPlayer(spec PlayerSpec) error {
	return e.update(func(g *GameState, ev *env) error {
		if g.Phase != PhaseSetup {
			return reject(ErrCodeWrongPhase, "players can only join during setup")
		}
		if e.rules.MaxPlayers > 0 && len(g.Players) >= e.rules.MaxPlayers {
			return reject(ErrCodeSeatsFull, "all %d seats are taken", e.rules.MaxPlayers)
		}
		if _, ok := g.Player(spec.ID); ok || spec.ID == "" {
			return reject(ErrCodeDuplicatePlayer, "player id %q is empty or already seated", spec.ID)
		}
		p := Player{
			ID:     spec.ID,
			Name:   spec.Name,
			Color:  spec.Color,
			Avatar: spec.Avatar,
			IsAI:   spec.IsAI,
			Money:  e.rules.StartingMoney,
		}
		p.moveTo(ev.catalog.StartingSpace())
		g.Players = append(g.Players, p)
		g.appendLog(ev.now, p.ID, "join", p.Name+" joined the game")
		return nil
	})
}

// StartGame moves SETUP to PLAY, builds the shuffled decks and seats the
// first player. StartTurn must still be called for the first turn.
func (e *Engine) StartGame() error {
	return e.update(func(g *GameState, ev *env) error {
		if g.Phase != PhaseSetup {
			return reject(ErrCodeWrongPhase, "game already started")
		}
		if len(g.Players) == 0 {
			return reject(ErrCodeWrongPhase, "no players seated")
		}
		for _, t := range CardTypes {
			cards := ev.catalog.Cards(t)
			deck := make([]string, 0, len(cards))
			for _, c := range cards {
				deck = append(deck, c.ID)
			}
			g.shuffle(deck)
			g.Decks[t] = deck
			g.DiscardPiles[t] = nil
		}
		g.Phase = PhasePlay
		g.Turn = 1
		g.CurrentPlayerID = g.Players[0].ID
		g.resetTurnFlags()
		g.appendLog(ev.now, "", "game_start", "Game started")
		return nil
	})
}

// ---------------------------------------------------------------------------
// Shared precondition checks
// ---------------------------------------------------------------------------

// checkTurn verifies the game is in play and it is playerID's turn.
func checkTurn(g *GameState, playerID string) error {
	if g.Phase != PhasePlay {
		return reject(ErrCodeWrongPhase, "game is not in play")
	}
	if _, ok := g.Player(playerID); !ok {
		return reject(ErrCodeUnknownPlayer, "unknown player %s", playerID)
	}
	if g.CurrentPlayerID != playerID {
		return reject(ErrCodeNotPlayersTurn, "it is not %s's turn", playerID)
	}
	return nil
}

// checkActiveTurn additionally requires StartTurn to have run.
func checkActiveTurn(g *GameState, playerID string) error {
	if err := checkTurn(g, playerID); err != nil {
		return err
	}
	if !g.TurnStarted {
		return reject(ErrCodeTurnNotStarted, "turn has not started")
	}
	return nil
}
