// Package catalog loads the read-only board data (movement, space effects,
// dice tables, cards) and serves it to the engine.
package catalog

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/tomaszsb/Game-alpha-sub005/engine"
)

// Format selects a catalog encoding.
type Format string

const (
	FormatCSV  Format = "csv"
	FormatYAML Format = "yaml"
)

type key struct {
	space string
	visit engine.VisitType
}

// Catalog is an immutable, fully decoded board. It is safe for concurrent reads.
type Catalog struct {
	movement    map[key]engine.Movement
	dice        map[key]engine.DiceOutcome
	effects     map[key][]engine.SpaceEffect
	diceEffects map[key][]engine.DiceEffect
	content     map[key]engine.SpaceContent
	config      map[string]engine.SpaceConfig
	cards       []engine.Card
	cardByID    map[string]int
	spaces      []string // first-seen order
	seen        map[string]bool
	start       string
}

var _ engine.Catalog = (*Catalog)(nil)

func newCatalog() *Catalog {
	return &Catalog{
		movement:    make(map[key]engine.Movement),
		dice:        make(map[key]engine.DiceOutcome),
		effects:     make(map[key][]engine.SpaceEffect),
		diceEffects: make(map[key][]engine.DiceEffect),
		content:     make(map[key]engine.SpaceContent),
		config:      make(map[string]engine.SpaceConfig),
		cardByID:    make(map[string]int),
		seen:        make(map[string]bool),
	}
}

// Load reads a catalog from path. CSV catalogs are directories of files;
// YAML catalogs are a single document.
func Load(path string, format Format) (*Catalog, error) {
	switch format {
	case FormatCSV:
		return LoadCSV(path)
	case FormatYAML:
		return LoadYAML(path)
	case "":
		ext := strings.ToLower(filepath.Ext(path))
		if ext == ".yaml" || ext == ".yml" {
			return LoadYAML(path)
		}
		return LoadCSV(path)
	}
	return nil, fmt.Errorf("unknown catalog format %q", format)
}

// ---------------------------------------------------------------------------
// engine.Catalog
// ---------------------------------------------------------------------------

func (c *Catalog) Movement(space string, visit engine.VisitType) (engine.Movement, bool) {
	m, ok := c.movement[key{space, visit}]
	return m, ok
}

func (c *Catalog) DiceOutcome(space string, visit engine.VisitType) (engine.DiceOutcome, bool) {
	d, ok := c.dice[key{space, visit}]
	return d, ok
}

func (c *Catalog) SpaceEffects(space string, visit engine.VisitType) []engine.SpaceEffect {
	return c.effects[key{space, visit}]
}

func (c *Catalog) DiceEffects(space string, visit engine.VisitType) []engine.DiceEffect {
	return c.diceEffects[key{space, visit}]
}

func (c *Catalog) SpaceContent(space string, visit engine.VisitType) (engine.SpaceContent, bool) {
	s, ok := c.content[key{space, visit}]
	return s, ok
}

func (c *Catalog) SpaceConfig(space string) (engine.SpaceConfig, bool) {
	s, ok := c.config[space]
	return s, ok
}

func (c *Catalog) Card(id string) (engine.Card, bool) {
	i, ok := c.cardByID[id]
	if !ok {
		return engine.Card{}, false
	}
	return c.cards[i], true
}

func (c *Catalog) Cards(t engine.CardType) []engine.Card {
	var out []engine.Card
	for _, card := range c.cards {
		if card.Type == t {
			out = append(out, card)
		}
	}
	return out
}

func (c *Catalog) StartingSpace() string { return c.start }

// Spaces lists every space named anywhere in the catalog, in first-seen order.
func (c *Catalog) Spaces() []string {
	return append([]string(nil), c.spaces...)
}

// CardCount returns the number of cards in the catalog.
func (c *Catalog) CardCount() int { return len(c.cards) }

// ---------------------------------------------------------------------------
// Building
// ---------------------------------------------------------------------------

func (c *Catalog) noteSpace(space string) {
	if space != "" && !c.seen[space] {
		c.seen[space] = true
		c.spaces = append(c.spaces, space)
	}
}

func (c *Catalog) addMovement(m engine.Movement) {
	c.noteSpace(m.Space)
	c.movement[key{m.Space, m.Visit}] = m
}

func (c *Catalog) addDiceOutcome(d engine.DiceOutcome) {
	c.noteSpace(d.Space)
	c.dice[key{d.Space, d.Visit}] = d
}

func (c *Catalog) addEffect(se engine.SpaceEffect) {
	c.noteSpace(se.Space)
	k := key{se.Space, se.Visit}
	c.effects[k] = append(c.effects[k], se)
}

func (c *Catalog) addDiceEffect(de engine.DiceEffect) {
	c.noteSpace(de.Space)
	k := key{de.Space, de.Visit}
	c.diceEffects[k] = append(c.diceEffects[k], de)
}

func (c *Catalog) addContent(sc engine.SpaceContent) {
	c.noteSpace(sc.Space)
	c.content[key{sc.Space, sc.Visit}] = sc
}

func (c *Catalog) addConfig(cfg engine.SpaceConfig) {
	c.noteSpace(cfg.Space)
	c.config[cfg.Space] = cfg
}

func (c *Catalog) addCard(card engine.Card) error {
	if _, dup := c.cardByID[card.ID]; dup {
		return fmt.Errorf("duplicate card id %q", card.ID)
	}
	c.cardByID[card.ID] = len(c.cards)
	c.cards = append(c.cards, card)
	return nil
}

// finish picks the starting space once every row is loaded.
func (c *Catalog) finish() error {
	var starts []string
	for space, cfg := range c.config {
		if cfg.IsStarting {
			starts = append(starts, space)
		}
	}
	sort.Strings(starts)
	switch {
	case len(starts) > 0:
		c.start = starts[0]
	case len(c.spaces) > 0:
		c.start = c.spaces[0]
	default:
		return fmt.Errorf("catalog defines no spaces")
	}
	return nil
}
