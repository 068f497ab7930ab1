package catalog

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/tomaszsb/Game-alpha-sub005/engine"
)

type yamlDocument struct {
	Spaces []yamlSpace `yaml:"spaces"`
	Cards  []yamlCard  `yaml:"cards"`
}

type yamlSpace struct {
	Name             string               `yaml:"name"`
	Phase            string               `yaml:"phase"`
	Starting         bool                 `yaml:"starting"`
	Ending           bool                 `yaml:"ending"`
	RequiresDiceRoll *bool                `yaml:"requiresDiceRoll"`
	Visits           map[string]yamlVisit `yaml:"visits"`
}

type yamlVisit struct {
	Movement struct {
		Type         string   `yaml:"type"`
		Destinations []string `yaml:"destinations"`
	} `yaml:"movement"`
	DiceOutcomes map[int]string   `yaml:"diceOutcomes"`
	Effects      []effectRow      `yaml:"effects"`
	DiceEffects  []yamlDiceEffect `yaml:"diceEffects"`
	Title        string           `yaml:"title"`
	Story        string           `yaml:"story"`
	CanNegotiate bool             `yaml:"canNegotiate"`
}

type yamlDiceEffect struct {
	Type     string         `yaml:"type"`
	CardType string         `yaml:"cardType"`
	Rolls    map[int]string `yaml:"rolls"`
}

type yamlCard struct {
	ID          string `yaml:"id"`
	Name        string `yaml:"name"`
	Type        string `yaml:"type"`
	Cost        string `yaml:"cost"`
	Description string `yaml:"description"`
}

// LoadYAML reads a single-document catalog.
func LoadYAML(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ParseYAML(data)
}

// ParseYAML decodes a catalog document.
func ParseYAML(data []byte) (*Catalog, error) {
	var doc yamlDocument
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decoding catalog: %w", err)
	}
	c := newCatalog()
	for _, s := range doc.Spaces {
		if err := c.applyYAMLSpace(s); err != nil {
			return nil, fmt.Errorf("space %s: %w", s.Name, err)
		}
	}
	for _, yc := range doc.Cards {
		ct, err := parseCardType(yc.Type)
		if err != nil {
			return nil, fmt.Errorf("card %s: %w", yc.ID, err)
		}
		card := engine.Card{ID: yc.ID, Name: yc.Name, Type: ct, Description: yc.Description}
		if yc.Cost != "" {
			if card.Cost, err = ParseAmount(yc.Cost); err != nil {
				return nil, fmt.Errorf("card %s: %w", yc.ID, err)
			}
		}
		if err := c.addCard(card); err != nil {
			return nil, err
		}
	}
	if err := c.finish(); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Catalog) applyYAMLSpace(s yamlSpace) error {
	if strings.TrimSpace(s.Name) == "" {
		return fmt.Errorf("missing name")
	}
	requires := true
	if s.RequiresDiceRoll != nil {
		requires = *s.RequiresDiceRoll
	}
	c.addConfig(engine.SpaceConfig{
		Space:            s.Name,
		Phase:            s.Phase,
		IsStarting:       s.Starting,
		IsEnding:         s.Ending,
		RequiresDiceRoll: requires,
	})

	// Map order is random; sort so "any" is applied before a specific visit
	// and can be overridden by it.
	names := make([]string, 0, len(s.Visits))
	for name := range s.Visits {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool {
		return visitRank(names[i]) < visitRank(names[j]) ||
			(visitRank(names[i]) == visitRank(names[j]) && names[i] < names[j])
	})

	for _, name := range names {
		yv := s.Visits[name]
		visits, err := visitsFor(name)
		if err != nil {
			return err
		}
		for _, v := range visits {
			if err := c.applyYAMLVisit(s.Name, v, yv); err != nil {
				return fmt.Errorf("%s: %w", v, err)
			}
		}
	}
	return nil
}

func visitRank(name string) int {
	switch strings.ToLower(name) {
	case "", "any", "both":
		return 0
	}
	return 1
}

func (c *Catalog) applyYAMLVisit(space string, v engine.VisitType, yv yamlVisit) error {
	mt, err := parseMovementType(yv.Movement.Type)
	if err != nil {
		return err
	}
	c.addMovement(engine.Movement{
		Space:        space,
		Visit:        v,
		Type:         mt,
		Destinations: append([]string(nil), yv.Movement.Destinations...),
	})
	for _, d := range yv.Movement.Destinations {
		c.noteSpace(d)
	}

	if len(yv.DiceOutcomes) > 0 {
		d := engine.DiceOutcome{Space: space, Visit: v, Destinations: make(map[int]string, len(yv.DiceOutcomes))}
		for roll, dest := range yv.DiceOutcomes {
			d.Destinations[roll] = dest
			c.noteSpace(dest)
		}
		c.addDiceOutcome(d)
	}

	for _, er := range yv.Effects {
		se, err := er.decode(space, v)
		if err != nil {
			return err
		}
		c.addEffect(se)
	}

	for _, yd := range yv.DiceEffects {
		kind, err := parseEffectKind(yd.Type)
		if err != nil {
			return err
		}
		de := engine.DiceEffect{Space: space, Visit: v, Kind: kind, ByRoll: make(map[int]int, len(yd.Rolls))}
		if kind == engine.EffectCards {
			if de.CardType, err = parseCardType(yd.CardType); err != nil {
				return err
			}
		}
		for roll, amount := range yd.Rolls {
			n, err := ParseAmount(amount)
			if err != nil {
				return fmt.Errorf("roll %d: %w", roll, err)
			}
			de.ByRoll[roll] = n
		}
		c.addDiceEffect(de)
	}

	if yv.Title != "" || yv.Story != "" || yv.CanNegotiate {
		c.addContent(engine.SpaceContent{
			Space:        space,
			Visit:        v,
			Title:        yv.Title,
			Story:        yv.Story,
			CanNegotiate: yv.CanNegotiate,
		})
	}
	return nil
}
