package catalog

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/tomaszsb/Game-alpha-sub005/engine"
)

// CSV file names inside a catalog directory. Only MOVEMENT.csv is required.
const (
	FileMovement     = "MOVEMENT.csv"
	FileDiceOutcomes = "DICE_OUTCOMES.csv"
	FileSpaceEffects = "SPACE_EFFECTS.csv"
	FileDiceEffects  = "DICE_EFFECTS.csv"
	FileSpaceContent = "SPACE_CONTENT.csv"
	FileGameConfig   = "GAME_CONFIG.csv"
	FileCards        = "CARDS.csv"
)

const maxDestinations = 5

// row is one CSV record keyed by lower-cased header.
type row map[string]string

func (r row) get(col string) string { return strings.TrimSpace(r[col]) }

// LoadCSV reads a catalog directory.
func LoadCSV(dir string) (*Catalog, error) {
	c := newCatalog()
	steps := []struct {
		file     string
		required bool
		apply    func(row) error
	}{
		{FileGameConfig, false, c.applyConfigRow},
		{FileMovement, true, c.applyMovementRow},
		{FileDiceOutcomes, false, c.applyDiceOutcomeRow},
		{FileSpaceEffects, false, c.applySpaceEffectRow},
		{FileDiceEffects, false, c.applyDiceEffectRow},
		{FileSpaceContent, false, c.applyContentRow},
		{FileCards, false, c.applyCardRow},
	}
	for _, s := range steps {
		rows, err := readCSV(filepath.Join(dir, s.file))
		if errors.Is(err, fs.ErrNotExist) && !s.required {
			continue
		}
		if err != nil {
			return nil, err
		}
		for i, r := range rows {
			if err := s.apply(r); err != nil {
				// +2: header line and 1-based numbering
				return nil, fmt.Errorf("%s line %d: %w", s.file, i+2, err)
			}
		}
	}
	if err := c.finish(); err != nil {
		return nil, err
	}
	return c, nil
}

func readCSV(path string) ([]row, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return parseCSV(f)
}

func parseCSV(r io.Reader) ([]row, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err == io.EOF {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	for i := range header {
		header[i] = strings.ToLower(strings.TrimSpace(strings.TrimPrefix(header[i], "\ufeff")))
	}

	var rows []row
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			return rows, nil
		}
		if err != nil {
			return nil, err
		}
		r := make(row, len(header))
		blank := true
		for i, v := range rec {
			if i < len(header) {
				r[header[i]] = v
			}
			if strings.TrimSpace(v) != "" {
				blank = false
			}
		}
		if !blank {
			rows = append(rows, r)
		}
	}
}

func (c *Catalog) applyConfigRow(r row) error {
	space := r.get("space_name")
	if space == "" {
		return errors.New("missing space_name")
	}
	requires := true
	if v, ok := r["requires_dice_roll"]; ok && strings.TrimSpace(v) != "" {
		requires = parseBool(v)
	}
	c.addConfig(engine.SpaceConfig{
		Space:            space,
		Phase:            r.get("phase"),
		IsStarting:       parseBool(r.get("is_starting_space")),
		IsEnding:         parseBool(r.get("is_ending_space")),
		RequiresDiceRoll: requires,
	})
	return nil
}

func (c *Catalog) applyMovementRow(r row) error {
	space := r.get("space_name")
	if space == "" {
		return errors.New("missing space_name")
	}
	visit, err := parseVisit(r.get("visit_type"))
	if err != nil {
		return err
	}
	mt, err := parseMovementType(r.get("movement_type"))
	if err != nil {
		return err
	}
	m := engine.Movement{Space: space, Visit: visit, Type: mt}
	for i := 1; i <= maxDestinations; i++ {
		if d := r.get("destination_" + strconv.Itoa(i)); d != "" {
			m.Destinations = append(m.Destinations, d)
		}
	}
	c.addMovement(m)
	for _, d := range m.Destinations {
		c.noteSpace(d)
	}
	return nil
}

// applyDiceOutcomeRow reads roll_N columns where N is the two-dice total.
func (c *Catalog) applyDiceOutcomeRow(r row) error {
	space := r.get("space_name")
	visit, err := parseVisit(r.get("visit_type"))
	if err != nil {
		return err
	}
	d := engine.DiceOutcome{Space: space, Visit: visit, Destinations: make(map[int]string)}
	for roll := 1; roll <= engine.MaxRoll; roll++ {
		if dest := r.get("roll_" + strconv.Itoa(roll)); dest != "" {
			d.Destinations[roll] = dest
			c.noteSpace(dest)
		}
	}
	c.addDiceOutcome(d)
	return nil
}

func (c *Catalog) applySpaceEffectRow(r row) error {
	space := r.get("space_name")
	visits, err := visitsFor(r.get("visit_type"))
	if err != nil {
		return err
	}
	er := effectRow{
		Type:        r.get("effect_type"),
		Action:      r.get("effect_action"),
		Value:       r.get("effect_value"),
		Condition:   r.get("condition"),
		Trigger:     r.get("trigger_type"),
		Description: r.get("description"),
		ChoiceType:  r.get("choice_type"),
	}
	for _, v := range visits {
		se, err := er.decode(space, v)
		if err != nil {
			return err
		}
		c.addEffect(se)
	}
	return nil
}

func (c *Catalog) applyDiceEffectRow(r row) error {
	space := r.get("space_name")
	visits, err := visitsFor(r.get("visit_type"))
	if err != nil {
		return err
	}
	kind, err := parseEffectKind(r.get("effect_type"))
	if err != nil {
		return err
	}
	var ct engine.CardType
	if kind == engine.EffectCards {
		if ct, err = parseCardType(r.get("card_type")); err != nil {
			return err
		}
	}
	byRoll := make(map[int]int)
	for roll := 1; roll <= engine.MaxRoll; roll++ {
		v := r.get("roll_" + strconv.Itoa(roll))
		if v == "" {
			continue
		}
		n, err := ParseAmount(v)
		if err != nil {
			return fmt.Errorf("roll_%d: %w", roll, err)
		}
		byRoll[roll] = n
	}
	for _, v := range visits {
		c.addDiceEffect(engine.DiceEffect{Space: space, Visit: v, Kind: kind, CardType: ct, ByRoll: byRoll})
	}
	return nil
}

func (c *Catalog) applyContentRow(r row) error {
	space := r.get("space_name")
	visits, err := visitsFor(r.get("visit_type"))
	if err != nil {
		return err
	}
	for _, v := range visits {
		c.addContent(engine.SpaceContent{
			Space:        space,
			Visit:        v,
			Title:        r.get("title"),
			Story:        r.get("story"),
			CanNegotiate: parseBool(r.get("can_negotiate")),
		})
	}
	return nil
}

func (c *Catalog) applyCardRow(r row) error {
	id := r.get("card_id")
	if id == "" {
		return errors.New("missing card_id")
	}
	ct, err := parseCardType(r.get("card_type"))
	if err != nil {
		return err
	}
	card := engine.Card{
		ID:          id,
		Name:        r.get("card_name"),
		Type:        ct,
		Description: r.get("description"),
	}
	if v := r.get("cost"); v != "" {
		if card.Cost, err = ParseAmount(v); err != nil {
			return err
		}
	}
	return c.addCard(card)
}
