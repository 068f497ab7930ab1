package catalog

import (
	"fmt"
	"sort"

	"github.com/tomaszsb/Game-alpha-sub005/engine"
)

// Severity grades a catalog issue.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
)

// Issue is one problem found by Validate.
type Issue struct {
	Severity Severity
	Space    string
	Visit    engine.VisitType
	Message  string
}

func (i Issue) String() string {
	if i.Space == "" {
		return fmt.Sprintf("%s: %s", i.Severity, i.Message)
	}
	if i.Visit == "" {
		return fmt.Sprintf("%s: %s: %s", i.Severity, i.Space, i.Message)
	}
	return fmt.Sprintf("%s: %s/%s: %s", i.Severity, i.Space, i.Visit, i.Message)
}

// Validate cross-checks the tables. A catalog with error issues can still be
// served, but players may get stuck on the affected spaces.
func (c *Catalog) Validate() []Issue {
	var issues []Issue
	add := func(sev Severity, space string, visit engine.VisitType, format string, args ...interface{}) {
		issues = append(issues, Issue{Severity: sev, Space: space, Visit: visit, Message: fmt.Sprintf(format, args...)})
	}

	defined := make(map[string]bool)
	for k := range c.movement {
		defined[k.space] = true
	}
	for s := range c.config {
		defined[s] = true
	}

	keys := make([]key, 0, len(c.movement))
	for k := range c.movement {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].space != keys[j].space {
			return keys[i].space < keys[j].space
		}
		return keys[i].visit < keys[j].visit
	})

	for _, k := range keys {
		m := c.movement[k]
		_, hasDice := c.dice[k]
		switch m.Type {
		case engine.MovementDice:
			if !hasDice {
				add(SeverityError, k.space, k.visit, "dice movement without a dice outcome table")
			} else {
				for roll := engine.MinRoll; roll <= engine.MaxRoll; roll++ {
					if c.dice[k].Destinations[roll] == "" {
						add(SeverityWarning, k.space, k.visit, "no destination for roll %d", roll)
					}
				}
			}
			if cfg, ok := c.config[k.space]; ok && !cfg.RequiresDiceRoll {
				add(SeverityError, k.space, k.visit, "dice movement on a space that disables rolling")
			}
		case engine.MovementFixed, engine.MovementChoice:
			if len(m.Destinations) == 0 {
				add(SeverityError, k.space, k.visit, "%s movement with no destinations", m.Type)
			}
			if m.Type == engine.MovementFixed && len(m.Destinations) > 1 {
				add(SeverityWarning, k.space, k.visit, "fixed movement lists %d destinations; only the first is used", len(m.Destinations))
			}
		}
		if hasDice && m.Type != engine.MovementDice {
			add(SeverityWarning, k.space, k.visit, "dice outcomes on %s movement are ignored", m.Type)
		}
		for _, d := range engine.ValidMoves(c, k.space, k.visit) {
			if !defined[d] {
				add(SeverityError, k.space, k.visit, "destination %s is not a defined space", d)
			}
		}
	}

	for k := range c.dice {
		if _, ok := c.movement[k]; !ok {
			add(SeverityWarning, k.space, k.visit, "dice outcomes for a space with no movement row")
		}
	}

	if c.start == "" {
		add(SeverityError, "", "", "no starting space")
	} else if !defined[c.start] {
		add(SeverityError, c.start, "", "starting space has no movement or config row")
	}

	ending := false
	for _, cfg := range c.config {
		ending = ending || cfg.IsEnding
	}
	if !ending {
		add(SeverityWarning, "", "", "no ending space; games never finish")
	}
	return issues
}

// HasErrors reports whether any issue is an error.
func HasErrors(issues []Issue) bool {
	for _, i := range issues {
		if i.Severity == SeverityError {
			return true
		}
	}
	return false
}
