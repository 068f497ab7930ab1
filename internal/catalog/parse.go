package catalog

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/tomaszsb/Game-alpha-sub005/engine"
)

// ParseAmount parses catalog magnitudes such as "500", "$1,200", "-3",
// "1.5M" or "250k".
func ParseAmount(s string) (int, error) {
	v := strings.TrimSpace(s)
	neg := strings.HasPrefix(v, "-")
	v = strings.TrimPrefix(v, "-")
	v = strings.TrimPrefix(v, "$")
	v = strings.ReplaceAll(v, ",", "")

	mult := 1.0
	switch {
	case strings.HasSuffix(v, "k"), strings.HasSuffix(v, "K"):
		mult, v = 1e3, v[:len(v)-1]
	case strings.HasSuffix(v, "m"), strings.HasSuffix(v, "M"):
		mult, v = 1e6, v[:len(v)-1]
	}
	if v == "" {
		return 0, fmt.Errorf("empty amount %q", s)
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid amount %q", s)
	}
	n := int(math.Round(f * mult))
	if neg {
		n = -n
	}
	return n, nil
}

// parsePercent parses "1%" style values. ok is false when s has no % sign.
func parsePercent(s string) (pct int, ok bool, err error) {
	v := strings.TrimSpace(s)
	if !strings.HasSuffix(v, "%") {
		return 0, false, nil
	}
	n, err := ParseAmount(strings.TrimSuffix(v, "%"))
	return n, true, err
}

var conditionKinds = []engine.ConditionKind{
	engine.CondDiceRoll,
	engine.CondScopeLE,
	engine.CondScopeGT,
	engine.CondMoneyLT,
	engine.CondMoneyGE,
}

// ParseCondition parses guards like "always", "dice_roll_3" or "scope_le_4M".
func ParseCondition(s string) (engine.Condition, error) {
	v := strings.ToLower(strings.TrimSpace(s))
	if v == "" || v == string(engine.CondAlways) {
		return engine.Always, nil
	}
	for _, k := range conditionKinds {
		prefix := string(k) + "_"
		if !strings.HasPrefix(v, prefix) {
			continue
		}
		n, err := ParseAmount(strings.TrimPrefix(v, prefix))
		if err != nil {
			return engine.Condition{}, fmt.Errorf("condition %q: %w", s, err)
		}
		return engine.Condition{Kind: k, Value: n}, nil
	}
	return engine.Condition{}, fmt.Errorf("unknown condition %q", s)
}

func parseBool(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "yes", "y", "true", "1":
		return true
	}
	return false
}

func parseVisit(s string) (engine.VisitType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "first":
		return engine.VisitFirst, nil
	case "subsequent":
		return engine.VisitSubsequent, nil
	}
	return "", fmt.Errorf("unknown visit type %q", s)
}

// visitsFor expands "any"/"both"/"" to both visit types.
func visitsFor(s string) ([]engine.VisitType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "any", "both":
		return []engine.VisitType{engine.VisitFirst, engine.VisitSubsequent}, nil
	}
	v, err := parseVisit(s)
	if err != nil {
		return nil, err
	}
	return []engine.VisitType{v}, nil
}

func parseMovementType(s string) (engine.MovementType, error) {
	switch t := engine.MovementType(strings.ToLower(strings.TrimSpace(s))); t {
	case engine.MovementNone, engine.MovementFixed, engine.MovementChoice, engine.MovementDice:
		return t, nil
	case "":
		return engine.MovementNone, nil
	}
	return "", fmt.Errorf("unknown movement type %q", s)
}

func parseTrigger(s string) (engine.TriggerType, error) {
	switch t := engine.TriggerType(strings.ToLower(strings.TrimSpace(s))); t {
	case engine.TriggerAuto, engine.TriggerManual, engine.TriggerDice:
		return t, nil
	case "":
		return engine.TriggerAuto, nil
	}
	return "", fmt.Errorf("unknown trigger type %q", s)
}

func parseCardType(s string) (engine.CardType, error) {
	t := engine.CardType(strings.ToUpper(strings.TrimSpace(s)))
	if !t.Valid() {
		return "", fmt.Errorf("unknown card type %q", s)
	}
	return t, nil
}

// effectRow is one undecoded effect, shared by the CSV and YAML formats.
type effectRow struct {
	Type        string      `yaml:"type"`
	Action      string      `yaml:"action"`
	Value       string      `yaml:"value"`
	Condition   string      `yaml:"condition"`
	Trigger     string      `yaml:"trigger"`
	Description string      `yaml:"description"`
	ChoiceType  string      `yaml:"choiceType"`
	Prompt      string      `yaml:"prompt"`
	Options     []optionRow `yaml:"options"`
}

type optionRow struct {
	ID      string      `yaml:"id"`
	Label   string      `yaml:"label"`
	Effects []effectRow `yaml:"effects"`
}

// decode turns a row into a SpaceEffect for space/visit.
func (r effectRow) decode(space string, visit engine.VisitType) (engine.SpaceEffect, error) {
	cond, err := ParseCondition(r.Condition)
	if err != nil {
		return engine.SpaceEffect{}, err
	}
	trig, err := parseTrigger(r.Trigger)
	if err != nil {
		return engine.SpaceEffect{}, err
	}
	eff, err := r.effect(space, visit)
	if err != nil {
		return engine.SpaceEffect{}, err
	}
	return engine.SpaceEffect{
		Space:       space,
		Visit:       visit,
		Trigger:     trig,
		Condition:   cond,
		Effect:      eff,
		Description: r.Description,
	}, nil
}

func (r effectRow) effect(space string, visit engine.VisitType) (engine.Effect, error) {
	action := strings.ToLower(strings.TrimSpace(r.Action))
	switch kind := strings.ToLower(strings.TrimSpace(r.Type)); kind {
	case "money", "fee":
		if pct, ok, err := parsePercent(r.Value); ok {
			if err != nil {
				return nil, err
			}
			return engine.FeeEffect{Percent: pct}, nil
		}
		n, err := ParseAmount(r.Value)
		if err != nil {
			return nil, err
		}
		if kind == "fee" || isSubtract(action) {
			n = -n
		}
		return engine.MoneyEffect{Delta: n}, nil

	case "time":
		n, err := ParseAmount(r.Value)
		if err != nil {
			return nil, err
		}
		if isSubtract(action) {
			n = -n
		}
		return engine.TimeEffect{Delta: n}, nil

	case "cards":
		verb, typ, ok := strings.Cut(action, "_")
		if !ok {
			return nil, fmt.Errorf("card action %q must look like draw_w", r.Action)
		}
		ct, err := parseCardType(typ)
		if err != nil {
			return nil, err
		}
		n, err := ParseAmount(r.Value)
		if err != nil {
			return nil, err
		}
		var ca engine.CardAction
		switch verb {
		case "draw":
			ca = engine.CardDraw
		case "remove", "discard", "return":
			ca = engine.CardRemove
		case "replace":
			ca = engine.CardReplace
		default:
			return nil, fmt.Errorf("unknown card action %q", r.Action)
		}
		return engine.CardEffect{Action: ca, Type: ct, Count: n}, nil

	case "turn":
		if action != "skip" {
			return nil, fmt.Errorf("unknown turn action %q", r.Action)
		}
		n, err := ParseAmount(r.Value)
		if err != nil {
			return nil, err
		}
		return engine.SkipTurnEffect{Turns: n}, nil

	case "movement", "move":
		dest := strings.TrimSpace(r.Value)
		if dest == "" {
			return nil, fmt.Errorf("movement effect needs a destination")
		}
		return engine.MoveEffect{Destination: dest}, nil

	case "choice":
		return r.choice(space, visit)
	}
	return nil, fmt.Errorf("unknown effect type %q", r.Type)
}

func (r effectRow) choice(space string, visit engine.VisitType) (engine.Effect, error) {
	ce := engine.ChoiceEffect{
		Type:     engine.ChoiceGeneric,
		Prompt:   r.Prompt,
		Outcomes: make(map[string][]engine.SpaceEffect),
	}
	switch strings.ToUpper(strings.TrimSpace(r.ChoiceType)) {
	case string(engine.ChoiceMovement):
		ce.Type = engine.ChoiceMovement
	case string(engine.ChoiceCardEffect), "CARD":
		ce.Type = engine.ChoiceCardEffect
	}
	if ce.Prompt == "" {
		ce.Prompt = r.Description
	}

	options := r.Options
	if len(options) == 0 {
		// Flat rows list bare option ids in the value column.
		for _, id := range strings.Split(r.Value, "|") {
			if id = strings.TrimSpace(id); id != "" {
				options = append(options, optionRow{ID: id})
			}
		}
	}
	if len(options) == 0 {
		return nil, fmt.Errorf("choice %q has no options", ce.Prompt)
	}
	for _, o := range options {
		label := o.Label
		if label == "" {
			label = o.ID
		}
		ce.Options = append(ce.Options, engine.ChoiceOption{ID: o.ID, Label: label})
		for _, row := range o.Effects {
			se, err := row.decode(space, visit)
			if err != nil {
				return nil, fmt.Errorf("option %s: %w", o.ID, err)
			}
			ce.Outcomes[o.ID] = append(ce.Outcomes[o.ID], se)
		}
	}
	return ce, nil
}

func isSubtract(action string) bool {
	switch action {
	case "subtract", "deduct", "decrease", "pay", "charge", "remove":
		return true
	}
	return false
}

func parseEffectKind(s string) (engine.EffectKind, error) {
	switch k := engine.EffectKind(strings.ToLower(strings.TrimSpace(s))); k {
	case engine.EffectCards, engine.EffectMoney, engine.EffectTime:
		return k, nil
	}
	return "", fmt.Errorf("unknown dice effect type %q", s)
}
