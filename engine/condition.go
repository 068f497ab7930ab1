package engine

import "fmt"

// ConditionKind names a guard evaluated when an effect is applied.
type ConditionKind string

const (
	CondAlways   ConditionKind = "always"
	CondDiceRoll ConditionKind = "dice_roll" // roll total equals Value
	CondScopeLE  ConditionKind = "scope_le"  // project scope <= Value
	CondScopeGT  ConditionKind = "scope_gt"  // project scope > Value
	CondMoneyLT  ConditionKind = "money_lt"
	CondMoneyGE  ConditionKind = "money_ge"
)

// Condition guards a single effect. The zero value always holds.
type Condition struct {
	Kind  ConditionKind
	Value int
}

// Always is the unconditional guard.
var Always = Condition{Kind: CondAlways}

// DependsOnDice reports whether the guard can only be decided after a roll.
func (c Condition) DependsOnDice() bool {
	return c.Kind == CondDiceRoll
}

func (c Condition) String() string {
	if c.Kind == "" || c.Kind == CondAlways {
		return string(CondAlways)
	}
	return fmt.Sprintf("%s_%d", c.Kind, c.Value)
}

// conditionInput is the player context a Condition is evaluated against.
type conditionInput struct {
	money int
	scope int
	dice  int // 0 when no roll has happened this turn
}

// met evaluates the guard. A dice guard never holds before a roll.
func (c Condition) met(in conditionInput) bool {
	switch c.Kind {
	case "", CondAlways:
		return true
	case CondDiceRoll:
		return in.dice != 0 && in.dice == c.Value
	case CondScopeLE:
		return in.scope <= c.Value
	case CondScopeGT:
		return in.scope > c.Value
	case CondMoneyLT:
		return in.money < c.Value
	case CondMoneyGE:
		return in.money >= c.Value
	}
	return false
}
