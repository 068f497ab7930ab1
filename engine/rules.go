package engine

import (
	"math"
	"time"
)

// Rules holds configurable game rule settings.
type Rules struct {
	StartingMoney          int
	MoneyFloor             int           // money never drops below this; math.MinInt disables the floor
	NegotiationTimePenalty int           // days added to timeSpent when an offer is declined
	AutoPlayDelay          time.Duration // cosmetic pause before an AI seat acts
	MaxPlayers             int
}

// DefaultRules returns the standard rule set.
func DefaultRules() Rules {
	return Rules{
		StartingMoney:          0,
		MoneyFloor:             math.MinInt,
		NegotiationTimePenalty: 1,
		AutoPlayDelay:          1500 * time.Millisecond,
		MaxPlayers:             4,
	}
}

// clampMoney applies the money floor.
func (r *Rules) clampMoney(v int) int {
	if v < r.MoneyFloor {
		return r.MoneyFloor
	}
	return v
}
