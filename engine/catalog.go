package engine

// Movement is one row of the movement table.
type Movement struct {
	Space        string
	Visit        VisitType
	Type         MovementType
	Destinations []string
}

// DiceOutcome maps a roll total to a destination for a dice-movement space.
type DiceOutcome struct {
	Space        string
	Visit        VisitType
	Destinations map[int]string
}

// SpaceEffect is one catalog effect attached to a space and visit type.
type SpaceEffect struct {
	Space       string
	Visit       VisitType
	Trigger     TriggerType
	Condition   Condition
	Effect      Effect
	Description string
}

// DiceEffect is a per-roll magnitude table applied when a player rolls.
type DiceEffect struct {
	Space    string
	Visit    VisitType
	Kind     EffectKind
	CardType CardType    // for card draws
	ByRoll   map[int]int // roll total -> magnitude
}

// SpaceContent carries the presentational text of a space.
type SpaceContent struct {
	Space        string
	Visit        VisitType
	Title        string
	Story        string
	CanNegotiate bool
}

// SpaceConfig carries per-space game flags.
type SpaceConfig struct {
	Space            string
	Phase            string
	IsStarting       bool
	IsEnding         bool
	RequiresDiceRoll bool
}

// Card is one catalog card.
type Card struct {
	ID          string
	Name        string
	Type        CardType
	Cost        int
	Description string
}

// Catalog is the read-only board data the engine consults. Lookups that
// find nothing degrade to safe defaults: no movement and an empty effect
// batch.
type Catalog interface {
	Movement(space string, visit VisitType) (Movement, bool)
	DiceOutcome(space string, visit VisitType) (DiceOutcome, bool)
	SpaceEffects(space string, visit VisitType) []SpaceEffect
	DiceEffects(space string, visit VisitType) []DiceEffect
	SpaceContent(space string, visit VisitType) (SpaceContent, bool)
	SpaceConfig(space string) (SpaceConfig, bool)
	Card(id string) (Card, bool)
	Cards(t CardType) []Card
	StartingSpace() string
}
