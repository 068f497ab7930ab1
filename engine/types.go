package engine

// GamePhase is the coarse lifecycle of a match.
type GamePhase string

const (
	PhaseSetup GamePhase = "SETUP"
	PhasePlay  GamePhase = "PLAY"
	PhaseEnd   GamePhase = "END"
)

// VisitType distinguishes a player's first arrival on a space from a return visit.
type VisitType string

const (
	VisitFirst      VisitType = "First"
	VisitSubsequent VisitType = "Subsequent"
)

// CardType is one of the five card buckets.
type CardType string

const (
	CardWork      CardType = "W"
	CardBank      CardType = "B"
	CardInvestor  CardType = "I"
	CardLife      CardType = "L"
	CardEquipment CardType = "E"
)

// CardTypes lists every bucket in a fixed order, used when iterating decks.
var CardTypes = [...]CardType{CardWork, CardBank, CardInvestor, CardLife, CardEquipment}

// Valid reports whether t names one of the five buckets.
func (t CardType) Valid() bool {
	for _, c := range CardTypes {
		if c == t {
			return true
		}
	}
	return false
}

// MovementType describes how a space's destinations are chosen.
type MovementType string

const (
	MovementNone   MovementType = "none"
	MovementFixed  MovementType = "fixed"
	MovementChoice MovementType = "choice"
	MovementDice   MovementType = "dice"
)

// ChoiceType tags what a Choice decides.
type ChoiceType string

const (
	ChoiceMovement   ChoiceType = "MOVEMENT"
	ChoiceCardEffect ChoiceType = "CARD_EFFECT"
	ChoiceGeneric    ChoiceType = "GENERIC"
)

// TriggerType says when a space effect fires.
type TriggerType string

const (
	TriggerAuto   TriggerType = "auto"   // on turn start at the space
	TriggerManual TriggerType = "manual" // on an explicit player action
	TriggerDice   TriggerType = "dice"   // as part of rollDice
)

// TurnStage is the per-turn protocol state, derived from GameState flags.
type TurnStage uint8

const (
	StageAwaitingRoll TurnStage = iota
	StageRollApplied
	StageAwaitingManualActions
	StageAwaitingMovementChoice
	StageReadyToEnd
	StageEnded
)

func (s TurnStage) String() string {
	switch s {
	case StageAwaitingRoll:
		return "AwaitingRoll"
	case StageRollApplied:
		return "RollApplied"
	case StageAwaitingManualActions:
		return "AwaitingManualActions"
	case StageAwaitingMovementChoice:
		return "AwaitingMovementChoice"
	case StageReadyToEnd:
		return "ReadyToEnd"
	case StageEnded:
		return "Ended"
	}
	return "Unknown"
}

// NegotiationStatus tracks an open offer cycle.
type NegotiationStatus string

const (
	NegotiationMakingOffer NegotiationStatus = "making_offer"
)

// Die bounds. A roll is the sum of two dice.
const (
	DieFaces = 6
	MinRoll  = 2
	MaxRoll  = 12
)
