package engine

import (
	"errors"
	"fmt"
)

// RejectionCode categorizes a refused command.
type RejectionCode string

const (
	ErrCodeUnknownPlayer         RejectionCode = "UNKNOWN_PLAYER"
	ErrCodeWrongPhase            RejectionCode = "WRONG_PHASE"
	ErrCodeNotPlayersTurn        RejectionCode = "NOT_PLAYERS_TURN"
	ErrCodeTurnNotStarted        RejectionCode = "TURN_NOT_STARTED"
	ErrCodeTurnAlreadyStarted    RejectionCode = "TURN_ALREADY_STARTED"
	ErrCodeDoubleRoll            RejectionCode = "DOUBLE_ROLL"
	ErrCodeRollDisabled          RejectionCode = "ROLL_DISABLED"
	ErrCodeManualEffectDone      RejectionCode = "MANUAL_EFFECT_DONE"
	ErrCodeNoManualEffect        RejectionCode = "NO_MANUAL_EFFECT"
	ErrCodeQuotaNotMet           RejectionCode = "QUOTA_NOT_MET"
	ErrCodeChoicePending         RejectionCode = "CHOICE_PENDING"
	ErrCodeNoChoice              RejectionCode = "NO_CHOICE"
	ErrCodeChoiceMismatch        RejectionCode = "CHOICE_MISMATCH"
	ErrCodeChoiceResolved        RejectionCode = "CHOICE_ALREADY_RESOLVED"
	ErrCodeInvalidOption         RejectionCode = "INVALID_OPTION"
	ErrCodeInvalidDestination    RejectionCode = "INVALID_DESTINATION"
	ErrCodeNegotiationIneligible RejectionCode = "NEGOTIATION_INELIGIBLE"
	ErrCodeNegotiationActive     RejectionCode = "NEGOTIATION_ACTIVE"
	ErrCodeNoNegotiation         RejectionCode = "NO_NEGOTIATION"
	ErrCodeInvalidOffer          RejectionCode = "INVALID_OFFER"
	ErrCodeSeatsFull             RejectionCode = "SEATS_FULL"
	ErrCodeDuplicatePlayer       RejectionCode = "DUPLICATE_PLAYER"
)

// RejectionError reports a precondition violation. State is left unchanged.
type RejectionError struct {
	Code    RejectionCode
	Message string
}

func (e *RejectionError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func reject(code RejectionCode, format string, args ...any) error {
	return &RejectionError{Code: code, Message: fmt.Sprintf(format, args...)}
}

// IsRejection reports whether err is (or wraps) a RejectionError.
func IsRejection(err error) bool {
	var re *RejectionError
	return errors.As(err, &re)
}

// RejectionCodeOf returns the rejection code carried by err, or "" if none.
func RejectionCodeOf(err error) RejectionCode {
	var re *RejectionError
	if errors.As(err, &re) {
		return re.Code
	}
	return ""
}

// InvariantError signals an orchestration bug, such as a second outstanding
// choice or a reused negotiation snapshot. The operation is aborted.
type InvariantError struct {
	Invariant string
	Message   string
}

func (e *InvariantError) Error() string {
	return fmt.Sprintf("invariant %s violated: %s", e.Invariant, e.Message)
}

// IsInvariantError reports whether err is (or wraps) an InvariantError.
func IsInvariantError(err error) bool {
	var ie *InvariantError
	return errors.As(err, &ie)
}

// ErrChoiceCleared is delivered to AwaitChoice callers when the outstanding
// choice is removed by ResetChoice instead of being resolved.
var ErrChoiceCleared = errors.New("choice cleared without resolution")
