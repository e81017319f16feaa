package models

// DecisionOutcome tags a triage verdict for a photo.
type DecisionOutcome string

const (
	DecisionKept    DecisionOutcome = "kept"
	DecisionDeleted DecisionOutcome = "deleted"
)

// LastAction is the single-slot memory of the most recent decision. It is
// overwritten by each new decision and cleared once an undo consumes it.
type LastAction struct {
	Outcome DecisionOutcome `json:"outcome"`
	Photo   PhotoRecord     `json:"photo"`
}
