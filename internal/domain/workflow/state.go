package workflow

// State represents a claim status in the approval lifecycle
type State string

const (
	StateDraft                State = "draft"
	StatePendingApproval      State = "pending_approval"
	StatePendingFinance       State = "pending_finance"
	StatePendingFinanceReview State = "pending_finance_review"
	StatePendingEvidence      State = "pending_evidence"
	StateApproved             State = "approved"
	StateCompleted            State = "completed"
	StateRejected             State = "rejected"
	StateCancelled            State = "cancelled"
)

var validStates = map[State]bool{
	StateDraft:                true,
	StatePendingApproval:      true,
	StatePendingFinance:       true,
	StatePendingFinanceReview: true,
	StatePendingEvidence:      true,
	StateApproved:             true,
	StateCompleted:            true,
	StateRejected:             true,
	StateCancelled:            true,
}

var terminalStates = map[State]bool{
	StateCompleted: true,
	StateCancelled: true,
}

// Fields other than status may only change while the claim sits in one of these states.
var editableStates = map[State]bool{
	StateDraft:           true,
	StateRejected:        true,
	StatePendingEvidence: true,
}

// AllStates returns every claim status in lifecycle order
func AllStates() []State {
	return []State{
		StateDraft,
		StatePendingApproval,
		StatePendingFinance,
		StatePendingFinanceReview,
		StatePendingEvidence,
		StateApproved,
		StateCompleted,
		StateRejected,
		StateCancelled,
	}
}

// IsTerminal returns true if the state is a terminal state (no further transitions allowed)
func (s State) IsTerminal() bool {
	return terminalStates[s]
}

// IsEditable returns true if claim fields may be edited in this state
func (s State) IsEditable() bool {
	return editableStates[s]
}

// String returns the string representation of the state
func (s State) String() string {
	return string(s)
}

// IsValid returns true if the state is a valid claim status
func (s State) IsValid() bool {
	return validStates[s]
}
