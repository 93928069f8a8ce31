package workflow

import "context"

// Facts carries the claim properties that decide between guarded targets of one trigger.
// Authorization is not a fact: the permission gate decides who may fire a trigger.
type Facts struct {
	// ApplicantHasApprover selects pending_approval over pending_finance on submit
	ApplicantHasApprover bool

	// InvoiceObtained selects completed over pending_evidence on batch payment
	InvoiceObtained bool
}

// Edge is one declared transition of the table
type Edge struct {
	From    State
	Trigger Trigger
	To      State
}

// StateMachine represents a state machine that tracks current state and validates transitions
type StateMachine interface {
	// State returns the current state
	State() State

	// CanFire returns true if the trigger is declared for the current state
	CanFire(trigger Trigger) bool

	// Resolve returns the state the trigger would lead to without changing the machine
	Resolve(ctx context.Context, trigger Trigger, facts Facts) (State, error)

	// Fire attempts to execute the trigger, transitioning to the new state if allowed
	Fire(ctx context.Context, trigger Trigger, facts Facts) error

	// PermittedTriggers returns all triggers declared for the current state
	PermittedTriggers() []Trigger
}
