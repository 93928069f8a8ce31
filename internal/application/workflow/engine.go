package workflow

import (
	"context"
	"time"

	"github.com/garyjia/claimflow/internal/domain/entity"
	domainwf "github.com/garyjia/claimflow/internal/domain/workflow"
)

// PaymentDetailKey addresses the payment detail of a vendor-payment claim in Evidence maps
const PaymentDetailKey = "payment_detail"

// Evidence is the material an applicant hands in to leave pending_evidence
type Evidence struct {
	// Attachments maps a line item id, or PaymentDetailKey, to a stored attachment reference
	Attachments map[string]string

	// NoReceipt lists line item ids, or PaymentDetailKey, declared as unable to provide
	NoReceipt []string

	// Reason justifies every "no receipt" declaration on the claim
	Reason string
}

// Input carries the per-trigger arguments
type Input struct {
	// Reason is required by reject and reject_evidence, and recorded as the history note
	Reason string

	// Evidence is consumed by submit_evidence
	Evidence *Evidence

	// PaymentDate is set as datePaid by batch_payment
	PaymentDate time.Time

	// ExpectedStatus is the status the caller last saw. When set, Transition fails with
	// IllegalTransition if the stored claim is in any other status.
	ExpectedStatus domainwf.State
}

// ClaimEngine applies claim transitions
type ClaimEngine interface {
	// Apply checks trigger against the transition table, the permission gate and the input,
	// then returns an updated copy of claim with one history entry appended.
	// claim itself is never modified and nothing is persisted.
	Apply(ctx context.Context, actor, applicant *entity.Actor, claim *entity.Claim, trigger domainwf.Trigger, input Input) (*entity.Claim, error)

	// Transition loads the claim, applies trigger and saves the result atomically with a
	// compare-and-swap on input.ExpectedStatus, or on the status it read when that is empty.
	// Returns the authoritative claim.
	Transition(ctx context.Context, actor *entity.Actor, claimID string, trigger domainwf.Trigger, input Input) (*entity.Claim, error)

	// AvailableTriggers lists the triggers actor could fire on claim right now
	AvailableTriggers(ctx context.Context, actor *entity.Actor, claim *entity.Claim) ([]domainwf.Trigger, error)
}
