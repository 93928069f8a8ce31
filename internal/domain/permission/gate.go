// Package permission decides whether an actor may act on a claim or a vendor change request.
// Every function here is a pure predicate over actor capabilities and the
// applicant/approver relationship. Role names and display text are never consulted.
package permission

import (
	"github.com/garyjia/claimflow/internal/domain/entity"
	"github.com/garyjia/claimflow/internal/domain/workflow"
)

// CanTransition reports whether actor may fire trigger on claim, whose owner is applicant.
// Combinations absent from the transition table are always denied.
func CanTransition(actor, applicant *entity.Actor, claim *entity.Claim, trigger workflow.Trigger) bool {
	if actor == nil || claim == nil {
		return false
	}
	isApplicant := actor.ID == claim.ApplicantID
	finance := actor.Has(entity.CapabilityFinanceAudit)

	switch claim.Status {
	case workflow.StateDraft:
		return trigger == workflow.TriggerSubmit && isApplicant

	case workflow.StatePendingApproval:
		switch trigger {
		case workflow.TriggerApprove, workflow.TriggerReject:
			return actor.IsApproverOf(applicant) && applicant.ID == claim.ApplicantID
		case workflow.TriggerWithdraw:
			return isApplicant
		}

	case workflow.StatePendingFinance:
		switch trigger {
		case workflow.TriggerApprove, workflow.TriggerReject:
			return finance
		case workflow.TriggerWithdraw:
			return isApplicant
		}

	case workflow.StatePendingFinanceReview:
		switch trigger {
		case workflow.TriggerConfirmEvidence, workflow.TriggerRejectEvidence:
			return finance
		}

	case workflow.StatePendingEvidence:
		return trigger == workflow.TriggerSubmitEvidence && isApplicant

	case workflow.StateRejected:
		switch trigger {
		case workflow.TriggerSubmit, workflow.TriggerCancel:
			return isApplicant
		}

	case workflow.StateApproved:
		return trigger == workflow.TriggerPay && finance
	}

	return false
}

// CanEdit reports whether actor may change the mutable fields of claim
func CanEdit(actor *entity.Actor, claim *entity.Claim) bool {
	if actor == nil || claim == nil {
		return false
	}
	return actor.ID == claim.ApplicantID ||
		actor.Has(entity.CapabilityFinanceAudit) ||
		actor.Has(entity.CapabilityUserManagement)
}

// CanDelete reports whether actor may delete claim. Only the applicant may.
func CanDelete(actor *entity.Actor, claim *entity.Claim) bool {
	return actor != nil && claim != nil && actor.ID == claim.ApplicantID
}

// CanRunPayment reports whether actor may create or cancel payment batches
func CanRunPayment(actor *entity.Actor) bool {
	return actor.Has(entity.CapabilityFinanceAudit)
}

// CanDecideVendorRequest reports whether actor may approve or reject vendor change requests
func CanDecideVendorRequest(actor *entity.Actor) bool {
	return actor.Has(entity.CapabilityFinanceAudit)
}

// CanProposeVendorChange reports whether actor may file a vendor change request.
// Any identified actor may propose.
func CanProposeVendorChange(actor *entity.Actor) bool {
	return actor != nil && actor.ID != ""
}
