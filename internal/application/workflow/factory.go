package workflow

import (
	"context"
	"sync"

	domainwf "github.com/garyjia/claimflow/internal/domain/workflow"
)

var (
	tableOnce sync.Once
	table     domainwf.StateMachineBuilder
)

func hasApprover(_ context.Context, f domainwf.Facts) bool { return f.ApplicantHasApprover }
func noApprover(_ context.Context, f domainwf.Facts) bool { return !f.ApplicantHasApprover }
func invoiceIn(_ context.Context, f domainwf.Facts) bool { return f.InvoiceObtained }
func invoiceOwed(_ context.Context, f domainwf.Facts) bool { return !f.InvoiceObtained }

// claimTable declares every legal claim transition exactly once
func claimTable() domainwf.StateMachineBuilder {
	tableOnce.Do(func() {
		b := domainwf.NewBuilder()

		// DRAFT: submit routes on whether the applicant has an approver
		b.Configure(domainwf.StateDraft).
			PermitIf(domainwf.TriggerSubmit, domainwf.StatePendingApproval, hasApprover).
			PermitIf(domainwf.TriggerSubmit, domainwf.StatePendingFinance, noApprover)

		b.Configure(domainwf.StatePendingApproval).
			Permit(domainwf.TriggerApprove, domainwf.StatePendingFinance).
			Permit(domainwf.TriggerReject, domainwf.StateRejected).
			Permit(domainwf.TriggerWithdraw, domainwf.StateDraft)

		b.Configure(domainwf.StatePendingFinance).
			Permit(domainwf.TriggerApprove, domainwf.StateApproved).
			Permit(domainwf.TriggerReject, domainwf.StateRejected).
			Permit(domainwf.TriggerWithdraw, domainwf.StateDraft)

		b.Configure(domainwf.StatePendingFinanceReview).
			Permit(domainwf.TriggerConfirmEvidence, domainwf.StateCompleted).
			Permit(domainwf.TriggerRejectEvidence, domainwf.StatePendingEvidence)

		b.Configure(domainwf.StatePendingEvidence).
			Permit(domainwf.TriggerSubmitEvidence, domainwf.StatePendingFinanceReview)

		// REJECTED: resubmission re-enters the submit rule
		b.Configure(domainwf.StateRejected).
			PermitIf(domainwf.TriggerSubmit, domainwf.StatePendingApproval, hasApprover).
			PermitIf(domainwf.TriggerSubmit, domainwf.StatePendingFinance, noApprover).
			Permit(domainwf.TriggerCancel, domainwf.StateCancelled)

		// APPROVED: only the payment batcher moves claims on from here
		b.Configure(domainwf.StateApproved).
			PermitIf(domainwf.TriggerPay, domainwf.StateCompleted, invoiceIn).
			PermitIf(domainwf.TriggerPay, domainwf.StatePendingEvidence, invoiceOwed)

		// COMPLETED and CANCELLED are terminal states - no outgoing transitions

		table = b
	})
	return table
}

// BuildClaimStateMachine creates a claim state machine positioned at initialState
func BuildClaimStateMachine(initialState domainwf.State) domainwf.StateMachine {
	return claimTable().Build(initialState)
}

// TransitionTable lists every declared claim transition
func TransitionTable() []domainwf.Edge {
	return claimTable().Edges()
}
