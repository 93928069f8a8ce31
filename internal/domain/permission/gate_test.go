package permission

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/garyjia/claimflow/internal/domain/entity"
	"github.com/garyjia/claimflow/internal/domain/workflow"
)

var (
	applicant = &entity.Actor{ID: "emp", Name: "Employee", ApproverID: "mgr"}
	approver  = &entity.Actor{ID: "mgr", Name: "Manager"}
	finance   = &entity.Actor{ID: "fin", Name: "Finance", Capabilities: []entity.Capability{entity.CapabilityFinanceAudit}}
	admin     = &entity.Actor{ID: "adm", Name: "Finance Admin", Capabilities: []entity.Capability{entity.CapabilityUserManagement}}
	stranger  = &entity.Actor{ID: "zed", Name: "finance team"}
)

var allTriggers = []workflow.Trigger{
	workflow.TriggerSubmit,
	workflow.TriggerApprove,
	workflow.TriggerReject,
	workflow.TriggerWithdraw,
	workflow.TriggerConfirmEvidence,
	workflow.TriggerRejectEvidence,
	workflow.TriggerSubmitEvidence,
	workflow.TriggerCancel,
	workflow.TriggerPay,
}

type grant struct {
	state   workflow.State
	trigger workflow.Trigger
	actor   string
}

// Every (state, trigger, actor) combination not listed here must be denied.
var allowed = map[grant]bool{
	{workflow.StateDraft, workflow.TriggerSubmit, "emp"}: true,

	{workflow.StatePendingApproval, workflow.TriggerApprove, "mgr"}:  true,
	{workflow.StatePendingApproval, workflow.TriggerReject, "mgr"}:   true,
	{workflow.StatePendingApproval, workflow.TriggerWithdraw, "emp"}: true,

	{workflow.StatePendingFinance, workflow.TriggerApprove, "fin"}:  true,
	{workflow.StatePendingFinance, workflow.TriggerReject, "fin"}:   true,
	{workflow.StatePendingFinance, workflow.TriggerWithdraw, "emp"}: true,

	{workflow.StatePendingFinanceReview, workflow.TriggerConfirmEvidence, "fin"}: true,
	{workflow.StatePendingFinanceReview, workflow.TriggerRejectEvidence, "fin"}:  true,

	{workflow.StatePendingEvidence, workflow.TriggerSubmitEvidence, "emp"}: true,

	{workflow.StateRejected, workflow.TriggerSubmit, "emp"}: true,
	{workflow.StateRejected, workflow.TriggerCancel, "emp"}: true,

	{workflow.StateApproved, workflow.TriggerPay, "fin"}: true,
}

func TestCanTransition_Exhaustive(t *testing.T) {
	actors := []*entity.Actor{applicant, approver, finance, admin, stranger}

	for _, state := range workflow.AllStates() {
		for _, trigger := range allTriggers {
			for _, actor := range actors {
				name := fmt.Sprintf("%s/%s/%s", state, trigger, actor.ID)
				t.Run(name, func(t *testing.T) {
					claim := &entity.Claim{ID: "c1", ApplicantID: applicant.ID, Status: state}
					expected := allowed[grant{state, trigger, actor.ID}]

					assert.Equal(t, expected, CanTransition(actor, applicant, claim, trigger))
				})
			}
		}
	}
}

func TestCanTransition_ApproverRelationship(t *testing.T) {
	claim := &entity.Claim{ApplicantID: "emp", Status: workflow.StatePendingApproval}

	// Finance capability does not stand in for the assigned approver.
	assert.False(t, CanTransition(finance, applicant, claim, workflow.TriggerApprove))

	// A different approver assignment moves the right with it.
	reassigned := &entity.Actor{ID: "emp", ApproverID: "fin"}
	assert.True(t, CanTransition(finance, reassigned, claim, workflow.TriggerApprove))
	assert.False(t, CanTransition(approver, reassigned, claim, workflow.TriggerApprove))

	// Applicant without an approver has nobody at this stage.
	loner := &entity.Actor{ID: "emp"}
	assert.False(t, CanTransition(approver, loner, claim, workflow.TriggerApprove))

	// Applicant record must belong to the claim.
	other := &entity.Actor{ID: "other", ApproverID: "mgr"}
	assert.False(t, CanTransition(approver, other, claim, workflow.TriggerApprove))
}

func TestCanTransition_NilInputs(t *testing.T) {
	claim := &entity.Claim{ApplicantID: "emp", Status: workflow.StatePendingApproval}

	assert.False(t, CanTransition(nil, applicant, claim, workflow.TriggerWithdraw))
	assert.False(t, CanTransition(approver, nil, claim, workflow.TriggerApprove))
	assert.False(t, CanTransition(applicant, applicant, nil, workflow.TriggerWithdraw))
}

func TestCanEdit(t *testing.T) {
	claim := &entity.Claim{ApplicantID: "emp"}

	assert.True(t, CanEdit(applicant, claim))
	assert.True(t, CanEdit(finance, claim))
	assert.True(t, CanEdit(admin, claim))
	assert.False(t, CanEdit(approver, claim))
	assert.False(t, CanEdit(stranger, claim))
	assert.False(t, CanEdit(nil, claim))
}

func TestCanDelete(t *testing.T) {
	claim := &entity.Claim{ApplicantID: "emp"}

	assert.True(t, CanDelete(applicant, claim))
	assert.False(t, CanDelete(finance, claim))
	assert.False(t, CanDelete(admin, claim))
}

func TestFinanceOnlyDecisions(t *testing.T) {
	tests := []struct {
		actor  *entity.Actor
		expect bool
	}{
		{finance, true},
		{admin, false},
		{approver, false},
		{stranger, false},
		{nil, false},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expect, CanDecideVendorRequest(tt.actor))
		assert.Equal(t, tt.expect, CanRunPayment(tt.actor))
	}
}

func TestCanProposeVendorChange(t *testing.T) {
	assert.True(t, CanProposeVendorChange(stranger))
	assert.False(t, CanProposeVendorChange(&entity.Actor{}))
	assert.False(t, CanProposeVendorChange(nil))
}
