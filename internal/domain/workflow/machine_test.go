package workflow

import (
	"context"
	"errors"
	"testing"
)

func TestState_IsTerminal(t *testing.T) {
	tests := []struct {
		state    State
		expected bool
	}{
		{StateDraft, false},
		{StatePendingApproval, false},
		{StatePendingFinance, false},
		{StatePendingFinanceReview, false},
		{StatePendingEvidence, false},
		{StateApproved, false},
		{StateRejected, false},
		{StateCompleted, true},
		{StateCancelled, true},
	}

	for _, tt := range tests {
		t.Run(string(tt.state), func(t *testing.T) {
			if got := tt.state.IsTerminal(); got != tt.expected {
				t.Errorf("State.IsTerminal() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestState_IsEditable(t *testing.T) {
	for _, s := range AllStates() {
		want := s == StateDraft || s == StateRejected || s == StatePendingEvidence
		if got := s.IsEditable(); got != want {
			t.Errorf("%s.IsEditable() = %v, want %v", s, got, want)
		}
	}
}

func TestState_IsValid(t *testing.T) {
	tests := []struct {
		name     string
		state    State
		expected bool
	}{
		{"draft", StateDraft, true},
		{"cancelled", StateCancelled, true},
		{"upper case", State("DRAFT"), false},
		{"empty state", State(""), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.state.IsValid(); got != tt.expected {
				t.Errorf("State.IsValid() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestTrigger_Flags(t *testing.T) {
	if !TriggerReject.RequiresReason() || !TriggerRejectEvidence.RequiresReason() {
		t.Error("reject triggers should require a reason")
	}
	if TriggerApprove.RequiresReason() {
		t.Error("approve should not require a reason")
	}
	if !TriggerPay.IsInternal() || TriggerSubmit.IsInternal() {
		t.Error("only batch payment is internal")
	}
	if Trigger("teleport").IsValid() {
		t.Error("unknown trigger should be invalid")
	}
}

func TestBuilder_Configure(t *testing.T) {
	builder := NewBuilder()

	config := builder.Configure(StateDraft)
	if config == nil {
		t.Fatal("Configure() returned nil")
	}

	config2 := builder.Configure(StateDraft)
	if config != config2 {
		t.Error("Configure() should return same config for same state")
	}
}

func TestBuilder_ConfigurePanicsOnInvalidState(t *testing.T) {
	builder := NewBuilder()

	defer func() {
		if r := recover(); r == nil {
			t.Error("Configure() should panic on invalid state")
		}
	}()

	builder.Configure(State("INVALID"))
}

func TestBuilder_BuildPanicsOnInvalidInitialState(t *testing.T) {
	builder := NewBuilder()

	defer func() {
		if r := recover(); r == nil {
			t.Error("Build() should panic on invalid initial state")
		}
	}()

	builder.Build(State("INVALID"))
}

func TestBuilder_Edges(t *testing.T) {
	builder := NewBuilder()
	builder.Configure(StatePendingFinance).
		Permit(TriggerApprove, StateApproved).
		Permit(TriggerReject, StateRejected)
	builder.Configure(StateDraft).
		PermitIf(TriggerSubmit, StatePendingApproval, nil).
		PermitIf(TriggerSubmit, StatePendingFinance, nil)

	edges := builder.Edges()
	want := []Edge{
		{StateDraft, TriggerSubmit, StatePendingApproval},
		{StateDraft, TriggerSubmit, StatePendingFinance},
		{StatePendingFinance, TriggerApprove, StateApproved},
		{StatePendingFinance, TriggerReject, StateRejected},
	}
	if len(edges) != len(want) {
		t.Fatalf("Edges() returned %d edges, want %d", len(edges), len(want))
	}
	for i := range want {
		if edges[i] != want[i] {
			t.Errorf("Edges()[%d] = %+v, want %+v", i, edges[i], want[i])
		}
	}
}

func TestStateConfiguration_Permit(t *testing.T) {
	builder := NewBuilder()
	builder.Configure(StatePendingFinance).
		Permit(TriggerApprove, StateApproved)

	machine := builder.Build(StatePendingFinance)

	if !machine.CanFire(TriggerApprove) {
		t.Error("CanFire() should return true for permitted trigger")
	}

	if err := machine.Fire(context.Background(), TriggerApprove, Facts{}); err != nil {
		t.Errorf("Fire() failed: %v", err)
	}

	if machine.State() != StateApproved {
		t.Errorf("State after Fire() = %v, want %v", machine.State(), StateApproved)
	}
}

func TestStateConfiguration_PermitIf_GuardFails(t *testing.T) {
	builder := NewBuilder()
	builder.Configure(StateDraft).
		PermitIf(TriggerSubmit, StatePendingApproval, func(ctx context.Context, f Facts) bool {
			return false
		})

	machine := builder.Build(StateDraft)

	err := machine.Fire(context.Background(), TriggerSubmit, Facts{})
	if err == nil {
		t.Fatal("Fire() should fail when guard fails")
	}

	if !errors.Is(err, ErrGuardFailed) {
		t.Errorf("Fire() error = %v, want %v", err, ErrGuardFailed)
	}

	if machine.State() != StateDraft {
		t.Errorf("State should remain %v after failed Fire(), got %v", StateDraft, machine.State())
	}
}

func TestStateConfiguration_PermitIf_SelectsByFacts(t *testing.T) {
	builder := NewBuilder()
	builder.Configure(StateDraft).
		PermitIf(TriggerSubmit, StatePendingApproval, func(ctx context.Context, f Facts) bool {
			return f.ApplicantHasApprover
		}).
		PermitIf(TriggerSubmit, StatePendingFinance, func(ctx context.Context, f Facts) bool {
			return !f.ApplicantHasApprover
		})

	machine1 := builder.Build(StateDraft)
	if err := machine1.Fire(context.Background(), TriggerSubmit, Facts{ApplicantHasApprover: true}); err != nil {
		t.Errorf("Fire() failed: %v", err)
	}
	if machine1.State() != StatePendingApproval {
		t.Errorf("State after Fire() = %v, want %v", machine1.State(), StatePendingApproval)
	}

	machine2 := builder.Build(StateDraft)
	if err := machine2.Fire(context.Background(), TriggerSubmit, Facts{}); err != nil {
		t.Errorf("Fire() failed: %v", err)
	}
	if machine2.State() != StatePendingFinance {
		t.Errorf("State after Fire() = %v, want %v", machine2.State(), StatePendingFinance)
	}
}

func TestStateMachine_ResolveDoesNotMutate(t *testing.T) {
	builder := NewBuilder()
	builder.Configure(StatePendingFinance).
		Permit(TriggerApprove, StateApproved)

	machine := builder.Build(StatePendingFinance)

	next, err := machine.Resolve(context.Background(), TriggerApprove, Facts{})
	if err != nil {
		t.Fatalf("Resolve() failed: %v", err)
	}
	if next != StateApproved {
		t.Errorf("Resolve() = %v, want %v", next, StateApproved)
	}
	if machine.State() != StatePendingFinance {
		t.Errorf("Resolve() changed state to %v", machine.State())
	}
}

func TestStateConfiguration_PermitPanicsOnInvalidState(t *testing.T) {
	builder := NewBuilder()

	defer func() {
		if r := recover(); r == nil {
			t.Error("Permit() should panic on invalid target state")
		}
	}()

	builder.Configure(StateDraft).Permit(TriggerSubmit, State("INVALID"))
}

func TestStateMachine_Fire_InvalidTransition(t *testing.T) {
	builder := NewBuilder()
	builder.Configure(StateDraft).
		Permit(TriggerSubmit, StatePendingFinance)

	machine := builder.Build(StateDraft)

	err := machine.Fire(context.Background(), TriggerApprove, Facts{})
	if err == nil {
		t.Fatal("Fire() should fail for invalid transition")
	}

	if !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("Fire() error = %v, want %v", err, ErrInvalidTransition)
	}

	if machine.State() != StateDraft {
		t.Errorf("State should remain %v after failed Fire(), got %v", StateDraft, machine.State())
	}
}

func TestStateMachine_Fire_NoConfiguration(t *testing.T) {
	machine := NewBuilder().Build(StateCompleted)

	err := machine.Fire(context.Background(), TriggerSubmit, Facts{})
	if !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("Fire() error = %v, want %v", err, ErrInvalidTransition)
	}
}

func TestStateMachine_PermittedTriggers(t *testing.T) {
	builder := NewBuilder()
	builder.Configure(StatePendingApproval).
		Permit(TriggerWithdraw, StateDraft).
		Permit(TriggerApprove, StatePendingFinance).
		Permit(TriggerReject, StateRejected)

	machine := builder.Build(StatePendingApproval)

	triggers := machine.PermittedTriggers()
	want := []Trigger{TriggerApprove, TriggerReject, TriggerWithdraw}
	if len(triggers) != len(want) {
		t.Fatalf("PermittedTriggers() returned %d triggers, want %d", len(triggers), len(want))
	}
	for i := range want {
		if triggers[i] != want[i] {
			t.Errorf("PermittedTriggers()[%d] = %v, want %v", i, triggers[i], want[i])
		}
	}
}

func TestStateMachine_Immutability(t *testing.T) {
	builder := NewBuilder()
	builder.Configure(StateRejected).
		Permit(TriggerCancel, StateCancelled)

	machine1 := builder.Build(StateRejected)
	machine2 := builder.Build(StateRejected)

	if err := machine1.Fire(context.Background(), TriggerCancel, Facts{}); err != nil {
		t.Errorf("Fire() failed: %v", err)
	}

	if machine2.State() != StateRejected {
		t.Errorf("machine2 state = %v, want %v (machines should be independent)", machine2.State(), StateRejected)
	}

	// Configuring the builder after Build must not leak into existing machines
	builder.Configure(StateRejected).Permit(TriggerSubmit, StatePendingFinance)
	if machine2.CanFire(TriggerSubmit) {
		t.Error("machine2 should not see transitions added after Build()")
	}
}
