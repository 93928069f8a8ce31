package workflow

// Trigger represents an action that can cause a claim status transition
type Trigger string

const (
	TriggerSubmit          Trigger = "submit"
	TriggerApprove         Trigger = "approve"
	TriggerReject          Trigger = "reject"
	TriggerWithdraw        Trigger = "withdraw"
	TriggerConfirmEvidence Trigger = "confirm_evidence"
	TriggerRejectEvidence  Trigger = "reject_evidence"
	TriggerSubmitEvidence  Trigger = "submit_evidence"
	TriggerCancel          Trigger = "cancel"
	TriggerPay             Trigger = "batch_payment"
)

var validTriggers = map[Trigger]bool{
	TriggerSubmit:          true,
	TriggerApprove:         true,
	TriggerReject:          true,
	TriggerWithdraw:        true,
	TriggerConfirmEvidence: true,
	TriggerRejectEvidence:  true,
	TriggerSubmitEvidence:  true,
	TriggerCancel:          true,
	TriggerPay:             true,
}

// String returns the string representation of the trigger
func (t Trigger) String() string {
	return string(t)
}

// IsValid returns true if the trigger is a known claim action
func (t Trigger) IsValid() bool {
	return validTriggers[t]
}

// RequiresReason reports whether firing the trigger needs a non-empty reason
func (t Trigger) RequiresReason() bool {
	return t == TriggerReject || t == TriggerRejectEvidence
}

// IsInternal reports whether the trigger may only be fired by the payment batcher
func (t Trigger) IsInternal() bool {
	return t == TriggerPay
}
