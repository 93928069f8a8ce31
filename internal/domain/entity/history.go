package entity

import (
	"strings"
	"time"

	"github.com/garyjia/claimflow/internal/domain/workflow"
)

// HistoryAction is the closed set of audit tags a history entry may carry
type HistoryAction string

const (
	ActionSubmitted        HistoryAction = "submitted"
	ActionPaid             HistoryAction = "paid"
	ActionPaymentCancelled HistoryAction = "payment_cancelled"

	statusChangePrefix = "status_change_to_"
)

// StatusChangeAction returns the action tag for a transition into state
func StatusChangeAction(state workflow.State) HistoryAction {
	return HistoryAction(statusChangePrefix + string(state))
}

// IsValid reports whether the action belongs to the closed set
func (a HistoryAction) IsValid() bool {
	switch a {
	case ActionSubmitted, ActionPaid, ActionPaymentCancelled:
		return true
	}
	s := string(a)
	if !strings.HasPrefix(s, statusChangePrefix) {
		return false
	}
	return workflow.State(strings.TrimPrefix(s, statusChangePrefix)).IsValid()
}

// HistoryEntry is an immutable audit fact
type HistoryEntry struct {
	Seq       int           `json:"seq"`
	Timestamp time.Time     `json:"timestamp"`
	ActorID   string        `json:"actor_id"`
	ActorName string        `json:"actor_name"`
	Action    HistoryAction `json:"action"`
	Note      string        `json:"note,omitempty"`
}
