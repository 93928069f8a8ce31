package entity

// Capability is a structured authorization flag carried by an actor
type Capability string

const (
	CapabilityFinanceAudit   Capability = "finance-audit"
	CapabilityUserManagement Capability = "user-management"
)

// Actor is a user as supplied by the identity provider
type Actor struct {
	ID           string       `json:"id"`
	Name         string       `json:"name"`
	ApproverID   string       `json:"approver_id,omitempty"`
	Capabilities []Capability `json:"capabilities"`
}

// Has reports whether the actor carries the capability
func (a *Actor) Has(c Capability) bool {
	if a == nil {
		return false
	}
	for _, have := range a.Capabilities {
		if have == c {
			return true
		}
	}
	return false
}

// HasApprover reports whether someone is assigned to approve this actor's claims
func (a *Actor) HasApprover() bool {
	return a != nil && a.ApproverID != ""
}

// IsApproverOf reports whether the actor is the assigned approver of applicant
func (a *Actor) IsApproverOf(applicant *Actor) bool {
	return a != nil && applicant != nil && applicant.ApproverID != "" && applicant.ApproverID == a.ID
}
