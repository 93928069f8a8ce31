package event

// Type identifies the type of change signal
type Type string

const (
	TypeClaimsChanged   Type = "claims.changed"
	TypeVendorsChanged  Type = "vendors.changed"
	TypePaymentsChanged Type = "payments.changed"
)

// String returns the string representation of the event type
func (t Type) String() string {
	return string(t)
}

// IsValid checks if the event type is one of the defined constants
func (t Type) IsValid() bool {
	switch t {
	case TypeClaimsChanged, TypeVendorsChanged, TypePaymentsChanged:
		return true
	default:
		return false
	}
}

// Types returns every defined event type
func Types() []Type {
	return []Type{TypeClaimsChanged, TypeVendorsChanged, TypePaymentsChanged}
}

// Payload keys shared by publishers and subscribers
const (
	KeyAction    = "action"
	KeyFrom      = "from"
	KeyTo        = "to"
	KeyActorName = "actor_name"
	KeyAmount    = "amount"
	KeyPayee     = "payee"
	KeyClaimIDs  = "claim_ids"
)
