package entity

import "time"

// VendorStatus is the lifecycle flag of a vendor master record
type VendorStatus string

const (
	VendorActive  VendorStatus = "active"
	VendorDeleted VendorStatus = "deleted"
)

// Vendor is a payment recipient master record
type Vendor struct {
	ID                 string       `json:"id"`
	Name               string       `json:"name"`
	ServiceDescription string       `json:"service_description"`
	BankCode           string       `json:"bank_code,omitempty"`
	BankAccount        string       `json:"bank_account,omitempty"`
	IsFloatingAccount  bool         `json:"is_floating_account"`
	Status             VendorStatus `json:"status"`
	CreatedAt          time.Time    `json:"created_at"`
	UpdatedAt          time.Time    `json:"updated_at"`
}

// VendorFields is a partial vendor. Nil fields are absent and leave the target untouched on merge.
type VendorFields struct {
	Name               *string `json:"name,omitempty"`
	ServiceDescription *string `json:"service_description,omitempty"`
	BankCode           *string `json:"bank_code,omitempty"`
	BankAccount        *string `json:"bank_account,omitempty"`
	IsFloatingAccount  *bool   `json:"is_floating_account,omitempty"`
}

// SnapshotOf captures every field of v
func SnapshotOf(v *Vendor) VendorFields {
	name := v.Name
	desc := v.ServiceDescription
	code := v.BankCode
	account := v.BankAccount
	floating := v.IsFloatingAccount
	return VendorFields{
		Name:               &name,
		ServiceDescription: &desc,
		BankCode:           &code,
		BankAccount:        &account,
		IsFloatingAccount:  &floating,
	}
}

// ApplyTo merges the present fields onto v
func (f VendorFields) ApplyTo(v *Vendor) {
	if f.Name != nil {
		v.Name = *f.Name
	}
	if f.ServiceDescription != nil {
		v.ServiceDescription = *f.ServiceDescription
	}
	if f.BankCode != nil {
		v.BankCode = *f.BankCode
	}
	if f.BankAccount != nil {
		v.BankAccount = *f.BankAccount
	}
	if f.IsFloatingAccount != nil {
		v.IsFloatingAccount = *f.IsFloatingAccount
	}
}

// IsEmpty reports whether no field is present
func (f VendorFields) IsEmpty() bool {
	return f.Name == nil && f.ServiceDescription == nil && f.BankCode == nil &&
		f.BankAccount == nil && f.IsFloatingAccount == nil
}

// FieldChange is one field-level difference between a snapshot and a proposal
type FieldChange struct {
	Field  string `json:"field"`
	Before string `json:"before"`
	After  string `json:"after"`
}

// Diff lists the fields present in proposed whose value differs from prior
func Diff(prior *VendorFields, proposed VendorFields) []FieldChange {
	var before VendorFields
	if prior != nil {
		before = *prior
	}
	var changes []FieldChange
	addString := func(field string, b, a *string) {
		if a == nil {
			return
		}
		old := ""
		if b != nil {
			old = *b
		}
		if old != *a || b == nil {
			changes = append(changes, FieldChange{Field: field, Before: old, After: *a})
		}
	}
	addString("name", before.Name, proposed.Name)
	addString("service_description", before.ServiceDescription, proposed.ServiceDescription)
	addString("bank_code", before.BankCode, proposed.BankCode)
	addString("bank_account", before.BankAccount, proposed.BankAccount)
	if proposed.IsFloatingAccount != nil {
		old := before.IsFloatingAccount != nil && *before.IsFloatingAccount
		if before.IsFloatingAccount == nil || old != *proposed.IsFloatingAccount {
			changes = append(changes, FieldChange{
				Field:  "is_floating_account",
				Before: boolText(before.IsFloatingAccount),
				After:  boolText(proposed.IsFloatingAccount),
			})
		}
	}
	return changes
}

func boolText(b *bool) string {
	if b == nil {
		return ""
	}
	if *b {
		return "true"
	}
	return "false"
}

// ChangeType is the kind of mutation a vendor change request proposes
type ChangeType string

const (
	ChangeAdd    ChangeType = "add"
	ChangeUpdate ChangeType = "update"
	ChangeDelete ChangeType = "delete"
)

// IsValid reports whether t is a known change type
func (t ChangeType) IsValid() bool {
	return t == ChangeAdd || t == ChangeUpdate || t == ChangeDelete
}

// RequestStatus is the two-state approval status of a change request
type RequestStatus string

const (
	RequestPending  RequestStatus = "pending"
	RequestApproved RequestStatus = "approved"
	RequestRejected RequestStatus = "rejected"
)

// VendorChangeRequest is a proposed mutation to a vendor awaiting a finance decision
type VendorChangeRequest struct {
	ID            string        `json:"id"`
	ChangeType    ChangeType    `json:"change_type"`
	VendorID      string        `json:"vendor_id,omitempty"`
	ProposedData  VendorFields  `json:"proposed_data"`
	PriorSnapshot *VendorFields `json:"prior_snapshot,omitempty"`
	Status        RequestStatus `json:"status"`
	RequestedBy   string        `json:"requested_by"`
	Timestamp     time.Time     `json:"timestamp"`
	DecidedBy     string        `json:"decided_by,omitempty"`
	DecidedAt     *time.Time    `json:"decided_at,omitempty"`
}

// IsDecided reports whether the request left pending and is therefore immutable
func (r *VendorChangeRequest) IsDecided() bool {
	return r.Status != RequestPending
}
