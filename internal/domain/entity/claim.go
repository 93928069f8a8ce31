package entity

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/garyjia/claimflow/internal/domain/workflow"
)

// ClaimKind distinguishes expense-style claims from vendor payments
type ClaimKind string

const (
	KindEmployeeExpense ClaimKind = "employee-expense"
	KindVendorPayment   ClaimKind = "vendor-payment"
	KindServicePayment  ClaimKind = "service-payment"
)

// IsValid reports whether k is a known claim kind
func (k ClaimKind) IsValid() bool {
	switch k {
	case KindEmployeeExpense, KindVendorPayment, KindServicePayment:
		return true
	}
	return false
}

// HasLineItems reports whether claims of this kind carry line items instead of a payment detail
func (k ClaimKind) HasLineItems() bool {
	return k == KindEmployeeExpense || k == KindServicePayment
}

// InvoiceStatus records whether the invoice for a vendor payment is in hand
type InvoiceStatus string

const (
	InvoiceObtained    InvoiceStatus = "obtained"
	InvoiceNotObtained InvoiceStatus = "not_obtained"
)

// LineItem is a single expense line of an expense or service claim
type LineItem struct {
	ID            string          `json:"id"`
	Date          time.Time       `json:"date"`
	Amount        decimal.Decimal `json:"amount"`
	Description   string          `json:"description"`
	Category      string          `json:"category,omitempty"`
	InvoiceRef    string          `json:"invoice_ref,omitempty"`
	NoReceipt     bool            `json:"no_receipt"`
	AttachmentRef string          `json:"attachment_ref,omitempty"`
}

// HasEvidence reports whether the item is attached or declared as having no receipt
func (li LineItem) HasEvidence(noReceiptReason string) bool {
	if li.AttachmentRef != "" {
		return true
	}
	return li.NoReceipt && strings.TrimSpace(noReceiptReason) != ""
}

// PaymentDetail replaces line items on vendor-payment claims
type PaymentDetail struct {
	TransactionContent string        `json:"transaction_content"`
	InvoiceStatus      InvoiceStatus `json:"invoice_status"`
	InvoiceNumber      string        `json:"invoice_number,omitempty"`
	InvoiceDate        *time.Time    `json:"invoice_date,omitempty"`
	AttachmentRef      string        `json:"attachment_ref,omitempty"`
	NoReceipt          bool          `json:"no_receipt"`
	BankCode           string        `json:"bank_code,omitempty"`
	BankAccount        string        `json:"bank_account,omitempty"`
	Memo               string        `json:"memo,omitempty"`
}

// HasEvidence reports whether the detail is attached or declared as having no receipt
func (pd PaymentDetail) HasEvidence(noReceiptReason string) bool {
	if pd.AttachmentRef != "" {
		return true
	}
	return pd.NoReceipt && strings.TrimSpace(noReceiptReason) != ""
}

// Claim is a monetary request moving through the approval workflow
type Claim struct {
	ID               string          `json:"id"`
	Kind             ClaimKind       `json:"kind"`
	ApplicantID      string          `json:"applicant_id"`
	PayeeName        string          `json:"payee_name"`
	PayeeReferenceID string          `json:"payee_reference_id,omitempty"`
	Amount           decimal.Decimal `json:"amount"`
	AmountOverride   bool            `json:"amount_override"`
	Status           workflow.State  `json:"status"`
	LineItems        []LineItem      `json:"line_items"`
	PaymentDetail    *PaymentDetail  `json:"payment_detail,omitempty"`
	NoReceiptReason  string          `json:"no_receipt_reason,omitempty"`
	History          []HistoryEntry  `json:"history"`
	DatePaid         *time.Time      `json:"date_paid,omitempty"`
	CreatedAt        time.Time       `json:"created_at"`
	UpdatedAt        time.Time       `json:"updated_at"`
}

// SumLineItems returns the total of all line item amounts
func (c *Claim) SumLineItems() decimal.Decimal {
	total := decimal.Zero
	for _, li := range c.LineItems {
		total = total.Add(li.Amount)
	}
	return total
}

// RecomputeAmount sets Amount to the line item total unless an explicit override is in effect
func (c *Claim) RecomputeAmount() {
	if c.AmountOverride {
		return
	}
	c.Amount = c.SumLineItems()
}

// FlaggedNoReceipt reports whether any line item or the payment detail is marked "no receipt"
func (c *Claim) FlaggedNoReceipt() bool {
	if c.PaymentDetail != nil && c.PaymentDetail.NoReceipt {
		return true
	}
	for _, li := range c.LineItems {
		if li.NoReceipt {
			return true
		}
	}
	return false
}

// EvidenceComplete reports whether every line item, or the single payment detail, satisfies the evidence rule
func (c *Claim) EvidenceComplete() bool {
	if c.PaymentDetail != nil {
		return c.PaymentDetail.HasEvidence(c.NoReceiptReason)
	}
	if len(c.LineItems) == 0 {
		return false
	}
	for _, li := range c.LineItems {
		if !li.HasEvidence(c.NoReceiptReason) {
			return false
		}
	}
	return true
}

// InvoiceObtained decides whether a paid claim is complete or still owes evidence.
// Vendor payments use the invoice status of their payment detail, all other kinds use the evidence rule.
func (c *Claim) InvoiceObtained() bool {
	if c.Kind == KindVendorPayment {
		return c.PaymentDetail != nil && c.PaymentDetail.InvoiceStatus == InvoiceObtained
	}
	return c.EvidenceComplete()
}

// LastSeq returns the sequence number of the newest history entry, or 0
func (c *Claim) LastSeq() int {
	last := 0
	for _, h := range c.History {
		if h.Seq > last {
			last = h.Seq
		}
	}
	return last
}

// SameSettlement reports whether other pays the same payee the same amount over the same items.
// Evidence fields (attachments, no-receipt flags, invoice status) are ignored.
func (c *Claim) SameSettlement(other *Claim) bool {
	if c.PayeeName != other.PayeeName || c.PayeeReferenceID != other.PayeeReferenceID {
		return false
	}
	if !c.Amount.Equal(other.Amount) || c.AmountOverride != other.AmountOverride {
		return false
	}
	if len(c.LineItems) != len(other.LineItems) {
		return false
	}
	for i, li := range c.LineItems {
		o := other.LineItems[i]
		if li.ID != o.ID || !li.Amount.Equal(o.Amount) {
			return false
		}
	}
	if (c.PaymentDetail == nil) != (other.PaymentDetail == nil) {
		return false
	}
	if c.PaymentDetail != nil {
		a, b := c.PaymentDetail, other.PaymentDetail
		if a.BankCode != b.BankCode || a.BankAccount != b.BankAccount || a.TransactionContent != b.TransactionContent {
			return false
		}
	}
	return true
}

// Clone returns a deep copy so callers can mutate without touching the original
func (c *Claim) Clone() *Claim {
	if c == nil {
		return nil
	}
	out := *c
	if c.LineItems != nil {
		out.LineItems = make([]LineItem, len(c.LineItems))
		copy(out.LineItems, c.LineItems)
	}
	if c.PaymentDetail != nil {
		pd := *c.PaymentDetail
		if pd.InvoiceDate != nil {
			d := *pd.InvoiceDate
			pd.InvoiceDate = &d
		}
		out.PaymentDetail = &pd
	}
	if c.History != nil {
		out.History = make([]HistoryEntry, len(c.History))
		copy(out.History, c.History)
	}
	if c.DatePaid != nil {
		d := *c.DatePaid
		out.DatePaid = &d
	}
	return &out
}

// AttachmentRefs lists every attachment reference the claim holds
func (c *Claim) AttachmentRefs() []string {
	var refs []string
	for _, li := range c.LineItems {
		if li.AttachmentRef != "" {
			refs = append(refs, li.AttachmentRef)
		}
	}
	if c.PaymentDetail != nil && c.PaymentDetail.AttachmentRef != "" {
		refs = append(refs, c.PaymentDetail.AttachmentRef)
	}
	return refs
}
