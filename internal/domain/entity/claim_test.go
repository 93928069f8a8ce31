package entity

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/garyjia/claimflow/internal/domain/workflow"
)

func TestClaim_RecomputeAmount(t *testing.T) {
	c := &Claim{
		Kind: KindEmployeeExpense,
		LineItems: []LineItem{
			{ID: "a", Amount: decimal.RequireFromString("120.50")},
			{ID: "b", Amount: decimal.RequireFromString("79.50")},
		},
	}

	c.RecomputeAmount()
	assert.True(t, decimal.NewFromInt(200).Equal(c.Amount))

	c.AmountOverride = true
	c.Amount = decimal.NewFromInt(10)
	c.RecomputeAmount()
	assert.True(t, decimal.NewFromInt(10).Equal(c.Amount), "override must survive recompute")
}

func TestClaim_EvidenceComplete(t *testing.T) {
	tests := []struct {
		name   string
		claim  Claim
		expect bool
	}{
		{
			name:   "no items",
			claim:  Claim{Kind: KindEmployeeExpense},
			expect: false,
		},
		{
			name: "all attached",
			claim: Claim{LineItems: []LineItem{
				{AttachmentRef: "file://a"}, {AttachmentRef: "file://b"},
			}},
			expect: true,
		},
		{
			name: "no receipt without reason",
			claim: Claim{LineItems: []LineItem{
				{AttachmentRef: "file://a"}, {NoReceipt: true},
			}},
			expect: false,
		},
		{
			name: "no receipt with reason",
			claim: Claim{NoReceiptReason: "lost in taxi", LineItems: []LineItem{
				{AttachmentRef: "file://a"}, {NoReceipt: true},
			}},
			expect: true,
		},
		{
			name:   "blank reason",
			claim:  Claim{NoReceiptReason: "   ", LineItems: []LineItem{{NoReceipt: true}}},
			expect: false,
		},
		{
			name:   "item missing everything",
			claim:  Claim{NoReceiptReason: "x", LineItems: []LineItem{{}}},
			expect: false,
		},
		{
			name:   "payment detail attached",
			claim:  Claim{Kind: KindVendorPayment, PaymentDetail: &PaymentDetail{AttachmentRef: "s3://x"}},
			expect: true,
		},
		{
			name:   "payment detail empty",
			claim:  Claim{Kind: KindVendorPayment, PaymentDetail: &PaymentDetail{}},
			expect: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expect, tt.claim.EvidenceComplete())
		})
	}
}

func TestClaim_InvoiceObtained(t *testing.T) {
	vendor := &Claim{Kind: KindVendorPayment, PaymentDetail: &PaymentDetail{InvoiceStatus: InvoiceObtained}}
	assert.True(t, vendor.InvoiceObtained())

	vendor.PaymentDetail.InvoiceStatus = InvoiceNotObtained
	vendor.PaymentDetail.AttachmentRef = "s3://contract"
	assert.False(t, vendor.InvoiceObtained(), "vendor payments follow the invoice status only")

	expense := &Claim{Kind: KindEmployeeExpense, LineItems: []LineItem{{AttachmentRef: "r"}}}
	assert.True(t, expense.InvoiceObtained())

	expense.LineItems = append(expense.LineItems, LineItem{})
	assert.False(t, expense.InvoiceObtained())
}

func TestClaim_Clone(t *testing.T) {
	paid := time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC)
	c := &Claim{
		ID:            "c1",
		Status:        workflow.StateCompleted,
		LineItems:     []LineItem{{ID: "li1", Amount: decimal.NewFromInt(5)}},
		PaymentDetail: &PaymentDetail{Memo: "m"},
		History:       []HistoryEntry{{Seq: 1, Action: ActionSubmitted}},
		DatePaid:      &paid,
	}

	cp := c.Clone()
	require.Equal(t, c, cp)

	cp.LineItems[0].Description = "changed"
	cp.PaymentDetail.Memo = "changed"
	cp.History[0].Note = "changed"
	*cp.DatePaid = paid.AddDate(0, 0, 1)

	assert.Empty(t, c.LineItems[0].Description)
	assert.Equal(t, "m", c.PaymentDetail.Memo)
	assert.Empty(t, c.History[0].Note)
	assert.Equal(t, paid, *c.DatePaid)
	assert.Nil(t, (*Claim)(nil).Clone())
}

func TestClaim_LastSeqAndRefs(t *testing.T) {
	c := &Claim{
		History:       []HistoryEntry{{Seq: 2}, {Seq: 5}, {Seq: 3}},
		LineItems:     []LineItem{{AttachmentRef: "a"}, {}},
		PaymentDetail: &PaymentDetail{AttachmentRef: "b"},
	}
	assert.Equal(t, 5, c.LastSeq())
	assert.Equal(t, []string{"a", "b"}, c.AttachmentRefs())
	assert.True(t, (&Claim{LineItems: []LineItem{{NoReceipt: true}}}).FlaggedNoReceipt())
	assert.False(t, c.FlaggedNoReceipt())
}

func TestHistoryAction_IsValid(t *testing.T) {
	assert.True(t, ActionSubmitted.IsValid())
	assert.True(t, ActionPaid.IsValid())
	assert.True(t, ActionPaymentCancelled.IsValid())
	assert.True(t, StatusChangeAction(workflow.StatePendingEvidence).IsValid())
	assert.Equal(t, HistoryAction("status_change_to_pending_evidence"), StatusChangeAction(workflow.StatePendingEvidence))
	assert.False(t, HistoryAction("status_change_to_limbo").IsValid())
	assert.False(t, HistoryAction("approved by boss").IsValid())
}

func TestActor(t *testing.T) {
	boss := &Actor{ID: "boss"}
	emp := &Actor{ID: "emp", ApproverID: "boss"}
	fin := &Actor{ID: "fin", Capabilities: []Capability{CapabilityFinanceAudit}}

	assert.True(t, emp.HasApprover())
	assert.False(t, boss.HasApprover())
	assert.True(t, boss.IsApproverOf(emp))
	assert.False(t, fin.IsApproverOf(emp))
	assert.False(t, boss.IsApproverOf(boss))
	assert.True(t, fin.Has(CapabilityFinanceAudit))
	assert.False(t, fin.Has(CapabilityUserManagement))
	assert.False(t, (*Actor)(nil).Has(CapabilityFinanceAudit))
}

func TestClaimKind(t *testing.T) {
	assert.True(t, KindServicePayment.IsValid())
	assert.False(t, ClaimKind("gift").IsValid())
	assert.True(t, KindEmployeeExpense.HasLineItems())
	assert.False(t, KindVendorPayment.HasLineItems())
}

func TestClaim_SameSettlement(t *testing.T) {
	base := &Claim{
		PayeeName: "Acme",
		Amount:    decimal.NewFromInt(250),
		LineItems: []LineItem{{ID: "a", Amount: decimal.NewFromInt(250)}},
	}

	evidence := base.Clone()
	evidence.LineItems[0].AttachmentRef = "file://r.jpg"
	evidence.LineItems[0].NoReceipt = true
	evidence.NoReceiptReason = "lost"
	assert.True(t, base.SameSettlement(evidence))

	tests := []struct {
		name   string
		mutate func(c *Claim)
	}{
		{"payee", func(c *Claim) { c.PayeeName = "Globex" }},
		{"amount", func(c *Claim) { c.Amount = decimal.NewFromInt(9999) }},
		{"override", func(c *Claim) { c.AmountOverride = true }},
		{"item amount", func(c *Claim) { c.LineItems[0].Amount = decimal.NewFromInt(1) }},
		{"item replaced", func(c *Claim) { c.LineItems[0].ID = "b" }},
		{"item added", func(c *Claim) { c.LineItems = append(c.LineItems, LineItem{ID: "z"}) }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			changed := base.Clone()
			tt.mutate(changed)
			assert.False(t, base.SameSettlement(changed))
		})
	}
}
