package entity

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/garyjia/claimflow/internal/domain/workflow"
)

// PaymentItem links a payment to one grouped claim and the state batch payment left it in.
// HistorySeq is the seq of the claim's "paid" history entry.
type PaymentItem struct {
	ClaimID      string          `json:"claim_id"`
	Amount       decimal.Decimal `json:"amount"`
	ResultStatus workflow.State  `json:"result_status"`
	HistorySeq   int             `json:"history_seq"`
}

// Payment records funds disbursed to one payee for a set of claims
type Payment struct {
	ID          string          `json:"id"`
	Payee       string          `json:"payee"`
	PaymentDate time.Time       `json:"payment_date"`
	Amount      decimal.Decimal `json:"amount"`
	Items       []PaymentItem   `json:"items"`
	CreatedBy   string          `json:"created_by"`
	CreatedAt   time.Time       `json:"created_at"`
}

// ClaimIDs returns the grouped claim ids in batch order
func (p *Payment) ClaimIDs() []string {
	ids := make([]string, 0, len(p.Items))
	for _, item := range p.Items {
		ids = append(ids, item.ClaimID)
	}
	return ids
}
