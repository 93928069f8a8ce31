package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/garyjia/claimflow/internal/application/dispatcher"
	"github.com/garyjia/claimflow/internal/application/ledger"
	"github.com/garyjia/claimflow/internal/application/port"
	"github.com/garyjia/claimflow/internal/application/workflow"
	"github.com/garyjia/claimflow/internal/domain/apperr"
	"github.com/garyjia/claimflow/internal/domain/entity"
	"github.com/garyjia/claimflow/internal/domain/event"
	"github.com/garyjia/claimflow/internal/domain/permission"
	domainwf "github.com/garyjia/claimflow/internal/domain/workflow"
)

// RunPaymentParams selects the claims of one payee to pay on one date
type RunPaymentParams struct {
	Payee       string
	ClaimIDs    []string
	PaymentDate time.Time
}

// PaymentService groups approved claims into payments and reverses them
type PaymentService interface {
	// Run validates the whole selection, then creates the payment and moves every claim on in one transaction
	Run(ctx context.Context, actor *entity.Actor, params RunPaymentParams) (*entity.Payment, error)

	// Cancel reverts every grouped claim to approved and deletes the payment, unless any claim diverged
	Cancel(ctx context.Context, actor *entity.Actor, paymentID string) error

	Get(ctx context.Context, paymentID string) (*entity.Payment, error)
	List(ctx context.Context) ([]*entity.Payment, error)

	// Export writes the remittance document of a payment
	Export(ctx context.Context, paymentID string, w io.Writer) error
}

type paymentServiceImpl struct {
	claimRepo   port.ClaimRepository
	paymentRepo port.PaymentRepository
	actors      port.ActorDirectory
	txManager   port.TransactionManager
	engine      workflow.ClaimEngine
	exporter    port.PaymentExporter
	dispatcher  dispatcher.Dispatcher
	ledger      *ledger.Ledger
	now         func() time.Time
	logger      Logger
}

// NewPaymentService creates a new PaymentService
func NewPaymentService(
	claimRepo port.ClaimRepository,
	paymentRepo port.PaymentRepository,
	actors port.ActorDirectory,
	txManager port.TransactionManager,
	engine workflow.ClaimEngine,
	exporter port.PaymentExporter,
	d dispatcher.Dispatcher,
	logger Logger,
) PaymentService {
	if d == nil {
		d = dispatcher.Nop()
	}
	now := func() time.Time { return time.Now().UTC() }
	return &paymentServiceImpl{
		claimRepo:   claimRepo,
		paymentRepo: paymentRepo,
		actors:      actors,
		txManager:   txManager,
		engine:      engine,
		exporter:    exporter,
		dispatcher:  d,
		ledger:      ledger.New(ledger.WithClock(now)),
		now:         now,
		logger:      orNop(logger),
	}
}

// Run creates one payment for the selected claims
func (s *paymentServiceImpl) Run(ctx context.Context, actor *entity.Actor, params RunPaymentParams) (*entity.Payment, error) {
	if !permission.CanRunPayment(actor) {
		return nil, apperr.Unauthorized("actor %s may not run payments", actorID(actor))
	}
	payee := strings.TrimSpace(params.Payee)
	if err := validateSelection(payee, params.ClaimIDs); err != nil {
		return nil, err
	}
	if params.PaymentDate.IsZero() {
		return nil, apperr.ValidationFailed("payment date is required")
	}

	var (
		payment *entity.Payment
		paid    []*entity.Claim
		from    []domainwf.State
	)
	err := s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		claims, err := s.loadAll(txCtx, params.ClaimIDs)
		if err != nil {
			return err
		}

		// Whole-set checks before any mutation: payee first, then status
		for _, c := range claims {
			if strings.TrimSpace(c.PayeeName) != payee {
				return apperr.InvalidBatch("claim %s is payable to %q, not %q", c.ID, c.PayeeName, payee)
			}
		}
		for _, c := range claims {
			if c.Status != domainwf.StateApproved {
				return apperr.IllegalTransition("claim %s is %s, only approved claims can be paid", c.ID, c.Status)
			}
		}

		payment = &entity.Payment{
			ID:          uuid.NewString(),
			Payee:       payee,
			PaymentDate: params.PaymentDate,
			Amount:      decimal.Zero,
			CreatedBy:   actor.ID,
			CreatedAt:   s.now(),
		}
		updated := make([]*entity.Claim, 0, len(claims))
		for _, c := range claims {
			applicant, err := workflow.ResolveApplicant(txCtx, s.actors, c)
			if err != nil {
				return err
			}
			next, err := s.engine.Apply(txCtx, actor, applicant, c, domainwf.TriggerPay, workflow.Input{PaymentDate: params.PaymentDate})
			if err != nil {
				return err
			}
			updated = append(updated, next)
			payment.Amount = payment.Amount.Add(c.Amount)
			payment.Items = append(payment.Items, entity.PaymentItem{
				ClaimID:      c.ID,
				Amount:       c.Amount,
				ResultStatus: next.Status,
				HistorySeq:   next.LastSeq(),
			})
		}

		if err := s.paymentRepo.Create(txCtx, payment); err != nil {
			return fmt.Errorf("create payment: %w", err)
		}
		for i, c := range updated {
			if err := s.claimRepo.Save(txCtx, c, claims[i].Status); err != nil {
				if errors.Is(err, port.ErrStatusConflict) {
					return apperr.IllegalTransition("claim %s changed concurrently", c.ID)
				}
				return fmt.Errorf("save claim %s: %w", c.ID, err)
			}
			from = append(from, claims[i].Status)
		}
		paid = updated
		return nil
	})
	if err != nil {
		logFailure(s.logger, "Payment run failed", err, "payee", payee, "claims", len(params.ClaimIDs), "actor", actor.ID)
		return nil, err
	}

	s.logger.Info("Payment created",
		"payment_id", payment.ID,
		"payee", payee,
		"amount", payment.Amount.String(),
		"claims", len(paid),
		"actor", actor.ID,
	)
	for i, c := range paid {
		s.dispatcher.DispatchAsync(ctx, event.NewEventWithCorrelation(event.TypeClaimsChanged, c.ID, actor.ID, map[string]interface{}{
			event.KeyAction:    domainwf.TriggerPay.String(),
			event.KeyFrom:      from[i].String(),
			event.KeyTo:        c.Status.String(),
			event.KeyActorName: actor.Name,
		}, payment.ID))
	}
	s.signalPayment(ctx, actor, payment, "run")
	return payment, nil
}

// Cancel reverses a payment as a unit
func (s *paymentServiceImpl) Cancel(ctx context.Context, actor *entity.Actor, paymentID string) error {
	if !permission.CanRunPayment(actor) {
		return apperr.Unauthorized("actor %s may not cancel payments", actorID(actor))
	}

	var payment *entity.Payment
	err := s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		var err error
		payment, err = s.paymentRepo.GetByID(txCtx, paymentID)
		if err != nil {
			return fmt.Errorf("load payment %s: %w", paymentID, err)
		}
		if payment == nil {
			return apperr.NotFound("payment %s", paymentID)
		}

		claims := make([]*entity.Claim, 0, len(payment.Items))
		for _, item := range payment.Items {
			c, err := s.claimRepo.GetByID(txCtx, item.ClaimID)
			if err != nil {
				return fmt.Errorf("load claim %s: %w", item.ClaimID, err)
			}
			if err := checkUndiverged(c, item, payment.PaymentDate); err != nil {
				return err
			}
			claims = append(claims, c)
		}

		for i, c := range claims {
			reverted := c.Clone()
			reverted.Status = domainwf.StateApproved
			reverted.DatePaid = nil
			reverted.UpdatedAt = s.now()
			if _, err := s.ledger.Record(reverted, actor, entity.ActionPaymentCancelled, "payment "+payment.ID); err != nil {
				return err
			}
			if err := s.claimRepo.Save(txCtx, reverted, payment.Items[i].ResultStatus); err != nil {
				if errors.Is(err, port.ErrStatusConflict) {
					return apperr.StaleBatchState("claim %s changed concurrently", c.ID)
				}
				return fmt.Errorf("save claim %s: %w", c.ID, err)
			}
		}

		if err := s.paymentRepo.Delete(txCtx, payment.ID); err != nil {
			return fmt.Errorf("delete payment: %w", err)
		}
		return nil
	})
	if err != nil {
		logFailure(s.logger, "Payment cancellation failed", err, "payment_id", paymentID, "actor", actor.ID)
		return err
	}

	s.logger.Info("Payment cancelled", "payment_id", paymentID, "claims", len(payment.Items), "actor", actor.ID)
	for _, item := range payment.Items {
		s.dispatcher.DispatchAsync(ctx, event.NewEventWithCorrelation(event.TypeClaimsChanged, item.ClaimID, actor.ID, map[string]interface{}{
			event.KeyAction:    "cancel_payment",
			event.KeyFrom:      item.ResultStatus.String(),
			event.KeyTo:        domainwf.StateApproved.String(),
			event.KeyActorName: actor.Name,
		}, payment.ID))
	}
	s.signalPayment(ctx, actor, payment, "cancel")
	return nil
}

// Get returns a payment or NotFound
func (s *paymentServiceImpl) Get(ctx context.Context, paymentID string) (*entity.Payment, error) {
	payment, err := s.paymentRepo.GetByID(ctx, paymentID)
	if err != nil {
		return nil, fmt.Errorf("load payment %s: %w", paymentID, err)
	}
	if payment == nil {
		return nil, apperr.NotFound("payment %s", paymentID)
	}
	return payment, nil
}

// List returns every payment
func (s *paymentServiceImpl) List(ctx context.Context) ([]*entity.Payment, error) {
	payments, err := s.paymentRepo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list payments: %w", err)
	}
	return payments, nil
}

// Export renders a payment with its grouped claims
func (s *paymentServiceImpl) Export(ctx context.Context, paymentID string, w io.Writer) error {
	payment, err := s.Get(ctx, paymentID)
	if err != nil {
		return err
	}
	claims, err := s.loadAll(ctx, payment.ClaimIDs())
	if err != nil {
		return err
	}
	if err := s.exporter.Write(w, payment, claims); err != nil {
		s.logger.Error("Failed to export payment", "payment_id", paymentID, "error", err)
		return fmt.Errorf("export payment %s: %w", paymentID, err)
	}
	return nil
}

func (s *paymentServiceImpl) loadAll(ctx context.Context, ids []string) ([]*entity.Claim, error) {
	claims := make([]*entity.Claim, 0, len(ids))
	for _, id := range ids {
		c, err := s.claimRepo.GetByID(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("load claim %s: %w", id, err)
		}
		if c == nil {
			return nil, apperr.NotFound("claim %s", id)
		}
		claims = append(claims, c)
	}
	return claims, nil
}

func (s *paymentServiceImpl) signalPayment(ctx context.Context, actor *entity.Actor, p *entity.Payment, action string) {
	s.dispatcher.DispatchAsync(ctx, event.NewEventWithCorrelation(event.TypePaymentsChanged, p.ID, actor.ID, map[string]interface{}{
		event.KeyAction:    action,
		event.KeyPayee:     p.Payee,
		event.KeyAmount:    p.Amount.String(),
		event.KeyClaimIDs:  p.ClaimIDs(),
		event.KeyActorName: actor.Name,
	}, p.ID))
}

func validateSelection(payee string, ids []string) error {
	if payee == "" {
		return apperr.InvalidBatch("payee is required")
	}
	if len(ids) == 0 {
		return apperr.InvalidBatch("no claims selected")
	}
	seen := make(map[string]bool, len(ids))
	for _, id := range ids {
		if id == "" {
			return apperr.InvalidBatch("empty claim id in selection")
		}
		if seen[id] {
			return apperr.InvalidBatch("claim %s selected twice", id)
		}
		seen[id] = true
	}
	return nil
}

// checkUndiverged verifies a grouped claim still holds exactly what batch payment set
func checkUndiverged(c *entity.Claim, item entity.PaymentItem, paidOn time.Time) error {
	if c == nil {
		return apperr.StaleBatchState("claim %s no longer exists", item.ClaimID)
	}
	if c.Status != item.ResultStatus {
		return apperr.StaleBatchState("claim %s moved from %s to %s since payment", c.ID, item.ResultStatus, c.Status)
	}
	if c.DatePaid == nil || !c.DatePaid.Equal(paidOn) {
		return apperr.StaleBatchState("claim %s no longer carries the payment date", c.ID)
	}
	if c.LastSeq() != item.HistorySeq {
		return apperr.StaleBatchState("claim %s has history after its payment", c.ID)
	}
	if !c.Amount.Equal(item.Amount) {
		return apperr.StaleBatchState("claim %s amount changed since payment", c.ID)
	}
	return nil
}
