package workflow

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/garyjia/claimflow/internal/application/dispatcher"
	"github.com/garyjia/claimflow/internal/application/ledger"
	"github.com/garyjia/claimflow/internal/application/port"
	"github.com/garyjia/claimflow/internal/domain/apperr"
	"github.com/garyjia/claimflow/internal/domain/entity"
	"github.com/garyjia/claimflow/internal/domain/event"
	"github.com/garyjia/claimflow/internal/domain/permission"
	domainwf "github.com/garyjia/claimflow/internal/domain/workflow"
)

// Logger interface for minimal logging dependency
type Logger interface {
	Info(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
}

type nopLogger struct{}

func (nopLogger) Info(string, ...interface{}) {}
func (nopLogger) Error(string, ...interface{}) {}

// engineImpl is the concrete implementation of ClaimEngine
type engineImpl struct {
	claimRepo  port.ClaimRepository
	actors     port.ActorDirectory
	txManager  port.TransactionManager
	dispatcher dispatcher.Dispatcher
	ledger     *ledger.Ledger
	now        func() time.Time
	logger     Logger
}

// EngineOption configures the claim engine
type EngineOption func(*engineImpl)

// WithDispatcher sets the event dispatcher for change signals
func WithDispatcher(d dispatcher.Dispatcher) EngineOption {
	return func(e *engineImpl) {
		e.dispatcher = d
	}
}

// WithLogger sets the engine logger
func WithLogger(l Logger) EngineOption {
	return func(e *engineImpl) {
		e.logger = l
	}
}

// WithClock overrides the time source used for history entries and update stamps
func WithClock(now func() time.Time) EngineOption {
	return func(e *engineImpl) {
		e.now = now
	}
}

// NewEngine creates a new claim engine
func NewEngine(
	claimRepo port.ClaimRepository,
	actors port.ActorDirectory,
	txManager port.TransactionManager,
	opts ...EngineOption,
) ClaimEngine {
	e := &engineImpl{
		claimRepo:  claimRepo,
		actors:     actors,
		txManager:  txManager,
		dispatcher: dispatcher.Nop(),
		now:        func() time.Time { return time.Now().UTC() },
		logger:     nopLogger{},
	}

	for _, opt := range opts {
		opt(e)
	}
	e.ledger = ledger.New(ledger.WithClock(e.now))

	return e
}

// Apply validates and applies trigger to a copy of claim
func (e *engineImpl) Apply(
	ctx context.Context,
	actor, applicant *entity.Actor,
	claim *entity.Claim,
	trigger domainwf.Trigger,
	input Input,
) (*entity.Claim, error) {
	if claim == nil {
		return nil, apperr.NotFound("claim")
	}
	if !trigger.IsValid() || !claim.Status.IsValid() {
		return nil, apperr.IllegalTransition("trigger %q from status %q", trigger, claim.Status)
	}

	machine := BuildClaimStateMachine(claim.Status)
	if !machine.CanFire(trigger) {
		return nil, apperr.IllegalTransition("cannot %s a claim in %s", trigger, claim.Status)
	}

	if !permission.CanTransition(actor, applicant, claim, trigger) {
		return nil, apperr.Unauthorized("actor %s may not %s claim %s", actorID(actor), trigger, claim.ID)
	}

	updated := claim.Clone()
	if err := e.prepare(updated, trigger, input); err != nil {
		return nil, err
	}

	facts := domainwf.Facts{
		ApplicantHasApprover: applicant.HasApprover(),
		InvoiceObtained:      updated.InvoiceObtained(),
	}
	if err := machine.Fire(ctx, trigger, facts); err != nil {
		if errors.Is(err, domainwf.ErrInvalidTransition) || errors.Is(err, domainwf.ErrGuardFailed) {
			return nil, apperr.IllegalTransition("%v", err)
		}
		return nil, fmt.Errorf("fire %s: %w", trigger, err)
	}
	next := machine.State()

	updated.Status = next
	updated.UpdatedAt = e.now()

	if _, err := e.ledger.Record(updated, actor, historyAction(trigger, next), strings.TrimSpace(input.Reason)); err != nil {
		return nil, err
	}

	return updated, nil
}

// prepare validates the input for trigger and applies its field side effects to claim
func (e *engineImpl) prepare(claim *entity.Claim, trigger domainwf.Trigger, input Input) error {
	if trigger.RequiresReason() && strings.TrimSpace(input.Reason) == "" {
		return apperr.ValidationFailed("%s requires a reason", trigger)
	}

	switch trigger {
	case domainwf.TriggerSubmit:
		return validateForSubmit(claim)

	case domainwf.TriggerSubmitEvidence:
		if input.Evidence == nil {
			return apperr.ValidationFailed("submit_evidence requires an attachment or a no-receipt declaration")
		}
		if err := applyEvidence(claim, input.Evidence); err != nil {
			return err
		}
		if !claim.EvidenceComplete() {
			return apperr.ValidationFailed("every item needs an attachment or a no-receipt declaration with reason")
		}

	case domainwf.TriggerPay:
		if input.PaymentDate.IsZero() {
			return apperr.ValidationFailed("batch payment requires a payment date")
		}
		paid := input.PaymentDate
		claim.DatePaid = &paid
	}

	return nil
}

func validateForSubmit(claim *entity.Claim) error {
	if !claim.Kind.IsValid() {
		return apperr.ValidationFailed("unknown claim kind %q", claim.Kind)
	}
	if strings.TrimSpace(claim.PayeeName) == "" {
		return apperr.ValidationFailed("payee is required")
	}
	if claim.Amount.IsNegative() {
		return apperr.ValidationFailed("amount must not be negative")
	}
	if claim.Kind.HasLineItems() {
		if len(claim.LineItems) == 0 {
			return apperr.ValidationFailed("at least one line item is required")
		}
		for _, li := range claim.LineItems {
			if li.Amount.IsNegative() {
				return apperr.ValidationFailed("line item %s has a negative amount", li.ID)
			}
		}
	} else if claim.PaymentDetail == nil {
		return apperr.ValidationFailed("payment detail is required")
	}
	if claim.FlaggedNoReceipt() && strings.TrimSpace(claim.NoReceiptReason) == "" {
		return apperr.ValidationFailed("no-receipt reason is required")
	}
	return nil
}

func applyEvidence(claim *entity.Claim, ev *Evidence) error {
	declared := make(map[string]bool, len(ev.NoReceipt))
	for _, id := range ev.NoReceipt {
		declared[id] = true
	}
	if len(declared) > 0 && strings.TrimSpace(ev.Reason) == "" {
		return apperr.ValidationFailed("unable-to-provide declaration requires a reason")
	}

	known := make(map[string]bool, len(claim.LineItems)+1)
	for i := range claim.LineItems {
		li := &claim.LineItems[i]
		known[li.ID] = true
		if ref, ok := ev.Attachments[li.ID]; ok && ref != "" {
			li.AttachmentRef = ref
			li.NoReceipt = false
		}
		if declared[li.ID] {
			li.NoReceipt = true
		}
	}
	if pd := claim.PaymentDetail; pd != nil {
		known[PaymentDetailKey] = true
		if ref, ok := ev.Attachments[PaymentDetailKey]; ok && ref != "" {
			pd.AttachmentRef = ref
			pd.NoReceipt = false
		}
		if declared[PaymentDetailKey] {
			pd.NoReceipt = true
		}
	}

	for id := range ev.Attachments {
		if !known[id] {
			return apperr.ValidationFailed("evidence references unknown item %s", id)
		}
	}
	for id := range declared {
		if !known[id] {
			return apperr.ValidationFailed("evidence references unknown item %s", id)
		}
	}

	if reason := strings.TrimSpace(ev.Reason); reason != "" {
		claim.NoReceiptReason = reason
	}
	return nil
}

func historyAction(trigger domainwf.Trigger, next domainwf.State) entity.HistoryAction {
	switch trigger {
	case domainwf.TriggerSubmit:
		return entity.ActionSubmitted
	case domainwf.TriggerPay:
		return entity.ActionPaid
	default:
		return entity.StatusChangeAction(next)
	}
}

// Transition loads, applies and saves one claim transition
func (e *engineImpl) Transition(
	ctx context.Context,
	actor *entity.Actor,
	claimID string,
	trigger domainwf.Trigger,
	input Input,
) (*entity.Claim, error) {
	if trigger.IsInternal() {
		return nil, apperr.IllegalTransition("%s is only performed by the payment batcher", trigger)
	}

	var (
		previous domainwf.State
		result   *entity.Claim
	)
	err := e.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		claim, err := e.claimRepo.GetByID(txCtx, claimID)
		if err != nil {
			return fmt.Errorf("failed to load claim %s: %w", claimID, err)
		}
		if claim == nil {
			return apperr.NotFound("claim %s", claimID)
		}
		if input.ExpectedStatus != "" && claim.Status != input.ExpectedStatus {
			return apperr.IllegalTransition("claim %s is %s, not %s", claimID, claim.Status, input.ExpectedStatus)
		}

		applicant, err := ResolveApplicant(txCtx, e.actors, claim)
		if err != nil {
			return err
		}

		updated, err := e.Apply(txCtx, actor, applicant, claim, trigger, input)
		if err != nil {
			return err
		}

		if err := e.claimRepo.Save(txCtx, updated, claim.Status); err != nil {
			if errors.Is(err, port.ErrStatusConflict) {
				return apperr.IllegalTransition("claim %s changed concurrently", claimID)
			}
			return fmt.Errorf("failed to save claim %s: %w", claimID, err)
		}

		previous = claim.Status
		result = updated
		return nil
	})
	if err != nil {
		e.logFailure("Claim transition failed", err, "claim_id", claimID, "trigger", trigger, "actor", actorID(actor))
		return nil, err
	}

	e.logger.Info("Claim transitioned",
		"claim_id", claimID,
		"trigger", trigger,
		"from", previous,
		"to", result.Status,
		"actor", actor.ID,
	)

	e.dispatcher.DispatchAsync(ctx, event.NewEvent(event.TypeClaimsChanged, claimID, actor.ID, map[string]interface{}{
		event.KeyAction:    trigger.String(),
		event.KeyFrom:      previous.String(),
		event.KeyTo:        result.Status.String(),
		event.KeyActorName: actor.Name,
	}))

	return result, nil
}

// AvailableTriggers lists the triggers the gate would let actor fire on claim
func (e *engineImpl) AvailableTriggers(ctx context.Context, actor *entity.Actor, claim *entity.Claim) ([]domainwf.Trigger, error) {
	applicant, err := ResolveApplicant(ctx, e.actors, claim)
	if err != nil {
		return nil, err
	}

	var out []domainwf.Trigger
	for _, trigger := range BuildClaimStateMachine(claim.Status).PermittedTriggers() {
		if trigger.IsInternal() {
			continue
		}
		if permission.CanTransition(actor, applicant, claim, trigger) {
			out = append(out, trigger)
		}
	}
	return out, nil
}

// ResolveApplicant loads the claim owner from the directory. An applicant missing from the
// directory is treated as having no approver.
func ResolveApplicant(ctx context.Context, actors port.ActorDirectory, claim *entity.Claim) (*entity.Actor, error) {
	applicant, err := actors.GetActor(ctx, claim.ApplicantID)
	if err != nil {
		return nil, fmt.Errorf("failed to load applicant %s: %w", claim.ApplicantID, err)
	}
	if applicant == nil {
		applicant = &entity.Actor{ID: claim.ApplicantID}
	}
	return applicant, nil
}

func (e *engineImpl) logFailure(msg string, err error, keysAndValues ...interface{}) {
	kv := append(keysAndValues, "error", err)
	if apperr.IsCallerError(err) {
		e.logger.Info(msg, kv...)
		return
	}
	e.logger.Error(msg, kv...)
}

func actorID(a *entity.Actor) string {
	if a == nil {
		return ""
	}
	return a.ID
}
