package service

import (
	"context"
	"errors"
	"fmt"
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

// CreateClaimParams describes a new claim. The acting actor becomes its applicant.
type CreateClaimParams struct {
	Kind             entity.ClaimKind
	PayeeName        string
	PayeeReferenceID string
	LineItems        []entity.LineItem
	PaymentDetail    *entity.PaymentDetail
	AmountOverride   *decimal.Decimal
	NoReceiptReason  string

	// Submit runs the submit transition in the same transaction as the create
	Submit bool
}

// EditClaimParams lists the fields to change. Nil fields are left as they are.
type EditClaimParams struct {
	PayeeName        *string
	PayeeReferenceID *string
	LineItems        *[]entity.LineItem
	PaymentDetail    *entity.PaymentDetail
	AmountOverride   *decimal.Decimal
	NoReceiptReason  *string
}

// ClaimService manages claims around the state machine
type ClaimService interface {
	Create(ctx context.Context, actor *entity.Actor, params CreateClaimParams) (*entity.Claim, error)
	Edit(ctx context.Context, actor *entity.Actor, claimID string, params EditClaimParams) (*entity.Claim, error)
	Delete(ctx context.Context, actor *entity.Actor, claimID string) error
	Get(ctx context.Context, claimID string) (*entity.Claim, error)
	History(ctx context.Context, claimID string) ([]entity.HistoryEntry, error)
	ListByStatus(ctx context.Context, status domainwf.State) ([]*entity.Claim, error)
	Transition(ctx context.Context, actor *entity.Actor, claimID string, trigger domainwf.Trigger, input workflow.Input) (*entity.Claim, error)
	AvailableTriggers(ctx context.Context, actor *entity.Actor, claimID string) ([]domainwf.Trigger, error)
	UploadAttachment(ctx context.Context, actor *entity.Actor, name string, content []byte) (string, error)
}

type claimServiceImpl struct {
	claimRepo   port.ClaimRepository
	actors      port.ActorDirectory
	txManager   port.TransactionManager
	engine      workflow.ClaimEngine
	attachments port.AttachmentStore
	dispatcher  dispatcher.Dispatcher
	now         func() time.Time
	logger      Logger
}

// NewClaimService creates a new ClaimService
func NewClaimService(
	claimRepo port.ClaimRepository,
	actors port.ActorDirectory,
	txManager port.TransactionManager,
	engine workflow.ClaimEngine,
	attachments port.AttachmentStore,
	d dispatcher.Dispatcher,
	logger Logger,
) ClaimService {
	if d == nil {
		d = dispatcher.Nop()
	}
	return &claimServiceImpl{
		claimRepo:   claimRepo,
		actors:      actors,
		txManager:   txManager,
		engine:      engine,
		attachments: attachments,
		dispatcher:  d,
		now:         func() time.Time { return time.Now().UTC() },
		logger:      orNop(logger),
	}
}

// Create creates a claim in draft, optionally submitting it right away
func (s *claimServiceImpl) Create(ctx context.Context, actor *entity.Actor, params CreateClaimParams) (*entity.Claim, error) {
	if actor == nil || actor.ID == "" {
		return nil, apperr.Unauthorized("an identified actor is required")
	}
	if !params.Kind.IsValid() {
		return nil, apperr.ValidationFailed("unknown claim kind %q", params.Kind)
	}

	now := s.now()
	claim := &entity.Claim{
		ID:               uuid.NewString(),
		Kind:             params.Kind,
		ApplicantID:      actor.ID,
		PayeeName:        strings.TrimSpace(params.PayeeName),
		PayeeReferenceID: params.PayeeReferenceID,
		Status:           domainwf.StateDraft,
		NoReceiptReason:  strings.TrimSpace(params.NoReceiptReason),
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if err := setContent(claim, &params.LineItems, params.PaymentDetail, params.AmountOverride); err != nil {
		return nil, err
	}

	result := claim
	err := s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		if err := s.claimRepo.Create(txCtx, claim); err != nil {
			return fmt.Errorf("create claim: %w", err)
		}
		if !params.Submit {
			return nil
		}

		applicant, err := workflow.ResolveApplicant(txCtx, s.actors, claim)
		if err != nil {
			return err
		}
		submitted, err := s.engine.Apply(txCtx, actor, applicant, claim, domainwf.TriggerSubmit, workflow.Input{})
		if err != nil {
			return err
		}
		if err := s.claimRepo.Save(txCtx, submitted, domainwf.StateDraft); err != nil {
			return fmt.Errorf("save submitted claim: %w", err)
		}
		result = submitted
		return nil
	})
	if err != nil {
		logFailure(s.logger, "Failed to create claim", err, "applicant", actor.ID, "kind", params.Kind)
		return nil, err
	}

	s.logger.Info("Claim created", "claim_id", result.ID, "applicant", actor.ID, "status", result.Status, "amount", result.Amount.String())
	s.signal(ctx, actor, result.ID, "create", "", result.Status)
	return result, nil
}

// Edit replaces the mutable fields of an editable claim
func (s *claimServiceImpl) Edit(ctx context.Context, actor *entity.Actor, claimID string, params EditClaimParams) (*entity.Claim, error) {
	var (
		result    *entity.Claim
		forgotten []string
	)
	err := s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		claim, err := s.load(txCtx, claimID)
		if err != nil {
			return err
		}
		if !permission.CanEdit(actor, claim) {
			return apperr.Unauthorized("actor %s may not edit claim %s", actorID(actor), claimID)
		}
		if !claim.Status.IsEditable() {
			return apperr.IllegalTransition("claim %s is not editable in %s", claimID, claim.Status)
		}

		updated := claim.Clone()
		if params.PayeeName != nil {
			updated.PayeeName = strings.TrimSpace(*params.PayeeName)
		}
		if params.PayeeReferenceID != nil {
			updated.PayeeReferenceID = *params.PayeeReferenceID
		}
		if params.NoReceiptReason != nil {
			updated.NoReceiptReason = strings.TrimSpace(*params.NoReceiptReason)
		}
		if params.LineItems != nil || params.PaymentDetail != nil || params.AmountOverride != nil {
			lineItems := params.LineItems
			if lineItems == nil {
				lineItems = &updated.LineItems
			}
			detail := params.PaymentDetail
			if detail == nil {
				detail = updated.PaymentDetail
			}
			override := params.AmountOverride
			if override == nil && params.LineItems == nil && updated.AmountOverride {
				keep := updated.Amount
				override = &keep
			}
			if err := setContent(updated, lineItems, detail, override); err != nil {
				return err
			}
		}
		if claim.DatePaid != nil && !claim.SameSettlement(updated) {
			return apperr.ValidationFailed("claim %s is paid; only its evidence may change", claimID)
		}
		updated.UpdatedAt = s.now()

		if err := s.claimRepo.Save(txCtx, updated, claim.Status); err != nil {
			if errors.Is(err, port.ErrStatusConflict) {
				return apperr.IllegalTransition("claim %s changed concurrently", claimID)
			}
			return fmt.Errorf("save claim: %w", err)
		}

		forgotten = removedRefs(claim.AttachmentRefs(), updated.AttachmentRefs())
		result = updated
		return nil
	})
	if err != nil {
		logFailure(s.logger, "Failed to edit claim", err, "claim_id", claimID, "actor", actorID(actor))
		return nil, err
	}

	s.forget(ctx, claimID, forgotten)
	s.logger.Info("Claim edited", "claim_id", claimID, "actor", actor.ID, "amount", result.Amount.String())
	s.signal(ctx, actor, claimID, "edit", result.Status, result.Status)
	return result, nil
}

// Delete removes a draft claim and forgets its attachments
func (s *claimServiceImpl) Delete(ctx context.Context, actor *entity.Actor, claimID string) error {
	var refs []string
	err := s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		claim, err := s.load(txCtx, claimID)
		if err != nil {
			return err
		}
		if !permission.CanDelete(actor, claim) {
			return apperr.Unauthorized("only the applicant may delete claim %s", claimID)
		}
		if claim.Status != domainwf.StateDraft {
			return apperr.IllegalTransition("claim %s can only be deleted while in draft, it is %s", claimID, claim.Status)
		}
		if err := s.claimRepo.Delete(txCtx, claimID); err != nil {
			return fmt.Errorf("delete claim: %w", err)
		}
		refs = claim.AttachmentRefs()
		return nil
	})
	if err != nil {
		logFailure(s.logger, "Failed to delete claim", err, "claim_id", claimID, "actor", actorID(actor))
		return err
	}

	s.forget(ctx, claimID, refs)
	s.logger.Info("Claim deleted", "claim_id", claimID, "actor", actor.ID)
	s.signal(ctx, actor, claimID, "delete", domainwf.StateDraft, "")
	return nil
}

// Get returns a claim or NotFound
func (s *claimServiceImpl) Get(ctx context.Context, claimID string) (*entity.Claim, error) {
	return s.load(ctx, claimID)
}

// History returns the audit trail ordered by timestamp, ties by insertion order
func (s *claimServiceImpl) History(ctx context.Context, claimID string) ([]entity.HistoryEntry, error) {
	claim, err := s.load(ctx, claimID)
	if err != nil {
		return nil, err
	}
	return ledger.Sorted(claim.History), nil
}

// ListByStatus returns claims in status, or all claims when status is empty
func (s *claimServiceImpl) ListByStatus(ctx context.Context, status domainwf.State) ([]*entity.Claim, error) {
	if status != "" && !status.IsValid() {
		return nil, apperr.ValidationFailed("unknown status %q", status)
	}
	claims, err := s.claimRepo.ListByStatus(ctx, status)
	if err != nil {
		s.logger.Error("Failed to list claims", "status", status, "error", err)
		return nil, fmt.Errorf("list claims: %w", err)
	}
	return claims, nil
}

// Transition fires trigger on a claim through the engine
func (s *claimServiceImpl) Transition(ctx context.Context, actor *entity.Actor, claimID string, trigger domainwf.Trigger, input workflow.Input) (*entity.Claim, error) {
	return s.engine.Transition(ctx, actor, claimID, trigger, input)
}

// AvailableTriggers lists what actor may do with the claim now
func (s *claimServiceImpl) AvailableTriggers(ctx context.Context, actor *entity.Actor, claimID string) ([]domainwf.Trigger, error) {
	claim, err := s.load(ctx, claimID)
	if err != nil {
		return nil, err
	}
	return s.engine.AvailableTriggers(ctx, actor, claim)
}

// UploadAttachment stores a receipt or invoice file and returns its reference
func (s *claimServiceImpl) UploadAttachment(ctx context.Context, actor *entity.Actor, name string, content []byte) (string, error) {
	if actor == nil || actor.ID == "" {
		return "", apperr.Unauthorized("an identified actor is required")
	}
	if len(content) == 0 {
		return "", apperr.ValidationFailed("attachment is empty")
	}
	ref, err := s.attachments.Store(ctx, name, content)
	if err != nil {
		s.logger.Error("Failed to store attachment", "name", name, "error", err)
		return "", fmt.Errorf("store attachment: %w", err)
	}
	s.logger.Info("Attachment stored", "name", name, "ref", ref, "actor", actor.ID, "size", len(content))
	return ref, nil
}

func (s *claimServiceImpl) load(ctx context.Context, claimID string) (*entity.Claim, error) {
	claim, err := s.claimRepo.GetByID(ctx, claimID)
	if err != nil {
		return nil, fmt.Errorf("load claim %s: %w", claimID, err)
	}
	if claim == nil {
		return nil, apperr.NotFound("claim %s", claimID)
	}
	return claim, nil
}

// forget drops attachment references; failures are logged and leave stray files behind
func (s *claimServiceImpl) forget(ctx context.Context, claimID string, refs []string) {
	for _, ref := range refs {
		if err := s.attachments.Delete(ctx, ref); err != nil {
			s.logger.Error("Failed to delete attachment", "claim_id", claimID, "ref", ref, "error", err)
		}
	}
}

func (s *claimServiceImpl) signal(ctx context.Context, actor *entity.Actor, claimID, action string, from, to domainwf.State) {
	s.dispatcher.DispatchAsync(ctx, event.NewEvent(event.TypeClaimsChanged, claimID, actor.ID, map[string]interface{}{
		event.KeyAction:    action,
		event.KeyFrom:      from.String(),
		event.KeyTo:        to.String(),
		event.KeyActorName: actor.Name,
	}))
}

// setContent installs line items or a payment detail and recomputes the amount
func setContent(claim *entity.Claim, lineItems *[]entity.LineItem, detail *entity.PaymentDetail, override *decimal.Decimal) error {
	var items []entity.LineItem
	if lineItems != nil {
		items = *lineItems
	}

	if claim.Kind.HasLineItems() {
		if detail != nil {
			return apperr.ValidationFailed("%s claims carry line items, not a payment detail", claim.Kind)
		}
		out := make([]entity.LineItem, len(items))
		for i, li := range items {
			if li.Amount.IsNegative() {
				return apperr.ValidationFailed("line item amount must not be negative")
			}
			if li.ID == "" {
				li.ID = uuid.NewString()
			}
			out[i] = li
		}
		claim.LineItems = out
		claim.PaymentDetail = nil
	} else {
		if len(items) > 0 {
			return apperr.ValidationFailed("%s claims carry a payment detail, not line items", claim.Kind)
		}
		claim.LineItems = nil
		if detail != nil {
			pd := *detail
			if pd.InvoiceStatus == "" {
				pd.InvoiceStatus = entity.InvoiceNotObtained
			}
			claim.PaymentDetail = &pd
		}
	}

	if override != nil {
		if override.IsNegative() {
			return apperr.ValidationFailed("amount must not be negative")
		}
		claim.Amount = *override
		claim.AmountOverride = true
		return nil
	}
	claim.AmountOverride = false
	claim.RecomputeAmount()
	return nil
}

func removedRefs(before, after []string) []string {
	kept := make(map[string]bool, len(after))
	for _, ref := range after {
		kept[ref] = true
	}
	var removed []string
	for _, ref := range before {
		if !kept[ref] {
			removed = append(removed, ref)
		}
	}
	return removed
}

func actorID(a *entity.Actor) string {
	if a == nil {
		return ""
	}
	return a.ID
}
