package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/garyjia/claimflow/internal/application/dispatcher"
	"github.com/garyjia/claimflow/internal/application/port"
	"github.com/garyjia/claimflow/internal/domain/apperr"
	"github.com/garyjia/claimflow/internal/domain/entity"
	"github.com/garyjia/claimflow/internal/domain/event"
	"github.com/garyjia/claimflow/internal/domain/permission"
)

// Decision is the outcome a finance actor gives a change request
type Decision string

const (
	DecisionApprove Decision = "approve"
	DecisionReject  Decision = "reject"
)

// ProposeParams describes a proposed vendor mutation
type ProposeParams struct {
	ChangeType   entity.ChangeType
	VendorID     string
	ProposedData entity.VendorFields
}

// VendorService runs the vendor change-request workflow
type VendorService interface {
	Propose(ctx context.Context, actor *entity.Actor, params ProposeParams) (*entity.VendorChangeRequest, error)
	Decide(ctx context.Context, actor *entity.Actor, requestID string, decision Decision) (*entity.VendorChangeRequest, error)
	GetRequest(ctx context.Context, requestID string) (*entity.VendorChangeRequest, error)
	ListPending(ctx context.Context) ([]*entity.VendorChangeRequest, error)
	Diff(ctx context.Context, requestID string) ([]entity.FieldChange, error)
	GetVendor(ctx context.Context, vendorID string) (*entity.Vendor, error)
	ListVendors(ctx context.Context) ([]*entity.Vendor, error)
}

type vendorServiceImpl struct {
	vendorRepo  port.VendorRepository
	requestRepo port.ChangeRequestRepository
	txManager   port.TransactionManager
	dispatcher  dispatcher.Dispatcher
	now         func() time.Time
	logger      Logger
}

// NewVendorService creates a new VendorService
func NewVendorService(
	vendorRepo port.VendorRepository,
	requestRepo port.ChangeRequestRepository,
	txManager port.TransactionManager,
	d dispatcher.Dispatcher,
	logger Logger,
) VendorService {
	if d == nil {
		d = dispatcher.Nop()
	}
	return &vendorServiceImpl{
		vendorRepo:  vendorRepo,
		requestRepo: requestRepo,
		txManager:   txManager,
		dispatcher:  d,
		now:         func() time.Time { return time.Now().UTC() },
		logger:      orNop(logger),
	}
}

// Propose files a pending change request. Update and delete snapshot the vendor as it is now.
func (s *vendorServiceImpl) Propose(ctx context.Context, actor *entity.Actor, params ProposeParams) (*entity.VendorChangeRequest, error) {
	if !permission.CanProposeVendorChange(actor) {
		return nil, apperr.Unauthorized("an identified actor is required")
	}
	if !params.ChangeType.IsValid() {
		return nil, apperr.ValidationFailed("unknown change type %q", params.ChangeType)
	}

	req := &entity.VendorChangeRequest{
		ID:           uuid.NewString(),
		ChangeType:   params.ChangeType,
		VendorID:     params.VendorID,
		ProposedData: params.ProposedData,
		Status:       entity.RequestPending,
		RequestedBy:  actor.ID,
		Timestamp:    s.now(),
	}

	err := s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		switch params.ChangeType {
		case entity.ChangeAdd:
			if params.ProposedData.Name == nil || strings.TrimSpace(*params.ProposedData.Name) == "" {
				return apperr.ValidationFailed("a new vendor needs a name")
			}
			if params.VendorID != "" {
				return apperr.ValidationFailed("add requests must not name an existing vendor")
			}
			// The id is reserved now so the approved vendor and the pending guard share it
			req.VendorID = uuid.NewString()

		case entity.ChangeUpdate, entity.ChangeDelete:
			if params.VendorID == "" {
				return apperr.ValidationFailed("%s requires a vendor id", params.ChangeType)
			}
			if params.ChangeType == entity.ChangeUpdate && params.ProposedData.IsEmpty() {
				return apperr.ValidationFailed("update proposes no fields")
			}
			vendor, err := s.vendorRepo.GetByID(txCtx, params.VendorID)
			if err != nil {
				return fmt.Errorf("load vendor %s: %w", params.VendorID, err)
			}
			if vendor == nil {
				return apperr.NotFound("vendor %s", params.VendorID)
			}
			if vendor.Status == entity.VendorDeleted {
				return apperr.ValidationFailed("vendor %s is deleted", params.VendorID)
			}
			snapshot := entity.SnapshotOf(vendor)
			req.PriorSnapshot = &snapshot

			pending, err := s.requestRepo.GetPendingByVendor(txCtx, params.VendorID)
			if err != nil {
				return fmt.Errorf("check pending requests: %w", err)
			}
			if pending != nil {
				return apperr.IllegalTransition("vendor %s already has pending request %s", params.VendorID, pending.ID)
			}
		}

		if err := s.requestRepo.Create(txCtx, req); err != nil {
			if errors.Is(err, port.ErrStatusConflict) {
				return apperr.IllegalTransition("vendor %s already has a pending request", req.VendorID)
			}
			return fmt.Errorf("create change request: %w", err)
		}
		return nil
	})
	if err != nil {
		logFailure(s.logger, "Failed to propose vendor change", err, "change_type", params.ChangeType, "vendor_id", params.VendorID, "actor", actor.ID)
		return nil, err
	}

	s.logger.Info("Vendor change proposed", "request_id", req.ID, "change_type", req.ChangeType, "vendor_id", req.VendorID, "actor", actor.ID)
	s.signal(ctx, actor, req, "propose")
	return req, nil
}

// Decide approves or rejects a pending request. Approval applies the change to the vendor.
func (s *vendorServiceImpl) Decide(ctx context.Context, actor *entity.Actor, requestID string, decision Decision) (*entity.VendorChangeRequest, error) {
	if !permission.CanDecideVendorRequest(actor) {
		return nil, apperr.Unauthorized("actor %s may not decide vendor requests", actorID(actor))
	}
	if decision != DecisionApprove && decision != DecisionReject {
		return nil, apperr.ValidationFailed("unknown decision %q", decision)
	}

	var result *entity.VendorChangeRequest
	err := s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		req, err := s.loadRequest(txCtx, requestID)
		if err != nil {
			return err
		}
		if req.IsDecided() {
			return apperr.IllegalTransition("request %s is already %s", requestID, req.Status)
		}

		if decision == DecisionApprove {
			if err := s.apply(txCtx, req); err != nil {
				return err
			}
		}

		decided := *req
		decidedAt := s.now()
		decided.DecidedBy = actor.ID
		decided.DecidedAt = &decidedAt
		decided.Status = entity.RequestRejected
		if decision == DecisionApprove {
			decided.Status = entity.RequestApproved
		}
		if err := s.requestRepo.Update(txCtx, &decided, entity.RequestPending); err != nil {
			if errors.Is(err, port.ErrStatusConflict) {
				return apperr.IllegalTransition("request %s was decided concurrently", requestID)
			}
			return fmt.Errorf("update change request: %w", err)
		}
		result = &decided
		return nil
	})
	if err != nil {
		logFailure(s.logger, "Failed to decide vendor change", err, "request_id", requestID, "decision", decision, "actor", actor.ID)
		return nil, err
	}

	s.logger.Info("Vendor change decided", "request_id", requestID, "status", result.Status, "vendor_id", result.VendorID, "actor", actor.ID)
	s.signal(ctx, actor, result, string(decision))
	return result, nil
}

// apply performs the approved mutation on the vendor record
func (s *vendorServiceImpl) apply(ctx context.Context, req *entity.VendorChangeRequest) error {
	now := s.now()

	if req.ChangeType == entity.ChangeAdd {
		vendor := &entity.Vendor{
			ID:        req.VendorID,
			Status:    entity.VendorActive,
			CreatedAt: now,
			UpdatedAt: now,
		}
		req.ProposedData.ApplyTo(vendor)
		if err := s.vendorRepo.Create(ctx, vendor); err != nil {
			return fmt.Errorf("create vendor: %w", err)
		}
		return nil
	}

	vendor, err := s.vendorRepo.GetByID(ctx, req.VendorID)
	if err != nil {
		return fmt.Errorf("load vendor %s: %w", req.VendorID, err)
	}
	if vendor == nil {
		return apperr.NotFound("vendor %s", req.VendorID)
	}

	switch req.ChangeType {
	case entity.ChangeUpdate:
		req.ProposedData.ApplyTo(vendor)
	case entity.ChangeDelete:
		vendor.Status = entity.VendorDeleted
	}
	vendor.UpdatedAt = now

	if err := s.vendorRepo.Update(ctx, vendor); err != nil {
		return fmt.Errorf("update vendor: %w", err)
	}
	return nil
}

// GetRequest returns a change request or NotFound
func (s *vendorServiceImpl) GetRequest(ctx context.Context, requestID string) (*entity.VendorChangeRequest, error) {
	return s.loadRequest(ctx, requestID)
}

// ListPending returns outstanding requests, oldest first
func (s *vendorServiceImpl) ListPending(ctx context.Context) ([]*entity.VendorChangeRequest, error) {
	reqs, err := s.requestRepo.ListPending(ctx)
	if err != nil {
		return nil, fmt.Errorf("list pending requests: %w", err)
	}
	return reqs, nil
}

// Diff compares the snapshot taken at proposal time with the proposed fields
func (s *vendorServiceImpl) Diff(ctx context.Context, requestID string) ([]entity.FieldChange, error) {
	req, err := s.loadRequest(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if req.ChangeType == entity.ChangeDelete {
		return nil, nil
	}
	return entity.Diff(req.PriorSnapshot, req.ProposedData), nil
}

// GetVendor returns a vendor, deleted ones included, or NotFound
func (s *vendorServiceImpl) GetVendor(ctx context.Context, vendorID string) (*entity.Vendor, error) {
	vendor, err := s.vendorRepo.GetByID(ctx, vendorID)
	if err != nil {
		return nil, fmt.Errorf("load vendor %s: %w", vendorID, err)
	}
	if vendor == nil {
		return nil, apperr.NotFound("vendor %s", vendorID)
	}
	return vendor, nil
}

// ListVendors returns every vendor record
func (s *vendorServiceImpl) ListVendors(ctx context.Context) ([]*entity.Vendor, error) {
	vendors, err := s.vendorRepo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list vendors: %w", err)
	}
	return vendors, nil
}

func (s *vendorServiceImpl) loadRequest(ctx context.Context, requestID string) (*entity.VendorChangeRequest, error) {
	req, err := s.requestRepo.GetByID(ctx, requestID)
	if err != nil {
		return nil, fmt.Errorf("load change request %s: %w", requestID, err)
	}
	if req == nil {
		return nil, apperr.NotFound("change request %s", requestID)
	}
	return req, nil
}

func (s *vendorServiceImpl) signal(ctx context.Context, actor *entity.Actor, req *entity.VendorChangeRequest, action string) {
	s.dispatcher.DispatchAsync(ctx, event.NewEventWithCorrelation(event.TypeVendorsChanged, req.VendorID, actor.ID, map[string]interface{}{
		event.KeyAction:    action,
		event.KeyTo:        string(req.Status),
		event.KeyActorName: actor.Name,
		"request_id":       req.ID,
		"change_type":      string(req.ChangeType),
	}, req.ID))
}
