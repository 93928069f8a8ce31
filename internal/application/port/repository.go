package port

import (
	"context"
	"errors"

	"github.com/garyjia/claimflow/internal/domain/entity"
	"github.com/garyjia/claimflow/internal/domain/workflow"
)

// ErrStatusConflict is returned by compare-and-swap writes when the persisted status
// no longer matches the status the caller read
var ErrStatusConflict = errors.New("status changed concurrently")

// ClaimRepository defines persistence operations for Claim.
// GetByID returns nil, nil when the claim does not exist.
type ClaimRepository interface {
	Create(ctx context.Context, claim *entity.Claim) error
	GetByID(ctx context.Context, id string) (*entity.Claim, error)

	// Save writes every mutable field of claim and appends history entries not yet stored,
	// provided the persisted status still equals expected. Otherwise it returns ErrStatusConflict.
	Save(ctx context.Context, claim *entity.Claim, expected workflow.State) error

	Delete(ctx context.Context, id string) error

	// ListByStatus returns claims in the given status, or every claim when status is empty
	ListByStatus(ctx context.Context, status workflow.State) ([]*entity.Claim, error)
}

// PaymentRepository defines persistence operations for Payment
type PaymentRepository interface {
	Create(ctx context.Context, payment *entity.Payment) error
	GetByID(ctx context.Context, id string) (*entity.Payment, error)
	Delete(ctx context.Context, id string) error
	List(ctx context.Context) ([]*entity.Payment, error)
}

// VendorRepository defines persistence operations for Vendor
type VendorRepository interface {
	Create(ctx context.Context, vendor *entity.Vendor) error
	GetByID(ctx context.Context, id string) (*entity.Vendor, error)
	Update(ctx context.Context, vendor *entity.Vendor) error
	List(ctx context.Context) ([]*entity.Vendor, error)
}

// ChangeRequestRepository defines persistence operations for VendorChangeRequest
type ChangeRequestRepository interface {
	Create(ctx context.Context, req *entity.VendorChangeRequest) error
	GetByID(ctx context.Context, id string) (*entity.VendorChangeRequest, error)

	// Update writes req provided the persisted status still equals expected,
	// otherwise it returns ErrStatusConflict
	Update(ctx context.Context, req *entity.VendorChangeRequest, expected entity.RequestStatus) error

	// GetPendingByVendor returns the outstanding request for a vendor, or nil
	GetPendingByVendor(ctx context.Context, vendorID string) (*entity.VendorChangeRequest, error)

	ListPending(ctx context.Context) ([]*entity.VendorChangeRequest, error)
}

// ActorDirectory resolves actor ids to actors, including their approver assignment.
// GetActor returns nil, nil for unknown ids.
type ActorDirectory interface {
	GetActor(ctx context.Context, id string) (*entity.Actor, error)
}

// ActorRepository is the writable directory used for provisioning
type ActorRepository interface {
	ActorDirectory
	Upsert(ctx context.Context, actor *entity.Actor) error
	List(ctx context.Context) ([]*entity.Actor, error)
}

// TransactionManager defines transaction operations
type TransactionManager interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}
