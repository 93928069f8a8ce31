package port

import (
	"context"
	"io"

	"github.com/garyjia/claimflow/internal/domain/entity"
	"github.com/garyjia/claimflow/internal/domain/event"
)

//go:generate mockgen -source=external.go -destination=mocks/external_mock.go -package=mocks

// ChangePublisher forwards change signals outside the process. Failures are logged by the
// caller and never undo the mutation that produced the signal.
type ChangePublisher interface {
	Name() string
	Publish(ctx context.Context, evt *event.Event) error
}

// IdentityProvider supplies the actor behind the current request
type IdentityProvider interface {
	CurrentActor(ctx context.Context) (*entity.Actor, error)
}

// PaymentExporter renders a payment and its grouped claims as a remittance document
type PaymentExporter interface {
	Write(w io.Writer, payment *entity.Payment, claims []*entity.Claim) error
}
