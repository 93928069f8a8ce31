package service

import (
	"context"

	"github.com/garyjia/claimflow/internal/application/dispatcher"
	"github.com/garyjia/claimflow/internal/application/port"
	"github.com/garyjia/claimflow/internal/domain/event"
)

// SignalRelay forwards every change signal to the configured publishers.
// A failing publisher is logged and never reported back to the dispatcher.
type SignalRelay struct {
	publishers []port.ChangePublisher
	logger     Logger
}

// NewSignalRelay creates a relay over publishers
func NewSignalRelay(logger Logger, publishers ...port.ChangePublisher) *SignalRelay {
	return &SignalRelay{
		publishers: publishers,
		logger:     orNop(logger),
	}
}

// Name implements dispatcher.Subscriber
func (r *SignalRelay) Name() string {
	return "signal-relay"
}

// Handle implements dispatcher.Subscriber
func (r *SignalRelay) Handle(ctx context.Context, evt *event.Event) error {
	for _, p := range r.publishers {
		if err := p.Publish(ctx, evt); err != nil {
			r.logger.Error("Failed to publish change signal",
				"publisher", p.Name(),
				"event_type", evt.Type,
				"event_id", evt.ID,
				"subject_id", evt.SubjectID,
				"error", err,
			)
		}
	}
	return nil
}

var _ dispatcher.Subscriber = (*SignalRelay)(nil)
