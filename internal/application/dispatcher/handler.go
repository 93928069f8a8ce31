package dispatcher

import (
	"context"

	"github.com/garyjia/claimflow/internal/domain/event"
)

// Handler processes change signals
type Handler func(ctx context.Context, evt *event.Event) error

// HandlerInfo contains handler metadata for debugging
type HandlerInfo struct {
	Name        string
	EventType   event.Type
	Handler     Handler
	Description string
}

// Subscriber is implemented by adapters that want every change signal, e.g. the redis publisher
type Subscriber interface {
	Name() string
	Handle(ctx context.Context, evt *event.Event) error
}
