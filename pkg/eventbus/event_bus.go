// Package eventbus carries deployment events over watermill publishers.
package eventbus

import (
	"context"

	"github.com/dukex/flowforge/pkg/events"
)

type Event interface {
	GetType() events.EventType
}

// EventPublisher is all the deployer needs. key is the template id, so
// partitioned brokers keep one template's events in order.
type EventPublisher interface {
	Publish(ctx context.Context, key string, event Event) error
}

type EventSubscriber interface {
	Handle(eventType events.EventType, handler EventHandler) error
	Subscribe(ctx context.Context) error
}

// EventHandler receives a pointer to the decoded event, e.g. *events.WorkflowDeployed.
type EventHandler func(ctx context.Context, event any) error

type EventBus interface {
	EventPublisher
	EventSubscriber
	Close() error
	GenerateID() string
}
