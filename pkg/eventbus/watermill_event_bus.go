package eventbus

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/message/router/middleware"
	"github.com/dukex/flowforge/pkg/events"
)

const (
	handlerName  = "flowforge.deployment_events"
	closeTimeout = 5 * time.Second
)

var ErrAlreadySubscribed = errors.New("event bus already subscribed")

// WatermillEventBus publishes deployment events on a single topic and routes
// incoming messages to handlers by their event type metadata.
type WatermillEventBus struct {
	publisher  message.Publisher
	subscriber message.Subscriber
	logger     *slog.Logger

	mu       sync.RWMutex
	handlers map[events.EventType]EventHandler
	router   *message.Router
}

func NewWatermillEventBus(logger *slog.Logger, pub message.Publisher, sub message.Subscriber) EventBus {
	return &WatermillEventBus{
		publisher:  pub,
		subscriber: sub,
		handlers:   make(map[events.EventType]EventHandler),
		logger:     logger.With("module", "event_bus"),
	}
}

func (eb *WatermillEventBus) GenerateID() string {
	return watermill.NewULID()
}

func (eb *WatermillEventBus) Publish(ctx context.Context, key string, event Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to encode %s event: %w", event.GetType(), err)
	}

	msg := message.NewMessage(eb.GenerateID(), payload)
	msg.SetContext(ctx)
	msg.Metadata.Set(events.EventMetadataKey, key)
	msg.Metadata.Set(events.EventTypeMetadataKey, string(event.GetType()))

	eb.logger.DebugContext(ctx, "Publishing event", "type", event.GetType(), "key", key, "message_id", msg.UUID)

	return eb.publisher.Publish(events.Topic, msg)
}

// Subscribe starts routing messages and returns once the subscription is live.
// The router stops when ctx is cancelled or the bus is closed.
func (eb *WatermillEventBus) Subscribe(ctx context.Context) error {
	eb.mu.Lock()
	defer eb.mu.Unlock()

	if eb.router != nil {
		return ErrAlreadySubscribed
	}

	router, err := message.NewRouter(
		message.RouterConfig{CloseTimeout: closeTimeout},
		watermill.NewSlogLogger(eb.logger),
	)
	if err != nil {
		return fmt.Errorf("failed to create event router: %w", err)
	}

	router.AddMiddleware(middleware.Recoverer)
	router.AddNoPublisherHandler(handlerName, events.Topic, eb.subscriber, eb.dispatch)

	go func() {
		if err := router.Run(ctx); err != nil {
			eb.logger.ErrorContext(ctx, "Event router stopped", "error", err)
		}
	}()

	select {
	case <-router.Running():
	case <-ctx.Done():
		_ = router.Close()

		return ctx.Err()
	}

	eb.router = router

	return nil
}

// dispatch acks messages nobody handles and drops payloads that cannot be decoded.
// A handler error nacks the message so the broker redelivers it.
func (eb *WatermillEventBus) dispatch(msg *message.Message) error {
	eventType := events.EventType(msg.Metadata.Get(events.EventTypeMetadataKey))

	eb.mu.RLock()
	handler, ok := eb.handlers[eventType]
	eb.mu.RUnlock()

	if !ok {
		return nil
	}

	ctx := msg.Context()

	event, err := events.Decode(eventType, msg.Payload)
	if err != nil {
		eb.logger.ErrorContext(ctx, "Dropping undecodable event", "type", eventType, "message_id", msg.UUID, "error", err)

		return nil
	}

	if err := handler(ctx, event); err != nil {
		eb.logger.ErrorContext(ctx, "Event handler failed", "type", eventType, "message_id", msg.UUID, "error", err)

		return err
	}

	return nil
}

func (eb *WatermillEventBus) Handle(eventType events.EventType, handler EventHandler) error {
	if !events.Known(eventType) {
		return fmt.Errorf("%w: %s", events.ErrUnknownEventType, eventType)
	}

	eb.mu.Lock()
	eb.handlers[eventType] = handler
	eb.mu.Unlock()

	return nil
}

func (eb *WatermillEventBus) Close() error {
	eb.mu.Lock()
	router := eb.router
	eb.router = nil
	eb.mu.Unlock()

	var errs []error

	if router != nil {
		errs = append(errs, router.Close())
	}

	errs = append(errs, eb.publisher.Close(), eb.subscriber.Close())

	return errors.Join(errs...)
}
