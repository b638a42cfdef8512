package cmd

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/dukex/flowforge/pkg/channels/gochannel"
	"github.com/dukex/flowforge/pkg/channels/kafka"
	"github.com/dukex/flowforge/pkg/eventbus"
	"github.com/dukex/flowforge/pkg/events"
)

// NewEventBus builds the deployment event bus. brokers is only read for kafka.
func NewEventBus(provider, brokers string, logger *slog.Logger) (eventbus.EventBus, error) {
	switch provider {
	case "", "gochannel":
		pub, sub, err := gochannel.CreateChannel(watermill.NewSlogLogger(logger))
		if err != nil {
			return nil, fmt.Errorf("failed to create in-process pub/sub: %w", err)
		}

		return eventbus.NewWatermillEventBus(logger, pub, sub), nil
	case "kafka":
		pub, sub, err := kafka.CreateChannel(watermill.NewSlogLogger(logger), kafka.ParseBrokers(brokers), "flowforge")
		if err != nil {
			return nil, fmt.Errorf("failed to create Kafka pub/sub: %w", err)
		}

		return eventbus.NewWatermillEventBus(logger, pub, sub), nil
	default:
		return nil, fmt.Errorf("unsupported event bus provider %q", provider)
	}
}

// LogDeploymentEvents subscribes to the bus and writes one log line per deployment outcome.
func LogDeploymentEvents(ctx context.Context, bus eventbus.EventBus, logger *slog.Logger) error {
	logger = logger.With("module", "deployment_events")

	err := bus.Handle(events.WorkflowDeployedEvent, func(ctx context.Context, event any) error {
		deployed, ok := event.(*events.WorkflowDeployed)
		if !ok {
			return fmt.Errorf("unexpected payload %T", event)
		}

		logger.InfoContext(ctx, "Workflow deployed",
			"template_id", deployed.TemplateID,
			"workflow_id", deployed.WorkflowID,
			"status", deployed.Status,
			"settings", deployed.SettingsCount,
			"edge_configurations", deployed.EdgeConfigurations,
			"duration", deployed.Duration,
		)

		return nil
	})
	if err != nil {
		return err
	}

	err = bus.Handle(events.WorkflowDeploymentFailedEvent, func(ctx context.Context, event any) error {
		failed, ok := event.(*events.WorkflowDeploymentFailed)
		if !ok {
			return fmt.Errorf("unexpected payload %T", event)
		}

		logger.WarnContext(ctx, "Workflow deployment failed",
			"template_id", failed.TemplateID,
			"category", failed.Category,
			"retryable", failed.Retryable,
			"error", failed.Error,
		)

		return nil
	})
	if err != nil {
		return err
	}

	return bus.Subscribe(ctx)
}
