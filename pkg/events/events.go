// Package events defines the notifications emitted when a deployment finishes.
package events

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/dukex/flowforge/pkg/models"
	"github.com/google/uuid"
)

type EventType string

// Topic carries every deployment event.
const Topic = "flowforge.deployments"

const (
	EventMetadataKey     = "key"
	EventTypeMetadataKey = "event_type"
)

var ErrUnknownEventType = errors.New("unknown event type")

const (
	WorkflowDeployedEvent         EventType = "workflow.deployed"
	WorkflowDeploymentFailedEvent EventType = "workflow.deployment_failed"
)

type BaseEvent struct {
	ID         string         `json:"id"`
	Type       EventType      `json:"type"`
	Timestamp  time.Time      `json:"timestamp"`
	TemplateID string         `json:"template_id"`
	WorkflowID string         `json:"workflow_id,omitempty"`
	UserID     string         `json:"user_id,omitempty"`
	Metadata   map[string]any `json:"metadata,omitempty"`
}

// WorkflowDeployed is published after the deployment transaction commits.
type WorkflowDeployed struct {
	BaseEvent

	Status             models.WorkflowStatus `json:"status"`
	SettingsCount      int                   `json:"settings_count"`
	EdgeConfigurations int                   `json:"edge_configurations"`
	Duration           time.Duration         `json:"duration"`
}

func (w WorkflowDeployed) GetType() EventType {
	return WorkflowDeployedEvent
}

// WorkflowDeploymentFailed is published when a deployment aborts after validation.
type WorkflowDeploymentFailed struct {
	BaseEvent

	Category  string        `json:"category"`
	Error     string        `json:"error"`
	Retryable bool          `json:"retryable"`
	Duration  time.Duration `json:"duration"`
}

func (w WorkflowDeploymentFailed) GetType() EventType {
	return WorkflowDeploymentFailedEvent
}

func NewBaseEvent(eventType EventType, templateID string) BaseEvent {
	return BaseEvent{
		ID:         uuid.New().String(),
		Type:       eventType,
		Timestamp:  time.Now().UTC(),
		TemplateID: templateID,
		Metadata:   make(map[string]any),
	}
}

var factories = map[EventType]func() any{
	WorkflowDeployedEvent:         func() any { return &WorkflowDeployed{} },
	WorkflowDeploymentFailedEvent: func() any { return &WorkflowDeploymentFailed{} },
}

// Known reports whether eventType can be decoded.
func Known(eventType EventType) bool {
	_, ok := factories[eventType]

	return ok
}

// Decode unmarshals payload into a pointer to the event struct registered for eventType.
func Decode(eventType EventType, payload []byte) (any, error) {
	factory, ok := factories[eventType]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownEventType, eventType)
	}

	event := factory()
	if err := json.Unmarshal(payload, event); err != nil {
		return nil, fmt.Errorf("failed to decode %s event: %w", eventType, err)
	}

	return event, nil
}
