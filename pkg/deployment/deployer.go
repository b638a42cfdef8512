package deployment

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/dukex/flowforge/pkg/eventbus"
	"github.com/dukex/flowforge/pkg/events"
	"github.com/dukex/flowforge/pkg/lock"
	"github.com/dukex/flowforge/pkg/models"
	"github.com/dukex/flowforge/pkg/otelhelper"
	"github.com/dukex/flowforge/pkg/persistence"
	"github.com/dukex/flowforge/pkg/registry"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// DeployRequest asks for one authored graph to be deployed against a template.
type DeployRequest struct {
	TemplateID string                `json:"template_id" yaml:"template_id"`
	UserID     string                `json:"user_id"     yaml:"user_id"`
	Status     models.WorkflowStatus `json:"status"      yaml:"status"`
	Graph      *models.Graph         `json:"graph"       yaml:"graph"`
}

type Deployer struct {
	logger      *slog.Logger
	persistence persistence.Persistence
	registry    *registry.Registry
	validator   *GraphValidator
	dispatcher  *Dispatcher
	branches    *BranchMaterializer
	locker      lock.Locker
	publisher   eventbus.EventPublisher
	tracer      trace.Tracer
	now         func() time.Time
}

type Option func(*Deployer)

// WithLocker replaces the in-process template lock.
func WithLocker(locker lock.Locker) Option {
	return func(d *Deployer) { d.locker = locker }
}

// WithPublisher enables deployment events.
func WithPublisher(publisher eventbus.EventPublisher) Option {
	return func(d *Deployer) { d.publisher = publisher }
}

func WithTracer(tracer trace.Tracer) Option {
	return func(d *Deployer) { d.tracer = tracer }
}

// WithClock sets the instant relative time windows are anchored to.
func WithClock(now func() time.Time) Option {
	return func(d *Deployer) { d.now = now }
}

func WithRegistry(reg *registry.Registry) Option {
	return func(d *Deployer) { d.registry = reg }
}

func NewDeployer(logger *slog.Logger, p persistence.Persistence, opts ...Option) *Deployer {
	d := &Deployer{
		logger:      logger.With("module", "deployer"),
		persistence: p,
		locker:      lock.NewMemory(),
		tracer:      otelhelper.NoopTracer(),
		now:         time.Now,
	}

	for _, opt := range opts {
		opt(d)
	}

	if d.registry == nil {
		d.registry = registry.NewDefaultRegistry(logger)
	}

	d.validator = NewGraphValidator(d.registry, d.now)
	d.dispatcher = NewDispatcher(logger, d.registry)
	d.branches = NewBranchMaterializer(logger)

	return d
}

// Validate checks the request without contacting persistence.
func (d *Deployer) Validate(req DeployRequest) error {
	var issues []ValidationIssue

	if req.TemplateID == "" {
		issues = append(issues, ValidationIssue{Field: "template_id", Reason: "is required"})
	}

	if req.UserID == "" {
		issues = append(issues, ValidationIssue{Field: "user_id", Reason: "is required"})
	}

	if err := d.validator.Validate(req.Graph, statusOrDefault(req.Status)); err != nil {
		var verr *ValidationError
		if !errors.As(err, &verr) {
			return err
		}

		issues = append(issues, verr.Issues...)
	}

	if len(issues) > 0 {
		return &ValidationError{Issues: issues}
	}

	return nil
}

// ValidateGraph checks a graph on its own, as the editor does before a template is chosen.
func (d *Deployer) ValidateGraph(graph *models.Graph, status models.WorkflowStatus) error {
	return d.validator.Validate(graph, statusOrDefault(status))
}

// Compile validates the request and builds its plan without writing anything.
func (d *Deployer) Compile(ctx context.Context, req DeployRequest) (*Plan, error) {
	req.Status = statusOrDefault(req.Status)

	if err := d.Validate(req); err != nil {
		return nil, err
	}

	return d.compile(ctx, req)
}

// Deploy validates the graph, compiles it against the template and writes the
// workflow run with its settings and branch guards in one transaction. Either the
// whole plan is committed or nothing is.
func (d *Deployer) Deploy(ctx context.Context, req DeployRequest) (*models.WorkflowRun, error) {
	started := d.now()
	req.Status = statusOrDefault(req.Status)

	ctx, span := otelhelper.StartSpan(ctx, d.tracer, "deployment.Deploy",
		attribute.String(otelhelper.TemplateIDKey, req.TemplateID),
		attribute.String(otelhelper.UserIDKey, req.UserID),
		attribute.String(otelhelper.WorkflowStatusKey, string(req.Status)),
	)
	defer span.End()

	logger := d.logger.With("template_id", req.TemplateID, "user_id", req.UserID)

	if err := d.Validate(req); err != nil {
		logger.InfoContext(ctx, "Deployment rejected", "error", err)
		otelhelper.SetError(span, err, Category(err))

		return nil, err
	}

	run, plan, err := d.deploy(ctx, req)
	if err != nil {
		logger.ErrorContext(ctx, "Deployment failed", "category", Category(err), "error", err)
		otelhelper.SetError(span, err, Category(err))
		d.publishFailure(ctx, req, err, d.now().Sub(started))

		return nil, err
	}

	span.SetAttributes(attribute.String(otelhelper.WorkflowIDKey, run.ID))

	logger.InfoContext(ctx, "Workflow deployed",
		"workflow_id", run.ID,
		"settings", plan.SettingsCount(),
		"edge_configurations", plan.EdgeCount())

	d.publishDeployed(ctx, run, plan, d.now().Sub(started))

	return run, nil
}

func (d *Deployer) deploy(ctx context.Context, req DeployRequest) (*models.WorkflowRun, *Plan, error) {
	unlock, err := d.locker.Acquire(ctx, lockKey(req.TemplateID))
	if err != nil {
		switch {
		case errors.Is(err, lock.ErrLocked):
			return nil, nil, fmt.Errorf("%w: %s", ErrDeploymentInProgress, req.TemplateID)
		case ctx.Err() != nil:
			return nil, nil, fmt.Errorf("%w: %w", ErrDeploymentCancelled, ctx.Err())
		default:
			return nil, nil, persistenceError("AcquireLock", err)
		}
	}

	defer func() {
		if err := unlock(context.WithoutCancel(ctx)); err != nil {
			d.logger.WarnContext(ctx, "Failed to release template lock", "template_id", req.TemplateID, "error", err)
		}
	}()

	plan, err := d.compile(ctx, req)
	if err != nil {
		return nil, nil, err
	}

	var run *models.WorkflowRun

	err = d.persistence.WithinTransaction(ctx, func(ctx context.Context, repo persistence.Repository) error {
		var err error

		run, err = d.apply(ctx, repo, plan)

		return err
	})
	if err != nil {
		switch {
		case classified(err):
			return nil, nil, err
		case ctx.Err() != nil:
			return nil, nil, fmt.Errorf("%w: %w", ErrDeploymentCancelled, ctx.Err())
		default:
			return nil, nil, persistenceError("Commit", err)
		}
	}

	return run, plan, nil
}

func (d *Deployer) compile(ctx context.Context, req DeployRequest) (*Plan, error) {
	rows, err := d.persistence.ListTemplateNodes(ctx, req.TemplateID)
	if err != nil {
		return nil, storeError(ctx, "ListTemplateNodes", err)
	}

	if len(rows) == 0 {
		return nil, &MalformedTemplateError{TemplateID: req.TemplateID, Reason: "template has no nodes"}
	}

	edges, err := d.persistence.ListTemplateEdges(ctx, req.TemplateID)
	if err != nil {
		return nil, storeError(ctx, "ListTemplateEdges", err)
	}

	resolution, err := Resolve(req.TemplateID, req.Graph.Nodes, rows)
	if err != nil {
		return nil, err
	}

	walker, err := NewWalker(req.TemplateID, rows, edges)
	if err != nil {
		return nil, err
	}

	placeholders := make(map[string]bool)

	for _, row := range rows {
		if isPlaceholderRow(row) {
			placeholders[row.ID] = true
		}
	}

	configs := req.Graph.Configs()
	anchor := d.anchor(req.Graph)

	plan := &Plan{
		TemplateID: req.TemplateID,
		UserID:     req.UserID,
		Status:     req.Status,
	}

	_, err = walker.Walk(ctx, func(ctx context.Context, node *models.TemplateNode, outgoing []*models.TemplateEdge) error {
		kind, err := node.Kind()
		if err != nil {
			return &MalformedTemplateError{TemplateID: req.TemplateID, Reason: err.Error(), NodeIDs: []string{node.ID}}
		}

		if kind.IsPlaceholder() {
			return nil
		}

		graphNodeID, _ := resolution.GraphNodeID(node.ID)
		graphNode, _ := req.Graph.Node(graphNodeID)
		config := configs[graphNodeID]

		step := Step{TemplateNodeID: node.ID, GraphNodeID: graphNodeID, Kind: kind}

		if kind == models.NodeKindBranch {
			paths := slices.DeleteFunc(slices.Clone(outgoing), func(edge *models.TemplateEdge) bool {
				return placeholders[edge.Target]
			})

			writes, err := d.branches.Materialize(ctx, node, req.Graph, graphNode, paths)
			if err != nil {
				return err
			}

			step.Edges = writes
			config = d.branches.SettingsConfig(config, len(paths))
		}

		settings, err := d.dispatcher.Dispatch(ctx, node, kind, config, anchor)
		if err != nil {
			return err
		}

		step.Settings = settings
		plan.Steps = append(plan.Steps, step)

		return nil
	})
	if err != nil {
		return nil, err
	}

	return plan, nil
}

// anchor is the deployment instant, in the Start node's time zone when it sets one.
func (d *Deployer) anchor(graph *models.Graph) time.Time {
	now := d.now()

	starts := graph.NodesOfKind(models.NodeKindStart)
	if len(starts) != 1 {
		return now.UTC()
	}

	if tz := stringField(starts[0].Config, "timezone"); tz != "" {
		if loc, err := time.LoadLocation(tz); err == nil {
			return now.In(loc)
		}
	}

	return now.UTC()
}

func (d *Deployer) publishDeployed(ctx context.Context, run *models.WorkflowRun, plan *Plan, duration time.Duration) {
	if d.publisher == nil {
		return
	}

	event := &events.WorkflowDeployed{
		BaseEvent:          events.NewBaseEvent(events.WorkflowDeployedEvent, run.TemplateID),
		Status:             run.Status,
		SettingsCount:      plan.SettingsCount(),
		EdgeConfigurations: plan.EdgeCount(),
		Duration:           duration,
	}
	event.WorkflowID = run.ID
	event.UserID = run.UserID

	d.publish(ctx, run.TemplateID, event)
}

func (d *Deployer) publishFailure(ctx context.Context, req DeployRequest, err error, duration time.Duration) {
	if d.publisher == nil {
		return
	}

	event := &events.WorkflowDeploymentFailed{
		BaseEvent: events.NewBaseEvent(events.WorkflowDeploymentFailedEvent, req.TemplateID),
		Category:  Category(err),
		Error:     err.Error(),
		Retryable: IsRetryable(err),
		Duration:  duration,
	}
	event.UserID = req.UserID

	d.publish(ctx, req.TemplateID, event)
}

func (d *Deployer) publish(ctx context.Context, key string, event eventbus.Event) {
	if err := d.publisher.Publish(context.WithoutCancel(ctx), key, event); err != nil {
		d.logger.WarnContext(ctx, "Failed to publish deployment event", "type", event.GetType(), "error", err)
	}
}

func lockKey(templateID string) string {
	return "template:" + templateID
}

func statusOrDefault(status models.WorkflowStatus) models.WorkflowStatus {
	if status == "" {
		return models.WorkflowStatusDraft
	}

	return status
}
