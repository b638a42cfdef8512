package deployment_test

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/dukex/flowforge/pkg/models"
	"github.com/dukex/flowforge/pkg/persistence"
)

var errInjected = errors.New("injected store failure")

type storeState struct {
	workflows   []*models.WorkflowRun
	settings    []*models.NodeSettingsRecord
	edgeConfigs []*models.EdgeConfiguration
}

// memoryStore is an in-memory persistence.Persistence whose transactions stage
// writes and merge them on commit.
type memoryStore struct {
	mu        sync.Mutex
	templates map[string]*models.Template
	committed storeState
	attempted []string
	failOp    string
	hook      func(op string)
	seq       int
}

func newMemoryStore(templates ...*models.Template) *memoryStore {
	s := &memoryStore{templates: make(map[string]*models.Template)}

	for _, template := range templates {
		s.templates[template.ID] = template
	}

	return s
}

func (s *memoryStore) nextID(prefix string) string {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.seq++

	return fmt.Sprintf("%s-%d", prefix, s.seq)
}

func (s *memoryStore) attempt(op string) error {
	s.mu.Lock()
	s.attempted = append(s.attempted, op)
	hook, failOp := s.hook, s.failOp
	s.mu.Unlock()

	if hook != nil {
		hook(op)
	}

	if failOp == op {
		return errInjected
	}

	return nil
}

func (s *memoryStore) Attempted() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	return append([]string(nil), s.attempted...)
}

func (s *memoryStore) Committed() storeState {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.committed
}

func (s *memoryStore) ListTemplateNodes(_ context.Context, templateID string) ([]*models.TemplateNode, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	template, ok := s.templates[templateID]
	if !ok {
		return nil, nil
	}

	return append([]*models.TemplateNode(nil), template.Nodes...), nil
}

func (s *memoryStore) ListTemplateEdges(_ context.Context, templateID string) ([]*models.TemplateEdge, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	template, ok := s.templates[templateID]
	if !ok {
		return nil, nil
	}

	return append([]*models.TemplateEdge(nil), template.Edges...), nil
}

func (s *memoryStore) InsertWorkflow(ctx context.Context, templateID, userID string, status models.WorkflowStatus) (*models.WorkflowRun, error) {
	var run *models.WorkflowRun

	err := s.WithinTransaction(ctx, func(ctx context.Context, repo persistence.Repository) error {
		var err error

		run, err = repo.InsertWorkflow(ctx, templateID, userID, status)

		return err
	})

	return run, err
}

func (s *memoryStore) InsertSettings(ctx context.Context, table, workflowID, templateNodeID string, payload map[string]any) (string, error) {
	var id string

	err := s.WithinTransaction(ctx, func(ctx context.Context, repo persistence.Repository) error {
		var err error

		id, err = repo.InsertSettings(ctx, table, workflowID, templateNodeID, payload)

		return err
	})

	return id, err
}

func (s *memoryStore) InsertEdgeConfiguration(ctx context.Context, templateEdgeID, workflowID string, set models.PredicateSet) error {
	return s.WithinTransaction(ctx, func(ctx context.Context, repo persistence.Repository) error {
		return repo.InsertEdgeConfiguration(ctx, templateEdgeID, workflowID, set)
	})
}

func (s *memoryStore) WithinTransaction(ctx context.Context, fn persistence.TxFunc) error {
	tx := &memoryTx{store: s}

	if err := fn(ctx, tx); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.committed.workflows = append(s.committed.workflows, tx.staged.workflows...)
	s.committed.settings = append(s.committed.settings, tx.staged.settings...)
	s.committed.edgeConfigs = append(s.committed.edgeConfigs, tx.staged.edgeConfigs...)

	return nil
}

func (s *memoryStore) TemplateRepository() persistence.TemplateRepository { return s }
func (s *memoryStore) WorkflowRepository() persistence.WorkflowRepository { return s }
func (s *memoryStore) HealthCheck(context.Context) error                  { return nil }
func (s *memoryStore) Close(context.Context) error                        { return nil }

func (s *memoryStore) SaveTemplate(_ context.Context, template *models.Template) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.templates[template.ID] = template

	return nil
}

func (s *memoryStore) GetTemplate(_ context.Context, templateID string) (*models.Template, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	template, ok := s.templates[templateID]
	if !ok {
		return nil, persistence.ErrTemplateNotFound
	}

	return template, nil
}

func (s *memoryStore) GetWorkflow(_ context.Context, workflowID string) (*models.WorkflowRun, error) {
	for _, run := range s.Committed().workflows {
		if run.ID == workflowID {
			return run, nil
		}
	}

	return nil, persistence.ErrWorkflowNotFound
}

func (s *memoryStore) ListSettings(_ context.Context, workflowID string) ([]*models.NodeSettingsRecord, error) {
	var out []*models.NodeSettingsRecord

	for _, record := range s.Committed().settings {
		if record.WorkflowID == workflowID {
			out = append(out, record)
		}
	}

	return out, nil
}

func (s *memoryStore) ListEdgeConfigurations(_ context.Context, workflowID string) ([]*models.EdgeConfiguration, error) {
	var out []*models.EdgeConfiguration

	for _, config := range s.Committed().edgeConfigs {
		if config.WorkflowID == workflowID {
			out = append(out, config)
		}
	}

	return out, nil
}

type memoryTx struct {
	store  *memoryStore
	staged storeState
}

func (tx *memoryTx) ListTemplateNodes(ctx context.Context, templateID string) ([]*models.TemplateNode, error) {
	return tx.store.ListTemplateNodes(ctx, templateID)
}

func (tx *memoryTx) ListTemplateEdges(ctx context.Context, templateID string) ([]*models.TemplateEdge, error) {
	return tx.store.ListTemplateEdges(ctx, templateID)
}

func (tx *memoryTx) InsertWorkflow(_ context.Context, templateID, userID string, status models.WorkflowStatus) (*models.WorkflowRun, error) {
	if err := tx.store.attempt("InsertWorkflow"); err != nil {
		return nil, err
	}

	run := &models.WorkflowRun{
		ID:         tx.store.nextID("wf"),
		TemplateID: templateID,
		UserID:     userID,
		Status:     status,
		CreatedAt:  time.Now().UTC(),
	}
	tx.staged.workflows = append(tx.staged.workflows, run)

	return run, nil
}

func (tx *memoryTx) InsertSettings(_ context.Context, table, workflowID, templateNodeID string, payload map[string]any) (string, error) {
	if err := tx.store.attempt("InsertSettings"); err != nil {
		return "", err
	}

	for _, record := range tx.staged.settings {
		if record.WorkflowID == workflowID && record.TemplateNodeID == templateNodeID {
			return "", persistence.ErrDuplicateSettings
		}
	}

	record := &models.NodeSettingsRecord{
		ID:             tx.store.nextID("settings"),
		Table:          table,
		WorkflowID:     workflowID,
		TemplateNodeID: templateNodeID,
		Payload:        payload,
		CreatedAt:      time.Now().UTC(),
	}
	tx.staged.settings = append(tx.staged.settings, record)

	return record.ID, nil
}

func (tx *memoryTx) InsertEdgeConfiguration(_ context.Context, templateEdgeID, workflowID string, set models.PredicateSet) error {
	if err := tx.store.attempt("InsertEdgeConfiguration"); err != nil {
		return err
	}

	tx.staged.edgeConfigs = append(tx.staged.edgeConfigs, &models.EdgeConfiguration{
		ID:             tx.store.nextID("edge-config"),
		TemplateEdgeID: templateEdgeID,
		WorkflowID:     workflowID,
		Name:           set.Name,
		Predicates:     set.Predicates,
		CreatedAt:      time.Now().UTC(),
	})

	return nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
