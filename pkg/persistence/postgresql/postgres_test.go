package postgresql_test

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/dukex/flowforge/pkg/models"
	"github.com/dukex/flowforge/pkg/persistence"
	"github.com/dukex/flowforge/pkg/persistence/postgresql"
	"github.com/dukex/flowforge/pkg/registry"
	"github.com/google/uuid"
	_ "github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
)

var postgresContainer *postgres.PostgresContainer

var errAbort = errors.New("abort")

func dropDb(ctx context.Context, t *testing.T, databaseURL string) {
	t.Helper()

	db, err := sql.Open("postgres", databaseURL)
	require.NoError(t, err)

	tables := []string{
		"edge_configurations",
		registry.TableStartSettings,
		registry.TableEnrichSettings,
		registry.TableFilterSettings,
		registry.TableBranchSettings,
		registry.TableLeadScoreSettings,
		registry.TableAggregateSettings,
		registry.TableFxExposureSettings,
		registry.TableEmailNotificationSettings,
		registry.TableSlackNotificationSettings,
		"workflows",
		"template_edges",
		"template_nodes",
		"templates",
		"schema_migrations",
	}

	// Children first, parents last
	for _, table := range tables {
		_, err = db.ExecContext(ctx, "DROP TABLE IF EXISTS "+table+" CASCADE")
		require.NoError(t, err)
	}

	err = db.Close()
	require.NoError(t, err)
}

func setupTestDB(t *testing.T) (*postgresql.Persistence, context.Context, string) {
	t.Helper()

	if testing.Short() {
		t.Skip("skipping PostgreSQL container test in short mode")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 120*time.Second)

	if postgresContainer == nil || !postgresContainer.IsRunning() {
		var err error

		postgresContainer, err = postgres.Run(ctx,
			"postgres:16-alpine",
			postgres.WithDatabase("flowforge_test"),
			postgres.WithUsername("flowforge"),
			postgres.WithPassword("flowforge"),
			postgres.BasicWaitStrategies(),
		)
		require.NoError(t, err)
	}

	databaseURL, err := postgresContainer.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	dropDb(ctx, t, databaseURL)

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))

	p, err := postgresql.NewPersistence(ctx, logger, databaseURL)
	require.NoError(t, err)

	t.Cleanup(func() {
		dropDb(ctx, t, databaseURL)

		err = p.Close(ctx)
		require.NoError(t, err)

		cancel()
	})

	return p, ctx, databaseURL
}

func branchTemplate() *models.Template {
	return &models.Template{
		ID:   "tpl-branch",
		Name: "Branching",
		Nodes: []*models.TemplateNode{
			{ID: "tn-start", TypeName: "Start"},
			{ID: "tn-branch", TypeName: "Branch"},
			{ID: "tn-email", TypeName: "Email Notification"},
			{ID: "tn-slack", TypeName: "Slack Notification"},
		},
		Edges: []*models.TemplateEdge{
			{ID: "te-1", Source: "tn-start", Target: "tn-branch"},
			{ID: "te-2", Source: "tn-branch", Target: "tn-email"},
			{ID: "te-3", Source: "tn-branch", Target: "tn-slack"},
		},
	}
}

func TestNewPersistence_Migrations(t *testing.T) {
	_, ctx, databaseURL := setupTestDB(t)

	db, err := sql.Open("postgres", databaseURL)
	require.NoError(t, err)

	defer func() {
		err := db.Close()
		require.NoError(t, err)
	}()

	for _, table := range []string{"templates", "workflows", "edge_configurations", registry.TableBranchSettings} {
		var exists bool

		err = db.QueryRowContext(ctx, `SELECT EXISTS (SELECT FROM
information_schema.tables WHERE table_name = $1)`, table).Scan(&exists)
		require.NoError(t, err)
		assert.True(t, exists, "%s table should exist", table)
	}

	var version int

	err = db.QueryRowContext(ctx, "SELECT MAX(version) FROM schema_migrations").Scan(&version)
	require.NoError(t, err)
	assert.Equal(t, 2, version)
}

func TestNewPersistence_HealthCheck(t *testing.T) {
	p, ctx, _ := setupTestDB(t)

	err := p.HealthCheck(ctx)
	assert.NoError(t, err)
}

func TestTemplateRepository_SaveAndGet(t *testing.T) {
	p, ctx, _ := setupTestDB(t)

	err := p.TemplateRepository().SaveTemplate(ctx, branchTemplate())
	require.NoError(t, err)

	template, err := p.TemplateRepository().GetTemplate(ctx, "tpl-branch")
	require.NoError(t, err)

	assert.Equal(t, "Branching", template.Name)
	require.Len(t, template.Nodes, 4)
	assert.Equal(t, "tn-start", template.Nodes[0].ID)
	assert.Equal(t, 1, template.Nodes[0].Ordinal)
	require.Len(t, template.Edges, 3)
	assert.Equal(t, "tn-branch", template.Edges[1].Source)

	// Replacing drops nodes and edges that are no longer listed.
	replacement := branchTemplate()
	replacement.Nodes = replacement.Nodes[:3]
	replacement.Edges = replacement.Edges[:2]

	err = p.TemplateRepository().SaveTemplate(ctx, replacement)
	require.NoError(t, err)

	nodes, err := p.ListTemplateNodes(ctx, "tpl-branch")
	require.NoError(t, err)
	assert.Len(t, nodes, 3)

	edges, err := p.ListTemplateEdges(ctx, "tpl-branch")
	require.NoError(t, err)
	assert.Len(t, edges, 2)

	_, err = p.TemplateRepository().GetTemplate(ctx, "tpl-missing")
	assert.True(t, persistence.IsTemplateNotFound(err))
}

func TestTemplateRepository_InvalidTemplate(t *testing.T) {
	p, ctx, _ := setupTestDB(t)

	template := branchTemplate()
	template.Edges[0].Target = "tn-nowhere"

	err := p.TemplateRepository().SaveTemplate(ctx, template)
	assert.ErrorIs(t, err, persistence.ErrInvalidTemplate)
}

func TestRepository_DeploymentWrites(t *testing.T) {
	p, ctx, _ := setupTestDB(t)

	require.NoError(t, p.TemplateRepository().SaveTemplate(ctx, branchTemplate()))

	var workflowID string

	err := p.WithinTransaction(ctx, func(ctx context.Context, repo persistence.Repository) error {
		run, err := repo.InsertWorkflow(ctx, "tpl-branch", "user-1", models.WorkflowStatusActive)
		if err != nil {
			return err
		}

		workflowID = run.ID

		_, err = repo.InsertSettings(ctx, registry.TableStartSettings, run.ID, "tn-start", map[string]any{"actionName": "Daily"})
		if err != nil {
			return err
		}

		_, err = repo.InsertSettings(ctx, registry.TableBranchSettings, run.ID, "tn-branch", map[string]any{"branchCount": 2})
		if err != nil {
			return err
		}

		return repo.InsertEdgeConfiguration(ctx, "te-2", run.ID, models.PredicateSet{
			Name:       "hot",
			Predicates: []models.Predicate{{Attribute: "score", Operator: "GTE", Value1: 80.0}},
		})
	})
	require.NoError(t, err)

	run, err := p.WorkflowRepository().GetWorkflow(ctx, workflowID)
	require.NoError(t, err)
	assert.Equal(t, models.WorkflowStatusActive, run.Status)
	assert.Equal(t, "user-1", run.UserID)

	settings, err := p.WorkflowRepository().ListSettings(ctx, workflowID)
	require.NoError(t, err)
	require.Len(t, settings, 2)
	assert.Equal(t, registry.TableStartSettings, settings[0].Table)
	assert.Equal(t, "Daily", settings[0].Payload["actionName"])
	assert.InDelta(t, 2, settings[1].Payload["branchCount"], 0)

	configs, err := p.WorkflowRepository().ListEdgeConfigurations(ctx, workflowID)
	require.NoError(t, err)
	require.Len(t, configs, 1)
	assert.Equal(t, "hot", configs[0].Name)
	assert.Equal(t, "GTE", configs[0].Predicates[0].Operator)

	// Deployed nodes can no longer be dropped from the template.
	replacement := branchTemplate()
	replacement.Nodes = replacement.Nodes[:1]
	replacement.Edges = nil

	err = p.TemplateRepository().SaveTemplate(ctx, replacement)
	assert.True(t, persistence.IsTemplateInUse(err))
}

func TestRepository_RollbackAndDuplicates(t *testing.T) {
	p, ctx, _ := setupTestDB(t)

	require.NoError(t, p.TemplateRepository().SaveTemplate(ctx, branchTemplate()))

	var workflowID string

	err := p.WithinTransaction(ctx, func(ctx context.Context, repo persistence.Repository) error {
		run, err := repo.InsertWorkflow(ctx, "tpl-branch", "user-1", models.WorkflowStatusDraft)
		if err != nil {
			return err
		}

		workflowID = run.ID

		return errAbort
	})
	require.ErrorIs(t, err, errAbort)

	_, err = p.WorkflowRepository().GetWorkflow(ctx, workflowID)
	assert.True(t, persistence.IsWorkflowNotFound(err))

	_, err = p.WorkflowRepository().GetWorkflow(ctx, "not-a-uuid")
	assert.True(t, persistence.IsWorkflowNotFound(err))

	err = p.WithinTransaction(ctx, func(ctx context.Context, repo persistence.Repository) error {
		run, err := repo.InsertWorkflow(ctx, "tpl-branch", "user-1", models.WorkflowStatusDraft)
		if err != nil {
			return err
		}

		_, err = repo.InsertSettings(ctx, registry.TableStartSettings, run.ID, "tn-start", map[string]any{})
		if err != nil {
			return err
		}

		_, err = repo.InsertSettings(ctx, registry.TableStartSettings, run.ID, "tn-start", map[string]any{})

		return err
	})
	assert.True(t, persistence.IsDuplicate(err))

	_, err = p.InsertSettings(ctx, "pg_user", uuid.NewString(), "tn-start", nil)
	assert.ErrorIs(t, err, persistence.ErrUnknownSettingsTable)

	_, err = p.InsertWorkflow(ctx, "tpl-missing", "user-1", models.WorkflowStatusDraft)
	assert.True(t, persistence.IsTemplateNotFound(err))
}
