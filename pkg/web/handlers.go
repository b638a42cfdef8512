// Package web provides HTTP handlers for template import and workflow deployment.
package web

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/dukex/flowforge/pkg/deployment"
	"github.com/dukex/flowforge/pkg/models"
	"github.com/dukex/flowforge/pkg/registry"
	"github.com/dukex/flowforge/pkg/services"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
)

type APIHandlers struct {
	deploymentService *services.Deployment
	templateService   *services.Template
	validator         *validator.Validate
	registry          *registry.Registry
}

func NewAPIHandlers(
	deploymentService *services.Deployment,
	templateService *services.Template,
	validator *validator.Validate,
	registry *registry.Registry,
) *APIHandlers {
	return &APIHandlers{
		deploymentService: deploymentService,
		templateService:   templateService,
		validator:         validator,
		registry:          registry,
	}
}

func (h *APIHandlers) ImportTemplate(c fiber.Ctx) error {
	templateID := c.Params("templateId")
	if templateID == "" {
		return badRequest(c, "Template ID is required")
	}

	var req ImportTemplateRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	template, err := h.templateService.Import(c.Context(), templateID, &models.Template{
		ID:    templateID,
		Name:  req.Name,
		Nodes: req.Nodes,
		Edges: req.Edges,
	})
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(template)
}

func (h *APIHandlers) GetTemplate(c fiber.Ctx) error {
	templateID := c.Params("templateId")
	if templateID == "" {
		return badRequest(c, "Template ID is required")
	}

	template, err := h.templateService.Get(c.Context(), templateID)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(template)
}

// Deploy handles POST /templates/:templateId/deployments. With ?dry_run=true
// the compiled plan is returned and nothing is written.
func (h *APIHandlers) Deploy(c fiber.Ctx) error {
	templateID := c.Params("templateId")
	if templateID == "" {
		return badRequest(c, "Template ID is required")
	}

	dryRun := false

	if dryRunStr := c.Query("dry_run"); dryRunStr != "" {
		var err error

		dryRun, err = strconv.ParseBool(dryRunStr)
		if err != nil {
			return badRequest(c, "Invalid dry_run parameter")
		}
	}

	var req DeployRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	if dryRun {
		plan, err := h.deploymentService.DryRun(c.Context(), req.toDeployment(templateID))
		if err != nil {
			return handleServiceError(c, err)
		}

		return c.JSON(PlanResponse{DryRun: true, Plan: plan})
	}

	run, err := h.deploymentService.Deploy(c.Context(), req.toDeployment(templateID))
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(DeploymentResponse{Workflow: run})
}

// ValidateGraph reports every validation issue of a graph without deploying it.
func (h *APIHandlers) ValidateGraph(c fiber.Ctx) error {
	var req ValidateGraphRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	err := h.deploymentService.ValidateGraph(req.Graph, req.Status)
	if err == nil {
		return c.JSON(ValidateGraphResponse{Valid: true, Issues: []deployment.ValidationIssue{}})
	}

	var verr *deployment.ValidationError
	if !errors.As(err, &verr) {
		return handleServiceError(c, err)
	}

	return c.JSON(ValidateGraphResponse{Valid: false, Issues: verr.Issues})
}

func (h *APIHandlers) GetWorkflow(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Workflow ID is required")
	}

	workflow, err := h.deploymentService.GetWorkflow(c.Context(), id)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(workflow)
}

func (h *APIHandlers) HealthCheck(c fiber.Ctx) error {
	registryCheck, regOk := h.registry.HealthCheck()
	repositoryCheck, repOk := h.deploymentService.HealthCheck(c.Context())

	status := "unhealthy"
	message := "Flowforge API is unhealthy"
	httpStatus := http.StatusInternalServerError

	if regOk && repOk {
		status = "healthy"
		message = "Flowforge API is healthy"
		httpStatus = http.StatusOK
	}

	return c.Status(httpStatus).JSON(fiber.Map{
		"status":  status,
		"message": message,
		"checkers": fiber.Map{
			"registry":   registryCheck,
			"repository": repositoryCheck,
		},
		"timestamp": time.Now().UTC(),
	})
}

// Register mounts every route on app.
func (h *APIHandlers) Register(app *fiber.App) {
	t := app.Group("/templates")
	t.Put("/:templateId", h.ImportTemplate)
	t.Get("/:templateId", h.GetTemplate)
	t.Post("/:templateId/deployments", h.Deploy)

	app.Post("/graphs/validate", h.ValidateGraph)
	app.Get("/workflows/:id", h.GetWorkflow)
	app.Get("/health", h.HealthCheck)
}
