package handlers

import (
	"gtdsync/internal/services"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
)

// ProjectHandler handles HTTP requests for projects.
type ProjectHandler struct {
	service  *services.ProjectService
	validate *validator.Validate
}

// NewProjectHandler creates a new ProjectHandler.
func NewProjectHandler(service *services.ProjectService) *ProjectHandler {
	return &ProjectHandler{service: service, validate: newValidator()}
}

// RegisterRoutes registers the project routes behind auth.
func (h *ProjectHandler) RegisterRoutes(router fiber.Router, auth fiber.Handler) {
	projectRoutes := router.Group("/projects", auth)
	projectRoutes.Get("/", h.HandleGetProjects)
	projectRoutes.Post("/", h.HandleCreateProject)
}

// CreateProjectRequest represents the request body for a new project.
type CreateProjectRequest struct {
	Name string `json:"name" validate:"required"`
}

// HandleGetProjects lists the caller's projects.
func (h *ProjectHandler) HandleGetProjects(c *fiber.Ctx) error {
	id, err := identity(c)
	if err != nil {
		return respondError(c, err, "Authentication required")
	}
	projects, err := h.service.ListProjects(c.UserContext(), id)
	if err != nil {
		return respondError(c, err, "Could not retrieve projects")
	}
	return c.JSON(projects)
}

// HandleCreateProject creates a project owned by the caller.
func (h *ProjectHandler) HandleCreateProject(c *fiber.Ctx) error {
	id, err := identity(c)
	if err != nil {
		return respondError(c, err, "Authentication required")
	}
	var req CreateProjectRequest
	if err := c.BodyParser(&req); err != nil {
		return invalidBody(c, err)
	}
	if err := h.validate.Struct(req); err != nil {
		return respondError(c, validationError(err), "Validation failed")
	}

	project, err := h.service.CreateProject(c.UserContext(), id, req.Name)
	if err != nil {
		return respondError(c, err, "Could not create project")
	}
	return c.Status(fiber.StatusCreated).JSON(project)
}
