package handlers

import (
	"gtdsync/internal/services"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
)

// DesignControlHandler handles HTTP requests for the design-control board.
type DesignControlHandler struct {
	service  *services.DesignControlService
	validate *validator.Validate
}

// NewDesignControlHandler creates a new DesignControlHandler.
func NewDesignControlHandler(service *services.DesignControlService) *DesignControlHandler {
	return &DesignControlHandler{service: service, validate: newValidator()}
}

// RegisterRoutes registers the design-control routes behind auth.
func (h *DesignControlHandler) RegisterRoutes(router fiber.Router, auth fiber.Handler) {
	routes := router.Group("/designControls", auth)
	routes.Get("/:projectId", h.HandleGetDesignControls)
	routes.Post("/", h.HandleCreateDesignControl)
	routes.Put("/:id", h.HandleUpdateDesignControl)
	routes.Delete("/:id", h.HandleDeleteDesignControl)
}

// CreateDesignControlRequest accepts the project id as project_id or projectId.
type CreateDesignControlRequest struct {
	services.CreateDesignControlInput
	LegacyProjectID string `json:"projectId" validate:"-"`
}

// HandleGetDesignControls lists the items on one project board.
func (h *DesignControlHandler) HandleGetDesignControls(c *fiber.Ctx) error {
	id, err := identity(c)
	if err != nil {
		return respondError(c, err, "Authentication required")
	}
	items, err := h.service.ListDesignControls(c.UserContext(), id, c.Params("projectId"))
	if err != nil {
		return respondError(c, err, "Could not retrieve design controls")
	}
	return c.JSON(items)
}

// HandleCreateDesignControl creates an item with the next number in its scope.
func (h *DesignControlHandler) HandleCreateDesignControl(c *fiber.Ctx) error {
	id, err := identity(c)
	if err != nil {
		return respondError(c, err, "Authentication required")
	}
	var req CreateDesignControlRequest
	if err := c.BodyParser(&req); err != nil {
		return invalidBody(c, err)
	}
	if req.ProjectID == "" {
		req.ProjectID = req.LegacyProjectID
	}
	if err := h.validate.Struct(req.CreateDesignControlInput); err != nil {
		return respondError(c, validationError(err), "Validation failed")
	}

	item, err := h.service.CreateDesignControl(c.UserContext(), id, req.CreateDesignControlInput)
	if err != nil {
		return respondError(c, err, "Could not create design control")
	}
	return c.Status(fiber.StatusCreated).JSON(item)
}

// HandleUpdateDesignControl applies a partial update; number and project never change.
func (h *DesignControlHandler) HandleUpdateDesignControl(c *fiber.Ctx) error {
	id, err := identity(c)
	if err != nil {
		return respondError(c, err, "Authentication required")
	}
	var patch services.DesignControlPatch
	if err := c.BodyParser(&patch); err != nil {
		return invalidBody(c, err)
	}

	item, err := h.service.UpdateDesignControl(c.UserContext(), id, c.Params("id"), patch)
	if err != nil {
		return respondError(c, err, "Could not update design control")
	}
	return c.JSON(item)
}

// HandleDeleteDesignControl removes an item.
func (h *DesignControlHandler) HandleDeleteDesignControl(c *fiber.Ctx) error {
	id, err := identity(c)
	if err != nil {
		return respondError(c, err, "Authentication required")
	}
	itemID := c.Params("id")
	if err := h.service.DeleteDesignControl(c.UserContext(), id, itemID); err != nil {
		return respondError(c, err, "Could not delete design control")
	}
	return c.JSON(fiber.Map{"message": "Design control deleted successfully", "id": itemID})
}
