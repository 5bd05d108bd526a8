package handlers

import (
	"net/url"

	"gtdsync/internal/models"
	"gtdsync/internal/services"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
)

// TaskHandler handles HTTP requests for tasks.
type TaskHandler struct {
	service  *services.TaskService
	validate *validator.Validate
}

// NewTaskHandler creates a new TaskHandler.
func NewTaskHandler(service *services.TaskService) *TaskHandler {
	return &TaskHandler{
		service:  service,
		validate: newValidator(),
	}
}

// RegisterRoutes registers the task routes behind auth.
func (h *TaskHandler) RegisterRoutes(router fiber.Router, auth fiber.Handler) {
	taskRoutes := router.Group("/tasks", auth)
	taskRoutes.Get("/", h.HandleGetTasks)
	taskRoutes.Post("/", h.HandleCreateTask)
	taskRoutes.Get("/:id", h.HandleGetTask)
	taskRoutes.Put("/:id", h.HandleUpdateTask)
	taskRoutes.Delete("/:id", h.HandleDeleteTask)

	taskRoutes.Post("/:id/complete", h.HandleCompleteTask)
	taskRoutes.Post("/:id/delegate", h.HandleDelegateTask)
	taskRoutes.Post("/:id/move-back", h.HandleMoveBackTask)

	taskRoutes.Post("/:id/tags", h.HandleAddTag)
	taskRoutes.Delete("/:id/tags/:tag", h.HandleRemoveTag)

	taskRoutes.Post("/:id/subtasks", h.HandleAddSubtask)
	taskRoutes.Put("/:id/subtasks", h.HandleReorderSubtasks)
	taskRoutes.Put("/:id/subtasks/:subtaskId", h.HandleUpdateSubtask)
	taskRoutes.Delete("/:id/subtasks/:subtaskId", h.HandleDeleteSubtask)
}

// HandleGetTasks lists tasks the caller owns or has been delegated.
func (h *TaskHandler) HandleGetTasks(c *fiber.Ctx) error {
	id, err := identity(c)
	if err != nil {
		return respondError(c, err, "Authentication required")
	}
	tasks, err := h.service.ListTasks(c.UserContext(), id)
	if err != nil {
		return respondError(c, err, "Could not retrieve tasks")
	}
	return c.JSON(tasks)
}

// HandleGetTask retrieves a single task.
func (h *TaskHandler) HandleGetTask(c *fiber.Ctx) error {
	id, err := identity(c)
	if err != nil {
		return respondError(c, err, "Authentication required")
	}
	task, err := h.service.GetTask(c.UserContext(), id, c.Params("id"))
	if err != nil {
		return respondError(c, err, "Could not retrieve task")
	}
	return c.JSON(task)
}

// HandleCreateTask creates a new task in the caller's inbox.
func (h *TaskHandler) HandleCreateTask(c *fiber.Ctx) error {
	id, err := identity(c)
	if err != nil {
		return respondError(c, err, "Authentication required")
	}
	var req services.CreateTaskInput
	if err := c.BodyParser(&req); err != nil {
		return invalidBody(c, err)
	}
	if err := h.validate.Struct(req); err != nil {
		return respondError(c, validationError(err), "Validation failed")
	}

	task, err := h.service.CreateTask(c.UserContext(), id, req)
	if err != nil {
		return respondError(c, err, "Could not create task")
	}
	return c.Status(fiber.StatusCreated).JSON(task)
}

// HandleUpdateTask applies a partial update. Unknown fields are ignored.
func (h *TaskHandler) HandleUpdateTask(c *fiber.Ctx) error {
	id, err := identity(c)
	if err != nil {
		return respondError(c, err, "Authentication required")
	}
	var patch services.TaskPatch
	if err := c.BodyParser(&patch); err != nil {
		return invalidBody(c, err)
	}

	task, err := h.service.UpdateTask(c.UserContext(), id, c.Params("id"), patch)
	if err != nil {
		return respondError(c, err, "Could not update task")
	}
	return c.JSON(task)
}

// HandleDeleteTask removes a task. Owner only.
func (h *TaskHandler) HandleDeleteTask(c *fiber.Ctx) error {
	id, err := identity(c)
	if err != nil {
		return respondError(c, err, "Authentication required")
	}
	taskID := c.Params("id")
	if err := h.service.DeleteTask(c.UserContext(), id, taskID); err != nil {
		return respondError(c, err, "Could not delete task")
	}
	return c.JSON(fiber.Map{"message": "Task deleted successfully", "id": taskID})
}

// HandleCompleteTask moves a task to completed.
func (h *TaskHandler) HandleCompleteTask(c *fiber.Ctx) error {
	return h.command(c, "Could not complete task", func(id models.Identity) (*models.Task, error) {
		return h.service.CompleteTask(c.UserContext(), id, c.Params("id"))
	})
}

// DelegateRequest names the user a task is handed to.
type DelegateRequest struct {
	Username string `json:"username" validate:"required"`
}

// HandleDelegateTask delegates a task by username.
func (h *TaskHandler) HandleDelegateTask(c *fiber.Ctx) error {
	var req DelegateRequest
	if err := c.BodyParser(&req); err != nil {
		return invalidBody(c, err)
	}
	if err := h.validate.Struct(req); err != nil {
		return respondError(c, validationError(err), "Validation failed")
	}
	return h.command(c, "Could not delegate task", func(id models.Identity) (*models.Task, error) {
		return h.service.DelegateTask(c.UserContext(), id, c.Params("id"), req.Username)
	})
}

// HandleMoveBackTask returns a task to the inbox.
func (h *TaskHandler) HandleMoveBackTask(c *fiber.Ctx) error {
	return h.command(c, "Could not move task back", func(id models.Identity) (*models.Task, error) {
		return h.service.MoveBackTask(c.UserContext(), id, c.Params("id"))
	})
}

// TagRequest carries a single tag.
type TagRequest struct {
	Tag string `json:"tag" validate:"required"`
}

// HandleAddTag adds a tag to a task.
func (h *TaskHandler) HandleAddTag(c *fiber.Ctx) error {
	var req TagRequest
	if err := c.BodyParser(&req); err != nil {
		return invalidBody(c, err)
	}
	if err := h.validate.Struct(req); err != nil {
		return respondError(c, validationError(err), "Validation failed")
	}
	return h.command(c, "Could not add tag", func(id models.Identity) (*models.Task, error) {
		return h.service.AddTag(c.UserContext(), id, c.Params("id"), req.Tag)
	})
}

// HandleRemoveTag removes a tag from a task.
func (h *TaskHandler) HandleRemoveTag(c *fiber.Ctx) error {
	tag, err := url.PathUnescape(c.Params("tag"))
	if err != nil {
		return respondError(c, models.NewValidationError("tag", "Malformed tag"), "Validation failed")
	}
	return h.command(c, "Could not remove tag", func(id models.Identity) (*models.Task, error) {
		return h.service.RemoveTag(c.UserContext(), id, c.Params("id"), tag)
	})
}

// SubtaskRequest carries the description of a new subtask.
type SubtaskRequest struct {
	Description string `json:"description" validate:"required"`
}

// HandleAddSubtask appends a subtask.
func (h *TaskHandler) HandleAddSubtask(c *fiber.Ctx) error {
	var req SubtaskRequest
	if err := c.BodyParser(&req); err != nil {
		return invalidBody(c, err)
	}
	if err := h.validate.Struct(req); err != nil {
		return respondError(c, validationError(err), "Validation failed")
	}
	return h.command(c, "Could not add subtask", func(id models.Identity) (*models.Task, error) {
		return h.service.AddSubtask(c.UserContext(), id, c.Params("id"), req.Description)
	})
}

// HandleUpdateSubtask edits one subtask.
func (h *TaskHandler) HandleUpdateSubtask(c *fiber.Ctx) error {
	var patch services.SubtaskPatch
	if err := c.BodyParser(&patch); err != nil {
		return invalidBody(c, err)
	}
	return h.command(c, "Could not update subtask", func(id models.Identity) (*models.Task, error) {
		return h.service.UpdateSubtask(c.UserContext(), id, c.Params("id"), c.Params("subtaskId"), patch)
	})
}

// HandleDeleteSubtask removes one subtask.
func (h *TaskHandler) HandleDeleteSubtask(c *fiber.Ctx) error {
	return h.command(c, "Could not delete subtask", func(id models.Identity) (*models.Task, error) {
		return h.service.DeleteSubtask(c.UserContext(), id, c.Params("id"), c.Params("subtaskId"))
	})
}

// ReorderSubtasksRequest is the complete, reordered subtask list.
type ReorderSubtasksRequest struct {
	Subtasks []models.Subtask `json:"subtasks" validate:"required,dive"`
}

// HandleReorderSubtasks stores the supplied subtask order.
func (h *TaskHandler) HandleReorderSubtasks(c *fiber.Ctx) error {
	var req ReorderSubtasksRequest
	if err := c.BodyParser(&req); err != nil {
		return invalidBody(c, err)
	}
	if err := h.validate.Struct(req); err != nil {
		return respondError(c, validationError(err), "Validation failed")
	}
	return h.command(c, "Could not reorder subtasks", func(id models.Identity) (*models.Task, error) {
		return h.service.ReorderSubtasks(c.UserContext(), id, c.Params("id"), req.Subtasks)
	})
}

func (h *TaskHandler) command(c *fiber.Ctx, message string, run func(id models.Identity) (*models.Task, error)) error {
	id, err := identity(c)
	if err != nil {
		return respondError(c, err, "Authentication required")
	}
	task, err := run(id)
	if err != nil {
		return respondError(c, err, message)
	}
	return c.JSON(task)
}
