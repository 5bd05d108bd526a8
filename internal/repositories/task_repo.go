package repositories

import (
	"context"

	"gtdsync/internal/models"
)

// TaskRepository defines the interface for task data access.
// Save is a full-document replacement of an existing task.
type TaskRepository interface {
	ListVisibleTo(ctx context.Context, userID string) ([]models.Task, error)
	GetByID(ctx context.Context, id string) (*models.Task, error)
	Create(ctx context.Context, task *models.Task) error
	Save(ctx context.Context, task *models.Task) error
	Delete(ctx context.Context, id string) error
}
