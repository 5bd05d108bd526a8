package repositories

import (
	"context"

	"gtdsync/internal/models"
)

// ProjectRepository defines the interface for project data access.
// Projects have no update or delete path.
type ProjectRepository interface {
	ListByOwner(ctx context.Context, userID string) ([]models.Project, error)
	GetByID(ctx context.Context, id string) (*models.Project, error)
	Create(ctx context.Context, project *models.Project) error
}
