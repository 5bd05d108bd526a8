package repositories

import (
	"context"

	"gtdsync/internal/models"
)

// DesignControlRepository defines the interface for design-control data access.
type DesignControlRepository interface {
	ListByProject(ctx context.Context, projectID string) ([]models.DesignControl, error)
	GetByID(ctx context.Context, id string) (*models.DesignControl, error)
	// CreateNumbered assigns item.Number from the next sequence value of its
	// (user, project, category) scope and inserts the item atomically.
	CreateNumbered(ctx context.Context, item *models.DesignControl) error
	Save(ctx context.Context, item *models.DesignControl) error
	Delete(ctx context.Context, id string) error
}
