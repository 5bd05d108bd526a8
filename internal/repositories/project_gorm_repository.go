package repositories

import (
	"context"
	"errors"
	"fmt"

	"gtdsync/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GORMProjectRepository is a GORM implementation of ProjectRepository.
type GORMProjectRepository struct {
	db *gorm.DB
}

// NewGORMProjectRepository creates a new instance of GORMProjectRepository.
func NewGORMProjectRepository(db *gorm.DB) *GORMProjectRepository {
	return &GORMProjectRepository{db: db}
}

// ListByOwner returns the projects created by userID, oldest first.
func (r *GORMProjectRepository) ListByOwner(ctx context.Context, userID string) ([]models.Project, error) {
	var projects []models.Project
	if err := r.db.WithContext(ctx).Where("user_id = ?", userID).Order("created_at, id").Find(&projects).Error; err != nil {
		return nil, fmt.Errorf("failed to list projects for user %s: %w", userID, err)
	}
	return projects, nil
}

// GetByID retrieves a single project.
func (r *GORMProjectRepository) GetByID(ctx context.Context, id string) (*models.Project, error) {
	var project models.Project
	if err := r.db.WithContext(ctx).First(&project, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("project with ID %s: %w", id, models.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get project by ID %s: %w", id, err)
	}
	return &project, nil
}

// Create inserts a new project.
func (r *GORMProjectRepository) Create(ctx context.Context, project *models.Project) error {
	if project.ID == "" {
		project.ID = uuid.New().String()
	}
	if err := r.db.WithContext(ctx).Create(project).Error; err != nil {
		return fmt.Errorf("failed to create project: %w", err)
	}
	return nil
}
