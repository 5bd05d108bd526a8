package services

import (
	"context"
	"fmt"
	"log"
	"strings"

	"gtdsync/internal/broadcast"
	"gtdsync/internal/models"
	"gtdsync/internal/policy"
	"gtdsync/internal/repositories"
)

// ProjectService handles business logic related to projects.
type ProjectService struct {
	projects  repositories.ProjectRepository
	publisher Publisher
}

// NewProjectService creates a new ProjectService. publisher may be nil.
func NewProjectService(projects repositories.ProjectRepository, publisher Publisher) *ProjectService {
	return &ProjectService{projects: projects, publisher: publisher}
}

// ListProjects returns the caller's own projects.
func (s *ProjectService) ListProjects(ctx context.Context, id models.Identity) ([]models.Project, error) {
	return s.projects.ListByOwner(ctx, id.ID)
}

// GetProject returns a project the caller owns.
func (s *ProjectService) GetProject(ctx context.Context, id models.Identity, projectID string) (*models.Project, error) {
	project, err := s.projects.GetByID(ctx, projectID)
	if err != nil {
		return nil, err
	}
	if !policy.CanAccessProject(id, project) {
		return nil, fmt.Errorf("project %s: %w", projectID, models.ErrForbidden)
	}
	return project, nil
}

// CreateProject stores a new project owned by the caller.
func (s *ProjectService) CreateProject(ctx context.Context, id models.Identity, name string) (*models.Project, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, models.NewValidationError("name", "Project name is required")
	}
	project := &models.Project{Name: name, UserID: id.ID}
	if err := s.projects.Create(ctx, project); err != nil {
		return nil, err
	}
	if s.publisher != nil {
		s.publisher.Publish(broadcast.ProjectAdded(project))
	} else {
		log.Println("No broadcast publisher configured. Skipping projectUpdate/add.")
	}
	return project, nil
}
