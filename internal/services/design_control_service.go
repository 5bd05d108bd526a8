package services

import (
	"context"
	"fmt"
	"log"

	"gtdsync/internal/broadcast"
	"gtdsync/internal/models"
	"gtdsync/internal/policy"
	"gtdsync/internal/repositories"
)

// CreateDesignControlInput is the caller-supplied part of a new board item.
type CreateDesignControlInput struct {
	Category    models.Category `json:"category" validate:"required"`
	Description string          `json:"description" validate:"required"`
	ProjectID   string          `json:"project_id" validate:"required"`
	Notes       string          `json:"notes"`
	Documents   []string        `json:"documents"`
}

// DesignControlPatch lists the fields a caller may change on a board item.
// Moving a card only changes Category; the number stays.
type DesignControlPatch struct {
	Category    *models.Category `json:"category"`
	Description *string          `json:"description"`
	Notes       *string          `json:"notes"`
	Documents   *[]string        `json:"documents"`
}

// DesignControlService numbers design-control items and moves them across the board.
type DesignControlService struct {
	items     repositories.DesignControlRepository
	projects  *ProjectService
	publisher Publisher
}

// NewDesignControlService creates a new DesignControlService. publisher may be nil.
func NewDesignControlService(items repositories.DesignControlRepository, projects *ProjectService, publisher Publisher) *DesignControlService {
	return &DesignControlService{items: items, projects: projects, publisher: publisher}
}

// ListDesignControls returns every item on a project board the caller owns.
func (s *DesignControlService) ListDesignControls(ctx context.Context, id models.Identity, projectID string) ([]models.DesignControl, error) {
	if _, err := s.projects.GetProject(ctx, id, projectID); err != nil {
		return nil, err
	}
	return s.items.ListByProject(ctx, projectID)
}

// CreateDesignControl validates the category and project, then stores the item
// with the next number of its (caller, category, project) scope.
func (s *DesignControlService) CreateDesignControl(ctx context.Context, id models.Identity, in CreateDesignControlInput) (*models.DesignControl, error) {
	if !in.Category.Valid() {
		return nil, invalidCategory(in.Category)
	}
	desc, err := normalizeDescription("description", in.Description)
	if err != nil {
		return nil, err
	}
	if _, err := s.projects.GetProject(ctx, id, in.ProjectID); err != nil {
		return nil, err
	}

	item := &models.DesignControl{
		UserID:      id.ID,
		ProjectID:   in.ProjectID,
		Category:    in.Category,
		Description: desc,
		Notes:       in.Notes,
		Documents:   in.Documents,
	}
	if err := s.items.CreateNumbered(ctx, item); err != nil {
		return nil, err
	}
	s.publish(broadcast.DesignControlChanged(broadcast.ActionAdd, item))
	return item, nil
}

// UpdateDesignControl applies patch to an item the caller owns.
func (s *DesignControlService) UpdateDesignControl(ctx context.Context, id models.Identity, itemID string, patch DesignControlPatch) (*models.DesignControl, error) {
	item, err := s.load(ctx, id, itemID)
	if err != nil {
		return nil, err
	}

	if patch.Category != nil {
		if !patch.Category.Valid() {
			return nil, invalidCategory(*patch.Category)
		}
		item.Category = *patch.Category
	}
	if patch.Description != nil {
		desc, err := normalizeDescription("description", *patch.Description)
		if err != nil {
			return nil, err
		}
		item.Description = desc
	}
	if patch.Notes != nil {
		item.Notes = *patch.Notes
	}
	if patch.Documents != nil {
		item.Documents = *patch.Documents
	}

	if err := s.items.Save(ctx, item); err != nil {
		return nil, err
	}
	s.publish(broadcast.DesignControlChanged(broadcast.ActionUpdate, item))
	return item, nil
}

// MoveDesignControl changes only the item's column.
func (s *DesignControlService) MoveDesignControl(ctx context.Context, id models.Identity, itemID string, to models.Category) (*models.DesignControl, error) {
	return s.UpdateDesignControl(ctx, id, itemID, DesignControlPatch{Category: &to})
}

// DeleteDesignControl removes an item the caller owns.
func (s *DesignControlService) DeleteDesignControl(ctx context.Context, id models.Identity, itemID string) error {
	item, err := s.load(ctx, id, itemID)
	if err != nil {
		return err
	}
	if err := s.items.Delete(ctx, itemID); err != nil {
		return err
	}
	s.publish(broadcast.DesignControlDeleted(item))
	return nil
}

func (s *DesignControlService) load(ctx context.Context, id models.Identity, itemID string) (*models.DesignControl, error) {
	item, err := s.items.GetByID(ctx, itemID)
	if err != nil {
		return nil, err
	}
	if !policy.CanAccessDesignControl(id, item) {
		return nil, fmt.Errorf("design control %s: %w", itemID, models.ErrForbidden)
	}
	return item, nil
}

func (s *DesignControlService) publish(msg broadcast.Message) {
	if s.publisher == nil {
		log.Printf("No broadcast publisher configured. Skipping %s/%s.", msg.Event, msg.Action)
		return
	}
	s.publisher.Publish(msg)
}

func invalidCategory(c models.Category) error {
	return models.NewValidationError("category",
		fmt.Sprintf("Category must be one of userNeeds, designInputs, designOutputs, designVerifications, designValidations (got %q)", c))
}
