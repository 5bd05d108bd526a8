package repositories

import (
	"context"
	"errors"
	"fmt"

	"gtdsync/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GORMDesignControlRepository is a GORM implementation of DesignControlRepository.
type GORMDesignControlRepository struct {
	db *gorm.DB
}

// NewGORMDesignControlRepository creates a new instance of GORMDesignControlRepository.
func NewGORMDesignControlRepository(db *gorm.DB) *GORMDesignControlRepository {
	return &GORMDesignControlRepository{db: db}
}

// ListByProject returns every item on a project's board in creation order.
func (r *GORMDesignControlRepository) ListByProject(ctx context.Context, projectID string) ([]models.DesignControl, error) {
	var items []models.DesignControl
	if err := r.db.WithContext(ctx).Where("project_id = ?", projectID).Order("created_at, number").Find(&items).Error; err != nil {
		return nil, fmt.Errorf("failed to list design controls for project %s: %w", projectID, err)
	}
	for i := range items {
		items[i].Normalize()
	}
	return items, nil
}

// GetByID retrieves a single design-control item.
func (r *GORMDesignControlRepository) GetByID(ctx context.Context, id string) (*models.DesignControl, error) {
	var item models.DesignControl
	if err := r.db.WithContext(ctx).First(&item, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("design control with ID %s: %w", id, models.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get design control by ID %s: %w", id, err)
	}
	item.Normalize()
	return &item, nil
}

// CreateNumbered bumps the scope counter and inserts the item in one transaction,
// so two concurrent creations in the same scope can never share a number.
func (r *GORMDesignControlRepository) CreateNumbered(ctx context.Context, item *models.DesignControl) error {
	if item.ID == "" {
		item.ID = uuid.New().String()
	}
	item.Normalize()

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		seq := models.DesignControlSequence{
			UserID:    item.UserID,
			ProjectID: item.ProjectID,
			Category:  item.Category,
			Counter:   1,
		}
		err := tx.Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "user_id"}, {Name: "project_id"}, {Name: "category"}},
			DoUpdates: clause.Assignments(map[string]interface{}{
				"counter": gorm.Expr("design_control_sequences.counter + 1"),
			}),
		}).Create(&seq).Error
		if err != nil {
			return fmt.Errorf("failed to advance sequence: %w", err)
		}

		if err := tx.First(&seq, "user_id = ? AND project_id = ? AND category = ?",
			item.UserID, item.ProjectID, item.Category).Error; err != nil {
			return fmt.Errorf("failed to read sequence: %w", err)
		}

		item.Number = item.Category.FormatNumber(seq.Counter)
		if err := tx.Create(item).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return fmt.Errorf("number %s already issued: %w", item.Number, models.ErrConflict)
			}
			return fmt.Errorf("failed to create design control: %w", err)
		}
		return nil
	})
	if err != nil {
		item.Number = ""
		return err
	}
	return nil
}

// Save writes the mutable columns of item. Number, owner and project never change.
func (r *GORMDesignControlRepository) Save(ctx context.Context, item *models.DesignControl) error {
	item.Normalize()
	res := r.db.WithContext(ctx).Model(item).
		Select("category", "description", "notes", "documents", "updated_at").
		Updates(item)
	if res.Error != nil {
		return fmt.Errorf("failed to update design control: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("design control with ID %s for update: %w", item.ID, models.ErrNotFound)
	}
	return nil
}

// Delete removes an item permanently. Its number is not reissued.
func (r *GORMDesignControlRepository) Delete(ctx context.Context, id string) error {
	res := r.db.WithContext(ctx).Delete(&models.DesignControl{}, "id = ?", id)
	if res.Error != nil {
		return fmt.Errorf("failed to delete design control: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("design control with ID %s for deletion: %w", id, models.ErrNotFound)
	}
	return nil
}
