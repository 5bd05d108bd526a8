package repositories

import (
	"context"
	"errors"
	"fmt"

	"gtdsync/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GORMTaskRepository is a GORM implementation of TaskRepository.
type GORMTaskRepository struct {
	db *gorm.DB
}

// NewGORMTaskRepository creates a new instance of GORMTaskRepository.
func NewGORMTaskRepository(db *gorm.DB) *GORMTaskRepository {
	return &GORMTaskRepository{db: db}
}

// ListVisibleTo returns tasks owned by or delegated to userID, oldest first.
func (r *GORMTaskRepository) ListVisibleTo(ctx context.Context, userID string) ([]models.Task, error) {
	var tasks []models.Task
	err := r.db.WithContext(ctx).
		Where("user_id = ? OR delegatee = ?", userID, userID).
		Order("date_added, id").
		Find(&tasks).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list tasks for user %s: %w", userID, err)
	}
	for i := range tasks {
		tasks[i].Normalize()
	}
	return tasks, nil
}

// GetByID retrieves a single task.
func (r *GORMTaskRepository) GetByID(ctx context.Context, id string) (*models.Task, error) {
	var task models.Task
	if err := r.db.WithContext(ctx).First(&task, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("task with ID %s: %w", id, models.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get task by ID %s: %w", id, err)
	}
	task.Normalize()
	return &task, nil
}

// Create inserts a new task, assigning an ID if none is set.
func (r *GORMTaskRepository) Create(ctx context.Context, task *models.Task) error {
	if task.ID == "" {
		task.ID = uuid.New().String()
	}
	task.Normalize()
	if err := r.db.WithContext(ctx).Create(task).Error; err != nil {
		return fmt.Errorf("failed to create task: %w", err)
	}
	return nil
}

// Save writes every column of task. The row must already exist.
func (r *GORMTaskRepository) Save(ctx context.Context, task *models.Task) error {
	task.Normalize()
	res := r.db.WithContext(ctx).Model(task).Select("*").Omit("id", "user_id", "date_added").Updates(task)
	if res.Error != nil {
		return fmt.Errorf("failed to update task: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("task with ID %s for update: %w", task.ID, models.ErrNotFound)
	}
	return nil
}

// Delete removes a task permanently.
func (r *GORMTaskRepository) Delete(ctx context.Context, id string) error {
	res := r.db.WithContext(ctx).Delete(&models.Task{}, "id = ?", id)
	if res.Error != nil {
		return fmt.Errorf("failed to delete task: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("task with ID %s for deletion: %w", id, models.ErrNotFound)
	}
	return nil
}
