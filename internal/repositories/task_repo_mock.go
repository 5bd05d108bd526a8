package repositories

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"gtdsync/internal/models"

	"github.com/google/uuid"
)

// MockTaskRepository is an in-memory implementation of TaskRepository.
// Stored tasks are copied in and out so callers never share slices with it.
type MockTaskRepository struct {
	tasks map[string]models.Task
	mu    sync.RWMutex
}

// NewMockTaskRepository creates a new instance of MockTaskRepository.
func NewMockTaskRepository() *MockTaskRepository {
	return &MockTaskRepository{
		tasks: make(map[string]models.Task),
	}
}

// ListVisibleTo returns tasks owned by or delegated to userID, oldest first.
func (r *MockTaskRepository) ListVisibleTo(_ context.Context, userID string) ([]models.Task, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	taskList := make([]models.Task, 0, len(r.tasks))
	for _, t := range r.tasks {
		if t.UserID == userID || t.DelegateeID() == userID {
			taskList = append(taskList, cloneTask(t))
		}
	}
	sort.Slice(taskList, func(i, j int) bool {
		if taskList[i].DateAdded.Equal(taskList[j].DateAdded) {
			return taskList[i].ID < taskList[j].ID
		}
		return taskList[i].DateAdded.Before(taskList[j].DateAdded)
	})
	return taskList, nil
}

// GetByID returns a task by its ID.
func (r *MockTaskRepository) GetByID(_ context.Context, id string) (*models.Task, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	task, ok := r.tasks[id]
	if !ok {
		return nil, fmt.Errorf("task with ID %s: %w", id, models.ErrNotFound)
	}
	task = cloneTask(task)
	return &task, nil
}

// Create adds a new task.
func (r *MockTaskRepository) Create(_ context.Context, task *models.Task) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if task.ID == "" {
		task.ID = uuid.New().String()
	}
	if task.DateAdded.IsZero() {
		task.DateAdded = time.Now().UTC()
	}
	task.UpdatedAt = task.DateAdded
	task.Normalize()
	r.tasks[task.ID] = cloneTask(*task)
	return nil
}

// Save replaces an existing task.
func (r *MockTaskRepository) Save(_ context.Context, task *models.Task) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored, ok := r.tasks[task.ID]
	if !ok {
		return fmt.Errorf("task with ID %s for update: %w", task.ID, models.ErrNotFound)
	}
	task.UserID = stored.UserID
	task.DateAdded = stored.DateAdded
	task.UpdatedAt = time.Now().UTC()
	task.Normalize()
	r.tasks[task.ID] = cloneTask(*task)
	return nil
}

// Delete removes a task by its ID.
func (r *MockTaskRepository) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.tasks[id]; !ok {
		return fmt.Errorf("task with ID %s for deletion: %w", id, models.ErrNotFound)
	}
	delete(r.tasks, id)
	return nil
}

func cloneTask(t models.Task) models.Task {
	t.Subtasks = append(t.Subtasks[:0:0], t.Subtasks...)
	t.Tags = append(t.Tags[:0:0], t.Tags...)
	if t.Delegatee != nil {
		d := *t.Delegatee
		t.Delegatee = &d
	}
	if t.DateCompleted != nil {
		c := *t.DateCompleted
		t.DateCompleted = &c
	}
	return t
}
