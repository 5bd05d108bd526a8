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

// MockDesignControlRepository is an in-memory implementation of
// DesignControlRepository, including per-scope numbering.
type MockDesignControlRepository struct {
	items    map[string]models.DesignControl
	counters map[string]int
	mu       sync.RWMutex
}

// NewMockDesignControlRepository creates a new instance of MockDesignControlRepository.
func NewMockDesignControlRepository() *MockDesignControlRepository {
	return &MockDesignControlRepository{
		items:    make(map[string]models.DesignControl),
		counters: make(map[string]int),
	}
}

// ListByProject returns every item on a project's board.
func (r *MockDesignControlRepository) ListByProject(_ context.Context, projectID string) ([]models.DesignControl, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	itemList := make([]models.DesignControl, 0)
	for _, item := range r.items {
		if item.ProjectID == projectID {
			itemList = append(itemList, cloneDesignControl(item))
		}
	}
	sort.Slice(itemList, func(i, j int) bool { return itemList[i].Number < itemList[j].Number })
	return itemList, nil
}

// GetByID returns an item by its ID.
func (r *MockDesignControlRepository) GetByID(_ context.Context, id string) (*models.DesignControl, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	item, ok := r.items[id]
	if !ok {
		return nil, fmt.Errorf("design control with ID %s: %w", id, models.ErrNotFound)
	}
	item = cloneDesignControl(item)
	return &item, nil
}

// CreateNumbered assigns the next number of the item's scope and stores it.
func (r *MockDesignControlRepository) CreateNumbered(_ context.Context, item *models.DesignControl) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if item.ID == "" {
		item.ID = uuid.New().String()
	}
	key := item.UserID + "/" + item.ProjectID + "/" + string(item.Category)
	r.counters[key]++
	item.Number = item.Category.FormatNumber(r.counters[key])
	item.CreatedAt = time.Now().UTC()
	item.UpdatedAt = item.CreatedAt
	item.Normalize()
	r.items[item.ID] = cloneDesignControl(*item)
	return nil
}

// Save replaces the mutable fields of an existing item.
func (r *MockDesignControlRepository) Save(_ context.Context, item *models.DesignControl) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored, ok := r.items[item.ID]
	if !ok {
		return fmt.Errorf("design control with ID %s for update: %w", item.ID, models.ErrNotFound)
	}
	stored.Category = item.Category
	stored.Description = item.Description
	stored.Notes = item.Notes
	stored.Documents = append(item.Documents[:0:0], item.Documents...)
	stored.UpdatedAt = time.Now().UTC()
	stored.Normalize()
	r.items[item.ID] = stored
	*item = cloneDesignControl(stored)
	return nil
}

// Delete removes an item by its ID.
func (r *MockDesignControlRepository) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.items[id]; !ok {
		return fmt.Errorf("design control with ID %s for deletion: %w", id, models.ErrNotFound)
	}
	delete(r.items, id)
	return nil
}

func cloneDesignControl(item models.DesignControl) models.DesignControl {
	item.Documents = append(item.Documents[:0:0], item.Documents...)
	return item
}
