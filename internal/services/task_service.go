package services

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"gtdsync/internal/broadcast"
	"gtdsync/internal/models"
	"gtdsync/internal/policy"
	"gtdsync/internal/repositories"
)

// CreateTaskInput is the caller-supplied part of a new task.
type CreateTaskInput struct {
	Description       string           `json:"description" validate:"required"`
	Notes             string           `json:"notes"`
	Subtasks          []models.Subtask `json:"subtasks" validate:"omitempty,dive"`
	Tags              []string         `json:"tags" validate:"omitempty,dive,required"`
	ExpectedStartDate *string          `json:"expected_start_date"`
	TargetEndDate     *string          `json:"target_end_date"`
}

// TaskPatch lists every field a caller may change. Absent fields are left alone.
type TaskPatch struct {
	Description       *string             `json:"description"`
	Notes             *string             `json:"notes"`
	Subtasks          *[]models.Subtask   `json:"subtasks"`
	Tags              *[]string           `json:"tags"`
	Delegatee         Nullable[string]    `json:"delegatee"`
	ExpectedStartDate Nullable[string]    `json:"expected_start_date"`
	TargetEndDate     Nullable[string]    `json:"target_end_date"`
	DateCompleted     Nullable[time.Time] `json:"date_completed"`
	Section           *models.Section     `json:"section"`
}

// SubtaskPatch changes one subtask in place.
type SubtaskPatch struct {
	Description *string `json:"description"`
	Completed   *bool   `json:"completed"`
}

// allowedTransitions lists the section changes the engine accepts. Staying in
// the same section is always allowed.
var allowedTransitions = map[models.Section][]models.Section{
	models.SectionInbox:     {models.SectionDelegated, models.SectionCompleted},
	models.SectionDelegated: {models.SectionInbox, models.SectionCompleted},
	models.SectionCompleted: {models.SectionInbox},
}

// TaskService is the task lifecycle engine.
type TaskService struct {
	tasks     repositories.TaskRepository
	users     repositories.UserRepository
	publisher Publisher
	now       func() time.Time
}

// NewTaskService creates a new TaskService. publisher may be nil.
func NewTaskService(tasks repositories.TaskRepository, users repositories.UserRepository, publisher Publisher) *TaskService {
	return &TaskService{
		tasks:     tasks,
		users:     users,
		publisher: publisher,
		now:       time.Now,
	}
}

// ListTasks returns every task the caller owns or has been delegated.
func (s *TaskService) ListTasks(ctx context.Context, id models.Identity) ([]models.Task, error) {
	return s.tasks.ListVisibleTo(ctx, id.ID)
}

// GetTask returns one task if the caller may read it.
func (s *TaskService) GetTask(ctx context.Context, id models.Identity, taskID string) (*models.Task, error) {
	task, err := s.tasks.GetByID(ctx, taskID)
	if err != nil {
		return nil, err
	}
	if !policy.CanReadTask(id, task) {
		return nil, fmt.Errorf("task %s: %w", taskID, models.ErrForbidden)
	}
	return task, nil
}

// CreateTask stores a new task in the inbox, owned by the caller.
func (s *TaskService) CreateTask(ctx context.Context, id models.Identity, in CreateTaskInput) (*models.Task, error) {
	desc, err := normalizeDescription("description", in.Description)
	if err != nil {
		return nil, err
	}
	subtasks, err := normalizeSubtasks(in.Subtasks)
	if err != nil {
		return nil, err
	}
	tags, err := normalizeTags(in.Tags)
	if err != nil {
		return nil, err
	}
	start, err := normalizeDate("expected_start_date", in.ExpectedStartDate)
	if err != nil {
		return nil, err
	}
	end, err := normalizeDate("target_end_date", in.TargetEndDate)
	if err != nil {
		return nil, err
	}

	task := &models.Task{
		UserID:            id.ID,
		Description:       desc,
		Notes:             in.Notes,
		Subtasks:          subtasks,
		Tags:              tags,
		ExpectedStartDate: start,
		TargetEndDate:     end,
		Section:           models.SectionInbox,
	}
	if err := s.tasks.Create(ctx, task); err != nil {
		return nil, err
	}
	s.publish(broadcast.TaskChanged(broadcast.ActionAdd, task, ""))
	return task, nil
}

// UpdateTask merges patch onto the stored task and enforces section invariants.
func (s *TaskService) UpdateTask(ctx context.Context, id models.Identity, taskID string, patch TaskPatch) (*models.Task, error) {
	return s.mutate(ctx, id, taskID, func(task *models.Task) error {
		if patch.Description != nil {
			desc, err := normalizeDescription("description", *patch.Description)
			if err != nil {
				return err
			}
			task.Description = desc
		}
		if patch.Notes != nil {
			task.Notes = *patch.Notes
		}
		if patch.Subtasks != nil {
			subtasks, err := normalizeSubtasks(*patch.Subtasks)
			if err != nil {
				return err
			}
			task.Subtasks = subtasks
		}
		if patch.Tags != nil {
			tags, err := normalizeTags(*patch.Tags)
			if err != nil {
				return err
			}
			task.Tags = tags
		}
		if patch.ExpectedStartDate.Set {
			start, err := normalizeDate("expected_start_date", patch.ExpectedStartDate.Value)
			if err != nil {
				return err
			}
			task.ExpectedStartDate = start
		}
		if patch.TargetEndDate.Set {
			end, err := normalizeDate("target_end_date", patch.TargetEndDate.Value)
			if err != nil {
				return err
			}
			task.TargetEndDate = end
		}
		if patch.DateCompleted.Set {
			task.DateCompleted = patch.DateCompleted.Value
		}
		if patch.Delegatee.Set {
			if patch.Delegatee.Value == nil || *patch.Delegatee.Value == "" {
				task.Delegatee = nil
			} else {
				user, err := s.users.GetByID(ctx, *patch.Delegatee.Value)
				if err != nil {
					return fmt.Errorf("delegatee: %w", err)
				}
				task.Delegatee = &user.ID
			}
		}

		target := task.Section
		if patch.Section != nil {
			target = *patch.Section
		}
		return s.transition(task, target)
	})
}

// CompleteTask moves a task to completed and stamps the completion time.
func (s *TaskService) CompleteTask(ctx context.Context, id models.Identity, taskID string) (*models.Task, error) {
	return s.mutate(ctx, id, taskID, func(task *models.Task) error {
		if task.Section != models.SectionCompleted {
			task.DateCompleted = nil
		}
		return s.transition(task, models.SectionCompleted)
	})
}

// DelegateTask hands a task to the user called username.
func (s *TaskService) DelegateTask(ctx context.Context, id models.Identity, taskID, username string) (*models.Task, error) {
	return s.mutate(ctx, id, taskID, func(task *models.Task) error {
		username = strings.TrimSpace(username)
		if username == "" {
			return models.NewValidationError("username", "Delegatee username is required")
		}
		user, err := s.users.GetByUsername(ctx, username)
		if err != nil {
			return fmt.Errorf("delegatee: %w", err)
		}
		task.Delegatee = &user.ID
		return s.transition(task, models.SectionDelegated)
	})
}

// MoveBackTask returns a delegated or completed task to the inbox.
func (s *TaskService) MoveBackTask(ctx context.Context, id models.Identity, taskID string) (*models.Task, error) {
	return s.mutate(ctx, id, taskID, func(task *models.Task) error {
		return s.transition(task, models.SectionInbox)
	})
}

// AddTag appends tag unless the task already carries it.
func (s *TaskService) AddTag(ctx context.Context, id models.Identity, taskID, tag string) (*models.Task, error) {
	return s.mutate(ctx, id, taskID, func(task *models.Task) error {
		tag = strings.TrimSpace(tag)
		if tag == "" {
			return models.NewValidationError("tag", "Tag cannot be empty")
		}
		if task.HasTag(tag) {
			return fmt.Errorf("tag '%s' already present: %w", tag, models.ErrConflict)
		}
		task.Tags = append(task.Tags, tag)
		return nil
	})
}

// RemoveTag drops tag from the task.
func (s *TaskService) RemoveTag(ctx context.Context, id models.Identity, taskID, tag string) (*models.Task, error) {
	return s.mutate(ctx, id, taskID, func(task *models.Task) error {
		kept := task.Tags[:0]
		found := false
		for _, t := range task.Tags {
			if t == tag {
				found = true
				continue
			}
			kept = append(kept, t)
		}
		if !found {
			return fmt.Errorf("tag '%s': %w", tag, models.ErrNotFound)
		}
		task.Tags = kept
		return nil
	})
}

// AddSubtask appends a new, incomplete subtask.
func (s *TaskService) AddSubtask(ctx context.Context, id models.Identity, taskID, description string) (*models.Task, error) {
	return s.mutate(ctx, id, taskID, func(task *models.Task) error {
		desc, err := normalizeDescription("description", description)
		if err != nil {
			return err
		}
		task.Subtasks = append(task.Subtasks, models.Subtask{ID: newSubtaskID(), Description: desc})
		return nil
	})
}

// UpdateSubtask edits one subtask's description or completion flag.
func (s *TaskService) UpdateSubtask(ctx context.Context, id models.Identity, taskID, subtaskID string, patch SubtaskPatch) (*models.Task, error) {
	return s.mutate(ctx, id, taskID, func(task *models.Task) error {
		for i := range task.Subtasks {
			if task.Subtasks[i].ID != subtaskID {
				continue
			}
			if patch.Description != nil {
				desc, err := normalizeDescription("description", *patch.Description)
				if err != nil {
					return err
				}
				task.Subtasks[i].Description = desc
			}
			if patch.Completed != nil {
				task.Subtasks[i].Completed = *patch.Completed
			}
			return nil
		}
		return fmt.Errorf("subtask %s: %w", subtaskID, models.ErrNotFound)
	})
}

// DeleteSubtask removes one subtask.
func (s *TaskService) DeleteSubtask(ctx context.Context, id models.Identity, taskID, subtaskID string) (*models.Task, error) {
	return s.mutate(ctx, id, taskID, func(task *models.Task) error {
		for i := range task.Subtasks {
			if task.Subtasks[i].ID == subtaskID {
				task.Subtasks = append(task.Subtasks[:i], task.Subtasks[i+1:]...)
				return nil
			}
		}
		return fmt.Errorf("subtask %s: %w", subtaskID, models.ErrNotFound)
	})
}

// ReorderSubtasks stores exactly the supplied list. Concurrent edits are not merged.
func (s *TaskService) ReorderSubtasks(ctx context.Context, id models.Identity, taskID string, subtasks []models.Subtask) (*models.Task, error) {
	return s.mutate(ctx, id, taskID, func(task *models.Task) error {
		normalized, err := normalizeSubtasks(subtasks)
		if err != nil {
			return err
		}
		task.Subtasks = normalized
		return nil
	})
}

// DeleteTask removes a task. Only the owner may do this.
func (s *TaskService) DeleteTask(ctx context.Context, id models.Identity, taskID string) error {
	task, err := s.tasks.GetByID(ctx, taskID)
	if err != nil {
		return err
	}
	if !policy.CanDeleteTask(id, task) {
		return fmt.Errorf("only the owner may delete task %s: %w", taskID, models.ErrForbidden)
	}
	if err := s.tasks.Delete(ctx, taskID); err != nil {
		return err
	}
	s.publish(broadcast.TaskDeleted(task))
	return nil
}

// mutate loads and authorizes a task, applies fn, then saves and broadcasts.
// Nothing is written when fn fails.
func (s *TaskService) mutate(ctx context.Context, id models.Identity, taskID string, fn func(task *models.Task) error) (*models.Task, error) {
	task, err := s.tasks.GetByID(ctx, taskID)
	if err != nil {
		return nil, err
	}
	if !policy.CanUpdateTask(id, task) {
		return nil, fmt.Errorf("task %s: %w", taskID, models.ErrForbidden)
	}

	previousDelegatee := task.DelegateeID()
	if err := fn(task); err != nil {
		return nil, err
	}
	if err := s.tasks.Save(ctx, task); err != nil {
		return nil, err
	}
	s.publish(broadcast.TaskChanged(broadcast.ActionUpdate, task, previousDelegatee))
	return task, nil
}

// transition moves task into section to and restores the section invariants.
func (s *TaskService) transition(task *models.Task, to models.Section) error {
	if !to.Valid() {
		return models.NewValidationError("section", fmt.Sprintf("Section must be one of inbox, delegated, completed (got %q)", to))
	}
	from := task.Section
	if from != to && !transitionAllowed(from, to) {
		return fmt.Errorf("%s -> %s: %w", from, to, models.ErrInvalidTransition)
	}

	switch to {
	case models.SectionInbox:
		if from != models.SectionInbox {
			task.Delegatee = nil
			task.DateCompleted = nil
		}
	case models.SectionDelegated:
		if task.Delegatee == nil {
			return models.NewValidationError("delegatee", "A delegated task needs a delegatee")
		}
		task.DateCompleted = nil
	case models.SectionCompleted:
		if task.DateCompleted == nil {
			now := s.now().UTC()
			task.DateCompleted = &now
		}
	}
	task.Section = to
	return nil
}

func transitionAllowed(from, to models.Section) bool {
	for _, allowed := range allowedTransitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

func (s *TaskService) publish(msg broadcast.Message) {
	if s.publisher == nil {
		log.Printf("No broadcast publisher configured. Skipping %s/%s.", msg.Event, msg.Action)
		return
	}
	s.publisher.Publish(msg)
}
