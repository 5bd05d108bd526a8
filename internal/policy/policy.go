// Package policy decides whether a verified identity may read or mutate an entity.
// Every function is pure; callers check existence before asking.
package policy

import "gtdsync/internal/models"

// CanReadTask is true for the task's owner and its delegatee.
func CanReadTask(id models.Identity, task *models.Task) bool {
	if id.ID == "" {
		return false
	}
	return id.ID == task.UserID || id.ID == task.DelegateeID()
}

// CanUpdateTask follows the read rule: owner or delegatee may change any editable field.
func CanUpdateTask(id models.Identity, task *models.Task) bool {
	return CanReadTask(id, task)
}

// CanDeleteTask is true only for the owner.
func CanDeleteTask(id models.Identity, task *models.Task) bool {
	return id.ID != "" && id.ID == task.UserID
}

// CanAccessProject is true only for the project's creator.
func CanAccessProject(id models.Identity, project *models.Project) bool {
	return id.ID != "" && id.ID == project.UserID
}

// CanAccessDesignControl is true only for the item's creator.
func CanAccessDesignControl(id models.Identity, item *models.DesignControl) bool {
	return id.ID != "" && id.ID == item.UserID
}
