package policy_test

import (
	"testing"

	"gtdsync/internal/models"
	"gtdsync/internal/policy"

	"github.com/stretchr/testify/assert"
)

func TestTaskRules(t *testing.T) {
	owner := models.Identity{ID: "owner", Username: "alice"}
	delegatee := models.Identity{ID: "delegatee", Username: "bob"}
	stranger := models.Identity{ID: "stranger", Username: "carol"}

	d := delegatee.ID
	delegated := &models.Task{UserID: owner.ID, Delegatee: &d}
	undelegated := &models.Task{UserID: owner.ID}

	tests := []struct {
		name           string
		id             models.Identity
		task           *models.Task
		read, upd, del bool
	}{
		{"owner of delegated task", owner, delegated, true, true, true},
		{"delegatee", delegatee, delegated, true, true, false},
		{"stranger", stranger, delegated, false, false, false},
		{"owner of own task", owner, undelegated, true, true, true},
		{"delegatee of undelegated task", delegatee, undelegated, false, false, false},
		{"empty identity never matches nil delegatee", models.Identity{}, undelegated, false, false, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.read, policy.CanReadTask(tt.id, tt.task))
			assert.Equal(t, tt.upd, policy.CanUpdateTask(tt.id, tt.task))
			assert.Equal(t, tt.del, policy.CanDeleteTask(tt.id, tt.task))
		})
	}
}

func TestProjectAndDesignControlRules(t *testing.T) {
	owner := models.Identity{ID: "owner"}
	other := models.Identity{ID: "other"}

	project := &models.Project{UserID: owner.ID}
	item := &models.DesignControl{UserID: owner.ID}

	assert.True(t, policy.CanAccessProject(owner, project))
	assert.False(t, policy.CanAccessProject(other, project))
	assert.True(t, policy.CanAccessDesignControl(owner, item))
	assert.False(t, policy.CanAccessDesignControl(other, item))
}
