package reconcile_test

import (
	"testing"

	"gtdsync/internal/broadcast"
	"gtdsync/internal/models"
	"gtdsync/pkg/reconcile"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	alice = "alice-id"
	bob   = "bob-id"
	carol = "carol-id"
)

func task(id, owner string, section models.Section, delegatee string) *models.Task {
	t := &models.Task{ID: id, UserID: owner, Description: id, Section: section}
	if delegatee != "" {
		t.Delegatee = &delegatee
	}
	return t
}

func ids(tasks []models.Task) []string {
	out := make([]string, 0, len(tasks))
	for _, t := range tasks {
		out = append(out, t.ID)
	}
	return out
}

func TestApply_TaskAddIsIdempotent(t *testing.T) {
	state := reconcile.New(alice)
	created := task("t1", alice, models.SectionInbox, "")

	// command response first, then the echoed broadcast
	state.ApplyLocalTask(*created)
	state.Apply(broadcast.TaskChanged(broadcast.ActionAdd, created, ""))
	state.Apply(broadcast.TaskChanged(broadcast.ActionAdd, created, ""))

	assert.Equal(t, []string{"t1"}, ids(state.Tasks(models.SectionInbox)))
}

func TestApply_IgnoresOtherUsersTasks(t *testing.T) {
	state := reconcile.New(carol)
	state.Apply(broadcast.TaskChanged(broadcast.ActionAdd, task("t1", alice, models.SectionInbox, ""), ""))
	state.Apply(broadcast.TaskChanged(broadcast.ActionUpdate, task("t1", alice, models.SectionDelegated, bob), ""))

	for _, section := range models.Sections {
		assert.Empty(t, state.Tasks(section), section)
	}
}

func TestApply_DelegationMovesTaskBetweenPartitions(t *testing.T) {
	aliceView := reconcile.New(alice)
	bobView := reconcile.New(bob)
	created := task("t1", alice, models.SectionInbox, "")
	delegated := task("t1", alice, models.SectionDelegated, bob)

	for _, view := range []*reconcile.State{aliceView, bobView} {
		view.Apply(broadcast.TaskChanged(broadcast.ActionAdd, created, ""))
		view.Apply(broadcast.TaskChanged(broadcast.ActionUpdate, delegated, ""))
	}

	assert.Empty(t, aliceView.Tasks(models.SectionInbox))
	assert.Equal(t, []string{"t1"}, ids(aliceView.Tasks(models.SectionDelegated)))
	assert.Equal(t, []string{"t1"}, ids(bobView.Tasks(models.SectionDelegated)))

	// moved back: bob loses sight of it
	movedBack := task("t1", alice, models.SectionInbox, "")
	bobView.Apply(broadcast.TaskChanged(broadcast.ActionUpdate, movedBack, bob))
	for _, section := range models.Sections {
		assert.Empty(t, bobView.Tasks(section), section)
	}
}

func TestApply_UpdateReplacesInPlace(t *testing.T) {
	state := reconcile.New(alice)
	state.LoadTasks([]models.Task{
		*task("t1", alice, models.SectionInbox, ""),
		*task("t2", alice, models.SectionInbox, ""),
		*task("t3", alice, models.SectionInbox, ""),
	})

	edited := task("t2", alice, models.SectionInbox, "")
	edited.Notes = "edited"
	state.Apply(broadcast.TaskChanged(broadcast.ActionUpdate, edited, ""))

	inbox := state.Tasks(models.SectionInbox)
	assert.Equal(t, []string{"t1", "t2", "t3"}, ids(inbox))
	assert.Equal(t, "edited", inbox[1].Notes)
}

func TestApply_DeleteClearsSelection(t *testing.T) {
	state := reconcile.New(alice)
	created := task("t1", alice, models.SectionInbox, "")
	state.ApplyLocalTask(*created)
	require.True(t, state.Select("t1"))

	selected, ok := state.Selected()
	require.True(t, ok)
	assert.Equal(t, "t1", selected.ID)

	state.Apply(broadcast.TaskDeleted(created))
	_, ok = state.Selected()
	assert.False(t, ok)
	assert.Empty(t, state.Tasks(models.SectionInbox))

	// deleting twice is harmless
	state.RemoveLocalTask("t1")
	assert.False(t, state.Select("t1"))
}

func TestApply_DesignControlsFollowCurrentProject(t *testing.T) {
	state := reconcile.New(alice)
	state.SetCurrentProject("p1")

	onBoard := &models.DesignControl{ID: "d1", UserID: alice, ProjectID: "p1", Category: models.CategoryUserNeeds, Number: "UN-001"}
	otherBoard := &models.DesignControl{ID: "d2", UserID: alice, ProjectID: "p2", Category: models.CategoryUserNeeds, Number: "UN-001"}
	foreign := &models.DesignControl{ID: "d3", UserID: bob, ProjectID: "p1", Category: models.CategoryUserNeeds, Number: "UN-001"}

	state.Apply(broadcast.DesignControlChanged(broadcast.ActionAdd, onBoard))
	state.Apply(broadcast.DesignControlChanged(broadcast.ActionAdd, otherBoard))
	state.Apply(broadcast.DesignControlChanged(broadcast.ActionAdd, foreign))
	state.ApplyLocalDesignControl(*onBoard)
	require.Len(t, state.DesignControls(), 1)

	moved := *onBoard
	moved.Category = models.CategoryDesignInputs
	state.Apply(broadcast.DesignControlChanged(broadcast.ActionUpdate, &moved))
	items := state.DesignControls()
	require.Len(t, items, 1)
	assert.Equal(t, models.CategoryDesignInputs, items[0].Category)
	assert.Equal(t, "UN-001", items[0].Number)

	state.Apply(broadcast.DesignControlDeleted(onBoard))
	assert.Empty(t, state.DesignControls())

	state.LoadDesignControls([]models.DesignControl{*onBoard, *otherBoard})
	assert.Len(t, state.DesignControls(), 1)
	state.SetCurrentProject("p2")
	assert.Empty(t, state.DesignControls())
}

func TestApply_Projects(t *testing.T) {
	state := reconcile.New(alice)
	mine := &models.Project{ID: "p1", Name: "Pump", UserID: alice}

	state.ApplyLocalProject(*mine)
	state.Apply(broadcast.ProjectAdded(mine))
	state.Apply(broadcast.ProjectAdded(&models.Project{ID: "p2", Name: "Other", UserID: bob}))

	assert.Equal(t, []models.Project{*mine}, state.Projects())
}

func TestAccessorsReturnCopies(t *testing.T) {
	state := reconcile.New(alice)
	created := task("t1", alice, models.SectionInbox, "")
	created.Tags = []string{"a"}
	state.ApplyLocalTask(*created)

	got := state.Tasks(models.SectionInbox)
	got[0].Tags[0] = "mutated"
	assert.Equal(t, []string{"a"}, []string(state.Tasks(models.SectionInbox)[0].Tags))
}
