package services_test

import (
	"context"
	"testing"

	"gtdsync/internal/broadcast"
	"gtdsync/internal/models"
	"gtdsync/internal/repositories"
	"gtdsync/internal/services"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockProjectRepository is a mock implementation of repositories.ProjectRepository
type MockProjectRepository struct {
	mock.Mock
}

func (m *MockProjectRepository) ListByOwner(ctx context.Context, userID string) ([]models.Project, error) {
	args := m.Called(userID)
	return args.Get(0).([]models.Project), args.Error(1)
}

func (m *MockProjectRepository) GetByID(ctx context.Context, id string) (*models.Project, error) {
	args := m.Called(id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Project), args.Error(1)
}

func (m *MockProjectRepository) Create(ctx context.Context, project *models.Project) error {
	args := m.Called(project)
	if project.ID == "" {
		project.ID = uuid.New().String()
	}
	return args.Error(0)
}

func TestProjectService_CreateProject(t *testing.T) {
	mockRepo := new(MockProjectRepository)
	pub := newMockPublisher()
	service := services.NewProjectService(mockRepo, pub)
	alice := models.Identity{ID: uuid.New().String(), Username: "alice"}

	mockRepo.On("Create", mock.AnythingOfType("*models.Project")).Return(nil).Once()
	project, err := service.CreateProject(context.Background(), alice, " Infusion Pump ")
	require.NoError(t, err)
	assert.Equal(t, "Infusion Pump", project.Name)
	assert.Equal(t, alice.ID, project.UserID)

	msgs := pub.Messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, broadcast.EventProject, msgs[0].Event)
	assert.Equal(t, broadcast.ActionAdd, msgs[0].Action)
	assert.Equal(t, project, msgs[0].Project)

	_, err = service.CreateProject(context.Background(), alice, "  ")
	assertValidation(t, err, "name")
	mockRepo.AssertExpectations(t)
}

func TestProjectService_ListProjects(t *testing.T) {
	mockRepo := new(MockProjectRepository)
	service := services.NewProjectService(mockRepo, nil)
	alice := models.Identity{ID: uuid.New().String(), Username: "alice"}

	expected := []models.Project{{ID: "p1", Name: "Pump", UserID: alice.ID}}
	mockRepo.On("ListByOwner", alice.ID).Return(expected, nil).Once()

	projects, err := service.ListProjects(context.Background(), alice)
	require.NoError(t, err)
	assert.Equal(t, expected, projects)
	mockRepo.AssertExpectations(t)
}

type designControlFixture struct {
	service  *services.DesignControlService
	projects *MockProjectRepository
	pub      *MockPublisher
	alice    models.Identity
	bob      models.Identity
	p1       *models.Project
	p2       *models.Project
}

func newDesignControlFixture() *designControlFixture {
	f := &designControlFixture{
		projects: new(MockProjectRepository),
		pub:      newMockPublisher(),
		alice:    models.Identity{ID: uuid.New().String(), Username: "alice"},
		bob:      models.Identity{ID: uuid.New().String(), Username: "bob"},
	}
	f.p1 = &models.Project{ID: uuid.New().String(), Name: "P1", UserID: f.alice.ID}
	f.p2 = &models.Project{ID: uuid.New().String(), Name: "P2", UserID: f.alice.ID}
	f.projects.On("GetByID", f.p1.ID).Return(f.p1, nil)
	f.projects.On("GetByID", f.p2.ID).Return(f.p2, nil)

	projectService := services.NewProjectService(f.projects, f.pub)
	f.service = services.NewDesignControlService(repositories.NewMockDesignControlRepository(), projectService, f.pub)
	return f
}

func (f *designControlFixture) create(t *testing.T, projectID string, category models.Category) *models.DesignControl {
	t.Helper()
	item, err := f.service.CreateDesignControl(context.Background(), f.alice, services.CreateDesignControlInput{
		Category:    category,
		Description: "item",
		ProjectID:   projectID,
	})
	require.NoError(t, err)
	return item
}

func TestDesignControlService_Numbering(t *testing.T) {
	f := newDesignControlFixture()

	assert.Equal(t, "UN-001", f.create(t, f.p1.ID, models.CategoryUserNeeds).Number)
	assert.Equal(t, "UN-002", f.create(t, f.p1.ID, models.CategoryUserNeeds).Number)
	assert.Equal(t, "UN-003", f.create(t, f.p1.ID, models.CategoryUserNeeds).Number)
	assert.Equal(t, "UN-001", f.create(t, f.p2.ID, models.CategoryUserNeeds).Number)
	assert.Equal(t, "DI-001", f.create(t, f.p1.ID, models.CategoryDesignInputs).Number)
	assert.Equal(t, "DVAL-001", f.create(t, f.p1.ID, models.CategoryDesignValidations).Number)

	items, err := f.service.ListDesignControls(context.Background(), f.alice, f.p1.ID)
	require.NoError(t, err)
	assert.Len(t, items, 5)
}

func TestDesignControlService_CreateFailures(t *testing.T) {
	f := newDesignControlFixture()
	ctx := context.Background()

	_, err := f.service.CreateDesignControl(ctx, f.alice, services.CreateDesignControlInput{
		Category: "riskAnalysis", Description: "x", ProjectID: f.p1.ID,
	})
	assertValidation(t, err, "category")

	_, err = f.service.CreateDesignControl(ctx, f.alice, services.CreateDesignControlInput{
		Category: models.CategoryUserNeeds, Description: " ", ProjectID: f.p1.ID,
	})
	assertValidation(t, err, "description")

	missing := uuid.New().String()
	f.projects.On("GetByID", missing).Return(nil, models.ErrNotFound).Once()
	_, err = f.service.CreateDesignControl(ctx, f.alice, services.CreateDesignControlInput{
		Category: models.CategoryUserNeeds, Description: "x", ProjectID: missing,
	})
	assert.ErrorIs(t, err, models.ErrNotFound)

	_, err = f.service.CreateDesignControl(ctx, f.bob, services.CreateDesignControlInput{
		Category: models.CategoryUserNeeds, Description: "x", ProjectID: f.p1.ID,
	})
	assert.ErrorIs(t, err, models.ErrForbidden)

	_, err = f.service.ListDesignControls(ctx, f.bob, f.p1.ID)
	assert.ErrorIs(t, err, models.ErrForbidden)

	f.pub.AssertNotCalled(t, "Publish", mock.Anything)
}

func TestDesignControlService_MoveKeepsNumber(t *testing.T) {
	f := newDesignControlFixture()
	ctx := context.Background()
	item := f.create(t, f.p1.ID, models.CategoryUserNeeds)

	moved, err := f.service.MoveDesignControl(ctx, f.alice, item.ID, models.CategoryDesignInputs)
	require.NoError(t, err)
	assert.Equal(t, models.CategoryDesignInputs, moved.Category)
	assert.Equal(t, "UN-001", moved.Number)

	notes := "traceable to DI-004"
	docs := []string{"drawing-rev-b.pdf"}
	updated, err := f.service.UpdateDesignControl(ctx, f.alice, item.ID, services.DesignControlPatch{Notes: &notes, Documents: &docs})
	require.NoError(t, err)
	assert.Equal(t, notes, updated.Notes)
	assert.Equal(t, []string{"drawing-rev-b.pdf"}, []string(updated.Documents))

	_, err = f.service.UpdateDesignControl(ctx, f.bob, item.ID, services.DesignControlPatch{Notes: &notes})
	assert.ErrorIs(t, err, models.ErrForbidden)

	bogus := models.Category("bogus")
	_, err = f.service.UpdateDesignControl(ctx, f.alice, item.ID, services.DesignControlPatch{Category: &bogus})
	assertValidation(t, err, "category")

	msgs := f.pub.Messages()
	last := msgs[len(msgs)-1]
	assert.Equal(t, broadcast.EventDesignControl, last.Event)
	assert.Equal(t, broadcast.ActionUpdate, last.Action)
	assert.Equal(t, f.p1.ID, last.ProjectID)
}

func TestDesignControlService_Delete(t *testing.T) {
	f := newDesignControlFixture()
	ctx := context.Background()
	item := f.create(t, f.p1.ID, models.CategoryDesignOutputs)

	assert.ErrorIs(t, f.service.DeleteDesignControl(ctx, f.bob, item.ID), models.ErrForbidden)
	require.NoError(t, f.service.DeleteDesignControl(ctx, f.alice, item.ID))

	msgs := f.pub.Messages()
	last := msgs[len(msgs)-1]
	assert.Equal(t, broadcast.ActionDelete, last.Action)
	assert.Equal(t, item.ID, last.ItemID)
	assert.Nil(t, last.Item)

	assert.ErrorIs(t, f.service.DeleteDesignControl(ctx, f.alice, item.ID), models.ErrNotFound)

	// numbers are not reissued
	assert.Equal(t, "DO-002", f.create(t, f.p1.ID, models.CategoryDesignOutputs).Number)
}
