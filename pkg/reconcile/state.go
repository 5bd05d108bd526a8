// Package reconcile keeps a client's local view of tasks, projects and
// design-control items consistent with the server's change stream.
//
// Every write is an upsert or removal by identifier, so the same change may
// arrive twice (once from a command response, once from its broadcast echo)
// without duplicating entries.
package reconcile

import (
	"sync"

	"gtdsync/internal/broadcast"
	"gtdsync/internal/models"
)

// State is one user's local view. It is safe for concurrent use.
type State struct {
	mu             sync.RWMutex
	userID         string
	currentProject string
	tasks          map[models.Section][]models.Task
	projects       []models.Project
	designControls []models.DesignControl
	selectedTaskID string
}

// New returns an empty view for userID.
func New(userID string) *State {
	return &State{
		userID: userID,
		tasks:  make(map[models.Section][]models.Task, len(models.Sections)),
	}
}

// UserID returns the user this view belongs to.
func (s *State) UserID() string {
	return s.userID
}

// SetCurrentProject switches the board being viewed and drops the previous board's items.
func (s *State) SetCurrentProject(projectID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.currentProject != projectID {
		s.designControls = nil
	}
	s.currentProject = projectID
}

// CurrentProject returns the project whose board is being viewed.
func (s *State) CurrentProject() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.currentProject
}

// LoadTasks replaces every task partition with a full refetch.
func (s *State) LoadTasks(tasks []models.Task) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tasks = make(map[models.Section][]models.Task, len(models.Sections))
	for _, t := range tasks {
		if s.taskRelevant(&t) {
			s.upsertTask(t)
		}
	}
	if _, ok := s.findTask(s.selectedTaskID); !ok {
		s.selectedTaskID = ""
	}
}

// LoadProjects replaces the project list with a full refetch.
func (s *State) LoadProjects(projects []models.Project) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.projects = nil
	for _, p := range projects {
		if p.UserID == s.userID {
			s.upsertProject(p)
		}
	}
}

// LoadDesignControls replaces the current board with a full refetch.
func (s *State) LoadDesignControls(items []models.DesignControl) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.designControls = nil
	for _, item := range items {
		if s.designControlRelevant(&item) {
			s.upsertDesignControl(item)
		}
	}
}

// Apply folds one broadcast message into the view. Messages about entities
// the user cannot see are ignored; an update that makes a task invisible
// (for example a delegation moving away) removes it.
func (s *State) Apply(msg broadcast.Message) {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch msg.Event {
	case broadcast.EventTask:
		switch msg.Action {
		case broadcast.ActionAdd, broadcast.ActionUpdate:
			if msg.Task == nil {
				return
			}
			if s.taskRelevant(msg.Task) {
				s.upsertTask(*msg.Task)
			} else {
				s.removeTask(msg.Task.ID)
			}
		case broadcast.ActionDelete:
			s.removeTask(msg.TaskID)
		}

	case broadcast.EventProject:
		if msg.Project != nil && msg.Project.UserID == s.userID && msg.Action != broadcast.ActionDelete {
			s.upsertProject(*msg.Project)
		}

	case broadcast.EventDesignControl:
		switch msg.Action {
		case broadcast.ActionAdd, broadcast.ActionUpdate:
			if msg.Item != nil && s.designControlRelevant(msg.Item) {
				s.upsertDesignControl(*msg.Item)
			}
		case broadcast.ActionDelete:
			s.removeDesignControl(msg.ItemID)
		}
	}
}

// ApplyLocalTask records a task returned by a successful command.
func (s *State) ApplyLocalTask(task models.Task) {
	s.Apply(broadcast.Message{Event: broadcast.EventTask, Action: broadcast.ActionUpdate, Task: &task})
}

// ApplyLocalProject records a project returned by a successful command.
func (s *State) ApplyLocalProject(project models.Project) {
	s.Apply(broadcast.Message{Event: broadcast.EventProject, Action: broadcast.ActionAdd, Project: &project})
}

// ApplyLocalDesignControl records an item returned by a successful command.
func (s *State) ApplyLocalDesignControl(item models.DesignControl) {
	s.Apply(broadcast.Message{Event: broadcast.EventDesignControl, Action: broadcast.ActionUpdate, Item: &item, ProjectID: item.ProjectID})
}

// RemoveLocalTask drops a task after a successful delete command.
func (s *State) RemoveLocalTask(taskID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.removeTask(taskID)
}

// RemoveLocalDesignControl drops an item after a successful delete command.
func (s *State) RemoveLocalDesignControl(itemID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.removeDesignControl(itemID)
}

// Select marks a task as the one being viewed. Unknown ids clear the selection.
func (s *State) Select(taskID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.findTask(taskID); !ok {
		s.selectedTaskID = ""
		return false
	}
	s.selectedTaskID = taskID
	return true
}

// Selected returns a copy of the selected task.
func (s *State) Selected() (models.Task, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.selectedTaskID == "" {
		return models.Task{}, false
	}
	t, ok := s.findTask(s.selectedTaskID)
	if !ok {
		return models.Task{}, false
	}
	return copyTask(*t), true
}

// Tasks returns a copy of one section's tasks in arrival order.
func (s *State) Tasks(section models.Section) []models.Task {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.Task, 0, len(s.tasks[section]))
	for _, t := range s.tasks[section] {
		out = append(out, copyTask(t))
	}
	return out
}

// Projects returns a copy of the user's projects.
func (s *State) Projects() []models.Project {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]models.Project(nil), s.projects...)
}

// DesignControls returns a copy of the current board's items.
func (s *State) DesignControls() []models.DesignControl {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.DesignControl, 0, len(s.designControls))
	for _, item := range s.designControls {
		item.Documents = append(item.Documents[:0:0], item.Documents...)
		out = append(out, item)
	}
	return out
}

func (s *State) taskRelevant(t *models.Task) bool {
	return t.UserID == s.userID || t.DelegateeID() == s.userID
}

func (s *State) designControlRelevant(item *models.DesignControl) bool {
	return item.UserID == s.userID && item.ProjectID == s.currentProject && s.currentProject != ""
}

// upsertTask replaces the task in place when its section is unchanged and
// otherwise moves it to the end of its new section.
func (s *State) upsertTask(t models.Task) {
	t = copyTask(t)
	section := t.Section
	if !section.Valid() {
		section = models.SectionInbox
	}
	for i := range s.tasks[section] {
		if s.tasks[section][i].ID == t.ID {
			s.tasks[section][i] = t
			return
		}
	}
	s.removeTaskFromPartitions(t.ID)
	s.tasks[section] = append(s.tasks[section], t)
}

func (s *State) removeTask(id string) {
	s.removeTaskFromPartitions(id)
	if s.selectedTaskID == id {
		s.selectedTaskID = ""
	}
}

func (s *State) removeTaskFromPartitions(id string) {
	for section, list := range s.tasks {
		for i := range list {
			if list[i].ID == id {
				s.tasks[section] = append(list[:i:i], list[i+1:]...)
				break
			}
		}
	}
}

func (s *State) findTask(id string) (*models.Task, bool) {
	if id == "" {
		return nil, false
	}
	for _, list := range s.tasks {
		for i := range list {
			if list[i].ID == id {
				return &list[i], true
			}
		}
	}
	return nil, false
}

func (s *State) upsertProject(p models.Project) {
	for i := range s.projects {
		if s.projects[i].ID == p.ID {
			s.projects[i] = p
			return
		}
	}
	s.projects = append(s.projects, p)
}

func (s *State) upsertDesignControl(item models.DesignControl) {
	item.Documents = append(item.Documents[:0:0], item.Documents...)
	for i := range s.designControls {
		if s.designControls[i].ID == item.ID {
			s.designControls[i] = item
			return
		}
	}
	s.designControls = append(s.designControls, item)
}

func (s *State) removeDesignControl(id string) {
	for i := range s.designControls {
		if s.designControls[i].ID == id {
			s.designControls = append(s.designControls[:i:i], s.designControls[i+1:]...)
			return
		}
	}
}

func copyTask(t models.Task) models.Task {
	t.Subtasks = append(t.Subtasks[:0:0], t.Subtasks...)
	t.Tags = append(t.Tags[:0:0], t.Tags...)
	return t
}
