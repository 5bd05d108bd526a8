package broadcast

import "gtdsync/internal/models"

// Event names emitted on the push channel.
const (
	EventTask          = "taskUpdate"
	EventDesignControl = "designControlUpdate"
	EventProject       = "projectUpdate"
)

// Action is the kind of mutation a message describes.
type Action string

const (
	ActionAdd    Action = "add"
	ActionUpdate Action = "update"
	ActionDelete Action = "delete"
)

// Message is one change notification. Exactly one of the entity fields (or,
// for deletes, the matching id field) is set, depending on Event.
type Message struct {
	Event     string                `json:"event"`
	Action    Action                `json:"action"`
	Task      *models.Task          `json:"task,omitempty"`
	TaskID    string                `json:"task_id,omitempty"`
	Project   *models.Project       `json:"project,omitempty"`
	Item      *models.DesignControl `json:"item,omitempty"`
	ItemID    string                `json:"item_id,omitempty"`
	ProjectID string                `json:"project_id,omitempty"`

	// Audience lists the user ids the change is relevant to. Only used for
	// server-side filtering; never sent to clients.
	Audience []string `json:"-"`
}

// TaskChanged builds an add or update message for task. previousDelegatee is
// included in the audience so a user losing a delegation still hears about it.
func TaskChanged(action Action, task *models.Task, previousDelegatee string) Message {
	return Message{
		Event:    EventTask,
		Action:   action,
		Task:     task,
		Audience: audience(task.UserID, task.DelegateeID(), previousDelegatee),
	}
}

// TaskDeleted builds a delete message for task.
func TaskDeleted(task *models.Task) Message {
	return Message{
		Event:    EventTask,
		Action:   ActionDelete,
		TaskID:   task.ID,
		Audience: audience(task.UserID, task.DelegateeID()),
	}
}

// ProjectAdded builds the message for a newly created project.
func ProjectAdded(project *models.Project) Message {
	return Message{
		Event:    EventProject,
		Action:   ActionAdd,
		Project:  project,
		Audience: audience(project.UserID),
	}
}

// DesignControlChanged builds an add or update message for item.
func DesignControlChanged(action Action, item *models.DesignControl) Message {
	return Message{
		Event:     EventDesignControl,
		Action:    action,
		Item:      item,
		ProjectID: item.ProjectID,
		Audience:  audience(item.UserID),
	}
}

// DesignControlDeleted builds a delete message for item.
func DesignControlDeleted(item *models.DesignControl) Message {
	return Message{
		Event:     EventDesignControl,
		Action:    ActionDelete,
		ItemID:    item.ID,
		ProjectID: item.ProjectID,
		Audience:  audience(item.UserID),
	}
}

// RelevantTo reports whether userID is in the audience. An empty audience is relevant to everyone.
func (m Message) RelevantTo(userID string) bool {
	if len(m.Audience) == 0 {
		return true
	}
	for _, id := range m.Audience {
		if id == userID {
			return true
		}
	}
	return false
}

func audience(ids ...string) []string {
	out := make([]string, 0, len(ids))
	seen := make(map[string]bool, len(ids))
	for _, id := range ids {
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}
