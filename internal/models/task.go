package models

import (
	"time"

	"gorm.io/datatypes"
)

// Section is the primary lifecycle bucket of a task.
type Section string

const (
	SectionInbox     Section = "inbox"
	SectionDelegated Section = "delegated"
	SectionCompleted Section = "completed"
)

// Sections lists every section in display order.
var Sections = []Section{SectionInbox, SectionDelegated, SectionCompleted}

// Valid reports whether s is one of the known sections.
func (s Section) Valid() bool {
	switch s {
	case SectionInbox, SectionDelegated, SectionCompleted:
		return true
	}
	return false
}

// Subtask is an ordered checklist entry inside a task.
type Subtask struct {
	ID          string `json:"id"`
	Description string `json:"description" validate:"required"`
	Completed   bool   `json:"completed"`
}

// Task is a unit of work owned by UserID and optionally delegated to Delegatee.
type Task struct {
	ID                string                       `json:"id" gorm:"primaryKey;type:varchar(36)"`
	UserID            string                       `json:"user_id" gorm:"index;type:varchar(36);not null"`
	Description       string                       `json:"description" gorm:"not null"`
	DateAdded         time.Time                    `json:"date_added" gorm:"autoCreateTime"`
	Notes             string                       `json:"notes"`
	Subtasks          datatypes.JSONSlice[Subtask] `json:"subtasks"`
	Delegatee         *string                      `json:"delegatee" gorm:"index;type:varchar(36)"`
	Tags              datatypes.JSONSlice[string]  `json:"tags"`
	ExpectedStartDate *string                      `json:"expected_start_date" gorm:"type:varchar(10)"`
	TargetEndDate     *string                      `json:"target_end_date" gorm:"type:varchar(10)"`
	DateCompleted     *time.Time                   `json:"date_completed"`
	Section           Section                      `json:"section" gorm:"type:varchar(16);not null;default:inbox"`
	UpdatedAt         time.Time                    `json:"updated_at"`
}

// DelegateeID returns the delegatee id or "" when unset.
func (t *Task) DelegateeID() string {
	if t.Delegatee == nil {
		return ""
	}
	return *t.Delegatee
}

// HasTag reports whether tag is already present on the task.
func (t *Task) HasTag(tag string) bool {
	for _, existing := range t.Tags {
		if existing == tag {
			return true
		}
	}
	return false
}

// Normalize replaces nil collections with empty ones so they serialize as [].
func (t *Task) Normalize() {
	if t.Subtasks == nil {
		t.Subtasks = datatypes.JSONSlice[Subtask]{}
	}
	if t.Tags == nil {
		t.Tags = datatypes.JSONSlice[string]{}
	}
}
