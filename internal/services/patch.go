package services

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"gtdsync/internal/broadcast"
	"gtdsync/internal/models"

	"github.com/google/uuid"
)

// Publisher receives change notifications after a successful commit.
type Publisher interface {
	Publish(msg broadcast.Message)
}

// Nullable distinguishes an absent JSON field (Set == false) from an explicit
// null (Set == true, Value == nil).
type Nullable[T any] struct {
	Set   bool
	Value *T
}

// UnmarshalJSON is only called when the key is present.
func (n *Nullable[T]) UnmarshalJSON(data []byte) error {
	n.Set = true
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		n.Value = nil
		return nil
	}
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	n.Value = &v
	return nil
}

// Of returns a set Nullable holding v.
func Of[T any](v T) Nullable[T] {
	return Nullable[T]{Set: true, Value: &v}
}

// Null returns a set Nullable holding null.
func Null[T any]() Nullable[T] {
	return Nullable[T]{Set: true}
}

const dateLayout = "2006-01-02"

func normalizeDescription(field, s string) (string, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", models.NewValidationError(field, "Description is required")
	}
	return s, nil
}

// normalizeDate turns "" into nil and rejects anything that is not YYYY-MM-DD.
func normalizeDate(field string, s *string) (*string, error) {
	if s == nil {
		return nil, nil
	}
	v := strings.TrimSpace(*s)
	if v == "" {
		return nil, nil
	}
	if _, err := time.Parse(dateLayout, v); err != nil {
		return nil, models.NewValidationError(field, "Invalid date format (YYYY-MM-DD)")
	}
	return &v, nil
}

// normalizeSubtasks keeps the caller's order, assigns missing ids and rejects
// blank descriptions and duplicate ids.
func normalizeSubtasks(in []models.Subtask) ([]models.Subtask, error) {
	out := make([]models.Subtask, 0, len(in))
	seen := make(map[string]bool, len(in))
	for i, st := range in {
		desc, err := normalizeDescription(fmt.Sprintf("subtasks[%d].description", i), st.Description)
		if err != nil {
			return nil, err
		}
		id := strings.TrimSpace(st.ID)
		if id == "" {
			id = newSubtaskID()
		}
		if seen[id] {
			return nil, models.NewValidationError(fmt.Sprintf("subtasks[%d].id", i), "Duplicate subtask id "+id)
		}
		seen[id] = true
		out = append(out, models.Subtask{ID: id, Description: desc, Completed: st.Completed})
	}
	return out, nil
}

// normalizeTags trims each tag, keeps the caller's order and rejects blanks and duplicates.
func normalizeTags(in []string) ([]string, error) {
	out := make([]string, 0, len(in))
	seen := make(map[string]bool, len(in))
	for i, tag := range in {
		tag = strings.TrimSpace(tag)
		if tag == "" {
			return nil, models.NewValidationError(fmt.Sprintf("tags[%d]", i), "Tag cannot be empty")
		}
		if seen[tag] {
			return nil, fmt.Errorf("tag '%s' listed twice: %w", tag, models.ErrConflict)
		}
		seen[tag] = true
		out = append(out, tag)
	}
	return out, nil
}

func newSubtaskID() string {
	return "subtask-" + uuid.New().String()
}
