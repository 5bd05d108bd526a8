package models

import (
	"fmt"
	"time"

	"gorm.io/datatypes"
)

// Category is the kanban column a design-control item sits in.
type Category string

const (
	CategoryUserNeeds           Category = "userNeeds"
	CategoryDesignInputs        Category = "designInputs"
	CategoryDesignOutputs       Category = "designOutputs"
	CategoryDesignVerifications Category = "designVerifications"
	CategoryDesignValidations   Category = "designValidations"
)

var categoryPrefixes = map[Category]string{
	CategoryUserNeeds:           "UN",
	CategoryDesignInputs:        "DI",
	CategoryDesignOutputs:       "DO",
	CategoryDesignVerifications: "DV",
	CategoryDesignValidations:   "DVAL",
}

// Valid reports whether c is one of the five board columns.
func (c Category) Valid() bool {
	_, ok := categoryPrefixes[c]
	return ok
}

// Prefix returns the number prefix for c, e.g. "UN" for userNeeds.
func (c Category) Prefix() string {
	return categoryPrefixes[c]
}

// FormatNumber renders the human-readable number for the seq-th item of category c.
func (c Category) FormatNumber(seq int) string {
	return fmt.Sprintf("%s-%03d", c.Prefix(), seq)
}

// DesignControl is a regulatory documentation record on a project's board.
// Number is assigned once at creation and reflects the creation category,
// not the current one.
type DesignControl struct {
	ID          string                      `json:"id" gorm:"primaryKey;type:varchar(36)"`
	UserID      string                      `json:"user_id" gorm:"type:varchar(36);not null;uniqueIndex:idx_design_control_number,priority:1"`
	ProjectID   string                      `json:"project_id" gorm:"type:varchar(36);not null;index;uniqueIndex:idx_design_control_number,priority:2"`
	Category    Category                    `json:"category" gorm:"type:varchar(32);not null"`
	Number      string                      `json:"number" gorm:"type:varchar(16);not null;uniqueIndex:idx_design_control_number,priority:3"`
	Description string                      `json:"description" gorm:"not null"`
	Notes       string                      `json:"notes"`
	Documents   datatypes.JSONSlice[string] `json:"documents"`
	CreatedAt   time.Time                   `json:"created_at"`
	UpdatedAt   time.Time                   `json:"updated_at"`
}

// Normalize replaces a nil document list with an empty one.
func (d *DesignControl) Normalize() {
	if d.Documents == nil {
		d.Documents = datatypes.JSONSlice[string]{}
	}
}

// DesignControlSequence is the last number issued in a (user, project, category) scope.
type DesignControlSequence struct {
	UserID    string   `gorm:"primaryKey;type:varchar(36)"`
	ProjectID string   `gorm:"primaryKey;type:varchar(36)"`
	Category  Category `gorm:"primaryKey;type:varchar(32)"`
	Counter   int      `gorm:"not null"`
}
