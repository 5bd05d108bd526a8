package models

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Sentinel errors shared by repositories, services and handlers.
var (
	ErrNotFound           = errors.New("not found")
	ErrForbidden          = errors.New("forbidden")
	ErrUnauthenticated    = errors.New("unauthenticated")
	ErrConflict           = errors.New("conflict")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidTransition  = errors.New("invalid section transition")
)

// ValidationError is returned when caller input is malformed or missing.
// Fields maps the offending field (by its JSON name) to a human-readable message.
type ValidationError struct {
	Message string
	Fields  map[string]string
}

func (e *ValidationError) Error() string {
	if len(e.Fields) == 0 {
		return e.Message
	}
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s: %s", k, e.Fields[k]))
	}
	return fmt.Sprintf("%s (%s)", e.Message, strings.Join(parts, "; "))
}

// NewValidationError builds a ValidationError for a single field.
func NewValidationError(field, msg string) error {
	return &ValidationError{
		Message: "Validation failed",
		Fields:  map[string]string{field: msg},
	}
}
