package handlers

import (
	"errors"
	"fmt"
	"log"
	"reflect"
	"strings"

	"gtdsync/internal/middleware"
	"gtdsync/internal/models"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
)

// newValidator reports struct fields under their JSON names.
func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		if name == "" {
			return fld.Name
		}
		return name
	})
	return v
}

// validationError converts validator output into a models.ValidationError.
func validationError(err error) error {
	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		return &models.ValidationError{Message: "Validation failed", Fields: map[string]string{"body": err.Error()}}
	}
	fields := make(map[string]string, len(validationErrors))
	for _, e := range validationErrors {
		name := e.Namespace()
		if i := strings.Index(name, "."); i >= 0 {
			name = name[i+1:]
		}
		fields[name] = fieldMessage(e)
	}
	return &models.ValidationError{Message: "Validation failed", Fields: fields}
}

func fieldMessage(e validator.FieldError) string {
	switch e.Tag() {
	case "required":
		return fmt.Sprintf("Field '%s' is required", e.Field())
	case "min":
		return fmt.Sprintf("Field '%s' must be at least %s characters", e.Field(), e.Param())
	case "max":
		return fmt.Sprintf("Field '%s' must be at most %s characters", e.Field(), e.Param())
	case "email":
		return fmt.Sprintf("Field '%s' must be a valid email address", e.Field())
	}
	return fmt.Sprintf("Field '%s' failed on the '%s' tag", e.Field(), e.Tag())
}

// respondError maps service errors onto status codes. message is the summary
// used for non-validation failures.
func respondError(c *fiber.Ctx, err error, message string) error {
	var verr *models.ValidationError
	switch {
	case errors.As(err, &verr):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": verr.Message,
			"errors":  verr.Fields,
		})
	case errors.Is(err, models.ErrInvalidTransition),
		errors.Is(err, models.ErrConflict),
		errors.Is(err, models.ErrInvalidCredentials):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": message, "error": err.Error()})
	case errors.Is(err, models.ErrUnauthenticated):
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"message": message, "error": err.Error()})
	case errors.Is(err, models.ErrForbidden):
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"message": message, "error": err.Error()})
	case errors.Is(err, models.ErrNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"message": message, "error": err.Error()})
	}
	log.Printf("%s: %v", message, err)
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
		"message": message,
		"error":   err.Error(),
	})
}

func invalidBody(c *fiber.Ctx, err error) error {
	log.Printf("Error parsing request body: %v", err)
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
		"message": "Invalid request body",
		"error":   err.Error(),
	})
}

// identity returns the authenticated caller. Routes are only mounted behind
// middleware.AuthRequired, so a miss means the wiring is wrong.
func identity(c *fiber.Ctx) (models.Identity, error) {
	id, ok := middleware.Identity(c)
	if !ok {
		return models.Identity{}, fmt.Errorf("no identity on request: %w", models.ErrUnauthenticated)
	}
	return id, nil
}
