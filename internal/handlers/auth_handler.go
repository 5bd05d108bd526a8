package handlers

import (
	"log"

	"gtdsync/internal/models"
	"gtdsync/internal/services"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
)

// AuthHandler handles HTTP requests for authentication.
type AuthHandler struct {
	authService *services.AuthService
	validate    *validator.Validate
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(authService *services.AuthService) *AuthHandler {
	return &AuthHandler{
		authService: authService,
		validate:    newValidator(),
	}
}

// RegisterRoutes registers the authentication routes. /users needs a token.
func (h *AuthHandler) RegisterRoutes(router fiber.Router, auth fiber.Handler) {
	router.Post("/register", h.HandleRegister)
	router.Post("/login", h.HandleLogin)
	router.Get("/users", auth, h.HandleListUsers)
}

// RegisterRequest represents the request body for registration.
type RegisterRequest struct {
	Username string `json:"username" validate:"required,min=3,max=100"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
}

// HandleRegister handles new user registration and logs the user straight in.
func (h *AuthHandler) HandleRegister(c *fiber.Ctx) error {
	var req RegisterRequest
	if err := c.BodyParser(&req); err != nil {
		return invalidBody(c, err)
	}
	if err := h.validate.Struct(req); err != nil {
		return respondError(c, validationError(err), "Validation failed")
	}

	user := models.User{Username: req.Username, Email: req.Email, Password: req.Password}
	token, err := h.authService.RegisterUser(c.UserContext(), &user)
	if err != nil {
		log.Printf("Error registering user: %v", err)
		return respondError(c, err, "Registration failed")
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message": "User registered successfully",
		"token":   token,
		"user":    user.Public(),
	})
}

// LoginRequest represents the request body for login.
type LoginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// HandleLogin handles user login and issues a JWT token.
func (h *AuthHandler) HandleLogin(c *fiber.Ctx) error {
	var req LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return invalidBody(c, err)
	}
	if err := h.validate.Struct(req); err != nil {
		return respondError(c, validationError(err), "Validation failed")
	}

	token, user, err := h.authService.LoginUser(c.UserContext(), req.Username, req.Password)
	if err != nil {
		log.Printf("Error during login for user %s: %v", req.Username, err)
		return respondError(c, err, "Authentication failed")
	}

	return c.JSON(fiber.Map{
		"message": "Login successful",
		"token":   token,
		"user":    user.Public(),
	})
}

// HandleListUsers returns every user as {id, username}.
func (h *AuthHandler) HandleListUsers(c *fiber.Ctx) error {
	users, err := h.authService.ListUsers(c.UserContext())
	if err != nil {
		return respondError(c, err, "Could not retrieve users")
	}
	return c.JSON(users)
}
