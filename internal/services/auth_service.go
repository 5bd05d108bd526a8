package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"gtdsync/internal/models"
	"gtdsync/internal/repositories"

	"github.com/dgrijalva/jwt-go"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// DefaultTokenTTL is how long an issued token stays valid. There is no refresh.
const DefaultTokenTTL = time.Hour

// AuthService registers users, issues tokens and verifies them.
type AuthService struct {
	userRepo  repositories.UserRepository
	jwtSecret []byte
	tokenTTL  time.Duration
}

// NewAuthService creates a new AuthService. A non-positive ttl falls back to DefaultTokenTTL.
func NewAuthService(userRepo repositories.UserRepository, jwtSecret string, ttl time.Duration) *AuthService {
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}
	return &AuthService{
		userRepo:  userRepo,
		jwtSecret: []byte(jwtSecret),
		tokenTTL:  ttl,
	}
}

// RegisterUser hashes the password, stores the user and returns a fresh token.
func (s *AuthService) RegisterUser(ctx context.Context, user *models.User) (string, error) {
	user.Username = strings.TrimSpace(user.Username)
	user.Email = strings.ToLower(strings.TrimSpace(user.Email))

	if err := s.ensureFree(ctx, user); err != nil {
		return "", err
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(user.Password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	user.Password = string(hashedPassword)

	if err := s.userRepo.Create(ctx, user); err != nil {
		return "", fmt.Errorf("failed to register user: %w", err)
	}
	return s.IssueToken(user)
}

func (s *AuthService) ensureFree(ctx context.Context, user *models.User) error {
	existing, err := s.userRepo.GetByUsername(ctx, user.Username)
	if err == nil && existing != nil {
		return fmt.Errorf("username '%s' already taken: %w", user.Username, models.ErrConflict)
	}
	if err != nil && !errors.Is(err, models.ErrNotFound) {
		return fmt.Errorf("failed to check username: %w", err)
	}

	existing, err = s.userRepo.GetByEmail(ctx, user.Email)
	if err == nil && existing != nil {
		return fmt.Errorf("email '%s' already registered: %w", user.Email, models.ErrConflict)
	}
	if err != nil && !errors.Is(err, models.ErrNotFound) {
		return fmt.Errorf("failed to check email: %w", err)
	}
	return nil
}

// LoginUser authenticates a user and returns a token plus the user record.
func (s *AuthService) LoginUser(ctx context.Context, username, password string) (string, *models.User, error) {
	user, err := s.userRepo.GetByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			log.Printf("Login failed: user '%s' not found", username)
			return "", nil, models.ErrInvalidCredentials
		}
		return "", nil, fmt.Errorf("failed to load user: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		log.Printf("Login failed: password incorrect for user '%s'", username)
		return "", nil, models.ErrInvalidCredentials
	}

	token, err := s.IssueToken(user)
	if err != nil {
		return "", nil, err
	}
	return token, user, nil
}

// IssueToken signs an HS256 token carrying the user's id and username.
func (s *AuthService) IssueToken(user *models.User) (string, error) {
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"id":       user.ID,
		"username": user.Username,
		"exp":      now.Add(s.tokenTTL).Unix(),
		"iat":      now.Unix(),
	})

	tokenString, err := token.SignedString(s.jwtSecret)
	if err != nil {
		return "", fmt.Errorf("failed to generate token: %w", err)
	}
	return tokenString, nil
}

// ValidateToken verifies signature and expiry and returns the embedded identity.
// Every failure wraps models.ErrForbidden.
func (s *AuthService) ValidateToken(tokenString string) (*models.Identity, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if token.Method.Alg() != jwt.SigningMethodHS256.Alg() {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.jwtSecret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("invalid token (%v): %w", err, models.ErrForbidden)
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("invalid token: %w", models.ErrForbidden)
	}
	if _, ok := claims["exp"]; !ok {
		return nil, fmt.Errorf("token has no expiry: %w", models.ErrForbidden)
	}

	id, _ := claims["id"].(string)
	username, _ := claims["username"].(string)
	if username == "" {
		return nil, fmt.Errorf("token payload missing username: %w", models.ErrForbidden)
	}
	if _, err := uuid.Parse(id); err != nil {
		return nil, fmt.Errorf("token payload has malformed id %q: %w", id, models.ErrForbidden)
	}
	return &models.Identity{ID: id, Username: username}, nil
}

// ListUsers returns the public view of every user.
func (s *AuthService) ListUsers(ctx context.Context) ([]models.PublicUser, error) {
	users, err := s.userRepo.List(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]models.PublicUser, 0, len(users))
	for i := range users {
		out = append(out, users[i].Public())
	}
	return out, nil
}
