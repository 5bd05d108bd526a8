package services_test

import (
	"context"
	"errors"
	"io"
	"log"
	"os"
	"testing"
	"time"

	"gtdsync/internal/broadcast"
	"gtdsync/internal/models"
	"gtdsync/internal/services"

	"github.com/dgrijalva/jwt-go"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

// MockUserRepository is a mock implementation of repositories.UserRepository
type MockUserRepository struct {
	mock.Mock
}

func (m *MockUserRepository) Create(ctx context.Context, user *models.User) error {
	args := m.Called(user)
	if user.ID == "" {
		user.ID = uuid.New().String()
	}
	return args.Error(0)
}

func (m *MockUserRepository) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	args := m.Called(username)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	args := m.Called(email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	args := m.Called(id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserRepository) List(ctx context.Context) ([]models.User, error) {
	args := m.Called()
	return args.Get(0).([]models.User), args.Error(1)
}

// MockPublisher records change notifications.
type MockPublisher struct {
	mock.Mock
}

func (m *MockPublisher) Publish(msg broadcast.Message) {
	m.Called(msg)
}

// Messages returns every published message in order.
func (m *MockPublisher) Messages() []broadcast.Message {
	out := make([]broadcast.Message, 0, len(m.Calls))
	for _, c := range m.Calls {
		out = append(out, c.Arguments.Get(0).(broadcast.Message))
	}
	return out
}

func newMockPublisher() *MockPublisher {
	pub := new(MockPublisher)
	pub.On("Publish", mock.Anything).Return()
	return pub
}

// TestMain is used to setup test environment
func TestMain(m *testing.M) {
	// Suppress logging during tests for cleaner output
	log.SetOutput(io.Discard)
	code := m.Run()
	os.Exit(code)
}

const testJWTSecret = "test_jwt_secret"

func TestAuthService_RegisterUser(t *testing.T) {
	mockRepo := new(MockUserRepository)
	authService := services.NewAuthService(mockRepo, testJWTSecret, time.Hour)
	ctx := context.Background()

	// Test successful registration
	user := &models.User{
		Username: "testuser",
		Email:    "Test@Example.com ",
		Password: "password123",
	}
	mockRepo.On("GetByUsername", "testuser").Return(nil, models.ErrNotFound).Once()
	mockRepo.On("GetByEmail", "test@example.com").Return(nil, models.ErrNotFound).Once()
	mockRepo.On("Create", mock.AnythingOfType("*models.User")).Return(nil).Once()

	token, err := authService.RegisterUser(ctx, user)
	require.NoError(t, err)
	assert.NotEmpty(t, token)
	assert.Equal(t, "test@example.com", user.Email)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(user.Password), []byte("password123")))
	mockRepo.AssertExpectations(t)

	// Test username already taken
	mockRepo.On("GetByUsername", "testuser").Return(&models.User{ID: "1"}, nil).Once()
	_, err = authService.RegisterUser(ctx, &models.User{Username: "testuser", Email: "x@example.com", Password: "password123"})
	assert.ErrorIs(t, err, models.ErrConflict)
	assert.Contains(t, err.Error(), "username 'testuser' already taken")

	// Test email already registered
	mockRepo.On("GetByUsername", "other").Return(nil, models.ErrNotFound).Once()
	mockRepo.On("GetByEmail", "test@example.com").Return(&models.User{ID: "1"}, nil).Once()
	_, err = authService.RegisterUser(ctx, &models.User{Username: "other", Email: "test@example.com", Password: "password123"})
	assert.ErrorIs(t, err, models.ErrConflict)
	assert.Contains(t, err.Error(), "email 'test@example.com' already registered")
	mockRepo.AssertExpectations(t)
}

func TestAuthService_LoginUser(t *testing.T) {
	mockRepo := new(MockUserRepository)
	authService := services.NewAuthService(mockRepo, testJWTSecret, time.Hour)
	ctx := context.Background()

	hashedPassword, _ := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.MinCost)
	user := &models.User{
		ID:       uuid.New().String(),
		Username: "testuser",
		Email:    "test@example.com",
		Password: string(hashedPassword),
	}

	// Test successful login
	mockRepo.On("GetByUsername", user.Username).Return(user, nil).Once()
	token, loggedIn, err := authService.LoginUser(ctx, "testuser", "password123")
	require.NoError(t, err)
	assert.NotEmpty(t, token)
	assert.Equal(t, user.ID, loggedIn.ID)

	parsedToken, err := jwt.Parse(token, func(token *jwt.Token) (interface{}, error) {
		return []byte(testJWTSecret), nil
	})
	require.NoError(t, err)
	claims, ok := parsedToken.Claims.(jwt.MapClaims)
	require.True(t, ok)
	assert.Equal(t, user.ID, claims["id"])
	assert.Equal(t, user.Username, claims["username"])
	assert.Contains(t, claims, "exp")
	assert.Contains(t, claims, "iat")

	// Test invalid credentials (wrong password)
	mockRepo.On("GetByUsername", user.Username).Return(user, nil).Once()
	_, _, err = authService.LoginUser(ctx, "testuser", "wrongpassword")
	assert.ErrorIs(t, err, models.ErrInvalidCredentials)

	// Test invalid credentials (user not found)
	mockRepo.On("GetByUsername", "nonexistentuser").Return(nil, models.ErrNotFound).Once()
	_, _, err = authService.LoginUser(ctx, "nonexistentuser", "password123")
	assert.ErrorIs(t, err, models.ErrInvalidCredentials)

	// Storage failures are not disguised as bad credentials
	mockRepo.On("GetByUsername", "broken").Return(nil, errors.New("db down")).Once()
	_, _, err = authService.LoginUser(ctx, "broken", "password123")
	assert.Error(t, err)
	assert.NotErrorIs(t, err, models.ErrInvalidCredentials)
	mockRepo.AssertExpectations(t)
}

func TestAuthService_ValidateToken(t *testing.T) {
	mockRepo := new(MockUserRepository)
	authService := services.NewAuthService(mockRepo, testJWTSecret, time.Hour)
	userID := uuid.New().String()

	sign := func(claims jwt.MapClaims, secret string) string {
		s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
		require.NoError(t, err)
		return s
	}

	// Test valid token
	identity, err := authService.ValidateToken(sign(jwt.MapClaims{
		"id":       userID,
		"username": "testuser",
		"exp":      time.Now().Add(time.Hour).Unix(),
	}, testJWTSecret))
	require.NoError(t, err)
	assert.Equal(t, models.Identity{ID: userID, Username: "testuser"}, *identity)

	// Issued tokens round-trip
	issued, err := authService.IssueToken(&models.User{ID: userID, Username: "testuser"})
	require.NoError(t, err)
	identity, err = authService.ValidateToken(issued)
	require.NoError(t, err)
	assert.Equal(t, userID, identity.ID)

	cases := map[string]string{
		"garbage":      "invalid.token.string",
		"wrong secret": sign(jwt.MapClaims{"id": userID, "username": "testuser", "exp": time.Now().Add(time.Hour).Unix()}, "other"),
		"expired":      sign(jwt.MapClaims{"id": userID, "username": "testuser", "exp": time.Now().Add(-time.Hour).Unix()}, testJWTSecret),
		"no expiry":    sign(jwt.MapClaims{"id": userID, "username": "testuser"}, testJWTSecret),
		"no username":  sign(jwt.MapClaims{"id": userID, "exp": time.Now().Add(time.Hour).Unix()}, testJWTSecret),
		"malformed id": sign(jwt.MapClaims{"id": "user-123", "username": "testuser", "exp": time.Now().Add(time.Hour).Unix()}, testJWTSecret),
	}
	for name, token := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := authService.ValidateToken(token)
			assert.ErrorIs(t, err, models.ErrForbidden)
		})
	}
}

func TestAuthService_ListUsers(t *testing.T) {
	mockRepo := new(MockUserRepository)
	authService := services.NewAuthService(mockRepo, testJWTSecret, 0)

	mockRepo.On("List").Return([]models.User{
		{ID: "1", Username: "alice", Email: "alice@example.com", Password: "hash"},
		{ID: "2", Username: "bob", Email: "bob@example.com", Password: "hash"},
	}, nil).Once()

	users, err := authService.ListUsers(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []models.PublicUser{{ID: "1", Username: "alice"}, {ID: "2", Username: "bob"}}, users)
	mockRepo.AssertExpectations(t)
}
