package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"murmur/internal/auth"
	"murmur/internal/config"
	"murmur/internal/models"
	"murmur/internal/service"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockUserRepository is a mock of the UserRepository interface
type MockUserRepository struct {
	mock.Mock
}

func (m *MockUserRepository) ExistsByUserAt(ctx context.Context, userAt string) (bool, error) {
	args := m.Called(ctx, userAt)
	return args.Bool(0), args.Error(1)
}

func (m *MockUserRepository) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	args := m.Called(ctx, email)
	return args.Bool(0), args.Error(1)
}

func (m *MockUserRepository) Create(ctx context.Context, user *models.User) error {
	args := m.Called(ctx, user)
	if args.Error(0) == nil {
		user.ID = 42
	}
	return args.Error(0)
}

func (m *MockUserRepository) GetByID(ctx context.Context, id uint) (*models.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserRepository) GetByUserAt(ctx context.Context, userAt string) (*models.User, error) {
	args := m.Called(ctx, userAt)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserRepository) VerifyPassword(ctx context.Context, email, plain string) bool {
	return m.Called(ctx, email, plain).Bool(0)
}

func (m *MockUserRepository) HasCredentials(ctx context.Context, claim auth.Claim) bool {
	return m.Called(ctx, claim).Bool(0)
}

func (m *MockUserRepository) UpdatePassword(ctx context.Context, id uint, hash string) error {
	return m.Called(ctx, id, hash).Error(0)
}

func (m *MockUserRepository) UpdateEmail(ctx context.Context, id uint, email string) error {
	return m.Called(ctx, id, email).Error(0)
}

func (m *MockUserRepository) UpdateUserAt(ctx context.Context, id uint, userAt string) error {
	return m.Called(ctx, id, userAt).Error(0)
}

func (m *MockUserRepository) UpdateProfile(ctx context.Context, id uint, username, bio string, icon []byte) error {
	return m.Called(ctx, id, username, bio, icon).Error(0)
}

func (m *MockUserRepository) Delete(ctx context.Context, id uint) error {
	return m.Called(ctx, id).Error(0)
}

func (m *MockUserRepository) Search(ctx context.Context, query string, limit int) ([]models.User, error) {
	args := m.Called(ctx, query, limit)
	return args.Get(0).([]models.User), args.Error(1)
}

func newMockedAuthServer(repo *MockUserRepository) *Server {
	cfg := &config.Config{JWTSecret: strings.Repeat("k", 32), CookieName: "auth_key"}
	hasher := auth.NewBcryptHasher(4)
	codec := auth.NewSessionCodec(cfg.JWTSecret, time.Hour)
	return &Server{
		config:      cfg,
		sessions:    codec,
		userRepo:    repo,
		authService: service.NewAuthService(repo, hasher, codec, nil),
	}
}

func postJSON(app *fiber.App, path string, body any) (*http.Response, error) {
	raw, _ := json.Marshal(body)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	return app.Test(req, -1)
}

func TestCreateUser(t *testing.T) {
	valid := map[string]string{
		"userName": "Ana",
		"userAt":   "@Ana",
		"email":    "ana@example.com",
		"password": "hunter22",
	}

	tests := []struct {
		name           string
		body           map[string]string
		mockSetup      func(*MockUserRepository)
		expectedStatus int
		expectedError  string
	}{
		{
			name: "Success",
			body: valid,
			mockSetup: func(m *MockUserRepository) {
				m.On("ExistsByUserAt", mock.Anything, "ana").Return(false, nil)
				m.On("ExistsByEmail", mock.Anything, "ana@example.com").Return(false, nil)
				m.On("Create", mock.Anything, mock.MatchedBy(func(u *models.User) bool {
					return u.UserAt == "ana" && u.Password != "hunter22"
				})).Return(nil)
			},
			expectedStatus: http.StatusCreated,
		},
		{
			name: "Handle Taken",
			body: valid,
			mockSetup: func(m *MockUserRepository) {
				m.On("ExistsByUserAt", mock.Anything, "ana").Return(true, nil)
			},
			expectedStatus: http.StatusBadRequest,
			expectedError:  service.MsgUsernameInUse,
		},
		{
			name: "Email Taken",
			body: valid,
			mockSetup: func(m *MockUserRepository) {
				m.On("ExistsByUserAt", mock.Anything, "ana").Return(false, nil)
				m.On("ExistsByEmail", mock.Anything, "ana@example.com").Return(true, nil)
			},
			expectedStatus: http.StatusBadRequest,
			expectedError:  service.MsgEmailInUse,
		},
		{
			name: "Short Password",
			body: map[string]string{
				"userName": "Ana", "userAt": "ana", "email": "ana@example.com", "password": "short",
			},
			mockSetup:      func(*MockUserRepository) {},
			expectedStatus: http.StatusBadRequest,
			expectedError:  "password too short",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := new(MockUserRepository)
			tt.mockSetup(repo)
			s := newMockedAuthServer(repo)
			app := fiber.New()
			app.Post("/user/create", s.CreateUser)

			resp, err := postJSON(app, "/user/create", tt.body)
			require.NoError(t, err)
			defer func() { _ = resp.Body.Close() }()

			assert.Equal(t, tt.expectedStatus, resp.StatusCode)
			if tt.expectedError != "" {
				var body models.ErrorResponse
				require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
				assert.Equal(t, tt.expectedError, body.Error)
			} else {
				assert.NotEmpty(t, resp.Cookies())
			}
			repo.AssertExpectations(t)
		})
	}
}

func TestLogin_InvalidCredentials(t *testing.T) {
	hash, err := auth.NewBcryptHasher(4).Hash("hunter22")
	require.NoError(t, err)

	repo := new(MockUserRepository)
	repo.On("GetByEmail", mock.Anything, "ana@example.com").
		Return(&models.User{ID: 1, UserAt: "ana", Email: "ana@example.com", Password: hash}, nil)
	repo.On("GetByEmail", mock.Anything, "nobody@example.com").Return(nil, nil)

	s := newMockedAuthServer(repo)
	app := fiber.New()
	app.Post("/user/login", s.Login)

	for _, body := range []map[string]string{
		{"email": "ana@example.com", "password": "wrongpass"},
		{"email": "nobody@example.com", "password": "hunter22"},
	} {
		resp, err := postJSON(app, "/user/login", body)
		require.NoError(t, err)

		var got models.ErrorResponse
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&got))
		_ = resp.Body.Close()
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		assert.Equal(t, service.MsgInvalidCredentials, got.Error)
	}

	resp, err := postJSON(app, "/user/login", map[string]string{"email": "ana@example.com", "password": "hunter22"})
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	require.Len(t, resp.Cookies(), 1)

	claim, _, err := s.sessions.Validate(resp.Cookies()[0].Value)
	require.NoError(t, err)
	assert.Equal(t, auth.Claim{ID: 1, UserAt: "ana", Email: "ana@example.com"}, *claim)
}

func TestLogout_WithoutCookie(t *testing.T) {
	s := newMockedAuthServer(new(MockUserRepository))
	app := fiber.New()
	app.Post("/user/log-out", s.Logout)

	resp, err := app.Test(httptest.NewRequest(http.MethodPost, "/user/log-out", nil))
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}
