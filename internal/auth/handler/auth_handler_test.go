package handler_test

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/LinhPhuong14/MediFlow/config"
	"github.com/LinhPhuong14/MediFlow/internal/auth/domain"
	"github.com/LinhPhuong14/MediFlow/internal/auth/dto"
	"github.com/LinhPhuong14/MediFlow/internal/auth/handler"
	"github.com/LinhPhuong14/MediFlow/internal/auth/service"
	"github.com/LinhPhuong14/MediFlow/internal/logging"
	"github.com/LinhPhuong14/MediFlow/internal/mocks"
	"github.com/gofiber/fiber/v2"
	"github.com/golang/mock/gomock"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

var baseTime = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

// nopMailer satisfies domain.Mailer; handler tests never assert on mail.
type nopMailer struct{}

func (nopMailer) SendPasswordReset(string, string) error { return nil }
func (nopMailer) SendLoginBlockedAlert(string, int, time.Time) error { return nil }
func (nopMailer) SendWelcome(string) error { return nil }
func (nopMailer) SendDailyReport(string, *domain.AuthReport) error { return nil }

type testEnv struct {
	app    *fiber.App
	users  *mocks.MockUserRepository
	tokens *mocks.MockRefreshTokenRepository
	signer *service.TokenService
	clock  clockwork.Clock
}

func newTestEnv(t *testing.T, ctrl *gomock.Controller) *testEnv {
	t.Helper()

	cfg := &config.Config{
		AccessTokenSecret:  "access-secret",
		RefreshTokenSecret: "refresh-secret",
		ResetTokenSecret:   "reset-secret",
		AccessTokenTTL:     72 * time.Hour,
		RefreshTokenTTL:    168 * time.Hour,
		ResetTokenTTL:      15 * time.Minute,
		MaxFailedAttempts:  5,
		BlockDuration:      30 * time.Minute,
		PasswordMinLength:  8,

		OAuthAllowedDomains: []string{"hospital.com"},
		AdminEmail:          "admin@hospital.com",
	}

	users := mocks.NewMockUserRepository(ctrl)
	tokens := mocks.NewMockRefreshTokenRepository(ctrl)
	clock := clockwork.NewFakeClockAt(baseTime)
	signer := service.NewTokenService(cfg, clock)
	hasher := service.NewBcryptHasher()
	log := logging.NewNop()

	userService := service.NewUserService(users, tokens, signer, hasher, nopMailer{}, cfg, clock, log)
	passwordService := service.NewPasswordService(users, tokens, signer, hasher, nopMailer{}, cfg, clock, log)
	oauthService := service.NewOAuthService(users, hasher, nopMailer{}, cfg, clock, log)
	monitoringService := service.NewMonitoringService(users, tokens, nopMailer{}, cfg.AdminEmail, clock, log)

	app := fiber.New()
	handler.RegisterRoutes(app, handler.NewAuthHandler(
		userService, passwordService, oauthService, monitoringService, signer))

	return &testEnv{app: app, users: users, tokens: tokens, signer: signer, clock: clock}
}

func jsonRequest(method, path string, payload any) *http.Request {
	body, _ := json.Marshal(payload)
	req := httptest.NewRequest(method, path, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func decodeBody(t *testing.T, resp *http.Response, out any) {
	t.Helper()
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(raw, out))
}

func mustHash(t *testing.T, password string) string {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	return string(hash)
}

func TestRegisterHandler(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	env := newTestEnv(t, ctrl)

	t.Run("success", func(t *testing.T) {
		env.users.EXPECT().GetByEmail(gomock.Any(), "new@hospital.com").Return(nil, nil)
		env.users.EXPECT().Create(gomock.Any(), gomock.Any()).Return(nil)

		resp, err := env.app.Test(jsonRequest(http.MethodPost, "/api/v1/register",
			dto.RegisterInput{Email: "new@hospital.com", Password: "Str0ng!pass"}))
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusCreated, resp.StatusCode)

		var body map[string]string
		decodeBody(t, resp, &body)
		assert.Equal(t, "new@hospital.com", body["email"])
	})

	t.Run("bad request", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/register", bytes.NewReader([]byte("")))
		req.Header.Set("Content-Type", "application/json")

		resp, err := env.app.Test(req)
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	})

	t.Run("duplicate email", func(t *testing.T) {
		env.users.EXPECT().GetByEmail(gomock.Any(), "taken@hospital.com").
			Return(&domain.User{ID: "user-1", Email: "taken@hospital.com"}, nil)

		resp, err := env.app.Test(jsonRequest(http.MethodPost, "/api/v1/register",
			dto.RegisterInput{Email: "taken@hospital.com", Password: "Str0ng!pass"}))
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	})

	t.Run("weak password", func(t *testing.T) {
		env.users.EXPECT().GetByEmail(gomock.Any(), "new@hospital.com").Return(nil, nil)

		resp, err := env.app.Test(jsonRequest(http.MethodPost, "/api/v1/register",
			dto.RegisterInput{Email: "new@hospital.com", Password: "weak"}))
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	})
}

func TestLoginHandler(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	env := newTestEnv(t, ctrl)
	hash := mustHash(t, "Str0ng!pass")

	t.Run("success", func(t *testing.T) {
		user := &domain.User{ID: "user-1", Email: "doc@hospital.com", PasswordHash: hash, Role: "doctor"}

		env.users.EXPECT().GetByEmail(gomock.Any(), "doc@hospital.com").Return(user, nil)
		env.users.EXPECT().ClearFailedAttempts(gomock.Any(), "user-1", baseTime).Return(nil)
		env.tokens.EXPECT().Store(gomock.Any(), gomock.Any()).Return(nil)

		resp, err := env.app.Test(jsonRequest(http.MethodPost, "/api/v1/login",
			dto.LoginInput{Email: "doc@hospital.com", Password: "Str0ng!pass"}))
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusOK, resp.StatusCode)

		var body dto.LoginResponse
		decodeBody(t, resp, &body)
		assert.NotEmpty(t, body.AccessToken)
		assert.NotEmpty(t, body.RefreshToken)
		assert.Equal(t, "doc@hospital.com", body.User.Email)
	})

	t.Run("wrong password", func(t *testing.T) {
		user := &domain.User{ID: "user-1", Email: "doc@hospital.com", PasswordHash: hash}

		env.users.EXPECT().GetByEmail(gomock.Any(), "doc@hospital.com").Return(user, nil)
		env.users.EXPECT().IncrementFailedAttempts(gomock.Any(), "user-1").Return(1, nil)

		resp, err := env.app.Test(jsonRequest(http.MethodPost, "/api/v1/login",
			dto.LoginInput{Email: "doc@hospital.com", Password: "wrong"}))
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)

		var body map[string]string
		decodeBody(t, resp, &body)
		assert.Equal(t, "invalid credentials", body["error"])
	})

	t.Run("blocked account", func(t *testing.T) {
		until := baseTime.Add(10 * time.Minute)
		user := &domain.User{
			ID: "user-1", Email: "doc@hospital.com", PasswordHash: hash,
			IsBlocked: true, BlockedUntil: &until,
		}

		env.users.EXPECT().GetByEmail(gomock.Any(), "doc@hospital.com").Return(user, nil)

		resp, err := env.app.Test(jsonRequest(http.MethodPost, "/api/v1/login",
			dto.LoginInput{Email: "doc@hospital.com", Password: "Str0ng!pass"}))
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)

		var body map[string]string
		decodeBody(t, resp, &body)
		assert.Equal(t, "account is temporarily blocked", body["error"])
	})

	t.Run("unknown email", func(t *testing.T) {
		env.users.EXPECT().GetByEmail(gomock.Any(), "ghost@example.com").Return(nil, nil)

		resp, err := env.app.Test(jsonRequest(http.MethodPost, "/api/v1/login",
			dto.LoginInput{Email: "ghost@example.com", Password: "Str0ng!pass"}))
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
	})
}

func TestRefreshHandler(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	env := newTestEnv(t, ctrl)
	user := &domain.User{ID: "user-1", Email: "doc@hospital.com", Role: "doctor"}

	pair, err := env.signer.GeneratePair(user.ID, user.Email, user.Role)
	require.NoError(t, err)

	t.Run("success", func(t *testing.T) {
		consumed := &domain.RefreshToken{ID: "token-1", UserID: "user-1", Token: pair.RefreshToken, Revoked: true}

		env.tokens.EXPECT().Consume(gomock.Any(), pair.RefreshToken, baseTime).Return(consumed, nil)
		env.users.EXPECT().GetByID(gomock.Any(), "user-1").Return(user, nil)
		env.tokens.EXPECT().Store(gomock.Any(), gomock.Any()).Return(nil)

		resp, err := env.app.Test(jsonRequest(http.MethodPost, "/api/v1/refresh",
			dto.RefreshInput{RefreshToken: pair.RefreshToken}))
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusOK, resp.StatusCode)

		var body dto.TokenResponse
		decodeBody(t, resp, &body)
		assert.NotEmpty(t, body.AccessToken)
		assert.NotEqual(t, pair.RefreshToken, body.RefreshToken)
	})

	t.Run("replayed token", func(t *testing.T) {
		revokedAt := baseTime.Add(-time.Minute)
		stale := &domain.RefreshToken{
			ID: "token-1", UserID: "user-1", Token: pair.RefreshToken,
			ExpiresAt: baseTime.Add(time.Hour), Revoked: true, RevokedAt: &revokedAt,
		}

		env.tokens.EXPECT().Consume(gomock.Any(), pair.RefreshToken, baseTime).Return(nil, nil)
		env.tokens.EXPECT().GetByToken(gomock.Any(), pair.RefreshToken).Return(stale, nil)

		resp, err := env.app.Test(jsonRequest(http.MethodPost, "/api/v1/refresh",
			dto.RefreshInput{RefreshToken: pair.RefreshToken}))
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)

		var body map[string]string
		decodeBody(t, resp, &body)
		// A replayed token is indistinguishable from an expired one.
		assert.Equal(t, "invalid or expired token", body["error"])
	})

	t.Run("forged token", func(t *testing.T) {
		resp, err := env.app.Test(jsonRequest(http.MethodPost, "/api/v1/refresh",
			dto.RefreshInput{RefreshToken: "garbage"}))
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
	})
}

func TestLogoutHandler(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	env := newTestEnv(t, ctrl)

	env.tokens.EXPECT().Revoke(gomock.Any(), "some-refresh-token", baseTime).Return(nil)

	resp, err := env.app.Test(jsonRequest(http.MethodDelete, "/api/v1/session",
		dto.LogoutInput{RefreshToken: "some-refresh-token"}))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusNoContent, resp.StatusCode)
}

func TestForgotPasswordHandler(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	env := newTestEnv(t, ctrl)

	// Unknown email still answers 200 so the endpoint cannot be used to
	// probe which addresses have accounts.
	env.users.EXPECT().GetByEmail(gomock.Any(), "ghost@example.com").Return(nil, nil)

	resp, err := env.app.Test(jsonRequest(http.MethodPost, "/api/v1/password/forgot",
		dto.ForgotPasswordInput{Email: "ghost@example.com"}))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
}

func TestResetPasswordHandler(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	env := newTestEnv(t, ctrl)

	t.Run("weak password", func(t *testing.T) {
		resp, err := env.app.Test(jsonRequest(http.MethodPost, "/api/v1/password/reset",
			dto.ResetPasswordInput{Token: "whatever", NewPassword: "weak"}))
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	})

	t.Run("invalid token", func(t *testing.T) {
		resp, err := env.app.Test(jsonRequest(http.MethodPost, "/api/v1/password/reset",
			dto.ResetPasswordInput{Token: "garbage", NewPassword: "N3w!passwd"}))
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
	})
}

func TestOAuthLoginHandler(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	env := newTestEnv(t, ctrl)

	t.Run("success", func(t *testing.T) {
		externalID := "google-123"
		user := &domain.User{
			ID: "user-1", Email: "doc@hospital.com", Role: "doctor",
			ExternalID: &externalID, IsOAuthUser: true, IsEmailVerified: true,
		}

		env.users.EXPECT().GetByExternalID(gomock.Any(), "google-123").Return(user, nil)
		env.tokens.EXPECT().Store(gomock.Any(), gomock.Any()).Return(nil)

		resp, err := env.app.Test(jsonRequest(http.MethodPost, "/api/v1/oauth/google",
			dto.ExternalProfile{ProviderID: "google-123", Email: "doc@hospital.com"}))
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusOK, resp.StatusCode)

		var body dto.LoginResponse
		decodeBody(t, resp, &body)
		assert.NotEmpty(t, body.AccessToken)
		assert.True(t, body.User.IsEmailVerified)
	})

	t.Run("disallowed email domain", func(t *testing.T) {
		resp, err := env.app.Test(jsonRequest(http.MethodPost, "/api/v1/oauth/google",
			dto.ExternalProfile{ProviderID: "google-456", Email: "someone@gmail.com"}))
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusForbidden, resp.StatusCode)

		var body map[string]string
		decodeBody(t, resp, &body)
		assert.Equal(t, "email domain not allowed", body["error"])
	})

	t.Run("missing provider id", func(t *testing.T) {
		resp, err := env.app.Test(jsonRequest(http.MethodPost, "/api/v1/oauth/google",
			dto.ExternalProfile{Email: "doc@hospital.com"}))
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	})
}

func TestProtectedEndpoints(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	env := newTestEnv(t, ctrl)

	pair, err := env.signer.GeneratePair("user-1", "doc@hospital.com", "doctor")
	require.NoError(t, err)
	bearer := "Bearer " + pair.AccessToken

	t.Run("missing token is rejected", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/sessions", nil)
		resp, err := env.app.Test(req)
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
	})

	t.Run("malformed header is rejected", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/sessions", nil)
		req.Header.Set("Authorization", "BearerNoSpace")
		resp, err := env.app.Test(req)
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
	})

	t.Run("sessions", func(t *testing.T) {
		records := []domain.RefreshToken{{
			ID: "token-1", UserID: "user-1", IPAddress: "10.0.0.1", UserAgent: "test-agent",
			CreatedAt: baseTime, ExpiresAt: baseTime.Add(168 * time.Hour),
		}}
		env.tokens.EXPECT().ListActiveByUserID(gomock.Any(), "user-1", gomock.Any()).Return(records, nil)

		req := httptest.NewRequest(http.MethodGet, "/api/v1/sessions", nil)
		req.Header.Set("Authorization", bearer)
		resp, err := env.app.Test(req)
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusOK, resp.StatusCode)

		var body []dto.SessionOutput
		decodeBody(t, resp, &body)
		require.Len(t, body, 1)
		assert.Equal(t, "10.0.0.1", body[0].IPAddress)
	})

	t.Run("oauth status", func(t *testing.T) {
		externalID := "google-123"
		user := &domain.User{ID: "user-1", Email: "doc@hospital.com", ExternalID: &externalID, IsOAuthUser: true}
		env.users.EXPECT().GetByID(gomock.Any(), "user-1").Return(user, nil)

		req := httptest.NewRequest(http.MethodGet, "/api/v1/oauth/status", nil)
		req.Header.Set("Authorization", bearer)
		resp, err := env.app.Test(req)
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusOK, resp.StatusCode)

		var body dto.OAuthStatusOutput
		decodeBody(t, resp, &body)
		assert.True(t, body.IsOAuthUser)
		assert.Equal(t, "google-123", body.ExternalID)
	})

	t.Run("oauth link email mismatch", func(t *testing.T) {
		user := &domain.User{ID: "user-1", Email: "doc@hospital.com"}
		env.users.EXPECT().GetByID(gomock.Any(), "user-1").Return(user, nil)

		req := jsonRequest(http.MethodPost, "/api/v1/oauth/link",
			dto.ExternalProfile{ProviderID: "google-123", Email: "other@evil.com"})
		req.Header.Set("Authorization", bearer)
		resp, err := env.app.Test(req)
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	})

	t.Run("oauth link success", func(t *testing.T) {
		user := &domain.User{ID: "user-1", Email: "doc@hospital.com"}
		env.users.EXPECT().GetByID(gomock.Any(), "user-1").Return(user, nil)
		env.users.EXPECT().LinkExternalID(gomock.Any(), "user-1", "google-123").Return(nil)

		req := jsonRequest(http.MethodPost, "/api/v1/oauth/link",
			dto.ExternalProfile{ProviderID: "google-123", Email: "doc@hospital.com"})
		req.Header.Set("Authorization", bearer)
		resp, err := env.app.Test(req)
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	})
}
