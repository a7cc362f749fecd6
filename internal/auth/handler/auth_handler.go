package handler

import (
	"errors"
	"strings"

	"github.com/LinhPhuong14/MediFlow/internal/auth/dto"
	"github.com/LinhPhuong14/MediFlow/internal/auth/service"
	autherror "github.com/LinhPhuong14/MediFlow/internal/errors"
	"github.com/gofiber/fiber/v2"
)

type AuthHandler struct {
	userService       *service.UserService
	passwordService   *service.PasswordService
	oauthService      *service.OAuthService
	monitoringService *service.MonitoringService
	tokenService      service.TokenGenerator
}

func NewAuthHandler(
	userService *service.UserService,
	passwordService *service.PasswordService,
	oauthService *service.OAuthService,
	monitoringService *service.MonitoringService,
	tokenService service.TokenGenerator,
) *AuthHandler {
	return &AuthHandler{
		userService:       userService,
		passwordService:   passwordService,
		oauthService:      oauthService,
		monitoringService: monitoringService,
		tokenService:      tokenService,
	}
}

func (h *AuthHandler) Register(c *fiber.Ctx) error {
	var input dto.RegisterInput
	if err := c.BodyParser(&input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "invalid input",
		})
	}

	user, err := h.userService.Register(c.Context(), input)
	if err != nil {
		return respondError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"id":    user.ID,
		"email": user.Email,
	})
}

func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var input dto.LoginInput
	if err := c.BodyParser(&input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "invalid input",
		})
	}

	// Capture client metadata for the token audit trail.
	input.IPAddress = c.IP()
	input.UserAgent = string(c.Request().Header.UserAgent())

	resp, err := h.userService.Login(c.Context(), input)
	if err != nil {
		return respondError(c, err)
	}

	return c.Status(fiber.StatusOK).JSON(resp)
}

func (h *AuthHandler) Refresh(c *fiber.Ctx) error {
	var input dto.RefreshInput
	if err := c.BodyParser(&input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid input"})
	}

	input.IPAddress = c.IP()
	input.UserAgent = string(c.Request().Header.UserAgent())

	tokens, err := h.userService.Refresh(c.Context(), input)
	if err != nil {
		return respondError(c, err)
	}

	return c.Status(fiber.StatusOK).JSON(tokens)
}

func (h *AuthHandler) Logout(c *fiber.Ctx) error {
	var input dto.LogoutInput
	if err := c.BodyParser(&input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid input"})
	}

	if err := h.userService.Logout(c.Context(), input.RefreshToken); err != nil {
		return respondError(c, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}

func (h *AuthHandler) ForgotPassword(c *fiber.Ctx) error {
	var input dto.ForgotPasswordInput
	if err := c.BodyParser(&input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid input"})
	}

	if err := h.passwordService.RequestReset(c.Context(), input.Email); err != nil {
		return respondError(c, err)
	}

	// Same response whether or not the account exists.
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"message": "if the email exists, a reset link has been sent",
	})
}

func (h *AuthHandler) ResetPassword(c *fiber.Ctx) error {
	var input dto.ResetPasswordInput
	if err := c.BodyParser(&input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid input"})
	}

	if err := h.passwordService.ApplyReset(c.Context(), input.Token, input.NewPassword); err != nil {
		return respondError(c, err)
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{"message": "password has been reset"})
}

func (h *AuthHandler) OAuthLogin(c *fiber.Ctx) error {
	var profile dto.ExternalProfile
	if err := c.BodyParser(&profile); err != nil || profile.ProviderID == "" || profile.Email == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid input"})
	}

	profile.IPAddress = c.IP()
	profile.UserAgent = string(c.Request().Header.UserAgent())

	user, err := h.oauthService.Resolve(c.Context(), profile)
	if err != nil {
		return respondError(c, err)
	}

	pair, err := h.userService.IssueSession(c.Context(), user, profile.IPAddress, profile.UserAgent)
	if err != nil {
		return respondError(c, err)
	}

	return c.Status(fiber.StatusOK).JSON(dto.LoginResponse{
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
		User: dto.UserOutput{
			ID:              user.ID,
			Email:           user.Email,
			Role:            user.Role,
			IsEmailVerified: user.IsEmailVerified,
		},
	})
}

func (h *AuthHandler) LinkOAuth(c *fiber.Ctx) error {
	claims := currentClaims(c)
	if claims == nil {
		return c.SendStatus(fiber.StatusUnauthorized)
	}

	var profile dto.ExternalProfile
	if err := c.BodyParser(&profile); err != nil || profile.ProviderID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid input"})
	}

	if err := h.oauthService.Link(c.Context(), claims.UserID, profile); err != nil {
		return respondError(c, err)
	}

	return c.Status(fiber.StatusOK).JSON(fiber.Map{"message": "account linked successfully"})
}

func (h *AuthHandler) OAuthStatus(c *fiber.Ctx) error {
	claims := currentClaims(c)
	if claims == nil {
		return c.SendStatus(fiber.StatusUnauthorized)
	}

	status, err := h.oauthService.Status(c.Context(), claims.UserID)
	if err != nil {
		return respondError(c, err)
	}

	return c.Status(fiber.StatusOK).JSON(status)
}

func (h *AuthHandler) Sessions(c *fiber.Ctx) error {
	claims := currentClaims(c)
	if claims == nil {
		return c.SendStatus(fiber.StatusUnauthorized)
	}

	sessions, err := h.userService.Sessions(c.Context(), claims.UserID)
	if err != nil {
		return respondError(c, err)
	}

	return c.Status(fiber.StatusOK).JSON(sessions)
}

// AdminReport computes the aggregate auth report on demand.
func (h *AuthHandler) AdminReport(c *fiber.Ctx) error {
	report, err := h.monitoringService.BuildReport(c.Context())
	if err != nil {
		return respondError(c, err)
	}

	return c.Status(fiber.StatusOK).JSON(dto.ReportOutput{
		GeneratedAt:  report.GeneratedAt,
		Since:        report.Since,
		TotalUsers:   report.TotalUsers,
		NewUsers:     report.NewUsers,
		BlockedUsers: report.BlockedUsers,
		TokensIssued: report.TokensIssued,
		ActiveTokens: report.ActiveTokens,
	})
}

// RequireAuth verifies the bearer access token and stores its claims for
// the handler.
func (h *AuthHandler) RequireAuth() fiber.Handler {
	return func(c *fiber.Ctx) error {
		authHeader := c.Get("Authorization")
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			return c.SendStatus(fiber.StatusUnauthorized)
		}

		claims, err := h.tokenService.VerifyAccessToken(parts[1])
		if err != nil {
			return c.SendStatus(fiber.StatusUnauthorized)
		}

		c.Locals("claims", claims)
		return c.Next()
	}
}

// RequireRole builds on RequireAuth and rejects callers whose role claim
// differs.
func (h *AuthHandler) RequireRole(role string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		claims := currentClaims(c)
		if claims == nil {
			return c.SendStatus(fiber.StatusUnauthorized)
		}
		if claims.Role != role {
			return c.SendStatus(fiber.StatusForbidden)
		}
		return c.Next()
	}
}

func currentClaims(c *fiber.Ctx) *service.JWTCustomClaims {
	claims, _ := c.Locals("claims").(*service.JWTCustomClaims)
	return claims
}

// respondError maps the error taxonomy onto HTTP responses. Token failures
// all collapse into one generic message so a caller cannot tell a replayed
// token from an expired one.
func respondError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, autherror.ErrInvalidCredentials):
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "invalid credentials"})
	case errors.Is(err, autherror.ErrAccountBlocked):
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "account is temporarily blocked"})
	case errors.Is(err, autherror.ErrTokenInvalid),
		errors.Is(err, autherror.ErrTokenExpired),
		errors.Is(err, autherror.ErrTokenReused):
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "invalid or expired token"})
	case errors.Is(err, autherror.ErrResetTokenInvalid):
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "invalid or expired token"})
	case errors.Is(err, autherror.ErrPasswordPolicyViolated):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "password must be at least 8 characters with uppercase, lowercase, number and special character",
		})
	case errors.Is(err, autherror.ErrEmailDomainNotAllowed):
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "email domain not allowed"})
	case errors.Is(err, autherror.ErrEmailMismatch):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "email mismatch"})
	case errors.Is(err, autherror.ErrEmailAlreadyInUse):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "email already in use"})
	case errors.Is(err, autherror.ErrUserNotFound):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "user not found"})
	default:
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal server error"})
	}
}
