package handler

import (
	"github.com/LinhPhuong14/MediFlow/pkg/constant"
	"github.com/gofiber/fiber/v2"
)

func RegisterRoutes(app *fiber.App, h *AuthHandler) {
	v1 := app.Group("/api/v1")

	v1.Post("/register", h.Register)
	v1.Post("/login", h.Login)
	v1.Post("/refresh", h.Refresh)
	v1.Delete("/session", h.Logout)

	v1.Post("/password/forgot", h.ForgotPassword)
	v1.Post("/password/reset", h.ResetPassword)

	v1.Post("/oauth/google", h.OAuthLogin)

	// Endpoints below need a valid access token.
	authed := v1.Group("", h.RequireAuth())
	authed.Post("/oauth/link", h.LinkOAuth)
	authed.Get("/oauth/status", h.OAuthStatus)
	authed.Get("/sessions", h.Sessions)

	authed.Get("/admin/report", h.RequireRole(constant.RoleSuperAdmin), h.AdminReport)
}
