package routes

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/fathima-sithara/account-service/internal/handlers"
	"github.com/fathima-sithara/account-service/internal/middlewares"
	"github.com/fathima-sithara/account-service/internal/utils"
)

func Setup(app *fiber.App, h *handlers.AuthHandler, jwt *utils.JWTManager) {
	app.Get("/healthz", h.Healthz)
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	api := app.Group("/api/v1")
	auth := api.Group("/auth")

	auth.Post("/register", h.Register)
	auth.Post("/login", h.Login)
	auth.Post("/verify-email", h.VerifyEmail)
	auth.Post("/verify-phone", h.VerifyPhone)
	auth.Post("/verify-account", h.VerifyAccount)
	auth.Post("/resend-otp", h.ResendOTP)

	auth.Get("/oauth/:provider", h.OAuthStart)
	auth.Get("/oauth/:provider/callback", h.OAuthCallback)

	auth.Get("/me", middlewares.RequireAuth(jwt), h.Me)
}
