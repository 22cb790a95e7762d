package handlers

import (
	"net/http"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/fathima-sithara/account-service/internal/models"
	"github.com/fathima-sithara/account-service/internal/oauth"
	"github.com/fathima-sithara/account-service/internal/services"
	"github.com/fathima-sithara/account-service/internal/utils"
)

type AuthHandler struct {
	svc       services.AuthService
	jwt       *utils.JWTManager
	state     *oauth.StateSigner
	providers map[string]oauth.Provider
	log       *zap.Logger
}

func NewAuthHandler(svc services.AuthService, jwt *utils.JWTManager, state *oauth.StateSigner, providers map[string]oauth.Provider, log *zap.Logger) *AuthHandler {
	return &AuthHandler{svc: svc, jwt: jwt, state: state, providers: providers, log: log}
}

func fail(c *fiber.Ctx, err error) error {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		return c.Status(status).JSON(fiber.Map{"error": "internal server error"})
	}
	return c.Status(status).JSON(fiber.Map{"error": err.Error()})
}

// Register handles POST /api/v1/auth/register.
func (h *AuthHandler) Register(c *fiber.Ctx) error {
	var req models.RegisterRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}
	if err := utils.ValidateStruct(req); err != nil {
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{
			"error":  "validation failed",
			"fields": utils.FormatValidationErrors(err),
		})
	}

	user, err := h.svc.Register(c.Context(), req)
	if err != nil && user == nil {
		return fail(c, err)
	}
	resp := fiber.Map{
		"message": "registration successful, verification code sent",
		"user":    user,
	}
	if err != nil {
		// Account exists but the code could not be delivered. Report the
		// partial success so the client can trigger a resend.
		resp["message"] = "registration successful, but sending the verification code failed"
		return c.Status(http.StatusBadGateway).JSON(resp)
	}
	return c.Status(http.StatusCreated).JSON(resp)
}

// classifyIdentifier routes a generic login identifier to the matching
// account field. Anything that is not an email or an E.164 number is
// treated as a username.
func classifyIdentifier(id string) (username, email, phone string) {
	id = strings.TrimSpace(id)
	switch {
	case id == "":
		return "", "", ""
	case strings.Contains(id, "@"):
		return "", id, ""
	case phoneLike(id):
		return "", "", id
	default:
		return id, "", ""
	}
}

func phoneLike(s string) bool {
	if strings.HasPrefix(s, "+") {
		s = s[1:]
	}
	if len(s) < 2 || len(s) > 15 {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// Login handles POST /api/v1/auth/login.
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req models.LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}

	username, email, phone := req.Username, req.Email, req.PhoneNumber
	if username == "" && email == "" && phone == "" {
		username, email, phone = classifyIdentifier(req.Identifier)
	}

	user, err := h.svc.Authenticate(c.Context(), username, email, phone, req.Password)
	if err != nil {
		return fail(c, err)
	}
	return h.issueSession(c, user)
}

// issueSession mints the access token for an authenticated account, sets it
// as an http-only cookie and writes the login response.
func (h *AuthHandler) issueSession(c *fiber.Ctx, user *models.User) error {
	token, exp, err := h.jwt.Generate(models.TokenClaims{
		ID:          user.ID.Hex(),
		Email:       user.Email,
		PhoneNumber: user.PhoneNumber,
		Name:        user.Name,
		Admin:       user.IsAdmin,
	})
	if err != nil {
		h.log.Error("failed to sign session token", zap.Error(err))
		return c.Status(http.StatusInternalServerError).JSON(fiber.Map{"error": "internal server error"})
	}
	c.Cookie(&fiber.Cookie{
		Name:     "token",
		Value:    token,
		Expires:  exp,
		HTTPOnly: true,
		SameSite: "Lax",
		Path:     "/",
	})
	return c.Status(http.StatusOK).JSON(fiber.Map{
		"message":    "login successful",
		"token":      token,
		"expires_at": exp.Unix(),
		"user":       user,
	})
}

// VerifyEmail handles POST /api/v1/auth/verify-email.
func (h *AuthHandler) VerifyEmail(c *fiber.Ctx) error {
	var req models.VerifyEmailRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}
	if err := utils.ValidateStruct(req); err != nil {
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{
			"error":  "validation failed",
			"fields": utils.FormatValidationErrors(err),
		})
	}
	if err := h.svc.VerifyEmail(c.Context(), req.Email, req.OTP); err != nil {
		return fail(c, err)
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{"message": "email verified"})
}

// VerifyPhone handles POST /api/v1/auth/verify-phone.
func (h *AuthHandler) VerifyPhone(c *fiber.Ctx) error {
	var req models.VerifyPhoneRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}
	if err := utils.ValidateStruct(req); err != nil {
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{
			"error":  "validation failed",
			"fields": utils.FormatValidationErrors(err),
		})
	}
	if err := h.svc.VerifyPhone(c.Context(), req.PhoneNumber, req.OTP); err != nil {
		return fail(c, err)
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{"message": "phone number verified"})
}

// VerifyAccount handles POST /api/v1/auth/verify-account, confirming both
// channels with the shared code.
func (h *AuthHandler) VerifyAccount(c *fiber.Ctx) error {
	var req models.VerifyAccountRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}
	if err := utils.ValidateStruct(req); err != nil {
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{
			"error":  "validation failed",
			"fields": utils.FormatValidationErrors(err),
		})
	}
	if err := h.svc.VerifyEmailAndPhone(c.Context(), req.Email, req.PhoneNumber, req.OTP); err != nil {
		return fail(c, err)
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{"message": "account verified"})
}

// ResendOTP handles POST /api/v1/auth/resend-otp.
func (h *AuthHandler) ResendOTP(c *fiber.Ctx) error {
	var req models.ResendOTPRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}
	if err := utils.ValidateStruct(req); err != nil {
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{
			"error":  "validation failed",
			"fields": utils.FormatValidationErrors(err),
		})
	}
	if err := h.svc.ResendOTP(c.Context(), req.Email, req.PhoneNumber); err != nil {
		return fail(c, err)
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{"message": "verification code sent"})
}

// Me handles GET /api/v1/auth/me for an authenticated session.
func (h *AuthHandler) Me(c *fiber.Ctx) error {
	claims, ok := c.Locals("claims").(*models.TokenClaims)
	if !ok {
		return c.Status(http.StatusUnauthorized).JSON(fiber.Map{"error": "unauthorized"})
	}
	user, err := h.svc.GetByID(c.Context(), claims.ID)
	if err != nil {
		return fail(c, err)
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{"user": user})
}

// OAuthStart handles GET /api/v1/auth/oauth/:provider and redirects to the
// provider's consent page.
func (h *AuthHandler) OAuthStart(c *fiber.Ctx) error {
	provider, ok := h.providers[c.Params("provider")]
	if !ok {
		return c.Status(http.StatusNotFound).JSON(fiber.Map{"error": "unknown provider"})
	}
	state := h.state.MakeState(uuid.NewString())
	return c.Redirect(provider.AuthURL(state), http.StatusTemporaryRedirect)
}

// OAuthCallback handles GET /api/v1/auth/oauth/:provider/callback.
func (h *AuthHandler) OAuthCallback(c *fiber.Ctx) error {
	provider, ok := h.providers[c.Params("provider")]
	if !ok {
		return c.Status(http.StatusNotFound).JSON(fiber.Map{"error": "unknown provider"})
	}
	if !h.state.VerifyState(c.Query("state")) {
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{"error": "invalid state"})
	}
	code := c.Query("code")
	if code == "" {
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{"error": "missing code"})
	}

	identity, err := provider.Exchange(c.Context(), code)
	if err != nil {
		h.log.Warn("oauth exchange failed",
			zap.String("provider", provider.Name()), zap.Error(err))
		return c.Status(http.StatusUnauthorized).JSON(fiber.Map{"error": "federated sign-in failed"})
	}

	user, err := h.svc.ReconcileFederated(c.Context(), identity)
	if err != nil {
		return fail(c, err)
	}
	return h.issueSession(c, user)
}

// Healthz reports liveness.
func (h *AuthHandler) Healthz(c *fiber.Ctx) error {
	return c.Status(http.StatusOK).JSON(fiber.Map{"status": "ok"})
}
