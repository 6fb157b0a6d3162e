package authsrv

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/tw-smith/authserver/pkg/auth"
	"github.com/tw-smith/authserver/pkg/errx"
	"github.com/tw-smith/authserver/pkg/kernel"
)

// Handlers exposes the account lifecycle over HTTP. All request bodies are
// form-encoded; the tenant arrives as the service query parameter.
type Handlers struct {
	svc        *AuthService
	cookieName string
	cookieTTL  time.Duration
}

// NewHandlers creates the HTTP handlers for the auth service.
func NewHandlers(svc *AuthService, cookieName string, cookieTTL time.Duration) *Handlers {
	return &Handlers{
		svc:        svc,
		cookieName: cookieName,
		cookieTTL:  cookieTTL,
	}
}

// RegisterRoutes mounts all routes on the app. The middleware guards the
// authenticated endpoints.
func (h *Handlers) RegisterRoutes(app *fiber.App, mw *SessionMiddleware) {
	app.Post("/signup", h.Signup)
	app.Get("/verify", h.Verify)
	app.Post("/auth", h.Login)
	app.Post("/resetpassword", h.RequestPasswordReset)
	app.Post("/resetpassword/confirm", h.ConfirmPasswordReset)

	app.Post("/changepassword", mw.Authenticate(), h.ChangePassword)
	app.Get("/me", mw.Authenticate(), h.Me)
}

// Signup registers a new account for a tenant.
// POST /signup?service=<service> with email, username, password form fields.
func (h *Handlers) Signup(c *fiber.Ctx) error {
	service := kernel.NewService(c.Query("service"))
	email := c.FormValue("email")
	username := c.FormValue("username")
	password := c.FormValue("password")

	if email == "" || username == "" || password == "" {
		return errx.Validation("email, username and password are required")
	}

	if _, err := h.svc.Signup(c.Context(), service, email, username, password); err != nil {
		return err
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"msg": "user created",
	})
}

// Verify consumes an emailed verification token.
// GET /verify?token=<token>
func (h *Handlers) Verify(c *fiber.Ctx) error {
	token := c.Query("token")
	if token == "" {
		return errx.Validation("token is required")
	}

	if _, err := h.svc.VerifyEmail(c.Context(), token); err != nil {
		return err
	}

	return c.JSON(fiber.Map{
		"msg": "user verified",
	})
}

// Login exchanges credentials for a session token and fingerprint cookie.
// POST /auth?service=<service> with username, password form fields.
func (h *Handlers) Login(c *fiber.Ctx) error {
	service := kernel.NewService(c.Query("service"))
	username := c.FormValue("username")
	password := c.FormValue("password")

	if username == "" || password == "" {
		return errx.Validation("username and password are required")
	}

	result, err := h.svc.Login(c.Context(), service, username, password)
	if err != nil {
		return err
	}

	// The raw fingerprint travels only in this cookie. HttpOnly keeps it
	// from scripts; the token carries just its hash.
	c.Cookie(&fiber.Cookie{
		Name:     h.cookieName,
		Value:    result.Fingerprint.Raw,
		Path:     "/",
		MaxAge:   int(h.cookieTTL.Seconds()),
		Secure:   true,
		HTTPOnly: true,
		SameSite: "Strict",
	})

	return c.JSON(fiber.Map{
		"access_token": result.Token,
		"token_type":   "bearer",
	})
}

// ChangePassword replaces the password of the authenticated account.
// POST /changepassword with old_password, new_password form fields.
func (h *Handlers) ChangePassword(c *fiber.Ctx) error {
	authCtx := AuthContextFrom(c)
	if authCtx == nil {
		return auth.ErrInvalidCredentials()
	}

	oldPassword := c.FormValue("old_password")
	newPassword := c.FormValue("new_password")
	if oldPassword == "" || newPassword == "" {
		return errx.Validation("old_password and new_password are required")
	}

	if err := h.svc.ChangePassword(c.Context(), authCtx.Service, authCtx.Username, oldPassword, newPassword); err != nil {
		return err
	}

	return c.JSON(fiber.Map{
		"msg": "Password changed",
	})
}

// RequestPasswordReset starts the reset flow. The response is identical
// whether or not the email is registered.
// POST /resetpassword?service=<service> with email form field.
func (h *Handlers) RequestPasswordReset(c *fiber.Ctx) error {
	service := kernel.NewService(c.Query("service"))
	email := c.FormValue("email")
	if email == "" {
		return errx.Validation("email is required")
	}

	if err := h.svc.RequestPasswordReset(c.Context(), service, email); err != nil {
		return err
	}

	return c.JSON(fiber.Map{
		"msg": "Password reset requested",
	})
}

// ConfirmPasswordReset consumes an emailed reset token and sets the new
// password.
// POST /resetpassword/confirm?service=<service> with username, token,
// new_password form fields.
func (h *Handlers) ConfirmPasswordReset(c *fiber.Ctx) error {
	service := kernel.NewService(c.Query("service"))
	username := c.FormValue("username")
	token := c.FormValue("token")
	newPassword := c.FormValue("new_password")

	if username == "" || token == "" || newPassword == "" {
		return errx.Validation("username, token and new_password are required")
	}

	if err := h.svc.PerformPasswordReset(c.Context(), service, username, token, newPassword); err != nil {
		return err
	}

	return c.JSON(fiber.Map{
		"msg": "Password reset successful",
	})
}

// Me returns the authenticated account's identity.
// GET /me
func (h *Handlers) Me(c *fiber.Ctx) error {
	authCtx := AuthContextFrom(c)
	if authCtx == nil {
		return auth.ErrInvalidCredentials()
	}
	return c.JSON(authCtx)
}
