package authsrv

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/tw-smith/authserver/pkg/auth"
	"github.com/tw-smith/authserver/pkg/kernel"
)

// SessionMiddleware guards protected routes. A request must present both
// the bearer token and the fingerprint cookie issued at login; either one
// alone is useless.
type SessionMiddleware struct {
	svc        *AuthService
	cookieName string
}

// NewSessionMiddleware creates the middleware around the auth service.
func NewSessionMiddleware(svc *AuthService, cookieName string) *SessionMiddleware {
	return &SessionMiddleware{svc: svc, cookieName: cookieName}
}

// Authenticate validates the session token and fingerprint cookie and
// stores the resolved AuthContext in the request locals.
func (m *SessionMiddleware) Authenticate() fiber.Handler {
	return func(c *fiber.Ctx) error {
		token := bearerToken(c.Get("Authorization"))
		if token == "" {
			return auth.ErrInvalidCredentials()
		}

		authCtx, err := m.svc.Authenticate(c.Context(), token, c.Cookies(m.cookieName))
		if err != nil {
			return err
		}

		c.Locals(string(kernel.AuthContextKey), authCtx)
		return c.Next()
	}
}

// AuthContextFrom returns the AuthContext stored by Authenticate, or nil
// on an unguarded route.
func AuthContextFrom(c *fiber.Ctx) *kernel.AuthContext {
	authCtx, ok := c.Locals(string(kernel.AuthContextKey)).(*kernel.AuthContext)
	if !ok {
		return nil
	}
	return authCtx
}

func bearerToken(header string) string {
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || parts[0] != "Bearer" {
		return ""
	}
	return parts[1]
}
