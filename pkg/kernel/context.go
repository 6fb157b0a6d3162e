package kernel

// AuthContext is the authentication context injected into each request
// after the session token and fingerprint cookie have been verified.
type AuthContext struct {
	PublicID PublicID `json:"public_id"`
	Service  Service  `json:"service"`
	Username string   `json:"username"`
}

// IsValid reports whether the AuthContext identifies an account.
func (ac *AuthContext) IsValid() bool {
	return !ac.PublicID.IsEmpty() && !ac.Service.IsEmpty()
}

// ContextKey is the type for values stored in context.Context and
// fiber Locals.
type ContextKey string

const (
	// AuthContextKey is the key under which AuthContext is stored
	AuthContextKey ContextKey = "auth_context"

	// RequestIDKey is the key under which the request ID is stored
	RequestIDKey ContextKey = "request_id"
)
