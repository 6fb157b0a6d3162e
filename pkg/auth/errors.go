package auth

import "github.com/tw-smith/authserver/pkg/errx"

var authErrors = errx.NewRegistry("AUTH")

// Registered error codes. Exported so callers and tests can classify
// failures with errx.IsCode without string matching.
var (
	CodeConflict            = authErrors.Register("CONFLICT", errx.TypeConflict, 409, "Email or username already registered")
	CodeInvalidCredentials  = authErrors.Register("INVALID_CREDENTIALS", errx.TypeAuthorization, 401, "Authorisation Error")
	CodeNotVerified         = authErrors.Register("NOT_VERIFIED", errx.TypeForbidden, 403, "Account not verified")
	CodeAccountLocked       = authErrors.Register("ACCOUNT_LOCKED", errx.TypeForbidden, 403, "Account locked pending password reset")
	CodeAccountNotFound     = authErrors.Register("ACCOUNT_NOT_FOUND", errx.TypeNotFound, 404, "Account not found")
	CodeVerificationFailed  = authErrors.Register("VERIFICATION_FAILED", errx.TypeAuthorization, 401, "Invalid JWT")
	CodeTokenExpired        = authErrors.Register("TOKEN_EXPIRED", errx.TypeAuthorization, 401, "Expired JWT Token")
	CodeTokenInvalid        = authErrors.Register("TOKEN_INVALID", errx.TypeValidation, 400, "JWT Decode Error")
	CodeFingerprintMismatch = authErrors.Register("FINGERPRINT_MISMATCH", errx.TypeAuthorization, 401, "Session fingerprint mismatch")
	CodeUnknownService      = authErrors.Register("UNKNOWN_SERVICE", errx.TypeValidation, 400, "Unknown service")
)

func ErrConflict() *errx.Error            { return authErrors.New(CodeConflict) }
func ErrInvalidCredentials() *errx.Error  { return authErrors.New(CodeInvalidCredentials) }
func ErrNotVerified() *errx.Error         { return authErrors.New(CodeNotVerified) }
func ErrAccountLocked() *errx.Error       { return authErrors.New(CodeAccountLocked) }
func ErrAccountNotFound() *errx.Error     { return authErrors.New(CodeAccountNotFound) }
func ErrVerificationFailed() *errx.Error  { return authErrors.New(CodeVerificationFailed) }
func ErrTokenExpired() *errx.Error        { return authErrors.New(CodeTokenExpired) }
func ErrTokenInvalid() *errx.Error        { return authErrors.New(CodeTokenInvalid) }
func ErrFingerprintMismatch() *errx.Error { return authErrors.New(CodeFingerprintMismatch) }
func ErrUnknownService() *errx.Error      { return authErrors.New(CodeUnknownService) }
