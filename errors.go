package credentials

import (
	goerrors "github.com/goliatone/go-errors"
)

// Text codes let callers branch on outcomes without string-matching messages.
const (
	TextCodeInvalidCredentials = "INVALID_CREDENTIALS"
	TextCodeAccountLocked      = "ACCOUNT_LOCKED"
	TextCodeEmailNotConfirmed  = "EMAIL_NOT_CONFIRMED"
	TextCodeDuplicateAccount   = "DUPLICATE_ACCOUNT"
	TextCodeInvalidToken       = "INVALID_TOKEN"
	TextCodeTokenExpired       = "TOKEN_EXPIRED"
	TextCodeWeakPassword       = "WEAK_PASSWORD"
	TextCodeConflict           = "CONCURRENT_UPDATE_CONFLICT"
)

// ErrInvalidCredentials covers both unknown accounts and wrong passwords so an
// external observer cannot tell the two apart.
var ErrInvalidCredentials = goerrors.New("invalid username or password", goerrors.CategoryAuth).
	WithTextCode(TextCodeInvalidCredentials).
	WithCode(goerrors.CodeUnauthorized)

// ErrAccountLocked is returned while the account is inside a lockout window.
// The password is not checked in this state.
var ErrAccountLocked = goerrors.New("account is temporarily locked", goerrors.CategoryAuth).
	WithTextCode(TextCodeAccountLocked).
	WithCode(goerrors.CodeForbidden)

// ErrEmailNotConfirmed is returned when the password is correct but the email
// address was never confirmed. Intentionally distinguishable to the
// legitimate user.
var ErrEmailNotConfirmed = goerrors.New("email address has not been confirmed", goerrors.CategoryAuth).
	WithTextCode(TextCodeEmailNotConfirmed).
	WithCode(goerrors.CodeForbidden)

// ErrDuplicateAccount is returned when registration targets an existing
// username.
var ErrDuplicateAccount = goerrors.New("an account with that username already exists", goerrors.CategoryConflict).
	WithTextCode(TextCodeDuplicateAccount).
	WithCode(goerrors.CodeConflict)

// ErrInvalidToken covers expired, cross-purpose, cross-account, and malformed
// tokens. Confirmation and reset flows also collapse account-not-found into
// this error so account existence does not leak.
var ErrInvalidToken = goerrors.New("invalid or expired token", goerrors.CategoryValidation).
	WithTextCode(TextCodeInvalidToken).
	WithCode(goerrors.CodeBadRequest)

// ErrTokenExpired is the TokenService-level expiry result. The manager maps
// it to ErrInvalidToken before it reaches a caller.
var ErrTokenExpired = goerrors.New("token has expired", goerrors.CategoryValidation).
	WithTextCode(TextCodeTokenExpired).
	WithCode(goerrors.CodeBadRequest)

// ErrWeakPassword carries every violated policy rule in its metadata under
// "violations".
var ErrWeakPassword = goerrors.New("password does not meet the password policy", goerrors.CategoryValidation).
	WithTextCode(TextCodeWeakPassword).
	WithCode(goerrors.CodeBadRequest)

// ErrConflict signals a lost concurrent mutation; the caller should retry.
var ErrConflict = goerrors.New("account was modified concurrently", goerrors.CategoryConflict).
	WithTextCode(TextCodeConflict).
	WithCode(goerrors.CodeConflict)

// HasTextCode reports whether err (or anything it wraps) carries the given
// text code.
func HasTextCode(err error, code string) bool {
	if err == nil {
		return false
	}

	var rich *goerrors.Error
	if goerrors.As(err, &rich) {
		return rich.TextCode == code
	}

	return false
}

// IsInvalidCredentials checks for the indistinguishable login rejection.
func IsInvalidCredentials(err error) bool {
	return HasTextCode(err, TextCodeInvalidCredentials)
}

// IsAccountLocked checks for an active lockout rejection.
func IsAccountLocked(err error) bool {
	return HasTextCode(err, TextCodeAccountLocked)
}

// IsEmailNotConfirmed checks for the unconfirmed-email rejection.
func IsEmailNotConfirmed(err error) bool {
	return HasTextCode(err, TextCodeEmailNotConfirmed)
}

// IsInvalidToken checks for any token rejection, expiry included.
func IsInvalidToken(err error) bool {
	return HasTextCode(err, TextCodeInvalidToken) || HasTextCode(err, TextCodeTokenExpired)
}

// IsWeakPassword checks for a password policy rejection.
func IsWeakPassword(err error) bool {
	return HasTextCode(err, TextCodeWeakPassword)
}

// PasswordViolations extracts the violated rule descriptions from a
// WeakPassword error. Returns nil for any other error.
func PasswordViolations(err error) []string {
	if !IsWeakPassword(err) {
		return nil
	}

	var rich *goerrors.Error
	if !goerrors.As(err, &rich) {
		return nil
	}

	raw, ok := rich.Metadata["violations"]
	if !ok {
		return nil
	}

	switch v := raw.(type) {
	case []string:
		return v
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}

	return nil
}
