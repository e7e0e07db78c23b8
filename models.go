package credentials

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Account is the credential record for a single identity.
//
// FailedAccessCount and LockedUntil are bookkeeping owned by the lifecycle
// manager; callers must never mutate them directly. PasswordHash is set on
// registration and on a successful reset, and is never empty after either.
type Account struct {
	bun.BaseModel     `bun:"table:accounts,alias:acc"`
	ID                uuid.UUID  `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	Username          string     `bun:"username,notnull,unique" json:"username,omitempty"`
	Email             string     `bun:"email,notnull,unique" json:"email,omitempty"`
	PasswordHash      string     `bun:"password_hash,notnull" json:"-"`
	EmailConfirmed    bool       `bun:"is_email_confirmed" json:"is_email_confirmed,omitempty"`
	FailedAccessCount int        `bun:"failed_access_count" json:"failed_access_count,omitempty"`
	LockedUntil       *time.Time `bun:"locked_until,nullzero" json:"locked_until,omitempty"`
	CreatedAt         *time.Time `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
	UpdatedAt         *time.Time `bun:"updated_at,nullzero,default:current_timestamp" json:"updated_at,omitempty"`
	DeletedAt         *time.Time `bun:"deleted_at,soft_delete,nullzero" json:"deleted_at,omitempty"`
}

// IsLockedOut reports whether the account is inside an active lockout window.
func (a *Account) IsLockedOut(now time.Time) bool {
	if a == nil || a.LockedUntil == nil {
		return false
	}
	return a.LockedUntil.After(now)
}

// Clone returns a shallow copy the AtomicUpdate mutator can work on without
// aliasing the caller's record.
func (a *Account) Clone() *Account {
	if a == nil {
		return nil
	}
	clone := *a
	return &clone
}

// NormalizeIdentifier applies the package username policy: identifiers are
// trimmed and compared case-insensitively.
func NormalizeIdentifier(identifier string) string {
	return strings.ToLower(strings.TrimSpace(identifier))
}

// UsernameFromEmail derives a username when the caller registers with an
// email only.
func UsernameFromEmail(username, email string) string {
	if username != "" {
		return username
	}

	if strings.Contains(email, "@") {
		username = strings.Split(email, "@")[0]
	}

	return username
}

// TokenPurpose identifies the single operation a token may gate.
type TokenPurpose string

const (
	// PurposeEmailConfirmation gates ConfirmEmail.
	PurposeEmailConfirmation TokenPurpose = "email_confirmation"
	// PurposePasswordReset gates ResetPassword.
	PurposePasswordReset TokenPurpose = "password_reset"

	// purposeSession marks tokens issued for authenticated sessions. Sessions
	// are never accepted by the confirmation or reset flows.
	purposeSession TokenPurpose = "session"
)
