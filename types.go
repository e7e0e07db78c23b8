package credentials

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

type Logger interface {
	Debug(format string, args ...any)
	Info(format string, args ...any)
	Warn(format string, args ...any)
	Error(format string, args ...any)
}

// CredentialStore is the only access path to account records. AtomicUpdate
// must apply the read-check-mutate sequence as a single atomic update per
// account so concurrent lockout bookkeeping never loses a write.
type CredentialStore interface {
	FindByUsername(ctx context.Context, username string) (*Account, error)
	FindByEmail(ctx context.Context, email string) (*Account, error)
	Create(ctx context.Context, account *Account) (*Account, error)
	AtomicUpdate(ctx context.Context, id uuid.UUID, mutator func(*Account) error) (*Account, error)
}

// TokenService issues and validates single-purpose, account-bound, expiring
// tokens, and signs session principals for authenticated logins.
type TokenService interface {
	Issue(purpose TokenPurpose, accountID uuid.UUID) (string, error)
	Validate(token string, purpose TokenPurpose, accountID uuid.UUID) error
	IssueSession(account *Account) (string, error)
	SessionFromToken(token string) (Session, error)
}

// Notifier delivers an out-of-band link to the account's registered address.
// Fire-and-forget: failures are logged by the caller, never surfaced as the
// triggering request's failure.
type Notifier interface {
	Send(ctx context.Context, email, link string) error
}

// Session holds attributes that are part of an authenticated session
type Session interface {
	GetUserID() string
	GetUserUUID() (uuid.UUID, error)
	GetAudience() []string
	GetIssuer() string
	GetIssuedAt() *time.Time
	GetData() map[string]any
}

// PasswordAuthenticator authenticates passwords
type PasswordAuthenticator interface {
	HashPassword(password string) (string, error)
	ComparePasswordAndHash(password, hash string) error
}

// Config holds lifecycle options
type Config interface {
	GetSigningKey() string
	GetIssuer() string
	GetAudience() []string
	GetSessionDuration() string
	GetConfirmationTokenDuration() string
	GetResetTokenDuration() string
	GetMaxFailedAttempts() int
	GetLockoutWindow() string
}

// SimpleConfig is a value implementation of Config with usable defaults for
// every zero field except SigningKey.
type SimpleConfig struct {
	SigningKey                string
	Issuer                    string
	Audience                  []string
	SessionDuration           string
	ConfirmationTokenDuration string
	ResetTokenDuration        string
	MaxFailedAttempts         int
	LockoutWindow             string
}

func (c SimpleConfig) GetSigningKey() string { return c.SigningKey }

func (c SimpleConfig) GetIssuer() string { return c.Issuer }

func (c SimpleConfig) GetAudience() []string { return c.Audience }

func (c SimpleConfig) GetSessionDuration() string {
	if c.SessionDuration == "" {
		return "72h"
	}
	return c.SessionDuration
}

func (c SimpleConfig) GetConfirmationTokenDuration() string {
	if c.ConfirmationTokenDuration == "" {
		return "24h"
	}
	return c.ConfirmationTokenDuration
}

func (c SimpleConfig) GetResetTokenDuration() string {
	if c.ResetTokenDuration == "" {
		return "1h"
	}
	return c.ResetTokenDuration
}

func (c SimpleConfig) GetMaxFailedAttempts() int {
	if c.MaxFailedAttempts <= 0 {
		return 5
	}
	return c.MaxFailedAttempts
}

func (c SimpleConfig) GetLockoutWindow() string {
	if c.LockoutWindow == "" {
		return "15m"
	}
	return c.LockoutWindow
}

var _ Config = SimpleConfig{}

// parsePattern resolves duration patterns like "24h", falling back when the
// pattern is unusable.
func parsePattern(pattern, fallback string) time.Duration {
	if d, err := time.ParseDuration(pattern); err == nil && d > 0 {
		return d
	}
	d, _ := time.ParseDuration(fallback)
	return d
}

type defLogger struct{}

func (d defLogger) Error(format string, args ...any) {
	fmt.Printf("[ERR] CRED "+newline(format), args...)
}

func (d defLogger) Warn(format string, args ...any) {
	fmt.Printf("[WRN] CRED "+newline(format), args...)
}

func (d defLogger) Info(format string, args ...any) {
	fmt.Printf("[INF] CRED "+newline(format), args...)
}

func (d defLogger) Debug(format string, args ...any) {
	fmt.Printf("[DBG] CRED "+newline(format), args...)
}

func newline(s string) string {
	if len(s) > 0 && s[len(s)-1] != '\n' {
		s += "\n"
	}
	return s
}
