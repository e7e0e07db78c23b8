package credentials

import (
	"time"

	goerrors "github.com/goliatone/go-errors"
)

// AccountState is the lifecycle state an account occupies for login purposes.
type AccountState string

const (
	// StateUnknown means no account matched the identifier.
	StateUnknown AccountState = "unknown"
	// StateActive accounts may attempt a password check.
	StateActive AccountState = "active"
	// StateLocked accounts reject logins without checking the password.
	StateLocked AccountState = "locked"
	// StateUnconfirmed accounts hold a correct password but an unconfirmed
	// email; they cannot complete authentication.
	StateUnconfirmed AccountState = "unconfirmed"
	// StateAuthenticated is the terminal success state of a login attempt.
	StateAuthenticated AccountState = "authenticated"
)

// LoginTransition is the outcome of evaluating one login attempt. Apply
// carries the account mutation the store must persist atomically; it is nil
// when the attempt leaves the record untouched. Err is nil only for
// StateAuthenticated.
type LoginTransition struct {
	From   AccountState
	To     AccountState
	Err    *goerrors.Error
	Apply  func(*Account)
	Locked bool // the attempt itself triggered the lockout
}

// LoginMachine encodes the login transition rules: lockout precedes the
// password check, unconfirmed email blocks after it, and failed attempts
// accumulate toward a lockout window.
type LoginMachine struct {
	threshold int
	window    time.Duration
	now       func() time.Time
}

// LoginMachineOption customizes machine construction.
type LoginMachineOption func(*LoginMachine)

// WithLoginMachineClock injects a custom clock (useful for tests).
func WithLoginMachineClock(clock func() time.Time) LoginMachineOption {
	return func(m *LoginMachine) {
		if clock != nil {
			m.now = clock
		}
	}
}

// NewLoginMachine builds a machine from the lockout configuration.
func NewLoginMachine(cfg Config, opts ...LoginMachineOption) *LoginMachine {
	m := &LoginMachine{
		threshold: cfg.GetMaxFailedAttempts(),
		window:    parsePattern(cfg.GetLockoutWindow(), "15m"),
		now:       time.Now,
	}

	for _, opt := range opts {
		if opt != nil {
			opt(m)
		}
	}

	return m
}

// StateOf reports the state an account occupies at instant now, before any
// password verification. StateUnconfirmed is only reachable through Next
// since it requires a correct password first.
func (m *LoginMachine) StateOf(account *Account) AccountState {
	if account == nil {
		return StateUnknown
	}
	if account.IsLockedOut(m.now()) {
		return StateLocked
	}
	return StateActive
}

// Next evaluates one login attempt. passwordOK is the result of the hash
// comparison; Next is never called with a checked password for a locked
// account, it rejects before consulting the flag.
func (m *LoginMachine) Next(account *Account, passwordOK bool) LoginTransition {
	if account == nil {
		return LoginTransition{From: StateUnknown, To: StateUnknown, Err: ErrInvalidCredentials}
	}

	now := m.now()

	if account.IsLockedOut(now) {
		return LoginTransition{From: StateLocked, To: StateLocked, Err: ErrAccountLocked}
	}

	if !passwordOK {
		count := account.FailedAccessCount + 1

		if count >= m.threshold {
			until := now.Add(m.window)
			return LoginTransition{
				From:   StateActive,
				To:     StateLocked,
				Err:    ErrAccountLocked,
				Locked: true,
				Apply: func(acc *Account) {
					acc.FailedAccessCount = count
					acc.LockedUntil = &until
				},
			}
		}

		return LoginTransition{
			From: StateActive,
			To:   StateActive,
			Err:  ErrInvalidCredentials,
			Apply: func(acc *Account) {
				acc.FailedAccessCount = count
			},
		}
	}

	if !account.EmailConfirmed {
		return LoginTransition{From: StateActive, To: StateUnconfirmed, Err: ErrEmailNotConfirmed}
	}

	return LoginTransition{
		From: StateActive,
		To:   StateAuthenticated,
		Apply: func(acc *Account) {
			acc.FailedAccessCount = 0
			acc.LockedUntil = nil
		},
	}
}

// Threshold returns the configured failed-attempt ceiling.
func (m *LoginMachine) Threshold() int {
	return m.threshold
}

// Window returns the configured lockout duration.
func (m *LoginMachine) Window() time.Duration {
	return m.window
}
