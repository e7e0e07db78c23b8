package credentials

import (
	"context"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/hashid/pkg/hashid"
	"github.com/google/uuid"
)

// Manager is the credential lifecycle manager. All inbound requests (login,
// register, forgot-password, reset-password, confirm-email) pass through it;
// it applies the login state machine and reaches accounts only through the
// CredentialStore.
type Manager struct {
	store            CredentialStore
	tokens           TokenService
	notifier         Notifier
	policy           PasswordValidator
	machine          *LoginMachine
	logger           Logger
	links            LinkBuilder
	deterministicIDs bool
}

// NewManager returns a manager wired with defaults: token service built from
// cfg, log-based notifier, built-in password policy.
func NewManager(store CredentialStore, cfg Config) *Manager {
	logger := defLogger{}

	return &Manager{
		store:    store,
		tokens:   NewTokenService(cfg, logger),
		notifier: NewLogNotifier(logger),
		policy:   DefaultPasswordValidator(),
		machine:  NewLoginMachine(cfg),
		logger:   logger,
		links:    defaultLinkBuilder,
	}
}

func (m *Manager) WithLogger(logger Logger) *Manager {
	if logger != nil {
		m.logger = logger
	}
	return m
}

// WithNotifier sets the notification transport.
func (m *Manager) WithNotifier(notifier Notifier) *Manager {
	m.notifier = normalizeNotifier(notifier)
	return m
}

// WithTokenService overrides the token issuer/validator.
func (m *Manager) WithTokenService(tokens TokenService) *Manager {
	if tokens != nil {
		m.tokens = tokens
	}
	return m
}

// WithPasswordValidator replaces the password policy. Pass a composite to
// extend the built-in rules.
func (m *Manager) WithPasswordValidator(policy PasswordValidator) *Manager {
	m.policy = policy
	return m
}

// WithLoginMachine overrides the login state machine (useful for tests that
// need a custom clock).
func (m *Manager) WithLoginMachine(machine *LoginMachine) *Manager {
	if machine != nil {
		m.machine = machine
	}
	return m
}

// WithLinkBuilder overrides how notification links are rendered.
func (m *Manager) WithLinkBuilder(links LinkBuilder) *Manager {
	if links != nil {
		m.links = links
	}
	return m
}

// WithDeterministicIDs derives account IDs from the registration email
// instead of random UUIDs.
func (m *Manager) WithDeterministicIDs() *Manager {
	m.deterministicIDs = true
	return m
}

// TokenService returns the token service used by this manager.
func (m *Manager) TokenService() TokenService {
	return m.tokens
}

// Register creates an unconfirmed account and dispatches exactly one
// confirmation link on success, none on failure. The returned account never
// carries the token value.
func (m *Manager) Register(ctx context.Context, email, username, password string) (*Account, error) {
	email = NormalizeIdentifier(email)
	username = NormalizeIdentifier(UsernameFromEmail(username, email))

	if _, err := m.store.FindByUsername(ctx, username); err == nil {
		return nil, ErrDuplicateAccount
	} else if !goerrors.IsNotFound(err) {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to check for existing account")
	}

	account := &Account{
		Username: username,
		Email:    email,
	}

	if err := checkPasswordPolicy(m.policy, password, account); err != nil {
		return nil, err
	}

	hash, err := HashPassword(password)
	if err != nil {
		var richErr *goerrors.Error
		if goerrors.As(err, &richErr) {
			return nil, richErr
		}
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to hash password")
	}
	account.PasswordHash = hash

	if m.deterministicIDs {
		if id, err := hashid.NewUUID(email); err == nil {
			account.ID = id
		}
	}

	created, err := m.store.Create(ctx, account)
	if err != nil {
		if isConflict(err) {
			// lost the race against a concurrent registration
			return nil, ErrDuplicateAccount
		}
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "could not create account")
	}

	m.dispatchLink(ctx, created, PurposeEmailConfirmation)

	return created, nil
}

// Login verifies credentials and returns a signed session token. Unknown
// accounts and wrong passwords are indistinguishable; lockout and
// unconfirmed-email rejections are intentionally distinct.
func (m *Manager) Login(ctx context.Context, identifier, password string) (string, error) {
	identifier = NormalizeIdentifier(identifier)

	account, err := m.store.FindByUsername(ctx, identifier)
	if err != nil {
		if goerrors.IsNotFound(err) {
			return "", ErrInvalidCredentials
		}
		return "", goerrors.Wrap(err, goerrors.CategoryInternal, "failed to retrieve account during login")
	}

	var transition LoginTransition

	// The read-check-mutate sequence runs inside the store's atomic update so
	// two simultaneous failed logins never under-count lockout attempts.
	updated, err := m.store.AtomicUpdate(ctx, account.ID, func(acc *Account) error {
		if m.machine.StateOf(acc) == StateLocked {
			transition = m.machine.Next(acc, false)
			return nil
		}

		passwordOK := ComparePasswordAndHash(password, acc.PasswordHash) == nil
		transition = m.machine.Next(acc, passwordOK)

		if transition.Apply != nil {
			transition.Apply(acc)
		}

		return nil
	})
	if err != nil {
		if goerrors.IsNotFound(err) {
			return "", ErrInvalidCredentials
		}
		return "", goerrors.Wrap(err, goerrors.CategoryInternal, "failed to persist login bookkeeping")
	}

	if transition.Locked {
		// The attempt tripped the lockout; suggest a password change out of
		// band. Best effort, the login outcome does not depend on delivery.
		m.dispatchLink(ctx, updated, PurposePasswordReset)
	}

	if transition.Err != nil {
		m.logger.Debug("login rejected", "state", string(transition.To), "code", transition.Err.TextCode)
		return "", transition.Err
	}

	token, err := m.tokens.IssueSession(updated)
	if err != nil {
		return "", goerrors.Wrap(err, goerrors.CategoryInternal, "failed to issue session")
	}

	return token, nil
}

// ConfirmEmail consumes an EmailConfirmation token. Idempotent: confirming an
// already-confirmed account succeeds silently. Account existence never leaks;
// a missing account reads the same as a bad token.
func (m *Manager) ConfirmEmail(ctx context.Context, email, token string) error {
	account, err := m.resolveByEmail(ctx, email)
	if err != nil {
		return err
	}

	if err := m.tokens.Validate(token, PurposeEmailConfirmation, account.ID); err != nil {
		return m.mapTokenError(err)
	}

	if account.EmailConfirmed {
		return nil
	}

	_, err = m.store.AtomicUpdate(ctx, account.ID, func(acc *Account) error {
		acc.EmailConfirmed = true
		return nil
	})
	if err != nil {
		if goerrors.IsNotFound(err) {
			// account disappeared between validation and consumption
			return ErrInvalidToken
		}
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to confirm email")
	}

	return nil
}

// ForgotPassword issues a PasswordReset token and delivers it via the
// Notifier. The outward response is identical whether or not the account
// exists, to avoid account enumeration.
func (m *Manager) ForgotPassword(ctx context.Context, email string) error {
	account, err := m.resolveByEmail(ctx, email)
	if err != nil {
		if IsInvalidToken(err) {
			m.logger.Debug("password reset requested for unknown email")
			return nil
		}
		return err
	}

	m.dispatchLink(ctx, account, PurposePasswordReset)

	return nil
}

// ResetPassword consumes a PasswordReset token and replaces the password. A
// successful reset zeroes the failed access count and clears any lockout.
func (m *Manager) ResetPassword(ctx context.Context, email, token, newPassword string) error {
	account, err := m.resolveByEmail(ctx, email)
	if err != nil {
		return err
	}

	if err := m.tokens.Validate(token, PurposePasswordReset, account.ID); err != nil {
		return m.mapTokenError(err)
	}

	if err := checkPasswordPolicy(m.policy, newPassword, account); err != nil {
		return err
	}

	hash, err := HashPassword(newPassword)
	if err != nil {
		var richErr *goerrors.Error
		if goerrors.As(err, &richErr) {
			return richErr
		}
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to hash password")
	}

	_, err = m.store.AtomicUpdate(ctx, account.ID, func(acc *Account) error {
		acc.PasswordHash = hash
		acc.FailedAccessCount = 0
		acc.LockedUntil = nil
		return nil
	})
	if err != nil {
		if goerrors.IsNotFound(err) {
			return ErrInvalidToken
		}
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to persist password reset")
	}

	return nil
}

// SessionFromToken rebuilds the authenticated principal from a session token.
func (m *Manager) SessionFromToken(token string) (Session, error) {
	return m.tokens.SessionFromToken(token)
}

func (m *Manager) resolveByEmail(ctx context.Context, email string) (*Account, error) {
	account, err := m.store.FindByEmail(ctx, NormalizeIdentifier(email))
	if err != nil {
		if goerrors.IsNotFound(err) {
			return nil, ErrInvalidToken
		}
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to resolve account by email")
	}
	return account, nil
}

func (m *Manager) mapTokenError(err error) error {
	if goerrors.Is(err, ErrTokenExpired) || HasTextCode(err, TextCodeTokenExpired) {
		return ErrInvalidToken.Clone().WithMetadata(map[string]any{
			"reason": "token has expired",
		})
	}
	if IsInvalidToken(err) {
		return err
	}
	return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to validate token")
}

// dispatchLink issues a purpose token and hands the link to the notifier.
// Fire and forget: delivery failures are logged, never surfaced, so the
// triggering request cannot leak delivery status.
func (m *Manager) dispatchLink(ctx context.Context, account *Account, purpose TokenPurpose) {
	if account == nil {
		return
	}

	token, err := m.tokens.Issue(purpose, account.ID)
	if err != nil {
		m.logger.Error("failed to issue token", "purpose", string(purpose), "error", err)
		return
	}

	link := m.links(purpose, token, account.Email)
	if err := normalizeNotifier(m.notifier).Send(ctx, account.Email, link); err != nil {
		m.logger.Warn("notifier send error", "purpose", string(purpose), "error", err)
	}
}

func isConflict(err error) bool {
	if HasTextCode(err, TextCodeDuplicateAccount) || HasTextCode(err, TextCodeConflict) {
		return true
	}

	var rich *goerrors.Error
	if goerrors.As(err, &rich) {
		return rich.Category == goerrors.CategoryConflict
	}

	return false
}

// AccountIDFromSession resolves the uuid the session is bound to.
func AccountIDFromSession(session Session) (uuid.UUID, error) {
	if session == nil {
		return uuid.Nil, ErrInvalidToken
	}
	return session.GetUserUUID()
}
