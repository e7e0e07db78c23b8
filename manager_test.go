package credentials_test

import (
	"context"
	"net/url"
	"strings"
	"testing"
	"time"

	credentials "github.com/goliatone/go-credentials"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func tokenFromLink(t *testing.T, link string) string {
	t.Helper()
	u, err := url.Parse(link)
	require.NoError(t, err)
	token := u.Query().Get("token")
	require.NotEmpty(t, token)
	return token
}

func newTestManager(t *testing.T) (*credentials.Manager, *memoryStore, *captureNotifier) {
	t.Helper()
	store := newMemoryStore()
	notifier := &captureNotifier{}
	mgr := credentials.NewManager(store, testConfig()).WithNotifier(notifier)
	return mgr, store, notifier
}

func TestRegisterConfirmLoginScenario(t *testing.T) {
	ctx := context.Background()
	mgr, store, notifier := newTestManager(t)

	account, err := mgr.Register(ctx, "alice@example.com", "alice", "S3cret!Phrase")
	require.NoError(t, err)
	require.NotNil(t, account)
	assert.False(t, account.EmailConfirmed)
	assert.NotEmpty(t, account.PasswordHash)
	assert.Equal(t, 1, notifier.count())

	// login before confirmation is rejected, distinguishably
	_, err = mgr.Login(ctx, "alice", "S3cret!Phrase")
	assert.True(t, credentials.IsEmailNotConfirmed(err))

	send, ok := notifier.last()
	require.True(t, ok)
	assert.Equal(t, "alice@example.com", send.Email)

	err = mgr.ConfirmEmail(ctx, "alice@example.com", tokenFromLink(t, send.Link))
	require.NoError(t, err)
	assert.True(t, store.get(account.ID).EmailConfirmed)

	token, err := mgr.Login(ctx, "alice", "S3cret!Phrase")
	require.NoError(t, err)
	require.NotEmpty(t, token)

	session, err := mgr.SessionFromToken(token)
	require.NoError(t, err)
	assert.Equal(t, account.ID.String(), session.GetUserID())
}

func TestRegisterDuplicateUsername(t *testing.T) {
	ctx := context.Background()
	mgr, store, notifier := newTestManager(t)

	first, err := mgr.Register(ctx, "alice@example.com", "alice", "S3cret!Phrase")
	require.NoError(t, err)

	_, err = mgr.Register(ctx, "alice2@example.com", "alice", "Other!Phrase9")
	require.Error(t, err)
	assert.True(t, credentials.HasTextCode(err, credentials.TextCodeDuplicateAccount))

	// no mutation of the existing account, no extra notification
	assert.Equal(t, first.PasswordHash, store.get(first.ID).PasswordHash)
	assert.Equal(t, 1, notifier.count())
}

func TestRegisterWeakPassword(t *testing.T) {
	ctx := context.Background()
	mgr, _, notifier := newTestManager(t)

	_, err := mgr.Register(ctx, "bob@example.com", "bob", "bob")
	require.Error(t, err)
	assert.True(t, credentials.IsWeakPassword(err))
	violations := credentials.PasswordViolations(err)
	require.Len(t, violations, 1)
	assert.Contains(t, violations[0], "username")

	// failures dispatch nothing
	assert.Equal(t, 0, notifier.count())
}

func TestRegisterDefaultsUsernameFromEmail(t *testing.T) {
	ctx := context.Background()
	mgr, _, _ := newTestManager(t)

	account, err := mgr.Register(ctx, "Carol@Example.com", "", "S3cret!Phrase")
	require.NoError(t, err)
	assert.Equal(t, "carol", account.Username)
	assert.Equal(t, "carol@example.com", account.Email)
}

func TestLoginUnknownAndWrongPasswordIndistinguishable(t *testing.T) {
	ctx := context.Background()
	mgr, _, notifier := newTestManager(t)

	registerConfirmed(t, mgr, notifier, "dave@example.com", "dave", "S3cret!Phrase")

	_, errUnknown := mgr.Login(ctx, "nobody", "whatever")
	_, errWrong := mgr.Login(ctx, "dave", "wrong-password")

	require.Error(t, errUnknown)
	require.Error(t, errWrong)
	assert.True(t, credentials.IsInvalidCredentials(errUnknown))
	assert.True(t, credentials.IsInvalidCredentials(errWrong))
	assert.Equal(t, errUnknown.Error(), errWrong.Error())
}

func TestLoginLockoutScenario(t *testing.T) {
	ctx := context.Background()
	mgr, store, notifier := newTestManager(t)

	account := registerConfirmed(t, mgr, notifier, "bob@example.com", "bob", "Correct!Phrase")

	for i := 1; i <= 4; i++ {
		_, err := mgr.Login(ctx, "bob", "wrong")
		assert.True(t, credentials.IsInvalidCredentials(err), "attempt %d", i)
	}
	assert.Equal(t, 4, store.get(account.ID).FailedAccessCount)

	// 5th failed attempt trips the lockout
	_, err := mgr.Login(ctx, "bob", "wrong")
	assert.True(t, credentials.IsAccountLocked(err))
	require.NotNil(t, store.get(account.ID).LockedUntil)

	// the lockout dispatched a password-change suggestion
	send, ok := notifier.last()
	require.True(t, ok)
	assert.Contains(t, send.Link, "password-reset")

	// correct password during the window is rejected too
	_, err = mgr.Login(ctx, "bob", "Correct!Phrase")
	assert.True(t, credentials.IsAccountLocked(err))
}

func TestLoginSuccessResetsFailedCount(t *testing.T) {
	ctx := context.Background()
	mgr, store, notifier := newTestManager(t)

	account := registerConfirmed(t, mgr, notifier, "erin@example.com", "erin", "Correct!Phrase")

	for i := 0; i < 3; i++ {
		_, _ = mgr.Login(ctx, "erin", "wrong")
	}
	require.Equal(t, 3, store.get(account.ID).FailedAccessCount)

	_, err := mgr.Login(ctx, "erin", "Correct!Phrase")
	require.NoError(t, err)
	assert.Equal(t, 0, store.get(account.ID).FailedAccessCount)
}

func TestLoginLockoutWindowElapses(t *testing.T) {
	ctx := context.Background()
	store := newMemoryStore()
	notifier := &captureNotifier{}

	now := time.Now()
	clock := func() time.Time { return now }

	mgr := credentials.NewManager(store, testConfig()).
		WithNotifier(notifier).
		WithLoginMachine(credentials.NewLoginMachine(testConfig(), credentials.WithLoginMachineClock(clock)))

	account := registerConfirmed(t, mgr, notifier, "frank@example.com", "frank", "Correct!Phrase")

	for i := 0; i < 5; i++ {
		_, _ = mgr.Login(ctx, "frank", "wrong")
	}
	require.NotNil(t, store.get(account.ID).LockedUntil)

	_, err := mgr.Login(ctx, "frank", "Correct!Phrase")
	assert.True(t, credentials.IsAccountLocked(err))

	now = now.Add(16 * time.Minute)

	token, err := mgr.Login(ctx, "frank", "Correct!Phrase")
	require.NoError(t, err)
	assert.NotEmpty(t, token)
	assert.Nil(t, store.get(account.ID).LockedUntil)
}

func TestConfirmEmailIdempotent(t *testing.T) {
	ctx := context.Background()
	mgr, _, notifier := newTestManager(t)

	_, err := mgr.Register(ctx, "gina@example.com", "gina", "S3cret!Phrase")
	require.NoError(t, err)

	send, ok := notifier.last()
	require.True(t, ok)
	token := tokenFromLink(t, send.Link)

	require.NoError(t, mgr.ConfirmEmail(ctx, "gina@example.com", token))
	require.NoError(t, mgr.ConfirmEmail(ctx, "gina@example.com", token))
}

func TestConfirmEmailDoesNotLeakAccountExistence(t *testing.T) {
	ctx := context.Background()
	mgr, _, notifier := newTestManager(t)

	registerConfirmed(t, mgr, notifier, "helen@example.com", "helen", "S3cret!Phrase")

	errUnknown := mgr.ConfirmEmail(ctx, "ghost@example.com", "bogus-token")
	errBadToken := mgr.ConfirmEmail(ctx, "helen@example.com", "bogus-token")

	assert.True(t, credentials.IsInvalidToken(errUnknown))
	assert.True(t, credentials.IsInvalidToken(errBadToken))
}

func TestForgotPasswordIndistinguishableOutcome(t *testing.T) {
	ctx := context.Background()
	mgr, _, notifier := newTestManager(t)

	registerConfirmed(t, mgr, notifier, "iris@example.com", "iris", "S3cret!Phrase")
	before := notifier.count()

	// existing account: success, one dispatch
	require.NoError(t, mgr.ForgotPassword(ctx, "iris@example.com"))
	assert.Equal(t, before+1, notifier.count())

	// unknown account: same outward response, no dispatch
	require.NoError(t, mgr.ForgotPassword(ctx, "ghost@example.com"))
	assert.Equal(t, before+1, notifier.count())
}

func TestResetPasswordFlow(t *testing.T) {
	ctx := context.Background()
	mgr, store, notifier := newTestManager(t)

	account := registerConfirmed(t, mgr, notifier, "judy@example.com", "judy", "Original!Phrase")

	// lock the account first so the reset provably un-locks it
	for i := 0; i < 5; i++ {
		_, _ = mgr.Login(ctx, "judy", "wrong")
	}
	require.NotNil(t, store.get(account.ID).LockedUntil)

	require.NoError(t, mgr.ForgotPassword(ctx, "judy@example.com"))
	send, ok := notifier.last()
	require.True(t, ok)
	resetToken := tokenFromLink(t, send.Link)

	require.NoError(t, mgr.ResetPassword(ctx, "judy@example.com", resetToken, "Brand*New*Phrase"))

	updated := store.get(account.ID)
	assert.Equal(t, 0, updated.FailedAccessCount)
	assert.Nil(t, updated.LockedUntil)
	assert.NotEqual(t, account.PasswordHash, updated.PasswordHash)

	token, err := mgr.Login(ctx, "judy", "Brand*New*Phrase")
	require.NoError(t, err)
	assert.NotEmpty(t, token)

	_, err = mgr.Login(ctx, "judy", "Original!Phrase")
	assert.True(t, credentials.IsInvalidCredentials(err))
}

func TestResetPasswordRejectsConfirmationToken(t *testing.T) {
	ctx := context.Background()
	mgr, _, notifier := newTestManager(t)

	_, err := mgr.Register(ctx, "kate@example.com", "kate", "S3cret!Phrase")
	require.NoError(t, err)

	send, ok := notifier.last()
	require.True(t, ok)
	confirmToken := tokenFromLink(t, send.Link)

	err = mgr.ResetPassword(ctx, "kate@example.com", confirmToken, "Brand*New*Phrase")
	assert.True(t, credentials.IsInvalidToken(err))
}

func TestConfirmEmailRejectsResetToken(t *testing.T) {
	ctx := context.Background()
	mgr, _, notifier := newTestManager(t)

	registerConfirmed(t, mgr, notifier, "liam@example.com", "liam", "S3cret!Phrase")

	require.NoError(t, mgr.ForgotPassword(ctx, "liam@example.com"))
	send, ok := notifier.last()
	require.True(t, ok)
	resetToken := tokenFromLink(t, send.Link)

	err := mgr.ConfirmEmail(ctx, "liam@example.com", resetToken)
	assert.True(t, credentials.IsInvalidToken(err))
}

func TestResetPasswordAppliesPolicy(t *testing.T) {
	ctx := context.Background()
	mgr, _, notifier := newTestManager(t)

	registerConfirmed(t, mgr, notifier, "mona@example.com", "mona", "S3cret!Phrase")

	require.NoError(t, mgr.ForgotPassword(ctx, "mona@example.com"))
	send, ok := notifier.last()
	require.True(t, ok)
	resetToken := tokenFromLink(t, send.Link)

	err := mgr.ResetPassword(ctx, "mona@example.com", resetToken, "my-password-1")
	require.Error(t, err)
	assert.True(t, credentials.IsWeakPassword(err))
	assert.NotEmpty(t, credentials.PasswordViolations(err))
}

func TestNotifierFailureDoesNotFailRegistration(t *testing.T) {
	ctx := context.Background()
	store := newMemoryStore()

	notifier := new(MockNotifier)
	notifier.On("Send", mock.Anything, mock.Anything, mock.Anything).
		Return(assert.AnError)

	mgr := credentials.NewManager(store, testConfig()).WithNotifier(notifier)

	account, err := mgr.Register(ctx, "nina@example.com", "nina", "S3cret!Phrase")
	require.NoError(t, err)
	require.NotNil(t, account)
	notifier.AssertExpectations(t)
}

// registerConfirmed registers an account and walks it through email
// confirmation so login scenarios start from a confirmed state.
func registerConfirmed(t *testing.T, mgr *credentials.Manager, notifier *captureNotifier, email, username, password string) *credentials.Account {
	t.Helper()
	ctx := context.Background()

	account, err := mgr.Register(ctx, email, username, password)
	require.NoError(t, err)

	send, ok := notifier.last()
	require.True(t, ok)
	require.NoError(t, mgr.ConfirmEmail(ctx, email, tokenFromLink(t, send.Link)))

	account.EmailConfirmed = true
	return account
}

func TestLoginIdentifierIsTrimmedAndCaseInsensitive(t *testing.T) {
	ctx := context.Background()
	mgr, _, notifier := newTestManager(t)

	registerConfirmed(t, mgr, notifier, "oscar@example.com", "Oscar", "S3cret!Phrase")

	token, err := mgr.Login(ctx, "  OSCAR  ", "S3cret!Phrase")
	require.NoError(t, err)
	assert.NotEmpty(t, token)

	if !strings.Contains(token, ".") {
		t.Fatalf("expected a signed token, got %q", token)
	}
}
