// Package credentials implements an account credential lifecycle: login with
// lockout bookkeeping, registration with email confirmation, and token-gated
// password resets.
//
// Lifecycle manager:
//   - Manager composes a CredentialStore, a TokenService, a Notifier, and a
//     PasswordValidator behind stable interfaces. Every inbound operation
//     (Login, Register, ConfirmEmail, ForgotPassword, ResetPassword) runs
//     through the manager, which applies the login state machine and persists
//     account mutations through CredentialStore.AtomicUpdate so lockout
//     counters survive concurrent requests against the same account.
//
// Tokens:
//   - Confirmation and reset tokens are single purpose, account bound, and
//     expiring. A PasswordReset token never satisfies an EmailConfirmation
//     check and vice versa. Tokens travel out of band through the Notifier;
//     operation responses never expose the token value.
//
// Error taxonomy:
//   - Every user-reachable outcome terminates in one of the package-level
//     rich errors (ErrInvalidCredentials, ErrAccountLocked, and friends).
//     Store and notifier connectivity failures are wrapped as internal
//     errors without detail leakage.
package credentials
