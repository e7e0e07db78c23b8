package credentials

import (
	"context"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	goerrors "github.com/goliatone/go-errors"
)

type InitializePasswordResetMessage struct {
	Email string `json:"email" example:"pepe.rone@example.com" doc:"Account email."`
}

func (p InitializePasswordResetMessage) Type() string { return "credentials.password_reset" }

func (p InitializePasswordResetMessage) Validate() *goerrors.Error {
	return goerrors.ValidateWithOzzo(func() error {
		return validation.ValidateStruct(&p,
			validation.Field(&p.Email, validation.Required, is.Email),
		)
	}, "invalid password reset request")
}

// InitializePasswordResetHandler starts the forgot-password flow. It reports
// the same outcome whether or not the email matches an account so callers
// cannot enumerate accounts through it.
type InitializePasswordResetHandler struct {
	manager *Manager
}

func NewInitializePasswordResetHandler(manager *Manager) *InitializePasswordResetHandler {
	return &InitializePasswordResetHandler{manager: manager}
}

func (h *InitializePasswordResetHandler) Execute(ctx context.Context, event InitializePasswordResetMessage) error {
	select {
	case <-ctx.Done():
		return goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled during password reset initialization",
		)
	default:
		return h.execute(ctx, event)
	}
}

func (h *InitializePasswordResetHandler) execute(ctx context.Context, event InitializePasswordResetMessage) error {
	if err := event.Validate(); err != nil {
		return err
	}

	if err := h.manager.ForgotPassword(ctx, event.Email); err != nil {
		var richErr *goerrors.Error
		if goerrors.As(err, &richErr) {
			return richErr
		}
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to initialize password reset")
	}

	return nil
}
