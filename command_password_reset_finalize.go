package credentials

import (
	"context"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	goerrors "github.com/goliatone/go-errors"
)

type FinalizePasswordResetMessage struct {
	Email           string `json:"email" example:"pepe.rone@example.com" doc:"Account email."`
	Token           string `json:"token" doc:"Password reset token from the emailed link."`
	Password        string `json:"password" doc:"New password."`
	ConfirmPassword string `json:"confirm_password" doc:"New password, repeated."`
}

func (p FinalizePasswordResetMessage) Type() string { return "credentials.password_reset_finalize" }

func (p FinalizePasswordResetMessage) Validate() *goerrors.Error {
	return goerrors.ValidateWithOzzo(func() error {
		return validation.ValidateStruct(&p,
			validation.Field(&p.Email, validation.Required, is.Email),
			validation.Field(&p.Token, validation.Required),
			validation.Field(&p.Password, validation.Required, validation.Length(8, 100)),
			validation.Field(
				&p.ConfirmPassword,
				validation.Required,
				validation.By(ValidateStringEquals(p.Password)),
			),
		)
	}, "invalid password reset payload")
}

type FinalizePasswordResetHandler struct {
	manager *Manager
	logger  Logger
}

// NewFinalizePasswordResetHandler creates a handler with sane defaults.
func NewFinalizePasswordResetHandler(manager *Manager) *FinalizePasswordResetHandler {
	return &FinalizePasswordResetHandler{
		manager: manager,
		logger:  defLogger{},
	}
}

// WithLogger overrides the logger used by the handler.
func (h *FinalizePasswordResetHandler) WithLogger(logger Logger) *FinalizePasswordResetHandler {
	if logger != nil {
		h.logger = logger
	}
	return h
}

func (h *FinalizePasswordResetHandler) Execute(ctx context.Context, event FinalizePasswordResetMessage) error {
	select {
	case <-ctx.Done():
		return goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled during password reset finalization",
		)
	default:
		return h.execute(ctx, event)
	}
}

func (h *FinalizePasswordResetHandler) execute(ctx context.Context, event FinalizePasswordResetMessage) error {
	if err := event.Validate(); err != nil {
		return err
	}

	if err := h.manager.ResetPassword(ctx, event.Email, event.Token, event.Password); err != nil {
		var richErr *goerrors.Error
		if goerrors.As(err, &richErr) {
			return richErr
		}
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to finalize password reset")
	}

	h.logger.Info("password reset finalized", "email", event.Email)

	return nil
}
