package credentials

import (
	"context"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	goerrors "github.com/goliatone/go-errors"
)

type ConfirmEmailMessage struct {
	Email string `json:"email" example:"pepe.rone@example.com" doc:"Account email."`
	Token string `json:"token" doc:"Confirmation token from the emailed link."`
}

func (p ConfirmEmailMessage) Type() string { return "credentials.confirm_email" }

func (p ConfirmEmailMessage) Validate() *goerrors.Error {
	return goerrors.ValidateWithOzzo(func() error {
		return validation.ValidateStruct(&p,
			validation.Field(&p.Email, validation.Required, is.Email),
			validation.Field(&p.Token, validation.Required),
		)
	}, "invalid email confirmation payload")
}

type ConfirmEmailHandler struct {
	manager *Manager
}

func NewConfirmEmailHandler(manager *Manager) *ConfirmEmailHandler {
	return &ConfirmEmailHandler{manager: manager}
}

func (h *ConfirmEmailHandler) Execute(ctx context.Context, event ConfirmEmailMessage) error {
	select {
	case <-ctx.Done():
		return goerrors.Wrap(ctx.Err(), goerrors.CategoryOperation, "context cancelled during email confirmation")
	default:
		return h.execute(ctx, event)
	}
}

func (h *ConfirmEmailHandler) execute(ctx context.Context, event ConfirmEmailMessage) error {
	if err := event.Validate(); err != nil {
		return err
	}

	if err := h.manager.ConfirmEmail(ctx, event.Email, event.Token); err != nil {
		var richErr *goerrors.Error
		if goerrors.As(err, &richErr) {
			return richErr
		}
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to confirm email")
	}

	return nil
}
