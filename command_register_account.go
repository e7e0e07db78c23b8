package credentials

import (
	"context"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	goerrors "github.com/goliatone/go-errors"
)

type RegisterAccountMessage struct {
	Email           string `json:"email"`
	Username        string `json:"username"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirm_password"`
	OnResponse      func(account *Account)
}

func (e RegisterAccountMessage) Type() string { return "credentials.register" }

// Validate runs payload validation. The password/confirm mismatch is caught
// here, before the lifecycle manager is invoked.
func (e RegisterAccountMessage) Validate() *goerrors.Error {
	return goerrors.ValidateWithOzzo(func() error {
		return validation.ValidateStruct(&e,
			validation.Field(&e.Email, validation.Required, validation.Length(6, 100), is.Email),
			validation.Field(&e.Username, validation.Length(1, 200)),
			validation.Field(&e.Password, validation.Required, validation.Length(8, 100)),
			validation.Field(
				&e.ConfirmPassword,
				validation.Required,
				validation.By(ValidateStringEquals(e.Password)),
			),
		)
	}, "invalid registration payload")
}

type RegisterAccountHandler struct {
	manager *Manager
}

func NewRegisterAccountHandler(manager *Manager) *RegisterAccountHandler {
	return &RegisterAccountHandler{manager: manager}
}

func (h *RegisterAccountHandler) Execute(ctx context.Context, event RegisterAccountMessage) error {
	select {
	case <-ctx.Done():
		return goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled during account registration",
		)
	default:
		return h.execute(ctx, event)
	}
}

func (h *RegisterAccountHandler) execute(ctx context.Context, event RegisterAccountMessage) error {
	if err := event.Validate(); err != nil {
		return err
	}

	account, err := h.manager.Register(ctx, event.Email, event.Username, event.Password)
	if err != nil {
		var richErr *goerrors.Error
		if goerrors.As(err, &richErr) {
			return richErr
		}
		return goerrors.Wrap(err, goerrors.CategoryInternal, "account registration failed")
	}

	if event.OnResponse != nil {
		event.OnResponse(account)
	}

	return nil
}
