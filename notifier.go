package credentials

import (
	"context"
)

// LinkBuilder renders the out-of-band link embedded in a notification. The
// default produces relative paths the hosting application can prefix.
type LinkBuilder func(purpose TokenPurpose, token, email string) string

func defaultLinkBuilder(purpose TokenPurpose, token, email string) string {
	switch purpose {
	case PurposeEmailConfirmation:
		return "/confirm-email?token=" + token + "&email=" + email
	case PurposePasswordReset:
		return "/password-reset?token=" + token + "&email=" + email
	default:
		return "/"
	}
}

// logNotifier writes the notification through the logger. It stands in for a
// real mail transport during development and tests.
type logNotifier struct {
	logger Logger
}

// NewLogNotifier returns a Notifier that logs the link instead of sending it.
func NewLogNotifier(logger Logger) Notifier {
	if logger == nil {
		logger = defLogger{}
	}
	return logNotifier{logger: logger}
}

func (n logNotifier) Send(_ context.Context, email, link string) error {
	n.logger.Info("notification dispatch", "to", email, "link", link)
	return nil
}

type noopNotifier struct{}

func (noopNotifier) Send(context.Context, string, string) error { return nil }

func normalizeNotifier(n Notifier) Notifier {
	if n == nil {
		return noopNotifier{}
	}
	return n
}
