package notify

import (
	"context"
	"errors"

	"granaflow/internal/api"
)

// Surface turns an operation error into a notification. Session problems
// stay silent because the auth flow already handles them by sending the
// user home. API rejections show the server's message when it sent one;
// everything else shows fallback. It reports whether a message was sent.
func Surface(ctx context.Context, n Notifier, err error, fallback string) bool {
	if err == nil || n == nil {
		return false
	}
	if errors.Is(err, api.ErrUnavailable) || errors.Is(err, context.Canceled) {
		return false
	}

	detail := fallback
	var apiErr *api.APIError
	if errors.As(err, &apiErr) && apiErr.HasMessage() {
		detail = apiErr.Message
	}
	n.Notify(ctx, New(Error, detail))
	return true
}
