package gateway

import (
	"context"
	"log/slog"
)

// SessionExpiredQuery is appended to the login path when a session ends
// without the user asking for it.
const SessionExpiredQuery = "session=expired"

// Navigator sends the user to the login entry point.
type Navigator interface {
	Navigate(ctx context.Context, target string)
}

type NavigatorFunc func(ctx context.Context, target string)

func (f NavigatorFunc) Navigate(ctx context.Context, target string) { f(ctx, target) }

type logNavigator struct {
	log *slog.Logger
}

func (n logNavigator) Navigate(_ context.Context, target string) {
	n.log.Warn("navigate", "target", target)
}
