// Package notify delivers best-effort order notifications. Dispatch happens
// after the state change is committed and failures are logged, never
// propagated: a dead mail server cannot fail or roll back an order update.
package notify

import (
	"context"
	"os"

	"github.com/rs/zerolog"

	"fabrix-backend/internal/models"
)

var logger = zerolog.New(os.Stdout).With().Timestamp().Str("component", "notify").Logger()

type EventKind string

const (
	OrderConfirmed EventKind = "order.confirmed"
	OrderShipped   EventKind = "order.shipped"
)

// Dispatcher is fire-and-forget: implementations must swallow their own
// errors and return promptly.
type Dispatcher interface {
	Notify(ctx context.Context, kind EventKind, order *models.Order)
}

// Noop is used when no notification channel is configured.
type Noop struct{}

func (Noop) Notify(ctx context.Context, kind EventKind, order *models.Order) {
	logger.Debug().Str("kind", string(kind)).Str("order", order.OrderNumber).Msg("notification dropped (no channel configured)")
}
