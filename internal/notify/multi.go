package notify

import (
	"context"
	"time"

	"fabrix-backend/internal/models"
)

// Multi fans a notification out to every configured channel. Dispatch runs in
// a detached goroutine with its own deadline so a slow channel can never hold
// up the request that triggered it.
type Multi struct {
	targets []Dispatcher
}

func NewMulti(targets ...Dispatcher) *Multi {
	return &Multi{targets: targets}
}

func (m *Multi) Notify(ctx context.Context, kind EventKind, order *models.Order) {
	snapshot := *order
	go func() {
		dispatchCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()

		for _, target := range m.targets {
			func(d Dispatcher) {
				defer func() {
					if r := recover(); r != nil {
						logger.Error().Interface("panic", r).Str("order", snapshot.OrderNumber).Msg("dispatcher panicked")
					}
				}()
				d.Notify(dispatchCtx, kind, &snapshot)
			}(target)
		}
	}()
}
