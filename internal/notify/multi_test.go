package notify

import (
	"context"
	"sync"
	"testing"
	"time"

	"fabrix-backend/internal/models"
)

type recordingDispatcher struct {
	mu    sync.Mutex
	calls []EventKind
	done  chan struct{}
}

func (r *recordingDispatcher) Notify(ctx context.Context, kind EventKind, order *models.Order) {
	r.mu.Lock()
	r.calls = append(r.calls, kind)
	r.mu.Unlock()
	select {
	case r.done <- struct{}{}:
	default:
	}
}

type panickyDispatcher struct{}

func (panickyDispatcher) Notify(ctx context.Context, kind EventKind, order *models.Order) {
	panic("boom")
}

func TestMultiDeliversToAllTargets(t *testing.T) {
	rec := &recordingDispatcher{done: make(chan struct{}, 1)}
	m := NewMulti(rec)

	m.Notify(context.Background(), OrderConfirmed, &models.Order{OrderNumber: "FBX-20260315-ABC123"})

	select {
	case <-rec.done:
	case <-time.After(2 * time.Second):
		t.Fatal("dispatcher was not invoked")
	}

	rec.mu.Lock()
	defer rec.mu.Unlock()
	if len(rec.calls) != 1 || rec.calls[0] != OrderConfirmed {
		t.Fatalf("unexpected calls: %v", rec.calls)
	}
}

func TestMultiSurvivesPanickingTarget(t *testing.T) {
	rec := &recordingDispatcher{done: make(chan struct{}, 1)}
	m := NewMulti(panickyDispatcher{}, rec)

	m.Notify(context.Background(), OrderShipped, &models.Order{OrderNumber: "FBX-20260315-XYZ789"})

	select {
	case <-rec.done:
	case <-time.After(2 * time.Second):
		t.Fatal("second dispatcher should still run after the first panics")
	}
}
