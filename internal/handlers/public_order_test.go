package handlers

import (
	"context"
	"errors"
	"testing"

	"fabrix-backend/internal/models"
	"fabrix-backend/internal/store"
)

func TestCreateWithUniqueNumberRetriesOnCollision(t *testing.T) {
	var numbers []string
	created, err := createWithUniqueNumber(context.Background(), func(ctx context.Context, number string) (*models.Order, error) {
		numbers = append(numbers, number)
		if len(numbers) < 3 {
			return nil, store.ErrDuplicateOrderNumber
		}
		return &models.Order{OrderNumber: number}, nil
	})
	if err != nil {
		t.Fatalf("createWithUniqueNumber returned error: %v", err)
	}
	if len(numbers) != 3 {
		t.Fatalf("attempts = %d, want 3", len(numbers))
	}
	if numbers[0] == numbers[1] || numbers[1] == numbers[2] {
		t.Error("each attempt must draw a fresh order number")
	}
	for _, n := range numbers {
		if !orderNumberPattern.MatchString(n) {
			t.Errorf("order number %q does not match the canonical format", n)
		}
	}
	if created.OrderNumber != numbers[2] {
		t.Fatalf("created under %q, want the last drawn number %q", created.OrderNumber, numbers[2])
	}
}

func TestCreateWithUniqueNumberSurfacesExhaustedCollisions(t *testing.T) {
	attempts := 0
	_, err := createWithUniqueNumber(context.Background(), func(ctx context.Context, number string) (*models.Order, error) {
		attempts++
		return nil, store.ErrDuplicateOrderNumber
	})
	if !errors.Is(err, store.ErrDuplicateOrderNumber) {
		t.Fatalf("err = %v, want ErrDuplicateOrderNumber", err)
	}
	if attempts != createOrderRetries {
		t.Fatalf("attempts = %d, want %d", attempts, createOrderRetries)
	}
}

func TestCreateWithUniqueNumberStopsOnOtherErrors(t *testing.T) {
	boom := errors.New("connection reset")
	attempts := 0
	_, err := createWithUniqueNumber(context.Background(), func(ctx context.Context, number string) (*models.Order, error) {
		attempts++
		return nil, boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("err = %v, want the placement error", err)
	}
	if attempts != 1 {
		t.Fatalf("attempts = %d, want 1 (no retry on non-duplicate errors)", attempts)
	}
}
