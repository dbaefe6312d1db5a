package models

import (
	"strings"
	"testing"
)

func TestOrderStatusLegalTransitions(t *testing.T) {
	legal := []struct {
		from OrderStatus
		to   OrderStatus
	}{
		{OrderStatusPending, OrderStatusProcessing},
		{OrderStatusPending, OrderStatusCancelled},
		{OrderStatusProcessing, OrderStatusShipped},
		{OrderStatusProcessing, OrderStatusCancelled},
		{OrderStatusShipped, OrderStatusDelivered},
	}
	for _, tc := range legal {
		if !tc.from.CanTransitionTo(tc.to) {
			t.Errorf("expected %s -> %s to be legal", tc.from, tc.to)
		}
	}
}

func TestOrderStatusIllegalTransitions(t *testing.T) {
	illegal := []struct {
		from OrderStatus
		to   OrderStatus
	}{
		{OrderStatusShipped, OrderStatusPending},
		{OrderStatusDelivered, OrderStatusProcessing},
		{OrderStatusDelivered, OrderStatusCancelled},
		{OrderStatusShipped, OrderStatusCancelled},
		{OrderStatusCancelled, OrderStatusPending},
		{OrderStatusPending, OrderStatusShipped},
		{OrderStatusPending, OrderStatusDelivered},
	}
	for _, tc := range illegal {
		if tc.from.CanTransitionTo(tc.to) {
			t.Errorf("expected %s -> %s to be rejected", tc.from, tc.to)
		}
	}
}

func TestTerminalStates(t *testing.T) {
	if !OrderStatusDelivered.Terminal() || !OrderStatusCancelled.Terminal() {
		t.Fatal("delivered and cancelled must be terminal")
	}
	if OrderStatusPending.Terminal() || OrderStatusProcessing.Terminal() || OrderStatusShipped.Terminal() {
		t.Fatal("pending, processing and shipped must not be terminal")
	}
}

func TestParseOrderStatus(t *testing.T) {
	if _, ok := ParseOrderStatus("processing"); !ok {
		t.Fatal("processing should parse")
	}
	if _, ok := ParseOrderStatus("refunded"); ok {
		t.Fatal("refunded is not a known status")
	}
}

func TestIllegalTransitionErrorMessageNamesBothStates(t *testing.T) {
	err := IllegalTransitionError{From: OrderStatusShipped, To: OrderStatusPending}
	msg := err.Error()
	if msg == "" {
		t.Fatal("empty error message")
	}
	for _, want := range []string{"shipped", "pending"} {
		if !strings.Contains(msg, want) {
			t.Errorf("error %q should mention %q", msg, want)
		}
	}
}
