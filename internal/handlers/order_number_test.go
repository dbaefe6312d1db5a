package handlers

import (
	"regexp"
	"testing"
	"time"
)

var orderNumberPattern = regexp.MustCompile(`^FBX-\d{8}-[0-9A-Z]{6}$`)

func TestGenerateOrderNumberFormat(t *testing.T) {
	now := time.Date(2026, 3, 15, 10, 30, 0, 0, time.UTC)
	for i := 0; i < 100; i++ {
		number, err := generateOrderNumber(now)
		if err != nil {
			t.Fatalf("generateOrderNumber returned error: %v", err)
		}
		if !orderNumberPattern.MatchString(number) {
			t.Fatalf("order number %q does not match canonical format", number)
		}
		if number[4:12] != "20260315" {
			t.Fatalf("order number %q does not embed the creation date", number)
		}
	}
}

func TestGenerateOrderNumberEntropy(t *testing.T) {
	now := time.Now()
	seen := make(map[string]bool)
	for i := 0; i < 500; i++ {
		number, err := generateOrderNumber(now)
		if err != nil {
			t.Fatal(err)
		}
		if seen[number] {
			// 500 draws from 36^6 collide with probability well under 1e-4;
			// a hit here almost certainly means broken randomness.
			t.Fatalf("duplicate order number generated: %s", number)
		}
		seen[number] = true
	}
}
