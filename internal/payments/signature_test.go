package payments

import (
	"strings"
	"testing"
	"time"
)

const testWebhookSecret = "whsec_test_1234"

func TestVerifySignatureAcceptsValidHeader(t *testing.T) {
	payload := []byte(`{"id":"evt_1","type":"payment_intent.succeeded"}`)
	now := time.Now()

	header := Sign(payload, testWebhookSecret, now)
	if err := VerifySignature(payload, header, testWebhookSecret, DefaultTolerance, now); err != nil {
		t.Fatalf("expected valid signature, got %v", err)
	}
}

func TestVerifySignatureRejectsTamperedBody(t *testing.T) {
	payload := []byte(`{"id":"evt_1","amount":5940}`)
	now := time.Now()
	header := Sign(payload, testWebhookSecret, now)

	tampered := []byte(`{"id":"evt_1","amount":1}`)
	if err := VerifySignature(tampered, header, testWebhookSecret, DefaultTolerance, now); err != ErrInvalidSignature {
		t.Fatalf("expected ErrInvalidSignature for tampered body, got %v", err)
	}
}

func TestVerifySignatureRejectsWrongSecret(t *testing.T) {
	payload := []byte(`{"id":"evt_1"}`)
	now := time.Now()
	header := Sign(payload, "whsec_other", now)

	if err := VerifySignature(payload, header, testWebhookSecret, DefaultTolerance, now); err != ErrInvalidSignature {
		t.Fatalf("expected ErrInvalidSignature for wrong secret, got %v", err)
	}
}

func TestVerifySignatureRejectsStaleTimestamp(t *testing.T) {
	payload := []byte(`{"id":"evt_1"}`)
	signedAt := time.Now().Add(-time.Hour)
	header := Sign(payload, testWebhookSecret, signedAt)

	if err := VerifySignature(payload, header, testWebhookSecret, DefaultTolerance, time.Now()); err != ErrInvalidSignature {
		t.Fatalf("expected ErrInvalidSignature for stale timestamp, got %v", err)
	}
}

func TestVerifySignatureRejectsMalformedHeader(t *testing.T) {
	payload := []byte(`{}`)
	for _, header := range []string{"", "garbage", "t=abc,v1=00", "v1=00", "t=123"} {
		if err := VerifySignature(payload, header, testWebhookSecret, DefaultTolerance, time.Now()); err != ErrInvalidSignature {
			t.Errorf("header %q: expected ErrInvalidSignature, got %v", header, err)
		}
	}
}

func TestVerifySignatureAcceptsAnyOfMultipleV1(t *testing.T) {
	payload := []byte(`{"id":"evt_2"}`)
	now := time.Now()

	valid := Sign(payload, testWebhookSecret, now)
	// Prepend a bogus v1 entry; the real one should still match.
	parts := strings.SplitN(valid, ",", 2)
	header := parts[0] + ",v1=deadbeef," + parts[1]

	if err := VerifySignature(payload, header, testWebhookSecret, DefaultTolerance, now); err != nil {
		t.Fatalf("expected one matching v1 candidate to verify, got %v", err)
	}
}
