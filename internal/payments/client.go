package payments

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

var logger = zerolog.New(os.Stdout).With().Timestamp().Str("component", "payments").Logger()

// ProviderError wraps any failure talking to the payment provider. It is
// surfaced to the caller unmasked; this layer never retries on its own.
type ProviderError struct {
	Op         string
	StatusCode int
	Err        error
}

func (e *ProviderError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("payment provider %s failed: status %d", e.Op, e.StatusCode)
	}
	return fmt.Sprintf("payment provider %s failed: %v", e.Op, e.Err)
}

func (e *ProviderError) Unwrap() error { return e.Err }

// Intent is the provider's handle for an authorized-but-uncaptured payment.
// ClientSecret goes back to the browser to complete the charge; the id stays
// server-side for reconciliation.
type Intent struct {
	ID           string `json:"id"`
	ClientSecret string `json:"client_secret"`
}

// IntentClient creates payment intents against a Stripe-compatible HTTP API.
// It never moves money itself and persists nothing; the webhook reconciler
// owns the confirmation side effects.
type IntentClient struct {
	baseURL    string
	secretKey  string
	httpClient *http.Client
}

func NewIntentClient(baseURL, secretKey string, timeout time.Duration) *IntentClient {
	return &IntentClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		secretKey:  secretKey,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// CreateIntent converts the major-unit amount and requests an intent. The
// order number must be present in metadata so the webhook can correlate the
// asynchronous result; it doubles as the idempotency key, so a retried call
// for the same order cannot mint a second intent.
func (c *IntentClient) CreateIntent(ctx context.Context, amount float64, currency string, metadata map[string]string) (*Intent, error) {
	minorUnits, err := ToMinorUnits(amount)
	if err != nil {
		return nil, err
	}

	form := url.Values{}
	form.Set("amount", strconv.FormatInt(minorUnits, 10))
	form.Set("currency", strings.ToLower(currency))
	for k, v := range metadata {
		form.Set(fmt.Sprintf("metadata[%s]", k), v)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/v1/payment_intents", strings.NewReader(form.Encode()))
	if err != nil {
		return nil, &ProviderError{Op: "create_intent", Err: err}
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Authorization", "Bearer "+c.secretKey)
	if orderNumber := metadata[MetadataOrderNumber]; orderNumber != "" {
		req.Header.Set("Idempotency-Key", "intent-"+orderNumber)
	}

	// Logged before the call so a mid-flight network failure can still be
	// correlated with the provider's records.
	logger.Info().
		Str("order", metadata[MetadataOrderNumber]).
		Int64("amountMinor", minorUnits).
		Str("currency", currency).
		Msg("creating payment intent")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		logger.Error().Err(err).Str("order", metadata[MetadataOrderNumber]).Msg("intent request failed")
		return nil, &ProviderError{Op: "create_intent", Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, &ProviderError{Op: "create_intent", Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		logger.Error().
			Int("status", resp.StatusCode).
			Str("order", metadata[MetadataOrderNumber]).
			Msg("provider rejected intent")
		return nil, &ProviderError{Op: "create_intent", StatusCode: resp.StatusCode}
	}

	var intent Intent
	if err := json.Unmarshal(body, &intent); err != nil {
		return nil, &ProviderError{Op: "create_intent", Err: err}
	}
	if intent.ID == "" || intent.ClientSecret == "" {
		return nil, &ProviderError{Op: "create_intent", Err: fmt.Errorf("incomplete intent response")}
	}

	logger.Info().Str("intent", intent.ID).Str("order", metadata[MetadataOrderNumber]).Msg("payment intent created")
	return &intent, nil
}
