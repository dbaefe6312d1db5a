package payments

import "encoding/json"

// Event types the reconciler acts on. Anything else is acknowledged and
// ignored so the provider stops retrying.
const (
	EventPaymentSucceeded = "payment_intent.succeeded"
	EventPaymentFailed    = "payment_intent.payment_failed"
)

// MetadataOrderNumber is the metadata key that carries the order number from
// intent creation back through the webhook.
const MetadataOrderNumber = "orderNumber"

type Event struct {
	ID   string    `json:"id"`
	Type string    `json:"type"`
	Data EventData `json:"data"`
}

type EventData struct {
	Object IntentObject `json:"object"`
}

// IntentObject is the payment-intent snapshot embedded in a webhook event.
type IntentObject struct {
	ID        string            `json:"id"`
	Amount    int64             `json:"amount"`
	Currency  string            `json:"currency"`
	Status    string            `json:"status"`
	Metadata  map[string]string `json:"metadata"`
	CardBrand string            `json:"card_brand,omitempty"`
	CardLast4 string            `json:"card_last4,omitempty"`
}

// OrderNumber extracts the correlating order number, empty when the intent
// was created without it.
func (e *Event) OrderNumber() string {
	if e.Data.Object.Metadata == nil {
		return ""
	}
	return e.Data.Object.Metadata[MetadataOrderNumber]
}

// ParseEvent decodes a verified payload. Verification must happen on the raw
// bytes before this is called.
func ParseEvent(payload []byte) (*Event, error) {
	var event Event
	if err := json.Unmarshal(payload, &event); err != nil {
		return nil, err
	}
	return &event, nil
}
