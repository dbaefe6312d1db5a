package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"fabrix-backend/internal/models"
	"fabrix-backend/internal/notify"
	"fabrix-backend/internal/payments"
	"fabrix-backend/internal/store"
)

const testSecret = "whsec_test_secret"

// fakeReconciler mimics the order store's conditional semantics in memory.
type fakeReconciler struct {
	mu     sync.Mutex
	orders map[string]*models.Order
	notes  []string
}

func newFakeReconciler(orders ...*models.Order) *fakeReconciler {
	f := &fakeReconciler{orders: make(map[string]*models.Order)}
	for _, o := range orders {
		f.orders[o.OrderNumber] = o
	}
	return f
}

func (f *fakeReconciler) MarkPaid(ctx context.Context, orderNumber string, ref store.PaymentReference) (*models.Order, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	order, ok := f.orders[orderNumber]
	if !ok {
		return nil, false, store.ErrNotFound
	}
	if order.Payment.IsPaid {
		return order, false, nil
	}
	order.Payment.IsPaid = true
	order.Payment.PaidAt = &ref.PaidAt
	order.Payment.TransactionID = ref.TransactionID
	order.Payment.CardBrand = ref.CardBrand
	order.Payment.CardLast4 = ref.CardLast4
	order.Version++
	return order, true, nil
}

func (f *fakeReconciler) UpdateStatus(ctx context.Context, id primitive.ObjectID, from, to models.OrderStatus, extra bson.M) (*models.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, order := range f.orders {
		if order.ID == id {
			if order.Status != from {
				return nil, store.ErrConcurrentModification
			}
			order.Status = to
			order.Version++
			return order, nil
		}
	}
	return nil, store.ErrNotFound
}

func (f *fakeReconciler) AppendNote(ctx context.Context, orderNumber, note string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.notes = append(f.notes, note)
	return nil
}

// flakyReconciler fails MarkPaid a set number of times before delegating,
// standing in for a store that hits a transient error mid-reconciliation.
type flakyReconciler struct {
	*fakeReconciler
	failures int
}

func (f *flakyReconciler) MarkPaid(ctx context.Context, orderNumber string, ref store.PaymentReference) (*models.Order, bool, error) {
	if f.failures > 0 {
		f.failures--
		return nil, false, errors.New("write conflict")
	}
	return f.fakeReconciler.MarkPaid(ctx, orderNumber, ref)
}

type countingDispatcher struct {
	mu    sync.Mutex
	kinds []notify.EventKind
}

func (d *countingDispatcher) Notify(ctx context.Context, kind notify.EventKind, order *models.Order) {
	d.mu.Lock()
	d.kinds = append(d.kinds, kind)
	d.mu.Unlock()
}

func (d *countingDispatcher) count() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.kinds)
}

func pendingOrder(number string) *models.Order {
	return &models.Order{
		ID:          primitive.NewObjectID(),
		OrderNumber: number,
		Status:      models.OrderStatusPending,
		Payment:     models.OrderPayment{Subtotal: 50.00, Shipping: 5.00, Tax: 4.40, Total: 59.40},
		Customer:    models.OrderCustomer{FirstName: "Ada", LastName: "Lovelace", Email: "ada@example.com"},
	}
}

func successEvent(eventID, orderNumber string) []byte {
	payload, _ := json.Marshal(map[string]interface{}{
		"id":   eventID,
		"type": payments.EventPaymentSucceeded,
		"data": map[string]interface{}{
			"object": map[string]interface{}{
				"id":         "pi_123",
				"amount":     5940,
				"currency":   "usd",
				"status":     "succeeded",
				"metadata":   map[string]string{payments.MetadataOrderNumber: orderNumber},
				"card_brand": "visa",
				"card_last4": "4242",
			},
		},
	})
	return payload
}

func deliverWebhook(t *testing.T, handler gin.HandlerFunc, payload []byte, signature string) *httptest.ResponseRecorder {
	t.Helper()
	gin.SetMode(gin.TestMode)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest("POST", "/payments/webhook", bytes.NewReader(payload))
	if signature != "" {
		c.Request.Header.Set(webhookSignatureHeader, signature)
	}
	handler(c)
	return w
}

func TestWebhookMarksOrderPaidAndProcessing(t *testing.T) {
	order := pendingOrder("FBX-20260315-AAAAAA")
	rec := newFakeReconciler(order)
	dispatcher := &countingDispatcher{}
	handler := PaymentWebhook(rec, testSecret, payments.NewMemoryDeduper(), dispatcher)

	payload := successEvent("evt_1", order.OrderNumber)
	w := deliverWebhook(t, handler, payload, payments.Sign(payload, testSecret, time.Now()))

	if w.Code != 200 {
		t.Fatalf("status = %d, want 200 (body %s)", w.Code, w.Body.String())
	}
	if !order.Payment.IsPaid {
		t.Fatal("order should be marked paid")
	}
	if order.Payment.TransactionID != "pi_123" {
		t.Fatalf("transactionId = %q, want pi_123", order.Payment.TransactionID)
	}
	if order.Status != models.OrderStatusProcessing {
		t.Fatalf("status = %s, want processing", order.Status)
	}
	if dispatcher.count() != 1 {
		t.Fatalf("notifications = %d, want exactly 1", dispatcher.count())
	}
}

func TestWebhookReplayIsIdempotent(t *testing.T) {
	order := pendingOrder("FBX-20260315-BBBBBB")
	rec := newFakeReconciler(order)
	dispatcher := &countingDispatcher{}
	handler := PaymentWebhook(rec, testSecret, payments.NewMemoryDeduper(), dispatcher)

	payload := successEvent("evt_2", order.OrderNumber)
	sig := payments.Sign(payload, testSecret, time.Now())

	for i := 0; i < 3; i++ {
		if w := deliverWebhook(t, handler, payload, sig); w.Code != 200 {
			t.Fatalf("delivery %d: status = %d", i, w.Code)
		}
	}

	if !order.Payment.IsPaid || order.Status != models.OrderStatusProcessing {
		t.Fatal("replays must leave the order paid and processing")
	}
	if dispatcher.count() != 1 {
		t.Fatalf("notifications = %d, want exactly 1 across replays", dispatcher.count())
	}
}

func TestWebhookReplayWithFreshEventIDStillNoOp(t *testing.T) {
	// Same logical payment redelivered under a new event id: the dedup
	// misses, the isPaid guard must still hold.
	order := pendingOrder("FBX-20260315-CCCCCC")
	rec := newFakeReconciler(order)
	dispatcher := &countingDispatcher{}
	handler := PaymentWebhook(rec, testSecret, payments.NewMemoryDeduper(), dispatcher)

	for _, id := range []string{"evt_3a", "evt_3b"} {
		payload := successEvent(id, order.OrderNumber)
		if w := deliverWebhook(t, handler, payload, payments.Sign(payload, testSecret, time.Now())); w.Code != 200 {
			t.Fatalf("event %s: status = %d", id, w.Code)
		}
	}

	if dispatcher.count() != 1 {
		t.Fatalf("notifications = %d, want exactly 1", dispatcher.count())
	}
}

func TestWebhookRedeliveryAfterStoreFailureReconciles(t *testing.T) {
	// A transient store failure answers 500 so the provider redelivers. The
	// redelivery, carrying the same event id, must be processed rather than
	// dismissed as a duplicate.
	order := pendingOrder("FBX-20260315-FFFFFF")
	rec := &flakyReconciler{fakeReconciler: newFakeReconciler(order), failures: 1}
	dispatcher := &countingDispatcher{}
	handler := PaymentWebhook(rec, testSecret, payments.NewMemoryDeduper(), dispatcher)

	payload := successEvent("evt_8", order.OrderNumber)
	sig := payments.Sign(payload, testSecret, time.Now())

	if w := deliverWebhook(t, handler, payload, sig); w.Code != 500 {
		t.Fatalf("first delivery: status = %d, want 500 (body %s)", w.Code, w.Body.String())
	}
	if order.Payment.IsPaid {
		t.Fatal("failed delivery must not mark the order paid")
	}
	if dispatcher.count() != 0 {
		t.Fatal("failed delivery must not trigger notifications")
	}

	if w := deliverWebhook(t, handler, payload, sig); w.Code != 200 {
		t.Fatalf("redelivery: status = %d, want 200 (body %s)", w.Code, w.Body.String())
	}
	if !order.Payment.IsPaid || order.Status != models.OrderStatusProcessing {
		t.Fatal("redelivery must leave the order paid and processing")
	}
	if dispatcher.count() != 1 {
		t.Fatalf("notifications = %d, want exactly 1", dispatcher.count())
	}
}

func TestWebhookRejectsTamperedBodyWithoutMutation(t *testing.T) {
	order := pendingOrder("FBX-20260315-DDDDDD")
	rec := newFakeReconciler(order)
	dispatcher := &countingDispatcher{}
	handler := PaymentWebhook(rec, testSecret, payments.NewMemoryDeduper(), dispatcher)

	payload := successEvent("evt_4", order.OrderNumber)
	sig := payments.Sign(payload, testSecret, time.Now())
	tampered := bytes.Replace(payload, []byte("5940"), []byte("1"), 1)

	w := deliverWebhook(t, handler, tampered, sig)
	if w.Code != 400 {
		t.Fatalf("status = %d, want 400", w.Code)
	}
	if order.Payment.IsPaid || order.Status != models.OrderStatusPending {
		t.Fatal("tampered event must not alter the order")
	}
	if dispatcher.count() != 0 {
		t.Fatal("tampered event must not trigger notifications")
	}
}

func TestWebhookAcksUnknownEventType(t *testing.T) {
	rec := newFakeReconciler()
	handler := PaymentWebhook(rec, testSecret, payments.NewMemoryDeduper(), &countingDispatcher{})

	payload := []byte(`{"id":"evt_5","type":"charge.refund.updated","data":{"object":{}}}`)
	w := deliverWebhook(t, handler, payload, payments.Sign(payload, testSecret, time.Now()))
	if w.Code != 200 {
		t.Fatalf("unknown event types must be acknowledged, got %d", w.Code)
	}
}

func TestWebhookAcksUnmatchedOrder(t *testing.T) {
	rec := newFakeReconciler()
	dispatcher := &countingDispatcher{}
	handler := PaymentWebhook(rec, testSecret, payments.NewMemoryDeduper(), dispatcher)

	payload := successEvent("evt_6", "FBX-20260315-ZZZZZZ")
	w := deliverWebhook(t, handler, payload, payments.Sign(payload, testSecret, time.Now()))
	if w.Code != 200 {
		t.Fatalf("unmatched orders must be acknowledged to stop retries, got %d", w.Code)
	}
	if dispatcher.count() != 0 {
		t.Fatal("unmatched order must not trigger notifications")
	}
}

func TestWebhookFailedPaymentLeavesOrderPending(t *testing.T) {
	order := pendingOrder("FBX-20260315-EEEEEE")
	rec := newFakeReconciler(order)
	handler := PaymentWebhook(rec, testSecret, payments.NewMemoryDeduper(), &countingDispatcher{})

	payload, _ := json.Marshal(map[string]interface{}{
		"id":   "evt_7",
		"type": payments.EventPaymentFailed,
		"data": map[string]interface{}{
			"object": map[string]interface{}{
				"id":       "pi_fail",
				"metadata": map[string]string{payments.MetadataOrderNumber: order.OrderNumber},
			},
		},
	})
	w := deliverWebhook(t, handler, payload, payments.Sign(payload, testSecret, time.Now()))

	if w.Code != 200 {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	if order.Payment.IsPaid || order.Status != models.OrderStatusPending {
		t.Fatal("failed payment must leave the order pending and unpaid")
	}
	if len(rec.notes) != 1 {
		t.Fatalf("expected one annotation, got %d", len(rec.notes))
	}
}
