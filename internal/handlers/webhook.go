package handlers

import (
	"context"
	"errors"
	"io"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"fabrix-backend/internal/models"
	"fabrix-backend/internal/notify"
	"fabrix-backend/internal/payments"
	"fabrix-backend/internal/store"
)

const (
	webhookSignatureHeader = "Fabrix-Signature"
	maxWebhookBody         = 1 << 20
)

// OrderReconciler is the slice of the order store the webhook needs.
// *store.OrderStore satisfies it.
type OrderReconciler interface {
	MarkPaid(ctx context.Context, orderNumber string, ref store.PaymentReference) (*models.Order, bool, error)
	UpdateStatus(ctx context.Context, id primitive.ObjectID, from, to models.OrderStatus, extra bson.M) (*models.Order, error)
	AppendNote(ctx context.Context, orderNumber, note string) error
}

// PaymentWebhook reconciles asynchronous provider events into order state.
// The route must be registered without any body-parsing middleware: the
// signature covers the exact bytes on the wire, and verification happens
// before the payload is even parsed. Replays of a verified event are no-ops,
// guarded twice: by the event-id deduper and by the conditional isPaid write.
func PaymentWebhook(orders OrderReconciler, webhookSecret string, deduper payments.Deduper, dispatcher notify.Dispatcher) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "POST /payments/webhook"
		defer handlePanic(c, route)

		payload, err := io.ReadAll(io.LimitReader(c.Request.Body, maxWebhookBody))
		if err != nil {
			respondWithError(c, http.StatusBadRequest, route, "unreadable body")
			return
		}

		header := c.GetHeader(webhookSignatureHeader)
		if err := payments.VerifySignature(payload, header, webhookSecret, payments.DefaultTolerance, time.Now()); err != nil {
			log.Println("[WEBHOOK] [ERROR] signature verification failed")
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid signature"})
			return
		}

		event, err := payments.ParseEvent(payload)
		if err != nil || event.ID == "" {
			respondWithError(c, http.StatusBadRequest, route, "malformed event")
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 10*time.Second)
		defer cancel()

		// Dedup is a fast path; if it fails we fall through to the
		// conditional update, which is the durable guard.
		if seen, dedupErr := deduper.Seen(ctx, event.ID); dedupErr != nil {
			log.Println("[WEBHOOK] [WARN] dedup check failed, relying on isPaid guard:", dedupErr)
		} else if seen {
			log.Println("[WEBHOOK] [INFO] duplicate event ignored:", event.ID)
			c.JSON(http.StatusOK, gin.H{"received": true})
			return
		}

		var finished bool
		switch event.Type {
		case payments.EventPaymentSucceeded:
			finished = handlePaymentSucceeded(ctx, c, orders, dispatcher, event)
		case payments.EventPaymentFailed:
			finished = handlePaymentFailed(ctx, c, orders, event)
		default:
			// Unknown event types are acknowledged so the provider stops
			// retrying them.
			log.Println("[WEBHOOK] [INFO] ignoring event type:", event.Type)
			c.JSON(http.StatusOK, gin.H{"received": true})
			finished = true
		}

		// Mark only once the event is finished. A 500 leaves the id
		// unmarked so the provider's redelivery is reconciled instead of
		// being short-cut as a duplicate.
		if finished {
			if err := deduper.Mark(ctx, event.ID); err != nil {
				log.Println("[WEBHOOK] [WARN] could not mark event as seen:", err)
			}
		}
	}
}

// handlePaymentSucceeded reports whether the event reached a final outcome.
// It returns false only on the retryable 500 path.
func handlePaymentSucceeded(ctx context.Context, c *gin.Context, orders OrderReconciler, dispatcher notify.Dispatcher, event *payments.Event) bool {
	orderNumber := event.OrderNumber()
	if orderNumber == "" {
		// A verified success event without correlation metadata is a bug in
		// intent creation, not a transient failure; ack so the provider does
		// not loop, and flag it for review.
		log.Println("[WEBHOOK] [ERROR] anomaly: success event without order metadata, event:", event.ID)
		c.JSON(http.StatusOK, gin.H{"received": true})
		return true
	}

	updated, applied, err := orders.MarkPaid(ctx, orderNumber, store.PaymentReference{
		TransactionID: event.Data.Object.ID,
		CardBrand:     event.Data.Object.CardBrand,
		CardLast4:     event.Data.Object.CardLast4,
		PaidAt:        time.Now(),
	})
	if errors.Is(err, store.ErrNotFound) {
		log.Printf("[WEBHOOK] [ERROR] anomaly: no order %s for event %s", orderNumber, event.ID)
		c.JSON(http.StatusOK, gin.H{"received": true})
		return true
	}
	if err != nil {
		// A store failure is retryable; a non-2xx tells the provider to
		// redeliver.
		log.Println("[WEBHOOK] [ERROR] mark paid failed:", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "reconciliation failed"})
		return false
	}

	if !applied {
		log.Println("[WEBHOOK] [INFO] order already paid, replay ignored:", orderNumber)
		c.JSON(http.StatusOK, gin.H{"received": true})
		return true
	}

	confirmed, err := orders.UpdateStatus(ctx, updated.ID, models.OrderStatusPending, models.OrderStatusProcessing, nil)
	if err == nil {
		updated = confirmed
	} else if errors.Is(err, store.ErrConcurrentModification) {
		// The order left pending before confirmation landed (e.g. cancelled
		// by an admin while the charge settled). Payment stays recorded;
		// flag the mismatch instead of forcing the status.
		log.Printf("[WEBHOOK] [ERROR] anomaly: order %s paid but no longer pending", orderNumber)
	} else {
		log.Println("[WEBHOOK] [ERROR] post-payment status update failed:", err)
	}

	dispatcher.Notify(c.Request.Context(), notify.OrderConfirmed, updated)
	log.Printf("[WEBHOOK] [INFO] order %s reconciled as paid (event %s)", orderNumber, event.ID)
	c.JSON(http.StatusOK, gin.H{"received": true})
	return true
}

func handlePaymentFailed(ctx context.Context, c *gin.Context, orders OrderReconciler, event *payments.Event) bool {
	orderNumber := event.OrderNumber()
	if orderNumber == "" {
		c.JSON(http.StatusOK, gin.H{"received": true})
		return true
	}

	// The order stays pending so the customer can retry payment; the failure
	// is recorded for support.
	note := "payment attempt failed (event " + event.ID + ")"
	if err := orders.AppendNote(ctx, orderNumber, note); err != nil {
		log.Println("[WEBHOOK] [WARN] could not annotate failed payment:", err)
	}
	log.Printf("[WEBHOOK] [INFO] payment failed for order %s (event %s)", orderNumber, event.ID)
	c.JSON(http.StatusOK, gin.H{"received": true})
	return true
}
