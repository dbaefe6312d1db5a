package handlers

import (
	"context"
	"errors"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"fabrix-backend/internal/models"
	"fabrix-backend/internal/notify"
	"fabrix-backend/internal/store"
)

func ListOrders(orders *store.OrderStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		page, limit, err := parsePaginationParams(c.Query("page"), c.Query("limit"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid pagination params"})
			return
		}

		var status models.OrderStatus
		if raw := strings.TrimSpace(c.Query("status")); raw != "" {
			parsed, ok := models.ParseOrderStatus(raw)
			if !ok {
				c.JSON(http.StatusBadRequest, gin.H{"error": "unknown status filter"})
				return
			}
			status = parsed
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		list, total, err := orders.List(ctx, status, page, limit)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "orders could not be fetched"})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"orders": list,
			"total":  total,
			"page":   page,
			"limit":  limit,
		})
	}
}

type updateOrderStatusRequest struct {
	Status            string `json:"status" binding:"required"`
	TrackingNumber    string `json:"trackingNumber"`
	Carrier           string `json:"carrier"`
	EstimatedDelivery string `json:"estimatedDelivery"`
}

// UpdateOrderStatus drives the fulfillment side of the state machine. Moving
// to shipped requires tracking details, recorded atomically with the
// transition; the shipped notification fires only after the write commits.
func UpdateOrderStatus(orders *store.OrderStore, dispatcher notify.Dispatcher) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "PUT /orders/:id/status"
		defer handlePanic(c, route)

		orderID, err := primitive.ObjectIDFromHex(c.Param("id"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
			return
		}

		var req updateOrderStatusRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondValidationError(c, err)
			return
		}

		target, ok := models.ParseOrderStatus(strings.TrimSpace(req.Status))
		if !ok {
			c.JSON(http.StatusBadRequest, gin.H{"error": "unknown status"})
			return
		}

		extra := bson.M{}
		if target == models.OrderStatusShipped {
			tracking := strings.TrimSpace(req.TrackingNumber)
			if tracking == "" {
				c.JSON(http.StatusBadRequest, gin.H{"error": "trackingNumber is required to mark an order shipped"})
				return
			}
			extra["shipping.trackingNumber"] = tracking
			if carrier := strings.TrimSpace(req.Carrier); carrier != "" {
				extra["shipping.carrier"] = carrier
			}
			if raw := strings.TrimSpace(req.EstimatedDelivery); raw != "" {
				eta, err := time.Parse(time.RFC3339, raw)
				if err != nil {
					c.JSON(http.StatusBadRequest, gin.H{"error": "estimatedDelivery must be RFC3339"})
					return
				}
				extra["shipping.estimatedDelivery"] = eta
			}
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		for attempt := 0; attempt < statusUpdateRetries; attempt++ {
			order, err := orders.FindByID(ctx, orderID)
			if errors.Is(err, store.ErrNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"error": "order not found"})
				return
			}
			if err != nil {
				c.JSON(http.StatusInternalServerError, gin.H{"error": "db error"})
				return
			}

			if order.Status == target {
				c.JSON(http.StatusOK, gin.H{"orderNumber": order.OrderNumber, "status": order.Status})
				return
			}
			if !order.Status.CanTransitionTo(target) {
				transitionErr := models.IllegalTransitionError{From: order.Status, To: target}
				c.JSON(http.StatusBadRequest, gin.H{"error": transitionErr.Error()})
				return
			}

			updated, err := orders.UpdateStatus(ctx, orderID, order.Status, target, extra)
			if errors.Is(err, store.ErrConcurrentModification) {
				continue
			}
			if err != nil {
				c.JSON(http.StatusInternalServerError, gin.H{"error": "db error"})
				return
			}

			log.Printf("[ORDER] [INFO] order %s status %s -> %s", updated.OrderNumber, order.Status, target)
			if target == models.OrderStatusShipped {
				dispatcher.Notify(c.Request.Context(), notify.OrderShipped, updated)
			}
			c.JSON(http.StatusOK, gin.H{"orderNumber": updated.OrderNumber, "status": updated.Status})
			return
		}

		c.JSON(http.StatusConflict, gin.H{"error": "order modified concurrently, please retry"})
	}
}

type markPaidRequest struct {
	TransactionID string `json:"transactionId" binding:"required"`
	CardBrand     string `json:"cardBrand"`
	CardLast4     string `json:"cardLast4"`
}

// MarkOrderPaid records an out-of-band payment (e.g. bank transfer confirmed
// manually). It shares the webhook reconciler's conditional update, so
// marking twice is a no-op.
func MarkOrderPaid(orders *store.OrderStore, dispatcher notify.Dispatcher) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "PUT /orders/:id/pay"
		defer handlePanic(c, route)

		orderID, err := primitive.ObjectIDFromHex(c.Param("id"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
			return
		}

		var req markPaidRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondValidationError(c, err)
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		order, err := orders.FindByID(ctx, orderID)
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "order not found"})
			return
		}
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "db error"})
			return
		}

		updated, applied, err := orders.MarkPaid(ctx, order.OrderNumber, store.PaymentReference{
			TransactionID: strings.TrimSpace(req.TransactionID),
			CardBrand:     strings.TrimSpace(req.CardBrand),
			CardLast4:     strings.TrimSpace(req.CardLast4),
			PaidAt:        time.Now(),
		})
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "db error"})
			return
		}

		if applied {
			confirmed, err := orders.UpdateStatus(ctx, updated.ID, models.OrderStatusPending, models.OrderStatusProcessing, nil)
			if err == nil {
				updated = confirmed
			} else if !errors.Is(err, store.ErrConcurrentModification) {
				log.Println("[ORDER] [ERROR] post-payment status update failed:", err)
			}
			dispatcher.Notify(c.Request.Context(), notify.OrderConfirmed, updated)
			log.Println("[ORDER] [INFO] order marked paid:", updated.OrderNumber)
		} else {
			log.Println("[ORDER] [INFO] order already paid, mark-paid ignored:", updated.OrderNumber)
		}

		c.JSON(http.StatusOK, gin.H{
			"orderNumber": updated.OrderNumber,
			"status":      updated.Status,
			"isPaid":      updated.Payment.IsPaid,
		})
	}
}
