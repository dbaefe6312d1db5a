package handlers

import (
	"context"
	"errors"
	"log"
	"math"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"fabrix-backend/internal/payments"
	"fabrix-backend/internal/store"
)

type createIntentRequest struct {
	OrderNumber string `json:"orderNumber" binding:"required"`
}

// CreatePaymentIntent asks the provider to authorize the order total and
// hands the client secret back to the browser. The order is looked up
// server-side so the charged amount can never come from the client, and the
// order number rides in the intent metadata for webhook correlation. Nothing
// on the order is mutated here: an abandoned intent leaves no traces.
func CreatePaymentIntent(orders *store.OrderStore, client *payments.IntentClient, currency string) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "POST /payments/create-intent"
		defer handlePanic(c, route)

		var req createIntentRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondValidationError(c, err)
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 15*time.Second)
		defer cancel()

		order, err := orders.FindByNumber(ctx, strings.ToUpper(strings.TrimSpace(req.OrderNumber)))
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "order not found"})
			return
		}
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "db error"})
			return
		}

		if order.Payment.IsPaid {
			c.JSON(http.StatusBadRequest, gin.H{"error": "order is already paid"})
			return
		}
		if order.Status.Terminal() {
			c.JSON(http.StatusBadRequest, gin.H{"error": "order is " + string(order.Status)})
			return
		}
		if order.Payment.Total <= 0 || math.IsNaN(order.Payment.Total) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "order total must be positive"})
			return
		}

		intent, err := client.CreateIntent(ctx, order.Payment.Total, currency, map[string]string{
			payments.MetadataOrderNumber: order.OrderNumber,
		})
		if err != nil {
			if errors.Is(err, payments.ErrInvalidAmount) {
				c.JSON(http.StatusBadRequest, gin.H{"error": "invalid amount"})
				return
			}
			var providerErr *payments.ProviderError
			if errors.As(err, &providerErr) {
				log.Println("[PAYMENT] [ERROR] provider call failed:", providerErr)
				c.JSON(http.StatusBadGateway, gin.H{"error": "payment provider unavailable"})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": "intent creation failed"})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"clientSecret": intent.ClientSecret,
			"intentId":     intent.ID,
			"orderNumber":  order.OrderNumber,
		})
	}
}
