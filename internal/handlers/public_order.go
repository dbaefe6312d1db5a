package handlers

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"fabrix-backend/internal/middleware"
	"fabrix-backend/internal/models"
	"fabrix-backend/internal/store"
)

/* =========================
   REQUEST DTOs
========================= */

type clothingSelectionRequest struct {
	Size   string `json:"size" binding:"required"`
	Color  string `json:"color" binding:"required"`
	Fabric string `json:"fabric"`
}

type fabricSelectionRequest struct {
	LengthMeters float64 `json:"lengthMeters" binding:"required,gt=0"`
	Style        string  `json:"style"`
}

type createOrderItemRequest struct {
	ProductID string                    `json:"productId" binding:"required"`
	Quantity  int                       `json:"quantity" binding:"required,gt=0"`
	Clothing  *clothingSelectionRequest `json:"clothing"`
	Fabric    *fabricSelectionRequest   `json:"fabric"`
}

type createOrderCustomerRequest struct {
	FirstName string `json:"firstName" binding:"required"`
	LastName  string `json:"lastName" binding:"required"`
	Email     string `json:"email" binding:"required,email"`
	Phone     string `json:"phone"`
	Company   string `json:"company"`
}

type shippingAddressRequest struct {
	Line1      string `json:"line1" binding:"required"`
	Line2      string `json:"line2"`
	City       string `json:"city" binding:"required"`
	State      string `json:"state"`
	PostalCode string `json:"postalCode" binding:"required"`
	Country    string `json:"country" binding:"required"`
}

type createOrderRequest struct {
	Items           []createOrderItemRequest   `json:"items" binding:"required"`
	Customer        createOrderCustomerRequest `json:"customer" binding:"required"`
	ShippingAddress shippingAddressRequest     `json:"shippingAddress" binding:"required"`
	ShippingMethod  string                     `json:"shippingMethod" binding:"required"`
	Notes           string                     `json:"notes"`
}

/* =========================
   CREATE ORDER
========================= */

const createOrderRetries = 3

func CreateOrder(db *mongo.Database, orders *store.OrderStore, jwtSecret string, taxRate float64) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "POST /orders"
		defer handlePanic(c, route)

		if err := ensureDBConnection(c.Request.Context(), db); err != nil {
			respondWithError(c, http.StatusServiceUnavailable, route, "database unavailable")
			return
		}

		var req createOrderRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondValidationError(c, err)
			return
		}

		userID, err := userIDFromRequest(c, jwtSecret)
		if err != nil {
			log.Println("[ORDER] [ERROR] token validation failed:", err)
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}

		order, err := buildOrderFromRequest(req)
		if err != nil {
			respondWithError(c, http.StatusBadRequest, route, err.Error())
			return
		}
		order.UserID = userID

		ctx, cancel := context.WithTimeout(c.Request.Context(), 10*time.Second)
		defer cancel()

		session, err := db.Client().StartSession()
		if err != nil {
			respondWithError(c, http.StatusInternalServerError, route, "db error")
			return
		}
		defer session.EndSession(ctx)

		created, err := createWithUniqueNumber(ctx, func(ctx context.Context, number string) (*models.Order, error) {
			order.OrderNumber = number
			return placeOrder(ctx, session, db, orders, order, taxRate)
		})
		if err != nil {
			var stockErr outOfStockError
			if errors.As(err, &stockErr) {
				c.JSON(http.StatusBadRequest, gin.H{
					"error":     "insufficient stock",
					"productId": stockErr.ProductID.Hex(),
					"available": stockErr.Available,
					"requested": stockErr.Requested,
				})
				return
			}
			var notFoundErr productNotFoundError
			if errors.As(err, &notFoundErr) {
				c.JSON(http.StatusBadRequest, gin.H{
					"error":     "product not found",
					"productId": notFoundErr.ProductID.Hex(),
				})
				return
			}
			var itemErr invalidItemError
			if errors.As(err, &itemErr) {
				c.JSON(http.StatusBadRequest, gin.H{
					"error":     itemErr.Reason,
					"productId": itemErr.ProductID.Hex(),
				})
				return
			}
			if errors.Is(err, store.ErrDuplicateOrderNumber) {
				respondWithError(c, http.StatusInternalServerError, route, "could not allocate order number")
				return
			}
			respondWithError(c, http.StatusInternalServerError, route, "db error")
			return
		}

		if userID != nil {
			log.Println("[ORDER] [INFO] order created for user:", userID.Hex())
		} else {
			log.Println("[ORDER] [INFO] guest order created")
		}

		c.JSON(http.StatusCreated, gin.H{
			"orderId":     created.ID.Hex(),
			"orderNumber": created.OrderNumber,
			"total":       created.Payment.Total,
			"message":     "order created",
		})
	}
}

// placeFunc persists one attempt at an order under the given number.
type placeFunc func(ctx context.Context, orderNumber string) (*models.Order, error)

// createWithUniqueNumber allocates a fresh order number for each attempt. The
// random suffix makes a collision vanishingly rare, but the unique index is
// the real guarantee; regenerate and retry when it fires, and surface the
// duplicate error once the attempts are exhausted.
func createWithUniqueNumber(ctx context.Context, place placeFunc) (*models.Order, error) {
	var lastErr error
	for attempt := 0; attempt < createOrderRetries; attempt++ {
		number, err := generateOrderNumber(time.Now())
		if err != nil {
			return nil, err
		}

		created, err := place(ctx, number)
		if err == nil || !errors.Is(err, store.ErrDuplicateOrderNumber) {
			return created, err
		}
		log.Println("[ORDER] [WARN] order number collision, regenerating:", number)
		lastErr = err
	}
	return nil, lastErr
}

// placeOrder runs the stock check, pricing and insert in one transaction so a
// failed insert releases the reserved stock.
func placeOrder(ctx context.Context, session mongo.Session, db *mongo.Database, orders *store.OrderStore, order models.Order, taxRate float64) (*models.Order, error) {
	result, err := session.WithTransaction(ctx, func(sessCtx mongo.SessionContext) (interface{}, error) {
		pricedItems := make([]models.OrderItem, 0, len(order.Items))

		for _, item := range order.Items {
			var product models.Product
			err := db.Collection("products").FindOne(
				sessCtx,
				bson.M{
					"_id":       item.ProductID,
					"isDeleted": bson.M{"$ne": true},
					"isActive":  bson.M{"$ne": false},
				},
			).Decode(&product)
			if err == mongo.ErrNoDocuments {
				return nil, productNotFoundError{ProductID: *item.ProductID}
			}
			if err != nil {
				return nil, err
			}

			if err := validateItemSelection(&product, item); err != nil {
				return nil, invalidItemError{ProductID: product.ID, Reason: err.Error()}
			}

			if product.Stock < item.Quantity {
				return nil, outOfStockError{
					ProductID: product.ID,
					Available: product.Stock,
					Requested: item.Quantity,
				}
			}

			unitPrice, err := unitPriceFor(&product, item.Fabric)
			if err != nil {
				return nil, invalidItemError{ProductID: product.ID, Reason: err.Error()}
			}

			priced := item
			priced.Type = product.Type
			priced.Name = product.Name
			priced.UnitPrice = unitPrice
			priced.Image = product.Image
			pricedItems = append(pricedItems, priced)

			filter := bson.M{
				"_id":       product.ID,
				"isDeleted": bson.M{"$ne": true},
				"stock":     bson.M{"$gte": item.Quantity},
			}
			update := bson.M{"$inc": bson.M{"stock": -item.Quantity}}

			res, err := db.Collection("products").UpdateOne(sessCtx, filter, update)
			if err != nil {
				return nil, err
			}
			if res.MatchedCount == 0 {
				return nil, outOfStockError{
					ProductID: product.ID,
					Available: product.Stock,
					Requested: item.Quantity,
				}
			}
		}

		order.Items = pricedItems

		payment, err := computeTotals(order.Items, order.Shipping.Method, taxRate)
		if err != nil {
			return nil, invalidItemError{Reason: err.Error()}
		}
		if err := validateTotals(payment); err != nil {
			return nil, err
		}
		order.Payment = payment

		if err := orders.Create(sessCtx, &order); err != nil {
			return nil, err
		}
		return &order, nil
	})
	if err != nil {
		return nil, err
	}
	return result.(*models.Order), nil
}

/* =========================
   READ ORDERS
========================= */

func GetOrder(orders *store.OrderStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		orderID, err := primitive.ObjectIDFromHex(c.Param("id"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
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

		if !requesterMayView(c, order) {
			c.JSON(http.StatusForbidden, gin.H{"error": "forbidden"})
			return
		}

		c.JSON(http.StatusOK, order)
	}
}

func GetMyOrders(orders *store.OrderStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		userIDValue, ok := c.Get("userId")
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}
		userID := userIDValue.(primitive.ObjectID)

		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		list, err := orders.FindByUser(ctx, userID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "orders could not be fetched"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"orders": list})
	}
}

// trackedOrderResponse is the public tracking view: payment references and
// card details are withheld, only the totals and paid flag remain.
type trackedOrderResponse struct {
	OrderNumber string               `json:"orderNumber"`
	Status      models.OrderStatus   `json:"status"`
	Items       []trackedItem        `json:"items"`
	Shipping    models.OrderShipping `json:"shipping"`
	Subtotal    float64              `json:"subtotal"`
	ShippingFee float64              `json:"shippingFee"`
	Tax         float64              `json:"tax"`
	Total       float64              `json:"total"`
	IsPaid      bool                 `json:"isPaid"`
	CreatedAt   time.Time            `json:"createdAt"`
}

type trackedItem struct {
	Name     string `json:"name"`
	Type     string `json:"type"`
	Quantity int    `json:"quantity"`
	Image    string `json:"image,omitempty"`
}

func GetOrderByNumber(orders *store.OrderStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		number := strings.ToUpper(strings.TrimSpace(c.Param("orderNumber")))
		if number == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "orderNumber is required"})
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		order, err := orders.FindByNumber(ctx, number)
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "order not found"})
			return
		}
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "db error"})
			return
		}

		items := make([]trackedItem, 0, len(order.Items))
		for _, item := range order.Items {
			items = append(items, trackedItem{
				Name:     item.Name,
				Type:     item.Type,
				Quantity: item.Quantity,
				Image:    item.Image,
			})
		}

		c.JSON(http.StatusOK, trackedOrderResponse{
			OrderNumber: order.OrderNumber,
			Status:      order.Status,
			Items:       items,
			Shipping:    order.Shipping,
			Subtotal:    order.Payment.Subtotal,
			ShippingFee: order.Payment.Shipping,
			Tax:         order.Payment.Tax,
			Total:       order.Payment.Total,
			IsPaid:      order.Payment.IsPaid,
			CreatedAt:   order.CreatedAt,
		})
	}
}

/* =========================
   CANCEL ORDER
========================= */

const statusUpdateRetries = 3

func CancelOrder(orders *store.OrderStore) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "POST /orders/:id/cancel"
		defer handlePanic(c, route)

		orderID, err := primitive.ObjectIDFromHex(c.Param("id"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
			return
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

			if !requesterMayView(c, order) {
				c.JSON(http.StatusForbidden, gin.H{"error": "forbidden"})
				return
			}

			if !order.Status.CanTransitionTo(models.OrderStatusCancelled) {
				transitionErr := models.IllegalTransitionError{From: order.Status, To: models.OrderStatusCancelled}
				c.JSON(http.StatusBadRequest, gin.H{"error": transitionErr.Error()})
				return
			}

			updated, err := orders.UpdateStatus(ctx, orderID, order.Status, models.OrderStatusCancelled, nil)
			if errors.Is(err, store.ErrConcurrentModification) {
				continue
			}
			if err != nil {
				c.JSON(http.StatusInternalServerError, gin.H{"error": "db error"})
				return
			}

			log.Println("[ORDER] [INFO] order cancelled:", updated.OrderNumber)
			c.JSON(http.StatusOK, gin.H{"orderNumber": updated.OrderNumber, "status": updated.Status})
			return
		}

		c.JSON(http.StatusConflict, gin.H{"error": "order modified concurrently, please retry"})
	}
}

/* =========================
   BUILD ORDER
========================= */

func buildOrderFromRequest(req createOrderRequest) (models.Order, error) {
	if len(req.Items) == 0 {
		return models.Order{}, errors.New("at least one item is required")
	}
	if _, ok := shippingCost(req.ShippingMethod); !ok {
		return models.Order{}, fmt.Errorf("unknown shipping method %q", req.ShippingMethod)
	}

	items := make([]models.OrderItem, 0, len(req.Items))
	for _, item := range req.Items {
		productID, err := primitive.ObjectIDFromHex(item.ProductID)
		if err != nil {
			return models.Order{}, errors.New("invalid productId")
		}

		if item.Clothing != nil && item.Fabric != nil {
			return models.Order{}, errors.New("an item cannot carry both clothing and fabric selections")
		}

		built := models.OrderItem{
			ProductID: &productID,
			Quantity:  item.Quantity,
		}
		if item.Clothing != nil {
			built.Clothing = &models.ClothingSelection{
				Size:   strings.TrimSpace(item.Clothing.Size),
				Color:  strings.TrimSpace(item.Clothing.Color),
				Fabric: strings.TrimSpace(item.Clothing.Fabric),
			}
		}
		if item.Fabric != nil {
			built.Fabric = &models.FabricSelection{
				LengthMeters: item.Fabric.LengthMeters,
				Style:        strings.TrimSpace(item.Fabric.Style),
			}
		}
		items = append(items, built)
	}

	now := time.Now()
	order := models.Order{
		Items: items,
		Customer: models.OrderCustomer{
			FirstName: strings.TrimSpace(req.Customer.FirstName),
			LastName:  strings.TrimSpace(req.Customer.LastName),
			Email:     strings.ToLower(strings.TrimSpace(req.Customer.Email)),
			Phone:     strings.TrimSpace(req.Customer.Phone),
			Company:   strings.TrimSpace(req.Customer.Company),
		},
		Shipping: models.OrderShipping{
			Address: models.ShippingAddress{
				Line1:      strings.TrimSpace(req.ShippingAddress.Line1),
				Line2:      strings.TrimSpace(req.ShippingAddress.Line2),
				City:       strings.TrimSpace(req.ShippingAddress.City),
				State:      strings.TrimSpace(req.ShippingAddress.State),
				PostalCode: strings.TrimSpace(req.ShippingAddress.PostalCode),
				Country:    strings.TrimSpace(req.ShippingAddress.Country),
			},
			Method: req.ShippingMethod,
		},
		Status:    models.OrderStatusPending,
		Notes:     strings.TrimSpace(req.Notes),
		CreatedAt: now,
		UpdatedAt: now,
	}
	return order, nil
}

// validateItemSelection checks the buyer's variant choice against the catalog
// record: the discriminant must match and chosen options must be offered.
func validateItemSelection(product *models.Product, item models.OrderItem) error {
	switch product.Type {
	case models.ProductTypeClothing:
		if item.Clothing == nil {
			return errors.New("clothing selection is required for this product")
		}
		if product.Clothing != nil {
			if !containsOption(product.Clothing.Sizes, item.Clothing.Size) {
				return fmt.Errorf("size %q is not offered", item.Clothing.Size)
			}
			if !containsOption(product.Clothing.Colors, item.Clothing.Color) {
				return fmt.Errorf("color %q is not offered", item.Clothing.Color)
			}
		}
	case models.ProductTypeFabric:
		if item.Fabric == nil {
			return errors.New("fabric selection is required for this product")
		}
		if item.Fabric.Style != "" && product.Fabric != nil && len(product.Fabric.Styles) > 0 {
			if !containsOption(product.Fabric.Styles, item.Fabric.Style) {
				return fmt.Errorf("style %q is not offered", item.Fabric.Style)
			}
		}
	default:
		return fmt.Errorf("unknown product type %q", product.Type)
	}
	return nil
}

func containsOption(options models.StringList, value string) bool {
	if len(options) == 0 {
		return true
	}
	for _, option := range options {
		if strings.EqualFold(option, value) {
			return true
		}
	}
	return false
}

func requesterMayView(c *gin.Context, order *models.Order) bool {
	if role, _ := c.Get("role"); role == "admin" {
		return true
	}
	userIDValue, ok := c.Get("userId")
	if !ok {
		return false
	}
	userID, ok := userIDValue.(primitive.ObjectID)
	return ok && order.OwnedBy(userID)
}

// userIDFromRequest resolves an optional authenticated customer; guests check
// out with a nil id.
func userIDFromRequest(c *gin.Context, secret string) (*primitive.ObjectID, error) {
	raw := strings.TrimSpace(c.GetHeader("Authorization"))
	if raw == "" {
		if cookie, err := c.Cookie(middleware.TokenCookieName); err == nil && strings.TrimSpace(cookie) != "" {
			raw = "Bearer " + strings.TrimSpace(cookie)
		} else {
			return nil, nil
		}
	}

	parts := strings.Split(raw, " ")
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return nil, errors.New("invalid token format")
	}

	token, err := jwt.Parse(parts[1], func(t *jwt.Token) (interface{}, error) {
		return []byte(secret), nil
	})
	if err != nil || !token.Valid {
		return nil, errors.New("invalid token")
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, errors.New("invalid token claims")
	}

	sub, ok := claims["sub"].(string)
	if !ok || strings.TrimSpace(sub) == "" {
		return nil, errors.New("sub claim missing")
	}

	userID, err := primitive.ObjectIDFromHex(sub)
	if err != nil {
		return nil, errors.New("invalid sub claim")
	}
	return &userID, nil
}

type outOfStockError struct {
	ProductID primitive.ObjectID
	Available int
	Requested int
}

func (e outOfStockError) Error() string {
	return "product out of stock"
}

type productNotFoundError struct {
	ProductID primitive.ObjectID
}

func (e productNotFoundError) Error() string {
	return "product not found"
}

type invalidItemError struct {
	ProductID primitive.ObjectID
	Reason    string
}

func (e invalidItemError) Error() string {
	return e.Reason
}
