package models

import (
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type OrderStatus string

const (
	OrderStatusPending    OrderStatus = "pending"
	OrderStatusProcessing OrderStatus = "processing"
	OrderStatusShipped    OrderStatus = "shipped"
	OrderStatusDelivered  OrderStatus = "delivered"
	OrderStatusCancelled  OrderStatus = "cancelled"
)

// ParseOrderStatus validates a client-supplied status string.
func ParseOrderStatus(s string) (OrderStatus, bool) {
	switch OrderStatus(s) {
	case OrderStatusPending, OrderStatusProcessing, OrderStatusShipped,
		OrderStatusDelivered, OrderStatusCancelled:
		return OrderStatus(s), true
	}
	return "", false
}

// orderTransitions lists the legal next states for each status. Delivered and
// cancelled are terminal.
var orderTransitions = map[OrderStatus][]OrderStatus{
	OrderStatusPending:    {OrderStatusProcessing, OrderStatusCancelled},
	OrderStatusProcessing: {OrderStatusShipped, OrderStatusCancelled},
	OrderStatusShipped:    {OrderStatusDelivered},
	OrderStatusDelivered:  {},
	OrderStatusCancelled:  {},
}

func (s OrderStatus) CanTransitionTo(next OrderStatus) bool {
	for _, allowed := range orderTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

func (s OrderStatus) Terminal() bool {
	return len(orderTransitions[s]) == 0
}

type IllegalTransitionError struct {
	From OrderStatus
	To   OrderStatus
}

func (e IllegalTransitionError) Error() string {
	return fmt.Sprintf("illegal order status transition %s -> %s", e.From, e.To)
}

// Product types sold by the storefront. OrderItem and Product both carry the
// discriminant; the variant-specific attributes live in the struct named
// after the type.
const (
	ProductTypeClothing = "clothing"
	ProductTypeFabric   = "fabric"
)

// ClothingSelection is the buyer's choice for a clothing line item.
type ClothingSelection struct {
	Size   string `bson:"size" json:"size"`
	Color  string `bson:"color" json:"color"`
	Fabric string `bson:"fabric,omitempty" json:"fabric,omitempty"`
}

// FabricSelection is the buyer's choice for a cut-fabric line item.
type FabricSelection struct {
	LengthMeters float64 `bson:"lengthMeters" json:"lengthMeters"`
	Style        string  `bson:"style,omitempty" json:"style,omitempty"`
}

// OrderItem is a snapshot of a product at purchase time. ProductID may be nil
// when the referenced product was later removed from the catalog; the
// denormalized name and price keep the order readable regardless.
type OrderItem struct {
	ProductID *primitive.ObjectID `bson:"productId,omitempty" json:"productId,omitempty"`
	Type      string              `bson:"type" json:"type"`
	Name      string              `bson:"name" json:"name"`
	UnitPrice float64             `bson:"unitPrice" json:"unitPrice"`
	Quantity  int                 `bson:"quantity" json:"quantity"`
	Image     string              `bson:"image,omitempty" json:"image,omitempty"`
	Clothing  *ClothingSelection  `bson:"clothing,omitempty" json:"clothing,omitempty"`
	Fabric    *FabricSelection    `bson:"fabric,omitempty" json:"fabric,omitempty"`
}

// OrderCustomer is contact info frozen at order time, deliberately
// denormalized from the customer account so later profile edits do not
// rewrite history.
type OrderCustomer struct {
	FirstName string `bson:"firstName" json:"firstName"`
	LastName  string `bson:"lastName" json:"lastName"`
	Email     string `bson:"email" json:"email"`
	Phone     string `bson:"phone,omitempty" json:"phone,omitempty"`
	Company   string `bson:"company,omitempty" json:"company,omitempty"`
}

type ShippingAddress struct {
	Line1      string `bson:"line1" json:"line1"`
	Line2      string `bson:"line2,omitempty" json:"line2,omitempty"`
	City       string `bson:"city" json:"city"`
	State      string `bson:"state,omitempty" json:"state,omitempty"`
	PostalCode string `bson:"postalCode" json:"postalCode"`
	Country    string `bson:"country" json:"country"`
}

type OrderShipping struct {
	Address           ShippingAddress `bson:"address" json:"address"`
	Method            string          `bson:"method" json:"method"`
	TrackingNumber    string          `bson:"trackingNumber,omitempty" json:"trackingNumber,omitempty"`
	Carrier           string          `bson:"carrier,omitempty" json:"carrier,omitempty"`
	EstimatedDelivery *time.Time      `bson:"estimatedDelivery,omitempty" json:"estimatedDelivery,omitempty"`
}

// OrderPayment is the monetary breakdown plus the external payment reference.
// Only the transaction id, card brand and last four digits are ever stored.
type OrderPayment struct {
	Subtotal      float64    `bson:"subtotal" json:"subtotal"`
	Shipping      float64    `bson:"shipping" json:"shipping"`
	Tax           float64    `bson:"tax" json:"tax"`
	Total         float64    `bson:"total" json:"total"`
	IsPaid        bool       `bson:"isPaid" json:"isPaid"`
	PaidAt        *time.Time `bson:"paidAt,omitempty" json:"paidAt,omitempty"`
	TransactionID string     `bson:"transactionId,omitempty" json:"transactionId,omitempty"`
	CardBrand     string     `bson:"cardBrand,omitempty" json:"cardBrand,omitempty"`
	CardLast4     string     `bson:"cardLast4,omitempty" json:"cardLast4,omitempty"`
}

// Order is the persisted purchase record. Orders are never deleted; status
// moves along the transitions above and version guards concurrent writers.
type Order struct {
	ID          primitive.ObjectID  `bson:"_id,omitempty" json:"id"`
	OrderNumber string              `bson:"orderNumber" json:"orderNumber"`
	UserID      *primitive.ObjectID `bson:"userId,omitempty" json:"userId,omitempty"`
	Items       []OrderItem         `bson:"items" json:"items"`
	Customer    OrderCustomer       `bson:"customer" json:"customer"`
	Shipping    OrderShipping       `bson:"shipping" json:"shipping"`
	Payment     OrderPayment        `bson:"payment" json:"payment"`
	Status      OrderStatus         `bson:"status" json:"status"`
	Notes       string              `bson:"notes,omitempty" json:"notes,omitempty"`
	NoteLog     []string            `bson:"noteLog,omitempty" json:"-"`
	Version     int64               `bson:"version" json:"-"`
	CreatedAt   time.Time           `bson:"createdAt" json:"createdAt"`
	UpdatedAt   time.Time           `bson:"updatedAt" json:"updatedAt"`
}

// OwnedBy reports whether the order belongs to the given customer. Guest
// orders belong to nobody.
func (o *Order) OwnedBy(userID primitive.ObjectID) bool {
	return o.UserID != nil && *o.UserID == userID
}
