package store

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"fabrix-backend/internal/models"
)

// OrderStore wraps the orders collection. Orders are append/update only:
// there is no delete, and every status write is conditional on the status the
// writer last observed so racing writers cannot silently overwrite each
// other.
type OrderStore struct {
	db *mongo.Database
}

func NewOrderStore(db *mongo.Database) *OrderStore {
	return &OrderStore{db: db}
}

func (s *OrderStore) collection() *mongo.Collection {
	return s.db.Collection("orders")
}

// Create inserts the order. A duplicate key on orderNumber_unique surfaces as
// ErrDuplicateOrderNumber so the caller can regenerate and retry.
func (s *OrderStore) Create(ctx context.Context, order *models.Order) error {
	res, err := s.collection().InsertOne(ctx, order)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ErrDuplicateOrderNumber
		}
		return err
	}
	if id, ok := res.InsertedID.(primitive.ObjectID); ok {
		order.ID = id
	}
	return nil
}

func (s *OrderStore) FindByID(ctx context.Context, id primitive.ObjectID) (*models.Order, error) {
	var order models.Order
	err := s.collection().FindOne(ctx, bson.M{"_id": id}).Decode(&order)
	if err == mongo.ErrNoDocuments {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (s *OrderStore) FindByNumber(ctx context.Context, number string) (*models.Order, error) {
	var order models.Order
	err := s.collection().FindOne(ctx, bson.M{"orderNumber": number}).Decode(&order)
	if err == mongo.ErrNoDocuments {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (s *OrderStore) FindByUser(ctx context.Context, userID primitive.ObjectID) ([]models.Order, error) {
	cursor, err := s.collection().Find(ctx, bson.M{"userId": userID},
		options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}}))
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var orders []models.Order
	if err := cursor.All(ctx, &orders); err != nil {
		return nil, err
	}
	return orders, nil
}

// List returns a page of orders, optionally filtered by status, newest first.
func (s *OrderStore) List(ctx context.Context, status models.OrderStatus, page, limit int64) ([]models.Order, int64, error) {
	filter := bson.M{}
	if status != "" {
		filter["status"] = status
	}

	total, err := s.collection().CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, err
	}

	findOptions := options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: -1}}).
		SetSkip((page - 1) * limit).
		SetLimit(limit)

	cursor, err := s.collection().Find(ctx, filter, findOptions)
	if err != nil {
		return nil, 0, err
	}
	defer cursor.Close(ctx)

	var orders []models.Order
	if err := cursor.All(ctx, &orders); err != nil {
		return nil, 0, err
	}
	return orders, total, nil
}

// UpdateStatus performs one conditional transition attempt: the write only
// matches while the order still has status `from`. When the document exists
// but the condition no longer holds, ErrConcurrentModification is returned
// and the caller decides whether to re-read and retry.
func (s *OrderStore) UpdateStatus(ctx context.Context, id primitive.ObjectID, from, to models.OrderStatus, extra bson.M) (*models.Order, error) {
	set := bson.M{
		"status":    to,
		"updatedAt": time.Now(),
	}
	for k, v := range extra {
		set[k] = v
	}

	var updated models.Order
	err := s.collection().FindOneAndUpdate(ctx,
		bson.M{"_id": id, "status": from},
		bson.M{"$set": set, "$inc": bson.M{"version": 1}},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&updated)
	if err == mongo.ErrNoDocuments {
		count, countErr := s.collection().CountDocuments(ctx, bson.M{"_id": id})
		if countErr != nil {
			return nil, countErr
		}
		if count == 0 {
			return nil, ErrNotFound
		}
		return nil, ErrConcurrentModification
	}
	if err != nil {
		return nil, err
	}
	return &updated, nil
}

// PaymentReference is the external provider's record of a completed charge.
type PaymentReference struct {
	TransactionID string
	CardBrand     string
	CardLast4     string
	PaidAt        time.Time
}

// MarkPaid records a confirmed payment exactly once. The condition on
// payment.isPaid makes webhook replays a no-op: applied=false means the order
// was already paid and nothing changed. A paid order always carries a
// non-empty transaction reference.
func (s *OrderStore) MarkPaid(ctx context.Context, orderNumber string, ref PaymentReference) (*models.Order, bool, error) {
	if ref.TransactionID == "" {
		return nil, false, errors.New("transaction reference is required to mark an order paid")
	}
	if ref.PaidAt.IsZero() {
		ref.PaidAt = time.Now()
	}

	set := bson.M{
		"payment.isPaid":        true,
		"payment.paidAt":        ref.PaidAt,
		"payment.transactionId": ref.TransactionID,
		"updatedAt":             time.Now(),
	}
	if ref.CardBrand != "" {
		set["payment.cardBrand"] = ref.CardBrand
	}
	if ref.CardLast4 != "" {
		set["payment.cardLast4"] = ref.CardLast4
	}

	var updated models.Order
	err := s.collection().FindOneAndUpdate(ctx,
		bson.M{"orderNumber": orderNumber, "payment.isPaid": false},
		bson.M{"$set": set, "$inc": bson.M{"version": 1}},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&updated)
	if err == mongo.ErrNoDocuments {
		existing, findErr := s.FindByNumber(ctx, orderNumber)
		if findErr != nil {
			return nil, false, findErr
		}
		// Already paid: idempotent replay.
		return existing, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return &updated, true, nil
}

// AppendNote adds an operational annotation without touching status.
func (s *OrderStore) AppendNote(ctx context.Context, orderNumber, note string) error {
	_, err := s.collection().UpdateOne(ctx,
		bson.M{"orderNumber": orderNumber},
		bson.M{"$set": bson.M{"updatedAt": time.Now()}, "$push": bson.M{"noteLog": note}},
	)
	return err
}
