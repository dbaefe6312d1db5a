package database

import (
	"context"
	"log"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// EnsureOrderIndexes creates the orderNumber uniqueness constraint. The order
// number generator is probabilistic; this index is the actual safety net
// against a suffix collision.
func EnsureOrderIndexes(db *mongo.Database) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	indexes := db.Collection("orders").Indexes()

	orderNumberIndex := mongo.IndexModel{
		Keys: bson.D{{Key: "orderNumber", Value: 1}},
		Options: options.Index().
			SetName("orderNumber_unique").
			SetUnique(true),
	}

	userIDIndex := mongo.IndexModel{
		Keys:    bson.D{{Key: "userId", Value: 1}},
		Options: options.Index().SetName("userId_index"),
	}

	log.Println("EnsureOrderIndexes: creating orderNumber_unique, userId_index")
	_, err := indexes.CreateMany(ctx, []mongo.IndexModel{orderNumberIndex, userIDIndex})
	if err != nil {
		log.Println("EnsureOrderIndexes: index error:", err)
		return err
	}
	return nil
}

func EnsureCustomerIndexes(db *mongo.Database) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	indexes := db.Collection("customers").Indexes()

	emailIndex := mongo.IndexModel{
		Keys: bson.D{{Key: "email", Value: 1}},
		Options: options.Index().
			SetName("email_unique").
			SetUnique(true),
	}

	log.Println("EnsureCustomerIndexes: creating email_unique index")
	_, err := indexes.CreateOne(ctx, emailIndex)
	if err != nil {
		log.Println("EnsureCustomerIndexes: email index error:", err)
		return err
	}
	return nil
}

func EnsureProductIndexes(db *mongo.Database) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	indexes := db.Collection("products").Indexes()

	typeIndex := mongo.IndexModel{
		Keys:    bson.D{{Key: "type", Value: 1}, {Key: "createdAt", Value: -1}},
		Options: options.Index().SetName("type_createdAt_index"),
	}

	log.Println("EnsureProductIndexes: creating type_createdAt_index")
	_, err := indexes.CreateOne(ctx, typeIndex)
	if err != nil {
		log.Println("EnsureProductIndexes: type index error:", err)
		return err
	}
	return nil
}

// EnsureRefreshTokenIndexes lets Mongo expire refresh tokens on its own once
// past expiresAt, so revoked rows do not accumulate forever.
func EnsureRefreshTokenIndexes(db *mongo.Database) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	indexes := db.Collection("refresh_tokens").Indexes()

	ttlIndex := mongo.IndexModel{
		Keys: bson.D{{Key: "expiresAt", Value: 1}},
		Options: options.Index().
			SetName("expiresAt_ttl").
			SetExpireAfterSeconds(0),
	}

	log.Println("EnsureRefreshTokenIndexes: creating expiresAt_ttl index")
	_, err := indexes.CreateOne(ctx, ttlIndex)
	if err != nil {
		log.Println("EnsureRefreshTokenIndexes: ttl index error:", err)
		return err
	}
	return nil
}
