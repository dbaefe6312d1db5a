package handlers

import (
	"context"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"fabrix-backend/internal/models"
)

type addressRequest struct {
	Label      string `json:"label" binding:"required"`
	Line1      string `json:"line1" binding:"required"`
	Line2      string `json:"line2"`
	City       string `json:"city" binding:"required"`
	State      string `json:"state"`
	PostalCode string `json:"postalCode" binding:"required"`
	Country    string `json:"country" binding:"required"`
	IsDefault  bool   `json:"isDefault"`
}

func (r addressRequest) toAddress(id string) models.Address {
	return models.Address{
		ID:         id,
		Label:      strings.TrimSpace(r.Label),
		Line1:      strings.TrimSpace(r.Line1),
		Line2:      strings.TrimSpace(r.Line2),
		City:       strings.TrimSpace(r.City),
		State:      strings.TrimSpace(r.State),
		PostalCode: strings.TrimSpace(r.PostalCode),
		Country:    strings.TrimSpace(r.Country),
		IsDefault:  r.IsDefault,
	}
}

func GetCustomerAddresses(db *mongo.Database) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.MustGet("userId").(primitive.ObjectID)

		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		var customer models.Customer
		if err := db.Collection("customers").FindOne(ctx, bson.M{"_id": userID}).Decode(&customer); err != nil {
			log.Println("[ADDRESS] [ERROR] get addresses failed:", err)
			c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
			return
		}

		c.JSON(http.StatusOK, gin.H{"addresses": customer.Addresses})
	}
}

func CreateCustomerAddress(db *mongo.Database) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.MustGet("userId").(primitive.ObjectID)

		var req addressRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondValidationError(c, err)
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		var customer models.Customer
		if err := db.Collection("customers").FindOne(ctx, bson.M{"_id": userID}).Decode(&customer); err != nil {
			log.Println("[ADDRESS] [ERROR] user not found:", err)
			c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
			return
		}

		// First address becomes the default even when not asked for.
		if len(customer.Addresses) == 0 {
			req.IsDefault = true
		}
		if req.IsDefault {
			for i := range customer.Addresses {
				customer.Addresses[i].IsDefault = false
			}
		}

		address := req.toAddress(uuid.NewString())
		customer.Addresses = append(customer.Addresses, address)

		_, err := db.Collection("customers").UpdateByID(ctx, userID, bson.M{
			"$set": bson.M{
				"addresses": customer.Addresses,
				"updatedAt": time.Now(),
			},
		})
		if err != nil {
			log.Println("[ADDRESS] [ERROR] insert address failed:", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "db error"})
			return
		}

		log.Println("[ADDRESS] [INFO] address created:", address.ID)
		c.JSON(http.StatusCreated, gin.H{"address": address})
	}
}

func UpdateCustomerAddress(db *mongo.Database) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.MustGet("userId").(primitive.ObjectID)

		var req addressRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondValidationError(c, err)
			return
		}

		addressID := strings.TrimSpace(c.Param("id"))
		if addressID == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid address id"})
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		var customer models.Customer
		if err := db.Collection("customers").FindOne(ctx, bson.M{"_id": userID}).Decode(&customer); err != nil {
			log.Println("[ADDRESS] [ERROR] user not found:", err)
			c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
			return
		}

		index := -1
		for i, addr := range customer.Addresses {
			if addr.ID == addressID {
				index = i
				break
			}
		}
		if index == -1 {
			c.JSON(http.StatusNotFound, gin.H{"error": "address not found"})
			return
		}

		if req.IsDefault {
			for i := range customer.Addresses {
				customer.Addresses[i].IsDefault = false
			}
		}

		customer.Addresses[index] = req.toAddress(addressID)

		_, err := db.Collection("customers").UpdateByID(ctx, userID, bson.M{
			"$set": bson.M{
				"addresses": customer.Addresses,
				"updatedAt": time.Now(),
			},
		})
		if err != nil {
			log.Println("[ADDRESS] [ERROR] update address failed:", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "db error"})
			return
		}

		log.Println("[ADDRESS] [INFO] address updated:", addressID)
		c.JSON(http.StatusOK, gin.H{"address": customer.Addresses[index]})
	}
}

func DeleteCustomerAddress(db *mongo.Database) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.MustGet("userId").(primitive.ObjectID)

		addressID := strings.TrimSpace(c.Param("id"))
		if addressID == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid address id"})
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		var customer models.Customer
		if err := db.Collection("customers").FindOne(ctx, bson.M{"_id": userID}).Decode(&customer); err != nil {
			log.Println("[ADDRESS] [ERROR] user not found:", err)
			c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
			return
		}

		updated := make([]models.Address, 0, len(customer.Addresses))
		found := false
		removedDefault := false
		for _, addr := range customer.Addresses {
			if addr.ID == addressID {
				found = true
				removedDefault = addr.IsDefault
				continue
			}
			updated = append(updated, addr)
		}
		if !found {
			c.JSON(http.StatusNotFound, gin.H{"error": "address not found"})
			return
		}
		if removedDefault && len(updated) > 0 {
			updated[0].IsDefault = true
		}

		_, err := db.Collection("customers").UpdateByID(ctx, userID, bson.M{
			"$set": bson.M{
				"addresses": updated,
				"updatedAt": time.Now(),
			},
		})
		if err != nil {
			log.Println("[ADDRESS] [ERROR] delete address failed:", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "db error"})
			return
		}

		log.Println("[ADDRESS] [INFO] address deleted:", addressID)
		c.JSON(http.StatusOK, gin.H{"message": "address deleted"})
	}
}
