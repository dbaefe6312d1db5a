package handlers

import (
	"context"
	"log"
	"math"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"fabrix-backend/internal/models"
)

type clothingOptionsRequest struct {
	Sizes   []string `json:"sizes" binding:"required,min=1"`
	Colors  []string `json:"colors" binding:"required,min=1"`
	Fabrics []string `json:"fabrics"`
}

type fabricOptionsRequest struct {
	Styles          []string `json:"styles"`
	MinLengthMeters float64  `json:"minLengthMeters" binding:"required,gt=0"`
}

type createProductRequest struct {
	Type        string                  `json:"type" binding:"required"`
	Name        string                  `json:"name" binding:"required"`
	Description string                  `json:"description"`
	Price       float64                 `json:"price" binding:"required,gt=0"`
	Clothing    *clothingOptionsRequest `json:"clothing"`
	Fabric      *fabricOptionsRequest   `json:"fabric"`
	Image       string                  `json:"image"`
	Stock       *int                    `json:"stock" binding:"required"`
	IsActive    *bool                   `json:"isActive"`
}

type updateProductRequest struct {
	Name        *string                 `json:"name"`
	Description *string                 `json:"description"`
	Price       *float64                `json:"price"`
	Clothing    *clothingOptionsRequest `json:"clothing"`
	Fabric      *fabricOptionsRequest   `json:"fabric"`
	Image       *string                 `json:"image"`
	Stock       *int                    `json:"stock"`
	IsActive    *bool                   `json:"isActive"`
}

func normalizeOptions(values []string) models.StringList {
	seen := map[string]struct{}{}
	out := make([]string, 0, len(values))
	for _, v := range values {
		value := strings.TrimSpace(v)
		if value == "" {
			continue
		}
		if _, ok := seen[value]; ok {
			continue
		}
		seen[value] = struct{}{}
		out = append(out, value)
	}
	return models.StringList(out)
}

// GetAllProducts is the admin catalog view: includes inactive products,
// pagination is mandatory.
func GetAllProducts(db *mongo.Database) gin.HandlerFunc {
	return func(c *gin.Context) {
		page, limit, err := parsePaginationParams(c.Query("page"), c.Query("limit"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		filter := bson.M{
			"isDeleted": bson.M{"$ne": true},
		}

		if productType := strings.TrimSpace(c.Query("type")); productType != "" {
			filter["type"] = productType
		}

		if search := strings.TrimSpace(c.Query("search")); search != "" {
			filter["$or"] = []bson.M{
				{"name": bson.M{"$regex": search, "$options": "i"}},
				{"description": bson.M{"$regex": search, "$options": "i"}},
			}
		}

		if isActive := strings.TrimSpace(c.Query("isActive")); isActive != "" {
			filter["isActive"] = strings.EqualFold(isActive, "true")
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		total, err := db.Collection("products").CountDocuments(ctx, filter)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "db error"})
			return
		}
		totalPages := int64(0)
		if total > 0 {
			totalPages = int64(math.Ceil(float64(total) / float64(limit)))
		}

		opts := options.Find().
			SetSkip((page - 1) * limit).
			SetLimit(limit).
			SetSort(bson.D{{Key: "createdAt", Value: -1}})

		cursor, err := db.Collection("products").Find(ctx, filter, opts)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "db error"})
			return
		}
		defer cursor.Close(ctx)

		products, err := decodeProducts(ctx, cursor)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "decode error"})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"data": products,
			"pagination": gin.H{
				"page":       page,
				"limit":      limit,
				"total":      total,
				"totalPages": totalPages,
			},
		})
	}
}

func CreateProduct(db *mongo.Database) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req createProductRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondValidationError(c, err)
			return
		}

		// Type selects which variant section must be present, and only
		// that section.
		switch req.Type {
		case models.ProductTypeClothing:
			if req.Clothing == nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "clothing options required for clothing products"})
				return
			}
			if req.Fabric != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "fabric options not allowed on clothing products"})
				return
			}
		case models.ProductTypeFabric:
			if req.Fabric == nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "fabric options required for fabric products"})
				return
			}
			if req.Clothing != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "clothing options not allowed on fabric products"})
				return
			}
		default:
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid product type"})
			return
		}

		if *req.Stock < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "stock must be zero or greater"})
			return
		}

		isActive := true
		if req.IsActive != nil {
			isActive = *req.IsActive
		}

		now := time.Now()
		product := models.Product{
			Type:        req.Type,
			Name:        strings.TrimSpace(req.Name),
			Description: strings.TrimSpace(req.Description),
			Price:       req.Price,
			Image:       strings.TrimSpace(req.Image),
			Stock:       *req.Stock,
			IsActive:    isActive,
			CreatedAt:   now,
			UpdatedAt:   now,
		}

		if req.Clothing != nil {
			product.Clothing = &models.ClothingOptions{
				Sizes:   normalizeOptions(req.Clothing.Sizes),
				Colors:  normalizeOptions(req.Clothing.Colors),
				Fabrics: normalizeOptions(req.Clothing.Fabrics),
			}
			if len(product.Clothing.Sizes) == 0 || len(product.Clothing.Colors) == 0 {
				c.JSON(http.StatusBadRequest, gin.H{"error": "sizes and colors must not be empty"})
				return
			}
		}
		if req.Fabric != nil {
			product.Fabric = &models.FabricOptions{
				Styles:          normalizeOptions(req.Fabric.Styles),
				MinLengthMeters: req.Fabric.MinLengthMeters,
			}
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		res, err := db.Collection("products").InsertOne(ctx, product)
		if err != nil {
			log.Println("[PRODUCT] [ERROR] create failed:", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "db error"})
			return
		}

		product.ID, _ = res.InsertedID.(primitive.ObjectID)
		product.InStock = product.Stock > 0

		log.Println("[PRODUCT] [INFO] created:", product.ID.Hex())
		c.JSON(http.StatusCreated, product)
	}
}

func UpdateProduct(db *mongo.Database) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := primitive.ObjectIDFromHex(c.Param("id"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
			return
		}

		var req updateProductRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid body"})
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		var existing models.Product
		err = db.Collection("products").FindOne(ctx, bson.M{
			"_id":       id,
			"isDeleted": bson.M{"$ne": true},
		}).Decode(&existing)
		if err == mongo.ErrNoDocuments {
			c.JSON(http.StatusNotFound, gin.H{"error": "product not found"})
			return
		}
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "db error"})
			return
		}

		updateSet := bson.M{}

		if req.Name != nil {
			name := strings.TrimSpace(*req.Name)
			if name == "" {
				c.JSON(http.StatusBadRequest, gin.H{"error": "name required"})
				return
			}
			updateSet["name"] = name
		}
		if req.Description != nil {
			updateSet["description"] = strings.TrimSpace(*req.Description)
		}
		if req.Price != nil {
			if *req.Price <= 0 {
				c.JSON(http.StatusBadRequest, gin.H{"error": "invalid price"})
				return
			}
			updateSet["price"] = *req.Price
		}
		if req.Clothing != nil {
			if existing.Type != models.ProductTypeClothing {
				c.JSON(http.StatusBadRequest, gin.H{"error": "clothing options not allowed on fabric products"})
				return
			}
			clothing := models.ClothingOptions{
				Sizes:   normalizeOptions(req.Clothing.Sizes),
				Colors:  normalizeOptions(req.Clothing.Colors),
				Fabrics: normalizeOptions(req.Clothing.Fabrics),
			}
			if len(clothing.Sizes) == 0 || len(clothing.Colors) == 0 {
				c.JSON(http.StatusBadRequest, gin.H{"error": "sizes and colors must not be empty"})
				return
			}
			updateSet["clothing"] = clothing
		}
		if req.Fabric != nil {
			if existing.Type != models.ProductTypeFabric {
				c.JSON(http.StatusBadRequest, gin.H{"error": "fabric options not allowed on clothing products"})
				return
			}
			if req.Fabric.MinLengthMeters <= 0 {
				c.JSON(http.StatusBadRequest, gin.H{"error": "minLengthMeters must be greater than zero"})
				return
			}
			updateSet["fabric"] = models.FabricOptions{
				Styles:          normalizeOptions(req.Fabric.Styles),
				MinLengthMeters: req.Fabric.MinLengthMeters,
			}
		}
		if req.Image != nil {
			updateSet["image"] = strings.TrimSpace(*req.Image)
		}
		if req.Stock != nil {
			if *req.Stock < 0 {
				c.JSON(http.StatusBadRequest, gin.H{"error": "stock must be zero or greater"})
				return
			}
			updateSet["stock"] = *req.Stock
		}
		if req.IsActive != nil {
			updateSet["isActive"] = *req.IsActive
		}

		if len(updateSet) == 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "no fields to update"})
			return
		}
		updateSet["updatedAt"] = time.Now()

		var updated models.Product
		err = db.Collection("products").FindOneAndUpdate(ctx,
			bson.M{"_id": id, "isDeleted": bson.M{"$ne": true}},
			bson.M{"$set": updateSet},
			options.FindOneAndUpdate().SetReturnDocument(options.After),
		).Decode(&updated)
		if err != nil {
			log.Println("[PRODUCT] [ERROR] update failed:", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "db error"})
			return
		}

		updated.InStock = updated.Stock > 0
		log.Println("[PRODUCT] [INFO] updated:", id.Hex())
		c.JSON(http.StatusOK, updated)
	}
}

// DeleteProduct soft-deletes: the document stays behind so order item
// snapshots keep resolving, but it disappears from every listing.
func DeleteProduct(db *mongo.Database) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := primitive.ObjectIDFromHex(c.Param("id"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		now := time.Now()
		res, err := db.Collection("products").UpdateOne(ctx,
			bson.M{
				"_id":       id,
				"isDeleted": bson.M{"$ne": true},
			},
			bson.M{"$set": bson.M{
				"isDeleted": true,
				"deletedAt": now,
				"isActive":  false,
				"updatedAt": now,
			}},
		)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "db error"})
			return
		}
		if res.MatchedCount == 0 {
			c.JSON(http.StatusNotFound, gin.H{"error": "product not found"})
			return
		}

		log.Println("[PRODUCT] [INFO] deleted:", id.Hex())
		c.JSON(http.StatusOK, gin.H{"message": "product deleted"})
	}
}
