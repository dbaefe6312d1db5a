package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ClothingOptions are the selectable attributes of a clothing product.
type ClothingOptions struct {
	Sizes   StringList `bson:"sizes" json:"sizes"`
	Colors  StringList `bson:"colors" json:"colors"`
	Fabrics StringList `bson:"fabrics,omitempty" json:"fabrics,omitempty"`
}

// FabricOptions describe a by-the-meter fabric product. Price on the parent
// document is the per-meter price for this variant.
type FabricOptions struct {
	Styles          StringList `bson:"styles,omitempty" json:"styles,omitempty"`
	MinLengthMeters float64    `bson:"minLengthMeters" json:"minLengthMeters"`
}

// Product is a catalog entry. Type selects which of the variant sections is
// populated; exactly one of Clothing/Fabric is non-nil for a valid document.
type Product struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Type        string             `bson:"type" json:"type"`
	Name        string             `bson:"name" json:"name"`
	Description string             `bson:"description,omitempty" json:"description,omitempty"`
	Price       float64            `bson:"price" json:"price"`
	Clothing    *ClothingOptions   `bson:"clothing,omitempty" json:"clothing,omitempty"`
	Fabric      *FabricOptions     `bson:"fabric,omitempty" json:"fabric,omitempty"`
	Image       string             `bson:"image,omitempty" json:"image,omitempty"`
	Stock       int                `bson:"stock" json:"stock"`
	InStock     bool               `bson:"-" json:"inStock"`
	IsActive    bool               `bson:"isActive" json:"isActive"`
	IsDeleted   bool               `bson:"isDeleted" json:"isDeleted,omitempty"`
	DeletedAt   *time.Time         `bson:"deletedAt,omitempty" json:"deletedAt,omitempty"`
	CreatedAt   time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt   time.Time          `bson:"updatedAt" json:"updatedAt"`
}
