package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Address is a saved shipping address on a customer account. ID is a uuid
// assigned when the address is created.
type Address struct {
	ID         string `bson:"id" json:"id"`
	Label      string `bson:"label" json:"label"`
	Line1      string `bson:"line1" json:"line1"`
	Line2      string `bson:"line2,omitempty" json:"line2,omitempty"`
	City       string `bson:"city" json:"city"`
	State      string `bson:"state,omitempty" json:"state,omitempty"`
	PostalCode string `bson:"postalCode" json:"postalCode"`
	Country    string `bson:"country" json:"country"`
	IsDefault  bool   `bson:"isDefault" json:"isDefault"`
}

type Customer struct {
	ID           primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	FirstName    string             `bson:"firstName" json:"firstName"`
	LastName     string             `bson:"lastName" json:"lastName"`
	Email        string             `bson:"email" json:"email"`
	Phone        string             `bson:"phone,omitempty" json:"phone,omitempty"`
	Company      string             `bson:"company,omitempty" json:"company,omitempty"`
	PasswordHash string             `bson:"passwordHash" json:"-"`
	Addresses    []Address          `bson:"addresses" json:"addresses"`
	IsActive     bool               `bson:"isActive" json:"isActive"`
	Role         string             `bson:"role" json:"role"`
	CreatedAt    time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt    time.Time          `bson:"updatedAt" json:"updatedAt"`
}
