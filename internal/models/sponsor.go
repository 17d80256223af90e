package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Representative is a sponsor contact embedded in the profile
type Representative struct {
	ID       primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Name     string             `bson:"name" json:"name"`
	Role     string             `bson:"role,omitempty" json:"role,omitempty"`
	Email    string             `bson:"email,omitempty" json:"email,omitempty"`
	Phone    string             `bson:"phone,omitempty" json:"phone,omitempty"`
	LinkedIn string             `bson:"linkedIn,omitempty" json:"linked_in,omitempty"`
}

// Sponsor is a company profile owned by a user
type Sponsor struct {
	ID              primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	User            primitive.ObjectID `bson:"user" json:"user"`
	CompanyName     string             `bson:"companyName" json:"company_name"`
	Logo            string             `bson:"logo,omitempty" json:"logo,omitempty"`
	Website         string             `bson:"website,omitempty" json:"website,omitempty"`
	Category        string             `bson:"category,omitempty" json:"category,omitempty"`
	Description     string             `bson:"description,omitempty" json:"description,omitempty"`
	Verified        bool               `bson:"verified" json:"verified"`
	Representatives []Representative   `bson:"representatives,omitempty" json:"representatives,omitempty"`
	CreatedAt       time.Time          `bson:"createdAt" json:"created_at"`
	UpdatedAt       time.Time          `bson:"updatedAt" json:"updated_at"`
}

// Booth statuses
const (
	BoothStatusActive   = "active"
	BoothStatusInactive = "inactive"
)

// Booth places a sponsor at an event
type Booth struct {
	ID            primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Sponsor       primitive.ObjectID `bson:"sponsor" json:"sponsor"`
	Event         primitive.ObjectID `bson:"event" json:"event"`
	BoothNumber   string             `bson:"boothNumber" json:"booth_number"`
	BoothLocation string             `bson:"boothLocation" json:"booth_location"`
	Status        string             `bson:"status" json:"status"`
	CreatedAt     time.Time          `bson:"createdAt" json:"created_at"`
	UpdatedAt     time.Time          `bson:"updatedAt" json:"updated_at"`
}

// Product is shown at a sponsor booth
type Product struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Booth       primitive.ObjectID `bson:"booth" json:"booth"`
	Name        string             `bson:"name" json:"name"`
	Description string             `bson:"description" json:"description"`
	Media       []string           `bson:"media,omitempty" json:"media,omitempty"`
	Link        string             `bson:"link,omitempty" json:"link,omitempty"`
	Category    string             `bson:"category,omitempty" json:"category,omitempty"`
	CreatedAt   time.Time          `bson:"createdAt" json:"created_at"`
	UpdatedAt   time.Time          `bson:"updatedAt" json:"updated_at"`
}
