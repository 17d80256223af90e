package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Event types
const (
	EventTypeHybrid = "hybrid"
	EventTypeOnline = "online"
)

// Ticket is a purchasable ticket class embedded in an event
type Ticket struct {
	ID       primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Type     string             `bson:"type" json:"type"`
	Price    float64            `bson:"price" json:"price"`
	Quantity int                `bson:"quantity" json:"quantity"`
}

// TicketPurchase records a user buying tickets for an event
type TicketPurchase struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Event       primitive.ObjectID `bson:"event" json:"event"`
	User        primitive.ObjectID `bson:"user" json:"user"`
	TicketType  string             `bson:"ticketType" json:"ticket_type"`
	Quantity    int                `bson:"quantity" json:"quantity"`
	TotalPrice  float64            `bson:"totalPrice" json:"total_price"`
	Token       string             `bson:"token" json:"token"` // entry token shown at the door
	PurchasedAt time.Time          `bson:"purchasedAt" json:"purchased_at"`
}

// Event is a scheduled activity with optional ticketing
type Event struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Title       string             `bson:"title" json:"title"`
	Description string             `bson:"description" json:"description"`
	Organizer   primitive.ObjectID `bson:"organizer" json:"organizer"`
	Type        string             `bson:"type" json:"type"` // "hybrid" or "online"
	Location    string             `bson:"location,omitempty" json:"location,omitempty"`
	MapLink     string             `bson:"mapLink,omitempty" json:"map_link,omitempty"`
	StartTime   time.Time          `bson:"startTime" json:"start_time"`
	EndTime     time.Time          `bson:"endTime" json:"end_time"`

	PublishForRegistration bool           `bson:"publishForRegistration" json:"publish_for_registration"`
	Tickets                []Ticket       `bson:"tickets,omitempty" json:"tickets,omitempty"`
	TotalCapacity          int            `bson:"totalCapacity,omitempty" json:"total_capacity,omitempty"`
	ReservedTickets        map[string]int `bson:"reservedTickets" json:"reserved_tickets"` // per ticket type

	CreatedAt time.Time `bson:"createdAt" json:"created_at"`
	UpdatedAt time.Time `bson:"updatedAt" json:"updated_at"`
}

// Sponsor request categories and statuses
const (
	SponsorCategoryMain = "main"
	SponsorCategorySub  = "sub"

	SponsorRequestStatusPending  = "pending"
	SponsorRequestStatusApproved = "approved"
	SponsorRequestStatusRejected = "rejected"
)

// SponsorRequest is a sponsor asking to sponsor an event
type SponsorRequest struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Event     primitive.ObjectID `bson:"event" json:"event"`
	Sponsor   primitive.ObjectID `bson:"sponsor" json:"sponsor"`
	Category  string             `bson:"category" json:"category"` // "main" or "sub"
	Status    string             `bson:"status" json:"status"`
	CreatedAt time.Time          `bson:"createdAt" json:"created_at"`
	UpdatedAt time.Time          `bson:"updatedAt" json:"updated_at"`
}
