package services

import (
	"context"
	"fmt"
	"log"
	"time"

	"gatherly/internal/database"
	"gatherly/internal/models"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// TicketService handles ticket purchases with capacity enforcement
type TicketService struct {
	eventCollection    *mongo.Collection
	purchaseCollection *mongo.Collection
}

// NewTicketService creates a new ticket service
func NewTicketService(mongodb *database.MongoDB) *TicketService {
	return &TicketService{
		eventCollection:    mongodb.Collection(database.CollectionEvents),
		purchaseCollection: mongodb.Collection(database.CollectionTicketPurchases),
	}
}

const maxTicketsPerPurchase = 10

// PurchaseTickets reserves quantity tickets of the given type for a user.
// Capacity is enforced with a conditional update on the per-type reserved
// counter so concurrent purchases cannot oversell.
func (s *TicketService) PurchaseTickets(ctx context.Context, eventID, userID, ticketType string, quantity int) (*models.TicketPurchase, error) {
	if quantity <= 0 || quantity > maxTicketsPerPurchase {
		return nil, validationError("quantity must be between 1 and %d", maxTicketsPerPurchase)
	}

	eventOID, err := primitive.ObjectIDFromHex(eventID)
	if err != nil {
		return nil, validationError("invalid event ID")
	}
	userOID, err := primitive.ObjectIDFromHex(userID)
	if err != nil {
		return nil, validationError("invalid user ID")
	}

	var event models.Event
	err = s.eventCollection.FindOne(ctx, bson.M{"_id": eventOID}).Decode(&event)
	if err == mongo.ErrNoDocuments {
		return nil, notFoundError("event")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to fetch event: %w", err)
	}

	if !event.PublishForRegistration {
		return nil, validationError("event is not open for registration")
	}
	if time.Now().After(event.EndTime) {
		return nil, validationError("event has already ended")
	}

	var ticket *models.Ticket
	for i := range event.Tickets {
		if event.Tickets[i].Type == ticketType {
			ticket = &event.Tickets[i]
			break
		}
	}
	if ticket == nil {
		return nil, notFoundError("ticket type")
	}

	reservedField := "reservedTickets." + ticketType

	// Reserve atomically. The filter only matches while enough tickets of
	// this type remain, so a losing racer sees no matched document.
	result, err := s.eventCollection.UpdateOne(ctx,
		bson.M{
			"_id": eventOID,
			"$or": []bson.M{
				{reservedField: bson.M{"$lte": ticket.Quantity - quantity}},
				{reservedField: bson.M{"$exists": false}},
			},
		},
		bson.M{"$inc": bson.M{reservedField: quantity}},
	)
	if err != nil {
		return nil, fmt.Errorf("failed to reserve tickets: %w", err)
	}
	if result.MatchedCount == 0 {
		return nil, validationError("not enough %q tickets left", ticketType)
	}

	purchase := &models.TicketPurchase{
		ID:          primitive.NewObjectID(),
		Event:       eventOID,
		User:        userOID,
		TicketType:  ticketType,
		Quantity:    quantity,
		TotalPrice:  ticket.Price * float64(quantity),
		Token:       uuid.NewString(),
		PurchasedAt: time.Now(),
	}

	if _, err := s.purchaseCollection.InsertOne(ctx, purchase); err != nil {
		// Roll the reservation back so the seats are not stranded.
		if _, rbErr := s.eventCollection.UpdateOne(ctx, bson.M{"_id": eventOID},
			bson.M{"$inc": bson.M{reservedField: -quantity}}); rbErr != nil {
			log.Printf("🚨 [TICKET] Failed to roll back reservation for event %s: %v", eventID, rbErr)
		}
		return nil, fmt.Errorf("failed to record purchase: %w", err)
	}

	log.Printf("🎟️ [TICKET] %d x %q sold for event %s", quantity, ticketType, eventID)
	return purchase, nil
}

// VerifyToken resolves an entry token to its purchase. Used at the door.
func (s *TicketService) VerifyToken(ctx context.Context, token string) (*models.TicketPurchase, error) {
	if token == "" {
		return nil, validationError("token is required")
	}

	var purchase models.TicketPurchase
	err := s.purchaseCollection.FindOne(ctx, bson.M{"token": token}).Decode(&purchase)
	if err == mongo.ErrNoDocuments {
		return nil, notFoundError("ticket")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to verify token: %w", err)
	}
	return &purchase, nil
}

// UserPurchases lists a user's ticket purchases, newest first
func (s *TicketService) UserPurchases(ctx context.Context, userID string) ([]models.TicketPurchase, error) {
	userOID, err := primitive.ObjectIDFromHex(userID)
	if err != nil {
		return nil, validationError("invalid user ID")
	}

	cursor, err := s.purchaseCollection.Find(ctx, bson.M{"user": userOID},
		options.Find().SetSort(bson.M{"purchasedAt": -1}))
	if err != nil {
		return nil, fmt.Errorf("failed to list purchases: %w", err)
	}
	defer cursor.Close(ctx)

	purchases := []models.TicketPurchase{}
	if err := cursor.All(ctx, &purchases); err != nil {
		return nil, fmt.Errorf("failed to decode purchases: %w", err)
	}
	return purchases, nil
}

// EventPurchases lists every purchase for an event. Organizer only.
func (s *TicketService) EventPurchases(ctx context.Context, eventID, organizerID string) ([]models.TicketPurchase, error) {
	eventOID, err := primitive.ObjectIDFromHex(eventID)
	if err != nil {
		return nil, validationError("invalid event ID")
	}
	organizerOID, err := primitive.ObjectIDFromHex(organizerID)
	if err != nil {
		return nil, validationError("invalid organizer ID")
	}

	count, err := s.eventCollection.CountDocuments(ctx, bson.M{"_id": eventOID, "organizer": organizerOID})
	if err != nil {
		return nil, fmt.Errorf("failed to verify organizer: %w", err)
	}
	if count == 0 {
		return nil, notFoundError("event")
	}

	cursor, err := s.purchaseCollection.Find(ctx, bson.M{"event": eventOID},
		options.Find().SetSort(bson.M{"purchasedAt": -1}))
	if err != nil {
		return nil, fmt.Errorf("failed to fetch purchases: %w", err)
	}
	defer cursor.Close(ctx)

	purchases := []models.TicketPurchase{}
	if err := cursor.All(ctx, &purchases); err != nil {
		return nil, fmt.Errorf("failed to decode purchases: %w", err)
	}
	return purchases, nil
}

// EventAttendance summarizes sold tickets per type for an organizer
func (s *TicketService) EventAttendance(ctx context.Context, eventID, organizerID string) (map[string]int, error) {
	purchases, err := s.EventPurchases(ctx, eventID, organizerID)
	if err != nil {
		return nil, err
	}

	totals := map[string]int{}
	for _, purchase := range purchases {
		totals[purchase.TicketType] += purchase.Quantity
	}
	return totals, nil
}
