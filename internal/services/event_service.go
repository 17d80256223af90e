package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"gatherly/internal/database"
	"gatherly/internal/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// EventService handles event lifecycle and sponsor requests
type EventService struct {
	eventCollection   *mongo.Collection
	requestCollection *mongo.Collection
	sponsorCollection *mongo.Collection
	eventRAG          *EventRAGService
}

// NewEventService creates a new event service
func NewEventService(mongodb *database.MongoDB, eventRAG *EventRAGService) *EventService {
	return &EventService{
		eventCollection:   mongodb.Collection(database.CollectionEvents),
		requestCollection: mongodb.Collection(database.CollectionSponsorRequests),
		sponsorCollection: mongodb.Collection(database.CollectionSponsors),
		eventRAG:          eventRAG,
	}
}

// CreateEventInput carries the fields accepted when creating an event
type CreateEventInput struct {
	Title                  string          `json:"title"`
	Description            string          `json:"description"`
	Type                   string          `json:"type"`
	Location               string          `json:"location"`
	MapLink                string          `json:"mapLink"`
	StartTime              time.Time       `json:"startTime"`
	EndTime                time.Time       `json:"endTime"`
	PublishForRegistration bool            `json:"publishForRegistration"`
	Tickets                []models.Ticket `json:"tickets"`
}

// CreateEvent creates an event owned by the organizer and indexes it for
// retrieval.
func (s *EventService) CreateEvent(ctx context.Context, organizerID string, input CreateEventInput) (*models.Event, error) {
	organizer, err := primitive.ObjectIDFromHex(organizerID)
	if err != nil {
		return nil, validationError("invalid organizer ID")
	}
	if strings.TrimSpace(input.Title) == "" {
		return nil, validationError("title is required")
	}
	if input.Type != models.EventTypeHybrid && input.Type != models.EventTypeOnline {
		return nil, validationError("type must be hybrid or online")
	}
	if input.Type == models.EventTypeHybrid && strings.TrimSpace(input.Location) == "" {
		return nil, validationError("hybrid events need a location")
	}
	if !input.EndTime.After(input.StartTime) {
		return nil, validationError("endTime must be after startTime")
	}

	capacity := 0
	for i, ticket := range input.Tickets {
		if strings.TrimSpace(ticket.Type) == "" {
			return nil, validationError("ticket %d is missing a type", i)
		}
		if ticket.Price < 0 {
			return nil, validationError("ticket %q has a negative price", ticket.Type)
		}
		if ticket.Quantity <= 0 {
			return nil, validationError("ticket %q needs a positive quantity", ticket.Type)
		}
		capacity += ticket.Quantity
	}

	now := time.Now()
	event := &models.Event{
		ID:                     primitive.NewObjectID(),
		Title:                  strings.TrimSpace(input.Title),
		Description:            input.Description,
		Organizer:              organizer,
		Type:                   input.Type,
		Location:               input.Location,
		MapLink:                input.MapLink,
		StartTime:              input.StartTime,
		EndTime:                input.EndTime,
		PublishForRegistration: input.PublishForRegistration,
		Tickets:                input.Tickets,
		TotalCapacity:          capacity,
		ReservedTickets:        map[string]int{},
		CreatedAt:              now,
		UpdatedAt:              now,
	}

	if _, err := s.eventCollection.InsertOne(ctx, event); err != nil {
		return nil, fmt.Errorf("failed to create event: %w", err)
	}

	if s.eventRAG != nil {
		s.eventRAG.IndexEventAsync(event)
	}

	return event, nil
}

// GetEvent fetches a single event
func (s *EventService) GetEvent(ctx context.Context, eventID string) (*models.Event, error) {
	oid, err := primitive.ObjectIDFromHex(eventID)
	if err != nil {
		return nil, validationError("invalid event ID")
	}

	var event models.Event
	err = s.eventCollection.FindOne(ctx, bson.M{"_id": oid}).Decode(&event)
	if err == mongo.ErrNoDocuments {
		return nil, notFoundError("event")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to fetch event: %w", err)
	}
	return &event, nil
}

// ListEvents returns events starting soonest first. With upcomingOnly set,
// past events are filtered out.
func (s *EventService) ListEvents(ctx context.Context, upcomingOnly bool, limit, offset int64) ([]models.Event, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}

	filter := bson.M{}
	if upcomingOnly {
		filter["endTime"] = bson.M{"$gte": time.Now()}
	}

	cursor, err := s.eventCollection.Find(ctx, filter, options.Find().
		SetSort(bson.M{"startTime": 1}).
		SetLimit(limit).
		SetSkip(offset))
	if err != nil {
		return nil, fmt.Errorf("failed to list events: %w", err)
	}
	defer cursor.Close(ctx)

	events := []models.Event{}
	if err := cursor.All(ctx, &events); err != nil {
		return nil, fmt.Errorf("failed to decode events: %w", err)
	}
	return events, nil
}

// PublishEvent opens or closes registration. Only the organizer may flip it.
func (s *EventService) PublishEvent(ctx context.Context, eventID, organizerID string, publish bool) (*models.Event, error) {
	oid, err := primitive.ObjectIDFromHex(eventID)
	if err != nil {
		return nil, validationError("invalid event ID")
	}
	organizer, err := primitive.ObjectIDFromHex(organizerID)
	if err != nil {
		return nil, validationError("invalid organizer ID")
	}

	var updated models.Event
	err = s.eventCollection.FindOneAndUpdate(
		ctx,
		bson.M{"_id": oid, "organizer": organizer},
		bson.M{"$set": bson.M{"publishForRegistration": publish, "updatedAt": time.Now()}},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&updated)
	if err == mongo.ErrNoDocuments {
		return nil, notFoundError("event")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to update event: %w", err)
	}
	return &updated, nil
}

// UpdateEventInput carries optional event edits. Nil fields are left alone.
type UpdateEventInput struct {
	Title       *string    `json:"title"`
	Description *string    `json:"description"`
	Location    *string    `json:"location"`
	MapLink     *string    `json:"mapLink"`
	StartTime   *time.Time `json:"startTime"`
	EndTime     *time.Time `json:"endTime"`
}

// UpdateEvent edits event details and re-indexes the listing. Only the
// organizer may edit. Ticket types are fixed after creation so reserved
// counters stay meaningful.
func (s *EventService) UpdateEvent(ctx context.Context, eventID, organizerID string, input UpdateEventInput) (*models.Event, error) {
	oid, err := primitive.ObjectIDFromHex(eventID)
	if err != nil {
		return nil, validationError("invalid event ID")
	}
	organizer, err := primitive.ObjectIDFromHex(organizerID)
	if err != nil {
		return nil, validationError("invalid organizer ID")
	}

	set := bson.M{"updatedAt": time.Now()}
	if input.Title != nil {
		if strings.TrimSpace(*input.Title) == "" {
			return nil, validationError("title cannot be empty")
		}
		set["title"] = strings.TrimSpace(*input.Title)
	}
	if input.Description != nil {
		set["description"] = *input.Description
	}
	if input.Location != nil {
		set["location"] = *input.Location
	}
	if input.MapLink != nil {
		set["mapLink"] = *input.MapLink
	}
	if input.StartTime != nil {
		set["startTime"] = *input.StartTime
	}
	if input.EndTime != nil {
		set["endTime"] = *input.EndTime
	}
	if input.StartTime != nil && input.EndTime != nil && !input.EndTime.After(*input.StartTime) {
		return nil, validationError("endTime must be after startTime")
	}

	var updated models.Event
	err = s.eventCollection.FindOneAndUpdate(
		ctx,
		bson.M{"_id": oid, "organizer": organizer},
		bson.M{"$set": set},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&updated)
	if err == mongo.ErrNoDocuments {
		return nil, notFoundError("event")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to update event: %w", err)
	}

	if s.eventRAG != nil {
		s.eventRAG.IndexEventAsync(&updated)
	}
	return &updated, nil
}

// DeleteEvent removes an event and its retrieval chunks. Only the
// organizer may delete, and only while no tickets have been sold.
func (s *EventService) DeleteEvent(ctx context.Context, eventID, organizerID string) error {
	oid, err := primitive.ObjectIDFromHex(eventID)
	if err != nil {
		return validationError("invalid event ID")
	}
	organizer, err := primitive.ObjectIDFromHex(organizerID)
	if err != nil {
		return validationError("invalid organizer ID")
	}

	var event models.Event
	err = s.eventCollection.FindOne(ctx, bson.M{"_id": oid, "organizer": organizer}).Decode(&event)
	if err == mongo.ErrNoDocuments {
		return notFoundError("event")
	}
	if err != nil {
		return fmt.Errorf("failed to fetch event: %w", err)
	}
	for _, reserved := range event.ReservedTickets {
		if reserved > 0 {
			return validationError("cannot delete an event with sold tickets")
		}
	}

	if _, err := s.eventCollection.DeleteOne(ctx, bson.M{"_id": oid, "organizer": organizer}); err != nil {
		return fmt.Errorf("failed to delete event: %w", err)
	}

	if s.eventRAG != nil {
		s.eventRAG.RemoveEventAsync(eventID)
	}
	return nil
}

// RequestSponsorship files a sponsorship request from a verified sponsor
// for an event.
func (s *EventService) RequestSponsorship(ctx context.Context, eventID, sponsorUserID, category string) (*models.SponsorRequest, error) {
	if category != models.SponsorCategoryMain && category != models.SponsorCategorySub {
		return nil, validationError("category must be main or sub")
	}

	eventOID, err := primitive.ObjectIDFromHex(eventID)
	if err != nil {
		return nil, validationError("invalid event ID")
	}
	userOID, err := primitive.ObjectIDFromHex(sponsorUserID)
	if err != nil {
		return nil, validationError("invalid user ID")
	}

	var sponsor models.Sponsor
	err = s.sponsorCollection.FindOne(ctx, bson.M{"user": userOID}).Decode(&sponsor)
	if err == mongo.ErrNoDocuments {
		return nil, notFoundError("sponsor profile")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to fetch sponsor: %w", err)
	}

	count, err := s.eventCollection.CountDocuments(ctx, bson.M{"_id": eventOID})
	if err != nil {
		return nil, fmt.Errorf("failed to look up event: %w", err)
	}
	if count == 0 {
		return nil, notFoundError("event")
	}

	now := time.Now()
	request := &models.SponsorRequest{
		ID:        primitive.NewObjectID(),
		Event:     eventOID,
		Sponsor:   sponsor.ID,
		Category:  category,
		Status:    models.SponsorRequestStatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if _, err := s.requestCollection.InsertOne(ctx, request); err != nil {
		return nil, fmt.Errorf("failed to create sponsor request: %w", err)
	}
	return request, nil
}

// RespondSponsorRequest lets the event organizer approve or reject a
// pending sponsorship request.
func (s *EventService) RespondSponsorRequest(ctx context.Context, requestID, organizerID, status string) (*models.SponsorRequest, error) {
	if status != models.SponsorRequestStatusApproved && status != models.SponsorRequestStatusRejected {
		return nil, validationError("status must be approved or rejected")
	}

	requestOID, err := primitive.ObjectIDFromHex(requestID)
	if err != nil {
		return nil, validationError("invalid request ID")
	}
	organizerOID, err := primitive.ObjectIDFromHex(organizerID)
	if err != nil {
		return nil, validationError("invalid organizer ID")
	}

	var request models.SponsorRequest
	err = s.requestCollection.FindOne(ctx, bson.M{"_id": requestOID, "status": models.SponsorRequestStatusPending}).Decode(&request)
	if err == mongo.ErrNoDocuments {
		return nil, notFoundError("pending sponsor request")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to fetch sponsor request: %w", err)
	}

	count, err := s.eventCollection.CountDocuments(ctx, bson.M{"_id": request.Event, "organizer": organizerOID})
	if err != nil {
		return nil, fmt.Errorf("failed to verify organizer: %w", err)
	}
	if count == 0 {
		return nil, notFoundError("event")
	}

	var updated models.SponsorRequest
	err = s.requestCollection.FindOneAndUpdate(
		ctx,
		bson.M{"_id": requestOID},
		bson.M{"$set": bson.M{"status": status, "updatedAt": time.Now()}},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&updated)
	if err != nil {
		return nil, fmt.Errorf("failed to update sponsor request: %w", err)
	}
	return &updated, nil
}

// AllEvents streams every event, used by the index rebuild job
func (s *EventService) AllEvents(ctx context.Context) ([]models.Event, error) {
	cursor, err := s.eventCollection.Find(ctx, bson.M{})
	if err != nil {
		return nil, fmt.Errorf("failed to list events: %w", err)
	}
	defer cursor.Close(ctx)

	var events []models.Event
	if err := cursor.All(ctx, &events); err != nil {
		return nil, fmt.Errorf("failed to decode events: %w", err)
	}
	return events, nil
}
