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

// SponsorService handles sponsor profiles, booths, and booth products
type SponsorService struct {
	sponsorCollection *mongo.Collection
	boothCollection   *mongo.Collection
	productCollection *mongo.Collection
	eventCollection   *mongo.Collection
	requestCollection *mongo.Collection
}

// NewSponsorService creates a new sponsor service
func NewSponsorService(mongodb *database.MongoDB) *SponsorService {
	return &SponsorService{
		sponsorCollection: mongodb.Collection(database.CollectionSponsors),
		boothCollection:   mongodb.Collection(database.CollectionBooths),
		productCollection: mongodb.Collection(database.CollectionProducts),
		eventCollection:   mongodb.Collection(database.CollectionEvents),
		requestCollection: mongodb.Collection(database.CollectionSponsorRequests),
	}
}

// SponsorProfileInput carries the fields for creating a sponsor profile
type SponsorProfileInput struct {
	CompanyName string `json:"companyName"`
	Logo        string `json:"logo"`
	Website     string `json:"website"`
	Category    string `json:"category"`
	Description string `json:"description"`
}

// CreateProfile creates a sponsor profile for a user. One per user.
func (s *SponsorService) CreateProfile(ctx context.Context, userID string, input SponsorProfileInput) (*models.Sponsor, error) {
	userOID, err := primitive.ObjectIDFromHex(userID)
	if err != nil {
		return nil, validationError("invalid user ID")
	}
	if strings.TrimSpace(input.CompanyName) == "" {
		return nil, validationError("companyName is required")
	}

	now := time.Now()
	sponsor := &models.Sponsor{
		ID:              primitive.NewObjectID(),
		User:            userOID,
		CompanyName:     strings.TrimSpace(input.CompanyName),
		Logo:            input.Logo,
		Website:         input.Website,
		Category:        input.Category,
		Description:     input.Description,
		Representatives: []models.Representative{},
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	if _, err := s.sponsorCollection.InsertOne(ctx, sponsor); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil, validationError("sponsor profile already exists")
		}
		return nil, fmt.Errorf("failed to create sponsor: %w", err)
	}
	return sponsor, nil
}

// GetProfileByUser fetches the sponsor profile owned by a user
func (s *SponsorService) GetProfileByUser(ctx context.Context, userID string) (*models.Sponsor, error) {
	userOID, err := primitive.ObjectIDFromHex(userID)
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
	return &sponsor, nil
}

// AddRepresentative appends a representative to the sponsor's profile
func (s *SponsorService) AddRepresentative(ctx context.Context, userID string, rep models.Representative) (*models.Sponsor, error) {
	userOID, err := primitive.ObjectIDFromHex(userID)
	if err != nil {
		return nil, validationError("invalid user ID")
	}
	if strings.TrimSpace(rep.Name) == "" {
		return nil, validationError("representative name is required")
	}

	var updated models.Sponsor
	err = s.sponsorCollection.FindOneAndUpdate(
		ctx,
		bson.M{"user": userOID},
		bson.M{
			"$push": bson.M{"representatives": rep},
			"$set":  bson.M{"updatedAt": time.Now()},
		},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&updated)
	if err == mongo.ErrNoDocuments {
		return nil, notFoundError("sponsor profile")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to add representative: %w", err)
	}
	return &updated, nil
}

// CreateBooth assigns a booth to a sponsor at an event. Requires an
// approved sponsorship request for that event. Booth numbers are unique
// within an event.
func (s *SponsorService) CreateBooth(ctx context.Context, userID, eventID, boothNumber, boothLocation string) (*models.Booth, error) {
	sponsor, err := s.GetProfileByUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	eventOID, err := primitive.ObjectIDFromHex(eventID)
	if err != nil {
		return nil, validationError("invalid event ID")
	}
	if strings.TrimSpace(boothNumber) == "" {
		return nil, validationError("boothNumber is required")
	}

	count, err := s.requestCollection.CountDocuments(ctx, bson.M{
		"event":   eventOID,
		"sponsor": sponsor.ID,
		"status":  models.SponsorRequestStatusApproved,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to check sponsorship: %w", err)
	}
	if count == 0 {
		return nil, validationError("no approved sponsorship for this event")
	}

	now := time.Now()
	booth := &models.Booth{
		ID:            primitive.NewObjectID(),
		Sponsor:       sponsor.ID,
		Event:         eventOID,
		BoothNumber:   boothNumber,
		BoothLocation: boothLocation,
		Status:        models.BoothStatusActive,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	if _, err := s.boothCollection.InsertOne(ctx, booth); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil, validationError("booth number %q is taken for this event", boothNumber)
		}
		return nil, fmt.Errorf("failed to create booth: %w", err)
	}
	return booth, nil
}

// EventBooths lists the active booths at an event
func (s *SponsorService) EventBooths(ctx context.Context, eventID string) ([]models.Booth, error) {
	eventOID, err := primitive.ObjectIDFromHex(eventID)
	if err != nil {
		return nil, validationError("invalid event ID")
	}

	cursor, err := s.boothCollection.Find(ctx, bson.M{
		"event":  eventOID,
		"status": models.BoothStatusActive,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list booths: %w", err)
	}
	defer cursor.Close(ctx)

	booths := []models.Booth{}
	if err := cursor.All(ctx, &booths); err != nil {
		return nil, fmt.Errorf("failed to decode booths: %w", err)
	}
	return booths, nil
}

// AddProductInput carries the fields for a booth product
type AddProductInput struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Media       []string `json:"media"`
	Link        string   `json:"link"`
	Category    string   `json:"category"`
}

// newBoothProduct builds a product document from its input
func newBoothProduct(booth primitive.ObjectID, input AddProductInput, now time.Time) *models.Product {
	return &models.Product{
		ID:          primitive.NewObjectID(),
		Booth:       booth,
		Name:        strings.TrimSpace(input.Name),
		Description: input.Description,
		Media:       input.Media,
		Link:        input.Link,
		Category:    input.Category,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// AddProduct attaches a product to one of the sponsor's booths
func (s *SponsorService) AddProduct(ctx context.Context, userID, boothID string, input AddProductInput) (*models.Product, error) {
	sponsor, err := s.GetProfileByUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	boothOID, err := primitive.ObjectIDFromHex(boothID)
	if err != nil {
		return nil, validationError("invalid booth ID")
	}
	if strings.TrimSpace(input.Name) == "" {
		return nil, validationError("name is required")
	}

	count, err := s.boothCollection.CountDocuments(ctx, bson.M{"_id": boothOID, "sponsor": sponsor.ID})
	if err != nil {
		return nil, fmt.Errorf("failed to verify booth: %w", err)
	}
	if count == 0 {
		return nil, notFoundError("booth")
	}

	product := newBoothProduct(boothOID, input, time.Now())

	if _, err := s.productCollection.InsertOne(ctx, product); err != nil {
		return nil, fmt.Errorf("failed to create product: %w", err)
	}
	return product, nil
}

// BoothProducts lists the products at a booth
func (s *SponsorService) BoothProducts(ctx context.Context, boothID string) ([]models.Product, error) {
	boothOID, err := primitive.ObjectIDFromHex(boothID)
	if err != nil {
		return nil, validationError("invalid booth ID")
	}

	cursor, err := s.productCollection.Find(ctx, bson.M{"booth": boothOID})
	if err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}
	defer cursor.Close(ctx)

	products := []models.Product{}
	if err := cursor.All(ctx, &products); err != nil {
		return nil, fmt.Errorf("failed to decode products: %w", err)
	}
	return products, nil
}
