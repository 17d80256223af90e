package services

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"gatherly/internal/database"
	"gatherly/internal/models"
	"gatherly/pkg/auth"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// UserService handles user accounts and the connection graph
type UserService struct {
	mongodb        *database.MongoDB
	userCollection *mongo.Collection
	connCollection *mongo.Collection
}

// NewUserService creates a new user service
func NewUserService(mongodb *database.MongoDB) *UserService {
	return &UserService{
		mongodb:        mongodb,
		userCollection: mongodb.Collection(database.CollectionUsers),
		connCollection: mongodb.Collection(database.CollectionConnections),
	}
}

// RegisterInput carries the fields accepted at signup
type RegisterInput struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

// Register creates a new user with an argon2id password hash
func (s *UserService) Register(ctx context.Context, input RegisterInput) (*models.User, error) {
	input.Name = strings.TrimSpace(input.Name)
	input.Email = strings.ToLower(strings.TrimSpace(input.Email))

	if input.Name == "" {
		return nil, validationError("name is required")
	}
	if input.Email == "" || !strings.Contains(input.Email, "@") {
		return nil, validationError("valid email is required")
	}
	if err := auth.ValidatePassword(input.Password); err != nil {
		return nil, validationError("%v", err)
	}
	if input.Role == "" {
		input.Role = "attendee"
	}

	hash, err := auth.HashPassword(input.Password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	now := time.Now()
	user := &models.User{
		ID:           primitive.NewObjectID(),
		Name:         input.Name,
		Email:        input.Email,
		PasswordHash: hash,
		Role:         input.Role,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if _, err := s.userCollection.InsertOne(ctx, user); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil, validationError("email already registered")
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	log.Printf("👤 [USER] Registered %s (%s)", user.Name, user.Email)
	return user, nil
}

// GetByEmail fetches a user by email for login
func (s *UserService) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	err := s.userCollection.FindOne(ctx, bson.M{"email": strings.ToLower(strings.TrimSpace(email))}).Decode(&user)
	if err == mongo.ErrNoDocuments {
		return nil, notFoundError("user")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to fetch user: %w", err)
	}
	return &user, nil
}

// GetByID fetches a user by its hex ID
func (s *UserService) GetByID(ctx context.Context, id string) (*models.User, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, validationError("invalid user ID")
	}

	var user models.User
	err = s.userCollection.FindOne(ctx, bson.M{"_id": oid}).Decode(&user)
	if err == mongo.ErrNoDocuments {
		return nil, notFoundError("user")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to fetch user: %w", err)
	}
	return &user, nil
}

// ListUsers pages through member profiles, newest first
func (s *UserService) ListUsers(ctx context.Context, limit, offset int64) ([]models.PublicProfile, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}

	cursor, err := s.userCollection.Find(ctx, bson.M{},
		options.Find().SetSort(bson.M{"createdAt": -1}).SetLimit(limit).SetSkip(offset))
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	defer cursor.Close(ctx)

	var users []models.User
	if err := cursor.All(ctx, &users); err != nil {
		return nil, fmt.Errorf("failed to decode users: %w", err)
	}

	profiles := make([]models.PublicProfile, 0, len(users))
	for i := range users {
		profiles = append(profiles, users[i].Public())
	}
	return profiles, nil
}

// UpdateProfileInput carries the mutable profile fields. Nil pointers are
// left untouched so partial updates work.
type UpdateProfileInput struct {
	Name      *string   `json:"name,omitempty"`
	Bio       *string   `json:"bio,omitempty"`
	Avatar    *string   `json:"avatar,omitempty"`
	Company   *string   `json:"company,omitempty"`
	Location  *string   `json:"location,omitempty"`
	Interests *[]string `json:"interests,omitempty"`
}

// UpdateProfile applies a partial profile update
func (s *UserService) UpdateProfile(ctx context.Context, userID string, input UpdateProfileInput) (*models.User, error) {
	oid, err := primitive.ObjectIDFromHex(userID)
	if err != nil {
		return nil, validationError("invalid user ID")
	}

	set := bson.M{"updatedAt": time.Now()}
	if input.Name != nil {
		if strings.TrimSpace(*input.Name) == "" {
			return nil, validationError("name cannot be empty")
		}
		set["name"] = strings.TrimSpace(*input.Name)
	}
	if input.Bio != nil {
		set["bio"] = *input.Bio
	}
	if input.Avatar != nil {
		set["avatar"] = *input.Avatar
	}
	if input.Company != nil {
		set["company"] = *input.Company
	}
	if input.Location != nil {
		set["location"] = *input.Location
	}
	if input.Interests != nil {
		set["interests"] = *input.Interests
	}

	var updated models.User
	err = s.userCollection.FindOneAndUpdate(
		ctx,
		bson.M{"_id": oid},
		bson.M{"$set": set},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&updated)
	if err == mongo.ErrNoDocuments {
		return nil, notFoundError("user")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to update profile: %w", err)
	}

	return &updated, nil
}

// TouchLastActive records activity for the recency score. Best effort.
func (s *UserService) TouchLastActive(ctx context.Context, userID string) {
	oid, err := primitive.ObjectIDFromHex(userID)
	if err != nil {
		return
	}
	now := time.Now()
	_, err = s.userCollection.UpdateOne(ctx, bson.M{"_id": oid}, bson.M{"$set": bson.M{"lastActiveAt": now}})
	if err != nil {
		log.Printf("⚠️ [USER] Failed to touch lastActiveAt for %s: %v", userID, err)
	}
}

// RecordLogin stamps lastLoginAt and lastActiveAt after a successful login
func (s *UserService) RecordLogin(ctx context.Context, userID primitive.ObjectID) {
	now := time.Now()
	_, err := s.userCollection.UpdateOne(ctx, bson.M{"_id": userID}, bson.M{
		"$set": bson.M{"lastLoginAt": now, "lastActiveAt": now},
	})
	if err != nil {
		log.Printf("⚠️ [USER] Failed to record login for %s: %v", userID.Hex(), err)
	}
}

// BumpTokenVersion invalidates all outstanding refresh tokens for a user
func (s *UserService) BumpTokenVersion(ctx context.Context, userID primitive.ObjectID) error {
	_, err := s.userCollection.UpdateOne(ctx, bson.M{"_id": userID}, bson.M{
		"$inc": bson.M{"refreshTokenVersion": 1},
	})
	if err != nil {
		return fmt.Errorf("failed to bump token version: %w", err)
	}
	return nil
}

// SendConnectionRequest creates a pending connection from requester to
// recipient. Duplicate pairs in either direction are rejected.
func (s *UserService) SendConnectionRequest(ctx context.Context, requesterID, recipientID string) (*models.Connection, error) {
	if requesterID == recipientID {
		return nil, validationError("cannot connect with yourself")
	}

	requester, err := primitive.ObjectIDFromHex(requesterID)
	if err != nil {
		return nil, validationError("invalid requester ID")
	}
	recipient, err := primitive.ObjectIDFromHex(recipientID)
	if err != nil {
		return nil, validationError("invalid recipient ID")
	}

	count, err := s.userCollection.CountDocuments(ctx, bson.M{"_id": recipient})
	if err != nil {
		return nil, fmt.Errorf("failed to look up recipient: %w", err)
	}
	if count == 0 {
		return nil, notFoundError("recipient")
	}

	existing := s.connCollection.FindOne(ctx, bson.M{
		"$or": []bson.M{
			{"requester": requester, "recipient": recipient},
			{"requester": recipient, "recipient": requester},
		},
	})
	if existing.Err() == nil {
		return nil, validationError("connection already exists")
	}
	if existing.Err() != mongo.ErrNoDocuments {
		return nil, fmt.Errorf("failed to check existing connection: %w", existing.Err())
	}

	now := time.Now()
	conn := &models.Connection{
		ID:        primitive.NewObjectID(),
		Requester: requester,
		Recipient: recipient,
		Status:    models.ConnectionStatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if _, err := s.connCollection.InsertOne(ctx, conn); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil, validationError("connection already exists")
		}
		return nil, fmt.Errorf("failed to create connection: %w", err)
	}

	return conn, nil
}

// RespondConnectionRequest lets the recipient accept or reject a pending
// request. Only the recipient may respond.
func (s *UserService) RespondConnectionRequest(ctx context.Context, connectionID, userID, status string) (*models.Connection, error) {
	if status != models.ConnectionStatusAccepted && status != models.ConnectionStatusRejected {
		return nil, validationError("status must be accepted or rejected")
	}

	connOID, err := primitive.ObjectIDFromHex(connectionID)
	if err != nil {
		return nil, validationError("invalid connection ID")
	}
	userOID, err := primitive.ObjectIDFromHex(userID)
	if err != nil {
		return nil, validationError("invalid user ID")
	}

	var updated models.Connection
	err = s.connCollection.FindOneAndUpdate(
		ctx,
		bson.M{"_id": connOID, "recipient": userOID, "status": models.ConnectionStatusPending},
		bson.M{"$set": bson.M{"status": status, "updatedAt": time.Now()}},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&updated)
	if err == mongo.ErrNoDocuments {
		return nil, notFoundError("pending connection request")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to respond to connection: %w", err)
	}

	return &updated, nil
}

// PendingRequests lists pending requests where the user is the recipient
func (s *UserService) PendingRequests(ctx context.Context, userID string) ([]models.Connection, error) {
	oid, err := primitive.ObjectIDFromHex(userID)
	if err != nil {
		return nil, validationError("invalid user ID")
	}

	cursor, err := s.connCollection.Find(ctx, bson.M{
		"recipient": oid,
		"status":    models.ConnectionStatusPending,
	}, options.Find().SetSort(bson.M{"createdAt": -1}))
	if err != nil {
		return nil, fmt.Errorf("failed to list pending requests: %w", err)
	}
	defer cursor.Close(ctx)

	conns := []models.Connection{}
	if err := cursor.All(ctx, &conns); err != nil {
		return nil, fmt.Errorf("failed to decode connections: %w", err)
	}
	return conns, nil
}

// AcceptedConnections returns the user's accepted connections with the
// other participant's public profile attached.
func (s *UserService) AcceptedConnections(ctx context.Context, userID string) ([]models.ConnectionView, error) {
	oid, err := primitive.ObjectIDFromHex(userID)
	if err != nil {
		return nil, validationError("invalid user ID")
	}

	cursor, err := s.connCollection.Find(ctx, bson.M{
		"status": models.ConnectionStatusAccepted,
		"$or":    []bson.M{{"requester": oid}, {"recipient": oid}},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list connections: %w", err)
	}
	defer cursor.Close(ctx)

	var conns []models.Connection
	if err := cursor.All(ctx, &conns); err != nil {
		return nil, fmt.Errorf("failed to decode connections: %w", err)
	}

	views := []models.ConnectionView{}
	for _, conn := range conns {
		otherID := conn.Other(oid)
		var other models.User
		if err := s.userCollection.FindOne(ctx, bson.M{"_id": otherID}).Decode(&other); err != nil {
			log.Printf("⚠️ [USER] Connection %s references missing user %s", conn.ID.Hex(), otherID.Hex())
			continue
		}
		views = append(views, models.ConnectionView{
			ConnectionID: conn.ID,
			Status:       conn.Status,
			User:         other.Public(),
			CreatedAt:    conn.CreatedAt,
			UpdatedAt:    conn.UpdatedAt,
		})
	}

	return views, nil
}

// acceptedNeighborIDs returns the IDs directly connected to userID through
// accepted connections. Used by the suggestion traversal.
func (s *UserService) acceptedNeighborIDs(ctx context.Context, userID primitive.ObjectID) ([]primitive.ObjectID, error) {
	cursor, err := s.connCollection.Find(ctx, bson.M{
		"status": models.ConnectionStatusAccepted,
		"$or":    []bson.M{{"requester": userID}, {"recipient": userID}},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to fetch connections: %w", err)
	}
	defer cursor.Close(ctx)

	var conns []models.Connection
	if err := cursor.All(ctx, &conns); err != nil {
		return nil, fmt.Errorf("failed to decode connections: %w", err)
	}

	ids := make([]primitive.ObjectID, 0, len(conns))
	for _, conn := range conns {
		ids = append(ids, conn.Other(userID))
	}
	return ids, nil
}

// connectedOrPendingIDs returns every user the given user has an accepted
// or pending connection with, in either direction. Rejected pairs stay
// eligible for suggestions.
func (s *UserService) connectedOrPendingIDs(ctx context.Context, userID primitive.ObjectID) (map[primitive.ObjectID]bool, error) {
	cursor, err := s.connCollection.Find(ctx, bson.M{
		"status": bson.M{"$in": []string{models.ConnectionStatusAccepted, models.ConnectionStatusPending}},
		"$or":    []bson.M{{"requester": userID}, {"recipient": userID}},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to fetch connections: %w", err)
	}
	defer cursor.Close(ctx)

	var conns []models.Connection
	if err := cursor.All(ctx, &conns); err != nil {
		return nil, fmt.Errorf("failed to decode connections: %w", err)
	}

	seen := make(map[primitive.ObjectID]bool, len(conns))
	for _, conn := range conns {
		seen[conn.Other(userID)] = true
	}
	return seen, nil
}
