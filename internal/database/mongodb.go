package database

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

// MongoDB wraps the MongoDB client and database
type MongoDB struct {
	client   *mongo.Client
	database *mongo.Database
	dbName   string
}

// Collection names
const (
	CollectionUsers           = "users"
	CollectionConnections     = "connections"
	CollectionPosts           = "posts"
	CollectionComments        = "comments"
	CollectionInteractions    = "interactions"
	CollectionEvents          = "events"
	CollectionTicketPurchases = "ticket_purchases"
	CollectionSponsors        = "sponsors"
	CollectionSponsorRequests = "sponsor_requests"
	CollectionBooths          = "booths"
	CollectionProducts        = "products"
	CollectionSales           = "sales"
	CollectionConversations   = "conversations"
	CollectionMessages        = "messages"
)

// NewMongoDB creates a new MongoDB connection with connection pooling
func NewMongoDB(uri string) (*MongoDB, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	clientOptions := options.Client().
		ApplyURI(uri).
		SetMaxPoolSize(50).
		SetMinPoolSize(5).
		SetMaxConnIdleTime(30 * time.Second).
		SetServerSelectionTimeout(5 * time.Second).
		SetConnectTimeout(10 * time.Second)

	client, err := mongo.Connect(ctx, clientOptions)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}

	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		return nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}

	dbName := extractDBName(uri)
	if dbName == "" {
		dbName = "gatherly"
	}

	db := &MongoDB{
		client:   client,
		database: client.Database(dbName),
		dbName:   dbName,
	}

	log.Printf("✅ Connected to MongoDB database: %s", dbName)

	return db, nil
}

// extractDBName extracts the database name from MongoDB URI
// mongodb://localhost:27017/gatherly?authSource=admin -> gatherly
func extractDBName(uri string) string {
	lastSlash := strings.LastIndex(uri, "/")
	if lastSlash == -1 || lastSlash == len(uri)-1 {
		return ""
	}
	name := uri[lastSlash+1:]
	if q := strings.Index(name, "?"); q != -1 {
		name = name[:q]
	}
	return name
}

// Initialize creates indexes for all collections
func (m *MongoDB) Initialize(ctx context.Context) error {
	log.Println("📦 Initializing MongoDB indexes...")

	if err := m.createIndexes(ctx, CollectionUsers, []mongo.IndexModel{
		{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "location", Value: 1}}},
		{Keys: bson.D{{Key: "interests", Value: 1}}},
	}); err != nil {
		return fmt.Errorf("failed to create users indexes: %w", err)
	}

	// One edge per unordered pair: services store the pair in both orders so
	// the unique index on (requester, recipient) plus the pre-insert lookup
	// enforces the invariant.
	if err := m.createIndexes(ctx, CollectionConnections, []mongo.IndexModel{
		{Keys: bson.D{{Key: "requester", Value: 1}, {Key: "recipient", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "requester", Value: 1}, {Key: "status", Value: 1}}},
		{Keys: bson.D{{Key: "recipient", Value: 1}, {Key: "status", Value: 1}}},
	}); err != nil {
		return fmt.Errorf("failed to create connections indexes: %w", err)
	}

	if err := m.createIndexes(ctx, CollectionPosts, []mongo.IndexModel{
		{Keys: bson.D{{Key: "author", Value: 1}, {Key: "createdAt", Value: -1}}},
		{Keys: bson.D{{Key: "tags", Value: 1}}},
	}); err != nil {
		return fmt.Errorf("failed to create posts indexes: %w", err)
	}

	if err := m.createIndexes(ctx, CollectionComments, []mongo.IndexModel{
		{Keys: bson.D{{Key: "post", Value: 1}, {Key: "createdAt", Value: -1}}},
		{Keys: bson.D{{Key: "parentComment", Value: 1}}},
		{Keys: bson.D{{Key: "author", Value: 1}}},
	}); err != nil {
		return fmt.Errorf("failed to create comments indexes: %w", err)
	}

	if err := m.createIndexes(ctx, CollectionInteractions, []mongo.IndexModel{
		{Keys: bson.D{{Key: "user", Value: 1}, {Key: "targetId", Value: 1}, {Key: "interactionType", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "targetId", Value: 1}, {Key: "targetType", Value: 1}, {Key: "interactionType", Value: 1}}},
	}); err != nil {
		return fmt.Errorf("failed to create interactions indexes: %w", err)
	}

	if err := m.createIndexes(ctx, CollectionEvents, []mongo.IndexModel{
		{Keys: bson.D{{Key: "organizer", Value: 1}, {Key: "startTime", Value: -1}}},
		{Keys: bson.D{{Key: "publishForRegistration", Value: 1}, {Key: "startTime", Value: 1}}},
	}); err != nil {
		return fmt.Errorf("failed to create events indexes: %w", err)
	}

	if err := m.createIndexes(ctx, CollectionTicketPurchases, []mongo.IndexModel{
		{Keys: bson.D{{Key: "event", Value: 1}, {Key: "purchasedAt", Value: -1}}},
		{Keys: bson.D{{Key: "user", Value: 1}, {Key: "purchasedAt", Value: -1}}},
		{Keys: bson.D{{Key: "token", Value: 1}}, Options: options.Index().SetUnique(true)},
	}); err != nil {
		return fmt.Errorf("failed to create ticket_purchases indexes: %w", err)
	}

	if err := m.createIndexes(ctx, CollectionSponsors, []mongo.IndexModel{
		{Keys: bson.D{{Key: "user", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "companyName", Value: 1}}},
	}); err != nil {
		return fmt.Errorf("failed to create sponsors indexes: %w", err)
	}

	if err := m.createIndexes(ctx, CollectionSponsorRequests, []mongo.IndexModel{
		{Keys: bson.D{{Key: "event", Value: 1}, {Key: "status", Value: 1}}},
		{Keys: bson.D{{Key: "sponsor", Value: 1}}},
	}); err != nil {
		return fmt.Errorf("failed to create sponsor_requests indexes: %w", err)
	}

	if err := m.createIndexes(ctx, CollectionBooths, []mongo.IndexModel{
		{Keys: bson.D{{Key: "event", Value: 1}, {Key: "boothNumber", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "sponsor", Value: 1}}},
	}); err != nil {
		return fmt.Errorf("failed to create booths indexes: %w", err)
	}

	if err := m.createIndexes(ctx, CollectionProducts, []mongo.IndexModel{
		{Keys: bson.D{{Key: "booth", Value: 1}}},
	}); err != nil {
		return fmt.Errorf("failed to create products indexes: %w", err)
	}

	if err := m.createIndexes(ctx, CollectionSales, []mongo.IndexModel{
		{Keys: bson.D{{Key: "post", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "seller", Value: 1}, {Key: "status", Value: 1}}},
	}); err != nil {
		return fmt.Errorf("failed to create sales indexes: %w", err)
	}

	if err := m.createIndexes(ctx, CollectionConversations, []mongo.IndexModel{
		{Keys: bson.D{{Key: "participants", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "updatedAt", Value: -1}}},
	}); err != nil {
		return fmt.Errorf("failed to create conversations indexes: %w", err)
	}

	if err := m.createIndexes(ctx, CollectionMessages, []mongo.IndexModel{
		{Keys: bson.D{{Key: "conversationId", Value: 1}, {Key: "createdAt", Value: -1}}},
	}); err != nil {
		return fmt.Errorf("failed to create messages indexes: %w", err)
	}

	log.Println("✅ MongoDB indexes initialized successfully")
	return nil
}

// createIndexes creates indexes for a collection
func (m *MongoDB) createIndexes(ctx context.Context, collectionName string, indexes []mongo.IndexModel) error {
	collection := m.database.Collection(collectionName)
	_, err := collection.Indexes().CreateMany(ctx, indexes)
	return err
}

// Collection returns a collection handle
func (m *MongoDB) Collection(name string) *mongo.Collection {
	return m.database.Collection(name)
}

// Client returns the underlying MongoDB client
func (m *MongoDB) Client() *mongo.Client {
	return m.client
}

// Database returns the underlying MongoDB database
func (m *MongoDB) Database() *mongo.Database {
	return m.database
}

// Close closes the MongoDB connection
func (m *MongoDB) Close(ctx context.Context) error {
	log.Println("🔌 Closing MongoDB connection...")
	return m.client.Disconnect(ctx)
}

// Ping checks if the database connection is alive
func (m *MongoDB) Ping(ctx context.Context) error {
	return m.client.Ping(ctx, readpref.Primary())
}
