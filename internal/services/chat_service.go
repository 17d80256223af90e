package services

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"gatherly/internal/crypto"
	"gatherly/internal/database"
	"gatherly/internal/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// ChatService handles direct-message conversations. Message bodies are
// encrypted at rest with a key derived per conversation.
type ChatService struct {
	conversationCollection *mongo.Collection
	messageCollection      *mongo.Collection
	userCollection         *mongo.Collection
	encryption             *crypto.EncryptionService
}

// NewChatService creates a new chat service
func NewChatService(mongodb *database.MongoDB, encryption *crypto.EncryptionService) *ChatService {
	return &ChatService{
		conversationCollection: mongodb.Collection(database.CollectionConversations),
		messageCollection:      mongodb.Collection(database.CollectionMessages),
		userCollection:         mongodb.Collection(database.CollectionUsers),
		encryption:             encryption,
	}
}

// participantPair returns the two IDs in a stable order so the unique
// index treats (a,b) and (b,a) as the same conversation.
func participantPair(a, b primitive.ObjectID) []primitive.ObjectID {
	if a.Hex() < b.Hex() {
		return []primitive.ObjectID{a, b}
	}
	return []primitive.ObjectID{b, a}
}

// lastMessagePreview builds the denormalized conversation preview,
// truncating long bodies to 80 bytes.
func lastMessagePreview(content string, sender primitive.ObjectID, at time.Time) models.LastMessage {
	if len(content) > 80 {
		content = content[:80]
	}
	return models.LastMessage{Content: content, Sender: sender, CreatedAt: at}
}

// OpenConversation finds or creates the conversation between two users
func (s *ChatService) OpenConversation(ctx context.Context, userID, otherID string) (*models.Conversation, error) {
	if userID == otherID {
		return nil, validationError("cannot start a conversation with yourself")
	}

	userOID, err := primitive.ObjectIDFromHex(userID)
	if err != nil {
		return nil, validationError("invalid user ID")
	}
	otherOID, err := primitive.ObjectIDFromHex(otherID)
	if err != nil {
		return nil, validationError("invalid participant ID")
	}

	count, err := s.userCollection.CountDocuments(ctx, bson.M{"_id": otherOID})
	if err != nil {
		return nil, fmt.Errorf("failed to look up participant: %w", err)
	}
	if count == 0 {
		return nil, notFoundError("user")
	}

	pair := participantPair(userOID, otherOID)
	now := time.Now()

	var conversation models.Conversation
	err = s.conversationCollection.FindOneAndUpdate(
		ctx,
		bson.M{"participants": pair},
		bson.M{
			"$setOnInsert": bson.M{
				"participants": pair,
				"createdAt":    now,
				"updatedAt":    now,
			},
		},
		options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After),
	).Decode(&conversation)
	if err != nil {
		return nil, fmt.Errorf("failed to open conversation: %w", err)
	}

	return &conversation, nil
}

// ListConversations returns the user's conversations, most recent first
func (s *ChatService) ListConversations(ctx context.Context, userID string) ([]models.Conversation, error) {
	userOID, err := primitive.ObjectIDFromHex(userID)
	if err != nil {
		return nil, validationError("invalid user ID")
	}

	cursor, err := s.conversationCollection.Find(ctx,
		bson.M{"participants": userOID},
		options.Find().SetSort(bson.M{"updatedAt": -1}))
	if err != nil {
		return nil, fmt.Errorf("failed to list conversations: %w", err)
	}
	defer cursor.Close(ctx)

	conversations := []models.Conversation{}
	if err := cursor.All(ctx, &conversations); err != nil {
		return nil, fmt.Errorf("failed to decode conversations: %w", err)
	}
	return conversations, nil
}

func (s *ChatService) conversationForUser(ctx context.Context, conversationID, userID string) (*models.Conversation, primitive.ObjectID, error) {
	convOID, err := primitive.ObjectIDFromHex(conversationID)
	if err != nil {
		return nil, primitive.NilObjectID, validationError("invalid conversation ID")
	}
	userOID, err := primitive.ObjectIDFromHex(userID)
	if err != nil {
		return nil, primitive.NilObjectID, validationError("invalid user ID")
	}

	var conversation models.Conversation
	err = s.conversationCollection.FindOne(ctx, bson.M{"_id": convOID, "participants": userOID}).Decode(&conversation)
	if err == mongo.ErrNoDocuments {
		return nil, primitive.NilObjectID, notFoundError("conversation")
	}
	if err != nil {
		return nil, primitive.NilObjectID, fmt.Errorf("failed to fetch conversation: %w", err)
	}
	return &conversation, userOID, nil
}

// SendMessage encrypts and stores a message from a participant
func (s *ChatService) SendMessage(ctx context.Context, conversationID, senderID, content string) (*models.DecryptedMessage, error) {
	if strings.TrimSpace(content) == "" {
		return nil, validationError("message content is required")
	}

	conversation, senderOID, err := s.conversationForUser(ctx, conversationID, senderID)
	if err != nil {
		return nil, err
	}

	encrypted, err := s.encryption.EncryptString(conversation.ID.Hex(), content)
	if err != nil {
		return nil, fmt.Errorf("failed to encrypt message: %w", err)
	}

	now := time.Now()
	message := &models.Message{
		ID:               primitive.NewObjectID(),
		ConversationID:   conversation.ID,
		Sender:           senderOID,
		EncryptedContent: encrypted,
		ReadBy:           []primitive.ObjectID{senderOID},
		CreatedAt:        now,
	}

	if _, err := s.messageCollection.InsertOne(ctx, message); err != nil {
		return nil, fmt.Errorf("failed to store message: %w", err)
	}

	_, err = s.conversationCollection.UpdateOne(ctx, bson.M{"_id": conversation.ID}, bson.M{
		"$set": bson.M{
			"lastMessage": lastMessagePreview(content, senderOID, now),
			"updatedAt":   now,
		},
	})
	if err != nil {
		log.Printf("⚠️ [CHAT] Failed to update conversation preview: %v", err)
	}

	return &models.DecryptedMessage{Message: *message, Content: content}, nil
}

// GetMessages returns decrypted messages for a participant, oldest first,
// and marks them read.
func (s *ChatService) GetMessages(ctx context.Context, conversationID, userID string, limit int64) ([]models.DecryptedMessage, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}

	conversation, userOID, err := s.conversationForUser(ctx, conversationID, userID)
	if err != nil {
		return nil, err
	}

	cursor, err := s.messageCollection.Find(ctx,
		bson.M{"conversationId": conversation.ID},
		options.Find().SetSort(bson.M{"createdAt": -1}).SetLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("failed to fetch messages: %w", err)
	}
	defer cursor.Close(ctx)

	var messages []models.Message
	if err := cursor.All(ctx, &messages); err != nil {
		return nil, fmt.Errorf("failed to decode messages: %w", err)
	}

	// Reverse into chronological order while decrypting.
	decrypted := make([]models.DecryptedMessage, 0, len(messages))
	for i := len(messages) - 1; i >= 0; i-- {
		content, err := s.encryption.DecryptString(conversation.ID.Hex(), messages[i].EncryptedContent)
		if err != nil {
			log.Printf("🚨 [CHAT] Failed to decrypt message %s: %v", messages[i].ID.Hex(), err)
			continue
		}
		decrypted = append(decrypted, models.DecryptedMessage{Message: messages[i], Content: content})
	}

	_, err = s.messageCollection.UpdateMany(ctx,
		bson.M{"conversationId": conversation.ID, "readBy": bson.M{"$ne": userOID}},
		bson.M{"$addToSet": bson.M{"readBy": userOID}})
	if err != nil {
		log.Printf("⚠️ [CHAT] Failed to mark messages read: %v", err)
	}

	return decrypted, nil
}
