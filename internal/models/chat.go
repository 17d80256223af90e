package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Conversation is a direct-message thread between two users.
// Participants are stored sorted so the pair is unique regardless of order.
type Conversation struct {
	ID           primitive.ObjectID   `bson:"_id,omitempty" json:"id"`
	Participants []primitive.ObjectID `bson:"participants" json:"participants"`
	LastMessage  *LastMessage         `bson:"lastMessage,omitempty" json:"last_message,omitempty"`
	CreatedAt    time.Time            `bson:"createdAt" json:"created_at"`
	UpdatedAt    time.Time            `bson:"updatedAt" json:"updated_at"`
}

// LastMessage is a denormalized preview of the newest message
type LastMessage struct {
	Content   string             `bson:"content" json:"content"`
	Sender    primitive.ObjectID `bson:"sender" json:"sender"`
	CreatedAt time.Time          `bson:"createdAt" json:"created_at"`
}

// Message is a single direct message. The body is stored AES-256-GCM
// encrypted; EncryptedContent never leaves the server.
type Message struct {
	ID               primitive.ObjectID   `bson:"_id,omitempty" json:"id"`
	ConversationID   primitive.ObjectID   `bson:"conversationId" json:"conversation_id"`
	Sender           primitive.ObjectID   `bson:"sender" json:"sender"`
	EncryptedContent string               `bson:"encryptedContent" json:"-"`
	ReadBy           []primitive.ObjectID `bson:"readBy,omitempty" json:"read_by,omitempty"`
	CreatedAt        time.Time            `bson:"createdAt" json:"created_at"`
}

// DecryptedMessage is a message with its plaintext body, for API responses
type DecryptedMessage struct {
	Message
	Content string `json:"content"`
}
