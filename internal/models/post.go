package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Post is a piece of written content authored by a user
type Post struct {
	ID       primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Title    string             `bson:"title" json:"title"`
	Content  string             `bson:"content" json:"content"`
	Author   primitive.ObjectID `bson:"author" json:"author"`
	Category string             `bson:"category,omitempty" json:"category,omitempty"`
	Tags     []string           `bson:"tags,omitempty" json:"tags,omitempty"`

	CreatedAt time.Time `bson:"createdAt" json:"created_at"`
	UpdatedAt time.Time `bson:"updatedAt" json:"updated_at"`
}

// Comment belongs to a post; ParentComment nests replies one level deep
type Comment struct {
	ID            primitive.ObjectID  `bson:"_id,omitempty" json:"id"`
	Content       string              `bson:"content" json:"content"`
	Post          primitive.ObjectID  `bson:"post" json:"post"`
	Author        primitive.ObjectID  `bson:"author" json:"author"`
	ParentComment *primitive.ObjectID `bson:"parentComment,omitempty" json:"parent_comment,omitempty"`
	CreatedAt     time.Time           `bson:"createdAt" json:"created_at"`
	UpdatedAt     time.Time           `bson:"updatedAt" json:"updated_at"`
}

// CommentThread is a top-level comment with its direct replies
type CommentThread struct {
	Comment Comment   `json:"comment"`
	Replies []Comment `json:"replies"`
}

// Interaction types
const (
	InteractionTypeReaction = "reaction"
	InteractionTypeBookmark = "bookmark"
	InteractionTypeShare    = "share"
)

// Reaction types
const (
	ReactionLike       = "like"
	ReactionLove       = "love"
	ReactionInsightful = "insightful"
	ReactionCelebrate  = "celebrate"
)

// Interaction targets
const (
	TargetTypePost    = "Post"
	TargetTypeComment = "Comment"
)

// Interaction records a reaction, bookmark or share against a post or comment.
// Unique per (user, targetId, interactionType).
type Interaction struct {
	ID              primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	User            primitive.ObjectID `bson:"user" json:"user"`
	TargetID        primitive.ObjectID `bson:"targetId" json:"target_id"`
	TargetType      string             `bson:"targetType" json:"target_type"` // "Post" or "Comment"
	InteractionType string             `bson:"interactionType" json:"interaction_type"`
	ReactionType    string             `bson:"reactionType,omitempty" json:"reaction_type,omitempty"`
	CreatedAt       time.Time          `bson:"createdAt" json:"created_at"`
	UpdatedAt       time.Time          `bson:"updatedAt" json:"updated_at"`
}

// InteractionCounts summarizes interactions for one target
type InteractionCounts struct {
	Reactions      map[string]int `json:"reactions"`
	TotalReactions int            `json:"total_reactions"`
	Bookmarks      int            `json:"bookmarks"`
	Shares         int            `json:"shares"`
}

// Sale statuses
const (
	SaleStatusActive = "active"
	SaleStatusClosed = "closed"
)

// SaleBuyer records one purchase against a sale
type SaleBuyer struct {
	User      primitive.ObjectID `bson:"user" json:"user"`
	PaidPrice float64            `bson:"paidPrice" json:"paid_price"`
	BoughtAt  time.Time          `bson:"boughtAt" json:"bought_at"`
}

// Sale attaches commerce to a post. FinalPrice is derived from Price and
// DiscountPercent on every write.
type Sale struct {
	ID              primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Post            primitive.ObjectID `bson:"post" json:"post"`
	Seller          primitive.ObjectID `bson:"seller" json:"seller"`
	Price           float64            `bson:"price" json:"price"`
	DiscountPercent float64            `bson:"discountPercent" json:"discount_percent"`
	FinalPrice      float64            `bson:"finalPrice" json:"final_price"`
	Status          string             `bson:"status" json:"status"`
	Buyers          []SaleBuyer        `bson:"buyers" json:"buyers"`
	CreatedAt       time.Time          `bson:"createdAt" json:"created_at"`
	UpdatedAt       time.Time          `bson:"updatedAt" json:"updated_at"`
}

// ComputeFinalPrice applies the discount to the list price
func (s *Sale) ComputeFinalPrice() float64 {
	return s.Price - (s.Price*s.DiscountPercent)/100
}
