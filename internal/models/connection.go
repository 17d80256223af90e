package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Connection statuses
const (
	ConnectionStatusPending  = "pending"
	ConnectionStatusAccepted = "accepted"
	ConnectionStatusRejected = "rejected"
)

// Connection is a social-graph edge between two users.
// At most one edge exists per unordered pair; once accepted the edge is
// treated as undirected for graph traversal.
type Connection struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Requester primitive.ObjectID `bson:"requester" json:"requester"`
	Recipient primitive.ObjectID `bson:"recipient" json:"recipient"`
	Status    string             `bson:"status" json:"status"` // "pending", "accepted", "rejected"
	CreatedAt time.Time          `bson:"createdAt" json:"created_at"`
	UpdatedAt time.Time          `bson:"updatedAt" json:"updated_at"`
}

// Other returns the counterpart of userID on this edge
func (c *Connection) Other(userID primitive.ObjectID) primitive.ObjectID {
	if c.Requester == userID {
		return c.Recipient
	}
	return c.Requester
}

// ConnectionView is a connection with the counterpart's profile resolved
type ConnectionView struct {
	ConnectionID primitive.ObjectID `json:"connection_id"`
	Status       string             `json:"status"`
	User         PublicProfile      `json:"user"`
	CreatedAt    time.Time          `json:"created_at"`
	UpdatedAt    time.Time          `json:"updated_at"`
}

// ScoreBreakdown holds the six named sub-scores of a friend suggestion
type ScoreBreakdown struct {
	MutualFriends       float64 `json:"mutual_friends"`
	CommonInterests     float64 `json:"common_interests"`
	SameLocation        float64 `json:"same_location"`
	SameRole            float64 `json:"same_role"`
	ProfileCompleteness float64 `json:"profile_completeness"`
	RecentActivity      float64 `json:"recent_activity"`
}

// Total sums the six sub-scores (range 0-100)
func (b ScoreBreakdown) Total() float64 {
	return b.MutualFriends + b.CommonInterests + b.SameLocation +
		b.SameRole + b.ProfileCompleteness + b.RecentActivity
}

// FriendCandidate is a scored second-degree contact. Computed per request,
// never persisted.
type FriendCandidate struct {
	User              PublicProfile        `json:"user"`
	MutualFriendIDs   []primitive.ObjectID `json:"mutual_friend_ids"`
	MutualFriendCount int                  `json:"mutual_friend_count"`
	ScoreBreakdown    ScoreBreakdown       `json:"score_breakdown"`
	TotalScore        float64              `json:"total_score"`
}
