package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// User represents a platform member
type User struct {
	ID           primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Name         string             `bson:"name" json:"name"`
	Email        string             `bson:"email" json:"email"`
	PasswordHash string             `bson:"passwordHash,omitempty" json:"-"`      // Argon2id hash, never exposed in API
	Role         string             `bson:"role,omitempty" json:"role,omitempty"` // "user", "admin", "organizer", "sponsor", "exhibitor"

	// Profile fields (used for display and friend-suggestion scoring)
	Bio       string   `bson:"bio,omitempty" json:"bio,omitempty"`
	Avatar    string   `bson:"avatar,omitempty" json:"avatar,omitempty"`
	Company   string   `bson:"company,omitempty" json:"company,omitempty"`
	Location  string   `bson:"location,omitempty" json:"location,omitempty"`
	Interests []string `bson:"interests,omitempty" json:"interests,omitempty"`

	RefreshTokenVersion int        `bson:"refreshTokenVersion" json:"-"` // Incremented on logout to invalidate tokens
	LastActiveAt        *time.Time `bson:"lastActiveAt,omitempty" json:"last_active_at,omitempty"`
	LastLoginAt         time.Time  `bson:"lastLoginAt" json:"last_login_at"`
	CreatedAt           time.Time  `bson:"createdAt" json:"created_at"`
	UpdatedAt           time.Time  `bson:"updatedAt" json:"updated_at"`
}

// PublicProfile is the subset of User safe to return for other users
type PublicProfile struct {
	ID        primitive.ObjectID `json:"id"`
	Name      string             `json:"name"`
	Role      string             `json:"role,omitempty"`
	Bio       string             `json:"bio,omitempty"`
	Avatar    string             `json:"avatar,omitempty"`
	Company   string             `json:"company,omitempty"`
	Location  string             `json:"location,omitempty"`
	Interests []string           `json:"interests,omitempty"`
}

// Public strips private fields from a User
func (u *User) Public() PublicProfile {
	return PublicProfile{
		ID:        u.ID,
		Name:      u.Name,
		Role:      u.Role,
		Bio:       u.Bio,
		Avatar:    u.Avatar,
		Company:   u.Company,
		Location:  u.Location,
		Interests: u.Interests,
	}
}
