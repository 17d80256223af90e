package services

import (
	"context"
	"fmt"
	"time"

	"gatherly/internal/database"
	"gatherly/internal/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// InteractionService handles reactions, bookmarks, and shares on posts
// and comments.
type InteractionService struct {
	interactionCollection *mongo.Collection
	postCollection        *mongo.Collection
	commentCollection     *mongo.Collection
}

// NewInteractionService creates a new interaction service
func NewInteractionService(mongodb *database.MongoDB) *InteractionService {
	return &InteractionService{
		interactionCollection: mongodb.Collection(database.CollectionInteractions),
		postCollection:        mongodb.Collection(database.CollectionPosts),
		commentCollection:     mongodb.Collection(database.CollectionComments),
	}
}

var validReactions = map[string]bool{
	models.ReactionLike:       true,
	models.ReactionLove:       true,
	models.ReactionInsightful: true,
	models.ReactionCelebrate:  true,
}

func (s *InteractionService) targetExists(ctx context.Context, targetType string, targetID primitive.ObjectID) (bool, error) {
	var coll *mongo.Collection
	switch targetType {
	case models.TargetTypePost:
		coll = s.postCollection
	case models.TargetTypeComment:
		coll = s.commentCollection
	default:
		return false, validationError("targetType must be post or comment")
	}

	count, err := coll.CountDocuments(ctx, bson.M{"_id": targetID})
	if err != nil {
		return false, fmt.Errorf("failed to look up target: %w", err)
	}
	return count > 0, nil
}

// ToggleReaction sets, switches, or removes a reaction. Reacting with the
// same type twice removes it; a different type replaces it.
func (s *InteractionService) ToggleReaction(ctx context.Context, userID, targetType, targetID, reactionType string) (*models.Interaction, bool, error) {
	if !validReactions[reactionType] {
		return nil, false, validationError("unknown reaction type: %s", reactionType)
	}

	userOID, err := primitive.ObjectIDFromHex(userID)
	if err != nil {
		return nil, false, validationError("invalid user ID")
	}
	targetOID, err := primitive.ObjectIDFromHex(targetID)
	if err != nil {
		return nil, false, validationError("invalid target ID")
	}

	exists, err := s.targetExists(ctx, targetType, targetOID)
	if err != nil {
		return nil, false, err
	}
	if !exists {
		return nil, false, notFoundError(targetType)
	}

	filter := bson.M{
		"user":            userOID,
		"targetId":        targetOID,
		"interactionType": models.InteractionTypeReaction,
	}

	var existing models.Interaction
	err = s.interactionCollection.FindOne(ctx, filter).Decode(&existing)
	switch {
	case err == nil && existing.ReactionType == reactionType:
		// Same reaction again removes it.
		if _, err := s.interactionCollection.DeleteOne(ctx, bson.M{"_id": existing.ID}); err != nil {
			return nil, false, fmt.Errorf("failed to remove reaction: %w", err)
		}
		return nil, false, nil
	case err == nil:
		// Different reaction replaces the old one.
		existing.ReactionType = reactionType
		_, err := s.interactionCollection.UpdateOne(ctx, bson.M{"_id": existing.ID}, bson.M{
			"$set": bson.M{"reactionType": reactionType},
		})
		if err != nil {
			return nil, false, fmt.Errorf("failed to switch reaction: %w", err)
		}
		return &existing, true, nil
	case err != mongo.ErrNoDocuments:
		return nil, false, fmt.Errorf("failed to look up reaction: %w", err)
	}

	interaction := &models.Interaction{
		ID:              primitive.NewObjectID(),
		User:            userOID,
		TargetID:        targetOID,
		TargetType:      targetType,
		InteractionType: models.InteractionTypeReaction,
		ReactionType:    reactionType,
		CreatedAt:       time.Now(),
	}
	if _, err := s.interactionCollection.InsertOne(ctx, interaction); err != nil {
		return nil, false, fmt.Errorf("failed to create reaction: %w", err)
	}
	return interaction, true, nil
}

// ToggleBookmark adds or removes a bookmark. Returns true when the
// bookmark is now set.
func (s *InteractionService) ToggleBookmark(ctx context.Context, userID, targetType, targetID string) (bool, error) {
	userOID, err := primitive.ObjectIDFromHex(userID)
	if err != nil {
		return false, validationError("invalid user ID")
	}
	targetOID, err := primitive.ObjectIDFromHex(targetID)
	if err != nil {
		return false, validationError("invalid target ID")
	}

	exists, err := s.targetExists(ctx, targetType, targetOID)
	if err != nil {
		return false, err
	}
	if !exists {
		return false, notFoundError(targetType)
	}

	filter := bson.M{
		"user":            userOID,
		"targetId":        targetOID,
		"interactionType": models.InteractionTypeBookmark,
	}

	result, err := s.interactionCollection.DeleteOne(ctx, filter)
	if err != nil {
		return false, fmt.Errorf("failed to toggle bookmark: %w", err)
	}
	if result.DeletedCount > 0 {
		return false, nil
	}

	interaction := &models.Interaction{
		ID:              primitive.NewObjectID(),
		User:            userOID,
		TargetID:        targetOID,
		TargetType:      targetType,
		InteractionType: models.InteractionTypeBookmark,
		CreatedAt:       time.Now(),
	}
	if _, err := s.interactionCollection.InsertOne(ctx, interaction); err != nil {
		return false, fmt.Errorf("failed to create bookmark: %w", err)
	}
	return true, nil
}

// RecordShare records a share event. At most one share counts per user
// per target; repeats are silently absorbed.
func (s *InteractionService) RecordShare(ctx context.Context, userID, targetType, targetID string) error {
	userOID, err := primitive.ObjectIDFromHex(userID)
	if err != nil {
		return validationError("invalid user ID")
	}
	targetOID, err := primitive.ObjectIDFromHex(targetID)
	if err != nil {
		return validationError("invalid target ID")
	}

	exists, err := s.targetExists(ctx, targetType, targetOID)
	if err != nil {
		return err
	}
	if !exists {
		return notFoundError(targetType)
	}

	interaction := &models.Interaction{
		ID:              primitive.NewObjectID(),
		User:            userOID,
		TargetID:        targetOID,
		TargetType:      targetType,
		InteractionType: models.InteractionTypeShare,
		CreatedAt:       time.Now(),
	}
	if _, err := s.interactionCollection.InsertOne(ctx, interaction); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil
		}
		return fmt.Errorf("failed to record share: %w", err)
	}
	return nil
}

// Counts aggregates interaction totals for a target
func (s *InteractionService) Counts(ctx context.Context, targetID string) (*models.InteractionCounts, error) {
	targetOID, err := primitive.ObjectIDFromHex(targetID)
	if err != nil {
		return nil, validationError("invalid target ID")
	}

	cursor, err := s.interactionCollection.Find(ctx, bson.M{"targetId": targetOID})
	if err != nil {
		return nil, fmt.Errorf("failed to fetch interactions: %w", err)
	}
	defer cursor.Close(ctx)

	var interactions []models.Interaction
	if err := cursor.All(ctx, &interactions); err != nil {
		return nil, fmt.Errorf("failed to decode interactions: %w", err)
	}

	counts := &models.InteractionCounts{Reactions: map[string]int{}}
	for _, interaction := range interactions {
		switch interaction.InteractionType {
		case models.InteractionTypeReaction:
			counts.Reactions[interaction.ReactionType]++
			counts.TotalReactions++
		case models.InteractionTypeBookmark:
			counts.Bookmarks++
		case models.InteractionTypeShare:
			counts.Shares++
		}
	}
	return counts, nil
}

// UserBookmarks lists everything the user has bookmarked, newest first
func (s *InteractionService) UserBookmarks(ctx context.Context, userID string) ([]models.Interaction, error) {
	userOID, err := primitive.ObjectIDFromHex(userID)
	if err != nil {
		return nil, validationError("invalid user ID")
	}

	cursor, err := s.interactionCollection.Find(ctx, bson.M{
		"user":            userOID,
		"interactionType": models.InteractionTypeBookmark,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list bookmarks: %w", err)
	}
	defer cursor.Close(ctx)

	bookmarks := []models.Interaction{}
	if err := cursor.All(ctx, &bookmarks); err != nil {
		return nil, fmt.Errorf("failed to decode bookmarks: %w", err)
	}
	return bookmarks, nil
}
