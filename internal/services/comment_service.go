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

// CommentService handles threaded comments on posts
type CommentService struct {
	commentCollection *mongo.Collection
	postCollection    *mongo.Collection
}

// NewCommentService creates a new comment service
func NewCommentService(mongodb *database.MongoDB) *CommentService {
	return &CommentService{
		commentCollection: mongodb.Collection(database.CollectionComments),
		postCollection:    mongodb.Collection(database.CollectionPosts),
	}
}

// AddComment creates a comment on a post, optionally as a reply to another
// comment on the same post.
func (s *CommentService) AddComment(ctx context.Context, postID, authorID, content, parentCommentID string) (*models.Comment, error) {
	if strings.TrimSpace(content) == "" {
		return nil, validationError("content is required")
	}

	postOID, err := primitive.ObjectIDFromHex(postID)
	if err != nil {
		return nil, validationError("invalid post ID")
	}
	authorOID, err := primitive.ObjectIDFromHex(authorID)
	if err != nil {
		return nil, validationError("invalid author ID")
	}

	count, err := s.postCollection.CountDocuments(ctx, bson.M{"_id": postOID})
	if err != nil {
		return nil, fmt.Errorf("failed to look up post: %w", err)
	}
	if count == 0 {
		return nil, notFoundError("post")
	}

	var parent *primitive.ObjectID
	if parentCommentID != "" {
		parentOID, err := primitive.ObjectIDFromHex(parentCommentID)
		if err != nil {
			return nil, validationError("invalid parent comment ID")
		}
		// The parent must belong to the same post.
		count, err := s.commentCollection.CountDocuments(ctx, bson.M{"_id": parentOID, "post": postOID})
		if err != nil {
			return nil, fmt.Errorf("failed to look up parent comment: %w", err)
		}
		if count == 0 {
			return nil, notFoundError("parent comment")
		}
		parent = &parentOID
	}

	now := time.Now()
	comment := &models.Comment{
		ID:            primitive.NewObjectID(),
		Post:          postOID,
		Author:        authorOID,
		Content:       content,
		ParentComment: parent,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	if _, err := s.commentCollection.InsertOne(ctx, comment); err != nil {
		return nil, fmt.Errorf("failed to create comment: %w", err)
	}

	return comment, nil
}

// GetThreads returns a post's comments arranged as top-level threads with
// their replies nested one level deep.
func (s *CommentService) GetThreads(ctx context.Context, postID string) ([]models.CommentThread, error) {
	postOID, err := primitive.ObjectIDFromHex(postID)
	if err != nil {
		return nil, validationError("invalid post ID")
	}

	cursor, err := s.commentCollection.Find(ctx, bson.M{"post": postOID}, options.Find().SetSort(bson.M{"createdAt": 1}))
	if err != nil {
		return nil, fmt.Errorf("failed to list comments: %w", err)
	}
	defer cursor.Close(ctx)

	var comments []models.Comment
	if err := cursor.All(ctx, &comments); err != nil {
		return nil, fmt.Errorf("failed to decode comments: %w", err)
	}

	threads := []models.CommentThread{}
	index := map[primitive.ObjectID]int{}
	for _, comment := range comments {
		if comment.ParentComment == nil {
			threads = append(threads, models.CommentThread{Comment: comment, Replies: []models.Comment{}})
			index[comment.ID] = len(threads) - 1
		}
	}
	for _, comment := range comments {
		if comment.ParentComment == nil {
			continue
		}
		if i, ok := index[*comment.ParentComment]; ok {
			threads[i].Replies = append(threads[i].Replies, comment)
		}
	}

	return threads, nil
}

// UpdateComment replaces a comment's content. Only the author may edit.
func (s *CommentService) UpdateComment(ctx context.Context, commentID, userID, content string) (*models.Comment, error) {
	if strings.TrimSpace(content) == "" {
		return nil, validationError("content is required")
	}

	oid, err := primitive.ObjectIDFromHex(commentID)
	if err != nil {
		return nil, validationError("invalid comment ID")
	}
	userOID, err := primitive.ObjectIDFromHex(userID)
	if err != nil {
		return nil, validationError("invalid user ID")
	}

	var updated models.Comment
	err = s.commentCollection.FindOneAndUpdate(ctx,
		bson.M{"_id": oid, "author": userOID},
		bson.M{"$set": bson.M{"content": content, "updatedAt": time.Now()}},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&updated)
	if err == mongo.ErrNoDocuments {
		return nil, notFoundError("comment")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to update comment: %w", err)
	}
	return &updated, nil
}

// DeleteComment removes a comment and its direct replies. Only the author
// may delete.
func (s *CommentService) DeleteComment(ctx context.Context, commentID, userID string) error {
	oid, err := primitive.ObjectIDFromHex(commentID)
	if err != nil {
		return validationError("invalid comment ID")
	}
	authorOID, err := primitive.ObjectIDFromHex(userID)
	if err != nil {
		return validationError("invalid user ID")
	}

	result, err := s.commentCollection.DeleteOne(ctx, bson.M{"_id": oid, "author": authorOID})
	if err != nil {
		return fmt.Errorf("failed to delete comment: %w", err)
	}
	if result.DeletedCount == 0 {
		return notFoundError("comment")
	}

	if _, err := s.commentCollection.DeleteMany(ctx, bson.M{"parentComment": oid}); err != nil {
		return fmt.Errorf("failed to delete replies: %w", err)
	}

	return nil
}
