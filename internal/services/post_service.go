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

// PostService handles community posts
type PostService struct {
	mongodb        *database.MongoDB
	postCollection *mongo.Collection
	postRAG        *PostRAGService
}

// NewPostService creates a new post service
func NewPostService(mongodb *database.MongoDB, postRAG *PostRAGService) *PostService {
	return &PostService{
		mongodb:        mongodb,
		postCollection: mongodb.Collection(database.CollectionPosts),
		postRAG:        postRAG,
	}
}

// CreatePostInput carries the fields accepted when creating a post
type CreatePostInput struct {
	Title    string   `json:"title"`
	Content  string   `json:"content"`
	Category string   `json:"category"`
	Tags     []string `json:"tags"`
}

// CreatePost creates a post and indexes it for retrieval
func (s *PostService) CreatePost(ctx context.Context, authorID string, input CreatePostInput) (*models.Post, error) {
	author, err := primitive.ObjectIDFromHex(authorID)
	if err != nil {
		return nil, validationError("invalid author ID")
	}
	if strings.TrimSpace(input.Title) == "" {
		return nil, validationError("title is required")
	}
	if strings.TrimSpace(input.Content) == "" {
		return nil, validationError("content is required")
	}

	now := time.Now()
	post := &models.Post{
		ID:        primitive.NewObjectID(),
		Title:     strings.TrimSpace(input.Title),
		Content:   input.Content,
		Author:    author,
		Category:  input.Category,
		Tags:      input.Tags,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if _, err := s.postCollection.InsertOne(ctx, post); err != nil {
		return nil, fmt.Errorf("failed to create post: %w", err)
	}

	if s.postRAG != nil {
		s.postRAG.IndexPostAsync(post)
	}

	return post, nil
}

// GetPost fetches a single post
func (s *PostService) GetPost(ctx context.Context, postID string) (*models.Post, error) {
	oid, err := primitive.ObjectIDFromHex(postID)
	if err != nil {
		return nil, validationError("invalid post ID")
	}

	var post models.Post
	err = s.postCollection.FindOne(ctx, bson.M{"_id": oid}).Decode(&post)
	if err == mongo.ErrNoDocuments {
		return nil, notFoundError("post")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to fetch post: %w", err)
	}
	return &post, nil
}

// ListPosts returns posts newest first, optionally filtered by category
func (s *PostService) ListPosts(ctx context.Context, category string, limit, offset int64) ([]models.Post, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}

	filter := bson.M{}
	if category != "" {
		filter["category"] = category
	}

	cursor, err := s.postCollection.Find(ctx, filter, options.Find().
		SetSort(bson.M{"createdAt": -1}).
		SetLimit(limit).
		SetSkip(offset))
	if err != nil {
		return nil, fmt.Errorf("failed to list posts: %w", err)
	}
	defer cursor.Close(ctx)

	posts := []models.Post{}
	if err := cursor.All(ctx, &posts); err != nil {
		return nil, fmt.Errorf("failed to decode posts: %w", err)
	}
	return posts, nil
}

// UpdatePostInput carries the mutable post fields
type UpdatePostInput struct {
	Title    *string   `json:"title,omitempty"`
	Content  *string   `json:"content,omitempty"`
	Category *string   `json:"category,omitempty"`
	Tags     *[]string `json:"tags,omitempty"`
}

// UpdatePost applies a partial update. Only the author may edit.
func (s *PostService) UpdatePost(ctx context.Context, postID, userID string, input UpdatePostInput) (*models.Post, error) {
	oid, err := primitive.ObjectIDFromHex(postID)
	if err != nil {
		return nil, validationError("invalid post ID")
	}
	author, err := primitive.ObjectIDFromHex(userID)
	if err != nil {
		return nil, validationError("invalid user ID")
	}

	set := bson.M{"updatedAt": time.Now()}
	if input.Title != nil {
		if strings.TrimSpace(*input.Title) == "" {
			return nil, validationError("title cannot be empty")
		}
		set["title"] = strings.TrimSpace(*input.Title)
	}
	if input.Content != nil {
		if strings.TrimSpace(*input.Content) == "" {
			return nil, validationError("content cannot be empty")
		}
		set["content"] = *input.Content
	}
	if input.Category != nil {
		set["category"] = *input.Category
	}
	if input.Tags != nil {
		set["tags"] = *input.Tags
	}

	var updated models.Post
	err = s.postCollection.FindOneAndUpdate(
		ctx,
		bson.M{"_id": oid, "author": author},
		bson.M{"$set": set},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&updated)
	if err == mongo.ErrNoDocuments {
		return nil, notFoundError("post")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to update post: %w", err)
	}

	if s.postRAG != nil {
		s.postRAG.IndexPostAsync(&updated)
	}

	return &updated, nil
}

// DeletePost removes a post and its retrieval chunks. Only the author may
// delete.
func (s *PostService) DeletePost(ctx context.Context, postID, userID string) error {
	oid, err := primitive.ObjectIDFromHex(postID)
	if err != nil {
		return validationError("invalid post ID")
	}
	author, err := primitive.ObjectIDFromHex(userID)
	if err != nil {
		return validationError("invalid user ID")
	}

	result, err := s.postCollection.DeleteOne(ctx, bson.M{"_id": oid, "author": author})
	if err != nil {
		return fmt.Errorf("failed to delete post: %w", err)
	}
	if result.DeletedCount == 0 {
		return notFoundError("post")
	}

	if s.postRAG != nil {
		s.postRAG.RemovePostAsync(oid.Hex())
	}

	return nil
}

// AllPosts streams every post, used by the index rebuild job
func (s *PostService) AllPosts(ctx context.Context) ([]models.Post, error) {
	cursor, err := s.postCollection.Find(ctx, bson.M{})
	if err != nil {
		return nil, fmt.Errorf("failed to list posts: %w", err)
	}
	defer cursor.Close(ctx)

	var posts []models.Post
	if err := cursor.All(ctx, &posts); err != nil {
		return nil, fmt.Errorf("failed to decode posts: %w", err)
	}
	return posts, nil
}
