package handlers

import (
	"strconv"

	"gatherly/internal/services"

	"github.com/gofiber/fiber/v2"
)

// PostHandler handles post CRUD and listing
type PostHandler struct {
	postService    *services.PostService
	commentService *services.CommentService
}

// NewPostHandler creates a new post handler
func NewPostHandler(postService *services.PostService, commentService *services.CommentService) *PostHandler {
	return &PostHandler{
		postService:    postService,
		commentService: commentService,
	}
}

// Create creates a post
// POST /api/posts
func (h *PostHandler) Create(c *fiber.Ctx) error {
	userID, ok := requireUser(c)
	if !ok {
		return nil
	}

	var input services.CreatePostInput
	if err := c.BodyParser(&input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	post, err := h.postService.CreatePost(c.Context(), userID, input)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(post)
}

// Get fetches one post
// GET /api/posts/:id
func (h *PostHandler) Get(c *fiber.Ctx) error {
	post, err := h.postService.GetPost(c.Context(), c.Params("id"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(post)
}

// List returns posts newest first
// GET /api/posts?category=&limit=&offset=
func (h *PostHandler) List(c *fiber.Ctx) error {
	limit, _ := strconv.ParseInt(c.Query("limit", "20"), 10, 64)
	offset, _ := strconv.ParseInt(c.Query("offset", "0"), 10, 64)

	posts, err := h.postService.ListPosts(c.Context(), c.Query("category"), limit, offset)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"posts": posts})
}

// Update edits a post
// PATCH /api/posts/:id
func (h *PostHandler) Update(c *fiber.Ctx) error {
	userID, ok := requireUser(c)
	if !ok {
		return nil
	}

	var input services.UpdatePostInput
	if err := c.BodyParser(&input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	post, err := h.postService.UpdatePost(c.Context(), c.Params("id"), userID, input)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(post)
}

// Delete removes a post
// DELETE /api/posts/:id
func (h *PostHandler) Delete(c *fiber.Ctx) error {
	userID, ok := requireUser(c)
	if !ok {
		return nil
	}

	if err := h.postService.DeletePost(c.Context(), c.Params("id"), userID); err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"message": "Post deleted"})
}

// CommentRequest is the body for adding a comment
type CommentRequest struct {
	Content         string `json:"content"`
	ParentCommentID string `json:"parent_comment_id"`
}

// AddComment adds a comment or reply to a post
// POST /api/posts/:id/comments
func (h *PostHandler) AddComment(c *fiber.Ctx) error {
	userID, ok := requireUser(c)
	if !ok {
		return nil
	}

	var req CommentRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	comment, err := h.commentService.AddComment(c.Context(), c.Params("id"), userID, req.Content, req.ParentCommentID)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(comment)
}

// Comments returns a post's comment threads
// GET /api/posts/:id/comments
func (h *PostHandler) Comments(c *fiber.Ctx) error {
	threads, err := h.commentService.GetThreads(c.Context(), c.Params("id"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"threads": threads})
}

// UpdateComment edits a comment's content
// PATCH /api/comments/:id
func (h *PostHandler) UpdateComment(c *fiber.Ctx) error {
	userID, ok := requireUser(c)
	if !ok {
		return nil
	}

	var req CommentRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	comment, err := h.commentService.UpdateComment(c.Context(), c.Params("id"), userID, req.Content)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(comment)
}

// DeleteComment removes a comment and its replies
// DELETE /api/comments/:id
func (h *PostHandler) DeleteComment(c *fiber.Ctx) error {
	userID, ok := requireUser(c)
	if !ok {
		return nil
	}

	if err := h.commentService.DeleteComment(c.Context(), c.Params("id"), userID); err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"message": "Comment deleted"})
}
