package services

import (
	"context"
	"fmt"
	"log"
	"time"

	"gatherly/internal/models"
)

// PostRAGService answers community questions over indexed post content
type PostRAGService struct {
	index *ragIndex
	llm   LLMClient
}

// NewPostRAGService creates the post retrieval agent. dir may be empty for
// an in-memory index.
func NewPostRAGService(dir string, llm LLMClient) (*PostRAGService, error) {
	index, err := newRAGIndex(dir, "posts", llm)
	if err != nil {
		return nil, err
	}
	return &PostRAGService{index: index, llm: llm}, nil
}

// Domain identifies this agent to the router
func (s *PostRAGService) Domain() models.RouteType {
	return models.RoutePost
}

// IndexPost chunks and indexes a post's title and content
func (s *PostRAGService) IndexPost(ctx context.Context, post *models.Post) error {
	text := post.Title + "\n" + post.Content
	return s.index.upsertDocument(ctx, post.ID.Hex(), text, map[string]string{
		"title":    post.Title,
		"category": post.Category,
	})
}

// IndexPostAsync indexes in the background so writes never wait on the
// embedding provider.
func (s *PostRAGService) IndexPostAsync(post *models.Post) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
		defer cancel()
		if err := s.IndexPost(ctx, post); err != nil {
			log.Printf("⚠️ [POST-RAG] Failed to index post %s: %v", post.ID.Hex(), err)
		}
	}()
}

// RemovePostAsync drops a deleted post's chunks in the background
func (s *PostRAGService) RemovePostAsync(postID string) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := s.index.removeDocument(ctx, postID); err != nil {
			log.Printf("⚠️ [POST-RAG] Failed to remove post %s: %v", postID, err)
		}
	}()
}

// QueryDocuments retrieves relevant post chunks and asks the LLM for a
// bullet-point answer grounded in them. No matching chunks means an empty
// answer, not an error.
func (s *PostRAGService) QueryDocuments(ctx context.Context, query string, topK int) (*models.RAGAnswer, error) {
	if topK <= 0 {
		topK = 5
	}

	results, err := s.index.search(ctx, query, topK)
	if err != nil {
		return nil, err
	}
	if len(results) == 0 {
		return &models.RAGAnswer{Answer: []string{}, SourcesUsed: 0}, nil
	}

	contextText, used := buildContext(results, ragContextWordLimit)

	prompt := fmt.Sprintf(`Answer the question using ONLY the community posts below. Respond as short bullet points, one fact per line, each starting with "- ". If the posts do not contain the answer, say "No information found in posts."

POSTS:
%s

QUESTION: %s`, contextText, query)

	raw, err := s.llm.Complete(ctx, []ChatMessage{
		{Role: "system", Content: "You answer questions about community posts. You never invent facts that are not in the provided posts."},
		{Role: "user", Content: prompt},
	})
	if err != nil {
		return nil, fmt.Errorf("post answer generation failed: %w", err)
	}

	return &models.RAGAnswer{Answer: parseBulletAnswer(raw), SourcesUsed: used}, nil
}
