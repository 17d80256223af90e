package services

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"gatherly/internal/models"
)

// EventRAGService answers questions over indexed event listings
type EventRAGService struct {
	index *ragIndex
	llm   LLMClient
}

// NewEventRAGService creates the event retrieval agent. dir may be empty
// for an in-memory index.
func NewEventRAGService(dir string, llm LLMClient) (*EventRAGService, error) {
	index, err := newRAGIndex(dir, "events", llm)
	if err != nil {
		return nil, err
	}
	return &EventRAGService{index: index, llm: llm}, nil
}

// Domain identifies this agent to the router
func (s *EventRAGService) Domain() models.RouteType {
	return models.RouteEvent
}

// eventDocument flattens an event into indexable text. Schedule and ticket
// details matter for answers, so they go in alongside the description.
func eventDocument(event *models.Event) string {
	var b strings.Builder
	b.WriteString(event.Title)
	b.WriteString("\n")
	b.WriteString(event.Description)
	b.WriteString("\n")
	fmt.Fprintf(&b, "Type: %s. Location: %s. Starts %s, ends %s.",
		event.Type, event.Location,
		event.StartTime.Format("Monday 2 January 2006 15:04"),
		event.EndTime.Format("Monday 2 January 2006 15:04"))
	for _, ticket := range event.Tickets {
		fmt.Fprintf(&b, " Ticket %q costs %.2f (%d available).", ticket.Type, ticket.Price, ticket.Quantity)
	}
	return b.String()
}

// IndexEvent chunks and indexes an event listing
func (s *EventRAGService) IndexEvent(ctx context.Context, event *models.Event) error {
	return s.index.upsertDocument(ctx, event.ID.Hex(), eventDocument(event), map[string]string{
		"title": event.Title,
		"type":  event.Type,
	})
}

// IndexEventAsync indexes in the background
func (s *EventRAGService) IndexEventAsync(event *models.Event) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
		defer cancel()
		if err := s.IndexEvent(ctx, event); err != nil {
			log.Printf("⚠️ [EVENT-RAG] Failed to index event %s: %v", event.ID.Hex(), err)
		}
	}()
}

// RemoveEventAsync drops an event's chunks in the background
func (s *EventRAGService) RemoveEventAsync(eventID string) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := s.index.removeDocument(ctx, eventID); err != nil {
			log.Printf("⚠️ [EVENT-RAG] Failed to remove event %s: %v", eventID, err)
		}
	}()
}

// QueryDocuments retrieves relevant event chunks and asks the LLM for a
// bullet-point answer grounded in them.
func (s *EventRAGService) QueryDocuments(ctx context.Context, query string, topK int) (*models.RAGAnswer, error) {
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

	prompt := fmt.Sprintf(`Answer the question using ONLY the event listings below. Respond as short bullet points, one fact per line, each starting with "- ". Include dates, locations, and ticket prices when relevant. If the listings do not contain the answer, say "No information found in events."

EVENTS:
%s

QUESTION: %s`, contextText, query)

	raw, err := s.llm.Complete(ctx, []ChatMessage{
		{Role: "system", Content: "You answer questions about events. You never invent facts that are not in the provided listings."},
		{Role: "user", Content: prompt},
	})
	if err != nil {
		return nil, fmt.Errorf("event answer generation failed: %w", err)
	}

	return &models.RAGAnswer{Answer: parseBulletAnswer(raw), SourcesUsed: used}, nil
}
