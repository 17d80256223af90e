package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"sync"
	"time"

	"gatherly/internal/config"

	"github.com/fsnotify/fsnotify"
	"golang.org/x/time/rate"
)

// ChatMessage is a single message in an OpenAI-compatible chat request
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// LLMClient is the completion surface the assistant pipeline depends on.
// Defined here so tests can swap in a scripted fake.
type LLMClient interface {
	Complete(ctx context.Context, messages []ChatMessage) (string, error)
	Embed(ctx context.Context, text string) ([]float64, error)
}

// LLMService talks to an OpenAI-compatible /chat/completions endpoint.
// Provider settings come from env at startup and can be hot-reloaded from a
// JSON file watched via fsnotify.
type LLMService struct {
	mu       sync.RWMutex
	provider config.ProviderConfig
	client   *http.Client
	limiter  *rate.Limiter
	watcher  *fsnotify.Watcher
}

const embeddingDimensions = 64

// NewLLMService creates the LLM client from config. A zero rate limit
// disables throttling.
func NewLLMService(cfg *config.Config) *LLMService {
	limit := rate.Inf
	if cfg.LLMRateLimit > 0 {
		limit = rate.Limit(cfg.LLMRateLimit)
	}

	return &LLMService{
		provider: config.ProviderConfig{
			BaseURL: cfg.LLMBaseURL,
			APIKey:  cfg.LLMAPIKey,
			Model:   cfg.LLMModel,
		},
		client:  &http.Client{Timeout: 60 * time.Second},
		limiter: rate.NewLimiter(limit, 1),
	}
}

// WatchProviderFile hot-reloads provider settings whenever the given JSON
// file changes. Invalid file contents keep the previous settings.
func (s *LLMService) WatchProviderFile(path string) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}

	if err := watcher.Add(path); err != nil {
		watcher.Close()
		return fmt.Errorf("failed to watch %s: %w", path, err)
	}

	s.watcher = watcher

	go func() {
		for {
			select {
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
					continue
				}
				provider, err := config.LoadProvider(path)
				if err != nil {
					log.Printf("⚠️ [LLM] Provider reload failed: %v", err)
					continue
				}
				s.mu.Lock()
				s.provider = *provider
				s.mu.Unlock()
				log.Printf("🔄 [LLM] Provider settings reloaded (model: %s)", provider.Model)
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				log.Printf("⚠️ [LLM] Watcher error: %v", err)
			}
		}
	}()

	log.Printf("👀 [LLM] Watching provider file: %s", path)
	return nil
}

// Close stops the provider file watcher if one is running
func (s *LLMService) Close() error {
	if s.watcher != nil {
		return s.watcher.Close()
	}
	return nil
}

func (s *LLMService) currentProvider() config.ProviderConfig {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.provider
}

type chatCompletionRequest struct {
	Model       string        `json:"model"`
	Messages    []ChatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
}

type chatCompletionResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// Complete sends a chat completion request and returns the first choice
func (s *LLMService) Complete(ctx context.Context, messages []ChatMessage) (string, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("rate limit wait cancelled: %w", err)
	}

	provider := s.currentProvider()
	if provider.BaseURL == "" {
		return "", fmt.Errorf("no LLM provider configured")
	}

	reqBody, err := json.Marshal(chatCompletionRequest{
		Model:       provider.Model,
		Messages:    messages,
		Temperature: 0.2,
	})
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, "POST", strings.TrimSuffix(provider.BaseURL, "/")+"/chat/completions", bytes.NewBuffer(reqBody))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}

	httpReq.Header.Set("Content-Type", "application/json")
	if provider.APIKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+provider.APIKey)
	}

	resp, err := s.client.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("API error (status %d): %s", resp.StatusCode, truncateForLog(string(body), 300))
	}

	var completion chatCompletionResponse
	if err := json.Unmarshal(body, &completion); err != nil {
		return "", fmt.Errorf("failed to parse response: %w", err)
	}
	if completion.Error != nil {
		return "", fmt.Errorf("API error: %s", completion.Error.Message)
	}
	if len(completion.Choices) == 0 {
		return "", fmt.Errorf("empty completion response")
	}

	return completion.Choices[0].Message.Content, nil
}

// Embed produces a fixed-size embedding by prompting the completion model
// for a JSON array of floats. Providers without an embeddings endpoint still
// work this way, at the cost of stability across model versions.
func (s *LLMService) Embed(ctx context.Context, text string) ([]float64, error) {
	prompt := fmt.Sprintf(
		"Produce a semantic embedding for the text below as a JSON array of exactly %d floating point numbers between -1 and 1. Respond with ONLY the JSON array, no explanation.\n\nText: %s",
		embeddingDimensions, text,
	)

	raw, err := s.Complete(ctx, []ChatMessage{
		{Role: "system", Content: "You are an embedding generator. You respond only with JSON arrays of numbers."},
		{Role: "user", Content: prompt},
	})
	if err != nil {
		return nil, fmt.Errorf("embedding request failed: %w", err)
	}

	cleaned := stripMarkdownFences(raw)

	var vector []float64
	if err := json.Unmarshal([]byte(cleaned), &vector); err != nil {
		return nil, fmt.Errorf("failed to parse embedding: %w", err)
	}
	if len(vector) == 0 {
		return nil, fmt.Errorf("empty embedding")
	}

	return vector, nil
}

// stripMarkdownFences removes ```json ... ``` wrappers models like to add
func stripMarkdownFences(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```json")
		s = strings.TrimPrefix(s, "```")
		s = strings.TrimSuffix(s, "```")
	}
	return strings.TrimSpace(s)
}

func truncateForLog(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}
