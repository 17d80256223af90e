package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"math"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"gatherly/internal/logging"
	"gatherly/internal/models"

	gocache "github.com/patrickmn/go-cache"
)

// Query pipeline tuning
const (
	minQueryLength = 2
	maxQueryLength = 2000

	cacheTTL          = 10 * time.Minute
	cacheMaxEntries   = 100
	semanticThreshold = 0.92

	subAgentTopK   = 5
	retryAttempts  = 2
	dispatchBudget = 45 * time.Second
)

// Phrases that mark a sub-agent line as a non-answer
var nonInformativePhrases = []string{
	"does not contain any information",
	"no information",
	"not found",
	"no results",
	"unable to find",
	"no relevant",
	"cannot find",
	"no data",
}

// QueryResponse is what the assistant endpoint returns
type QueryResponse struct {
	Answer  string              `json:"answer"`
	Lines   []string            `json:"lines"`
	Source  string              `json:"source"`
	Metrics models.QueryMetrics `json:"metrics"`
}

type cacheEntry struct {
	answers []string
	vector  []float64
}

// semanticCache is a small TTL cache over normalized queries with a
// cosine-similarity fallback for near-duplicate phrasings. Capped at
// cacheMaxEntries with least-recently-hit eviction.
type semanticCache struct {
	store *gocache.Cache
	mu    sync.Mutex
	order []string
}

func newSemanticCache() *semanticCache {
	return &semanticCache{
		store: gocache.New(cacheTTL, cacheTTL/2),
	}
}

func (c *semanticCache) touch(key string) {
	for i, k := range c.order {
		if k == key {
			c.order = append(c.order[:i], c.order[i+1:]...)
			break
		}
	}
	c.order = append(c.order, key)
}

// GetExact returns the cached answers for a normalized query
func (c *semanticCache) GetExact(key string) ([]string, bool) {
	value, ok := c.store.Get(key)
	if !ok {
		return nil, false
	}
	entry := value.(cacheEntry)

	c.mu.Lock()
	c.touch(key)
	c.mu.Unlock()

	return entry.answers, true
}

// FindSimilar scans live entries for one whose stored embedding is close
// enough to the query's. A hit refreshes the entry's eviction position.
func (c *semanticCache) FindSimilar(vector []float64) ([]string, bool) {
	if len(vector) == 0 {
		return nil, false
	}

	bestKey := ""
	bestScore := semanticThreshold
	var bestAnswers []string

	for key, item := range c.store.Items() {
		entry, ok := item.Object.(cacheEntry)
		if !ok || len(entry.vector) == 0 {
			continue
		}
		score := cosineSimilarity(vector, entry.vector)
		if score >= bestScore {
			bestScore = score
			bestKey = key
			bestAnswers = entry.answers
		}
	}
	if bestKey == "" {
		return nil, false
	}

	c.mu.Lock()
	c.touch(bestKey)
	c.mu.Unlock()

	return bestAnswers, true
}

// Put stores answers under a normalized query, evicting the coldest entry
// once the cap is reached.
func (c *semanticCache) Put(key string, answers []string, vector []float64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.store.Get(key); !exists {
		for len(c.order) >= cacheMaxEntries {
			oldest := c.order[0]
			c.order = c.order[1:]
			c.store.Delete(oldest)
		}
	}

	c.store.Set(key, cacheEntry{answers: answers, vector: vector}, cacheTTL)
	c.touch(key)
}

// SuperAgentService routes assistant queries to domain sub-agents, layers
// caching and long-term memory over them, and synthesizes the final answer.
type SuperAgentService struct {
	llm    LLMClient
	memory *LongTermMemory
	cache  *semanticCache
	agents map[models.RouteType]SubAgent
}

// NewSuperAgentService wires the router over its two domain agents
func NewSuperAgentService(llm LLMClient, memory *LongTermMemory, eventAgent, postAgent SubAgent) *SuperAgentService {
	return &SuperAgentService{
		llm:    llm,
		memory: memory,
		cache:  newSemanticCache(),
		agents: map[models.RouteType]SubAgent{
			models.RouteEvent: eventAgent,
			models.RoutePost:  postAgent,
		},
	}
}

// normalizeQuery lowercases, collapses runs of whitespace, and trims
func normalizeQuery(query string) string {
	return strings.Join(strings.Fields(strings.ToLower(query)), " ")
}

// cosineSimilarity over two float64 vectors. Mismatched lengths or zero
// norms score 0.
func cosineSimilarity(a, b []float64) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

// informativeLines filters out empty lines and stock no-answer phrasings
func informativeLines(lines []string) []string {
	var kept []string
	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}
		lower := strings.ToLower(trimmed)
		informative := true
		for _, phrase := range nonInformativePhrases {
			if strings.Contains(lower, phrase) {
				informative = false
				break
			}
		}
		if informative {
			kept = append(kept, trimmed)
		}
	}
	return kept
}

// domainLines returns a sub-agent's lines for scoring and merging. A
// result whose every line is a stock no-answer contributes nothing; a
// result with at least one real answer keeps all its non-empty lines,
// so partial no-answers still count toward the domain's score.
func domainLines(lines []string) []string {
	if len(informativeLines(lines)) == 0 {
		return nil
	}
	var kept []string
	for _, line := range lines {
		if trimmed := strings.TrimSpace(line); trimmed != "" {
			kept = append(kept, trimmed)
		}
	}
	return kept
}

// dedupeLines drops repeated lines after trimming, keeping first occurrence
func dedupeLines(lines []string) []string {
	seen := map[string]bool{}
	var out []string
	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || seen[trimmed] {
			continue
		}
		seen[trimmed] = true
		out = append(out, trimmed)
	}
	return out
}

const routingPrompt = `You route questions about a community platform to one of two retrieval domains:
- "event": conferences, meetups, schedules, venues, tickets, sponsors
- "post": community posts, discussions, articles, announcements, sales

Classify the question. Respond with ONLY this JSON:
{"primary": "event" or "post", "secondary": "event" or "post", "confidence": "high" or "medium" or "low", "reasoning": "one short sentence"}

The secondary must be the other domain.

Question: %s`

// routeQuery asks the LLM which domain should answer first. Any failure
// falls back to events-first with low confidence.
func (s *SuperAgentService) routeQuery(ctx context.Context, query string) models.RouteDecision {
	fallback := models.RouteDecision{
		Primary:    models.RouteEvent,
		Secondary:  models.RoutePost,
		Confidence: models.ConfidenceLow,
		Reasoning:  "routing unavailable",
	}

	raw, err := s.llm.Complete(ctx, []ChatMessage{
		{Role: "system", Content: "You are a query router. You respond only with JSON."},
		{Role: "user", Content: fmt.Sprintf(routingPrompt, query)},
	})
	if err != nil {
		log.Printf("⚠️ [ROUTER] Routing call failed, using fallback: %v", err)
		return fallback
	}

	var decision models.RouteDecision
	if err := json.Unmarshal([]byte(stripMarkdownFences(raw)), &decision); err != nil {
		log.Printf("⚠️ [ROUTER] Unparseable routing response, using fallback: %v", err)
		return fallback
	}
	if !decision.Primary.Valid() {
		return fallback
	}
	decision.Secondary = decision.Primary.Opposite()
	if decision.Confidence != models.ConfidenceHigh &&
		decision.Confidence != models.ConfidenceMedium &&
		decision.Confidence != models.ConfidenceLow {
		decision.Confidence = models.ConfidenceLow
	}
	return decision
}

// queryWithRetry gives a sub-agent a couple of attempts before settling
// for an empty answer. The router never fails a whole query because one
// domain misbehaved.
func (s *SuperAgentService) queryWithRetry(ctx context.Context, agent SubAgent, query string) *models.RAGAnswer {
	if agent == nil {
		return &models.RAGAnswer{Answer: []string{}}
	}

	var lastErr error
	for attempt := 1; attempt <= retryAttempts; attempt++ {
		answer, err := agent.QueryDocuments(ctx, query, subAgentTopK)
		if err == nil {
			return answer
		}
		lastErr = err
		log.Printf("⚠️ [ROUTER] %s agent attempt %d/%d failed: %v", agent.Domain(), attempt, retryAttempts, err)
	}

	log.Printf("🚨 [ROUTER] %s agent gave up: %v", agent.Domain(), lastErr)
	return &models.RAGAnswer{Answer: []string{}}
}

// synthesize condenses merged bullet lines into one coherent answer
func (s *SuperAgentService) synthesize(ctx context.Context, query string, lines []string) (string, error) {
	prompt := fmt.Sprintf(`Combine the facts below into one clear, concise answer to the question. Do not add information that is not in the facts.

QUESTION: %s

FACTS:
- %s`, query, strings.Join(lines, "\n- "))

	return s.llm.Complete(ctx, []ChatMessage{
		{Role: "system", Content: "You write concise answers from provided facts."},
		{Role: "user", Content: prompt},
	})
}

// ProcessQuery runs the full routing pipeline for one user question
func (s *SuperAgentService) ProcessQuery(ctx context.Context, userID, query string) (*QueryResponse, error) {
	start := time.Now()
	metricQueriesTotal.Inc()
	defer func() {
		metricQueryDuration.Observe(time.Since(start).Seconds())
	}()

	trimmed := strings.TrimSpace(query)
	length := utf8.RuneCountInString(trimmed)
	if length < minQueryLength {
		return nil, validationError("query must be at least %d characters", minQueryLength)
	}
	if length > maxQueryLength {
		return nil, validationError("query must be at most %d characters", maxQueryLength)
	}

	queryKey := normalizeQuery(trimmed)
	logger := logging.WithQuery(queryKey, userID)

	// Embedding failures degrade gracefully: exact-match caching still
	// works without a vector.
	vector, err := s.llm.Embed(ctx, queryKey)
	if err != nil {
		logger.Warn("embedding failed, semantic matching disabled for this query", "error", err)
		vector = nil
	}

	metrics := models.QueryMetrics{Query: queryKey}

	if answers, ok := s.cache.GetExact(queryKey); ok {
		metricCacheHits.WithLabelValues("exact").Inc()
		metrics.CacheHit = true
		metrics.Duration = time.Since(start)
		return cachedResponse(answers, "cache", metrics), nil
	}
	if answers, ok := s.cache.FindSimilar(vector); ok {
		metricCacheHits.WithLabelValues("semantic").Inc()
		metrics.CacheHit = true
		metrics.Duration = time.Since(start)
		return cachedResponse(answers, "cache", metrics), nil
	}

	if answers, ok := s.memory.Knowledge(queryKey); ok {
		metricMemoryHits.WithLabelValues("knowledge").Inc()
		s.cache.Put(queryKey, answers, vector)
		metrics.LongTermMemoryHit = true
		metrics.Duration = time.Since(start)
		return cachedResponse(answers, "memory", metrics), nil
	}
	if entry, ok := s.memory.FindHistorySimilar(vector, semanticThreshold); ok {
		metricMemoryHits.WithLabelValues("history").Inc()
		s.cache.Put(queryKey, entry.Answers, vector)
		metrics.LongTermMemoryHit = true
		metrics.Duration = time.Since(start)
		return cachedResponse(entry.Answers, "history", metrics), nil
	}

	decision := s.routeQuery(ctx, trimmed)
	if learned, ok := s.memory.AdaptiveRoute(queryKey); ok && learned.Valid() {
		logger.Info("adaptive route override", "route", string(learned))
		decision.Primary = learned
		decision.Secondary = learned.Opposite()
	}
	metricRoutesTotal.WithLabelValues(string(decision.Primary)).Inc()
	metrics.PrimaryRoute = decision.Primary
	metrics.SecondaryRoute = decision.Secondary

	dispatchCtx, cancel := context.WithTimeout(ctx, dispatchBudget)
	defer cancel()

	// Sub-agents see the normalized query plus the router's reasoning,
	// which sharpens retrieval on ambiguous questions.
	dispatchQuery := queryKey
	if reasoning := strings.TrimSpace(decision.Reasoning); reasoning != "" {
		dispatchQuery = queryKey + " | Context: " + reasoning
	}

	var primaryResult, secondaryResult *models.RAGAnswer
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		primaryResult = s.queryWithRetry(dispatchCtx, s.agents[decision.Primary], dispatchQuery)
	}()
	go func() {
		defer wg.Done()
		secondaryResult = s.queryWithRetry(dispatchCtx, s.agents[decision.Secondary], dispatchQuery)
	}()
	wg.Wait()

	primaryLines := domainLines(primaryResult.Answer)
	secondaryLines := domainLines(secondaryResult.Answer)
	metrics.PrimaryResultCount = len(primaryLines)
	metrics.SecondaryResultCount = len(secondaryLines)

	// When the secondary domain clearly answered better, remember that
	// for next time and present its results first.
	if len(secondaryLines) > len(primaryLines) {
		metricAdaptiveSwaps.Inc()
		metrics.RouteSwapped = true
		decision.Primary, decision.Secondary = decision.Secondary, decision.Primary
		primaryLines, secondaryLines = secondaryLines, primaryLines
		learned := decision.Primary
		go s.memory.RecordRoute(queryKey, learned)
		logger.Info("route swapped after feedback", "route", string(learned))
	}

	merged := dedupeLines(append(primaryLines, secondaryLines...))

	if len(merged) == 0 && decision.Confidence != models.ConfidenceHigh {
		metricFallbacksTotal.Inc()
		metrics.FallbackUsed = true
		logger.Info("empty merge, falling back to both domains")
		eventResult := s.queryWithRetry(dispatchCtx, s.agents[models.RouteEvent], dispatchQuery)
		postResult := s.queryWithRetry(dispatchCtx, s.agents[models.RoutePost], dispatchQuery)
		merged = dedupeLines(append(domainLines(eventResult.Answer), domainLines(postResult.Answer)...))
	}

	if len(merged) == 0 {
		metrics.Duration = time.Since(start)
		return &QueryResponse{
			Answer:  "I could not find anything relevant to that. Try rephrasing, or ask about events or community posts.",
			Lines:   []string{},
			Source:  "pipeline",
			Metrics: metrics,
		}, nil
	}

	answer := strings.Join(merged, "\n")
	finalLines := merged
	if len(merged) > 1 {
		metricSynthesesTotal.Inc()
		synthesized, err := s.synthesize(ctx, trimmed, merged)
		if err != nil {
			logger.Warn("synthesis failed, returning raw lines", "error", err)
		} else if strings.TrimSpace(synthesized) != "" {
			answer = strings.TrimSpace(synthesized)
			finalLines = []string{answer}
			metrics.Synthesized = true
		}
	}

	// Remember the final answer everywhere it can help the next query,
	// so a repeat hit returns exactly what the caller saw.
	finalCopy := make([]string, len(finalLines))
	copy(finalCopy, finalLines)
	go s.memory.RecordAnswer(queryKey, finalCopy)
	s.memory.IndexEmbedding(queryKey, vector)
	s.cache.Put(queryKey, finalCopy, vector)

	metrics.Duration = time.Since(start)
	return &QueryResponse{
		Answer:  answer,
		Lines:   merged,
		Source:  "pipeline",
		Metrics: metrics,
	}, nil
}

func cachedResponse(answers []string, source string, metrics models.QueryMetrics) *QueryResponse {
	return &QueryResponse{
		Answer:  strings.Join(answers, "\n"),
		Lines:   answers,
		Source:  source,
		Metrics: metrics,
	}
}
