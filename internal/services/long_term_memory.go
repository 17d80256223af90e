package services

import (
	"context"
	"encoding/json"
	"log"
	"sync"
	"time"

	"gatherly/internal/models"

	"github.com/redis/go-redis/v9"
)

// Redis keys for the three long-term memory blobs
const (
	memoryKeyAdaptiveRoutes = "memories:adaptive_routes"
	memoryKeyQueryHistory   = "memories:query_history"
	memoryKeyKnowledgeBase  = "memories:knowledge_base"

	maxHistoryEntries = 500
)

// LongTermMemory persists the assistant's learned routes, answered
// queries, and knowledge base in Redis, mirrored in memory for reads.
// Persistence is best effort: a Redis outage degrades to process-local
// memory rather than failing queries.
type LongTermMemory struct {
	redis *RedisService

	mu             sync.RWMutex
	adaptiveRoutes map[string]models.RouteType
	knowledgeBase  map[string][]string
	queryHistory   []models.HistoryEntry

	// Embeddings for history entries indexed this process lifetime.
	// Rebuilt lazily as queries arrive, never persisted.
	historyVectors map[string][]float64
}

// NewLongTermMemory creates the memory layer and loads any persisted state.
// A nil redis service runs fully in-memory, which the tests rely on.
func NewLongTermMemory(redisService *RedisService) *LongTermMemory {
	m := &LongTermMemory{
		redis:          redisService,
		adaptiveRoutes: map[string]models.RouteType{},
		knowledgeBase:  map[string][]string{},
		queryHistory:   []models.HistoryEntry{},
		historyVectors: map[string][]float64{},
	}
	m.load()
	return m
}

func (m *LongTermMemory) load() {
	if m.redis == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	loadBlob := func(key string, target interface{}) {
		raw, err := m.redis.Get(ctx, key)
		if err == redis.Nil {
			return
		}
		if err != nil {
			log.Printf("⚠️ [MEMORY] Failed to load %s: %v", key, err)
			return
		}
		if err := json.Unmarshal([]byte(raw), target); err != nil {
			log.Printf("⚠️ [MEMORY] Corrupt blob at %s: %v", key, err)
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	loadBlob(memoryKeyAdaptiveRoutes, &m.adaptiveRoutes)
	loadBlob(memoryKeyQueryHistory, &m.queryHistory)
	loadBlob(memoryKeyKnowledgeBase, &m.knowledgeBase)

	log.Printf("🧠 [MEMORY] Loaded %d routes, %d history entries, %d knowledge entries",
		len(m.adaptiveRoutes), len(m.queryHistory), len(m.knowledgeBase))
}

// persistBlob writes one mapping back to Redis. Errors are logged and
// swallowed; callers run this fire-and-forget.
func (m *LongTermMemory) persistBlob(key string, value interface{}) {
	if m.redis == nil {
		return
	}

	data, err := json.Marshal(value)
	if err != nil {
		log.Printf("⚠️ [MEMORY] Failed to marshal %s: %v", key, err)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := m.redis.Set(ctx, key, string(data), 0); err != nil {
		log.Printf("⚠️ [MEMORY] Failed to persist %s: %v", key, err)
	}
}

// AdaptiveRoute returns the learned route for a normalized query, if any
func (m *LongTermMemory) AdaptiveRoute(queryKey string) (models.RouteType, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	route, ok := m.adaptiveRoutes[queryKey]
	return route, ok
}

// RecordRoute remembers which domain actually answered a query
func (m *LongTermMemory) RecordRoute(queryKey string, route models.RouteType) {
	m.mu.Lock()
	m.adaptiveRoutes[queryKey] = route
	snapshot := make(map[string]models.RouteType, len(m.adaptiveRoutes))
	for k, v := range m.adaptiveRoutes {
		snapshot[k] = v
	}
	m.mu.Unlock()

	m.persistBlob(memoryKeyAdaptiveRoutes, snapshot)
}

// Knowledge returns the stored answer for a normalized query, if any
func (m *LongTermMemory) Knowledge(queryKey string) ([]string, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	answers, ok := m.knowledgeBase[queryKey]
	return answers, ok
}

// RecordAnswer stores a successful answer under its normalized query and
// appends a history entry, trimming history to the cap.
func (m *LongTermMemory) RecordAnswer(queryKey string, answers []string) {
	m.mu.Lock()
	m.knowledgeBase[queryKey] = answers
	m.queryHistory = append(m.queryHistory, models.HistoryEntry{
		Query:     queryKey,
		Answers:   answers,
		Timestamp: time.Now(),
	})
	if len(m.queryHistory) > maxHistoryEntries {
		m.queryHistory = m.queryHistory[len(m.queryHistory)-maxHistoryEntries:]
	}

	knowledgeSnapshot := make(map[string][]string, len(m.knowledgeBase))
	for k, v := range m.knowledgeBase {
		knowledgeSnapshot[k] = v
	}
	historySnapshot := make([]models.HistoryEntry, len(m.queryHistory))
	copy(historySnapshot, m.queryHistory)
	m.mu.Unlock()

	m.persistBlob(memoryKeyKnowledgeBase, knowledgeSnapshot)
	m.persistBlob(memoryKeyQueryHistory, historySnapshot)
}

// IndexEmbedding associates an embedding with a history query so later
// queries can match it semantically within this process.
func (m *LongTermMemory) IndexEmbedding(queryKey string, vector []float64) {
	if len(vector) == 0 {
		return
	}
	m.mu.Lock()
	m.historyVectors[queryKey] = vector
	m.mu.Unlock()
}

// FindHistorySimilar scans locally indexed history embeddings for the
// closest match at or above the threshold. Entries persisted by earlier
// processes have no vector and are skipped.
func (m *LongTermMemory) FindHistorySimilar(vector []float64, threshold float64) (*models.HistoryEntry, bool) {
	if len(vector) == 0 {
		return nil, false
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	bestKey := ""
	bestScore := threshold
	for key, candidate := range m.historyVectors {
		score := cosineSimilarity(vector, candidate)
		if score >= bestScore {
			bestScore = score
			bestKey = key
		}
	}
	if bestKey == "" {
		return nil, false
	}

	for i := len(m.queryHistory) - 1; i >= 0; i-- {
		if m.queryHistory[i].Query == bestKey {
			entry := m.queryHistory[i]
			return &entry, true
		}
	}
	return nil, false
}

// HistorySize reports how many history entries are held
func (m *LongTermMemory) HistorySize() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.queryHistory)
}
