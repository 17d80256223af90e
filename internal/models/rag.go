package models

import "time"

// RouteType identifies a retrieval domain
type RouteType string

const (
	RouteEvent RouteType = "event"
	RoutePost  RouteType = "post"
)

// Opposite returns the complementary domain
func (r RouteType) Opposite() RouteType {
	if r == RouteEvent {
		return RoutePost
	}
	return RouteEvent
}

// Valid reports whether r is a known domain
func (r RouteType) Valid() bool {
	return r == RouteEvent || r == RoutePost
}

// Routing confidence labels
const (
	ConfidenceHigh   = "high"
	ConfidenceMedium = "medium"
	ConfidenceLow    = "low"
)

// RouteDecision is the LLM's (possibly overridden) domain classification
type RouteDecision struct {
	Primary    RouteType `json:"primary"`
	Secondary  RouteType `json:"secondary"`
	Confidence string    `json:"confidence"`
	Reasoning  string    `json:"reasoning"`
}

// RAGAnswer is the contract every domain sub-agent returns
type RAGAnswer struct {
	Answer      []string `json:"answer"`
	SourcesUsed int      `json:"sources_used"`
}

// HistoryEntry is one persisted (query, answers) pair in long-term memory
type HistoryEntry struct {
	Query     string    `json:"query"`
	Answers   []string  `json:"answers"`
	Timestamp time.Time `json:"ts"`
}

// QueryMetrics is the per-query summary emitted after each pipeline run
type QueryMetrics struct {
	Query                string        `json:"query"`
	Duration             time.Duration `json:"duration_ms"`
	CacheHit             bool          `json:"cache_hit"`
	LongTermMemoryHit    bool          `json:"long_term_memory_hit"`
	PrimaryRoute         RouteType     `json:"primary_route"`
	SecondaryRoute       RouteType     `json:"secondary_route"`
	PrimaryResultCount   int           `json:"primary_result_count"`
	SecondaryResultCount int           `json:"secondary_result_count"`
	RouteSwapped         bool          `json:"route_swapped"`
	FallbackUsed         bool          `json:"fallback_used"`
	Synthesized          bool          `json:"synthesized"`
}
