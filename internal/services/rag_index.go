package services

import (
	"context"
	"fmt"
	"log"
	"strings"
	"sync"

	"gatherly/internal/models"

	"github.com/philippgille/chromem-go"
)

// Retrieval tuning shared by both domain agents.
const (
	ragChunkSize        = 200 // words per chunk
	ragChunkOverlap     = 30  // words carried into the next chunk
	ragContextWordLimit = 600 // cap on words handed to the LLM
	ragMinSimilarity    = 0.3
)

// SubAgent answers questions over one content domain. The router treats
// agents uniformly through this interface.
type SubAgent interface {
	Domain() models.RouteType
	QueryDocuments(ctx context.Context, query string, topK int) (*models.RAGAnswer, error)
}

// ragIndex wraps a chromem-go collection with chunked document upserts.
// One index per content domain, persisted under its own collection name.
type ragIndex struct {
	collection *chromem.Collection
	mu         sync.Mutex
}

// newRAGIndex opens or creates a named collection. An empty dir keeps the
// index in memory, which is what the tests use.
func newRAGIndex(dir, name string, llm LLMClient) (*ragIndex, error) {
	embed := chromemEmbeddingFunc(llm)

	var db *chromem.DB
	if dir == "" {
		db = chromem.NewDB()
	} else {
		var err error
		db, err = chromem.NewPersistentDB(dir, false)
		if err != nil {
			return nil, fmt.Errorf("failed to open vector store: %w", err)
		}
	}

	collection, err := db.GetOrCreateCollection(name, nil, embed)
	if err != nil {
		return nil, fmt.Errorf("failed to open collection %s: %w", name, err)
	}

	return &ragIndex{collection: collection}, nil
}

// chromemEmbeddingFunc adapts the LLM embedding surface to chromem-go.
// Failed embeddings fall back to a zero vector so indexing never blocks
// on a flaky provider.
func chromemEmbeddingFunc(llm LLMClient) chromem.EmbeddingFunc {
	return func(ctx context.Context, text string) ([]float32, error) {
		vector, err := llm.Embed(ctx, text)
		if err != nil {
			log.Printf("⚠️ [RAG] Embedding failed, using zero vector: %v", err)
			return make([]float32, embeddingDimensions), nil
		}
		out := make([]float32, len(vector))
		for i, v := range vector {
			out[i] = float32(v)
		}
		return out, nil
	}
}

// upsertDocument re-chunks and re-indexes one source document. Existing
// chunks for the source are removed first so edits never leave stale
// chunks behind.
func (idx *ragIndex) upsertDocument(ctx context.Context, sourceID, text string, metadata map[string]string) error {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	if err := idx.collection.Delete(ctx, map[string]string{"sourceId": sourceID}, nil); err != nil {
		log.Printf("⚠️ [RAG] Failed to clear chunks for %s: %v", sourceID, err)
	}

	chunks := chunkText(text, ragChunkSize, ragChunkOverlap)
	for i, chunk := range chunks {
		meta := map[string]string{"sourceId": sourceID}
		for k, v := range metadata {
			meta[k] = v
		}

		doc := chromem.Document{
			ID:       fmt.Sprintf("%s_%d", sourceID, i),
			Content:  chunk,
			Metadata: meta,
		}
		if err := idx.collection.AddDocument(ctx, doc); err != nil {
			return fmt.Errorf("failed to index chunk %d of %s: %w", i, sourceID, err)
		}
	}

	return nil
}

// removeDocument deletes all chunks belonging to a source document
func (idx *ragIndex) removeDocument(ctx context.Context, sourceID string) error {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	return idx.collection.Delete(ctx, map[string]string{"sourceId": sourceID}, nil)
}

// search returns the most similar chunks above the similarity floor
func (idx *ragIndex) search(ctx context.Context, query string, topK int) ([]chromem.Result, error) {
	count := idx.collection.Count()
	if count == 0 {
		return nil, nil
	}
	if topK > count {
		topK = count
	}

	results, err := idx.collection.Query(ctx, query, topK, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("vector query failed: %w", err)
	}

	filtered := results[:0]
	for _, r := range results {
		if r.Similarity >= ragMinSimilarity {
			filtered = append(filtered, r)
		}
	}
	return filtered, nil
}

// chunkText splits text into overlapping word windows
func chunkText(text string, size, overlap int) []string {
	words := strings.Fields(text)
	if len(words) == 0 {
		return nil
	}
	if len(words) <= size {
		return []string{strings.Join(words, " ")}
	}

	step := size - overlap
	if step <= 0 {
		step = size
	}

	var chunks []string
	for start := 0; start < len(words); start += step {
		end := start + size
		if end > len(words) {
			end = len(words)
		}
		chunks = append(chunks, strings.Join(words[start:end], " "))
		if end == len(words) {
			break
		}
	}
	return chunks
}

// buildContext concatenates chunk contents up to the word budget. Returns
// the context text and how many chunks made it in.
func buildContext(results []chromem.Result, wordLimit int) (string, int) {
	var parts []string
	used := 0
	budget := wordLimit

	for _, r := range results {
		words := strings.Fields(r.Content)
		if len(words) > budget {
			if budget > 0 {
				parts = append(parts, strings.Join(words[:budget], " "))
				used++
			}
			break
		}
		parts = append(parts, r.Content)
		used++
		budget -= len(words)
	}

	return strings.Join(parts, "\n\n"), used
}

// parseBulletAnswer splits an LLM answer into clean bullet lines
func parseBulletAnswer(raw string) []string {
	var lines []string
	for _, line := range strings.Split(raw, "\n") {
		line = strings.TrimSpace(line)
		line = strings.TrimPrefix(line, "- ")
		line = strings.TrimPrefix(line, "* ")
		line = strings.TrimPrefix(line, "• ")
		line = strings.TrimSpace(line)
		if line != "" {
			lines = append(lines, line)
		}
	}
	return lines
}
