package jobs

import (
	"context"
	"fmt"
	"log"
	"time"

	"gatherly/internal/services"

	"github.com/go-co-op/gocron/v2"
)

// IndexRebuilder periodically re-indexes all posts and events into the
// retrieval stores. This heals any drift from failed async indexing and
// picks up documents written before the vector store existed.
type IndexRebuilder struct {
	scheduler    gocron.Scheduler
	postService  *services.PostService
	eventService *services.EventService
	postRAG      *services.PostRAGService
	eventRAG     *services.EventRAGService
	interval     time.Duration
}

// NewIndexRebuilder creates the rebuild scheduler. A zero interval
// defaults to six hours.
func NewIndexRebuilder(
	postService *services.PostService,
	eventService *services.EventService,
	postRAG *services.PostRAGService,
	eventRAG *services.EventRAGService,
	interval time.Duration,
) (*IndexRebuilder, error) {
	scheduler, err := gocron.NewScheduler(gocron.WithLocation(time.UTC))
	if err != nil {
		return nil, fmt.Errorf("failed to create rebuild scheduler: %w", err)
	}

	if interval <= 0 {
		interval = 6 * time.Hour
	}

	return &IndexRebuilder{
		scheduler:    scheduler,
		postService:  postService,
		eventService: eventService,
		postRAG:      postRAG,
		eventRAG:     eventRAG,
		interval:     interval,
	}, nil
}

// Start schedules the periodic rebuild and begins the scheduler
func (r *IndexRebuilder) Start() error {
	_, err := r.scheduler.NewJob(
		gocron.DurationJob(r.interval),
		gocron.NewTask(func() {
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Minute)
			defer cancel()
			r.RebuildAll(ctx)
		}),
	)
	if err != nil {
		return fmt.Errorf("failed to schedule index rebuild: %w", err)
	}

	r.scheduler.Start()
	log.Printf("⏰ [REBUILD] Index rebuild scheduled every %s", r.interval)
	return nil
}

// Stop shuts the scheduler down
func (r *IndexRebuilder) Stop() error {
	return r.scheduler.Shutdown()
}

// RebuildAll re-indexes every post and event. Individual failures are
// logged and skipped so one bad document never stops the sweep.
func (r *IndexRebuilder) RebuildAll(ctx context.Context) {
	start := time.Now()

	posts, err := r.postService.AllPosts(ctx)
	if err != nil {
		log.Printf("🚨 [REBUILD] Failed to list posts: %v", err)
	} else {
		indexed := 0
		for i := range posts {
			if err := r.postRAG.IndexPost(ctx, &posts[i]); err != nil {
				log.Printf("⚠️ [REBUILD] Post %s: %v", posts[i].ID.Hex(), err)
				continue
			}
			indexed++
		}
		log.Printf("🔁 [REBUILD] Indexed %d/%d posts", indexed, len(posts))
	}

	events, err := r.eventService.AllEvents(ctx)
	if err != nil {
		log.Printf("🚨 [REBUILD] Failed to list events: %v", err)
	} else {
		indexed := 0
		for i := range events {
			if err := r.eventRAG.IndexEvent(ctx, &events[i]); err != nil {
				log.Printf("⚠️ [REBUILD] Event %s: %v", events[i].ID.Hex(), err)
				continue
			}
			indexed++
		}
		log.Printf("🔁 [REBUILD] Indexed %d/%d events", indexed, len(events))
	}

	log.Printf("✅ [REBUILD] Sweep finished in %s", time.Since(start).Round(time.Millisecond))
}
