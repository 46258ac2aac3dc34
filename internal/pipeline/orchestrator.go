package pipeline

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/bizscrape/grant-pipeline/internal/domain"
)

// WorkerFactory builds one worker's private collaborator set. Called once
// per pool worker so no two workers share a converter or LLM client.
type WorkerFactory func(workerID int) *Worker

// Orchestrator fans work items out over a bounded worker pool and
// aggregates results. No ordering is guaranteed between items; an in-flight
// item always runs to its terminal state before a stop takes effect.
type Orchestrator struct {
	workerCount int
	factory     WorkerFactory
	logger      *zerolog.Logger
}

// NewOrchestrator builds an orchestrator with the given pool size.
func NewOrchestrator(workerCount int, factory WorkerFactory, logger *zerolog.Logger) *Orchestrator {
	if workerCount < 1 {
		workerCount = 1
	}

	return &Orchestrator{workerCount: workerCount, factory: factory, logger: logger}
}

// Run processes all items and returns the aggregate statistics. Context
// cancellation is honored between items only: workers drain the queue until
// it closes or the context is done.
func (o *Orchestrator) Run(ctx context.Context, items []domain.WorkItem) domain.RunStats {
	started := time.Now()
	runID := uuid.New().String()

	logger := o.logger.With().Str("run_id", runID).Logger()
	logger.Info().Int("items", len(items)).Int("workers", o.workerCount).Msg("starting run")

	queue := make(chan domain.WorkItem)

	var (
		mu    sync.Mutex
		stats domain.RunStats
		wg    sync.WaitGroup
	)

	for i := 0; i < o.workerCount; i++ {
		wg.Add(1)

		go func(workerID int) {
			defer wg.Done()

			worker := o.factory(workerID)

			for item := range queue {
				result := worker.Process(ctx, item)

				mu.Lock()
				tally(&stats, result)
				mu.Unlock()

				if result.Success {
					logger.Debug().Str("folder", item.FolderName).Str("status", result.Status).Dur("elapsed", result.Elapsed).Msg("item done")
				} else {
					logger.Warn().Str("folder", item.FolderName).Str("error", result.ErrorMessage).Msg("item failed")
				}
			}
		}(i)
	}

	for _, item := range items {
		select {
		case <-ctx.Done():
			logger.Warn().Msg("run interrupted, finishing in-flight items")

			goto drain
		case queue <- item:
		}
	}

drain:
	close(queue)
	wg.Wait()

	stats.Elapsed = time.Since(started)

	logger.Info().
		Int("processed", stats.Processed).
		Int("succeeded", stats.Succeeded).
		Int("failed", stats.Failed).
		Int("excluded", stats.Excluded).
		Int("duplicates", stats.Duplicates).
		Dur("elapsed", stats.Elapsed).
		Msg("run finished")

	return stats
}

func tally(stats *domain.RunStats, result domain.ProcessingResult) {
	stats.Processed++

	switch result.Status {
	case domain.StatusExcluded:
		stats.Excluded++
	case domain.StatusDuplicate:
		stats.Duplicates++
	case domain.StatusFailed:
		stats.Failed++
	default:
		if result.Success {
			stats.Succeeded++
		} else {
			stats.Failed++
		}
	}
}
