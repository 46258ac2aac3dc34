package pipeline

import (
	"context"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bizscrape/grant-pipeline/internal/domain"
	"github.com/bizscrape/grant-pipeline/internal/exclude"
)

func orchestratorFixture(t *testing.T, workerCount int) (*Orchestrator, *fakeStore, []domain.WorkItem) {
	t.Helper()

	store := &fakeStore{}

	factory := func(int) *Worker {
		return newTestWorker(workerConfig{
			store:      store,
			client:     &fakeLLM{result: resultWithTarget()},
			exclusions: []exclude.Keyword{{Keyword: "채용"}},
		})
	}

	logger := zerolog.Nop()

	items := []domain.WorkItem{
		{SiteCode: "gg", FolderName: "1_자금지원", DirectoryPath: announcementFolder(t, primaryDoc(""))},
		{SiteCode: "gg", FolderName: "2_채용공고", DirectoryPath: "/nonexistent"},
		{SiteCode: "gg", FolderName: "3_깨진폴더", DirectoryPath: "/nonexistent"},
	}

	return NewOrchestrator(workerCount, factory, &logger), store, items
}

func TestOrchestratorAggregatesStatuses(t *testing.T) {
	o, _, items := orchestratorFixture(t, 2)

	stats := o.Run(context.Background(), items)

	assert.Equal(t, 3, stats.Processed)
	assert.Equal(t, 1, stats.Succeeded)
	assert.Equal(t, 1, stats.Excluded)
	assert.Equal(t, 1, stats.Failed)
	assert.Zero(t, stats.Duplicates)
	assert.Positive(t, stats.Elapsed)
}

func TestOrchestratorSingleWorkerProcessesAll(t *testing.T) {
	o, store, items := orchestratorFixture(t, 1)

	stats := o.Run(context.Background(), items)

	assert.Equal(t, len(items), stats.Processed)
	assert.NotEmpty(t, store.upserts)
}

func TestOrchestratorNormalizesWorkerCount(t *testing.T) {
	o, _, items := orchestratorFixture(t, 0)

	stats := o.Run(context.Background(), items)

	assert.Equal(t, len(items), stats.Processed, "a zero pool size must still run with one worker")
}

func TestOrchestratorEmptyWorkList(t *testing.T) {
	o, store, _ := orchestratorFixture(t, 2)

	stats := o.Run(context.Background(), nil)

	assert.Zero(t, stats.Processed)
	assert.Empty(t, store.upserts)
}

func TestOrchestratorStopsFeedingOnCancel(t *testing.T) {
	o, _, items := orchestratorFixture(t, 1)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	stats := o.Run(ctx, items)

	// In-flight items finish; the rest of the queue is abandoned.
	assert.LessOrEqual(t, stats.Processed, len(items))
}

func TestOrchestratorFactoryCalledPerWorker(t *testing.T) {
	var (
		mu  sync.Mutex
		ids []int
	)

	store := &fakeStore{}

	factory := func(workerID int) *Worker {
		mu.Lock()
		ids = append(ids, workerID)
		mu.Unlock()

		return newTestWorker(workerConfig{store: store, client: &fakeLLM{result: resultWithTarget()}})
	}

	logger := zerolog.Nop()
	o := NewOrchestrator(3, factory, &logger)

	o.Run(context.Background(), nil)

	require.Len(t, ids, 3)
	assert.ElementsMatch(t, []int{0, 1, 2}, ids)
}
