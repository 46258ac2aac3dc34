// Package pipeline runs the per-item announcement state machine and the
// bounded worker pool that fans it out over a site's work list.
//
// Per item: exclusion filter → content assembly → content-relevance filter
// → duplicate-URL check → pending write → two-pass extraction →
// classification → final upsert. Failures are local to the item; the pool
// never lets one item's error terminate the run.
package pipeline

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/bizscrape/grant-pipeline/internal/classify"
	"github.com/bizscrape/grant-pipeline/internal/content"
	"github.com/bizscrape/grant-pipeline/internal/domain"
	"github.com/bizscrape/grant-pipeline/internal/exclude"
	"github.com/bizscrape/grant-pipeline/internal/extract"
	"github.com/bizscrape/grant-pipeline/internal/llm"
	"github.com/bizscrape/grant-pipeline/internal/observability"
	"github.com/bizscrape/grant-pipeline/internal/storage"
)

// Store is the persistence contract the per-item pipeline needs.
type Store interface {
	UpsertAnnouncement(ctx context.Context, rec *domain.AnnouncementRecord) error
	UpdateStatus(ctx context.Context, folderName, siteCode, status, errorMessage string) error
	SourceURLExists(ctx context.Context, sourceURL, siteCode, excludeFolder string) (bool, error)
	StoreEmbedding(ctx context.Context, folderName, siteCode, snippet string, embedding []float32) error
	SearchSimilar(ctx context.Context, embedding []float32, siteCode string, topK int) ([]storage.SimilarAnnouncement, error)
}

// Compile-time assertion that *storage.DB implements Store.
var _ Store = (*storage.DB)(nil)

// Worker processes items start to finish. Each pool worker owns a private
// instance so converters and LLM clients are never shared mid-flight; the
// store is the concurrency-safe pgx pool.
type Worker struct {
	store            Store
	filter           *exclude.Filter
	assembler        *content.Assembler
	engine           *extract.Engine
	classifier       *classify.Classifier
	llmClient        llm.Client
	retrievalEnabled bool
	similarityTopK   int
	logger           zerolog.Logger
}

// WorkerDeps bundles the collaborators for one worker.
type WorkerDeps struct {
	Store            Store
	Filter           *exclude.Filter
	Assembler        *content.Assembler
	Engine           *extract.Engine
	Classifier       *classify.Classifier
	LLMClient        llm.Client
	RetrievalEnabled bool
	SimilarityTopK   int
	Logger           zerolog.Logger
}

// NewWorker builds a pipeline worker from its collaborators.
func NewWorker(deps WorkerDeps) *Worker {
	return &Worker{
		store:            deps.Store,
		filter:           deps.Filter,
		assembler:        deps.Assembler,
		engine:           deps.Engine,
		classifier:       deps.Classifier,
		llmClient:        deps.LLMClient,
		retrievalEnabled: deps.RetrievalEnabled,
		similarityTopK:   deps.SimilarityTopK,
		logger:           deps.Logger,
	}
}

var sourceURLRegex = regexp.MustCompile(`https?://[^\s)\]>"']+`)

// Process runs one work item to its terminal state. It never returns an
// error: every failure is folded into the ProcessingResult and, where a
// record exists, the stored status.
func (w *Worker) Process(ctx context.Context, item domain.WorkItem) (result domain.ProcessingResult) {
	started := time.Now()
	logger := w.logger.With().Str("folder", item.FolderName).Str("site", item.SiteCode).Logger()

	result = domain.ProcessingResult{Item: item}

	defer func() {
		if r := recover(); r != nil {
			logger.Error().Interface("panic", r).Msg("recovered from panic in item handler")

			result = w.fail(ctx, item, fmt.Sprintf("panic: %v", r))
		}

		result.Elapsed = time.Since(started)
		observability.ItemsProcessed.WithLabelValues(item.SiteCode, result.Status).Inc()
		observability.ItemDuration.WithLabelValues(item.SiteCode).Observe(result.Elapsed.Seconds())
	}()

	if match, excluded := w.filter.Match(ctx, item.FolderName); excluded {
		return w.exclude(ctx, item, match.Keyword, match.Reason)
	}

	assembly, err := w.assembler.Assemble(ctx, item.DirectoryPath, item.AttachForce)
	if err != nil {
		logger.Error().Err(err).Msg("content assembly produced nothing usable")

		return w.fail(ctx, item, err.Error())
	}

	verdict := exclude.RelevanceVerdict{Qualified: true}
	if assembly.CombinedText != "" {
		verdict = exclude.ScoreContent(assembly.CombinedText)
	}

	// Attachments converted but carry no support-program substance and
	// there is no primary artifact to fall back on.
	if assembly.PrimaryText == "" && !verdict.Qualified {
		observability.ExclusionsTotal.WithLabelValues("content_relevance").Inc()

		return w.exclude(ctx, item, "", verdict.Reason)
	}

	rec := &domain.AnnouncementRecord{
		FolderName:      item.FolderName,
		SiteCode:        item.SiteCode,
		PrimaryText:     assembly.PrimaryText,
		CombinedText:    assembly.CombinedText,
		AttachmentFiles: assembly.AttachmentFiles,
		SourceURL:       domain.Some(sourceURLRegex.FindString(assembly.PrimaryText)),
		Status:          domain.StatusPending,
	}

	if rec.SourceURL.Valid {
		duplicate, err := w.store.SourceURLExists(ctx, rec.SourceURL.Value, item.SiteCode, item.FolderName)
		if err != nil {
			logger.Error().Err(err).Msg("duplicate check failed")

			return w.fail(ctx, item, err.Error())
		}

		if duplicate {
			rec.Status = domain.StatusDuplicate
			if err := w.store.UpsertAnnouncement(ctx, rec); err != nil {
				return w.fail(ctx, item, err.Error())
			}

			logger.Info().Str("url", rec.SourceURL.Value).Msg("duplicate source url, not reprocessing")

			return domain.ProcessingResult{Item: item, Success: true, Status: domain.StatusDuplicate}
		}
	}

	if err := w.store.UpsertAnnouncement(ctx, rec); err != nil {
		logger.Error().Err(err).Msg("pending write failed")

		return domain.ProcessingResult{Item: item, Status: domain.StatusFailed, ErrorMessage: err.Error()}
	}

	outcome := w.engine.Extract(ctx, assembly.PrimaryText, assembly.CombinedText, w.retrievalContext(ctx, item, assembly.PrimaryText), verdict.Qualified)

	applyOutcome(rec, outcome)

	cls := w.classifier.Classify(structuredSource(rec), assembly.CombinedText)
	rec.Category = cls.Primary
	rec.SubCategories = cls.Secondary
	rec.Confidence = cls.Confidence
	rec.MatchedKeywords = cls.Matched

	if err := w.store.UpsertAnnouncement(ctx, rec); err != nil {
		logger.Error().Err(err).Msg("final write failed")

		return domain.ProcessingResult{Item: item, Status: domain.StatusFailed, ErrorMessage: err.Error()}
	}

	w.storeEmbedding(ctx, item, assembly.PrimaryText)

	logger.Info().
		Str("status", rec.Status).
		Bool("pass1", outcome.Pass1Ran).
		Bool("pass2", outcome.Pass2Ran).
		Bool("early_exit", outcome.EarlyExit).
		Msg("item processed")

	return domain.ProcessingResult{Item: item, Success: true, Status: rec.Status}
}

// retrievalContext fetches top-K similar announcement snippets for the
// retrieval-augmented extraction variant. Best-effort: any failure just
// means an unaugmented prompt.
func (w *Worker) retrievalContext(ctx context.Context, item domain.WorkItem, primary string) []string {
	if !w.retrievalEnabled || strings.TrimSpace(primary) == "" {
		return nil
	}

	embedding, err := w.llmClient.GetEmbedding(ctx, primary)
	if err != nil {
		w.logger.Warn().Err(err).Msg("retrieval embedding failed")

		return nil
	}

	hits, err := w.store.SearchSimilar(ctx, embedding, item.SiteCode, w.similarityTopK)
	if err != nil {
		w.logger.Warn().Err(err).Msg("similarity search failed")

		return nil
	}

	snippets := make([]string, 0, len(hits))

	for _, hit := range hits {
		if hit.FolderName == item.FolderName {
			continue
		}

		snippets = append(snippets, hit.Snippet)
	}

	return snippets
}

func (w *Worker) storeEmbedding(ctx context.Context, item domain.WorkItem, primary string) {
	if !w.retrievalEnabled || strings.TrimSpace(primary) == "" {
		return
	}

	embedding, err := w.llmClient.GetEmbedding(ctx, primary)
	if err != nil {
		w.logger.Warn().Err(err).Msg("embedding for vector store failed")

		return
	}

	snippet := primary
	if len(snippet) > 1000 {
		snippet = snippet[:1000]
	}

	if err := w.store.StoreEmbedding(ctx, item.FolderName, item.SiteCode, snippet, embedding); err != nil {
		w.logger.Warn().Err(err).Msg("vector store write failed")

		return
	}

	observability.EmbeddingsStored.Inc()
}

func (w *Worker) exclude(ctx context.Context, item domain.WorkItem, keyword, reason string) domain.ProcessingResult {
	rec := &domain.AnnouncementRecord{
		FolderName:       item.FolderName,
		SiteCode:         item.SiteCode,
		ExclusionKeyword: keyword,
		ExclusionReason:  reason,
		Status:           domain.StatusExcluded,
	}

	if err := w.store.UpsertAnnouncement(ctx, rec); err != nil {
		return domain.ProcessingResult{Item: item, Status: domain.StatusFailed, ErrorMessage: err.Error()}
	}

	return domain.ProcessingResult{Item: item, Success: true, Status: domain.StatusExcluded}
}

// fail records the failure on the stored row when one exists and reports a
// failed result. UpdateStatus on a row that was never written is a no-op.
func (w *Worker) fail(ctx context.Context, item domain.WorkItem, message string) domain.ProcessingResult {
	if err := w.store.UpdateStatus(ctx, item.FolderName, item.SiteCode, domain.StatusFailed, message); err != nil {
		w.logger.Error().Err(err).Str("folder", item.FolderName).Msg("failed to record failure status")
	}

	return domain.ProcessingResult{Item: item, Status: domain.StatusFailed, ErrorMessage: message}
}

func applyOutcome(rec *domain.AnnouncementRecord, outcome *extract.Outcome) {
	rec.Title = outcome.Fields.Title
	rec.Target = outcome.Fields.Target
	rec.TargetType = outcome.Fields.TargetType
	rec.Amount = outcome.Fields.Amount
	rec.Period = outcome.Fields.Period
	rec.Schedule = outcome.Fields.Schedule
	rec.Content = outcome.Fields.Content
	rec.AnnouncementDate = outcome.Fields.AnnouncementDate
	rec.Status = outcome.Status

	if outcome.Fields.SourceURL.Valid {
		rec.SourceURL = outcome.Fields.SourceURL
	}

	if outcome.Fields.AnnouncementDate.Valid {
		rec.AnnouncementDateISO = extract.NormalizeDate(outcome.Fields.AnnouncementDate.Value)
	} else {
		rec.AnnouncementDateISO = domain.DateUnparseable
	}
}

// structuredSource concatenates the extracted metadata fields scored by
// the classifier's structured pass.
func structuredSource(rec *domain.AnnouncementRecord) string {
	parts := make([]string, 0, 4)

	for _, f := range []domain.Field{rec.Title, rec.Target, rec.TargetType, rec.Content} {
		if f.Valid {
			parts = append(parts, f.Value)
		}
	}

	return strings.Join(parts, "\n")
}
